package container

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"sync"

	"github.com/janmbaco/go-infrastructure/v2/dependencyinjection"
	"github.com/janmbaco/go-webcontainer/internal/domain"
)

var errReleased = errors.New("scope has been released")

// constructorFailure carries a constructor error through the container's provider call.
type constructorFailure struct {
	err error
}

type registration struct {
	class    *domain.Class
	delegate bool
}

// scope implements domain.Scope on a dependencyinjection.Container.
type scope struct {
	mu            sync.Mutex
	container     dependencyinjection.Container
	parent        *scope
	registrations map[reflect.Type]registration
	order         []reflect.Type
	created       []any
	tenants       int
	released      bool
	failure       error
}

// NewScope creates a root scope over a new container.
func NewScope() domain.Scope {
	return newScope(nil)
}

func newScope(parent *scope) *scope {
	return &scope{
		container:     dependencyinjection.NewContainer(),
		parent:        parent,
		registrations: make(map[reflect.Type]registration),
	}
}

func (s *scope) RegisterInstance(key reflect.Type, value any) error {
	if value == nil {
		return errors.New("cannot register a nil instance")
	}
	rv := reflect.ValueOf(value)
	if key == nil {
		key = rv.Type()
	}
	if !rv.Type().AssignableTo(key) {
		return fmt.Errorf("instance of type %v cannot be registered as %v", rv.Type(), key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(key); err != nil {
		return err
	}

	keyed := reflect.New(key).Elem()
	keyed.Set(rv)
	provider := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{key}, false), func([]reflect.Value) []reflect.Value {
		return []reflect.Value{keyed}
	})
	if err := s.register(key, provider.Interface()); err != nil {
		return err
	}
	s.add(key, registration{})
	return nil
}

func (s *scope) RegisterClass(key reflect.Type, class domain.Class) error {
	if err := class.Validate(); err != nil {
		return err
	}
	if key == nil {
		key = class.ResultType()
	}
	if !class.ResultType().AssignableTo(key) {
		return fmt.Errorf("class '%v' produces %v which cannot be registered as %v", class.Name, class.ResultType(), key)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkRegistrable(key); err != nil {
		return err
	}

	if err := s.register(key, s.provider(class, key, true)); err != nil {
		return err
	}
	c := class
	s.add(key, registration{class: &c})
	return nil
}

func (s *scope) Resolve(class domain.Class) (result any, err error) {
	if err := class.Validate(); err != nil {
		return nil, &domain.ResolutionError{Class: class.Name, Message: "invalid class", InternalError: err}
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, &domain.ResolutionError{Class: class.Name, Message: "unavailable", InternalError: errReleased}
	}
	if err := s.syncParent(); err != nil {
		s.mu.Unlock()
		return nil, &domain.ResolutionError{Class: class.Name, Message: "cannot inherit parent components", InternalError: err}
	}
	for _, param := range class.ParamTypes() {
		if err := s.checkResolvable(param, map[reflect.Type]bool{}); err != nil {
			s.mu.Unlock()
			return nil, &domain.ResolutionError{Class: class.Name, Message: "unsatisfied dependency", InternalError: err}
		}
	}
	// every resolution constructs a new instance
	s.tenants++
	tenant := class.Name + "#" + strconv.Itoa(s.tenants)
	resultType := class.ResultType()
	provider := s.provider(class, resultType, false)
	s.mu.Unlock()

	err = guard(func() {
		s.container.Register().AsTenant(tenant, reflect.New(resultType).Interface(), provider, nil)
		result = s.container.Resolver().Tenant(tenant, reflect.New(resultType).Interface(), nil)
	})
	if err == nil && isNil(result) {
		err = s.takeFailure()
	}
	if err != nil {
		return nil, &domain.ResolutionError{Class: class.Name, Message: "construction failed", InternalError: err}
	}
	if isNil(result) {
		return nil, &domain.ResolutionError{Class: class.Name, Message: "constructor returned nil"}
	}
	return result, nil
}

func (s *scope) Component(key reflect.Type) (result any, err error) {
	if key == nil {
		return nil, &domain.ResolutionError{Class: "<nil>", Message: "key cannot be nil"}
	}
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, &domain.ResolutionError{Class: key.String(), Message: "unavailable", InternalError: errReleased}
	}
	if err := s.syncParent(); err != nil {
		s.mu.Unlock()
		return nil, &domain.ResolutionError{Class: key.String(), Message: "cannot inherit parent components", InternalError: err}
	}
	if err := s.checkResolvable(key, map[reflect.Type]bool{}); err != nil {
		s.mu.Unlock()
		return nil, &domain.ResolutionError{Class: key.String(), Message: "not resolvable", InternalError: err}
	}
	s.mu.Unlock()

	err = guard(func() {
		result = s.container.Resolver().Type(reflect.New(key).Interface(), nil)
	})
	if err == nil && isNil(result) {
		err = s.takeFailure()
	}
	if err != nil {
		return nil, &domain.ResolutionError{Class: key.String(), Message: "construction failed", InternalError: err}
	}
	if isNil(result) {
		return nil, &domain.ResolutionError{Class: key.String(), Message: "component is nil"}
	}
	return result, nil
}

func (s *scope) NewChildScope() (domain.Scope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil, errReleased
	}
	child := newScope(s)
	return child, nil
}

// Release closes the io.Closer components this scope constructed, newest first.
func (s *scope) Release() error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return errReleased
	}
	s.released = true
	created := s.created
	s.created = nil
	s.mu.Unlock()

	var errs []error
	for i := len(created) - 1; i >= 0; i-- {
		if closer, ok := created[i].(io.Closer); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Keys returns the keys visible from the scope in registration order, parents first.
func (s *scope) Keys() []reflect.Type {
	var keys []reflect.Type
	seen := make(map[reflect.Type]bool)
	for _, sc := range s.chain() {
		sc.mu.Lock()
		for _, key := range sc.order {
			if !seen[key] && !sc.registrations[key].delegate {
				seen[key] = true
				keys = append(keys, key)
			}
		}
		sc.mu.Unlock()
	}
	return keys
}

// chain returns the scopes from the root down to s.
func (s *scope) chain() []*scope {
	var chain []*scope
	for sc := s; sc != nil; sc = sc.parent {
		chain = append([]*scope{sc}, chain...)
	}
	return chain
}

func (s *scope) checkRegistrable(key reflect.Type) error {
	if s.released {
		return errReleased
	}
	if reg, exists := s.registrations[key]; exists && !reg.delegate {
		return fmt.Errorf("a component is already registered for %v", key)
	}
	if _, exists := s.registrations[key]; exists {
		return fmt.Errorf("%v is inherited from a parent scope and already in use", key)
	}
	return nil
}

func (s *scope) add(key reflect.Type, reg registration) {
	s.registrations[key] = reg
	s.order = append(s.order, key)
}

func (s *scope) register(key reflect.Type, provider any) error {
	return guard(func() {
		s.container.Register().AsSingleton(reflect.New(key).Interface(), provider, nil)
	})
}

// syncParent registers delegating providers for parent keys the scope does not know yet.
// Caller holds s.mu.
func (s *scope) syncParent() error {
	if s.parent == nil {
		return nil
	}
	for _, key := range s.parent.Keys() {
		if _, exists := s.registrations[key]; exists {
			continue
		}
		parent := s.parent
		k := key
		provider := reflect.MakeFunc(reflect.FuncOf(nil, []reflect.Type{k}, false), func([]reflect.Value) []reflect.Value {
			value, err := parent.Component(k)
			if err != nil {
				s.fail(err)
			}
			keyed := reflect.New(k).Elem()
			keyed.Set(reflect.ValueOf(value))
			return []reflect.Value{keyed}
		})
		if err := s.register(k, provider.Interface()); err != nil {
			return err
		}
		s.add(k, registration{delegate: true})
	}
	return nil
}

// checkResolvable verifies that key and, for classes, its constructor parameters are registered.
// Caller holds s.mu.
func (s *scope) checkResolvable(key reflect.Type, visiting map[reflect.Type]bool) error {
	if visiting[key] {
		return fmt.Errorf("circular dependency on %v", key)
	}
	reg, local := s.registrations[key]
	if !local {
		return fmt.Errorf("no component registered for %v", key)
	}
	if reg.delegate {
		return s.parent.checkResolvableLocked(key)
	}
	if reg.class == nil {
		return nil
	}
	visiting[key] = true
	defer delete(visiting, key)
	for _, param := range reg.class.ParamTypes() {
		if err := s.checkResolvable(param, visiting); err != nil {
			return fmt.Errorf("%v requires %v: %w", reg.class.Name, param, err)
		}
	}
	return nil
}

func (s *scope) checkResolvableLocked(key reflect.Type) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.syncParent(); err != nil {
		return err
	}
	return s.checkResolvable(key, map[reflect.Type]bool{})
}

// provider adapts a class constructor to the provider signature the container expects:
// same parameters, a single result of type out.
func (s *scope) provider(class domain.Class, out reflect.Type, track bool) any {
	constructor := reflect.ValueOf(class.Constructor)
	fnType := reflect.FuncOf(class.ParamTypes(), []reflect.Type{out}, false)
	return reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		results := constructor.Call(args)
		if len(results) == 2 && !results[1].IsNil() {
			s.fail(results[1].Interface().(error))
		}
		value := results[0]
		if track && value.IsValid() && canBeClosed(value) {
			s.mu.Lock()
			s.created = append(s.created, value.Interface())
			s.mu.Unlock()
		}
		keyed := reflect.New(out).Elem()
		if value.IsValid() {
			keyed.Set(value)
		}
		return []reflect.Value{keyed}
	}).Interface()
}

// fail records err and aborts the provider call in progress.
func (s *scope) fail(err error) {
	s.mu.Lock()
	s.failure = err
	s.mu.Unlock()
	panic(constructorFailure{err: err})
}

func (s *scope) takeFailure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failure
	s.failure = nil
	return err
}

func canBeClosed(value reflect.Value) bool {
	if isNilValue(value) {
		return false
	}
	_, ok := value.Interface().(io.Closer)
	return ok
}

// guard runs fn and turns a panic raised inside the container into an error.
func guard(fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = recovered(r)
		}
	}()
	fn()
	return nil
}

func recovered(r any) error {
	switch v := r.(type) {
	case constructorFailure:
		return v.err
	case *constructorFailure:
		return v.err
	case error:
		var failure constructorFailure
		if errors.As(v, &failure) {
			return failure.err
		}
		return v
	}
	return fmt.Errorf("%v", r)
}

func (f constructorFailure) Error() string {
	return f.err.Error()
}

func (f constructorFailure) Unwrap() error {
	return f.err
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	return isNilValue(reflect.ValueOf(value))
}

func isNilValue(value reflect.Value) bool {
	switch value.Kind() {
	case reflect.Chan, reflect.Func, reflect.Interface, reflect.Map, reflect.Pointer, reflect.Slice:
		return value.IsNil()
	}
	return false
}
