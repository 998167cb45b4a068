package domain

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"sort"
	"sync"
)

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// Class is a named constructor the DI scope can invoke.
// The constructor is a func returning T or (T, error); its parameters are injected by type.
type Class struct {
	Name        string
	Constructor any
}

// ClassOf wraps a constructor func in a Class named after the func.
func ClassOf(constructor any) Class {
	name := ""
	if v := reflect.ValueOf(constructor); v.Kind() == reflect.Func {
		if fn := runtime.FuncForPC(v.Pointer()); fn != nil {
			name = fn.Name()
		}
	}
	return Class{Name: name, Constructor: constructor}
}

// Validate checks that the constructor has a supported signature.
func (c Class) Validate() error {
	if c.Constructor == nil {
		return fmt.Errorf("class '%v' has no constructor", c.Name)
	}
	t := reflect.TypeOf(c.Constructor)
	if t.Kind() != reflect.Func {
		return fmt.Errorf("class '%v': constructor must be a func, got %v", c.Name, t)
	}
	if t.IsVariadic() {
		return fmt.Errorf("class '%v': variadic constructors are not supported", c.Name)
	}
	switch t.NumOut() {
	case 1:
	case 2:
		if t.Out(1) != errorType {
			return fmt.Errorf("class '%v': second result must be error", c.Name)
		}
	default:
		return fmt.Errorf("class '%v': constructor must return T or (T, error)", c.Name)
	}
	return nil
}

// ResultType returns the type the constructor produces.
func (c Class) ResultType() reflect.Type {
	return reflect.TypeOf(c.Constructor).Out(0)
}

// ParamTypes returns the constructor parameter types.
func (c Class) ParamTypes() []reflect.Type {
	t := reflect.TypeOf(c.Constructor)
	params := make([]reflect.Type, 0, t.NumIn())
	for i := 0; i < t.NumIn(); i++ {
		params = append(params, t.In(i))
	}
	return params
}

// ClassName returns a printable name for a class attribute value.
func ClassName(value any) string {
	switch v := value.(type) {
	case Class:
		return v.Name
	case *Class:
		return v.Name
	case string:
		return v
	}
	return ClassOf(value).Name
}

// AsClass converts a class attribute value into a Class.
func AsClass(value any) (Class, error) {
	var class Class
	switch v := value.(type) {
	case Class:
		class = v
	case *Class:
		if v == nil {
			return Class{}, errors.New("nil class")
		}
		class = *v
	default:
		class = ClassOf(value)
	}
	if err := class.Validate(); err != nil {
		return Class{}, err
	}
	return class, nil
}

// Catalog maps class names to constructors.
type Catalog struct {
	mu      sync.RWMutex
	classes map[string]Class
}

// NewCatalog creates a catalog holding classes.
func NewCatalog(classes ...Class) (*Catalog, error) {
	catalog := &Catalog{classes: make(map[string]Class)}
	for _, class := range classes {
		if err := catalog.Register(class); err != nil {
			return nil, err
		}
	}
	return catalog, nil
}

// Register adds class to the catalog.
func (c *Catalog) Register(class Class) error {
	if class.Name == "" {
		return errors.New("class name cannot be empty")
	}
	if err := class.Validate(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.classes[class.Name]; exists {
		return fmt.Errorf("class '%v' is already registered", class.Name)
	}
	c.classes[class.Name] = class
	return nil
}

// Lookup returns the class registered as name.
func (c *Catalog) Lookup(name string) (Class, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	class, ok := c.classes[name]
	return class, ok
}

// Names returns the registered class names sorted.
func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.classes))
	for name := range c.classes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
