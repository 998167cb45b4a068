package webserver

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

type servletHolder struct {
	mapping     mapping
	source      any
	handler     http.Handler
	params      domain.InitParams
	initialized bool
}

type filterHolder struct {
	mapping     mapping
	source      any
	filter      domain.Filter
	dispatch    domain.DispatchType
	params      domain.InitParams
	initialized bool
}

type listenerHolder struct {
	listener    domain.ContextListener
	initialized bool
}

// webContext implements domain.Context.
type webContext struct {
	path   string
	params domain.InitParams
	logger domain.Logger

	// mu guards the routing tables read while serving.
	mu        sync.RWMutex
	servlets  []*servletHolder
	filters   []*filterHolder
	listeners []*listenerHolder
	static    http.Handler

	// lifecycle serializes initialization, destruction and releases.
	lifecycle   sync.Mutex
	initialized bool
}

func newContext(path string, params domain.InitParams, logger domain.Logger) *webContext {
	return &webContext{path: path, params: params, logger: logger}
}

func (c *webContext) Path() string {
	return c.path
}

func (c *webContext) AddServlet(pattern string, servlet any, params domain.InitParams) (domain.ReleaseFunc, error) {
	m, err := parseMapping(pattern)
	if err != nil {
		return nil, err
	}
	handler, err := servletHandler(servlet)
	if err != nil {
		return nil, err
	}
	holder := &servletHolder{mapping: m, source: servlet, handler: handler, params: params}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.mu.Lock()
	for _, existing := range c.servlets {
		if existing.mapping.pattern == m.pattern {
			c.mu.Unlock()
			return nil, fmt.Errorf("context %v already maps a servlet to '%v'", c.path, m.pattern)
		}
	}
	c.servlets = append(c.servlets, holder)
	c.mu.Unlock()

	if c.initialized {
		if err := c.initHolder(holder.source, holder.handler, m.pattern, params); err != nil {
			c.removeServlet(holder)
			return nil, err
		}
		holder.initialized = true
	}

	return func() error {
		c.lifecycle.Lock()
		defer c.lifecycle.Unlock()
		if !c.removeServlet(holder) {
			return fmt.Errorf("servlet '%v' is not mapped in context %v", m.pattern, c.path)
		}
		if holder.initialized {
			destroyHolder(holder.source, holder.handler)
			holder.initialized = false
		}
		return nil
	}, nil
}

func (c *webContext) AddFilter(pattern string, filter any, dispatch domain.DispatchType, params domain.InitParams) (domain.ReleaseFunc, error) {
	m, err := parseMapping(pattern)
	if err != nil {
		return nil, err
	}
	f, err := filterOf(filter)
	if err != nil {
		return nil, err
	}
	if dispatch == 0 {
		dispatch = domain.DefaultDispatch
	}
	holder := &filterHolder{mapping: m, source: filter, filter: f, dispatch: dispatch, params: params}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.mu.Lock()
	c.filters = append(c.filters, holder)
	c.mu.Unlock()

	if c.initialized {
		if err := c.initHolder(holder.source, nil, m.pattern, params); err != nil {
			c.removeFilter(holder)
			return nil, err
		}
		holder.initialized = true
	}

	return func() error {
		c.lifecycle.Lock()
		defer c.lifecycle.Unlock()
		if !c.removeFilter(holder) {
			return fmt.Errorf("filter '%v' is not mapped in context %v", m.pattern, c.path)
		}
		if holder.initialized {
			destroyHolder(holder.source, nil)
			holder.initialized = false
		}
		return nil
	}, nil
}

func (c *webContext) AddListener(listener domain.ContextListener) (domain.ReleaseFunc, error) {
	if listener == nil {
		return nil, errors.New("listener cannot be nil")
	}
	holder := &listenerHolder{listener: listener}

	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	c.mu.Lock()
	c.listeners = append(c.listeners, holder)
	c.mu.Unlock()

	if c.initialized {
		listener.ContextInitialized(c.event())
		holder.initialized = true
	}

	return func() error {
		c.lifecycle.Lock()
		defer c.lifecycle.Unlock()
		c.mu.Lock()
		removed := false
		for i, existing := range c.listeners {
			if existing == holder {
				c.listeners = append(c.listeners[:i], c.listeners[i+1:]...)
				removed = true
				break
			}
		}
		c.mu.Unlock()
		if !removed {
			return fmt.Errorf("listener is not registered in context %v", c.path)
		}
		if holder.initialized {
			holder.listener.ContextDestroyed(c.event())
			holder.initialized = false
		}
		return nil
	}, nil
}

func (c *webContext) AddStaticHandler(rootPath string, welcomePage string) (domain.ReleaseFunc, error) {
	return c.addStatic(rootPath, welcomePage)
}

func (c *webContext) addStatic(rootPath string, welcomePage string, hidden ...string) (domain.ReleaseFunc, error) {
	handler, err := newStaticHandler(rootPath, welcomePage, hidden...)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.static != nil {
		return nil, fmt.Errorf("context %v already serves static content", c.path)
	}
	c.static = handler
	return func() error {
		c.mu.Lock()
		defer c.mu.Unlock()
		if c.static != handler {
			return fmt.Errorf("static content of context %v is not registered", c.path)
		}
		c.static = nil
		return nil
	}, nil
}

// initialize notifies listeners in registration order, then initializes filters and servlets.
func (c *webContext) initialize() error {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if c.initialized {
		return nil
	}
	c.mu.RLock()
	listeners := append([]*listenerHolder(nil), c.listeners...)
	filters := append([]*filterHolder(nil), c.filters...)
	servlets := append([]*servletHolder(nil), c.servlets...)
	c.mu.RUnlock()

	c.initialized = true
	event := c.event()
	for _, holder := range listeners {
		holder.listener.ContextInitialized(event)
		holder.initialized = true
	}
	for _, holder := range filters {
		if err := c.initHolder(holder.source, nil, holder.mapping.pattern, holder.params); err != nil {
			return fmt.Errorf("filter '%v' failed to initialize: %w", holder.mapping.pattern, err)
		}
		holder.initialized = true
	}
	for _, holder := range servlets {
		if err := c.initHolder(holder.source, holder.handler, holder.mapping.pattern, holder.params); err != nil {
			return fmt.Errorf("servlet '%v' failed to initialize: %w", holder.mapping.pattern, err)
		}
		holder.initialized = true
	}
	return nil
}

// destroy undoes initialize in reverse order for whatever is still registered.
func (c *webContext) destroy() {
	c.lifecycle.Lock()
	defer c.lifecycle.Unlock()
	if !c.initialized {
		return
	}
	c.mu.RLock()
	listeners := append([]*listenerHolder(nil), c.listeners...)
	filters := append([]*filterHolder(nil), c.filters...)
	servlets := append([]*servletHolder(nil), c.servlets...)
	c.mu.RUnlock()

	for i := len(servlets) - 1; i >= 0; i-- {
		if servlets[i].initialized {
			destroyHolder(servlets[i].source, servlets[i].handler)
			servlets[i].initialized = false
		}
	}
	for i := len(filters) - 1; i >= 0; i-- {
		if filters[i].initialized {
			destroyHolder(filters[i].source, nil)
			filters[i].initialized = false
		}
	}
	event := c.event()
	for i := len(listeners) - 1; i >= 0; i-- {
		if listeners[i].initialized {
			listeners[i].listener.ContextDestroyed(event)
			listeners[i].initialized = false
		}
	}
	c.initialized = false
}

func (c *webContext) event() domain.ContextEvent {
	return domain.ContextEvent{Path: c.path, Params: c.params}
}

func (c *webContext) initHolder(source any, handler http.Handler, pattern string, params domain.InitParams) error {
	initializer, ok := source.(domain.Initializer)
	if !ok {
		initializer, ok = handler.(domain.Initializer)
	}
	if !ok {
		return nil
	}
	return initializer.Init(domain.HandlerConfig{
		Path:          pattern,
		ContextPath:   c.path,
		InitParams:    params,
		ContextParams: c.params,
	})
}

func destroyHolder(source any, handler http.Handler) {
	if destroyer, ok := source.(domain.Destroyer); ok {
		destroyer.Destroy()
		return
	}
	if destroyer, ok := handler.(domain.Destroyer); ok {
		destroyer.Destroy()
	}
}

func (c *webContext) removeServlet(holder *servletHolder) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.servlets {
		if existing == holder {
			c.servlets = append(c.servlets[:i], c.servlets[i+1:]...)
			return true
		}
	}
	return false
}

func (c *webContext) removeFilter(holder *filterHolder) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.filters {
		if existing == holder {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return true
		}
	}
	return false
}

// handle serves a request whose path relative to the context is pathInContext.
func (c *webContext) handle(w http.ResponseWriter, r *http.Request, pathInContext string, mode domain.DispatchType) {
	if pathInContext == "" {
		pathInContext = "/"
	}
	c.mu.RLock()
	var servlet *servletHolder
	for _, holder := range c.servlets {
		if holder.mapping.matches(pathInContext) && (servlet == nil || holder.mapping.better(servlet.mapping)) {
			servlet = holder
		}
	}
	static := c.static
	c.mu.RUnlock()

	info := RequestInfo{ContextPath: c.path, ServletPath: pathInContext, Dispatch: mode, context: c}
	var target http.Handler
	switch {
	case servlet != nil:
		info.ServletPath, info.PathInfo = servlet.mapping.split(pathInContext)
		target = servlet.handler
	case static != nil:
		target = static
	default:
		info.Dispatch = domain.DispatchError
		target = http.HandlerFunc(http.NotFound)
	}

	c.chain(pathInContext, info.Dispatch, target).ServeHTTP(w, withInfo(r, info))
}

// chain wraps target with the filters mapped to path for mode, in registration order.
func (c *webContext) chain(path string, mode domain.DispatchType, target http.Handler) http.Handler {
	c.mu.RLock()
	var filters []domain.Filter
	for _, holder := range c.filters {
		if holder.dispatch.Has(mode) && holder.mapping.matches(path) {
			filters = append(filters, holder.filter)
		}
	}
	c.mu.RUnlock()

	next := target
	for i := len(filters) - 1; i >= 0; i-- {
		filter, chain := filters[i], next
		next = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			filter.DoFilter(w, r, chain)
		})
	}
	return next
}

func normalizeContextPath(path string) (string, error) {
	if strings.ContainsAny(path, "*?#") {
		return "", fmt.Errorf("invalid context path '%v'", path)
	}
	path = strings.TrimRight(path, "/")
	if path == "" {
		return "/", nil
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return path, nil
}
