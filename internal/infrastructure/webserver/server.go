package webserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/janmbaco/go-webcontainer/internal/infrastructure/certificates"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"
)

// StopTimeout bounds the graceful shutdown performed by Stop.
const StopTimeout = 5 * time.Second

type serverState uint8

const (
	stateCreated serverState = iota
	stateRunning
	stateShutdown
	stateStopped
)

type connector struct {
	spec domain.ConnectorSpec
}

type endpoint struct {
	connector   *connector
	spec        domain.ConnectorSpec
	listener    net.Listener
	certManager *certificates.CertManager
	server      *http.Server
}

// Server implements domain.Server on net/http.
type Server struct {
	logger  domain.Logger
	catalog *domain.Catalog
	options domain.ServerOptions
	port    int

	mu         sync.RWMutex
	state      serverState
	connectors []*connector
	contexts   []*webContext
	endpoints  []*endpoint
	group      *errgroup.Group
}

// NewServer creates an unstarted server bound to port unless connectors are added.
func NewServer(port int, options domain.ServerOptions, logger domain.Logger, catalog *domain.Catalog) (*Server, error) {
	if err := validatePort(port); err != nil {
		return nil, err
	}
	return &Server{logger: logger, catalog: catalog, options: options, port: port}, nil
}

func (s *Server) AddConnector(spec domain.ConnectorSpec) (domain.ReleaseFunc, error) {
	if err := validatePort(spec.Port); err != nil {
		return nil, err
	}
	if spec.IsTLS() && spec.H2C {
		return nil, fmt.Errorf("connector %v cannot serve both TLS and h2c", domain.HostPort(spec.Host, spec.Port))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != stateCreated {
		return nil, errors.New("connectors cannot be added to a started server")
	}
	c := &connector{spec: spec}
	s.connectors = append(s.connectors, c)

	return func() error {
		s.mu.Lock()
		removed := false
		for i, existing := range s.connectors {
			if existing == c {
				s.connectors = append(s.connectors[:i], s.connectors[i+1:]...)
				removed = true
				break
			}
		}
		var closing *endpoint
		for i, ep := range s.endpoints {
			if ep.connector == c {
				closing = ep
				s.endpoints = append(s.endpoints[:i], s.endpoints[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		if !removed {
			return fmt.Errorf("connector %v is not registered", domain.HostPort(spec.Host, spec.Port))
		}
		if closing != nil {
			return closing.close()
		}
		return nil
	}, nil
}

func (s *Server) AddContext(path string, params domain.InitParams) (domain.Context, domain.ReleaseFunc, error) {
	c, release, err := s.addContext(path, params)
	if err != nil {
		return nil, nil, err
	}
	return c, release, nil
}

func (s *Server) addContext(path string, params domain.InitParams) (*webContext, domain.ReleaseFunc, error) {
	path, err := normalizeContextPath(path)
	if err != nil {
		return nil, nil, err
	}
	s.mu.Lock()
	for _, existing := range s.contexts {
		if existing.path == path {
			s.mu.Unlock()
			return nil, nil, fmt.Errorf("a context is already mounted at %v", path)
		}
	}
	if s.state == stateStopped {
		s.mu.Unlock()
		return nil, nil, errors.New("server is stopped")
	}
	c := newContext(path, params, s.logger)
	s.contexts = append(s.contexts, c)
	running := s.state == stateRunning
	s.mu.Unlock()

	if running {
		if err := c.initialize(); err != nil {
			c.destroy()
			s.removeContext(c)
			return nil, nil, err
		}
	}

	return c, func() error {
		if !s.removeContext(c) {
			return fmt.Errorf("context %v is not mounted", path)
		}
		c.destroy()
		return nil
	}, nil
}

func (s *Server) removeContext(c *webContext) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.contexts {
		if existing == c {
			s.contexts = append(s.contexts[:i], s.contexts[i+1:]...)
			return true
		}
	}
	return false
}

// Start binds every endpoint, initializes the contexts and serves.
func (s *Server) Start() error {
	s.mu.Lock()
	if s.state != stateCreated {
		s.mu.Unlock()
		return errors.New("server has already been started")
	}
	endpoints, err := s.bind()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.endpoints = endpoints
	contexts := append([]*webContext(nil), s.contexts...)
	s.mu.Unlock()

	for i, c := range contexts {
		if err := c.initialize(); err != nil {
			for j := i; j >= 0; j-- {
				contexts[j].destroy()
			}
			s.closeEndpoints()
			return &domain.StartError{Address: s.address(), Message: fmt.Sprintf("context %v failed to initialize", c.path), InternalError: err}
		}
	}

	s.mu.Lock()
	s.group = new(errgroup.Group)
	for _, ep := range s.endpoints {
		ep.server = s.newHTTPServer(ep)
		s.serve(ep)
	}
	s.state = stateRunning
	s.mu.Unlock()

	s.logger.Info(fmt.Sprintf("web server listening on %v", s.address()))
	return nil
}

// Shutdown stops serving; in-flight requests complete until ctx is done.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	if s.state != stateRunning {
		s.mu.Unlock()
		return nil
	}
	s.state = stateShutdown
	endpoints := append([]*endpoint(nil), s.endpoints...)
	group := s.group
	s.mu.Unlock()

	var errs []error
	for _, ep := range endpoints {
		if err := ep.server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown of %v: %w", ep.listener.Addr(), err))
		}
	}
	if err := group.Wait(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Stop shuts the server down, destroys the contexts still mounted and unbinds every endpoint.
func (s *Server) Stop() error {
	s.mu.RLock()
	state := s.state
	s.mu.RUnlock()
	if state == stateStopped {
		return nil
	}

	var errs []error
	if state == stateRunning {
		ctx, cancel := context.WithTimeout(context.Background(), StopTimeout)
		errs = append(errs, s.Shutdown(ctx))
		cancel()
	}

	s.mu.Lock()
	contexts := append([]*webContext(nil), s.contexts...)
	s.state = stateStopped
	s.mu.Unlock()
	for i := len(contexts) - 1; i >= 0; i-- {
		contexts[i].destroy()
	}
	errs = append(errs, s.closeEndpoints())
	return errors.Join(errs...)
}

func (s *Server) Addrs() []net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	addrs := make([]net.Addr, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		addrs = append(addrs, ep.listener.Addr())
	}
	return addrs
}

// ServeHTTP routes a request to the context with the longest matching path.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	var target *webContext
	var pathInContext string
	for _, c := range s.contexts {
		switch {
		case c.path == "/":
			if target == nil {
				target, pathInContext = c, r.URL.Path
			}
		case r.URL.Path == c.path:
			s.mu.RUnlock()
			location := c.path + "/"
			if r.URL.RawQuery != "" {
				location += "?" + r.URL.RawQuery
			}
			http.Redirect(w, r, location, http.StatusFound)
			return
		case strings.HasPrefix(r.URL.Path, c.path+"/"):
			if target == nil || len(c.path) > len(target.path) || target.path == "/" {
				target, pathInContext = c, r.URL.Path[len(c.path):]
			}
		}
	}
	s.mu.RUnlock()

	if target == nil {
		http.NotFound(w, r)
		return
	}
	target.handle(w, r, pathInContext, domain.DispatchRequest)
}

// bind opens a listener per connector, or one on the server port when there are none.
// Caller holds s.mu.
func (s *Server) bind() ([]*endpoint, error) {
	connectors := s.connectors
	if len(connectors) == 0 {
		connectors = []*connector{{spec: domain.ConnectorSpec{Port: s.port}}}
	}
	var bound []*endpoint
	fail := func(spec domain.ConnectorSpec, message string, err error) error {
		for _, ep := range bound {
			_ = ep.close()
		}
		return &domain.StartError{Address: domain.HostPort(spec.Host, spec.Port), Message: message, InternalError: err}
	}
	for _, c := range connectors {
		ep := &endpoint{connector: c, spec: c.spec}
		if c.spec.IsTLS() {
			certManager, err := certificates.NewConnectorCertManager(c.spec)
			if err != nil {
				return nil, fail(c.spec, "invalid TLS material", err)
			}
			ep.certManager = certManager
		}
		listener, err := net.Listen("tcp", domain.HostPort(c.spec.Host, c.spec.Port))
		if err != nil {
			return nil, fail(c.spec, "cannot bind", err)
		}
		ep.listener = listener
		bound = append(bound, ep)
	}
	return bound, nil
}

// newHTTPServer builds the http.Server of an endpoint. Caller holds s.mu.
func (s *Server) newHTTPServer(ep *endpoint) *http.Server {
	var handler http.Handler = s
	if s.options.Tracing {
		handler = otelhttp.NewHandler(handler, "webcontainer "+ep.listener.Addr().String())
	}
	server := &http.Server{
		ErrorLog:          s.logger.GetErrorLogger(),
		ReadHeaderTimeout: 30 * time.Second,
	}
	switch {
	case ep.certManager != nil:
		tlsConfig, err := ep.certManager.GetTLSConfig()
		if err != nil {
			s.logger.Error(fmt.Sprintf("TLS configuration of %v: %v", ep.listener.Addr(), err))
		}
		server.TLSConfig = tlsConfig
	default:
		if acme := s.acmeManager(); acme != nil {
			handler = acme.HTTPHandler(handler)
		}
		if ep.spec.H2C {
			handler = h2c.NewHandler(handler, &http2.Server{})
		}
	}
	server.Handler = handler
	return server
}

func (s *Server) acmeManager() *certificates.CertManager {
	for _, ep := range s.endpoints {
		if ep.certManager != nil && len(ep.spec.AutocertHosts) > 0 {
			return ep.certManager
		}
	}
	return nil
}

// serve runs the endpoint in the server errgroup. Caller holds s.mu.
func (s *Server) serve(ep *endpoint) {
	server, listener, useTLS := ep.server, ep.listener, ep.certManager != nil
	s.group.Go(func() error {
		var err error
		if useTLS {
			err = server.ServeTLS(listener, "", "")
		} else {
			err = server.Serve(listener)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error(fmt.Sprintf("web server on %v failed: %v", listener.Addr(), err))
			return err
		}
		return nil
	})
}

func (s *Server) closeEndpoints() error {
	s.mu.Lock()
	endpoints := s.endpoints
	s.endpoints = nil
	s.mu.Unlock()
	var errs []error
	for _, ep := range endpoints {
		errs = append(errs, ep.close())
	}
	return errors.Join(errs...)
}

func (s *Server) address() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.endpoints) == 0 {
		if len(s.connectors) > 0 {
			return domain.HostPort(s.connectors[0].spec.Host, s.connectors[0].spec.Port)
		}
		return domain.HostPort("", s.port)
	}
	addrs := make([]string, 0, len(s.endpoints))
	for _, ep := range s.endpoints {
		addrs = append(addrs, ep.listener.Addr().String())
	}
	return strings.Join(addrs, ", ")
}

func (ep *endpoint) close() error {
	var err error
	if ep.server != nil {
		err = ep.server.Close()
	} else {
		err = ep.listener.Close()
	}
	if err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

func validatePort(port int) error {
	if port < 0 || port > 65535 {
		return fmt.Errorf("port %v must be between 0 and 65535", port)
	}
	return nil
}
