package domain

import (
	"context"
	"log"
	"net"
	"net/http"
	"reflect"

	"github.com/janmbaco/go-infrastructure/v2/logs"
)

// Logger interface for logging
type Logger interface {
	Info(msg string)
	Error(msg string)
	SetDir(dir string)
	SetConsoleLevel(level logs.LogLevel)
	SetFileLogLevel(level logs.LogLevel)
	GetErrorLogger() *log.Logger
	PrintError(level logs.LogLevel, err error)
}

// Scope is a DI container scope from which components are constructed and resolved.
type Scope interface {
	// RegisterInstance registers value under key. A nil key means the type of value.
	RegisterInstance(key reflect.Type, value any) error
	// RegisterClass registers class to be constructed on first resolution of key.
	// A nil key means the first result type of the class constructor.
	RegisterClass(key reflect.Type, class Class) error
	// Resolve constructs class injecting its constructor parameters from the scope.
	Resolve(class Class) (any, error)
	// Component returns the component registered under key.
	Component(key reflect.Type) (any, error)
	NewChildScope() (Scope, error)
	Release() error
}

// ScopeFactory creates the root scope of a topology.
type ScopeFactory interface {
	NewScope() (Scope, error)
}

// ReleaseFunc undoes a single registration made against a collaborator.
type ReleaseFunc func() error

// ServerOptions configures a server created by a ServerFactory.
type ServerOptions struct {
	Tracing bool
}

// ConnectorSpec describes a network endpoint a server listens on.
// The endpoint serves TLS when a key pair or autocert hosts are given.
type ConnectorSpec struct {
	Host          string
	Port          int
	CertFile      string
	KeyFile       string
	ClientCAFiles []string
	AutocertHosts []string
	AutocertDir   string
	H2C           bool
}

// IsTLS indicates if the connector serves TLS.
func (c ConnectorSpec) IsTLS() bool {
	return (c.CertFile != "" && c.KeyFile != "") || len(c.AutocertHosts) > 0
}

// ServerFactory creates unstarted web servers.
type ServerFactory interface {
	NewServer(port int, options ServerOptions) (Server, error)
}

// Server is an embedded web server hosting contexts.
type Server interface {
	AddConnector(spec ConnectorSpec) (ReleaseFunc, error)
	AddContext(path string, params InitParams) (Context, ReleaseFunc, error)
	DeployArchive(archivePath string, mountPath string, scope Scope) (ReleaseFunc, error)
	Start() error
	// Shutdown stops serving requests without destroying contexts.
	Shutdown(ctx context.Context) error
	// Stop shuts the server down, destroys what is left and unbinds every endpoint.
	Stop() error
	Addrs() []net.Addr
}

// Context is a URL-path-scoped grouping of handlers within a server.
type Context interface {
	Path() string
	AddServlet(path string, servlet any, params InitParams) (ReleaseFunc, error)
	AddFilter(path string, filter any, dispatch DispatchType, params InitParams) (ReleaseFunc, error)
	AddListener(listener ContextListener) (ReleaseFunc, error)
	AddStaticHandler(rootPath string, welcomePage string) (ReleaseFunc, error)
}

// Filter intercepts requests before they reach a servlet.
type Filter interface {
	DoFilter(w http.ResponseWriter, r *http.Request, chain http.Handler)
}

// FilterFunc is a func variant of the Filter interface.
type FilterFunc func(w http.ResponseWriter, r *http.Request, chain http.Handler)

// DoFilter implements the Filter interface.
func (f FilterFunc) DoFilter(w http.ResponseWriter, r *http.Request, chain http.Handler) {
	f(w, r, chain)
}

// ContextEvent is delivered to context listeners.
type ContextEvent struct {
	Path   string
	Params InitParams
}

// ContextListener receives context lifecycle callbacks.
type ContextListener interface {
	ContextInitialized(event ContextEvent)
	ContextDestroyed(event ContextEvent)
}

// HandlerConfig is handed to servlets and filters when their context initializes.
type HandlerConfig struct {
	Path          string
	ContextPath   string
	InitParams    InitParams
	ContextParams InitParams
}

// Initializer is implemented by servlets and filters that need their configuration.
type Initializer interface {
	Init(config HandlerConfig) error
}

// Destroyer is implemented by servlets and filters holding resources.
type Destroyer interface {
	Destroy()
}
