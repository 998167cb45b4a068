package builder

import (
	"fmt"
	"time"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// DefaultShutdownTimeout bounds the graceful shutdown of a topology.
const DefaultShutdownTimeout = domain.DefaultShutdownTimeout

// Option configures a TopologyBuilder.
type Option func(*TopologyBuilder)

// WithShutdownTimeout bounds the time Stop waits for in-flight requests.
func WithShutdownTimeout(timeout time.Duration) Option {
	return func(b *TopologyBuilder) {
		if timeout > 0 {
			b.shutdownTimeout = timeout
		}
	}
}

// WithTracing enables request tracing on servers that do not set it themselves.
func WithTracing(enabled bool) Option {
	return func(b *TopologyBuilder) {
		b.tracing = enabled
	}
}

// WithCatalog resolves class attributes given by name.
func WithCatalog(catalog *domain.Catalog) Option {
	return func(b *TopologyBuilder) {
		b.catalog = catalog
	}
}

// TopologyBuilder turns a topology tree into running servers.
type TopologyBuilder struct {
	servers         domain.ServerFactory
	logger          domain.Logger
	catalog         *domain.Catalog
	shutdownTimeout time.Duration
	tracing         bool
}

// NewTopologyBuilder creates a builder creating servers through servers.
func NewTopologyBuilder(servers domain.ServerFactory, logger domain.Logger, options ...Option) *TopologyBuilder {
	b := &TopologyBuilder{
		servers:         servers,
		logger:          logger,
		shutdownTimeout: DefaultShutdownTimeout,
	}
	for _, option := range options {
		option(b)
	}
	return b
}

// Build assembles the tree and starts the resulting topology.
func (b *TopologyBuilder) Build(tree *domain.Node, scopes domain.ScopeFactory) (*Topology, error) {
	topology, err := b.Assemble(tree, scopes)
	if err != nil {
		return nil, err
	}
	if err := topology.Start(); err != nil {
		return nil, err
	}
	return topology, nil
}

// Assemble validates the tree and applies it without starting any server.
// Nothing is registered when validation fails; any later failure rolls back
// what was registered, newest first.
func (b *TopologyBuilder) Assemble(tree *domain.Node, scopes domain.ScopeFactory) (*Topology, error) {
	if scopes == nil {
		return nil, &domain.BuildError{Cause: &domain.TopologyError{ErrorType: domain.InvalidState, Message: "a scope factory is required"}}
	}
	if err := Validate(tree, b.catalog); err != nil {
		b.logger.Error(fmt.Sprintf("invalid topology: %v", err))
		return nil, &domain.BuildError{Cause: err}
	}

	topology := newTopology(b.logger, b.shutdownTimeout)
	a := &assembly{builder: b, topology: topology, scopes: scopes}
	if failed, err := a.run(tree); err != nil {
		b.logger.Error(fmt.Sprintf("%v: %v", failed.Describe(), err))
		return nil, &domain.BuildError{Node: failed.Describe(), Cause: err, Rollback: topology.abort()}
	}

	topology.setState(domain.StateBuilt)
	return topology, nil
}

// frame carries the collaborators owning the node being applied.
type frame struct {
	scope   domain.Scope
	server  domain.Server
	context domain.Context
}

type assembly struct {
	builder  *TopologyBuilder
	topology *Topology
	scopes   domain.ScopeFactory
}

type registrar func(a *assembly, n *domain.Node, parent frame) (frame, error)

var registrars = map[domain.NodeKind]registrar{
	domain.KindContainer:      (*assembly).container,
	domain.KindComponent:      (*assembly).component,
	domain.KindWebContainer:   (*assembly).webContainer,
	domain.KindConnector:      (*assembly).connector,
	domain.KindContext:        (*assembly).context,
	domain.KindServlet:        (*assembly).servlet,
	domain.KindFilter:         (*assembly).filter,
	domain.KindListener:       (*assembly).listener,
	domain.KindStaticContent:  (*assembly).staticContent,
	domain.KindWebApplication: (*assembly).webApplication,
}

func (a *assembly) run(tree *domain.Node) (*domain.Node, error) {
	var top frame
	if tree.Kind == domain.KindWebContainer {
		implicit := domain.NewNode(domain.KindContainer, domain.Attributes{domain.AttrName: "implicit"})
		scope, err := a.rootScope(implicit)
		if err != nil {
			return implicit, err
		}
		top.scope = scope
	}
	return a.apply(tree, top)
}

// apply registers n and then its children, depth first in declaration order.
func (a *assembly) apply(n *domain.Node, parent frame) (*domain.Node, error) {
	current, err := registrars[n.Kind](a, n, parent)
	if err != nil {
		return n, err
	}
	for _, child := range n.Children {
		if failed, err := a.apply(child, current); err != nil {
			return failed, err
		}
	}
	return nil, nil
}

func (a *assembly) register(n *domain.Node, release domain.ReleaseFunc) {
	description := n.Describe()
	a.topology.registry.push(n, description, release)
	a.builder.logger.Info(fmt.Sprintf("register %v", description))
}

func (a *assembly) rootScope(n *domain.Node) (domain.Scope, error) {
	scope, err := a.scopes.NewScope()
	if err != nil {
		return nil, err
	}
	a.register(n, scope.Release)
	a.topology.mutex.Lock()
	a.topology.scope = scope
	a.topology.mutex.Unlock()
	return scope, nil
}

func (a *assembly) container(n *domain.Node, parent frame) (frame, error) {
	if parent.scope == nil {
		scope, err := a.rootScope(n)
		return frame{scope: scope}, err
	}
	scope, err := parent.scope.NewChildScope()
	if err != nil {
		return frame{}, err
	}
	a.register(n, scope.Release)
	return frame{scope: scope}, nil
}

// component registers into the owning scope, which releases it with itself.
func (a *assembly) component(n *domain.Node, parent frame) (frame, error) {
	key, _, err := componentKey(n)
	if err != nil {
		return parent, err
	}
	if instance, ok := n.Attributes[domain.AttrInstance]; ok {
		err = parent.scope.RegisterInstance(key, instance)
	} else {
		var class domain.Class
		if class, err = a.class(n); err == nil {
			err = parent.scope.RegisterClass(key, class)
		}
	}
	if err != nil {
		return parent, err
	}
	a.register(n, nil)
	return parent, nil
}

func (a *assembly) webContainer(n *domain.Node, parent frame) (frame, error) {
	port, ok, err := n.IntAttr(domain.AttrPort)
	if err != nil {
		return parent, err
	}
	if !ok {
		port = DefaultPort
	}
	options := domain.ServerOptions{Tracing: a.builder.tracing}
	if tracing, ok, _ := n.BoolAttr(domain.AttrTracing); ok {
		options.Tracing = tracing
	}
	server, err := a.builder.servers.NewServer(port, options)
	if err != nil {
		return parent, err
	}
	a.register(n, server.Stop)
	a.topology.mutex.Lock()
	a.topology.servers = append(a.topology.servers, server)
	a.topology.mutex.Unlock()
	return frame{scope: parent.scope, server: server}, nil
}

func (a *assembly) connector(n *domain.Node, parent frame) (frame, error) {
	spec := domain.ConnectorSpec{}
	spec.Host, _, _ = n.StringAttr(domain.AttrHost)
	spec.Port, _, _ = n.IntAttr(domain.AttrPort)
	spec.CertFile, _, _ = n.StringAttr(domain.AttrCertFile)
	spec.KeyFile, _, _ = n.StringAttr(domain.AttrKeyFile)
	spec.ClientCAFiles, _, _ = n.StringsAttr(domain.AttrClientCAFiles)
	spec.AutocertHosts, _, _ = n.StringsAttr(domain.AttrAutocertHosts)
	spec.AutocertDir, _, _ = n.StringAttr(domain.AttrAutocertDir)
	spec.H2C, _, _ = n.BoolAttr(domain.AttrH2C)
	release, err := parent.server.AddConnector(spec)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return parent, nil
}

func (a *assembly) context(n *domain.Node, parent frame) (frame, error) {
	path, _, _ := n.StringAttr(domain.AttrPath)
	params, _, _ := n.InitParamsAttr(domain.AttrContextParams)
	ctx, release, err := parent.server.AddContext(path, params)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return frame{scope: parent.scope, server: parent.server, context: ctx}, nil
}

func (a *assembly) servlet(n *domain.Node, parent frame) (frame, error) {
	servlet, err := a.instance(n, parent.scope)
	if err != nil {
		return parent, err
	}
	path, _, _ := n.StringAttr(domain.AttrPath)
	params, _, _ := n.InitParamsAttr(domain.AttrInitParams)
	release, err := parent.context.AddServlet(path, servlet, params)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return parent, nil
}

func (a *assembly) filter(n *domain.Node, parent frame) (frame, error) {
	filter, err := a.instance(n, parent.scope)
	if err != nil {
		return parent, err
	}
	dispatch, err := n.DispatchAttr()
	if err != nil {
		return parent, err
	}
	path, _, _ := n.StringAttr(domain.AttrPath)
	params, _, _ := n.InitParamsAttr(domain.AttrInitParams)
	release, err := parent.context.AddFilter(path, filter, dispatch, params)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return parent, nil
}

func (a *assembly) listener(n *domain.Node, parent frame) (frame, error) {
	instance, err := a.instance(n, parent.scope)
	if err != nil {
		return parent, err
	}
	listener, ok := instance.(domain.ContextListener)
	if !ok {
		return parent, &domain.TopologyError{
			ErrorType: domain.InvalidAttribute,
			Message:   fmt.Sprintf("%T is not a context listener", instance),
		}
	}
	release, err := parent.context.AddListener(listener)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return parent, nil
}

func (a *assembly) staticContent(n *domain.Node, parent frame) (frame, error) {
	root, _, _ := n.StringAttr(domain.AttrPath)
	welcomePage, _, _ := n.StringAttr(domain.AttrWelcomePage)
	release, err := parent.context.AddStaticHandler(root, welcomePage)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return parent, nil
}

func (a *assembly) webApplication(n *domain.Node, parent frame) (frame, error) {
	archive, _, _ := n.StringAttr(domain.AttrArchive)
	mountPath, ok, _ := n.StringAttr(domain.AttrPath)
	if !ok {
		mountPath = "/"
	}
	release, err := parent.server.DeployArchive(archive, mountPath, parent.scope)
	if err != nil {
		return parent, err
	}
	a.register(n, release)
	return parent, nil
}

// instance returns the instance attribute as is, or constructs the class through scope.
func (a *assembly) instance(n *domain.Node, scope domain.Scope) (any, error) {
	if instance, ok := n.Attributes[domain.AttrInstance]; ok {
		return instance, nil
	}
	class, err := a.class(n)
	if err != nil {
		return nil, err
	}
	return scope.Resolve(class)
}

func (a *assembly) class(n *domain.Node) (domain.Class, error) {
	value := n.Attributes[domain.AttrClass]
	if name, ok := value.(string); ok {
		if a.builder.catalog == nil {
			return domain.Class{}, &domain.ResolutionError{Class: name, Message: "no class catalog available"}
		}
		class, found := a.builder.catalog.Lookup(name)
		if !found {
			return domain.Class{}, &domain.ResolutionError{Class: name, Message: "unknown class"}
		}
		return class, nil
	}
	class, err := domain.AsClass(value)
	if err != nil {
		return domain.Class{}, &domain.ResolutionError{Class: domain.ClassName(value), Message: "invalid class", InternalError: err}
	}
	return class, nil
}
