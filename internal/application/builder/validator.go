package builder

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/janmbaco/go-webcontainer/internal/domain"
)

// DefaultPort is bound by a web container declaring neither a port nor connectors.
const DefaultPort = 8080

type nodeRule struct {
	parents  []domain.NodeKind // zero value stands for the root
	leaf     bool
	required []string
	allowed  []string
}

const rootKind domain.NodeKind = 0

var rules = map[domain.NodeKind]nodeRule{
	domain.KindContainer: {
		parents: []domain.NodeKind{rootKind, domain.KindContainer},
		allowed: []string{domain.AttrName},
	},
	domain.KindComponent: {
		parents: []domain.NodeKind{domain.KindContainer},
		leaf:    true,
		allowed: []string{domain.AttrKey, domain.AttrClass, domain.AttrInstance, domain.AttrName},
	},
	domain.KindWebContainer: {
		parents: []domain.NodeKind{rootKind, domain.KindContainer},
		allowed: []string{domain.AttrPort, domain.AttrName, domain.AttrTracing},
	},
	domain.KindConnector: {
		parents:  []domain.NodeKind{domain.KindWebContainer},
		leaf:     true,
		required: []string{domain.AttrPort},
		allowed: []string{
			domain.AttrHost, domain.AttrPort, domain.AttrCertFile, domain.AttrKeyFile, domain.AttrClientCAFiles,
			domain.AttrAutocertHosts, domain.AttrAutocertDir, domain.AttrH2C,
		},
	},
	domain.KindContext: {
		parents:  []domain.NodeKind{domain.KindWebContainer},
		required: []string{domain.AttrPath},
		allowed:  []string{domain.AttrPath, domain.AttrContextParams},
	},
	domain.KindServlet: {
		parents:  []domain.NodeKind{domain.KindContext},
		leaf:     true,
		required: []string{domain.AttrPath},
		allowed:  []string{domain.AttrPath, domain.AttrClass, domain.AttrInstance, domain.AttrInitParams},
	},
	domain.KindFilter: {
		parents:  []domain.NodeKind{domain.KindContext},
		leaf:     true,
		required: []string{domain.AttrPath},
		allowed:  []string{domain.AttrPath, domain.AttrClass, domain.AttrInstance, domain.AttrInitParams, domain.AttrDispatchers},
	},
	domain.KindListener: {
		parents: []domain.NodeKind{domain.KindContext},
		leaf:    true,
		allowed: []string{domain.AttrClass, domain.AttrInstance},
	},
	domain.KindStaticContent: {
		parents:  []domain.NodeKind{domain.KindContext},
		leaf:     true,
		required: []string{domain.AttrPath},
		allowed:  []string{domain.AttrPath, domain.AttrWelcomePage},
	},
	domain.KindWebApplication: {
		parents:  []domain.NodeKind{domain.KindWebContainer},
		leaf:     true,
		required: []string{domain.AttrArchive},
		allowed:  []string{domain.AttrPath, domain.AttrArchive},
	},
}

type bind struct {
	host string
	port int
	node *domain.Node
}

type validator struct {
	catalog *domain.Catalog
	binds   []bind
}

// Validate checks the nesting rules, the attributes and the binds of a topology tree.
func Validate(tree *domain.Node, catalog *domain.Catalog) error {
	if tree == nil {
		return &domain.TopologyError{ErrorType: domain.InvalidNesting, Message: "topology has no root node"}
	}
	v := &validator{catalog: catalog}
	return v.walk(tree, rootKind)
}

func (v *validator) walk(n *domain.Node, parent domain.NodeKind) error {
	if n == nil {
		return &domain.TopologyError{ErrorType: domain.InvalidNesting, Message: fmt.Sprintf("%v has a nil child", parent)}
	}
	rule, ok := rules[n.Kind]
	if !ok {
		return &domain.TopologyError{ErrorType: domain.InvalidNesting, Message: fmt.Sprintf("unknown node %v", n.Describe())}
	}
	if !slices.Contains(rule.parents, parent) {
		where := "the root"
		if parent != rootKind {
			where = "a " + parent.String() + " child"
		}
		return &domain.TopologyError{
			ErrorType: domain.InvalidNesting,
			Message:   fmt.Sprintf("%v cannot be %v", n.Describe(), where),
		}
	}
	if rule.leaf && len(n.Children) > 0 {
		return &domain.TopologyError{
			ErrorType: domain.InvalidNesting,
			Message:   fmt.Sprintf("%v cannot have children", n.Describe()),
		}
	}
	if err := v.attributes(n, rule); err != nil {
		return err
	}
	if n.Kind == domain.KindWebContainer {
		if err := v.binding(n); err != nil {
			return err
		}
	}
	for _, child := range n.Children {
		if err := v.walk(child, n.Kind); err != nil {
			return err
		}
	}
	return nil
}

func (v *validator) attributes(n *domain.Node, rule nodeRule) error {
	for key := range n.Attributes {
		if !slices.Contains(rule.allowed, key) {
			return &domain.TopologyError{
				ErrorType: domain.InvalidAttribute,
				Message:   fmt.Sprintf("%v does not accept attribute '%v'", n.Describe(), key),
			}
		}
	}
	for _, key := range rule.required {
		if !n.Has(key) {
			return missing(n, key)
		}
	}

	for _, key := range []string{domain.AttrPath, domain.AttrHost, domain.AttrName, domain.AttrWelcomePage, domain.AttrArchive,
		domain.AttrCertFile, domain.AttrKeyFile, domain.AttrAutocertDir} {
		if _, _, err := n.StringAttr(key); err != nil {
			return err
		}
	}
	for _, key := range []string{domain.AttrClientCAFiles, domain.AttrAutocertHosts} {
		if _, _, err := n.StringsAttr(key); err != nil {
			return err
		}
	}
	for _, key := range []string{domain.AttrH2C, domain.AttrTracing} {
		if _, _, err := n.BoolAttr(key); err != nil {
			return err
		}
	}
	for _, key := range []string{domain.AttrInitParams, domain.AttrContextParams} {
		if _, _, err := n.InitParamsAttr(key); err != nil {
			return err
		}
	}
	if port, ok, err := n.IntAttr(domain.AttrPort); err != nil {
		return err
	} else if ok && (port < 0 || port > 65535) {
		return &domain.TopologyError{
			ErrorType: domain.InvalidAttribute,
			Message:   fmt.Sprintf("%v: port %v must be between 0 and 65535", n.Describe(), port),
		}
	}
	if n.Kind == domain.KindFilter {
		if _, err := n.DispatchAttr(); err != nil {
			return err
		}
	}
	if n.Kind == domain.KindConnector {
		if err := connectorTLS(n); err != nil {
			return err
		}
	}
	if _, _, err := componentKey(n); err != nil {
		return err
	}

	switch n.Kind {
	case domain.KindComponent, domain.KindServlet, domain.KindFilter, domain.KindListener:
		return v.classOrInstance(n)
	}
	return nil
}

func (v *validator) classOrInstance(n *domain.Node) error {
	hasClass, hasInstance := n.Has(domain.AttrClass), n.Has(domain.AttrInstance)
	switch {
	case hasClass && hasInstance:
		return &domain.TopologyError{
			ErrorType: domain.InvalidAttribute,
			Message:   fmt.Sprintf("%v: attributes 'class' and 'instance' are mutually exclusive", n.Describe()),
		}
	case !hasClass && !hasInstance:
		return &domain.TopologyError{
			ErrorType: domain.MissingAttribute,
			Message:   fmt.Sprintf("%v requires a 'class' or an 'instance' attribute", n.Describe()),
		}
	case hasInstance:
		if n.Attributes[domain.AttrInstance] == nil {
			return &domain.TopologyError{
				ErrorType: domain.InvalidAttribute,
				Message:   fmt.Sprintf("%v: attribute 'instance' cannot be nil", n.Describe()),
			}
		}
		return nil
	}
	if name, isName := n.Attributes[domain.AttrClass].(string); isName {
		if v.catalog == nil {
			return nil
		}
		if _, found := v.catalog.Lookup(name); !found {
			return &domain.ResolutionError{Class: name, Message: "unknown class"}
		}
		return nil
	}
	if _, err := domain.AsClass(n.Attributes[domain.AttrClass]); err != nil {
		return &domain.TopologyError{
			ErrorType:     domain.InvalidAttribute,
			Message:       fmt.Sprintf("%v: invalid class: %v", n.Describe(), err),
			InternalError: err,
		}
	}
	return nil
}

// binding records the endpoints of a web container and rejects those already claimed.
func (v *validator) binding(n *domain.Node) error {
	var binds []bind
	for _, child := range n.Children {
		if child == nil || child.Kind != domain.KindConnector {
			continue
		}
		host, _, err := child.StringAttr(domain.AttrHost)
		if err != nil {
			return err
		}
		port, _, err := child.IntAttr(domain.AttrPort)
		if err != nil {
			return err
		}
		binds = append(binds, bind{host: host, port: port, node: child})
	}
	if len(binds) == 0 {
		port, ok, err := n.IntAttr(domain.AttrPort)
		if err != nil {
			return err
		}
		if !ok {
			port = DefaultPort
		}
		binds = append(binds, bind{port: port, node: n})
	}

	for _, b := range binds {
		if b.port == 0 {
			continue
		}
		for _, other := range v.binds {
			if other.port == b.port && (other.host == b.host || domain.IsWildcardHost(other.host) || domain.IsWildcardHost(b.host)) {
				return &domain.BindConflictError{
					Host:    b.host,
					Port:    b.port,
					Message: fmt.Sprintf("%v overlaps %v", b.node.Describe(), other.node.Describe()),
				}
			}
		}
		v.binds = append(v.binds, b)
	}
	return nil
}

func connectorTLS(n *domain.Node) error {
	certFile, _, _ := n.StringAttr(domain.AttrCertFile)
	keyFile, _, _ := n.StringAttr(domain.AttrKeyFile)
	if (certFile == "") != (keyFile == "") {
		return &domain.TopologyError{
			ErrorType: domain.MissingAttribute,
			Message:   fmt.Sprintf("%v: 'cert_file' and 'key_file' must be given together", n.Describe()),
		}
	}
	h2c, _, _ := n.BoolAttr(domain.AttrH2C)
	autocertHosts, _, _ := n.StringsAttr(domain.AttrAutocertHosts)
	if h2c && (certFile != "" || len(autocertHosts) > 0) {
		return &domain.TopologyError{
			ErrorType: domain.InvalidAttribute,
			Message:   fmt.Sprintf("%v: 'h2c' cannot be combined with TLS", n.Describe()),
		}
	}
	return nil
}

// componentKey returns the type a component is registered under.
// A key is either a reflect.Type or a pointer to the wanted type, as in new(T).
func componentKey(n *domain.Node) (reflect.Type, bool, error) {
	value, ok := n.Attributes[domain.AttrKey]
	if !ok {
		return nil, false, nil
	}
	switch key := value.(type) {
	case reflect.Type:
		if key == nil {
			break
		}
		return key, true, nil
	default:
		t := reflect.TypeOf(value)
		if t != nil && t.Kind() == reflect.Ptr {
			return t.Elem(), true, nil
		}
	}
	return nil, true, &domain.TopologyError{
		ErrorType: domain.InvalidAttribute,
		Message:   fmt.Sprintf("%v: attribute 'key' must be a reflect.Type or a pointer such as new(T), got %T", n.Describe(), value),
	}
}

func missing(n *domain.Node, key string) error {
	return &domain.TopologyError{
		ErrorType: domain.MissingAttribute,
		Message:   fmt.Sprintf("%v requires attribute '%v'", n.Describe(), key),
	}
}
