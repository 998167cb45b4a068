package domain

import (
	"fmt"
	"sort"
	"strings"
)

// NodeKind identifies the type of a topology node.
type NodeKind uint8

const (
	KindContainer NodeKind = iota + 1
	KindComponent
	KindWebContainer
	KindConnector
	KindContext
	KindServlet
	KindFilter
	KindListener
	KindStaticContent
	KindWebApplication
)

var kindNames = map[NodeKind]string{
	KindContainer:      "container",
	KindComponent:      "component",
	KindWebContainer:   "web_container",
	KindConnector:      "connector",
	KindContext:        "context",
	KindServlet:        "servlet",
	KindFilter:         "filter",
	KindListener:       "listener",
	KindStaticContent:  "static_content",
	KindWebApplication: "web_application",
}

func (k NodeKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Attribute keys understood by the topology builder.
const (
	AttrPath          = "path"
	AttrPort          = "port"
	AttrHost          = "host"
	AttrClass         = "class"
	AttrInstance      = "instance"
	AttrKey           = "key"
	AttrName          = "name"
	AttrInitParams    = "init_params"
	AttrContextParams = "context_params"
	AttrDispatchers   = "dispatchers"
	AttrWelcomePage   = "welcome_page"
	AttrArchive       = "archive"
	AttrCertFile      = "cert_file"
	AttrKeyFile       = "key_file"
	AttrClientCAFiles = "client_ca_files"
	AttrAutocertHosts = "autocert_hosts"
	AttrAutocertDir   = "autocert_dir"
	AttrH2C           = "h2c"
	AttrTracing       = "tracing"
)

// Attributes holds the named values of a node.
type Attributes map[string]any

// Node is one element of a declarative topology tree.
type Node struct {
	Kind       NodeKind
	Attributes Attributes
	Children   []*Node
	// Source locates the node in its origin, e.g. "site.hcl:12,3".
	Source string
}

// NewNode creates a node of kind with the given attributes and children.
func NewNode(kind NodeKind, attributes Attributes, children ...*Node) *Node {
	if attributes == nil {
		attributes = Attributes{}
	}
	return &Node{Kind: kind, Attributes: attributes, Children: children}
}

// Has indicates if the attribute is present.
func (n *Node) Has(key string) bool {
	_, ok := n.Attributes[key]
	return ok
}

// StringAttr returns a string attribute.
func (n *Node) StringAttr(key string) (string, bool, error) {
	value, ok := n.Attributes[key]
	if !ok {
		return "", false, nil
	}
	s, isString := value.(string)
	if !isString {
		return "", true, n.invalid(key, "a string", value)
	}
	return s, true, nil
}

// IntAttr returns an integer attribute.
func (n *Node) IntAttr(key string) (int, bool, error) {
	value, ok := n.Attributes[key]
	if !ok {
		return 0, false, nil
	}
	switch v := value.(type) {
	case int:
		return v, true, nil
	case int32:
		return int(v), true, nil
	case int64:
		return int(v), true, nil
	case uint16:
		return int(v), true, nil
	case float64:
		if v == float64(int(v)) {
			return int(v), true, nil
		}
	}
	return 0, true, n.invalid(key, "an integer", value)
}

// BoolAttr returns a boolean attribute.
func (n *Node) BoolAttr(key string) (bool, bool, error) {
	value, ok := n.Attributes[key]
	if !ok {
		return false, false, nil
	}
	b, isBool := value.(bool)
	if !isBool {
		return false, true, n.invalid(key, "a boolean", value)
	}
	return b, true, nil
}

// StringsAttr returns a list of strings; a single string is a list of one.
func (n *Node) StringsAttr(key string) ([]string, bool, error) {
	value, ok := n.Attributes[key]
	if !ok {
		return nil, false, nil
	}
	switch v := value.(type) {
	case []string:
		return v, true, nil
	case string:
		return []string{v}, true, nil
	}
	return nil, true, n.invalid(key, "a list of strings", value)
}

// InitParamsAttr returns init parameters. Maps are ordered by name.
func (n *Node) InitParamsAttr(key string) (InitParams, bool, error) {
	value, ok := n.Attributes[key]
	if !ok {
		return nil, false, nil
	}
	switch v := value.(type) {
	case InitParams:
		return v, true, nil
	case []InitParam:
		return InitParams(v), true, nil
	case map[string]string:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		params := make(InitParams, 0, len(v))
		for _, name := range names {
			params = append(params, InitParam{Name: name, Value: v[name]})
		}
		return params, true, nil
	}
	return nil, true, n.invalid(key, "init params", value)
}

// DispatchAttr returns the dispatch mask of a filter, DefaultDispatch when absent.
func (n *Node) DispatchAttr() (DispatchType, error) {
	value, ok := n.Attributes[AttrDispatchers]
	if !ok {
		return DefaultDispatch, nil
	}
	switch v := value.(type) {
	case DispatchType:
		if v == 0 {
			return DefaultDispatch, nil
		}
		return v, nil
	case []string, string:
		names, _, err := n.StringsAttr(AttrDispatchers)
		if err != nil {
			return 0, err
		}
		if len(names) == 0 {
			return DefaultDispatch, nil
		}
		dispatch, err := ParseDispatchType(names...)
		if err != nil {
			return 0, &TopologyError{ErrorType: InvalidAttribute, Message: n.Describe() + ": " + err.Error(), InternalError: err}
		}
		return dispatch, nil
	}
	return 0, n.invalid(AttrDispatchers, "dispatch types", value)
}

// Describe returns a short human readable description of the node.
func (n *Node) Describe() string {
	var sb strings.Builder
	sb.WriteString(n.Kind.String())
	for _, key := range []string{AttrPath, AttrName, AttrArchive, AttrHost, AttrPort} {
		if value, ok := n.Attributes[key]; ok {
			fmt.Fprintf(&sb, " %v=%v", key, value)
		}
	}
	if class, ok := n.Attributes[AttrClass]; ok {
		fmt.Fprintf(&sb, " class=%v", ClassName(class))
	}
	if n.Source != "" {
		fmt.Fprintf(&sb, " (%v)", n.Source)
	}
	return sb.String()
}

func (n *Node) invalid(key string, expected string, value any) error {
	return &TopologyError{
		ErrorType: InvalidAttribute,
		Message:   fmt.Sprintf("%v: attribute '%v' must be %v, got %T", n.Describe(), key, expected, value),
	}
}
