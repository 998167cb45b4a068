package domain

import (
	"fmt"
	"strings"
)

// InitParam is a single named initialization parameter.
type InitParam struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// InitParams keeps initialization parameters in declaration order.
type InitParams []InitParam

// Get returns the value of the first parameter called name.
func (p InitParams) Get(name string) (string, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return "", false
}

// Value returns the value of name or an empty string.
func (p InitParams) Value(name string) string {
	value, _ := p.Get(name)
	return value
}

// Names returns the parameter names in declaration order.
func (p InitParams) Names() []string {
	names := make([]string, 0, len(p))
	for _, param := range p {
		names = append(names, param.Name)
	}
	return names
}

// DispatchType is the set of request-dispatch modes a filter applies to.
type DispatchType uint8

const (
	DispatchRequest DispatchType = 1 << iota
	DispatchForward
	DispatchInclude
	DispatchError
)

// DefaultDispatch is applied to filters declared without dispatchers.
const DefaultDispatch = DispatchRequest

var dispatchNames = []struct {
	dispatch DispatchType
	name     string
}{
	{DispatchRequest, "REQUEST"},
	{DispatchForward, "FORWARD"},
	{DispatchInclude, "INCLUDE"},
	{DispatchError, "ERROR"},
}

// Has indicates if every mode of other is in d.
func (d DispatchType) Has(other DispatchType) bool {
	return d&other == other
}

func (d DispatchType) String() string {
	names := make([]string, 0, len(dispatchNames))
	for _, dn := range dispatchNames {
		if d.Has(dn.dispatch) {
			names = append(names, dn.name)
		}
	}
	return strings.Join(names, "|")
}

// ParseDispatchType parses names such as "REQUEST" or "forward" into a mask.
func ParseDispatchType(names ...string) (DispatchType, error) {
	var result DispatchType
	for _, name := range names {
		found := false
		for _, dn := range dispatchNames {
			if strings.EqualFold(strings.TrimSpace(name), dn.name) {
				result |= dn.dispatch
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown dispatch type '%v'", name)
		}
	}
	return result, nil
}
