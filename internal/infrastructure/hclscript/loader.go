package hclscript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Loader reads topology files into node trees.
type Loader struct {
	catalog   *domain.Catalog
	variables map[string]cty.Value
}

// NewLoader creates a loader resolving class names through catalog.
// Expressions can read the process environment as env.NAME.
func NewLoader(catalog *domain.Catalog) *Loader {
	env := map[string]cty.Value{}
	for _, entry := range os.Environ() {
		if name, value, ok := strings.Cut(entry, "="); ok && name != "" {
			env[name] = cty.StringVal(value)
		}
	}
	return &Loader{catalog: catalog, variables: map[string]cty.Value{"env": objectOrEmpty(env)}}
}

// SetVariable exposes value to expressions under name.
func (l *Loader) SetVariable(name string, value any) error {
	impliedType, err := gocty.ImpliedType(value)
	if err != nil {
		return fmt.Errorf("variable %v: %w", name, err)
	}
	v, err := gocty.ToCtyValue(value, impliedType)
	if err != nil {
		return fmt.Errorf("variable %v: %w", name, err)
	}
	l.variables[name] = v
	return nil
}

// LoadFile parses the topology file at path.
func (l *Loader) LoadFile(path string) (*domain.Node, error) {
	if filepath.Ext(path) != ".hcl" {
		return nil, fmt.Errorf("topology file %s must have the .hcl extension", path)
	}
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read topology file %s: %w", path, err)
	}
	return l.Parse(src, path)
}

// Parse parses topology source. filename is used in diagnostics and node sources.
func (l *Loader) Parse(src []byte, filename string) (*domain.Node, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to parse HCL file %s: %w", filename, diags)
	}

	content, diags := file.Body.Content(rootSchema)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	if len(content.Blocks) != 1 {
		return nil, fmt.Errorf("topology file %s must declare exactly one container or web_container block, found %d", filename, len(content.Blocks))
	}

	ctx := &hcl.EvalContext{Variables: l.variables}
	root, diags := l.node(content.Blocks[0], ctx)
	if diags.HasErrors() {
		return nil, fmt.Errorf("failed to decode HCL file %s: %w", filename, diags)
	}
	return root, nil
}

func (l *Loader) node(block *hcl.Block, ctx *hcl.EvalContext) (*domain.Node, hcl.Diagnostics) {
	spec := specs[block.Type]
	content, diags := block.Body.Content(spec.schema())
	if diags.HasErrors() {
		return nil, diags
	}

	n := domain.NewNode(spec.kind, nil)
	n.Source = fmt.Sprintf("%v:%d,%d", block.DefRange.Filename, block.DefRange.Start.Line, block.DefRange.Start.Column)
	if spec.label != "" {
		n.Attributes[spec.label] = block.Labels[0]
	}

	for name, attr := range content.Attributes {
		value, attrDiags := decode(attr, spec.attributes[name], ctx)
		diags = append(diags, attrDiags...)
		if attrDiags.HasErrors() {
			continue
		}
		if name == domain.AttrClass && l.catalog != nil {
			class, found := l.catalog.Lookup(value.(string))
			if !found {
				diags = append(diags, &hcl.Diagnostic{
					Severity: hcl.DiagError,
					Summary:  "Unknown class",
					Detail:   fmt.Sprintf("Class %q is not in the catalog; known classes are %v.", value, strings.Join(l.catalog.Names(), ", ")),
					Subject:  attr.Expr.Range().Ptr(),
				})
				continue
			}
			value = class
		}
		n.Attributes[name] = value
	}

	var params domain.InitParams
	for _, child := range content.Blocks {
		if child.Type == spec.params {
			param, paramDiags := initParam(child, ctx)
			diags = append(diags, paramDiags...)
			params = append(params, param)
			continue
		}
		childNode, childDiags := l.node(child, ctx)
		diags = append(diags, childDiags...)
		if childNode != nil {
			n.Children = append(n.Children, childNode)
		}
	}
	if len(params) > 0 {
		if _, ok := n.Attributes[spec.paramsAttr]; ok {
			diags = append(diags, &hcl.Diagnostic{
				Severity: hcl.DiagError,
				Summary:  "Conflicting parameters",
				Detail:   fmt.Sprintf("Use either the %q attribute or %q blocks.", spec.paramsAttr, spec.params),
				Subject:  &block.DefRange,
			})
		}
		n.Attributes[spec.paramsAttr] = params
	}
	return n, diags
}

func initParam(block *hcl.Block, ctx *hcl.EvalContext) (domain.InitParam, hcl.Diagnostics) {
	param := domain.InitParam{Name: block.Labels[0]}
	content, diags := block.Body.Content(paramSchema)
	if diags.HasErrors() {
		return param, diags
	}
	value, valueDiags := decode(content.Attributes["value"], attrString, ctx)
	if !valueDiags.HasErrors() {
		param.Value = value.(string)
	}
	return param, append(diags, valueDiags...)
}

// decode evaluates attr and converts it to the Go type of t.
func decode(attr *hcl.Attribute, t attrType, ctx *hcl.EvalContext) (any, hcl.Diagnostics) {
	value, diags := attr.Expr.Value(ctx)
	if diags.HasErrors() {
		return nil, diags
	}
	invalid := func(err error) hcl.Diagnostics {
		return append(diags, &hcl.Diagnostic{
			Severity: hcl.DiagError,
			Summary:  "Invalid attribute value",
			Detail:   fmt.Sprintf("Attribute %q: %v.", attr.Name, err),
			Subject:  attr.Expr.Range().Ptr(),
		})
	}
	if value.IsNull() {
		return nil, invalid(fmt.Errorf("value must not be null"))
	}
	converted, err := convert.Convert(value, t.ctyType())
	if err != nil {
		return nil, invalid(err)
	}

	switch t {
	case attrInt:
		var port int
		if err := gocty.FromCtyValue(converted, &port); err != nil {
			return nil, invalid(err)
		}
		return port, diags
	case attrBool:
		var b bool
		if err := gocty.FromCtyValue(converted, &b); err != nil {
			return nil, invalid(err)
		}
		return b, diags
	case attrStrings:
		var list []string
		if err := gocty.FromCtyValue(converted, &list); err != nil {
			return nil, invalid(err)
		}
		return list, diags
	case attrParams:
		var params map[string]string
		if err := gocty.FromCtyValue(converted, &params); err != nil {
			return nil, invalid(err)
		}
		return params, diags
	}
	var s string
	if err := gocty.FromCtyValue(converted, &s); err != nil {
		return nil, invalid(err)
	}
	return s, diags
}

func objectOrEmpty(values map[string]cty.Value) cty.Value {
	if len(values) == 0 {
		return cty.EmptyObjectVal
	}
	return cty.ObjectVal(values)
}
