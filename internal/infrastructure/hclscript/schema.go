package hclscript

import (
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/janmbaco/go-webcontainer/internal/domain"
	"github.com/zclconf/go-cty/cty"
)

type attrType uint8

const (
	attrString attrType = iota
	attrInt
	attrBool
	attrStrings
	attrParams
)

func (t attrType) ctyType() cty.Type {
	switch t {
	case attrInt:
		return cty.Number
	case attrBool:
		return cty.Bool
	case attrStrings:
		return cty.List(cty.String)
	case attrParams:
		return cty.Map(cty.String)
	}
	return cty.String
}

// Block types of a topology file.
const (
	blockContainer      = "container"
	blockComponent      = "component"
	blockWebContainer   = "web_container"
	blockConnector      = "connector"
	blockContext        = "context"
	blockServlet        = "servlet"
	blockFilter         = "filter"
	blockListener       = "listener"
	blockStaticContent  = "static_content"
	blockWebApplication = "web_application"
	blockInitParam      = "init_param"
	blockContextParam   = "context_param"
)

// blockSpec describes how one block type maps onto a topology node.
type blockSpec struct {
	kind       domain.NodeKind
	label      string // attribute receiving the block label
	attributes map[string]attrType
	required   []string
	blocks     []string
	params     string // param block type and the attribute it fills
	paramsAttr string
}

var specs = map[string]blockSpec{
	blockContainer: {
		kind:       domain.KindContainer,
		attributes: map[string]attrType{domain.AttrName: attrString},
		blocks:     []string{blockComponent, blockContainer, blockWebContainer},
	},
	blockComponent: {
		kind:       domain.KindComponent,
		attributes: map[string]attrType{domain.AttrClass: attrString, domain.AttrName: attrString},
		required:   []string{domain.AttrClass},
	},
	blockWebContainer: {
		kind: domain.KindWebContainer,
		attributes: map[string]attrType{
			domain.AttrPort:    attrInt,
			domain.AttrTracing: attrBool,
			domain.AttrName:    attrString,
		},
		blocks: []string{blockConnector, blockContext, blockWebApplication},
	},
	blockConnector: {
		kind: domain.KindConnector,
		attributes: map[string]attrType{
			domain.AttrHost:          attrString,
			domain.AttrPort:          attrInt,
			domain.AttrCertFile:      attrString,
			domain.AttrKeyFile:       attrString,
			domain.AttrClientCAFiles: attrStrings,
			domain.AttrAutocertHosts: attrStrings,
			domain.AttrAutocertDir:   attrString,
			domain.AttrH2C:           attrBool,
		},
		required: []string{domain.AttrPort},
	},
	blockContext: {
		kind:       domain.KindContext,
		label:      domain.AttrPath,
		attributes: map[string]attrType{domain.AttrContextParams: attrParams},
		blocks:     []string{blockServlet, blockFilter, blockListener, blockStaticContent},
		params:     blockContextParam,
		paramsAttr: domain.AttrContextParams,
	},
	blockServlet: {
		kind:       domain.KindServlet,
		label:      domain.AttrPath,
		attributes: map[string]attrType{domain.AttrClass: attrString, domain.AttrInitParams: attrParams},
		required:   []string{domain.AttrClass},
		params:     blockInitParam,
		paramsAttr: domain.AttrInitParams,
	},
	blockFilter: {
		kind:  domain.KindFilter,
		label: domain.AttrPath,
		attributes: map[string]attrType{
			domain.AttrClass:       attrString,
			domain.AttrInitParams:  attrParams,
			domain.AttrDispatchers: attrStrings,
		},
		required:   []string{domain.AttrClass},
		params:     blockInitParam,
		paramsAttr: domain.AttrInitParams,
	},
	blockListener: {
		kind:       domain.KindListener,
		attributes: map[string]attrType{domain.AttrClass: attrString},
		required:   []string{domain.AttrClass},
	},
	blockStaticContent: {
		kind:       domain.KindStaticContent,
		attributes: map[string]attrType{domain.AttrPath: attrString, domain.AttrWelcomePage: attrString},
		required:   []string{domain.AttrPath},
	},
	blockWebApplication: {
		kind:       domain.KindWebApplication,
		label:      domain.AttrPath,
		attributes: map[string]attrType{domain.AttrArchive: attrString},
		required:   []string{domain.AttrArchive},
	},
}

var paramSchema = &hcl.BodySchema{
	Attributes: []hcl.AttributeSchema{{Name: "value", Required: true}},
}

var rootSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{{Type: blockContainer}, {Type: blockWebContainer}},
}

func (s blockSpec) schema() *hcl.BodySchema {
	schema := &hcl.BodySchema{}
	for name := range s.attributes {
		schema.Attributes = append(schema.Attributes, hcl.AttributeSchema{Name: name, Required: slices.Contains(s.required, name)})
	}
	for _, block := range s.blocks {
		header := hcl.BlockHeaderSchema{Type: block}
		if specs[block].label != "" {
			header.LabelNames = []string{specs[block].label}
		}
		schema.Blocks = append(schema.Blocks, header)
	}
	if s.params != "" {
		schema.Blocks = append(schema.Blocks, hcl.BlockHeaderSchema{Type: s.params, LabelNames: []string{"name"}})
	}
	return schema
}
