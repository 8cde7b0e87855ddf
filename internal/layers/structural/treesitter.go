//go:build cgo

package structural

import (
	"context"
	"path/filepath"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"

	"strata/internal/layers"
)

// extractor wraps a tree-sitter parser for multi-language structural
// lookup.
type extractor struct {
	parser *sitter.Parser
}

func newExtractor() *extractor {
	return &extractor{parser: sitter.NewParser()}
}

// langSpec binds a grammar to the node types that declare symbols in
// that language.
type langSpec struct {
	language  *sitter.Language
	declKinds map[string]layers.Kind
}

var langSpecs = map[string]langSpec{
	".go": {golang.GetLanguage(), map[string]layers.Kind{
		"function_declaration": layers.KindFunction,
		"method_declaration":   layers.KindMethod,
		"type_declaration":     layers.KindClass,
		"type_spec":            layers.KindClass,
		"const_declaration":    layers.KindVariable,
		"var_declaration":      layers.KindVariable,
	}},
	".js":  {javascript.GetLanguage(), jsDeclKinds},
	".jsx": {javascript.GetLanguage(), jsDeclKinds},
	".ts":  {typescript.GetLanguage(), tsDeclKinds},
	".tsx": {tsx.GetLanguage(), tsDeclKinds},
	".py": {python.GetLanguage(), map[string]layers.Kind{
		"function_definition": layers.KindFunction,
		"class_definition":    layers.KindClass,
	}},
	".rs": {rust.GetLanguage(), map[string]layers.Kind{
		"function_item": layers.KindFunction,
		"struct_item":   layers.KindClass,
		"enum_item":     layers.KindClass,
		"trait_item":    layers.KindInterface,
		"const_item":    layers.KindVariable,
		"static_item":   layers.KindVariable,
	}},
	".java": {java.GetLanguage(), map[string]layers.Kind{
		"method_declaration":    layers.KindMethod,
		"class_declaration":     layers.KindClass,
		"interface_declaration": layers.KindInterface,
		"field_declaration":     layers.KindProperty,
	}},
	".kt": {kotlin.GetLanguage(), map[string]layers.Kind{
		"function_declaration": layers.KindFunction,
		"class_declaration":    layers.KindClass,
		"object_declaration":   layers.KindClass,
		"property_declaration": layers.KindProperty,
	}},
}

var jsDeclKinds = map[string]layers.Kind{
	"function_declaration": layers.KindFunction,
	"method_definition":    layers.KindMethod,
	"class_declaration":    layers.KindClass,
	"variable_declarator":  layers.KindVariable,
}

var tsDeclKinds = map[string]layers.Kind{
	"function_declaration":   layers.KindFunction,
	"method_definition":      layers.KindMethod,
	"class_declaration":      layers.KindClass,
	"interface_declaration":  layers.KindInterface,
	"type_alias_declaration": layers.KindClass,
	"variable_declarator":    layers.KindVariable,
}

// identifierNodeTypes are the leaf node types that name things across
// the supported grammars.
var identifierNodeTypes = map[string]bool{
	"identifier":                    true,
	"field_identifier":              true,
	"type_identifier":               true,
	"property_identifier":           true,
	"shorthand_property_identifier": true,
	"simple_identifier":             true,
}

// declarations returns declaration nodes whose declared name matches
// identifier.
func (x *extractor) declarations(ctx context.Context, source []byte, path, identifier string) []symbolRef {
	spec, root, ok := x.parse(ctx, source, path)
	if !ok {
		return nil
	}

	var out []symbolRef
	walk(root, func(n *sitter.Node) {
		kind, isDecl := spec.declKinds[n.Type()]
		if !isDecl {
			return
		}
		nameNode := n.ChildByFieldName("name")
		if nameNode == nil {
			// Go const/var declarations nest specs; look one level in.
			for i := 0; i < int(n.NamedChildCount()); i++ {
				child := n.NamedChild(i)
				if nn := child.ChildByFieldName("name"); nn != nil && nn.Content(source) == identifier {
					nameNode = nn
					break
				}
			}
		}
		if nameNode == nil || nameNode.Content(source) != identifier {
			return
		}
		out = append(out, symbolRef{
			path:   path,
			line:   int(nameNode.StartPoint().Row),
			column: int(nameNode.StartPoint().Column),
			kind:   kind,
		})
	})
	return out
}

// occurrences returns every identifier node matching the name.
func (x *extractor) occurrences(ctx context.Context, source []byte, path, identifier string) []symbolRef {
	_, root, ok := x.parse(ctx, source, path)
	if !ok {
		return nil
	}

	var out []symbolRef
	walk(root, func(n *sitter.Node) {
		if !identifierNodeTypes[n.Type()] || n.Content(source) != identifier {
			return
		}
		out = append(out, symbolRef{
			path:   path,
			line:   int(n.StartPoint().Row),
			column: int(n.StartPoint().Column),
			kind:   layers.KindVariable,
		})
	})
	return out
}

func (x *extractor) parse(ctx context.Context, source []byte, path string) (langSpec, *sitter.Node, bool) {
	spec, ok := langSpecs[strings.ToLower(filepath.Ext(path))]
	if !ok {
		return langSpec{}, nil, false
	}
	x.parser.SetLanguage(spec.language)
	tree, err := x.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return langSpec{}, nil, false
	}
	return spec, tree.RootNode(), true
}

func walk(n *sitter.Node, visit func(*sitter.Node)) {
	visit(n)
	for i := 0; i < int(n.ChildCount()); i++ {
		walk(n.Child(i), visit)
	}
}
