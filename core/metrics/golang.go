package metrics

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/huangsam/smellscan/schema"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
)

var goBuiltins = map[string]bool{
	"bool": true, "byte": true, "complex64": true, "complex128": true, "error": true,
	"float32": true, "float64": true, "int": true, "int8": true, "int16": true,
	"int32": true, "int64": true, "rune": true, "string": true, "uint": true,
	"uint8": true, "uint16": true, "uint32": true, "uint64": true, "uintptr": true,
	"any": true, "comparable": true, "context.Context": true,
}

var goNesting = map[string]bool{
	"if_statement":                true,
	"for_statement":               true,
	"expression_switch_statement": true,
	"type_switch_statement":       true,
	"select_statement":            true,
}

// goFrontend binds methods to the struct or interface named by their receiver.
type goFrontend struct{}

func (goFrontend) Language() string { return "go" }

func (goFrontend) Parse(ctx context.Context, path string, src []byte) ([]schema.Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(golang.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root)
	}

	f := &goFile{path: path, src: src, units: map[string]*schema.Unit{}}
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "import_declaration":
			f.collectImports(n)
		case "type_declaration":
			for _, spec := range namedChildren(n) {
				if spec.Type() == "type_spec" {
					f.typeSpec(spec)
				}
			}
		}
	}
	// Methods are bound after every type is known.
	for _, n := range namedChildren(root) {
		switch n.Type() {
		case "method_declaration":
			f.methodDecl(n)
		case "function_declaration":
			f.functionDecl(n)
		}
	}
	return f.result(), nil
}

// syntaxError describes the first syntax error in a tree.
func syntaxError(root *sitter.Node) error {
	if row := firstSyntaxError(root); row >= 0 {
		return fmt.Errorf("%w: syntax error at line %d", schema.ErrParse, row+1)
	}
	return fmt.Errorf("%w: syntax error", schema.ErrParse)
}

type goFile struct {
	path    string
	src     []byte
	imports []string
	units   map[string]*schema.Unit
	order   []string
}

func (f *goFile) unit(name string) *schema.Unit {
	if u, ok := f.units[name]; ok {
		return u
	}
	u := &schema.Unit{Name: name, Path: f.path}
	f.units[name] = u
	f.order = append(f.order, name)
	return u
}

func (f *goFile) result() []schema.Unit {
	out := make([]schema.Unit, 0, len(f.order))
	for _, name := range f.order {
		u := f.units[name]
		u.Imports = slices.Clone(f.imports)
		out = append(out, *u)
	}
	return out
}

func (f *goFile) collectImports(decl *sitter.Node) {
	walk(decl, func(n *sitter.Node) {
		if n.Type() != "import_spec" {
			return
		}
		raw := text(n.ChildByFieldName("path"), f.src)
		if p, err := strconv.Unquote(raw); err == nil {
			f.imports = addUnique(f.imports, p)
		}
	})
}

func (f *goFile) typeSpec(spec *sitter.Node) {
	name := text(spec.ChildByFieldName("name"), f.src)
	if name == "" {
		return
	}
	u := f.unit(name)
	u.Lines += lineSpan(spec)

	body := spec.ChildByFieldName("type")
	if body == nil {
		return
	}
	switch body.Type() {
	case "struct_type":
		walk(body, func(n *sitter.Node) {
			if n.Type() == "field_declaration" {
				f.fieldDecl(u, n)
			}
		})
	case "interface_type":
		walk(body, func(elem *sitter.Node) {
			if elem.Type() != "method_elem" && elem.Type() != "method_spec" {
				return
			}
			mname := text(elem.ChildByFieldName("name"), f.src)
			u.Methods = append(u.Methods, schema.Method{
				Name:    mname,
				Private: !isExportedName(mname),
				Lines:   lineSpan(elem),
				Params:  f.params(elem.ChildByFieldName("parameters")),
			})
		})
	}
}

func (f *goFile) fieldDecl(u *schema.Unit, decl *sitter.Node) {
	typ := decl.ChildByFieldName("type")
	typeName := cleanTypeName(text(typ, f.src), goBuiltins)
	names := 0
	for _, c := range namedChildren(decl) {
		if c.Type() == "field_identifier" {
			u.Fields = addUnique(u.Fields, text(c, f.src))
			names++
		}
	}
	if names == 0 && typeName != "" {
		// Embedded field, named after its type.
		u.Fields = addUnique(u.Fields, typeName[strings.LastIndex(typeName, ".")+1:])
	}
	u.References = addReference(u.References, schema.Reference{Target: typeName, Kind: schema.ImportEdge})
}

func (f *goFile) methodDecl(decl *sitter.Node) {
	recvName, recvType := "", ""
	for _, p := range namedChildren(decl.ChildByFieldName("receiver")) {
		if p.Type() != "parameter_declaration" {
			continue
		}
		recvName = text(p.ChildByFieldName("name"), f.src)
		recvType = cleanTypeName(text(p.ChildByFieldName("type"), f.src), nil)
	}
	if recvType == "" {
		f.functionDecl(decl)
		return
	}
	u := f.unit(recvType)
	f.addMethod(u, decl, recvName)
}

func (f *goFile) functionDecl(decl *sitter.Node) {
	u := f.unit(fileStem(f.path))
	f.addMethod(u, decl, "")
}

func (f *goFile) addMethod(u *schema.Unit, decl *sitter.Node, recvName string) {
	name := text(decl.ChildByFieldName("name"), f.src)
	body := decl.ChildByFieldName("body")
	m := schema.Method{
		Name:          name,
		Private:       !isExportedName(name),
		Lines:         lineSpan(decl),
		NestingDepth:  nestingDepth(body, goNesting),
		LogicalBlocks: logicalBlocks(body, f.src),
		Params:        f.params(decl.ChildByFieldName("parameters")),
	}

	paramTypes := map[string]string{}
	for _, p := range m.Params {
		if t := cleanTypeName(p.Type, goBuiltins); t != "" {
			u.References = addReference(u.References, schema.Reference{Target: t, Kind: schema.ImportEdge})
			if p.Name != "" {
				paramTypes[p.Name] = t
			}
		}
	}

	walk(body, func(n *sitter.Node) {
		if n.Type() != "selector_expression" {
			return
		}
		operand := n.ChildByFieldName("operand")
		if operand == nil || operand.Type() != "identifier" {
			return
		}
		owner := text(operand, f.src)
		field := text(n.ChildByFieldName("field"), f.src)
		call := isCallee(n)
		switch {
		case recvName != "" && owner == recvName:
			if !call {
				m.FieldsTouched = addUnique(m.FieldsTouched, field)
			}
		case paramTypes[owner] != "":
			kind := schema.FieldAccessEdge
			if call {
				kind = schema.CallEdge
			}
			u.References = addReference(u.References, schema.Reference{Target: paramTypes[owner], Kind: kind, Field: field})
		}
	})
	slices.Sort(m.FieldsTouched)

	u.Methods = append(u.Methods, m)
	u.Lines += m.Lines
}

// params reads a Go parameter list. Grouped names share one type.
func (f *goFile) params(list *sitter.Node) []schema.Param {
	var out []schema.Param
	for _, p := range namedChildren(list) {
		if p.Type() != "parameter_declaration" && p.Type() != "variadic_parameter_declaration" {
			continue
		}
		typ := text(p.ChildByFieldName("type"), f.src)
		if p.Type() == "variadic_parameter_declaration" {
			typ = "..." + typ
		}
		named := false
		for _, c := range namedChildren(p) {
			if c.Type() == "identifier" {
				out = append(out, schema.Param{Name: text(c, f.src), Type: typ})
				named = true
			}
		}
		if !named {
			out = append(out, schema.Param{Type: typ})
		}
	}
	return out
}

// isCallee reports whether n is the function part of a call expression.
func isCallee(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "call_expression" && sameNode(parent.ChildByFieldName("function"), n)
}
