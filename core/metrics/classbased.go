package metrics

import (
	"context"
	"slices"
	"strings"

	"github.com/huangsam/smellscan/schema"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// classGrammar describes a language whose units are classes with method bodies.
type classGrammar struct {
	name      string
	language  func() *sitter.Language
	classes   map[string]bool // node types declaring a unit
	methods   map[string]bool // node types declaring a method inside a class body
	functions map[string]bool // node types declaring a free function
	fields    map[string]bool // node types declaring a field inside a class body
	nesting   map[string]bool
	builtins  map[string]bool
	self      string // receiver keyword
	member    string // node type of obj.attr
	object    string // field name of obj in member
	property  string // field name of attr in member
	imports   func(n *sitter.Node, src []byte) []string
	params    func(list *sitter.Node, src []byte) []schema.Param
	fieldName func(n *sitter.Node, src []byte) string
	private   func(n *sitter.Node, name string, src []byte) bool
}

var pythonFrontend = &classGrammar{
	name:      "python",
	language:  python.GetLanguage,
	classes:   set("class_definition"),
	methods:   set("function_definition"),
	functions: set("function_definition"),
	fields:    set("expression_statement"),
	nesting:   set("if_statement", "for_statement", "while_statement", "try_statement", "with_statement", "match_statement"),
	builtins:  set("str", "int", "float", "bool", "bytes", "list", "dict", "set", "tuple", "object", "none", "any", "optional"),
	self:      "self",
	member:    "attribute",
	object:    "object",
	property:  "attribute",
	imports:   pythonImports,
	params:    pythonParams,
	fieldName: pythonClassField,
	private: func(_ *sitter.Node, name string, _ []byte) bool {
		return strings.HasPrefix(name, "_") && !strings.HasSuffix(name, "__")
	},
}

var typescriptFrontend = &classGrammar{
	name:      "typescript",
	language:  typescript.GetLanguage,
	classes:   set("class_declaration", "abstract_class_declaration", "interface_declaration"),
	methods:   set("method_definition", "method_signature", "abstract_method_signature"),
	functions: set("function_declaration", "generator_function_declaration"),
	fields:    set("public_field_definition", "property_signature"),
	nesting:   set("if_statement", "for_statement", "for_in_statement", "while_statement", "do_statement", "switch_statement", "try_statement"),
	builtins:  set("string", "number", "boolean", "any", "unknown", "void", "never", "object", "promise", "array", "record", "date"),
	self:      "this",
	member:    "member_expression",
	object:    "object",
	property:  "property",
	imports:   ecmaImports,
	params:    ecmaParams,
	fieldName: ecmaFieldName,
	private:   ecmaPrivate,
}

var javascriptFrontend = &classGrammar{
	name:      "javascript",
	language:  javascript.GetLanguage,
	classes:   set("class_declaration"),
	methods:   set("method_definition"),
	functions: set("function_declaration", "generator_function_declaration"),
	fields:    set("field_definition"),
	nesting:   typescriptFrontend.nesting,
	builtins:  typescriptFrontend.builtins,
	self:      "this",
	member:    "member_expression",
	object:    "object",
	property:  "property",
	imports:   ecmaImports,
	params:    ecmaParams,
	fieldName: ecmaFieldName,
	private:   ecmaPrivate,
}

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, it := range items {
		m[it] = true
	}
	return m
}

func (g *classGrammar) Language() string { return g.name }

func (g *classGrammar) Parse(ctx context.Context, path string, src []byte) ([]schema.Unit, error) {
	parser := sitter.NewParser()
	parser.SetLanguage(g.language())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	root := tree.RootNode()
	if root.HasError() {
		return nil, syntaxError(root)
	}

	var imports []string
	var units []*schema.Unit
	var free *schema.Unit

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		for _, c := range namedChildren(n) {
			switch {
			case g.classes[c.Type()]:
				units = append(units, g.class(c, path, src))
			case g.functions[c.Type()]:
				if free == nil {
					free = &schema.Unit{Name: fileStem(path), Path: path}
				}
				g.addMethod(free, c, src)
				free.Lines += lineSpan(c)
			default:
				imports = append(imports, g.imports(c, src)...)
				// Exports and decorators wrap the declarations they expose.
				switch c.Type() {
				case "export_statement", "decorated_definition":
					visit(c)
				}
			}
		}
	}
	visit(root)
	if free != nil {
		units = append(units, free)
	}

	out := make([]schema.Unit, 0, len(units))
	for _, u := range units {
		for _, imp := range imports {
			u.Imports = addUnique(u.Imports, imp)
		}
		out = append(out, *u)
	}
	return out, nil
}

func (g *classGrammar) class(n *sitter.Node, path string, src []byte) *schema.Unit {
	u := &schema.Unit{Name: text(n.ChildByFieldName("name"), src), Path: path, Lines: lineSpan(n)}
	body := n.ChildByFieldName("body")

	var visit func(parent *sitter.Node)
	visit = func(parent *sitter.Node) {
		for _, c := range namedChildren(parent) {
			switch {
			case g.methods[c.Type()]:
				g.addMethod(u, c, src)
			case g.fields[c.Type()]:
				u.Fields = addUnique(u.Fields, g.fieldName(c, src))
			case c.Type() == "decorated_definition" || c.Type() == "block":
				visit(c)
			}
		}
	}
	visit(body)

	// Attributes assigned through the receiver are fields too.
	walk(body, func(m *sitter.Node) {
		if m.Type() != "assignment" && m.Type() != "assignment_expression" {
			return
		}
		left := m.ChildByFieldName("left")
		if obj, prop, ok := g.memberParts(left, src); ok && obj == g.self {
			u.Fields = addUnique(u.Fields, prop)
		}
	})
	return u
}

func (g *classGrammar) memberParts(n *sitter.Node, src []byte) (string, string, bool) {
	if n == nil || n.Type() != g.member {
		return "", "", false
	}
	obj := n.ChildByFieldName(g.object)
	prop := n.ChildByFieldName(g.property)
	if obj == nil || prop == nil {
		return "", "", false
	}
	return text(obj, src), text(prop, src), true
}

func (g *classGrammar) addMethod(u *schema.Unit, decl *sitter.Node, src []byte) {
	name := text(decl.ChildByFieldName("name"), src)
	body := decl.ChildByFieldName("body")
	m := schema.Method{
		Name:          name,
		Private:       g.private(decl, name, src),
		Lines:         lineSpan(decl),
		NestingDepth:  nestingDepth(body, g.nesting),
		LogicalBlocks: logicalBlocks(body, src),
	}
	for _, p := range g.params(decl.ChildByFieldName("parameters"), src) {
		if p.Name == g.self || p.Name == "cls" {
			continue
		}
		m.Params = append(m.Params, p)
	}

	paramTypes := map[string]string{}
	for _, p := range m.Params {
		if t := cleanTypeName(p.Type, g.builtins); t != "" {
			u.References = addReference(u.References, schema.Reference{Target: t, Kind: schema.ImportEdge})
			paramTypes[p.Name] = t
		}
	}

	walk(body, func(n *sitter.Node) {
		obj, prop, ok := g.memberParts(n, src)
		if !ok {
			return
		}
		call := isCallee(n) || isPythonCallee(n)
		switch {
		case obj == g.self:
			if !call {
				m.FieldsTouched = addUnique(m.FieldsTouched, prop)
			}
		case paramTypes[obj] != "":
			kind := schema.FieldAccessEdge
			if call {
				kind = schema.CallEdge
			}
			u.References = addReference(u.References, schema.Reference{Target: paramTypes[obj], Kind: kind, Field: prop})
		}
	})
	slices.Sort(m.FieldsTouched)

	u.Methods = append(u.Methods, m)
}

// isPythonCallee reports whether n is the function of a Python call node.
func isPythonCallee(n *sitter.Node) bool {
	parent := n.Parent()
	return parent != nil && parent.Type() == "call" && sameNode(parent.ChildByFieldName("function"), n)
}

// --- Python ---

func pythonImports(n *sitter.Node, src []byte) []string {
	var out []string
	switch n.Type() {
	case "import_statement":
		for _, c := range namedChildren(n) {
			switch c.Type() {
			case "dotted_name":
				out = append(out, text(c, src))
			case "aliased_import":
				out = append(out, text(c.ChildByFieldName("name"), src))
			}
		}
	case "import_from_statement":
		out = append(out, text(n.ChildByFieldName("module_name"), src))
	}
	return out
}

func pythonParams(list *sitter.Node, src []byte) []schema.Param {
	var out []schema.Param
	for _, p := range namedChildren(list) {
		switch p.Type() {
		case "identifier":
			out = append(out, schema.Param{Name: text(p, src)})
		case "typed_parameter":
			name := ""
			for _, c := range namedChildren(p) {
				if c.Type() == "identifier" {
					name = text(c, src)
					break
				}
			}
			out = append(out, schema.Param{Name: name, Type: text(p.ChildByFieldName("type"), src)})
		case "default_parameter", "typed_default_parameter":
			out = append(out, schema.Param{
				Name: text(p.ChildByFieldName("name"), src),
				Type: text(p.ChildByFieldName("type"), src),
			})
		}
	}
	return out
}

// pythonClassField reads a class-level "name = value" or "name: type" statement.
func pythonClassField(n *sitter.Node, src []byte) string {
	for _, c := range namedChildren(n) {
		if c.Type() != "assignment" {
			continue
		}
		left := c.ChildByFieldName("left")
		if left != nil && left.Type() == "identifier" {
			return text(left, src)
		}
	}
	return ""
}

// --- TypeScript and JavaScript ---

func ecmaImports(n *sitter.Node, src []byte) []string {
	if n.Type() != "import_statement" {
		return nil
	}
	source := strings.Trim(text(n.ChildByFieldName("source"), src), "\"'`")
	if source == "" {
		return nil
	}
	return []string{source}
}

func ecmaParams(list *sitter.Node, src []byte) []schema.Param {
	var out []schema.Param
	for _, p := range namedChildren(list) {
		switch p.Type() {
		case "identifier":
			out = append(out, schema.Param{Name: text(p, src)})
		case "required_parameter", "optional_parameter":
			out = append(out, schema.Param{
				Name: text(p.ChildByFieldName("pattern"), src),
				Type: text(p.ChildByFieldName("type"), src),
			})
		case "assignment_pattern":
			out = append(out, schema.Param{Name: text(p.ChildByFieldName("left"), src)})
		}
	}
	return out
}

func ecmaFieldName(n *sitter.Node, src []byte) string {
	if name := n.ChildByFieldName("name"); name != nil {
		return strings.TrimPrefix(text(name, src), "#")
	}
	return strings.TrimPrefix(text(n.ChildByFieldName("property"), src), "#")
}

func ecmaPrivate(n *sitter.Node, name string, src []byte) bool {
	if strings.HasPrefix(name, "#") || strings.HasPrefix(name, "_") {
		return true
	}
	for _, c := range namedChildren(n) {
		if c.Type() == "accessibility_modifier" {
			mod := text(c, src)
			return mod == "private" || mod == "protected"
		}
	}
	return false
}
