package metrics

import (
	"context"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/huangsam/smellscan/schema"
	sitter "github.com/smacker/go-tree-sitter"
)

// frontend turns one source file into units.
type frontend interface {
	Language() string
	Parse(ctx context.Context, path string, src []byte) ([]schema.Unit, error)
}

// frontends maps a file extension to the frontend that understands it.
var frontends = map[string]frontend{
	".go":  goFrontend{},
	".py":  pythonFrontend,
	".pyw": pythonFrontend,
	".ts":  typescriptFrontend,
	".js":  javascriptFrontend,
	".jsx": javascriptFrontend,
	".mjs": javascriptFrontend,
	".cjs": javascriptFrontend,
}

// frontendFor returns the frontend for a path, if one exists.
func frontendFor(path string) (frontend, bool) {
	f, ok := frontends[strings.ToLower(filepath.Ext(path))]
	return f, ok
}

// SupportedExtensions lists the extensions that can be parsed from content snapshots.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(frontends))
	for ext := range frontends {
		exts = append(exts, ext)
	}
	slices.Sort(exts)
	return exts
}

// separatorRe matches comments that open a logical block inside a method body.
var separatorRe = regexp.MustCompile(`(?i)^(?://+|#+|/\*+)\s*(?:[-=*]{3,}|#?(?:end)?region\b|step\s*\d+\b|section\b|\d+\.\s)`)

// text returns the source slice covered by a node.
func text(n *sitter.Node, src []byte) string {
	if n == nil {
		return ""
	}
	return string(src[n.StartByte():n.EndByte()])
}

// lineSpan is the number of source lines covered by a node.
func lineSpan(n *sitter.Node) int {
	return int(n.EndPoint().Row) - int(n.StartPoint().Row) + 1
}

// namedChildren returns the named children of a node.
func namedChildren(n *sitter.Node) []*sitter.Node {
	if n == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, n.NamedChildCount())
	for i := 0; i < int(n.NamedChildCount()); i++ {
		out = append(out, n.NamedChild(i))
	}
	return out
}

// walk visits every named descendant of n in source order.
func walk(n *sitter.Node, visit func(*sitter.Node)) {
	for _, c := range namedChildren(n) {
		visit(c)
		walk(c, visit)
	}
}

// sameNode reports whether two nodes cover the same source range.
func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil && a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte()
}

// nestingDepth returns the deepest chain of control statements below n.
// An if that forms the else branch of another if does not add a level.
func nestingDepth(n *sitter.Node, opens map[string]bool) int {
	best := 0
	for _, c := range namedChildren(n) {
		d := nestingDepth(c, opens)
		if opens[c.Type()] && !isElseIf(n, c) {
			d++
		}
		best = max(best, d)
	}
	return best
}

func isElseIf(parent, child *sitter.Node) bool {
	if child.Type() != "if_statement" {
		return false
	}
	switch parent.Type() {
	case "if_statement", "else_clause":
		return true
	}
	return false
}

// logicalBlocks counts the blocks of a body delimited by separator comments.
// A body without separators is a single block; code before the first separator opens one more.
func logicalBlocks(body *sitter.Node, src []byte) int {
	if body == nil {
		return 0
	}
	markers := 0
	firstMarker, firstCode := -1, -1
	walk(body, func(n *sitter.Node) {
		row := int(n.StartPoint().Row)
		switch n.Type() {
		case "comment":
			if separatorRe.MatchString(strings.TrimSpace(text(n, src))) {
				markers++
				if firstMarker < 0 || row < firstMarker {
					firstMarker = row
				}
			}
		case "block", "statement_list":
		default:
			if firstCode < 0 || row < firstCode {
				firstCode = row
			}
		}
	})
	if markers == 0 {
		return 1
	}
	if firstCode >= 0 && firstCode < firstMarker {
		return markers + 1
	}
	return markers
}

// isExportedName reports whether a Go-style name starts with an upper-case letter.
func isExportedName(name string) bool {
	r, _ := utf8.DecodeRuneInString(name)
	return unicode.IsUpper(r)
}

// fileStem is the unit name given to free functions of a file.
func fileStem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// cleanTypeName reduces a type expression to the named type it refers to.
// It returns an empty string for builtin, anonymous and map types.
func cleanTypeName(expr string, builtin map[string]bool) string {
	t := strings.TrimSpace(expr)
	t = strings.TrimPrefix(t, ":")
	t = strings.TrimSpace(t)
	for {
		trimmed := strings.TrimLeft(t, "*&")
		trimmed = strings.TrimPrefix(trimmed, "[]")
		trimmed = strings.TrimPrefix(trimmed, "...")
		trimmed = strings.TrimPrefix(trimmed, "chan ")
		trimmed = strings.TrimPrefix(trimmed, "<-chan ")
		if trimmed == t {
			break
		}
		t = strings.TrimSpace(trimmed)
	}
	if t == "" || strings.HasPrefix(t, "map[") || strings.ContainsAny(t, "{(|") {
		return ""
	}
	if i := strings.IndexAny(t, "[<"); i > 0 {
		t = t[:i]
	}
	t = strings.TrimSuffix(strings.TrimSpace(t), "?")
	if builtin[t] || builtin[strings.ToLower(t)] {
		return ""
	}
	return t
}

// addUnique appends s to list when it is not present yet.
func addUnique(list []string, s string) []string {
	if s == "" || slices.Contains(list, s) {
		return list
	}
	return append(list, s)
}

// addReference appends a reference when an identical one is not present yet.
func addReference(refs []schema.Reference, ref schema.Reference) []schema.Reference {
	if ref.Target == "" || slices.Contains(refs, ref) {
		return refs
	}
	return append(refs, ref)
}

// firstSyntaxError returns the first row holding an ERROR or missing node.
func firstSyntaxError(root *sitter.Node) int {
	row := -1
	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if row >= 0 || n == nil || !n.HasError() && n.Type() != "ERROR" && !n.IsMissing() {
			return
		}
		if n.Type() == "ERROR" || n.IsMissing() {
			row = int(n.StartPoint().Row)
			return
		}
		for i := 0; i < int(n.ChildCount()); i++ {
			visit(n.Child(i))
		}
	}
	visit(root)
	return row
}
