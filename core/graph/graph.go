// Package graph builds the layer-annotated dependency graph between units.
package graph

import (
	"path"
	"slices"
	"strings"

	"github.com/huangsam/smellscan/core/algo"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// Graph is the read-only dependency graph of one ChangeSet.
// Internal edges connect two units of the ChangeSet; external edges point outside of it.
type Graph struct {
	units    []schema.Unit
	keys     []string
	byName   map[string][]int
	edges    []schema.DependencyEdge
	external []schema.DependencyEdge
	adj      map[string][]string
	index    map[string]int
}

// Key identifies a unit inside a graph.
func Key(u schema.Unit) string {
	return u.Path + "#" + u.Name
}

// Build resolves every import and reference of the units.
// Imports that match no unit become external edges; references that match no unit are dropped.
func Build(units []schema.Unit) *Graph {
	g := &Graph{
		units:  slices.Clone(units),
		byName: map[string][]int{},
		adj:    map[string][]string{},
		index:  map[string]int{},
	}
	for i, u := range g.units {
		k := Key(u)
		g.keys = append(g.keys, k)
		g.index[k] = i
		g.byName[u.Name] = append(g.byName[u.Name], i)
		g.adj[k] = nil
	}

	seen := map[schema.DependencyEdge]bool{}
	add := func(src, dst int, kind schema.EdgeKind, field string) {
		if src == dst {
			return
		}
		s, d := g.units[src], g.units[dst]
		e := schema.DependencyEdge{
			Source:      s.Name,
			Target:      d.Name,
			SourcePath:  s.Path,
			TargetPath:  d.Path,
			SourceLayer: s.Layer,
			TargetLayer: d.Layer,
			Kind:        kind,
			Field:       field,
		}
		// Unnamed field accesses are kept apart since nothing tells them from each other.
		distinct := kind == schema.FieldAccessEdge && field == ""
		if seen[e] && !distinct {
			return
		}
		seen[e] = true
		g.edges = append(g.edges, e)
		if !slices.Contains(g.adj[g.keys[src]], g.keys[dst]) {
			g.adj[g.keys[src]] = append(g.adj[g.keys[src]], g.keys[dst])
		}
	}

	for i, u := range g.units {
		imported := map[int]bool{}
		for _, imp := range u.Imports {
			targets := g.resolveImport(i, imp)
			if len(targets) == 0 {
				e := schema.DependencyEdge{
					Source:      u.Name,
					Target:      imp,
					SourcePath:  u.Path,
					SourceLayer: u.Layer,
					Kind:        schema.ImportEdge,
					External:    true,
				}
				if !seen[e] {
					seen[e] = true
					g.external = append(g.external, e)
				}
				continue
			}
			for _, t := range targets {
				imported[t] = true
				add(i, t, schema.ImportEdge, "")
			}
		}
		for _, ref := range u.References {
			t, ok := g.resolveFrom(i, ref.Target, imported)
			if !ok {
				contract.Logger().Debug("unresolved reference",
					zap.String("unit", u.Name), zap.String("target", ref.Target))
				continue
			}
			kind := ref.Kind
			if kind == "" {
				kind = schema.ImportEdge
			}
			add(i, t, kind, ref.Field)
		}
		for _, m := range u.Methods {
			for _, p := range m.Params {
				if t, ok := g.resolveFrom(i, typeName(p.Type), imported); ok {
					add(i, t, schema.ImportEdge, "")
				}
			}
		}
	}
	return g
}

// candidates finds units by exact name, then by the last segment of a qualified name.
func (g *Graph) candidates(name string) []int {
	if name == "" {
		return nil
	}
	if idx := g.byName[name]; len(idx) > 0 {
		return idx
	}
	if i := strings.LastIndexAny(name, "./"); i >= 0 && i < len(name)-1 {
		return g.byName[name[i+1:]]
	}
	return nil
}

// resolveFrom picks the unit a name refers to as seen from unit src.
// Among same-named units it prefers one src imports, then one in the directory of src,
// then the first one listed.
func (g *Graph) resolveFrom(src int, name string, imported map[int]bool) (int, bool) {
	idx := g.candidates(name)
	switch len(idx) {
	case 0:
		return 0, false
	case 1:
		return idx[0], true
	}
	for _, i := range idx {
		if imported[i] {
			return i, true
		}
	}
	dir := path.Dir(g.units[src].Path)
	for _, i := range idx {
		if path.Dir(g.units[i].Path) == dir {
			return i, true
		}
	}
	return idx[0], true
}

// resolveImport maps an import of unit src to units by unit name, file path suffix or package directory.
// Module-qualified imports are matched by their longest suffix of at least two segments.
func (g *Graph) resolveImport(src int, imp string) []int {
	if !strings.ContainsAny(imp, "/.") {
		if t, ok := g.resolveFrom(src, imp, nil); ok {
			return []int{t}
		}
	}
	norm := normalizeImport(imp)
	if norm == "" {
		return nil
	}
	for _, cand := range suffixes(norm) {
		if hits := g.matchPath(cand); len(hits) > 0 {
			return hits
		}
	}
	// Python style dotted modules.
	if !strings.Contains(norm, "/") && strings.Count(norm, ".") > 1 {
		return g.resolveImport(src, strings.ReplaceAll(norm, ".", "/"))
	}
	return nil
}

func (g *Graph) matchPath(suffix string) []int {
	var files, dirs []int
	for i, u := range g.units {
		p := u.Path
		noExt := strings.TrimSuffix(p, path.Ext(p))
		switch {
		case hasPathSuffix(p, suffix) || hasPathSuffix(noExt, suffix):
			files = append(files, i)
		case hasPathSuffix(path.Dir(p), suffix):
			dirs = append(dirs, i)
		}
	}
	if len(files) > 0 {
		return files
	}
	return dirs
}

// suffixes lists p followed by its shorter suffixes that keep at least two segments.
func suffixes(p string) []string {
	out := []string{p}
	parts := strings.Split(p, "/")
	for i := 1; len(parts)-i >= 2; i++ {
		out = append(out, strings.Join(parts[i:], "/"))
	}
	return out
}

// normalizeImport strips quoting, scheme prefixes and relative segments from an import.
func normalizeImport(imp string) string {
	s := strings.Trim(strings.TrimSpace(imp), "\"'`")
	s = strings.ReplaceAll(s, "\\", "/")
	if strings.HasPrefix(s, "package:") {
		s = strings.TrimPrefix(s, "package:")
		// package:app/domain/x.dart -> domain/x.dart
		if i := strings.Index(s, "/"); i >= 0 {
			s = s[i+1:]
		}
	}
	for strings.HasPrefix(s, "./") || strings.HasPrefix(s, "../") {
		s = strings.TrimPrefix(strings.TrimPrefix(s, "./"), "../")
	}
	return strings.Trim(s, "/")
}

func hasPathSuffix(p, suffix string) bool {
	return p == suffix || strings.HasSuffix(p, "/"+suffix)
}

// typeName reduces a parameter type to a bare name.
func typeName(t string) string {
	t = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(t), ":"))
	t = strings.TrimLeft(t, "*&[]. ")
	if i := strings.IndexAny(t, "[<?"); i > 0 {
		t = t[:i]
	}
	return t
}

// Units returns the units of the graph in input order.
func (g *Graph) Units() []schema.Unit {
	return g.units
}

// Edges returns every internal edge.
func (g *Graph) Edges() []schema.DependencyEdge {
	return g.edges
}

// External returns the edges whose target lies outside the ChangeSet.
// They are informational only.
func (g *Graph) External() []schema.DependencyEdge {
	return g.external
}

// Unit looks a unit up by its key.
func (g *Graph) Unit(key string) (schema.Unit, bool) {
	i, ok := g.index[key]
	if !ok {
		return schema.Unit{}, false
	}
	return g.units[i], true
}

// Cycles returns the dependency cycles among units, each as a sorted list of unit keys.
func (g *Graph) Cycles() [][]string {
	return algo.StronglyConnected(g.adj)
}
