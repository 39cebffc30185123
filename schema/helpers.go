package schema

import (
	"path"
	"slices"
	"strings"
)

// DistinctLayers returns the layers of the given slice without duplicates, outermost first.
// Unknown is kept and sorted last.
func DistinctLayers(layers []Layer) []Layer {
	seen := make(map[Layer]struct{}, len(layers))
	var out []Layer
	for _, l := range layers {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	slices.SortFunc(out, func(a, b Layer) int { return LayerRank(a) - LayerRank(b) })
	return out
}

// CommonDir returns the deepest directory shared by all paths, or "*" when there is none.
func CommonDir(paths []string) string {
	if len(paths) == 0 {
		return "*"
	}
	prefix := strings.Split(path.Dir(filepathToSlash(paths[0])), "/")
	for _, p := range paths[1:] {
		parts := strings.Split(path.Dir(filepathToSlash(p)), "/")
		n := 0
		for n < len(prefix) && n < len(parts) && prefix[n] == parts[n] {
			n++
		}
		prefix = prefix[:n]
	}
	dir := strings.Join(prefix, "/")
	if dir == "" || dir == "." {
		return "*"
	}
	return dir
}

// IsTestPath reports whether a path looks like a test file under the common conventions.
func IsTestPath(p string) bool {
	p = filepathToSlash(p)
	base := path.Base(p)
	switch {
	case strings.HasSuffix(base, "_test.go"),
		strings.HasSuffix(base, "_test.dart"),
		strings.HasSuffix(base, "_test.py"),
		strings.HasPrefix(base, "test_"),
		strings.Contains(base, ".test."),
		strings.Contains(base, ".spec."),
		strings.HasSuffix(strings.TrimSuffix(base, path.Ext(base)), "Test"),
		strings.HasSuffix(strings.TrimSuffix(base, path.Ext(base)), "Tests"):
		return true
	}
	for _, seg := range strings.Split(path.Dir(p), "/") {
		if seg == "test" || seg == "tests" || seg == "__tests__" || seg == "spec" {
			return true
		}
	}
	return false
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
