package algo

import (
	"testing"

	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
)

func finding(smell schema.SmellType, total int, file string) schema.Finding {
	return schema.Finding{SmellType: smell, Files: []string{file}, Severity: schema.Severity{Total: total}}
}

func TestRankFindings(t *testing.T) {
	findings := []schema.Finding{
		finding(schema.LongMethod, 12, "b.go"),
		finding(schema.GodTicket, 25, "z.go"),
		finding(schema.LargeClass, 12, "a.go"),
		finding(schema.LongMethod, 12, "a.go"),
		finding(schema.DeadCode, 6, "c.go"),
	}

	ranked := RankFindings(findings, 0)
	got := make([]string, 0, len(ranked))
	for _, f := range ranked {
		got = append(got, string(f.SmellType)+":"+f.FirstFile())
	}
	assert.Equal(t, []string{
		"GodTicket:z.go",
		"LargeClass:a.go",
		"LongMethod:a.go",
		"LongMethod:b.go",
		"DeadCode:c.go",
	}, got)

	assert.Len(t, RankFindings(findings, 2), 2)
	assert.Len(t, RankFindings(findings, 10), 5)
}

func TestSplitIdentifier(t *testing.T) {
	tests := []struct {
		in       string
		expected []string
	}{
		{"validateAndSave", []string{"validate", "and", "save"}},
		{"load_and_render", []string{"load", "and", "render"}},
		{"HTTPClient", []string{"http", "client"}},
		{"saveUserDTO", []string{"save", "user", "dto"}},
		{"fetch-from-sql", []string{"fetch", "from", "sql"}},
		{"parseV2Json", []string{"parse", "v", "2", "json"}},
		{"", nil},
		{"__", nil},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitIdentifier(tt.in))
		})
	}
}

func TestMatchTokens(t *testing.T) {
	banned := []string{"sql", "http", "json"}
	assert.Equal(t, []string{"sql"}, MatchTokens("findBySql", banned))
	assert.Equal(t, []string{"http", "json"}, MatchTokens("HTTPJsonResponse", banned))
	// Whole tokens only: "results" must not match "sql" or "rest".
	assert.Empty(t, MatchTokens("results", []string{"sql", "rest"}))
	assert.Empty(t, MatchTokens("User", banned))
}

func TestIsCompoundName(t *testing.T) {
	connectives := []string{"and", "or", "then"}
	assert.True(t, IsCompoundName("validateAndSave", connectives))
	assert.True(t, IsCompoundName("load_and_render", connectives))
	assert.True(t, IsCompoundName("fetchThenCache", connectives))
	assert.False(t, IsCompoundName("android", connectives))
	assert.False(t, IsCompoundName("orderTotal", connectives))
	assert.False(t, IsCompoundName("andThen", connectives))
	assert.False(t, IsCompoundName("save", connectives))
}

func TestJaccardDistance(t *testing.T) {
	assert.InDelta(t, 0.0, JaccardDistance([]string{"a", "b"}, []string{"b", "a"}), 1e-9)
	assert.InDelta(t, 1.0, JaccardDistance([]string{"a"}, []string{"b"}), 1e-9)
	assert.InDelta(t, 2.0/3.0, JaccardDistance([]string{"a", "b"}, []string{"b", "c"}), 1e-9)
	assert.InDelta(t, 1.0, JaccardDistance(nil, nil), 1e-9)
}

func TestClusterSingleLinkage(t *testing.T) {
	sets := [][]string{
		{"cart", "total"},       // 0
		{"profile", "avatar"},   // 1
		{"cart", "items"},       // 2
		{"total", "items"},      // 3
		{"avatar", "settings"},  // 4
		{"profile", "settings"}, // 5
		{},                      // 6
	}
	clusters := ClusterSingleLinkage(sets, 0.7)
	assert.Equal(t, [][]int{{0, 2, 3}, {1, 4, 5}, {6}}, clusters)

	// A tight threshold keeps every item apart.
	assert.Len(t, ClusterSingleLinkage(sets, 0.1), len(sets))
	assert.Empty(t, ClusterSingleLinkage(nil, 0.7))
}

func TestStronglyConnected(t *testing.T) {
	adj := map[string][]string{
		"Order":        {"OrderService"},
		"OrderService": {"Order", "Repo"},
		"Repo":         {},
		"Cart":         {"Cart"},
		"View":         {"Bloc"},
		"Bloc":         {"UseCase"},
		"UseCase":      {"View"},
	}
	assert.Equal(t, [][]string{
		{"Bloc", "UseCase", "View"},
		{"Cart"},
		{"Order", "OrderService"},
	}, StronglyConnected(adj))

	assert.Empty(t, StronglyConnected(map[string][]string{"A": {"B"}, "B": nil}))
}
