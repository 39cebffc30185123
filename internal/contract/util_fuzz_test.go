package contract

import (
	"strings"
	"testing"
)

// FuzzShouldIgnore fuzzes the ShouldIgnore function with random paths and exclude patterns.
func FuzzShouldIgnore(f *testing.F) {
	seeds := []struct {
		path     string
		excludes string // comma-separated
	}{
		{"lib/domain/entities/user.dart", "*.g.dart"},
		{"vendor/package/file.go", "vendor/"},
		{"lib/models/user.freezed.dart", "*.freezed.dart"},
		{"", ""},
		{"very/long/path/to/file.txt", "**/temp/**"},
	}
	for _, seed := range seeds {
		f.Add(seed.path, seed.excludes)
	}

	f.Fuzz(func(_ *testing.T, path string, excludesStr string) {
		var excludes []string
		for ex := range strings.SplitSeq(excludesStr, ",") {
			if trimmed := strings.TrimSpace(ex); trimmed != "" {
				excludes = append(excludes, trimmed)
			}
		}
		_ = ShouldIgnore(path, excludes)
	})
}

// FuzzParseWindowDuration makes sure arbitrary window strings never panic and never yield
// a non-positive window without an error.
func FuzzParseWindowDuration(f *testing.F) {
	for _, seed := range []string{"90 days", "12w", "720h", "0h", "3 months", "", "-5d"} {
		f.Add(seed)
	}
	f.Fuzz(func(t *testing.T, s string) {
		d, err := ParseWindowDuration(s)
		if err == nil && d <= 0 {
			t.Fatalf("ParseWindowDuration(%q) = %v without error", s, d)
		}
	})
}
