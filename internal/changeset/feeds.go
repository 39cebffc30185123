package changeset

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/huangsam/smellscan/schema"
	"gopkg.in/yaml.v3"
)

// LoadFeeds reads the optional unused-symbol and coverage feeds. Empty paths are skipped.
func LoadFeeds(unusedPath, coveragePath string) (schema.Feeds, error) {
	var feeds schema.Feeds
	if unusedPath != "" {
		data, err := readSource(unusedPath)
		if err != nil {
			return feeds, err
		}
		if feeds.Unused, err = ParseUnusedFeed(data, FormatFor(unusedPath)); err != nil {
			return feeds, fmt.Errorf("%s: %w", unusedPath, err)
		}
	}
	if coveragePath != "" {
		data, err := readSource(coveragePath)
		if err != nil {
			return feeds, err
		}
		if feeds.Coverage, err = ParseCoverageFeed(data, FormatFor(coveragePath)); err != nil {
			return feeds, fmt.Errorf("%s: %w", coveragePath, err)
		}
	}
	return feeds, nil
}

// ParseUnusedFeed decodes a list of unused symbols.
func ParseUnusedFeed(data []byte, format Format) ([]schema.UnusedSymbol, error) {
	var out []schema.UnusedSymbol
	if err := decode(data, format, &out); err != nil {
		return nil, fmt.Errorf("%w: invalid unused feed: %v", schema.ErrConfig, err)
	}
	for i, s := range out {
		if s.Path == "" || s.Symbol == "" {
			return nil, fmt.Errorf("%w: unused feed entry %d needs path and symbol", schema.ErrConfig, i)
		}
	}
	return out, nil
}

// ParseCoverageFeed decodes coverage either as a list of entries or as a map
// from "path" or "path#Unit" to percent.
func ParseCoverageFeed(data []byte, format Format) ([]schema.CoverageEntry, error) {
	var entries []schema.CoverageEntry
	if err := decode(data, format, &entries); err != nil {
		var byKey map[string]float64
		if mapErr := decode(data, format, &byKey); mapErr != nil {
			return nil, fmt.Errorf("%w: invalid coverage feed: %v", schema.ErrConfig, err)
		}
		for _, key := range slices.Sorted(maps.Keys(byKey)) {
			path, unit, _ := strings.Cut(key, "#")
			entries = append(entries, schema.CoverageEntry{Path: path, Unit: unit, Percent: byKey[key]})
		}
	}
	for i, e := range entries {
		if e.Path == "" {
			return nil, fmt.Errorf("%w: coverage entry %d has no path", schema.ErrConfig, i)
		}
		if e.Percent < 0 || e.Percent > 100 {
			return nil, fmt.Errorf("%w: coverage for %s must be within 0-100 (received %.1f)", schema.ErrConfig, e.Path, e.Percent)
		}
	}
	return entries, nil
}

func decode(data []byte, format Format, v any) error {
	if format == YAMLFormat {
		return yaml.Unmarshal(data, v)
	}
	return json.Unmarshal(data, v)
}
