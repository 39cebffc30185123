// Package agg runs the per-file phase of a scan: classification and unit extraction.
package agg

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/huangsam/smellscan/core/classify"
	"github.com/huangsam/smellscan/core/metrics"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// Result is the merged outcome of the per-file phase.
// Files and Units keep the order of the input ChangeSet.
type Result struct {
	Files    []schema.ClassifiedFile
	Units    []schema.Unit
	Warnings []schema.AnalysisWarning
}

// extract is swapped in tests to simulate slow frontends.
var extract = metrics.Extract

// fileOutcome is what one worker produces for one FileChange.
type fileOutcome struct {
	done     bool
	file     schema.ClassifiedFile
	units    []schema.Unit
	warnings []schema.AnalysisWarning
}

// FilterChanges drops the files that match an exclude pattern.
func FilterChanges(changes []schema.FileChange, excludes []string) []schema.FileChange {
	if len(excludes) == 0 {
		return changes
	}
	files := make([]schema.FileChange, 0, len(changes))
	for _, fc := range changes {
		if contract.ShouldIgnore(classify.Normalize(fc.Path), excludes) {
			continue
		}
		files = append(files, fc)
	}
	return files
}

// ProcessFiles classifies every file and extracts its units on a bounded worker pool.
//
// Each file gets its own deadline of cfg.FileTimeout. A file that runs past it
// contributes an Inconclusive placeholder and a TimeoutError warning. When ctx
// ends first the files finished so far are returned along with an error
// wrapping ErrTimeout.
func ProcessFiles(ctx context.Context, cfg *contract.Config, store contract.CacheStore, changes []schema.FileChange) (*Result, error) {
	classifier := classify.New(cfg.Rules)
	outcomes := make([]fileOutcome, len(changes))

	idxCh := make(chan int, len(changes))
	var wg sync.WaitGroup

	// Start worker pool
	for range max(1, min(cfg.Workers, len(changes))) {
		wg.Go(func() {
			for idx := range idxCh {
				if ctx.Err() != nil {
					continue // Drain without work
				}
				// Each goroutine writes to a unique index, which is safe.
				outcomes[idx] = processFile(ctx, cfg, classifier, store, changes[idx])
			}
		})
	}

	for i := range changes {
		idxCh <- i
	}
	close(idxCh)
	wg.Wait()

	result := &Result{}
	for _, o := range outcomes {
		if !o.done {
			continue
		}
		result.Files = append(result.Files, o.file)
		result.Units = append(result.Units, o.units...)
		result.Warnings = append(result.Warnings, o.warnings...)
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("%w: per-file phase stopped after %d of %d files: %v",
			schema.ErrTimeout, len(result.Files), len(changes), err)
	}
	return result, nil
}

// processFile runs classification and extraction for one file.
// The outcome is not marked done when ctx ended before the file finished.
func processFile(ctx context.Context, cfg *contract.Config, classifier *classify.Classifier, store contract.CacheStore, fc schema.FileChange) fileOutcome {
	var out fileOutcome

	layer, err := classifier.ClassifyFile(fc.Path)
	if err != nil {
		out.warnings = append(out.warnings, schema.NewWarning(fc.Path, err))
	}

	units, warnings, ok := extractUnits(ctx, cfg, store, fc)
	if !ok {
		return fileOutcome{}
	}
	for i := range units {
		units[i].Layer = layer
	}

	out.done = true
	out.units = units
	out.warnings = append(out.warnings, warnings...)
	out.file = schema.ClassifiedFile{
		Path:      fc.Path,
		Layer:     layer,
		Kind:      fc.Kind,
		LineCount: lineCount(fc),
		Test:      cfg.Rules.IsTestFile(fc.Path),
		Units:     len(units),
	}
	return out
}

// extractUnits consults the unit cache and falls back to metrics.Extract under a per-file deadline.
// ok is false only when the parent context ended.
func extractUnits(ctx context.Context, cfg *contract.Config, store contract.CacheStore, fc schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, bool) {
	key, cacheable := cacheKey(fc)
	if cacheable {
		if cached := checkCacheHit(store, key); cached != nil {
			return cached.Units, cached.Warnings, true
		}
	}

	fileCtx, cancel := ctx, context.CancelFunc(func() {})
	if cfg.FileTimeout > 0 {
		fileCtx, cancel = context.WithTimeout(ctx, cfg.FileTimeout)
	}
	defer cancel()

	start := time.Now()
	units, warnings, err := extract(fileCtx, fc)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil, false
		}
		contract.Logger().Warn("file extraction timed out",
			zap.String("path", fc.Path),
			zap.Duration("limit", cfg.FileTimeout),
			zap.Duration("elapsed", time.Since(start)))
		timeout := fmt.Errorf("%w: extracting %s exceeded %s", schema.ErrTimeout, fc.Path, cfg.FileTimeout)
		return []schema.Unit{metrics.Inconclusive(fc)}, []schema.AnalysisWarning{schema.NewWarning(fc.Path, timeout)}, true
	}

	if cacheable {
		storeUnits(store, key, schema.CachedUnits{Units: units, Warnings: warnings})
	}
	return units, warnings, true
}

// lineCount prefers the declared count and falls back to counting the snapshot.
func lineCount(fc schema.FileChange) int {
	if fc.LineCount > 0 || fc.Content == "" {
		return fc.LineCount
	}
	n := strings.Count(fc.Content, "\n")
	if !strings.HasSuffix(fc.Content, "\n") {
		n++
	}
	return n
}
