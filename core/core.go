// Package core runs a scan end to end: per-file phase, dependency graph,
// detectors, scoring and report generation.
package core

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/huangsam/smellscan/core/agg"
	"github.com/huangsam/smellscan/core/detect"
	"github.com/huangsam/smellscan/core/graph"
	"github.com/huangsam/smellscan/core/report"
	"github.com/huangsam/smellscan/core/score"
	"github.com/huangsam/smellscan/internal/changeset"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/internal/outwriter"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// ExecutorFunc defines the function signature for executing different commands.
type ExecutorFunc func(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error

// Process exit codes of the scan command.
const (
	ExitClean    = 0 // no findings, or --fail-on-high not set
	ExitFindings = 1 // Medium/Low findings only
	ExitHigh     = 2 // at least one High finding
	ExitError    = 3 // configuration or runtime error
)

// ExitStatusError carries a non-zero gate result out of ExecuteScan.
type ExitStatusError struct {
	Code int
}

func (e *ExitStatusError) Error() string {
	switch e.Code {
	case ExitHigh:
		return "scan found High priority smells"
	case ExitFindings:
		return "scan found Medium or Low priority smells"
	default:
		return fmt.Sprintf("scan exited with code %d", e.Code)
	}
}

// ExitCode maps a report to the process exit code. Without failOnHigh it is always ExitClean.
func ExitCode(r *schema.Report, failOnHigh bool) int {
	if !failOnHigh || r == nil {
		return ExitClean
	}
	switch {
	case r.HasHigh():
		return ExitHigh
	case len(r.Findings) > 0:
		return ExitFindings
	default:
		return ExitClean
	}
}

// ExecuteScan loads the configured ChangeSet, scans it and writes the report.
// It serves as the main entry point for the 'scan' command.
func ExecuteScan(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager) error {
	start := time.Now()

	cs, err := changeset.Load(ctx, cfg, contract.NewLocalGitClient())
	if err != nil {
		return err
	}
	feeds, err := changeset.LoadFeeds(cfg.UnusedFeedPath, cfg.CoverageFeedPath)
	if err != nil {
		return err
	}
	if !shouldSuppressHeader(ctx) {
		outwriter.LogScanHeader(os.Stderr, cfg, cs)
	}

	r, err := Scan(ctx, cfg, mgr, cs, feeds)
	if err != nil {
		return err
	}
	if err := outwriter.NewOutWriter().WriteReport(r, cfg, time.Since(start)); err != nil {
		return err
	}
	if code := ExitCode(r, cfg.FailOnHigh); code != ExitClean {
		return &ExitStatusError{Code: code}
	}
	return nil
}

// ExecuteSmells prints the smell catalogue with the active thresholds.
func ExecuteSmells(_ context.Context, cfg *contract.Config, _ contract.CacheManager) error {
	return outwriter.NewOutWriter().WriteSmells(cfg)
}

// Scan runs every phase over one ChangeSet and returns its report.
//
// The ChangeSet-level deadline (cfg.Timeout) covers the per-file phase and the
// detectors. When it expires the report keeps what finished and is marked
// Incomplete. Only configuration problems and broken findings are returned as errors.
func Scan(ctx context.Context, cfg *contract.Config, mgr contract.CacheManager, cs schema.ChangeSet, feeds schema.Feeds) (*schema.Report, error) {
	start := time.Now()
	runID := uuid.NewString()
	log := contract.Logger().With(zap.String("changeset", cs.ID), zap.String("run_id", runID))

	var units contract.CacheStore
	var history contract.HistoryStore
	if mgr != nil {
		units = mgr.GetUnitStore()
		if !shouldSkipHistory(ctx) {
			history = mgr.GetHistoryStore()
		}
	}
	scanID := beginScan(history, cfg, cs, runID, start)

	scanCtx := ctx
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		scanCtx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	// --- 1. Per-file phase ---
	incomplete := false
	var warnings []schema.AnalysisWarning
	scoped := cs
	scoped.Files = agg.FilterChanges(cs.Files, cfg.Excludes)

	phase := time.Now()
	res, err := agg.ProcessFiles(scanCtx, cfg, units, scoped.Files)
	if err != nil {
		if !errors.Is(err, schema.ErrTimeout) {
			return nil, err
		}
		incomplete = true
		warnings = append(warnings, schema.NewWarning("", err))
	}
	warnings = append(warnings, res.Warnings...)
	log.Debug("per-file phase finished",
		zap.Int("files", len(res.Files)),
		zap.Int("units", len(res.Units)),
		zap.Duration("elapsed", time.Since(phase)))

	// --- 2. Graph barrier ---
	phase = time.Now()
	g := graph.Build(res.Units)
	log.Debug("graph built",
		zap.Int("edges", len(g.Edges())),
		zap.Int("external", len(g.External())),
		zap.Duration("elapsed", time.Since(phase)))

	// --- 3. Detectors ---
	in := &detect.Input{ChangeSet: scoped, Files: res.Files, Graph: g, Feeds: feeds}
	var findings []schema.Finding
	if !incomplete {
		phase = time.Now()
		set := detect.NewSet(cfg.Rules, cfg.Skip)
		findings, err = set.Run(scanCtx, in)
		if err != nil {
			if !errors.Is(err, schema.ErrTimeout) {
				return nil, err
			}
			incomplete = true
			warnings = append(warnings, schema.NewWarning("", err))
		}
		log.Debug("detectors finished",
			zap.Int("detectors", len(set.Types())),
			zap.Int("findings", len(findings)),
			zap.Duration("elapsed", time.Since(phase)))
	}

	// --- 4. Scoring and report ---
	score.New(cfg.Rules, history, res.Files).Score(findings)
	r, err := report.NewBuilder(cs.ID, runID).
		At(start).
		WithFindings(findings).
		WithWarnings(warnings).
		WithFiles(res.Files).
		WithUnits(len(res.Units)).
		WithExternal(g.External()).
		WithUntested(detect.Untested(in)).
		WithCoverage(detect.Coverage(in)).
		MarkIncomplete(incomplete).
		Build()
	if err != nil {
		return nil, err
	}

	// --- 5. History ---
	endScan(history, scanID, r)

	log.Info("scan finished",
		zap.Int("findings", len(r.Findings)),
		zap.Int("high", r.Summary.HighCount),
		zap.Int("warnings", len(r.Warnings)),
		zap.Bool("incomplete", r.Incomplete),
		zap.Duration("elapsed", time.Since(start)))
	return r, nil
}

// beginScan opens a history record. A zero ID means history is off or failed.
func beginScan(history contract.HistoryStore, cfg *contract.Config, cs schema.ChangeSet, runID string, start time.Time) int64 {
	if history == nil {
		return 0
	}
	skip := make([]string, len(cfg.Skip))
	for i, s := range cfg.Skip {
		skip[i] = string(s)
	}
	scanID, err := history.BeginScan(start, map[string]any{
		"run_id":       runID,
		"changeset_id": cs.ID,
		"files":        len(cs.Files),
		"workers":      cfg.Workers,
		"skip":         skip,
		"timeout":      cfg.Timeout.String(),
	})
	if err != nil {
		contract.LogWarn("Scan history initialization failed", err)
		return 0
	}
	return scanID
}

// endScan records the findings and closes the history record.
// Findings are recorded after scoring so a run never counts itself as a recurrence.
func endScan(history contract.HistoryStore, scanID int64, r *schema.Report) {
	if history == nil || scanID == 0 {
		return
	}
	if err := history.RecordFindings(scanID, r.Findings); err != nil {
		contract.LogWarn("Failed to record findings", err)
	}
	run := schema.ScanRun{
		RunID:         r.RunID,
		ChangeSetID:   r.ChangeSetID,
		TotalFiles:    r.Summary.TotalFiles,
		TotalFindings: len(r.Findings),
		Incomplete:    r.Incomplete,
	}
	if err := history.EndScan(scanID, time.Now(), run); err != nil {
		contract.LogWarn("Failed to finalize scan history", err)
	}
}
