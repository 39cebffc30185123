// Package detect holds the smell detectors and runs them concurrently over one ChangeSet.
package detect

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/huangsam/smellscan/core/graph"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Input is everything a detector may read. It is shared read-only by all detectors.
type Input struct {
	ChangeSet schema.ChangeSet
	Files     []schema.ClassifiedFile
	Graph     *graph.Graph
	Feeds     schema.Feeds
}

// Detector finds one smell type.
type Detector interface {
	Type() schema.SmellType
	Detect(ctx context.Context, in *Input) ([]schema.Finding, error)
}

// Set is an explicit, ordered list of detectors built from one rule set.
type Set struct {
	detectors []Detector
}

// NewSet builds every detector in catalogue order, leaving out the skipped ones.
func NewSet(rules contract.Rules, skip []schema.SmellType) *Set {
	all := []Detector{
		&shotgunSurgery{limits: rules.Thresholds},
		&featureEnvy{limits: rules.Thresholds},
		&inappropriateIntimacy{riskFloor: max(rules.Thresholds.IntimacyRiskFloor, contract.DefaultIntimacyRiskFloor)},
		&leakyAbstraction{banned: rules.BannedKeywords},
		&divergentChange{clustering: rules.Clustering},
		&largeClass{limits: rules.Thresholds},
		&longMethod{limits: rules.Thresholds, connectives: rules.CompoundVerbs},
		&deadCode{},
		&godTicket{limits: rules.Thresholds},
		&incompleteTicket{phases: rules.PhaseMarkers},
		&ambiguousResponsibility{},
	}
	s := &Set{}
	for _, d := range all {
		if !slices.Contains(skip, d.Type()) {
			s.detectors = append(s.detectors, d)
		}
	}
	return s
}

// Types lists the smell types the set will run.
func (s *Set) Types() []schema.SmellType {
	out := make([]schema.SmellType, 0, len(s.detectors))
	for _, d := range s.detectors {
		out = append(out, d.Type())
	}
	return out
}

// Run executes every detector concurrently. Each detector writes to its own slot.
// When ctx ends early, the findings of the detectors that finished are returned
// together with an error wrapping ErrTimeout.
func (s *Set) Run(ctx context.Context, in *Input) ([]schema.Finding, error) {
	results := make([][]schema.Finding, len(s.detectors))
	done := make([]bool, len(s.detectors))

	g, gctx := errgroup.WithContext(ctx)
	for i, d := range s.detectors {
		g.Go(func() error {
			found, err := d.Detect(gctx, in)
			if err != nil {
				return fmt.Errorf("%s: %w", d.Type(), err)
			}
			results[i] = found
			done[i] = true
			return nil
		})
	}
	err := g.Wait()

	var findings []schema.Finding
	for i, ok := range done {
		if !ok {
			contract.Logger().Debug("detector did not finish", zap.String("smell", string(s.detectors[i].Type())))
			continue
		}
		findings = append(findings, results[i]...)
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return findings, fmt.Errorf("%w: %v", schema.ErrTimeout, err)
		}
		return findings, err
	}
	return findings, nil
}

// --- Shared helpers ---

// newFinding fills the fields every finding of a smell type shares.
func newFinding(smell schema.SmellType, unit string, files []string, evidence ...schema.Evidence) schema.Finding {
	info, _ := schema.LookupSmell(smell)
	return schema.Finding{
		Category:  info.Category,
		SmellType: smell,
		Unit:      unit,
		Files:     files,
		Area:      areaOf(files),
		Evidence:  evidence,
	}
}

// areaOf is the file for single-file findings and the common directory otherwise.
func areaOf(files []string) string {
	switch len(files) {
	case 0:
		return ""
	case 1:
		return files[0]
	}
	return schema.CommonDir(files)
}

// paths returns the paths of the ChangeSet files in input order.
func paths(files []schema.ClassifiedFile) []string {
	out := make([]string, 0, len(files))
	for _, f := range files {
		out = append(out, f.Path)
	}
	return out
}

// knownLayers returns the distinct classified layers of the files, outermost first.
// Unknown is reported through warnings and does not count as a layer.
func knownLayers(files []schema.ClassifiedFile) []schema.Layer {
	var layers []schema.Layer
	for _, f := range files {
		if f.Layer != schema.UnknownLayer && f.Layer != "" {
			layers = append(layers, f.Layer)
		}
	}
	return schema.DistinctLayers(layers)
}

// analyzable reports whether a unit can feed metric-dependent detectors.
func analyzable(u schema.Unit) bool {
	return !u.ParseError && !u.Inconclusive
}

func breach(kind string, value, limit float64, format string) schema.Evidence {
	return schema.Evidence{
		Kind:   kind,
		Detail: fmt.Sprintf(format, value, limit),
		Value:  value,
		Limit:  limit,
	}
}
