// Package report assembles the final, ranked report of a scan.
package report

import (
	"cmp"
	"errors"
	"slices"
	"time"

	"github.com/huangsam/smellscan/core/algo"
	"github.com/huangsam/smellscan/schema"
)

// Builder collects the pieces of a report. Build produces the immutable result.
type Builder struct {
	report   schema.Report
	findings []schema.Finding
	files    []schema.ClassifiedFile
	external []schema.DependencyEdge
}

// NewBuilder is the starting point for building a report.
func NewBuilder(changeSetID, runID string) *Builder {
	return &Builder{report: schema.Report{
		ChangeSetID: changeSetID,
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
	}}
}

// At sets the generation time.
func (b *Builder) At(t time.Time) *Builder {
	b.report.GeneratedAt = t.UTC()
	return b
}

// WithFindings adds scored findings.
func (b *Builder) WithFindings(findings []schema.Finding) *Builder {
	b.findings = append(b.findings, findings...)
	return b
}

// WithWarnings adds analysis warnings.
func (b *Builder) WithWarnings(warnings []schema.AnalysisWarning) *Builder {
	b.report.Warnings = append(b.report.Warnings, warnings...)
	return b
}

// WithFiles records the classified files of the ChangeSet.
func (b *Builder) WithFiles(files []schema.ClassifiedFile) *Builder {
	b.files = files
	return b
}

// WithUnits records how many units were analyzed.
func (b *Builder) WithUnits(n int) *Builder {
	b.report.Summary.TotalUnits = n
	return b
}

// WithExternal records the edges that left the ChangeSet.
func (b *Builder) WithExternal(edges []schema.DependencyEdge) *Builder {
	b.external = edges
	return b
}

// WithUntested records the zero-coverage units that are not dead.
func (b *Builder) WithUntested(units []schema.UntestedUnit) *Builder {
	b.report.UntestedCode = units
	return b
}

// WithCoverage records the coverage snapshot.
func (b *Builder) WithCoverage(c *schema.CoverageSnapshot) *Builder {
	b.report.Coverage = c
	return b
}

// MarkIncomplete flags a report cut short by the ChangeSet timeout.
func (b *Builder) MarkIncomplete(incomplete bool) *Builder {
	b.report.Incomplete = b.report.Incomplete || incomplete
	return b
}

// Build validates the findings, attaches refactor patterns, ranks them and fills the summary.
// A finding without evidence is a contract violation and fails the build.
func (b *Builder) Build() (*schema.Report, error) {
	var errs []error
	findings := make([]schema.Finding, 0, len(b.findings))
	for _, f := range b.findings {
		if err := f.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		f.RecommendedPattern = schema.PatternFor(f.SmellType)
		f.Severity.Recompute()
		findings = append(findings, f)
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	r := b.report
	r.Findings = algo.RankFindings(findings, 0)
	if r.Warnings == nil {
		r.Warnings = []schema.AnalysisWarning{}
	}
	slices.SortStableFunc(r.Warnings, func(a, c schema.AnalysisWarning) int {
		return cmp.Or(cmp.Compare(a.Kind, c.Kind), cmp.Compare(a.Path, c.Path))
	})
	for _, e := range b.external {
		r.ExternalDependencies = append(r.ExternalDependencies, schema.ExternalDependency{
			Source: e.Source,
			Target: e.Target,
			Kind:   e.Kind,
		})
	}
	r.Summary = summarize(r, b.files, len(b.external))
	return &r, nil
}

func summarize(r schema.Report, files []schema.ClassifiedFile, external int) schema.Summary {
	s := schema.Summary{
		TotalFiles:        len(files),
		TotalUnits:        r.Summary.TotalUnits,
		ExternalEdgeCount: external,
	}
	for _, f := range r.Findings {
		switch f.Severity.Level {
		case schema.HighLevel:
			s.HighCount++
		case schema.MediumLevel:
			s.MediumCount++
		default:
			s.LowCount++
		}
	}
	for _, f := range files {
		if f.Layer == schema.UnknownLayer || f.Layer == "" {
			s.UnclassifiedFileCount++
		}
	}
	for _, w := range r.Warnings {
		switch w.Kind {
		case schema.ParseErrorWarning:
			s.ParseErrorCount++
		case schema.TimeoutWarning:
			s.TimeoutCount++
		}
	}
	return s
}
