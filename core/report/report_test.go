package report

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scored(smell schema.SmellType, file string, impact, risk, velocity int) schema.Finding {
	info, _ := schema.LookupSmell(smell)
	return schema.Finding{
		Category:  info.Category,
		SmellType: smell,
		Files:     []string{file},
		Area:      file,
		Evidence:  []schema.Evidence{{Kind: "test", Detail: string(smell)}},
		Severity:  schema.NewSeverity(impact, risk, velocity),
	}
}

func sampleReport(t *testing.T) *schema.Report {
	t.Helper()
	files := []schema.ClassifiedFile{
		{Path: "lib/presentation/pages/a.dart", Layer: schema.UILayer},
		{Path: "lib/domain/entities/b.dart", Layer: schema.DomainLayer},
		{Path: "scripts/c.dart", Layer: schema.UnknownLayer},
	}
	r, err := NewBuilder("T-1", "run-1").
		At(time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)).
		WithFiles(files).
		WithUnits(4).
		WithFindings([]schema.Finding{
			scored(schema.LongMethod, "lib/domain/entities/b.dart", 1, 5, 1),    // 14
			scored(schema.GodTicket, "lib/presentation/pages/a.dart", 5, 5, 1),  // 26
			scored(schema.LargeClass, "lib/domain/entities/b.dart", 1, 5, 1),    // 14
			scored(schema.DeadCode, "lib/presentation/pages/a.dart", 1, 1, 1),   // 6
			scored(schema.LargeClass, "lib/presentation/pages/a.dart", 1, 5, 1), // 14
		}).
		WithWarnings([]schema.AnalysisWarning{
			{Kind: schema.TimeoutWarning, Path: "lib/z.dart", Message: "timed out"},
			{Kind: schema.ClassificationAmbiguous, Path: "scripts/c.dart", Message: "no rule"},
			{Kind: schema.ParseErrorWarning, Path: "lib/y.dart", Message: "bad"},
		}).
		WithExternal([]schema.DependencyEdge{{Source: "A", Target: "package:flutter/material.dart", Kind: schema.ImportEdge, External: true}}).
		WithUntested([]schema.UntestedUnit{{Unit: "B", Path: "lib/domain/entities/b.dart", Layer: schema.DomainLayer}}).
		WithCoverage(&schema.CoverageSnapshot{UnitsCovered: 1, UnitsUncovered: 1, MeanPercent: 40}).
		Build()
	require.NoError(t, err)
	return r
}

func TestBuildRanksAndSummarizes(t *testing.T) {
	r := sampleReport(t)

	var order []string
	for _, f := range r.Findings {
		order = append(order, string(f.SmellType)+":"+f.FirstFile())
	}
	assert.Equal(t, []string{
		"GodTicket:lib/presentation/pages/a.dart",
		"LargeClass:lib/domain/entities/b.dart",
		"LargeClass:lib/presentation/pages/a.dart",
		"LongMethod:lib/domain/entities/b.dart",
		"DeadCode:lib/presentation/pages/a.dart",
	}, order)

	for _, f := range r.Findings {
		assert.Equal(t, schema.PatternFor(f.SmellType), f.RecommendedPattern)
		assert.NotEmpty(t, f.RecommendedPattern)
	}

	assert.Equal(t, schema.Summary{
		HighCount:             1,
		MediumCount:           3,
		LowCount:              1,
		UnclassifiedFileCount: 1,
		ParseErrorCount:       1,
		TimeoutCount:          1,
		TotalFiles:            3,
		TotalUnits:            4,
		ExternalEdgeCount:     1,
	}, r.Summary)
	assert.True(t, r.HasHigh())

	assert.Equal(t, schema.ClassificationAmbiguous, r.Warnings[0].Kind)
	assert.Equal(t, schema.TimeoutWarning, r.Warnings[2].Kind)
	require.Len(t, r.ExternalDependencies, 1)
	assert.Equal(t, "package:flutter/material.dart", r.ExternalDependencies[0].Target)
}

func TestBuildRecomputesSeverity(t *testing.T) {
	f := scored(schema.LongMethod, "a.go", 2, 2, 2)
	f.Severity.Total = 99
	f.Severity.Level = schema.HighLevel

	r, err := NewBuilder("T", "R").WithFindings([]schema.Finding{f}).Build()
	require.NoError(t, err)
	assert.Equal(t, 12, r.Findings[0].Severity.Total)
	assert.Equal(t, schema.MediumLevel, r.Findings[0].Severity.Level)
}

func TestBuildRefusesFindingsWithoutEvidence(t *testing.T) {
	f := scored(schema.LargeClass, "a.go", 1, 1, 1)
	f.Evidence = nil

	_, err := NewBuilder("T", "R").WithFindings([]schema.Finding{f}).Build()
	assert.ErrorIs(t, err, schema.ErrEmptyEvidence)
}

func TestBuildEmpty(t *testing.T) {
	r, err := NewBuilder("T", "R").MarkIncomplete(true).MarkIncomplete(false).Build()
	require.NoError(t, err)
	assert.NotNil(t, r.Findings)
	assert.NotNil(t, r.Warnings)
	assert.True(t, r.Incomplete)
	assert.False(t, r.HasHigh())
}

func TestReportJSONRoundTrip(t *testing.T) {
	r := sampleReport(t)

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back schema.Report
	require.NoError(t, json.Unmarshal(data, &back))

	if diff := cmp.Diff(*r, back, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("report changed after a JSON round trip (-want +got):\n%s", diff)
	}
}
