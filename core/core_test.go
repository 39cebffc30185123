package core

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/internal/iocache"
	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var layerDirs = map[schema.Layer]string{
	schema.UILayer:       "lib/presentation/pages",
	schema.BehaviorLayer: "lib/presentation/bloc",
	schema.UseCaseLayer:  "lib/application/use_cases",
	schema.DomainLayer:   "lib/domain/entities",
}

func testConfig() *contract.Config {
	return &contract.Config{
		Workers:     4,
		FileTimeout: contract.DefaultFileTimeout,
		Timeout:     contract.DefaultScanTimeout,
		Rules:       contract.DefaultRules(),
	}
}

func filesIn(layer schema.Layer, n int) []schema.FileChange {
	out := make([]schema.FileChange, 0, n)
	for i := range n {
		out = append(out, schema.FileChange{
			Path:      fmt.Sprintf("%s/%s_%d.dart", layerDirs[layer], layer, i),
			Kind:      schema.Modified,
			LineCount: 20,
		})
	}
	return out
}

// completeTicket passes every ticket-granularity check.
func completeTicket(files ...schema.FileChange) schema.ChangeSet {
	files = append(files, schema.FileChange{Path: "test/domain/entities/order_test.dart", Kind: schema.Added, LineCount: 10})
	return schema.ChangeSet{
		ID:                 "T-1",
		DeclaredLayer:      schema.DomainLayer,
		AcceptanceCriteria: "- totals are correct",
		PhaseMarkers:       []string{"design", "test", "implementation", "refactor-review"},
		Files:              files,
	}
}

func scan(t *testing.T, cs schema.ChangeSet) *schema.Report {
	t.Helper()
	r, err := Scan(context.Background(), testConfig(), nil, cs, schema.Feeds{})
	require.NoError(t, err)
	return r
}

func ofType(r *schema.Report, smell schema.SmellType) []schema.Finding {
	var out []schema.Finding
	for _, f := range r.Findings {
		if f.SmellType == smell {
			out = append(out, f)
		}
	}
	return out
}

func TestExitCode(t *testing.T) {
	high := &schema.Report{Findings: make([]schema.Finding, 2), Summary: schema.Summary{HighCount: 1, LowCount: 1}}
	low := &schema.Report{Findings: make([]schema.Finding, 1), Summary: schema.Summary{LowCount: 1}}
	clean := &schema.Report{}

	tests := []struct {
		name       string
		report     *schema.Report
		failOnHigh bool
		expected   int
	}{
		{"high gated", high, true, ExitHigh},
		{"low gated", low, true, ExitFindings},
		{"clean gated", clean, true, ExitClean},
		{"high not gated", high, false, ExitClean},
		{"nil report", nil, true, ExitClean},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExitCode(tt.report, tt.failOnHigh))
		})
	}
}

func TestScanScenarioShotgunAndGodTicket(t *testing.T) {
	var files []schema.FileChange
	for _, l := range []schema.Layer{schema.UILayer, schema.BehaviorLayer, schema.UseCaseLayer, schema.DomainLayer} {
		files = append(files, filesIn(l, 3)...)
	}
	cs := completeTicket()
	cs.Files = files
	r := scan(t, cs)

	shotgun := ofType(r, schema.ShotgunSurgery)
	require.Len(t, shotgun, 1)
	assert.Equal(t, schema.HighLevel, shotgun[0].Severity.Level)
	assert.Equal(t, schema.IntroduceFacade, shotgun[0].RecommendedPattern)

	god := ofType(r, schema.GodTicket)
	require.Len(t, god, 1)
	assert.Equal(t, schema.HighLevel, god[0].Severity.Level)
	assert.Equal(t, schema.SplitTicket, god[0].RecommendedPattern)

	assert.GreaterOrEqual(t, r.Summary.HighCount, 2)
	assert.Equal(t, 12, r.Summary.TotalFiles)
	assert.True(t, r.HasHigh())
	assert.False(t, r.Incomplete)
	assert.NotEmpty(t, r.RunID)
	assert.Equal(t, "T-1", r.ChangeSetID)
}

func TestScanScenarioLargeClass(t *testing.T) {
	methods := make([]schema.Method, 0, 18)
	for i := range 18 {
		methods = append(methods, schema.Method{Name: fmt.Sprintf("op%d", i), Lines: 10})
	}
	r := scan(t, completeTicket(schema.FileChange{
		Path:  "lib/domain/entities/order.dart",
		Units: []schema.Unit{{Name: "Order", Lines: 320, Methods: methods}},
	}))

	large := ofType(r, schema.LargeClass)
	require.Len(t, large, 1)
	require.Len(t, large[0].Evidence, 2)
	assert.Equal(t, "lines", large[0].Evidence[0].Kind)
	assert.Equal(t, "publicMethods", large[0].Evidence[1].Kind)
	assert.Equal(t, schema.ExtractClass, large[0].RecommendedPattern)
}

func TestScanScenarioFeatureEnvy(t *testing.T) {
	var refs []schema.Reference
	for _, field := range []string{"items", "total", "discount", "currency", "owner"} {
		refs = append(refs, schema.Reference{Target: "Cart", Kind: schema.FieldAccessEdge, Field: field})
	}
	r := scan(t, completeTicket(
		schema.FileChange{Path: "lib/presentation/pages/cart_page.dart", Units: []schema.Unit{{Name: "CartPage", References: refs}}},
		schema.FileChange{Path: "lib/domain/entities/cart.dart", Units: []schema.Unit{{Name: "Cart", FieldCount: 5}}},
	))

	envy := ofType(r, schema.FeatureEnvy)
	require.Len(t, envy, 1)
	assert.Len(t, envy[0].Evidence[0].Items, 5)
}

func TestScanScenarioInappropriateIntimacy(t *testing.T) {
	r := scan(t, completeTicket(
		schema.FileChange{
			Path:  "lib/domain/entities/order.dart",
			Units: []schema.Unit{{Name: "Order", Imports: []string{"package:shop/application/use_cases/place_order.dart"}}},
		},
		schema.FileChange{Path: "lib/application/use_cases/place_order.dart", Units: []schema.Unit{{Name: "PlaceOrder"}}},
	))

	intimacy := ofType(r, schema.InappropriateIntimacy)
	require.Len(t, intimacy, 1)
	assert.GreaterOrEqual(t, intimacy[0].Severity.Risk, 4)
	assert.Equal(t, schema.DependencyInversion, intimacy[0].RecommendedPattern)
}

func TestScanScenarioIncompleteTicket(t *testing.T) {
	r := scan(t, schema.ChangeSet{
		ID:            "T-9",
		DeclaredLayer: schema.DomainLayer,
		Description:   "Adds a discount field.",
		Files:         filesIn(schema.DomainLayer, 2),
	})
	incomplete := ofType(r, schema.IncompleteTicket)
	require.Len(t, incomplete, 1)
	assert.Equal(t, schema.CompleteTicketTemplate, incomplete[0].RecommendedPattern)
}

func TestScanFindingsAreSorted(t *testing.T) {
	var files []schema.FileChange
	for _, l := range []schema.Layer{schema.UILayer, schema.BehaviorLayer, schema.UseCaseLayer, schema.DomainLayer} {
		files = append(files, filesIn(l, 3)...)
	}
	r := scan(t, schema.ChangeSet{ID: "T-2", Files: files})
	require.NotEmpty(t, r.Findings)
	for i := 1; i < len(r.Findings); i++ {
		assert.GreaterOrEqual(t, r.Findings[i-1].Severity.Total, r.Findings[i].Severity.Total)
	}
}

func TestScanWarnsOnUnknownLayer(t *testing.T) {
	r := scan(t, completeTicket(schema.FileChange{Path: "scripts/release.go", LineCount: 5}))
	assert.Equal(t, 1, r.Summary.UnclassifiedFileCount)
	require.NotEmpty(t, r.Warnings)
	assert.Equal(t, schema.ClassificationAmbiguous, r.Warnings[0].Kind)
	assert.Equal(t, "scripts/release.go", r.Warnings[0].Path)
}

func TestScanExcludes(t *testing.T) {
	cfg := testConfig()
	cfg.Excludes = []string{"lib/presentation/"}
	cs := completeTicket(filesIn(schema.UILayer, 2)...)
	r, err := Scan(context.Background(), cfg, nil, cs, schema.Feeds{})
	require.NoError(t, err)
	assert.Equal(t, 1, r.Summary.TotalFiles)
}

func TestScanCanceledIsIncomplete(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := Scan(ctx, testConfig(), nil, completeTicket(filesIn(schema.DomainLayer, 3)...), schema.Feeds{})
	require.NoError(t, err)
	assert.True(t, r.Incomplete)
	assert.Empty(t, r.Findings)
	kinds := make([]schema.WarningKind, 0, len(r.Warnings))
	for _, w := range r.Warnings {
		kinds = append(kinds, w.Kind)
	}
	assert.Contains(t, kinds, schema.TimeoutWarning)
}

func TestScanRecordsHistory(t *testing.T) {
	history := &iocache.MockHistoryStore{}
	history.On("BeginScan", mock.Anything, mock.Anything).Return(int64(7), nil)
	history.On("CountRecurrences", mock.Anything, mock.Anything, mock.Anything).Return(0, nil)
	history.On("RecordFindings", int64(7), mock.Anything).Return(nil)
	history.On("EndScan", int64(7), mock.Anything, mock.MatchedBy(func(run schema.ScanRun) bool {
		return run.ChangeSetID == "T-9" && run.TotalFiles == 2 && run.TotalFindings == 1 && run.RunID != ""
	})).Return(nil)

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetUnitStore").Return(nil)
	mgr.On("GetHistoryStore").Return(history)

	cs := schema.ChangeSet{ID: "T-9", DeclaredLayer: schema.DomainLayer, Files: filesIn(schema.DomainLayer, 2)}
	r, err := Scan(context.Background(), testConfig(), mgr, cs, schema.Feeds{})
	require.NoError(t, err)
	require.Len(t, r.Findings, 1)

	history.AssertExpectations(t)
	mgr.AssertExpectations(t)
}

func TestScanHistoryFailureIsNotFatal(t *testing.T) {
	history := &iocache.MockHistoryStore{}
	history.On("BeginScan", mock.Anything, mock.Anything).Return(int64(0), errors.New("database is locked"))
	history.On("CountRecurrences", mock.Anything, mock.Anything, mock.Anything).Return(0, errors.New("database is locked"))

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetUnitStore").Return(nil)
	mgr.On("GetHistoryStore").Return(history)

	r, err := Scan(context.Background(), testConfig(), mgr, completeTicket(), schema.Feeds{})
	require.NoError(t, err)
	assert.NotNil(t, r)
	history.AssertNotCalled(t, "RecordFindings", mock.Anything, mock.Anything)
	history.AssertNotCalled(t, "EndScan", mock.Anything, mock.Anything, mock.Anything)
}

func TestScanSkipHistory(t *testing.T) {
	mgr := &iocache.MockCacheManager{}
	mgr.On("GetUnitStore").Return(nil)

	_, err := Scan(WithSkipHistory(context.Background()), testConfig(), mgr, completeTicket(), schema.Feeds{})
	require.NoError(t, err)
	mgr.AssertNotCalled(t, "GetHistoryStore")
}

func TestScanCoverageFeed(t *testing.T) {
	feeds := schema.Feeds{Coverage: []schema.CoverageEntry{
		{Path: "lib/domain/entities/order.dart", Unit: "Order", Percent: 0},
	}}
	cs := completeTicket(schema.FileChange{
		Path:  "lib/domain/entities/order.dart",
		Units: []schema.Unit{{Name: "Order", Lines: 40}},
	})
	r, err := Scan(context.Background(), testConfig(), nil, cs, feeds)
	require.NoError(t, err)
	require.Len(t, r.UntestedCode, 1)
	assert.Equal(t, "Order", r.UntestedCode[0].Unit)
	require.NotNil(t, r.Coverage)
	assert.Equal(t, 1, r.Coverage.UnitsUncovered)
}

func writeDescriptor(t *testing.T, cs schema.ChangeSet) string {
	t.Helper()
	data, err := json.Marshal(cs)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "changeset.json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestExecuteScan(t *testing.T) {
	var files []schema.FileChange
	for _, l := range []schema.Layer{schema.UILayer, schema.BehaviorLayer, schema.UseCaseLayer, schema.DomainLayer} {
		files = append(files, filesIn(l, 3)...)
	}
	cfg := testConfig()
	cfg.ChangeSetPath = writeDescriptor(t, schema.ChangeSet{ID: "T-5", Files: files})
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")
	cfg.FailOnHigh = true

	mgr := &iocache.MockCacheManager{}
	mgr.On("GetUnitStore").Return(nil)
	mgr.On("GetHistoryStore").Return(nil)

	err := ExecuteScan(WithSuppressHeader(context.Background()), cfg, mgr)
	var exit *ExitStatusError
	require.ErrorAs(t, err, &exit)
	assert.Equal(t, ExitHigh, exit.Code)

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	var r schema.Report
	require.NoError(t, json.Unmarshal(data, &r))
	assert.Equal(t, "T-5", r.ChangeSetID)
	assert.True(t, r.HasHigh())
}

func TestExecuteScanWithoutGate(t *testing.T) {
	cfg := testConfig()
	cfg.ChangeSetPath = writeDescriptor(t, schema.ChangeSet{ID: "T-6", Files: filesIn(schema.DomainLayer, 12)})
	cfg.Output = schema.JSONOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "report.json")

	assert.NoError(t, ExecuteScan(WithSuppressHeader(context.Background()), cfg, nil))
}

func TestExecuteScanConfigError(t *testing.T) {
	err := ExecuteScan(context.Background(), testConfig(), nil)
	assert.True(t, errors.Is(err, schema.ErrConfig))

	cfg := testConfig()
	cfg.ChangeSetPath = writeDescriptor(t, schema.ChangeSet{ID: "T-7"})
	cfg.CoverageFeedPath = filepath.Join(t.TempDir(), "missing.json")
	err = ExecuteScan(context.Background(), cfg, nil)
	assert.True(t, errors.Is(err, schema.ErrConfig))
}

func TestExecuteSmells(t *testing.T) {
	cfg := testConfig()
	cfg.Output = schema.CSVOut
	cfg.OutputFile = filepath.Join(t.TempDir(), "smells.csv")
	require.NoError(t, ExecuteSmells(context.Background(), cfg, nil))

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "AmbiguousResponsibility")
}
