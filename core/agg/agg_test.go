package agg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/internal/iocache"
	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testConfig(workers int) *contract.Config {
	return &contract.Config{
		Workers:     workers,
		FileTimeout: time.Second,
		Rules:       contract.DefaultRules(),
	}
}

// withExtract swaps the extractor for the duration of a test.
func withExtract(t *testing.T, fn func(context.Context, schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error)) {
	t.Helper()
	orig := extract
	extract = fn
	t.Cleanup(func() { extract = orig })
}

func summaryChange(path string, names ...string) schema.FileChange {
	fc := schema.FileChange{Path: path, Kind: schema.Modified, LineCount: 40}
	for _, n := range names {
		fc.Units = append(fc.Units, schema.Unit{Name: n, Lines: 20})
	}
	return fc
}

func TestProcessFilesKeepsInputOrder(t *testing.T) {
	changes := []schema.FileChange{
		summaryChange("lib/presentation/pages/home_page.dart", "HomePage"),
		summaryChange("lib/domain/entities/user.dart", "User", "UserId"),
		summaryChange("lib/application/use_cases/login.dart", "Login"),
		summaryChange("lib/domain/repositories/user_repository.dart", "UserRepository"),
	}

	result, err := ProcessFiles(context.Background(), testConfig(3), nil, changes)
	require.NoError(t, err)
	require.Len(t, result.Files, len(changes))
	for i, f := range result.Files {
		assert.Equal(t, changes[i].Path, f.Path)
	}

	names := make([]string, 0, len(result.Units))
	for _, u := range result.Units {
		names = append(names, u.Name)
	}
	assert.Equal(t, []string{"HomePage", "User", "UserId", "Login", "UserRepository"}, names)

	assert.Equal(t, schema.UILayer, result.Files[0].Layer)
	assert.Equal(t, schema.DomainLayer, result.Units[1].Layer)
	assert.Equal(t, schema.DomainInterfaceLayer, result.Units[4].Layer)
	assert.Equal(t, 2, result.Files[1].Units)
	assert.Empty(t, result.Warnings)
}

func TestProcessFilesWarnsOnUnknownLayer(t *testing.T) {
	changes := []schema.FileChange{summaryChange("scripts/release.go", "Release")}

	result, err := ProcessFiles(context.Background(), testConfig(1), nil, changes)
	require.NoError(t, err)
	require.Len(t, result.Files, 1)
	assert.Equal(t, schema.UnknownLayer, result.Files[0].Layer)
	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.ClassificationAmbiguous, result.Warnings[0].Kind)
	assert.Equal(t, "scripts/release.go", result.Warnings[0].Path)
}

func TestProcessFilesEmpty(t *testing.T) {
	result, err := ProcessFiles(context.Background(), testConfig(4), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, result.Files)
	assert.Empty(t, result.Units)
}

func TestProcessFilesPerFileTimeout(t *testing.T) {
	withExtract(t, func(ctx context.Context, fc schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error) {
		if fc.Path == "lib/domain/entities/slow.dart" {
			<-ctx.Done()
			return nil, nil, ctx.Err()
		}
		return []schema.Unit{{Name: "Fast", Path: fc.Path}}, nil, nil
	})

	cfg := testConfig(2)
	cfg.FileTimeout = 20 * time.Millisecond
	changes := []schema.FileChange{
		{Path: "lib/domain/entities/slow.dart", Content: "class Slow {}", LineCount: 300},
		{Path: "lib/domain/entities/fast.dart", Content: "class Fast {}"},
	}

	result, err := ProcessFiles(context.Background(), cfg, nil, changes)
	require.NoError(t, err, "a per-file timeout does not fail the scan")
	require.Len(t, result.Files, 2)
	require.Len(t, result.Units, 2)

	slow := result.Units[0]
	assert.True(t, slow.Inconclusive)
	assert.Equal(t, "lib/domain/entities/slow.dart", slow.Path)
	assert.Equal(t, schema.DomainLayer, slow.Layer)
	assert.False(t, result.Units[1].Inconclusive)

	require.Len(t, result.Warnings, 1)
	assert.Equal(t, schema.TimeoutWarning, result.Warnings[0].Kind)
	assert.Equal(t, 1, result.Files[1].LineCount)
}

func TestProcessFilesParentDeadline(t *testing.T) {
	var started atomic.Int32
	withExtract(t, func(ctx context.Context, fc schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error) {
		if started.Add(1) == 1 {
			return []schema.Unit{{Name: "First", Path: fc.Path}}, nil, nil
		}
		<-ctx.Done()
		return nil, nil, ctx.Err()
	})

	cfg := testConfig(1)
	cfg.FileTimeout = time.Minute
	changes := make([]schema.FileChange, 5)
	for i := range changes {
		changes[i] = schema.FileChange{Path: fmt.Sprintf("lib/domain/entities/e%d.dart", i), Content: "x"}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	result, err := ProcessFiles(ctx, cfg, nil, changes)
	require.Error(t, err)
	assert.True(t, errors.Is(err, schema.ErrTimeout))
	require.NotNil(t, result)
	require.Len(t, result.Files, 1, "only the finished file is kept")
	assert.Equal(t, "lib/domain/entities/e0.dart", result.Files[0].Path)
	for _, u := range result.Units {
		assert.False(t, u.Inconclusive)
	}
}

func TestProcessFilesUsesCache(t *testing.T) {
	fc := schema.FileChange{Path: "lib/domain/entities/user.dart", Content: "class User {}"}
	key, ok := cacheKey(fc)
	require.True(t, ok)

	cached, err := json.Marshal(schema.CachedUnits{Units: []schema.Unit{{Name: "CachedUser", Path: fc.Path}}})
	require.NoError(t, err)

	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return(cached, currentCacheVersion, time.Now().Unix(), nil)

	withExtract(t, func(context.Context, schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error) {
		t.Error("extract must not run on a cache hit")
		return nil, nil, nil
	})

	result, err := ProcessFiles(context.Background(), testConfig(1), store, []schema.FileChange{fc})
	require.NoError(t, err)
	require.Len(t, result.Units, 1)
	assert.Equal(t, "CachedUser", result.Units[0].Name)
	assert.Equal(t, schema.DomainLayer, result.Units[0].Layer)
	store.AssertExpectations(t)
}

func TestProcessFilesStoresOnMiss(t *testing.T) {
	fc := schema.FileChange{Path: "lib/domain/entities/user.dart", Content: "class User {}"}
	key, _ := cacheKey(fc)

	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return([]byte(nil), 0, int64(0), sql.ErrNoRows)
	store.On("Set", key, mock.Anything, currentCacheVersion, mock.AnythingOfType("int64")).Return(nil)

	withExtract(t, func(_ context.Context, fc schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error) {
		return []schema.Unit{{Name: "User", Path: fc.Path}}, nil, nil
	})

	result, err := ProcessFiles(context.Background(), testConfig(1), store, []schema.FileChange{fc})
	require.NoError(t, err)
	require.Len(t, result.Units, 1)
	store.AssertExpectations(t)
}

func TestTimedOutFilesAreNotCached(t *testing.T) {
	fc := schema.FileChange{Path: "lib/domain/entities/slow.dart", Content: "class Slow {}"}
	key, _ := cacheKey(fc)

	store := &iocache.MockCacheStore{}
	store.On("Get", key).Return([]byte(nil), 0, int64(0), sql.ErrNoRows)

	withExtract(t, func(ctx context.Context, _ schema.FileChange) ([]schema.Unit, []schema.AnalysisWarning, error) {
		<-ctx.Done()
		return nil, nil, ctx.Err()
	})

	cfg := testConfig(1)
	cfg.FileTimeout = 10 * time.Millisecond
	result, err := ProcessFiles(context.Background(), cfg, store, []schema.FileChange{fc})
	require.NoError(t, err)
	require.Len(t, result.Units, 1)
	assert.True(t, result.Units[0].Inconclusive)
	store.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCheckCacheHit(t *testing.T) {
	valid, _ := json.Marshal(schema.CachedUnits{Units: []schema.Unit{{Name: "U"}}})
	now := time.Now().Unix()

	tests := []struct {
		name    string
		data    []byte
		version int
		ts      int64
		err     error
		hit     bool
	}{
		{"hit", valid, currentCacheVersion, now, nil, true},
		{"miss", nil, 0, 0, sql.ErrNoRows, false},
		{"version mismatch", valid, currentCacheVersion + 1, now, nil, false},
		{"stale", valid, currentCacheVersion, time.Now().Add(-cacheTTL - time.Hour).Unix(), nil, false},
		{"corrupt", []byte("{not json"), currentCacheVersion, now, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := &iocache.MockCacheStore{}
			store.On("Get", "k").Return(tt.data, tt.version, tt.ts, tt.err)
			got := checkCacheHit(store, "k")
			if tt.hit {
				require.NotNil(t, got)
				assert.Equal(t, "U", got.Units[0].Name)
			} else {
				assert.Nil(t, got)
			}
		})
	}

	assert.Nil(t, checkCacheHit(nil, "k"))
}

func TestStoreUnitsIgnoresErrors(t *testing.T) {
	store := &iocache.MockCacheStore{}
	store.On("Set", "k", mock.Anything, currentCacheVersion, mock.AnythingOfType("int64")).Return(errors.New("disk full"))
	assert.NotPanics(t, func() { storeUnits(store, "k", schema.CachedUnits{}) })
	store.AssertExpectations(t)
	storeUnits(nil, "k", schema.CachedUnits{})
}

func TestCacheKey(t *testing.T) {
	base := schema.FileChange{Path: "lib/a.dart", Content: "class A {}", Imports: []string{"lib/b.dart"}}
	k1, ok := cacheKey(base)
	require.True(t, ok)

	same, _ := cacheKey(base)
	assert.Equal(t, k1, same)

	changed := base
	changed.Content = "class A { int x; }"
	k2, _ := cacheKey(changed)
	assert.NotEqual(t, k1, k2)

	moved := base
	moved.Imports = []string{"lib/c.dart"}
	k3, _ := cacheKey(moved)
	assert.NotEqual(t, k1, k3)

	_, ok = cacheKey(schema.FileChange{Path: "lib/a.dart"})
	assert.False(t, ok, "no content")
	_, ok = cacheKey(schema.FileChange{Path: "lib/a.dart", Content: "x", Kind: schema.Deleted})
	assert.False(t, ok, "deleted")
	_, ok = cacheKey(summaryChange("lib/a.dart", "A"))
	assert.False(t, ok, "summary")
}

func TestFilterChanges(t *testing.T) {
	changes := []schema.FileChange{
		{Path: "lib/domain/entities/user.dart"},
		{Path: "lib/generated/user.g.dart"},
		{Path: "./vendor/pkg/x.go"},
	}
	got := FilterChanges(changes, []string{"lib/generated/", "vendor/"})
	require.Len(t, got, 1)
	assert.Equal(t, "lib/domain/entities/user.dart", got[0].Path)

	assert.Len(t, FilterChanges(changes, nil), 3)
}

func TestLineCount(t *testing.T) {
	assert.Equal(t, 12, lineCount(schema.FileChange{LineCount: 12, Content: "a\nb\n"}))
	assert.Equal(t, 2, lineCount(schema.FileChange{Content: "a\nb\n"}))
	assert.Equal(t, 3, lineCount(schema.FileChange{Content: "a\nb\nc"}))
	assert.Zero(t, lineCount(schema.FileChange{}))
}
