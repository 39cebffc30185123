// Package contract provides interfaces and shared utilities for internal architecture.
package contract

import (
	"context"
	"time"

	"github.com/huangsam/smellscan/schema"
)

// GitClient defines the Git operations needed to build a ChangeSet from two refs.
// This allows the loaders to be tested without needing a real git executable.
type GitClient interface {
	// --- Generic / Low-Level ---

	// Run executes a git command and returns the combined output.
	// Its use should be minimized in favor of the explicit methods below.
	Run(ctx context.Context, repoPath string, args ...string) ([]byte, error)

	// --- Reference Resolution ---

	// GetRepoRoot returns the absolute path to the root of the Git repository
	// containing the given context path.
	GetRepoRoot(ctx context.Context, contextPath string) (string, error)

	// --- Change Sets ---

	// GetDiffBetweenRefs returns the unified diff between two refs.
	GetDiffBetweenRefs(ctx context.Context, repoPath string, baseRef string, targetRef string) ([]byte, error)

	// ShowFileAtRef returns the content of a path at a specific reference.
	ShowFileAtRef(ctx context.Context, repoPath string, ref string, path string) ([]byte, error)
}

// CacheManager defines the interface for managing the backing stores.
// This allows the cache layer to be mocked for testing.
type CacheManager interface {
	GetUnitStore() CacheStore
	GetHistoryStore() HistoryStore
}

// CacheStore defines the interface for cache data storage.
// This allows mocking the store for testing.
type CacheStore interface {
	Get(key string) ([]byte, int, int64, error)
	Set(key string, value []byte, version int, timestamp int64) error
	GetStatus() (schema.CacheStatus, error)
	Close() error
}

// HistoryStore defines the interface for tracking scan runs and recorded findings.
type HistoryStore interface {
	// BeginScan creates a new scan run and returns its unique ID
	BeginScan(startTime time.Time, configParams map[string]any) (int64, error)

	// EndScan updates the scan run with completion data
	EndScan(scanID int64, endTime time.Time, run schema.ScanRun) error

	// RecordFindings stores the findings emitted by a scan
	RecordFindings(scanID int64, findings []schema.Finding) error

	// CountRecurrences counts earlier findings of a smell type in an area since a point in time
	CountRecurrences(smell schema.SmellType, area string, since time.Time) (int, error)

	// GetStatus returns status information about the history store
	GetStatus() (schema.HistoryStatus, error)

	// Close closes the underlying connection
	Close() error
}
