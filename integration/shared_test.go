//go:build basic || database

package integration

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"

	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/require"
)

var (
	// sharedBinaryPath holds the path to a smellscan binary built once for all tests.
	sharedBinaryPath string

	// buildOnce ensures we only build the binary once.
	buildOnce sync.Once

	// buildMutex protects the shared binary path.
	buildMutex sync.Mutex

	// tempDir holds the temp directory for cleanup.
	tempDir string
)

// TestMain handles setup and cleanup for all integration tests.
func TestMain(m *testing.M) {
	code := m.Run()

	// Cleanup the shared binary after all tests
	if tempDir != "" {
		_ = os.RemoveAll(tempDir)
	}

	os.Exit(code)
}

// getBinary returns the path to the smellscan binary, building it once if needed.
func getBinary() string {
	buildMutex.Lock()
	defer buildMutex.Unlock()

	buildOnce.Do(func() {
		var err error
		tempDir, err = os.MkdirTemp("", "smellscan-integration-*")
		if err != nil {
			panic(fmt.Sprintf("failed to create temp dir: %v", err))
		}

		binPath := filepath.Join(tempDir, "smellscan")
		buildCmd := exec.Command("go", "build", "-o", binPath, ".")
		buildCmd.Dir = ".." // Build from parent directory (project root)
		if err := buildCmd.Run(); err != nil {
			panic(fmt.Sprintf("failed to build smellscan: %v", err))
		}

		sharedBinaryPath = binPath
	})

	return sharedBinaryPath
}

// runSmellscan runs the binary in dir and returns stdout, stderr and the exit code.
func runSmellscan(t *testing.T, dir string, args ...string) (string, string, int) {
	t.Helper()
	cmd := exec.Command(getBinary(), args...)
	cmd.Dir = dir
	// Keep user config and stores out of the way
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir())

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return stdout.String(), stderr.String(), 0
	}
	var exitErr *exec.ExitError
	require.True(t, errors.As(err, &exitErr), "unexpected error running %s: %v", cmd.String(), err)
	return stdout.String(), stderr.String(), exitErr.ExitCode()
}

// writeChangeSet writes cs as a JSON descriptor and returns its path.
func writeChangeSet(t *testing.T, dir string, cs schema.ChangeSet) string {
	t.Helper()
	data, err := json.Marshal(cs)
	require.NoError(t, err)
	path := filepath.Join(dir, cs.ID+".json")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

// shotgunChangeSet touches twelve files across four layers.
func shotgunChangeSet() schema.ChangeSet {
	dirs := []string{
		"lib/presentation/pages",
		"lib/presentation/bloc",
		"lib/application/use_cases",
		"lib/domain/entities",
	}
	cs := schema.ChangeSet{ID: "T-100"}
	for _, d := range dirs {
		for i := range 3 {
			cs.Files = append(cs.Files, schema.FileChange{
				Path:      fmt.Sprintf("%s/file_%d.dart", d, i),
				LineCount: 20,
			})
		}
	}
	return cs
}

// smallChangeSet is a complete single-layer ticket with one oversized method.
func smallChangeSet() schema.ChangeSet {
	return schema.ChangeSet{
		ID:                 "T-200",
		DeclaredLayer:      schema.DomainLayer,
		AcceptanceCriteria: "- discount is applied once",
		PhaseMarkers:       []string{"design", "test", "implementation", "refactor-review"},
		Files: []schema.FileChange{
			{
				Path: "lib/domain/entities/order.dart",
				Units: []schema.Unit{{
					Name:    "Order",
					Lines:   120,
					Methods: []schema.Method{{Name: "applyDiscount", Lines: 70}},
				}},
			},
			{Path: "test/domain/entities/order_test.dart", Kind: schema.Added, LineCount: 30},
		},
	}
}
