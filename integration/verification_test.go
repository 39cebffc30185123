//go:build basic

// Package integration contains integration tests for smellscan.
// These tests are excluded from normal test runs due to build tags.
// To run these tests: go test -tags basic ./integration
package integration

import (
	"encoding/json"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanJSONReport(t *testing.T) {
	dir := t.TempDir()
	path := writeChangeSet(t, dir, shotgunChangeSet())

	stdout, _, code := runSmellscan(t, dir, "scan", "--changeset", path, "--format", "json", "--cache-backend", "none")
	require.Equal(t, 0, code)

	var report schema.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Equal(t, "T-100", report.ChangeSetID)
	assert.True(t, report.HasHigh())

	smells := map[schema.SmellType]bool{}
	for _, f := range report.Findings {
		smells[f.SmellType] = true
	}
	assert.True(t, smells[schema.ShotgunSurgery])
	assert.True(t, smells[schema.GodTicket])
}

func TestScanExitCodes(t *testing.T) {
	dir := t.TempDir()
	high := writeChangeSet(t, dir, shotgunChangeSet())
	low := writeChangeSet(t, dir, smallChangeSet())

	tests := []struct {
		name     string
		args     []string
		expected int
	}{
		{"high gated", []string{"scan", "--changeset", high, "--fail-on-high"}, 2},
		{"high not gated", []string{"scan", "--changeset", high}, 0},
		{"low gated", []string{"scan", "--changeset", low, "--fail-on-high"}, 1},
		{"no source", []string{"scan"}, 3},
		{"unknown detector", []string{"scan", "--changeset", low, "--skip", "LongMetod"}, 3},
		{"bad format", []string{"scan", "--changeset", low, "--format", "xml"}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append(slices.Clone(tt.args), "--cache-backend", "none")
			_, _, code := runSmellscan(t, dir, args...)
			assert.Equal(t, tt.expected, code)
		})
	}
}

func TestScanSkipDetector(t *testing.T) {
	dir := t.TempDir()
	path := writeChangeSet(t, dir, smallChangeSet())

	stdout, _, code := runSmellscan(t, dir, "scan", "--changeset", path, "--format", "json", "--cache-backend", "none", "--skip", "B3")
	require.Equal(t, 0, code)

	var report schema.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	for _, f := range report.Findings {
		assert.NotEqual(t, schema.LongMethod, f.SmellType)
	}
}

func TestScanConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeChangeSet(t, dir, smallChangeSet())
	config := "thresholds:\n  long-method-lines: 100\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".smellscan.yaml"), []byte(config), 0o644))

	stdout, _, code := runSmellscan(t, dir, "scan", "--changeset", path, "--format", "json", "--cache-backend", "none", "--fail-on-high")
	require.Equal(t, 0, code, stdout)

	var report schema.Report
	require.NoError(t, json.Unmarshal([]byte(stdout), &report))
	assert.Empty(t, report.Findings)
}

func TestScanOutputFormats(t *testing.T) {
	dir := t.TempDir()
	path := writeChangeSet(t, dir, shotgunChangeSet())

	for _, format := range []string{"text", "csv", "markdown", "sarif"} {
		t.Run(format, func(t *testing.T) {
			out := filepath.Join(dir, "report."+format)
			_, _, code := runSmellscan(t, dir, "scan", "--changeset", path, "--format", format, "--output-file", out, "--cache-backend", "none")
			require.Equal(t, 0, code)

			data, err := os.ReadFile(out)
			require.NoError(t, err)
			assert.Contains(t, string(data), "ShotgunSurgery")
		})
	}
}

func TestSmellsAndVersion(t *testing.T) {
	dir := t.TempDir()

	stdout, _, code := runSmellscan(t, dir, "smells", "--cache-backend", "none")
	require.Equal(t, 0, code)
	assert.Contains(t, stdout, "A1 ShotgunSurgery")
	assert.Contains(t, stdout, "C3 AmbiguousResponsibility")

	_, stderr, code := runSmellscan(t, dir, "version")
	require.Equal(t, 0, code)
	assert.True(t, strings.HasPrefix(stderr, "smellscan CLI"))
}
