// Package main provides a performance benchmarking tool for the smellscan CLI.
// It generates synthetic ChangeSets of several sizes, scans each with several worker
// counts, treats the first successful cached run as cold and averages the rest as warm,
// and writes a CSV for performance analysis and documentation.
//
// Prerequisites:
// - smellscan binary installed and available in PATH
//
// Usage: go run benchmark/main.go [work-dir]
//
//	work-dir: Directory for generated ChangeSets and cache files
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// BenchmarkResult holds the result of a benchmark run (no-cache average, cold run and average of warm runs).
type BenchmarkResult struct {
	Files       int
	Workers     int
	NoCacheTime string
	ColdTime    string
	WarmTime    string
}

// BenchmarkConfig holds configuration for the benchmark run.
type BenchmarkConfig struct {
	WorkDir     string
	Timeout     time.Duration
	NoCacheRuns int
	CacheRuns   int
	Sizes       []int
	Workers     []int
}

// layerDirs spreads generated files over every layer.
var layerDirs = []string{
	"internal/ui",
	"internal/behavior",
	"internal/usecases",
	"internal/domain/ports",
	"internal/domain/entities",
}

func main() {
	if len(os.Args) != 2 {
		fmt.Printf("Usage: %s [work-dir]\n", os.Args[0])
		os.Exit(1)
	}

	config := BenchmarkConfig{
		WorkDir:     os.Args[1],
		Timeout:     5 * time.Minute,
		NoCacheRuns: 3,
		CacheRuns:   4,
		Sizes:       []int{50, 500, 2000},
		Workers:     []int{1, 4, 14},
	}

	if err := checkPrerequisites(config); err != nil {
		fmt.Printf("Prerequisites check failed: %v\n", err)
		os.Exit(1)
	}

	results := runBenchmarks(config)

	if err := saveResults(results); err != nil {
		fmt.Printf("Failed to save results: %v\n", err)
		os.Exit(1)
	}

	printSummary(results)
}

// checkPrerequisites verifies that the smellscan binary and the work dir exist
func checkPrerequisites(config BenchmarkConfig) error {
	if _, err := exec.LookPath("smellscan"); err != nil {
		return fmt.Errorf("smellscan binary not found in PATH")
	}
	return os.MkdirAll(config.WorkDir, 0o755)
}

// runBenchmarks executes the scan benchmark for every size and worker count
func runBenchmarks(config BenchmarkConfig) []BenchmarkResult {
	var results []BenchmarkResult

	fmt.Printf("Starting benchmark: sizes %v, workers %v, %v timeout, no-cache: %d runs, cache: %d runs\n",
		config.Sizes, config.Workers, config.Timeout, config.NoCacheRuns, config.CacheRuns)

	for _, size := range config.Sizes {
		path, err := writeChangeSet(config.WorkDir, size)
		if err != nil {
			fmt.Printf("Failed to generate ChangeSet of %d files: %v\n", size, err)
			continue
		}
		for _, workers := range config.Workers {
			results = append(results, runBenchmarkSuite(config, path, size, workers))
		}
	}

	return results
}

// writeChangeSet generates a ChangeSet descriptor with Go sources spread over all layers
func writeChangeSet(dir string, size int) (string, error) {
	type fileChange struct {
		Path    string `json:"path"`
		Content string `json:"content"`
	}
	cs := struct {
		ID    string       `json:"id"`
		Files []fileChange `json:"files"`
	}{ID: fmt.Sprintf("BENCH-%d", size)}

	for i := range size {
		layer := layerDirs[i%len(layerDirs)]
		cs.Files = append(cs.Files, fileChange{
			Path:    fmt.Sprintf("%s/unit_%d.go", layer, i),
			Content: goSource(i),
		})
	}

	data, err := json.Marshal(cs)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, cs.ID+".json")
	return path, os.WriteFile(path, data, 0o644)
}

// goSource renders a small struct with a few methods that reference a neighbor.
func goSource(i int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "package bench\n\ntype Unit%d struct {\n\tID int\n\tName string\n\tPeer *Unit%d\n}\n\n", i, i+1)
	for m := range 6 {
		fmt.Fprintf(&b, "func (u *Unit%d) Step%d(n int) int {\n", i, m)
		b.WriteString("\tfor j := 0; j < n; j++ {\n\t\tif j%2 == 0 {\n\t\t\tn += u.Peer.ID\n\t\t}\n\t}\n\treturn n\n}\n\n")
	}
	return b.String()
}

// runBenchmarkSuite runs both no-cache and cache benchmarks for one size and worker count
func runBenchmarkSuite(config BenchmarkConfig, changeSet string, size, workers int) BenchmarkResult {
	fmt.Printf("Scanning %d files with %d workers\n", size, workers)
	cacheDB := filepath.Join(config.WorkDir, fmt.Sprintf("cache_%d_%d.db", size, workers))
	_ = os.Remove(cacheDB)

	// Helper to run a benchmark phase
	runPhase := func(cacheBackend string, numRuns int, phaseName string) (coldTime float64, avgTime string) {
		fmt.Printf("  %s phase (%d runs)\n", phaseName, numRuns)
		cold, times := runBenchmark(config, changeSet, workers, cacheBackend, cacheDB, numRuns)
		if len(times) == 0 {
			avgTime = "TIMEOUT"
		} else {
			var sum float64
			for _, t := range times {
				sum += t
			}
			avgTime = fmt.Sprintf("%.3fs", sum/float64(len(times)))
		}
		return cold, avgTime
	}

	// Phase 1: No-cache runs
	_, noCacheAvg := runPhase("none", config.NoCacheRuns, "No-cache")

	// Phase 2: Cache runs
	coldTime, warmAvg := runPhase("sqlite", config.CacheRuns, "Cache")

	coldTimeStr := "TIMEOUT"
	if coldTime > 0 {
		coldTimeStr = fmt.Sprintf("%.3fs", coldTime)
	}

	fmt.Printf("  No-cache average: %s, Cold time: %s, Warm average: %s\n", noCacheAvg, coldTimeStr, warmAvg)

	return BenchmarkResult{
		Files:       size,
		Workers:     workers,
		NoCacheTime: noCacheAvg,
		ColdTime:    coldTimeStr,
		WarmTime:    warmAvg,
	}
}

// runBenchmark scans the ChangeSet numRuns times and returns cold time and warm times
func runBenchmark(config BenchmarkConfig, changeSet string, workers int, cacheBackend, cacheDB string, numRuns int) (coldTime float64, warmTimes []float64) {
	args := []string{
		"scan", "--changeset", changeSet,
		"--format", "json",
		"--workers", fmt.Sprint(workers),
		"--cache-backend", cacheBackend,
		"--timeout", config.Timeout.String(),
	}
	if cacheBackend == "sqlite" {
		args = append(args, "--cache-db-connect", cacheDB)
	}

	var times []float64
	for range numRuns {
		ctx, cancel := context.WithTimeout(context.Background(), config.Timeout)
		start := time.Now()
		output, err := exec.CommandContext(ctx, "smellscan", args...).Output()
		elapsed := time.Since(start).Seconds()
		cancel()

		if err == nil && isSuccess(output) {
			times = append(times, elapsed)
		}
	}

	if len(times) > 0 {
		coldTime = times[0]
		warmTimes = times[1:]
	}
	return
}

// isSuccess checks that the output is a complete JSON report
func isSuccess(output []byte) bool {
	var report struct {
		ChangeSetID string `json:"changeSetId"`
		Incomplete  bool   `json:"incomplete"`
	}
	if err := json.Unmarshal(output, &report); err != nil {
		return false
	}
	return report.ChangeSetID != "" && !report.Incomplete
}

// saveResults writes benchmark results to a timestamped CSV file
func saveResults(results []BenchmarkResult) error {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("/tmp/smellscan_benchmark_%s.csv", timestamp)

	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil {
			fmt.Printf("Warning: failed to close file %s: %v\n", filename, closeErr)
		}
	}()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write([]string{"files", "workers", "no_cache_avg", "cold_time", "warm_avg"}); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, result := range results {
		record := []string{fmt.Sprint(result.Files), fmt.Sprint(result.Workers), result.NoCacheTime, result.ColdTime, result.WarmTime}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	fmt.Printf("Results saved to %s\n", filename)
	return nil
}

// printSummary displays the final benchmark results summary
func printSummary(results []BenchmarkResult) {
	fmt.Printf("Benchmark complete\n")
	for _, result := range results {
		fmt.Printf("  %5d files, %2d workers: No-cache: %s, Cold: %s, Warm: %s\n",
			result.Files, result.Workers, result.NoCacheTime, result.ColdTime, result.WarmTime)
	}
}
