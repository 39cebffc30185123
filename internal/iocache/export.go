package iocache

import (
	"errors"
	"fmt"
	"io"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/internal/parquet"
	"github.com/huangsam/smellscan/schema"
)

// HistoryExporter is a HistoryStore that can dump its full contents.
type HistoryExporter interface {
	contract.HistoryStore
	GetAllScanRuns() ([]schema.ScanRunRecord, error)
	GetAllFindings() ([]schema.FindingRecord, error)
}

var _ HistoryExporter = &HistoryStoreImpl{} // Compile-time check

// ExecuteHistoryExport writes the scan history held by the global manager to Parquet files.
func ExecuteHistoryExport(w io.Writer, outputFile string) error {
	return ExportHistory(w, Manager.GetHistoryStore(), outputFile)
}

// ExportHistory writes <outputFile>.scan_runs.parquet and <outputFile>.findings.parquet.
func ExportHistory(w io.Writer, store contract.HistoryStore, outputFile string) error {
	if outputFile == "" {
		return errors.New("--output-file is required for export command")
	}
	if store == nil {
		return errors.New("history store is not initialized")
	}
	exporter, ok := store.(HistoryExporter)
	if !ok {
		return fmt.Errorf("history store %T does not support export", store)
	}

	status, err := exporter.GetStatus()
	if err != nil {
		return fmt.Errorf("failed to get history status: %w", err)
	}
	if status.TotalRuns == 0 {
		return errors.New("no scan history found to export")
	}

	_, _ = fmt.Fprintf(w, "Exporting data from %s backend...\n", status.Backend)
	_, _ = fmt.Fprintf(w, "Total scan runs: %d\n", status.TotalRuns)
	_, _ = fmt.Fprintf(w, "Total findings: %d\n", status.TotalFindings)

	runs, err := exporter.GetAllScanRuns()
	if err != nil {
		return fmt.Errorf("failed to retrieve scan runs: %w", err)
	}
	findings, err := exporter.GetAllFindings()
	if err != nil {
		return fmt.Errorf("failed to retrieve findings: %w", err)
	}

	runsFile := outputFile + ".scan_runs.parquet"
	parquetRuns := parquet.ConvertScanRunRecords(runs)
	if err := parquet.WriteScanRunsParquet(parquetRuns, runsFile); err != nil {
		return fmt.Errorf("failed to write scan runs: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d scan runs to: %s\n", len(parquetRuns), runsFile)

	findingsFile := outputFile + ".findings.parquet"
	parquetFindings := parquet.ConvertFindingRecords(findings)
	if err := parquet.WriteFindingsParquet(parquetFindings, findingsFile); err != nil {
		return fmt.Errorf("failed to write findings: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d findings to: %s\n", len(parquetFindings), findingsFile)
	return nil
}
