// Package parquet exports scan history to Parquet files using github.com/parquet-go/parquet-go.
package parquet

import (
	"fmt"
	"os"
	"time"

	"github.com/huangsam/smellscan/schema"
	"github.com/parquet-go/parquet-go"
)

// ScanRun represents one scan run with metadata.
// This struct maps to the smellscan_scan_runs database table.
type ScanRun struct {
	ScanID      int64  `parquet:"scan_id,snappy"`
	RunID       string `parquet:"run_id,snappy"`
	ChangeSetID string `parquet:"changeset_id,snappy"`

	// StartTime is when the scan began (stored as TIMESTAMP with nanosecond precision)
	StartTime time.Time `parquet:"start_time,snappy"`

	// EndTime is when the scan completed (nullable)
	EndTime *time.Time `parquet:"end_time,optional,snappy"`

	// RunDurationMs is the duration of the scan in milliseconds (nullable)
	RunDurationMs *int32 `parquet:"run_duration_ms,optional,snappy"`

	TotalFiles    int32 `parquet:"total_files,snappy"`
	TotalFindings int32 `parquet:"total_findings,snappy"`
	Incomplete    bool  `parquet:"incomplete,snappy"`

	// ConfigParams contains the JSON-encoded configuration parameters (nullable)
	ConfigParams *string `parquet:"config_params,optional,snappy"`
}

// Finding represents one recorded finding.
// This struct maps to the smellscan_findings database table.
type Finding struct {
	ScanID        int64     `parquet:"scan_id,snappy"`
	SmellType     string    `parquet:"smell_type,dict,snappy"`
	Category      string    `parquet:"category,dict,snappy"`
	Area          string    `parquet:"area,snappy"`
	FirstFile     string    `parquet:"first_file,snappy"`
	Impact        int32     `parquet:"impact,snappy"`
	Risk          int32     `parquet:"risk,snappy"`
	Velocity      int32     `parquet:"velocity,snappy"`
	Total         int32     `parquet:"total,snappy"`
	Level         string    `parquet:"level,dict,snappy"`
	RecordedAt    time.Time `parquet:"recorded_at,snappy"`
	EvidenceCount int32     `parquet:"evidence_count,snappy"`
}

// writeParquet writes rows of any struct type to a Parquet file.
// The schema is derived from the struct tags.
func writeParquet[T any](data []T, outputPath string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	writer := parquet.NewGenericWriter[T](file)
	if _, err := writer.Write(data); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write data to parquet file: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize parquet file: %w", err)
	}
	return nil
}

// WriteScanRunsParquet writes a slice of ScanRun structs to a Parquet file.
func WriteScanRunsParquet(data []ScanRun, outputPath string) error {
	return writeParquet(data, outputPath)
}

// WriteFindingsParquet writes a slice of Finding structs to a Parquet file.
func WriteFindingsParquet(data []Finding, outputPath string) error {
	return writeParquet(data, outputPath)
}

// ConvertScanRunRecords converts schema.ScanRunRecord to ScanRun for Parquet export.
func ConvertScanRunRecords(records []schema.ScanRunRecord) []ScanRun {
	result := make([]ScanRun, len(records))
	for i, record := range records {
		result[i] = ScanRun{
			ScanID:        record.ScanID,
			RunID:         record.RunID,
			ChangeSetID:   record.ChangeSetID,
			StartTime:     record.StartTime,
			EndTime:       record.EndTime,
			RunDurationMs: record.RunDurationMs,
			TotalFiles:    record.TotalFiles,
			TotalFindings: record.TotalFindings,
			Incomplete:    record.Incomplete,
			ConfigParams:  record.ConfigParams,
		}
	}
	return result
}

// ConvertFindingRecords converts schema.FindingRecord to Finding for Parquet export.
func ConvertFindingRecords(records []schema.FindingRecord) []Finding {
	result := make([]Finding, len(records))
	for i, record := range records {
		result[i] = Finding{
			ScanID:        record.ScanID,
			SmellType:     record.SmellType,
			Category:      record.Category,
			Area:          record.Area,
			FirstFile:     record.FirstFile,
			Impact:        record.Impact,
			Risk:          record.Risk,
			Velocity:      record.Velocity,
			Total:         record.Total,
			Level:         record.Level,
			RecordedAt:    record.RecordedAt,
			EvidenceCount: record.EvidenceCount,
		}
	}
	return result
}
