package schema

import "time"

// ScanRun describes the outcome of one scan handed to the history store.
type ScanRun struct {
	RunID         string
	ChangeSetID   string
	TotalFiles    int
	TotalFindings int
	Incomplete    bool
}

// ScanRunRecord represents a row from the smellscan_scan_runs table.
type ScanRunRecord struct {
	ScanID        int64
	RunID         string
	ChangeSetID   string
	StartTime     time.Time
	EndTime       *time.Time
	RunDurationMs *int32
	TotalFiles    int32
	TotalFindings int32
	Incomplete    bool
	ConfigParams  *string
}

// FindingRecord represents a row from the smellscan_findings table.
type FindingRecord struct {
	ScanID        int64
	SmellType     string
	Category      string
	Area          string
	FirstFile     string
	Impact        int32
	Risk          int32
	Velocity      int32
	Total         int32
	Level         string
	RecordedAt    time.Time
	EvidenceCount int32
}

// CachedUnits is the payload stored in the unit cache for one file snapshot.
type CachedUnits struct {
	Units    []Unit            `json:"units"`
	Warnings []AnalysisWarning `json:"warnings,omitempty"`
}
