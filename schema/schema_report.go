package schema

import "time"

// Report is the terminal output of one scan. Findings are ordered by descending priority.
type Report struct {
	ChangeSetID          string               `json:"changeSetId"`
	RunID                string               `json:"runId"`
	GeneratedAt          time.Time            `json:"generatedAt"`
	Incomplete           bool                 `json:"incomplete"`
	Findings             []Finding            `json:"findings"`
	Warnings             []AnalysisWarning    `json:"warnings"`
	UntestedCode         []UntestedUnit       `json:"untestedCode,omitempty"`
	ExternalDependencies []ExternalDependency `json:"externalDependencies,omitempty"`
	Summary              Summary              `json:"summary"`
	Coverage             *CoverageSnapshot    `json:"coverage,omitempty"`
}

// Summary has the counters surfaced at the top of a report.
type Summary struct {
	HighCount             int `json:"highCount"`
	MediumCount           int `json:"mediumCount"`
	LowCount              int `json:"lowCount"`
	UnclassifiedFileCount int `json:"unclassifiedFileCount"`
	ParseErrorCount       int `json:"parseErrorCount"`
	TimeoutCount          int `json:"timeoutCount"`
	TotalFiles            int `json:"totalFiles"`
	TotalUnits            int `json:"totalUnits"`
	ExternalEdgeCount     int `json:"externalEdgeCount"`
}

// CoverageSnapshot summarizes the coverage feed for the units in the ChangeSet.
type CoverageSnapshot struct {
	UnitsCovered   int     `json:"unitsCovered"`
	UnitsUncovered int     `json:"unitsUncovered"`
	MeanPercent    float64 `json:"meanPercent"`
}

// UntestedUnit is a unit with zero coverage that the unused-symbol feed does not flag.
type UntestedUnit struct {
	Unit  string `json:"unit"`
	Path  string `json:"path"`
	Layer Layer  `json:"layer"`
}

// ExternalDependency is an edge that resolved to nothing inside the ChangeSet.
type ExternalDependency struct {
	Source string   `json:"source"`
	Target string   `json:"target"`
	Kind   EdgeKind `json:"kind"`
}

// HasHigh reports whether at least one finding is at High level.
func (r *Report) HasHigh() bool {
	return r.Summary.HighCount > 0
}
