package schema

import (
	"encoding/json"
	"fmt"
)

// Sub-score bounds for impact, risk and velocity.
const (
	MinSubScore = 1
	MaxSubScore = 5
)

// Level thresholds on the severity total.
const (
	HighThreshold   = 20 // total > 20 is High
	MediumThreshold = 10 // total >= 10 is Medium
)

// Evidence is one metric, edge or fact that triggered a finding.
type Evidence struct {
	Kind   string   `json:"kind"`
	Detail string   `json:"detail"`
	Path   string   `json:"path,omitempty"`
	Layer  Layer    `json:"layer,omitempty"`
	Items  []string `json:"items,omitempty"`
	Value  float64  `json:"value,omitempty"`
	Limit  float64  `json:"limit,omitempty"`
}

// Severity holds the scorer sub-scores and the derived total and level.
// Total and Level are never trusted from outside: Recompute derives them.
type Severity struct {
	Impact   int   `json:"impact"`
	Risk     int   `json:"risk"`
	Velocity int   `json:"velocity"`
	Total    int   `json:"total"`
	Level    Level `json:"level"`
}

// NewSeverity builds a Severity from its inputs.
func NewSeverity(impact, risk, velocity int) Severity {
	s := Severity{Impact: impact, Risk: risk, Velocity: velocity}
	s.Recompute()
	return s
}

// PriorityScore is impact*3 + risk*2 + velocity*1.
func PriorityScore(impact, risk, velocity int) int {
	return impact*3 + risk*2 + velocity
}

// LevelFor buckets a total into High (>20), Medium (10-20) or Low (<10).
func LevelFor(total int) Level {
	switch {
	case total > HighThreshold:
		return HighLevel
	case total >= MediumThreshold:
		return MediumLevel
	default:
		return LowLevel
	}
}

// ClampSubScore bounds a sub-score to [1, 5].
func ClampSubScore(v int) int {
	return max(MinSubScore, min(MaxSubScore, v))
}

// Recompute clamps the inputs and derives Total and Level from them.
func (s *Severity) Recompute() {
	s.Impact = ClampSubScore(s.Impact)
	s.Risk = ClampSubScore(s.Risk)
	s.Velocity = ClampSubScore(s.Velocity)
	s.Total = PriorityScore(s.Impact, s.Risk, s.Velocity)
	s.Level = LevelFor(s.Total)
}

// UnmarshalJSON decodes a Severity and recomputes its derived fields.
func (s *Severity) UnmarshalJSON(data []byte) error {
	type raw Severity
	var r raw
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	*s = Severity(r)
	s.Recompute()
	return nil
}

// Finding is a single detected smell with its evidence and derived priority.
type Finding struct {
	Category           Category        `json:"category"`
	SmellType          SmellType       `json:"smellType"`
	Unit               string          `json:"unit,omitempty"`
	Files              []string        `json:"files,omitempty"`
	Layers             []Layer         `json:"layers,omitempty"`
	Area               string          `json:"area,omitempty"`
	Evidence           []Evidence      `json:"evidence"`
	Severity           Severity        `json:"severity"`
	RiskFloor          int             `json:"riskFloor,omitempty"`
	RecommendedPattern RefactorPattern `json:"recommendedPattern,omitempty"`
	Override           Override        `json:"override,omitempty"`
}

// Validate checks the finding contract.
func (f Finding) Validate() error {
	if len(f.Evidence) == 0 {
		return fmt.Errorf("%s finding for %q: %w", f.SmellType, f.FirstFile(), ErrEmptyEvidence)
	}
	return nil
}

// FirstFile returns the first offending file path, used as the last sort key.
func (f Finding) FirstFile() string {
	if len(f.Files) == 0 {
		return ""
	}
	return f.Files[0]
}
