package schema

// ClassifiedFile is the per-file outcome of the classification phase.
type ClassifiedFile struct {
	Path      string     `json:"path"`
	Layer     Layer      `json:"layer"`
	Kind      ChangeKind `json:"kind,omitempty"`
	LineCount int        `json:"lineCount,omitempty"`
	Test      bool       `json:"test,omitempty"`
	Units     int        `json:"units"`
}

// UnusedSymbol is one entry of a static analyzer's unused-symbol feed.
type UnusedSymbol struct {
	Path   string `json:"path" yaml:"path"`
	Symbol string `json:"symbol" yaml:"symbol"` // unit or member name
	Kind   string `json:"kind,omitempty" yaml:"kind,omitempty"`
	Line   int    `json:"line,omitempty" yaml:"line,omitempty"`
}

// CoverageEntry is one entry of a coverage feed. Unit may be empty for file-level coverage.
type CoverageEntry struct {
	Path    string  `json:"path" yaml:"path"`
	Unit    string  `json:"unit,omitempty" yaml:"unit,omitempty"`
	Percent float64 `json:"percent" yaml:"percent"`
}

// Feeds bundles the external analyzer signals used by dead-code detection.
type Feeds struct {
	Unused   []UnusedSymbol  `json:"unused,omitempty" yaml:"unused,omitempty"`
	Coverage []CoverageEntry `json:"coverage,omitempty" yaml:"coverage,omitempty"`
}
