package schema

import "errors"

// Error taxonomy shared by every stage of a scan. Callers wrap these with %w.
var (
	// ErrClassificationAmbiguous marks a path that no layer rule matched.
	ErrClassificationAmbiguous = errors.New("classification ambiguous")

	// ErrParse marks a unit that could not be decomposed into methods and fields.
	ErrParse = errors.New("parse error")

	// ErrConfig marks a malformed rule file, threshold or flag. Always fatal.
	ErrConfig = errors.New("config error")

	// ErrTimeout marks a per-file or per-ChangeSet deadline that expired.
	ErrTimeout = errors.New("timeout")

	// ErrEmptyEvidence marks a finding without evidence.
	ErrEmptyEvidence = errors.New("finding has no evidence")
)

// AnalysisWarning is a recoverable problem reported next to the findings.
type AnalysisWarning struct {
	Kind    WarningKind `json:"kind"`
	Path    string      `json:"path,omitempty"`
	Message string      `json:"message"`
}

// NewWarning builds an AnalysisWarning from an error of the taxonomy.
func NewWarning(path string, err error) AnalysisWarning {
	kind := ParseErrorWarning
	switch {
	case errors.Is(err, ErrClassificationAmbiguous):
		kind = ClassificationAmbiguous
	case errors.Is(err, ErrTimeout):
		kind = TimeoutWarning
	}
	return AnalysisWarning{Kind: kind, Path: path, Message: err.Error()}
}
