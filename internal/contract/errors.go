package contract

import "github.com/huangsam/smellscan/schema"

// Error taxonomy re-exported for callers that only import contract.
var (
	ErrClassificationAmbiguous = schema.ErrClassificationAmbiguous
	ErrParse                   = schema.ErrParse
	ErrConfig                  = schema.ErrConfig
	ErrTimeout                 = schema.ErrTimeout
	ErrEmptyEvidence           = schema.ErrEmptyEvidence
)
