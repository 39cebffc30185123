// Package schema has the models shared by all parts of smellscan.
package schema

// ChangeSet is a proposed unit of work submitted for analysis (a ticket).
// The engine treats it as read-only once submitted.
type ChangeSet struct {
	ID                      string       `json:"id" yaml:"id"`
	Title                   string       `json:"title,omitempty" yaml:"title,omitempty"`
	Description             string       `json:"description,omitempty" yaml:"description,omitempty"`
	DeclaredLayer           Layer        `json:"declaredLayer,omitempty" yaml:"declaredLayer,omitempty"`
	EstimatedHours          *float64     `json:"estimatedHours,omitempty" yaml:"estimatedHours,omitempty"`
	PhaseMarkers            []string     `json:"phaseMarkers,omitempty" yaml:"phaseMarkers,omitempty"`
	AcceptanceCriteria      string       `json:"acceptanceCriteria,omitempty" yaml:"acceptanceCriteria,omitempty"`
	MultiLayerJustification string       `json:"multiLayerJustification,omitempty" yaml:"multiLayerJustification,omitempty"`
	Override                Override     `json:"override,omitempty" yaml:"override,omitempty"`
	Files                   []FileChange `json:"files" yaml:"files"`
}

// FileChange is one file of a ChangeSet. It carries a content snapshot, a unit summary, or both.
type FileChange struct {
	Path      string     `json:"path" yaml:"path"`
	Kind      ChangeKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	LineCount int        `json:"lineCount,omitempty" yaml:"lineCount,omitempty"`
	Content   string     `json:"content,omitempty" yaml:"content,omitempty"`
	Imports   []string   `json:"imports,omitempty" yaml:"imports,omitempty"`
	Units     []Unit     `json:"units,omitempty" yaml:"units,omitempty"`
}

// Unit is a class, struct or module extracted from a FileChange.
type Unit struct {
	Name              string      `json:"name" yaml:"name"`
	Path              string      `json:"path,omitempty" yaml:"path,omitempty"`
	Layer             Layer       `json:"layer,omitempty" yaml:"layer,omitempty"`
	Lines             int         `json:"lines,omitempty" yaml:"lines,omitempty"`
	PublicMethods     int         `json:"publicMethods,omitempty" yaml:"publicMethods,omitempty"` // used when Methods is not listed
	Fields            []string    `json:"fields,omitempty" yaml:"fields,omitempty"`
	FieldCount        int         `json:"fieldCount,omitempty" yaml:"fieldCount,omitempty"` // used when Fields is not listed
	Methods           []Method    `json:"methods,omitempty" yaml:"methods,omitempty"`
	Imports           []string    `json:"imports,omitempty" yaml:"imports,omitempty"`
	References        []Reference `json:"references,omitempty" yaml:"references,omitempty"`
	ParseError        bool        `json:"parseError,omitempty" yaml:"parseError,omitempty"`
	ParseErrorMessage string      `json:"parseErrorMessage,omitempty" yaml:"parseErrorMessage,omitempty"`
	Inconclusive      bool        `json:"inconclusive,omitempty" yaml:"inconclusive,omitempty"` // placeholder left by a timed-out file
}

// Method is a method or function belonging to a Unit.
type Method struct {
	Name          string   `json:"name" yaml:"name"`
	Private       bool     `json:"private,omitempty" yaml:"private,omitempty"`
	Lines         int      `json:"lines,omitempty" yaml:"lines,omitempty"`
	NestingDepth  int      `json:"nestingDepth,omitempty" yaml:"nestingDepth,omitempty"`
	LogicalBlocks int      `json:"logicalBlocks,omitempty" yaml:"logicalBlocks,omitempty"`
	Params        []Param  `json:"params,omitempty" yaml:"params,omitempty"`
	FieldsTouched []string `json:"fieldsTouched,omitempty" yaml:"fieldsTouched,omitempty"`
}

// Param is a method parameter.
type Param struct {
	Name string `json:"name,omitempty" yaml:"name,omitempty"`
	Type string `json:"type" yaml:"type"`
}

// Reference is a symbol use inside a unit that may resolve to another unit.
type Reference struct {
	Target string   `json:"target" yaml:"target"`
	Kind   EdgeKind `json:"kind" yaml:"kind"`
	Field  string   `json:"field,omitempty" yaml:"field,omitempty"`
}

// UnitMetrics are the structural metrics of one unit.
type UnitMetrics struct {
	Lines         int `json:"lines"`
	PublicMethods int `json:"publicMethods"`
	Fields        int `json:"fields"`
	NestingDepth  int `json:"nestingDepth"`  // max over methods
	LogicalBlocks int `json:"logicalBlocks"` // max over methods
}

// DependencyEdge is a directed dependency between two units.
type DependencyEdge struct {
	Source      string   `json:"source"`
	Target      string   `json:"target"`
	SourcePath  string   `json:"sourcePath,omitempty"`
	TargetPath  string   `json:"targetPath,omitempty"`
	SourceLayer Layer    `json:"sourceLayer"`
	TargetLayer Layer    `json:"targetLayer,omitempty"`
	Kind        EdgeKind `json:"kind"`
	Field       string   `json:"field,omitempty"`
	External    bool     `json:"external,omitempty"`
}

// PublicMethodCount returns the number of public methods, falling back to the declared count.
func (u Unit) PublicMethodCount() int {
	if len(u.Methods) == 0 {
		return u.PublicMethods
	}
	n := 0
	for _, m := range u.Methods {
		if !m.Private {
			n++
		}
	}
	return n
}

// FieldTotal returns the number of fields, falling back to the declared count.
func (u Unit) FieldTotal() int {
	if len(u.Fields) == 0 {
		return u.FieldCount
	}
	return len(u.Fields)
}
