package schema

// Custom string types for type safety.
type (
	// OutputMode represents the format of the output.
	OutputMode string

	// DatabaseBackend represents the database backend for caching and history.
	DatabaseBackend string

	// Layer represents one tier of the layered architecture.
	Layer string

	// ChangeKind represents the diff kind of a FileChange.
	ChangeKind string

	// EdgeKind represents how one unit depends on another.
	EdgeKind string

	// Category groups smell types.
	Category string

	// SmellType is one of the eleven smell tags.
	SmellType string

	// RefactorPattern is the remediation recommended for a smell type.
	RefactorPattern string

	// Level is the priority bucket derived from a severity total.
	Level string

	// Override marks a ChangeSet that asks for an exemption from shotgun-surgery gating.
	Override string

	// WarningKind classifies recoverable analysis problems.
	WarningKind string
)

// All output modes supported.
const (
	TextOut     OutputMode = "text" // default
	JSONOut     OutputMode = "json"
	CSVOut      OutputMode = "csv"
	MarkdownOut OutputMode = "markdown"
	SARIFOut    OutputMode = "sarif"
)

// All database backends supported.
const (
	SQLiteBackend     DatabaseBackend = "sqlite" // default
	MySQLBackend      DatabaseBackend = "mysql"
	PostgreSQLBackend DatabaseBackend = "postgresql"
	NoneBackend       DatabaseBackend = "none"
)

// All layers, ordered from the outermost tier inwards.
const (
	UILayer              Layer = "ui"
	BehaviorLayer        Layer = "behavior"
	UseCaseLayer         Layer = "use_case"
	DomainInterfaceLayer Layer = "domain_interface"
	DomainLayer          Layer = "domain"
	UnknownLayer         Layer = "unknown"
)

// All change kinds supported.
const (
	Added    ChangeKind = "added"
	Modified ChangeKind = "modified" // default
	Deleted  ChangeKind = "deleted"
)

// All dependency edge kinds.
const (
	ImportEdge      EdgeKind = "import"
	CallEdge        EdgeKind = "call"
	FieldAccessEdge EdgeKind = "field-access"
)

// Smell categories.
const (
	CrossLayer        Category = "cross_layer"
	SingleLayer       Category = "single_layer"
	TicketGranularity Category = "ticket_granularity"
)

// The eleven smell types.
const (
	ShotgunSurgery          SmellType = "ShotgunSurgery"
	FeatureEnvy             SmellType = "FeatureEnvy"
	InappropriateIntimacy   SmellType = "InappropriateIntimacy"
	LeakyAbstraction        SmellType = "LeakyAbstraction"
	DivergentChange         SmellType = "DivergentChange"
	LargeClass              SmellType = "LargeClass"
	LongMethod              SmellType = "LongMethod"
	DeadCode                SmellType = "DeadCode"
	GodTicket               SmellType = "GodTicket"
	IncompleteTicket        SmellType = "IncompleteTicket"
	AmbiguousResponsibility SmellType = "AmbiguousResponsibility"
)

// Refactor patterns recommended per smell type.
const (
	IntroduceFacade        RefactorPattern = "IntroduceFacade"
	ExtractViewModel       RefactorPattern = "ExtractViewModel+MoveMethod"
	DependencyInversion    RefactorPattern = "DependencyInversion"
	ExtractInterface       RefactorPattern = "ExtractInterface"
	ExtractClass           RefactorPattern = "ExtractClass"
	ExtractMethod          RefactorPattern = "ExtractMethod"
	RemoveCode             RefactorPattern = "Remove"
	SplitTicket            RefactorPattern = "SplitTicket"
	CompleteTicketTemplate RefactorPattern = "CompleteTicketTemplate"
	DeclareLayerOwnership  RefactorPattern = "DeclareLayerOwnership"
)

// Priority levels.
const (
	HighLevel   Level = "High"
	MediumLevel Level = "Medium"
	LowLevel    Level = "Low"
)

// Overrides a ChangeSet may declare.
const (
	NoOverride        Override = ""
	HotfixOverride    Override = "hotfix"
	MigrationOverride Override = "migration"
)

// Warning kinds surfaced next to findings.
const (
	ClassificationAmbiguous WarningKind = "ClassificationAmbiguous"
	ParseErrorWarning       WarningKind = "ParseError"
	TimeoutWarning          WarningKind = "TimeoutError"
)

// AllLayers lists the five architecture tiers, outermost first. Unknown is excluded.
var AllLayers = []Layer{UILayer, BehaviorLayer, UseCaseLayer, DomainInterfaceLayer, DomainLayer}

// AllSmellTypes lists the smell types in catalogue order.
var AllSmellTypes = []SmellType{
	ShotgunSurgery, FeatureEnvy, InappropriateIntimacy, LeakyAbstraction,
	DivergentChange, LargeClass, LongMethod, DeadCode,
	GodTicket, IncompleteTicket, AmbiguousResponsibility,
}

// ValidOutputModes lists all valid output modes.
var ValidOutputModes = map[OutputMode]struct{}{
	TextOut:     {},
	JSONOut:     {},
	CSVOut:      {},
	MarkdownOut: {},
	SARIFOut:    {},
}

// ValidDatabaseBackends lists all valid database backends.
var ValidDatabaseBackends = map[DatabaseBackend]struct{}{
	SQLiteBackend:     {},
	MySQLBackend:      {},
	PostgreSQLBackend: {},
	NoneBackend:       {},
}

// ValidLayers lists every layer a rule or declaration may name.
var ValidLayers = map[Layer]struct{}{
	UILayer:              {},
	BehaviorLayer:        {},
	UseCaseLayer:         {},
	DomainInterfaceLayer: {},
	DomainLayer:          {},
	UnknownLayer:         {},
}

// ValidOverrides lists all valid ChangeSet overrides.
var ValidOverrides = map[Override]struct{}{
	NoOverride:        {},
	HotfixOverride:    {},
	MigrationOverride: {},
}

// LayerRank orders layers from outermost (0) to innermost (4). Unknown ranks last.
func LayerRank(l Layer) int {
	for i, candidate := range AllLayers {
		if candidate == l {
			return i
		}
	}
	return len(AllLayers)
}
