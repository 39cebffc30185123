package schema

// SmellInfo describes one entry of the smell catalogue.
type SmellInfo struct {
	Code     string          `json:"code"`
	Type     SmellType       `json:"smellType"`
	Category Category        `json:"category"`
	Pattern  RefactorPattern `json:"recommendedPattern"`
	Trigger  string          `json:"trigger"`
}

// SmellCatalogue is the static smell table, in catalogue order.
var SmellCatalogue = []SmellInfo{
	{"A1", ShotgunSurgery, CrossLayer, IntroduceFacade, "files > 10 or layers > 2"},
	{"A2", FeatureEnvy, CrossLayer, ExtractViewModel, "outer unit reads > 3 fields of one domain unit"},
	{"A3", InappropriateIntimacy, CrossLayer, DependencyInversion, "domain depends outwards, or a cycle spans two layers"},
	{"A4", LeakyAbstraction, CrossLayer, ExtractInterface, "domain interface signature names a banned keyword"},
	{"B1", DivergentChange, SingleLayer, ExtractClass, ">= 2 public-method clusters of >= 3 methods over disjoint fields"},
	{"B2", LargeClass, SingleLayer, ExtractClass, "lines > 300 or public methods > 15 or fields > 12"},
	{"B3", LongMethod, SingleLayer, ExtractMethod, "lines > 50 or nesting > 3 or blocks > 4 or compound-verb name"},
	{"B4", DeadCode, SingleLayer, RemoveCode, "reported unused by the static analyzer feed"},
	{"C1", GodTicket, TicketGranularity, SplitTicket, "files > 10 or layers > 2 or estimate > 16h"},
	{"C2", IncompleteTicket, TicketGranularity, CompleteTicketTemplate, "no tests, no acceptance criteria, or a missing phase marker"},
	{"C3", AmbiguousResponsibility, TicketGranularity, DeclareLayerOwnership, "no declared layer, or several layers without justification"},
}

// LookupSmell returns the catalogue entry of a smell type.
func LookupSmell(t SmellType) (SmellInfo, bool) {
	for _, info := range SmellCatalogue {
		if info.Type == t {
			return info, true
		}
	}
	return SmellInfo{}, false
}

// PatternFor returns the refactor pattern recommended for a smell type.
func PatternFor(t SmellType) RefactorPattern {
	info, _ := LookupSmell(t)
	return info.Pattern
}
