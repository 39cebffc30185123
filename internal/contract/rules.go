package contract

import (
	"maps"
	"regexp"
	"slices"
	"time"

	"github.com/huangsam/smellscan/schema"
)

// LayerRule maps a path pattern to a layer. Rules are evaluated in order; the first match wins.
type LayerRule struct {
	Pattern *regexp.Regexp
	Layer   schema.Layer
}

// Thresholds holds every detector limit. A metric must exceed its limit to trigger.
type Thresholds struct {
	ShotgunFiles  int
	ShotgunLayers int

	FeatureEnvyAccesses int

	LargeClassLines         int
	LargeClassPublicMethods int
	LargeClassFields        int

	LongMethodLines   int
	LongMethodNesting int
	LongMethodBlocks  int

	GodTicketFiles  int
	GodTicketLayers int
	GodTicketHours  float64

	IntimacyRiskFloor int
}

// PathCriticality assigns a risk score to every path under a prefix.
type PathCriticality struct {
	Prefix string
	Risk   int
}

// Criticality is the feature-criticality map used by the risk rubric.
type Criticality struct {
	Layers map[schema.Layer]int
	Paths  []PathCriticality
}

// Clustering tunes the divergent-change clustering.
type Clustering struct {
	Distance       float64 // methods closer than this join one cluster
	MinClusters    int
	MinClusterSize int
}

// Rules is the read-only rule set shared by every worker during a scan.
type Rules struct {
	LayerRules     []LayerRule
	DefaultLayer   schema.Layer // empty means Unknown
	Thresholds     Thresholds
	BannedKeywords []string
	CompoundVerbs  []string
	PhaseMarkers   []string
	TestPatterns   []*regexp.Regexp
	Criticality    Criticality
	Clustering     Clustering
	HistoryWindow  time.Duration
}

// Default rule values.
const (
	DefaultClusterDistance   = 0.7
	DefaultMinClusters       = 2
	DefaultMinClusterSize    = 3
	DefaultHistoryWindow     = 90 * 24 * time.Hour
	DefaultIntimacyRiskFloor = 4
)

// DefaultLayerPatterns lists the built-in classification rules in evaluation order.
// Interface rules come before domain rules so contracts are not swallowed by the domain layer.
var DefaultLayerPatterns = []struct {
	Pattern string
	Layer   schema.Layer
}{
	{`presentation/(widgets|pages)/|/ui/|^ui/`, schema.UILayer},
	{`presentation/(bloc|cubit|controllers|view_models?|providers)/|/behavior/|^behavior/`, schema.BehaviorLayer},
	{`domain/.*interface|domain/(repositories|contracts|ports)/`, schema.DomainInterfaceLayer},
	{`domain/(entities|value_objects)/`, schema.DomainLayer},
	{`application/use_cases/|/use_?cases?/|^use_?cases?/`, schema.UseCaseLayer},
}

// DefaultBannedKeywords are tokens that reveal storage or transport technology.
var DefaultBannedKeywords = []string{
	"sql", "sqlite", "mysql", "postgres", "mongo", "redis", "hive", "firebase", "firestore",
	"http", "https", "rest", "grpc", "graphql", "json", "xml", "dio", "retrofit", "socket",
	"websocket", "kafka", "dto", "orm", "cursor", "s3",
}

// DefaultCompoundVerbs are conjunctions that mark a method name as doing several things.
var DefaultCompoundVerbs = []string{"and", "or", "then"}

// DefaultPhaseMarkers are the lifecycle phases every ticket has to declare.
var DefaultPhaseMarkers = []string{"design", "test", "implementation", "refactor-review"}

// DefaultLayerRisk is the risk rubric per layer, from UI polish (1) to core data consistency (5).
var DefaultLayerRisk = map[schema.Layer]int{
	schema.UILayer:              1,
	schema.BehaviorLayer:        2,
	schema.UseCaseLayer:         3,
	schema.DomainInterfaceLayer: 4,
	schema.DomainLayer:          5,
	schema.UnknownLayer:         3,
}

// DefaultThresholds returns the stock detector limits.
func DefaultThresholds() Thresholds {
	return Thresholds{
		ShotgunFiles:            10,
		ShotgunLayers:           2,
		FeatureEnvyAccesses:     3,
		LargeClassLines:         300,
		LargeClassPublicMethods: 15,
		LargeClassFields:        12,
		LongMethodLines:         50,
		LongMethodNesting:       3,
		LongMethodBlocks:        4,
		GodTicketFiles:          10,
		GodTicketLayers:         2,
		GodTicketHours:          16,
		IntimacyRiskFloor:       DefaultIntimacyRiskFloor,
	}
}

// DefaultRules returns the built-in rule set.
func DefaultRules() Rules {
	layerRules := make([]LayerRule, 0, len(DefaultLayerPatterns))
	for _, p := range DefaultLayerPatterns {
		layerRules = append(layerRules, LayerRule{Pattern: regexp.MustCompile(p.Pattern), Layer: p.Layer})
	}
	risk := make(map[schema.Layer]int, len(DefaultLayerRisk))
	maps.Copy(risk, DefaultLayerRisk)
	return Rules{
		LayerRules:     layerRules,
		Thresholds:     DefaultThresholds(),
		BannedKeywords: slices.Clone(DefaultBannedKeywords),
		CompoundVerbs:  slices.Clone(DefaultCompoundVerbs),
		PhaseMarkers:   slices.Clone(DefaultPhaseMarkers),
		Criticality:    Criticality{Layers: risk},
		Clustering: Clustering{
			Distance:       DefaultClusterDistance,
			MinClusters:    DefaultMinClusters,
			MinClusterSize: DefaultMinClusterSize,
		},
		HistoryWindow: DefaultHistoryWindow,
	}
}

// Clone returns a copy whose slices and maps can be changed independently.
// Compiled patterns are immutable and shared.
func (r Rules) Clone() Rules {
	clone := r
	clone.LayerRules = slices.Clone(r.LayerRules)
	clone.BannedKeywords = slices.Clone(r.BannedKeywords)
	clone.CompoundVerbs = slices.Clone(r.CompoundVerbs)
	clone.PhaseMarkers = slices.Clone(r.PhaseMarkers)
	clone.TestPatterns = slices.Clone(r.TestPatterns)
	clone.Criticality.Paths = slices.Clone(r.Criticality.Paths)
	if r.Criticality.Layers != nil {
		clone.Criticality.Layers = make(map[schema.Layer]int, len(r.Criticality.Layers))
		maps.Copy(clone.Criticality.Layers, r.Criticality.Layers)
	}
	return clone
}

// IsTestFile reports whether a path is a test file under the configured patterns,
// falling back to the common naming conventions.
func (r Rules) IsTestFile(path string) bool {
	if len(r.TestPatterns) == 0 {
		return schema.IsTestPath(path)
	}
	for _, p := range r.TestPatterns {
		if p.MatchString(path) {
			return true
		}
	}
	return false
}
