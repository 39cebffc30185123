package contract

import (
	"testing"

	"github.com/huangsam/smellscan/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRules(t *testing.T) {
	rules := DefaultRules()

	require.Len(t, rules.LayerRules, 5)
	assert.Equal(t, schema.UILayer, rules.LayerRules[0].Layer)

	// Interface rules must be evaluated before plain domain rules.
	var ifaceIdx, domainIdx int
	for i, r := range rules.LayerRules {
		switch r.Layer {
		case schema.DomainInterfaceLayer:
			ifaceIdx = i
		case schema.DomainLayer:
			domainIdx = i
		}
	}
	assert.Less(t, ifaceIdx, domainIdx)

	assert.Equal(t, 300, rules.Thresholds.LargeClassLines)
	assert.Equal(t, 4, rules.Thresholds.IntimacyRiskFloor)
	assert.Equal(t, 5, rules.Criticality.Layers[schema.DomainLayer])
	assert.Equal(t, 1, rules.Criticality.Layers[schema.UILayer])
	assert.Contains(t, rules.BannedKeywords, "sql")
	assert.Equal(t, []string{"design", "test", "implementation", "refactor-review"}, rules.PhaseMarkers)
}

func TestRulesClone(t *testing.T) {
	rules := DefaultRules()
	clone := rules.Clone()

	clone.LayerRules[0].Layer = schema.DomainLayer
	clone.PhaseMarkers = append(clone.PhaseMarkers[:0], "only")
	clone.Criticality.Layers[schema.DomainLayer] = 1

	assert.Equal(t, schema.UILayer, rules.LayerRules[0].Layer)
	assert.Equal(t, "design", rules.PhaseMarkers[0])
	assert.Equal(t, 5, rules.Criticality.Layers[schema.DomainLayer])
}

func TestIsTestFileDefaults(t *testing.T) {
	rules := DefaultRules()
	assert.True(t, rules.IsTestFile("test/domain/user_test.dart"))
	assert.False(t, rules.IsTestFile("lib/domain/entities/user.dart"))
}
