package algo

import (
	"sort"

	"github.com/huangsam/smellscan/schema"
)

// LessFinding orders findings by total score descending, then smell type, then first file path.
func LessFinding(a, b schema.Finding) bool {
	if a.Severity.Total != b.Severity.Total {
		return a.Severity.Total > b.Severity.Total
	}
	if a.SmellType != b.SmellType {
		return a.SmellType < b.SmellType
	}
	if a.FirstFile() != b.FirstFile() {
		return a.FirstFile() < b.FirstFile()
	}
	return a.Unit < b.Unit
}

// RankFindings sorts findings by priority and returns the top 'limit' findings.
// A limit of zero or less keeps every finding.
func RankFindings(findings []schema.Finding, limit int) []schema.Finding {
	sort.SliceStable(findings, func(i, j int) bool {
		return LessFinding(findings[i], findings[j])
	})
	if limit > 0 && len(findings) > limit {
		return findings[:limit]
	}
	return findings
}
