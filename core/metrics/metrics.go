// Package metrics extracts units from file changes and computes their structural metrics.
package metrics

import "github.com/huangsam/smellscan/schema"

// Collect computes the structural metrics of a unit.
// Lines falls back to the sum of method lines when the unit does not declare a size.
func Collect(u schema.Unit) schema.UnitMetrics {
	m := schema.UnitMetrics{
		Lines:         u.Lines,
		PublicMethods: u.PublicMethodCount(),
		Fields:        u.FieldTotal(),
	}
	sum := 0
	for _, method := range u.Methods {
		sum += method.Lines
		m.NestingDepth = max(m.NestingDepth, method.NestingDepth)
		m.LogicalBlocks = max(m.LogicalBlocks, method.LogicalBlocks)
	}
	if m.Lines == 0 {
		m.Lines = sum
	}
	return m
}

// Analyzable reports whether a unit can feed the metric-dependent detectors.
func Analyzable(u schema.Unit) bool {
	return !u.ParseError && !u.Inconclusive
}
