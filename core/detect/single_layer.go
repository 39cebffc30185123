package detect

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/smellscan/core/algo"
	"github.com/huangsam/smellscan/core/metrics"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// --- B1. Divergent change ---

type divergentChange struct {
	clustering contract.Clustering
}

func (d *divergentChange) Type() schema.SmellType { return schema.DivergentChange }

func (d *divergentChange) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	var out []schema.Finding
	for _, u := range in.Graph.Units() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !analyzable(u) {
			continue
		}
		var names []string
		var sets [][]string
		for _, m := range u.Methods {
			if m.Private {
				continue
			}
			names = append(names, m.Name)
			sets = append(sets, m.FieldsTouched)
		}
		if len(names) < d.clustering.MinClusters*d.clustering.MinClusterSize {
			continue
		}

		var evidence []schema.Evidence
		for _, cluster := range algo.ClusterSingleLinkage(sets, d.clustering.Distance) {
			if len(cluster) < d.clustering.MinClusterSize {
				continue
			}
			var members, fields []string
			for _, i := range cluster {
				members = append(members, names[i])
				for _, field := range sets[i] {
					if !slices.Contains(fields, field) {
						fields = append(fields, field)
					}
				}
			}
			evidence = append(evidence, schema.Evidence{
				Kind:   "cluster",
				Detail: fmt.Sprintf("%d methods over fields %s", len(members), strings.Join(fields, ", ")),
				Path:   u.Path,
				Layer:  u.Layer,
				Items:  members,
				Value:  float64(len(members)),
			})
		}
		if len(evidence) < d.clustering.MinClusters {
			continue
		}
		f := newFinding(schema.DivergentChange, u.Name, []string{u.Path}, evidence...)
		f.Layers = []schema.Layer{u.Layer}
		out = append(out, f)
	}
	return out, nil
}

// --- B2. Large class ---

type largeClass struct {
	limits contract.Thresholds
}

func (d *largeClass) Type() schema.SmellType { return schema.LargeClass }

func (d *largeClass) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	var out []schema.Finding
	for _, u := range in.Graph.Units() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !analyzable(u) {
			continue
		}
		m := metrics.Collect(u)
		var evidence []schema.Evidence
		if m.Lines > d.limits.LargeClassLines {
			evidence = append(evidence, breach("lines", float64(m.Lines), float64(d.limits.LargeClassLines), "lines %.0f > %.0f"))
		}
		if m.PublicMethods > d.limits.LargeClassPublicMethods {
			evidence = append(evidence, breach("publicMethods", float64(m.PublicMethods), float64(d.limits.LargeClassPublicMethods), "public methods %.0f > %.0f"))
		}
		if m.Fields > d.limits.LargeClassFields {
			evidence = append(evidence, breach("fields", float64(m.Fields), float64(d.limits.LargeClassFields), "fields %.0f > %.0f"))
		}
		if len(evidence) == 0 {
			continue
		}
		f := newFinding(schema.LargeClass, u.Name, []string{u.Path}, evidence...)
		f.Layers = []schema.Layer{u.Layer}
		out = append(out, f)
	}
	return out, nil
}

// --- B3. Long method ---

type longMethod struct {
	limits      contract.Thresholds
	connectives []string
}

func (d *longMethod) Type() schema.SmellType { return schema.LongMethod }

func (d *longMethod) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	var out []schema.Finding
	for _, u := range in.Graph.Units() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !analyzable(u) {
			continue
		}
		for _, m := range u.Methods {
			var evidence []schema.Evidence
			if m.Lines > d.limits.LongMethodLines {
				evidence = append(evidence, breach("methodLines", float64(m.Lines), float64(d.limits.LongMethodLines), "lines %.0f > %.0f"))
			}
			if m.NestingDepth > d.limits.LongMethodNesting {
				evidence = append(evidence, breach("nestingDepth", float64(m.NestingDepth), float64(d.limits.LongMethodNesting), "nesting depth %.0f > %.0f"))
			}
			if m.LogicalBlocks > d.limits.LongMethodBlocks {
				evidence = append(evidence, breach("logicalBlocks", float64(m.LogicalBlocks), float64(d.limits.LongMethodBlocks), "logical blocks %.0f > %.0f"))
			}
			if algo.IsCompoundName(m.Name, d.connectives) {
				evidence = append(evidence, schema.Evidence{
					Kind:   "compoundName",
					Detail: fmt.Sprintf("name %q joins several actions", m.Name),
					Items:  algo.SplitIdentifier(m.Name),
				})
			}
			if len(evidence) == 0 {
				continue
			}
			for i := range evidence {
				evidence[i].Path = u.Path
				evidence[i].Layer = u.Layer
			}
			f := newFinding(schema.LongMethod, u.Name+"."+m.Name, []string{u.Path}, evidence...)
			f.Layers = []schema.Layer{u.Layer}
			out = append(out, f)
		}
	}
	return out, nil
}

// --- B4. Dead code ---

type deadCode struct{}

func (d *deadCode) Type() schema.SmellType { return schema.DeadCode }

func (d *deadCode) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	live := map[string]schema.Layer{}
	for _, f := range in.Files {
		if f.Kind != schema.Deleted {
			live[f.Path] = f.Layer
		}
	}

	var out []schema.Finding
	for _, sym := range in.Feeds.Unused {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		layer, ok := live[sym.Path]
		if !ok {
			continue
		}
		detail := fmt.Sprintf("%s is reported unused by the static analyzer", sym.Symbol)
		if sym.Line > 0 {
			detail = fmt.Sprintf("%s (line %d) is reported unused by the static analyzer", sym.Symbol, sym.Line)
		}
		evidence := []schema.Evidence{{Kind: "unused", Detail: detail, Path: sym.Path, Layer: layer}}
		if pct, found := coverageOf(in.Feeds.Coverage, sym.Path, unitOf(sym.Symbol)); found && pct == 0 {
			evidence = append(evidence, schema.Evidence{
				Kind:   "coverage",
				Detail: "0% coverage confirms no caller",
				Path:   sym.Path,
				Layer:  layer,
			})
		}
		f := newFinding(schema.DeadCode, sym.Symbol, []string{sym.Path}, evidence...)
		f.Layers = []schema.Layer{layer}
		out = append(out, f)
	}
	return out, nil
}

// Untested lists the units with zero coverage that the unused-symbol feed does not flag.
// They are merely untested, not dead.
func Untested(in *Input) []schema.UntestedUnit {
	var out []schema.UntestedUnit
	for _, u := range in.Graph.Units() {
		pct, ok := coverageOf(in.Feeds.Coverage, u.Path, u.Name)
		if !ok || pct > 0 || flaggedUnused(in.Feeds.Unused, u) {
			continue
		}
		out = append(out, schema.UntestedUnit{Unit: u.Name, Path: u.Path, Layer: u.Layer})
	}
	return out
}

// Coverage summarizes the coverage feed over the units of the graph.
// It returns nil when the feed is empty.
func Coverage(in *Input) *schema.CoverageSnapshot {
	if len(in.Feeds.Coverage) == 0 {
		return nil
	}
	snap := &schema.CoverageSnapshot{}
	var sum float64
	for _, u := range in.Graph.Units() {
		pct, ok := coverageOf(in.Feeds.Coverage, u.Path, u.Name)
		if !ok {
			continue
		}
		if pct > 0 {
			snap.UnitsCovered++
		} else {
			snap.UnitsUncovered++
		}
		sum += pct
	}
	if n := snap.UnitsCovered + snap.UnitsUncovered; n > 0 {
		snap.MeanPercent = sum / float64(n)
	}
	return snap
}

// coverageOf prefers a unit-level entry and falls back to the file-level one.
func coverageOf(entries []schema.CoverageEntry, path, unit string) (float64, bool) {
	fileLevel, haveFile := 0.0, false
	for _, e := range entries {
		if e.Path != path {
			continue
		}
		switch e.Unit {
		case unit:
			if unit != "" {
				return e.Percent, true
			}
			fileLevel, haveFile = e.Percent, true
		case "":
			fileLevel, haveFile = e.Percent, true
		}
	}
	return fileLevel, haveFile
}

func flaggedUnused(unused []schema.UnusedSymbol, u schema.Unit) bool {
	for _, sym := range unused {
		if sym.Path == u.Path && (sym.Symbol == u.Name || strings.HasPrefix(sym.Symbol, u.Name+".")) {
			return true
		}
	}
	return false
}

// unitOf returns the unit part of a Unit.member symbol.
func unitOf(symbol string) string {
	if i := strings.Index(symbol, "."); i > 0 {
		return symbol[:i]
	}
	return symbol
}

