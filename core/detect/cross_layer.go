package detect

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/huangsam/smellscan/core/algo"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// --- A1. Shotgun surgery ---

type shotgunSurgery struct {
	limits contract.Thresholds
}

func (d *shotgunSurgery) Type() schema.SmellType { return schema.ShotgunSurgery }

func (d *shotgunSurgery) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	files := len(in.Files)
	layers := knownLayers(in.Files)
	if files <= d.limits.ShotgunFiles && len(layers) <= d.limits.ShotgunLayers {
		return nil, nil
	}

	evidence := []schema.Evidence{
		breach("files", float64(files), float64(d.limits.ShotgunFiles), "%.0f files touched (limit %.0f)"),
		breach("layers", float64(len(layers)), float64(d.limits.ShotgunLayers), "%.0f layers touched (limit %.0f)"),
	}
	for _, layer := range slices.Concat(layers, []schema.Layer{schema.UnknownLayer}) {
		var group []string
		for _, f := range in.Files {
			if f.Layer == layer || layer == schema.UnknownLayer && f.Layer == "" {
				group = append(group, f.Path)
			}
		}
		if len(group) == 0 {
			continue
		}
		evidence = append(evidence, schema.Evidence{
			Kind:   "files-by-layer",
			Detail: fmt.Sprintf("%d files in %s", len(group), layer),
			Layer:  layer,
			Items:  group,
			Value:  float64(len(group)),
		})
	}

	f := newFinding(schema.ShotgunSurgery, "", paths(in.Files), evidence...)
	f.Layers = layers
	if o := in.ChangeSet.Override; o != schema.NoOverride {
		// The exemption is surfaced, never applied silently.
		f.Override = o
		f.Evidence = append(f.Evidence, schema.Evidence{
			Kind:   "override",
			Detail: "override=" + string(o),
		})
	}
	return []schema.Finding{f}, nil
}

// --- A2. Feature envy ---

type featureEnvy struct {
	limits contract.Thresholds
}

func (d *featureEnvy) Type() schema.SmellType { return schema.FeatureEnvy }

type envyPair struct {
	source, sourcePath, target, targetPath string
	sourceLayer                            schema.Layer
}

func (d *featureEnvy) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	accesses := map[envyPair][]string{}
	unnamed := map[envyPair]int{}
	var order []envyPair
	for _, e := range in.Graph.Edges() {
		if e.Kind != schema.FieldAccessEdge || e.TargetLayer != schema.DomainLayer {
			continue
		}
		if e.SourceLayer != schema.UILayer && e.SourceLayer != schema.BehaviorLayer {
			continue
		}
		key := envyPair{e.Source, e.SourcePath, e.Target, e.TargetPath, e.SourceLayer}
		if _, ok := accesses[key]; !ok {
			order = append(order, key)
		}
		field := e.Field
		if field == "" {
			unnamed[key]++
			field = fmt.Sprintf("%s.<unnamed %d>", e.Target, unnamed[key])
		}
		if !slices.Contains(accesses[key], field) {
			accesses[key] = append(accesses[key], field)
		}
	}

	var out []schema.Finding
	for _, key := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fields := accesses[key]
		if len(fields) <= d.limits.FeatureEnvyAccesses {
			continue
		}
		f := newFinding(schema.FeatureEnvy, key.source, []string{key.sourcePath, key.targetPath}, schema.Evidence{
			Kind:   "field-access",
			Detail: fmt.Sprintf("%s reads %d fields of %s (limit %d)", key.source, len(fields), key.target, d.limits.FeatureEnvyAccesses),
			Path:   key.targetPath,
			Layer:  schema.DomainLayer,
			Items:  fields,
			Value:  float64(len(fields)),
			Limit:  float64(d.limits.FeatureEnvyAccesses),
		})
		f.Area = key.sourcePath
		f.Layers = []schema.Layer{key.sourceLayer, schema.DomainLayer}
		out = append(out, f)
	}
	return out, nil
}

// --- A3. Inappropriate intimacy ---

type inappropriateIntimacy struct {
	riskFloor int
}

func (d *inappropriateIntimacy) Type() schema.SmellType { return schema.InappropriateIntimacy }

func (d *inappropriateIntimacy) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	type source struct{ name, path string }
	wrong := map[source][]schema.DependencyEdge{}
	var order []source
	for _, e := range in.Graph.Edges() {
		if e.SourceLayer != schema.DomainLayer {
			continue
		}
		switch e.TargetLayer {
		case schema.UseCaseLayer, schema.BehaviorLayer, schema.UILayer:
		default:
			continue
		}
		key := source{e.Source, e.SourcePath}
		if _, ok := wrong[key]; !ok {
			order = append(order, key)
		}
		wrong[key] = append(wrong[key], e)
	}

	var out []schema.Finding
	for _, key := range order {
		edges := wrong[key]
		files := []string{key.path}
		layers := []schema.Layer{schema.DomainLayer}
		var evidence []schema.Evidence
		for _, e := range edges {
			if !slices.Contains(files, e.TargetPath) {
				files = append(files, e.TargetPath)
			}
			layers = append(layers, e.TargetLayer)
			detail := fmt.Sprintf("%s (%s) -> %s (%s) via %s", e.Source, e.SourceLayer, e.Target, e.TargetLayer, e.Kind)
			if e.Field != "" {
				detail += " " + e.Field
			}
			evidence = append(evidence, schema.Evidence{
				Kind:   "wrong-direction",
				Detail: detail,
				Path:   e.TargetPath,
				Layer:  e.TargetLayer,
			})
		}
		f := newFinding(schema.InappropriateIntimacy, key.name, files, evidence...)
		f.Area = key.path
		f.Layers = schema.DistinctLayers(layers)
		f.RiskFloor = d.riskFloor
		out = append(out, f)
	}

	for _, cycle := range in.Graph.Cycles() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var members, files []string
		var layers []schema.Layer
		for _, key := range cycle {
			u, ok := in.Graph.Unit(key)
			if !ok {
				continue
			}
			members = append(members, fmt.Sprintf("%s (%s)", u.Name, u.Layer))
			if !slices.Contains(files, u.Path) {
				files = append(files, u.Path)
			}
			if u.Layer != schema.UnknownLayer && u.Layer != "" {
				layers = append(layers, u.Layer)
			}
		}
		layers = schema.DistinctLayers(layers)
		if len(layers) < 2 {
			continue
		}
		slices.SortFunc(files, cmp.Compare[string])
		f := newFinding(schema.InappropriateIntimacy, "", files, schema.Evidence{
			Kind:   "cycle",
			Detail: fmt.Sprintf("dependency cycle across %d layers: %s", len(layers), strings.Join(members, " <-> ")),
			Items:  members,
			Value:  float64(len(layers)),
		})
		f.Layers = layers
		f.RiskFloor = d.riskFloor
		out = append(out, f)
	}
	return out, nil
}

// --- A4. Leaky abstraction ---

type leakyAbstraction struct {
	banned []string
}

func (d *leakyAbstraction) Type() schema.SmellType { return schema.LeakyAbstraction }

func (d *leakyAbstraction) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	var out []schema.Finding
	for _, u := range in.Graph.Units() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if u.Layer != schema.DomainInterfaceLayer {
			continue
		}
		var evidence []schema.Evidence
		for _, m := range u.Methods {
			hits := algo.MatchTokens(m.Name, d.banned)
			for _, p := range m.Params {
				for _, kw := range algo.MatchTokens(p.Type, d.banned) {
					if !slices.Contains(hits, kw) {
						hits = append(hits, kw)
					}
				}
			}
			if len(hits) == 0 {
				continue
			}
			evidence = append(evidence, schema.Evidence{
				Kind:   "banned-keyword",
				Detail: signature(u.Name, m),
				Path:   u.Path,
				Layer:  u.Layer,
				Items:  hits,
			})
		}
		if len(evidence) == 0 {
			continue
		}
		f := newFinding(schema.LeakyAbstraction, u.Name, []string{u.Path}, evidence...)
		f.Layers = []schema.Layer{u.Layer}
		out = append(out, f)
	}
	return out, nil
}

// signature renders a method as Unit.method(name Type, ...).
func signature(unit string, m schema.Method) string {
	params := make([]string, 0, len(m.Params))
	for _, p := range m.Params {
		params = append(params, strings.TrimSpace(p.Name+" "+p.Type))
	}
	return fmt.Sprintf("%s.%s(%s)", unit, m.Name, strings.Join(params, ", "))
}
