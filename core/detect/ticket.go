package detect

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// acceptanceHeadingRe finds an acceptance-criteria heading inside a ticket description.
var acceptanceHeadingRe = regexp.MustCompile(`(?im)^\s{0,3}#{1,6}\s*acceptance[\s_-]*criteria\b`)

// --- C1. God ticket ---

type godTicket struct {
	limits contract.Thresholds
}

func (d *godTicket) Type() schema.SmellType { return schema.GodTicket }

func (d *godTicket) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	layers := knownLayers(in.Files)
	var evidence []schema.Evidence
	if n := len(in.Files); n > d.limits.GodTicketFiles {
		evidence = append(evidence, breach("files", float64(n), float64(d.limits.GodTicketFiles), "%.0f files > %.0f"))
	}
	if n := len(layers); n > d.limits.GodTicketLayers {
		evidence = append(evidence, breach("layerSpan", float64(n), float64(d.limits.GodTicketLayers), "%.0f layers > %.0f"))
	}
	if h := in.ChangeSet.EstimatedHours; h != nil && *h > d.limits.GodTicketHours {
		evidence = append(evidence, breach("estimatedHours", *h, d.limits.GodTicketHours, "estimate %.1fh > %.1fh"))
	}
	if len(evidence) == 0 {
		return nil, nil
	}
	f := newFinding(schema.GodTicket, in.ChangeSet.ID, paths(in.Files), evidence...)
	f.Layers = layers
	return []schema.Finding{f}, nil
}

// --- C2. Incomplete ticket ---

type incompleteTicket struct {
	phases []string
}

func (d *incompleteTicket) Type() schema.SmellType { return schema.IncompleteTicket }

func (d *incompleteTicket) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cs := in.ChangeSet
	var evidence []schema.Evidence

	hasTest := false
	for _, f := range in.Files {
		if f.Test && f.Kind != schema.Deleted {
			hasTest = true
			break
		}
	}
	if !hasTest {
		evidence = append(evidence, schema.Evidence{Kind: "tests", Detail: "no test file in the change set"})
	}

	if strings.TrimSpace(cs.AcceptanceCriteria) == "" && !acceptanceHeadingRe.MatchString(cs.Description) {
		evidence = append(evidence, schema.Evidence{Kind: "acceptanceCriteria", Detail: "no acceptance criteria section"})
	}

	declared := map[string]bool{}
	for _, p := range cs.PhaseMarkers {
		declared[normalizePhase(p)] = true
	}
	var missing []string
	for _, p := range d.phases {
		if !declared[normalizePhase(p)] {
			missing = append(missing, p)
		}
	}
	if len(missing) > 0 {
		evidence = append(evidence, schema.Evidence{
			Kind:   "phaseMarkers",
			Detail: fmt.Sprintf("missing phase markers: %s", strings.Join(missing, ", ")),
			Items:  missing,
			Value:  float64(len(missing)),
			Limit:  float64(len(d.phases)),
		})
	}

	if len(evidence) == 0 {
		return nil, nil
	}
	f := newFinding(schema.IncompleteTicket, cs.ID, paths(in.Files), evidence...)
	f.Layers = knownLayers(in.Files)
	return []schema.Finding{f}, nil
}

// normalizePhase makes "Refactor Review" and "refactor_review" equal to "refactor-review".
func normalizePhase(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	return strings.NewReplacer(" ", "-", "_", "-").Replace(p)
}

// --- C3. Ambiguous responsibility ---

type ambiguousResponsibility struct{}

func (d *ambiguousResponsibility) Type() schema.SmellType { return schema.AmbiguousResponsibility }

func (d *ambiguousResponsibility) Detect(ctx context.Context, in *Input) ([]schema.Finding, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cs := in.ChangeSet
	layers := knownLayers(in.Files)
	var evidence []schema.Evidence

	if cs.DeclaredLayer == "" || cs.DeclaredLayer == schema.UnknownLayer {
		evidence = append(evidence, schema.Evidence{Kind: "declaredLayer", Detail: "no declared layer"})
	}
	if len(layers) > 1 && strings.TrimSpace(cs.MultiLayerJustification) == "" {
		names := make([]string, 0, len(layers))
		for _, l := range layers {
			names = append(names, string(l))
		}
		evidence = append(evidence, schema.Evidence{
			Kind:   "layerSpan",
			Detail: fmt.Sprintf("spans %d layers without a multi-layer justification", len(layers)),
			Items:  names,
			Value:  float64(len(layers)),
			Limit:  1,
		})
	}

	if len(evidence) == 0 {
		return nil, nil
	}
	f := newFinding(schema.AmbiguousResponsibility, cs.ID, paths(in.Files), evidence...)
	f.Layers = layers
	return []schema.Finding{f}, nil
}
