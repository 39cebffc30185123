package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
)

// SmellRow is one catalogue entry with the trigger rendered from the active thresholds.
type SmellRow struct {
	Code     string                 `json:"code"`
	Type     schema.SmellType       `json:"smellType"`
	Category schema.Category        `json:"category"`
	Trigger  string                 `json:"trigger"`
	Pattern  schema.RefactorPattern `json:"recommendedPattern"`
	Enabled  bool                   `json:"enabled"`
}

// SmellsRenderModel is the complete catalogue plus the scoring formula.
type SmellsRenderModel struct {
	Smells  []SmellRow `json:"smells"`
	Formula string     `json:"formula"`
	Levels  string     `json:"levels"`
}

// PrintSmellCatalogue displays every smell type with its trigger and recommended pattern.
// This is a static display that does not require a ChangeSet.
func PrintSmellCatalogue(cfg *contract.Config) error {
	model := BuildSmellsRenderModel(cfg)

	switch cfg.Output {
	case schema.JSONOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, model)
		}, "Wrote JSON")
	case schema.CSVOut:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSmellsCSV(w, model)
		}, "Wrote CSV")
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeSmellsText(w, model)
		}, "Wrote text")
	}
}

// BuildSmellsRenderModel renders the catalogue against the thresholds and skip list of cfg.
func BuildSmellsRenderModel(cfg *contract.Config) *SmellsRenderModel {
	model := &SmellsRenderModel{
		Formula: "Total = Impact*3 + Risk*2 + Velocity",
		Levels:  fmt.Sprintf("High > %d, Medium %d-%d, Low < %d", schema.HighThreshold, schema.MediumThreshold, schema.HighThreshold, schema.MediumThreshold),
	}
	for _, info := range schema.SmellCatalogue {
		model.Smells = append(model.Smells, SmellRow{
			Code:     info.Code,
			Type:     info.Type,
			Category: info.Category,
			Trigger:  triggerFor(info.Type, cfg.Rules),
			Pattern:  info.Pattern,
			Enabled:  !cfg.ShouldSkip(info.Type),
		})
	}
	return model
}

// triggerFor renders the trigger of a smell type with the configured limits.
func triggerFor(smell schema.SmellType, rules contract.Rules) string {
	t := rules.Thresholds
	switch smell {
	case schema.ShotgunSurgery:
		return fmt.Sprintf("files > %d or layers > %d", t.ShotgunFiles, t.ShotgunLayers)
	case schema.FeatureEnvy:
		return fmt.Sprintf("outer unit reads > %d fields of one domain unit", t.FeatureEnvyAccesses)
	case schema.LeakyAbstraction:
		return fmt.Sprintf("domain interface signature names one of: %s", strings.Join(rules.BannedKeywords, ", "))
	case schema.DivergentChange:
		c := rules.Clustering
		return fmt.Sprintf(">= %d public-method clusters of >= %d methods (distance < %.2f)", c.MinClusters, c.MinClusterSize, c.Distance)
	case schema.LargeClass:
		return fmt.Sprintf("lines > %d or public methods > %d or fields > %d", t.LargeClassLines, t.LargeClassPublicMethods, t.LargeClassFields)
	case schema.LongMethod:
		return fmt.Sprintf("lines > %d or nesting > %d or blocks > %d or compound-verb name", t.LongMethodLines, t.LongMethodNesting, t.LongMethodBlocks)
	case schema.GodTicket:
		return fmt.Sprintf("files > %d or layers > %d or estimate > %gh", t.GodTicketFiles, t.GodTicketLayers, t.GodTicketHours)
	default:
		info, _ := schema.LookupSmell(smell)
		return info.Trigger
	}
}

func writeSmellsText(w io.Writer, model *SmellsRenderModel) error {
	if _, err := fmt.Fprintf(w, "🧪 Smell Catalogue\n==================\n\n"); err != nil {
		return err
	}
	var category schema.Category
	for _, s := range model.Smells {
		if s.Category != category {
			category = s.Category
			if _, err := fmt.Fprintf(w, "%s\n", strings.ToUpper(strings.ReplaceAll(string(category), "_", " "))); err != nil {
				return err
			}
		}
		status := ""
		if !s.Enabled {
			status = " (skipped)"
		}
		if _, err := fmt.Fprintf(w, "  %s %s%s\n     Trigger: %s\n     Pattern: %s\n", s.Code, s.Type, status, s.Trigger, s.Pattern); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "\n📐 Priority: %s\n   Levels: %s\n", model.Formula, model.Levels)
	return err
}

func writeSmellsCSV(w io.Writer, model *SmellsRenderModel) error {
	header := []string{"code", "smell_type", "category", "trigger", "pattern", "enabled"}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for _, s := range model.Smells {
			if err := cw.Write([]string{s.Code, string(s.Type), string(s.Category), s.Trigger, string(s.Pattern), fmt.Sprint(s.Enabled)}); err != nil {
				return err
			}
		}
		return nil
	})
}
