package outwriter

import (
	"fmt"
	"io"

	"github.com/huangsam/smellscan/schema"
	"github.com/owenrumney/go-sarif/v2/sarif"
)

const (
	toolName = "smellscan"
	toolURI  = "https://github.com/huangsam/smellscan"
)

// writeReportSARIF writes one rule per smell type and one result per finding.
func writeReportSARIF(w io.Writer, report *schema.Report) error {
	doc, err := buildSARIF(report)
	if err != nil {
		return err
	}
	return doc.PrettyWrite(w)
}

func buildSARIF(report *schema.Report) (*sarif.Report, error) {
	doc, err := sarif.New(sarif.Version210)
	if err != nil {
		return nil, fmt.Errorf("failed to create SARIF report: %w", err)
	}

	run := sarif.NewRunWithInformationURI(toolName, toolURI)
	for _, info := range schema.SmellCatalogue {
		run.AddRule(info.Code).
			WithName(string(info.Type)).
			WithDescription(info.Trigger).
			WithHelpURI(toolURI + "#" + info.Code).
			WithProperties(sarif.Properties{
				"category":           string(info.Category),
				"recommendedPattern": string(info.Pattern),
			})
	}

	for _, f := range report.Findings {
		info, _ := schema.LookupSmell(f.SmellType)
		var locations []*sarif.Location
		for _, p := range f.Files {
			locations = append(locations, sarif.NewLocation().WithPhysicalLocation(
				sarif.NewPhysicalLocation().
					WithArtifactLocation(sarif.NewArtifactLocation().WithUri(p)),
			))
		}
		result := sarif.NewRuleResult(info.Code).
			WithMessage(sarif.NewTextMessage(sarifMessage(f))).
			WithLevel(toSarifLevel(f.Severity.Level)).
			WithLocations(locations)
		props := sarif.NewPropertyBag()
		props.AddString("smellType", string(f.SmellType))
		props.AddInteger("total", f.Severity.Total)
		props.AddInteger("impact", f.Severity.Impact)
		props.AddInteger("risk", f.Severity.Risk)
		props.AddInteger("velocity", f.Severity.Velocity)
		result.AttachPropertyBag(props)
		run.AddResult(result)
	}
	doc.AddRun(run)
	return doc, nil
}

func sarifMessage(f schema.Finding) string {
	msg := fmt.Sprintf("%s in %s", f.SmellType, findingSubject(f))
	if detail := evidenceSummary(f); detail != "" {
		msg += ": " + detail
	}
	return msg + fmt.Sprintf(" (recommended: %s)", f.RecommendedPattern)
}

func toSarifLevel(level schema.Level) string {
	switch level {
	case schema.HighLevel:
		return "error"
	case schema.MediumLevel:
		return "warning"
	default:
		return "note"
	}
}
