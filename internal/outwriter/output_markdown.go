package outwriter

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"
	"go.uber.org/zap"
)

// writeReportMarkdown writes the markdown report. On a terminal it is rendered through glamour.
func writeReportMarkdown(w io.Writer, report *schema.Report, cfg *contract.Config) error {
	md := buildMarkdown(report)
	if isTerminal(cfg.OutputFile) {
		md = renderMarkdown(md, cfg.Width)
	}
	_, err := io.WriteString(w, md)
	return err
}

// renderMarkdown styles markdown for the terminal, falling back to the raw text.
func renderMarkdown(md string, width int) string {
	if width <= 0 {
		width = 100
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		contract.Logger().Debug("markdown renderer unavailable", zap.Error(err))
		return md
	}
	rendered, err := renderer.Render(md)
	if err != nil {
		contract.Logger().Debug("markdown render failed", zap.Error(err))
		return md
	}
	return rendered
}

// buildMarkdown lays the report out as a summary table, one section per finding and the warnings.
func buildMarkdown(report *schema.Report) string {
	var b strings.Builder
	s := report.Summary

	fmt.Fprintf(&b, "# Smell report: %s\n\n", report.ChangeSetID)
	if report.Incomplete {
		b.WriteString("> **Incomplete:** the scan ran out of time and some files or detectors are missing.\n\n")
	}
	b.WriteString("| High | Medium | Low | Files | Units | Unclassified | Parse errors | Timeouts |\n")
	b.WriteString("|---:|---:|---:|---:|---:|---:|---:|---:|\n")
	fmt.Fprintf(&b, "| %d | %d | %d | %d | %d | %d | %d | %d |\n\n",
		s.HighCount, s.MediumCount, s.LowCount, s.TotalFiles, s.TotalUnits,
		s.UnclassifiedFileCount, s.ParseErrorCount, s.TimeoutCount)

	if len(report.Findings) == 0 {
		b.WriteString("No smells found.\n")
	} else {
		b.WriteString("## Findings\n\n")
	}
	for i, f := range report.Findings {
		info, _ := schema.LookupSmell(f.SmellType)
		fmt.Fprintf(&b, "### %d. %s %s (%s, %d)\n\n", i+1, info.Code, f.SmellType, f.Severity.Level, f.Severity.Total)
		fmt.Fprintf(&b, "- **Subject:** `%s`\n", findingSubject(f))
		fmt.Fprintf(&b, "- **Category:** %s\n", f.Category)
		if len(f.Layers) > 0 {
			fmt.Fprintf(&b, "- **Layers:** %s\n", formatLayers(f.Layers))
		}
		fmt.Fprintf(&b, "- **Impact/Risk/Velocity:** %s\n", formatSubScores(f.Severity))
		fmt.Fprintf(&b, "- **Recommended pattern:** %s\n", f.RecommendedPattern)
		if f.Override != schema.NoOverride {
			fmt.Fprintf(&b, "- **Override:** %s\n", f.Override)
		}
		b.WriteString("- **Evidence:**\n")
		for _, e := range f.Evidence {
			fmt.Fprintf(&b, "  - %s\n", e.Detail)
		}
		b.WriteString("\n")
	}

	if len(report.Warnings) > 0 {
		b.WriteString("## Warnings\n\n")
		for _, warn := range report.Warnings {
			fmt.Fprintf(&b, "- `%s` %s: %s\n", warn.Kind, warn.Path, warn.Message)
		}
		b.WriteString("\n")
	}

	if len(report.UntestedCode) > 0 {
		b.WriteString("## Untested code\n\n")
		for _, u := range report.UntestedCode {
			fmt.Fprintf(&b, "- `%s` in %s (%s)\n", u.Unit, u.Path, u.Layer)
		}
		b.WriteString("\n")
	}
	if report.Coverage != nil {
		c := report.Coverage
		fmt.Fprintf(&b, "Coverage: %d units covered, %d uncovered, mean %.1f%%\n",
			c.UnitsCovered, c.UnitsUncovered, c.MeanPercent)
	}
	return b.String()
}
