package outwriter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/huangsam/smellscan/internal/contract"
	"github.com/huangsam/smellscan/schema"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
)

// WriteReport outputs a scan report, dispatching based on the output format configured.
func WriteReport(report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	switch cfg.Output {
	case schema.JSONOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeJSON(w, report)
		}, "Wrote JSON"); err != nil {
			return fmt.Errorf("error writing JSON output: %w", err)
		}
	case schema.CSVOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportCSV(w, report)
		}, "Wrote CSV"); err != nil {
			return fmt.Errorf("error writing CSV output: %w", err)
		}
	case schema.MarkdownOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportMarkdown(w, report, cfg)
		}, "Wrote Markdown"); err != nil {
			return fmt.Errorf("error writing Markdown output: %w", err)
		}
	case schema.SARIFOut:
		if err := writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportSARIF(w, report)
		}, "Wrote SARIF"); err != nil {
			return fmt.Errorf("error writing SARIF output: %w", err)
		}
	default:
		return writeWithFile(cfg.OutputFile, func(w io.Writer) error {
			return writeReportTable(w, report, cfg, duration)
		}, "Wrote table")
	}
	return nil
}

// writeReportTable generates and writes the human-readable table.
func writeReportTable(w io.Writer, report *schema.Report, cfg *contract.Config, duration time.Duration) error {
	if len(report.Findings) == 0 {
		if _, err := fmt.Fprintln(w, "No smells found."); err != nil {
			return err
		}
	} else {
		table := tablewriter.NewWriter(w)
		table.Header([]string{"Rank", "Level", "Total", "I/R/V", "Smell", "Subject", "Layers", "Pattern"})
		table.Configure(func(cfg *tablewriter.Config) {
			cfg.Row.Alignment.Global = tw.AlignRight
		})

		pathWidth := GetMaxTablePathWidth(cfg)
		var data [][]string
		for i, f := range report.Findings {
			info, _ := schema.LookupSmell(f.SmellType)
			data = append(data, []string{
				strconv.Itoa(i + 1),
				levelLabel(f.Severity.Level, cfg.UseColors),
				strconv.Itoa(f.Severity.Total),
				formatSubScores(f.Severity),
				fmt.Sprintf("%s %s", info.Code, f.SmellType),
				contract.TruncatePath(findingSubject(f), pathWidth),
				formatLayers(f.Layers),
				string(f.RecommendedPattern),
			})
		}
		if err := table.Bulk(data); err != nil {
			return err
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	if err := writeWarningLines(w, report.Warnings, cfg.UseColors); err != nil {
		return err
	}

	s := report.Summary
	if _, err := fmt.Fprintf(w, "Findings: %d high, %d medium, %d low (files: %d, units: %d, unclassified: %d)\n",
		s.HighCount, s.MediumCount, s.LowCount, s.TotalFiles, s.TotalUnits, s.UnclassifiedFileCount); err != nil {
		return err
	}
	if report.Incomplete {
		if _, err := fmt.Fprintln(w, contract.WarnColor.Sprint("Report is incomplete: the scan ran out of time.")); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "Scan completed in %v with %d workers. Cache backend: %s\n", duration, cfg.Workers, cfg.CacheBackend); err != nil {
		return err
	}
	return nil
}

// writeWarningLines prints one line per analysis warning.
func writeWarningLines(w io.Writer, warnings []schema.AnalysisWarning, useColors bool) error {
	for _, warn := range warnings {
		kind := string(warn.Kind)
		if useColors {
			kind = contract.WarnColor.Sprint(kind)
		}
		if _, err := fmt.Fprintf(w, "⚠️  %s %s: %s\n", kind, warn.Path, warn.Message); err != nil {
			return err
		}
	}
	return nil
}

// levelLabel colors the level only when colors are enabled.
func levelLabel(level schema.Level, useColors bool) string {
	if useColors {
		return contract.GetColorLabel(level)
	}
	return contract.GetPlainLabel(level)
}

// writeReportCSV writes one row per finding.
func writeReportCSV(w io.Writer, report *schema.Report) error {
	header := []string{
		"rank",
		"changeset_id",
		"code",
		"smell_type",
		"category",
		"level",
		"total",
		"impact",
		"risk",
		"velocity",
		"unit",
		"area",
		"files",
		"layers",
		"pattern",
		"evidence",
	}
	return writeCSVWithHeader(w, header, func(cw *csv.Writer) error {
		for i, f := range report.Findings {
			info, _ := schema.LookupSmell(f.SmellType)
			rec := []string{
				strconv.Itoa(i + 1),
				report.ChangeSetID,
				info.Code,
				string(f.SmellType),
				string(f.Category),
				contract.GetPlainLabel(f.Severity.Level),
				strconv.Itoa(f.Severity.Total),
				strconv.Itoa(f.Severity.Impact),
				strconv.Itoa(f.Severity.Risk),
				strconv.Itoa(f.Severity.Velocity),
				f.Unit,
				f.Area,
				strings.Join(f.Files, "|"),
				formatLayersPlain(f.Layers),
				string(f.RecommendedPattern),
				evidenceSummary(f),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
		return nil
	})
}

func formatLayersPlain(layers []schema.Layer) string {
	parts := make([]string, len(layers))
	for i, l := range layers {
		parts[i] = string(l)
	}
	return strings.Join(parts, "|")
}
