package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"

	"cio-consistency/internal/analysis"
)

// Report output formats.
const (
	FormatTable    = "table"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

// Report prints the analysis of one day.
func (a *App) Report(ctx context.Context, opts ReportOptions) error {
	w, err := a.wire(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer w.closeAll()

	report, err := w.service.Report(ctx, a.resolveDay(opts.Day))
	if err != nil {
		return err
	}
	return RenderReport(os.Stdout, report, opts.Format, opts.Pretty)
}

// RenderReport writes report to out in the requested format.
func RenderReport(out io.Writer, report analysis.Report, format string, pretty bool) error {
	switch strings.ToLower(format) {
	case "", FormatTable:
		return writeTable(out, report)
	case FormatJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case FormatMarkdown:
		md := BuildMarkdown(report)
		if !pretty {
			_, err := io.WriteString(out, md)
			return err
		}
		rendered, err := renderMarkdown(md)
		if err != nil {
			return err
		}
		_, err = io.WriteString(out, rendered)
		return err
	default:
		return fmt.Errorf("unknown format %q (want table, json or markdown)", format)
	}
}

func renderMarkdown(md string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", fmt.Errorf("build markdown renderer: %w", err)
	}
	return renderer.Render(md)
}

func writeTable(out io.Writer, report analysis.Report) error {
	if report.Empty() {
		_, err := fmt.Fprintf(out, "no decisions for %s\n", report.Window.Label())
		return err
	}
	m := report.Metrics

	fmt.Fprintf(out, "Day %s: %d decisions across %d assets\n", report.Window.Label(), report.DecisionCount, m.TotalAssetCount)
	fmt.Fprintf(out, "Overall consistency %d (%s), mean changes %.2f, rapid-change assets %d\n\n",
		m.OverallScore, m.Rating, m.MeanChangeCount, m.RapidChangeAssetCount)

	writer := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Asset\tChanges\tMean%\tStdDev\tMin%\tMax%\tRange\tRapid\tScore")
	for _, info := range m.PerAsset {
		fmt.Fprintf(
			writer,
			"%s\t%d\t%.2f\t%.2f\t%.2f\t%.2f\t%.2f\t%s\t%d\n",
			info.AssetID,
			info.ChangeCount,
			info.MeanWeight,
			info.WeightStdDev,
			info.MinWeight,
			info.MaxWeight,
			info.WeightRange,
			yesNo(info.RapidChange),
			info.ConsistencyScore,
		)
	}
	if err := writer.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(out)
	if len(report.WeightGaps) == 0 {
		_, err := fmt.Fprintln(out, "no active holdings to compare")
		return err
	}

	writer = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Asset\tTarget%\tCurrent%\tGap\tGap%\tState\tRationale")
	for _, gap := range report.WeightGaps {
		fmt.Fprintf(
			writer,
			"%s\t%.2f\t%.2f\t%+.2f\t%+.1f\t%s\t%s\n",
			gap.AssetID,
			gap.TargetWeight,
			gap.CurrentWeight,
			gap.Gap,
			gap.GapRatio,
			gap.State,
			sanitizeInline(gap.Rationale),
		)
	}
	return writer.Flush()
}

// BuildMarkdown renders report as a markdown document.
func BuildMarkdown(report analysis.Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Decision consistency %s\n\n", report.Window.Label())

	if report.Empty() {
		b.WriteString("_No decisions recorded for this day._\n")
		return b.String()
	}
	m := report.Metrics

	fmt.Fprintf(&b, "**Overall score:** %d (%s)  \n", m.OverallScore, m.Rating)
	fmt.Fprintf(&b, "**Decisions:** %d across %d assets  \n", report.DecisionCount, m.TotalAssetCount)
	fmt.Fprintf(&b, "**Mean changes per asset:** %.2f  \n", m.MeanChangeCount)
	fmt.Fprintf(&b, "**Rapid-change assets:** %d\n\n", m.RapidChangeAssetCount)

	b.WriteString("## Consistency by asset\n\n")
	b.WriteString("| Asset | Changes | Mean % | Std dev | Range | Rapid | Score |\n")
	b.WriteString("|---|---:|---:|---:|---:|:---:|---:|\n")
	for _, info := range m.PerAsset {
		fmt.Fprintf(&b, "| %s | %d | %.2f | %.2f | %.2f | %s | %d |\n",
			escapeCell(info.AssetID), info.ChangeCount, info.MeanWeight, info.WeightStdDev,
			info.WeightRange, yesNo(info.RapidChange), info.ConsistencyScore)
	}

	b.WriteString("\n## Weight gaps (active holdings)\n\n")
	if len(report.WeightGaps) == 0 {
		b.WriteString("_No active holdings._\n")
		return b.String()
	}
	b.WriteString("| Asset | Target % | Current % | Gap | Gap % | State |\n")
	b.WriteString("|---|---:|---:|---:|---:|---|\n")
	for _, gap := range report.WeightGaps {
		fmt.Fprintf(&b, "| %s | %.2f | %.2f | %+.2f | %+.1f | %s |\n",
			escapeCell(gap.AssetID), gap.TargetWeight, gap.CurrentWeight, gap.Gap, gap.GapRatio, gap.State)
	}
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}

func escapeCell(v string) string {
	return strings.ReplaceAll(sanitizeInline(v), "|", "\\|")
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
