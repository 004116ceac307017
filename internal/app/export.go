package app

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"cio-consistency/internal/analysis"
)

var stateColors = map[analysis.GapState]drawing.Color{
	analysis.GapUnderHeld:   drawing.ColorFromHex("f59e0b"),
	analysis.GapAppropriate: drawing.ColorFromHex("10b981"),
	analysis.GapOverHeld:    drawing.ColorFromHex("ef4444"),
}

// Export writes one day's analysis as CSV and/or PNG charts.
func (a *App) Export(ctx context.Context, opts ExportOptions) error {
	if opts.CSVPath == "" && opts.GapPNGPath == "" && opts.ScorePNGPath == "" {
		return errors.New("at least one of --csv, --png or --score-png must be provided")
	}

	w, err := a.wire(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer w.closeAll()

	report, err := w.service.Report(ctx, a.resolveDay(opts.Day))
	if err != nil {
		return err
	}
	if report.Empty() {
		a.Logger.Info().Str("day", report.Window.Label()).Msg("no decisions found for export day")
		return nil
	}

	a.Logger.Info().
		Str("day", report.Window.Label()).
		Int("assets", report.Metrics.TotalAssetCount).
		Int("gaps", len(report.WeightGaps)).
		Msg("exporting report")

	if opts.CSVPath != "" {
		if err := writeFile(opts.CSVPath, func(out io.Writer) error { return WriteReportCSV(out, report) }); err != nil {
			return err
		}
	}

	width, height := a.Config.Export.Width, a.Config.Export.Height
	if opts.GapPNGPath != "" {
		if len(report.WeightGaps) == 0 {
			a.Logger.Warn().Msg("no active holdings; skipping gap chart")
		} else if err := writeFile(opts.GapPNGPath, func(out io.Writer) error {
			return gapChart(report, width, height).Render(chart.PNG, out)
		}); err != nil {
			return err
		}
	}

	if opts.ScorePNGPath != "" {
		if err := writeFile(opts.ScorePNGPath, func(out io.Writer) error {
			return scoreChart(report, width, height).Render(chart.PNG, out)
		}); err != nil {
			return err
		}
	}

	return nil
}

// WriteReportCSV writes one row per analysed asset, joined with its weight gap when active.
func WriteReportCSV(out io.Writer, report analysis.Report) error {
	writer := csv.NewWriter(out)

	header := []string{
		"date", "asset_id", "change_count", "mean_weight", "weight_stddev", "min_weight", "max_weight",
		"weight_range", "rapid_change", "consistency_score", "status", "target_weight", "current_weight",
		"gap", "gap_ratio", "gap_state",
	}
	if err := writer.Write(header); err != nil {
		return err
	}
	if report.Metrics == nil {
		writer.Flush()
		return writer.Error()
	}

	gaps := make(map[string]analysis.WeightGapInfo, len(report.WeightGaps))
	for _, gap := range report.WeightGaps {
		gaps[gap.AssetID] = gap
	}

	for _, info := range report.Metrics.PerAsset {
		record := []string{
			report.Window.Label(),
			info.AssetID,
			strconv.Itoa(info.ChangeCount),
			formatFloat(info.MeanWeight),
			formatFloat(info.WeightStdDev),
			formatFloat(info.MinWeight),
			formatFloat(info.MaxWeight),
			formatFloat(info.WeightRange),
			strconv.FormatBool(info.RapidChange),
			strconv.Itoa(info.ConsistencyScore),
		}
		if gap, ok := gaps[info.AssetID]; ok {
			record = append(record,
				string(gap.Status),
				formatFloat(gap.TargetWeight),
				formatFloat(gap.CurrentWeight),
				formatFloat(gap.Gap),
				formatFloat(gap.GapRatio),
				string(gap.State),
			)
		} else {
			record = append(record, "", "", "", "", "", "")
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}

	writer.Flush()
	return writer.Error()
}

func gapChart(report analysis.Report, width, height int) chart.BarChart {
	bars := make([]chart.Value, 0, len(report.WeightGaps))
	lo, hi := -25.0, 25.0
	for _, gap := range report.WeightGaps {
		color := stateColors[gap.State]
		bars = append(bars, chart.Value{
			Label: gap.AssetID,
			Value: gap.GapRatio,
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
		lo = math.Min(lo, gap.GapRatio)
		hi = math.Max(hi, gap.GapRatio)
	}

	return chart.BarChart{
		Title:        fmt.Sprintf("Weight gap vs target (%%) %s", report.Window.Label()),
		Background:   chart.Style{Padding: chart.Box{Top: 48}},
		Width:        width,
		Height:       height,
		BarWidth:     barWidth(width, len(bars)),
		UseBaseValue: true,
		BaseValue:    0,
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: math.Floor(lo * 1.1), Max: math.Ceil(hi * 1.1)},
			ValueFormatter: percentFormatter,
		},
		Bars: bars,
	}
}

func scoreChart(report analysis.Report, width, height int) chart.BarChart {
	bars := make([]chart.Value, 0, len(report.Metrics.PerAsset))
	for _, info := range report.Metrics.PerAsset {
		color := scoreColor(info.ConsistencyScore)
		bars = append(bars, chart.Value{
			Label: info.AssetID,
			Value: float64(info.ConsistencyScore),
			Style: chart.Style{FillColor: color, StrokeColor: color},
		})
	}

	return chart.BarChart{
		Title:      fmt.Sprintf("Consistency score %s (overall %d, %s)", report.Window.Label(), report.Metrics.OverallScore, report.Metrics.Rating),
		Background: chart.Style{Padding: chart.Box{Top: 48}},
		Width:      width,
		Height:     height,
		BarWidth:   barWidth(width, len(bars)),
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: 100},
		},
		Bars: bars,
	}
}

func scoreColor(score int) drawing.Color {
	switch analysis.RateScore(score) {
	case analysis.RatingVeryConsistent, analysis.RatingConsistent:
		return drawing.ColorFromHex("10b981")
	case analysis.RatingModerate:
		return drawing.ColorFromHex("f59e0b")
	default:
		return drawing.ColorFromHex("ef4444")
	}
}

func barWidth(width, bars int) int {
	if bars == 0 {
		return 40
	}
	w := width / (bars * 2)
	if w > 80 {
		return 80
	}
	if w < 8 {
		return 8
	}
	return w
}

func percentFormatter(v interface{}) string {
	return chart.FloatValueFormatterWithFormat(v, "%.0f%%")
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func writeFile(path string, write func(io.Writer) error) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return file.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
