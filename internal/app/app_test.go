package app

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/wcharczuk/go-chart/v2"

	"cio-consistency/internal/alerting"
	"cio-consistency/internal/analysis"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func fixtureReport(t *testing.T) analysis.Report {
	t.Helper()
	decisions := []analysis.Decision{
		{AssetID: "BTC", DecidedAt: day.Add(10 * time.Hour), TargetWeight: 10, CurrentWeight: 10},
		{AssetID: "BTC", DecidedAt: day.Add(10*time.Hour + 20*time.Minute), TargetWeight: 18, CurrentWeight: 10, Rationale: "momentum\nbreakout"},
		{AssetID: "ETH", DecidedAt: day.Add(9 * time.Hour), TargetWeight: 20, CurrentWeight: 26},
		{AssetID: "SOL", DecidedAt: day.Add(8 * time.Hour), TargetWeight: 5, CurrentWeight: 5},
	}
	statuses := []analysis.StatusRecord{
		{AssetID: "BTC", Status: "active"},
		{AssetID: "ETH", Status: "재평가"},
		{AssetID: "ETH", Status: "활성"},
		{AssetID: "SOL", Status: "excluded"},
	}
	report, err := analysis.Analyze(analysis.DayWindow(day, time.UTC), decisions, statuses)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return report
}

func emptyReport(t *testing.T) analysis.Report {
	t.Helper()
	report, err := analysis.Analyze(analysis.DayWindow(day, time.UTC), nil, nil)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	return report
}

func TestRenderTable(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, fixtureReport(t), FormatTable, false); err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Day 2025-03-14: 4 decisions across 3 assets", "BTC", "under-held", "over-held", "momentum breakout"} {
		if !strings.Contains(out, want) {
			t.Fatalf("table output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "SOL") != 1 {
		t.Fatalf("excluded asset should not appear in the gap table:\n%s", out)
	}
}

func TestRenderTableEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, emptyReport(t), "", false); err != nil {
		t.Fatalf("render: %v", err)
	}
	if buf.String() != "no decisions for 2025-03-14\n" {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestRenderJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, fixtureReport(t), "JSON", false); err != nil {
		t.Fatalf("render: %v", err)
	}
	var decoded analysis.Report
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.Metrics == nil || decoded.Metrics.TotalAssetCount != 3 || len(decoded.WeightGaps) != 2 {
		t.Fatalf("unexpected decoded report: %+v", decoded)
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if err := RenderReport(&bytes.Buffer{}, fixtureReport(t), "yaml", false); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestBuildMarkdown(t *testing.T) {
	md := BuildMarkdown(fixtureReport(t))
	if !strings.HasPrefix(md, "# Decision consistency 2025-03-14\n") {
		t.Fatalf("unexpected heading:\n%s", md)
	}
	for _, want := range []string{"| BTC | 2 |", "## Weight gaps (active holdings)", "| ETH | 20.00 | 26.00 | -6.00 | -30.0 | over-held |"} {
		if !strings.Contains(md, want) {
			t.Fatalf("markdown missing %q:\n%s", want, md)
		}
	}

	if got := BuildMarkdown(emptyReport(t)); !strings.Contains(got, "_No decisions recorded for this day._") {
		t.Fatalf("unexpected empty markdown:\n%s", got)
	}
}

func TestRenderPrettyMarkdown(t *testing.T) {
	var buf bytes.Buffer
	if err := RenderReport(&buf, fixtureReport(t), FormatMarkdown, true); err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(buf.String(), "Decision consistency 2025-03-14") {
		t.Fatalf("rendered markdown missing heading:\n%s", buf.String())
	}
}

func TestWriteReportCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, fixtureReport(t)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("expected header plus 3 assets, got %d rows", len(rows))
	}
	if rows[0][1] != "asset_id" || rows[0][15] != "gap_state" {
		t.Fatalf("unexpected header %v", rows[0])
	}

	byAsset := map[string][]string{}
	for _, row := range rows[1:] {
		byAsset[row[1]] = row
	}
	if got := byAsset["BTC"]; got[8] != "true" || got[15] != "under-held" || got[13] != "8.0000" {
		t.Fatalf("unexpected BTC row %v", got)
	}
	if got := byAsset["SOL"]; got[10] != "" || got[15] != "" {
		t.Fatalf("excluded asset should carry no gap columns: %v", got)
	}
}

func TestWriteReportCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteReportCSV(&buf, emptyReport(t)); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	if lines := strings.Count(buf.String(), "\n"); lines != 1 {
		t.Fatalf("expected header only, got %d lines", lines)
	}
}

func TestGapChart(t *testing.T) {
	report := fixtureReport(t)
	graph := gapChart(report, 1280, 720)
	if len(graph.Bars) != 2 || !graph.UseBaseValue || graph.BaseValue != 0 {
		t.Fatalf("unexpected chart: %+v", graph)
	}
	if graph.Bars[0].Label != "BTC" || graph.Bars[0].Style.FillColor != stateColors[analysis.GapUnderHeld] {
		t.Fatalf("unexpected first bar: %+v", graph.Bars[0])
	}
	r, ok := graph.YAxis.Range.(*chart.ContinuousRange)
	if !ok || r.Min > -30 || r.Max < 44 {
		t.Fatalf("range should cover every ratio: %+v", graph.YAxis.Range)
	}
}

func TestScoreChart(t *testing.T) {
	graph := scoreChart(fixtureReport(t), 800, 600)
	if len(graph.Bars) != 3 {
		t.Fatalf("expected one bar per asset, got %d", len(graph.Bars))
	}
	if graph.Bars[len(graph.Bars)-1].Label != "BTC" || graph.Bars[len(graph.Bars)-1].Value != 70 {
		t.Fatalf("lowest score should be last: %+v", graph.Bars)
	}
}

func TestBarWidth(t *testing.T) {
	if got := barWidth(1280, 1); got != 80 {
		t.Fatalf("barWidth single = %d", got)
	}
	if got := barWidth(1280, 200); got != 8 {
		t.Fatalf("barWidth crowded = %d", got)
	}
	if got := barWidth(1280, 10); got != 64 {
		t.Fatalf("barWidth = %d", got)
	}
}

func TestBackfillDays(t *testing.T) {
	from := time.Date(2025, 3, 1, 15, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC)
	days := BackfillDays(from, to, time.UTC)
	if len(days) != 3 {
		t.Fatalf("expected 3 days, got %d", len(days))
	}
	if days[0].Label() != "2025-03-01" || days[2].Label() != "2025-03-03" {
		t.Fatalf("unexpected days %v", days)
	}
	if BackfillDays(to, from, time.UTC) != nil {
		t.Fatal("inverted range should be empty")
	}
}

func TestBackfillDaysInTimezone(t *testing.T) {
	seoul := time.FixedZone("KST", 9*60*60)
	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	days := BackfillDays(from, to, seoul)
	if len(days) != 2 || days[0].Label() != "2025-03-01" || days[1].Label() != "2025-03-02" {
		t.Fatalf("unexpected days %v", days)
	}
}

func TestSimulatedNotification(t *testing.T) {
	now := time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

	low := SimulatedNotification(SimulateOptions{OverallScore: 35}, now, time.UTC, 60)
	if low.Reason != alerting.ReasonLowScore || low.Rating != analysis.RatingVeryInconsistent {
		t.Fatalf("unexpected low-score note: %+v", low)
	}
	if len(low.OffTargetAssets) != 1 || low.OffTargetAssets[0].State != analysis.GapUnderHeld {
		t.Fatalf("expected one under-held asset: %+v", low.OffTargetAssets)
	}
	if low.Window.Label() != "2025-03-14" {
		t.Fatalf("unexpected window %v", low.Window)
	}

	rapid := SimulatedNotification(SimulateOptions{Reason: alerting.ReasonRapidChange, Assets: []string{"ETH", "SOL"}}, now, time.UTC, 60)
	if len(rapid.RapidChangeAssets) != 2 || len(rapid.OffTargetAssets) != 0 {
		t.Fatalf("unexpected rapid note: %+v", rapid)
	}
}
