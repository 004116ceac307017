// Package analysis scores CIO allocation decisions: it reconciles them with the
// authoritative holding status, measures target-vs-held weight gaps, and rates
// how consistently each asset's target weight was revised within one day.
//
// Every function is pure. Callers own fetching, caching and scheduling.
package analysis

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Window is the half-open interval [Start, End) covering one calendar day.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// DayWindow returns the day containing t, measured in loc.
func DayWindow(t time.Time, loc *time.Location) Window {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return Window{Start: start, End: start.AddDate(0, 0, 1)}
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && t.Before(w.End)
}

// Label renders the window start as a calendar date.
func (w Window) Label() string {
	return w.Start.Format(time.DateOnly)
}

// Report is the full result of analysing one day.
type Report struct {
	Window        Window              `json:"window"`
	DecisionCount int                 `json:"decision_count"`
	WeightGaps    []WeightGapInfo     `json:"weight_gaps"`
	Metrics       *ConsistencyMetrics `json:"metrics"`
	InputHash     string              `json:"input_hash"`
}

// Empty reports whether the day had no decisions.
func (r Report) Empty() bool {
	return r.Metrics == nil
}

// FilterWindow keeps the decisions whose timestamp lies inside w, preserving order.
func FilterWindow(decisions []Decision, w Window) []Decision {
	out := make([]Decision, 0, len(decisions))
	for _, d := range decisions {
		if w.Contains(d.DecidedAt) {
			out = append(out, d)
		}
	}
	return out
}

// Analyze runs the whole pipeline for one day.
func Analyze(w Window, decisions []Decision, statuses []StatusRecord) (Report, error) {
	inWindow := FilterWindow(decisions, w)

	reconciled, err := Reconcile(inWindow, statuses)
	if err != nil {
		return Report{}, fmt.Errorf("reconcile statuses: %w", err)
	}

	report := Report{
		Window:        w,
		DecisionCount: len(reconciled),
		WeightGaps:    WeightGaps(reconciled),
		InputHash:     InputHash(w, decisions, statuses),
	}

	if metrics, ok := Aggregate(AnalyzeConsistency(reconciled)); ok {
		report.Metrics = &metrics
	}
	return report, nil
}

// InputHash digests the window and every input record into a stable key.
// The result does not depend on the order of the inputs.
func InputHash(w Window, decisions []Decision, statuses []StatusRecord) string {
	decisionKeys := make([]string, len(decisions))
	for i, d := range decisions {
		decisionKeys[i] = decisionKey(d)
	}
	sort.Strings(decisionKeys)

	// statuses are last-wins, so their order is part of the input
	h := xxhash.New()
	_, _ = h.WriteString(w.Start.UTC().Format(time.RFC3339Nano))
	_, _ = h.WriteString(w.End.UTC().Format(time.RFC3339Nano))
	for _, k := range decisionKeys {
		_, _ = h.WriteString(k)
	}
	for _, s := range statuses {
		_, _ = h.WriteString(s.AssetID + "\x1f" + s.Status + "\x1e")
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func decisionKey(d Decision) string {
	buf := make([]byte, 0, 64)
	buf = append(buf, d.AssetID...)
	buf = append(buf, 0x1f)
	buf = binary.BigEndian.AppendUint64(buf, uint64(d.DecidedAt.UnixNano()))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(d.TargetWeight))
	buf = binary.BigEndian.AppendUint64(buf, math.Float64bits(d.CurrentWeight))
	buf = append(buf, d.RawStatus...)
	buf = append(buf, 0x1e)
	return string(buf)
}
