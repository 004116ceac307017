package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"cio-consistency/internal/analysis"
)

type fakeCounter struct {
	counts map[string]int64
	err    error
}

func (f *fakeCounter) CountDecisionsBetween(_ context.Context, from, _ time.Time) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	return f.counts[from.Format("2006-01-02")], nil
}

type fakeReporter struct {
	days []time.Time
	fail map[string]bool
}

func (f *fakeReporter) Report(_ context.Context, day time.Time) (analysis.Report, error) {
	f.days = append(f.days, day)
	if f.fail[day.Format("2006-01-02")] {
		return analysis.Report{}, errors.New("query failed")
	}
	return analysis.Report{DecisionCount: 1}, nil
}

func TestBackfillSkipsEmptyDays(t *testing.T) {
	days := BackfillDays(day, day.AddDate(0, 0, 3), time.UTC)
	counter := &fakeCounter{counts: map[string]int64{"2025-03-14": 4, "2025-03-16": 2}}
	reporter := &fakeReporter{fail: map[string]bool{"2025-03-16": true}}

	res, err := backfillDays(context.Background(), days, counter, reporter, zerolog.Nop())
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if res.Processed != 1 || res.Skipped != 1 || res.Failed != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(reporter.days) != 2 {
		t.Fatalf("empty day must not be analysed, reported %v", reporter.days)
	}
	for _, d := range reporter.days {
		if d.Equal(day.AddDate(0, 0, 1)) {
			t.Fatalf("day without decisions was analysed: %v", d)
		}
	}
}

func TestBackfillCountErrorFailsDay(t *testing.T) {
	days := BackfillDays(day, day.AddDate(0, 0, 2), time.UTC)
	reporter := &fakeReporter{}

	res, err := backfillDays(context.Background(), days, &fakeCounter{err: errors.New("pool closed")}, reporter, zerolog.Nop())
	if err != nil {
		t.Fatalf("backfill: %v", err)
	}
	if res.Failed != 2 || len(reporter.days) != 0 {
		t.Fatalf("unexpected result: %+v, reported %v", res, reporter.days)
	}
}

func TestBackfillStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := backfillDays(ctx, BackfillDays(day, day.AddDate(0, 0, 2), time.UTC), &fakeCounter{}, &fakeReporter{}, zerolog.Nop())
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
