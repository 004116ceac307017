package app

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"cio-consistency/internal/analysis"
)

// decisionCounter is the slice of the store backfill uses to skip empty days.
type decisionCounter interface {
	CountDecisionsBetween(ctx context.Context, from, to time.Time) (int64, error)
}

type dayReporter interface {
	Report(ctx context.Context, day time.Time) (analysis.Report, error)
}

type backfillResult struct {
	Processed int
	Skipped   int
	Failed    int
}

// Backfill recomputes every day in [From, To), warming the report cache.
func (a *App) Backfill(ctx context.Context, opts BackfillOptions) error {
	loc := a.Config.Location()
	days := BackfillDays(opts.From, opts.To, loc)
	if len(days) == 0 {
		return errors.New("backfill range is empty, check --from/--to")
	}
	if !a.Config.Redis.Enabled {
		a.Logger.Warn().Msg("redis disabled; backfill only validates each day")
	}

	w, err := a.wire(ctx, nil, nil)
	if err != nil {
		return err
	}
	defer w.closeAll()

	res, err := backfillDays(ctx, days, w.store, w.service, a.Logger)
	if err != nil {
		return err
	}

	a.Logger.Info().Int("processed", res.Processed).Int("skipped", res.Skipped).Int("failed", res.Failed).Msg("backfill complete")
	if res.Failed > 0 {
		return errors.New("some days failed to backfill, check the logs")
	}
	return nil
}

func backfillDays(ctx context.Context, days []analysis.Window, counter decisionCounter, reporter dayReporter, logger zerolog.Logger) (backfillResult, error) {
	var res backfillResult
	for _, day := range days {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		n, err := counter.CountDecisionsBetween(ctx, day.Start, day.End)
		if err != nil {
			res.Failed++
			logger.Error().Err(err).Str("day", day.Label()).Msg("count decisions failed")
			continue
		}
		if n == 0 {
			res.Skipped++
			logger.Debug().Str("day", day.Label()).Msg("no decisions; skipped")
			continue
		}

		report, err := reporter.Report(ctx, day.Start)
		if err != nil {
			res.Failed++
			logger.Error().Err(err).Str("day", day.Label()).Msg("backfill failed")
			continue
		}
		res.Processed++

		event := logger.Info().Str("day", day.Label()).Int("decisions", report.DecisionCount)
		if report.Metrics != nil {
			event = event.Int("overall_score", report.Metrics.OverallScore)
		}
		event.Msg("day backfilled")
	}
	return res, nil
}

// BackfillDays lists the day windows covering [from, to) in loc.
func BackfillDays(from, to time.Time, loc *time.Location) []analysis.Window {
	if !from.Before(to) {
		return nil
	}
	var days []analysis.Window
	for w := analysis.DayWindow(from, loc); w.Start.Before(to); w = analysis.DayWindow(w.End, loc) {
		days = append(days, w)
	}
	return days
}
