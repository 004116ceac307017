package app

import (
	"context"
	"errors"
	"time"

	"cio-consistency/internal/alerting"
	"cio-consistency/internal/analysis"
	"cio-consistency/internal/service"
)

// SimulateAlert pushes a synthetic notification through the configured channels.
func (a *App) SimulateAlert(ctx context.Context, opts SimulateOptions) error {
	if !a.Config.Alerting.Enabled {
		return errors.New("alerting is not enabled")
	}

	notifier := a.newNotifier()
	if notifier == nil {
		return errors.New("no alert channel configured")
	}

	svc := service.New(a.Config, nil, nil, nil, nil, notifier, a.Logger)
	note := SimulatedNotification(opts, time.Now(), a.Config.Location(), a.Config.Alerting.MinOverallScore)
	if err := svc.SendTest(ctx, note); err != nil {
		return err
	}

	a.Logger.Info().Str("reason", string(note.Reason)).Int("overall_score", note.OverallScore).Msg("simulated alert sent")
	return nil
}

// SimulatedNotification builds the synthetic alert for the day containing now.
func SimulatedNotification(opts SimulateOptions, now time.Time, loc *time.Location, minScore int) alerting.Notification {
	reason := opts.Reason
	if reason == "" {
		reason = alerting.ReasonLowScore
	}
	assets := opts.Assets
	if len(assets) == 0 {
		assets = []string{"BTC"}
	}

	note := alerting.Notification{
		Window:          analysis.DayWindow(now, loc),
		Reason:          reason,
		OverallScore:    opts.OverallScore,
		Rating:          analysis.RateScore(opts.OverallScore),
		MinOverallScore: minScore,
		AdditionalMsg:   "simulated alert",
	}

	switch reason {
	case alerting.ReasonRapidChange:
		note.RapidChangeAssets = assets
	default:
		for _, asset := range assets {
			gap := analysis.CalculateWeightGap(analysis.Decision{
				AssetID:       asset,
				DecidedAt:     now,
				TargetWeight:  10,
				CurrentWeight: 5,
				Status:        analysis.StatusActive,
			})
			note.OffTargetAssets = append(note.OffTargetAssets, gap)
		}
	}
	return note
}
