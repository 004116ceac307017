package service

import (
	"context"

	"cio-consistency/internal/alerting"
	"cio-consistency/internal/analysis"
)

// Notifications derives the alerts a report warrants, before cooldown.
func (s *Service) Notifications(report analysis.Report) []alerting.Notification {
	if report.Metrics == nil {
		return nil
	}
	m := report.Metrics

	base := alerting.Notification{
		Window:          report.Window,
		OverallScore:    m.OverallScore,
		Rating:          m.Rating,
		MinOverallScore: s.alerts.MinOverallScore,
		Channels:        s.alerts.Channels,
	}
	for _, info := range m.PerAsset {
		if info.RapidChange {
			base.RapidChangeAssets = append(base.RapidChangeAssets, info.AssetID)
		}
	}

	var notes []alerting.Notification
	if s.alerts.NotifyRapidChange && m.RapidChangeAssetCount > 0 {
		note := base
		note.Reason = alerting.ReasonRapidChange
		notes = append(notes, note)
	}
	if m.OverallScore < s.alerts.MinOverallScore {
		note := base
		note.Reason = alerting.ReasonLowScore
		for _, gap := range report.WeightGaps {
			if gap.State != analysis.GapAppropriate {
				note.OffTargetAssets = append(note.OffTargetAssets, gap)
			}
		}
		notes = append(notes, note)
	}
	return notes
}

func (s *Service) dispatchAlerts(ctx context.Context, report analysis.Report) {
	if !s.alerts.Enabled || s.notifier == nil {
		return
	}

	for _, note := range s.Notifications(report) {
		key := report.Window.Label() + "/" + string(note.Reason)
		if !s.cooldownElapsed(key) {
			s.logger.Debug().Str("alert", key).Msg("alert suppressed by cooldown")
			continue
		}
		if err := s.notifier.Notify(ctx, note); err != nil {
			s.logger.Error().Err(err).Str("alert", key).Msg("failed to dispatch alert")
			continue
		}
		s.markSent(key)
	}
}

// SendTest pushes one notification regardless of cooldown.
func (s *Service) SendTest(ctx context.Context, note alerting.Notification) error {
	if s.notifier == nil {
		return ErrNoNotifier
	}
	if note.Channels == nil {
		note.Channels = s.alerts.Channels
	}
	return s.notifier.Notify(ctx, note)
}

func (s *Service) cooldownElapsed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastSent[key]
	return !ok || s.now().Sub(last) >= s.alerts.Cooldown
}

func (s *Service) markSent(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastSent[key] = s.now()
}
