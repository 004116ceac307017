package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"cio-consistency/internal/alerting"
	"cio-consistency/internal/analysis"
	"cio-consistency/internal/config"
	"cio-consistency/internal/logging"
	"cio-consistency/internal/metrics"
	"cio-consistency/internal/scheduler"
	"cio-consistency/internal/storage"
)

var (
	// ErrNoSource is returned when no decision source is configured.
	ErrNoSource = errors.New("service: decision source not configured")
	// ErrNoNotifier is returned when an alert is requested without any channel.
	ErrNoNotifier = errors.New("service: no alert channel configured")
)

// ReportCache memoizes reports by key.
type ReportCache interface {
	Key(w analysis.Window, inputHash string) string
	Get(ctx context.Context, key string) (analysis.Report, bool, error)
	Set(ctx context.Context, key string, report analysis.Report) error
}

// Service loads a day's decisions, analyses them and publishes the result.
type Service struct {
	scheduler *scheduler.Scheduler
	source    storage.DecisionSource
	locker    storage.AdvisoryLocker
	cache     ReportCache
	metrics   *metrics.Registry
	notifier  alerting.Notifier
	breaker   *gobreaker.CircuitBreaker
	logger    zerolog.Logger

	loc          *time.Location
	queryTimeout time.Duration
	lockKey      int64
	alerts       config.AlertingConfig

	now      func() time.Time
	mu       sync.Mutex
	lastSent map[string]time.Time
}

// New constructs the analysis service. Any dependency except source may be nil.
func New(cfg *config.Config, sched *scheduler.Scheduler, source storage.DecisionSource, cache ReportCache, registry *metrics.Registry, notifier alerting.Notifier, logger zerolog.Logger) *Service {
	var locker storage.AdvisoryLocker
	if l, ok := source.(storage.AdvisoryLocker); ok {
		locker = l
	}

	svcLogger := logging.Component(logger, "service")

	return &Service{
		scheduler:    sched,
		source:       source,
		locker:       locker,
		cache:        cache,
		metrics:      registry,
		notifier:     notifier,
		breaker:      newBreaker(cfg.Breaker, svcLogger),
		logger:       svcLogger,
		loc:          cfg.Location(),
		queryTimeout: cfg.Database.QueryTimeout,
		lockKey:      cfg.Scheduler.AdvisoryLockKey,
		alerts:       cfg.Alerting,
		now:          func() time.Time { return time.Now().UTC() },
		lastSent:     make(map[string]time.Time),
	}
}

func newBreaker(cfg config.BreakerConfig, logger zerolog.Logger) *gobreaker.CircuitBreaker {
	maxFailures := cfg.MaxFailures
	if maxFailures == 0 {
		maxFailures = 3
	}
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "decision-store",
		Timeout: cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= maxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("circuit breaker state changed")
		},
	})
}

// Location is the timezone used to cut calendar days.
func (s *Service) Location() *time.Location {
	return s.loc
}

// Run refreshes the current day on every scheduler tick.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, s.Refresh)
}

// Refresh analyses the day containing at and dispatches alerts.
// It is skipped when another instance holds the advisory lock.
func (s *Service) Refresh(ctx context.Context, at time.Time) error {
	unlock, proceed, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	if !proceed {
		s.logger.Debug().Time("at", at).Msg("skip refresh because advisory lock held elsewhere")
		return nil
	}
	if unlock != nil {
		defer unlock()
	}

	started := time.Now()
	report, result, err := s.report(ctx, analysis.DayWindow(at, s.loc))
	s.metrics.RecordRefresh(result, time.Since(started))
	if err != nil {
		return err
	}
	s.metrics.Observe(report)

	event := s.logger.Info().Str("day", report.Window.Label()).Int("decisions", report.DecisionCount)
	if report.Metrics != nil {
		event = event.Int("overall_score", report.Metrics.OverallScore).
			Str("rating", string(report.Metrics.Rating)).
			Int("rapid_change_assets", report.Metrics.RapidChangeAssetCount)
	}
	event.Msg("day refreshed")

	s.dispatchAlerts(ctx, report)
	return nil
}

// Report returns the analysis of the day containing day, served from cache when inputs are unchanged.
// Only Refresh publishes to the metrics registry.
func (s *Service) Report(ctx context.Context, day time.Time) (analysis.Report, error) {
	report, _, err := s.report(ctx, analysis.DayWindow(day, s.loc))
	if err != nil {
		return analysis.Report{}, err
	}
	return report, nil
}

func (s *Service) report(ctx context.Context, w analysis.Window) (analysis.Report, string, error) {
	decisions, statuses, err := s.load(ctx, w)
	if err != nil {
		return analysis.Report{}, metrics.ResultError, err
	}

	key := ""
	if s.cache != nil {
		key = s.cache.Key(w, analysis.InputHash(w, decisions, statuses))
		cached, ok, cacheErr := s.cache.Get(ctx, key)
		if cacheErr != nil {
			s.logger.Warn().Err(cacheErr).Str("key", key).Msg("report cache read failed")
		}
		if ok {
			return cached, metrics.ResultCached, nil
		}
	}

	report, err := analysis.Analyze(w, decisions, statuses)
	if err != nil {
		return analysis.Report{}, metrics.ResultError, fmt.Errorf("analyze %s: %w", w.Label(), err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, report); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("report cache write failed")
		}
	}

	if report.Empty() {
		return report, metrics.ResultEmpty, nil
	}
	return report, metrics.ResultComputed, nil
}

func (s *Service) load(ctx context.Context, w analysis.Window) ([]analysis.Decision, []analysis.StatusRecord, error) {
	if s.source == nil {
		return nil, nil, ErrNoSource
	}
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	res, err := s.breaker.Execute(func() (interface{}, error) {
		return s.source.ListDecisionsBetween(ctx, w.Start, w.End)
	})
	if err != nil {
		return nil, nil, fmt.Errorf("list decisions for %s: %w", w.Label(), err)
	}
	decisions := storage.ToDecisions(res.([]storage.DecisionRecord))

	// without statuses every asset reconciles to excluded, which still yields consistency scores
	var statuses []analysis.StatusRecord
	res, err = s.breaker.Execute(func() (interface{}, error) {
		return s.source.ListHoldingStatuses(ctx)
	})
	if err != nil {
		s.logger.Warn().Err(err).Msg("holding status unavailable; assets treated as excluded")
	} else {
		statuses = storage.ToStatusRecords(res.([]storage.HoldingStatus))
	}

	return decisions, statuses, nil
}

func (s *Service) acquireLock(ctx context.Context) (func(), bool, error) {
	if s.lockKey == 0 || s.locker == nil {
		return nil, true, nil
	}
	unlock, acquired, err := s.locker.TryAdvisoryLock(ctx, s.lockKey)
	if err != nil {
		return nil, false, fmt.Errorf("acquire advisory lock: %w", err)
	}
	if !acquired {
		return nil, false, nil
	}
	return unlock, true, nil
}
