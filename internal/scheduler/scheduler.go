package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"cio-consistency/internal/logging"
)

// RefreshFunc is invoked once per refresh cycle with the cycle's reference time.
type RefreshFunc func(ctx context.Context, at time.Time) error

// Options tune scheduler behaviour.
type Options struct {
	Interval       time.Duration
	AlignToStart   bool
	StartupDelay   time.Duration
	RunImmediately bool
}

// Scheduler re-runs a refresh on a fixed cadence until cancelled.
type Scheduler struct {
	opts   Options
	logger zerolog.Logger
	now    func() time.Time
}

// New constructs a Scheduler instance.
func New(opts Options, logger zerolog.Logger) *Scheduler {
	if opts.Interval <= 0 {
		panic("scheduler interval must be positive")
	}
	return &Scheduler{
		opts:   opts,
		logger: logging.Component(logger, "scheduler"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Run blocks, invoking refresh every interval until ctx is cancelled.
// Refresh errors are logged and do not stop the loop.
func (s *Scheduler) Run(ctx context.Context, refresh RefreshFunc) error {
	if s.opts.StartupDelay > 0 {
		if err := sleep(ctx, s.opts.StartupDelay); err != nil {
			return err
		}
	}

	if s.opts.RunImmediately {
		s.execute(ctx, refresh, s.now())
	}

	next := s.nextTick(s.now())
	for {
		delay := next.Sub(s.now())
		if delay < 0 {
			s.logger.Warn().Dur("behind", -delay).Msg("refresh overran its interval; skipping missed ticks")
			next = s.nextTick(s.now())
			delay = next.Sub(s.now())
		}

		s.logger.Debug().Time("next_refresh", next).Msg("waiting for next refresh")
		if err := sleep(ctx, delay); err != nil {
			return err
		}

		s.execute(ctx, refresh, s.tickTime(next))
		next = next.Add(s.opts.Interval)
	}
}

func (s *Scheduler) execute(ctx context.Context, refresh RefreshFunc, at time.Time) {
	started := s.now()
	if err := refresh(ctx, at); err != nil {
		s.logger.Error().Err(err).Time("at", at).Msg("refresh failed")
		return
	}
	s.logger.Debug().Time("at", at).Dur("elapsed", s.now().Sub(started)).Msg("refresh completed")
}

func (s *Scheduler) nextTick(now time.Time) time.Time {
	if !s.opts.AlignToStart {
		return now.Add(s.opts.Interval)
	}
	tick := now.Truncate(s.opts.Interval)
	if !tick.After(now) {
		tick = tick.Add(s.opts.Interval)
	}
	return tick
}

func (s *Scheduler) tickTime(t time.Time) time.Time {
	if !s.opts.AlignToStart {
		return t
	}
	return t.Truncate(s.opts.Interval)
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
