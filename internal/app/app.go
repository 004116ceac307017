package app

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"cio-consistency/internal/alerting"
	"cio-consistency/internal/cache"
	"cio-consistency/internal/config"
	"cio-consistency/internal/logging"
	"cio-consistency/internal/metrics"
	"cio-consistency/internal/scheduler"
	"cio-consistency/internal/service"
	"cio-consistency/internal/storage"
)

// ErrNoDatabase is returned by commands that need the decision store.
var ErrNoDatabase = errors.New("database.dsn not configured")

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logging.Component(logger, "app")}
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

func (a *App) openStore(ctx context.Context) (*storage.Store, func(), error) {
	if a.Config.Database.DSN == "" {
		return nil, nil, nil
	}

	pool, err := storage.NewPool(ctx, a.Config.Database)
	if err != nil {
		return nil, nil, err
	}

	store := storage.NewStore(pool)
	closer := func() {
		store.Close()
	}
	return store, closer, nil
}

// openCache returns a nil interface when redis is disabled so the service skips it.
func (a *App) openCache(ctx context.Context) (service.ReportCache, func(), error) {
	if !a.Config.Redis.Enabled {
		return nil, func() {}, nil
	}

	client := cache.NewClient(a.Config.Redis)
	if err := client.Ping(ctx).Err(); err != nil {
		a.Logger.Warn().Err(err).Str("addr", a.Config.Redis.Addr).Msg("redis unreachable; report cache disabled")
		_ = client.Close()
		return nil, func() {}, nil
	}

	closer := func() {
		if err := client.Close(); err != nil {
			a.Logger.Warn().Err(err).Msg("close redis client")
		}
	}
	return cache.New(client, a.Config.Redis.KeyPrefix, a.Config.Redis.TTL), closer, nil
}

// wiring is everything a command needs to analyse days against the live store.
type wiring struct {
	store    *storage.Store
	service  *service.Service
	metrics  *metrics.Registry
	closeAll func()
}

func (a *App) wire(ctx context.Context, sched *scheduler.Scheduler, notifier alerting.Notifier) (*wiring, error) {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	if store == nil {
		return nil, ErrNoDatabase
	}

	reportCache, closeCache, err := a.openCache(ctx)
	if err != nil {
		closeStore()
		return nil, err
	}

	registry := metrics.NewRegistry()
	svc := service.New(a.Config, sched, store, reportCache, registry, notifier, a.Logger)

	return &wiring{
		store:   store,
		service: svc,
		metrics: registry,
		closeAll: func() {
			closeCache()
			closeStore()
		},
	}, nil
}

func (a *App) newScheduler() *scheduler.Scheduler {
	return scheduler.New(scheduler.Options{
		Interval:       a.Config.Scheduler.Interval,
		AlignToStart:   a.Config.Scheduler.AlignToBucket,
		StartupDelay:   a.Config.Scheduler.StartupDelay,
		RunImmediately: a.Config.Scheduler.RunImmediately,
	}, a.Logger)
}

func (a *App) alertNotifier() alerting.Notifier {
	if !a.Config.Alerting.Enabled {
		return nil
	}
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Msg("alerting enabled but no channel configured")
	}
	return notifier
}

// Run executes the long-running refresh loop.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := a.wire(ctx, a.newScheduler(), a.alertNotifier())
	if err != nil {
		return err
	}
	defer w.closeAll()

	a.Logger.Info().Dur("interval", a.Config.Scheduler.Interval).Str("timezone", a.Config.App.Timezone).Msg("starting consistency monitor")
	err = w.service.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		a.Logger.Error().Err(err).Msg("service terminated with error")
		return err
	}

	a.Logger.Info().Msg("consistency monitor stopped")
	return nil
}

// resolveDay defaults an unset day to now in the configured timezone.
func (a *App) resolveDay(day time.Time) time.Time {
	if day.IsZero() {
		return time.Now().In(a.Config.Location())
	}
	return day
}

// ReportOptions configure the report command.
type ReportOptions struct {
	Day    time.Time
	Format string
	Pretty bool
}

// ExportOptions configure the export command.
type ExportOptions struct {
	Day          time.Time
	CSVPath      string
	GapPNGPath   string
	ScorePNGPath string
}

// BackfillOptions configure the backfill job.
type BackfillOptions struct {
	From time.Time
	To   time.Time
}

// SimulateOptions configure the simulate-alert command.
type SimulateOptions struct {
	Reason       alerting.Reason
	OverallScore int
	Assets       []string
}
