package app

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"

	"cio-consistency/internal/api"
	"cio-consistency/internal/logging"
)

// Serve runs the HTTP API alongside the refresh loop until interrupted.
func (a *App) Serve(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	w, err := a.wire(ctx, a.newScheduler(), a.alertNotifier())
	if err != nil {
		return err
	}
	defer w.closeAll()

	engine := api.NewEngine(api.Options{
		Environment:    a.Config.App.Environment,
		Provider:       w.service,
		MetricsHandler: w.metrics.Handler(),
		Health:         w.store,
	}, logging.Component(a.Logger, "api"))
	srv := api.NewServer(a.Config.API.Addr, engine)

	errCh := make(chan error, 2)

	go func() {
		if err := w.service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	go func() {
		a.Logger.Info().Str("addr", a.Config.API.Addr).Msg("http server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.Logger.Info().Msg("shutdown requested")
	case runErr = <-errCh:
		a.Logger.Error().Err(runErr).Msg("server error")
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), a.Config.API.ShutdownTimeout)
	defer cancelShutdown()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		a.Logger.Warn().Err(err).Msg("http server shutdown")
	}
	cancel()

	a.Logger.Info().Msg("server stopped")
	return runErr
}
