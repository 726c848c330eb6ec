package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vainnor/f1-stats/api"
	"github.com/vainnor/f1-stats/config"
	"github.com/vainnor/f1-stats/db"
	"github.com/vainnor/f1-stats/scheduler"
	"github.com/vainnor/f1-stats/services/ergast"
	jsonfetcher "github.com/vainnor/f1-stats/services/json_fetcher"
	"github.com/vainnor/f1-stats/services/openf1"
	"github.com/vainnor/f1-stats/session"
	"github.com/vainnor/f1-stats/workers"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	store, err := db.OpenFromConfig(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fetcher := jsonfetcher.New(&http.Client{Timeout: cfg.HTTPTimeout}, store, cfg.CacheTTL, logger)
	season := ergast.New(fetcher, cfg.JolpicaBaseURL)
	timing := openf1.New(fetcher, cfg.OpenF1BaseURL)

	sched, err := scheduler.New(cfg, store, season, logger)
	if err != nil {
		return err
	}

	pool := workers.New(cfg.Workers)
	srv := newServer(cfg, api.NewHandler(api.Deps{
		Loader:  session.NewLoader(season, timing, logger),
		Season:  season,
		Cache:   store,
		Pool:    pool,
		Config:  cfg,
		Logger:  logger,
		Version: Version,
	}))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting API server", "addr", cfg.ListenAddr, "cache", store.Driver(), "workers", pool.Size())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	sched.Start()

	select {
	case err := <-errCh:
		sched.Stop(context.Background())
		return errors.Wrap(err, "API server failed")
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	sched.Stop(shutdownCtx)
	return nil
}

// newServer leaves WriteTimeout unset. A session request can wait on the
// worker pool and then make a chain of upstream calls, each bounded by
// HTTP_TIMEOUT, so no fixed write deadline fits every response.
func newServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
