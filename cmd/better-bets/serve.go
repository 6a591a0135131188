package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/better-bets/internal/api"
	"github.com/yourusername/better-bets/internal/health"
	"github.com/yourusername/better-bets/internal/metrics"
	"github.com/yourusername/better-bets/internal/scheduler"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long:  `Starts the EV and odds API, the health and metrics server, and the optional odds prefetch scheduler.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runServe(ctx)
	},
}

func runServe(ctx context.Context) error {
	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg
	a.log.WithFields(logrus.Fields{
		"environment":  cfg.App.Environment,
		"log_level":    cfg.App.LogLevel,
		"version":      cfg.App.Version,
		"sportsbooks":  cfg.SportsbookKeys(),
		"max_odds_age": cfg.EV.MaxOddsAgeSeconds,
	}).Info("Better Bets starting")

	if cfg.OddsAPI.APIKey == "" {
		a.log.Warn("No Odds API key configured; odds endpoints will fail")
	}

	metrics.InitRegistry()

	var healthServer *health.Server
	if cfg.Metrics.Enabled {
		healthServer = health.NewServer(health.Config{
			ServiceName: cfg.App.Name,
			Version:     cfg.App.Version,
			Port:        cfg.Metrics.Port,
			MetricsPath: cfg.Metrics.Path,
			Metrics:     metrics.Handler(),
			Logger:      a.log,
			Upstream:    a.oddsAPI,
		})
		if err := healthServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start health server: %w", err)
		}
	}

	var sched *scheduler.Scheduler
	if cfg.Prefetch.Enabled {
		sched = scheduler.NewScheduler(a.odds, a.log)
		if err := sched.SchedulePrefetch(cfg.Prefetch.Schedule, cfg.Prefetch.Sports); err != nil {
			return fmt.Errorf("failed to schedule prefetch: %w", err)
		}
		if err := sched.Start(); err != nil {
			return fmt.Errorf("failed to start scheduler: %w", err)
		}
		defer sched.Stop()
		a.log.WithField("next_run", sched.NextRun()).Info("Odds prefetch scheduled")
	}

	handler := api.NewHandler(api.HandlerConfig{
		Calculator: a.calculator,
		Odds:       a.odds,
		Sports:     a.oddsAPI,
		Logger:     a.log,
		Version:    cfg.App.Version,

		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
		StreamInterval: cfg.StreamInterval(),
		BaseContext:    ctx,
	})
	server := &http.Server{
		Addr: cfg.ServerAddress(),
		Handler: api.NewRouter(handler, api.RouterConfig{
			AllowedOrigins: cfg.Server.CORSAllowedOrigins,
			RequestTimeout: seconds(cfg.Server.RequestTimeoutSeconds),
			Logger:         a.log,
		}),
		ReadTimeout:  seconds(cfg.Server.ReadTimeoutSeconds),
		WriteTimeout: seconds(cfg.Server.WriteTimeoutSeconds),
		IdleTimeout:  60 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		a.log.WithField("addr", server.Addr).Info("API server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if healthServer != nil {
		healthServer.SetReady(true)
	}

	select {
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("api server failed: %w", err)
		}
	case <-ctx.Done():
		a.log.Info("Shutdown signal received")
	}

	if healthServer != nil {
		healthServer.SetReady(false)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), seconds(cfg.Server.ShutdownTimeoutSeconds))
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.log.WithError(err).Error("API server forced to shutdown")
		return err
	}

	a.log.Info("Better Bets stopped")
	return nil
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 30 * time.Second
	}
	return time.Duration(n) * time.Second
}
