// Package main provides the better-bets command line: the API server and
// one-shot EV, odds and upstream status commands.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/yourusername/better-bets/internal/config"
	"github.com/yourusername/better-bets/internal/datasource"
	"github.com/yourusername/better-bets/internal/ev"
	"github.com/yourusername/better-bets/internal/logger"
	"github.com/yourusername/better-bets/internal/odds"
)

// Build information - set via ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

var configFile string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", config.DefaultConfigPath, "Path to configuration file")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(calculateCmd)
	rootCmd.AddCommand(oddsCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}

var rootCmd = &cobra.Command{
	Use:           "better-bets",
	Short:         "Expected value calculator for straight cash bets",
	Long:          `Computes the expected value of straight cash bets from your own probability estimate and serves validated, fresh sportsbook odds.`,
	SilenceUsage:  true,
	SilenceErrors: false,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "better-bets %s (commit %s, built %s)\n", Version, GitCommit, BuildDate)
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error: %v", err)
	}
}

// app holds the wired components shared by the subcommands
type app struct {
	cfg        *config.Config
	log        *logrus.Logger
	httpClient *datasource.RateLimitedHTTPClient
	oddsAPI    *datasource.OddsAPIClient
	cache      *datasource.CachedFetcher
	odds       *odds.Service
	calculator *ev.Calculator
}

// loadConfig loads, overlays secrets onto and validates the configuration
func loadConfig(ctx context.Context) (*config.Config, error) {
	cfg, err := config.LoadWithDefaults(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := config.LoadSecretsFromEnv(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to load secrets: %w", err)
	}
	if cfg.App.Version == "" {
		cfg.App.Version = Version
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newApp wires the upstream client, feed cache, odds service and calculator.
// quiet discards logs so command output stays machine readable.
func newApp(ctx context.Context, quiet bool) (*app, error) {
	cfg, err := loadConfig(ctx)
	if err != nil {
		return nil, err
	}

	appLog := logger.NewLogger(cfg.App.LogLevel, cfg.App.Environment)
	if quiet {
		appLog = logger.NewDiscardLogger()
	}

	httpClient := datasource.NewRateLimitedHTTPClient(cfg.HTTPClientConfig(), appLog)
	oddsAPI := datasource.NewOddsAPIClient(httpClient, cfg.OddsAPIClientConfig(), appLog)
	cache := datasource.NewCachedFetcher(oddsAPI, cfg.CacheTTL())
	validator := odds.NewValidator(cfg.OddsPolicy(), nil)

	return &app{
		cfg:        cfg,
		log:        appLog,
		httpClient: httpClient,
		oddsAPI:    oddsAPI,
		cache:      cache,
		odds:       odds.NewService(cache, validator, appLog),
		calculator: ev.NewCalculator(cfg.CalculatorConfig(), nil),
	}, nil
}

func (a *app) Close() {
	if err := a.httpClient.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close http client")
	}
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
