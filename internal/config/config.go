// Package config provides configuration management for the Better Bets service.
package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/yourusername/better-bets/internal/datasource"
	"github.com/yourusername/better-bets/internal/ev"
	"github.com/yourusername/better-bets/internal/models"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Server     ServerConfig     `mapstructure:"server" validate:"required"`
	OddsAPI    OddsAPIConfig    `mapstructure:"odds_api" validate:"required"`
	EV         EVConfig         `mapstructure:"ev" validate:"required"`
	Validation ValidationConfig `mapstructure:"validation" validate:"required"`
	Prefetch   PrefetchConfig   `mapstructure:"prefetch"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// ServerConfig represents the public API listener
type ServerConfig struct {
	Host                   string   `mapstructure:"host"`
	Port                   int      `mapstructure:"port" validate:"required,min=1,max=65535"`
	ReadTimeoutSeconds     int      `mapstructure:"read_timeout_seconds" validate:"gte=0"`
	WriteTimeoutSeconds    int      `mapstructure:"write_timeout_seconds" validate:"gte=0"`
	RequestTimeoutSeconds  int      `mapstructure:"request_timeout_seconds" validate:"gte=0"`
	ShutdownTimeoutSeconds int      `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
	StreamIntervalSeconds  int      `mapstructure:"stream_interval_seconds" validate:"gte=0"`
	CORSAllowedOrigins     []string `mapstructure:"cors_allowed_origins"`
}

// OddsAPIConfig represents The Odds API upstream configuration
type OddsAPIConfig struct {
	BaseURL           string  `mapstructure:"base_url" validate:"required,url"`
	APIKey            string  `mapstructure:"api_key"`
	Regions           string  `mapstructure:"regions" validate:"required"`
	TimeoutSeconds    int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int     `mapstructure:"max_retries" validate:"gte=0"`
	RateLimit         float64 `mapstructure:"rate_limit" validate:"gte=0"`
	CircuitBreakerMax int     `mapstructure:"circuit_breaker_max" validate:"gte=0"`
	CacheTTLSeconds   int     `mapstructure:"cache_ttl_seconds" validate:"gte=0"`
}

// EVConfig represents EV calculator freshness thresholds
type EVConfig struct {
	MaxOddsAgeSeconds int `mapstructure:"max_odds_age_seconds" validate:"required,gt=0"`
	WarningAgeSeconds int `mapstructure:"warning_age_seconds" validate:"required,gt=0"`
}

// ValidationConfig represents the odds validation policy
type ValidationConfig struct {
	MarketKey     string            `mapstructure:"market_key" validate:"required,marketkey"`
	MinOutcomes   int               `mapstructure:"min_outcomes" validate:"required,gte=2"`
	MaxAgeSeconds int               `mapstructure:"max_age_seconds" validate:"required,gt=0"`
	Sportsbooks   map[string]string `mapstructure:"sportsbooks" validate:"required,sportsbooks"`
}

// PrefetchConfig represents the cron-driven odds prefetch
type PrefetchConfig struct {
	Enabled  bool     `mapstructure:"enabled"`
	Schedule string   `mapstructure:"schedule"`
	Sports   []string `mapstructure:"sports"`
}

// MetricsConfig represents the side server serving health checks and metrics
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// ServerAddress returns the API listen address
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// StreamInterval returns how often odds streams push a snapshot
func (c *Config) StreamInterval() time.Duration {
	return time.Duration(c.Server.StreamIntervalSeconds) * time.Second
}

// CalculatorConfig returns the EV calculator thresholds
func (c *Config) CalculatorConfig() ev.Config {
	return ev.Config{
		MaxOddsAge: time.Duration(c.EV.MaxOddsAgeSeconds) * time.Second,
		WarningAge: time.Duration(c.EV.WarningAgeSeconds) * time.Second,
	}
}

// OddsPolicy returns the validation policy for odds documents
func (c *Config) OddsPolicy() models.OddsPolicy {
	books := make(map[string]string, len(c.Validation.Sportsbooks))
	for key, title := range c.Validation.Sportsbooks {
		books[key] = title
	}
	return models.OddsPolicy{
		Sportsbooks: books,
		MarketKey:   c.Validation.MarketKey,
		MinOutcomes: c.Validation.MinOutcomes,
		MaxAge:      time.Duration(c.Validation.MaxAgeSeconds) * time.Second,
	}
}

// HTTPClientConfig returns the upstream HTTP client settings
func (c *Config) HTTPClientConfig() datasource.HTTPClientConfig {
	cfg := datasource.DefaultHTTPClientConfig()
	cfg.Timeout = time.Duration(c.OddsAPI.TimeoutSeconds) * time.Second
	cfg.MaxRetries = c.OddsAPI.MaxRetries
	cfg.RateLimit = c.OddsAPI.RateLimit
	cfg.CircuitBreakerMax = c.OddsAPI.CircuitBreakerMax
	return cfg
}

// OddsAPIClientConfig returns the Odds API client settings
func (c *Config) OddsAPIClientConfig() datasource.OddsAPIConfig {
	return datasource.OddsAPIConfig{
		BaseURL: c.OddsAPI.BaseURL,
		APIKey:  c.OddsAPI.APIKey,
		Regions: c.OddsAPI.Regions,
		Markets: c.Validation.MarketKey,
	}
}

// CacheTTL returns the raw feed cache TTL
func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.OddsAPI.CacheTTLSeconds) * time.Second
}

// SportsbookKeys returns the allow-listed sportsbook keys in sorted order
func (c *Config) SportsbookKeys() []string {
	keys := make([]string, 0, len(c.Validation.Sportsbooks))
	for key := range c.Validation.Sportsbooks {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
