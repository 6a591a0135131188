package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/robfig/cron/v3"
	"github.com/yourusername/better-bets/internal/models"
)

// CustomValidator wraps the validator with custom validation rules
type CustomValidator struct {
	validator *validator.Validate
}

// NewValidator creates a new validator with custom validation functions
func NewValidator() *CustomValidator {
	v := validator.New()

	// Register custom validation functions
	_ = v.RegisterValidation("environment", validateEnvironment)
	_ = v.RegisterValidation("loglevel", validateLogLevel)
	_ = v.RegisterValidation("marketkey", validateMarketKey)
	_ = v.RegisterValidation("sportsbooks", validateSportsbooks)

	return &CustomValidator{validator: v}
}

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	cv := NewValidator()
	return cv.Validate(cfg)
}

// Validate validates the configuration using registered validation rules
func (cv *CustomValidator) Validate(cfg *Config) error {
	err := cv.validator.Struct(cfg)
	if err != nil {
		var validationErrors validator.ValidationErrors
		if errors.As(err, &validationErrors) {
			return formatValidationErrors(validationErrors)
		}
		return fmt.Errorf("validation failed: %w", err)
	}

	// Additional cross-field validations
	if err := validateCrossField(cfg); err != nil {
		return err
	}

	return nil
}

// validateEnvironment validates the environment field
func validateEnvironment(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "development", "staging", "production":
		return true
	default:
		return false
	}
}

// validateLogLevel validates the log level field
func validateLogLevel(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case "debug", "info", "warn", "error":
		return true
	default:
		return false
	}
}

// validateMarketKey accepts the market types the validator understands
func validateMarketKey(fl validator.FieldLevel) bool {
	return fl.Field().String() == models.MarketHeadToHead
}

// validateSportsbooks requires lowercase keys and non-empty display titles
func validateSportsbooks(fl validator.FieldLevel) bool {
	books, ok := fl.Field().Interface().(map[string]string)
	if !ok || len(books) == 0 {
		return false
	}
	for key, title := range books {
		if key == "" || key != strings.ToLower(key) || strings.TrimSpace(title) == "" {
			return false
		}
	}
	return true
}

// validateCrossField performs cross-field validations
func validateCrossField(cfg *Config) error {
	if cfg.Metrics.Enabled && cfg.Server.Port == cfg.Metrics.Port {
		return fmt.Errorf("server port and metrics port must differ, both are %d", cfg.Server.Port)
	}

	if cfg.EV.WarningAgeSeconds > cfg.EV.MaxOddsAgeSeconds {
		return fmt.Errorf("warning_age_seconds (%d) cannot exceed max_odds_age_seconds (%d)",
			cfg.EV.WarningAgeSeconds, cfg.EV.MaxOddsAgeSeconds)
	}

	if cfg.Prefetch.Enabled {
		if len(cfg.Prefetch.Sports) == 0 {
			return fmt.Errorf("prefetch is enabled but no sports are listed")
		}
		if _, err := cron.ParseStandard(cfg.Prefetch.Schedule); err != nil {
			return fmt.Errorf("invalid prefetch schedule %q: %w", cfg.Prefetch.Schedule, err)
		}
	}

	// Production must talk to the real upstream
	if cfg.IsProduction() && cfg.OddsAPI.APIKey == "" {
		return fmt.Errorf("production environment requires odds_api.api_key")
	}

	return nil
}

// formatValidationErrors formats validation errors into a readable string
func formatValidationErrors(validationErrors validator.ValidationErrors) error {
	var errMsg string
	for _, fieldError := range validationErrors {
		field := fieldError.StructField()
		tag := fieldError.Tag()
		value := fieldError.Value()

		switch tag {
		case "required":
			errMsg += fmt.Sprintf("- Field '%s' is required\n", field)
		case "url":
			errMsg += fmt.Sprintf("- Field '%s' must be a valid URL, got '%v'\n", field, value)
		case "min", "max":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: %s constraint violated\n", field, tag)
		case "gt", "gte", "lt", "lte":
			errMsg += fmt.Sprintf("- Field '%s' validation failed: numeric constraint %s violated\n", field, tag)
		case "environment":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: development, staging, production\n", field)
		case "loglevel":
			errMsg += fmt.Sprintf("- Field '%s' must be one of: debug, info, warn, error\n", field)
		case "marketkey":
			errMsg += fmt.Sprintf("- Field '%s' must be '%s', got '%v'\n", field, models.MarketHeadToHead, value)
		case "sportsbooks":
			errMsg += fmt.Sprintf("- Field '%s' must map lowercase sportsbook keys to display titles\n", field)
		default:
			errMsg += fmt.Sprintf("- Field '%s' failed validation: %s\n", field, tag)
		}
	}
	return fmt.Errorf("configuration validation failed:\n%s", errMsg)
}
