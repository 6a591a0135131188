// Package ev computes the expected value of straight cash bets.
//
// The calculator uses the bettor's own probability estimate, never the
// probability implied by the odds:
//
//	EV = stake × (P × O - 1)
//
// All arithmetic is exact base-10 decimal. The package performs no I/O and
// keeps no state between calls; the only environmental input is the clock.
package ev

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/better-bets/internal/models"
)

const (
	// DefaultMaxOddsAge is the hard staleness cutoff.
	DefaultMaxOddsAge = 60 * time.Second
	// DefaultWarningAge is the advisory staleness threshold. Independent of DefaultMaxOddsAge.
	DefaultWarningAge = 30 * time.Second
	// CentPlaces is the number of fractional digits in ev_cash.
	CentPlaces = 2
)

var one = decimal.NewFromInt(1)

// Config holds the staleness thresholds
type Config struct {
	MaxOddsAge time.Duration
	WarningAge time.Duration
}

// DefaultConfig returns the 60s cutoff and 30s warning threshold
func DefaultConfig() Config {
	return Config{
		MaxOddsAge: DefaultMaxOddsAge,
		WarningAge: DefaultWarningAge,
	}
}

// Calculator validates bet inputs and computes EV.
type Calculator struct {
	cfg Config
	now func() time.Time
}

// NewCalculator creates a calculator. A nil now uses time.Now.
func NewCalculator(cfg Config, now func() time.Time) *Calculator {
	if now == nil {
		now = time.Now
	}
	return &Calculator{cfg: cfg, now: now}
}

// Config returns the calculator's thresholds
func (c *Calculator) Config() Config {
	return c.cfg
}

// CalculateStraightBetEV computes EV using the configured hard cutoff.
func (c *Calculator) CalculateStraightBetEV(in models.EVInput) (*models.EVResult, error) {
	return c.CalculateWithMaxAge(in, c.cfg.MaxOddsAge)
}

// CalculateWithMaxAge computes EV with an explicit hard cutoff.
//
// Checks run in a fixed order and the first failure is returned: timestamp
// freshness, odds, probability, stake. Odds exactly maxOddsAge old are stale.
// Values outside the decimal bounds fail their own check before any arithmetic.
func (c *Calculator) CalculateWithMaxAge(in models.EVInput, maxOddsAge time.Duration) (*models.EVResult, error) {
	calculatedAt := c.now()

	age := calculatedAt.Sub(in.OddsTimestamp)
	if age < 0 {
		return nil, models.NewEVError(models.KindInvalidTimestamp,
			"Odds timestamp %s is in the future (calculation time %s). Odds timestamp cannot be in the future.",
			in.OddsTimestamp.UTC().Format(time.RFC3339Nano), calculatedAt.UTC().Format(time.RFC3339Nano))
	}
	if age >= maxOddsAge {
		return nil, models.NewEVError(models.KindStaleData,
			"Odds are %d seconds old. Maximum allowed age is %s seconds. Please refresh odds before calculating EV.",
			wholeSeconds(age), formatSeconds(maxOddsAge))
	}

	if !models.WithinDecimalBounds(in.Odds) {
		return nil, outOfRange(models.KindInvalidOdds, "Odds", in.Odds)
	}
	if in.Odds.Cmp(one) <= 0 {
		return nil, models.NewEVError(models.KindInvalidOdds,
			"Odds must be greater than 1.0, got %s. Decimal odds of 1.0 or less are invalid.", in.Odds.String())
	}

	if !models.WithinDecimalBounds(in.TrueProbability) {
		return nil, outOfRange(models.KindInvalidProbability, "Probability", in.TrueProbability)
	}
	if in.TrueProbability.Sign() <= 0 || in.TrueProbability.Cmp(one) >= 0 {
		return nil, models.NewEVError(models.KindInvalidProbability,
			"Probability must be between 0 and 1 (exclusive), got %s. Example: 52%% = 0.52", in.TrueProbability.String())
	}

	if !models.WithinDecimalBounds(in.CashStake) {
		return nil, outOfRange(models.KindInvalidStake, "Stake", in.CashStake)
	}
	if in.CashStake.Sign() <= 0 {
		return nil, models.NewEVError(models.KindInvalidStake,
			"Stake must be greater than 0, got %s", in.CashStake.String())
	}

	ev, err := expectedValue(in.Odds, in.TrueProbability, in.CashStake)
	if err != nil {
		return nil, &models.EVError{
			Kind:    models.KindCalculationFailed,
			Message: "Calculation failed",
			Err:     err,
		}
	}

	warnings := make([]string, 0, 1)
	if age > c.cfg.WarningAge {
		warnings = append(warnings, fmt.Sprintf(
			"Odds are %d seconds old. Consider refreshing for more current data.", wholeSeconds(age)))
	}

	excluded := make([]string, len(models.ExcludedFeatures))
	copy(excluded, models.ExcludedFeatures)

	return &models.EVResult{
		EVCash:      ev.Round(CentPlaces),
		FormulaUsed: models.FormulaStraightBet,
		Inputs: models.CalculationInputs{
			Odds:            in.Odds.InexactFloat64(),
			TrueProbability: in.TrueProbability.InexactFloat64(),
			CashStake:       in.CashStake.InexactFloat64(),
		},
		CalculationTimestamp: calculatedAt,
		OddsTimestamp:        in.OddsTimestamp,
		OddsAgeSeconds:       wholeSeconds(age),
		OddsSource:           in.OddsSource,
		OddsSourceDetail:     in.OddsSourceDetail,
		Warnings:             warnings,
		ExcludedFeatures:     excluded,
	}, nil
}

// expectedValue evaluates stake × (P × O - 1). shopspring/decimal panics on
// exponent overflow; that is reported as an error instead.
func expectedValue(odds, probability, stake decimal.Decimal) (ev decimal.Decimal, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decimal arithmetic fault: %v", r)
		}
	}()
	return stake.Mul(probability.Mul(odds).Sub(one)), nil
}

// outOfRange rejects a value too large or too precise to compare safely.
func outOfRange(kind models.ErrorKind, field string, d decimal.Decimal) error {
	return models.NewEVError(kind,
		"%s value %s is out of range. At most %d integer digits and %d decimal places are supported.",
		field, models.BoundedString(d), models.MaxIntegerDigits, models.MaxFractionDigits)
}

// wholeSeconds truncates; messages and odds_age_seconds use the same figure.
func wholeSeconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', -1, 64)
}
