package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FormulaStraightBet is the formula reported with every result.
const FormulaStraightBet = "EV = stake × (P × O - 1)"

// ExcludedFeatures lists bet types the calculator does not model.
var ExcludedFeatures = []string{
	"bonus_bets",
	"matched_betting",
	"insurance",
	"hedging",
	"parlays",
}

// EVInput holds the inputs of a single straight cash bet.
type EVInput struct {
	Odds             decimal.Decimal   `json:"odds"`
	TrueProbability  decimal.Decimal   `json:"true_probability"`
	CashStake        decimal.Decimal   `json:"cash_stake"`
	OddsTimestamp    time.Time         `json:"odds_timestamp"`
	OddsSource       string            `json:"odds_source"`
	OddsSourceDetail *OddsSourceDetail `json:"odds_source_detail"`
}

// OddsSourceDetail describes where a quoted price came from. Carried through for display only.
type OddsSourceDetail struct {
	Event     string `json:"event,omitempty"`
	Outcome   string `json:"outcome,omitempty"`
	Bookmaker string `json:"bookmaker,omitempty"`
	APISource string `json:"api_source,omitempty"`
}

// CalculationInputs is the audit snapshot of the numeric inputs.
type CalculationInputs struct {
	Odds            float64 `json:"odds"`
	TrueProbability float64 `json:"true_probability"`
	CashStake       float64 `json:"cash_stake"`
}

// EVResult is the outcome of a successful calculation with full provenance.
// A nil OddsSourceDetail means the caller did not provide one.
type EVResult struct {
	EVCash               decimal.Decimal   `json:"ev_cash"`
	FormulaUsed          string            `json:"formula_used"`
	Inputs               CalculationInputs `json:"inputs"`
	CalculationTimestamp time.Time         `json:"calculation_timestamp"`
	OddsTimestamp        time.Time         `json:"odds_timestamp"`
	OddsAgeSeconds       int64             `json:"odds_age_seconds"`
	OddsSource           string            `json:"odds_source"`
	OddsSourceDetail     *OddsSourceDetail `json:"odds_source_detail"`
	Warnings             []string          `json:"warnings"`
	ExcludedFeatures     []string          `json:"excluded_features"`
}

// HasWarnings returns true if the result carries any freshness warning
func (r *EVResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// IsPositive returns true if the bet has positive expected value
func (r *EVResult) IsPositive() bool {
	return r.EVCash.IsPositive()
}
