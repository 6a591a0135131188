package api

import (
	"encoding/json"
	"fmt"
	"io"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/yourusername/better-bets/internal/models"
)

// maxBodyBytes caps request bodies
const maxBodyBytes = 1 << 20

// ExpectedTimestampFormat is reported when odds_timestamp cannot be parsed
const ExpectedTimestampFormat = "ISO 8601 (e.g., 2025-12-31T18:30:00Z)"

// Naive timestamps carry no offset and are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05",
}

// CalculateEVRequest is the body of POST /api/ev/calculate.
// Numbers stay as json.Number so they reach the calculator without float rounding.
type CalculateEVRequest struct {
	Odds             json.Number              `json:"odds" validate:"required"`
	TrueProbability  json.Number              `json:"true_probability" validate:"required"`
	CashStake        json.Number              `json:"cash_stake" validate:"required"`
	OddsTimestamp    string                   `json:"odds_timestamp" validate:"required"`
	OddsSource       string                   `json:"odds_source" validate:"required"`
	OddsSourceDetail *models.OddsSourceDetail `json:"odds_source_detail,omitempty"`
}

// timestampError marks an odds_timestamp that is not ISO 8601
type timestampError struct {
	value string
}

func (e *timestampError) Error() string {
	return fmt.Sprintf("invalid isoformat string: %q", e.value)
}

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func decodeCalculateRequest(body io.Reader, v *validator.Validate) (*CalculateEVRequest, error) {
	dec := json.NewDecoder(io.LimitReader(body, maxBodyBytes))
	dec.UseNumber()

	var req CalculateEVRequest
	if err := dec.Decode(&req); err != nil {
		return nil, fmt.Errorf("malformed request body: %w", err)
	}
	if err := v.Struct(&req); err != nil {
		return nil, formatRequestErrors(err)
	}
	return &req, nil
}

// toInput converts the request into calculator input. Timestamp problems are
// reported as *timestampError.
func (r *CalculateEVRequest) toInput() (models.EVInput, error) {
	odds, err := decimal.NewFromString(r.Odds.String())
	if err != nil {
		return models.EVInput{}, fmt.Errorf("odds: %w", err)
	}
	probability, err := decimal.NewFromString(r.TrueProbability.String())
	if err != nil {
		return models.EVInput{}, fmt.Errorf("true_probability: %w", err)
	}
	stake, err := decimal.NewFromString(r.CashStake.String())
	if err != nil {
		return models.EVInput{}, fmt.Errorf("cash_stake: %w", err)
	}
	ts, err := ParseTimestamp(r.OddsTimestamp)
	if err != nil {
		return models.EVInput{}, err
	}

	return models.EVInput{
		Odds:             odds,
		TrueProbability:  probability,
		CashStake:        stake,
		OddsTimestamp:    ts,
		OddsSource:       r.OddsSource,
		OddsSourceDetail: r.OddsSourceDetail,
	}, nil
}

// ParseTimestamp parses an ISO 8601 timestamp. Values without an offset are UTC.
func ParseTimestamp(value string) (time.Time, error) {
	trimmed := strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, &timestampError{value: value}
}

func formatRequestErrors(err error) error {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}
	fields := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		fields = append(fields, e.Field())
	}
	return fmt.Errorf("missing required fields: %s", strings.Join(fields, ", "))
}
