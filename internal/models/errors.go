package models

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failure so the calling layer can map it to a distinct status.
type ErrorKind string

// Error kinds
const (
	KindStaleData          ErrorKind = "stale_data"
	KindInvalidTimestamp   ErrorKind = "invalid_timestamp"
	KindInvalidOdds        ErrorKind = "invalid_odds"
	KindInvalidProbability ErrorKind = "invalid_probability"
	KindInvalidStake       ErrorKind = "invalid_stake"
	KindCalculationFailed  ErrorKind = "calculation_failed"
	KindOddsAPI            ErrorKind = "odds_api_error"
	KindOddsValidation     ErrorKind = "odds_validation_error"
)

// EVError is returned by the EV calculator. Every input problem is surfaced, never coerced.
type EVError struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *EVError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *EVError) Unwrap() error {
	return e.Err
}

// Is matches any EVError of the same kind, so the sentinels below work with errors.Is.
func (e *EVError) Is(target error) bool {
	t, ok := target.(*EVError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// IsInputError reports whether the error is a caller-correctable input problem
// rather than an internal calculation fault.
func (e *EVError) IsInputError() bool {
	return e.Kind != KindCalculationFailed
}

// Sentinels for errors.Is
var (
	ErrStaleData          = &EVError{Kind: KindStaleData, Message: "odds data is stale"}
	ErrInvalidTimestamp   = &EVError{Kind: KindInvalidTimestamp, Message: "invalid odds timestamp"}
	ErrInvalidOdds        = &EVError{Kind: KindInvalidOdds, Message: "invalid odds"}
	ErrInvalidProbability = &EVError{Kind: KindInvalidProbability, Message: "invalid probability"}
	ErrInvalidStake       = &EVError{Kind: KindInvalidStake, Message: "invalid stake"}
	ErrCalculationFailed  = &EVError{Kind: KindCalculationFailed, Message: "calculation failed"}
)

// NewEVError creates an EVError with a formatted message.
func NewEVError(kind ErrorKind, format string, args ...interface{}) *EVError {
	return &EVError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// OddsAPIError signals an upstream odds-feed failure. It is never a validation failure.
type OddsAPIError struct {
	SportKey string
	Message  string
	Err      error
}

func (e *OddsAPIError) Error() string {
	msg := "odds api error"
	if e.SportKey != "" {
		msg += " for " + e.SportKey
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *OddsAPIError) Unwrap() error {
	return e.Err
}

// OddsValidationError is reserved for document-level failures; per-record problems are silent drops.
type OddsValidationError struct {
	Message string
	Err     error
}

func (e *OddsValidationError) Error() string {
	if e.Err != nil {
		return "odds validation failed: " + e.Message + ": " + e.Err.Error()
	}
	return "odds validation failed: " + e.Message
}

func (e *OddsValidationError) Unwrap() error {
	return e.Err
}

// KindOf returns the ErrorKind carried by err, or "" when err is not part of the taxonomy.
func KindOf(err error) ErrorKind {
	var evErr *EVError
	if errors.As(err, &evErr) {
		return evErr.Kind
	}
	var apiErr *OddsAPIError
	if errors.As(err, &apiErr) {
		return KindOddsAPI
	}
	var valErr *OddsValidationError
	if errors.As(err, &valErr) {
		return KindOddsValidation
	}
	return ""
}
