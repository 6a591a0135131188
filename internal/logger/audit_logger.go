// Package logger provides audit logging.
package logger

import (
	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/models"
)

// AuditLogger provides dedicated audit trail logging.
type AuditLogger struct {
	*logrus.Entry
}

// NewAuditLogger creates a new audit logger.
func NewAuditLogger(baseLogger *logrus.Logger) *AuditLogger {
	return &AuditLogger{
		Entry: baseLogger.WithField("component", "audit"),
	}
}

// LogEVCalculation logs a served EV calculation.
func (al *AuditLogger) LogEVCalculation(requestID string, result *models.EVResult) {
	fields := logrus.Fields{
		"request_id":       requestID,
		"odds":             result.Inputs.Odds,
		"true_probability": result.Inputs.TrueProbability,
		"cash_stake":       result.Inputs.CashStake,
		"ev_cash":          result.EVCash.StringFixed(2),
		"odds_age_seconds": result.OddsAgeSeconds,
		"odds_source":      result.OddsSource,
		"warnings":         len(result.Warnings),
	}
	if result.OddsSourceDetail != nil {
		fields["bookmaker"] = result.OddsSourceDetail.Bookmaker
		fields["event"] = result.OddsSourceDetail.Event
	}
	al.WithFields(fields).Info("EV calculation recorded")
}

// LogEVRejection logs a calculation refused because of its inputs or a numeric failure.
func (al *AuditLogger) LogEVRejection(requestID string, err error) {
	entry := al.WithFields(logrus.Fields{
		"request_id": requestID,
		"error_kind": string(models.KindOf(err)),
	}).WithError(err)

	if models.KindOf(err) == models.KindCalculationFailed {
		entry.Error("EV calculation failed")
		return
	}
	entry.Warn("EV calculation rejected")
}

// LogOddsRequest logs a validated odds response served to a client.
func (al *AuditLogger) LogOddsRequest(requestID, sportKey string, resp *models.ValidatedOddsResponse) {
	fields := logrus.Fields{
		"request_id": requestID,
		"sport_key":  sportKey,
		"events":     len(resp.Events),
		"bookmakers": resp.BookmakerCount(),
	}
	if resp.APIRequestsRemaining != nil {
		fields["requests_remaining"] = *resp.APIRequestsRemaining
	}
	al.WithFields(fields).Info("Odds request served")
}
