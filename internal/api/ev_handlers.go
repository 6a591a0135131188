package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/yourusername/better-bets/internal/metrics"
	"github.com/yourusername/better-bets/internal/models"
)

// EVHealth reports what the calculator supports
func (h *Handler) EVHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "healthy",
		"features_supported": []string{"straight_cash_bets"},
		"features_not_supported": []string{
			"bonus_bets",
			"matched_betting",
			"insurance",
			"hedging",
			"parlays",
			"teasers",
			"same_game_parlays",
		},
		"max_odds_age_seconds": h.maxOddsAgeSeconds(),
		"formula":              models.FormulaStraightBet,
		"probability_source":   "user_provided",
	})
}

// CalculateEV handles POST /api/ev/calculate
func (h *Handler) CalculateEV(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())

	req, err := decodeCalculateRequest(r.Body, h.validate)
	if err != nil {
		metrics.RecordEVError("invalid_request")
		respondError(w, http.StatusUnprocessableEntity, "Invalid request", err.Error(), nil)
		return
	}

	input, err := req.toInput()
	if err != nil {
		var tsErr *timestampError
		if errors.As(err, &tsErr) {
			metrics.RecordEVError(string(models.KindInvalidTimestamp))
			respondError(w, http.StatusUnprocessableEntity, "Invalid timestamp format", err.Error(),
				map[string]interface{}{"expected_format": ExpectedTimestampFormat})
			return
		}
		metrics.RecordEVError("invalid_request")
		respondError(w, http.StatusUnprocessableEntity, "Invalid request", err.Error(), nil)
		return
	}

	result, err := h.calculator.CalculateStraightBetEV(input)
	if err != nil {
		h.audit.LogEVRejection(requestID, err)
		metrics.RecordEVError(string(models.KindOf(err)))
		h.respondEVError(w, err)
		return
	}

	body, err := json.Marshal(NewEVResponse(result))
	if err != nil {
		h.logger.WithError(err).WithField("request_id", requestID).Error("EV result could not be encoded")
		metrics.RecordEVError(string(models.KindCalculationFailed))
		respondError(w, http.StatusInternalServerError, "Calculation failed", "result could not be encoded", nil)
		return
	}

	metrics.RecordEVCalculation(evOutcome(result), float64(result.OddsAgeSeconds), result.HasWarnings())
	h.audit.LogEVCalculation(requestID, result)
	writeBody(w, http.StatusOK, append(body, '\n'))
}

// respondEVError maps calculator error kinds to status codes and hint fields
func (h *Handler) respondEVError(w http.ResponseWriter, err error) {
	var evErr *models.EVError
	if !errors.As(err, &evErr) {
		respondError(w, http.StatusInternalServerError, "Unexpected error", err.Error(), nil)
		return
	}

	switch evErr.Kind {
	case models.KindStaleData:
		respondError(w, http.StatusUnprocessableEntity, "Odds too old", evErr.Message,
			map[string]interface{}{"max_age_seconds": h.maxOddsAgeSeconds()})
	case models.KindInvalidTimestamp:
		respondError(w, http.StatusUnprocessableEntity, "Invalid timestamp", evErr.Message,
			map[string]interface{}{"requirement": "Odds timestamp cannot be in the future"})
	case models.KindInvalidProbability:
		respondError(w, http.StatusUnprocessableEntity, "Invalid probability", evErr.Message,
			map[string]interface{}{"valid_range": "0 < probability < 1 (exclusive)"})
	case models.KindInvalidOdds:
		respondError(w, http.StatusUnprocessableEntity, "Invalid odds", evErr.Message,
			map[string]interface{}{"requirement": "Odds must be > 1.0 (decimal format)"})
	case models.KindInvalidStake:
		respondError(w, http.StatusUnprocessableEntity, "Invalid stake", evErr.Message,
			map[string]interface{}{"requirement": "Stake must be > 0"})
	case models.KindCalculationFailed:
		respondError(w, http.StatusInternalServerError, "Calculation failed", evErr.Error(), nil)
	default:
		respondError(w, http.StatusInternalServerError, "Unexpected error", evErr.Error(), nil)
	}
}

func evOutcome(r *models.EVResult) string {
	switch r.EVCash.Sign() {
	case 1:
		return "positive"
	case -1:
		return "negative"
	default:
		return "zero"
	}
}
