package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/models"
	"github.com/yourusername/better-bets/internal/sports"
)

// GetOdds handles GET /api/odds/{sport_key}
func (h *Handler) GetOdds(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetReqID(r.Context())
	sportKey := chi.URLParam(r, "sport_key")

	resp, err := h.odds.GetValidatedOdds(r.Context(), sportKey)
	if err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"sport_key":  sportKey,
		}).Warn("Odds request failed")

		status, body := classifyOddsError(err)
		respondError(w, status, body.Error, body.Message, nil)
		return
	}

	h.audit.LogOddsRequest(requestID, sportKey, resp)
	if err := respondJSON(w, http.StatusOK, NewOddsResponse(resp, h.odds.Policy())); err != nil {
		h.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": requestID,
			"sport_key":  sportKey,
		}).Error("Validated odds could not be encoded")
	}
}

// AvailableSports handles GET /api/odds/sports/available
func (h *Handler) AvailableSports(w http.ResponseWriter, r *http.Request) {
	if h.sports == nil {
		respondError(w, http.StatusServiceUnavailable, "Odds API unavailable", "no odds provider configured", nil)
		return
	}

	list, err := h.sports.FetchSports(r.Context())
	if err != nil {
		h.logger.WithError(err).Warn("Sports listing failed")
		respondError(w, http.StatusServiceUnavailable, "Odds API unavailable", err.Error(), nil)
		return
	}
	if list == nil {
		list = []models.Sport{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"sports":                list,
		"supported_sportsbooks": h.odds.Policy().SportsbookKeys(),
		"note":                  "Only events from supported sportsbooks will be returned",
	})
}

// Sports handles GET /api/sports with the local catalogue
func (h *Handler) Sports(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"categories": sports.ByCategory(),
		"total":      len(sports.All()),
		"timestamp":  h.now().UTC().Format(time.RFC3339),
	})
}
