// Package api exposes the EV calculator and validated odds over HTTP.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/ev"
	"github.com/yourusername/better-bets/internal/logger"
	"github.com/yourusername/better-bets/internal/models"
)

// OddsProvider serves validated odds
type OddsProvider interface {
	GetValidatedOdds(ctx context.Context, sportKey string) (*models.ValidatedOddsResponse, error)
	Policy() models.OddsPolicy
}

// SportsLister lists the sports the upstream provider offers
type SportsLister interface {
	FetchSports(ctx context.Context) ([]models.Sport, error)
}

// Handler contains dependencies for HTTP handlers
type Handler struct {
	calculator *ev.Calculator
	odds       OddsProvider
	sports     SportsLister
	audit      *logger.AuditLogger
	logger     *logrus.Entry
	validate   *validator.Validate
	upgrader   websocket.Upgrader
	version    string
	now        func() time.Time

	streamInterval time.Duration
	baseCtx        context.Context
}

// HandlerConfig holds the handler's collaborators
type HandlerConfig struct {
	Calculator *ev.Calculator
	Odds       OddsProvider
	Sports     SportsLister
	Logger     *logrus.Logger
	Version    string
	Now        func() time.Time
	// AllowedOrigins gates WebSocket upgrades; "*" admits any origin
	AllowedOrigins []string
	StreamInterval time.Duration
	// BaseContext ends open streams when cancelled
	BaseContext context.Context
}

// NewHandler creates a new handler
func NewHandler(cfg HandlerConfig) *Handler {
	log := cfg.Logger
	if log == nil {
		log = logger.NewDiscardLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	interval := cfg.StreamInterval
	if interval <= 0 {
		interval = DefaultStreamInterval
	}
	baseCtx := cfg.BaseContext
	if baseCtx == nil {
		baseCtx = context.Background()
	}
	return &Handler{
		calculator:     cfg.Calculator,
		odds:           cfg.Odds,
		sports:         cfg.Sports,
		audit:          logger.NewAuditLogger(log),
		logger:         log.WithField("component", "api"),
		validate:       newRequestValidator(),
		upgrader:       newUpgrader(cfg.AllowedOrigins),
		version:        cfg.Version,
		now:            now,
		streamInterval: interval,
		baseCtx:        baseCtx,
	}
}

func (h *Handler) maxOddsAgeSeconds() int64 {
	return int64(h.calculator.Config().MaxOddsAge / time.Second)
}

// Health reports service status, enabled features and operating constraints
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	maxAge := h.maxOddsAgeSeconds()
	policy := h.odds.Policy()

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"version":   h.version,
		"timestamp": h.now().UTC().Format(time.RFC3339),
		"features_enabled": map[string]bool{
			"straight_cash_bets":        true,
			"ev_calculation":            true,
			"live_odds":                 true,
			"odds_validation":           true,
			"timestamp_staleness_check": true,
		},
		"features_disabled": map[string]string{
			"bonus_bets":       "Not implemented - requires sportsbook policy database",
			"matched_betting":  "Not implemented - requires dual-book support",
			"insurance":        "Not implemented - requires sportsbook policy database",
			"hedging":          "Not implemented",
			"parlays":          "Not implemented",
			"kelly_calculator": "Disabled",
			"clv_tracking":     "Disabled",
			"devig_odds":       "Disabled",
		},
		"constraints": map[string]interface{}{
			"max_odds_age_seconds":  maxAge,
			"supported_sportsbooks": policy.SportsbookKeys(),
			"supported_markets":     []string{policy.MarketKey},
			"odds_format":           "decimal",
		},
		"warnings": []string{
			"EV calculations require YOUR probability estimate",
			"Only cash bets are supported",
			"Odds must be refreshed within " + strconv.FormatInt(maxAge, 10) + " seconds",
		},
	})
}

// encodeFailureBody is sent when a response value cannot be encoded
var encodeFailureBody = []byte(`{"detail":{"error":"Unexpected error","message":"response could not be encoded"}}` + "\n")

// respondJSON writes a JSON response. The body is encoded before the status is
// sent, so an unencodable value becomes a 500 and the error is returned.
func respondJSON(w http.ResponseWriter, status int, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		writeBody(w, http.StatusInternalServerError, encodeFailureBody)
		return err
	}
	writeBody(w, status, append(body, '\n'))
	return nil
}

func writeBody(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// respondError writes an error body of the form {"detail": {...}}
func respondError(w http.ResponseWriter, status int, label, message string, extra map[string]interface{}) {
	detail := map[string]interface{}{
		"error":   label,
		"message": message,
	}
	for k, v := range extra {
		detail[k] = v
	}
	respondJSON(w, status, map[string]interface{}{"detail": detail})
}
