package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/metrics"
	"github.com/yourusername/better-bets/internal/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512

	// DefaultStreamInterval is how often a stream pushes a fresh snapshot
	DefaultStreamInterval = 15 * time.Second

	streamFetchTimeout = 15 * time.Second
)

// Stream message types
const (
	MessageTypeOdds  = "odds"
	MessageTypeError = "error"
)

// StreamMessage is one frame on an odds stream
type StreamMessage struct {
	Type      string      `json:"type"`
	SportKey  string      `json:"sport_key"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// StreamError is the payload of an error frame
type StreamError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		allowed[origin] = true
	}
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || allowed["*"] || allowed[origin]
		},
	}
}

// StreamOdds handles GET /api/odds/{sport_key}/stream.
//
// Every stream interval the connection receives a freshly validated snapshot.
// Upstream failures are sent as error frames and do not close the stream.
func (h *Handler) StreamOdds(w http.ResponseWriter, r *http.Request) {
	sportKey := chi.URLParam(r, "sport_key")
	log := h.logger.WithFields(logrus.Fields{
		"request_id": middleware.GetReqID(r.Context()),
		"sport_key":  sportKey,
	})

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	defer conn.Close()

	metrics.StreamOpened()
	defer metrics.StreamClosed()
	log.Info("Odds stream opened")

	done := make(chan struct{})
	go readPump(conn, done)

	ticker := time.NewTicker(h.streamInterval)
	ping := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	defer ping.Stop()

	if err := h.pushOdds(conn, sportKey); err != nil {
		log.WithError(err).Debug("Odds stream write failed")
		return
	}

	for {
		select {
		case <-done:
			log.Info("Odds stream closed by client")
			return

		case <-h.baseCtx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(writeWait))
			return

		case <-ticker.C:
			if err := h.pushOdds(conn, sportKey); err != nil {
				log.WithError(err).Debug("Odds stream write failed")
				return
			}

		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// pushOdds writes one snapshot or error frame. Only write failures are returned.
func (h *Handler) pushOdds(conn *websocket.Conn, sportKey string) error {
	ctx, cancel := context.WithTimeout(h.baseCtx, streamFetchTimeout)
	defer cancel()

	msg := StreamMessage{Type: MessageTypeOdds, SportKey: sportKey}
	resp, err := h.odds.GetValidatedOdds(ctx, sportKey)
	if err != nil {
		msg.Type = MessageTypeError
		_, msg.Payload = classifyOddsError(err)
	} else {
		msg.Payload = NewOddsResponse(resp, h.odds.Policy())
	}
	msg.Timestamp = h.now().UTC()

	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(msg)
}

// readPump discards client frames and keeps the read deadline fresh on pongs.
// done is closed once the peer goes away.
func readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.NextReader(); err != nil {
			return
		}
	}
}

// classifyOddsError maps odds service failures to a status and error body
func classifyOddsError(err error) (int, StreamError) {
	var apiErr *models.OddsAPIError
	var valErr *models.OddsValidationError
	switch {
	case errors.As(err, &apiErr):
		return http.StatusServiceUnavailable, StreamError{Error: "Odds API unavailable", Message: err.Error()}
	case errors.As(err, &valErr):
		return http.StatusInternalServerError, StreamError{Error: "Odds validation failed", Message: err.Error()}
	default:
		return http.StatusInternalServerError, StreamError{Error: "Unexpected error", Message: err.Error()}
	}
}
