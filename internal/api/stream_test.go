package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/better-bets/internal/models"
)

// flakyOdds fails every call listed in failOn (1-based)
type flakyOdds struct {
	mu     sync.Mutex
	calls  int
	failOn map[int]bool
}

func (f *flakyOdds) GetValidatedOdds(_ context.Context, sportKey string) (*models.ValidatedOddsResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failOn[f.calls] {
		return nil, &models.OddsAPIError{SportKey: sportKey, Message: "rate limit exceeded"}
	}
	return &models.ValidatedOddsResponse{RetrievedAt: fixedNow, Source: models.OddsSourceLabel}, nil
}

func (f *flakyOdds) Policy() models.OddsPolicy {
	return models.DefaultOddsPolicy()
}

func dialStream(t *testing.T, server *httptest.Server, sportKey string, header http.Header) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/odds/" + sportKey + "/stream"
	return websocket.DefaultDialer.Dial(url, header)
}

func readFrame(t *testing.T, conn *websocket.Conn) StreamMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg StreamMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestStreamOddsPushesSnapshots(t *testing.T) {
	router, _ := newTestRouter(t, &flakyOdds{failOn: map[int]bool{2: true}}, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	conn, _, err := dialStream(t, server, "basketball_nba", nil)
	require.NoError(t, err)
	defer conn.Close()

	first := readFrame(t, conn)
	assert.Equal(t, MessageTypeOdds, first.Type)
	assert.Equal(t, "basketball_nba", first.SportKey)
	payload := first.Payload.(map[string]interface{})
	assert.Equal(t, models.OddsSourceLabel, payload["source"])

	second := readFrame(t, conn)
	assert.Equal(t, MessageTypeError, second.Type)
	assert.Equal(t, "Odds API unavailable", second.Payload.(map[string]interface{})["error"])

	third := readFrame(t, conn)
	assert.Equal(t, MessageTypeOdds, third.Type, "stream survives upstream failures")
}

func TestStreamOddsRejectsForeignOrigin(t *testing.T) {
	router, _ := newTestRouter(t, &flakyOdds{}, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://evil.example")
	_, resp, err := dialStream(t, server, "basketball_nba", header)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestStreamOddsAllowsConfiguredOrigin(t *testing.T) {
	router, _ := newTestRouter(t, &flakyOdds{}, nil)
	server := httptest.NewServer(router)
	defer server.Close()

	header := http.Header{}
	header.Set("Origin", "http://localhost:3000")
	conn, _, err := dialStream(t, server, "basketball_nba", header)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, MessageTypeOdds, readFrame(t, conn).Type)
}

func TestStreamOddsClosesOnShutdown(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	logger, _ := test.NewNullLogger()
	h := NewHandler(HandlerConfig{
		Odds:           &flakyOdds{},
		Logger:         logger,
		Now:            func() time.Time { return fixedNow },
		StreamInterval: time.Hour,
		BaseContext:    ctx,
	})
	server := httptest.NewServer(NewRouter(h, RouterConfig{Logger: logger}))
	defer server.Close()

	conn, _, err := dialStream(t, server, "icehockey_nhl", nil)
	require.NoError(t, err)
	defer conn.Close()

	assert.Equal(t, MessageTypeOdds, readFrame(t, conn).Type)
	cancel()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}

func TestStreamOddsRequiresUpgrade(t *testing.T) {
	router, _ := newTestRouter(t, &flakyOdds{}, nil)

	rec := do(t, router, http.MethodGet, "/api/odds/basketball_nba/stream", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestClassifyOddsError(t *testing.T) {
	status, body := classifyOddsError(&models.OddsValidationError{Message: "not an array"})
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Odds validation failed", body.Error)
}
