package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/better-bets/internal/ev"
	"github.com/yourusername/better-bets/internal/models"
)

var fixedNow = time.Date(2025, 12, 31, 18, 30, 0, 0, time.UTC)

type stubOdds struct {
	resp *models.ValidatedOddsResponse
	err  error
	got  string
}

func (s *stubOdds) GetValidatedOdds(_ context.Context, sportKey string) (*models.ValidatedOddsResponse, error) {
	s.got = sportKey
	return s.resp, s.err
}

func (s *stubOdds) Policy() models.OddsPolicy {
	return models.DefaultOddsPolicy()
}

type stubSports struct {
	list []models.Sport
	err  error
}

func (s stubSports) FetchSports(context.Context) ([]models.Sport, error) {
	return s.list, s.err
}

func newTestRouter(t *testing.T, odds OddsProvider, lister SportsLister) (http.Handler, *test.Hook) {
	t.Helper()
	logger, hook := test.NewNullLogger()
	now := func() time.Time { return fixedNow }
	h := NewHandler(HandlerConfig{
		Calculator: ev.NewCalculator(ev.DefaultConfig(), now),
		Odds:       odds,
		Sports:     lister,
		Logger:     logger,
		Version:    "1.0.0",
		Now:        now,

		AllowedOrigins: []string{"http://localhost:3000"},
		StreamInterval: 50 * time.Millisecond,
	})
	return NewRouter(h, RouterConfig{
		AllowedOrigins: []string{"http://localhost:3000"},
		Logger:         logger,
	}), hook
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func detailOf(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	detail, ok := decodeBody(t, rec)["detail"].(map[string]interface{})
	require.True(t, ok, "missing detail in %s", rec.Body.String())
	return detail
}

func calcBody(odds, probability, stake, timestamp string) string {
	return `{"odds":` + odds + `,"true_probability":` + probability + `,"cash_stake":` + stake +
		`,"odds_timestamp":"` + timestamp + `","odds_source":"manual"}`
}

func secondsAgo(n int) string {
	return fixedNow.Add(-time.Duration(n) * time.Second).Format(time.RFC3339)
}

func TestHealth(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	rec := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "1.0.0", body["version"])
	assert.Equal(t, "2025-12-31T18:30:00Z", body["timestamp"])

	constraints := body["constraints"].(map[string]interface{})
	assert.Equal(t, float64(60), constraints["max_odds_age_seconds"])
	assert.Equal(t, []interface{}{"draftkings"}, constraints["supported_sportsbooks"])
	assert.Equal(t, []interface{}{"h2h"}, constraints["supported_markets"])
	assert.Equal(t, "decimal", constraints["odds_format"])

	enabled := body["features_enabled"].(map[string]interface{})
	assert.Equal(t, true, enabled["straight_cash_bets"])
	assert.Contains(t, body["features_disabled"], "bonus_bets")
	assert.Contains(t, body["warnings"], "Odds must be refreshed within 60 seconds")
}

func TestEVHealth(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	rec := do(t, router, http.MethodGet, "/api/ev/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, []interface{}{"straight_cash_bets"}, body["features_supported"])
	assert.Contains(t, body["features_not_supported"], "same_game_parlays")
	assert.Equal(t, float64(60), body["max_odds_age_seconds"])
	assert.Equal(t, models.FormulaStraightBet, body["formula"])
	assert.Equal(t, "user_provided", body["probability_source"])
}

func TestCalculateEV(t *testing.T) {
	router, hook := newTestRouter(t, &stubOdds{}, nil)

	rec := do(t, router, http.MethodPost, "/api/ev/calculate", calcBody("2.10", "0.5", "100", secondsAgo(10)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"ev_cash":5.00`)

	var resp EVResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, json.Number("5.00"), resp.EVCash)
	assert.Equal(t, models.FormulaStraightBet, resp.FormulaUsed)
	assert.Equal(t, int64(10), resp.OddsAgeSeconds)
	assert.Equal(t, "manual", resp.OddsSource)
	assert.Empty(t, resp.Warnings)
	assert.Equal(t, models.ExcludedFeatures, resp.ExcludedFeatures)
	assert.True(t, fixedNow.Equal(resp.CalculationTimestamp))

	var audited bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "EV calculation recorded" {
			audited = true
			assert.Equal(t, "5.00", entry.Data["ev_cash"])
			assert.Equal(t, rec.Header().Get(RequestIDHeader), entry.Data["request_id"])
		}
	}
	assert.True(t, audited)
}

func TestCalculateEVNegativeWithWarningAndDetail(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	body := `{"odds":1.8,"true_probability":0.5,"cash_stake":50,"odds_timestamp":"` + secondsAgo(45) +
		`","odds_source":"the-odds-api-v4","odds_source_detail":{"event":"Chiefs @ Bills","outcome":"Chiefs","bookmaker":"DraftKings"}}`
	rec := do(t, router, http.MethodPost, "/api/ev/calculate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EVResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, json.Number("-5.00"), resp.EVCash)
	require.Len(t, resp.Warnings, 1)
	assert.Contains(t, resp.Warnings[0], "45 seconds old")
	require.NotNil(t, resp.OddsSourceDetail)
	assert.Equal(t, "DraftKings", resp.OddsSourceDetail.Bookmaker)
}

func TestCalculateEVNaiveTimestampIsUTC(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	naive := fixedNow.Add(-5 * time.Second).Format("2006-01-02T15:04:05")
	rec := do(t, router, http.MethodPost, "/api/ev/calculate", calcBody("2.0", "0.55", "10", naive))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp EVResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(5), resp.OddsAgeSeconds)
	assert.Equal(t, json.Number("1.00"), resp.EVCash)
}

func TestCalculateEVErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantLabel  string
		hintKey    string
	}{
		{
			name:       "stale at the cutoff",
			body:       calcBody("2.0", "0.5", "100", secondsAgo(60)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Odds too old",
			hintKey:    "max_age_seconds",
		},
		{
			name:       "future timestamp",
			body:       calcBody("2.0", "0.5", "100", fixedNow.Add(time.Minute).Format(time.RFC3339)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid timestamp",
			hintKey:    "requirement",
		},
		{
			name:       "unparseable timestamp",
			body:       calcBody("2.0", "0.5", "100", "yesterday"),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid timestamp format",
			hintKey:    "expected_format",
		},
		{
			name:       "probability of one",
			body:       calcBody("2.0", "1", "100", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid probability",
			hintKey:    "valid_range",
		},
		{
			name:       "odds of one",
			body:       calcBody("1.0", "0.5", "100", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid odds",
			hintKey:    "requirement",
		},
		{
			name:       "zero stake",
			body:       calcBody("2.0", "0.5", "0", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid stake",
			hintKey:    "requirement",
		},
		{
			name:       "odds beyond float64",
			body:       calcBody("1e400", "0.5", "100", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid odds",
			hintKey:    "requirement",
		},
		{
			name:       "odds with huge exponent",
			body:       calcBody("1e50000000", "0.5", "100", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid odds",
			hintKey:    "requirement",
		},
		{
			name:       "probability with tiny exponent",
			body:       calcBody("2.0", "5e-2000000000", "100", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid probability",
			hintKey:    "valid_range",
		},
		{
			name:       "stake with huge exponent",
			body:       calcBody("2.0", "0.5", "1e2000000000", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid stake",
			hintKey:    "requirement",
		},
		{
			name:       "missing fields",
			body:       `{"odds":2.0}`,
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid request",
		},
		{
			name:       "malformed json",
			body:       `{"odds":`,
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid request",
		},
		{
			name:       "non numeric odds",
			body:       calcBody(`"abc"`, "0.5", "100", secondsAgo(1)),
			wantStatus: http.StatusUnprocessableEntity,
			wantLabel:  "Invalid request",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, &stubOdds{}, nil)

			rec := do(t, router, http.MethodPost, "/api/ev/calculate", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())

			detail := detailOf(t, rec)
			assert.Equal(t, tt.wantLabel, detail["error"])
			assert.NotEmpty(t, detail["message"])
			if tt.hintKey != "" {
				assert.Contains(t, detail, tt.hintKey)
			}
		})
	}
}

func TestCalculateEVSuccessBodiesDecode(t *testing.T) {
	bodies := []string{
		calcBody("2.10", "0.5", "100", secondsAgo(10)),
		calcBody("999999999999999", "0.5", "999999999999999", secondsAgo(1)),
		calcBody("1.0000000000000000000000000001", "0.9999999999999999999999999999", "0.0000000000000000000000000001", secondsAgo(1)),
		calcBody("1e15", "0.5", "100", secondsAgo(1)),
		calcBody("1e400", "0.5", "100", secondsAgo(1)),
	}

	for _, body := range bodies {
		router, _ := newTestRouter(t, &stubOdds{}, nil)
		rec := do(t, router, http.MethodPost, "/api/ev/calculate", body)
		if rec.Code != http.StatusOK {
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, body)
			detailOf(t, rec)
			continue
		}

		var resp EVResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), "body %q for request %s", rec.Body.String(), body)
		assert.NotEmpty(t, resp.EVCash)
	}
}

func TestRespondJSONUnencodable(t *testing.T) {
	rec := httptest.NewRecorder()
	err := respondJSON(rec, http.StatusOK, map[string]float64{"odds": math.Inf(1)})
	require.Error(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "Unexpected error", detailOf(t, rec)["error"])
}

func TestCalculateEVMissingFieldsNamed(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	rec := do(t, router, http.MethodPost, "/api/ev/calculate", `{"odds":2.0,"true_probability":0.5}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	message := detailOf(t, rec)["message"].(string)
	assert.Contains(t, message, "cash_stake")
	assert.Contains(t, message, "odds_timestamp")
	assert.NotContains(t, message, "true_probability")
}

func TestGetOdds(t *testing.T) {
	remaining := "487"
	odds := &stubOdds{resp: &models.ValidatedOddsResponse{
		Events: []models.ValidatedOddsEvent{{
			ID:           "evt-1",
			SportKey:     "americanfootball_nfl",
			SportTitle:   "NFL",
			CommenceTime: fixedNow.Add(2 * time.Hour),
			HomeTeam:     "Buffalo Bills",
			AwayTeam:     "Kansas City Chiefs",
			Bookmakers: []models.ValidatedBookmaker{{
				Key:        "draftkings",
				Title:      "DraftKings",
				LastUpdate: fixedNow.Add(-10 * time.Second),
				Outcomes: []models.ValidatedOutcome{
					{Name: "Buffalo Bills", Price: decimal.RequireFromString("1.91")},
					{Name: "Kansas City Chiefs", Price: decimal.RequireFromString("1.95")},
				},
			}},
		}},
		RetrievedAt:          fixedNow,
		APIRequestsRemaining: &remaining,
		Source:               models.OddsSourceLabel,
	}}
	router, _ := newTestRouter(t, odds, nil)

	rec := do(t, router, http.MethodGet, "/api/odds/americanfootball_nfl", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "americanfootball_nfl", odds.got)
	assert.Contains(t, rec.Body.String(), `"price":1.91`)

	var resp OddsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 1)
	assert.Equal(t, "evt-1", resp.Events[0].ID)
	require.Len(t, resp.Events[0].Bookmakers, 1)
	assert.Len(t, resp.Events[0].Bookmakers[0].Outcomes, 2)
	assert.Equal(t, []string{"draftkings"}, resp.SupportedSportsbooks)
	assert.Equal(t, int64(60), resp.MaxOddsAgeSeconds)
	assert.Equal(t, models.OddsSourceLabel, resp.Source)
	require.NotNil(t, resp.APIRequestsRemaining)
	assert.Equal(t, "487", *resp.APIRequestsRemaining)
	assert.Nil(t, resp.APIRequestsUsed)
}

func TestGetOddsEmptyEventsIsArray(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{resp: &models.ValidatedOddsResponse{RetrievedAt: fixedNow}}, nil)

	rec := do(t, router, http.MethodGet, "/api/odds/basketball_nba", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"events":[]`)
}

func TestGetOddsErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantLabel  string
	}{
		{
			name:       "upstream failure",
			err:        &models.OddsAPIError{SportKey: "basketball_nba", Message: "rate limit exceeded"},
			wantStatus: http.StatusServiceUnavailable,
			wantLabel:  "Odds API unavailable",
		},
		{
			name:       "unusable document",
			err:        &models.OddsValidationError{Message: "expected a JSON array of events"},
			wantStatus: http.StatusInternalServerError,
			wantLabel:  "Odds validation failed",
		},
		{
			name:       "anything else",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantLabel:  "Unexpected error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router, _ := newTestRouter(t, &stubOdds{err: tt.err}, nil)

			rec := do(t, router, http.MethodGet, "/api/odds/basketball_nba", "")
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantLabel, detailOf(t, rec)["error"])
		})
	}
}

func TestAvailableSports(t *testing.T) {
	t.Run("listed", func(t *testing.T) {
		lister := stubSports{list: []models.Sport{{Key: "basketball_nba", Group: "Basketball", Title: "NBA", Active: true}}}
		router, _ := newTestRouter(t, &stubOdds{}, lister)

		rec := do(t, router, http.MethodGet, "/api/odds/sports/available", "")
		require.Equal(t, http.StatusOK, rec.Code)

		body := decodeBody(t, rec)
		assert.Len(t, body["sports"], 1)
		assert.Equal(t, []interface{}{"draftkings"}, body["supported_sportsbooks"])
		assert.Equal(t, "Only events from supported sportsbooks will be returned", body["note"])
	})

	t.Run("upstream down", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubOdds{}, stubSports{err: errors.New("connection refused")})

		rec := do(t, router, http.MethodGet, "/api/odds/sports/available", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Equal(t, "Odds API unavailable", detailOf(t, rec)["error"])
	})

	t.Run("no lister", func(t *testing.T) {
		router, _ := newTestRouter(t, &stubOdds{}, nil)

		rec := do(t, router, http.MethodGet, "/api/odds/sports/available", "")
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestSportsCatalogue(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	rec := do(t, router, http.MethodGet, "/api/sports", "")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, float64(16), body["total"])
	categories := body["categories"].([]interface{})
	require.NotEmpty(t, categories)
	assert.Equal(t, "American Football", categories[0].(map[string]interface{})["name"])
}

func TestRequestIDMiddleware(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	t.Run("generated", func(t *testing.T) {
		rec := do(t, router, http.MethodGet, "/api/ev/health", "")
		_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
		assert.NoError(t, err)
	})

	t.Run("inbound reused", func(t *testing.T) {
		id := uuid.NewString()
		req := httptest.NewRequest(http.MethodGet, "/api/ev/health", nil)
		req.Header.Set(RequestIDHeader, id)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, id, rec.Header().Get(RequestIDHeader))
	})

	t.Run("malformed inbound replaced", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/ev/health", nil)
		req.Header.Set(RequestIDHeader, "not-a-uuid")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.NotEqual(t, "not-a-uuid", rec.Header().Get(RequestIDHeader))
	})
}

func TestRequestLoggerLevels(t *testing.T) {
	router, hook := newTestRouter(t, &stubOdds{err: &models.OddsAPIError{Message: "down"}}, nil)

	do(t, router, http.MethodGet, "/api/odds/basketball_nba", "")

	var found bool
	for _, entry := range hook.AllEntries() {
		if entry.Message == "Request failed" {
			found = true
			assert.Equal(t, "/api/odds/{sport_key}", entry.Data["route"])
			assert.Equal(t, http.StatusServiceUnavailable, entry.Data["status"])
		}
	}
	assert.True(t, found)
}

func TestCORSPreflight(t *testing.T) {
	router, _ := newTestRouter(t, &stubOdds{}, nil)

	req := httptest.NewRequest(http.MethodOptions, "/api/ev/calculate", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Time
		wantErr bool
	}{
		{in: "2025-12-31T18:30:00Z", want: fixedNow},
		{in: "2025-12-31T19:30:00+01:00", want: fixedNow},
		{in: "2025-12-31T18:30:00.250Z", want: fixedNow.Add(250 * time.Millisecond)},
		{in: "2025-12-31T18:30:00", want: fixedNow},
		{in: "2025-12-31 18:30:00", want: fixedNow},
		{in: "31/12/2025", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTimestamp(tt.in)
			if tt.wantErr {
				var tsErr *timestampError
				assert.True(t, errors.As(err, &tsErr))
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %s", got)
		})
	}
}
