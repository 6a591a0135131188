package api

import (
	"encoding/json"
	"time"

	"github.com/yourusername/better-bets/internal/ev"
	"github.com/yourusername/better-bets/internal/models"
)

// EVResponse renders an EVResult; ev_cash is always written with two decimals.
type EVResponse struct {
	EVCash               json.Number              `json:"ev_cash"`
	FormulaUsed          string                   `json:"formula_used"`
	Inputs               models.CalculationInputs `json:"inputs"`
	CalculationTimestamp time.Time                `json:"calculation_timestamp"`
	OddsTimestamp        time.Time                `json:"odds_timestamp"`
	OddsAgeSeconds       int64                    `json:"odds_age_seconds"`
	OddsSource           string                   `json:"odds_source"`
	OddsSourceDetail     *models.OddsSourceDetail `json:"odds_source_detail"`
	Warnings             []string                 `json:"warnings"`
	ExcludedFeatures     []string                 `json:"excluded_features"`
}

// NewEVResponse converts a calculator result for output
func NewEVResponse(r *models.EVResult) EVResponse {
	return EVResponse{
		EVCash:               json.Number(r.EVCash.StringFixed(ev.CentPlaces)),
		FormulaUsed:          r.FormulaUsed,
		Inputs:               r.Inputs,
		CalculationTimestamp: r.CalculationTimestamp.UTC(),
		OddsTimestamp:        r.OddsTimestamp.UTC(),
		OddsAgeSeconds:       r.OddsAgeSeconds,
		OddsSource:           r.OddsSource,
		OddsSourceDetail:     r.OddsSourceDetail,
		Warnings:             r.Warnings,
		ExcludedFeatures:     r.ExcludedFeatures,
	}
}

// OutcomeResponse is a priced outcome with the price as a JSON number
type OutcomeResponse struct {
	Name  string      `json:"name"`
	Price json.Number `json:"price"`
}

// BookmakerResponse is one validated bookmaker
type BookmakerResponse struct {
	Key        string            `json:"key"`
	Title      string            `json:"title"`
	LastUpdate time.Time         `json:"last_update"`
	Outcomes   []OutcomeResponse `json:"outcomes"`
}

// EventResponse is one validated event
type EventResponse struct {
	ID           string              `json:"id"`
	SportKey     string              `json:"sport_key"`
	SportTitle   string              `json:"sport_title"`
	CommenceTime time.Time           `json:"commence_time"`
	HomeTeam     string              `json:"home_team"`
	AwayTeam     string              `json:"away_team"`
	Bookmakers   []BookmakerResponse `json:"bookmakers"`
}

// OddsResponse is the body of GET /api/odds/{sport_key}
type OddsResponse struct {
	Events               []EventResponse `json:"events"`
	RetrievedAt          time.Time       `json:"retrieved_at"`
	APIRequestsRemaining *string         `json:"api_requests_remaining"`
	APIRequestsUsed      *string         `json:"api_requests_used"`
	Source               string          `json:"source"`
	SupportedSportsbooks []string        `json:"supported_sportsbooks"`
	MaxOddsAgeSeconds    int64           `json:"max_odds_age_seconds"`
}

// NewOddsResponse converts validated odds for output, annotated with the policy in force
func NewOddsResponse(resp *models.ValidatedOddsResponse, policy models.OddsPolicy) OddsResponse {
	events := make([]EventResponse, 0, len(resp.Events))
	for _, e := range resp.Events {
		books := make([]BookmakerResponse, 0, len(e.Bookmakers))
		for _, b := range e.Bookmakers {
			outcomes := make([]OutcomeResponse, 0, len(b.Outcomes))
			for _, o := range b.Outcomes {
				outcomes = append(outcomes, OutcomeResponse{Name: o.Name, Price: json.Number(o.Price.String())})
			}
			books = append(books, BookmakerResponse{
				Key:        b.Key,
				Title:      b.Title,
				LastUpdate: b.LastUpdate.UTC(),
				Outcomes:   outcomes,
			})
		}
		events = append(events, EventResponse{
			ID:           e.ID,
			SportKey:     e.SportKey,
			SportTitle:   e.SportTitle,
			CommenceTime: e.CommenceTime.UTC(),
			HomeTeam:     e.HomeTeam,
			AwayTeam:     e.AwayTeam,
			Bookmakers:   books,
		})
	}

	return OddsResponse{
		Events:               events,
		RetrievedAt:          resp.RetrievedAt.UTC(),
		APIRequestsRemaining: resp.APIRequestsRemaining,
		APIRequestsUsed:      resp.APIRequestsUsed,
		Source:               resp.Source,
		SupportedSportsbooks: policy.SportsbookKeys(),
		MaxOddsAgeSeconds:    int64(policy.MaxAge / time.Second),
	}
}
