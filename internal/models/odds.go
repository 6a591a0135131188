package models

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// OddsSourceLabel is the provenance label attached to validated odds documents.
const OddsSourceLabel = "the-odds-api-v4"

// MarketHeadToHead is the only market type the validator admits.
const MarketHeadToHead = "h2h"

// Quota metadata keys as returned by the upstream feed.
const (
	MetaRequestsRemaining = "x-requests-remaining"
	MetaRequestsUsed      = "x-requests-used"
)

// ValidatedOutcome is a single priced outcome with odds > 1.0
type ValidatedOutcome struct {
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// ValidatedBookmaker is an allow-listed, fresh bookmaker with a usable market
type ValidatedBookmaker struct {
	Key        string             `json:"key"`
	Title      string             `json:"title"`
	LastUpdate time.Time          `json:"last_update"`
	Outcomes   []ValidatedOutcome `json:"outcomes"`
}

// ValidatedOddsEvent is an event with at least one surviving bookmaker
type ValidatedOddsEvent struct {
	ID           string               `json:"id"`
	SportKey     string               `json:"sport_key"`
	SportTitle   string               `json:"sport_title"`
	CommenceTime time.Time            `json:"commence_time"`
	HomeTeam     string               `json:"home_team"`
	AwayTeam     string               `json:"away_team"`
	Bookmakers   []ValidatedBookmaker `json:"bookmakers"`
}

// ValidatedOddsResponse is the filtered subset of an odds-feed document
type ValidatedOddsResponse struct {
	Events               []ValidatedOddsEvent `json:"events"`
	RetrievedAt          time.Time            `json:"retrieved_at"`
	APIRequestsRemaining *string              `json:"api_requests_remaining"`
	APIRequestsUsed      *string              `json:"api_requests_used"`
	Source               string               `json:"source"`
}

// BookmakerCount returns the number of bookmaker entries across all events
func (r *ValidatedOddsResponse) BookmakerCount() int {
	count := 0
	for _, event := range r.Events {
		count += len(event.Bookmakers)
	}
	return count
}

// OddsPolicy is the injected filtering policy for the odds validator.
type OddsPolicy struct {
	// Sportsbooks maps allow-listed sportsbook keys to display titles.
	Sportsbooks map[string]string
	MarketKey   string
	MinOutcomes int
	MaxAge      time.Duration
}

// DefaultOddsPolicy returns the MVP policy: DraftKings only, h2h, two outcomes, 60s.
func DefaultOddsPolicy() OddsPolicy {
	return OddsPolicy{
		Sportsbooks: map[string]string{"draftkings": "DraftKings"},
		MarketKey:   MarketHeadToHead,
		MinOutcomes: 2,
		MaxAge:      60 * time.Second,
	}
}

// IsSupported checks whether a sportsbook key is on the allow-list
func (p OddsPolicy) IsSupported(key string) bool {
	_, ok := p.Sportsbooks[key]
	return ok
}

// SportsbookKeys returns the allow-listed keys in sorted order
func (p OddsPolicy) SportsbookKeys() []string {
	keys := make([]string, 0, len(p.Sportsbooks))
	for k := range p.Sportsbooks {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
