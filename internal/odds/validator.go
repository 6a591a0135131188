// Package odds filters third-party odds-feed documents down to a safe,
// fresh, allow-listed subset and serves validated odds by sport.
package odds

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/yourusername/better-bets/internal/models"
)

// Units reported to a DropFunc
const (
	UnitEvent     = "event"
	UnitBookmaker = "bookmaker"
	UnitMarket    = "market"
	UnitOutcome   = "outcome"
)

// Drop reasons reported to a DropFunc
const (
	ReasonMalformed             = "malformed"
	ReasonMissingID             = "missing_id"
	ReasonMissingFields         = "missing_fields"
	ReasonInvalidTimestamp      = "invalid_timestamp"
	ReasonNoBookmakers          = "no_bookmakers"
	ReasonUnsupportedSportsbook = "unsupported_sportsbook"
	ReasonFutureTimestamp       = "future_timestamp"
	ReasonStale                 = "stale"
	ReasonNoValidMarket         = "no_valid_market"
	ReasonUnsupportedMarket     = "unsupported_market"
	ReasonTooFewOutcomes        = "too_few_outcomes"
	ReasonInvalidPrice          = "invalid_price"
	ReasonPriceTooLow           = "price_too_low"
	ReasonPanic                 = "panic"
)

// DropFunc observes every unit the validator skips.
type DropFunc func(unit, reason string)

var (
	one = decimal.NewFromInt(1)

	instantLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999Z07:00",
		"2006-01-02T15:04:05.999999999",
		"2006-01-02 15:04:05.999999999",
	}
)

// Validator applies an OddsPolicy to raw odds-feed documents.
// Per-record problems are silent drops; only an unreadable document is an error.
type Validator struct {
	policy models.OddsPolicy
	now    func() time.Time
	onDrop DropFunc
}

// NewValidator creates a validator. A nil now uses time.Now.
func NewValidator(policy models.OddsPolicy, now func() time.Time) *Validator {
	if now == nil {
		now = time.Now
	}
	return &Validator{policy: policy, now: now}
}

// WithDropHook returns a copy of the validator that reports drops to fn.
func (v *Validator) WithDropHook(fn DropFunc) *Validator {
	cp := *v
	cp.onDrop = fn
	return &cp
}

// Policy returns the validator's policy
func (v *Validator) Policy() models.OddsPolicy {
	return v.policy
}

// Validate filters raw using the policy's MaxAge.
func (v *Validator) Validate(raw interface{}, retrievedAt time.Time, meta map[string]string) (*models.ValidatedOddsResponse, error) {
	return v.ValidateWithMaxAge(raw, retrievedAt, meta, v.policy.MaxAge)
}

// ValidateWithMaxAge filters raw, dropping bookmakers whose last_update is older than maxAge.
//
// raw is the decoded top-level document ([]interface{} or []map[string]interface{})
// or its undecoded JSON bytes. Anything that is not a list is an OddsValidationError.
func (v *Validator) ValidateWithMaxAge(raw interface{}, retrievedAt time.Time, meta map[string]string, maxAge time.Duration) (*models.ValidatedOddsResponse, error) {
	records, err := asRecords(raw)
	if err != nil {
		return nil, err
	}

	now := v.now()
	events := make([]models.ValidatedOddsEvent, 0, len(records))
	for _, record := range records {
		if event, ok := v.validateEvent(record, now, maxAge); ok {
			events = append(events, event)
		}
	}

	return &models.ValidatedOddsResponse{
		Events:               events,
		RetrievedAt:          retrievedAt,
		APIRequestsRemaining: lookupMeta(meta, models.MetaRequestsRemaining),
		APIRequestsUsed:      lookupMeta(meta, models.MetaRequestsUsed),
		Source:               models.OddsSourceLabel,
	}, nil
}

func asRecords(raw interface{}) ([]interface{}, error) {
	switch doc := raw.(type) {
	case nil:
		return nil, &models.OddsValidationError{Message: "odds document is empty"}
	case []interface{}:
		return doc, nil
	case []map[string]interface{}:
		records := make([]interface{}, len(doc))
		for i, m := range doc {
			records[i] = m
		}
		return records, nil
	case json.RawMessage:
		return decodeRecords(doc)
	case []byte:
		return decodeRecords(doc)
	default:
		return nil, &models.OddsValidationError{Message: fmt.Sprintf("odds document must be a list, got %T", raw)}
	}
}

func decodeRecords(data []byte) ([]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, &models.OddsValidationError{Message: "odds document is not valid JSON", Err: err}
	}
	return asRecords(doc)
}

func (v *Validator) drop(unit, reason string) {
	if v.onDrop != nil {
		v.onDrop(unit, reason)
	}
}

// validateEvent never panics outward: a fault inside one event drops only that event.
func (v *Validator) validateEvent(record interface{}, now time.Time, maxAge time.Duration) (event models.ValidatedOddsEvent, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			v.drop(UnitEvent, ReasonPanic)
			event, ok = models.ValidatedOddsEvent{}, false
		}
	}()

	m, isMap := record.(map[string]interface{})
	if !isMap {
		v.drop(UnitEvent, ReasonMalformed)
		return event, false
	}

	id, hasID := stringField(m, "id")
	if !hasID {
		v.drop(UnitEvent, ReasonMissingID)
		return event, false
	}

	sportKey, ok1 := stringField(m, "sport_key")
	sportTitle, ok2 := stringField(m, "sport_title")
	commenceRaw, ok3 := stringField(m, "commence_time")
	homeTeam, ok4 := stringField(m, "home_team")
	awayTeam, ok5 := stringField(m, "away_team")
	if !(ok1 && ok2 && ok3 && ok4 && ok5) {
		v.drop(UnitEvent, ReasonMissingFields)
		return event, false
	}

	commence, parsed := parseInstant(commenceRaw)
	if !parsed {
		v.drop(UnitEvent, ReasonInvalidTimestamp)
		return event, false
	}

	bookmakers := make([]models.ValidatedBookmaker, 0)
	for _, rawBook := range listField(m, "bookmakers") {
		if book, valid := v.validateBookmaker(rawBook, now, maxAge); valid {
			bookmakers = append(bookmakers, book)
		}
	}

	if len(bookmakers) == 0 {
		v.drop(UnitEvent, ReasonNoBookmakers)
		return event, false
	}

	return models.ValidatedOddsEvent{
		ID:           id,
		SportKey:     sportKey,
		SportTitle:   sportTitle,
		CommenceTime: commence,
		HomeTeam:     homeTeam,
		AwayTeam:     awayTeam,
		Bookmakers:   bookmakers,
	}, true
}

func (v *Validator) validateBookmaker(raw interface{}, now time.Time, maxAge time.Duration) (models.ValidatedBookmaker, bool) {
	m, isMap := raw.(map[string]interface{})
	if !isMap {
		v.drop(UnitBookmaker, ReasonMalformed)
		return models.ValidatedBookmaker{}, false
	}

	key, _ := stringField(m, "key")
	if !v.policy.IsSupported(key) {
		v.drop(UnitBookmaker, ReasonUnsupportedSportsbook)
		return models.ValidatedBookmaker{}, false
	}

	title, hasTitle := stringField(m, "title")
	lastUpdateRaw, hasLastUpdate := stringField(m, "last_update")
	if !hasTitle || !hasLastUpdate {
		v.drop(UnitBookmaker, ReasonMissingFields)
		return models.ValidatedBookmaker{}, false
	}

	lastUpdate, parsed := parseInstant(lastUpdateRaw)
	if !parsed {
		v.drop(UnitBookmaker, ReasonInvalidTimestamp)
		return models.ValidatedBookmaker{}, false
	}

	age := now.Sub(lastUpdate)
	if age < 0 {
		v.drop(UnitBookmaker, ReasonFutureTimestamp)
		return models.ValidatedBookmaker{}, false
	}
	if age > maxAge {
		v.drop(UnitBookmaker, ReasonStale)
		return models.ValidatedBookmaker{}, false
	}

	for _, rawMarket := range listField(m, "markets") {
		outcomes, valid := v.validateMarket(rawMarket)
		if valid {
			return models.ValidatedBookmaker{
				Key:        key,
				Title:      title,
				LastUpdate: lastUpdate,
				Outcomes:   outcomes,
			}, true
		}
	}

	v.drop(UnitBookmaker, ReasonNoValidMarket)
	return models.ValidatedBookmaker{}, false
}

// validateMarket returns the market's valid outcomes if there are at least MinOutcomes of them.
func (v *Validator) validateMarket(raw interface{}) ([]models.ValidatedOutcome, bool) {
	m, isMap := raw.(map[string]interface{})
	if !isMap {
		v.drop(UnitMarket, ReasonMalformed)
		return nil, false
	}

	if key, _ := stringField(m, "key"); key != v.policy.MarketKey {
		v.drop(UnitMarket, ReasonUnsupportedMarket)
		return nil, false
	}

	outcomes := make([]models.ValidatedOutcome, 0, 2)
	for _, rawOutcome := range listField(m, "outcomes") {
		if outcome, valid := v.validateOutcome(rawOutcome); valid {
			outcomes = append(outcomes, outcome)
		}
	}

	if len(outcomes) < v.policy.MinOutcomes {
		v.drop(UnitMarket, ReasonTooFewOutcomes)
		return nil, false
	}
	return outcomes, true
}

func (v *Validator) validateOutcome(raw interface{}) (models.ValidatedOutcome, bool) {
	m, isMap := raw.(map[string]interface{})
	if !isMap {
		v.drop(UnitOutcome, ReasonMalformed)
		return models.ValidatedOutcome{}, false
	}

	name, hasName := stringField(m, "name")
	rawPrice, hasPrice := m["price"]
	if !hasName || !hasPrice || rawPrice == nil {
		v.drop(UnitOutcome, ReasonMissingFields)
		return models.ValidatedOutcome{}, false
	}

	price, parsed := parsePrice(rawPrice)
	if !parsed {
		v.drop(UnitOutcome, ReasonInvalidPrice)
		return models.ValidatedOutcome{}, false
	}
	if price.Cmp(one) <= 0 {
		v.drop(UnitOutcome, ReasonPriceTooLow)
		return models.ValidatedOutcome{}, false
	}

	return models.ValidatedOutcome{Name: name, Price: price}, true
}

// stringField returns a non-empty string field.
func stringField(m map[string]interface{}, key string) (string, bool) {
	s, ok := m[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func listField(m map[string]interface{}, key string) []interface{} {
	switch list := m[key].(type) {
	case []interface{}:
		return list
	case []map[string]interface{}:
		out := make([]interface{}, len(list))
		for i, item := range list {
			out[i] = item
		}
		return out
	default:
		return nil
	}
}

// parseInstant accepts ISO-8601 instants. Instants without an offset are UTC.
func parseInstant(s string) (time.Time, bool) {
	for _, layout := range instantLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parsePrice accepts numeric JSON values and numeric strings within the decimal bounds.
func parsePrice(raw interface{}) (decimal.Decimal, bool) {
	var (
		price decimal.Decimal
		err   error
	)

	switch p := raw.(type) {
	case json.Number:
		price, err = decimal.NewFromString(p.String())
	case string:
		price, err = decimal.NewFromString(strings.TrimSpace(p))
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Decimal{}, false
		}
		price = decimal.NewFromFloat(p)
	case float32:
		f := float64(p)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return decimal.Decimal{}, false
		}
		price = decimal.NewFromFloat32(p)
	case int:
		price = decimal.NewFromInt(int64(p))
	case int64:
		price = decimal.NewFromInt(p)
	case int32:
		price = decimal.NewFromInt32(p)
	default:
		return decimal.Decimal{}, false
	}

	if err != nil || !models.WithinDecimalBounds(price) {
		return decimal.Decimal{}, false
	}
	return price, true
}

func lookupMeta(meta map[string]string, key string) *string {
	if value, ok := meta[key]; ok {
		return &value
	}
	for k, value := range meta {
		if strings.EqualFold(k, key) {
			v := value
			return &v
		}
	}
	return nil
}
