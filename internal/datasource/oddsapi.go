package datasource

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/metrics"
	"github.com/yourusername/better-bets/internal/models"
)

const (
	oddsAPISourceName = "the_odds_api"

	// DefaultOddsAPIBaseURL is the public endpoint of The Odds API
	DefaultOddsAPIBaseURL = "https://api.the-odds-api.com"

	maxErrorBodyBytes = 512
)

// OddsAPIConfig configures the Odds API client
type OddsAPIConfig struct {
	BaseURL string
	APIKey  string
	Regions string
	Markets string
}

// OddsAPIClient implements OddsSource for The Odds API v4
type OddsAPIClient struct {
	httpClient *RateLimitedHTTPClient
	cfg        OddsAPIConfig
	logger     *logrus.Entry
	now        func() time.Time
}

// NewOddsAPIClient creates a new Odds API client
func NewOddsAPIClient(httpClient *RateLimitedHTTPClient, cfg OddsAPIConfig, logger *logrus.Logger) *OddsAPIClient {
	if logger == nil {
		logger = logrus.New()
		logger.SetOutput(io.Discard)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOddsAPIBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Regions == "" {
		cfg.Regions = "us"
	}
	if cfg.Markets == "" {
		cfg.Markets = models.MarketHeadToHead
	}

	return &OddsAPIClient{
		httpClient: httpClient,
		cfg:        cfg,
		logger:     logger.WithField("component", "odds_api"),
		now:        time.Now,
	}
}

// Name returns the data source name
func (c *OddsAPIClient) Name() string {
	return oddsAPISourceName
}

// FetchOdds retrieves decimal odds for a sport. The body is decoded with UseNumber so prices stay exact.
func (c *OddsAPIClient) FetchOdds(ctx context.Context, sportKey string) (*models.RawOddsFeed, error) {
	start := c.now()

	query := url.Values{}
	query.Set("apiKey", c.cfg.APIKey)
	query.Set("regions", c.cfg.Regions)
	query.Set("markets", c.cfg.Markets)
	query.Set("oddsFormat", "decimal")
	query.Set("dateFormat", "iso")
	endpoint := fmt.Sprintf("%s/v4/sports/%s/odds?%s", c.cfg.BaseURL, url.PathEscape(sportKey), query.Encode())

	body, header, err := c.get(ctx, endpoint, "odds")
	if err != nil {
		metrics.RecordOddsFetch(sportKey, CodeOf(err), time.Since(start).Seconds())
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var events interface{}
	if err := dec.Decode(&events); err != nil {
		metrics.RecordOddsFetch(sportKey, ErrCodeInvalidData, time.Since(start).Seconds())
		return nil, NewDataSourceError(oddsAPISourceName, ErrCodeInvalidData, "failed to parse odds response", err)
	}

	metrics.RecordOddsFetch(sportKey, "success", time.Since(start).Seconds())
	c.logger.WithFields(logrus.Fields{
		"sport_key":          sportKey,
		"requests_remaining": header.Get(models.MetaRequestsRemaining),
	}).Debug("Fetched odds")

	return &models.RawOddsFeed{
		SportKey:    sportKey,
		Events:      events,
		RetrievedAt: c.now().UTC(),
		Meta:        quotaMeta(header),
	}, nil
}

// FetchSports retrieves the sports currently offered by the provider
func (c *OddsAPIClient) FetchSports(ctx context.Context) ([]models.Sport, error) {
	query := url.Values{}
	query.Set("apiKey", c.cfg.APIKey)
	endpoint := fmt.Sprintf("%s/v4/sports?%s", c.cfg.BaseURL, query.Encode())

	body, _, err := c.get(ctx, endpoint, "sports")
	if err != nil {
		return nil, err
	}

	var sports []models.Sport
	if err := json.Unmarshal(body, &sports); err != nil {
		return nil, NewDataSourceError(oddsAPISourceName, ErrCodeInvalidData, "failed to parse sports response", err)
	}
	return sports, nil
}

// Ping checks upstream reachability using the sports endpoint
func (c *OddsAPIClient) Ping(ctx context.Context) error {
	_, err := c.FetchSports(ctx)
	return err
}

// Quota returns the remaining and used request counts reported by the sports endpoint
func (c *OddsAPIClient) Quota(ctx context.Context) (map[string]string, error) {
	query := url.Values{}
	query.Set("apiKey", c.cfg.APIKey)
	endpoint := fmt.Sprintf("%s/v4/sports?%s", c.cfg.BaseURL, query.Encode())

	_, header, err := c.get(ctx, endpoint, "sports")
	if err != nil {
		return nil, err
	}
	return quotaMeta(header), nil
}

func (c *OddsAPIClient) get(ctx context.Context, endpoint, resource string) ([]byte, http.Header, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeNetworkError, "failed to create request", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(ctx, req)
	if err != nil {
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeNetworkError, "failed to fetch "+resource, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeAuthenticationFailed, "invalid API key", nil)
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeNotFound, resource+" not found", nil)
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeRateLimitExceeded, "rate limit exceeded", nil)
	case resp.StatusCode != http.StatusOK:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeServerError,
			fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet))), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, NewDataSourceError(oddsAPISourceName, ErrCodeNetworkError, "failed to read "+resource+" response", err)
	}
	return body, resp.Header, nil
}

func quotaMeta(header http.Header) map[string]string {
	meta := make(map[string]string, 2)
	for _, key := range []string{models.MetaRequestsRemaining, models.MetaRequestsUsed} {
		if value := header.Get(key); value != "" {
			meta[key] = value
		}
	}
	return meta
}
