package odds

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/metrics"
	"github.com/yourusername/better-bets/internal/models"
)

// FeedFetcher retrieves raw odds documents from an upstream provider
type FeedFetcher interface {
	FetchOdds(ctx context.Context, sportKey string) (*models.RawOddsFeed, error)
}

// Service fetches odds from the injected fetcher and validates them
type Service struct {
	fetcher   FeedFetcher
	validator *Validator
	logger    *logrus.Entry
	now       func() time.Time
}

// NewService creates a validated odds service. Validator drops are exported as metrics.
func NewService(fetcher FeedFetcher, validator *Validator, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		fetcher:   fetcher,
		validator: validator.WithDropHook(metrics.RecordOddsDrop),
		logger:    logger.WithField("component", "odds"),
		now:       validator.now,
	}
}

// Policy returns the policy the service validates against
func (s *Service) Policy() models.OddsPolicy {
	return s.validator.Policy()
}

// GetValidatedOdds fetches and validates odds for a sport.
//
// Fetch failures are returned as *models.OddsAPIError without partial recovery.
// Only an unusable document yields *models.OddsValidationError.
func (s *Service) GetValidatedOdds(ctx context.Context, sportKey string) (*models.ValidatedOddsResponse, error) {
	if sportKey == "" {
		return nil, &models.OddsValidationError{Message: "sport key is required"}
	}

	feed, err := s.fetcher.FetchOdds(ctx, sportKey)
	if err != nil {
		s.logger.WithError(err).WithField("sport_key", sportKey).Warn("Odds fetch failed")
		var apiErr *models.OddsAPIError
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		return nil, &models.OddsAPIError{SportKey: sportKey, Message: "failed to fetch odds", Err: err}
	}
	if feed == nil {
		return nil, &models.OddsAPIError{SportKey: sportKey, Message: "empty response from odds provider"}
	}

	retrievedAt := feed.RetrievedAt
	if retrievedAt.IsZero() {
		retrievedAt = s.now()
	}

	validated, err := s.validator.Validate(feed.Events, retrievedAt, feed.Meta)
	if err != nil {
		s.logger.WithError(err).WithField("sport_key", sportKey).Error("Odds document rejected")
		return nil, err
	}

	metrics.UpdateEventsValidated(sportKey, len(validated.Events))
	if validated.APIRequestsRemaining != nil {
		if remaining, parseErr := strconv.ParseFloat(*validated.APIRequestsRemaining, 64); parseErr == nil {
			metrics.UpdateRequestsRemaining(remaining)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"sport_key":  sportKey,
		"events":     len(validated.Events),
		"bookmakers": validated.BookmakerCount(),
	}).Debug("Odds validated")

	return validated, nil
}
