// Package scheduler runs cron-driven odds prefetch jobs.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
	"github.com/yourusername/better-bets/internal/models"
)

// OddsRefresher fetches and validates odds for a sport
type OddsRefresher interface {
	GetValidatedOdds(ctx context.Context, sportKey string) (*models.ValidatedOddsResponse, error)
}

// PrefetchResult summarises one prefetch pass
type PrefetchResult struct {
	Sport  string
	Events int
	Err    error
}

// Scheduler manages scheduled odds prefetch jobs
type Scheduler struct {
	cron       *cron.Cron
	refresher  OddsRefresher
	logger     *logrus.Entry
	mu         sync.RWMutex
	isRunning  bool
	jobIDs     []cron.EntryID
	jobTimeout time.Duration
}

// NewScheduler creates a new scheduler
func NewScheduler(refresher OddsRefresher, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	entry := logger.WithField("component", "scheduler")

	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		refresher:  refresher,
		logger:     entry,
		jobIDs:     make([]cron.EntryID, 0),
		jobTimeout: 20 * time.Second,
	}
}

// SchedulePrefetch schedules a prefetch of every listed sport on the cron expression
func (s *Scheduler) SchedulePrefetch(cronExpression string, sports []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if len(sports) == 0 {
		return fmt.Errorf("no sports to prefetch")
	}

	watched := append([]string(nil), sports...)
	entryID, err := s.cron.AddFunc(cronExpression, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.jobTimeout)
		defer cancel()
		s.Prefetch(ctx, watched)
	})
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{
		"schedule": cronExpression,
		"sports":   watched,
	}).Info("Scheduled odds prefetch")

	return nil
}

// Prefetch refreshes each sport in turn. Failures are logged and never stop the pass.
func (s *Scheduler) Prefetch(ctx context.Context, sports []string) []PrefetchResult {
	results := make([]PrefetchResult, 0, len(sports))
	for _, sport := range sports {
		if ctx.Err() != nil {
			results = append(results, PrefetchResult{Sport: sport, Err: ctx.Err()})
			continue
		}

		resp, err := s.refresher.GetValidatedOdds(ctx, sport)
		if err != nil {
			s.logger.WithError(err).WithField("sport_key", sport).Warn("Odds prefetch failed")
			results = append(results, PrefetchResult{Sport: sport, Err: err})
			continue
		}

		s.logger.WithFields(logrus.Fields{
			"sport_key": sport,
			"events":    len(resp.Events),
		}).Debug("Odds prefetched")
		results = append(results, PrefetchResult{Sport: sport, Events: len(resp.Events)})
	}
	return results
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}

	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")

	return nil
}

// Stop stops the scheduler and waits for running jobs to finish
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return
	}

	<-s.cron.Stop().Done()
	s.isRunning = false
	s.logger.Info("Scheduler stopped")
}

// Running reports whether Start has been called without a matching Stop.
func (s *Scheduler) Running() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// NextRun is the earliest upcoming prefetch, or zero when stopped.
func (s *Scheduler) NextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var next time.Time
	if !s.isRunning {
		return next
	}
	for _, id := range s.jobIDs {
		if e := s.cron.Entry(id); e.Valid() && (next.IsZero() || e.Next.Before(next)) {
			next = e.Next
		}
	}
	return next
}
