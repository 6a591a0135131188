package datasource

import (
	"context"
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/yourusername/better-bets/internal/metrics"
	"github.com/yourusername/better-bets/internal/models"
)

// OddsFetcher is the fetch half of OddsSource
type OddsFetcher interface {
	FetchOdds(ctx context.Context, sportKey string) (*models.RawOddsFeed, error)
}

// CachedFetcher caches raw odds feeds per sport for a short TTL.
// Feeds are stored unvalidated so freshness is always judged at read time.
type CachedFetcher struct {
	next      OddsFetcher
	cache     *cache.Cache
	ttl       time.Duration
	mu        sync.RWMutex
	hitCount  uint64
	missCount uint64
}

// NewCachedFetcher wraps next with a TTL cache. A ttl of zero or less disables caching.
func NewCachedFetcher(next OddsFetcher, ttl time.Duration) *CachedFetcher {
	cf := &CachedFetcher{next: next, ttl: ttl}
	if ttl > 0 {
		cf.cache = cache.New(ttl, ttl*2)
	}
	return cf
}

// FetchOdds returns the cached feed for sportKey or fetches and stores a new one
func (cf *CachedFetcher) FetchOdds(ctx context.Context, sportKey string) (*models.RawOddsFeed, error) {
	if cf.cache == nil {
		return cf.next.FetchOdds(ctx, sportKey)
	}

	if cached, found := cf.cache.Get(sportKey); found {
		if feed, ok := cached.(*models.RawOddsFeed); ok {
			cf.record(true)
			return feed, nil
		}
	}
	cf.record(false)

	feed, err := cf.next.FetchOdds(ctx, sportKey)
	if err != nil {
		return nil, err
	}
	if feed != nil {
		cf.cache.Set(sportKey, feed, cf.ttl)
	}
	return feed, nil
}

// Invalidate removes the cached feed for a sport
func (cf *CachedFetcher) Invalidate(sportKey string) {
	if cf.cache != nil {
		cf.cache.Delete(sportKey)
	}
}

// Clear flushes the entire cache
func (cf *CachedFetcher) Clear() {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	if cf.cache != nil {
		cf.cache.Flush()
	}
	cf.hitCount = 0
	cf.missCount = 0
}

// Stats returns cache statistics
func (cf *CachedFetcher) Stats() (hits, misses uint64, ratio float64) {
	cf.mu.RLock()
	defer cf.mu.RUnlock()

	hits = cf.hitCount
	misses = cf.missCount
	if total := hits + misses; total > 0 {
		ratio = float64(hits) / float64(total)
	}
	return
}

// ItemCount returns the number of cached feeds
func (cf *CachedFetcher) ItemCount() int {
	if cf.cache == nil {
		return 0
	}
	return cf.cache.ItemCount()
}

func (cf *CachedFetcher) record(hit bool) {
	cf.mu.Lock()
	if hit {
		cf.hitCount++
	} else {
		cf.missCount++
	}
	cf.mu.Unlock()

	_, _, ratio := cf.Stats()
	metrics.UpdateCacheHitRatio(ratio)
}
