package rates

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/fxlens/internal/common"
	"github.com/Veraticus/fxlens/internal/model"
)

// DefaultMaxAge is how long a cached table is served without refetching.
const DefaultMaxAge = 4 * time.Hour

// Fetcher retrieves a fresh rate table.
type Fetcher interface {
	FetchLatest(ctx context.Context, base string) (model.RateSnapshot, error)
}

// Cache persists rate tables.
type Cache interface {
	GetRates(ctx context.Context, base string) (model.RateSnapshot, error)
	SaveRates(ctx context.Context, snap model.RateSnapshot) error
}

// Service serves cached rates while they are fresh, refetches when stale and
// falls back to the stale table when the fetch fails.
type Service struct {
	fetcher Fetcher
	cache   Cache
	now     func() time.Time
	maxAge  time.Duration
}

// NewService creates a rate service.
func NewService(fetcher Fetcher, cache Cache, maxAge time.Duration) *Service {
	if maxAge <= 0 {
		maxAge = DefaultMaxAge
	}
	return &Service{
		fetcher: fetcher,
		cache:   cache,
		maxAge:  maxAge,
		now:     time.Now,
	}
}

// GetRates returns a usable table for base or an error wrapping
// common.ErrRatesUnavailable.
func (s *Service) GetRates(ctx context.Context, base string) (model.RateSnapshot, error) {
	cached, cacheErr := s.cache.GetRates(ctx, base)
	if cacheErr == nil && !cached.IsStale(s.now(), s.maxAge) {
		return cached, nil
	}

	fresh, err := s.refresh(ctx, base)
	if err == nil {
		return fresh, nil
	}

	if cacheErr == nil {
		slog.Warn("Rate fetch failed, serving stale cache",
			"base", base,
			"fetched_at", cached.FetchedAt,
			"transient", common.IsRetryable(err),
			"error", err)
		return cached, nil
	}

	return model.RateSnapshot{}, fmt.Errorf("%w: %w", common.ErrRatesUnavailable, err)
}

// Refresh fetches a fresh table regardless of the cache age.
func (s *Service) Refresh(ctx context.Context, base string) (model.RateSnapshot, error) {
	snap, err := s.refresh(ctx, base)
	if err != nil {
		return model.RateSnapshot{}, fmt.Errorf("%w: %w", common.ErrRatesUnavailable, err)
	}
	return snap, nil
}

func (s *Service) refresh(ctx context.Context, base string) (model.RateSnapshot, error) {
	snap, err := s.fetcher.FetchLatest(ctx, base)
	if err != nil {
		return model.RateSnapshot{}, err
	}

	if err := s.cache.SaveRates(ctx, snap); err != nil {
		slog.Warn("Failed to cache rates", "base", base, "error", err)
	}
	slog.Debug("Fetched rates", "base", snap.Base, "date", snap.Date, "currencies", len(snap.Rates))
	return snap, nil
}
