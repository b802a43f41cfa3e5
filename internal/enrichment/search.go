package enrichment

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker"
	"github.com/ternarybob/arbor"

	"github.com/ternarybob/venari/internal/interfaces"
	"github.com/ternarybob/venari/internal/models"
)

// searchCounterKey returns the budget counter key for the given UTC day.
func searchCounterKey(day time.Time) string {
	return "counter:search:" + day.UTC().Format("2006-01-02")
}

// FailoverSearch routes queries to the primary provider behind a circuit
// breaker, falling back to the secondary when the primary fails or the
// breaker is open. A daily query cap is enforced across both providers
// through a KV counter; exceeding it is a soft skip, not a failure.
type FailoverSearch struct {
	primary  interfaces.SearchService
	fallback interfaces.SearchService
	breaker  *gobreaker.CircuitBreaker
	kv       interfaces.KeyValueStorage
	dailyCap func() int
	now      func() time.Time
	logger   arbor.ILogger
}

// NewFailoverSearch wires the provider pair. dailyCap is read per query so
// policy reloads take effect without restart.
func NewFailoverSearch(primary, fallback interfaces.SearchService, kv interfaces.KeyValueStorage, dailyCap func() int, logger arbor.ILogger) *FailoverSearch {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "search-primary",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     120 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn().
				Str("breaker", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Search circuit breaker state changed")
		},
	})
	return &FailoverSearch{
		primary:  primary,
		fallback: fallback,
		breaker:  breaker,
		kv:       kv,
		dailyCap: dailyCap,
		now:      time.Now,
		logger:   logger,
	}
}

// Search enforces the daily cap, then tries primary-then-fallback.
func (s *FailoverSearch) Search(ctx context.Context, query string, maxResults int) ([]interfaces.SearchResult, error) {
	limit := s.dailyCap()
	if limit > 0 {
		used, err := s.kv.IncrementCounter(ctx, searchCounterKey(s.now()), 1)
		if err != nil {
			return nil, fmt.Errorf("search budget counter: %w", err)
		}
		if used > int64(limit) {
			s.logger.Warn().
				Int64("used", used).
				Int("cap", limit).
				Msg("Daily search cap reached")
			return nil, interfaces.ErrSearchQuotaExceeded{}
		}
	}

	out, err := s.breaker.Execute(func() (interface{}, error) {
		return s.primary.Search(ctx, query, maxResults)
	})
	if err == nil {
		return out.([]interfaces.SearchResult), nil
	}

	s.logger.Warn().Err(err).Str("query", query).Msg("Primary search failed, trying fallback")

	results, ferr := s.fallback.Search(ctx, query, maxResults)
	if ferr != nil {
		return nil, models.NewWorkerError(models.KindOf(ferr), fmt.Errorf("both search providers failed: primary: %v, fallback: %w", err, ferr))
	}
	return results, nil
}
