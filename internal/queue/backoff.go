package queue

import (
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"github.com/ternarybob/venari/internal/models"
)

// Policy computes retry delays from worker-settings. Exponential with
// jitter, capped.
type Policy struct {
	base       time.Duration
	max        time.Duration
	jitter     float64
	multiplier float64
}

// NewPolicy builds a backoff policy from worker settings.
func NewPolicy(settings *models.WorkerSettings) *Policy {
	base := time.Duration(settings.BackoffBaseSeconds * float64(time.Second))
	if base <= 0 {
		base = 2 * time.Second
	}
	max := time.Duration(settings.BackoffMaxSeconds * float64(time.Second))
	if max < base {
		max = 10 * base
	}
	return &Policy{
		base:       base,
		max:        max,
		jitter:     settings.BackoffJitter,
		multiplier: backoff.DefaultMultiplier,
	}
}

// DelayFor returns the backoff delay before the given retry attempt
// (attempt 1 is the first retry).
func (p *Policy) DelayFor(attempt int) time.Duration {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.base
	b.MaxInterval = p.max
	b.RandomizationFactor = p.jitter
	b.Multiplier = p.multiplier
	b.MaxElapsedTime = 0 // caller bounds retries by count, not elapsed time
	b.Reset()

	delay := b.NextBackOff()
	for i := 1; i < attempt; i++ {
		next := b.NextBackOff()
		if next == backoff.Stop {
			break
		}
		delay = next
	}
	if delay > p.max {
		delay = p.max
	}
	return delay
}

func newTaskID() string {
	return uuid.New().String()
}
