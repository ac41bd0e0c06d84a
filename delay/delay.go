package delay

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Simulator turns an average and a deviation into a jittered response delay.
// It holds no per-call state, the rng is shared and guarded.
type Simulator struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// New returns a Simulator seeded from the clock
func New() *Simulator {
	return NewWithSource(rand.NewSource(time.Now().UnixNano()))
}

// NewWithSource returns a Simulator drawing from src, for reproducible delays
func NewWithSource(src rand.Source) *Simulator {
	return &Simulator{rng: rand.New(src)}
}

// Compute returns avgMs plus a uniform jitter in [-deviationMs, deviationMs), never below zero
func (s *Simulator) Compute(avgMs, deviationMs float64) time.Duration {
	s.mu.Lock()
	jitter := s.rng.Float64()*2 - 1
	s.mu.Unlock()

	ms := avgMs + jitter*deviationMs
	if ms <= 0 || math.IsNaN(ms) {
		return 0
	}

	ns := ms * float64(time.Millisecond)
	if ns >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}

	return time.Duration(ns)
}

// Wait blocks the calling goroutine for d, or until ctx is done
func Wait(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
