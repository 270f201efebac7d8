package services

import (
	"context"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential retry delays with symmetric jitter.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Max caps the delay before jitter is applied.
	Max time.Duration

	// Jitter is the relative spread, 0.2 means ±20%.
	Jitter float64

	// Rand returns a value in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

// DefaultBackoff returns 1s base, 30s cap, ±20% jitter.
func DefaultBackoff() Backoff {
	return Backoff{Base: time.Second, Max: 30 * time.Second, Jitter: 0.2}
}

// Delay returns the wait before retry number attempt (0-based): Base*2^attempt
// capped at Max, then scaled by a factor drawn from [1-Jitter, 1+Jitter].
func (b Backoff) Delay(attempt int) time.Duration {
	if b.Base <= 0 {
		return 0
	}
	if attempt < 0 {
		attempt = 0
	}

	d := b.Base
	for i := 0; i < attempt; i++ {
		d *= 2
		if b.Max > 0 && d >= b.Max {
			d = b.Max
			break
		}
	}
	if b.Max > 0 && d > b.Max {
		d = b.Max
	}

	if b.Jitter <= 0 {
		return d
	}
	rnd := b.Rand
	if rnd == nil {
		rnd = rand.Float64
	}
	factor := 1 + b.Jitter*(2*rnd()-1)
	return time.Duration(float64(d) * factor)
}

// Sleeper waits for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// sleepCtx is the default Sleeper.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
