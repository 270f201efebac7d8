package vivenu

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const (
	// DefaultRequestsPerMinute is the client-side request cap.
	DefaultRequestsPerMinute = 100

	// HeaderRetryAfter is the retry-after header (seconds).
	HeaderRetryAfter = "Retry-After"

	// DefaultRetryAfter is assumed when a 429 carries no Retry-After.
	DefaultRetryAfter = time.Minute
)

// RateLimiter throttles requests proactively with a token bucket and
// reactively honours Retry-After on 429 responses.
type RateLimiter struct {
	mu        sync.Mutex
	resetTime time.Time     // From Retry-After
	bucket    *rate.Limiter // Proactive throttling
	now       func() time.Time
}

// NewRateLimiter creates a limiter allowing perMinute requests per minute.
// A non-positive perMinute disables proactive throttling.
func NewRateLimiter(perMinute int) *RateLimiter {
	limit := rate.Inf
	if perMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(perMinute))
	}
	return &RateLimiter{
		bucket: rate.NewLimiter(limit, 1),
		now:    time.Now,
	}
}

// Wait blocks until it's safe to make a request.
func (r *RateLimiter) Wait(ctx context.Context) error {
	if err := r.bucket.Wait(ctx); err != nil {
		return err
	}

	r.mu.Lock()
	resetTime := r.resetTime
	r.mu.Unlock()

	if wait := resetTime.Sub(r.now()); wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return nil
}

// CheckRateLimit returns a RateLimitError for a 429 response and makes
// subsequent Waits hold until the advertised reset.
func (r *RateLimiter) CheckRateLimit(resp *http.Response) error {
	if resp == nil || resp.StatusCode != http.StatusTooManyRequests {
		return nil
	}

	delay := DefaultRetryAfter
	if retryAfter := resp.Header.Get(HeaderRetryAfter); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil && seconds >= 0 {
			delay = time.Duration(seconds) * time.Second
		}
	}

	r.mu.Lock()
	r.resetTime = r.now().Add(delay)
	resetTime := r.resetTime
	r.mu.Unlock()

	url := ""
	if resp.Request != nil {
		url = resp.Request.URL.String()
	}
	return &RateLimitError{ResetAt: resetTime, URL: url}
}

// ResetTime returns the time requests may resume after a 429.
func (r *RateLimiter) ResetTime() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.resetTime
}
