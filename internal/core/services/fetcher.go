package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// Ensure PagedFetcher implements the interface.
var _ driving.TicketDownloader = (*PagedFetcher)(nil)

// Fetch defaults.
const (
	DefaultPageSize              = 100
	DefaultBulkPageSize          = 1000
	DefaultMinPageSize           = 10
	DefaultMaxAttempts           = 3
	DefaultPageDelay             = 200 * time.Millisecond
	DefaultCompletenessThreshold = 0.95
)

// FetchConfig tunes the paginated download.
type FetchConfig struct {
	// PageSize is the initial number of rows requested per page.
	PageSize int

	// MinPageSize is the floor the page size is halved down to.
	MinPageSize int

	// MaxAttempts is the number of tries per page, first try included.
	MaxAttempts int

	// Backoff spaces retries of the same page.
	Backoff Backoff

	// PageDelay is the minimum spacing between successful page requests.
	PageDelay time.Duration

	// CompletenessThreshold is the completion rate below which a warning is logged.
	CompletenessThreshold float64
}

// DefaultFetchConfig returns the defaults for incremental syncing.
func DefaultFetchConfig() FetchConfig {
	return FetchConfig{
		PageSize:              DefaultPageSize,
		MinPageSize:           DefaultMinPageSize,
		MaxAttempts:           DefaultMaxAttempts,
		Backoff:               DefaultBackoff(),
		PageDelay:             DefaultPageDelay,
		CompletenessThreshold: DefaultCompletenessThreshold,
	}
}

// BulkFetchConfig returns the defaults for full scrapes.
func BulkFetchConfig() FetchConfig {
	cfg := DefaultFetchConfig()
	cfg.PageSize = DefaultBulkPageSize
	return cfg
}

// FetchError reports a page that could not be retrieved.
type FetchError struct {
	EventID  string
	Offset   int
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch tickets for event %s at skip=%d after %d attempt(s): %v",
		e.EventID, e.Offset, e.Attempts, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// PagedFetcher downloads every ticket of an event page by page.
type PagedFetcher struct {
	source driven.TicketSource
	cfg    FetchConfig
	sleep  Sleeper
	pacer  *rate.Limiter
	now    func() time.Time
}

// NewPagedFetcher creates a fetcher over source.
// Zero fields of cfg fall back to DefaultFetchConfig.
func NewPagedFetcher(source driven.TicketSource, cfg FetchConfig) *PagedFetcher {
	def := DefaultFetchConfig()
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.MinPageSize <= 0 {
		cfg.MinPageSize = def.MinPageSize
	}
	if cfg.MinPageSize > cfg.PageSize {
		cfg.MinPageSize = cfg.PageSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.CompletenessThreshold <= 0 {
		cfg.CompletenessThreshold = def.CompletenessThreshold
	}

	limit := rate.Inf
	if cfg.PageDelay > 0 {
		limit = rate.Every(cfg.PageDelay)
	}

	return &PagedFetcher{
		source: source,
		cfg:    cfg,
		sleep:  sleepCtx,
		pacer:  rate.NewLimiter(limit, 1),
		now:    time.Now,
	}
}

// WithSleeper replaces the backoff sleep. Used by tests.
func (f *PagedFetcher) WithSleeper(s Sleeper) *PagedFetcher {
	f.sleep = s
	return f
}

// Config returns the effective configuration.
func (f *PagedFetcher) Config() FetchConfig { return f.cfg }

// Download implements driving.TicketDownloader.
func (f *PagedFetcher) Download(ctx context.Context, eventID string) (*domain.FetchResult, error) {
	return f.Fetch(ctx, eventID)
}

// Fetch retrieves all tickets of eventID. It stops on an empty page or once
// the server-reported total is reached. On error the tickets gathered so far
// are returned together with the error.
func (f *PagedFetcher) Fetch(ctx context.Context, eventID string) (*domain.FetchResult, error) {
	if eventID == "" {
		return nil, fmt.Errorf("%w: event id is required", domain.ErrInvalidInput)
	}

	start := f.now()
	state := domain.FetchState{BatchSize: f.cfg.PageSize}
	result := &domain.FetchResult{}
	finish := func() {
		result.ExpectedTotal = state.ExpectedTotal
		result.Calls = state.Calls
		result.FinalBatchSize = state.BatchSize
		result.Duration = f.now().Sub(start)
	}

	logger.Section("Fetch")
	logger.Info("Fetching tickets for event %s (page size %d)", eventID, state.BatchSize)

	for {
		if err := f.pacer.Wait(ctx); err != nil {
			finish()
			return result, err
		}

		page, err := f.fetchPage(ctx, eventID, &state)
		if err != nil {
			finish()
			return result, err
		}

		if !state.HaveTotal {
			state.ExpectedTotal = page.Total
			state.HaveTotal = true
			logger.Info("Expected total tickets: %d", page.Total)
		}

		// offsets and stop checks follow the server's rows, not the parsed ones
		n := page.Len()
		result.Tickets = append(result.Tickets, page.Rows...)
		state.Fetched += n
		logger.Debug("Fetched %d tickets (%d/%d)", len(page.Rows), state.Fetched, state.ExpectedTotal)
		if skipped := n - len(page.Rows); skipped > 0 {
			logger.Warn("Skipped %d unreadable row(s) at offset %d", skipped, state.Offset)
		}

		if n == 0 {
			break
		}
		if state.ExpectedTotal > 0 && state.Fetched >= state.ExpectedTotal {
			break
		}
		state.Offset += n
	}

	finish()
	if !result.Complete(f.cfg.CompletenessThreshold) {
		logger.Warn("Only %.1f%% of tickets fetched for event %s (%d/%d)",
			result.CompletionRate()*100, eventID, len(result.Tickets), result.ExpectedTotal)
	}
	logger.Info("Fetched %d tickets in %d call(s), %s", len(result.Tickets), result.Calls, result.Duration.Round(time.Millisecond))
	return result, nil
}

// fetchPage requests the page at state.Offset, retrying transient failures.
// The page size is halved after the second failed attempt.
func (f *PagedFetcher) fetchPage(ctx context.Context, eventID string, state *domain.FetchState) (*domain.TicketPage, error) {
	var lastErr error

	for state.Attempt = 0; state.Attempt < f.cfg.MaxAttempts; state.Attempt++ {
		state.Calls++
		page, err := f.source.ListTickets(ctx, driven.TicketQuery{
			EventID: eventID,
			Top:     state.BatchSize,
			Skip:    state.Offset,
		})
		if err == nil {
			if page == nil {
				page = &domain.TicketPage{}
			}
			return page, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if !f.source.IsTransient(err) {
			return nil, &FetchError{EventID: eventID, Offset: state.Offset, Attempts: state.Attempt + 1, Err: err}
		}

		lastErr = err
		if state.Attempt == f.cfg.MaxAttempts-1 {
			break
		}

		delay := f.cfg.Backoff.Delay(state.Attempt)
		logger.Warn("Attempt %d/%d at skip=%d failed: %v; retrying in %s",
			state.Attempt+1, f.cfg.MaxAttempts, state.Offset, err, delay.Round(time.Millisecond))
		if err := f.sleep(ctx, delay); err != nil {
			return nil, err
		}

		if state.Attempt >= 1 && state.BatchSize > f.cfg.MinPageSize {
			state.BatchSize = max(state.BatchSize/2, f.cfg.MinPageSize)
			logger.Warn("Reducing page size to %d", state.BatchSize)
		}
	}

	return nil, &FetchError{
		EventID:  eventID,
		Offset:   state.Offset,
		Attempts: f.cfg.MaxAttempts,
		Err:      fmt.Errorf("%w: %w", domain.ErrRetriesExhausted, lastErr),
	}
}
