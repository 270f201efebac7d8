package services

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// Ensure SyncService implements the interface.
var _ driving.HistoricalSync = (*SyncService)(nil)

// Sync defaults.
const (
	DefaultBatchSize    = 50
	DefaultSendInterval = 1800 * time.Millisecond
	DefaultPreviewSize  = 10
)

// PreferredTestMarker selects the ticket type SendTest picks first.
const PreferredTestMarker = "HIA"

// SyncConfig tunes batch emission.
type SyncConfig struct {
	// BatchSize is used when a request does not set one.
	BatchSize int

	// SendInterval is the minimum spacing between webhook sends.
	SendInterval time.Duration

	// CompletenessThreshold marks a fetch as incomplete.
	CompletenessThreshold float64

	// PreviewSize is the number of records listed in a dry-run plan.
	PreviewSize int
}

// DefaultSyncConfig returns the default emission settings.
func DefaultSyncConfig() SyncConfig {
	return SyncConfig{
		BatchSize:             DefaultBatchSize,
		SendInterval:          DefaultSendInterval,
		CompletenessThreshold: DefaultCompletenessThreshold,
		PreviewSize:           DefaultPreviewSize,
	}
}

// SyncService replays historical tickets of one region as webhooks.
type SyncService struct {
	source    driven.TicketSource
	store     driven.ProgressStore
	fetcher   *PagedFetcher
	filter    *FilterPipeline
	teams     *TeamGrouper
	emitter   *WebhookEmitter
	validator driving.TicketValidator
	cfg       SyncConfig
	now       func() time.Time
}

// NewSyncService creates a sync service.
// The validator is optional - if nil, pre-sync validation is skipped.
func NewSyncService(
	source driven.TicketSource,
	store driven.ProgressStore,
	fetcher *PagedFetcher,
	filter *FilterPipeline,
	teams *TeamGrouper,
	emitter *WebhookEmitter,
	validator driving.TicketValidator,
	cfg SyncConfig,
) *SyncService {
	def := DefaultSyncConfig()
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.SendInterval < 0 {
		cfg.SendInterval = 0
	}
	if cfg.CompletenessThreshold <= 0 {
		cfg.CompletenessThreshold = def.CompletenessThreshold
	}
	if cfg.PreviewSize <= 0 {
		cfg.PreviewSize = def.PreviewSize
	}
	if filter == nil {
		filter = DefaultFilterPipeline()
	}
	if teams == nil {
		teams = NewTeamGrouper()
	}
	return &SyncService{
		source:    source,
		store:     store,
		fetcher:   fetcher,
		filter:    filter,
		teams:     teams,
		emitter:   emitter,
		validator: validator,
		cfg:       cfg,
		now:       time.Now,
	}
}

// Sync processes one batch of the event's eligible tickets.
//
//nolint:gocyclo // Orchestration function with necessary sequential steps
func (s *SyncService) Sync(ctx context.Context, req driving.SyncRequest) (*driving.SyncReport, error) {
	if strings.TrimSpace(req.EventID) == "" {
		return nil, domain.ErrMissingScope
	}
	if strings.TrimSpace(req.Region) == "" {
		return nil, fmt.Errorf("%w: region is required", domain.ErrInvalidInput)
	}
	if req.TestBatch < 0 {
		return nil, fmt.Errorf("%w: test batch must not be negative", domain.ErrInvalidInput)
	}
	batchSize := req.BatchSize
	if batchSize <= 0 {
		batchSize = s.cfg.BatchSize
	}

	report := &driving.SyncReport{Region: req.Region, EventID: req.EventID}

	// 1. Load checkpoint
	progress, err := s.store.Load(ctx, req.Region)
	if err != nil {
		return report, fmt.Errorf("load progress: %w", err)
	}
	scope := progress.Scope(req.EventID)
	if scope.Status == domain.ScopeCompleted && !req.Resume {
		logger.Info("Event %s already completed", req.EventID)
		report.AlreadyCompleted = true
		fillProgress(report, progress, scope)
		return report, nil
	}

	// 2. Cross-check ticket counts
	if s.validator != nil && !req.SkipValidation {
		logger.Section("Validation")
		vr, err := s.validator.Validate(ctx, driving.ValidationRequest{
			EventID:          req.EventID,
			ExpectedEligible: req.ExpectedEligible,
		})
		report.Validation = vr
		if err != nil {
			return report, fmt.Errorf("validate event %s: %w", req.EventID, err)
		}
		if !vr.Passed() {
			return report, fmt.Errorf("%w: %s", domain.ErrValidationFailed, strings.Join(vr.Problems, "; "))
		}
	}

	// 3. Fetch
	fetched, err := s.fetcher.Fetch(ctx, req.EventID)
	if fetched != nil {
		report.Fetched = len(fetched.Tickets)
		report.ExpectedTotal = fetched.ExpectedTotal
		report.CompletionRate = fetched.CompletionRate()
		report.Incomplete = !fetched.Complete(s.cfg.CompletenessThreshold)
	}
	if err != nil {
		return report, fmt.Errorf("fetch tickets: %w", err)
	}
	if report.Incomplete && req.RequireComplete {
		return report, fmt.Errorf("%w: %d of %d tickets", domain.ErrFetchIncomplete, report.Fetched, report.ExpectedTotal)
	}
	if report.Fetched == 0 {
		logger.Warn("No tickets found for event %s", req.EventID)
		fillProgress(report, progress, scope)
		return report, nil
	}

	// 4. Filter and select
	filtered := s.filter.Apply(fetched.Tickets)
	report.Filter = driving.FilterSummary{
		Total:    filtered.Total,
		Eligible: len(filtered.Eligible),
		Rejected: filtered.Rejected,
	}
	tickets := filtered.Eligible
	if req.TestBatch > 0 {
		tickets = s.teams.SelectFirst(tickets, 0, req.TestBatch)
		logger.Info("Test batch: %d of %d eligible tickets selected", len(tickets), len(filtered.Eligible))
	}
	report.Selected = len(tickets)
	if len(tickets) == 0 {
		logger.Warn("No eligible tickets for event %s", req.EventID)
		fillProgress(report, progress, scope)
		return report, nil
	}
	scope.SetTotal(len(tickets))

	// 5. Locate the batch
	start := 0
	if req.Resume {
		start = min(scope.ResumeIndex(), len(tickets))
	}
	end := min(start+batchSize, len(tickets))
	report.StartIndex = start
	report.EndIndex = end
	report.BatchNumber = start/batchSize + 1
	report.TotalBatches = (len(tickets) + batchSize - 1) / batchSize

	if req.DryRun {
		report.Plan = s.plan(tickets, start, end, batchSize, req.Resume)
		fillProgress(report, progress, scope)
		return report, nil
	}

	// 6. Emit
	logger.Section("Emit")
	logger.Info("Batch %d/%d: tickets %d-%d of %d", report.BatchNumber, report.TotalBatches, start+1, end, len(tickets))

	pacer := rate.NewLimiter(rate.Inf, 1)
	if s.cfg.SendInterval > 0 {
		pacer = rate.NewLimiter(rate.Every(s.cfg.SendInterval), 1)
	}
	seller := sellerResolver{source: s.source, eventID: req.EventID}

	for i := start; i < end; i++ {
		t := tickets[i]
		outcome := driving.RecordOutcome{Index: i, Total: len(tickets), Ticket: t}

		if scope.IsSent(t.ID()) {
			report.AlreadySent++
			outcome.Action = driving.RecordSkipped
			notify(req.OnRecord, outcome)
			continue
		}

		if err := pacer.Wait(ctx); err != nil {
			fillProgress(report, progress, scope)
			return report, err
		}

		ok := false
		env, err := s.emitter.Transform(t, seller.get(ctx, t))
		if err != nil {
			logger.Error("Transform ticket %s: %v", t.ID(), err)
			progress.RecordError(t.ID(), err.Error(), s.now())
		} else {
			ok = s.emitter.Send(ctx, env, progress)
		}
		if !ok && ctx.Err() != nil {
			fillProgress(report, progress, scope)
			return report, ctx.Err()
		}

		if ok {
			progress.MarkSent(req.EventID, t.ID())
			report.Sent++
			outcome.Action = driving.RecordSent
		} else {
			report.Failed++
			outcome.Action = driving.RecordFailed
		}
		scope.SetLastProcessed(i)
		progress.Touch(s.now())
		if err := s.store.Save(ctx, req.Region, progress); err != nil {
			fillProgress(report, progress, scope)
			return report, fmt.Errorf("save progress: %w", err)
		}
		notify(req.OnRecord, outcome)
	}

	// 7. Close the batch
	batch := report.BatchNumber
	if start >= end {
		batch = 0
	}
	progress.FinishBatch(req.EventID, batch)
	progress.Touch(s.now())
	if err := s.store.Save(ctx, req.Region, progress); err != nil {
		fillProgress(report, progress, scope)
		return report, fmt.Errorf("save progress: %w", err)
	}

	fillProgress(report, progress, scope)
	logger.Info("Batch %d done: %d sent, %d failed, %d already sent", report.BatchNumber, report.Sent, report.Failed, report.AlreadySent)
	return report, nil
}

// SendTest filters tickets and emits one, preferring a type containing
// PreferredTestMarker. Nothing is persisted.
func (s *SyncService) SendTest(ctx context.Context, tickets []domain.Ticket) (*driving.TestSendReport, error) {
	eligible := s.filter.Apply(tickets).Eligible
	report := &driving.TestSendReport{Candidates: len(eligible)}
	if len(eligible) == 0 {
		return report, fmt.Errorf("%w: no eligible tickets", domain.ErrNotFound)
	}

	pick := eligible[0]
	for _, t := range eligible {
		if strings.Contains(strings.ToUpper(t.TypeName()), PreferredTestMarker) {
			pick = t
			break
		}
	}
	report.Ticket = pick

	env, err := s.emitter.Transform(pick, "")
	if err != nil {
		return report, fmt.Errorf("transform ticket %s: %w", pick.ID(), err)
	}
	report.Envelope = env
	if report.Payload, err = Encode(env); err != nil {
		return report, err
	}

	var errs errorLog
	report.Sent = s.emitter.Send(ctx, env, &errs)
	report.Errors = errs
	return report, nil
}

// plan builds the dry-run preview for the batch [start, end). Processed and
// Remaining are positional, so BatchSizes always sums to Remaining.
func (s *SyncService) plan(tickets []domain.Ticket, start, end, batchSize int, resuming bool) *driving.SyncPlan {
	p := &driving.SyncPlan{
		Resuming:  resuming,
		Processed: start,
		Remaining: len(tickets) - start,
	}

	counts := make(map[string]int)
	for _, t := range tickets {
		counts[t.TypeName()]++
	}
	for name, n := range counts {
		p.TypeBreakdown = append(p.TypeBreakdown, driving.TypeCount{Name: name, Count: n})
	}
	slices.SortFunc(p.TypeBreakdown, func(a, b driving.TypeCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	first, last := tickets[0], tickets[len(tickets)-1]
	p.Earliest, p.Latest = first.CreatedAtRaw(), last.CreatedAtRaw()
	if !first.CreatedAt().IsZero() && !last.CreatedAt().IsZero() {
		p.SpanDays = int(last.CreatedAt().Sub(first.CreatedAt()).Hours() / 24)
		p.HasSpan = true
	}

	p.Preview = tickets[start:min(start+s.cfg.PreviewSize, end)]
	for i := start; i < len(tickets); i += batchSize {
		p.BatchSizes = append(p.BatchSizes, min(batchSize, len(tickets)-i))
	}
	return p
}

func fillProgress(r *driving.SyncReport, p *domain.SyncProgress, sp *domain.ScopeProgress) {
	r.Status = sp.Status
	r.ProcessedTickets = sp.ProcessedTickets
	r.TotalTickets = sp.TotalTickets
	r.TicketsSentTotal = p.TicketsSent
}

func notify(fn func(driving.RecordOutcome), o driving.RecordOutcome) {
	if fn != nil {
		fn(o)
	}
}

// sellerResolver looks up the event's seller once, for tickets that lack one.
type sellerResolver struct {
	source   driven.TicketSource
	eventID  string
	resolved bool
	sellerID string
}

func (r *sellerResolver) get(ctx context.Context, t domain.Ticket) string {
	if t.SellerID() != "" || r.source == nil {
		return r.sellerID
	}
	if !r.resolved {
		r.resolved = true
		event, err := r.source.GetEvent(ctx, r.eventID, false)
		if err != nil {
			logger.Warn("Could not resolve seller for event %s: %v", r.eventID, err)
			return ""
		}
		r.sellerID = event.SellerID
	}
	return r.sellerID
}
