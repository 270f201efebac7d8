package driving

import (
	"context"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

// HistoricalSync replays historical tickets of an event as ticket.created
// webhooks, one batch per invocation.
type HistoricalSync interface {
	// Sync fetches, filters and emits the next batch of eligible tickets.
	// A partial report is returned alongside any error.
	Sync(ctx context.Context, req SyncRequest) (*SyncReport, error)

	// SendTest filters the given tickets and emits exactly one of them.
	SendTest(ctx context.Context, tickets []domain.Ticket) (*TestSendReport, error)
}

// TicketDownloader fetches every ticket of an event.
type TicketDownloader interface {
	Download(ctx context.Context, eventID string) (*domain.FetchResult, error)
}

// SyncRequest describes one sync invocation.
type SyncRequest struct {
	Region  string
	EventID string

	// BatchSize is the number of records emitted per invocation.
	BatchSize int

	// Resume continues from the stored checkpoint and re-opens completed scopes.
	Resume bool

	// DryRun plans the batch without sending or saving anything.
	DryRun bool

	// TestBatch caps the eligible set to the first N records without
	// splitting team groups. Zero means no cap.
	TestBatch int

	// SkipValidation disables the pre-sync count validation.
	SkipValidation bool

	// ExpectedEligible is forwarded to validation when non-zero.
	ExpectedEligible int

	// RequireComplete fails the run when the fetch is below the
	// completeness threshold.
	RequireComplete bool

	// OnRecord, if set, is called after each record of the batch is handled.
	OnRecord func(RecordOutcome)
}

// RecordAction is what happened to a record during a batch.
type RecordAction string

const (
	RecordSent    RecordAction = "sent"
	RecordFailed  RecordAction = "failed"
	RecordSkipped RecordAction = "skipped"
)

// RecordOutcome reports the handling of a single record.
type RecordOutcome struct {
	Index  int
	Total  int
	Ticket domain.Ticket
	Action RecordAction
}

// FilterSummary counts the outcome of the record filter.
type FilterSummary struct {
	Total    int
	Eligible int
	Rejected map[string]int
}

// SyncReport summarises a sync invocation.
type SyncReport struct {
	Region  string
	EventID string

	// AlreadyCompleted is set when the scope was completed and Resume was off.
	AlreadyCompleted bool

	Validation *ValidationReport

	Fetched        int
	ExpectedTotal  int
	CompletionRate float64
	Incomplete     bool

	Filter   FilterSummary
	Selected int

	BatchNumber  int
	TotalBatches int
	StartIndex   int
	EndIndex     int

	Sent        int
	Failed      int
	AlreadySent int

	Status           domain.ScopeStatus
	ProcessedTickets int
	TotalTickets     int
	TicketsSentTotal int

	// Plan is set for dry runs only.
	Plan *SyncPlan
}

// SyncPlan is the dry-run preview of what a sync would do.
type SyncPlan struct {
	TypeBreakdown []TypeCount
	Earliest      string
	Latest        string
	SpanDays      int
	HasSpan       bool
	Resuming      bool
	Preview       []domain.Ticket
	BatchSizes    []int
	Processed     int
	Remaining     int
}

// TypeCount is a ticket type with its number of eligible tickets.
type TypeCount struct {
	Name  string
	Count int
}

// TestSendReport is the outcome of a single test emission.
type TestSendReport struct {
	Candidates int
	Ticket     domain.Ticket
	Envelope   domain.Envelope
	Payload    []byte
	Sent       bool
	Errors     []domain.ErrorRecord
}
