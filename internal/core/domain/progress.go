package domain

import (
	"encoding/json"
	"slices"
	"time"
)

// ScopeStatus is the processing state of one scope (event).
type ScopeStatus string

// Scope statuses.
const (
	ScopePending    ScopeStatus = "pending"
	ScopeInProgress ScopeStatus = "in_progress"
	ScopeCompleted  ScopeStatus = "completed"
)

// NoIndex marks a scope where no record has been processed yet.
const NoIndex = -1

// SyncProgress is the persisted checkpoint for one region.
// It is owned by a single sync run at a time and is rewritten in full after
// every record outcome.
type SyncProgress struct {
	// ScopesCompleted lists scope ids whose every eligible record was sent.
	ScopesCompleted []string `json:"events_processed"`

	// TicketsSent counts successful sends across all scopes and runs.
	TicketsSent int `json:"tickets_sent"`

	// Errors is the append-only log of emission failures.
	Errors []ErrorRecord `json:"errors"`

	// LastRun is when the progress was last saved.
	LastRun *time.Time `json:"last_run"`

	// Scopes maps scope id to its checkpoint.
	Scopes map[string]*ScopeProgress `json:"event_progress"`
}

// ErrorRecord is one failed emission.
type ErrorRecord struct {
	TicketID  string    `json:"ticket_id"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// ScopeProgress is the checkpoint for one scope.
// ProcessedTickets never exceeds TotalTickets once the total is known, and
// Status is ScopeCompleted exactly when the two are equal. Every mutator
// keeps Status current, so any saved document satisfies this.
type ScopeProgress struct {
	TotalTickets       int         `json:"total_tickets"`
	ProcessedTickets   int         `json:"processed_tickets"`
	SentTicketIDs      []string    `json:"sent_ticket_ids"`
	LastProcessedIndex int         `json:"last_processed_index"`
	Status             ScopeStatus `json:"status"`
	BatchesCompleted   int         `json:"batches_completed"`

	sent map[string]struct{}
}

// NewSyncProgress returns an empty progress document.
func NewSyncProgress() *SyncProgress {
	p := &SyncProgress{}
	p.Backfill()
	return p
}

// NewScopeProgress returns an empty scope checkpoint.
func NewScopeProgress() *ScopeProgress {
	return &ScopeProgress{
		SentTicketIDs:      []string{},
		LastProcessedIndex: NoIndex,
		Status:             ScopePending,
	}
}

// Backfill initialises any sub-structure missing from an older document.
func (p *SyncProgress) Backfill() {
	if p.ScopesCompleted == nil {
		p.ScopesCompleted = []string{}
	}
	if p.Errors == nil {
		p.Errors = []ErrorRecord{}
	}
	if p.Scopes == nil {
		p.Scopes = make(map[string]*ScopeProgress)
	}
	for id, sp := range p.Scopes {
		if sp == nil {
			p.Scopes[id] = NewScopeProgress()
			continue
		}
		sp.backfill()
	}
}

// Scope returns the checkpoint for scopeID, creating it when absent.
func (p *SyncProgress) Scope(scopeID string) *ScopeProgress {
	if p.Scopes == nil {
		p.Scopes = make(map[string]*ScopeProgress)
	}
	sp, ok := p.Scopes[scopeID]
	if !ok || sp == nil {
		sp = NewScopeProgress()
		p.Scopes[scopeID] = sp
	}
	return sp
}

// IsSent reports whether recordID was already delivered within scopeID.
func (p *SyncProgress) IsSent(scopeID, recordID string) bool {
	sp, ok := p.Scopes[scopeID]
	if !ok || sp == nil {
		return false
	}
	return sp.IsSent(recordID)
}

// MarkSent records a successful delivery. It returns false, and changes
// nothing, when recordID was already recorded for scopeID.
func (p *SyncProgress) MarkSent(scopeID, recordID string) bool {
	sp := p.Scope(scopeID)
	if !sp.markSent(recordID) {
		return false
	}
	p.TicketsSent++
	p.registerCompleted(scopeID, sp)
	return true
}

// RecordError appends an emission failure.
func (p *SyncProgress) RecordError(recordID, message string, at time.Time) {
	p.Errors = append(p.Errors, ErrorRecord{
		TicketID:  recordID,
		Error:     message,
		Timestamp: at.UTC(),
	})
}

// FinishBatch stamps the batch counter and derives the scope status,
// registering the scope as completed when every eligible record was sent.
func (p *SyncProgress) FinishBatch(scopeID string, batchNumber int) ScopeStatus {
	sp := p.Scope(scopeID)
	if batchNumber > sp.BatchesCompleted {
		sp.BatchesCompleted = batchNumber
	}
	sp.refreshStatus()
	p.registerCompleted(scopeID, sp)
	return sp.Status
}

func (p *SyncProgress) registerCompleted(scopeID string, sp *ScopeProgress) {
	if sp.Status == ScopeCompleted && !slices.Contains(p.ScopesCompleted, scopeID) {
		p.ScopesCompleted = append(p.ScopesCompleted, scopeID)
	}
}

// Touch sets LastRun.
func (p *SyncProgress) Touch(now time.Time) {
	t := now.UTC()
	p.LastRun = &t
}

// IsSent reports whether recordID is in the sent set.
func (sp *ScopeProgress) IsSent(recordID string) bool {
	sp.index()
	_, ok := sp.sent[recordID]
	return ok
}

// SetTotal records the number of eligible records for the scope.
// The total never drops below what was already processed.
func (sp *ScopeProgress) SetTotal(total int) {
	if total < sp.ProcessedTickets {
		total = sp.ProcessedTickets
	}
	sp.TotalTickets = total
	sp.refreshStatus()
}

// SetLastProcessed advances the checkpoint index. It never moves backwards.
func (sp *ScopeProgress) SetLastProcessed(index int) {
	if index > sp.LastProcessedIndex {
		sp.LastProcessedIndex = index
	}
	sp.refreshStatus()
}

// ResumeIndex returns the first index a resumed run should process.
func (sp *ScopeProgress) ResumeIndex() int {
	if sp.LastProcessedIndex < 0 {
		return 0
	}
	return sp.LastProcessedIndex + 1
}

// Remaining returns how many eligible records are still unsent.
func (sp *ScopeProgress) Remaining() int {
	if sp.TotalTickets <= sp.ProcessedTickets {
		return 0
	}
	return sp.TotalTickets - sp.ProcessedTickets
}

func (sp *ScopeProgress) markSent(recordID string) bool {
	if sp.IsSent(recordID) {
		return false
	}
	sp.sent[recordID] = struct{}{}
	sp.SentTicketIDs = append(sp.SentTicketIDs, recordID)
	sp.ProcessedTickets++
	if sp.ProcessedTickets > sp.TotalTickets {
		sp.TotalTickets = sp.ProcessedTickets
	}
	sp.refreshStatus()
	return true
}

func (sp *ScopeProgress) refreshStatus() {
	switch {
	case sp.TotalTickets > 0 && sp.ProcessedTickets == sp.TotalTickets:
		sp.Status = ScopeCompleted
	case sp.ProcessedTickets > 0 || sp.LastProcessedIndex >= 0:
		sp.Status = ScopeInProgress
	default:
		sp.Status = ScopePending
	}
}

func (sp *ScopeProgress) index() {
	if sp.sent != nil {
		return
	}
	sp.sent = make(map[string]struct{}, len(sp.SentTicketIDs))
	for _, id := range sp.SentTicketIDs {
		sp.sent[id] = struct{}{}
	}
}

func (sp *ScopeProgress) backfill() {
	if sp.SentTicketIDs == nil {
		sp.SentTicketIDs = []string{}
	}
	if sp.Status == "" {
		sp.Status = ScopePending
	}
	sp.sent = nil
}

// UnmarshalJSON defaults last_processed_index to NoIndex when absent.
func (sp *ScopeProgress) UnmarshalJSON(data []byte) error {
	type plain ScopeProgress
	aux := struct {
		*plain
		LastProcessedIndex *int `json:"last_processed_index"`
	}{plain: (*plain)(sp)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	sp.LastProcessedIndex = NoIndex
	if aux.LastProcessedIndex != nil {
		sp.LastProcessedIndex = *aux.LastProcessedIndex
	}
	sp.backfill()
	return nil
}
