package services

import (
	"slices"
	"strings"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

// Rejection reasons reported by the default predicates.
const (
	RejectStatus   = "status"
	RejectCategory = "category"
)

// DefaultCategoryMarker is the substring an eligible ticket type must contain.
const DefaultCategoryMarker = "CHARITY"

// DefaultEligibleStatuses are the statuses that may be emitted.
var DefaultEligibleStatuses = []domain.TicketStatus{
	domain.TicketStatusValid,
	domain.TicketStatusDetailsRequired,
}

// Predicate keeps or rejects a ticket. Reason labels its rejections.
type Predicate struct {
	Reason string
	Keep   func(domain.Ticket) bool
}

// StatusIn keeps tickets whose status is one of statuses.
func StatusIn(statuses ...domain.TicketStatus) Predicate {
	allowed := slices.Clone(statuses)
	return Predicate{
		Reason: RejectStatus,
		Keep: func(t domain.Ticket) bool {
			return slices.Contains(allowed, t.Status())
		},
	}
}

// TypeNameContains keeps tickets whose type name contains marker,
// ignoring case.
func TypeNameContains(marker string) Predicate {
	upper := strings.ToUpper(marker)
	return Predicate{
		Reason: RejectCategory,
		Keep: func(t domain.Ticket) bool {
			return strings.Contains(strings.ToUpper(t.TypeName()), upper)
		},
	}
}

// FilterResult is the outcome of one pipeline pass.
type FilterResult struct {
	// Eligible tickets, sorted by creation time.
	Eligible []domain.Ticket

	// Rejected counts rejections by reason. A ticket is counted once, under
	// the first predicate it fails.
	Rejected map[string]int

	// Total is the number of input tickets.
	Total int
}

// RejectedTotal sums all rejections.
func (r FilterResult) RejectedTotal() int {
	n := 0
	for _, c := range r.Rejected {
		n += c
	}
	return n
}

// FilterPipeline applies predicates in order.
type FilterPipeline struct {
	predicates []Predicate
	onReject   func(domain.Ticket, string)
}

// NewFilterPipeline creates a pipeline of predicates.
func NewFilterPipeline(predicates ...Predicate) *FilterPipeline {
	return &FilterPipeline{predicates: predicates}
}

// DefaultFilterPipeline keeps VALID and DETAILSREQUIRED charity tickets.
func DefaultFilterPipeline() *FilterPipeline {
	return NewFilterPipeline(
		StatusIn(DefaultEligibleStatuses...),
		TypeNameContains(DefaultCategoryMarker),
	)
}

// OnReject registers a callback invoked for each rejected ticket.
func (p *FilterPipeline) OnReject(fn func(t domain.Ticket, reason string)) *FilterPipeline {
	p.onReject = fn
	return p
}

// Apply runs every ticket through the predicates in a single pass. The input
// is not modified.
func (p *FilterPipeline) Apply(tickets []domain.Ticket) FilterResult {
	result := FilterResult{
		Eligible: make([]domain.Ticket, 0, len(tickets)),
		Rejected: make(map[string]int),
		Total:    len(tickets),
	}

	for _, t := range tickets {
		if reason, ok := p.check(t); !ok {
			result.Rejected[reason]++
			if p.onReject != nil {
				p.onReject(t, reason)
			}
			continue
		}
		result.Eligible = append(result.Eligible, t)
	}

	SortByCreatedAt(result.Eligible)
	return result
}

func (p *FilterPipeline) check(t domain.Ticket) (string, bool) {
	for _, pred := range p.predicates {
		if !pred.Keep(t) {
			return pred.Reason, false
		}
	}
	return "", true
}

// SortByCreatedAt orders tickets by creation time, oldest first, keeping the
// input order of equal timestamps. Unparseable timestamps compare by their
// raw text.
func SortByCreatedAt(tickets []domain.Ticket) {
	slices.SortStableFunc(tickets, func(a, b domain.Ticket) int {
		at, bt := a.CreatedAt(), b.CreatedAt()
		if !at.IsZero() && !bt.IsZero() {
			return at.Compare(bt)
		}
		return strings.Compare(a.CreatedAtRaw(), b.CreatedAtRaw())
	})
}
