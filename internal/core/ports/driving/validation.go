package driving

import "context"

// TicketValidator cross-checks ticket counts of an event across the
// event definition, per-type totals and a full ticket scrape.
type TicketValidator interface {
	Validate(ctx context.Context, req ValidationRequest) (*ValidationReport, error)
}

// ValidationRequest identifies the event to validate.
type ValidationRequest struct {
	EventID string

	// ExpectedEligible, when non-zero, must equal the eligible count.
	ExpectedEligible int
}

// ValidationReport holds the per-type comparison.
type ValidationReport struct {
	EventID   string
	EventName string

	Types []TypeComparison

	Scraped        int
	ExpectedTotal  int
	CompletionRate float64
	Eligible       int

	Problems []string
}

// Passed reports whether validation found no problems.
func (r *ValidationReport) Passed() bool {
	return r != nil && len(r.Problems) == 0
}

// TypeComparison compares one ticket type across sources.
type TypeComparison struct {
	Name string

	// Capacity is the amount configured on the event's ticket type.
	Capacity int

	// Reported is the API total for the ticket type.
	Reported int

	// Scraped is the number of fetched tickets carrying the type name.
	Scraped int

	// OnEvent is false for types only seen in fetched tickets.
	OnEvent bool
}

// Match reports whether the reported and scraped counts agree.
func (c TypeComparison) Match() bool {
	return c.OnEvent && c.Reported == c.Scraped
}
