package driven

import (
	"context"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

// TicketQuery selects one page of the tickets listing.
type TicketQuery struct {
	// EventID restricts the listing to one event.
	EventID string

	// TicketTypeID optionally restricts the listing to one ticket type.
	TicketTypeID string

	// Top is the page size.
	Top int

	// Skip is the offset of the first row.
	Skip int
}

// TicketSource reads tickets and events from the ticketing platform.
//
// Implementations must report HTTP failures in a way IsTransient can
// classify: a 503 or transport failure is transient, any other non-2xx is
// permanent.
type TicketSource interface {
	// ListTickets fetches one page of tickets.
	ListTickets(ctx context.Context, q TicketQuery) (*domain.TicketPage, error)

	// GetEvent fetches an event. When withTickets is set the event's ticket
	// types are included.
	GetEvent(ctx context.Context, eventID string, withTickets bool) (*domain.Event, error)

	// IsTransient reports whether err is worth retrying.
	IsTransient(err error) bool
}
