package domain

// Event is the subset of a Vivenu event the sync and validation need.
type Event struct {
	// ID is the upstream event id.
	ID string

	// SellerID identifies the seller that owns the event.
	// It is copied into every emitted envelope.
	SellerID string

	// Name is the display name of the event.
	Name string

	// TicketTypes lists the ticket types configured on the event.
	// Only populated when the event is requested with its tickets.
	TicketTypes []TicketType
}

// TicketType is one sellable ticket category on an event.
type TicketType struct {
	ID     string
	Name   string
	Price  float64
	Amount int
	Active bool
}

// TicketPage is one page of the tickets listing.
type TicketPage struct {
	// Rows holds the tickets on this page, in server order.
	Rows []Ticket

	// Returned is the number of rows the server sent, including rows that
	// could not be parsed into Rows.
	Returned int

	// Total is the server-reported total for the whole listing.
	Total int
}

// Len returns the number of rows the server sent. Pages built without
// Returned fall back to len(Rows).
func (p *TicketPage) Len() int {
	return max(p.Returned, len(p.Rows))
}
