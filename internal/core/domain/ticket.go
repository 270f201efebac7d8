package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// TicketStatus is the lifecycle status reported by Vivenu.
type TicketStatus string

// Known ticket statuses. Only Valid and DetailsRequired are eligible for
// emission; any other value is treated as ineligible.
const (
	TicketStatusValid           TicketStatus = "VALID"
	TicketStatusDetailsRequired TicketStatus = "DETAILSREQUIRED"
	TicketStatusInvalid         TicketStatus = "INVALID"
	TicketStatusReserved        TicketStatus = "RESERVED"
	TicketStatusBlank           TicketStatus = "BLANK"
)

// Ticket is an immutable view over one upstream ticket record.
// The well-known fields are extracted at construction; the original JSON
// object is kept byte-for-byte so it can be forwarded unmodified.
type Ticket struct {
	id           string
	typeName     string
	customerName string
	status       TicketStatus
	createdAtRaw string
	createdAt    time.Time
	sellerID     string
	eventID      string
	raw          json.RawMessage
}

// ticketFields is the subset of the upstream payload the sync needs.
type ticketFields struct {
	ID         string `json:"_id"`
	TicketName string `json:"ticketName"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	SellerID   string `json:"sellerId"`
	EventID    string `json:"eventId"`
}

// NewTicket validates raw and builds a Ticket from it.
// raw must be a JSON object with a non-empty "_id".
func NewTicket(raw []byte) (Ticket, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return Ticket{}, fmt.Errorf("%w: not a JSON object", ErrInvalidTicket)
	}

	var f ticketFields
	if err := json.Unmarshal(trimmed, &f); err != nil {
		return Ticket{}, fmt.Errorf("%w: %w", ErrInvalidTicket, err)
	}
	if strings.TrimSpace(f.ID) == "" {
		return Ticket{}, fmt.Errorf("%w: missing _id", ErrInvalidTicket)
	}

	typeName := f.TicketName
	if typeName == "" {
		typeName = f.Name
	}

	t := Ticket{
		id:           f.ID,
		typeName:     typeName,
		customerName: f.Name,
		status:       TicketStatus(f.Status),
		createdAtRaw: f.CreatedAt,
		sellerID:     f.SellerID,
		eventID:      f.EventID,
		raw:          append(json.RawMessage(nil), trimmed...),
	}
	if f.CreatedAt != "" {
		if parsed, err := time.Parse(time.RFC3339Nano, f.CreatedAt); err == nil {
			t.createdAt = parsed
		}
	}
	return t, nil
}

// MustTicket is NewTicket for literals known to be valid. It panics on error.
func MustTicket(raw string) Ticket {
	t, err := NewTicket([]byte(raw))
	if err != nil {
		panic(err)
	}
	return t
}

// ID returns the upstream ticket id.
func (t Ticket) ID() string { return t.id }

// TypeName returns the ticket type name (ticketName, or name when absent).
func (t Ticket) TypeName() string { return t.typeName }

// CustomerName returns the ticket holder name, if any.
func (t Ticket) CustomerName() string { return t.customerName }

// Status returns the lifecycle status.
func (t Ticket) Status() TicketStatus { return t.status }

// CreatedAtRaw returns createdAt exactly as sent upstream.
// Team grouping compares this value for equality.
func (t Ticket) CreatedAtRaw() string { return t.createdAtRaw }

// CreatedAt returns the parsed creation time, or the zero time when the
// upstream value was missing or unparseable.
func (t Ticket) CreatedAt() time.Time { return t.createdAt }

// SellerID returns the seller id carried on the ticket, if any.
func (t Ticket) SellerID() string { return t.sellerID }

// EventID returns the event id carried on the ticket, if any.
func (t Ticket) EventID() string { return t.eventID }

// Raw returns a copy of the original JSON object.
func (t Ticket) Raw() json.RawMessage {
	return append(json.RawMessage(nil), t.raw...)
}

// IsZero reports whether t was never constructed.
func (t Ticket) IsZero() bool { return t.id == "" }

// MarshalJSON emits the original object unmodified.
func (t Ticket) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return t.Raw(), nil
}

// UnmarshalJSON validates and loads a ticket from its upstream form.
func (t *Ticket) UnmarshalJSON(data []byte) error {
	parsed, err := NewTicket(data)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
