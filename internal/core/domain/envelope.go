package domain

import (
	"fmt"
	"strings"
)

// EventTypeTicketCreated is the webhook type emitted for historical tickets.
const EventTypeTicketCreated = "ticket.created"

// WebhookIDPrefix marks webhook ids produced by the historical sync.
const WebhookIDPrefix = "historical-sync-"

// Webhook modes accepted by the receiver.
const (
	ModeProd = "prod"
	ModeDev  = "dev"
	ModeTest = "test"
)

// Envelope is the outbound webhook payload wrapping one ticket.
type Envelope struct {
	ID        string       `json:"id"`
	SellerID  string       `json:"sellerId"`
	WebhookID string       `json:"webhookId"`
	Type      string       `json:"type"`
	Mode      string       `json:"mode"`
	Data      EnvelopeData `json:"data"`
}

// EnvelopeData nests the original ticket under "ticket".
type EnvelopeData struct {
	Ticket Ticket `json:"ticket"`
}

// NewEnvelope builds a ticket.created envelope for ticket.
// id must be non-empty; mode must be one of the known modes.
func NewEnvelope(id, sellerID, mode string, ticket Ticket) (Envelope, error) {
	if strings.TrimSpace(id) == "" {
		return Envelope{}, fmt.Errorf("%w: envelope id is required", ErrInvalidInput)
	}
	if ticket.IsZero() {
		return Envelope{}, fmt.Errorf("%w: envelope requires a ticket", ErrInvalidInput)
	}
	if !ValidMode(mode) {
		return Envelope{}, fmt.Errorf("%w: unknown mode %q", ErrInvalidInput, mode)
	}

	short := id
	if len(short) > 8 {
		short = short[:8]
	}

	return Envelope{
		ID:        id,
		SellerID:  sellerID,
		WebhookID: WebhookIDPrefix + short,
		Type:      EventTypeTicketCreated,
		Mode:      mode,
		Data:      EnvelopeData{Ticket: ticket},
	}, nil
}

// TicketID returns the id of the wrapped ticket.
func (e Envelope) TicketID() string { return e.Data.Ticket.ID() }

// ValidMode reports whether mode is accepted by the receiver.
func ValidMode(mode string) bool {
	switch mode {
	case ModeProd, ModeDev, ModeTest:
		return true
	default:
		return false
	}
}
