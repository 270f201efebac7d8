package services

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// ErrorRecorder collects emission failures. *domain.SyncProgress satisfies it.
type ErrorRecorder interface {
	RecordError(recordID, message string, at time.Time)
}

// errorLog is an ErrorRecorder backed by a slice.
type errorLog []domain.ErrorRecord

func (l *errorLog) RecordError(recordID, message string, at time.Time) {
	*l = append(*l, domain.ErrorRecord{TicketID: recordID, Error: message, Timestamp: at.UTC()})
}

// WebhookEmitter wraps tickets into signed ticket.created envelopes and
// delivers them.
type WebhookEmitter struct {
	transport driven.WebhookTransport
	secret    string
	mode      string
	newID     func() string
	now       func() time.Time
}

// NewWebhookEmitter creates an emitter. An empty secret is accepted here and
// turns every Send into a recorded failure.
func NewWebhookEmitter(transport driven.WebhookTransport, secret, mode string) *WebhookEmitter {
	if mode == "" {
		mode = domain.ModeProd
	}
	return &WebhookEmitter{
		transport: transport,
		secret:    secret,
		mode:      mode,
		newID:     uuid.NewString,
		now:       time.Now,
	}
}

// Mode returns the mode stamped on envelopes.
func (e *WebhookEmitter) Mode() string { return e.mode }

// Transform wraps ticket in an envelope with a fresh id. sellerID is used when
// the ticket carries none.
func (e *WebhookEmitter) Transform(ticket domain.Ticket, sellerID string) (domain.Envelope, error) {
	if s := ticket.SellerID(); s != "" {
		sellerID = s
	}
	return domain.NewEnvelope(e.newID(), sellerID, e.mode, ticket)
}

// Encode serialises env to the exact bytes that are signed and sent.
// HTML characters are left unescaped and there is no trailing newline.
func Encode(env domain.Envelope) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(env); err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Sign returns the lowercase hex HMAC-SHA256 of payload keyed by secret.
func Sign(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", domain.ErrMissingSecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Send delivers env. Only HTTP 200 counts as success. Failures are recorded
// on rec and reported as false, never returned as errors.
func (e *WebhookEmitter) Send(ctx context.Context, env domain.Envelope, rec ErrorRecorder) bool {
	ticketID := env.TicketID()
	fail := func(msg string) bool {
		logger.Error("Send ticket %s: %s", ticketID, msg)
		if rec != nil {
			rec.RecordError(ticketID, msg, e.now())
		}
		return false
	}

	payload, err := Encode(env)
	if err != nil {
		return fail(err.Error())
	}
	signature, err := Sign(payload, e.secret)
	if err != nil {
		return fail(err.Error())
	}

	resp, err := e.transport.Post(ctx, payload, signature)
	if err != nil {
		return fail(err.Error())
	}
	if resp.StatusCode != 200 {
		return fail(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.Body))
	}

	logger.Debug("Sent ticket %s as %s", ticketID, env.WebhookID)
	return true
}
