package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrInvalidTicket indicates an upstream ticket payload could not be
	// turned into a Ticket (not an object, or no _id).
	ErrInvalidTicket = errors.New("invalid ticket payload")

	// Configuration Errors.

	// ErrMissingCredential indicates no API key is configured for a region.
	ErrMissingCredential = errors.New("missing API credential")

	// ErrMissingScope indicates no event id was given or configured for a region.
	ErrMissingScope = errors.New("missing event id")

	// ErrMissingSecret indicates the webhook signing secret is not configured.
	ErrMissingSecret = errors.New("webhook secret not configured")

	// ErrMissingWebhookURL indicates no webhook endpoint is configured.
	ErrMissingWebhookURL = errors.New("webhook URL not configured")

	// Fetch Errors.

	// ErrRetriesExhausted indicates every attempt at a page failed with a
	// transient error and the fetch was abandoned.
	ErrRetriesExhausted = errors.New("retries exhausted")

	// ErrFetchIncomplete indicates fewer records than the completeness
	// threshold of the server-reported total were retrieved.
	ErrFetchIncomplete = errors.New("fetch incomplete")

	// Validation Errors.

	// ErrValidationFailed indicates ticket counts disagree between sources.
	ErrValidationFailed = errors.New("ticket count validation failed")
)
