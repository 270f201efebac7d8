package driven

import "context"

// WebhookResponse is what the receiver answered.
type WebhookResponse struct {
	StatusCode int
	Body       string
}

// WebhookTransport delivers signed payloads to the ingestion endpoint.
type WebhookTransport interface {
	// Post sends body verbatim with the given signature header value.
	// A non-nil error means no HTTP response was obtained.
	Post(ctx context.Context, body []byte, signature string) (WebhookResponse, error)
}
