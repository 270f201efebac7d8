// Package webhook implements driven.WebhookTransport over HTTP.
package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
)

// Ensure Transport implements the interface.
var _ driven.WebhookTransport = (*Transport)(nil)

const (
	// SignatureHeader carries the hex HMAC-SHA256 of the body.
	SignatureHeader = "x-vivenu-signature"

	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBody caps how much of the receiver's answer is kept.
	maxResponseBody = 4096
)

// Transport posts payloads to a fixed webhook URL.
type Transport struct {
	url    string
	client *http.Client
}

// NewTransport creates a transport for url. A nil client uses a default
// client with DefaultTimeout.
func NewTransport(url string, client *http.Client) (*Transport, error) {
	if strings.TrimSpace(url) == "" {
		return nil, domain.ErrMissingWebhookURL
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	return &Transport{url: url, client: client}, nil
}

// URL returns the webhook endpoint.
func (t *Transport) URL() string { return t.url }

// Post sends body with the signature header. The body is sent verbatim.
func (t *Transport) Post(ctx context.Context, body []byte, signature string) (driven.WebhookResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return driven.WebhookResponse{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(SignatureHeader, signature)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return driven.WebhookResponse{}, fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return driven.WebhookResponse{StatusCode: resp.StatusCode}, fmt.Errorf("read webhook response: %w", err)
	}
	return driven.WebhookResponse{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(data)),
	}, nil
}
