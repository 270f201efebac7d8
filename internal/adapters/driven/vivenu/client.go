package vivenu

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"golang.org/x/oauth2"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// Ensure Client implements the interface.
var _ driven.TicketSource = (*Client)(nil)

const (
	// DefaultTimeout is the default HTTP request timeout.
	DefaultTimeout = 15 * time.Second

	// maxErrorBody caps how much of an error body is kept in APIError.
	maxErrorBody = 512
)

// Client is a Vivenu API client for one region.
type Client struct {
	baseURL     string
	http        *http.Client
	rateLimiter *RateLimiter
}

// Option configures a Client.
type Option func(*Client)

// WithRateLimiter replaces the default 100 requests/minute limiter.
func WithRateLimiter(l *RateLimiter) Option {
	return func(c *Client) { c.rateLimiter = l }
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// NewClient creates a client for baseURL authenticated with apiKey.
// An *http.Client stored in ctx under oauth2.HTTPClient is used as the
// underlying transport.
func NewClient(ctx context.Context, baseURL, apiKey string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, domain.ErrMissingCredential
	}
	if strings.TrimSpace(baseURL) == "" {
		return nil, fmt.Errorf("%w: base URL is required", domain.ErrInvalidInput)
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: apiKey},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = DefaultTimeout

	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		http:        tc,
		rateLimiter: NewRateLimiter(DefaultRequestsPerMinute),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// NewRegionClient creates a client for region.
func NewRegionClient(ctx context.Context, region domain.Region, opts ...Option) (*Client, error) {
	if err := region.Validate(); err != nil {
		return nil, err
	}
	return NewClient(ctx, region.BaseURL(), region.APIKey, opts...)
}

// ListTickets fetches one page of GET /tickets.
func (c *Client) ListTickets(ctx context.Context, q driven.TicketQuery) (*domain.TicketPage, error) {
	params := url.Values{}
	params.Set("event", q.EventID)
	params.Set("top", strconv.Itoa(q.Top))
	params.Set("skip", strconv.Itoa(q.Skip))
	if q.TicketTypeID != "" {
		params.Set("ticketType", q.TicketTypeID)
	}

	body, err := c.get(ctx, "/tickets", params)
	if err != nil {
		return nil, err
	}
	return parsePage(body)
}

// GetEvent fetches GET /events/<id>, optionally including ticket types.
func (c *Client) GetEvent(ctx context.Context, eventID string, withTickets bool) (*domain.Event, error) {
	if eventID == "" {
		return nil, domain.ErrMissingScope
	}
	params := url.Values{}
	if withTickets {
		params.Set("include", "tickets")
	}

	body, err := c.get(ctx, "/events/"+url.PathEscape(eventID), params)
	if err != nil {
		if IsNotFound(err) {
			return nil, fmt.Errorf("event %s: %w: %w", eventID, domain.ErrNotFound, err)
		}
		return nil, err
	}
	return parseEvent(body)
}

// IsTransient implements driven.TicketSource.
func (c *Client) IsTransient(err error) bool {
	return IsTransient(err)
}

// get performs a throttled GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.rateLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	logger.Debug("GET %s", u)
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &TransportError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if err := c.rateLimiter.CheckRateLimit(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{URL: u, Err: fmt.Errorf("read body: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg := strings.TrimSpace(string(body))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		return nil, &APIError{StatusCode: resp.StatusCode, Message: msg, URL: u}
	}
	return body, nil
}

// parsePage reads {rows, total}. Rows that are not valid tickets are
// skipped with a warning.
func parsePage(body []byte) (*domain.TicketPage, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: tickets response is not JSON", ErrMalformedResponse)
	}
	res := gjson.ParseBytes(body)
	rows := res.Get("rows")
	if rows.Exists() && !rows.IsArray() {
		return nil, fmt.Errorf("%w: rows is not an array", ErrMalformedResponse)
	}

	page := &domain.TicketPage{Total: int(res.Get("total").Int())}
	rows.ForEach(func(_, row gjson.Result) bool {
		page.Returned++
		t, err := domain.NewTicket([]byte(row.Raw))
		if err != nil {
			logger.Warn("Skipping ticket row: %v", err)
			return true
		}
		page.Rows = append(page.Rows, t)
		return true
	})
	return page, nil
}

func parseEvent(body []byte) (*domain.Event, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: event response is not JSON", ErrMalformedResponse)
	}
	res := gjson.ParseBytes(body)
	if !res.IsObject() {
		return nil, fmt.Errorf("%w: event response is not an object", ErrMalformedResponse)
	}

	event := &domain.Event{
		ID:       res.Get("_id").String(),
		SellerID: res.Get("sellerId").String(),
		Name:     res.Get("name").String(),
	}
	res.Get("tickets").ForEach(func(_, tt gjson.Result) bool {
		active := tt.Get("active")
		event.TicketTypes = append(event.TicketTypes, domain.TicketType{
			ID:     tt.Get("_id").String(),
			Name:   tt.Get("name").String(),
			Price:  tt.Get("price").Float(),
			Amount: int(tt.Get("amount").Int()),
			Active: !active.Exists() || active.Bool(),
		})
		return true
	})
	return event, nil
}
