package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
)

// --- Shared mock implementations ---

var (
	errUnavailable = errors.New("HTTP 503: service unavailable")
	errForbidden   = errors.New("HTTP 403: forbidden")
)

// mockTicketSource serves tickets from memory and replays scripted errors.
type mockTicketSource struct {
	mu sync.Mutex

	tickets []domain.Ticket
	// total overrides the reported total when non-nil.
	total *int
	// errs are consumed one per ListTickets call; nil entries succeed.
	errs []error
	// unreadable rows are counted as returned but left out of Rows.
	unreadable map[string]bool

	typeTotals map[string]int
	typeErrs   map[string]error

	event      *domain.Event
	eventErr   error
	eventCalls int

	queries []driven.TicketQuery
}

func (m *mockTicketSource) ListTickets(_ context.Context, q driven.TicketQuery) (*domain.TicketPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queries = append(m.queries, q)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}

	if q.TicketTypeID != "" {
		if err := m.typeErrs[q.TicketTypeID]; err != nil {
			return nil, err
		}
		return &domain.TicketPage{Total: m.typeTotals[q.TicketTypeID]}, nil
	}

	total := len(m.tickets)
	if m.total != nil {
		total = *m.total
	}

	start := min(q.Skip, len(m.tickets))
	end := min(q.Skip+q.Top, len(m.tickets))
	page := &domain.TicketPage{Returned: end - start, Total: total}
	for _, t := range m.tickets[start:end] {
		if !m.unreadable[t.ID()] {
			page.Rows = append(page.Rows, t)
		}
	}
	return page, nil
}

func (m *mockTicketSource) GetEvent(_ context.Context, eventID string, _ bool) (*domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.eventCalls++
	if m.eventErr != nil {
		return nil, m.eventErr
	}
	if m.event == nil {
		return nil, fmt.Errorf("event %s: %w", eventID, domain.ErrNotFound)
	}
	return m.event, nil
}

func (m *mockTicketSource) IsTransient(err error) bool {
	return errors.Is(err, errUnavailable)
}

func (m *mockTicketSource) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queries)
}

// mockTransport records posted payloads and answers with scripted statuses.
type mockTransport struct {
	mu sync.Mutex

	bodies     [][]byte
	signatures []string
	// status maps ticket id to the response status; default 200.
	status map[string]int
	// err fails every post with a transport error when set.
	err error
}

func (m *mockTransport) Post(_ context.Context, body []byte, signature string) (driven.WebhookResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.bodies = append(m.bodies, append([]byte(nil), body...))
	m.signatures = append(m.signatures, signature)
	if m.err != nil {
		return driven.WebhookResponse{}, m.err
	}

	for id, code := range m.status {
		if containsTicketID(body, id) {
			return driven.WebhookResponse{StatusCode: code, Body: "rejected"}, nil
		}
	}
	return driven.WebhookResponse{StatusCode: 200, Body: "ok"}, nil
}

func (m *mockTransport) sentCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.bodies)
}

func containsTicketID(body []byte, id string) bool {
	return len(id) > 0 && strings.Contains(string(body), `"_id":"`+id+`"`)
}

// mockProgressStore keeps progress in memory, round-tripping through
// JSON on every save like a real store.
type mockProgressStore struct {
	mu      sync.Mutex
	docs    map[string][]byte
	history [][]byte
	saves   int
	saveErr error
}

func newMockProgressStore() *mockProgressStore {
	return &mockProgressStore{docs: make(map[string][]byte)}
}

func (m *mockProgressStore) Load(_ context.Context, region string) (*domain.SyncProgress, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, ok := m.docs[region]
	if !ok {
		return domain.NewSyncProgress(), nil
	}
	var p domain.SyncProgress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	p.Backfill()
	return &p, nil
}

func (m *mockProgressStore) Save(_ context.Context, region string, p *domain.SyncProgress) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.saveErr != nil {
		return m.saveErr
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	m.docs[region] = data
	m.history = append(m.history, data)
	m.saves++
	return nil
}

// ticketJSON builds a raw ticket payload.
func ticketJSON(id, name string, status domain.TicketStatus, createdAt time.Time) string {
	return fmt.Sprintf(`{"_id":%q,"ticketName":%q,"name":"Runner %s","status":%q,"createdAt":%q,"sellerId":"seller-1","eventId":"evt-1"}`,
		id, name, id, status, createdAt.UTC().Format(time.RFC3339Nano))
}

// makeTickets returns n valid tickets of the given type, one second apart.
func makeTickets(prefix string, n int, name string) []domain.Ticket {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	out := make([]domain.Ticket, n)
	for i := range out {
		id := fmt.Sprintf("%s-%03d", prefix, i)
		out[i] = domain.MustTicket(ticketJSON(id, name, domain.TicketStatusValid, base.Add(time.Duration(i)*time.Second)))
	}
	return out
}

func intPtr(v int) *int { return &v }

// noSleep records requested delays without waiting.
type noSleep struct {
	mu     sync.Mutex
	delays []time.Duration
}

func (n *noSleep) sleep(ctx context.Context, d time.Duration) error {
	n.mu.Lock()
	n.delays = append(n.delays, d)
	n.mu.Unlock()
	return ctx.Err()
}
