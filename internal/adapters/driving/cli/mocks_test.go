package cli

import (
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/vivenu-sync/internal/config"
	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

// mockSync implements driving.HistoricalSync for testing.
type mockSync struct {
	requests []driving.SyncRequest
	outcomes []driving.RecordOutcome
	report   *driving.SyncReport
	err      error

	sendTickets []domain.Ticket
	testReport  *driving.TestSendReport
	testErr     error
}

func (m *mockSync) Sync(_ context.Context, req driving.SyncRequest) (*driving.SyncReport, error) {
	m.requests = append(m.requests, req)
	for _, o := range m.outcomes {
		if req.OnRecord != nil {
			req.OnRecord(o)
		}
	}
	return m.report, m.err
}

func (m *mockSync) SendTest(_ context.Context, tickets []domain.Ticket) (*driving.TestSendReport, error) {
	m.sendTickets = tickets
	return m.testReport, m.testErr
}

type mockDownloader struct {
	result *domain.FetchResult
	err    error
}

func (m *mockDownloader) Download(_ context.Context, _ string) (*domain.FetchResult, error) {
	return m.result, m.err
}

type mockValidator struct {
	report *driving.ValidationReport
	err    error
	req    driving.ValidationRequest
}

func (m *mockValidator) Validate(_ context.Context, req driving.ValidationRequest) (*driving.ValidationReport, error) {
	m.req = req
	return m.report, m.err
}

// mockBackend implements backend for testing.
type mockBackend struct {
	settings   *config.Settings
	region     domain.Region
	regionErr  error
	sync       *mockSync
	syncErr    error
	downloader *mockDownloader
	validator  *mockValidator
	store      *memory.ProgressStore

	live     []bool
	modes    []string
	closed   bool
	resolved []string
}

func newMockBackend() *mockBackend {
	return &mockBackend{
		settings: &config.Settings{
			WebhookURL:            "https://hooks.example.com/ingest",
			OutputDir:             "purchased_tickets",
			CompletenessThreshold: 0.95,
		},
		region: domain.Region{Name: "LISBON", APIKey: "key", EventID: "evt-1"},
		sync:   &mockSync{},
		store:  memory.NewProgressStore(),
	}
}

func (m *mockBackend) Settings() *config.Settings { return m.settings }

func (m *mockBackend) Region(name, eventID string) (domain.Region, error) {
	m.resolved = append(m.resolved, name+"/"+eventID)
	if eventID != "" {
		r := m.region
		r.EventID = eventID
		return r, m.regionErr
	}
	return m.region, m.regionErr
}

func (m *mockBackend) HistoricalSync(_ context.Context, _ domain.Region, live bool) (driving.HistoricalSync, error) {
	m.live = append(m.live, live)
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.sync, nil
}

func (m *mockBackend) Downloader(_ context.Context, _ domain.Region) (driving.TicketDownloader, error) {
	return m.downloader, nil
}

func (m *mockBackend) Validator(_ context.Context, _ domain.Region) (driving.TicketValidator, error) {
	return m.validator, nil
}

func (m *mockBackend) TestSender(mode string) (driving.HistoricalSync, error) {
	m.modes = append(m.modes, mode)
	if m.syncErr != nil {
		return nil, m.syncErr
	}
	return m.sync, nil
}

func (m *mockBackend) ProgressStore() (driven.ProgressStore, error) { return m.store, nil }

func (m *mockBackend) Close() error {
	m.closed = true
	return nil
}

// setupBackend installs b and resets command flags.
func setupBackend(t *testing.T, b *mockBackend) {
	t.Helper()
	oldBackend := newBackend
	oldInteractive := isInteractive
	newBackend = func() (backend, error) { return b, nil }
	isInteractive = func() bool { return false }

	syncFlags = syncOptions{}
	fetchOutput = ""
	validateExpected = 0
	testSendMode = ""

	t.Cleanup(func() {
		newBackend = oldBackend
		isInteractive = oldInteractive
	})
}

// execute runs the root command with args and returns everything printed.
func execute(args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(new(bytes.Buffer))
	rootCmd.SetArgs(args)
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	return buf.String(), err
}

func ticket(id, name string) domain.Ticket {
	return domain.MustTicket(fmt.Sprintf(
		`{"_id":%q,"ticketName":%q,"status":"VALID","sellerId":"seller-1","createdAt":"2024-03-01T09:00:00.000Z"}`,
		id, name))
}
