package cli

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

func TestSyncCmd_Use(t *testing.T) {
	assert.Equal(t, "sync REGION [EVENT]", syncCmd.Use)
	assert.Contains(t, syncCmd.Long, "--resume")
}

func TestSyncCmd_RequiresRegion(t *testing.T) {
	setupBackend(t, newMockBackend())

	_, err := execute("sync")
	assert.Error(t, err)
}

func TestSyncCmd_DryRunPrintsPlan(t *testing.T) {
	b := newMockBackend()
	tickets := []domain.Ticket{ticket("t-1", "CHARITY 10K"), ticket("t-2", "CHARITY RELAY")}
	b.sync.report = &driving.SyncReport{
		Region:         "LISBON",
		EventID:        "evt-9",
		Fetched:        3,
		ExpectedTotal:  3,
		CompletionRate: 1,
		Filter: driving.FilterSummary{
			Total:    3,
			Eligible: 2,
			Rejected: map[string]int{"status": 1},
		},
		Selected:     2,
		BatchNumber:  1,
		TotalBatches: 1,
		StartIndex:   0,
		EndIndex:     2,
		Status:       domain.ScopePending,
		Plan: &driving.SyncPlan{
			TypeBreakdown: []driving.TypeCount{{Name: "CHARITY 10K", Count: 1}, {Name: "CHARITY RELAY", Count: 1}},
			Earliest:      "2024-03-01T09:00:00.000Z",
			Latest:        "2024-03-01T09:00:00.000Z",
			HasSpan:       true,
			Preview:       tickets,
			BatchSizes:    []int{2},
			Remaining:     2,
		},
	}
	setupBackend(t, b)

	out, err := execute("sync", "lisbon", "evt-9", "--dry-run", "--batch-size", "20", "--no-validate")
	require.NoError(t, err)

	require.Len(t, b.sync.requests, 1)
	req := b.sync.requests[0]
	assert.True(t, req.DryRun)
	assert.True(t, req.SkipValidation)
	assert.Equal(t, 20, req.BatchSize)
	assert.Equal(t, "evt-9", req.EventID)
	assert.Equal(t, []bool{false}, b.live)
	assert.True(t, b.closed)

	assert.Contains(t, out, "Dry run: LISBON event evt-9")
	assert.Contains(t, out, "CHARITY RELAY")
	assert.Contains(t, out, "1 rejected by status")
	assert.Contains(t, out, "Dry run: nothing was sent")
}

func TestSyncCmd_PrintsRecordsAndSummary(t *testing.T) {
	b := newMockBackend()
	b.sync.outcomes = []driving.RecordOutcome{
		{Index: 0, Total: 3, Ticket: ticket("t-1", "CHARITY 10K"), Action: driving.RecordSkipped},
		{Index: 1, Total: 3, Ticket: ticket("t-2", "CHARITY 10K"), Action: driving.RecordSent},
		{Index: 2, Total: 3, Ticket: ticket("t-3", "CHARITY 10K"), Action: driving.RecordFailed},
	}
	b.sync.report = &driving.SyncReport{
		Fetched: 3, ExpectedTotal: 3, CompletionRate: 1, Selected: 3,
		BatchNumber: 1, TotalBatches: 2, EndIndex: 3,
		Sent: 1, Failed: 1, AlreadySent: 1,
		Status: domain.ScopeInProgress, ProcessedTickets: 2, TotalTickets: 5, TicketsSentTotal: 2,
	}
	setupBackend(t, b)

	out, err := execute("sync", "lisbon", "--yes")
	require.NoError(t, err)

	assert.Equal(t, []bool{true}, b.live)
	assert.Contains(t, out, "[1/3]")
	assert.Contains(t, out, "t-1 already sent")
	assert.Contains(t, out, "t-2 (CHARITY 10K)")
	assert.Contains(t, out, "failed")
	assert.Contains(t, out, "Batch 1/2")
	assert.Contains(t, out, "Run again with --resume")
}

func TestSyncCmd_QuietHidesSkipped(t *testing.T) {
	b := newMockBackend()
	b.sync.outcomes = []driving.RecordOutcome{
		{Index: 0, Total: 1, Ticket: ticket("t-1", "CHARITY 10K"), Action: driving.RecordSkipped},
	}
	b.sync.report = &driving.SyncReport{Fetched: 1, Selected: 1, Status: domain.ScopeCompleted}
	setupBackend(t, b)

	out, err := execute("sync", "lisbon", "--quiet", "--resume")
	require.NoError(t, err)

	assert.NotContains(t, out, "already sent")
	assert.True(t, b.sync.requests[0].Resume)
}

func TestSyncCmd_AlreadyCompleted(t *testing.T) {
	b := newMockBackend()
	b.sync.report = &driving.SyncReport{
		EventID: "evt-1", AlreadyCompleted: true,
		Status: domain.ScopeCompleted, ProcessedTickets: 4, TotalTickets: 4,
	}
	setupBackend(t, b)

	out, err := execute("sync", "lisbon")
	require.NoError(t, err)
	assert.Contains(t, out, "already completed")
	assert.Contains(t, out, "4/4")
}

func TestSyncCmd_ValidationFailure(t *testing.T) {
	b := newMockBackend()
	b.sync.report = &driving.SyncReport{
		Validation: &driving.ValidationReport{
			EventID:  "evt-1",
			Types:    []driving.TypeComparison{{Name: "CHARITY 10K", Reported: 5, Scraped: 4, OnEvent: true}},
			Problems: []string{"CHARITY 10K: reported 5, scraped 4"},
		},
	}
	b.sync.err = fmt.Errorf("%w: CHARITY 10K: reported 5, scraped 4", domain.ErrValidationFailed)
	setupBackend(t, b)

	out, err := execute("sync", "lisbon", "--expected", "4", "--require-complete")
	require.Error(t, err)

	assert.ErrorIs(t, err, domain.ErrValidationFailed)
	assert.Equal(t, 1, ExitCode(err))
	assert.Equal(t, 4, b.sync.requests[0].ExpectedEligible)
	assert.True(t, b.sync.requests[0].RequireComplete)
	assert.Contains(t, out, "Validation failed")
	assert.Contains(t, out, "mismatch")
}

func TestSyncCmd_ConfigurationFailure(t *testing.T) {
	b := newMockBackend()
	b.regionErr = fmt.Errorf("%w: set NOWHERE_API", domain.ErrMissingCredential)
	setupBackend(t, b)

	_, err := execute("sync", "nowhere")
	require.Error(t, err)
	assert.Equal(t, 2, ExitCode(err))
	assert.Empty(t, b.live)
}

func TestSyncCmd_ConfirmDeclined(t *testing.T) {
	b := newMockBackend()
	setupBackend(t, b)
	isInteractive = func() bool { return true }

	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader("n\n"))
	rootCmd.SetArgs([]string{"sync", "lisbon"})
	defer rootCmd.SetArgs(nil)

	err := rootCmd.Execute()
	require.Error(t, err)
	assert.True(t, errors.Is(err, errAborted))
	assert.Equal(t, 130, ExitCode(err))
	assert.Empty(t, b.sync.requests)
	assert.Contains(t, buf.String(), "https://hooks.example.com/ingest")
}

func TestSyncCmd_ConfirmAccepted(t *testing.T) {
	b := newMockBackend()
	b.sync.report = &driving.SyncReport{}
	setupBackend(t, b)
	isInteractive = func() bool { return true }

	buf := new(strings.Builder)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader("yes\n"))
	rootCmd.SetArgs([]string{"sync", "lisbon"})
	defer rootCmd.SetArgs(nil)

	require.NoError(t, rootCmd.Execute())
	assert.Len(t, b.sync.requests, 1)
}

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{nil, 0},
		{errAborted, 130},
		{domain.ErrMissingScope, 2},
		{fmt.Errorf("wrap: %w", domain.ErrMissingWebhookURL), 2},
		{domain.ErrFetchIncomplete, 1},
		{errors.New("boom"), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ExitCode(tt.err))
	}
}
