package cli

import (
	"cmp"
	"fmt"
	"io"
	"maps"
	"slices"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

// recentErrors is how many error records the progress report lists.
const recentErrors = 10

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E3A1"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F9E2AF"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F38BA8"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6C7086"))
)

func section(w io.Writer, title string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render(title))
}

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func count(n int) string { return humanize.Comma(int64(n)) }

func percent(rate float64) string { return fmt.Sprintf("%.1f%%", rate*100) }

func printValidation(w io.Writer, r *driving.ValidationReport) {
	if r == nil {
		return
	}
	name := r.EventName
	if name == "" {
		name = r.EventID
	}
	section(w, "Validation: "+name)

	t := newTable(w)
	t.AppendHeader(table.Row{"Ticket type", "Capacity", "Reported", "Scraped", ""})
	for _, c := range r.Types {
		status := okStyle.Render("ok")
		switch {
		case !c.OnEvent:
			status = errStyle.Render("not on event")
		case !c.Match():
			status = errStyle.Render("mismatch")
		}
		t.AppendRow(table.Row{c.Name, count(c.Capacity), count(c.Reported), count(c.Scraped), status})
	}
	t.AppendFooter(table.Row{"Total", "", count(r.ExpectedTotal), count(r.Scraped), percent(r.CompletionRate)})
	t.Render()

	fmt.Fprintf(w, "Eligible tickets: %s\n", count(r.Eligible))
	if r.Passed() {
		fmt.Fprintln(w, okStyle.Render("Validation passed"))
		return
	}
	fmt.Fprintln(w, errStyle.Render("Validation failed:"))
	for _, p := range r.Problems {
		fmt.Fprintf(w, "  - %s\n", p)
	}
}

func printFetch(w io.Writer, r *driving.SyncReport) {
	line := fmt.Sprintf("Fetched %s of %s tickets (%s)", count(r.Fetched), count(r.ExpectedTotal), percent(r.CompletionRate))
	if r.Incomplete {
		line = warnStyle.Render(line + ", incomplete")
	}
	fmt.Fprintln(w, line)
}

func printFilter(w io.Writer, f driving.FilterSummary) {
	fmt.Fprintf(w, "Eligible: %s of %s", count(f.Eligible), count(f.Total))
	for _, reason := range slices.Sorted(maps.Keys(f.Rejected)) {
		fmt.Fprintf(w, ", %s rejected by %s", count(f.Rejected[reason]), reason)
	}
	fmt.Fprintln(w)
}

func printPlan(w io.Writer, r *driving.SyncReport) {
	p := r.Plan
	if p == nil {
		return
	}

	section(w, "Ticket types")
	t := newTable(w)
	t.AppendHeader(table.Row{"Ticket type", "Tickets"})
	for _, tc := range p.TypeBreakdown {
		t.AppendRow(table.Row{tc.Name, count(tc.Count)})
	}
	t.Render()

	section(w, "Range")
	fmt.Fprintf(w, "Earliest: %s\nLatest:   %s\n", p.Earliest, p.Latest)
	if p.HasSpan {
		fmt.Fprintf(w, "Span:     %d days\n", p.SpanDays)
	}

	title := fmt.Sprintf("Batch %d/%d: tickets %d-%d of %d", r.BatchNumber, r.TotalBatches, r.StartIndex+1, r.EndIndex, r.Selected)
	if p.Resuming {
		title += " (resuming)"
	}
	section(w, title)
	t = newTable(w)
	t.AppendHeader(table.Row{"#", "Ticket", "Type", "Created"})
	for i, tk := range p.Preview {
		t.AppendRow(table.Row{r.StartIndex + i + 1, tk.ID(), tk.TypeName(), tk.CreatedAtRaw()})
	}
	if more := r.EndIndex - r.StartIndex - len(p.Preview); more > 0 {
		t.AppendFooter(table.Row{"", fmt.Sprintf("... and %d more", more), "", ""})
	}
	t.Render()

	fmt.Fprintf(w, "Batches: %d, sizes %v\n", len(p.BatchSizes), p.BatchSizes)
	fmt.Fprintf(w, "Processed: %s, remaining: %s\n", count(p.Processed), count(p.Remaining))
	fmt.Fprintln(w, mutedStyle.Render("Dry run: nothing was sent"))
}

func printSummary(w io.Writer, r *driving.SyncReport) {
	section(w, fmt.Sprintf("Batch %d/%d", r.BatchNumber, r.TotalBatches))
	fmt.Fprintf(w, "Sent:         %s\n", okStyle.Render(count(r.Sent)))
	if r.Failed > 0 {
		fmt.Fprintf(w, "Failed:       %s\n", errStyle.Render(count(r.Failed)))
	} else {
		fmt.Fprintf(w, "Failed:       0\n")
	}
	fmt.Fprintf(w, "Already sent: %s\n", count(r.AlreadySent))
	printScopeStatus(w, r)
}

func printScopeStatus(w io.Writer, r *driving.SyncReport) {
	fmt.Fprintf(w, "Progress:     %s/%s (%s)\n", count(r.ProcessedTickets), count(r.TotalTickets), r.Status)
	fmt.Fprintf(w, "Total sent:   %s\n", count(r.TicketsSentTotal))
	if r.Status == domain.ScopeInProgress {
		fmt.Fprintln(w, mutedStyle.Render("Run again with --resume to process the next batch"))
	}
}

func printRecord(w io.Writer, o driving.RecordOutcome, quiet bool) {
	prefix := fmt.Sprintf("[%d/%d]", o.Index+1, o.Total)
	switch o.Action {
	case driving.RecordSent:
		fmt.Fprintf(w, "%s %s %s (%s)\n", prefix, okStyle.Render("sent"), o.Ticket.ID(), o.Ticket.TypeName())
	case driving.RecordFailed:
		fmt.Fprintf(w, "%s %s %s (%s)\n", prefix, errStyle.Render("failed"), o.Ticket.ID(), o.Ticket.TypeName())
	case driving.RecordSkipped:
		if !quiet {
			fmt.Fprintf(w, "%s %s %s already sent\n", prefix, mutedStyle.Render("skip"), o.Ticket.ID())
		}
	}
}

func printProgress(w io.Writer, region string, p *domain.SyncProgress, now time.Time) {
	section(w, "Progress: "+region)
	lastRun := "never"
	if p.LastRun != nil {
		lastRun = humanize.RelTime(*p.LastRun, now, "ago", "from now")
	}
	fmt.Fprintf(w, "Last run:        %s\n", lastRun)
	fmt.Fprintf(w, "Tickets sent:    %s\n", count(p.TicketsSent))
	fmt.Fprintf(w, "Events complete: %d\n", len(p.ScopesCompleted))

	if len(p.Scopes) > 0 {
		t := newTable(w)
		t.AppendHeader(table.Row{"Event", "Status", "Processed", "Total", "Sent ids", "Batches", "Last index"})
		for _, id := range slices.Sorted(maps.Keys(p.Scopes)) {
			sp := p.Scopes[id]
			t.AppendRow(table.Row{id, sp.Status, count(sp.ProcessedTickets), count(sp.TotalTickets),
				count(len(sp.SentTicketIDs)), sp.BatchesCompleted, sp.LastProcessedIndex})
		}
		t.Render()
	}

	if len(p.Errors) == 0 {
		return
	}
	section(w, fmt.Sprintf("Errors (%s total)", count(len(p.Errors))))
	recent := slices.Clone(p.Errors)
	slices.SortStableFunc(recent, func(a, b domain.ErrorRecord) int {
		return cmp.Compare(b.Timestamp.UnixNano(), a.Timestamp.UnixNano())
	})
	t := newTable(w)
	t.AppendHeader(table.Row{"When", "Ticket", "Error"})
	for _, e := range recent[:min(recentErrors, len(recent))] {
		t.AppendRow(table.Row{humanize.RelTime(e.Timestamp, now, "ago", "from now"), e.TicketID, e.Error})
	}
	t.Render()
}
