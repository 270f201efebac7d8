package cli

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

type syncOptions struct {
	batchSize       int
	resume          bool
	dryRun          bool
	testBatch       int
	noValidate      bool
	expected        int
	requireComplete bool
	quiet           bool
	yes             bool
}

var syncFlags syncOptions

// isInteractive reports whether stdin is a terminal. Tests replace it.
var isInteractive = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

var errAborted = errors.New("aborted")

var syncCmd = &cobra.Command{
	Use:   "sync REGION [EVENT]",
	Short: "Send historical tickets as webhooks",
	Long: `Processes one batch of an event's eligible tickets: validates ticket counts,
downloads every ticket, keeps VALID and DETAILSREQUIRED tickets of the
configured category, sorts them by creation time and sends each as a signed
ticket.created webhook.

The event defaults to <REGION>_EVENT. Progress is saved after every ticket;
use --resume to continue with the next batch.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runSync,
}

func init() {
	f := syncCmd.Flags()
	f.IntVar(&syncFlags.batchSize, "batch-size", 0, "tickets per run (default from settings, 50)")
	f.BoolVar(&syncFlags.resume, "resume", false, "continue from the last processed ticket")
	f.BoolVar(&syncFlags.dryRun, "dry-run", false, "show what would be sent without sending")
	f.IntVar(&syncFlags.testBatch, "test-batch", 0, "only consider the first N eligible tickets, keeping teams together")
	f.BoolVar(&syncFlags.noValidate, "no-validate", false, "skip the ticket count validation")
	f.IntVar(&syncFlags.expected, "expected", 0, "expected number of eligible tickets")
	f.BoolVar(&syncFlags.requireComplete, "require-complete", false, "fail when the download is below the completeness threshold")
	f.BoolVarP(&syncFlags.quiet, "quiet", "q", false, "hide tickets skipped as already sent")
	f.BoolVarP(&syncFlags.yes, "yes", "y", false, "do not ask for confirmation")
	rootCmd.AddCommand(syncCmd)
}

func runSync(cmd *cobra.Command, args []string) error {
	return withBackend(func(b backend) error {
		region, err := b.Region(args[0], optionalArg(args, 1))
		if err != nil {
			return err
		}

		live := !syncFlags.dryRun
		svc, err := b.HistoricalSync(cmd.Context(), region, live)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		mode := "Sync"
		if syncFlags.dryRun {
			mode = "Dry run"
		}
		cmd.Println(titleStyle.Render(fmt.Sprintf("%s: %s event %s", mode, region.Name, region.EventID)))

		if live && !syncFlags.yes && isInteractive() {
			ok, err := confirm(cmd, fmt.Sprintf("Send tickets of event %s to %s?", region.EventID, b.Settings().WebhookURL))
			if err != nil {
				return err
			}
			if !ok {
				return errAborted
			}
		}

		report, err := svc.Sync(cmd.Context(), driving.SyncRequest{
			Region:           region.Name,
			EventID:          region.EventID,
			BatchSize:        syncFlags.batchSize,
			Resume:           syncFlags.resume,
			DryRun:           syncFlags.dryRun,
			TestBatch:        syncFlags.testBatch,
			SkipValidation:   syncFlags.noValidate,
			ExpectedEligible: syncFlags.expected,
			RequireComplete:  syncFlags.requireComplete,
			OnRecord: func(o driving.RecordOutcome) {
				printRecord(out, o, syncFlags.quiet)
			},
		})
		if report != nil {
			printSyncReport(cmd, report)
		}
		if err != nil {
			return fmt.Errorf("sync %s: %w", region.Name, err)
		}
		return nil
	})
}

func printSyncReport(cmd *cobra.Command, r *driving.SyncReport) {
	out := cmd.OutOrStdout()
	if r.AlreadyCompleted {
		cmd.Printf("Event %s is already completed. Use --resume to process it again.\n", r.EventID)
		printScopeStatus(out, r)
		return
	}
	printValidation(out, r.Validation)
	if r.Fetched == 0 && r.ExpectedTotal == 0 {
		return
	}
	section(out, "Tickets")
	printFetch(out, r)
	printFilter(out, r.Filter)
	if r.Selected == 0 {
		return
	}
	if r.Plan != nil {
		printPlan(out, r)
		return
	}
	printSummary(out, r)
}

// confirm asks a yes/no question on the command's input.
func confirm(cmd *cobra.Command, question string) (bool, error) {
	cmd.Printf("%s [y/N] ", question)
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && line == "" {
		return false, fmt.Errorf("read confirmation: %w", err)
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func optionalArg(args []string, i int) string {
	if len(args) > i {
		return args[i]
	}
	return ""
}

// ExitCode maps an error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, errAborted):
		return 130
	case errors.Is(err, domain.ErrMissingCredential),
		errors.Is(err, domain.ErrMissingScope),
		errors.Is(err, domain.ErrMissingWebhookURL),
		errors.Is(err, domain.ErrInvalidInput):
		return 2
	default:
		return 1
	}
}
