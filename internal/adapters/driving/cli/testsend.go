package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// previewLimit caps the payload preview printed before sending.
const previewLimit = 2000

var testSendMode string

var testSendCmd = &cobra.Command{
	Use:   "test-send FILE",
	Short: "Send one ticket from a ticket dump",
	Long: `Loads a ticket dump (as written by fetch, or a {"rows": [...]} page),
applies the eligibility filter and sends a single ticket, preferring an HIA
ticket type. Nothing is recorded in the progress store.`,
	Args: cobra.ExactArgs(1),
	RunE: runTestSend,
}

func init() {
	testSendCmd.Flags().StringVar(&testSendMode, "mode", "", "webhook mode: prod, dev or test (default from settings)")
	rootCmd.AddCommand(testSendCmd)
}

func runTestSend(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read ticket dump: %w", err)
	}
	tickets, err := parseDump(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	cmd.Printf("Loaded %s tickets from %s\n", count(len(tickets)), args[0])

	return withBackend(func(b backend) error {
		sender, err := b.TestSender(testSendMode)
		if err != nil {
			return err
		}
		report, err := sender.SendTest(cmd.Context(), tickets)
		if report != nil && !report.Ticket.IsZero() {
			cmd.Printf("Eligible: %s, selected %s (%s)\n", count(report.Candidates), report.Ticket.ID(), report.Ticket.TypeName())
			section(cmd.OutOrStdout(), "Payload")
			cmd.Println(preview(report.Payload))
		}
		if err != nil {
			return fmt.Errorf("test send: %w", err)
		}
		if !report.Sent {
			for _, e := range report.Errors {
				cmd.Println(errStyle.Render(e.Error))
			}
			return fmt.Errorf("test send of %s failed", report.Ticket.ID())
		}
		cmd.Println(okStyle.Render("Sent " + report.Envelope.WebhookID))
		return nil
	})
}

// parseDump reads a JSON array of tickets or an object with a rows array.
// Entries that are not valid tickets are skipped.
func parseDump(data []byte) ([]domain.Ticket, error) {
	if !gjson.ValidBytes(data) {
		return nil, fmt.Errorf("%w: not JSON", domain.ErrInvalidInput)
	}
	rows := gjson.ParseBytes(data)
	if rows.IsObject() {
		rows = rows.Get("rows")
	}
	if !rows.IsArray() {
		return nil, fmt.Errorf("%w: expected a ticket array", domain.ErrInvalidInput)
	}

	var tickets []domain.Ticket
	rows.ForEach(func(_, row gjson.Result) bool {
		t, err := domain.NewTicket([]byte(row.Raw))
		if err != nil {
			logger.Warn("Skipping ticket: %v", err)
			return true
		}
		tickets = append(tickets, t)
		return true
	})
	return tickets, nil
}

func preview(payload []byte) string {
	var buf bytes.Buffer
	if err := json.Indent(&buf, payload, "", "  "); err != nil {
		buf.Reset()
		buf.Write(payload)
	}
	s := buf.String()
	if len(s) > previewLimit {
		s = s[:previewLimit] + "\n..."
	}
	return s
}
