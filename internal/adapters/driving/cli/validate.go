package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driving"
)

var validateExpected int

var validateCmd = &cobra.Command{
	Use:   "validate REGION [EVENT]",
	Short: "Cross-check ticket counts of an event",
	Long: `Compares ticket counts per ticket type from the event definition, the
per-type ticket totals and a full download. Secondary ticket types are left
out. Exits non-zero when any count disagrees.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().IntVar(&validateExpected, "expected", 0, "expected number of eligible tickets")
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	return withBackend(func(b backend) error {
		region, err := b.Region(args[0], optionalArg(args, 1))
		if err != nil {
			return err
		}
		validator, err := b.Validator(cmd.Context(), region)
		if err != nil {
			return err
		}

		report, err := validator.Validate(cmd.Context(), driving.ValidationRequest{
			EventID:          region.EventID,
			ExpectedEligible: validateExpected,
		})
		printValidation(cmd.OutOrStdout(), report)
		if err != nil {
			return fmt.Errorf("validate event %s: %w", region.EventID, err)
		}
		if !report.Passed() {
			return fmt.Errorf("%w: %s", domain.ErrValidationFailed, strings.Join(report.Problems, "; "))
		}
		return nil
	})
}
