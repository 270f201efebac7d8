package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/custodia-labs/vivenu-sync/internal/core/domain"
)

var progressCmd = &cobra.Command{
	Use:   "progress REGION",
	Short: "Show stored sync progress for a region",
	Args:  cobra.ExactArgs(1),
	RunE:  runProgress,
}

func init() {
	rootCmd.AddCommand(progressCmd)
}

func runProgress(cmd *cobra.Command, args []string) error {
	return withBackend(func(b backend) error {
		store, err := b.ProgressStore()
		if err != nil {
			return err
		}
		region := domain.NormaliseRegion(args[0])
		p, err := store.Load(cmd.Context(), region)
		if err != nil {
			return err
		}
		printProgress(cmd.OutOrStdout(), region, p, time.Now())
		return nil
	})
}
