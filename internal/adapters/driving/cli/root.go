// Package cli implements the vivenu-sync command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	configfile "github.com/custodia-labs/vivenu-sync/internal/adapters/driven/config/file"
	"github.com/custodia-labs/vivenu-sync/internal/core/ports/driven"
	"github.com/custodia-labs/vivenu-sync/internal/logger"
)

// version is set at build time via -ldflags.
var version = "dev"

var (
	verbose   bool
	configDir string
	storeFlag string
)

// configStore holds persisted settings. Opened on first use unless a test
// sets it.
var configStore driven.ConfigStore

// newBackend builds the services behind the commands. Tests replace it.
var newBackend = defaultBackend

var rootCmd = &cobra.Command{
	Use:   "vivenu-sync",
	Short: "Replay historical Vivenu tickets as webhooks",
	Long: `vivenu-sync downloads the tickets of a Vivenu event, cross-checks their
counts, and re-emits eligible tickets as signed ticket.created webhooks.

Each region is configured with <REGION>_API and <REGION>_EVENT. The webhook
target and signing secret come from VIVENU_WEBHOOK_URL and VIVENU_SECRET.
Progress is checkpointed after every ticket so interrupted runs resume safely.`,
	SilenceUsage: true,
	PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
		logger.SetVerbose(verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print debug output")
	rootCmd.PersistentFlags().StringVar(&configDir, "config-dir", "", "settings directory (default ~/.vivenu-sync)")
	rootCmd.PersistentFlags().StringVar(&storeFlag, "store", "", "progress store: file, sqlite or memory")
}

// Execute runs the root command until it finishes or the process is
// interrupted.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return rootCmd.ExecuteContext(ctx)
}

// openConfigStore returns the settings store, opening the TOML file once.
func openConfigStore() (driven.ConfigStore, error) {
	if configStore != nil {
		return configStore, nil
	}
	store, err := configfile.NewConfigStore(configDir)
	if err != nil {
		return nil, fmt.Errorf("open settings: %w", err)
	}
	configStore = store
	return configStore, nil
}

// withBackend opens a backend for the duration of fn.
func withBackend(fn func(b backend) error) (err error) {
	b, err := newBackend()
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, b.Close())
	}()
	return fn(b)
}
