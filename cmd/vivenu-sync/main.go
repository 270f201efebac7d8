// Command vivenu-sync replays historical Vivenu tickets as webhooks.
package main

import (
	"os"

	"github.com/custodia-labs/vivenu-sync/internal/adapters/driving/cli"
)

func main() {
	os.Exit(cli.ExitCode(cli.Execute()))
}
