package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

// DumpFileName is the file fetch writes under <output>/<event>/.
const DumpFileName = "all_tickets.json"

var fetchOutput string

var fetchCmd = &cobra.Command{
	Use:   "fetch REGION [EVENT]",
	Short: "Download every ticket of an event",
	Long: `Downloads all tickets of an event with the bulk page size and writes them
to <output>/<event>/all_tickets.json. The file can be used with test-send.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().StringVarP(&fetchOutput, "output", "o", "", "output directory (default from settings, purchased_tickets)")
	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	return withBackend(func(b backend) error {
		region, err := b.Region(args[0], optionalArg(args, 1))
		if err != nil {
			return err
		}
		downloader, err := b.Downloader(cmd.Context(), region)
		if err != nil {
			return err
		}

		cmd.Println(titleStyle.Render(fmt.Sprintf("Fetch: %s event %s", region.Name, region.EventID)))
		result, err := downloader.Download(cmd.Context(), region.EventID)
		if err != nil {
			return fmt.Errorf("download tickets: %w", err)
		}

		line := fmt.Sprintf("Fetched %s of %s tickets (%s) in %s with %d requests",
			count(len(result.Tickets)), count(result.ExpectedTotal), percent(result.CompletionRate()),
			result.Duration.Round(time.Millisecond), result.Calls)
		if !result.Complete(b.Settings().CompletenessThreshold) {
			line = warnStyle.Render(line + ", incomplete")
		}
		cmd.Println(line)

		dir := fetchOutput
		if dir == "" {
			dir = b.Settings().OutputDir
		}
		path, err := writeDump(filepath.Join(dir, region.EventID), result.Tickets)
		if err != nil {
			return err
		}
		cmd.Printf("Saved to %s\n", path)
		return nil
	})
}

// writeDump writes v as indented JSON to dir/DumpFileName.
func writeDump(dir string, v any) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode tickets: %w", err)
	}
	path := filepath.Join(dir, DumpFileName)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
