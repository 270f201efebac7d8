package cli

import (
	"bufio"
	"fmt"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/custodia-labs/vivenu-sync/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage settings",
	Long: `View and change persisted settings in ~/.vivenu-sync/config.toml.

Environment variables (VIVENU_<KEY>, <REGION>_API, <REGION>_EVENT) override
stored values. Region settings use keys like regions.lisbon.event.`,
	RunE: runConfigShow,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show effective settings",
	RunE:  runConfigShow,
}

var configSetCmd = &cobra.Command{
	Use:   "set KEY [VALUE]",
	Short: "Store a setting",
	Long: `Stores a setting. Numbers and booleans are stored typed, durations as
strings such as 1.8s. team_indicators takes a comma separated list.
When VALUE is omitted it is read from the terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configUnsetCmd = &cobra.Command{
	Use:   "unset KEY",
	Short: "Remove a stored setting",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigUnset,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the settings file path",
	RunE: func(cmd *cobra.Command, _ []string) error {
		store, err := openConfigStore()
		if err != nil {
			return err
		}
		cmd.Println(store.Path())
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
	configCmd.AddCommand(configPathCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigShow(cmd *cobra.Command, _ []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	v := config.New(store)
	stored := store.All()

	keys := config.Keys()
	for key := range stored {
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)

	cmd.Println(titleStyle.Render("Settings"))
	t := newTable(cmd.OutOrStdout())
	t.AppendHeader(table.Row{"Key", "Value", "Source"})
	for _, key := range keys {
		val := fmt.Sprint(v.Get(key))
		if isSecretKey(key) && val != "" {
			val = maskAPIKey(val)
		}
		source := "default"
		if _, ok := stored[key]; ok {
			source = "file"
		}
		if _, ok := os.LookupEnv(config.EnvVar(key)); ok {
			source = "env"
		}
		t.AppendRow(table.Row{key, val, source})
	}
	t.Render()
	cmd.Printf("File: %s\n", store.Path())

	if _, err := config.Load(v); err != nil {
		cmd.Println(warnStyle.Render(fmt.Sprintf("Warning: %v", err)))
	}
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))

	var raw string
	if len(args) == 2 {
		raw = args[1]
	} else {
		cmd.Printf("%s: ", key)
		raw = readSecret(cmd)
		cmd.Println()
	}

	if err := store.Set(key, parseValue(key, raw)); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	if _, err := config.Load(config.New(store)); err != nil {
		cmd.Println(warnStyle.Render(fmt.Sprintf("Warning: %v", err)))
	}
	cmd.Printf("Set %s\n", key)
	return nil
}

func runConfigUnset(cmd *cobra.Command, args []string) error {
	store, err := openConfigStore()
	if err != nil {
		return err
	}
	key := strings.ToLower(strings.TrimSpace(args[0]))
	if _, ok := store.Get(key); !ok {
		return fmt.Errorf("%s is not set; stored keys: %s", key,
			strings.Join(slices.Sorted(maps.Keys(store.All())), ", "))
	}
	if err := store.Unset(key); err != nil {
		return fmt.Errorf("save setting: %w", err)
	}
	cmd.Printf("Unset %s\n", key)
	return nil
}

// parseValue stores numbers and booleans typed. Durations stay strings.
func parseValue(key, raw string) any {
	raw = strings.TrimSpace(raw)
	if key == config.KeyTeamIndicators {
		var list []string
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s != "" {
				list = append(list, s)
			}
		}
		return list
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	return raw
}

func isSecretKey(key string) bool {
	return key == config.KeySecret || strings.HasSuffix(key, ".api")
}

// readSecret reads a line without echo when stdin is a terminal.
//
//nolint:errcheck // CLI helper, error ignored for UX
func readSecret(cmd *cobra.Command) string {
	if isInteractive() {
		secret, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err == nil {
			return strings.TrimSpace(string(secret))
		}
	}
	input, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	return strings.TrimSpace(input)
}

func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}
