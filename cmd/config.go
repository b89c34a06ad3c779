package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cirrusidentity/siem-client/internal/config"
	"github.com/cirrusidentity/siem-client/internal/cursor"
	"github.com/cirrusidentity/siem-client/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show current configuration",
	Long: `Display the effective siem-client configuration after merging the config
file, environment variables and flags. The API secret is masked.

Examples:
  siem-client config                # Show all config
  siem-client config --path         # Show config file path
  siem-client config --json         # Output as JSON`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)

	configCmd.Flags().Bool("path", false, "show config file path")
	configCmd.Flags().Bool("json", false, "output as JSON")
}

// maskedConfig returns a copy of cfg that is safe to print
func maskedConfig() config.Config {
	c := *cfg
	c.API.Secret = cfg.MaskedSecret()
	return c
}

func cursorLocation() string {
	if cfg.Cursor.RedisURL != "" {
		return "redis " + cfg.Cursor.RedisURL + " key " + cfg.Cursor.RedisKey
	}
	return cursor.NewFileStore(cfg.Cursor.Path).Location()
}

func runConfig(cmd *cobra.Command, args []string) error {
	printer := newPrinter(cmd)
	w := cmd.OutOrStdout()

	showPath, _ := cmd.Flags().GetBool("path")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if showPath {
		configFile := v.ConfigFileUsed()
		if configFile == "" {
			printer.Info("No config file found (using defaults)")
		} else {
			fmt.Fprintln(w, configFile)
		}
		return nil
	}

	masked := maskedConfig()
	if jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(masked)
	}

	table := output.NewTable(w, []string{"KEY", "VALUE"})
	table.AddRow("api.url", masked.API.URL)
	table.AddRow("api.key", masked.API.Key)
	table.AddRow("api.secret", masked.API.Secret)
	table.AddRow("api.org_url", masked.API.OrgURL)
	table.AddRow("query.limit", fmt.Sprintf("%d", masked.Query.Limit))
	table.AddRow("query.since", masked.Query.Since)
	table.AddRow("query.until", masked.Query.Until)
	table.AddRow("query.filter", masked.Query.Filter)
	table.AddRow("query.strict", fmt.Sprintf("%v", masked.Query.Strict))
	table.AddRow("cursor.location", cursorLocation())
	table.AddRow("cursor.clear_on_exhaust", fmt.Sprintf("%v", masked.Cursor.ClearOnExhaust))
	table.AddRow("http.timeout", masked.HTTP.Timeout.String())
	table.AddRow("http.min_interval", masked.HTTP.MinInterval.String())
	table.AddRow("logging.level", masked.Logging.Level)
	table.AddRow("logging.format", masked.Logging.Format)
	table.AddRow("output.colors", fmt.Sprintf("%v", masked.Output.Colors))
	return table.Render()
}
