package cmd

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/cirrusidentity/siem-client/internal/output"
)

var cursorCmd = &cobra.Command{
	Use:   "cursor",
	Short: "Inspect or reset the saved pagination cursor",
	Long: `Continuous mode (-c) saves the next-page link after every page so the
next run resumes from there. These commands show or remove that link.

Examples:
  siem-client cursor show                    # Where the next -c run starts
  siem-client cursor show --json             # Same, as JSON
  siem-client cursor clear                   # Start the next -c run from scratch
  siem-client cursor show --cursor-redis-url redis://localhost:6379/0`,
}

var cursorShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the saved cursor",
	Args:  cobra.NoArgs,
	RunE:  runCursorShow,
}

var cursorClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the saved cursor",
	Args:  cobra.NoArgs,
	RunE:  runCursorClear,
}

func init() {
	rootCmd.AddCommand(cursorCmd)
	cursorCmd.AddCommand(cursorShowCmd)
	cursorCmd.AddCommand(cursorClearCmd)

	cursorShowCmd.Flags().Bool("json", false, "output as JSON")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func runCursorShow(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	c, err := store.Load(commandContext(cmd))
	if err != nil {
		return err
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")
	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"location": store.Location(),
			"saved":    !c.IsEmpty(),
			"cursor":   c.String(),
			"next_url": c.URL(),
		})
	}

	table := output.NewTable(cmd.OutOrStdout(), []string{"KEY", "VALUE"})
	table.AddRow("location", store.Location())
	if c.IsEmpty() {
		table.AddRow("cursor", "(none, next run starts from the beginning)")
	} else {
		table.AddRow("cursor", c.String())
		table.AddRow("next_url", c.URL())
	}
	return table.Render()
}

func runCursorClear(cmd *cobra.Command, args []string) error {
	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	if err := store.Clear(commandContext(cmd)); err != nil {
		return err
	}
	newPrinter(cmd).Info("Cleared cursor at %s", store.Location())
	return nil
}
