// Package cmd contains all CLI commands for siem-client
package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/cirrusidentity/siem-client/internal/config"
	"github.com/cirrusidentity/siem-client/internal/output"
)

var (
	cfgFile      string
	verbose      bool
	continuous   bool
	exitAfterOne bool
	colorFlag    string
	cfg          *config.Config
	v            *viper.Viper
	logger       *slog.Logger
	version      = "dev"
)

// flagBindings maps command-line flags to configuration keys
var flagBindings = map[string]string{
	"apikey":           "api.key",
	"apisecret":        "api.secret",
	"apiurl":           "api.url",
	"orgurl":           "api.org_url",
	"limit":            "query.limit",
	"since":            "query.since",
	"until":            "query.until",
	"query":            "query.filter",
	"strict-query":     "query.strict",
	"cursor-file":      "cursor.path",
	"cursor-redis-url": "cursor.redis_url",
	"cursor-key":       "cursor.redis_key",
	"clear-on-exhaust": "cursor.clear_on_exhaust",
	"timeout":          "http.timeout",
	"min-interval":     "http.min_interval",
}

// rootCmd runs a search when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "siem-client",
	Short: "Query the log search API and print matching entries as JSON",
	Long: `siem-client fetches log entries from the paginated log search API and
prints each page as a JSON array on stdout.

Credentials are read from --apikey/--apisecret or the API_KEY and API_SECRET
environment variables.

Example usage:
  siem-client --since "2024-01-01 00:00:00Z"       # Everything since a timestamp
  siem-client --query service=idp,user=jdoe         # Narrow the search
  siem-client -c                                    # Continue where the last run stopped
  siem-client -x --limit 10                         # One page of ten entries
  siem-client cursor show                           # Inspect the saved position`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig(cmd)
	},
	RunE: runSearch,
}

// ExecuteContext runs the root command with ctx
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

// SetVersion sets the version string for the CLI
func SetVersion(ver string) {
	version = ver
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is .siem-client.yaml)")
	pf.BoolVarP(&verbose, "verbose", "v", false, "print debugging info to stderr")
	pf.StringVar(&colorFlag, "color", "auto", "color output: auto, always, or never")

	pf.String("apikey", "", "API key for auth (default $API_KEY)")
	pf.String("apisecret", "", "API secret for auth (default $API_SECRET)")
	pf.String("apiurl", "", "override the default log search API URL")
	pf.String("cursor-file", "", "file holding the pagination cursor (default $TMPDIR/siem-client.run)")
	pf.String("cursor-redis-url", "", "keep the pagination cursor in Redis instead of a file (redis://host:port/db)")
	pf.String("cursor-key", "", "Redis key holding the pagination cursor")

	// Flags backed by config keys are persistent so `config` reports them
	pf.Int("limit", 1000, "maximum entries fetched per request (at most 1000)")
	pf.String("since", "", `timestamp to start the search from, ISO8601 with trailing 'Z', e.g. "YYYY-MM-DD HH:MM:SSZ"`)
	pf.String("until", "", `timestamp to end the search at, ISO8601 with trailing 'Z'; leave unset to stream logs`)
	pf.String("orgurl", "", "orgurl to query against, needed when the API key covers more than one")
	pf.String("query", "", "comma-separated key=value filters; keys: tenant, service, metrictype, metricsubtype, clientip, correlationid, user")
	pf.Bool("strict-query", false, "reject --query keys that are not recognized instead of ignoring them")
	pf.Bool("clear-on-exhaust", false, "in continuous mode, clear the cursor once all results were read")
	pf.Duration("timeout", 0, "per-request timeout (default 60s)")
	pf.Duration("min-interval", 0, "minimum delay between consecutive requests")

	f := rootCmd.Flags()
	f.BoolVarP(&continuous, "continuous", "c", false, "continue where the last invocation left off")
	f.BoolVarP(&exitAfterOne, "exit-after-one", "x", false, "exit after one page of results, even if more are available")

	rootCmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &output.CLIError{
			Summary:    err.Error(),
			Suggestion: "Run '" + c.CommandPath() + " --help' for usage",
			ExitCode:   output.ExitUsageError,
			Err:        err,
		}
	})
}

// initConfig builds the logger and loads configuration for cmd
func initConfig(cmd *cobra.Command) error {
	if _, err := output.ParseColorMode(colorFlag); err != nil {
		return &output.CLIError{
			Summary:  err.Error(),
			ExitCode: output.ExitUsageError,
			Err:      err,
		}
	}

	v = config.New(cfgFile)
	for flag, key := range flagBindings {
		if fl := cmd.Flags().Lookup(flag); fl != nil {
			if err := v.BindPFlag(key, fl); err != nil {
				return fmt.Errorf("binding flag %s: %w", flag, err)
			}
		}
	}

	var err error
	cfg, err = config.Load(v)
	if err != nil {
		return &output.CLIError{
			Summary:    "invalid configuration",
			Detail:     err.Error(),
			Suggestion: "Check .siem-client.yaml syntax or use --config",
			ExitCode:   output.ExitConfigError,
			Err:        err,
		}
	}

	logger = newLogger(cmd.ErrOrStderr(), cfg.Logging)
	logger.Debug("configuration loaded",
		"config_file", v.ConfigFileUsed(),
		"api_url", cfg.API.URL,
		"cursor_path", cfg.Cursor.Path,
		"cursor_redis", cfg.Cursor.RedisURL != "",
	)
	return nil
}

func newLogger(w io.Writer, lc config.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch {
	case verbose || lc.Level == "debug":
		level = slog.LevelDebug
	case lc.Level == "warn":
		level = slog.LevelWarn
	case lc.Level == "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// newPrinter creates a printer bound to cmd's output streams
func newPrinter(cmd *cobra.Command) *output.Printer {
	mode, err := output.ParseColorMode(colorFlag)
	if err != nil {
		mode = output.ColorAuto
	}
	colors := true
	if cfg != nil {
		colors = cfg.Output.Colors
	}
	return output.NewPrinter(output.PrinterOptions{
		ColorMode:    mode,
		ConfigColors: colors,
		Out:          cmd.OutOrStdout(),
		Err:          cmd.ErrOrStderr(),
	})
}
