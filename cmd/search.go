package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cirrusidentity/siem-client/internal/cursor"
	"github.com/cirrusidentity/siem-client/internal/output"
	"github.com/cirrusidentity/siem-client/internal/paginator"
	"github.com/cirrusidentity/siem-client/internal/query"
	"github.com/cirrusidentity/siem-client/internal/transport"
)

func runSearch(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	printer := newPrinter(cmd)

	if err := cfg.RequireCredentials(); err != nil {
		return err
	}

	search, err := buildSearch()
	if err != nil {
		return err
	}

	store, closeStore, err := openStore()
	if err != nil {
		return err
	}
	defer closeStore()

	client := transport.NewClient(
		transport.Credentials{Key: cfg.API.Key, Secret: cfg.API.Secret},
		transport.Options{
			Timeout:     cfg.HTTP.Timeout,
			MinInterval: cfg.HTTP.MinInterval,
			UserAgent:   userAgent(),
		},
		logger,
	)

	logger.Debug("starting search",
		"api_url", search.BaseURL,
		"limit", search.Limit,
		"continuous", search.Continuous,
		"stop_after_one_page", search.StopAfterOnePage,
		"cursor_store", store.Location(),
	)

	res, err := paginator.New(search, client, store, printer, logger).Run(ctx)
	if err != nil {
		return err
	}

	logger.Debug("search finished",
		"pages", res.Pages,
		"records", res.Records,
		"reason", string(res.Reason),
		"cursor_saved", !res.Cursor.IsEmpty(),
	)
	return nil
}

// buildSearch merges configuration, flags and --query into a query.Search
func buildSearch() (query.Search, error) {
	parsed, err := query.ParseFilters(cfg.Query.Filter, cfg.Query.Strict)
	if err != nil {
		return query.Search{}, err
	}
	if len(parsed.Ignored) > 0 {
		logger.Debug("ignoring unrecognized query keys", "keys", strings.Join(parsed.Ignored, ","))
	}

	if cfg.Query.Limit > query.MaxLimit {
		logger.Debug("limit capped", "requested", cfg.Query.Limit, "limit", query.MaxLimit)
	}

	return query.NewSearch(query.Options{
		BaseURL:          cfg.API.URL,
		OrgURL:           cfg.API.OrgURL,
		Limit:            cfg.Query.Limit,
		Since:            cfg.Query.Since,
		Until:            cfg.Query.Until,
		Query:            parsed.Filters,
		Continuous:       continuous,
		StopAfterOnePage: exitAfterOne,
		ClearOnExhaust:   cfg.Cursor.ClearOnExhaust,
	})
}

// openStore returns the configured cursor store and a function releasing it
func openStore() (cursor.Store, func(), error) {
	if cfg.Cursor.RedisURL != "" {
		store, err := cursor.NewRedisStoreWithURL(cfg.Cursor.RedisURL, cfg.Cursor.RedisKey)
		if err != nil {
			return nil, nil, &output.CLIError{
				Summary:    "invalid cursor store",
				Detail:     err.Error(),
				Suggestion: "Use a redis://host:port/db URL for --cursor-redis-url",
				ExitCode:   output.ExitConfigError,
				Err:        err,
			}
		}
		return store, func() {
			if err := store.Close(); err != nil {
				logger.Debug("closing redis cursor store", "error", err)
			}
		}, nil
	}
	return cursor.NewFileStore(cfg.Cursor.Path), func() {}, nil
}
