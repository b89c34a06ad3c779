// Package paginator drives the page-by-page search loop and keeps the
// resume cursor in step with it.
package paginator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/cirrusidentity/siem-client/internal/cursor"
	"github.com/cirrusidentity/siem-client/internal/query"
	"github.com/cirrusidentity/siem-client/internal/transport"
)

// Fetcher performs one search request
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*transport.Page, error)
}

// PageWriter receives every successfully fetched page
type PageWriter interface {
	WritePage(records []json.RawMessage) error
}

// StopReason explains why a run ended
type StopReason string

const (
	// StopNoLink means the last response carried no pagination link
	StopNoLink StopReason = "no_link"
	// StopExhausted means the last page held fewer records than the limit
	StopExhausted StopReason = "exhausted"
	// StopOnePage means a single page was requested
	StopOnePage StopReason = "one_page"
)

// Result summarizes a completed run
type Result struct {
	Pages   int
	Records int
	// Cursor is what the store holds after the run
	Cursor cursor.Cursor
	Reason StopReason
}

// Paginator fetches pages until the results run out
type Paginator struct {
	search  query.Search
	fetcher Fetcher
	store   cursor.Store
	writer  PageWriter
	logger  *slog.Logger
}

// New creates a Paginator
func New(search query.Search, fetcher Fetcher, store cursor.Store, writer PageWriter, logger *slog.Logger) *Paginator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Paginator{
		search:  search,
		fetcher: fetcher,
		store:   store,
		writer:  writer,
		logger:  logger,
	}
}

// Run executes the search loop.
//
// In continuous mode it starts from the stored cursor. Every page with a
// pagination link overwrites the stored cursor, unless a single page was
// requested. The loop stops when a response has no link, when a page holds
// fewer records than the limit, or after the first page in one-page mode.
// Outside continuous mode the stored cursor is removed once the loop ends.
//
// Any error ends the run immediately. Pages printed before the error stay
// printed, and the cursor written for the last successful page is kept.
func (p *Paginator) Run(ctx context.Context) (*Result, error) {
	var current cursor.Cursor
	if p.search.Continuous {
		c, err := p.store.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("loading cursor: %w", err)
		}
		current = c
		p.logger.Debug("resuming from stored cursor",
			"location", p.store.Location(),
			"has_cursor", !current.IsEmpty(),
		)
	}

	res := &Result{Cursor: current}
	for {
		base := p.search.BaseURL
		if !current.IsEmpty() {
			base = current.URL()
			p.logger.Debug("using cursor as request base", "url", base)
		}

		reqURL, err := query.BuildRequestURL(base, p.search)
		if err != nil {
			return res, err
		}

		p.logger.Debug("sending request", "url", reqURL, "paginated", query.HasPagination(reqURL))
		page, err := p.fetcher.Fetch(ctx, reqURL)
		if err != nil {
			return res, err
		}

		res.Pages++
		res.Records += len(page.Records)
		if err := p.writer.WritePage(page.Records); err != nil {
			return res, err
		}

		if !page.HasNext() || p.search.StopAfterOnePage {
			if p.search.StopAfterOnePage {
				res.Reason = StopOnePage
				p.logger.Debug("stopping after one page", "has_link", page.HasNext())
			} else {
				res.Reason = StopNoLink
				p.logger.Debug("end of results, no pagination link")
			}
			break
		}

		current = cursor.Cursor(page.Link)
		if err := p.store.Save(ctx, current); err != nil {
			return res, fmt.Errorf("saving cursor: %w", err)
		}
		res.Cursor = current

		if len(page.Records) < p.search.Limit {
			res.Reason = StopExhausted
			p.logger.Debug("fewer results than limit, stopping", "limit", p.search.Limit, "results", len(page.Records))
			break
		}
		p.logger.Debug("more results available", "results", len(page.Records))
	}

	switch {
	case !p.search.Continuous:
		p.logger.Debug("removing cursor outside continuous mode", "location", p.store.Location())
		if err := p.store.Clear(ctx); err != nil {
			return res, fmt.Errorf("clearing cursor: %w", err)
		}
		res.Cursor = ""
	case res.Reason == StopExhausted && p.search.ClearOnExhaust:
		p.logger.Debug("results exhausted, clearing cursor", "location", p.store.Location())
		if err := p.store.Clear(ctx); err != nil {
			return res, fmt.Errorf("clearing cursor: %w", err)
		}
		res.Cursor = ""
	}

	return res, nil
}
