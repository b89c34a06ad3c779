// Package transport performs authenticated requests against the log search API
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	// DefaultTimeout bounds a single request, response body included
	DefaultTimeout = 60 * time.Second

	// LinkHeader carries the next-page URL
	LinkHeader = "Link"

	// RequestIDHeader identifies a request in server-side logs
	RequestIDHeader = "X-Request-ID"

	maxErrorBody = 4 << 10
)

// requestBody is sent with every search; filters travel in the URL
var requestBody = []byte("{}")

// Credentials are the API key pair used for HTTP basic auth
type Credentials struct {
	Key    string
	Secret string
}

// Page is one decoded API response
type Page struct {
	Records    []json.RawMessage
	Link       string
	StatusCode int
	RequestID  string
}

// HasNext reports whether the response carried a pagination link
func (p *Page) HasNext() bool {
	return p.Link != ""
}

// Options configures a Client
type Options struct {
	Timeout time.Duration
	// MinInterval spaces consecutive requests. Zero sends them back to back.
	MinInterval time.Duration
	UserAgent   string
	HTTPClient  *http.Client
}

// Client issues search requests
type Client struct {
	httpClient *http.Client
	creds      Credentials
	limiter    *rate.Limiter
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a client authenticating with creds
func NewClient(creds Credentials, opts Options, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy:                 http.ProxyFromEnvironment,
				TLSHandshakeTimeout:   10 * time.Second,
				ResponseHeaderTimeout: timeout,
				IdleConnTimeout:       90 * time.Second,
			},
		}
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MinInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(opts.MinInterval), 1)
	}

	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "siem-client/dev"
	}

	return &Client{
		httpClient: httpClient,
		creds:      creds,
		limiter:    limiter,
		userAgent:  userAgent,
		logger:     logger,
	}
}

// Fetch POSTs an empty JSON object to url and decodes the record array.
//
// A non-2xx status yields *APIError, a failure to reach the server
// *TransportError, and a body that is not a JSON array *DecodeError.
func (c *Client) Fetch(ctx context.Context, url string) (*Page, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}

	requestID := uuid.NewString()
	req.SetBasicAuth(c.creds.Key, c.creds.Secret)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(RequestIDHeader, requestID)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	c.logger.Debug("api response received",
		"url", url,
		"status", resp.StatusCode,
		"request_id", requestID,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			URL:        url,
			RequestID:  requestID,
			Body:       string(body),
		}
	}

	var records []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&records); err != nil {
		return nil, &DecodeError{URL: url, Err: fmt.Errorf("expected a JSON array of records: %w", err)}
	}

	return &Page{
		Records:    records,
		Link:       resp.Header.Get(LinkHeader),
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
	}, nil
}
