package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cirrusidentity/siem-client/internal/config"
	"github.com/cirrusidentity/siem-client/internal/output"
	"github.com/cirrusidentity/siem-client/internal/query"
	"github.com/cirrusidentity/siem-client/internal/transport"
)

type apiPage struct {
	status  int
	records int
	next    string
}

type testAPI struct {
	server *httptest.Server

	mu       sync.Mutex
	pages    []apiPage
	requests []*http.Request
}

func newTestAPI(t *testing.T, pages ...apiPage) *testAPI {
	t.Helper()
	api := &testAPI{pages: pages}
	api.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		defer api.mu.Unlock()

		api.requests = append(api.requests, r.Clone(r.Context()))
		if len(api.pages) == 0 {
			w.WriteHeader(http.StatusTeapot)
			return
		}
		page := api.pages[0]
		api.pages = api.pages[1:]

		if page.next != "" {
			w.Header().Set("Link", api.link(page.next))
		}
		if page.status != 0 {
			w.WriteHeader(page.status)
			return
		}
		records := make([]map[string]string, page.records)
		for i := range records {
			records[i] = map[string]string{"message": fmt.Sprintf("entry %d", i)}
		}
		_ = json.NewEncoder(w).Encode(records)
	}))
	t.Cleanup(api.server.Close)
	return api
}

func (a *testAPI) url() string {
	return a.server.URL + "/prod/logs"
}

func (a *testAPI) link(token string) string {
	return fmt.Sprintf(`%s?after=%s; rel="next"`, a.url(), token)
}

func (a *testAPI) Requests() []*http.Request {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]*http.Request(nil), a.requests...)
}

func countPages(t *testing.T, out string) int {
	t.Helper()
	dec := json.NewDecoder(bytes.NewBufferString(out))
	n := 0
	for dec.More() {
		var page []json.RawMessage
		require.NoError(t, dec.Decode(&page))
		n++
	}
	return n
}

func TestSearch_MissingCredentials(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t)

	_, _, err := execute(t, "--apiurl", api.url())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Empty(t, api.Requests(), "no request may be sent without credentials")

	var stderr bytes.Buffer
	assert.Equal(t, output.ExitConfigError, ReportError(&stderr, err))
	assert.Contains(t, stderr.String(), "missing API key or secret")
}

func TestSearch_MissingSecretOnly(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t)
	t.Setenv("API_KEY", "env-key")

	_, _, err := execute(t, "--apiurl", api.url())
	require.Error(t, err)
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
	assert.Empty(t, api.Requests())
}

func TestSearch_ExampleScenario(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t,
		apiPage{records: 2, next: "X"},
		apiPage{records: 1},
	)
	cursorFile := filepath.Join(t.TempDir(), "cursor.run")

	out, _, err := execute(t,
		"--apiurl", api.url(),
		"--apikey", "key", "--apisecret", "secret",
		"--limit", "2",
		"--cursor-file", cursorFile,
	)
	require.NoError(t, err)

	reqs := api.Requests()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/prod/logs?limit=2", reqs[0].URL.RequestURI())
	assert.Equal(t, "/prod/logs?after=X&limit=2", reqs[1].URL.RequestURI())

	user, pass, ok := reqs[0].BasicAuth()
	assert.True(t, ok)
	assert.Equal(t, "key", user)
	assert.Equal(t, "secret", pass)

	assert.Equal(t, 2, countPages(t, out))

	_, statErr := os.Stat(cursorFile)
	assert.True(t, errors.Is(statErr, os.ErrNotExist), "cursor file must not remain")
}

func TestSearch_CredentialsFromEnv(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})
	t.Setenv("API_KEY", "env-key")
	t.Setenv("API_SECRET", "env-secret")

	_, _, err := execute(t, "--apiurl", api.url(), "--cursor-file", filepath.Join(t.TempDir(), "c"))
	require.NoError(t, err)

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	user, pass, _ := reqs[0].BasicAuth()
	assert.Equal(t, "env-key", user)
	assert.Equal(t, "env-secret", pass)
}

func TestSearch_FlagCredentialsOverrideEnv(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})
	t.Setenv("API_KEY", "env-key")
	t.Setenv("API_SECRET", "env-secret")

	_, _, err := execute(t, "--apiurl", api.url(), "--apikey", "flag-key", "--cursor-file", filepath.Join(t.TempDir(), "c"))
	require.NoError(t, err)

	user, pass, _ := api.Requests()[0].BasicAuth()
	assert.Equal(t, "flag-key", user)
	assert.Equal(t, "env-secret", pass)
}

func TestSearch_LimitClamped(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})

	_, _, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"--limit", "5000",
		"--cursor-file", filepath.Join(t.TempDir(), "c"),
	)
	require.NoError(t, err)
	assert.Equal(t, "1000", api.Requests()[0].URL.Query().Get("limit"))
}

func TestSearch_QueryFilters(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})

	_, _, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"--since", "2024-01-01 00:00:00Z",
		"--orgurl", "acme.example",
		"--query", "service=idp,user=jdoe,bogus=1",
		"--cursor-file", filepath.Join(t.TempDir(), "c"),
	)
	require.NoError(t, err)

	q := api.Requests()[0].URL.Query()
	assert.Equal(t, "idp", q.Get("service"))
	assert.Equal(t, "jdoe", q.Get("user"))
	assert.Equal(t, "2024-01-01 00:00:00Z", q.Get("since"))
	assert.Equal(t, "acme.example", q.Get("orgUrl"))
	assert.False(t, q.Has("bogus"))
}

func TestSearch_MalformedQuery(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t)

	_, _, err := execute(t, "--apiurl", api.url(), "--apikey", "k", "--apisecret", "s", "--query", "service")
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrMalformedQuery)
	assert.Empty(t, api.Requests())
	assert.Equal(t, output.ExitUsageError, ReportError(new(bytes.Buffer), err))
}

func TestSearch_StrictQuery(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t)

	_, _, err := execute(t, "--apiurl", api.url(), "--apikey", "k", "--apisecret", "s", "--query", "bogus=1", "--strict-query")
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrUnknownFilter)
	assert.Empty(t, api.Requests())
}

func TestSearch_ExitAfterOne(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 2, next: "A"}, apiPage{records: 2})
	cursorFile := filepath.Join(t.TempDir(), "cursor.run")

	out, _, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"--limit", "2", "-x",
		"--cursor-file", cursorFile,
	)
	require.NoError(t, err)
	assert.Len(t, api.Requests(), 1)
	assert.Equal(t, 1, countPages(t, out))
}

func TestSearch_ContinuousResumes(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})
	cursorFile := filepath.Join(t.TempDir(), "cursor.run")
	require.NoError(t, os.WriteFile(cursorFile, []byte(api.link("SAVED")), 0o600))

	_, _, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"-c", "--limit", "10",
		"--cursor-file", cursorFile,
	)
	require.NoError(t, err)

	reqs := api.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "/prod/logs?after=SAVED&limit=10", reqs[0].URL.RequestURI())

	// no link in the response, so the saved cursor is untouched
	data, err := os.ReadFile(cursorFile)
	require.NoError(t, err)
	assert.Equal(t, api.link("SAVED"), string(data))
}

func TestSearch_ContinuousRedisStore(t *testing.T) {
	resetCommands(t)
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	api := newTestAPI(t, apiPage{records: 1, next: "A"})

	_, _, err = execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"-c", "--limit", "5",
		"--cursor-redis-url", "redis://"+mr.Addr(),
		"--cursor-key", "tenant-a",
	)
	require.NoError(t, err)

	saved, err := mr.Get("tenant-a")
	require.NoError(t, err)
	assert.Equal(t, api.link("A"), saved)
}

func TestSearch_APIError(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{status: http.StatusUnauthorized})

	_, _, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "wrong",
		"--cursor-file", filepath.Join(t.TempDir(), "c"),
	)
	require.Error(t, err)

	var apiErr *transport.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)

	var stderr bytes.Buffer
	assert.Equal(t, output.ExitAPIError, ReportError(&stderr, err))
	assert.Contains(t, stderr.String(), "401")
}

func TestSearch_VerboseTrace(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})

	out, stderr, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"-v",
		"--cursor-file", filepath.Join(t.TempDir(), "c"),
	)
	require.NoError(t, err)
	assert.Contains(t, stderr, "sending request")
	assert.NotContains(t, out, "sending request", "diagnostics must stay off stdout")
}

func TestSearch_QuietByDefault(t *testing.T) {
	resetCommands(t)
	api := newTestAPI(t, apiPage{records: 0})

	_, stderr, err := execute(t,
		"--apiurl", api.url(), "--apikey", "k", "--apisecret", "s",
		"--cursor-file", filepath.Join(t.TempDir(), "c"),
	)
	require.NoError(t, err)
	assert.Empty(t, stderr)
}
