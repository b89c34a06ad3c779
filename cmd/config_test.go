package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigCmd_JSONMasksSecret(t *testing.T) {
	resetCommands(t)

	out, _, err := execute(t, "config", "--json", "--apikey", "key-1", "--apisecret", "supersecret", "--limit", "50")
	require.NoError(t, err)

	var got struct {
		API struct {
			URL    string `json:"url"`
			Key    string `json:"key"`
			Secret string `json:"secret"`
		} `json:"api"`
		Query struct {
			Limit int `json:"limit"`
		} `json:"query"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "key-1", got.API.Key)
	assert.Equal(t, "*******cret", got.API.Secret)
	assert.NotContains(t, out, "supersecret")
	assert.Equal(t, 50, got.Query.Limit)
	assert.NotEmpty(t, got.API.URL)
}

func TestConfigCmd_Table(t *testing.T) {
	resetCommands(t)

	out, _, err := execute(t, "config")
	require.NoError(t, err)
	for _, key := range []string{"api.url", "query.limit", "cursor.location", "http.timeout"} {
		assert.Contains(t, out, key)
	}
}

func TestConfigCmd_PathWithoutFile(t *testing.T) {
	resetCommands(t)

	out, stderr, err := execute(t, "config", "--path")
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, stderr, "No config file found")
}

func TestConfigCmd_ReadsConfigFile(t *testing.T) {
	resetCommands(t)
	path := filepath.Join(t.TempDir(), "siem.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  org_url: acme.example\nquery:\n  limit: 25\n"), 0o600))

	out, _, err := execute(t, "config", "--json", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, `"org_url": "acme.example"`)
	assert.Contains(t, out, `"limit": 25`)

	resetCommands(t)
	out, _, err = execute(t, "config", "--path", "--config", path)
	require.NoError(t, err)
	assert.Equal(t, path, strings.TrimSpace(out))
}

func TestConfigCmd_ShowsQueryFlags(t *testing.T) {
	resetCommands(t)

	out, _, err := execute(t, "config", "--json",
		"--since", "2024-01-01 00:00:00Z",
		"--orgurl", "acme.example",
		"--query", "service=idp",
		"--strict-query",
		"--timeout", "5s",
	)
	require.NoError(t, err)

	var got struct {
		API struct {
			OrgURL string `json:"org_url"`
		} `json:"api"`
		Query struct {
			Since  string `json:"since"`
			Filter string `json:"filter"`
			Strict bool   `json:"strict"`
		} `json:"query"`
		HTTP struct {
			Timeout int64 `json:"timeout"`
		} `json:"http"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "acme.example", got.API.OrgURL)
	assert.Equal(t, "2024-01-01 00:00:00Z", got.Query.Since)
	assert.Equal(t, "service=idp", got.Query.Filter)
	assert.True(t, got.Query.Strict)
	assert.Equal(t, int64(5*time.Second), got.HTTP.Timeout)
}
