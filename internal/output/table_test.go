package output

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Render(t *testing.T) {
	var buf bytes.Buffer
	table := NewTable(&buf, []string{"KEY", "VALUE"})
	table.AddRow("store", "file:///tmp/siem-client.run")
	table.AddRow("cursor", "https://api.example/logs?after=X")

	require.NoError(t, table.Render())

	out := buf.String()
	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "file:///tmp/siem-client.run")
	assert.Contains(t, out, "https://api.example/logs?after=X")
}
