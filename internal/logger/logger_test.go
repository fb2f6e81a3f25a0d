package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitWriterLevels(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, InitWriter(&buf, "warn"))
	t.Cleanup(func() { _ = Close() })

	Infof("hidden %d", 1)
	Warnf("queue stalled after %d requests", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &ev))
	assert.Equal(t, "warn", ev["level"])
	assert.Equal(t, "queue stalled after 3 requests", ev["message"])
	assert.Contains(t, ev, "time")
}

func TestInitWriterRejectsBadLevel(t *testing.T) {
	assert.Error(t, InitWriter(&bytes.Buffer{}, "loud"))
}

func TestInitFile(t *testing.T) {
	mu.Lock()
	isInitialized = false
	mu.Unlock()

	path := filepath.Join(t.TempDir(), "nested", "summary.log")
	require.NoError(t, Init(path, "debug"))
	Errorf("compute failed: %s", "boom")
	require.NoError(t, Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"level":"error"`)
	assert.Contains(t, string(data), "compute failed: boom")
}
