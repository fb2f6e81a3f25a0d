package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leonardcser/summary-mcp/internal/coordinator"
	"github.com/leonardcser/summary-mcp/internal/web"
)

func call(t *testing.T, h func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) (string, bool) {
	t.Helper()
	var req mcp.CallToolRequest
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	require.NoError(t, err)
	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return text.Text, res.IsError
}

func newCoordinator(t *testing.T) *coordinator.Coordinator {
	t.Helper()
	store := coordinator.NewStore(coordinator.StoreConfig{
		ArtifactTTL:    time.Hour,
		RawMaterialTTL: time.Hour,
		MetadataTTL:    time.Hour,
		PageSize:       2,
	}, zerolog.Nop())
	c := coordinator.New(store, func(ctx context.Context, key, label string) (string, error) {
		if strings.Contains(key, "broken") {
			return "", errors.New("fetch failed")
		}
		return "summary of " + key, nil
	})
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func idOf(t *testing.T, text string) string {
	t.Helper()
	first, _, _ := strings.Cut(text, "\n")
	id, ok := strings.CutPrefix(first, "id: ")
	require.True(t, ok, text)
	return id
}

func TestSummarizeAndStatus(t *testing.T) {
	c := newCoordinator(t)
	submit := SummarizeHandler(c)
	status := SummaryStatusHandler(c)

	text, isErr := call(t, submit, map[string]any{"url": "https://example.com/a", "label": "A"})
	require.False(t, isErr)
	id := idOf(t, text)

	require.Eventually(t, func() bool {
		text, isErr := call(t, status, map[string]any{"id": id})
		return !isErr && strings.Contains(text, "status: completed")
	}, 2*time.Second, time.Millisecond)

	text, _ = call(t, status, map[string]any{"id": id})
	assert.True(t, strings.HasSuffix(text, "\n\nsummary of https://example.com/a"))

	text, isErr = call(t, submit, map[string]any{"url": "https://example.com/a"})
	require.False(t, isErr)
	assert.Contains(t, text, "status: completed", "cached artifacts answer immediately")
	assert.NotEqual(t, id, idOf(t, text))
}

func TestSummarizeFailure(t *testing.T) {
	c := newCoordinator(t)
	text, isErr := call(t, SummarizeHandler(c), map[string]any{"url": "https://example.com/broken"})
	require.False(t, isErr)
	id := idOf(t, text)

	require.Eventually(t, func() bool {
		text, _ := call(t, SummaryStatusHandler(c), map[string]any{"id": id})
		return strings.Contains(text, "status: failed")
	}, 2*time.Second, time.Millisecond)
	text, _ = call(t, SummaryStatusHandler(c), map[string]any{"id": id})
	assert.Contains(t, text, "error: fetch failed")
}

func TestSummarizeValidation(t *testing.T) {
	c := newCoordinator(t)
	_, isErr := call(t, SummarizeHandler(c), map[string]any{})
	assert.True(t, isErr)
	_, isErr = call(t, SummarizeHandler(c), map[string]any{"url": "   "})
	assert.True(t, isErr)

	text, isErr := call(t, SummaryStatusHandler(c), map[string]any{"id": "nope"})
	assert.True(t, isErr)
	assert.Contains(t, text, "not found")
}

func TestFormatHandleQueued(t *testing.T) {
	text := formatHandle(coordinator.RequestHandle{ID: "x", Status: coordinator.StatusQueued, QueuePosition: 3})
	assert.Contains(t, text, "queue position: 3")
	assert.Contains(t, text, "summary-status")
}

func TestCacheAdmin(t *testing.T) {
	c := newCoordinator(t)
	c.WarmArtifactCache("https://example.com/a", "A")
	c.WarmArtifactCache("https://example.com/b", "B")

	text, isErr := call(t, CacheStatsHandler(c), nil)
	require.False(t, isErr)
	var stats coordinator.Stats
	require.NoError(t, json.Unmarshal([]byte(text), &stats))
	assert.Equal(t, 2, stats.ArtifactCache.Count)

	var forgotten []string
	forget := func(key string) error {
		forgotten = append(forgotten, key)
		return nil
	}
	_, isErr = call(t, CacheInvalidateHandler(c, forget), map[string]any{"key": " https://example.com/a "})
	require.False(t, isErr)
	assert.Equal(t, []string{"https://example.com/a"}, forgotten)
	assert.Equal(t, 1, c.Stats().ArtifactCache.Count)

	text, isErr = call(t, CacheInvalidateHandler(c, forget), map[string]any{})
	require.False(t, isErr)
	assert.Equal(t, "Invalidated all caches.", text)
	assert.Equal(t, 0, c.Stats().ArtifactCache.Count)
	assert.Len(t, forgotten, 1)

	text, isErr = call(t, CacheInvalidateHandler(c, func(string) error { return errors.New("store down") }), map[string]any{"key": "k"})
	assert.True(t, isErr)
	assert.Contains(t, text, "store down")
}

type fakeSearcher struct {
	query   string
	page    int
	refresh bool
	items   []coordinator.ListItem
}

func (f *fakeSearcher) Search(ctx context.Context, query string, page int, refresh bool) ([]coordinator.ListItem, error) {
	f.query, f.page, f.refresh = query, page, refresh
	return f.items, nil
}

func TestWebSearch(t *testing.T) {
	fs := &fakeSearcher{items: []coordinator.ListItem{
		{Key: "https://example.com/1", Title: "One", Description: "First"},
		{Key: "https://example.com/2", Title: "Two"},
	}}
	text, isErr := call(t, WebSearchHandler(fs, 10), map[string]any{"query": "bees", "page": 1, "refresh": true})
	require.False(t, isErr)
	assert.Equal(t, "bees", fs.query)
	assert.Equal(t, 1, fs.page)
	assert.True(t, fs.refresh)
	assert.Equal(t, "11. One\n   https://example.com/1\n   First\n\n12. Two\n   https://example.com/2", text)

	fs.items = nil
	text, _ = call(t, WebSearchHandler(fs, 10), map[string]any{"query": "bees"})
	assert.Equal(t, "No results.", text)

	_, isErr = call(t, WebSearchHandler(fs, 10), map[string]any{"query": "bees", "page": -1})
	assert.True(t, isErr)
	_, isErr = call(t, WebSearchHandler(fs, 10), map[string]any{})
	assert.True(t, isErr)
}

type fakeMaterial struct {
	page *web.Page
	err  error
}

func (f fakeMaterial) Material(ctx context.Context, rawURL string) (*web.Page, bool, error) {
	return f.page, false, f.err
}

func TestWebFetch(t *testing.T) {
	src := fakeMaterial{page: &web.Page{URL: "https://example.com", Title: "Bees", Description: "About bees", Markdown: "Body text"}}
	text, isErr := call(t, WebFetchHandler(src), map[string]any{"url": "https://example.com"})
	require.False(t, isErr)
	assert.Equal(t, "# Bees\n\nAbout bees\n\nBody text", text)

	text, isErr = call(t, WebFetchHandler(fakeMaterial{err: errors.New("timeout")}), map[string]any{"url": "https://example.com"})
	assert.True(t, isErr)
	assert.Equal(t, "timeout", text)
}
