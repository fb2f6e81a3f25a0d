package store

import (
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func openTestStore(t *testing.T) (*Store, *clock) {
	t.Helper()
	clk := &clock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	s, err := Open(filepath.Join(t.TempDir(), "store.bbolt"), Options{Bucket: "test", DefaultTTL: time.Hour, Clock: clk.Now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s, clk
}

func TestStorePutGet(t *testing.T) {
	s, _ := openTestStore(t)

	_, err := s.Get("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.Put("k", []byte("v"), 0))
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, []byte("v"), v)

	require.NoError(t, s.Delete("k"))
	_, err = s.Get("k")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreExpiry(t *testing.T) {
	s, clk := openTestStore(t)
	require.NoError(t, s.Put("short", []byte("1"), time.Minute))
	require.NoError(t, s.Put("default", []byte("2"), 0))

	clk.Advance(2 * time.Minute)
	_, err := s.Get("short")
	assert.ErrorIs(t, err, ErrExpired)
	_, err = s.Get("default")
	assert.NoError(t, err)

	n, err := s.Sweep()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = s.Get("short")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreScan(t *testing.T) {
	s, clk := openTestStore(t)
	require.NoError(t, s.Put("summary|b", []byte("B"), 0))
	clk.Advance(time.Second)
	require.NoError(t, s.Put("summary|a", []byte("A"), 0))
	require.NoError(t, s.Put("summary|gone", []byte("x"), time.Millisecond))
	require.NoError(t, s.Put("other|c", []byte("C"), 0))
	clk.Advance(time.Second)

	recs, err := s.Scan("summary|")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "summary|a", recs[0].Key)
	assert.Equal(t, []byte("A"), recs[0].Value)
	assert.Equal(t, "summary|b", recs[1].Key)
	assert.True(t, recs[1].StoredAt.Before(recs[0].StoredAt))
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.bbolt")
	s, err := Open(path, Options{})
	require.NoError(t, err)
	require.NoError(t, s.Put("k", []byte("v"), time.Hour))
	require.NoError(t, s.Close())

	s, err = Open(path, Options{})
	require.NoError(t, err)
	defer s.Close()
	v, err := s.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", string(v))
}

func startServer(t *testing.T, kv KV) *Client {
	t.Helper()
	dir, err := os.MkdirTemp("", "sock")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "s.sock")

	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- Serve(l, kv, zerolog.Nop()) }()
	t.Cleanup(func() {
		_ = l.Close()
		<-done
	})

	c, err := Dial(sock, time.Second)
	require.NoError(t, err)
	return c
}

func TestClientServerRoundTrip(t *testing.T) {
	s, clk := openTestStore(t)
	c := startServer(t, s)

	_, err := c.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, c.Put("summary|x", []byte("hello"), 2*time.Second))
	v, err := c.Get("summary|x")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(v))

	recs, err := c.Scan("summary|")
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "hello", string(recs[0].Value))

	clk.Advance(3 * time.Second)
	_, err = c.Get("summary|x")
	assert.ErrorIs(t, err, ErrExpired)

	require.NoError(t, c.Delete("summary|x"))
	_, err = c.Get("summary|x")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestClientTimesOutOnSilentDaemon(t *testing.T) {
	dir, err := os.MkdirTemp("", "sock")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })
	sock := filepath.Join(dir, "silent.sock")

	l, err := net.Listen("unix", sock)
	require.NoError(t, err)
	var held []net.Conn
	var mu sync.Mutex
	go func() {
		for {
			conn, err := l.Accept()
			if err != nil {
				return
			}
			mu.Lock()
			held = append(held, conn)
			mu.Unlock()
		}
	}()
	t.Cleanup(func() {
		_ = l.Close()
		mu.Lock()
		defer mu.Unlock()
		for _, conn := range held {
			_ = conn.Close()
		}
	})

	c := NewClient(sock)
	start := time.Now()
	err = c.Put("summary|x", []byte("v"), time.Hour)
	require.Error(t, err)
	var ne net.Error
	require.ErrorAs(t, err, &ne)
	assert.True(t, ne.Timeout())
	assert.Less(t, time.Since(start), 2*time.Second)

	// Save swallows the error and returns.
	done := make(chan struct{})
	go func() {
		NewResults(c, time.Hour, zerolog.Nop()).Save("x", "v")
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Save blocked on a silent daemon")
	}
}

func TestUnknownOp(t *testing.T) {
	resp := handle(nil, Request{Op: "explode"})
	assert.False(t, resp.OK)
	assert.Equal(t, "unknown op", resp.Error)
}

func TestDialFailsWithoutDaemon(t *testing.T) {
	_, err := Dial(filepath.Join(t.TempDir(), "none.sock"), 50*time.Millisecond)
	assert.Error(t, err)
}

func TestResultsSaveAndLoad(t *testing.T) {
	s, _ := openTestStore(t)
	r := NewResults(s, time.Hour, zerolog.Nop())

	r.Save("https://example.com/a", "summary A")
	r.Save("https://example.com/b", "summary B")
	require.NoError(t, s.Put("unrelated", []byte("x"), 0))

	got := map[string]string{}
	n, err := r.Load(func(key, artifact string, storedAt time.Time) {
		got[key] = artifact
		assert.False(t, storedAt.IsZero())
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, map[string]string{
		"https://example.com/a": "summary A",
		"https://example.com/b": "summary B",
	}, got)

	require.NoError(t, r.Forget("https://example.com/a"))
	n, err = r.Load(func(string, string, time.Time) {})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
