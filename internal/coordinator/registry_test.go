package coordinator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queued(id, key string) *RequestRecord {
	return &RequestRecord{ID: id, ResourceKey: key, Status: StatusQueued}
}

func TestRegistryJoinOrEnqueue(t *testing.T) {
	r := newRegistry()

	a, joined := r.joinOrEnqueue(queued("1", "R"), false, nil)
	require.False(t, joined)
	assert.Equal(t, 1, a.QueuePosition)

	b, joined := r.joinOrEnqueue(queued("2", "R"), false, nil)
	assert.True(t, joined)
	assert.Equal(t, "1", b.ID)

	c, joined := r.joinOrEnqueue(queued("3", "S"), false, nil)
	require.False(t, joined)
	assert.Equal(t, 2, c.QueuePosition)
	assert.Equal(t, 2, r.pending())
}

func TestRegistryNextSkipsFinished(t *testing.T) {
	r := newRegistry()
	r.joinOrEnqueue(queued("1", "a"), false, nil)
	r.joinOrEnqueue(queued("2", "b"), false, nil)
	r.joinOrEnqueue(queued("3", "c"), false, nil)

	// A record that finished while still queued is dropped by next.
	r.complete("1", "done", time.Now(), nil)

	rec, skipped, ok := r.next()
	require.True(t, ok)
	assert.Equal(t, 1, skipped)
	assert.Equal(t, "2", rec.ID)
	assert.Equal(t, StatusProcessing, rec.Status)

	third, _ := r.get("3")
	assert.Equal(t, 1, third.QueuePosition)

	processing, _ := r.get("2")
	assert.Equal(t, 0, processing.QueuePosition)

	_, _, ok = r.next()
	require.True(t, ok)
	_, _, ok = r.next()
	assert.False(t, ok)
}

func TestRegistryFinishIsTerminal(t *testing.T) {
	r := newRegistry()
	r.joinOrEnqueue(queued("1", "a"), false, nil)
	r.next()

	at := time.Now()
	r.fail("1", "boom", at)
	r.complete("1", "late", at.Add(time.Second), nil)

	rec, ok := r.get("1")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, rec.Status)
	assert.Equal(t, "boom", rec.Error)
	assert.Empty(t, rec.Result)
	assert.Equal(t, at, rec.CompletedAt)
}

func TestRegistryPruneOldestFirst(t *testing.T) {
	r := newRegistry()
	base := time.Now()
	for i, id := range []string{"a", "b", "c", "d"} {
		r.joinOrEnqueue(queued(id, id), false, nil)
		r.next()
		// Completion order differs from insertion order.
		r.complete(id, "", base.Add(time.Duration(4-i)*time.Second), nil)
	}
	r.joinOrEnqueue(queued("e", "e"), false, nil)

	assert.Equal(t, 2, r.prune(2))
	for _, gone := range []string{"d", "c"} {
		_, ok := r.get(gone)
		assert.False(t, ok, gone)
	}
	for _, kept := range []string{"a", "b", "e"} {
		_, ok := r.get(kept)
		assert.True(t, ok, kept)
	}
	assert.Equal(t, RegistryStats{Total: 3, Queued: 1, Terminal: 2}, r.stats())
}

func TestRegistryForcedRecordSupersedesProcessing(t *testing.T) {
	r := newRegistry()
	r.joinOrEnqueue(queued("old", "R"), false, nil)
	r.next()

	discarded := 0
	forced, joined := r.joinOrEnqueue(queued("new", "R"), true, func() { discarded++ })
	require.False(t, joined, "a processing record is not joined by force")
	assert.Equal(t, 1, discarded)

	plain, joined := r.joinOrEnqueue(queued("plain", "R"), false, func() { discarded++ })
	assert.True(t, joined)
	assert.Equal(t, forced.ID, plain.ID, "the queued record wins over the superseded one")
	assert.Equal(t, 1, discarded, "discard only runs with force")

	published := r.complete("old", "stale", time.Now(), func() { t.Fatal("superseded result published") })
	assert.False(t, published)
	old, _ := r.get("old")
	assert.Equal(t, StatusCompleted, old.Status)
	assert.Equal(t, "stale", old.Result)

	r.next()
	ran := false
	assert.True(t, r.complete("new", "fresh", time.Now(), func() { ran = true }))
	assert.True(t, ran)
}
