package coordinator

import (
	"slices"
	"sync"
	"time"
)

// RegistryStats counts records by state.
type RegistryStats struct {
	Total      int `json:"total"`
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Terminal   int `json:"terminal"`
}

// registry maps request ids to records and keeps the FIFO of pending work.
// Every method takes the lock and hands out copies, never the stored pointers.
type registry struct {
	mu      sync.Mutex
	records map[string]*RequestRecord
	queue   []*RequestRecord
}

func newRegistry() *registry {
	return &registry{records: make(map[string]*RequestRecord)}
}

// joinOrEnqueue either joins the active record for rec.ResourceKey or appends
// rec to the queue. Both happen under one lock so two callers can never both
// enqueue the same key. With force only a queued record is joined, and
// discard runs first under the same lock, so it cannot interleave with
// complete publishing an older result.
func (r *registry) joinOrEnqueue(rec *RequestRecord, force bool, discard func()) (RequestRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if force && discard != nil {
		discard()
	}
	if cur := r.activeLocked(rec.ResourceKey, force); cur != nil {
		r.recomputeLocked()
		return *cur, true
	}
	r.records[rec.ID] = rec
	r.queue = append(r.queue, rec)
	r.recomputeLocked()
	return *rec, false
}

// activeLocked prefers a queued record: when one exists next to a processing
// record for the same key, the processing one has been superseded by force.
func (r *registry) activeLocked(key string, queuedOnly bool) *RequestRecord {
	var processing *RequestRecord
	for _, rec := range r.records {
		if rec.ResourceKey != key {
			continue
		}
		switch rec.Status {
		case StatusQueued:
			return rec
		case StatusProcessing:
			processing = rec
		}
	}
	if queuedOnly {
		return nil
	}
	return processing
}

func (r *registry) get(id string) (RequestRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return RequestRecord{}, false
	}
	r.recomputeLocked()
	return *rec, true
}

// next pops the queue head and marks it processing. Records that already
// reached a terminal state are skipped.
func (r *registry) next() (RequestRecord, int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	skipped := 0
	for len(r.queue) > 0 {
		rec := r.queue[0]
		r.queue[0] = nil
		r.queue = r.queue[1:]
		if rec.Status.Terminal() {
			skipped++
			continue
		}
		rec.Status = StatusProcessing
		rec.QueuePosition = 0
		r.recomputeLocked()
		return *rec, skipped, true
	}
	r.queue = nil
	return RequestRecord{}, skipped, false
}

// complete marks id completed. publish runs first, under the lock, unless a
// newer queued record for the same key exists; that record was submitted
// with force after this one started, so its result must not be published.
// complete reports whether publish ran.
func (r *registry) complete(id, result string, at time.Time, publish func()) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status.Terminal() {
		return false
	}
	published := false
	if !r.supersededLocked(rec) {
		if publish != nil {
			publish()
		}
		published = true
	}
	r.finishLocked(rec, StatusCompleted, result, "", at)
	return published
}

func (r *registry) supersededLocked(rec *RequestRecord) bool {
	for _, other := range r.queue {
		if other != rec && other.ResourceKey == rec.ResourceKey && other.Status == StatusQueued {
			return true
		}
	}
	return false
}

func (r *registry) fail(id, msg string, at time.Time) {
	r.finish(id, StatusFailed, "", msg, at)
}

func (r *registry) finish(id string, status Status, result, msg string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok || rec.Status.Terminal() {
		return
	}
	r.finishLocked(rec, status, result, msg, at)
}

func (r *registry) finishLocked(rec *RequestRecord, status Status, result, msg string, at time.Time) {
	rec.Status = status
	rec.Result = result
	rec.Error = msg
	rec.QueuePosition = 0
	rec.CompletedAt = at
}

// recomputeLocked numbers queued records 1..N in FIFO order.
func (r *registry) recomputeLocked() {
	pos := 1
	for _, rec := range r.queue {
		if rec.Status == StatusQueued {
			rec.QueuePosition = pos
			pos++
		} else {
			rec.QueuePosition = 0
		}
	}
}

func (r *registry) pending() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// prune evicts terminal records, oldest CompletedAt first, until at most
// limit remain. Active records are never touched.
func (r *registry) prune(limit int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	var terminal []*RequestRecord
	for _, rec := range r.records {
		if rec.Status.Terminal() {
			terminal = append(terminal, rec)
		}
	}
	excess := len(terminal) - limit
	if excess <= 0 {
		return 0
	}
	slices.SortFunc(terminal, func(a, b *RequestRecord) int {
		return a.CompletedAt.Compare(b.CompletedAt)
	})
	for _, rec := range terminal[:excess] {
		delete(r.records, rec.ID)
	}
	return excess
}

func (r *registry) stats() RegistryStats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := RegistryStats{Total: len(r.records)}
	for _, rec := range r.records {
		switch rec.Status {
		case StatusQueued:
			s.Queued++
		case StatusProcessing:
			s.Processing++
		default:
			s.Terminal++
		}
	}
	return s
}
