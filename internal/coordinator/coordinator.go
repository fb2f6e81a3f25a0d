// Package coordinator deduplicates and serializes expensive per-resource
// computations.
//
// Callers submit a resource key and poll the returned request id. Results
// already in the artifact cache are answered immediately, concurrent
// submissions for the same key share one request, and everything else is
// queued for a single background worker that runs one compute call at a time.
package coordinator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/leonardcser/summary-mcp/internal/pagecache"
	"github.com/leonardcser/summary-mcp/internal/ttlcache"
)

// DefaultRetentionCap is the number of terminal records kept for polling.
const DefaultRetentionCap = 100

var (
	ErrClosed   = errors.New("coordinator: closed")
	ErrEmptyKey = errors.New("coordinator: empty resource key")
)

// ComputeFunc derives the artifact for a resource. It may be slow and may
// fail; it is never called concurrently with itself.
type ComputeFunc func(ctx context.Context, resourceKey, label string) (string, error)

// ResultSink receives every successfully computed artifact, typically to
// persist it.
type ResultSink func(resourceKey, artifact string)

// Stats is the administrative snapshot returned by Coordinator.Stats.
type Stats struct {
	ArtifactCache    ttlcache.Stats  `json:"artifactCache"`
	RawMaterialCache ttlcache.Stats  `json:"rawMaterialCache"`
	MetadataCache    ttlcache.Stats  `json:"metadataCache"`
	ListCache        pagecache.Stats `json:"listCache"`
	Requests         RegistryStats   `json:"requests"`
}

type Option func(*Coordinator)

func WithLogger(log zerolog.Logger) Option {
	return func(c *Coordinator) { c.log = log }
}

// WithRetentionCap bounds how many finished records are kept.
func WithRetentionCap(n int) Option {
	return func(c *Coordinator) {
		if n >= 0 {
			c.retention = n
		}
	}
}

// WithComputeTimeout bounds each compute call. Zero disables the bound.
func WithComputeTimeout(d time.Duration) Option {
	return func(c *Coordinator) { c.computeTimeout = d }
}

// WithSweepInterval makes the worker evict expired cache entries every d
// while idle. Zero disables sweeping; expired entries are then only dropped
// when read.
func WithSweepInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.sweepInterval = d }
}

func WithResultSink(sink ResultSink) Option {
	return func(c *Coordinator) { c.sink = sink }
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator owns the request registry and the worker goroutine.
// It is safe for concurrent use by multiple goroutines.
type Coordinator struct {
	store   *Store
	compute ComputeFunc
	reg     *registry

	log            zerolog.Logger
	retention      int
	computeTimeout time.Duration
	sweepInterval  time.Duration
	sink           ResultSink
	now            func() time.Time

	// wake has capacity one: a pending token means "the queue may be
	// non-empty", and the worker is its only reader.
	wake chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// New builds a coordinator and starts its worker. Call Close to stop it.
func New(store *Store, compute ComputeFunc, opts ...Option) *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		store:     store,
		compute:   compute,
		reg:       newRegistry(),
		log:       zerolog.Nop(),
		retention: DefaultRetentionCap,
		now:       time.Now,
		wake:      make(chan struct{}, 1),
		ctx:       ctx,
		cancel:    cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.wg.Add(1)
	go c.run()
	return c
}

// Store returns the caches backing c.
func (c *Coordinator) Store() *Store { return c.store }

// Close stops the worker after the in-flight compute call, if any, returns.
// Queued requests are abandoned. Close is safe to call multiple times.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	c.cancel()
	c.wg.Wait()
	return nil
}

// Submit requests the artifact for resourceKey.
//
// A cached artifact is returned as an already completed record that is not
// tracked. An active request for the same key is shared. Otherwise a new
// request is queued. With forceRegenerate the cached artifact and raw
// material are dropped first and neither shortcut applies, except that a
// request still waiting in the queue is reused since it has not read any
// cache yet.
func (c *Coordinator) Submit(resourceKey, label string, forceRegenerate bool) (RequestRecord, error) {
	resourceKey = strings.TrimSpace(resourceKey)
	if resourceKey == "" {
		return RequestRecord{}, ErrEmptyKey
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return RequestRecord{}, ErrClosed
	}

	log := c.log.With().Str("key", resourceKey).Logger()

	if !forceRegenerate {
		if v, ok := c.store.Artifacts.Get(resourceKey); ok {
			log.Debug().Msg("Artifact cache hit")
			now := c.now()
			return RequestRecord{
				ID:          uuid.NewString(),
				ResourceKey: resourceKey,
				Label:       label,
				Status:      StatusCompleted,
				Result:      v,
				CreatedAt:   now,
				CompletedAt: now,
			}, nil
		}
	}

	rec := &RequestRecord{
		ID:          uuid.NewString(),
		ResourceKey: resourceKey,
		Label:       label,
		Status:      StatusQueued,
		CreatedAt:   c.now(),
	}
	out, joined := c.reg.joinOrEnqueue(rec, forceRegenerate, func() {
		c.store.Artifacts.Invalidate(resourceKey)
		c.store.RawMaterial.Invalidate(resourceKey)
	})
	if joined {
		log.Debug().Str("id", out.ID).Str("status", string(out.Status)).Msg("Joined active request")
		return out, nil
	}
	log.Info().Str("id", out.ID).Int("position", out.QueuePosition).Msg("Queued request")
	c.signal()
	return out, nil
}

// Status returns the current state of the request with id.
func (c *Coordinator) Status(id string) (RequestRecord, bool) {
	return c.reg.get(id)
}

// WarmArtifactCache loads a previously computed artifact without running compute.
func (c *Coordinator) WarmArtifactCache(resourceKey, value string) {
	c.store.Artifacts.Set(resourceKey, value)
}

// WarmArtifactCacheAt is WarmArtifactCache keeping the artifact's original age.
func (c *Coordinator) WarmArtifactCacheAt(resourceKey, value string, createdAt time.Time) {
	c.store.Artifacts.SetWithCreatedAt(resourceKey, value, createdAt)
}

// WarmRawMaterialCache loads raw material for resourceKey.
func (c *Coordinator) WarmRawMaterialCache(resourceKey, value string) {
	c.store.RawMaterial.Set(resourceKey, value)
}

// Invalidate drops every cached value for resourceKey.
func (c *Coordinator) Invalidate(resourceKey string) {
	resourceKey = strings.TrimSpace(resourceKey)
	c.store.Artifacts.Invalidate(resourceKey)
	c.store.RawMaterial.Invalidate(resourceKey)
	c.store.Metadata.Invalidate(resourceKey)
	c.log.Info().Str("key", resourceKey).Msg("Invalidated caches")
}

// InvalidateAll empties every cache, listings included.
func (c *Coordinator) InvalidateAll() {
	c.store.Artifacts.InvalidateAll()
	c.store.RawMaterial.InvalidateAll()
	c.store.Metadata.InvalidateAll()
	c.store.Lists.InvalidateAll()
	c.log.Info().Msg("Invalidated all caches")
}

func (c *Coordinator) Stats() Stats {
	return Stats{
		ArtifactCache:    c.store.Artifacts.Stats(),
		RawMaterialCache: c.store.RawMaterial.Stats(),
		MetadataCache:    c.store.Metadata.Stats(),
		ListCache:        c.store.Lists.Stats(),
		Requests:         c.reg.stats(),
	}
}

func (c *Coordinator) signal() {
	select {
	case c.wake <- struct{}{}:
	default:
	}
}
