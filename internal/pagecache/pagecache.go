// Package pagecache stores paginated listings that are loaded one page at a
// time. Pages may only be appended contiguously; there is no TTL, lists are
// dropped through explicit invalidation.
package pagecache

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// TabCache is the cached state of a single list.
type TabCache[T any] struct {
	Items       []T
	LastUpdated time.Time
	PagesLoaded int
}

// Stats summarizes the cache contents.
type Stats struct {
	Lists int `json:"lists"`
	Items int `json:"items"`
}

// Cache is safe for concurrent use by multiple goroutines.
type Cache[T any] struct {
	mu       sync.RWMutex
	lists    map[string]*TabCache[T]
	pageSize int
	log      zerolog.Logger
	now      func() time.Time
}

// New returns a cache for pages of pageSize items. pageSize must be positive.
func New[T any](pageSize int, log zerolog.Logger) *Cache[T] {
	if pageSize <= 0 {
		panic("pagecache: page size must be positive")
	}
	return &Cache[T]{
		lists:    make(map[string]*TabCache[T]),
		pageSize: pageSize,
		log:      log,
		now:      time.Now,
	}
}

// PageSize returns the configured page size.
func (c *Cache[T]) PageSize() int { return c.pageSize }

// Get returns the items of page for listName if that page has been loaded.
// The final page may be shorter than the page size.
func (c *Cache[T]) Get(listName string, page int) ([]T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tab, ok := c.lists[listName]
	if !ok || page < 0 || page >= tab.PagesLoaded {
		return nil, false
	}
	start := page * c.pageSize
	if start > len(tab.Items) {
		return nil, false
	}
	end := min(start+c.pageSize, len(tab.Items))
	out := make([]T, end-start)
	copy(out, tab.Items[start:end])
	return out, true
}

// HasPage reports whether page for listName is cached.
func (c *Cache[T]) HasPage(listName string, page int) bool {
	_, ok := c.Get(listName, page)
	return ok
}

// Put stores items as page of listName and reports whether it was accepted.
//
// Page 0 always replaces the list. Any later page is accepted only when it
// directly follows the cached items; otherwise the write is dropped so a
// retried or out-of-order fetch cannot leave holes in the list.
func (c *Cache[T]) Put(listName string, page int, items []T) bool {
	if len(items) > c.pageSize {
		items = items[:c.pageSize]
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if page == 0 {
		c.lists[listName] = &TabCache[T]{
			Items:       append([]T(nil), items...),
			LastUpdated: c.now(),
			PagesLoaded: 1,
		}
		return true
	}

	tab, ok := c.lists[listName]
	if page < 0 || !ok || tab.PagesLoaded != page || len(tab.Items) != page*c.pageSize {
		cached := 0
		if ok {
			cached = len(tab.Items)
		}
		c.log.Warn().
			Str("list", listName).
			Int("page", page).
			Int("cached_items", cached).
			Msg("Rejected non-contiguous page")
		return false
	}
	tab.Items = append(tab.Items, items...)
	tab.PagesLoaded++
	tab.LastUpdated = c.now()
	return true
}

// Snapshot returns a copy of the cached state for listName.
func (c *Cache[T]) Snapshot(listName string) (TabCache[T], bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tab, ok := c.lists[listName]
	if !ok {
		return TabCache[T]{}, false
	}
	cp := *tab
	cp.Items = append([]T(nil), tab.Items...)
	return cp, true
}

// Invalidate drops listName.
func (c *Cache[T]) Invalidate(listName string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.lists, listName)
}

// InvalidateAll drops every list.
func (c *Cache[T]) InvalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lists = make(map[string]*TabCache[T])
}

// Stats returns the number of lists and the total number of cached items.
func (c *Cache[T]) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s := Stats{Lists: len(c.lists)}
	for _, tab := range c.lists {
		s.Items += len(tab.Items)
	}
	return s
}
