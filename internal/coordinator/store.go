package coordinator

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/leonardcser/summary-mcp/internal/pagecache"
	"github.com/leonardcser/summary-mcp/internal/ttlcache"
)

// Metadata holds auxiliary facts about a resource, such as its title.
type Metadata map[string]string

// ListItem is one entry of a paginated listing.
type ListItem struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}

// StoreConfig sizes the caches of a Store.
type StoreConfig struct {
	ArtifactTTL    time.Duration
	RawMaterialTTL time.Duration
	MetadataTTL    time.Duration
	PageSize       int
	// Clock overrides time.Now for every TTL cache.
	Clock func() time.Time
}

// Store groups the caches shared by the coordinator and its collaborators.
// It is created once at startup and passed around explicitly.
type Store struct {
	Artifacts   *ttlcache.Cache[string, string]
	RawMaterial *ttlcache.Cache[string, string]
	Metadata    *ttlcache.Cache[string, Metadata]
	Lists       *pagecache.Cache[ListItem]
}

// NewStore builds the caches described by cfg.
func NewStore(cfg StoreConfig, log zerolog.Logger) *Store {
	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}
	return &Store{
		Artifacts:   ttlcache.New(cfg.ArtifactTTL, ttlcache.WithClock[string, string](cfg.Clock)),
		RawMaterial: ttlcache.New(cfg.RawMaterialTTL, ttlcache.WithClock[string, string](cfg.Clock)),
		Metadata:    ttlcache.New(cfg.MetadataTTL, ttlcache.WithClock[string, Metadata](cfg.Clock)),
		Lists:       pagecache.New[ListItem](cfg.PageSize, log.With().Str("cache", "lists").Logger()),
	}
}
