package store

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const resultPrefix = "summary|"

// Results persists finished artifacts so a restarted server can answer
// from cache without recomputing.
type Results struct {
	kv  KV
	ttl time.Duration
	log zerolog.Logger
}

func NewResults(kv KV, ttl time.Duration, log zerolog.Logger) *Results {
	return &Results{kv: kv, ttl: ttl, log: log}
}

// Save stores artifact for resourceKey. Failures are logged, not returned,
// since persistence is best effort.
func (r *Results) Save(resourceKey, artifact string) {
	if err := r.kv.Put(resultPrefix+resourceKey, []byte(artifact), r.ttl); err != nil {
		r.log.Warn().Err(err).Str("key", resourceKey).Msg("Failed to persist result")
	}
}

// Forget removes the persisted artifact for resourceKey.
func (r *Results) Forget(resourceKey string) error {
	return r.kv.Delete(resultPrefix + resourceKey)
}

// Load calls fn for every persisted artifact and returns how many there were.
func (r *Results) Load(fn func(resourceKey, artifact string, storedAt time.Time)) (int, error) {
	recs, err := r.kv.Scan(resultPrefix)
	if err != nil {
		return 0, err
	}
	for _, rec := range recs {
		fn(strings.TrimPrefix(rec.Key, resultPrefix), string(rec.Value), rec.StoredAt)
	}
	return len(recs), nil
}
