package store

import "time"

// Record is a stored value together with its write time.
type Record struct {
	Key      string    `json:"key"`
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// KV defines the minimal key-value store contract with TTL semantics.
// Implementations must be safe for concurrent use by multiple goroutines.
type KV interface {
	Get(key string) ([]byte, error)
	Put(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	// Scan returns every live record whose key starts with prefix, in key order.
	Scan(prefix string) ([]Record, error)
}
