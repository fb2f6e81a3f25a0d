package store

import (
	"bytes"
	"encoding/binary"
	"errors"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Store provides a simple persistent KV store with TTL semantics.
// It is safe for concurrent use by multiple goroutines.
type Store struct {
	db         *bolt.DB
	bucket     []byte
	defaultTTL time.Duration
	now        func() time.Time
	mu         sync.RWMutex
}

type Options struct {
	// Bucket is the name of the Bolt bucket to use.
	Bucket string
	// DefaultTTL is used when Put is called with ttl <= 0.
	DefaultTTL time.Duration
	// Clock overrides time.Now.
	Clock func() time.Time
}

var (
	ErrNotFound = errors.New("store: not found")
	ErrExpired  = errors.New("store: expired")
)

// headerSize is expiresAt || storedAt, both unix nanoseconds big endian.
const headerSize = 16

// Open initializes or opens a Store at the given path.
func Open(path string, opts Options) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	bucket := []byte("summaries")
	if opts.Bucket != "" {
		bucket = []byte(opts.Bucket)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucket)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, bucket: bucket, defaultTTL: opts.DefaultTTL, now: now}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Put stores value with an absolute expiration computed as now+ttl.
// If ttl <= 0, DefaultTTL is used; if DefaultTTL <= 0, the item never expires.
func (s *Store) Put(key string, value []byte, ttl time.Duration) error {
	now := s.now()
	expiresAt := int64(0)
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	if ttl > 0 {
		expiresAt = now.Add(ttl).UnixNano()
	}
	buf := make([]byte, headerSize+len(value))
	binary.BigEndian.PutUint64(buf[:8], uint64(expiresAt))
	binary.BigEndian.PutUint64(buf[8:16], uint64(now.UnixNano()))
	copy(buf[headerSize:], value)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Put([]byte(key), buf)
	})
}

// Get returns the stored value if present and not expired.
func (s *Store) Get(key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []byte
	var expired bool
	var exists bool
	if err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if len(v) < headerSize {
			return nil
		}
		exists = true
		if s.expired(v, now) {
			expired = true
			return nil
		}
		out = append([]byte(nil), v[headerSize:]...)
		return nil
	}); err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrNotFound
	}
	if expired {
		return nil, ErrExpired
	}
	return out, nil
}

// Delete removes a key.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(s.bucket).Delete([]byte(key))
	})
}

// Scan returns live records whose key has prefix, in key order.
func (s *Store) Scan(prefix string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var out []Record
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(s.bucket).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			if len(v) < headerSize || s.expired(v, now) {
				continue
			}
			out = append(out, Record{
				Key:      string(k),
				Value:    append([]byte(nil), v[headerSize:]...),
				StoredAt: time.Unix(0, int64(binary.BigEndian.Uint64(v[8:16]))),
			})
		}
		return nil
	})
	return out, err
}

// Sweep deletes expired records and returns how many were removed.
func (s *Store) Sweep() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		var dead [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			if len(v) < headerSize || s.expired(v, now) {
				dead = append(dead, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range dead {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(dead)
		return nil
	})
	return removed, err
}

func (s *Store) expired(v []byte, now time.Time) bool {
	expiresAt := int64(binary.BigEndian.Uint64(v[:8]))
	return expiresAt > 0 && now.UnixNano() > expiresAt
}
