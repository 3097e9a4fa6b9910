// Package file implements db.Store as a single JSON document on disk.
// It exists for deployments without a Redis: the whole store is read at
// startup and flushed wholesale on every mutation, which is adequate for a
// cache over a fixed slide corpus.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"sync"
	"time"

	"github.com/slidewise/slidewise/internal/db"
)

// Compile-time check: Store implements db.Store.
var _ db.Store = (*Store)(nil)

type entry struct {
	Value     []byte  `json:"value"`
	ExpiresAt float64 `json:"expires_at,omitempty"` // unix seconds, 0 = no expiry
}

// Store implements db.Store over a flat JSON file.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]entry
	now     func() time.Time
}

// NewStore creates a file store, loading existing entries if the file exists.
// A missing file is an empty store; a corrupt file is an error.
func NewStore(filePath string) (*Store, error) {
	s := &Store{
		path:    filePath,
		entries: make(map[string]entry),
		now:     time.Now,
	}

	data, err := os.ReadFile(filepath.Clean(filePath))
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, &db.Error{Op: db.OpLoad, Err: err}
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.entries); err != nil {
			return nil, &db.Error{Op: db.OpLoad, Err: fmt.Errorf("parse %s: %w", filePath, err)}
		}
	}
	return s, nil
}

// Ping always succeeds for a local file.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op; every mutation is already flushed.
func (s *Store) Close() {}

// WaitForReady returns immediately for a local file.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// Get retrieves a value by key. Expired entries are treated as absent and
// removed.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	if s.expired(e) {
		delete(s.entries, key)
		if err := s.flush(); err != nil {
			return nil, err
		}
		return nil, db.ErrKeyNotFound
	}
	return e.Value, nil
}

// Set stores a value at the given key without expiry.
func (s *Store) Set(_ context.Context, key string, value []byte) error {
	return s.put(key, value, 0)
}

// SetWithTTL stores a value with an expiration.
func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	return s.put(key, value, ttl)
}

// Del removes a key. Returns true when the key existed.
func (s *Store) Del(_ context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[key]; !ok {
		return false, nil
	}
	delete(s.entries, key)
	if err := s.flush(); err != nil {
		return false, err
	}
	return true, nil
}

// Scan returns all live keys matching the glob pattern.
func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var keys []string
	for k, e := range s.entries {
		if s.expired(e) {
			continue
		}
		ok, err := path.Match(pattern, k)
		if err != nil {
			return nil, &db.Error{Op: db.OpScan, Err: err}
		}
		if ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *Store) put(key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := entry{Value: value}
	if ttl > 0 {
		e.ExpiresAt = float64(s.now().Add(ttl).UnixNano()) / float64(time.Second)
	}
	s.entries[key] = e
	return s.flush()
}

func (s *Store) expired(e entry) bool {
	return e.ExpiresAt > 0 && float64(s.now().UnixNano())/float64(time.Second) >= e.ExpiresAt
}

// flush writes the whole store atomically via a temp file rename.
// Callers must hold s.mu.
func (s *Store) flush() error {
	data, err := json.Marshal(s.entries)
	if err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return &db.Error{Op: db.OpFlush, Err: err}
	}
	return nil
}
