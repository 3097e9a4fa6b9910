// Package querycache stores final query results with a time-to-live, keyed
// by normalized query text, on top of the key-value store abstraction. It is
// the sole writer to its keyspace; store failures are logged and the call
// proceeds uncached.
package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/db"
)

const keyPrefix = "qcache:"

// DefaultTTL applies when no TTL is configured.
const DefaultTTL = 24 * time.Hour

// store is the consumer interface for the cache (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Del(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// entry is the persisted shape: an opaque result plus its creation instant
// as float seconds since the epoch.
type entry struct {
	Result    json.RawMessage `json:"result"`
	Timestamp float64         `json:"timestamp"`
}

// Cache is the query result cache.
type Cache struct {
	mu         sync.Mutex
	store      store
	prefix     string
	ttl        time.Duration
	now        func() time.Time
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a query result cache. keyPrefixRoot is the deployment-wide key
// prefix (e.g. "slidewise:"); cacheTotal is a counter vec with label
// "result" ("hit"/"miss"/"expired"), may be nil.
func New(
	s store,
	keyPrefixRoot string,
	ttl time.Duration,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		store:      s,
		prefix:     keyPrefixRoot + keyPrefix,
		ttl:        ttl,
		now:        time.Now,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Normalize canonicalizes a query for caching: lowercase, trim, and collapse
// internal whitespace runs to single spaces. Two queries differing only in
// case or whitespace share a cache entry.
var whitespaceRe = regexp.MustCompile(`\s+`)

func Normalize(query string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(strings.ToLower(query)), " ")
}

// Get returns the cached result for a query, or (nil, false). An entry past
// its TTL is treated as absent and removed.
func (c *Cache) Get(ctx context.Context, query string) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := c.key(query)
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Query cache read failed", zap.String("key", key), zap.Error(err))
		}
		c.inc("miss")
		return nil, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Corrupt query cache entry", zap.String("key", key), zap.Error(err))
		c.deleteKey(ctx, key)
		c.inc("miss")
		return nil, false
	}

	if c.expired(e) {
		c.deleteKey(ctx, key)
		c.inc("expired")
		return nil, false
	}

	c.inc("hit")
	return e.Result, true
}

// Set stores a result for a query. Entries are replaced wholesale, never
// mutated. A store failure is logged, not returned: caching is best effort.
func (c *Cache) Set(ctx context.Context, query string, result json.RawMessage) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{
		Result:    result,
		Timestamp: float64(c.now().UnixNano()) / float64(time.Second),
	}
	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("Failed to encode cache entry", zap.Error(err))
		return
	}
	if err := c.store.Set(ctx, c.key(query), data); err != nil {
		c.logger.Warn("Query cache write failed", zap.String("query", query), zap.Error(err))
	}
}

// Delete removes a single query's entry. Returns true when it existed.
func (c *Cache) Delete(ctx context.Context, query string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deleteKey(ctx, c.key(query))
}

// Clear removes every cache entry.
func (c *Cache) Clear(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		c.logger.Warn("Query cache scan failed", zap.Error(err))
		return 0
	}
	removed := 0
	for _, k := range keys {
		if c.deleteKey(ctx, k) {
			removed++
		}
	}
	return removed
}

// Cleanup proactively removes all expired entries and returns the count
// removed. Idempotent: a second sweep right after removes nothing.
func (c *Cache) Cleanup(ctx context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		c.logger.Warn("Query cache scan failed", zap.Error(err))
		return 0
	}

	removed := 0
	for _, k := range keys {
		data, err := c.store.Get(ctx, k)
		if err != nil {
			continue
		}
		var e entry
		if json.Unmarshal(data, &e) != nil || c.expired(e) {
			if c.deleteKey(ctx, k) {
				removed++
			}
		}
	}
	if removed > 0 {
		c.logger.Info("Query cache cleanup", zap.Int("removed", removed))
	}
	return removed
}

// Stats returns the number of live entries.
func (c *Cache) Stats(ctx context.Context) (entries int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys, err := c.store.Scan(ctx, c.prefix+"*")
	if err != nil {
		c.logger.Warn("Query cache scan failed", zap.Error(err))
		return 0
	}
	return len(keys)
}

// TTL returns the configured time-to-live.
func (c *Cache) TTL() time.Duration { return c.ttl }

func (c *Cache) key(query string) string {
	return c.prefix + Normalize(query)
}

func (c *Cache) expired(e entry) bool {
	created := time.Unix(0, int64(e.Timestamp*float64(time.Second)))
	return c.now().Sub(created) >= c.ttl
}

func (c *Cache) deleteKey(ctx context.Context, key string) bool {
	existed, err := c.store.Del(ctx, key)
	if err != nil {
		c.logger.Warn("Query cache delete failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return existed
}

func (c *Cache) inc(result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(result).Inc()
	}
}
