package querycache

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/slidewise/slidewise/internal/db"
)

// --- Mocks ---

type memStore struct {
	data   map[string][]byte
	getErr error
	setErr error
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string][]byte)}
}

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *memStore) Set(_ context.Context, key string, value []byte) error {
	if m.setErr != nil {
		return m.setErr
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Del(_ context.Context, key string) (bool, error) {
	_, ok := m.data[key]
	delete(m.data, key)
	return ok, nil
}

func (m *memStore) Scan(_ context.Context, pattern string) ([]string, error) {
	var keys []string
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func newTestCache(s store, ttl time.Duration) (*Cache, *time.Time) {
	c := New(s, "test:", ttl, nil, zap.NewNop())
	now := time.Unix(1_700_000_000, 0)
	c.now = func() time.Time { return now }
	return c, &now
}

// --- Tests ---

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"What is ITSM", "what is itsm"},
		{"  what is itsm  ", "what is itsm"},
		{"what\tis\n\nitsm", "what is itsm"},
		{"What   IS    itsm", "what is itsm"},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCache_SetGet(t *testing.T) {
	c, _ := newTestCache(newMemStore(), time.Hour)
	ctx := context.Background()

	want := json.RawMessage(`{"summary":"answer"}`)
	c.Set(ctx, "what is itsm", want)

	got, ok := c.Get(ctx, "what is itsm")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if string(got) != string(want) {
		t.Errorf("got %s, want %s", got, want)
	}
}

func TestCache_NormalizedKeysShareEntries(t *testing.T) {
	c, _ := newTestCache(newMemStore(), time.Hour)
	ctx := context.Background()

	c.Set(ctx, "What is ITSM", json.RawMessage(`1`))
	if _, ok := c.Get(ctx, "  what   is itsm "); !ok {
		t.Error("case and whitespace variants must share a cache entry")
	}
}

func TestCache_MissOnAbsent(t *testing.T) {
	c, _ := newTestCache(newMemStore(), time.Hour)

	if _, ok := c.Get(context.Background(), "never stored"); ok {
		t.Error("expected miss")
	}
}

func TestCache_ExpiredEntryIsAbsentAndRemoved(t *testing.T) {
	s := newMemStore()
	c, now := newTestCache(s, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "query", json.RawMessage(`1`))
	*now = now.Add(time.Hour + time.Second)

	if _, ok := c.Get(ctx, "query"); ok {
		t.Fatal("entry past its TTL must be absent")
	}
	if len(s.data) != 0 {
		t.Error("expired entry must be removed lazily on get")
	}
}

func TestCache_EntryJustUnderTTLStillHits(t *testing.T) {
	c, now := newTestCache(newMemStore(), time.Hour)
	ctx := context.Background()

	c.Set(ctx, "query", json.RawMessage(`1`))
	*now = now.Add(time.Hour - time.Second)

	if _, ok := c.Get(ctx, "query"); !ok {
		t.Error("entry under its TTL must hit")
	}
}

func TestCache_CorruptEntryIsMissAndRemoved(t *testing.T) {
	s := newMemStore()
	c, _ := newTestCache(s, time.Hour)
	ctx := context.Background()

	s.data[c.key("query")] = []byte("not json")
	if _, ok := c.Get(ctx, "query"); ok {
		t.Fatal("corrupt entry must be a miss")
	}
	if len(s.data) != 0 {
		t.Error("corrupt entry must be removed")
	}
}

func TestCache_Delete(t *testing.T) {
	c, _ := newTestCache(newMemStore(), time.Hour)
	ctx := context.Background()

	c.Set(ctx, "query", json.RawMessage(`1`))
	if !c.Delete(ctx, "Query") {
		t.Error("delete of an existing entry must report true")
	}
	if c.Delete(ctx, "query") {
		t.Error("second delete must report false")
	}
}

func TestCache_Clear(t *testing.T) {
	c, _ := newTestCache(newMemStore(), time.Hour)
	ctx := context.Background()

	c.Set(ctx, "q1", json.RawMessage(`1`))
	c.Set(ctx, "q2", json.RawMessage(`2`))
	if removed := c.Clear(ctx); removed != 2 {
		t.Errorf("expected 2 removed, got %d", removed)
	}
	if c.Stats(ctx) != 0 {
		t.Error("clear must empty the cache")
	}
}

func TestCache_CleanupRemovesOnlyExpired(t *testing.T) {
	s := newMemStore()
	c, now := newTestCache(s, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "old", json.RawMessage(`1`))
	*now = now.Add(2 * time.Hour)
	c.Set(ctx, "fresh", json.RawMessage(`2`))

	if removed := c.Cleanup(ctx); removed != 1 {
		t.Errorf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get(ctx, "fresh"); !ok {
		t.Error("fresh entry must survive cleanup")
	}
	// Idempotent: nothing left to remove.
	if removed := c.Cleanup(ctx); removed != 0 {
		t.Errorf("second cleanup must remove 0, got %d", removed)
	}
}

func TestCache_SetFailureIsSilent(t *testing.T) {
	s := newMemStore()
	s.setErr = errors.New("store down")
	c, _ := newTestCache(s, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "query", json.RawMessage(`1`)) // must not panic
	if _, ok := c.Get(ctx, "query"); ok {
		t.Error("failed set must leave no entry")
	}
}

func TestCache_GetFailureIsMiss(t *testing.T) {
	s := newMemStore()
	s.getErr = errors.New("store down")
	c, _ := newTestCache(s, time.Hour)

	if _, ok := c.Get(context.Background(), "query"); ok {
		t.Error("store failure must read as a miss")
	}
}

func TestCache_Stats(t *testing.T) {
	c, _ := newTestCache(newMemStore(), time.Hour)
	ctx := context.Background()

	c.Set(ctx, "q1", json.RawMessage(`1`))
	c.Set(ctx, "q2", json.RawMessage(`2`))
	if got := c.Stats(ctx); got != 2 {
		t.Errorf("expected 2 entries, got %d", got)
	}
}
