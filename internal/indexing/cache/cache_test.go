package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yungbote/docindex/internal/data/repos"
	"github.com/yungbote/docindex/internal/data/repos/testutil"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newGormCache(t *testing.T, clock *fakeClock, ttl time.Duration) (*Cache[[]float32], repos.Set) {
	t.Helper()
	log := testutil.Logger(t)
	set := repos.New(testutil.DB(t), log)
	c := New[[]float32](log, NewGormStore(set.CacheEntries), Options{
		Namespace: NamespaceEmbeddings,
		TTL:       ttl,
		Now:       clock.Now,
	})
	return c, set
}

func TestCacheHitRefreshesAccess(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, set := newGormCache(t, clock, time.Hour)
	ctx := context.Background()
	key := HashKey("hello")

	if _, ok := c.Get(ctx, key); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.Set(ctx, key, []float32{0.1, 0.2})

	clock.t = clock.t.Add(10 * time.Minute)
	got, ok := c.Get(ctx, key)
	if !ok || len(got) != 2 || got[1] != 0.2 {
		t.Fatalf("Get: ok=%v got=%v", ok, got)
	}
	row, err := set.CacheEntries.Get(dbctx.Context{Ctx: ctx}, NamespaceEmbeddings, key)
	if err != nil || row == nil {
		t.Fatalf("row: %v", err)
	}
	if row.HitCount != 1 || !row.LastAccessedAt.Equal(clock.t) {
		t.Fatalf("hit bookkeeping: hits=%d last=%v", row.HitCount, row.LastAccessedAt)
	}
}

func TestCacheExpiredEntryIsRemovedOnRead(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, set := newGormCache(t, clock, time.Hour)
	ctx := context.Background()

	c.Set(ctx, "k", []float32{1})
	clock.t = clock.t.Add(time.Hour)
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("entry read at expiresAt must miss")
	}
	row, err := set.CacheEntries.Get(dbctx.Context{Ctx: ctx}, NamespaceEmbeddings, "k")
	if err != nil || row != nil {
		t.Fatalf("expired entry should be deleted, got row=%v err=%v", row, err)
	}
}

func TestWithCache(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, _ := newGormCache(t, clock, time.Hour)
	ctx := context.Background()

	calls := 0
	compute := func(context.Context) ([]float32, error) {
		calls++
		return []float32{3}, nil
	}
	v1, cached1, err := WithCache(ctx, c, "k", compute)
	if err != nil || cached1 {
		t.Fatalf("first call: cached=%v err=%v", cached1, err)
	}
	v2, cached2, err := WithCache(ctx, c, "k", compute)
	if err != nil || !cached2 {
		t.Fatalf("second call: cached=%v err=%v", cached2, err)
	}
	if calls != 1 || v1[0] != v2[0] {
		t.Fatalf("compute calls=%d v1=%v v2=%v", calls, v1, v2)
	}

	boom := errors.New("boom")
	if _, _, err := WithCache(ctx, c, "other", func(context.Context) ([]float32, error) { return nil, boom }); !errors.Is(err, boom) {
		t.Fatalf("compute error should propagate, got %v", err)
	}
	if _, ok := c.Get(ctx, "other"); ok {
		t.Fatalf("failed compute must not be cached")
	}
}

type brokenStore struct{ noopStore }

func (brokenStore) Get(context.Context, string, string) (*Entry, error) {
	return nil, errors.New("store down")
}

func (brokenStore) Set(context.Context, string, string, Entry) error {
	return errors.New("store down")
}

func TestCacheFailsOpen(t *testing.T) {
	c := New[string](testutil.Logger(t), brokenStore{}, Options{Namespace: NamespaceQueries})
	ctx := context.Background()
	c.Set(ctx, "k", "v")
	if _, ok := c.Get(ctx, "k"); ok {
		t.Fatalf("broken store must read as a miss")
	}
	v, cached, err := WithCache(ctx, c, "k", func(context.Context) (string, error) { return "fresh", nil })
	if err != nil || cached || v != "fresh" {
		t.Fatalf("WithCache over broken store: v=%q cached=%v err=%v", v, cached, err)
	}

	var nilCache *Cache[string]
	if _, ok := nilCache.Get(ctx, "k"); ok {
		t.Fatalf("nil cache must miss")
	}
	nilCache.Set(ctx, "k", "v")
}

func TestHashKey(t *testing.T) {
	if HashKey("a", "bc") == HashKey("ab", "c") {
		t.Fatalf("part boundaries must affect the key")
	}
	if len(HashKey("x")) != 64 {
		t.Fatalf("want sha256 hex")
	}
}

func TestSweeperRemovesExpired(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c, set := newGormCache(t, clock, time.Minute)
	ctx := context.Background()
	c.Set(ctx, "old", []float32{1})
	clock.t = clock.t.Add(2 * time.Minute)
	c.Set(ctx, "new", []float32{2})

	s := NewSweeper(testutil.Logger(t), NewGormStore(set.CacheEntries), time.Minute, NamespaceEmbeddings, NamespaceQueries)
	s.now = clock.Now
	if n := s.SweepOnce(ctx); n != 1 {
		t.Fatalf("swept: want=1 got=%d", n)
	}
	if _, ok := c.Get(ctx, "new"); !ok {
		t.Fatalf("live entry must survive the sweep")
	}
}
