package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"

	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type Options struct {
	Namespace string
	TTL       time.Duration
	// Now is overridable in tests.
	Now func() time.Time
}

// Cache is a typed, namespaced TTL cache. It fails open: store errors are
// logged and reported as misses, never returned.
type Cache[T any] struct {
	store Store
	log   *logger.Logger
	ns    string
	ttl   time.Duration
	now   func() time.Time
}

func New[T any](log *logger.Logger, store Store, opts Options) *Cache[T] {
	if store == nil {
		store = NewNoopStore()
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	return &Cache[T]{
		store: store,
		log:   log.With("service", "Cache", "namespace", opts.Namespace, "store", store.Name()),
		ns:    opts.Namespace,
		ttl:   opts.TTL,
		now:   opts.Now,
	}
}

func (c *Cache[T]) Namespace() string {
	if c == nil {
		return ""
	}
	return c.ns
}

func (c *Cache[T]) TTL() time.Duration {
	if c == nil {
		return 0
	}
	return c.ttl
}

// Get returns the cached value for key. Expired entries are removed on read.
func (c *Cache[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	if c == nil {
		return zero, false
	}
	now := c.now()
	e, err := c.store.Get(ctx, c.ns, key)
	if err != nil {
		c.fail("get", err)
		c.record("error")
		return zero, false
	}
	if e == nil {
		c.record("miss")
		return zero, false
	}
	if e.Expired(now) {
		if err := c.store.Delete(ctx, c.ns, key); err != nil {
			c.fail("delete", err)
		}
		c.record("expired")
		return zero, false
	}
	var out T
	if err := json.Unmarshal(e.Value, &out); err != nil {
		c.fail("decode", err)
		if err := c.store.Delete(ctx, c.ns, key); err != nil {
			c.fail("delete", err)
		}
		c.record("error")
		return zero, false
	}
	if err := c.store.Touch(ctx, c.ns, key, now); err != nil {
		c.fail("touch", err)
	}
	c.record("hit")
	return out, true
}

// Set stores value under key until now+TTL, replacing any previous entry.
func (c *Cache[T]) Set(ctx context.Context, key string, value T) {
	if c == nil {
		return
	}
	raw, err := json.Marshal(value)
	if err != nil {
		c.fail("encode", err)
		return
	}
	now := c.now()
	if err := c.store.Set(ctx, c.ns, key, Entry{
		Value:          raw,
		CreatedAt:      now,
		ExpiresAt:      now.Add(c.ttl),
		LastAccessedAt: now,
	}); err != nil {
		c.fail("set", err)
	}
}

// WithCache returns the cached value for key, or computes it and stores the
// result. Only compute errors are returned.
func WithCache[T any](ctx context.Context, c *Cache[T], key string, compute func(context.Context) (T, error)) (T, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	v, err := compute(ctx)
	if err != nil {
		var zero T
		return zero, false, err
	}
	c.Set(ctx, key, v)
	return v, false, nil
}

// HashKey joins parts with a unit separator and returns the SHA-256 hex digest.
func HashKey(parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return hex.EncodeToString(sum[:])
}

func (c *Cache[T]) fail(op string, err error) {
	c.log.Warn("cache operation failed; continuing without cache", "op", op, "error", err)
	observability.Current().IncCacheError(c.ns, op)
}

func (c *Cache[T]) record(result string) {
	observability.Current().ObserveCacheLookup(c.ns, result)
}
