package cache

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/yungbote/docindex/internal/data/repos/testutil"
)

func TestRedisStoreRoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()
	rdb, err := NewRedisClient(ctx, addr)
	if err != nil {
		t.Fatalf("redis: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	c := New[[]float32](testutil.Logger(t), NewRedisStore(rdb), Options{Namespace: "test", TTL: time.Minute})
	key := HashKey(t.Name(), time.Now().String())
	t.Cleanup(func() { _ = rdb.Del(ctx, redisKey("test", key)).Err() })

	c.Set(ctx, key, []float32{1, 2, 3})
	got, ok := c.Get(ctx, key)
	if !ok || len(got) != 3 {
		t.Fatalf("Get: ok=%v got=%v", ok, got)
	}
	ttl, err := rdb.PTTL(ctx, redisKey("test", key)).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("redis ttl: %v err=%v", ttl, err)
	}
	hits, err := rdb.HGet(ctx, redisKey("test", key), "hits").Int64()
	if err != nil || hits != 1 {
		t.Fatalf("hits: want=1 got=%d err=%v", hits, err)
	}
}
