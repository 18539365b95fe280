package cache

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "docindex:cache:"

type redisStore struct {
	rdb *goredis.Client
}

// NewRedisClient dials addr and verifies the connection.
func NewRedisClient(ctx context.Context, addr string) (*goredis.Client, error) {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing REDIS_ADDR")
	}
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// NewRedisStore keeps one hash per entry. Redis expires keys at ExpiresAt,
// so Sweep has nothing to do.
func NewRedisStore(rdb *goredis.Client) Store {
	return &redisStore{rdb: rdb}
}

func redisKey(namespace, key string) string {
	return redisKeyPrefix + namespace + ":" + key
}

func (s *redisStore) Name() string { return "redis" }

func (s *redisStore) Get(ctx context.Context, namespace, key string) (*Entry, error) {
	fields, err := s.rdb.HGetAll(ctx, redisKey(namespace, key)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	hits, _ := strconv.ParseInt(fields["hits"], 10, 64)
	return &Entry{
		Value:          []byte(fields["value"]),
		CreatedAt:      unixMilli(fields["created"]),
		ExpiresAt:      unixMilli(fields["expires"]),
		HitCount:       hits,
		LastAccessedAt: unixMilli(fields["accessed"]),
	}, nil
}

func (s *redisStore) Set(ctx context.Context, namespace, key string, e Entry) error {
	k := redisKey(namespace, key)
	_, err := s.rdb.TxPipelined(ctx, func(p goredis.Pipeliner) error {
		p.Del(ctx, k)
		p.HSet(ctx, k,
			"value", string(e.Value),
			"created", e.CreatedAt.UnixMilli(),
			"expires", e.ExpiresAt.UnixMilli(),
			"hits", e.HitCount,
			"accessed", e.LastAccessedAt.UnixMilli(),
		)
		p.PExpireAt(ctx, k, e.ExpiresAt)
		return nil
	})
	return err
}

// touchScript refreshes an entry only while it exists so that a touch racing
// expiry never recreates a key without a TTL.
var touchScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 then
  redis.call("HINCRBY", KEYS[1], "hits", 1)
  redis.call("HSET", KEYS[1], "accessed", ARGV[1])
  return 1
end
return 0
`)

func (s *redisStore) Touch(ctx context.Context, namespace, key string, at time.Time) error {
	return touchScript.Run(ctx, s.rdb, []string{redisKey(namespace, key)}, at.UnixMilli()).Err()
}

func (s *redisStore) Delete(ctx context.Context, namespace, key string) error {
	return s.rdb.Del(ctx, redisKey(namespace, key)).Err()
}

func (s *redisStore) Sweep(context.Context, string, time.Time) (int64, error) {
	return 0, nil
}

func unixMilli(s string) time.Time {
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
