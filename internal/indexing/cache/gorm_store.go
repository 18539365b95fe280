package cache

import (
	"context"
	"time"

	"github.com/yungbote/docindex/internal/data/repos"
	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
)

type gormStore struct {
	repo repos.CacheEntryRepo
}

// NewGormStore keeps entries in the cache_entries table.
func NewGormStore(repo repos.CacheEntryRepo) Store {
	return &gormStore{repo: repo}
}

func (s *gormStore) Name() string { return "db" }

func (s *gormStore) Get(ctx context.Context, namespace, key string) (*Entry, error) {
	row, err := s.repo.Get(dbctx.Context{Ctx: ctx}, namespace, key)
	if err != nil || row == nil {
		return nil, err
	}
	return &Entry{
		Value:          []byte(row.Value),
		CreatedAt:      row.CreatedAt,
		ExpiresAt:      row.ExpiresAt,
		HitCount:       row.HitCount,
		LastAccessedAt: row.LastAccessedAt,
	}, nil
}

func (s *gormStore) Set(ctx context.Context, namespace, key string, e Entry) error {
	return s.repo.Upsert(dbctx.Context{Ctx: ctx}, &index.CacheEntry{
		Namespace:      namespace,
		Key:            key,
		Value:          e.Value,
		CreatedAt:      e.CreatedAt,
		ExpiresAt:      e.ExpiresAt,
		HitCount:       e.HitCount,
		LastAccessedAt: e.LastAccessedAt,
	})
}

func (s *gormStore) Touch(ctx context.Context, namespace, key string, at time.Time) error {
	return s.repo.Touch(dbctx.Context{Ctx: ctx}, namespace, key, at)
}

func (s *gormStore) Delete(ctx context.Context, namespace, key string) error {
	return s.repo.Delete(dbctx.Context{Ctx: ctx}, namespace, key)
}

func (s *gormStore) Sweep(ctx context.Context, namespace string, now time.Time) (int64, error) {
	return s.repo.DeleteExpired(dbctx.Context{Ctx: ctx}, namespace, now)
}
