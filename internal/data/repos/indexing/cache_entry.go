package indexing

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type CacheEntryRepo interface {
	// Get returns nil, nil on a miss. Expiry is not checked here.
	Get(dbc dbctx.Context, namespace, key string) (*index.CacheEntry, error)
	Upsert(dbc dbctx.Context, entry *index.CacheEntry) error
	Touch(dbc dbctx.Context, namespace, key string, at time.Time) error
	Delete(dbc dbctx.Context, namespace, key string) error
	DeleteExpired(dbc dbctx.Context, namespace string, now time.Time) (int64, error)
}

type cacheEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCacheEntryRepo(db *gorm.DB, baseLog *logger.Logger) CacheEntryRepo {
	return &cacheEntryRepo{db: db, log: baseLog.With("repo", "CacheEntryRepo")}
}

func (r *cacheEntryRepo) Get(dbc dbctx.Context, namespace, key string) (*index.CacheEntry, error) {
	var out index.CacheEntry
	err := dbc.DB(r.db).Where("namespace = ? AND cache_key = ?", namespace, key).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *cacheEntryRepo) Upsert(dbc dbctx.Context, entry *index.CacheEntry) error {
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "namespace"}, {Name: "cache_key"}},
		UpdateAll: true,
	}).Create(entry).Error
}

func (r *cacheEntryRepo) Touch(dbc dbctx.Context, namespace, key string, at time.Time) error {
	return dbc.DB(r.db).
		Model(&index.CacheEntry{}).
		Where("namespace = ? AND cache_key = ?", namespace, key).
		Updates(map[string]interface{}{
			"hit_count":        gorm.Expr("hit_count + 1"),
			"last_accessed_at": at,
		}).Error
}

func (r *cacheEntryRepo) Delete(dbc dbctx.Context, namespace, key string) error {
	return dbc.DB(r.db).
		Where("namespace = ? AND cache_key = ?", namespace, key).
		Delete(&index.CacheEntry{}).Error
}

func (r *cacheEntryRepo) DeleteExpired(dbc dbctx.Context, namespace string, now time.Time) (int64, error) {
	res := dbc.DB(r.db).
		Where("namespace = ? AND expires_at <= ?", namespace, now).
		Delete(&index.CacheEntry{})
	return res.RowsAffected, res.Error
}
