package indexing

import (
	"gorm.io/gorm"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type IndexEntryRepo interface {
	// ReplaceForDoc deletes every entry of docID and then inserts entries, in
	// one transaction. Readers never observe a mix of generations.
	ReplaceForDoc(dbc dbctx.Context, docID string, entries []*index.IndexEntry) error
	DeleteByDocID(dbc dbctx.Context, docID string) (int64, error)
	GetByDocID(dbc dbctx.Context, docID string) ([]*index.IndexEntry, error)
	// ListForSearch returns entries in a stable retrieval order (doc_id, chunk_index).
	// An empty category means all categories.
	ListForSearch(dbc dbctx.Context, category string) ([]*index.IndexEntry, error)
	Count(dbc dbctx.Context, category string) (int64, error)
}

type indexEntryRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewIndexEntryRepo(db *gorm.DB, baseLog *logger.Logger) IndexEntryRepo {
	return &indexEntryRepo{db: db, log: baseLog.With("repo", "IndexEntryRepo")}
}

func (r *indexEntryRepo) ReplaceForDoc(dbc dbctx.Context, docID string, entries []*index.IndexEntry) error {
	// Keep batches small because Content and Embedding are large.
	const batchSize = 100

	return dbc.DB(r.db).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("doc_id = ?", docID).Delete(&index.IndexEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, batchSize).Error
	})
}

func (r *indexEntryRepo) DeleteByDocID(dbc dbctx.Context, docID string) (int64, error) {
	res := dbc.DB(r.db).Where("doc_id = ?", docID).Delete(&index.IndexEntry{})
	return res.RowsAffected, res.Error
}

func (r *indexEntryRepo) GetByDocID(dbc dbctx.Context, docID string) ([]*index.IndexEntry, error) {
	var out []*index.IndexEntry
	if err := dbc.DB(r.db).
		Where("doc_id = ?", docID).
		Order("chunk_index ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *indexEntryRepo) ListForSearch(dbc dbctx.Context, category string) ([]*index.IndexEntry, error) {
	q := dbc.DB(r.db).Model(&index.IndexEntry{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var out []*index.IndexEntry
	if err := q.Order("doc_id ASC, chunk_index ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *indexEntryRepo) Count(dbc dbctx.Context, category string) (int64, error) {
	q := dbc.DB(r.db).Model(&index.IndexEntry{})
	if category != "" {
		q = q.Where("category = ?", category)
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
