package indexing

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type DocumentMetadataRepo interface {
	// Get returns nil, nil when no record exists for docID.
	Get(dbc dbctx.Context, docID string) (*index.DocumentMetadata, error)
	GetMany(dbc dbctx.Context, docIDs []string) (map[string]*index.DocumentMetadata, error)
	Upsert(dbc dbctx.Context, meta *index.DocumentMetadata) error
	Delete(dbc dbctx.Context, docID string) error
}

type documentMetadataRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentMetadataRepo(db *gorm.DB, baseLog *logger.Logger) DocumentMetadataRepo {
	return &documentMetadataRepo{db: db, log: baseLog.With("repo", "DocumentMetadataRepo")}
}

func (r *documentMetadataRepo) Get(dbc dbctx.Context, docID string) (*index.DocumentMetadata, error) {
	var out index.DocumentMetadata
	err := dbc.DB(r.db).Where("doc_id = ?", docID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *documentMetadataRepo) GetMany(dbc dbctx.Context, docIDs []string) (map[string]*index.DocumentMetadata, error) {
	out := map[string]*index.DocumentMetadata{}
	if len(docIDs) == 0 {
		return out, nil
	}
	var rows []*index.DocumentMetadata
	if err := dbc.DB(r.db).Where("doc_id IN ?", docIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.DocID] = row
	}
	return out, nil
}

func (r *documentMetadataRepo) Upsert(dbc dbctx.Context, meta *index.DocumentMetadata) error {
	if meta == nil {
		return nil
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "doc_id"}},
		UpdateAll: true,
	}).Create(meta).Error
}

func (r *documentMetadataRepo) Delete(dbc dbctx.Context, docID string) error {
	return dbc.DB(r.db).Where("doc_id = ?", docID).Delete(&index.DocumentMetadata{}).Error
}
