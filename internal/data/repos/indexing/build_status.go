package indexing

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/docindex/internal/pkg/errors"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type BuildStatusRepo interface {
	Create(dbc dbctx.Context, status *index.BuildStatus) error
	Save(dbc dbctx.Context, status *index.BuildStatus) error
	// Get returns pkg/errors.ErrNotFound when the build does not exist.
	Get(dbc dbctx.Context, buildID string) (*index.BuildStatus, error)
	ListRecent(dbc dbctx.Context, limit int) ([]*index.BuildStatus, error)
}

type buildStatusRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBuildStatusRepo(db *gorm.DB, baseLog *logger.Logger) BuildStatusRepo {
	return &buildStatusRepo{db: db, log: baseLog.With("repo", "BuildStatusRepo")}
}

// Create inserts a new build. An existing build id yields ErrConflict.
func (r *buildStatusRepo) Create(dbc dbctx.Context, status *index.BuildStatus) error {
	res := dbc.DB(r.db).Clauses(clause.OnConflict{DoNothing: true}).Create(status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("build %s: %w", status.BuildID, pkgerrors.ErrConflict)
	}
	return nil
}

func (r *buildStatusRepo) Save(dbc dbctx.Context, status *index.BuildStatus) error {
	return dbc.DB(r.db).Save(status).Error
}

func (r *buildStatusRepo) Get(dbc dbctx.Context, buildID string) (*index.BuildStatus, error) {
	var out index.BuildStatus
	err := dbc.DB(r.db).Where("build_id = ?", buildID).Take(&out).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *buildStatusRepo) ListRecent(dbc dbctx.Context, limit int) ([]*index.BuildStatus, error) {
	if limit <= 0 {
		limit = 20
	}
	var out []*index.BuildStatus
	if err := dbc.DB(r.db).Order("started_at DESC").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
