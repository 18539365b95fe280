package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/docindex/internal/data/repos/indexing"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type IndexEntryRepo = indexing.IndexEntryRepo
type DocumentMetadataRepo = indexing.DocumentMetadataRepo
type BuildStatusRepo = indexing.BuildStatusRepo
type CacheEntryRepo = indexing.CacheEntryRepo

type Set struct {
	IndexEntries IndexEntryRepo
	Metadata     DocumentMetadataRepo
	Builds       BuildStatusRepo
	CacheEntries CacheEntryRepo
}

func New(db *gorm.DB, log *logger.Logger) Set {
	return Set{
		IndexEntries: indexing.NewIndexEntryRepo(db, log),
		Metadata:     indexing.NewDocumentMetadataRepo(db, log),
		Builds:       indexing.NewBuildStatusRepo(db, log),
		CacheEntries: indexing.NewCacheEntryRepo(db, log),
	}
}
