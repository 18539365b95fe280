package index

import (
	"time"

	"gorm.io/datatypes"
)

// DocumentMetadata is the per-document record used for staleness comparison.
type DocumentMetadata struct {
	DocID       string                      `gorm:"column:doc_id;primaryKey;size:64" json:"doc_id"`
	Path        string                      `gorm:"column:path;not null" json:"path"`
	Title       string                      `gorm:"column:title" json:"title"`
	Description string                      `gorm:"column:description;type:text" json:"description"`
	Category    string                      `gorm:"column:category;size:64;index" json:"category"`
	Tags        datatypes.JSONSlice[string] `gorm:"column:tags" json:"tags"`
	WordCount   int                         `gorm:"column:word_count" json:"word_count"`
	ChunkCount  int                         `gorm:"column:chunk_count" json:"chunk_count"`
	ContentHash string                      `gorm:"column:content_hash;size:64;not null" json:"content_hash"`
	LastIndexed time.Time                   `gorm:"column:last_indexed;not null" json:"last_indexed"`
}

func (DocumentMetadata) TableName() string { return "document_metadata" }
