package index

import (
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/datatypes"
)

// IndexEntry is one embedded chunk. Entries for a DocID are always replaced as
// a set; they are never patched in place.
type IndexEntry struct {
	ChunkID     string         `gorm:"column:chunk_id;primaryKey;size:64" json:"chunk_id"`
	DocID       string         `gorm:"column:doc_id;size:64;not null;uniqueIndex:idx_index_entries_doc_chunk,priority:1" json:"doc_id"`
	Path        string         `gorm:"column:path;not null" json:"path"`
	Title       string         `gorm:"column:title" json:"title"`
	Section     string         `gorm:"column:section" json:"section"`
	Content     string         `gorm:"column:content;type:text;not null" json:"content"`
	Embedding   datatypes.JSON `gorm:"column:embedding" json:"-"`
	Category    string         `gorm:"column:category;size:64;index" json:"category"`
	ChunkIndex  int            `gorm:"column:chunk_index;not null;uniqueIndex:idx_index_entries_doc_chunk,priority:2" json:"chunk_index"`
	TotalChunks int            `gorm:"column:total_chunks;not null" json:"total_chunks"`
	ContentHash string         `gorm:"column:content_hash;size:64" json:"content_hash"`
	IndexedAt   time.Time      `gorm:"column:indexed_at;not null" json:"indexed_at"`
}

func (IndexEntry) TableName() string { return "index_entries" }

func EncodeVector(v []float32) datatypes.JSON {
	if v == nil {
		v = []float32{}
	}
	b, _ := json.Marshal(v)
	return datatypes.JSON(b)
}

func (e *IndexEntry) Vector() ([]float32, error) {
	if e == nil || len(e.Embedding) == 0 {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(e.Embedding, &v); err != nil {
		return nil, fmt.Errorf("decode embedding for chunk %s: %w", e.ChunkID, err)
	}
	return v, nil
}
