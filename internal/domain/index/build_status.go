package index

import (
	"time"

	"gorm.io/datatypes"
)

const (
	BuildRunning   = "running"
	BuildCompleted = "completed"
	BuildFailed    = "failed"
)

const (
	DocIndexed   = "indexed"
	DocUnchanged = "unchanged"
	DocFailed    = "failed"
)

type DocumentResult struct {
	Path          string `json:"path"`
	Status        string `json:"status"`
	ChunksCreated *int   `json:"chunksCreated,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BuildStatus is the persisted aggregate of one indexing run. It is written
// only by the orchestrator that owns the build.
type BuildStatus struct {
	BuildID     string                              `gorm:"column:build_id;primaryKey;size:64" json:"build_id"`
	Status      string                              `gorm:"column:status;size:16;not null;index" json:"status"`
	TotalDocs   int                                 `gorm:"column:total_docs" json:"total_docs"`
	Indexed     int                                 `gorm:"column:indexed" json:"indexed"`
	Unchanged   int                                 `gorm:"column:unchanged" json:"unchanged"`
	Failed      int                                 `gorm:"column:failed" json:"failed"`
	TotalChunks int                                 `gorm:"column:total_chunks" json:"total_chunks"`
	TotalTokens int                                 `gorm:"column:total_tokens" json:"total_tokens"`
	Errors      datatypes.JSONSlice[string]         `gorm:"column:errors" json:"errors"`
	Results     datatypes.JSONSlice[DocumentResult] `gorm:"column:results" json:"results"`
	StartedAt   time.Time                           `gorm:"column:started_at;not null" json:"started_at"`
	HeartbeatAt time.Time                           `gorm:"column:heartbeat_at;not null;index" json:"heartbeat_at"`
	FinishedAt  *time.Time                          `gorm:"column:finished_at" json:"finished_at,omitempty"`
}

func (BuildStatus) TableName() string { return "build_statuses" }

func (b *BuildStatus) Processed() int {
	if b == nil {
		return 0
	}
	return b.Indexed + b.Unchanged + b.Failed
}
