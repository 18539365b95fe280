package index

import (
	"time"

	"gorm.io/datatypes"
)

type CacheEntry struct {
	Namespace      string         `gorm:"column:namespace;primaryKey;size:32" json:"namespace"`
	Key            string         `gorm:"column:cache_key;primaryKey;size:128" json:"key"`
	Value          datatypes.JSON `gorm:"column:value" json:"value"`
	CreatedAt      time.Time      `gorm:"column:created_at;not null" json:"created_at"`
	ExpiresAt      time.Time      `gorm:"column:expires_at;not null;index" json:"expires_at"`
	HitCount       int64          `gorm:"column:hit_count;not null;default:0" json:"hit_count"`
	LastAccessedAt time.Time      `gorm:"column:last_accessed_at;not null" json:"last_accessed_at"`
}

func (CacheEntry) TableName() string { return "cache_entries" }

func (e *CacheEntry) Expired(now time.Time) bool {
	return e == nil || !now.Before(e.ExpiresAt)
}
