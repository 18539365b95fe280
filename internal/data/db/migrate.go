package db

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/yungbote/docindex/internal/domain/index"
)

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&index.IndexEntry{},
		&index.DocumentMetadata{},
		&index.BuildStatus{},
		&index.CacheEntry{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func (s *Service) AutoMigrateAll() error {
	return AutoMigrateAll(s.db)
}
