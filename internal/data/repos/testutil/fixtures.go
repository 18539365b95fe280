package testutil

import (
	"context"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/indexing/ident"
)

// SeedDocument records path as indexed with the hash of content.
func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, path, content string) *index.DocumentMetadata {
	tb.Helper()
	m := &index.DocumentMetadata{
		DocID:       ident.DocID(path),
		Path:        path,
		ContentHash: ident.ContentHash(content),
		LastIndexed: time.Now().UTC(),
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return m
}

func SeedBuild(tb testing.TB, ctx context.Context, tx *gorm.DB, buildID, status string, heartbeat time.Time) *index.BuildStatus {
	tb.Helper()
	b := &index.BuildStatus{
		BuildID:     buildID,
		Status:      status,
		StartedAt:   heartbeat,
		HeartbeatAt: heartbeat,
	}
	if err := tx.WithContext(ctx).Create(b).Error; err != nil {
		tb.Fatalf("seed build: %v", err)
	}
	return b
}
