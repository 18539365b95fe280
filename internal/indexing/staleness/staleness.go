package staleness

import (
	"context"
	"fmt"

	"github.com/yungbote/docindex/internal/data/repos"
	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/indexing/ident"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const (
	StatusNew     = "new"
	StatusCurrent = "current"
	StatusStale   = "stale"
)

type Item struct {
	Path        string `json:"path"`
	Status      string `json:"status"`
	CurrentHash string `json:"currentHash,omitempty"`
	NewHash     string `json:"newHash"`
}

type Summary struct {
	Total   int `json:"total"`
	New     int `json:"new"`
	Current int `json:"current"`
	Stale   int `json:"stale"`
}

type Report struct {
	Results []Item  `json:"results"`
	Summary Summary `json:"summary"`
}

// Detector compares content hashes against stored document metadata. It
// never writes.
type Detector struct {
	log  *logger.Logger
	repo repos.DocumentMetadataRepo
}

func New(log *logger.Logger, repo repos.DocumentMetadataRepo) *Detector {
	if log == nil {
		log = logger.Nop()
	}
	return &Detector{log: log.With("service", "StalenessDetector"), repo: repo}
}

// IsStale reports whether docID has no metadata or a different content hash.
func (d *Detector) IsStale(ctx context.Context, docID, newHash string) (bool, error) {
	meta, err := d.repo.Get(dbctx.Context{Ctx: ctx}, docID)
	if err != nil {
		return false, fmt.Errorf("load metadata for %s: %w", docID, err)
	}
	return meta == nil || meta.ContentHash != newHash, nil
}

// Check classifies each document as new, current or stale with one metadata query.
func (d *Detector) Check(ctx context.Context, docs []index.Document) (*Report, error) {
	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, ident.DocID(doc.Path))
	}
	known, err := d.repo.GetMany(dbctx.Context{Ctx: ctx}, ids)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}

	report := &Report{Results: make([]Item, 0, len(docs))}
	for i, doc := range docs {
		item := Item{Path: doc.Path, NewHash: ident.ContentHash(doc.Body)}
		meta := known[ids[i]]
		switch {
		case meta == nil:
			item.Status = StatusNew
			report.Summary.New++
		case meta.ContentHash == item.NewHash:
			item.Status = StatusCurrent
			item.CurrentHash = meta.ContentHash
			report.Summary.Current++
		default:
			item.Status = StatusStale
			item.CurrentHash = meta.ContentHash
			report.Summary.Stale++
		}
		report.Results = append(report.Results, item)
	}
	report.Summary.Total = len(docs)
	d.log.Debug("staleness check", "total", report.Summary.Total, "new", report.Summary.New, "stale", report.Summary.Stale)
	return report, nil
}
