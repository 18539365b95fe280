package vectorstore

import (
	"context"
	"fmt"

	"github.com/yungbote/docindex/internal/data/repos"
	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const DefaultExactMaxVectors = 10000

type ExactOptions struct {
	// MaxVectors is the scan size above which a warning recommends the remote backend.
	MaxVectors int
}

type exactStore struct {
	log        *logger.Logger
	repo       repos.IndexEntryRepo
	maxVectors int
}

// NewExactStore scans stored entries and scores each one with Cosine.
func NewExactStore(log *logger.Logger, repo repos.IndexEntryRepo, opts ExactOptions) (Store, error) {
	if repo == nil {
		return nil, fmt.Errorf("index entry repo required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.MaxVectors <= 0 {
		opts.MaxVectors = DefaultExactMaxVectors
	}
	return &exactStore{
		log:        log.With("service", "ExactVectorStore"),
		repo:       repo,
		maxVectors: opts.MaxVectors,
	}, nil
}

func (s *exactStore) Provider() string { return ProviderExact }

func (s *exactStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Result, error) {
	rows, err := s.repo.ListForSearch(dbctx.Context{Ctx: ctx}, opts.Category)
	if err != nil {
		return nil, fmt.Errorf("load index entries: %w", err)
	}
	if len(rows) > s.maxVectors {
		s.log.Warn(
			"exact search scanned more vectors than recommended; consider VECTOR_PROVIDER=qdrant",
			"scanned", len(rows),
			"max_vectors", s.maxVectors,
		)
	}

	results := make([]Result, 0, len(rows))
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vec, err := row.Vector()
		if err != nil {
			return nil, err
		}
		score := Cosine(query, vec)
		results = append(results, Result{
			ChunkID:     row.ChunkID,
			DocID:       row.DocID,
			Path:        row.Path,
			Title:       row.Title,
			Section:     row.Section,
			Content:     row.Content,
			Category:    row.Category,
			ChunkIndex:  row.ChunkIndex,
			Score:       score,
			VectorScore: score,
		})
	}
	return Rank(results, opts), nil
}

func (s *exactStore) Upsert(ctx context.Context, docID string, entries []Entry) error {
	rows := make([]*index.IndexEntry, 0, len(entries))
	for _, e := range entries {
		if e.DocID != docID {
			return fmt.Errorf("entry %s belongs to doc %s, not %s", e.ChunkID, e.DocID, docID)
		}
		rows = append(rows, &index.IndexEntry{
			ChunkID:     e.ChunkID,
			DocID:       e.DocID,
			Path:        e.Path,
			Title:       e.Title,
			Section:     e.Section,
			Content:     e.Content,
			Embedding:   index.EncodeVector(e.Vector),
			Category:    e.Category,
			ChunkIndex:  e.ChunkIndex,
			TotalChunks: e.TotalChunks,
			ContentHash: e.ContentHash,
			IndexedAt:   e.IndexedAt,
		})
	}
	if err := s.repo.ReplaceForDoc(dbctx.Context{Ctx: ctx}, docID, rows); err != nil {
		return fmt.Errorf("replace entries for doc %s: %w", docID, err)
	}
	return nil
}

func (s *exactStore) DeleteByDocID(ctx context.Context, docID string) error {
	_, err := s.repo.DeleteByDocID(dbctx.Context{Ctx: ctx}, docID)
	return err
}
