package vectorstore

import (
	"context"
	"fmt"
	"time"

	"github.com/yungbote/docindex/internal/platform/logger"
	"github.com/yungbote/docindex/internal/platform/qdrant"
	"github.com/yungbote/docindex/internal/platform/rerank"
)

const DefaultOversample = 3

type RemoteOptions struct {
	// Oversample multiplies the candidate count fetched when reranking.
	Oversample int
}

type remoteStore struct {
	log        *logger.Logger
	client     qdrant.Client
	reranker   rerank.Reranker
	oversample int
}

// NewRemoteStore searches a Qdrant collection. When a search carries
// keywords and reranker is non-nil, candidates are rescored by reranker and
// that score decides threshold and order.
func NewRemoteStore(log *logger.Logger, client qdrant.Client, reranker rerank.Reranker, opts RemoteOptions) (Store, error) {
	if client == nil {
		return nil, fmt.Errorf("qdrant client required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.Oversample < 1 {
		opts.Oversample = DefaultOversample
	}
	return &remoteStore{
		log:        log.With("service", "RemoteVectorStore"),
		client:     client,
		reranker:   reranker,
		oversample: opts.Oversample,
	}, nil
}

func (s *remoteStore) Provider() string { return ProviderQdrant }

func (s *remoteStore) Search(ctx context.Context, query []float32, opts SearchOptions) ([]Result, error) {
	hybrid := opts.Keywords != "" && s.reranker != nil
	limit := NormalizeTopK(opts.TopK)
	if hybrid {
		limit *= s.oversample
	}
	var filter qdrant.Filter
	if opts.Category != "" {
		filter.Must = append(filter.Must, qdrant.MatchValue("category", opts.Category))
	}

	matches, err := s.client.Search(ctx, query, limit, filter)
	if err != nil {
		return nil, err
	}
	results := make([]Result, 0, len(matches))
	for _, m := range matches {
		r := resultFromPayload(m.Payload)
		r.ChunkID = m.ID
		r.Score = m.Score
		r.VectorScore = m.Score
		results = append(results, r)
	}

	if hybrid && len(results) > 0 {
		candidates := make([]rerank.Candidate, len(results))
		for i, r := range results {
			candidates[i] = rerank.Candidate{ID: r.ChunkID, Text: r.Title + "\n" + r.Section + "\n" + r.Content, VectorScore: r.VectorScore}
		}
		scores, err := s.reranker.Rerank(ctx, opts.Keywords, candidates)
		if err != nil {
			return nil, fmt.Errorf("rerank: %w", err)
		}
		for i := range results {
			score := scores[i]
			results[i].RerankerScore = &score
			results[i].Score = score
		}
	}
	return Rank(results, opts), nil
}

func (s *remoteStore) Upsert(ctx context.Context, docID string, entries []Entry) error {
	points := make([]qdrant.Point, 0, len(entries))
	for _, e := range entries {
		if e.DocID != docID {
			return fmt.Errorf("entry %s belongs to doc %s, not %s", e.ChunkID, e.DocID, docID)
		}
		points = append(points, qdrant.Point{
			ID:     e.ChunkID,
			Vector: e.Vector,
			Payload: map[string]any{
				"doc_id":       e.DocID,
				"path":         e.Path,
				"title":        e.Title,
				"section":      e.Section,
				"content":      e.Content,
				"category":     e.Category,
				"chunk_index":  e.ChunkIndex,
				"total_chunks": e.TotalChunks,
				"content_hash": e.ContentHash,
				"indexed_at":   e.IndexedAt.UTC().Format(time.RFC3339),
			},
		})
	}
	if err := s.DeleteByDocID(ctx, docID); err != nil {
		return fmt.Errorf("delete prior points for doc %s: %w", docID, err)
	}
	return s.client.Upsert(ctx, points)
}

func (s *remoteStore) DeleteByDocID(ctx context.Context, docID string) error {
	return s.client.DeleteByFilter(ctx, qdrant.Filter{Must: []qdrant.Condition{qdrant.MatchValue("doc_id", docID)}})
}

func resultFromPayload(p map[string]any) Result {
	str := func(k string) string {
		s, _ := p[k].(string)
		return s
	}
	r := Result{
		DocID:    str("doc_id"),
		Path:     str("path"),
		Title:    str("title"),
		Section:  str("section"),
		Content:  str("content"),
		Category: str("category"),
	}
	switch v := p["chunk_index"].(type) {
	case float64:
		r.ChunkIndex = int(v)
	case int:
		r.ChunkIndex = v
	}
	return r
}
