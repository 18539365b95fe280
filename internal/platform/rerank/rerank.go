package rerank

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
)

const DefaultKeywordWeight = 0.3

type Candidate struct {
	ID          string
	Text        string
	VectorScore float64
}

// Reranker rescores vector candidates against a keyword query. The returned
// slice is aligned with candidates.
type Reranker interface {
	Rerank(ctx context.Context, query string, candidates []Candidate) ([]float64, error)
}

type keywordReranker struct {
	weight float64
}

// NewKeywordReranker blends vector similarity with a bleve match score over
// the candidate texts: (1-weight)*vector + weight*keyword, where keyword is
// the hit score normalized by the best hit.
func NewKeywordReranker(weight float64) Reranker {
	if weight < 0 || weight > 1 {
		weight = DefaultKeywordWeight
	}
	return &keywordReranker{weight: weight}
}

type doc struct {
	Content string `json:"content"`
}

func (r *keywordReranker) Rerank(ctx context.Context, query string, candidates []Candidate) ([]float64, error) {
	out := make([]float64, len(candidates))
	for i, c := range candidates {
		out[i] = (1 - r.weight) * c.VectorScore
	}
	query = strings.TrimSpace(query)
	if query == "" || len(candidates) == 0 {
		for i, c := range candidates {
			out[i] = c.VectorScore
		}
		return out, nil
	}

	idx, err := bleve.NewMemOnly(bleve.NewIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("create rerank index: %w", err)
	}
	defer idx.Close()

	pos := make(map[string]int, len(candidates))
	batch := idx.NewBatch()
	for i, c := range candidates {
		key := fmt.Sprintf("%d", i)
		pos[key] = i
		if err := batch.Index(key, doc{Content: c.Text}); err != nil {
			return nil, fmt.Errorf("index candidate %s: %w", c.ID, err)
		}
	}
	if err := idx.Batch(batch); err != nil {
		return nil, fmt.Errorf("index candidates: %w", err)
	}

	req := bleve.NewSearchRequest(bleve.NewMatchQuery(query))
	req.Size = len(candidates)
	res, err := idx.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("keyword search: %w", err)
	}
	if len(res.Hits) == 0 || res.MaxScore <= 0 {
		return out, nil
	}
	for _, hit := range res.Hits {
		i, ok := pos[hit.ID]
		if !ok {
			continue
		}
		out[i] += r.weight * (hit.Score / res.MaxScore)
	}
	return out, nil
}
