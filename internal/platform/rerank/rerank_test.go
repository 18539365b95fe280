package rerank

import (
	"context"
	"testing"
)

func TestKeywordRerankerPromotesKeywordMatch(t *testing.T) {
	r := NewKeywordReranker(0.5)
	candidates := []Candidate{
		{ID: "a", Text: "Configure the load balancer health checks.", VectorScore: 0.80},
		{ID: "b", Text: "Rotate the database credentials every quarter.", VectorScore: 0.78},
	}
	scores, err := r.Rerank(context.Background(), "database credentials", candidates)
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if len(scores) != 2 {
		t.Fatalf("scores: want=2 got=%d", len(scores))
	}
	if !(scores[1] > scores[0]) {
		t.Fatalf("keyword match should outrank: %v", scores)
	}
	if scores[0] != 0.40 {
		t.Fatalf("non-matching candidate keeps only the vector share: got=%v", scores[0])
	}
	if scores[1] > 1 {
		t.Fatalf("blended score out of range: %v", scores[1])
	}
}

func TestKeywordRerankerEmptyQuery(t *testing.T) {
	r := NewKeywordReranker(0.3)
	scores, err := r.Rerank(context.Background(), "  ", []Candidate{{ID: "a", Text: "x", VectorScore: 0.9}})
	if err != nil {
		t.Fatalf("Rerank: %v", err)
	}
	if scores[0] != 0.9 {
		t.Fatalf("empty query should keep vector score, got %v", scores[0])
	}
}

func TestNewKeywordRerankerClampsWeight(t *testing.T) {
	r := NewKeywordReranker(2).(*keywordReranker)
	if r.weight != DefaultKeywordWeight {
		t.Fatalf("weight: want=%v got=%v", DefaultKeywordWeight, r.weight)
	}
}
