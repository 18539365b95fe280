package vectorstore

import (
	"context"
	"sort"
	"time"
)

const (
	ProviderExact  = "exact"
	ProviderQdrant = "qdrant"

	DefaultTopK = 5
	MaxTopK     = 50
)

// Entry is one chunk ready to be written: its record fields plus its vector.
type Entry struct {
	ChunkID     string
	DocID       string
	Path        string
	Title       string
	Section     string
	Content     string
	Category    string
	ChunkIndex  int
	TotalChunks int
	ContentHash string
	Vector      []float32
	IndexedAt   time.Time
}

type SearchOptions struct {
	TopK     int
	Category string
	MinScore float64
	// Keywords enables keyword reranking on backends that support it.
	Keywords string
}

type Result struct {
	ChunkID    string  `json:"chunkId"`
	DocID      string  `json:"docId"`
	Path       string  `json:"path"`
	Title      string  `json:"title"`
	Section    string  `json:"section"`
	Content    string  `json:"content"`
	Category   string  `json:"category"`
	ChunkIndex int     `json:"chunkIndex"`
	Score      float64 `json:"score"`
	// VectorScore is the raw similarity. Score equals RerankerScore when set.
	VectorScore   float64  `json:"vectorScore"`
	RerankerScore *float64 `json:"rerankerScore,omitempty"`
}

// Store persists chunk entries and answers similarity queries.
type Store interface {
	Search(ctx context.Context, query []float32, opts SearchOptions) ([]Result, error)
	// Upsert replaces every entry of docID with entries. The delete completes
	// before any new entry is written.
	Upsert(ctx context.Context, docID string, entries []Entry) error
	DeleteByDocID(ctx context.Context, docID string) error
	Provider() string
}

func NormalizeTopK(k int) int {
	switch {
	case k <= 0:
		return DefaultTopK
	case k > MaxTopK:
		return MaxTopK
	default:
		return k
	}
}

// Rank drops results scoring below opts.MinScore, orders the rest by score
// descending (ties keep input order) and truncates to the normalized TopK.
func Rank(results []Result, opts SearchOptions) []Result {
	out := make([]Result, 0, len(results))
	for _, r := range results {
		if r.Score < opts.MinScore {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if k := NormalizeTopK(opts.TopK); len(out) > k {
		out = out[:k]
	}
	return out
}
