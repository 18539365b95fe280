package query

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yungbote/docindex/internal/indexing/cache"
	"github.com/yungbote/docindex/internal/indexing/embedding"
	"github.com/yungbote/docindex/internal/indexing/vectorstore"
	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const (
	DefaultMinScore = 0.7
	DefaultCacheTTL = time.Hour
	maxContentChars = 500
)

var ErrEmptyQuery = errors.New("query is required")

type Request struct {
	Query    string
	Category string
	TopK     int
	// MinScore nil means DefaultMinScore; an explicit 0 disables the threshold.
	MinScore *float64
	Hybrid   bool
}

type Result struct {
	DocID    string  `json:"docId"`
	Path     string  `json:"path"`
	Title    string  `json:"title"`
	Section  string  `json:"section"`
	Content  string  `json:"content"`
	Score    float64 `json:"score"`
	Category string  `json:"category"`
}

type Metrics struct {
	Provider        string `json:"provider"`
	LatencyMs       int64  `json:"latencyMs"`
	EmbeddingCached bool   `json:"embeddingCached"`
	ResultCount     int    `json:"resultCount"`
	Cached          bool   `json:"cached"`
}

type Response struct {
	Results []Result `json:"results"`
	Metrics Metrics  `json:"metrics"`
}

// cachedAnswer is what the query cache stores. Metrics are recomputed per call.
type cachedAnswer struct {
	Results         []Result `json:"results"`
	EmbeddingCached bool     `json:"embeddingCached"`
}

type Service struct {
	log      *logger.Logger
	embedder embedding.Client
	store    vectorstore.Store
	cache    *cache.Cache[cachedAnswer]
	now      func() time.Time
}

// New builds the query service. A nil store for cacheStore disables the query
// cache.
func New(log *logger.Logger, embedder embedding.Client, store vectorstore.Store, cacheStore cache.Store, ttl time.Duration) (*Service, error) {
	if embedder == nil {
		return nil, errors.New("query: embedder required")
	}
	if store == nil {
		return nil, errors.New("query: vector store required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	s := &Service{
		log:      log.With("service", "QueryService"),
		embedder: embedder,
		store:    store,
		now:      time.Now,
	}
	if cacheStore != nil {
		s.cache = cache.New[cachedAnswer](log, cacheStore, cache.Options{Namespace: cache.NamespaceQueries, TTL: ttl})
	}
	return s, nil
}

func (s *Service) Provider() string { return s.store.Provider() }

// Search answers req from the query cache or by embedding the query and
// searching the store. Backend failures are returned and never cached.
func (s *Service) Search(ctx context.Context, req Request) (*Response, error) {
	start := s.now()
	q := Normalize(req.Query)
	if q == "" {
		return nil, ErrEmptyQuery
	}
	topK := vectorstore.NormalizeTopK(req.TopK)
	minScore := DefaultMinScore
	if req.MinScore != nil {
		minScore = *req.MinScore
	}
	category := strings.TrimSpace(req.Category)

	key := CacheKey(q, category, topK, minScore, req.Hybrid)
	answer, hit, err := cache.WithCache(ctx, s.cache, key, func(ctx context.Context) (cachedAnswer, error) {
		vec, embedCached, err := s.embedder.GetEmbedding(ctx, q)
		if err != nil {
			return cachedAnswer{}, fmt.Errorf("embed query: %w", err)
		}
		opts := vectorstore.SearchOptions{TopK: topK, Category: category, MinScore: minScore}
		if req.Hybrid {
			opts.Keywords = q
		}
		found, err := s.store.Search(ctx, vec, opts)
		if err != nil {
			return cachedAnswer{}, fmt.Errorf("search: %w", err)
		}
		out := cachedAnswer{Results: make([]Result, 0, len(found)), EmbeddingCached: embedCached}
		for _, r := range found {
			out.Results = append(out.Results, Result{
				DocID:    r.DocID,
				Path:     r.Path,
				Title:    r.Title,
				Section:  r.Section,
				Content:  truncate(r.Content, maxContentChars),
				Score:    r.Score,
				Category: r.Category,
			})
		}
		return out, nil
	})
	if err != nil {
		s.log.Warn("query failed", "provider", s.store.Provider(), "error", err)
		return nil, err
	}
	if answer.Results == nil {
		answer.Results = []Result{}
	}

	elapsed := s.now().Sub(start)
	observability.Current().ObserveQuery(s.store.Provider(), hit, elapsed)
	return &Response{
		Results: answer.Results,
		Metrics: Metrics{
			Provider:        s.store.Provider(),
			LatencyMs:       elapsed.Milliseconds(),
			EmbeddingCached: answer.EmbeddingCached,
			ResultCount:     len(answer.Results),
			Cached:          hit,
		},
	}, nil
}

// Normalize lowercases q, collapses whitespace runs and trims.
func Normalize(q string) string {
	return strings.ToLower(strings.Join(strings.Fields(q), " "))
}

func CacheKey(q, category string, topK int, minScore float64, hybrid bool) string {
	return cache.HashKey(
		q,
		category,
		strconv.Itoa(topK),
		strconv.FormatFloat(minScore, 'g', -1, 64),
		strconv.FormatBool(hybrid),
	)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
