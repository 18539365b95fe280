package embedding

import (
	"context"
	"fmt"

	"github.com/yungbote/docindex/internal/indexing/cache"
	"github.com/yungbote/docindex/internal/platform/logger"
	"github.com/yungbote/docindex/internal/platform/openai"
)

const DefaultBatchSize = 16

// Batch holds one vector per input text, in input order.
type Batch struct {
	Vectors [][]float32
	// Cached counts inputs served from the cache.
	Cached int
	// Tokens is the provider-reported token usage for the misses.
	Tokens int
}

type Client interface {
	GetEmbedding(ctx context.Context, text string) ([]float32, bool, error)
	EmbedBatch(ctx context.Context, texts []string) (Batch, error)
	Model() string
}

type Options struct {
	BatchSize int
}

type client struct {
	log       *logger.Logger
	provider  openai.Client
	cache     *cache.Cache[[]float32]
	batchSize int
}

// New wraps provider with a read-through cache. A nil cache disables caching.
func New(log *logger.Logger, provider openai.Client, c *cache.Cache[[]float32], opts Options) (Client, error) {
	if provider == nil {
		return nil, fmt.Errorf("embedding provider required")
	}
	if log == nil {
		log = logger.Nop()
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &client{
		log:       log.With("service", "EmbeddingClient"),
		provider:  provider,
		cache:     c,
		batchSize: opts.BatchSize,
	}, nil
}

func (c *client) Model() string { return c.provider.EmbedModel() }

func (c *client) key(text string) string {
	return cache.HashKey(c.provider.EmbedModel(), text)
}

func (c *client) GetEmbedding(ctx context.Context, text string) ([]float32, bool, error) {
	b, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, false, err
	}
	return b.Vectors[0], b.Cached == 1, nil
}

func (c *client) EmbedBatch(ctx context.Context, texts []string) (Batch, error) {
	out := Batch{Vectors: make([][]float32, len(texts))}
	if len(texts) == 0 {
		return out, nil
	}

	var missIdx []int
	for i, t := range texts {
		if v, ok := c.cache.Get(ctx, c.key(t)); ok {
			out.Vectors[i] = v
			out.Cached++
			continue
		}
		missIdx = append(missIdx, i)
	}

	for start := 0; start < len(missIdx); start += c.batchSize {
		end := start + c.batchSize
		if end > len(missIdx) {
			end = len(missIdx)
		}
		idx := missIdx[start:end]
		inputs := make([]string, len(idx))
		for j, i := range idx {
			inputs[j] = texts[i]
		}
		res, err := c.provider.Embed(ctx, inputs)
		if err != nil {
			return Batch{}, fmt.Errorf("embed %d inputs: %w", len(inputs), err)
		}
		if len(res.Vectors) != len(inputs) {
			return Batch{}, fmt.Errorf("embed: provider returned %d vectors for %d inputs", len(res.Vectors), len(inputs))
		}
		out.Tokens += res.TotalTokens
		for j, i := range idx {
			out.Vectors[i] = res.Vectors[j]
			c.cache.Set(ctx, c.key(texts[i]), res.Vectors[j])
		}
	}

	if len(missIdx) > 0 {
		c.log.Debug("embedded batch", "inputs", len(texts), "cached", out.Cached, "tokens", out.Tokens)
	}
	return out, nil
}
