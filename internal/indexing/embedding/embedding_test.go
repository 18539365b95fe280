package embedding

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/yungbote/docindex/internal/data/repos"
	"github.com/yungbote/docindex/internal/data/repos/testutil"
	"github.com/yungbote/docindex/internal/indexing/cache"
	"github.com/yungbote/docindex/internal/platform/openai"
)

type fakeProvider struct {
	calls  int
	inputs [][]string
	err    error
}

func (f *fakeProvider) EmbedModel() string { return "fake-embed" }

func (f *fakeProvider) Embed(_ context.Context, inputs []string) (openai.EmbedResult, error) {
	f.calls++
	f.inputs = append(f.inputs, append([]string(nil), inputs...))
	if f.err != nil {
		return openai.EmbedResult{}, f.err
	}
	res := openai.EmbedResult{TotalTokens: len(inputs) * 3}
	for _, in := range inputs {
		res.Vectors = append(res.Vectors, []float32{float32(len(in)), 1})
	}
	return res, nil
}

func newTestClient(t *testing.T, p *fakeProvider, batch int) Client {
	t.Helper()
	log := testutil.Logger(t)
	set := repos.New(testutil.DB(t), log)
	c := cache.New[[]float32](log, cache.NewGormStore(set.CacheEntries), cache.Options{
		Namespace: cache.NamespaceEmbeddings,
		TTL:       7 * 24 * time.Hour,
	})
	client, err := New(log, p, c, Options{BatchSize: batch})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return client
}

func TestEmbedBatchUsesCacheAndBatchesMisses(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p, 2)
	ctx := context.Background()

	first, err := c.EmbedBatch(ctx, []string{"a", "bb", "ccc"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if p.calls != 2 || len(p.inputs[0]) != 2 || len(p.inputs[1]) != 1 {
		t.Fatalf("want 2 provider calls split 2+1, got %v", p.inputs)
	}
	if first.Cached != 0 || first.Tokens != 9 {
		t.Fatalf("first batch: cached=%d tokens=%d", first.Cached, first.Tokens)
	}
	if first.Vectors[2][0] != 3 {
		t.Fatalf("vectors out of order: %v", first.Vectors)
	}

	second, err := c.EmbedBatch(ctx, []string{"ccc", "dddd", "a"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if p.calls != 3 || strings.Join(p.inputs[2], ",") != "dddd" {
		t.Fatalf("only the miss should reach the provider, got %v", p.inputs)
	}
	if second.Cached != 2 || second.Vectors[0][0] != 3 || second.Vectors[1][0] != 4 || second.Vectors[2][0] != 1 {
		t.Fatalf("second batch: %+v", second)
	}
}

func TestGetEmbeddingReportsCached(t *testing.T) {
	p := &fakeProvider{}
	c := newTestClient(t, p, 16)
	ctx := context.Background()

	if _, cached, err := c.GetEmbedding(ctx, "query"); err != nil || cached {
		t.Fatalf("first: cached=%v err=%v", cached, err)
	}
	v, cached, err := c.GetEmbedding(ctx, "query")
	if err != nil || !cached || v[0] != 5 {
		t.Fatalf("second: v=%v cached=%v err=%v", v, cached, err)
	}
	if p.calls != 1 {
		t.Fatalf("provider calls: want=1 got=%d", p.calls)
	}
}

func TestEmbedBatchProviderError(t *testing.T) {
	boom := errors.New("provider down")
	p := &fakeProvider{err: boom}
	c := newTestClient(t, p, 16)
	if _, err := c.EmbedBatch(context.Background(), []string{"x"}); !errors.Is(err, boom) {
		t.Fatalf("want provider error, got %v", err)
	}
}

func TestEmbedBatchWithoutCache(t *testing.T) {
	p := &fakeProvider{}
	c, err := New(nil, p, nil, Options{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := c.EmbedBatch(context.Background(), []string{"x"}); err != nil {
			t.Fatalf("EmbedBatch: %v", err)
		}
	}
	if p.calls != 2 {
		t.Fatalf("without a cache every call reaches the provider, got %d", p.calls)
	}
}
