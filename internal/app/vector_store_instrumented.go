package app

import (
	"context"
	"time"

	"github.com/yungbote/docindex/internal/indexing/vectorstore"
	"github.com/yungbote/docindex/internal/observability"
)

type instrumentedVectorStore struct {
	inner   vectorstore.Store
	metrics *observability.Metrics
}

func instrumentVectorStore(inner vectorstore.Store) vectorstore.Store {
	if inner == nil {
		return nil
	}
	return &instrumentedVectorStore{
		inner:   inner,
		metrics: observability.Current(),
	}
}

func (s *instrumentedVectorStore) Provider() string { return s.inner.Provider() }

func (s *instrumentedVectorStore) Search(ctx context.Context, q []float32, opts vectorstore.SearchOptions) ([]vectorstore.Result, error) {
	start := time.Now()
	out, err := s.inner.Search(ctx, q, opts)
	s.observe("search", err, time.Since(start))
	return out, err
}

func (s *instrumentedVectorStore) Upsert(ctx context.Context, docID string, entries []vectorstore.Entry) error {
	start := time.Now()
	err := s.inner.Upsert(ctx, docID, entries)
	s.observe("upsert", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) DeleteByDocID(ctx context.Context, docID string) error {
	start := time.Now()
	err := s.inner.DeleteByDocID(ctx, docID)
	s.observe("delete", err, time.Since(start))
	return err
}

func (s *instrumentedVectorStore) observe(operation string, err error, dur time.Duration) {
	if s == nil || s.metrics == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "error"
	}
	s.metrics.ObserveVectorStoreOperation(s.inner.Provider(), operation, status, dur)
}
