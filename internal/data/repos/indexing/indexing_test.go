package indexing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yungbote/docindex/internal/data/repos/testutil"
	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/pkg/dbctx"
	pkgerrors "github.com/yungbote/docindex/internal/pkg/errors"
)

func entriesFor(docID, category string, n int) []*index.IndexEntry {
	out := make([]*index.IndexEntry, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, &index.IndexEntry{
			ChunkID:     fmt.Sprintf("%s-%d", docID, i),
			DocID:       docID,
			Path:        docID + ".md",
			Content:     fmt.Sprintf("chunk %d", i),
			Embedding:   index.EncodeVector([]float32{float32(i), 1}),
			Category:    category,
			ChunkIndex:  i,
			TotalChunks: n,
			IndexedAt:   time.Now().UTC(),
		})
	}
	return out
}

func TestIndexEntryRepoReplaceForDoc(t *testing.T) {
	db := testutil.DB(t)
	repo := NewIndexEntryRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	if err := repo.ReplaceForDoc(dbc, "doc-a", entriesFor("doc-a", "guides", 3)); err != nil {
		t.Fatalf("ReplaceForDoc: %v", err)
	}
	if err := repo.ReplaceForDoc(dbc, "doc-b", entriesFor("doc-b", "api", 2)); err != nil {
		t.Fatalf("ReplaceForDoc doc-b: %v", err)
	}

	// Shrinking a document leaves exactly the new generation.
	if err := repo.ReplaceForDoc(dbc, "doc-a", entriesFor("doc-a", "guides", 1)); err != nil {
		t.Fatalf("ReplaceForDoc shrink: %v", err)
	}
	rows, err := repo.GetByDocID(dbc, "doc-a")
	if err != nil {
		t.Fatalf("GetByDocID: %v", err)
	}
	if len(rows) != 1 || rows[0].TotalChunks != 1 {
		t.Fatalf("want exactly 1 entry of the new generation, got %d", len(rows))
	}

	all, err := repo.ListForSearch(dbc, "")
	if err != nil {
		t.Fatalf("ListForSearch: %v", err)
	}
	if len(all) != 3 || all[0].DocID != "doc-a" || all[1].DocID != "doc-b" || all[1].ChunkIndex != 0 {
		t.Fatalf("unexpected retrieval order: %+v", all)
	}
	api, err := repo.ListForSearch(dbc, "api")
	if err != nil || len(api) != 2 {
		t.Fatalf("ListForSearch(api): err=%v len=%d", err, len(api))
	}
	if n, err := repo.Count(dbc, "guides"); err != nil || n != 1 {
		t.Fatalf("Count(guides): err=%v n=%d", err, n)
	}

	vec, err := api[0].Vector()
	if err != nil || len(vec) != 2 || vec[1] != 1 {
		t.Fatalf("Vector: err=%v vec=%v", err, vec)
	}

	if n, err := repo.DeleteByDocID(dbc, "doc-b"); err != nil || n != 2 {
		t.Fatalf("DeleteByDocID: err=%v n=%d", err, n)
	}
}

func TestDocumentMetadataRepo(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	repo := NewDocumentMetadataRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}

	got, err := repo.Get(dbc, "missing")
	if err != nil || got != nil {
		t.Fatalf("Get(missing): want nil,nil got %v,%v", got, err)
	}

	meta := &index.DocumentMetadata{DocID: "d1", Path: "a.md", ContentHash: "h1", Tags: []string{"x"}, LastIndexed: time.Now().UTC()}
	if err := repo.Upsert(dbc, meta); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	meta2 := &index.DocumentMetadata{DocID: "d1", Path: "a.md", ContentHash: "h2", ChunkCount: 4, LastIndexed: time.Now().UTC()}
	if err := repo.Upsert(dbc, meta2); err != nil {
		t.Fatalf("Upsert overwrite: %v", err)
	}
	got, err = repo.Get(dbc, "d1")
	if err != nil || got == nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ContentHash != "h2" || got.ChunkCount != 4 {
		t.Fatalf("upsert did not overwrite: %+v", got)
	}

	many, err := repo.GetMany(dbc, []string{"d1", "d2"})
	if err != nil || len(many) != 1 || many["d1"] == nil {
		t.Fatalf("GetMany: err=%v got=%v", err, many)
	}
}

func TestBuildStatusRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewBuildStatusRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	if _, err := repo.Get(dbc, "nope"); !errors.Is(err, pkgerrors.ErrNotFound) {
		t.Fatalf("Get(nope): want ErrNotFound got %v", err)
	}

	now := time.Now().UTC()
	st := &index.BuildStatus{BuildID: "b1", Status: index.BuildRunning, StartedAt: now, HeartbeatAt: now}
	if err := repo.Create(dbc, st); err != nil {
		t.Fatalf("Create: %v", err)
	}
	dup := &index.BuildStatus{BuildID: "b1", Status: index.BuildCompleted, StartedAt: now, HeartbeatAt: now}
	if err := repo.Create(dbc, dup); !errors.Is(err, pkgerrors.ErrConflict) {
		t.Fatalf("Create(duplicate): want ErrConflict got %v", err)
	}
	if got, _ := repo.Get(dbc, "b1"); got.Status != index.BuildRunning {
		t.Fatalf("duplicate create must not overwrite: %+v", got)
	}
	chunks := 2
	st.Indexed = 1
	st.Errors = append(st.Errors, "b.md: boom")
	st.Results = append(st.Results, index.DocumentResult{Path: "a.md", Status: index.DocIndexed, ChunksCreated: &chunks})
	if err := repo.Save(dbc, st); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := repo.Get(dbc, "b1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Indexed != 1 || len(got.Errors) != 1 || len(got.Results) != 1 || *got.Results[0].ChunksCreated != 2 {
		t.Fatalf("unexpected build status: %+v", got)
	}
	recent, err := repo.ListRecent(dbc, 5)
	if err != nil || len(recent) != 1 {
		t.Fatalf("ListRecent: err=%v len=%d", err, len(recent))
	}
}

func TestCacheEntryRepo(t *testing.T) {
	db := testutil.DB(t)
	repo := NewCacheEntryRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}
	now := time.Now().UTC()

	live := &index.CacheEntry{Namespace: "queries", Key: "k1", Value: []byte(`{"a":1}`), CreatedAt: now, ExpiresAt: now.Add(time.Hour), LastAccessedAt: now}
	dead := &index.CacheEntry{Namespace: "queries", Key: "k2", Value: []byte(`1`), CreatedAt: now, ExpiresAt: now.Add(-time.Second), LastAccessedAt: now}
	other := &index.CacheEntry{Namespace: "embeddings", Key: "k2", Value: []byte(`[1]`), CreatedAt: now, ExpiresAt: now.Add(-time.Second), LastAccessedAt: now}
	for _, e := range []*index.CacheEntry{live, dead, other} {
		if err := repo.Upsert(dbc, e); err != nil {
			t.Fatalf("Upsert %s/%s: %v", e.Namespace, e.Key, err)
		}
	}

	if err := repo.Touch(dbc, "queries", "k1", now.Add(time.Minute)); err != nil {
		t.Fatalf("Touch: %v", err)
	}
	got, err := repo.Get(dbc, "queries", "k1")
	if err != nil || got == nil {
		t.Fatalf("Get: %v", err)
	}
	if got.HitCount != 1 {
		t.Fatalf("hit count: want=1 got=%d", got.HitCount)
	}

	n, err := repo.DeleteExpired(dbc, "queries", now)
	if err != nil || n != 1 {
		t.Fatalf("DeleteExpired: err=%v n=%d", err, n)
	}
	if got, _ := repo.Get(dbc, "embeddings", "k2"); got == nil {
		t.Fatalf("sweep must be namespace-scoped")
	}
	if err := repo.Delete(dbc, "queries", "k1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := repo.Get(dbc, "queries", "k1"); got != nil {
		t.Fatalf("expected k1 deleted")
	}
}
