package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docindex/internal/data/db"
	"github.com/yungbote/docindex/internal/data/repos/testutil"
	"github.com/yungbote/docindex/internal/platform/openai"
)

func testConfig(t *testing.T) Config {
	t.Helper()
	return Config{
		ServiceName: "docindex-test",
		JWTSecret:   "secret",
		DB: db.Config{
			Driver:     db.DriverSQLite,
			SQLitePath: filepath.Join(t.TempDir(), "docindex.db"),
		},
		OpenAI:           openai.Config{APIKey: "test-key", EmbedModel: "text-embedding-3-small"},
		ChunkMaxChars:    1500,
		BuildConcurrency: 2,
		CacheBackend:     CacheBackendDB,
		VectorProvider:   "exact",
	}
}

func TestNewWiresServices(t *testing.T) {
	gin.SetMode(gin.TestMode)
	a, err := New(context.Background(), testutil.Logger(t), testConfig(t))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)

	s := a.Services
	if s.Builder == nil || s.Query == nil || s.Detector == nil || s.Embedder == nil || s.Sweeper == nil {
		t.Fatalf("services not wired: %+v", s)
	}
	if s.Store.Provider() != "exact" || s.CacheStore.Name() != "db" {
		t.Fatalf("backends: store=%s cache=%s", s.Store.Provider(), s.CacheStore.Name())
	}
	if s.Categories.Resolve("api/auth.md") != "api" {
		t.Fatalf("default category table not loaded")
	}

	r, err := a.Router()
	if err != nil {
		t.Fatalf("Router: %v", err)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: want=200 got=%d", rec.Code)
	}
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/query", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated query: want=401 got=%d", rec.Code)
	}
}

func TestNewFailsWithoutEmbeddingKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.OpenAI.APIKey = ""
	if _, err := New(context.Background(), testutil.Logger(t), cfg); err == nil {
		t.Fatalf("want error without OPENAI_API_KEY")
	}
}

func TestRouterRequiresSecret(t *testing.T) {
	cfg := testConfig(t)
	cfg.CacheBackend = CacheBackendNone
	a, err := New(context.Background(), testutil.Logger(t), cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(a.Close)
	if a.Services.CacheStore.Name() != "none" {
		t.Fatalf("cache backend: got=%s", a.Services.CacheStore.Name())
	}
	a.Cfg.JWTSecret = ""
	if _, err := a.Router(); err == nil {
		t.Fatalf("want error without JWT secret")
	}
}
