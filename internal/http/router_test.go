package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docindex/internal/domain/index"
	httpH "github.com/yungbote/docindex/internal/http/handlers"
	httpMW "github.com/yungbote/docindex/internal/http/middleware"
	"github.com/yungbote/docindex/internal/http/response"
	"github.com/yungbote/docindex/internal/indexing/query"
	"github.com/yungbote/docindex/internal/indexing/staleness"
	pkgerrors "github.com/yungbote/docindex/internal/pkg/errors"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const secret = "router-test-secret"

type fakeBuilder struct {
	runs   int
	gotID  string
	gotDoc []index.Document
	err    error
}

func (f *fakeBuilder) Run(_ context.Context, buildID string, docs []index.Document) (*index.BuildStatus, error) {
	f.runs++
	f.gotID = buildID
	f.gotDoc = docs
	if f.err != nil {
		return nil, f.err
	}
	one := 1
	return &index.BuildStatus{
		BuildID:     "b-1",
		Status:      index.BuildCompleted,
		TotalDocs:   len(docs),
		Indexed:     1,
		TotalChunks: 1,
		TotalTokens: 3,
		Results:     []index.DocumentResult{{Path: docs[0].Path, Status: index.DocIndexed, ChunksCreated: &one}},
		StartedAt:   time.Now().UTC(),
	}, nil
}

func (f *fakeBuilder) Status(_ context.Context, id string) (*index.BuildStatus, error) {
	if id != "b-1" {
		return nil, pkgerrors.ErrNotFound
	}
	return &index.BuildStatus{BuildID: id, Status: index.BuildRunning}, nil
}

type fakeChecker struct{}

func (fakeChecker) Check(_ context.Context, docs []index.Document) (*staleness.Report, error) {
	return &staleness.Report{
		Results: []staleness.Item{{Path: docs[0].Path, Status: staleness.StatusNew, NewHash: "h"}},
		Summary: staleness.Summary{Total: 1, New: 1},
	}, nil
}

type fakeSearcher struct {
	calls int
	err   error
	got   query.Request
}

func (f *fakeSearcher) Search(_ context.Context, req query.Request) (*query.Response, error) {
	f.calls++
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &query.Response{
		Results: []query.Result{{DocID: "d", Title: "T", Section: "S", Content: "c", Score: 0.9, Category: "guides"}},
		Metrics: query.Metrics{Provider: "exact", ResultCount: 1},
	}, nil
}

type fixture struct {
	router   http.Handler
	builder  *fakeBuilder
	searcher *fakeSearcher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.Nop()
	am, err := httpMW.NewAuthMiddleware(log, secret)
	if err != nil {
		t.Fatalf("NewAuthMiddleware: %v", err)
	}
	f := &fixture{builder: &fakeBuilder{}, searcher: &fakeSearcher{}}
	f.router = NewRouter(RouterConfig{
		Log:            log,
		AuthMiddleware: am,
		IndexHandler:   httpH.NewIndexHandler(log, f.builder, fakeChecker{}),
		QueryHandler:   httpH.NewQueryHandler(log, f.searcher),
		HealthHandler:  httpH.NewHealthHandler(nil),
	})
	return f
}

func token(t *testing.T, role string) string {
	t.Helper()
	tok, err := httpMW.SignToken(secret, "user-1", role, time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	return tok
}

func (f *fixture) do(method, path, tok, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	if tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error envelope: %v body=%s", err, rec.Body.String())
	}
	return env.Error.Code
}

func TestAuthIsCheckedBeforeWork(t *testing.T) {
	f := newFixture(t)
	body := `{"docs":[{"path":"a.md","content":"x"}]}`

	rec := f.do(http.MethodPost, "/api/index", "", body)
	if rec.Code != http.StatusUnauthorized || errorCode(t, rec) != "unauthorized" {
		t.Fatalf("anonymous index: want=401 got=%d", rec.Code)
	}
	rec = f.do(http.MethodPost, "/api/index", token(t, ""), body)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "forbidden" {
		t.Fatalf("non-admin index: want=403 got=%d", rec.Code)
	}
	rec = f.do(http.MethodPost, "/api/query", "", `{"query":"q"}`)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous query: want=401 got=%d", rec.Code)
	}
	if f.builder.runs != 0 || f.searcher.calls != 0 {
		t.Fatalf("rejected requests must do no work: runs=%d searches=%d", f.builder.runs, f.searcher.calls)
	}
}

func TestIndexEndpoint(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodPost, "/api/index", token(t, httpMW.RoleAdmin),
		`{"buildId":" nightly ","docs":[{"path":"guides/a.md","content":"# A\n\nbody","title":"A"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	if f.builder.gotID != "nightly" || f.builder.gotDoc[0].Body != "# A\n\nbody" || f.builder.gotDoc[0].Title != "A" {
		t.Fatalf("request mapping: id=%q docs=%+v", f.builder.gotID, f.builder.gotDoc)
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, k := range []string{"buildId", "status", "indexed", "unchanged", "failed", "totalChunks", "totalTokens", "errors", "results"} {
		if _, ok := got[k]; !ok {
			t.Fatalf("missing field %q in %s", k, rec.Body.String())
		}
	}
	results := got["results"].([]any)
	if first := results[0].(map[string]any); first["chunksCreated"].(float64) != 1 {
		t.Fatalf("chunksCreated: %v", first)
	}

	rec = f.do(http.MethodPost, "/api/index", token(t, httpMW.RoleAdmin), `{"docs":`)
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_request" {
		t.Fatalf("malformed body: want=400 got=%d", rec.Code)
	}
}

func TestIndexEndpointDuplicateBuildID(t *testing.T) {
	f := newFixture(t)
	admin := token(t, httpMW.RoleAdmin)
	body := `{"buildId":"nightly","docs":[{"path":"a.md","content":"x"}]}`

	f.builder.err = fmt.Errorf("create build status nightly: %w", pkgerrors.ErrConflict)
	rec := f.do(http.MethodPost, "/api/index", admin, body)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "conflict" {
		t.Fatalf("duplicate build id: want=409 conflict got=%d %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "build nightly already exists") {
		t.Fatalf("conflict message: %s", rec.Body.String())
	}

	f.builder.err = errors.New("database is locked")
	rec = f.do(http.MethodPost, "/api/index", admin, body)
	if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != "build_failed" {
		t.Fatalf("storage failure: want=500 build_failed got=%d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "locked") {
		t.Fatalf("storage error leaked: %s", rec.Body.String())
	}
}

func TestStaleAndBuildStatusEndpoints(t *testing.T) {
	f := newFixture(t)
	admin := token(t, httpMW.RoleAdmin)

	rec := f.do(http.MethodPost, "/api/index/stale", admin, `{"docs":[{"path":"a.md","content":"x"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("stale: want=200 got=%d", rec.Code)
	}
	var report staleness.Report
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil || report.Summary.New != 1 {
		t.Fatalf("stale report: %s", rec.Body.String())
	}

	if rec := f.do(http.MethodGet, "/api/index/builds/b-1", admin, ""); rec.Code != http.StatusOK {
		t.Fatalf("build status: want=200 got=%d", rec.Code)
	}
	rec = f.do(http.MethodGet, "/api/index/builds/nope", admin, "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "not_found" {
		t.Fatalf("unknown build: want=404 got=%d", rec.Code)
	}
}

func TestQueryEndpoint(t *testing.T) {
	f := newFixture(t)
	reader := token(t, "")

	rec := f.do(http.MethodPost, "/api/query", reader, `{"query":"install","category":"guides","topK":3,"minScore":0.65,"hybridSearch":true}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("query: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	got := f.searcher.got
	if got.Query != "install" || got.Category != "guides" || got.TopK != 3 || !got.Hybrid || got.MinScore == nil || *got.MinScore != 0.65 {
		t.Fatalf("request mapping: %+v", got)
	}
	var resp query.Response
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || len(resp.Results) != 1 || resp.Metrics.Provider != "exact" {
		t.Fatalf("response: %s", rec.Body.String())
	}

	for _, body := range []string{`{}`, `{"query":"q","topK":500}`, `{"query":"q","minScore":3}`} {
		rec := f.do(http.MethodPost, "/api/query", reader, body)
		if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_request" {
			t.Fatalf("%s: want=400 got=%d", body, rec.Code)
		}
	}

	f.searcher.err = errors.New("qdrant unavailable")
	rec = f.do(http.MethodPost, "/api/query", reader, `{"query":"install"}`)
	if rec.Code != http.StatusInternalServerError || errorCode(t, rec) != "search_failed" {
		t.Fatalf("backend failure: want=500 search_failed got=%d %s", rec.Code, rec.Body.String())
	}
	if bytes.Contains(rec.Body.Bytes(), []byte("qdrant")) {
		t.Fatalf("internal error leaked: %s", rec.Body.String())
	}
}

func TestHealthAndTraceHeaders(t *testing.T) {
	f := newFixture(t)
	rec := f.do(http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("healthz: want=200 got=%d", rec.Code)
	}
	if rec.Header().Get("X-Request-Id") == "" || rec.Header().Get("X-Trace-Id") == "" {
		t.Fatalf("trace headers missing: %v", rec.Header())
	}
}
