package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/yungbote/docindex/internal/platform/logger"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

func newTestClient(t *testing.T, dims int, rt roundTripFunc) *client {
	t.Helper()
	c := newClient(logger.Nop(), Config{APIKey: "sk-test", Dimensions: dims, MaxRetries: 2}, &http.Client{Transport: rt})
	c.backoff = time.Millisecond
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func TestEmbedOrdersByIndex(t *testing.T) {
	c := newTestClient(t, 2, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path != "/v1/embeddings" {
			t.Fatalf("path: want=/v1/embeddings got=%q", req.URL.Path)
		}
		if got := req.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Fatalf("authorization header: got=%q", got)
		}
		var body embeddingsRequest
		if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if len(body.Input) != 2 || body.Input[1] != " " {
			t.Fatalf("inputs: got=%q", body.Input)
		}
		return jsonResponse(200, `{"data":[{"index":1,"embedding":[0,1]},{"index":0,"embedding":[1,0]}],"usage":{"prompt_tokens":3,"total_tokens":3}}`), nil
	})

	res, err := c.Embed(context.Background(), []string{"hello", "   "})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if res.Vectors[0][0] != 1 || res.Vectors[1][1] != 1 {
		t.Fatalf("vectors out of order: %v", res.Vectors)
	}
	if res.TotalTokens != 3 {
		t.Fatalf("tokens: want=3 got=%d", res.TotalTokens)
	}
}

func TestEmbedNon2xxIsHardFailureWithMessage(t *testing.T) {
	var calls int32
	c := newTestClient(t, 0, func(req *http.Request) (*http.Response, error) {
		atomic.AddInt32(&calls, 1)
		return jsonResponse(401, `{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`), nil
	})

	_, err := c.Embed(context.Background(), []string{"x"})
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if he.StatusCode != 401 || he.Message != "Incorrect API key provided" {
		t.Fatalf("unexpected error: %+v", he)
	}
	if !strings.Contains(err.Error(), "Incorrect API key") {
		t.Fatalf("error text should carry message: %q", err.Error())
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("401 must not be retried, calls=%d", calls)
	}
}

func TestEmbedRetriesRateLimit(t *testing.T) {
	var calls int32
	c := newTestClient(t, 0, func(req *http.Request) (*http.Response, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return jsonResponse(429, `{"error":{"message":"slow down"}}`), nil
		}
		return jsonResponse(200, `{"data":[{"index":0,"embedding":[0.5]}]}`), nil
	})

	res, err := c.Embed(context.Background(), []string{"x"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(res.Vectors) != 1 || atomic.LoadInt32(&calls) != 2 {
		t.Fatalf("want one vector after one retry, calls=%d", calls)
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	c := newTestClient(t, 3, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"data":[{"index":0,"embedding":[0.5,0.5]}]}`), nil
	})
	if _, err := c.Embed(context.Background(), []string{"x"}); err == nil || !strings.Contains(err.Error(), "dimension mismatch") {
		t.Fatalf("expected dimension mismatch, got %v", err)
	}
}

func TestNewClientRequiresAPIKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err == nil {
		t.Fatalf("expected missing key error")
	}
}
