package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/yungbote/docindex/internal/observability"
	"github.com/yungbote/docindex/internal/platform/ctxutil"
	"github.com/yungbote/docindex/internal/platform/envutil"
	"github.com/yungbote/docindex/internal/platform/httpx"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const maxErrorBodyBytes = 2048

// Client is the boundary to an OpenAI-compatible embeddings endpoint.
type Client interface {
	Embed(ctx context.Context, inputs []string) (EmbedResult, error)
	EmbedModel() string
}

type EmbedResult struct {
	Vectors      [][]float32
	PromptTokens int
	TotalTokens  int
}

type Config struct {
	BaseURL           string
	APIKey            string
	EmbedModel        string
	Dimensions        int
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerSecond float64
	Burst             int
}

func ConfigFromEnv() Config {
	return Config{
		BaseURL:           envutil.String("OPENAI_BASE_URL", "https://api.openai.com"),
		APIKey:            envutil.String("OPENAI_API_KEY", ""),
		EmbedModel:        envutil.String("OPENAI_EMBED_MODEL", "text-embedding-3-small"),
		Dimensions:        envutil.Int("EMBEDDING_DIM", 1536),
		Timeout:           envutil.Seconds("OPENAI_TIMEOUT_SECONDS", 60*time.Second),
		MaxRetries:        envutil.Int("OPENAI_MAX_RETRIES", 4),
		RequestsPerSecond: envutil.Float("OPENAI_REQUESTS_PER_SECOND", 5),
		Burst:             envutil.Int("OPENAI_REQUESTS_BURST", 5),
	}
}

// HTTPError is a non-2xx response from the provider. Message holds the
// provider's human-readable error when the body carried one.
type HTTPError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("openai http %d: %s", e.StatusCode, e.Body)
}

func (e *HTTPError) HTTPStatusCode() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

type client struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	embedModel string
	dims       int
	httpClient *http.Client
	limiter    *rate.Limiter
	maxRetries int
	backoff    time.Duration
}

func NewClient(log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("missing OPENAI_API_KEY")
	}
	return newClient(log, cfg, &http.Client{Timeout: cfg.Timeout}), nil
}

func newClient(log *logger.Logger, cfg Config, httpClient *http.Client) *client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	model := strings.TrimSpace(cfg.EmbedModel)
	if model == "" {
		model = "text-embedding-3-small"
	}
	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}
	return &client{
		log:        log.With("service", "OpenAIEmbeddings"),
		baseURL:    baseURL,
		apiKey:     cfg.APIKey,
		embedModel: model,
		dims:       cfg.Dimensions,
		httpClient: httpClient,
		limiter:    limiter,
		maxRetries: maxRetries,
		backoff:    time.Second,
	}
}

func (c *client) EmbedModel() string { return c.embedModel }

type embeddingsRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingsResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *client) Embed(ctx context.Context, inputs []string) (EmbedResult, error) {
	if len(inputs) == 0 {
		return EmbedResult{Vectors: [][]float32{}}, nil
	}
	clean := make([]string, len(inputs))
	for i := range inputs {
		s := strings.TrimSpace(inputs[i])
		if s == "" {
			s = " "
		}
		clean[i] = s
	}

	var resp embeddingsResponse
	if err := c.do(ctx, http.MethodPost, "/v1/embeddings", embeddingsRequest{Model: c.embedModel, Input: clean}, &resp); err != nil {
		return EmbedResult{}, err
	}

	out := make([][]float32, len(clean))
	for pos, d := range resp.Data {
		idx := d.Index
		if idx < 0 || idx >= len(out) || out[idx] != nil {
			idx = pos
		}
		if idx >= len(out) {
			continue
		}
		vec := make([]float32, len(d.Embedding))
		for i, f := range d.Embedding {
			vec[i] = float32(f)
		}
		out[idx] = vec
	}
	for i := range out {
		if len(out[i]) == 0 {
			return EmbedResult{}, fmt.Errorf("openai embeddings missing index %d: requested=%d returned=%d model=%s", i, len(clean), len(resp.Data), c.embedModel)
		}
		if c.dims > 0 && len(out[i]) != c.dims {
			return EmbedResult{}, fmt.Errorf("openai embedding dimension mismatch: expected=%d got=%d model=%s", c.dims, len(out[i]), c.embedModel)
		}
	}
	return EmbedResult{
		Vectors:      out,
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}, nil
}

func (c *client) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, newHTTPError(resp.StatusCode, raw)
	}
	return resp, raw, nil
}

func (c *client) do(ctx context.Context, method, path string, body any, out any) error {
	ctx = ctxutil.Default(ctx)
	backoff := c.backoff
	start := time.Now()

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		resp, raw, err := c.doOnce(ctx, method, path, body)
		if err == nil {
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				c.observe(start, "decode_error", 0)
				return fmt.Errorf("openai decode error: %w", uErr)
			}
			c.observe(start, "ok", totalTokensFromRaw(raw))
			return nil
		}
		if !httpx.IsRetryableError(err) || attempt == c.maxRetries {
			c.observe(start, statusLabel(err), 0)
			return err
		}

		sleepFor := httpx.JitterSleep(httpx.RetryAfterDuration(resp, backoff, 10*time.Second))
		c.log.Warn("OpenAI request retrying",
			"path", path,
			"attempt", attempt+1,
			"max_retries", c.maxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := httpx.Sleep(ctx, sleepFor); err != nil {
			return err
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}

func (c *client) observe(start time.Time, status string, tokens int) {
	if m := observability.Current(); m != nil {
		m.ObserveEmbeddingRequest(c.embedModel, status, time.Since(start), tokens)
	}
}

func newHTTPError(status int, raw []byte) *HTTPError {
	e := &HTTPError{StatusCode: status}
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Error) > 0 {
		var obj struct {
			Message string `json:"message"`
		}
		var s string
		if json.Unmarshal(envelope.Error, &obj) == nil && strings.TrimSpace(obj.Message) != "" {
			e.Message = strings.TrimSpace(obj.Message)
		} else if json.Unmarshal(envelope.Error, &s) == nil {
			e.Message = strings.TrimSpace(s)
		}
	}
	if len(raw) > maxErrorBodyBytes {
		raw = raw[:maxErrorBodyBytes]
	}
	e.Body = string(raw)
	return e
}

func statusLabel(err error) string {
	var he *HTTPError
	if errors.As(err, &he) {
		return fmt.Sprintf("%d", he.StatusCode)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "timeout"
	}
	return "error"
}

func totalTokensFromRaw(raw []byte) int {
	var u struct {
		Usage struct {
			TotalTokens int `json:"total_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(raw, &u); err != nil {
		return 0
	}
	return u.Usage.TotalTokens
}
