package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/docindex/internal/platform/ctxutil"
	"github.com/yungbote/docindex/internal/platform/logger"
)

const (
	payloadNamespaceKey = "_docindex_namespace"
	payloadPointIDKey   = "_docindex_id"
	maxErrorBodyBytes   = 1024
)

var pointIDNamespaceUUID = uuid.MustParse("0f1705d1-2c3f-4e40-b2f4-f855f7d3c8e8")

// Point is one vector with its payload. ID is caller-chosen and stable.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

type Match struct {
	ID      string
	Score   float64
	Payload map[string]any
}

// Client is the REST boundary to one Qdrant collection.
type Client interface {
	Upsert(ctx context.Context, points []Point) error
	Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error)
	DeleteByFilter(ctx context.Context, filter Filter) error
	Collection() string
}

type client struct {
	log       *logger.Logger
	cfg       Config
	baseURL   string
	namespace string
	distance  string
	http      *http.Client
}

type qdrantEnvelope struct {
	Result json.RawMessage `json:"result"`
	Status json.RawMessage `json:"status"`
	Time   float64         `json:"time"`
}

type qdrantSearchResultItem struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

// NewClient validates cfg and checks that the collection is reachable and
// sized for cfg.VectorDim before returning.
func NewClient(ctx context.Context, log *logger.Logger, cfg Config) (Client, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if err := ValidateConfig(cfg, true); err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	c := newClient(log, cfg, &http.Client{Timeout: timeout})
	if err := c.verifyReady(ctx); err != nil {
		return nil, err
	}
	log.Info(
		"Qdrant vector store selected",
		"provider", "qdrant",
		"url", c.baseURL,
		"collection", cfg.Collection,
		"namespace", c.namespace,
		"vector_dim", cfg.VectorDim,
		"distance", c.distance,
	)
	return c, nil
}

func newClient(log *logger.Logger, cfg Config, httpClient *http.Client) *client {
	ns := strings.TrimSpace(cfg.Namespace)
	if ns == "" {
		ns = "docs"
	}
	return &client{
		log:       log.With("service", "QdrantClient"),
		cfg:       cfg,
		baseURL:   strings.TrimRight(cfg.URL, "/"),
		namespace: ns,
		http:      httpClient,
	}
}

func (c *client) Collection() string { return c.cfg.Collection }

func (c *client) Upsert(ctx context.Context, points []Point) error {
	const op = "upsert"
	if len(points) == 0 {
		return nil
	}
	wire := make([]map[string]any, 0, len(points))
	for _, p := range points {
		id := strings.TrimSpace(p.ID)
		if id == "" {
			return opErr(op, OperationErrorValidation, "point id is required", nil)
		}
		if len(p.Vector) == 0 {
			return opErr(op, OperationErrorValidation, fmt.Sprintf("point %q has empty vector", id), nil)
		}
		if c.cfg.VectorDim > 0 && len(p.Vector) != c.cfg.VectorDim {
			return opErr(
				op,
				OperationErrorValidation,
				fmt.Sprintf("point %q dimension mismatch: expected=%d got=%d", id, c.cfg.VectorDim, len(p.Vector)),
				nil,
			)
		}
		payload := clonePayload(p.Payload)
		payload[payloadNamespaceKey] = c.namespace
		payload[payloadPointIDKey] = id
		wire = append(wire, map[string]any{
			"id":      c.pointID(id),
			"vector":  p.Vector,
			"payload": payload,
		})
	}
	return c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/points?wait=true"), map[string]any{"points": wire}, nil)
}

// Search returns matches in the order Qdrant ranked them. Scores for distance
// metrics are mapped into (0, 1] so larger is always closer.
func (c *client) Search(ctx context.Context, vector []float32, limit int, filter Filter) ([]Match, error) {
	const op = "search"
	if len(vector) == 0 {
		return nil, opErr(op, OperationErrorValidation, "query vector required", nil)
	}
	if c.cfg.VectorDim > 0 && len(vector) != c.cfg.VectorDim {
		return nil, opErr(
			op,
			OperationErrorValidation,
			fmt.Sprintf("query vector dimension mismatch: expected=%d got=%d", c.cfg.VectorDim, len(vector)),
			nil,
		)
	}
	if limit <= 0 {
		limit = 10
	}
	wireFilter, err := filter.wire(c.namespace)
	if err != nil {
		var typed *OperationError
		if errors.As(err, &typed) && typed.Code == OperationErrorUnsupportedFilter {
			c.log.Warn("qdrant search filter unsupported", "error", err)
		}
		return nil, err
	}

	req := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
		"filter":       wireFilter,
	}
	var raw []qdrantSearchResultItem
	if err := c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/search"), req, &raw); err != nil {
		return nil, err
	}

	out := make([]Match, 0, len(raw))
	for _, item := range raw {
		id := extractPointID(item)
		if id == "" {
			continue
		}
		payload := clonePayload(item.Payload)
		delete(payload, payloadNamespaceKey)
		delete(payload, payloadPointIDKey)
		out = append(out, Match{ID: id, Score: c.normalizeScore(item.Score), Payload: payload})
	}
	return out, nil
}

func (c *client) DeleteByFilter(ctx context.Context, filter Filter) error {
	const op = "delete"
	if filter.IsEmpty() {
		return opErr(op, OperationErrorValidation, "refusing to delete without a filter", nil)
	}
	wireFilter, err := filter.wire(c.namespace)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, op, http.MethodPost, c.collectionPath("/points/delete?wait=true"), map[string]any{"filter": wireFilter}, nil)
}

func (c *client) verifyReady(ctx context.Context) error {
	const op = "bootstrap_verify"

	readyReq, err := http.NewRequestWithContext(ctxutil.Default(ctx), http.MethodGet, c.baseURL+"/readyz", nil)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build ready request failed", err)
	}
	readyResp, err := c.http.Do(readyReq)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant ready check failed", err)
	}
	_ = readyResp.Body.Close()
	if readyResp.StatusCode < 200 || readyResp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: readyResp.StatusCode,
			Message:    fmt.Sprintf("qdrant ready check returned status=%d", readyResp.StatusCode),
		}
	}

	var result struct {
		Config struct {
			Params struct {
				Vectors struct {
					Size     int    `json:"size"`
					Distance string `json:"distance"`
				} `json:"vectors"`
			} `json:"params"`
		} `json:"config"`
	}
	err = c.doJSON(ctx, op, http.MethodGet, c.collectionPath(""), nil, &result)
	var typed *OperationError
	if errors.As(err, &typed) && typed.StatusCode == http.StatusNotFound && c.cfg.CreateCollection {
		return c.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	size := result.Config.Params.Vectors.Size
	if size != 0 && size != c.cfg.VectorDim {
		return &OperationError{
			Code:      OperationErrorValidation,
			Operation: op,
			Message: fmt.Sprintf(
				"qdrant collection %q vector size mismatch: expected=%d actual=%d",
				c.cfg.Collection,
				c.cfg.VectorDim,
				size,
			),
		}
	}
	c.distance = strings.TrimSpace(result.Config.Params.Vectors.Distance)
	return nil
}

// createCollection creates a cosine collection with keyword indexes on the
// payload fields used by filters.
func (c *client) createCollection(ctx context.Context) error {
	const op = "create_collection"
	req := map[string]any{
		"vectors": map[string]any{"size": c.cfg.VectorDim, "distance": "Cosine"},
	}
	if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath(""), req, nil); err != nil {
		return err
	}
	for _, field := range []string{payloadNamespaceKey, "doc_id", "category"} {
		idx := map[string]any{"field_name": field, "field_schema": "keyword"}
		if err := c.doJSON(ctx, op, http.MethodPut, c.collectionPath("/index?wait=true"), idx, nil); err != nil {
			return err
		}
	}
	c.distance = "Cosine"
	c.log.Info("qdrant collection created", "collection", c.cfg.Collection, "vector_dim", c.cfg.VectorDim)
	return nil
}

func (c *client) doJSON(ctx context.Context, op, method, path string, in any, out any) error {
	var body io.Reader
	if in != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(in); err != nil {
			return opErr(op, OperationErrorEncodeFailed, "encode request failed", err)
		}
		body = &buf
	}

	req, err := http.NewRequestWithContext(ctxutil.Default(ctx), method, c.baseURL+path, body)
	if err != nil {
		return opErr(op, OperationErrorTransportFailed, "build request failed", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return classifyHTTPCallError(op, "qdrant request failed", err)
	}
	defer resp.Body.Close()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<22))
	if readErr != nil {
		return opErr(op, OperationErrorDecodeFailed, "read response failed", readErr)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("qdrant http status=%d body=%q", resp.StatusCode, truncateBody(raw)),
		}
	}

	var envelope qdrantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant envelope failed", err)
	}
	if statusErr := parseEnvelopeStatus(envelope.Status); statusErr != "" {
		return &OperationError{
			Code:       OperationErrorQueryFailed,
			Operation:  op,
			StatusCode: resp.StatusCode,
			Message:    statusErr,
		}
	}

	if out == nil || len(envelope.Result) == 0 || string(envelope.Result) == "null" {
		return nil
	}
	if err := json.Unmarshal(envelope.Result, out); err != nil {
		return opErr(op, OperationErrorDecodeFailed, "decode qdrant result failed", err)
	}
	return nil
}

func classifyHTTPCallError(op, message string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return opErr(op, OperationErrorTimeout, message, err)
	}
	return opErr(op, OperationErrorTransportFailed, message, err)
}

func parseEnvelopeStatus(raw json.RawMessage) string {
	status := strings.TrimSpace(string(raw))
	if status == "" || status == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if strings.EqualFold(s, "ok") {
			return ""
		}
		return fmt.Sprintf("qdrant status=%q", s)
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil && strings.TrimSpace(obj.Error) != "" {
		return strings.TrimSpace(obj.Error)
	}
	return fmt.Sprintf("qdrant status=%s", status)
}

func truncateBody(raw []byte) string {
	if len(raw) <= maxErrorBodyBytes {
		return string(raw)
	}
	return string(raw[:maxErrorBodyBytes]) + "..."
}

func clonePayload(in map[string]any) map[string]any {
	out := make(map[string]any, len(in)+2)
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (c *client) pointID(id string) string {
	return uuid.NewSHA1(pointIDNamespaceUUID, []byte(c.namespace+"|"+id)).String()
}

func (c *client) collectionPath(suffix string) string {
	return "/collections/" + c.cfg.Collection + suffix
}

func extractPointID(item qdrantSearchResultItem) string {
	if id, ok := item.Payload[payloadPointIDKey].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	if len(item.ID) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(item.ID, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n int64
	if err := json.Unmarshal(item.ID, &n); err == nil {
		return fmt.Sprintf("%d", n)
	}
	return ""
}

func (c *client) normalizeScore(score float64) float64 {
	switch strings.ToLower(strings.TrimSpace(c.distance)) {
	case "euclid", "manhattan":
		if score < 0 {
			score = -score
		}
		return 1.0 / (1.0 + score)
	default:
		return score
	}
}
