package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/http/response"
	"github.com/yungbote/docindex/internal/indexing/staleness"
	pkgerrors "github.com/yungbote/docindex/internal/pkg/errors"
	"github.com/yungbote/docindex/internal/platform/apierr"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type Builder interface {
	Run(ctx context.Context, buildID string, docs []index.Document) (*index.BuildStatus, error)
	Status(ctx context.Context, buildID string) (*index.BuildStatus, error)
}

type StaleChecker interface {
	Check(ctx context.Context, docs []index.Document) (*staleness.Report, error)
}

type IndexHandler struct {
	log     *logger.Logger
	builder Builder
	checker StaleChecker
}

func NewIndexHandler(log *logger.Logger, builder Builder, checker StaleChecker) *IndexHandler {
	return &IndexHandler{log: log.With("handler", "IndexHandler"), builder: builder, checker: checker}
}

type docInput struct {
	Path    string   `json:"path"`
	Content string   `json:"content"`
	Title   string   `json:"title"`
	Tags    []string `json:"tags"`
}

type indexRequest struct {
	Docs    []docInput `json:"docs" binding:"required"`
	BuildID string     `json:"buildId" binding:"omitempty,max=64"`
}

type staleRequest struct {
	Docs []docInput `json:"docs" binding:"required"`
}

// BuildResponse is the client view of a build status.
type BuildResponse struct {
	BuildID     string                 `json:"buildId"`
	Status      string                 `json:"status"`
	TotalDocs   int                    `json:"totalDocs"`
	Indexed     int                    `json:"indexed"`
	Unchanged   int                    `json:"unchanged"`
	Failed      int                    `json:"failed"`
	TotalChunks int                    `json:"totalChunks"`
	TotalTokens int                    `json:"totalTokens"`
	Errors      []string               `json:"errors"`
	Results     []index.DocumentResult `json:"results"`
	StartedAt   time.Time              `json:"startedAt"`
	FinishedAt  *time.Time             `json:"finishedAt,omitempty"`
}

func NewBuildResponse(st *index.BuildStatus) BuildResponse {
	out := BuildResponse{
		BuildID:     st.BuildID,
		Status:      st.Status,
		TotalDocs:   st.TotalDocs,
		Indexed:     st.Indexed,
		Unchanged:   st.Unchanged,
		Failed:      st.Failed,
		TotalChunks: st.TotalChunks,
		TotalTokens: st.TotalTokens,
		Errors:      []string(st.Errors),
		Results:     []index.DocumentResult(st.Results),
		StartedAt:   st.StartedAt,
		FinishedAt:  st.FinishedAt,
	}
	if out.Errors == nil {
		out.Errors = []string{}
	}
	if out.Results == nil {
		out.Results = []index.DocumentResult{}
	}
	return out
}

func toDocuments(in []docInput) []index.Document {
	out := make([]index.Document, len(in))
	for i, d := range in {
		out[i] = index.Document{Path: d.Path, Title: d.Title, Body: d.Content, Tags: d.Tags}
	}
	return out
}

// POST /api/index
func (h *IndexHandler) Build(c *gin.Context) {
	var req indexRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	buildID := strings.TrimSpace(req.BuildID)
	st, err := h.builder.Run(c.Request.Context(), buildID, toDocuments(req.Docs))
	if errors.Is(err, pkgerrors.ErrConflict) {
		response.RespondAPIError(c, apierr.Conflict("conflict", fmt.Errorf("build %s already exists", buildID)))
		return
	}
	if err != nil {
		h.log.Error("build failed to start or persist", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "build_failed", errors.New("build could not be recorded"))
		return
	}
	response.RespondOK(c, NewBuildResponse(st))
}

// POST /api/index/stale
func (h *IndexHandler) Stale(c *gin.Context) {
	var req staleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	report, err := h.checker.Check(c.Request.Context(), toDocuments(req.Docs))
	if err != nil {
		h.log.Error("stale check failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "stale_check_failed", errors.New("stale check failed"))
		return
	}
	response.RespondOK(c, report)
}

// GET /api/index/builds/:id
func (h *IndexHandler) GetBuild(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	st, err := h.builder.Status(c.Request.Context(), id)
	if errors.Is(err, pkgerrors.ErrNotFound) {
		response.RespondError(c, http.StatusNotFound, "not_found", errors.New("build not found"))
		return
	}
	if err != nil {
		h.log.Error("load build failed", "build_id", id, "error", err)
		response.RespondError(c, http.StatusInternalServerError, "internal_error", errors.New("internal error"))
		return
	}
	response.RespondOK(c, NewBuildResponse(st))
}
