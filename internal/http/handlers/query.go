package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/docindex/internal/http/response"
	"github.com/yungbote/docindex/internal/indexing/query"
	"github.com/yungbote/docindex/internal/platform/logger"
)

type Searcher interface {
	Search(ctx context.Context, req query.Request) (*query.Response, error)
}

type QueryHandler struct {
	log      *logger.Logger
	searcher Searcher
}

func NewQueryHandler(log *logger.Logger, searcher Searcher) *QueryHandler {
	return &QueryHandler{log: log.With("handler", "QueryHandler"), searcher: searcher}
}

type queryRequest struct {
	Query        string   `json:"query" binding:"required"`
	Category     string   `json:"category" binding:"omitempty,max=64"`
	TopK         int      `json:"topK" binding:"omitempty,min=1,max=50"`
	MinScore     *float64 `json:"minScore" binding:"omitempty,min=-1,max=1"`
	HybridSearch bool     `json:"hybridSearch"`
}

// POST /api/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	resp, err := h.searcher.Search(c.Request.Context(), query.Request{
		Query:    req.Query,
		Category: req.Category,
		TopK:     req.TopK,
		MinScore: req.MinScore,
		Hybrid:   req.HybridSearch,
	})
	if errors.Is(err, query.ErrEmptyQuery) {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	if err != nil {
		h.log.Error("search failed", "error", err)
		response.RespondError(c, http.StatusInternalServerError, "search_failed", errors.New("search failed"))
		return
	}
	response.RespondOK(c, resp)
}
