package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/indexing/query"
	"github.com/yungbote/docindex/internal/indexing/staleness"
)

type SearchInput struct {
	Query    string   `json:"query" jsonschema:"natural language question to search the documentation for"`
	Category string   `json:"category,omitempty" jsonschema:"restrict results to one category such as api or guides"`
	TopK     int      `json:"topK,omitempty" jsonschema:"maximum number of results (default 5, max 50)"`
	MinScore *float64 `json:"minScore,omitempty" jsonschema:"minimum similarity score between -1 and 1 (default 0.7)"`
	Hybrid   bool     `json:"hybrid,omitempty" jsonschema:"rerank candidates with keyword relevance"`
}

type SearchOutput struct {
	Results []query.Result `json:"results"`
	Count   int            `json:"count"`
	Cached  bool           `json:"cached"`
}

type DocInput struct {
	Path    string `json:"path" jsonschema:"document path relative to the docs root"`
	Content string `json:"content" jsonschema:"full document content"`
}

type StaleInput struct {
	Docs []DocInput `json:"docs" jsonschema:"documents to compare against the index"`
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_docs",
		Description: "Semantic search over the indexed documentation",
	}, s.handleSearch)
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "check_staleness",
		Description: "Report which documents are new, current or stale relative to the index",
	}, s.handleStale)
}

func (s *Server) handleSearch(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, SearchOutput, error) {
	resp, err := s.ports.Search.Search(ctx, query.Request{
		Query:    input.Query,
		Category: input.Category,
		TopK:     input.TopK,
		MinScore: input.MinScore,
		Hybrid:   input.Hybrid,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}
	return nil, SearchOutput{
		Results: resp.Results,
		Count:   len(resp.Results),
		Cached:  resp.Metrics.Cached,
	}, nil
}

func (s *Server) handleStale(ctx context.Context, _ *mcp.CallToolRequest, input StaleInput) (*mcp.CallToolResult, staleness.Report, error) {
	docs := make([]index.Document, len(input.Docs))
	for i, d := range input.Docs {
		docs[i] = index.Document{Path: d.Path, Body: d.Content}
	}
	report, err := s.ports.Stale.Check(ctx, docs)
	if err != nil {
		return nil, staleness.Report{}, err
	}
	return nil, *report, nil
}
