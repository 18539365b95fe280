package mcpserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/indexing/query"
	"github.com/yungbote/docindex/internal/indexing/staleness"
)

const Version = "0.1.0"

type Searcher interface {
	Search(ctx context.Context, req query.Request) (*query.Response, error)
}

type StaleChecker interface {
	Check(ctx context.Context, docs []index.Document) (*staleness.Report, error)
}

// Ports are the services the tools call into.
type Ports struct {
	Search Searcher
	Stale  StaleChecker
}

func (p *Ports) Validate() error {
	if p == nil {
		return errors.New("ports required")
	}
	if p.Search == nil {
		return errors.New("search service required")
	}
	if p.Stale == nil {
		return errors.New("stale checker required")
	}
	return nil
}

type Server struct {
	ports  *Ports
	server *mcp.Server
}

func NewServer(ports *Ports) (*Server, error) {
	if err := ports.Validate(); err != nil {
		return nil, fmt.Errorf("validating ports: %w", err)
	}
	s := &Server{
		ports:  ports,
		server: mcp.NewServer(&mcp.Implementation{Name: "docindex", Version: Version}, nil),
	}
	s.registerTools()
	return s, nil
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}
