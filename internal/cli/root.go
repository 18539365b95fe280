package cli

import (
	"context"
	"errors"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yungbote/docindex/internal/domain/index"
	"github.com/yungbote/docindex/internal/indexing/query"
	"github.com/yungbote/docindex/internal/indexing/staleness"
)

type Builder interface {
	Run(ctx context.Context, buildID string, docs []index.Document) (*index.BuildStatus, error)
	Status(ctx context.Context, buildID string) (*index.BuildStatus, error)
	Recent(ctx context.Context, limit int) ([]*index.BuildStatus, error)
}

type StaleChecker interface {
	Check(ctx context.Context, docs []index.Document) (*staleness.Report, error)
}

type Searcher interface {
	Search(ctx context.Context, req query.Request) (*query.Response, error)
}

type Services struct {
	Builder Builder
	Stale   StaleChecker
	Search  Searcher
}

// Factory connects the services on first use, so --help and argument errors
// never touch the database or the embedding provider.
type Factory func(ctx context.Context) (*Services, func(), error)

var (
	factory       Factory
	services      *Services
	closeServices func()
	servicesMu    sync.Mutex
)

var rootCmd = &cobra.Command{
	Use:   "indexctl",
	Short: "Index and search documentation",
	Long: `indexctl builds and queries the docindex document index.
It reads markdown files from a directory, detects which ones changed,
embeds the changed ones and answers semantic queries against the index.`,
	SilenceUsage: true,
}

func SetFactory(f Factory) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	factory = f
}

func loadServices(ctx context.Context) (*Services, error) {
	servicesMu.Lock()
	defer servicesMu.Unlock()
	if services != nil {
		return services, nil
	}
	if factory == nil {
		return nil, errors.New("services not configured")
	}
	s, closeFn, err := factory(ctx)
	if err != nil {
		return nil, err
	}
	services, closeServices = s, closeFn
	return services, nil
}

// Execute runs the root command and releases any services it opened.
func Execute(ctx context.Context) error {
	defer func() {
		servicesMu.Lock()
		defer servicesMu.Unlock()
		if closeServices != nil {
			closeServices()
		}
		services, closeServices = nil, nil
	}()
	return rootCmd.ExecuteContext(ctx)
}
