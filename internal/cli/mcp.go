package cli

import (
	"github.com/spf13/cobra"

	"github.com/yungbote/docindex/internal/mcpserver"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve search_docs and check_staleness over MCP (stdio)",
	Args:  cobra.NoArgs,
	RunE:  runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	server, err := mcpserver.NewServer(&mcpserver.Ports{Search: svc.Search, Stale: svc.Stale})
	if err != nil {
		return err
	}
	return server.Run(cmd.Context())
}
