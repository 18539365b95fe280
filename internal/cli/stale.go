package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var staleJSON bool

var staleCmd = &cobra.Command{
	Use:   "stale [dir]",
	Short: "Show which markdown files need re-indexing",
	Args:  cobra.ExactArgs(1),
	RunE:  runStale,
}

func init() {
	staleCmd.Flags().BoolVar(&staleJSON, "json", false, "output the report as JSON")
	rootCmd.AddCommand(staleCmd)
}

func runStale(cmd *cobra.Command, args []string) error {
	docs, err := loadDocs(args[0])
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	report, err := svc.Stale.Check(cmd.Context(), docs)
	if err != nil {
		return fmt.Errorf("stale check failed: %w", err)
	}
	if staleJSON {
		return printJSON(cmd, report)
	}
	for _, item := range report.Results {
		cmd.Printf("  %-8s %s\n", item.Status, item.Path)
	}
	s := report.Summary
	cmd.Printf("%d documents: %d new, %d stale, %d current\n", s.Total, s.New, s.Stale, s.Current)
	return nil
}
