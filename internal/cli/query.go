package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/docindex/internal/indexing/query"
)

var (
	queryCategory string
	queryTopK     int
	queryMinScore float64
	queryHybrid   bool
	queryJSON     bool
)

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Search the index",
	Long: `Embeds the query and returns the most similar chunks. With --hybrid the
candidates are reranked by keyword relevance when the backend supports it.`,
	Args: cobra.ExactArgs(1),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().StringVarP(&queryCategory, "category", "c", "", "restrict results to a category")
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 5, "maximum number of results")
	queryCmd.Flags().Float64Var(&queryMinScore, "min-score", query.DefaultMinScore, "minimum similarity score")
	queryCmd.Flags().BoolVar(&queryHybrid, "hybrid", false, "rerank with keyword relevance")
	queryCmd.Flags().BoolVar(&queryJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	minScore := queryMinScore
	resp, err := svc.Search.Search(cmd.Context(), query.Request{
		Query:    args[0],
		Category: queryCategory,
		TopK:     queryTopK,
		MinScore: &minScore,
		Hybrid:   queryHybrid,
	})
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if queryJSON {
		return printJSON(cmd, resp)
	}
	if len(resp.Results) == 0 {
		cmd.Println("No results found.")
		return nil
	}
	for i, r := range resp.Results {
		cmd.Printf("  [%d] %s > %s (%.3f)\n", i+1, r.Title, r.Section, r.Score)
		cmd.Printf("      %s [%s]\n", r.Path, r.Category)
	}
	cmd.Printf("%d results from %s in %dms (cached=%v)\n", resp.Metrics.ResultCount, resp.Metrics.Provider, resp.Metrics.LatencyMs, resp.Metrics.Cached)
	return nil
}
