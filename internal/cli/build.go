package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yungbote/docindex/internal/domain/index"
)

var (
	buildID   string
	buildJSON bool
)

var buildCmd = &cobra.Command{
	Use:   "build [dir]",
	Short: "Index the markdown files in a directory",
	Long: `Reads every markdown file under dir and indexes the ones whose content
changed since the last build. Unchanged files are skipped without calling
the embedding provider.`,
	Args: cobra.ExactArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVar(&buildID, "build-id", "", "build identifier (generated when empty)")
	buildCmd.Flags().BoolVar(&buildJSON, "json", false, "output the build status as JSON")
	rootCmd.AddCommand(buildCmd)
}

func runBuild(cmd *cobra.Command, args []string) error {
	docs, err := loadDocs(args[0])
	if err != nil {
		return err
	}
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	st, err := svc.Builder.Run(cmd.Context(), buildID, docs)
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}
	if buildJSON {
		return printJSON(cmd, st)
	}
	printBuild(cmd, st)
	return nil
}

func printBuild(cmd *cobra.Command, st *index.BuildStatus) {
	cmd.Printf("Build %s: %s\n", st.BuildID, st.Status)
	cmd.Printf("  documents: %d (indexed %d, unchanged %d, failed %d)\n", st.TotalDocs, st.Indexed, st.Unchanged, st.Failed)
	cmd.Printf("  chunks: %d  tokens: %d\n", st.TotalChunks, st.TotalTokens)
	for _, e := range st.Errors {
		cmd.Printf("  error: %s\n", e)
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
