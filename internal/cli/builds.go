package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	pkgerrors "github.com/yungbote/docindex/internal/pkg/errors"
)

var (
	buildsJSON  bool
	buildsLimit int
)

var buildsCmd = &cobra.Command{
	Use:   "builds [id]",
	Short: "Show build status",
	Long: `With an id, shows the status of that build. Without one, lists the most
recent builds.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuilds,
}

func init() {
	buildsCmd.Flags().BoolVar(&buildsJSON, "json", false, "output as JSON")
	buildsCmd.Flags().IntVarP(&buildsLimit, "limit", "n", 10, "number of recent builds to list")
	rootCmd.AddCommand(buildsCmd)
}

func runBuilds(cmd *cobra.Command, args []string) error {
	svc, err := loadServices(cmd.Context())
	if err != nil {
		return err
	}
	if len(args) == 0 {
		recent, err := svc.Builder.Recent(cmd.Context(), buildsLimit)
		if err != nil {
			return err
		}
		if buildsJSON {
			return printJSON(cmd, recent)
		}
		if len(recent) == 0 {
			cmd.Println("No builds yet.")
			return nil
		}
		for _, st := range recent {
			cmd.Printf("  %s  %-9s  %s  docs=%d failed=%d\n", st.BuildID, st.Status, st.StartedAt.Format("2006-01-02 15:04:05"), st.TotalDocs, st.Failed)
		}
		return nil
	}

	st, err := svc.Builder.Status(cmd.Context(), args[0])
	if errors.Is(err, pkgerrors.ErrNotFound) {
		return fmt.Errorf("build %s not found", args[0])
	}
	if err != nil {
		return err
	}
	if buildsJSON {
		return printJSON(cmd, st)
	}
	printBuild(cmd, st)
	return nil
}
