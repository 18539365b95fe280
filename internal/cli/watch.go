package cli

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-index markdown files as they change",
	Long: `Builds the directory once, then watches it and re-indexes markdown files
that are created or written. Bursts of events are collapsed into one build
per debounce window.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond, "quiet period before re-indexing")
	rootCmd.AddCommand(watchCmd)
}

type dirAdder interface {
	Add(name string) error
}

func runWatch(cmd *cobra.Command, args []string) error {
	root := args[0]
	ctx := cmd.Context()
	svc, err := loadServices(ctx)
	if err != nil {
		return err
	}

	docs, err := loadDocs(root)
	if err != nil {
		return err
	}
	if st, err := svc.Builder.Run(ctx, "", docs); err != nil {
		cmd.PrintErrf("initial build failed: %v\n", err)
	} else {
		printBuild(cmd, st)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := addRecursive(w, root); err != nil {
		return err
	}
	cmd.Printf("Watching %s (Ctrl+C to stop)\n", root)

	return watchLoop(ctx, w.Events, w.Errors, w, watchDebounce, func(ctx context.Context, paths []string) {
		changed, err := readDocs(root, existing(paths))
		if err != nil {
			cmd.PrintErrf("read changed files: %v\n", err)
			return
		}
		if len(changed) == 0 {
			return
		}
		st, err := svc.Builder.Run(ctx, "", changed)
		if err != nil {
			cmd.PrintErrf("build failed: %v\n", err)
			return
		}
		printBuild(cmd, st)
	})
}

func watchLoop(ctx context.Context, events <-chan fsnotify.Event, errs <-chan error, adder dirAdder, debounce time.Duration, flush func(context.Context, []string)) error {
	pending := map[string]struct{}{}
	var fire <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if p := handleFsEvent(adder, ev); p != "" {
				pending[p] = struct{}{}
				fire = time.After(debounce)
			}
		case <-fire:
			fire = nil
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			clear(pending)
			sort.Strings(paths)
			flush(ctx, paths)
		case err, ok := <-errs:
			if !ok {
				return nil
			}
			if err != nil {
				return err
			}
		}
	}
}

// handleFsEvent returns the markdown file an event should re-index, or "".
// New directories are added to the watcher.
func handleFsEvent(adder dirAdder, ev fsnotify.Event) string {
	if isHidden(ev.Name) {
		return ""
	}
	if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
		return ""
	}
	info, err := os.Stat(ev.Name)
	if err != nil {
		return ""
	}
	if info.IsDir() {
		if ev.Has(fsnotify.Create) {
			_ = addRecursive(adder, ev.Name)
		}
		return ""
	}
	if !isMarkdown(ev.Name) {
		return ""
	}
	return ev.Name
}

func addRecursive(adder dirAdder, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != root && isHidden(p) {
			return filepath.SkipDir
		}
		return adder.Add(p)
	})
}

func existing(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		out = append(out, p)
	}
	return out
}
