package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yungbote/docindex/internal/domain/index"
)

var markdownExts = map[string]bool{".md": true, ".markdown": true, ".mdx": true}

func isMarkdown(name string) bool {
	return markdownExts[strings.ToLower(filepath.Ext(name))]
}

func isHidden(name string) bool {
	return strings.HasPrefix(filepath.Base(name), ".") && filepath.Base(name) != "."
}

// loadDocs reads every markdown file under root. Paths are relative to root
// with forward slashes, sorted.
func loadDocs(root string) ([]index.Document, error) {
	var paths []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if p != root && isHidden(p) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && isMarkdown(p) {
			paths = append(paths, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	sort.Strings(paths)
	return readDocs(root, paths)
}

func readDocs(root string, paths []string) ([]index.Document, error) {
	docs := make([]index.Document, 0, len(paths))
	for _, p := range paths {
		raw, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil, err
		}
		docs = append(docs, index.Document{Path: filepath.ToSlash(rel), Body: string(raw)})
	}
	return docs, nil
}
