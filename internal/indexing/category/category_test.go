package category

import (
	"os"
	"path/filepath"
	"testing"
)

func TestEmbeddedTable(t *testing.T) {
	tbl, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cases := map[string]string{
		"docs/api/auth.md":         "api",
		"Guides/setup.md":          "guides",
		"runbooks/restart.md":      "operations",
		"README.md":                "general",
		"docs/misc/notes.md":       "general",
		"docs/guides/api/intro.md": "api",
	}
	for in, want := range cases {
		if got := tbl.Resolve(in); got != want {
			t.Fatalf("Resolve(%q): want=%s got=%s", in, want, got)
		}
	}
}

func TestFileTableOverridesDefault(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "cats.yaml")
	data := "default: misc\nrules:\n  - segment: blog\n    category: posts\n"
	if err := os.WriteFile(p, []byte(data), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	tbl, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := tbl.Resolve("blog/2024/post.md"); got != "posts" {
		t.Fatalf("want posts got %s", got)
	}
	if got := tbl.Resolve("api/x.md"); got != "misc" {
		t.Fatalf("want misc got %s", got)
	}
}

func TestParseRejectsDuplicates(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - segment: a\n    category: x\n  - segment: A\n    category: y\n"))
	if err == nil {
		t.Fatalf("expected duplicate segment error")
	}
}

func TestNilTable(t *testing.T) {
	var tbl *Table
	if got := tbl.Resolve("api/x.md"); got != DefaultCategory {
		t.Fatalf("nil table: want %s got %s", DefaultCategory, got)
	}
}
