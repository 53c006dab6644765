package filter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/duskforge/vigil/internal/config"
)

func writeRepo(t *testing.T, gitignore string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, ".git", "info"), 0755); err != nil {
		t.Fatal(err)
	}
	if gitignore != "" {
		if err := os.WriteFile(filepath.Join(dir, ".gitignore"), []byte(gitignore), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func TestIncludedExcludesOwnedFilenames(t *testing.T) {
	dir := writeRepo(t, "")
	cfg := &config.Config{}
	f, err := New(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Included("code_scanner_results.md") {
		t.Error("expected report file to be excluded")
	}
	if !f.Included("src/code_scanner_results.md") {
		t.Error("owned-filename exclusion should only apply at repo root")
	}
}

func TestIncludedAppliesIgnoreGroupGlob(t *testing.T) {
	dir := writeRepo(t, "")
	cfg := &config.Config{Checks: []config.CheckGroup{
		{Patterns: []string{"*.md"}, Prompts: nil},
	}}
	f, err := New(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Included("docs/readme.md") {
		t.Error("expected *.md to be excluded by ignore group")
	}
	if !f.Included("docs/readme.go") {
		t.Error("expected .go file to remain included")
	}
}

func TestIncludedAppliesDirectoryFormPattern(t *testing.T) {
	dir := writeRepo(t, "")
	cfg := &config.Config{Checks: []config.CheckGroup{
		{Patterns: []string{"/build/"}, Prompts: nil},
	}}
	f, err := New(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Included("build/output.o") {
		t.Error("expected anything under build/ to be excluded")
	}
	if !f.Included("src/build_config.go") {
		t.Error("directory-form pattern should not match a same-named file segment partially")
	}
}

func TestIncludedAppliesGitignoreRules(t *testing.T) {
	dir := writeRepo(t, "*.log\nvendor/\n")
	cfg := &config.Config{}
	f, err := New(cfg, dir)
	if err != nil {
		t.Fatal(err)
	}
	if f.Included("debug.log") {
		t.Error("expected *.log to be ignored per .gitignore")
	}
	if f.Included("vendor/pkg/file.go") {
		t.Error("expected vendor/ to be ignored per .gitignore")
	}
	if !f.Included("src/main.go") {
		t.Error("expected src/main.go to remain included")
	}
}
