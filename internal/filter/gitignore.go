package filter

import (
	"bufio"
	"os"
	"path/filepath"
)

// collectGitignoreLines reads the repo-root .gitignore and .git/info/exclude
// files, in that order, into a single ordered line list suitable for
// ignore.CompileIgnoreLines. A missing file is not an error; it simply
// contributes no lines. Nested .gitignore files in subdirectories are not
// read, so their rules are not applied by the in-memory matcher. An error
// is returned only when one of the two files exists but cannot be read,
// and that is what switches the filter to the git check-ignore fallback.
func collectGitignoreLines(repoRoot string) ([]string, error) {
	var lines []string

	root := filepath.Join(repoRoot, ".gitignore")
	rootLines, err := readLines(root)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	lines = append(lines, rootLines...)

	exclude := filepath.Join(repoRoot, ".git", "info", "exclude")
	excludeLines, err := readLines(exclude)
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	lines = append(lines, excludeLines...)

	return lines, nil
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}
