package gitwatch

import (
	"os/exec"
	"strings"
)

// statusPaths runs `git status --porcelain=v1 -z` and returns the set of
// paths it reports as changed (staged or unstaged), using the NUL-delimited
// form so filenames containing spaces or newlines parse unambiguously.
// Rename/copy records carry an extra NUL-terminated original-path token
// that is consumed and discarded; only the new path is reported.
func statusPaths(repoDir string) ([]string, error) {
	cmd := exec.Command("git", "status", "--porcelain=v1", "-z")
	cmd.Dir = repoDir
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	tokens := strings.Split(strings.TrimRight(string(out), "\x00"), "\x00")
	var paths []string
	for i := 0; i < len(tokens); i++ {
		tok := tokens[i]
		if len(tok) < 4 {
			continue
		}
		xy := tok[:2]
		path := tok[3:]
		paths = append(paths, path)
		if strings.ContainsAny(xy, "RC") {
			i++ // skip the original-path token that follows a rename/copy
		}
	}
	return paths, nil
}
