package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
)

// searchText runs `rg --json` scoped to the repo root and returns matching
// lines as {"file", "line", "text"} items.
func (e *Executor) searchText(ctx context.Context, args map[string]interface{}) (string, error) {
	pattern := stringArg(args, "pattern")
	if pattern == "" {
		return marshalEnvelope(Envelope{}), nil
	}
	pathGlob := stringArg(args, "path_glob")
	offset := intArg(args, "offset", 0)

	rgArgs := []string{"--json", "--line-number", "--no-heading"}
	if pathGlob != "" {
		rgArgs = append(rgArgs, "--glob", pathGlob)
	}
	rgArgs = append(rgArgs, pattern, ".")

	cmd := exec.CommandContext(ctx, "rg", rgArgs...)
	cmd.Dir = e.repoRoot
	out, _ := cmd.Output() // rg exits 1 on "no matches", not a real error

	var items []interface{}
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var msg rgMessage
		if err := json.Unmarshal(scanner.Bytes(), &msg); err != nil {
			continue
		}
		if msg.Type != "match" {
			continue
		}
		items = append(items, map[string]interface{}{
			"file": msg.Data.Path.Text,
			"line": msg.Data.LineNumber,
			"text": msg.Data.Lines.Text,
		})
	}

	return marshalEnvelope(paginate(items, offset)), nil
}

type rgMessage struct {
	Type string `json:"type"`
	Data struct {
		Path struct {
			Text string `json:"text"`
		} `json:"path"`
		LineNumber int `json:"line_number"`
		Lines      struct {
			Text string `json:"text"`
		} `json:"lines"`
	} `json:"data"`
}
