package llm

import "strings"

// StripFences removes a single layer of surrounding Markdown code fence
// (```json ... ``` or ``` ... ```) if present, and is otherwise a no-op —
// applying it twice never changes already-unfenced content, which matters
// because both the initial parse attempt and the reformat retry call it.
func StripFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return s
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return s
	}
	if !strings.HasSuffix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return s
	}
	body := lines[1 : len(lines)-1]
	return strings.Join(body, "\n")
}
