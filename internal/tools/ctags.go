package tools

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os/exec"
	"strings"
	"sync"
)

// ctagsSymbol is one parsed line of `ctags -R --output-format=json`.
type ctagsSymbol struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Line int    `json:"line"`
	Kind string `json:"kind"`
	Scope string `json:"scope"`
	ScopeKind string `json:"scopeKind"`
	End  int    `json:"end"`
}

// ctagsIndex lazily builds and caches a full-repo ctags symbol table on the
// first symbol tool call. The generation field is not consulted; the table
// is rebuilt only after Invalidate.
type ctagsIndex struct {
	repoRoot string

	mu         sync.Mutex
	built      bool
	generation int
	symbols    []ctagsSymbol
	byName     map[string][]ctagsSymbol
	byPath     map[string][]ctagsSymbol
}

func newCtagsIndex(repoRoot string) *ctagsIndex {
	return &ctagsIndex{repoRoot: repoRoot}
}

// Invalidate marks the cached index stale; the next tool call rebuilds it.
// No caller outside this type invokes it, so in a running daemon the index
// built on first use is kept for the life of the process.
func (c *ctagsIndex) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.built = false
}

func (c *ctagsIndex) ensureBuilt(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.built {
		return nil
	}

	cmd := exec.CommandContext(ctx, "ctags", "-R", "--output-format=json", "--fields=+nKe", ".")
	cmd.Dir = c.repoRoot
	out, err := cmd.Output()
	if err != nil {
		// ctags missing or failed: present an empty index rather than
		// failing every symbol tool outright.
		c.symbols = nil
		c.byName = map[string][]ctagsSymbol{}
		c.byPath = map[string][]ctagsSymbol{}
		c.built = true
		return nil
	}

	var symbols []ctagsSymbol
	scanner := bufio.NewScanner(bytes.NewReader(out))
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		var s ctagsSymbol
		if err := json.Unmarshal(scanner.Bytes(), &s); err != nil {
			continue
		}
		if s.Name == "" {
			continue
		}
		symbols = append(symbols, s)
	}

	byName := map[string][]ctagsSymbol{}
	byPath := map[string][]ctagsSymbol{}
	for _, s := range symbols {
		byName[s.Name] = append(byName[s.Name], s)
		byPath[s.Path] = append(byPath[s.Path], s)
	}

	c.symbols = symbols
	c.byName = byName
	c.byPath = byPath
	c.built = true
	return nil
}

func (e *Executor) getFileSummary(ctx context.Context, args map[string]interface{}) (string, error) {
	raw := stringArg(args, "path")
	_, rel, perr := e.resolvePath(raw)
	if perr != nil {
		return perr.JSON(), nil
	}
	if err := e.ctags.ensureBuilt(ctx); err != nil {
		return "", err
	}

	var items []interface{}
	for _, s := range e.ctags.byPath[rel] {
		items = append(items, map[string]interface{}{
			"name": s.Name, "kind": s.Kind, "line": s.Line,
		})
	}
	return marshalEnvelope(paginate(items, 0)), nil
}

func (e *Executor) symbolExists(ctx context.Context, args map[string]interface{}) (string, error) {
	name := stringArg(args, "name")
	if err := e.ctags.ensureBuilt(ctx); err != nil {
		return "", err
	}
	_, exists := e.ctags.byName[name]
	b, _ := json.Marshal(map[string]interface{}{"exists": exists})
	return string(b), nil
}

func (e *Executor) findDefinition(ctx context.Context, args map[string]interface{}) (string, error) {
	name := stringArg(args, "name")
	offset := intArg(args, "offset", 0)
	if err := e.ctags.ensureBuilt(ctx); err != nil {
		return "", err
	}

	var items []interface{}
	for _, s := range e.ctags.byName[name] {
		items = append(items, map[string]interface{}{
			"name": s.Name, "file": s.Path, "line": s.Line, "kind": s.Kind,
		})
	}
	return marshalEnvelope(paginate(items, offset)), nil
}

func (e *Executor) findSymbols(ctx context.Context, args map[string]interface{}) (string, error) {
	pattern := stringArg(args, "pattern")
	offset := intArg(args, "offset", 0)
	if err := e.ctags.ensureBuilt(ctx); err != nil {
		return "", err
	}

	var items []interface{}
	for _, s := range e.ctags.symbols {
		if pattern == "" || strings.Contains(s.Name, pattern) {
			items = append(items, map[string]interface{}{
				"name": s.Name, "file": s.Path, "line": s.Line, "kind": s.Kind,
			})
		}
	}
	return marshalEnvelope(paginate(items, offset)), nil
}

func (e *Executor) getEnclosingScope(ctx context.Context, args map[string]interface{}) (string, error) {
	raw := stringArg(args, "path")
	line := intArg(args, "line", 0)
	_, rel, perr := e.resolvePath(raw)
	if perr != nil {
		return perr.JSON(), nil
	}
	if err := e.ctags.ensureBuilt(ctx); err != nil {
		return "", err
	}

	var best *ctagsSymbol
	for i, s := range e.ctags.byPath[rel] {
		// End is 0 when ctags reported no end line; such a symbol is assumed
		// to extend past line.
		if s.Line <= line && (s.End == 0 || s.End >= line) && (best == nil || s.Line > best.Line) {
			sc := e.ctags.byPath[rel][i]
			best = &sc
		}
	}
	if best == nil {
		b, _ := json.Marshal(map[string]interface{}{"found": false})
		return string(b), nil
	}
	b, _ := json.Marshal(map[string]interface{}{
		"found": true, "name": best.Name, "kind": best.Kind, "line": best.Line,
	})
	return string(b), nil
}

func (e *Executor) findUsages(ctx context.Context, args map[string]interface{}) (string, error) {
	name := stringArg(args, "name")
	offset := intArg(args, "offset", 0)
	if name == "" {
		return marshalEnvelope(Envelope{}), nil
	}

	cmd := exec.CommandContext(ctx, "rg", "--json", "--word-regexp", "--line-number", name, ".")
	cmd.Dir = e.repoRoot
	out, _ := cmd.Output()

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
