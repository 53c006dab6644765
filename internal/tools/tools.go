// Package tools implements the AI Tool Executor: the 10 read-only
// functions a check's LLM conversation may call to inspect the repository
// (spec.md §4.D). Each tool shells out to rg or ctags where a pure Go walk
// would be slower or less accurate, matching spec.md §1's framing of both
// as external collaborator binaries rather than libraries to vendor.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/duskforge/vigil/internal/gitutil"
)

// PageSize bounds a single tool response; callers page through larger
// result sets via Offset/NextOffset.
const PageSize = 50

// Envelope is the paginated response shape shared by every tool that can
// return more results than fit in one reply.
type Envelope struct {
	Items      []interface{} `json:"items"`
	Offset     int           `json:"offset"`
	HasMore    bool          `json:"has_more"`
	NextOffset int           `json:"next_offset,omitempty"`
	Total      int           `json:"total,omitempty"`
}

// PathErrorKind enumerates the structured error classes returned to the
// model in place of raw Go errors, so the model can self-correct.
type PathErrorKind string

const (
	PathNotFound   PathErrorKind = "not_found"
	PathEscapes    PathErrorKind = "path_escape"
	PathNotAFile   PathErrorKind = "not_a_file"
	PathIsBinary   PathErrorKind = "is_binary"
)

// PathError is returned (as a JSON-encoded tool result, never a Go error
// surfaced to the loop) when a tool argument names an invalid path.
type PathError struct {
	Kind        PathErrorKind `json:"kind"`
	Path        string        `json:"path"`
	Suggestions []string      `json:"suggestions,omitempty"`
}

func (e *PathError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Path) }

func (e *PathError) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// Executor implements llm.Executor against one repository root.
type Executor struct {
	repoRoot string
	repo     *gitutil.Repo
	ctags    *ctagsIndex
}

// New builds an Executor rooted at repoRoot.
func New(repoRoot string) *Executor {
	return &Executor{
		repoRoot: repoRoot,
		repo:     gitutil.NewRepo(repoRoot),
		ctags:    newCtagsIndex(repoRoot),
	}
}

// Execute dispatches a tool call by name. The returned string is always
// valid JSON (either a success envelope or a PathError), per spec.md §4.D's
// "errors are data, not exceptions" rule; only a true executor-level fault
// (tool name unknown, argument JSON unparsable) returns a Go error, which
// the LLM loop folds into a {"error": "..."} tool-result message itself.
func (e *Executor) Execute(ctx context.Context, name, argumentsJSON string) (string, error) {
	var args map[string]interface{}
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return "", fmt.Errorf("unparsable arguments for %s: %w", name, err)
		}
	}

	switch name {
	case "search_text":
		return e.searchText(ctx, args)
	case "read_file":
		return e.readFile(ctx, args)
	case "list_directory":
		return e.listDirectory(ctx, args)
	case "get_file_diff":
		return e.getFileDiff(ctx, args)
	case "get_file_summary":
		return e.getFileSummary(ctx, args)
	case "symbol_exists":
		return e.symbolExists(ctx, args)
	case "find_definition":
		return e.findDefinition(ctx, args)
	case "find_symbols":
		return e.findSymbols(ctx, args)
	case "get_enclosing_scope":
		return e.getEnclosingScope(ctx, args)
	case "find_usages":
		return e.findUsages(ctx, args)
	default:
		return "", fmt.Errorf("unknown tool %q", name)
	}
}

// resolvePath validates a model-supplied repo-relative path: it must clean
// to a location inside repoRoot, following symlinks, per spec.md §4.D's
// path-escape protection requirement.
func (e *Executor) resolvePath(raw string) (abs string, rel string, perr *PathError) {
	raw = strings.TrimSpace(raw)
	cleaned := filepath.Clean(filepath.FromSlash(raw))
	if filepath.IsAbs(cleaned) || strings.HasPrefix(cleaned, "..") {
		return "", "", &PathError{Kind: PathEscapes, Path: raw}
	}
	joined := filepath.Join(e.repoRoot, cleaned)
	resolved, err := filepath.EvalSymlinks(joined)
	if err != nil {
		return "", "", &PathError{Kind: PathNotFound, Path: raw}
	}
	rootResolved, err := filepath.EvalSymlinks(e.repoRoot)
	if err != nil {
		rootResolved = e.repoRoot
	}
	if resolved != rootResolved && !strings.HasPrefix(resolved, rootResolved+string(filepath.Separator)) {
		return "", "", &PathError{Kind: PathEscapes, Path: raw}
	}
	return resolved, filepath.ToSlash(cleaned), nil
}

func stringArg(args map[string]interface{}, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func intArg(args map[string]interface{}, key string, def int) int {
	if v, ok := args[key].(float64); ok {
		return int(v)
	}
	return def
}

func paginate(items []interface{}, offset int) Envelope {
	total := len(items)
	if offset > total {
		offset = total
	}
	end := offset + PageSize
	hasMore := end < total
	if end > total {
		end = total
	}
	env := Envelope{
		Items:   items[offset:end],
		Offset:  offset,
		HasMore: hasMore,
		Total:   total,
	}
	if hasMore {
		env.NextOffset = end
	}
	return env
}

func marshalEnvelope(env Envelope) string {
	b, err := json.Marshal(env)
	if err != nil {
		return `{"items":[],"offset":0,"has_more":false}`
	}
	return string(b)
}
