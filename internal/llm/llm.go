// Package llm implements vigil's LLM Client contract: a small, backend-
// agnostic interface for running one check's tool-calling conversation
// against a local model (spec.md §4.C), grounded on reVrost/glimpse's
// raw net/http request/response approach.
package llm

import (
	"context"
	"fmt"
)

// Role is a chat message role.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one turn in the conversation sent to the model.
type Message struct {
	Role       Role
	Content    string
	ToolCallID string     // set on RoleTool messages: which call this answers
	ToolCalls  []ToolCall // set on RoleAssistant messages that invoke tools
}

// ToolCall is a single function-call the model requested.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON arguments, as returned by the model
}

// ToolSpec describes one callable tool in the model's function-calling
// schema.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  map[string]interface{} // JSON Schema object
}

// Reply is one model turn: either free text (Done) or a set of tool calls
// the caller must execute and feed back before continuing.
type Reply struct {
	Content   string
	ToolCalls []ToolCall
}

// Client is the contract both backend variants implement.
type Client interface {
	// Query sends the full message history and available tools, and
	// returns the model's next turn.
	Query(ctx context.Context, messages []Message, tools []ToolSpec, jsonObject bool) (Reply, error)

	// ContextLimit returns the configured context window size, in tokens.
	ContextLimit() int

	// Probe verifies the backend is reachable and, where the backend
	// exposes one, reports its own context window size (spec.md §4.I).
	// A non-nil error means the backend could not be reached at all and
	// startup must abort.
	Probe(ctx context.Context) (ProbeResult, error)
}

// ProbeResult is what Probe learns about the backend's own configuration.
// ContextLimit is 0 when the backend doesn't expose one, in which case
// Authoritative is always false and the caller should skip the comparison
// entirely rather than treat 0 as a real ceiling.
type ProbeResult struct {
	ContextLimit  int
	Authoritative bool
}

// TransientError marks a failure the caller should retry after a delay
// (network errors, connection refused, 5xx) — owned by the Scanner's 10s
// retry loop per spec.md §4.C.6.
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string { return fmt.Sprintf("transient LLM error: %s", e.Err) }
func (e *TransientError) Unwrap() error { return e.Err }

// ProtocolError marks a failure in the model's own output (malformed JSON
// that survived the reformat retry, an empty tool-call loop that exceeded
// its iteration budget): the caller logs it and treats the check as
// producing zero issues for this pass, per spec.md §4.C.6.
type ProtocolError struct {
	Err error
}

func (e *ProtocolError) Error() string { return fmt.Sprintf("LLM protocol error: %s", e.Err) }
func (e *ProtocolError) Unwrap() error { return e.Err }
