package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// NativeChatClient targets backends with no function-calling support of
// their own (a bare llama.cpp /completion endpoint, for example): tool
// definitions are rendered into the system prompt as text, and a requested
// tool call is recovered by looking for a single top-level
// {"tool_call": {"name": ..., "arguments": {...}}} object in the model's
// reply, per spec.md §4.C's backend-variant note.
type NativeChatClient struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	contextLimit int
}

func NewNativeChatClient(baseURL, model string, contextLimit int, timeout time.Duration) *NativeChatClient {
	return &NativeChatClient{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		model:        model,
		contextLimit: contextLimit,
	}
}

func (c *NativeChatClient) ContextLimit() int { return c.contextLimit }

type ncProps struct {
	DefaultGenerationSettings struct {
		NCtx int `json:"n_ctx"`
	} `json:"default_generation_settings"`
}

// Probe checks reachability against llama.cpp-style native servers via
// GET /props (spec.md §4.I): a connection failure is fatal at startup; the
// server's own n_ctx, when present, is treated as authoritative.
func (c *NativeChatClient) Probe(ctx context.Context) (ProbeResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/props", nil)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("build probe request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("connecting to LLM backend at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return ProbeResult{}, fmt.Errorf("reading probe response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return ProbeResult{}, fmt.Errorf("LLM backend probe rejected (%d): %s", resp.StatusCode, respBody)
	}

	var props ncProps
	if err := json.Unmarshal(respBody, &props); err != nil || props.DefaultGenerationSettings.NCtx <= 0 {
		// Reachable but no usable context size reported: not fatal.
		return ProbeResult{}, nil
	}
	return ProbeResult{ContextLimit: props.DefaultGenerationSettings.NCtx, Authoritative: true}, nil
}

type ncRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ncResponse struct {
	Content string `json:"content"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type ncToolCallEnvelope struct {
	ToolCall *struct {
		Name      string                 `json:"name"`
		Arguments map[string]interface{} `json:"arguments"`
	} `json:"tool_call"`
}

func (c *NativeChatClient) Query(ctx context.Context, messages []Message, tools []ToolSpec, jsonObject bool) (Reply, error) {
	prompt := renderPrompt(messages, tools, jsonObject)

	body, err := json.Marshal(ncRequest{Model: c.model, Prompt: prompt})
	if err != nil {
		return Reply{}, &ProtocolError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/completion", bytes.NewReader(body))
	if err != nil {
		return Reply{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return Reply{}, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return Reply{}, &TransientError{Err: err}
	}
	if resp.StatusCode >= 500 {
		return Reply{}, &TransientError{Err: fmt.Errorf("server returned %d: %s", resp.StatusCode, respBody)}
	}
	if resp.StatusCode >= 400 {
		return Reply{}, fmt.Errorf("request rejected (%d): %s", resp.StatusCode, respBody)
	}

	var ncResp ncResponse
	if err := json.Unmarshal(respBody, &ncResp); err != nil {
		return Reply{}, &ProtocolError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if ncResp.Error != nil {
		return Reply{}, fmt.Errorf("backend error: %s", ncResp.Error.Message)
	}

	content := StripFences(ncResp.Content)

	var env ncToolCallEnvelope
	if json.Unmarshal([]byte(strings.TrimSpace(content)), &env) == nil && env.ToolCall != nil {
		argsJSON, err := json.Marshal(env.ToolCall.Arguments)
		if err != nil {
			argsJSON = []byte("{}")
		}
		return Reply{ToolCalls: []ToolCall{{
			ID:        fmt.Sprintf("call_%d", len(messages)),
			Name:      env.ToolCall.Name,
			Arguments: string(argsJSON),
		}}}, nil
	}

	return Reply{Content: ncResp.Content}, nil
}

// renderPrompt flattens the chat history and tool catalogue into a single
// text prompt for backends with no native chat or function-calling API.
func renderPrompt(messages []Message, tools []ToolSpec, jsonObject bool) string {
	var b strings.Builder
	if len(tools) > 0 {
		b.WriteString("Available tools:\n")
		for _, t := range tools {
			params, _ := json.Marshal(t.Parameters)
			fmt.Fprintf(&b, "- %s(%s): %s\n", t.Name, string(params), t.Description)
		}
		b.WriteString("To call a tool, reply with only a JSON object of the form ")
		b.WriteString(`{"tool_call": {"name": "...", "arguments": {...}}}` + "\n\n")
	}
	if jsonObject {
		b.WriteString("Your final answer must be a single JSON object and nothing else.\n\n")
	}
	for _, m := range messages {
		fmt.Fprintf(&b, "[%s]\n%s\n\n", m.Role, m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&b, "[tool_call %s] %s(%s)\n\n", tc.ID, tc.Name, tc.Arguments)
		}
	}
	b.WriteString("[assistant]\n")
	return b.String()
}
