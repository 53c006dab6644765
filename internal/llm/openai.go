package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// OpenAICompatibleClient talks to any server exposing an OpenAI-style
// /v1/chat/completions endpoint (llama.cpp server, vLLM, LM Studio, etc.),
// grounded on reVrost/glimpse's generateOpenAI request/response shape.
type OpenAICompatibleClient struct {
	httpClient   *http.Client
	baseURL      string
	model        string
	contextLimit int
}

// NewOpenAICompatibleClient builds a client against baseURL (e.g.
// "http://localhost:8080/v1"), with the given model name and context
// window size.
func NewOpenAICompatibleClient(baseURL, model string, contextLimit int, timeout time.Duration) *OpenAICompatibleClient {
	return &OpenAICompatibleClient{
		httpClient:   &http.Client{Timeout: timeout},
		baseURL:      baseURL,
		model:        model,
		contextLimit: contextLimit,
	}
}

func (c *OpenAICompatibleClient) ContextLimit() int { return c.contextLimit }

type oaModelList struct {
	Data []struct {
		ID            string `json:"id"`
		ContextLength int    `json:"context_length"`
	} `json:"data"`
}

// Probe hits the standard OpenAI-compatible /models endpoint (spec.md
// §4.I): reachability failure is fatal; a matching model entry reporting
// its own context_length is treated as authoritative.
func (c *OpenAICompatibleClient) Probe(ctx context.Context) (ProbeResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/models", nil)
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

	var list oaModelList
	if err := json.Unmarshal(respBody, &list); err != nil {
		// Reachable but the response isn't the expected shape: treat as
		// reachable with no authoritative limit rather than fatal.
		return ProbeResult{}, nil
	}
	for _, m := range list.Data {
		if m.ID == c.model && m.ContextLength > 0 {
			return ProbeResult{ContextLimit: m.ContextLength, Authoritative: true}, nil
		}
	}
	return ProbeResult{}, nil
}

type oaMessage struct {
	Role       string         `json:"role"`
	Content    string         `json:"content,omitempty"`
	ToolCallID string         `json:"tool_call_id,omitempty"`
	ToolCalls  []oaToolCallOut `json:"tool_calls,omitempty"`
}

type oaToolCallOut struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function oaFunc `json:"function"`
}

type oaFunc struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type oaTool struct {
	Type     string      `json:"type"`
	Function oaToolDecl  `json:"function"`
}

type oaToolDecl struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description,omitempty"`
	Parameters  map[string]interface{} `json:"parameters,omitempty"`
}

type oaRequest struct {
	Model           string      `json:"model"`
	Messages        []oaMessage `json:"messages"`
	Tools           []oaTool    `json:"tools,omitempty"`
	ResponseFormat  *oaRespFmt  `json:"response_format,omitempty"`
	ReasoningEffort string      `json:"reasoning_effort,omitempty"`
}

type oaRespFmt struct {
	Type string `json:"type"`
}

type oaResponse struct {
	Choices []struct {
		Message oaMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *OpenAICompatibleClient) Query(ctx context.Context, messages []Message, tools []ToolSpec, jsonObject bool) (Reply, error) {
	reply, err := c.query(ctx, messages, tools, jsonObject)
	if err != nil && jsonObject && !isTransientOrProtocol(err) {
		// Some backends reject response_format entirely; retry once
		// without it rather than failing the whole check (spec.md §4.C.4).
		return c.query(ctx, messages, tools, false)
	}
	return reply, err
}

// isTransientOrProtocol reports whether err is already classified, so Query
// doesn't mask a network failure or a malformed response behind a second,
// unrelated retry attempt.
func isTransientOrProtocol(err error) bool {
	switch err.(type) {
	case *TransientError, *ProtocolError:
		return true
	default:
		return false
	}
}

func (c *OpenAICompatibleClient) query(ctx context.Context, messages []Message, tools []ToolSpec, jsonObject bool) (Reply, error) {
	req := oaRequest{
		Model:    c.model,
		Messages: toOAMessages(messages),
		// spec.md §4.C: set a high reasoning-effort hint when the backend
		// exposes one. Servers that don't recognize the field ignore it.
		ReasoningEffort: "high",
	}
	for _, t := range tools {
		req.Tools = append(req.Tools, oaTool{
			Type: "function",
			Function: oaToolDecl{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}
	if jsonObject {
		req.ResponseFormat = &oaRespFmt{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Reply{}, &ProtocolError{Err: fmt.Errorf("marshal request: %w", err)}
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
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

	var oaResp oaResponse
	if err := json.Unmarshal(respBody, &oaResp); err != nil {
		return Reply{}, &ProtocolError{Err: fmt.Errorf("unmarshal response: %w", err)}
	}
	if oaResp.Error != nil {
		return Reply{}, fmt.Errorf("backend error: %s", oaResp.Error.Message)
	}
	if len(oaResp.Choices) == 0 {
		return Reply{}, &ProtocolError{Err: fmt.Errorf("no choices in response")}
	}

	msg := oaResp.Choices[0].Message
	reply := Reply{Content: msg.Content}
	for _, tc := range msg.ToolCalls {
		reply.ToolCalls = append(reply.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	return reply, nil
}

func toOAMessages(messages []Message) []oaMessage {
	out := make([]oaMessage, 0, len(messages))
	for _, m := range messages {
		om := oaMessage{Role: string(m.Role), Content: m.Content, ToolCallID: m.ToolCallID}
		for _, tc := range m.ToolCalls {
			om.ToolCalls = append(om.ToolCalls, oaToolCallOut{
				ID:   tc.ID,
				Type: "function",
				Function: oaFunc{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out = append(out, om)
	}
	return out
}
