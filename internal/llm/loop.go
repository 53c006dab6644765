package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/duskforge/vigil/internal/issues"
)

// MaxToolIterations bounds the tool-call loop per check run (spec.md
// §4.C.3): a model that never converges on a final answer is cut off
// rather than left to run indefinitely.
const MaxToolIterations = 10

// MaxReformatRetries is the number of additional attempts given to a model
// whose final answer fails to parse as the expected issues envelope
// (spec.md §4.C.4): one original attempt plus this many retries, for a
// maximum of 4 total tries.
const MaxReformatRetries = 3

// Executor runs one tool call by name and returns its JSON result string,
// or an error serialized into the result per the tool's own error
// convention (PathError, etc. — see internal/tools).
type Executor interface {
	Execute(ctx context.Context, name string, argumentsJSON string) (string, error)
}

type issuesEnvelope struct {
	Issues []issues.RawIssue `json:"issues"`
}

// RunCheck drives one check prompt's conversation to completion: it loops
// over tool calls (serialized — only one outstanding request to the model
// at a time, per spec.md §5), tracks the dynamic token budget, and parses
// the model's final answer into RawIssues, retrying with a reformat
// instruction on parse failure.
func RunCheck(ctx context.Context, client Client, systemPrompt, userPrompt string, tools []ToolSpec, exec Executor) ([]issues.RawIssue, error) {
	messages := []Message{
		{Role: RoleSystem, Content: systemPrompt},
		{Role: RoleUser, Content: userPrompt},
	}

	usedTokens := EstimateTokens(systemPrompt) + EstimateTokens(userPrompt)
	limit := client.ContextLimit()

	var finalContent string
	iterations := 0
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		forceFinal := ShouldForceFinalize(usedTokens, limit) || iterations >= MaxToolIterations
		offeredTools := tools
		if forceFinal {
			offeredTools = nil
			messages = append(messages, Message{Role: RoleSystem, Content: `Stop calling tools. Reply now with your final answer as the JSON object {"issues": [...]}.`})
		}

		reply, err := client.Query(ctx, messages, offeredTools, true)
		if err != nil {
			return nil, err
		}
		usedTokens += EstimateTokens(reply.Content)

		if len(reply.ToolCalls) == 0 {
			finalContent = reply.Content
			break
		}

		if forceFinal {
			// The model ignored the no-tools hint and produced nothing
			// usable; treat as a protocol failure rather than looping.
			return nil, &ProtocolError{Err: fmt.Errorf("model kept requesting tools past the iteration/token budget")}
		}

		messages = append(messages, Message{Role: RoleAssistant, ToolCalls: reply.ToolCalls})
		for _, tc := range reply.ToolCalls {
			result, err := exec.Execute(ctx, tc.Name, tc.Arguments)
			if err != nil {
				result = fmt.Sprintf(`{"error": %q}`, err.Error())
			}
			usedTokens += EstimateTokens(result)
			messages = append(messages, Message{Role: RoleTool, ToolCallID: tc.ID, Content: result})
		}
		iterations++
	}

	return parseIssuesWithRetry(ctx, client, messages, finalContent)
}

// parseIssuesWithRetry attempts to parse the model's final content as the
// issues envelope, asking the model to reformat its own output on failure
// up to MaxReformatRetries times (spec.md §4.C.4).
func parseIssuesWithRetry(ctx context.Context, client Client, messages []Message, finalContent string) ([]issues.RawIssue, error) {
	attempt := 0
	content := finalContent
	for {
		var env issuesEnvelope
		stripped := StripFences(content)
		if err := json.Unmarshal([]byte(stripped), &env); err == nil {
			return env.Issues, nil
		}

		if attempt >= MaxReformatRetries {
			return nil, &ProtocolError{Err: fmt.Errorf("model output did not parse as a JSON issues envelope after %d attempts", attempt+1)}
		}
		attempt++

		messages = append(messages,
			Message{Role: RoleAssistant, Content: content},
			Message{Role: RoleUser, Content: `Your last reply was not valid JSON matching {"issues": [...]}. Reply again with only that JSON object.`},
		)
		reply, err := client.Query(ctx, messages, nil, true)
		if err != nil {
			return nil, err
		}
		content = reply.Content
	}
}
