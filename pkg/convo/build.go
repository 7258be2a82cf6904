package convo

import (
	"squadflow/pkg/llm"
)

// BuildMessages rebuilds the provider message history from the log.
// Plan turns become assistant-authored text, tool turns become
// function-call requests, tool-result turns become function-call
// responses keyed by call id. Transfer turns are routing bookkeeping
// and are not replayed to the provider.
func BuildMessages(turns []Turn) []llm.Message {
	var msgs []llm.Message

	for _, t := range turns {
		switch t.Role {
		case RoleUser:
			msgs = append(msgs, llm.NewUserMessage(t.Text))

		case RoleAssistant, RolePlan:
			msgs = append(msgs, llm.NewAssistantMessage(t.Text))

		case RoleTool:
			if t.ToolCall == nil {
				continue
			}
			msgs = append(msgs, llm.Message{
				Role: llm.RoleAssistant,
				ToolCalls: []llm.ToolCall{{
					ID:        t.ToolCall.CallID,
					Name:      t.ToolCall.Name,
					Arguments: t.ToolCall.Arguments,
				}},
			})

		case RoleToolResult:
			if t.ToolResult == nil {
				continue
			}
			msgs = append(msgs, llm.NewToolResultMessage(
				t.ToolResult.CallID,
				t.ToolResult.Name,
				t.ToolResult.Output,
			))

		case RoleTransfer:
			// skipped
		}
	}

	return msgs
}
