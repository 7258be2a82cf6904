package llm

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

//----------------------------------------------------------------
// Message - provider-neutral conversation message
//----------------------------------------------------------------

// Message is one entry of the history sent to a completion provider.
// Tool result messages carry the ToolCallID of the call they answer so
// providers can pair the result with the request.
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant", "tool"
	Content string `json:"content"`

	// ToolCalls holds calls requested by the model (role: assistant only).
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`

	// ToolCallID links this message to the call it answers (role: tool only).
	ToolCallID string `json:"tool_call_id,omitempty"`

	// ToolName is the name of the tool that produced this result (role: tool
	// only). Some providers (Gemini) address function responses by name
	// rather than by call id.
	ToolName string `json:"tool_name,omitempty"`
}

// ToolCall is a single tool invocation requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON string as returned by the provider
}

// ToolSchema is a model-facing function declaration.
type ToolSchema struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
	Strict      bool           `json:"strict,omitempty"`
}

//----------------------------------------------------------------
// ChatRequest / ChatResponse - one round trip
//----------------------------------------------------------------

// ChatRequest describes exactly one non-streaming completion round trip.
// Parallel tool calling is always disabled; when the model wants several
// tools they are returned as an ordered list and executed sequentially
// by the caller.
type ChatRequest struct {
	SystemPrompt string       `json:"system_prompt"`
	Messages     []Message    `json:"messages"`
	Tools        []ToolSchema `json:"tools,omitempty"`
	ToolChoice   string       `json:"tool_choice,omitempty"` // defaults to ToolChoiceAuto
}

// ChatResponse is the single assistant message produced by one round trip.
// Content and ToolCalls may both be present.
type ChatResponse struct {
	Content   string     `json:"content"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// HasToolCalls reports whether the model requested at least one tool.
func (r *ChatResponse) HasToolCalls() bool {
	return len(r.ToolCalls) > 0
}

//----------------------------------------------------------------
// Helper constructors
//----------------------------------------------------------------

// NewSystemMessage builds a system message.
func NewSystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// NewUserMessage builds a user message.
func NewUserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// NewAssistantMessage builds a plain text assistant message.
func NewAssistantMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// NewToolResultMessage builds a tool result message answering callID.
func NewToolResultMessage(callID, toolName, output string) Message {
	return Message{Role: RoleTool, ToolCallID: callID, ToolName: toolName, Content: output}
}
