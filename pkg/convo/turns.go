package convo

import (
	"time"

	"squadflow/pkg/utils"
)

// Role tags the variant of a conversation turn.
type Role string

const (
	RoleUser       Role = "user"
	RoleAssistant  Role = "assistant"
	RolePlan       Role = "plan"
	RoleTransfer   Role = "transfer"
	RoleTool       Role = "tool"
	RoleToolResult Role = "tool_result"
)

// Turn is one immutable entry of the conversation log. Exactly one of
// the pointer fields is set, matching the role.
type Turn struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Assistant string    `json:"assistant,omitempty"` // id of the assistant that produced the turn
	Text      string    `json:"text,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	ToolCall   *ToolCallInfo   `json:"tool_call,omitempty"`
	ToolResult *ToolResultInfo `json:"tool_result,omitempty"`
	Transfer   *TransferInfo   `json:"transfer,omitempty"`
}

// ToolCallInfo records one requested tool invocation.
type ToolCallInfo struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolResultInfo answers exactly one earlier tool call.
type ToolResultInfo struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error,omitempty"`
}

// TransferInfo records an executed handoff, not a requested one.
type TransferInfo struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Reason string `json:"reason,omitempty"`
}

func newTurn(role Role, assistant, text string) Turn {
	return Turn{
		ID:        utils.GenerateID(),
		Role:      role,
		Assistant: assistant,
		Text:      text,
		Timestamp: time.Now(),
	}
}

// NewUserTurn records a user message.
func NewUserTurn(text string) Turn {
	return newTurn(RoleUser, "", text)
}

// NewAssistantTurn records plain assistant text.
func NewAssistantTurn(assistantID, text string) Turn {
	return newTurn(RoleAssistant, assistantID, text)
}

// NewPlanTurn records the planner output verbatim.
func NewPlanTurn(assistantID, planText string) Turn {
	return newTurn(RolePlan, assistantID, planText)
}

// NewTransferTurn records an executed handoff.
func NewTransferTurn(source, target, reason string) Turn {
	t := newTurn(RoleTransfer, source, "")
	t.Transfer = &TransferInfo{Source: source, Target: target, Reason: reason}
	return t
}

// NewToolCallTurn records a tool invocation request.
func NewToolCallTurn(assistantID, callID, name, arguments string) Turn {
	t := newTurn(RoleTool, assistantID, "")
	t.ToolCall = &ToolCallInfo{CallID: callID, Name: name, Arguments: arguments}
	return t
}

// NewToolResultTurn records the outcome paired with an earlier call id.
func NewToolResultTurn(assistantID, callID, name, output string, isError bool) Turn {
	t := newTurn(RoleToolResult, assistantID, output)
	t.ToolResult = &ToolResultInfo{CallID: callID, Name: name, Output: output, IsError: isError}
	return t
}
