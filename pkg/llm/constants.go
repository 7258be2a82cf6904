package llm

// Role constants for messages exchanged with a completion provider.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolChoice modes for a completion request. Auto lets the model decide,
// None disables tool calling entirely (used by the planner call).
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)
