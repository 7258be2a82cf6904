package squad

// Assistant is a routing node: a named persona with its own system
// prompt and an ordered, deduplicated set of attached tool ids.
type Assistant struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	SystemPrompt string   `json:"system_prompt"`
	ToolIDs      []string `json:"tool_ids"`
	// NonDeletable marks the squad's entry assistant. Exactly one
	// assistant per squad carries it and it can never be removed.
	NonDeletable bool `json:"non_deletable"`
}

// HasTool reports whether the tool id is attached to the assistant.
func (a *Assistant) HasTool(toolID string) bool {
	for _, id := range a.ToolIDs {
		if id == toolID {
			return true
		}
	}
	return false
}

// Edge is a directed transfer capability between two assistants. The
// trigger text doubles as the description of the synthesized
// transfer tool shown to the model.
type Edge struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Target  string `json:"target"`
	Trigger string `json:"trigger"`
}

// RuntimeState is the mutable per-conversation execution status. The
// routing engine is its only writer; channels read snapshots.
type RuntimeState struct {
	ActiveAssistant  string `json:"active_assistant"`
	AwaitingProvider bool   `json:"awaiting_provider"`
	ExecutingTool    string `json:"executing_tool,omitempty"`
	LastError        string `json:"last_error,omitempty"`
	// LastTransferEdge is the edge id of the most recent transfer,
	// kept only so the UI can highlight it.
	LastTransferEdge string `json:"last_transfer_edge,omitempty"`
	Plan             string `json:"plan,omitempty"`
}
