package agent

import (
	"context"
	"fmt"
	"log/slog"

	"squadflow/pkg/convo"
	"squadflow/pkg/llm"
	"squadflow/pkg/squad"
	"squadflow/pkg/tools"
)

const plannerInstruction = "You are a planning assistant. Given a user query and a roster of " +
	"available assistants with their handoff triggers and tools, produce a step-by-step plan. " +
	"Respond with ONLY a JSON object of the shape " +
	`{"steps":[{"id":1,"assistant":"<assistant id>","question":"<sub-question>","notes":"<optional>"}]}. ` +
	"No prose before or after the JSON."

type plannerRosterEntry struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Transfers []plannerTransfer `json:"transfers,omitempty"`
	Tools     []string          `json:"tools,omitempty"`
}

type plannerTransfer struct {
	Target  string `json:"target"`
	Trigger string `json:"trigger"`
}

type plannerPayload struct {
	Query   string               `json:"query"`
	Roster  []plannerRosterEntry `json:"roster"`
	Context string               `json:"context,omitempty"`
}

// buildPlannerPayload assembles the planner's input: the original user
// query, the full assistant roster with outgoing triggers and tool
// names, and the concatenated turn text so far.
func buildPlannerPayload(sq *squad.Squad, log *convo.Log, registry *tools.Registry) string {
	payload := plannerPayload{
		Query:   log.FirstUserQuery(),
		Context: log.JoinedText(),
	}

	for _, a := range sq.Assistants() {
		entry := plannerRosterEntry{ID: a.ID, Name: a.Name}
		for _, e := range sq.OutgoingEdges(a.ID) {
			entry.Transfers = append(entry.Transfers, plannerTransfer{
				Target:  e.Target,
				Trigger: e.Trigger,
			})
		}
		for _, toolID := range a.ToolIDs {
			if def, ok := registry.Get(toolID); ok {
				entry.Tools = append(entry.Tools, def.Name)
			}
		}
		payload.Roster = append(payload.Roster, entry)
	}

	out, err := json.MarshalToString(payload)
	if err != nil {
		slog.Error("Failed to encode planner payload", "error", err)
		return fmt.Sprintf(`{"query":%q}`, payload.Query)
	}
	return out
}

// generatePlan asks the provider for a plan with tool calling disabled.
// The response text is returned verbatim: malformed JSON is advisory
// context for downstream assistants, never rejected here.
func (e *Engine) generatePlan(ctx context.Context) (string, error) {
	payload := buildPlannerPayload(e.squad, e.log, e.registry)

	resp, err := e.client.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: plannerInstruction,
		Messages:     []llm.Message{llm.NewUserMessage(payload)},
		ToolChoice:   llm.ToolChoiceNone,
	})
	if err != nil {
		return "", fmt.Errorf("planner call failed: %w", err)
	}

	if resp.Content == "" {
		return `{"steps":[]}`, nil
	}
	return resp.Content, nil
}

// plannerPreconditions reports whether the planner may run: the entry
// assistant is active, no plan exists yet, and there is more than one
// assistant to coordinate.
func (e *Engine) plannerPreconditions(activeID string) bool {
	return activeID == e.squad.EntryID() &&
		e.squad.Plan() == "" &&
		len(e.squad.Assistants()) > 1
}
