package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"squadflow/pkg/api"
	"squadflow/pkg/config"
	"squadflow/pkg/convo"
	"squadflow/pkg/llm"
	"squadflow/pkg/squad"
	"squadflow/pkg/tools"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// transferPrefix names the synthesized handoff tools. The suffix is
// the target assistant id.
const transferPrefix = "transfer_to_"

// Engine drives the routing loop for one squad: it resolves the active
// assistant's prompt and tool set, calls the completion provider,
// executes requested tools, moves control along transfer edges and
// appends every event to the conversation log. One user turn runs to
// completion before the next is accepted.
type Engine struct {
	// turnMu serializes user turns: one runs to completion before the
	// next is accepted.
	turnMu sync.Mutex

	client    llm.Client
	squad     *squad.Squad
	log       *convo.Log
	registry  *tools.Registry
	executor  *tools.Executor
	sysCfg    *config.SystemConfig
	responder api.MessageResponder
}

// NewEngine initializes a routing engine bound to one squad.
func NewEngine(
	client llm.Client,
	sq *squad.Squad,
	registry *tools.Registry,
	sysCfg *config.SystemConfig,
) *Engine {
	return &Engine{
		client:   client,
		squad:    sq,
		log:      convo.NewLog(),
		registry: registry,
		executor: tools.NewExecutor(sysCfg),
		sysCfg:   sysCfg,
	}
}

// SetResponder sets the messaging interface used by the engine to emit turns.
func (e *Engine) SetResponder(responder api.MessageResponder) {
	e.responder = responder
}

// Log exposes the conversation log for channels replaying history.
func (e *Engine) Log() *convo.Log {
	return e.log
}

// Squad exposes the squad this engine drives.
func (e *Engine) Squad() *squad.Squad {
	return e.squad
}

// Reset clears the conversation and returns control to the entry assistant.
func (e *Engine) Reset() {
	e.log.Reset()
	e.squad.ResetRuntime()
	slog.Info("Conversation reset", "squad", e.squad.ID)
}

// HandleMessage is the primary entry point for processing a user message.
// A provider transport failure aborts the whole turn; every other
// failure is absorbed into the log as additional turns.
func (e *Engine) HandleMessage(ctx context.Context, msg *api.UnifiedMessage) error {
	e.turnMu.Lock()
	defer e.turnMu.Unlock()

	if msg.Reset {
		e.Reset()
		e.signal(msg.Session, "reset")
		return nil
	}

	userTurn := convo.NewUserTurn(msg.Content)
	e.log.Append(userTurn)
	e.emit(msg.Session, userTurn)

	// Fast turns finish before the "working" indicator would even
	// render, so it only shows after a short delay.
	thinkingDelay := time.Duration(e.sysCfg.ThinkingInitDelayMs) * time.Millisecond
	working := time.AfterFunc(thinkingDelay, func() {
		e.signal(msg.Session, "working")
	})
	defer func() {
		working.Stop()
		e.signal(msg.Session, "idle")
	}()

	timeout := time.Duration(e.sysCfg.LLMTimeoutMs) * time.Millisecond
	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := e.runLoop(runCtx, msg.Session); err != nil {
		e.squad.SetAwaitingProvider(false)
		e.squad.SetExecutingTool("")
		e.squad.SetLastError(err.Error())
		e.signal(msg.Session, fmt.Sprintf("error:%v", err))
		slog.Error("Turn aborted", "squad", e.squad.ID, "error", err)
		return err
	}
	return nil
}

// runLoop is the bounded state machine of one user turn. It stops when
// a completion carries no tool calls, or silently once the step budget
// is exhausted.
func (e *Engine) runLoop(ctx context.Context, session api.SessionContext) error {
	for step := 0; step < e.sysCfg.MaxSteps; step++ {
		activeID := e.squad.ActiveAssistant()
		assistant, ok := e.squad.Assistant(activeID)
		if !ok {
			return fmt.Errorf("active assistant %q not found", activeID)
		}

		edges := e.squad.OutgoingEdges(activeID)
		req := &llm.ChatRequest{
			SystemPrompt: e.effectivePrompt(assistant, edges),
			Messages:     convo.BuildMessages(e.log.Turns()),
			Tools:        e.effectiveTools(assistant, edges),
			ToolChoice:   llm.ToolChoiceAuto,
		}

		if e.plannerPreconditions(activeID) {
			payload := buildPlannerPayload(e.squad, e.log, e.registry)
			req.Messages = append(req.Messages, llm.NewUserMessage(
				"Planning context (you may call the planner tool to create a step plan before answering):\n"+payload))
		}

		e.squad.SetAwaitingProvider(true)
		resp, err := e.client.Chat(ctx, req)
		e.squad.SetAwaitingProvider(false)
		if err != nil {
			return fmt.Errorf("completion provider: %w", err)
		}

		if resp.Content != "" {
			turn := convo.NewAssistantTurn(activeID, resp.Content)
			e.log.Append(turn)
			e.emit(session, turn)
		}

		if !resp.HasToolCalls() {
			return nil
		}

		// Tool calls run strictly sequentially: later calls may depend
		// on earlier results and the runtime state is a single slot.
		for _, tc := range resp.ToolCalls {
			if err := e.dispatchToolCall(ctx, session, tc); err != nil {
				return err
			}
		}
	}

	// Step budget exhausted: a deliberate silent backstop against
	// runaway transfer and tool cycles.
	slog.Warn("Step budget exhausted", "squad", e.squad.ID, "max_steps", e.sysCfg.MaxSteps)
	return nil
}

// dispatchToolCall routes one requested call: a transfer, the planner,
// or a registered tool. Only a provider failure inside the planner
// bubbles up as an error; everything else is recovered into the log.
func (e *Engine) dispatchToolCall(ctx context.Context, session api.SessionContext, tc llm.ToolCall) error {
	// The active assistant may have changed mid-batch via a transfer.
	activeID := e.squad.ActiveAssistant()

	if strings.HasPrefix(tc.Name, transferPrefix) {
		e.executeTransfer(session, activeID, tc)
		return nil
	}

	if tc.Name == tools.PlannerToolID {
		return e.executePlanner(ctx, session, activeID)
	}

	def, attached := e.resolveAttachedTool(activeID, tc.Name)
	if !attached {
		turn := convo.NewAssistantTurn(activeID,
			fmt.Sprintf("Error: tool %q is not available to this assistant.", tc.Name))
		e.log.Append(turn)
		e.emit(session, turn)
		return nil
	}

	callTurn := convo.NewToolCallTurn(activeID, tc.ID, tc.Name, tc.Arguments)
	e.log.Append(callTurn)
	e.emit(session, callTurn)

	e.squad.SetExecutingTool(def.ID)
	res := e.executor.Execute(ctx, def, tc.Arguments)
	e.squad.SetExecutingTool("")

	output := res.Output
	if res.Failed() {
		output = "Error: " + res.Err
		e.squad.SetLastError(res.Err)
		slog.Warn("Tool execution failed", "tool", tc.Name, "error", res.Err)
	}

	resultTurn := convo.NewToolResultTurn(activeID, tc.ID, tc.Name, output, res.Failed())
	e.log.Append(resultTurn)
	e.emit(session, resultTurn)
	return nil
}

// executeTransfer validates and performs a handoff. An illegal target
// leaves the active assistant unchanged and only notes the failure.
func (e *Engine) executeTransfer(session api.SessionContext, activeID string, tc llm.ToolCall) {
	targetID := strings.TrimPrefix(tc.Name, transferPrefix)

	edge, ok := e.squad.FindEdge(activeID, targetID)
	if !ok {
		turn := convo.NewAssistantTurn(activeID,
			fmt.Sprintf("Invalid transfer: no edge from this assistant to %q.", targetID))
		e.log.Append(turn)
		e.emit(session, turn)
		return
	}

	reason := edge.Trigger
	var args struct {
		Reason string `json:"reason"`
	}
	if err := json.UnmarshalFromString(tc.Arguments, &args); err == nil && args.Reason != "" {
		reason = args.Reason
	}

	e.squad.RecordTransfer(edge.ID, targetID)
	turn := convo.NewTransferTurn(activeID, targetID, reason)
	e.log.Append(turn)
	e.emit(session, turn)
	slog.Info("Transfer executed", "from", activeID, "to", targetID, "edge", edge.ID)
}

// executePlanner runs the planner once per conversation, and only for
// the entry assistant. Anything else is recovered as a notice turn.
func (e *Engine) executePlanner(ctx context.Context, session api.SessionContext, activeID string) error {
	if e.squad.Plan() != "" {
		turn := convo.NewAssistantTurn(activeID, "A plan already exists for this conversation; skipping the planner.")
		e.log.Append(turn)
		e.emit(session, turn)
		return nil
	}

	if !e.plannerPreconditions(activeID) {
		turn := convo.NewAssistantTurn(activeID, "The planner is only available to the entry assistant.")
		e.log.Append(turn)
		e.emit(session, turn)
		return nil
	}

	plan, err := e.generatePlan(ctx)
	if err != nil {
		return err
	}

	e.squad.SetPlan(plan)
	turn := convo.NewPlanTurn(activeID, plan)
	e.log.Append(turn)
	e.emit(session, turn)
	slog.Info("Plan generated", "squad", e.squad.ID, "chars", len(plan))
	return nil
}

// resolveAttachedTool looks the name up among the tools attached to the
// assistant. Tools in the registry but not attached are treated the
// same as unknown names.
func (e *Engine) resolveAttachedTool(assistantID, name string) (*tools.Definition, bool) {
	assistant, ok := e.squad.Assistant(assistantID)
	if !ok {
		return nil, false
	}
	for _, toolID := range assistant.ToolIDs {
		def, ok := e.registry.Get(toolID)
		if !ok {
			continue
		}
		if def.Name == name {
			return def, true
		}
	}
	return nil, false
}

// effectivePrompt appends the synthesized transfer rules and the
// no-invented-tools instruction to the assistant's stored prompt.
func (e *Engine) effectivePrompt(assistant squad.Assistant, edges []squad.Edge) string {
	var sb strings.Builder
	sb.WriteString(assistant.SystemPrompt)

	if len(edges) > 0 {
		sb.WriteString("\n\nTransfer rules:")
		for _, edge := range edges {
			fmt.Fprintf(&sb, "\n- use %s%s when: %s", transferPrefix, edge.Target, edge.Trigger)
		}
	}

	sb.WriteString("\n\nOnly call tools from the provided tool list. Do not invent tools.")
	return sb.String()
}

// effectiveTools resolves the assistant's attached tools plus one
// synthesized transfer tool per outgoing edge. When tools are globally
// disabled only the transfer tools survive, so routing keeps working.
func (e *Engine) effectiveTools(assistant squad.Assistant, edges []squad.Edge) []llm.ToolSchema {
	var schemas []llm.ToolSchema

	if e.sysCfg.EnableTools {
		for _, toolID := range assistant.ToolIDs {
			def, ok := e.registry.Get(toolID)
			if !ok {
				slog.Warn("Attached tool missing from registry", "tool", toolID, "assistant", assistant.ID)
				continue
			}
			schemas = append(schemas, llm.ToolSchema{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
				Strict:      false,
			})
		}
	}

	// When the planner may run, its schema is offered even if nobody
	// attached it explicitly. The model is given the option, not forced.
	if e.plannerPreconditions(assistant.ID) && !hasSchema(schemas, tools.PlannerToolID) {
		if def, ok := e.registry.Get(tools.PlannerToolID); ok {
			schemas = append(schemas, llm.ToolSchema{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			})
		}
	}

	for _, edge := range edges {
		target, ok := e.squad.Assistant(edge.Target)
		if !ok {
			continue
		}
		schemas = append(schemas, llm.ToolSchema{
			Name:        transferPrefix + edge.Target,
			Description: fmt.Sprintf("Hand the conversation off to %s when: %s", target.Name, edge.Trigger),
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"reason": map[string]any{
						"type":        "string",
						"description": "why control is being handed off",
					},
				},
				"required": []string{"reason"},
			},
		})
	}

	return schemas
}

func hasSchema(schemas []llm.ToolSchema, name string) bool {
	for _, s := range schemas {
		if s.Name == name {
			return true
		}
	}
	return false
}

func (e *Engine) emit(session api.SessionContext, turn convo.Turn) {
	if e.responder == nil {
		return
	}
	if err := e.responder.SendTurn(session, turn); err != nil {
		slog.Error("Failed to emit turn", "role", turn.Role, "error", err)
	}
}

func (e *Engine) signal(session api.SessionContext, signal string) {
	if e.responder == nil {
		return
	}
	if err := e.responder.SendSignal(session, signal); err != nil {
		slog.Error("Failed to send signal", "signal", signal, "error", err)
	}
}
