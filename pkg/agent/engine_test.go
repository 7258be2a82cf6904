package agent

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadflow/pkg/api"
	"squadflow/pkg/config"
	"squadflow/pkg/convo"
	"squadflow/pkg/llm"
	"squadflow/pkg/squad"
	"squadflow/pkg/tools"
)

// scriptedClient returns canned responses in order. A script function
// may inspect the request to assert on what the engine sent.
type scriptedClient struct {
	t      *testing.T
	script []func(req *llm.ChatRequest) (*llm.ChatResponse, error)
	calls  int
}

func (c *scriptedClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	if c.calls >= len(c.script) {
		c.t.Fatalf("unexpected provider call %d", c.calls+1)
	}
	step := c.script[c.calls]
	c.calls++
	return step(req)
}

func (c *scriptedClient) Provider() string { return "scripted" }

func (c *scriptedClient) IsTransientError(err error) bool { return false }

func reply(content string, calls ...llm.ToolCall) func(*llm.ChatRequest) (*llm.ChatResponse, error) {
	return func(*llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{Content: content, ToolCalls: calls}, nil
	}
}

func call(name, args string) llm.ToolCall {
	return llm.ToolCall{ID: "call_" + name, Name: name, Arguments: args}
}

type testEnv struct {
	engine *Engine
	squad  *squad.Squad
	client *scriptedClient
	alpha  string
}

func newTestEnv(t *testing.T, script ...func(*llm.ChatRequest) (*llm.ChatResponse, error)) *testEnv {
	t.Helper()

	sq := squad.NewSquad("test", "Router", "route things")
	alpha := sq.AddAssistant("Specialist", "answer specialist questions")
	_, err := sq.AddEdge(sq.EntryID(), alpha, "the question needs the specialist")
	require.NoError(t, err)

	registry := tools.NewRegistry()
	tools.RegisterBuiltins(registry)
	for _, toolID := range []string{"addition", "division"} {
		require.NoError(t, sq.AttachTool(sq.EntryID(), toolID))
	}

	client := &scriptedClient{t: t, script: script}
	engine := NewEngine(client, sq, registry, config.DefaultSystemConfig())
	return &testEnv{engine: engine, squad: sq, client: client, alpha: alpha}
}

func userMsg(text string) *api.UnifiedMessage {
	return &api.UnifiedMessage{
		Session: api.SessionContext{ChannelID: "test", ChatID: "chat", Username: "tester"},
		Content: text,
	}
}

func rolesOf(turns []convo.Turn) []convo.Role {
	out := make([]convo.Role, 0, len(turns))
	for _, t := range turns {
		out = append(out, t.Role)
	}
	return out
}

func TestPlainTextTerminates(t *testing.T) {
	env := newTestEnv(t, reply("Hello there."))

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("hi")))

	turns := env.engine.Log().Turns()
	assert.Equal(t, []convo.Role{convo.RoleUser, convo.RoleAssistant}, rolesOf(turns))
	assert.Equal(t, "Hello there.", turns[1].Text)
	assert.Equal(t, 1, env.client.calls)
	assert.Equal(t, env.squad.EntryID(), env.squad.ActiveAssistant())
}

func TestToolCallRoundTrip(t *testing.T) {
	env := newTestEnv(t,
		reply("", call("addition", `{"a":2,"b":3}`)),
		func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
			// The tool result must be visible in the rebuilt history.
			var result *llm.Message
			for i := range req.Messages {
				if req.Messages[i].Role == llm.RoleTool {
					result = &req.Messages[i]
				}
			}
			require.NotNil(t, result)
			assert.Equal(t, "5", result.Content)
			return &llm.ChatResponse{Content: "The result is 5."}, nil
		},
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("add 2 and 3")))

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleTool, convo.RoleToolResult, convo.RoleAssistant,
	}, rolesOf(turns))

	// Call and result pair up by call id.
	require.NotNil(t, turns[1].ToolCall)
	require.NotNil(t, turns[2].ToolResult)
	assert.Equal(t, turns[1].ToolCall.CallID, turns[2].ToolResult.CallID)
	assert.Equal(t, "5", turns[2].ToolResult.Output)
	assert.False(t, turns[2].ToolResult.IsError)
}

func TestToolErrorIsRecovered(t *testing.T) {
	env := newTestEnv(t,
		reply("", call("division", `{"a":1,"b":0}`)),
		reply("I cannot divide by zero."),
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("divide 1 by 0")))

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleTool, convo.RoleToolResult, convo.RoleAssistant,
	}, rolesOf(turns))

	result := turns[2]
	require.NotNil(t, result.ToolResult)
	assert.True(t, result.ToolResult.IsError)
	assert.Equal(t, "Error: division by zero", result.ToolResult.Output)
	assert.Equal(t, "division by zero", env.squad.Runtime().LastError)
}

func TestTransferMovesControl(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t,
		reply("", call("transfer_to_", "")), // placeholder, patched below
		func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
			// After the handoff the specialist's prompt is in effect.
			assert.Contains(t, req.SystemPrompt, "answer specialist questions")
			return &llm.ChatResponse{Content: "Specialist here."}, nil
		},
	)
	env.client.script[0] = reply("",
		call("transfer_to_"+env.alpha, `{"reason":"needs the specialist"}`))

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("specialist question")))

	assert.Equal(t, env.alpha, env.squad.ActiveAssistant())
	assert.NotEmpty(t, env.squad.Runtime().LastTransferEdge)

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleTransfer, convo.RoleAssistant,
	}, rolesOf(turns))
	require.NotNil(t, turns[1].Transfer)
	assert.Equal(t, env.squad.EntryID(), turns[1].Transfer.Source)
	assert.Equal(t, env.alpha, turns[1].Transfer.Target)
	assert.Equal(t, "needs the specialist", turns[1].Transfer.Reason)
	assert.Equal(t, "Specialist here.", turns[2].Text)
}

func TestTransferReasonFallsBackToTrigger(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t,
		nil,
		reply("Specialist here."),
	)
	env.client.script[0] = reply("", call("transfer_to_"+env.alpha, `{}`))

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("go")))

	turns := env.engine.Log().Turns()
	require.NotNil(t, turns[1].Transfer)
	assert.Equal(t, "the question needs the specialist", turns[1].Transfer.Reason)
}

func TestInvalidTransferLeavesStateUnchanged(t *testing.T) {
	env := newTestEnv(t,
		reply("", call("transfer_to_ghost", `{"reason":"x"}`)),
		reply("Staying put."),
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("go somewhere odd")))

	assert.Equal(t, env.squad.EntryID(), env.squad.ActiveAssistant())
	assert.Empty(t, env.squad.Runtime().LastTransferEdge)

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleAssistant, convo.RoleAssistant,
	}, rolesOf(turns))
	assert.Contains(t, turns[1].Text, "Invalid transfer")
}

func TestUnknownToolIsRecovered(t *testing.T) {
	env := newTestEnv(t,
		// word_count exists in the registry but is not attached here.
		reply("", call("word_count", `{"text":"a b"}`)),
		reply("Sorry, no such tool."),
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("count words")))

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleAssistant, convo.RoleAssistant,
	}, rolesOf(turns))
	assert.Contains(t, turns[1].Text, "not available")
}

func TestProviderErrorAbortsTurn(t *testing.T) {
	boom := errors.New("connection refused")
	env := newTestEnv(t, func(*llm.ChatRequest) (*llm.ChatResponse, error) {
		return nil, boom
	})

	err := env.engine.HandleMessage(context.Background(), userMsg("hello"))
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)

	// Only the user turn made it into the log.
	turns := env.engine.Log().Turns()
	assert.Equal(t, []convo.Role{convo.RoleUser}, rolesOf(turns))

	rt := env.squad.Runtime()
	assert.Contains(t, rt.LastError, "connection refused")
	assert.False(t, rt.AwaitingProvider)
}

func TestStepBudgetStopsRunawayLoop(t *testing.T) {
	env := newTestEnv(t)
	env.engine.sysCfg = config.DefaultSystemConfig()
	env.engine.sysCfg.MaxSteps = 5

	// The model insists on calling a tool forever.
	forever := func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
		return &llm.ChatResponse{ToolCalls: []llm.ToolCall{call("addition", `{"a":1,"b":1}`)}}, nil
	}
	for i := 0; i < 20; i++ {
		env.client.script = append(env.client.script, forever)
	}

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("loop")))
	assert.Equal(t, 5, env.client.calls, "exactly one provider call per step")
}

func TestPlannerRunsOncePerConversation(t *testing.T) {
	env := newTestEnv(t,
		func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
			// Preconditions hold, so the planner schema is offered and
			// the payload is attached to the history.
			names := make([]string, 0, len(req.Tools))
			for _, tool := range req.Tools {
				names = append(names, tool.Name)
			}
			assert.Contains(t, names, tools.PlannerToolID)
			last := req.Messages[len(req.Messages)-1]
			assert.Contains(t, last.Content, "Planning context")
			return &llm.ChatResponse{ToolCalls: []llm.ToolCall{call(tools.PlannerToolID, `{}`)}}, nil
		},
		// The planner round trip itself: tool calling disabled.
		func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
			assert.Equal(t, llm.ToolChoiceNone, req.ToolChoice)
			assert.Empty(t, req.Tools)
			return &llm.ChatResponse{Content: `{"steps":[{"id":1,"assistant":"main","question":"q"}]}`}, nil
		},
		// The model asks for the planner again; no provider call results.
		reply("", call(tools.PlannerToolID, `{}`)),
		reply("Done."),
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("plan this")))

	assert.Equal(t, `{"steps":[{"id":1,"assistant":"main","question":"q"}]}`, env.squad.Plan())
	assert.Equal(t, 4, env.client.calls)

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RolePlan, convo.RoleAssistant, convo.RoleAssistant,
	}, rolesOf(turns))
	assert.Contains(t, turns[2].Text, "plan already exists")
}

func TestPlannerEmptyResponseStoresEmptyPlan(t *testing.T) {
	env := newTestEnv(t,
		reply("", call(tools.PlannerToolID, `{}`)),
		reply(""), // planner returns nothing
		reply("Moving on."),
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("plan this")))
	assert.Equal(t, `{"steps":[]}`, env.squad.Plan())
}

func TestPlannerNotOfferedOffEntry(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t,
		nil,
		func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
			for _, tool := range req.Tools {
				assert.NotEqual(t, tools.PlannerToolID, tool.Name)
			}
			return &llm.ChatResponse{Content: "Specialist here."}, nil
		},
	)
	env.client.script[0] = reply("", call("transfer_to_"+env.alpha, `{"reason":"r"}`))

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("go")))
}

func TestPlannerRejectedOffEntry(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t,
		nil,
		reply("", call(tools.PlannerToolID, `{}`)),
		reply("Specialist here."),
	)
	env.client.script[0] = reply("", call("transfer_to_"+env.alpha, `{"reason":"handoff"}`))

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("go")))

	assert.Empty(t, env.squad.Plan())
	assert.Equal(t, 3, env.client.calls, "no planner round trip for a specialist")

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleTransfer, convo.RoleAssistant, convo.RoleAssistant,
	}, rolesOf(turns))
	assert.Contains(t, turns[2].Text, "only available to the entry assistant")
	assert.Equal(t, env.alpha, env.squad.ActiveAssistant())
}

func TestTransferToolsSurviveDisabledTools(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t, func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
		names := make([]string, 0, len(req.Tools))
		for _, tool := range req.Tools {
			names = append(names, tool.Name)
		}
		assert.NotContains(t, names, "addition")
		assert.Contains(t, names, "transfer_to_"+env.alpha)
		return &llm.ChatResponse{Content: "ok"}, nil
	})
	env.engine.sysCfg = config.DefaultSystemConfig()
	env.engine.sysCfg.EnableTools = false

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("hi")))
}

func TestTransferRulesInSystemPrompt(t *testing.T) {
	env := newTestEnv(t, func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
		assert.Contains(t, req.SystemPrompt, "route things")
		assert.Contains(t, req.SystemPrompt, "Transfer rules:")
		assert.Contains(t, req.SystemPrompt, "the question needs the specialist")
		assert.Contains(t, req.SystemPrompt, "Do not invent tools.")
		return &llm.ChatResponse{Content: "ok"}, nil
	})

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("hi")))
}

func TestMidBatchTransferAffectsLaterCalls(t *testing.T) {
	var env *testEnv
	env = newTestEnv(t,
		nil,
		reply("Specialist wraps up."),
	)
	// One response carries a transfer followed by a tool call. The tool
	// is attached to the entry assistant only, so after the handoff it
	// must be rejected for the new active assistant.
	env.client.script[0] = reply("",
		call("transfer_to_"+env.alpha, `{"reason":"r"}`),
		call("addition", `{"a":1,"b":2}`),
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("go")))

	turns := env.engine.Log().Turns()
	require.Equal(t, []convo.Role{
		convo.RoleUser, convo.RoleTransfer, convo.RoleAssistant, convo.RoleAssistant,
	}, rolesOf(turns))
	assert.Contains(t, turns[2].Text, "not available")
	assert.Equal(t, turns[2].Assistant, env.alpha)
}

func TestReset(t *testing.T) {
	env := newTestEnv(t,
		nil,
		reply("Hello again."),
	)
	env.client.script[0] = reply("", call("transfer_to_"+env.alpha, `{"reason":"r"}`))
	env.client.script = append(env.client.script, reply("fresh start"))

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("go")))
	require.Equal(t, env.alpha, env.squad.ActiveAssistant())
	env.squad.SetPlan("leftover")

	msg := userMsg("")
	msg.Reset = true
	require.NoError(t, env.engine.HandleMessage(context.Background(), msg))

	assert.Equal(t, 0, env.engine.Log().Len())
	assert.Equal(t, env.squad.EntryID(), env.squad.ActiveAssistant())
	assert.Empty(t, env.squad.Plan())
}

func TestSequentialToolCalls(t *testing.T) {
	var order []string
	env := newTestEnv(t,
		reply("",
			call("addition", `{"a":1,"b":2}`),
			call("division", `{"a":6,"b":3}`),
		),
		func(req *llm.ChatRequest) (*llm.ChatResponse, error) {
			return &llm.ChatResponse{Content: "done"}, nil
		},
	)

	require.NoError(t, env.engine.HandleMessage(context.Background(), userMsg("both")))

	turns := env.engine.Log().Turns()
	for _, turn := range turns {
		if turn.Role == convo.RoleToolResult {
			order = append(order, fmt.Sprintf("%s=%s", turn.ToolResult.Name, turn.ToolResult.Output))
		}
	}
	assert.Equal(t, []string{"addition=3", "division=2"}, order)
}
