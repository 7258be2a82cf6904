package convo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog(t *testing.T) {
	l := NewLog()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.FirstUserQuery())

	l.Append(
		NewUserTurn("what is 2+3?"),
		NewAssistantTurn("main", "Let me check."),
		NewUserTurn("and after that?"),
	)

	assert.Equal(t, 3, l.Len())
	assert.Equal(t, "what is 2+3?", l.FirstUserQuery())
	assert.Equal(t, "what is 2+3?\nLet me check.\nand after that?", l.JoinedText())

	// Turns hands out copies; mutating them must not touch the log.
	turns := l.Turns()
	turns[0].Text = "tampered"
	assert.Equal(t, "what is 2+3?", l.FirstUserQuery())

	l.Reset()
	assert.Equal(t, 0, l.Len())
	assert.Empty(t, l.FirstUserQuery())
}

func TestTurnConstructors(t *testing.T) {
	user := NewUserTurn("hi")
	assert.Equal(t, RoleUser, user.Role)
	assert.NotEmpty(t, user.ID)
	assert.False(t, user.Timestamp.IsZero())

	transfer := NewTransferTurn("main", "specialist", "needs expertise")
	require.NotNil(t, transfer.Transfer)
	assert.Equal(t, "main", transfer.Transfer.Source)
	assert.Equal(t, "specialist", transfer.Transfer.Target)
	assert.Equal(t, "needs expertise", transfer.Transfer.Reason)

	call := NewToolCallTurn("main", "call_1", "addition", `{"a":2,"b":3}`)
	require.NotNil(t, call.ToolCall)
	assert.Equal(t, "call_1", call.ToolCall.CallID)

	result := NewToolResultTurn("main", "call_1", "addition", "5", false)
	require.NotNil(t, result.ToolResult)
	assert.Equal(t, "call_1", result.ToolResult.CallID)
	assert.Equal(t, "5", result.Text)
	assert.False(t, result.ToolResult.IsError)
}
