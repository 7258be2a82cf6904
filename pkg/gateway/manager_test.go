package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"squadflow/pkg/api"
	"squadflow/pkg/convo"
	"squadflow/pkg/monitor"
)

type fakeChannel struct {
	id      string
	started bool
	stopped bool
	sent    []string
	turns   []convo.Turn
	signals []string
}

func (c *fakeChannel) ID() string { return c.id }

func (c *fakeChannel) Start(ctx api.ChannelContext) error {
	c.started = true
	return nil
}

func (c *fakeChannel) Stop() error {
	c.stopped = true
	return nil
}

func (c *fakeChannel) Send(session api.SessionContext, message string) error {
	c.sent = append(c.sent, message)
	return nil
}

func (c *fakeChannel) SendTurn(session api.SessionContext, turn convo.Turn) error {
	c.turns = append(c.turns, turn)
	return nil
}

func (c *fakeChannel) SendSignal(session api.SessionContext, signal string) error {
	c.signals = append(c.signals, signal)
	return nil
}

type recordingMonitor struct {
	events []monitor.MonitorMessage
}

func (m *recordingMonitor) Start() error { return nil }
func (m *recordingMonitor) Stop() error  { return nil }
func (m *recordingMonitor) OnMessage(msg monitor.MonitorMessage) {
	m.events = append(m.events, msg)
}

func TestGatewayRouting(t *testing.T) {
	gw := NewGatewayManager()
	mon := &recordingMonitor{}
	gw.SetMonitor(mon)

	ch := &fakeChannel{id: "test"}
	gw.Register(ch)
	require.NoError(t, gw.StartAll())
	assert.True(t, ch.started)

	session := api.SessionContext{ChannelID: "test", Username: "tester"}

	require.NoError(t, gw.SendReply(session, "hello"))
	assert.Equal(t, []string{"hello"}, ch.sent)

	require.NoError(t, gw.SendTurn(session, convo.NewTransferTurn("main", "alpha", "topic shift")))
	require.Len(t, ch.turns, 1)

	require.NoError(t, gw.SendSignal(session, "working"))
	assert.Equal(t, []string{"working"}, ch.signals)

	err := gw.SendReply(api.SessionContext{ChannelID: "ghost"}, "x")
	assert.Error(t, err)

	gw.StopAll()
	assert.True(t, ch.stopped)

	// Both sends were mirrored to the monitor.
	require.Len(t, mon.events, 2)
	assert.Equal(t, "ASSISTANT", mon.events[0].MessageType)
	assert.Equal(t, "TRANSFER", mon.events[1].MessageType)
	assert.Equal(t, "main -> alpha (topic shift)", mon.events[1].Content)
}

func TestGatewayOnMessage(t *testing.T) {
	gw := NewGatewayManager()
	mon := &recordingMonitor{}
	gw.SetMonitor(mon)

	var got *UnifiedMessage
	gw.SetMessageHandler(func(msg *UnifiedMessage) { got = msg })

	msg := &UnifiedMessage{
		Session: api.SessionContext{ChannelID: "test", Username: "tester"},
		Content: "hi there",
	}
	gw.OnMessage("test", msg)

	require.NotNil(t, got)
	assert.Equal(t, "hi there", got.Content)
	require.Len(t, mon.events, 1)
	assert.Equal(t, "USER", mon.events[0].MessageType)
}

func TestTurnToMonitorMessage(t *testing.T) {
	session := api.SessionContext{ChannelID: "test", Username: "tester"}

	msg := turnToMonitorMessage(session, convo.NewToolCallTurn("main", "c1", "addition", `{"a":1,"b":2}`))
	assert.Equal(t, "TOOL", msg.MessageType)
	assert.Equal(t, `addition({"a":1,"b":2})`, msg.Content)

	msg = turnToMonitorMessage(session, convo.NewToolResultTurn("main", "c1", "addition", "3", false))
	assert.Equal(t, "TOOL", msg.MessageType)
	assert.Equal(t, "addition => 3", msg.Content)

	msg = turnToMonitorMessage(session, convo.NewPlanTurn("main", `{"steps":[]}`))
	assert.Equal(t, "PLAN", msg.MessageType)

	msg = turnToMonitorMessage(session, convo.NewAssistantTurn("main", "text"))
	assert.Equal(t, "ASSISTANT", msg.MessageType)
	assert.Equal(t, "main", msg.Assistant)
}
