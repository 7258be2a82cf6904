package monitor

import "time"

// MonitorMessage is one event shown to an operator watching the system.
type MonitorMessage struct {
	Timestamp   time.Time
	MessageType string // "USER", "ASSISTANT", "TRANSFER", "TOOL", "PLAN"
	ChannelID   string
	Username    string
	Assistant   string // routing assistant that produced the event
	Content     string
}

// Monitor defines the behavior of an operator-facing monitor.
type Monitor interface {
	Start() error
	Stop() error

	// OnMessage receives and displays a monitoring message
	OnMessage(msg MonitorMessage)
}
