package monitor

import (
	"fmt"
	"io"
	"os"
)

// CLIMonitor implements the Monitor interface, providing a direct
// terminal-based visualization of turns flowing through all channels.
type CLIMonitor struct {
	writer io.Writer // The output destination, typically os.Stdout.
}

// NewCLIMonitor creates a new CLI monitor
func NewCLIMonitor() *CLIMonitor {
	return &CLIMonitor{
		writer: os.Stdout,
	}
}

// Start starts the CLI monitor
func (m *CLIMonitor) Start() error {
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	fmt.Fprintln(m.writer, "💬 CLI Monitor Active - All channel turns will appear here")
	fmt.Fprintln(m.writer, "----------------------------------------------------------------")
	return nil
}

// Stop stops the CLI monitor
func (m *CLIMonitor) Stop() error {
	return nil
}

// OnMessage receives and displays a monitoring message
func (m *CLIMonitor) OnMessage(msg MonitorMessage) {
	timestamp := msg.Timestamp.Format("2006-01-02 15:04:05")

	var displayMsg string
	switch msg.MessageType {
	case "USER":
		displayMsg = fmt.Sprintf("[%s/%s] %s", msg.ChannelID, msg.Username, msg.Content)
	case "TRANSFER":
		displayMsg = fmt.Sprintf("[route] %s", msg.Content)
	case "TOOL":
		displayMsg = fmt.Sprintf("[tool/%s] %s", msg.Assistant, msg.Content)
	case "PLAN":
		displayMsg = fmt.Sprintf("[plan] %s", msg.Content)
	default:
		displayMsg = fmt.Sprintf("[%s] %s", msg.Assistant, msg.Content)
	}

	// Gray timestamp
	fmt.Fprintf(m.writer, "\033[90m[%s]\033[0m %s\n", timestamp, displayMsg)
}
