package convo

import (
	"strings"
	"sync"
)

// Log is the append-only ordered sequence of turns for one
// conversation. It is both the audit trail and the source from which
// provider message histories are rebuilt.
type Log struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewLog() *Log {
	return &Log{}
}

// Append adds turns to the end of the log.
func (l *Log) Append(turns ...Turn) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = append(l.turns, turns...)
}

// Turns returns a copy of the full log.
func (l *Log) Turns() []Turn {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Turn, len(l.turns))
	copy(out, l.turns)
	return out
}

// Len returns the number of turns.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.turns)
}

// FirstUserQuery returns the text of the earliest user turn, empty if
// the user has not spoken yet.
func (l *Log) FirstUserQuery() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, t := range l.turns {
		if t.Role == RoleUser {
			return t.Text
		}
	}
	return ""
}

// JoinedText concatenates the text of every turn, used as the context
// string of the planner payload.
func (l *Log) JoinedText() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var sb strings.Builder
	for _, t := range l.turns {
		if t.Text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(t.Text)
	}
	return sb.String()
}

// Reset clears the log for a conversation restart.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.turns = nil
}
