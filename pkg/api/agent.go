package api

import (
	"context"
)

// RoutingEngine defines the interface for the core routing loop.
type RoutingEngine interface {
	// HandleMessage runs one user turn to completion. Turns produced
	// along the way are emitted through the configured responder.
	HandleMessage(ctx context.Context, msg *UnifiedMessage) error
	// Reset clears the conversation and returns the squad to its
	// entry assistant.
	Reset()
	SetResponder(responder MessageResponder)
}
