package tools

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"squadflow/pkg/config"
)

// Executor runs tool definitions. All failures, including panics from
// a misbehaving handler, are converted into an error-bearing Result;
// nothing escapes this boundary.
type Executor struct {
	httpClient     *http.Client
	sandboxTimeout time.Duration
}

// NewExecutor creates an executor with timeouts from the system config.
func NewExecutor(system *config.SystemConfig) *Executor {
	return &Executor{
		httpClient: &http.Client{
			Timeout: time.Duration(system.APITimeoutMs) * time.Millisecond,
		},
		sandboxTimeout: time.Duration(system.SandboxTimeoutMs) * time.Millisecond,
	}
}

// Execute dispatches on the definition kind. rawArgs is the serialized
// argument object exactly as the model produced it.
func (e *Executor) Execute(ctx context.Context, def *Definition, rawArgs string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{Err: fmt.Sprintf("tool %s panicked: %v", def.Name, r)}
		}
	}()

	switch def.Kind {
	case KindMath:
		return executeMath(def.ID, rawArgs)
	case KindEnglish:
		return executeEnglish(def.ID, rawArgs)
	case KindAPI:
		return executeAPI(ctx, e.httpClient, def.API, rawArgs)
	case KindCode:
		return executeCode(ctx, rawArgs, e.sandboxTimeout)
	case KindPlanner:
		// The routing engine intercepts planner calls before dispatch.
		return Result{Err: "planner tool cannot be executed directly"}
	default:
		return Result{Err: fmt.Sprintf("unknown tool kind: %s", def.Kind)}
	}
}
