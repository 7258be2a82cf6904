package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Client is the completion provider contract. One Chat call is exactly one
// non-streaming round trip: the provider never chains tool executions on
// its side, it only returns the calls it wants made.
type Client interface {
	// Chat performs a single completion round trip.
	Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error)

	// Provider returns the provider name ("openai", "gemini", "ollama").
	Provider() string

	// IsTransientError reports whether the error is worth retrying
	// (rate limits, 5xx, network timeouts).
	IsTransientError(err error) bool
}

// FallbackClient tries a list of clients in order, retrying transient
// failures per client before moving on to the next one.
type FallbackClient struct {
	Clients    []Client
	MaxRetries int
	RetryDelay time.Duration
}

func (f *FallbackClient) Provider() string {
	if len(f.Clients) > 0 {
		return f.Clients[0].Provider()
	}
	return "fallback"
}

func (f *FallbackClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	var lastErr error
	for i, client := range f.Clients {
		if i > 0 {
			slog.Warn("Previous provider failed, trying fallback", "provider", client.Provider(), "index", i+1)
		}

		maxRetries := f.MaxRetries
		if maxRetries <= 0 {
			maxRetries = 1
		}

		for retry := 1; retry <= maxRetries; retry++ {
			if retry > 1 {
				select {
				case <-ctx.Done():
					return nil, ctx.Err()
				case <-time.After(time.Duration(retry-1) * f.RetryDelay):
				}
			}

			resp, err := client.Chat(ctx, req)
			if err == nil {
				return resp, nil
			}

			lastErr = err

			if client.IsTransientError(err) && retry < maxRetries {
				slog.Warn("Transient provider error, retrying", "provider", client.Provider(), "retry", fmt.Sprintf("%d/%d", retry, maxRetries), "error", err)
				continue
			}

			slog.Error("Provider failed", "provider", client.Provider(), "error", err)
			break
		}
	}
	return nil, fmt.Errorf("all fallback providers failed: %w", lastErr)
}

// IsTransientError implements Client. A FallbackClient error means every
// child already exhausted its retries, so it is not transient.
func (f *FallbackClient) IsTransientError(err error) bool {
	return false
}
