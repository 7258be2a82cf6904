package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClient scripts a sequence of outcomes, one per Chat call.
type fakeClient struct {
	name      string
	errs      []error
	transient bool
	calls     int
}

func (f *fakeClient) Chat(ctx context.Context, req *ChatRequest) (*ChatResponse, error) {
	idx := f.calls
	f.calls++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}
	return &ChatResponse{Content: f.name + " says hi"}, nil
}

func (f *fakeClient) Provider() string { return f.name }

func (f *fakeClient) IsTransientError(err error) bool { return f.transient }

func TestFallbackClientFirstSucceeds(t *testing.T) {
	primary := &fakeClient{name: "primary"}
	backup := &fakeClient{name: "backup"}
	fb := &FallbackClient{Clients: []Client{primary, backup}, MaxRetries: 3}

	resp, err := fb.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "primary says hi", resp.Content)
	assert.Equal(t, 1, primary.calls)
	assert.Equal(t, 0, backup.calls)
}

func TestFallbackClientRetriesTransientErrors(t *testing.T) {
	primary := &fakeClient{
		name:      "primary",
		errs:      []error{errors.New("rate limited"), errors.New("rate limited")},
		transient: true,
	}
	fb := &FallbackClient{Clients: []Client{primary}, MaxRetries: 3}

	resp, err := fb.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "primary says hi", resp.Content)
	assert.Equal(t, 3, primary.calls)
}

func TestFallbackClientSkipsToNextOnPermanentError(t *testing.T) {
	primary := &fakeClient{name: "primary", errs: []error{errors.New("invalid api key")}}
	backup := &fakeClient{name: "backup"}
	fb := &FallbackClient{Clients: []Client{primary, backup}, MaxRetries: 3}

	resp, err := fb.Chat(context.Background(), &ChatRequest{})
	require.NoError(t, err)
	assert.Equal(t, "backup says hi", resp.Content)
	assert.Equal(t, 1, primary.calls, "permanent errors are not retried")
}

func TestFallbackClientAllFail(t *testing.T) {
	boom := errors.New("down")
	fb := &FallbackClient{
		Clients:    []Client{&fakeClient{name: "a", errs: []error{boom}}},
		MaxRetries: 1,
	}

	_, err := fb.Chat(context.Background(), &ChatRequest{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, fb.IsTransientError(err))
}

func TestFallbackClientContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	primary := &fakeClient{
		name:      "primary",
		errs:      []error{errors.New("timeout"), errors.New("timeout")},
		transient: true,
	}
	fb := &FallbackClient{Clients: []Client{primary}, MaxRetries: 3}

	_, err := fb.Chat(ctx, &ChatRequest{})
	require.Error(t, err)
	assert.LessOrEqual(t, primary.calls, 2, "no retries once the context is done")
}
