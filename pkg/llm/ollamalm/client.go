package ollamalm

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"squadflow/pkg/llm"

	jsoniter "github.com/json-iterator/go"
	"github.com/ollama/ollama/api"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// OllamaClient Ollama API client
type OllamaClient struct {
	client  *api.Client
	model   string
	options map[string]any
}

// NewOllamaClient creates an Ollama client
func NewOllamaClient(model string, baseURL string, options map[string]any) (*OllamaClient, error) {
	var client *api.Client
	var err error

	// Local models can take minutes to load, so no client-side timeout.
	customClient := &http.Client{Timeout: 0}

	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid base URL: %w", err)
		}
		client = api.NewClient(u, customClient)
	} else {
		client, err = api.ClientFromEnvironment()
	}

	if err != nil {
		return nil, err
	}

	slog.Info("Ollama client initialized", "model", model, "base_url", baseURL)

	return &OllamaClient{
		client:  client,
		model:   model,
		options: options,
	}, nil
}

func (o *OllamaClient) Provider() string {
	return "ollama"
}

// Chat implements llm.Client
func (o *OllamaClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	apiMessages := o.convertMessages(req)

	// Convert tools using a JSON round trip to match the SDK's schema types
	var ollamaTools []api.Tool
	if len(req.Tools) > 0 && req.ToolChoice != llm.ToolChoiceNone {
		raw := make([]map[string]any, 0, len(req.Tools))
		for _, s := range req.Tools {
			raw = append(raw, map[string]any{
				"type": "function",
				"function": map[string]any{
					"name":        s.Name,
					"description": s.Description,
					"parameters":  s.Parameters,
				},
			})
		}
		rawB, err := json.Marshal(raw)
		if err == nil {
			if err := json.Unmarshal(rawB, &ollamaTools); err != nil {
				slog.Error("Failed to unmarshal to api.Tool", "provider", "ollama", "error", err)
			}
		}
	}

	streamVal := false
	chatReq := &api.ChatRequest{
		Model:    o.model,
		Messages: apiMessages,
		Options:  o.options,
		Tools:    ollamaTools,
		Stream:   &streamVal,
	}

	resp := &llm.ChatResponse{}
	err := o.client.Chat(ctx, chatReq, func(r api.ChatResponse) error {
		resp.Content += r.Message.Content

		for _, tc := range r.Message.ToolCalls {
			argsB, err := json.Marshal(tc.Function.Arguments)
			if err != nil {
				slog.Warn("Failed to marshal tool call arguments", "provider", "ollama", "error", err)
				argsB = []byte("{}")
			}
			id := tc.ID
			if id == "" {
				id = fmt.Sprintf("call_%s_%d", tc.Function.Name, len(resp.ToolCalls))
			}
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        id,
				Name:      tc.Function.Name,
				Arguments: string(argsB),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ollama chat: %w", err)
	}

	return resp, nil
}

// convertMessages converts messages to Ollama API format
func (o *OllamaClient) convertMessages(req *llm.ChatRequest) []api.Message {
	var ollamaMsgs []api.Message

	if req.SystemPrompt != "" {
		ollamaMsgs = append(ollamaMsgs, api.Message{
			Role:    "system",
			Content: req.SystemPrompt,
		})
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleAssistant:
			msg := api.Message{
				Role:    "assistant",
				Content: m.Content,
			}
			for _, tc := range m.ToolCalls {
				var args api.ToolCallFunctionArguments
				json.Unmarshal([]byte(tc.Arguments), &args)
				msg.ToolCalls = append(msg.ToolCalls, api.ToolCall{
					ID: tc.ID,
					Function: api.ToolCallFunction{
						Name:      tc.Name,
						Arguments: args,
					},
				})
			}
			ollamaMsgs = append(ollamaMsgs, msg)
		case llm.RoleTool:
			ollamaMsgs = append(ollamaMsgs, api.Message{
				Role:     "tool",
				Content:  m.Content,
				ToolName: m.ToolName,
			})
		default:
			ollamaMsgs = append(ollamaMsgs, api.Message{
				Role:    m.Role,
				Content: m.Content,
			})
		}
	}

	return ollamaMsgs
}

// IsTransientError implements the llm.Client interface
func (o *OllamaClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()

	// Connection related errors (Connection refused, reset)
	if strings.Contains(errMsg, "connection refused") || strings.Contains(errMsg, "connection reset") {
		return true
	}

	// High load
	if strings.Contains(strings.ToLower(errMsg), "overloaded") {
		return true
	}

	return false
}
