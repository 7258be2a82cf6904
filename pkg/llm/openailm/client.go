package openailm

import (
	"context"
	"fmt"
	"os"
	"strings"

	"squadflow/pkg/llm"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"
)

// Client is a wrapper around the official OpenAI Go SDK
type Client struct {
	client   *openai.Client
	provider string
	model    string
	options  map[string]any
}

// NewClient creates a new OpenAI client
func NewClient(provider string, apiKey string, model string, baseURL string, options map[string]any) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing OpenAI API key")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}

	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	client := openai.NewClient(opts...)

	return &Client{
		client:   &client,
		provider: provider,
		model:    model,
		options:  options,
	}, nil
}

func (c *Client) Provider() string {
	return c.provider
}

func (c *Client) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())

	// Transient: network-level issues
	if strings.Contains(msg, "context deadline exceeded") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "timeout") {
		return true
	}

	// Transient: server-side temporary failures
	if strings.Contains(msg, "429") ||
		strings.Contains(msg, "500 internal") ||
		strings.Contains(msg, "502 bad gateway") ||
		strings.Contains(msg, "503 service unavailable") ||
		strings.Contains(msg, "overloaded") {
		return true
	}

	// Everything else (400 Bad Request, 401 Unauthorized, etc.) is non-transient
	return false
}

func (c *Client) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	params := openai.ChatCompletionNewParams{
		Model:    c.model,
		Messages: c.convertMessages(req),
	}

	if tools := c.convertTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
		params.ParallelToolCalls = openai.Bool(false)
	}

	switch req.ToolChoice {
	case llm.ToolChoiceNone:
		params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: openai.String("none"),
		}
	case llm.ToolChoiceAuto:
		if len(params.Tools) > 0 {
			params.ToolChoice = openai.ChatCompletionToolChoiceOptionUnionParam{
				OfAuto: openai.String("auto"),
			}
		}
	}

	opts := []option.RequestOption{}

	if t, ok := c.options["temperature"].(float64); ok {
		opts = append(opts, option.WithJSONSet("temperature", t))
	}
	if p, ok := c.options["top_p"].(float64); ok {
		opts = append(opts, option.WithJSONSet("top_p", p))
	}
	if maxTok, ok := c.options["max_tokens"].(float64); ok {
		opts = append(opts, option.WithJSONSet("max_completion_tokens", int(maxTok)))
	}

	completion, err := c.client.Chat.Completions.New(ctx, params, opts...)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}

	if len(completion.Choices) == 0 {
		return nil, fmt.Errorf("openai returned no choices")
	}

	choice := completion.Choices[0]
	resp := &llm.ChatResponse{
		Content: choice.Message.Content,
	}

	for _, tc := range choice.Message.ToolCalls {
		fn := tc.AsFunction()
		resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
			ID:        fn.ID,
			Name:      fn.Function.Name,
			Arguments: fn.Function.Arguments,
		})
	}

	return resp, nil
}

func (c *Client) convertMessages(req *llm.ChatRequest) []openai.ChatCompletionMessageParamUnion {
	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(req.Messages)+1)

	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.SystemMessage(req.SystemPrompt))
	}

	for _, m := range req.Messages {
		switch m.Role {
		case llm.RoleSystem:
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case llm.RoleUser:
			msgs = append(msgs, openai.UserMessage(m.Content))
		case llm.RoleAssistant:
			if len(m.ToolCalls) == 0 {
				msgs = append(msgs, openai.AssistantMessage(m.Content))
				continue
			}
			assistant := openai.ChatCompletionAssistantMessageParam{}
			if m.Content != "" {
				assistant.Content.OfString = openai.String(m.Content)
			}
			for _, tc := range m.ToolCalls {
				assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
					OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
						ID: tc.ID,
						Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
							Name:      tc.Name,
							Arguments: tc.Arguments,
						},
					},
				})
			}
			msgs = append(msgs, openai.ChatCompletionMessageParamUnion{OfAssistant: &assistant})
		case llm.RoleTool:
			msgs = append(msgs, openai.ToolMessage(m.Content, m.ToolCallID))
		}
	}

	return msgs
}

func (c *Client) convertTools(schemas []llm.ToolSchema) []openai.ChatCompletionToolUnionParam {
	var tools []openai.ChatCompletionToolUnionParam
	for _, s := range schemas {
		tools = append(tools, openai.ChatCompletionFunctionTool(shared.FunctionDefinitionParam{
			Name:        s.Name,
			Description: openai.String(s.Description),
			Parameters:  shared.FunctionParameters(s.Parameters),
		}))
	}
	return tools
}
