package gemini

import (
	"context"
	"fmt"
	"os"
	"strings"

	"squadflow/pkg/llm"

	jsoniter "github.com/json-iterator/go"
	"google.golang.org/genai"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// GeminiClient Google Gemini API client
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates a Gemini client with a single model and API key
func NewGeminiClient(apiKey string, model string) (*GeminiClient, error) {
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("missing Gemini API key")
	}

	ctx := context.Background()
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiClient{
		client: client,
		model:  model,
	}, nil
}

func (g *GeminiClient) Provider() string {
	return "gemini"
}

// Chat implements llm.Client
func (g *GeminiClient) Chat(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	contents := g.convertMessages(req.Messages)

	cfg := &genai.GenerateContentConfig{}

	if req.SystemPrompt != "" {
		cfg.SystemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: req.SystemPrompt}},
		}
	}

	if tools := g.convertTools(req.Tools); tools != nil {
		cfg.Tools = tools
	}

	if req.ToolChoice == llm.ToolChoiceNone {
		cfg.ToolConfig = &genai.ToolConfig{
			FunctionCallingConfig: &genai.FunctionCallingConfig{
				Mode: genai.FunctionCallingConfigModeNone,
			},
		}
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, contents, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini generate content: %w", err)
	}

	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	resp := &llm.ChatResponse{}
	var text strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part.Text != "" && !part.Thought {
			text.WriteString(part.Text)
		}
		if part.FunctionCall != nil {
			args, _ := json.Marshal(part.FunctionCall.Args)
			id := part.FunctionCall.ID
			if id == "" {
				id = fmt.Sprintf("call_%s_%d", part.FunctionCall.Name, len(resp.ToolCalls))
			}
			resp.ToolCalls = append(resp.ToolCalls, llm.ToolCall{
				ID:        id,
				Name:      part.FunctionCall.Name,
				Arguments: string(args),
			})
		}
	}
	resp.Content = text.String()

	return resp, nil
}

// convertMessages converts message list to GenAI format
func (g *GeminiClient) convertMessages(messages []llm.Message) []*genai.Content {
	var contents []*genai.Content

	for _, msg := range messages {
		switch msg.Role {
		case llm.RoleTool:
			// Tool results are part of user role in Gemini, addressed by
			// function name rather than call id.
			contents = append(contents, &genai.Content{
				Role: genai.RoleUser,
				Parts: []*genai.Part{
					{
						FunctionResponse: &genai.FunctionResponse{
							Name:     msg.ToolName,
							Response: map[string]any{"result": msg.Content},
						},
					},
				},
			})

		case llm.RoleAssistant:
			var parts []*genai.Part
			if msg.Content != "" {
				parts = append(parts, &genai.Part{Text: msg.Content})
			}
			// Gemini requires echoing the model's function calls before
			// their responses.
			for _, tc := range msg.ToolCalls {
				var args map[string]any
				json.Unmarshal([]byte(tc.Arguments), &args)
				parts = append(parts, &genai.Part{
					FunctionCall: &genai.FunctionCall{
						Name: tc.Name,
						Args: args,
					},
				})
			}
			if len(parts) > 0 {
				contents = append(contents, &genai.Content{
					Role:  genai.RoleModel,
					Parts: parts,
				})
			}

		default:
			if msg.Content == "" {
				continue
			}
			contents = append(contents, &genai.Content{
				Role:  genai.RoleUser,
				Parts: []*genai.Part{{Text: msg.Content}},
			})
		}
	}

	return contents
}

func (g *GeminiClient) convertTools(schemas []llm.ToolSchema) []*genai.Tool {
	var fds []*genai.FunctionDeclaration
	for _, s := range schemas {
		fd := &genai.FunctionDeclaration{
			Name:        s.Name,
			Description: s.Description,
		}
		if s.Parameters != nil {
			schemaB, _ := json.Marshal(s.Parameters)
			var schema genai.Schema
			json.Unmarshal(schemaB, &schema)
			fd.Parameters = &schema
		}
		fds = append(fds, fd)
	}
	if len(fds) == 0 {
		return nil
	}
	return []*genai.Tool{{FunctionDeclarations: fds}}
}

// IsTransientError implements the llm.Client interface
func (g *GeminiClient) IsTransientError(err error) bool {
	if err == nil {
		return false
	}
	errMsg := err.Error()

	// Google API common 503 Service Unavailable / Overloaded
	if strings.Contains(errMsg, "503") || strings.Contains(strings.ToLower(errMsg), "overloaded") {
		return true
	}

	// 429 Too Many Requests (Rate Limit)
	if strings.Contains(errMsg, "429") || strings.Contains(strings.ToLower(errMsg), "resource exhausted") {
		return true
	}

	// 500 Internal Error (Occasional Google Gemini crashes)
	if strings.Contains(errMsg, "500") || strings.Contains(strings.ToLower(errMsg), "internal error") {
		return true
	}

	return false
}
