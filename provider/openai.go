package provider

import (
	"context"
	"fmt"
	"strings"

	"dockhand/model"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIProvider implements model.Provider against any OpenAI-compatible
// chat completions endpoint (OpenAI, DeepSeek, OpenRouter).
type OpenAIProvider struct {
	client  openai.Client
	model   string
	baseURL string
	apiKey  string
}

// NewOpenAIProvider creates a new OpenAI-compatible provider instance.
// Returns an error if the API key is missing.
func NewOpenAIProvider(baseURL, apiKey, model string) (*OpenAIProvider, error) {
	if baseURL == "" {
		baseURL = "https://api.openai.com/v1"
	}
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}

	// Some endpoints are configured with the full completions path; the SDK
	// wants the API root.
	baseURL = strings.TrimSuffix(baseURL, "/chat/completions")

	client := openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
	)

	return &OpenAIProvider{
		client:  client,
		model:   model,
		baseURL: baseURL,
		apiKey:  apiKey,
	}, nil
}

// Chat implements model.Provider.Chat by delegating to ChatWithTools.
func (p *OpenAIProvider) Chat(ctx context.Context, turns []model.Turn, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, turns, nil, callback)
}

// ChatWithTools implements model.Provider.ChatWithTools with streaming.
// Tool calls surface through the callback once their arguments are fully
// accumulated; context cancellation stops stream consumption immediately.
func (p *OpenAIProvider) ChatWithTools(ctx context.Context, turns []model.Turn, tools []mcptypes.Tool, callback model.StreamCallback) error {
	params := openai.ChatCompletionNewParams{
		Messages: ConvertToOpenAIMessages(turns),
		Model:    openai.ChatModel(p.model),
	}

	if len(tools) > 0 {
		params.Tools = ConvertToolsToOpenAIFormat(tools)
	}

	stream := p.client.Chat.Completions.NewStreaming(ctx, params)
	acc := openai.ChatCompletionAccumulator{}

	var apiToolCallsDetected bool
	var contentBuilder strings.Builder

	for stream.Next() {
		chunk := stream.Current()
		acc.AddChunk(chunk)

		if tool, ok := acc.JustFinishedToolCall(); ok {
			apiToolCallsDetected = true
			if callback != nil {
				toolCall := model.ToolCall{
					Name:      tool.Name,
					Arguments: ParseToolArguments(tool.Arguments),
				}
				if err := callback("", []model.ToolCall{toolCall}); err != nil {
					return err
				}
			}
		}

		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			content := chunk.Choices[0].Delta.Content
			contentBuilder.WriteString(content)
			if callback != nil {
				if err := callback(content, nil); err != nil {
					return err
				}
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("OpenAI streaming error: %w", err)
	}

	// Some models emit the tool call as JSON text instead of using the
	// tools API; recover it so the loop can still act.
	if !apiToolCallsDetected && callback != nil {
		if leaked := ExtractLegacyToolCall(contentBuilder.String()); leaked != nil {
			return callback("", []model.ToolCall{*leaked})
		}
	}

	return nil
}

// GetModel implements model.Provider.GetModel.
func (p *OpenAIProvider) GetModel() string {
	return p.model
}

// SetModel implements model.Provider.SetModel.
func (p *OpenAIProvider) SetModel(model string) {
	p.model = model
}

// Ping implements model.Provider.Ping by listing models.
func (p *OpenAIProvider) Ping(ctx context.Context) error {
	_, err := p.client.Models.List(ctx)
	if err != nil {
		return fmt.Errorf("OpenAI ping failed: %w", err)
	}
	return nil
}
