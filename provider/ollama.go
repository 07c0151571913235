package provider

import (
	"context"
	"fmt"

	"dockhand/model"
	"dockhand/ollama"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/ollama/ollama/api"
)

// OllamaProvider wraps the ollama.Client to implement model.Provider for
// local models.
type OllamaProvider struct {
	client *ollama.Client
}

// NewOllamaProvider creates a new Ollama provider instance. An empty baseURL
// defaults to http://localhost:11434.
func NewOllamaProvider(baseURL, modelName string) (*OllamaProvider, error) {
	if modelName == "" {
		modelName = "llama3.1:latest"
	}

	client, err := ollama.NewClient(baseURL, modelName)
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaProvider{client: client}, nil
}

// Chat implements model.Provider.Chat by delegating to ChatWithTools.
func (p *OllamaProvider) Chat(ctx context.Context, turns []model.Turn, callback model.StreamCallback) error {
	return p.ChatWithTools(ctx, turns, nil, callback)
}

// ChatWithTools implements model.Provider.ChatWithTools, converting turns
// and tool schemas to the Ollama API types on the way in and tool calls to
// the provider-agnostic form on the way out.
func (p *OllamaProvider) ChatWithTools(ctx context.Context, turns []model.Turn, tools []mcptypes.Tool, callback model.StreamCallback) error {
	ollamaMessages := ConvertToOllamaMessages(turns)

	var ollamaTools []api.Tool
	if len(tools) > 0 {
		ollamaTools = ConvertToolsToOllama(tools)
	}

	ollamaCallback := func(chunk string, ollamaCalls []api.ToolCall) error {
		if callback == nil {
			return nil
		}
		return callback(chunk, ConvertToProviderToolCalls(ollamaCalls))
	}

	return p.client.ChatWithTools(ctx, ollamaMessages, ollamaTools, ollamaCallback)
}

// GetModel implements model.Provider.GetModel.
func (p *OllamaProvider) GetModel() string {
	return p.client.GetModel()
}

// SetModel implements model.Provider.SetModel.
func (p *OllamaProvider) SetModel(model string) {
	p.client.SetModel(model)
}

// Ping implements model.Provider.Ping.
func (p *OllamaProvider) Ping(ctx context.Context) error {
	return p.client.Ping(ctx)
}
