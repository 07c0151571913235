// Package memory implements dockhand's retrieval memory: past interactions
// embedded into vectors and recalled by semantic similarity.
//
// The store degrades gracefully: when the embedding backend is down,
// recording is skipped with a logged warning and queries return empty
// results. A failing embedder never blocks tool execution or surfaces an
// error to the operator.
package memory

import (
	"context"
	"fmt"

	"dockhand/config"
	"dockhand/model"
	"dockhand/ollama"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OllamaEmbedder generates embeddings via a local Ollama server.
type OllamaEmbedder struct {
	client *ollama.Client
	model  string
}

// NewOllamaEmbedder creates an Ollama-backed embedder. An empty model
// defaults to embeddinggemma.
func NewOllamaEmbedder(baseURL, embedModel string) (*OllamaEmbedder, error) {
	if embedModel == "" {
		embedModel = "embeddinggemma"
	}

	client, err := ollama.NewClient(baseURL, "")
	if err != nil {
		return nil, fmt.Errorf("failed to create Ollama client: %w", err)
	}

	return &OllamaEmbedder{client: client, model: embedModel}, nil
}

// Embed implements model.Embedder.
func (e *OllamaEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.Embed(ctx, e.model, text)
}

// Name implements model.Embedder.
func (e *OllamaEmbedder) Name() string {
	return "ollama:" + e.model
}

// OpenAIEmbedder generates embeddings via an OpenAI-compatible endpoint.
type OpenAIEmbedder struct {
	client openai.Client
	model  string
}

// NewOpenAIEmbedder creates an OpenAI-backed embedder. An empty model
// defaults to text-embedding-3-small.
func NewOpenAIEmbedder(baseURL, apiKey, embedModel string) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required for embeddings")
	}
	if embedModel == "" {
		embedModel = "text-embedding-3-small"
	}

	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}

	return &OpenAIEmbedder{
		client: openai.NewClient(opts...),
		model:  embedModel,
	}, nil
}

// Embed implements model.Embedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI embedding failed: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("no embedding returned")
	}

	vec := make([]float32, len(resp.Data[0].Embedding))
	for i, v := range resp.Data[0].Embedding {
		vec[i] = float32(v)
	}
	return vec, nil
}

// Name implements model.Embedder.
func (e *OpenAIEmbedder) Name() string {
	return "openai:" + e.model
}

// NewEmbedder builds the configured embedding backend. The active provider
// profile supplies credentials when the backend is "openai".
func NewEmbedder(cfg *config.Settings, active config.Profile) (model.Embedder, error) {
	switch cfg.EmbedProvider {
	case "ollama", "":
		return NewOllamaEmbedder(cfg.OllamaHost, cfg.EmbedModel)
	case "openai":
		return NewOpenAIEmbedder(active.BaseURL, active.APIKey, cfg.EmbedModel)
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s (use 'ollama' or 'openai')", cfg.EmbedProvider)
	}
}
