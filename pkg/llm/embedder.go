package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/ollama"
)

// EmbedderConfig configures the embedding model.
type EmbedderConfig struct {
	Model   string
	BaseURL string
}

// Embedder turns texts into embedding vectors.
type Embedder struct {
	config EmbedderConfig
	llm    *ollama.LLM
}

// NewEmbedder creates an Embedder, filling unset config fields with defaults.
func NewEmbedder(config EmbedderConfig) (*Embedder, error) {
	if config.Model == "" {
		config.Model = "nomic-embed-text:latest"
	}
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:11434"
	}

	model, err := ollama.New(
		ollama.WithModel(config.Model),
		ollama.WithServerURL(config.BaseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("initialize embedding model: %w", err)
	}

	return &Embedder{config: config, llm: model}, nil
}

// CreateEmbedding embeds each text into a vector.
func (e *Embedder) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := e.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("create embedding: %w", err)
	}
	return embeddings, nil
}

// Flatten concatenates a batch of embeddings into a single vector.
func Flatten(embeddings [][]float32) []float32 {
	var flattened []float32
	for _, emb := range embeddings {
		flattened = append(flattened, emb...)
	}
	return flattened
}
