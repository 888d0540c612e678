package embeddings

import (
	"context"
	"fmt"
	"time"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
)

// Embedder maps a batch of chunks to one vector per chunk, in input order
type Embedder interface {
	Embed(ctx context.Context, chunks []string) ([][]float32, error)
	Name() string
}

// New creates the embedder selected by cfg.EmbeddingsProvider.
// A missing credential does not fail construction; the returned embedder
// reports ErrConfiguration on use.
func New(cfg models.RAGConfig, geminiKey, openaiKey string, logger zerolog.Logger) (Embedder, error) {
	timeout := time.Duration(cfg.EmbeddingsTimeout) * time.Second

	switch cfg.EmbeddingsProvider {
	case "", ProviderGemini:
		return NewClient(geminiKey, cfg.EmbeddingsModel, cfg.EmbeddingsBaseURL, timeout, logger), nil
	case ProviderOpenAI:
		return NewOpenAIClient(openaiKey, cfg.EmbeddingsModel, cfg.EmbeddingsBaseURL, timeout, logger), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", cfg.EmbeddingsProvider)
	}
}
