package vectorstore

import (
	"context"

	"github.com/rag-pipeline/internal/models"
)

// Backend names
const (
	BackendPersistent = "persistent"
	BackendMemory     = "memory"
)

// DefaultCollection is the collection name used when none is configured
const DefaultCollection = "kb_store"

// VectorStore is an append-only set of (id, text, vector, metadata) records
// with top-K similarity retrieval. Implementations never return backend
// errors; failures are absorbed and logged.
type VectorStore interface {
	// AddDocuments stores chunks with their vectors and returns the assigned ids.
	// embeddings may be nil.
	AddDocuments(ctx context.Context, chunks []string, embeddings [][]float32, metadata map[string]string) []string

	// SimilaritySearch returns up to k matches ordered best-first.
	// k below 1 is treated as 1.
	SimilaritySearch(ctx context.Context, query string, k int) []models.Match

	// Backend names the backend currently serving requests
	Backend() string

	Len() int
	Close() error
}

// QueryEmbedder turns a query string into a vector
type QueryEmbedder interface {
	Embed(ctx context.Context, chunks []string) ([][]float32, error)
}

func clampK(k int) int {
	if k < 1 {
		return 1
	}
	return k
}

func copyMeta(meta map[string]string) map[string]string {
	out := make(map[string]string, len(meta))
	for k, v := range meta {
		out[k] = v
	}
	return out
}
