package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
)

// PersistentStore serves requests from a Collection and redirects to a held
// InMemoryStore when the collection fails. An add failure switches to the
// fallback for the rest of the process; a search failure or a batch whose
// dimension does not match the collection affects that call only.
type PersistentStore struct {
	collection Collection
	embedder   QueryEmbedder
	fallback   *InMemoryStore
	degraded   atomic.Bool
	logger     zerolog.Logger
}

var _ VectorStore = (*PersistentStore)(nil)

// NewPersistentStore creates a store over collection.
// embedder turns queries into vectors for Collection.Query.
func NewPersistentStore(collection Collection, embedder QueryEmbedder, fallback *InMemoryStore, logger zerolog.Logger) *PersistentStore {
	if fallback == nil {
		fallback = NewInMemoryStore(StrategyRecency, nil, logger)
	}
	return &PersistentStore{
		collection: collection,
		embedder:   embedder,
		fallback:   fallback,
		logger: logger.With().
			Str("component", "vectorstore").
			Str("backend", BackendPersistent).
			Str("collection", collection.Name()).
			Logger(),
	}
}

// Backend reports "memory" once the store has fallen back permanently
func (p *PersistentStore) Backend() string {
	if p.degraded.Load() {
		return BackendMemory
	}
	return BackendPersistent
}

// Degraded reports whether the persistent collection has been abandoned
func (p *PersistentStore) Degraded() bool { return p.degraded.Load() }

// Len returns the records held by the collection and the fallback
func (p *PersistentStore) Len() int {
	n := p.fallback.Len()
	if p.degraded.Load() {
		return n
	}
	count, err := p.collection.Count(context.Background())
	if err != nil {
		p.logger.Warn().Err(backendError("count", err)).Msg("Failed to count collection records")
		return n
	}
	return count + n
}

// Close closes the underlying collection
func (p *PersistentStore) Close() error {
	return p.collection.Close()
}

// AddDocuments appends to the collection in one bulk call. Calls without
// usable embeddings go to the in-memory store.
func (p *PersistentStore) AddDocuments(ctx context.Context, chunks []string, embeddings [][]float32, metadata map[string]string) []string {
	if len(chunks) == 0 {
		return []string{}
	}
	if p.degraded.Load() {
		return p.fallback.AddDocuments(ctx, chunks, embeddings, metadata)
	}
	if embeddings == nil || len(embeddings) != len(chunks) {
		p.logger.Debug().
			Int("chunks", len(chunks)).
			Int("embeddings", len(embeddings)).
			Msg("No usable embeddings, storing in memory")
		return p.fallback.AddDocuments(ctx, chunks, embeddings, metadata)
	}

	metadatas := make([]map[string]string, len(chunks))
	for i := range metadatas {
		metadatas[i] = copyMeta(metadata)
	}

	ids, err := p.collection.Add(ctx, chunks, embeddings, metadatas)
	if errors.Is(err, ErrDimensionMismatch) {
		// The collection is healthy; only these vectors do not fit it
		p.logger.Warn().
			Err(err).
			Int("chunks", len(chunks)).
			Msg("Embedding dimension differs from collection, storing this batch in memory")
		return p.fallback.AddDocuments(ctx, chunks, embeddings, metadata)
	}
	if err != nil {
		p.degraded.Store(true)
		p.logger.Warn().
			Err(backendError("add", err)).
			Int("chunks", len(chunks)).
			Msg("Persistent backend failed, switching to in-memory store")
		return p.fallback.AddDocuments(ctx, chunks, embeddings, metadata)
	}

	p.logger.Debug().
		Int("added", len(ids)).
		Msg("Documents added")

	return ids
}

// SimilaritySearch queries the collection, falling back to the in-memory
// store for this query when the collection or the query embedding fails
func (p *PersistentStore) SimilaritySearch(ctx context.Context, query string, k int) []models.Match {
	k = clampK(k)
	if p.degraded.Load() {
		return p.fallback.SimilaritySearch(ctx, query, k)
	}

	matches, err := p.search(ctx, query, k)
	if err != nil {
		p.logger.Warn().
			Err(err).
			Int("k", k).
			Msg("Persistent search failed, using in-memory store for this query")
		return p.fallback.SimilaritySearch(ctx, query, k)
	}
	return matches
}

func (p *PersistentStore) search(ctx context.Context, query string, k int) ([]models.Match, error) {
	if p.embedder == nil {
		return nil, backendError("query", fmt.Errorf("no query embedder configured"))
	}
	vectors, err := p.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, backendError("embed", err)
	}
	if len(vectors) != 1 {
		return nil, backendError("embed", fmt.Errorf("expected one query vector, got %d", len(vectors)))
	}

	res, err := p.collection.Query(ctx, vectors[0], k)
	if err != nil {
		return nil, backendError("query", err)
	}

	n := len(res.IDs)
	if len(res.Documents) != n || len(res.Distances) != n || len(res.Metadatas) != n {
		return nil, backendError("query", fmt.Errorf("inconsistent result lengths"))
	}

	matches := make([]models.Match, n)
	for i := 0; i < n; i++ {
		matches[i] = models.Match{
			ID:    res.IDs[i],
			Score: 1 - res.Distances[i],
			Chunk: res.Documents[i],
			Meta:  copyMeta(res.Metadatas[i]),
		}
	}
	return matches, nil
}
