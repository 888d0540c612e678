package vectorstore

import (
	"context"

	"github.com/rs/zerolog"
)

// Config selects and locates the vector store backend
type Config struct {
	Backend    string
	Path       string
	Collection string
}

// New selects the backend at startup. The persistent backend is tried first
// unless Backend is "memory"; if it cannot be opened the returned store is an
// in-memory store ranking by recency.
func New(ctx context.Context, cfg Config, embedder QueryEmbedder, logger zerolog.Logger) VectorStore {
	log := logger.With().Str("component", "vectorstore").Logger()

	if cfg.Backend == BackendMemory {
		log.Info().Msg("Using in-memory vector store")
		return NewInMemoryStore(StrategyCosine, embedder, logger)
	}

	collection, err := OpenSQLiteCollection(ctx, cfg.Path, cfg.Collection)
	if err != nil {
		log.Warn().
			Err(backendError("open", err)).
			Str("path", cfg.Path).
			Msg("Persistent vector store unavailable, using in-memory store")
		return NewInMemoryStore(StrategyRecency, embedder, logger)
	}

	log.Info().
		Str("path", collection.Path()).
		Str("collection", collection.Name()).
		Msg("Persistent vector store opened")

	return NewPersistentStore(collection, embedder, NewInMemoryStore(StrategyRecency, nil, logger), logger)
}
