package vectorstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
)

// Strategy selects how InMemoryStore scores records
type Strategy int

const (
	// StrategyRecency scores by insertion order only, newest first.
	// Used when the store serves as the fallback for a failed persistent backend.
	StrategyRecency Strategy = iota

	// StrategyCosine scores stored vectors against the embedded query.
	// Drops to recency when no real vectors are stored or the query cannot be embedded.
	StrategyCosine
)

func (s Strategy) String() string {
	switch s {
	case StrategyRecency:
		return "recency"
	case StrategyCosine:
		return "cosine"
	default:
		return fmt.Sprintf("strategy(%d)", int(s))
	}
}

type record struct {
	id     string
	text   string
	vector []float32
	meta   map[string]string
}

// InMemoryStore is a brute-force VectorStore held in process memory
type InMemoryStore struct {
	mu       sync.RWMutex
	records  []record
	vectors  int // records added with caller-supplied vectors
	strategy Strategy
	embedder QueryEmbedder
	logger   zerolog.Logger
}

var _ VectorStore = (*InMemoryStore)(nil)

// NewInMemoryStore creates an empty store. embedder may be nil for StrategyRecency.
func NewInMemoryStore(strategy Strategy, embedder QueryEmbedder, logger zerolog.Logger) *InMemoryStore {
	return &InMemoryStore{
		strategy: strategy,
		embedder: embedder,
		logger: logger.With().
			Str("component", "vectorstore").
			Str("backend", BackendMemory).
			Str("strategy", strategy.String()).
			Logger(),
	}
}

// Strategy returns the configured scoring strategy
func (s *InMemoryStore) Strategy() Strategy { return s.strategy }

// Backend implements VectorStore
func (s *InMemoryStore) Backend() string { return BackendMemory }

// Len returns the number of stored records
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Close implements VectorStore
func (s *InMemoryStore) Close() error { return nil }

// AddDocuments appends chunks under ids chunk-<n>, n counting every record
// ever added. Missing or mismatched embeddings are replaced by [0] placeholders.
func (s *InMemoryStore) AddDocuments(_ context.Context, chunks []string, embeddings [][]float32, metadata map[string]string) []string {
	if len(chunks) == 0 {
		return []string{}
	}

	useVectors := embeddings != nil && len(embeddings) == len(chunks)
	if embeddings != nil && !useVectors {
		s.logger.Warn().
			Int("chunks", len(chunks)).
			Int("embeddings", len(embeddings)).
			Msg("Embedding count mismatch, storing placeholder vectors")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	base := len(s.records)
	ids := make([]string, len(chunks))
	for i, text := range chunks {
		vector := []float32{0}
		if useVectors && len(embeddings[i]) > 0 {
			vector = embeddings[i]
			s.vectors++
		}
		ids[i] = fmt.Sprintf("chunk-%d", base+i)
		s.records = append(s.records, record{
			id:     ids[i],
			text:   text,
			vector: vector,
			meta:   copyMeta(metadata),
		})
	}

	s.logger.Debug().
		Int("added", len(chunks)).
		Int("total", len(s.records)).
		Msg("Documents added")

	return ids
}

// SimilaritySearch returns up to k matches, best first
func (s *InMemoryStore) SimilaritySearch(ctx context.Context, query string, k int) []models.Match {
	k = clampK(k)

	if s.strategy == StrategyCosine && s.hasVectors() {
		queryVector, err := s.embedQuery(ctx, query)
		if err == nil {
			return s.cosineSearch(queryVector, k)
		}
		s.logger.Warn().
			Err(err).
			Msg("Query embedding failed, ranking by recency")
	}

	return s.recencySearch(k)
}

func (s *InMemoryStore) hasVectors() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.vectors > 0
}

func (s *InMemoryStore) embedQuery(ctx context.Context, query string) ([]float32, error) {
	if s.embedder == nil {
		return nil, fmt.Errorf("no query embedder configured")
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 || len(vectors[0]) == 0 {
		return nil, fmt.Errorf("expected one query vector, got %d", len(vectors))
	}
	return vectors[0], nil
}

// recencySearch scores the newest record 1 and decays linearly with age
func (s *InMemoryStore) recencySearch(k int) []models.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := len(s.records)
	if k > n {
		k = n
	}

	matches := make([]models.Match, 0, k)
	for idx := 0; idx < k; idx++ {
		r := s.records[n-1-idx]
		matches = append(matches, toMatch(r, 1-float64(idx)/float64(max(1, n))))
	}
	return matches
}

func (s *InMemoryStore) cosineSearch(queryVector []float32, k int) []models.Match {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		index int
		score float64
	}

	results := make([]scored, len(s.records))
	for i, r := range s.records {
		results[i] = scored{index: i, score: Cosine(queryVector, r.vector)}
	}

	// Stable sort keeps insertion order among equal scores
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}

	matches := make([]models.Match, k)
	for i := 0; i < k; i++ {
		matches[i] = toMatch(s.records[results[i].index], results[i].score)
	}
	return matches
}

func toMatch(r record, score float64) models.Match {
	return models.Match{
		ID:    r.id,
		Score: score,
		Chunk: r.text,
		Meta:  copyMeta(r.meta),
	}
}
