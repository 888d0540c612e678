package vectorstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// failingCollection wraps a Collection and fails selected operations
type failingCollection struct {
	Collection
	addErr   error
	queryErr error
}

func (f *failingCollection) Add(ctx context.Context, documents []string, embeddings [][]float32, metadatas []map[string]string) ([]string, error) {
	if f.addErr != nil {
		return nil, f.addErr
	}
	return f.Collection.Add(ctx, documents, embeddings, metadatas)
}

func (f *failingCollection) Query(ctx context.Context, embedding []float32, n int) (*QueryResult, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.Collection.Query(ctx, embedding, n)
}

func newTestPersistentStore(t *testing.T, wrap func(Collection) Collection, emb QueryEmbedder) *PersistentStore {
	t.Helper()
	var c Collection = openTestCollection(t, t.TempDir())
	if wrap != nil {
		c = wrap(c)
	}
	return NewPersistentStore(c, emb, NewInMemoryStore(StrategyRecency, nil, zerolog.Nop()), zerolog.Nop())
}

func TestPersistentStore_AddAndSearch(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"east": {1, 0}}}
	store := newTestPersistentStore(t, nil, emb)
	ctx := context.Background()

	ids := store.AddDocuments(ctx,
		[]string{"north", "east"},
		[][]float32{{0, 1}, {1, 0}},
		map[string]string{"filename": "compass.txt"},
	)
	assert.Equal(t, []string{"chunk-0", "chunk-1"}, ids)
	assert.Equal(t, BackendPersistent, store.Backend())

	matches := store.SimilaritySearch(ctx, "east", 5)
	require.Len(t, matches, 2)
	assert.Equal(t, "chunk-1", matches[0].ID)
	assert.Equal(t, "east", matches[0].Chunk)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-6)
	assert.InDelta(t, 0.0, matches[1].Score, 1e-6)
	assert.Equal(t, "compass.txt", matches[0].Meta["filename"])
	assert.Equal(t, 2, store.Len())
}

func TestPersistentStore_NilEmbeddingsGoToMemory(t *testing.T) {
	store := newTestPersistentStore(t, nil, &fakeEmbedder{})
	ctx := context.Background()

	ids := store.AddDocuments(ctx, []string{"a", "b"}, nil, nil)
	require.Len(t, ids, 2)

	assert.Equal(t, 2, store.fallback.Len())
	n, err := store.collection.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.False(t, store.Degraded())
}

func TestPersistentStore_AddFailureFallsBackPermanently(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	store := newTestPersistentStore(t, func(c Collection) Collection {
		return &failingCollection{Collection: c, addErr: errors.New("disk full")}
	}, emb)
	ctx := context.Background()

	ids := store.AddDocuments(ctx, []string{"R1", "R2"}, [][]float32{{1, 0}, {0, 1}}, nil)
	assert.Equal(t, []string{"chunk-0", "chunk-1"}, ids)
	assert.True(t, store.Degraded())
	assert.Equal(t, BackendMemory, store.Backend())

	more := store.AddDocuments(ctx, []string{"R3"}, [][]float32{{1, 1}}, nil)
	assert.Equal(t, []string{"chunk-2"}, more)

	matches := store.SimilaritySearch(ctx, "q", 3)
	require.Len(t, matches, 3)
	assert.Equal(t, "R3", matches[0].Chunk)
	assert.Equal(t, "R1", matches[2].Chunk)
	assert.Equal(t, 0, emb.calls, "degraded store must not touch the persistent path")
}

func TestPersistentStore_DimensionMismatchFallsBackForOneCall(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"east": {1, 0}}}
	store := newTestPersistentStore(t, nil, emb)
	ctx := context.Background()

	ids := store.AddDocuments(ctx, []string{"east"}, [][]float32{{1, 0}}, nil)
	assert.Equal(t, []string{"chunk-0"}, ids)

	wide := make([]float32, 768)
	ids = store.AddDocuments(ctx, []string{"abc"}, [][]float32{wide}, nil)
	require.Len(t, ids, 1)
	assert.False(t, store.Degraded())
	assert.Equal(t, BackendPersistent, store.Backend())
	assert.Equal(t, 1, store.fallback.Len())

	ids = store.AddDocuments(ctx, []string{"west"}, [][]float32{{-1, 0}}, nil)
	assert.Equal(t, []string{"chunk-1"}, ids)

	matches := store.SimilaritySearch(ctx, "east", 5)
	require.Len(t, matches, 2)
	assert.Equal(t, "east", matches[0].Chunk)
}

func TestPersistentStore_SearchFailureFallsBackForOneQuery(t *testing.T) {
	emb := &fakeEmbedder{vectors: map[string][]float32{"q": {1, 0}}}
	fc := &failingCollection{}
	store := newTestPersistentStore(t, func(c Collection) Collection {
		fc.Collection = c
		return fc
	}, emb)
	ctx := context.Background()

	store.AddDocuments(ctx, []string{"persisted"}, [][]float32{{1, 0}}, nil)
	store.AddDocuments(ctx, []string{"in memory"}, nil, nil)

	fc.queryErr = errors.New("index locked")
	matches := store.SimilaritySearch(ctx, "q", 5)
	require.Len(t, matches, 1)
	assert.Equal(t, "in memory", matches[0].Chunk)
	assert.False(t, store.Degraded())

	fc.queryErr = nil
	matches = store.SimilaritySearch(ctx, "q", 5)
	require.Len(t, matches, 1)
	assert.Equal(t, "persisted", matches[0].Chunk)
}

func TestPersistentStore_QueryEmbeddingFailure(t *testing.T) {
	store := newTestPersistentStore(t, nil, &fakeEmbedder{err: errors.New("no key")})
	ctx := context.Background()

	store.AddDocuments(ctx, []string{"stored"}, [][]float32{{1, 0}}, nil)

	assert.NotPanics(t, func() {
		assert.Empty(t, store.SimilaritySearch(ctx, "q", 5))
	})
}

func TestNew_InitFailureFallsBackToMemory(t *testing.T) {
	// A regular file where the store directory should be
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	store := New(context.Background(), Config{
		Backend:    BackendPersistent,
		Path:       filepath.Join(blocker, "store"),
		Collection: "kb_store",
	}, &fakeEmbedder{}, zerolog.Nop())
	defer store.Close()

	require.IsType(t, &InMemoryStore{}, store)
	assert.Equal(t, StrategyRecency, store.(*InMemoryStore).Strategy())
	assert.Equal(t, BackendMemory, store.Backend())

	ctx := context.Background()
	ids := store.AddDocuments(ctx, []string{"R1", "R2"}, [][]float32{{1}, {2}}, nil)
	assert.Len(t, ids, 2)
	matches := store.SimilaritySearch(ctx, "q", 10)
	require.Len(t, matches, 2)
	assert.Equal(t, "R2", matches[0].Chunk)
}

func TestNew_SelectsBackend(t *testing.T) {
	ctx := context.Background()

	persistent := New(ctx, Config{Path: t.TempDir(), Collection: "kb"}, &fakeEmbedder{}, zerolog.Nop())
	defer persistent.Close()
	assert.IsType(t, &PersistentStore{}, persistent)

	memory := New(ctx, Config{Backend: BackendMemory}, &fakeEmbedder{}, zerolog.Nop())
	require.IsType(t, &InMemoryStore{}, memory)
	assert.Equal(t, StrategyCosine, memory.(*InMemoryStore).Strategy())
}

func TestBackendError_MatchesSentinel(t *testing.T) {
	err := backendError("add", errors.New("boom"))
	assert.True(t, errors.Is(err, ErrBackendUnavailable))
	assert.Contains(t, err.Error(), "vectorstore.add")
}
