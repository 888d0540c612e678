package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/rag-pipeline/internal/chunker"
	"github.com/rag-pipeline/internal/embeddings"
	"github.com/rag-pipeline/internal/models"
	"github.com/rag-pipeline/internal/vectorstore"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubEmbedder returns a two-dimensional vector per chunk, keyed by first letter
type stubEmbedder struct {
	err   error
	calls int
}

func (s *stubEmbedder) Name() string { return "stub" }

func (s *stubEmbedder) Embed(_ context.Context, chunks []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, len(chunks))
	for i, c := range chunks {
		if strings.HasPrefix(c, "a") {
			out[i] = []float32{1, 0}
		} else {
			out[i] = []float32{0, 1}
		}
	}
	return out, nil
}

// panicStore panics on search
type panicStore struct {
	vectorstore.VectorStore
}

func (panicStore) SimilaritySearch(context.Context, string, int) []models.Match {
	panic("index corrupted")
}

func newTestPipeline(emb embeddings.Embedder, store vectorstore.VectorStore, opts Options) *Pipeline {
	if store == nil {
		store = vectorstore.NewInMemoryStore(vectorstore.StrategyCosine, emb, zerolog.Nop())
	}
	cfg := models.RAGConfig{TopK: 0, MaxContextLength: 0}
	return NewPipeline(chunker.New(10, 2), emb, store, cfg, opts, zerolog.Nop())
}

func intPtr(v int) *int { return &v }

func TestIngest_EmptyTextSkipsEmbedder(t *testing.T) {
	emb := &stubEmbedder{}
	p := newTestPipeline(emb, nil, Options{})

	for _, text := range []string{"", "   \n\t "} {
		res := p.Ingest(context.Background(), text, "")
		assert.False(t, res.OK)
		assert.Equal(t, 0, res.Ingested)
		assert.Equal(t, DetailNoText, res.Detail)
	}
	assert.Equal(t, 0, emb.calls)
}

func TestIngest_StoresChunks(t *testing.T) {
	emb := &stubEmbedder{}
	store := vectorstore.NewInMemoryStore(vectorstore.StrategyCosine, emb, zerolog.Nop())
	p := newTestPipeline(emb, store, Options{})

	text := strings.Repeat("abcdefgh ", 10)
	res := p.Ingest(context.Background(), text, "notes.txt")

	require.True(t, res.OK, res.Detail)
	assert.Equal(t, len(chunker.Chunk(text, 10, 2)), res.Ingested)
	assert.Len(t, res.IDs, SampleIDs)
	assert.Equal(t, "chunk-0", res.IDs[0])
	assert.Equal(t, res.Ingested, store.Len())
	assert.Equal(t, 1, emb.calls)

	matches := store.SimilaritySearch(context.Background(), "abc", 1)
	require.Len(t, matches, 1)
	assert.Equal(t, "notes.txt", matches[0].Meta["filename"])
}

func TestIngest_DefaultFilename(t *testing.T) {
	emb := &stubEmbedder{}
	store := vectorstore.NewInMemoryStore(vectorstore.StrategyRecency, nil, zerolog.Nop())
	p := newTestPipeline(emb, store, Options{})

	res := p.Ingest(context.Background(), "short", "")
	require.True(t, res.OK)
	assert.Equal(t, []string{"chunk-0"}, res.IDs)

	matches := store.SimilaritySearch(context.Background(), "short", 1)
	assert.Equal(t, DefaultFilename, matches[0].Meta["filename"])
}

func TestIngest_EmbedderFailure(t *testing.T) {
	emb := &stubEmbedder{err: &embeddings.HTTPError{Status: 500}}
	p := newTestPipeline(emb, nil, Options{DevMock: true})

	res := p.Ingest(context.Background(), "some text", "")
	assert.False(t, res.OK)
	assert.Equal(t, 0, res.Ingested)
	assert.Contains(t, res.Detail, "HTTP 500")
}

func TestIngest_MissingKey(t *testing.T) {
	cfgErr := fmt.Errorf("%w: GEMINI_API_KEY missing", embeddings.ErrConfiguration)

	t.Run("dev mock stores without vectors", func(t *testing.T) {
		store := vectorstore.NewInMemoryStore(vectorstore.StrategyRecency, nil, zerolog.Nop())
		p := newTestPipeline(&stubEmbedder{err: cfgErr}, store, Options{DevMock: true})

		res := p.Ingest(context.Background(), "some text", "a.txt")
		require.True(t, res.OK)
		assert.Equal(t, 1, res.Ingested)
		assert.Equal(t, DetailMockVectors, res.Detail)
		assert.Equal(t, 1, store.Len())
	})

	t.Run("production reports failure", func(t *testing.T) {
		p := newTestPipeline(&stubEmbedder{err: cfgErr}, nil, Options{})

		res := p.Ingest(context.Background(), "some text", "a.txt")
		assert.False(t, res.OK)
		assert.Contains(t, res.Detail, "GEMINI_API_KEY")
	})
}

func TestRetrieve_QueryAliasAndDefaultK(t *testing.T) {
	emb := &stubEmbedder{}
	store := vectorstore.NewInMemoryStore(vectorstore.StrategyRecency, nil, zerolog.Nop())
	p := newTestPipeline(emb, store, Options{})

	chunks := make([]string, 8)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("record %d", i)
	}
	store.AddDocuments(context.Background(), chunks, nil, nil)

	res := p.Retrieve(context.Background(), models.RetrieveRequest{Text: "  hello  "})
	assert.Empty(t, res.Error)
	assert.Len(t, res.Matches, DefaultTopK)

	res = p.Retrieve(context.Background(), models.RetrieveRequest{Query: "hello", TopK: intPtr(-3)})
	assert.Len(t, res.Matches, DefaultTopK)

	res = p.Retrieve(context.Background(), models.RetrieveRequest{Query: "hello", TopK: intPtr(2)})
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "record 7", res.Matches[0].Chunk)
	assert.NotNil(t, res.Matches[0].Meta)
}

func TestRetrieve_CosineRanking(t *testing.T) {
	emb := &stubEmbedder{}
	p := newTestPipeline(emb, nil, Options{})
	ctx := context.Background()

	p.Ingest(ctx, "banana", "fruit.txt")
	p.Ingest(ctx, "apple", "fruit.txt")

	res := p.Retrieve(ctx, models.RetrieveRequest{Query: "avocado", TopK: intPtr(2)})
	require.Len(t, res.Matches, 2)
	assert.Equal(t, "apple", res.Matches[0].Chunk)
	assert.InDelta(t, 1.0, res.Matches[0].Score, 1e-9)
}

func TestRetrieve_EmptyQuery(t *testing.T) {
	p := newTestPipeline(&stubEmbedder{}, nil, Options{})

	res := p.Retrieve(context.Background(), models.RetrieveRequest{Query: "  "})
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
	assert.Equal(t, DetailNoQuery, res.Error)
}

func TestRetrieve_ForceOK(t *testing.T) {
	store := panicStore{}
	p := newTestPipeline(&stubEmbedder{}, store, Options{ForceOK: true})

	res := p.Retrieve(context.Background(), models.RetrieveRequest{Query: "q"})
	assert.Empty(t, res.Matches)
	assert.Empty(t, res.Error)
}

func TestRetrieve_RecoversFromPanic(t *testing.T) {
	p := newTestPipeline(&stubEmbedder{}, panicStore{}, Options{})

	var res models.RetrieveResult
	require.NotPanics(t, func() {
		res = p.Retrieve(context.Background(), models.RetrieveRequest{Query: "q"})
	})
	assert.NotNil(t, res.Matches)
	assert.Empty(t, res.Matches)
	assert.Equal(t, "index corrupted", res.Error)
}

func TestEmbedProbe(t *testing.T) {
	p := newTestPipeline(&stubEmbedder{}, nil, Options{})
	dim, err := p.EmbedProbe(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, dim)

	failing := newTestPipeline(&stubEmbedder{err: errors.New("down")}, nil, Options{})
	_, err = failing.EmbedProbe(context.Background())
	assert.Error(t, err)
}

func TestVectorProbe(t *testing.T) {
	store := vectorstore.NewInMemoryStore(vectorstore.StrategyRecency, nil, zerolog.Nop())
	p := newTestPipeline(&stubEmbedder{}, store, Options{})

	ids, matches := p.VectorProbe(context.Background())
	assert.Equal(t, []string{"chunk-0", "chunk-1"}, ids)
	assert.Len(t, matches, 2)
}

func TestFormatContext(t *testing.T) {
	matches := []models.Match{
		{ID: "chunk-0", Score: 0.91, Chunk: "first", Meta: map[string]string{"filename": "a.txt"}},
		{ID: "chunk-1", Score: 0.5, Chunk: "second"},
	}

	out := FormatContext(matches, 2000)
	assert.Contains(t, out, "1. [a.txt, relevance: 0.91] first")
	assert.Contains(t, out, "2. [chunk-1, relevance: 0.50] second")

	short := FormatContext(matches, 40)
	assert.Contains(t, short, "first")
	assert.NotContains(t, short, "second")
	assert.Contains(t, short, "1 more matches omitted")

	assert.Empty(t, FormatContext(nil, 2000))
}

func TestContexts(t *testing.T) {
	assert.Equal(t, []string{"x", "y"}, Contexts([]models.Match{{Chunk: "x"}, {Chunk: "y"}}))
}
