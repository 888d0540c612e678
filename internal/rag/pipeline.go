package rag

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rag-pipeline/internal/chunker"
	"github.com/rag-pipeline/internal/embeddings"
	"github.com/rag-pipeline/internal/models"
	"github.com/rag-pipeline/internal/vectorstore"
	"github.com/rs/zerolog"
)

// Options controls degraded-mode behavior
type Options struct {
	// DevMock stores chunks without vectors when the embedder is not configured
	DevMock bool

	// ForceOK makes Retrieve return no matches without touching the store
	ForceOK bool
}

// Pipeline ties chunking, embedding and the vector store together
type Pipeline struct {
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
	store    vectorstore.VectorStore
	config   models.RAGConfig
	opts     Options
	logger   zerolog.Logger
}

// NewPipeline creates a new retrieval pipeline
func NewPipeline(
	chunker *chunker.Chunker,
	embedder embeddings.Embedder,
	store vectorstore.VectorStore,
	config models.RAGConfig,
	opts Options,
	logger zerolog.Logger,
) *Pipeline {
	if config.TopK <= 0 {
		config.TopK = DefaultTopK
	}
	if config.MaxContextLength <= 0 {
		config.MaxContextLength = DefaultMaxContextLength
	}

	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		config:   config,
		opts:     opts,
		logger:   logger.With().Str("component", "rag").Logger(),
	}
}

// Backend names the vector store backend currently in use
func (p *Pipeline) Backend() string { return p.store.Backend() }

// Records returns the number of stored records
func (p *Pipeline) Records() int { return p.store.Len() }

// Ingest chunks, embeds and stores text. Expected failures are reported in
// the result; it never returns an error.
func (p *Pipeline) Ingest(ctx context.Context, text, filename string) (result models.IngestResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Panic recovered during ingest")
			result = models.IngestResult{OK: false, Detail: fmt.Sprintf("ingest failed: %v", r)}
		}
	}()

	raw := strings.TrimSpace(text)
	if raw == "" {
		return models.IngestResult{OK: false, Detail: DetailNoText}
	}

	chunks := p.chunker.Chunk(raw)
	if len(chunks) == 0 {
		return models.IngestResult{OK: false, Detail: DetailNoChunks}
	}

	startTime := time.Now()
	detail := ""

	vectors, err := p.embedder.Embed(ctx, chunks)
	if err != nil {
		if !(embeddings.IsConfigurationError(err) && p.opts.DevMock) {
			p.logger.Error().
				Err(err).
				Int("chunks", len(chunks)).
				Msg("Failed to embed chunks")
			return models.IngestResult{OK: false, Detail: fmt.Sprintf("embedding failed: %v", err)}
		}
		p.logger.Warn().
			Err(err).
			Msg("Embedder not configured, storing chunks without vectors")
		vectors = nil
		detail = DetailMockVectors
	}

	if filename == "" {
		filename = DefaultFilename
	}
	ids := p.store.AddDocuments(ctx, chunks, vectors, map[string]string{"filename": filename})

	p.logger.Info().
		Str("filename", filename).
		Int("chunks", len(chunks)).
		Int("stored", len(ids)).
		Str("backend", p.store.Backend()).
		Dur("duration", time.Since(startTime)).
		Msg("Text ingested")

	sample := ids
	if len(sample) > SampleIDs {
		sample = sample[:SampleIDs]
	}

	return models.IngestResult{
		OK:       true,
		Ingested: len(ids),
		IDs:      sample,
		Detail:   detail,
	}
}

// Retrieve returns the top matches for the request's query (or its text
// alias). Failures yield an empty match list and an error string.
func (p *Pipeline) Retrieve(ctx context.Context, req models.RetrieveRequest) (result models.RetrieveResult) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("Panic recovered during retrieve")
			result = models.RetrieveResult{Matches: []models.Match{}, Error: fmt.Sprint(r)}
		}
	}()

	query := strings.TrimSpace(req.Query)
	if query == "" {
		query = strings.TrimSpace(req.Text)
	}

	k := p.config.TopK
	if req.TopK != nil && *req.TopK > 0 {
		k = *req.TopK
	}

	if p.opts.ForceOK {
		return models.RetrieveResult{Matches: []models.Match{}}
	}
	if query == "" {
		return models.RetrieveResult{Matches: []models.Match{}, Error: DetailNoQuery}
	}

	startTime := time.Now()
	found := p.store.SimilaritySearch(ctx, query, k)

	matches := make([]models.Match, 0, len(found))
	for _, m := range found {
		if m.Meta == nil {
			m.Meta = map[string]string{}
		}
		matches = append(matches, m)
	}

	p.logger.Info().
		Str("query", truncate(query, 50)).
		Int("k", k).
		Int("results_count", len(matches)).
		Dur("duration", time.Since(startTime)).
		Msg("Retrieval completed")

	return models.RetrieveResult{Matches: matches}
}

// EmbedProbe embeds a fixed string and returns the vector dimension
func (p *Pipeline) EmbedProbe(ctx context.Context) (int, error) {
	vectors, err := p.embedder.Embed(ctx, []string{probeText})
	if err != nil {
		return 0, err
	}
	if len(vectors) == 0 {
		return 0, fmt.Errorf("embedder returned no vectors")
	}
	return len(vectors[0]), nil
}

// VectorProbe stores two constant vectors and searches for one of them
func (p *Pipeline) VectorProbe(ctx context.Context) ([]string, []models.Match) {
	a := make([]float32, ProbeDimension)
	b := make([]float32, ProbeDimension)
	for i := range a {
		a[i], b[i] = 0.1, 0.2
	}

	ids := p.store.AddDocuments(ctx, []string{"abc", "def"}, [][]float32{a, b}, map[string]string{"filename": "test"})
	return ids, p.store.SimilaritySearch(ctx, "abc", 2)
}

// Contexts returns the chunk texts of matches in order
func Contexts(matches []models.Match) []string {
	out := make([]string, len(matches))
	for i, m := range matches {
		out[i] = m.Chunk
	}
	return out
}

// FormatContext renders matches into a prompt block bounded by MaxContextLength
func (p *Pipeline) FormatContext(matches []models.Match) string {
	return FormatContext(matches, p.config.MaxContextLength)
}

// FormatContext renders matches into a prompt block of at most maxLength characters
func FormatContext(matches []models.Match, maxLength int) string {
	if len(matches) == 0 {
		return ""
	}

	var builder strings.Builder
	builder.WriteString("RELEVANT CONTEXT FROM THE KNOWLEDGE BASE:\n\n")

	totalLength := 0
	for i, m := range matches {
		// Format: "1. [notes.txt, relevance: 0.89] chunk text"
		source := m.Meta["filename"]
		if source == "" {
			source = m.ID
		}
		entry := fmt.Sprintf("%d. [%s, relevance: %.2f] %s\n", i+1, source, m.Score, m.Chunk)

		entryRunes := utf8.RuneCountInString(entry)
		if totalLength+entryRunes > maxLength {
			builder.WriteString(fmt.Sprintf("\n[... %d more matches omitted due to length limit]\n", len(matches)-i))
			break
		}

		builder.WriteString(entry)
		totalLength += entryRunes
	}

	builder.WriteString("\n")
	return builder.String()
}

// truncate truncates string to maxLen characters
func truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxLen]) + "..."
}
