package embeddings

import "time"

// Provider names
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

// EmbeddingModel constants
const (
	// ModelTextEmbedding004 is the Gemini embedding model (768 dimensions)
	ModelTextEmbedding004 = "text-embedding-004"

	// ModelOpenAISmall is the default OpenAI embedding model (1536 dimensions)
	ModelOpenAISmall = "text-embedding-3-small"
)

// DefaultModel is the default embedding model to use
const DefaultModel = ModelTextEmbedding004

// DefaultBaseURL is the Gemini REST endpoint root
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// DefaultTimeout bounds a single embedding call
const DefaultTimeout = 60 * time.Second
