package models

import "time"

// Environment names
const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// RAGConfig holds retrieval subsystem settings
type RAGConfig struct {
	// Embedding service
	EmbeddingsProvider string `yaml:"embeddings_provider"`
	EmbeddingsModel    string `yaml:"embeddings_model"`
	EmbeddingsBaseURL  string `yaml:"embeddings_base_url"`
	EmbeddingsTimeout  int    `yaml:"embeddings_timeout"`

	// Chunking
	ChunkMaxLen  int `yaml:"chunk_max_len"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Retrieval
	TopK             int `yaml:"top_k"`
	MaxContextLength int `yaml:"max_context_length"`

	// Vector store
	VectorBackend    string `yaml:"vector_backend"`
	VectorStorePath  string `yaml:"vector_store_path"`
	VectorCollection string `yaml:"vector_collection"`
}

// AppConfig represents application configuration
type AppConfig struct {
	// Credentials
	GeminiAPIKey string `yaml:"-"`
	OpenAIAPIKey string `yaml:"-"`

	// LLM settings
	LLMModel   string `yaml:"llm_model"`
	LLMTimeout int    `yaml:"llm_timeout"`

	// Degraded-mode switches
	DevMockLLM bool `yaml:"dev_mock_llm"`
	DevForceOK bool `yaml:"dev_force_ok"`

	// Supabase settings (recent chats)
	SupabaseURL     string `yaml:"supabase_url"`
	SupabaseKey     string `yaml:"-"`
	SupabaseTimeout int    `yaml:"supabase_timeout"`

	// Local recent chats database, used when Supabase is not configured
	RecentsDBPath        string `yaml:"recents_db_path"`
	RecentsLimit         int    `yaml:"recents_limit"`
	RecentsRetentionDays int    `yaml:"recents_retention_days"`
	RecentsPruneSchedule string `yaml:"recents_prune_schedule"`

	// HTTP settings
	HTTPAddr       string   `yaml:"http_addr"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// App settings
	LogLevel    string `yaml:"log_level"`
	Environment string `yaml:"environment"`

	RAG RAGConfig `yaml:"rag"`
}

// IsProduction reports whether degraded placeholder responses must be avoided
func (c *AppConfig) IsProduction() bool {
	return c.Environment == EnvProduction
}

// UseSupabase reports whether recent chats go to Supabase instead of the local database
func (c *AppConfig) UseSupabase() bool {
	return c.SupabaseURL != "" && c.SupabaseKey != ""
}

// RecentChat represents one entry of the recent chats log
type RecentChat struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

// LLMRequest represents a prompt-augmented generation request
type LLMRequest struct {
	Query   string
	Context []string
	Prompt  string
	Model   string
}

// LLMResponse represents a response from LLM
type LLMResponse struct {
	Text            string
	ModelUsed       string
	ExecutionTimeMs int
}
