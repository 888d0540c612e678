package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rag-pipeline/internal/models"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv names the environment variable pointing at an optional YAML file
const ConfigFileEnv = "KB_CONFIG_FILE"

// Defaults returns the configuration used when nothing overrides it
func Defaults() *models.AppConfig {
	return &models.AppConfig{
		LLMModel:   "gemini-1.5-flash",
		LLMTimeout: 60,

		SupabaseTimeout: 10,

		RecentsDBPath:        "./data/app.db",
		RecentsLimit:         20,
		RecentsRetentionDays: 30,
		RecentsPruneSchedule: "@daily",

		HTTPAddr:       ":8000",
		AllowedOrigins: []string{"http://localhost:5173", "http://127.0.0.1:5173"},

		LogLevel:    "info",
		Environment: models.EnvProduction,

		RAG: models.RAGConfig{
			EmbeddingsProvider: "gemini",
			EmbeddingsTimeout:  60,
			ChunkMaxLen:        1000,
			ChunkOverlap:       100,
			TopK:               5,
			MaxContextLength:   2000,
			VectorBackend:      "persistent",
			VectorStorePath:    "./chroma",
			VectorCollection:   "kb_store",
		},
	}
}

// Load loads configuration from defaults, an optional YAML file named by
// KB_CONFIG_FILE and environment variables, in increasing precedence.
// A .env file in the working directory is read first if present.
func Load() (*models.AppConfig, error) {
	// Try to load .env file (optional, ignore error if not found)
	_ = godotenv.Load()

	config := Defaults()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}

	applyEnv(config)

	if err := validate(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// loadFile overlays the YAML file at path onto cfg
func loadFile(path string, cfg *models.AppConfig) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *models.AppConfig) {
	// Credentials
	cfg.GeminiAPIKey = getEnv("GEMINI_API_KEY", cfg.GeminiAPIKey)
	cfg.OpenAIAPIKey = getEnv("OPENAI_API_KEY", cfg.OpenAIAPIKey)

	// Embeddings
	cfg.RAG.EmbeddingsProvider = strings.ToLower(getEnv("EMBEDDINGS_PROVIDER", cfg.RAG.EmbeddingsProvider))
	cfg.RAG.EmbeddingsModel = getEnv("EMBEDDINGS_MODEL", cfg.RAG.EmbeddingsModel)
	cfg.RAG.EmbeddingsBaseURL = getEnv("EMBEDDINGS_BASE_URL", cfg.RAG.EmbeddingsBaseURL)
	cfg.RAG.EmbeddingsTimeout = getEnvInt("EMBEDDINGS_TIMEOUT", cfg.RAG.EmbeddingsTimeout)

	// Chunking and retrieval
	cfg.RAG.ChunkMaxLen = getEnvInt("CHUNK_MAX_LEN", cfg.RAG.ChunkMaxLen)
	cfg.RAG.ChunkOverlap = getEnvInt("CHUNK_OVERLAP", cfg.RAG.ChunkOverlap)
	cfg.RAG.TopK = getEnvInt("RAG_TOP_K", cfg.RAG.TopK)
	cfg.RAG.MaxContextLength = getEnvInt("RAG_MAX_CONTEXT_LENGTH", cfg.RAG.MaxContextLength)

	// Vector store; CHROMA_PATH is kept for existing deployments
	cfg.RAG.VectorBackend = strings.ToLower(getEnv("VECTOR_BACKEND", cfg.RAG.VectorBackend))
	cfg.RAG.VectorStorePath = getEnv("VECTOR_STORE_PATH", getEnv("CHROMA_PATH", cfg.RAG.VectorStorePath))
	cfg.RAG.VectorCollection = getEnv("VECTOR_COLLECTION", cfg.RAG.VectorCollection)

	// LLM
	cfg.LLMModel = getEnv("LLM_MODEL", cfg.LLMModel)
	cfg.LLMTimeout = getEnvInt("LLM_TIMEOUT", cfg.LLMTimeout)

	// Supabase
	cfg.SupabaseURL = getEnv("SUPABASE_URL", cfg.SupabaseURL)
	cfg.SupabaseKey = getEnv("SUPABASE_KEY", cfg.SupabaseKey)
	cfg.SupabaseTimeout = getEnvInt("SUPABASE_TIMEOUT", cfg.SupabaseTimeout)

	// Recent chats
	cfg.RecentsDBPath = getEnv("RECENTS_DB_PATH", cfg.RecentsDBPath)
	cfg.RecentsLimit = getEnvInt("RECENTS_LIMIT", cfg.RecentsLimit)
	cfg.RecentsRetentionDays = getEnvInt("RECENTS_RETENTION_DAYS", cfg.RecentsRetentionDays)
	cfg.RecentsPruneSchedule = getEnv("RECENTS_PRUNE_SCHEDULE", cfg.RecentsPruneSchedule)

	// HTTP
	cfg.HTTPAddr = getEnv("HTTP_ADDR", cfg.HTTPAddr)
	cfg.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", cfg.AllowedOrigins)

	// App settings
	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", cfg.LogLevel))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", cfg.Environment))

	// Degraded-mode switches; mock responses are on outside production unless disabled
	cfg.DevMockLLM = getEnvBool("DEV_MOCK_LLM", cfg.DevMockLLM || !cfg.IsProduction())
	cfg.DevForceOK = getEnvBool("DEV_FORCE_OK", cfg.DevForceOK)
}

// validate checks that configuration values are usable
func validate(cfg *models.AppConfig) error {
	switch cfg.RAG.EmbeddingsProvider {
	case "gemini", "openai":
	default:
		return fmt.Errorf("EMBEDDINGS_PROVIDER must be one of: gemini, openai; got %s", cfg.RAG.EmbeddingsProvider)
	}

	switch cfg.RAG.VectorBackend {
	case "persistent", "memory":
	default:
		return fmt.Errorf("VECTOR_BACKEND must be one of: persistent, memory; got %s", cfg.RAG.VectorBackend)
	}
	if cfg.RAG.VectorBackend == "persistent" && cfg.RAG.VectorStorePath == "" {
		return fmt.Errorf("VECTOR_STORE_PATH is required for the persistent backend")
	}

	// Validate positive values
	if cfg.RAG.ChunkMaxLen <= 0 {
		return fmt.Errorf("CHUNK_MAX_LEN must be positive, got %d", cfg.RAG.ChunkMaxLen)
	}
	if cfg.RAG.ChunkOverlap < 0 || cfg.RAG.ChunkOverlap >= cfg.RAG.ChunkMaxLen {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_MAX_LEN), got %d", cfg.RAG.ChunkOverlap)
	}
	if cfg.RAG.TopK <= 0 {
		return fmt.Errorf("RAG_TOP_K must be positive, got %d", cfg.RAG.TopK)
	}
	if cfg.RAG.MaxContextLength <= 0 {
		return fmt.Errorf("RAG_MAX_CONTEXT_LENGTH must be positive, got %d", cfg.RAG.MaxContextLength)
	}
	if cfg.RAG.EmbeddingsTimeout <= 0 {
		return fmt.Errorf("EMBEDDINGS_TIMEOUT must be positive, got %d", cfg.RAG.EmbeddingsTimeout)
	}
	if cfg.LLMTimeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be positive, got %d", cfg.LLMTimeout)
	}
	if cfg.SupabaseTimeout <= 0 {
		return fmt.Errorf("SUPABASE_TIMEOUT must be positive, got %d", cfg.SupabaseTimeout)
	}
	if cfg.RecentsLimit <= 0 {
		return fmt.Errorf("RECENTS_LIMIT must be positive, got %d", cfg.RecentsLimit)
	}
	if cfg.RecentsRetentionDays < 0 {
		return fmt.Errorf("RECENTS_RETENTION_DAYS must not be negative, got %d", cfg.RecentsRetentionDays)
	}
	if (cfg.SupabaseURL == "") != (cfg.SupabaseKey == "") {
		return fmt.Errorf("SUPABASE_URL and SUPABASE_KEY must be set together")
	}
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR is required")
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[cfg.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error; got %s", cfg.LogLevel)
	}

	return nil
}

// getEnv retrieves environment variable or returns default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt retrieves environment variable as integer or returns default value
func getEnvInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvBool accepts 1/0, true/false and the other forms strconv.ParseBool knows
func getEnvBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvList splits a comma-separated variable, dropping empty items
func getEnvList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
