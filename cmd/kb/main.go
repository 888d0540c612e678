package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rag-pipeline/internal/chunker"
	"github.com/rag-pipeline/internal/config"
	"github.com/rag-pipeline/internal/embeddings"
	"github.com/rag-pipeline/internal/models"
	"github.com/rag-pipeline/internal/rag"
	"github.com/rag-pipeline/internal/vectorstore"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kb",
	Short: "Knowledge base retrieval service",
	Long: `kb ingests text into a vector store and retrieves the most relevant
chunks for a query. It runs as an HTTP backend or as a one-shot CLI.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cfgFile != "" {
			return os.Setenv(config.ConfigFileEnv, cfgFile)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "YAML config file (overrides "+config.ConfigFileEnv+")")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(queryCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// app holds the components shared by every subcommand
type app struct {
	cfg      *models.AppConfig
	logger   zerolog.Logger
	embedder embeddings.Embedder
	store    vectorstore.VectorStore
	pipeline *rag.Pipeline
}

// newApp loads configuration and builds the retrieval pipeline
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger := setupLogger(cfg.LogLevel, cfg.Environment)

	embedder, err := embeddings.New(cfg.RAG, cfg.GeminiAPIKey, cfg.OpenAIAPIKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	store := vectorstore.New(ctx, vectorstore.Config{
		Backend:    cfg.RAG.VectorBackend,
		Path:       cfg.RAG.VectorStorePath,
		Collection: cfg.RAG.VectorCollection,
	}, embedder, logger)

	pipeline := rag.NewPipeline(
		chunker.New(cfg.RAG.ChunkMaxLen, cfg.RAG.ChunkOverlap),
		embedder,
		store,
		cfg.RAG,
		rag.Options{DevMock: cfg.DevMockLLM, ForceOK: cfg.DevForceOK},
		logger,
	)

	logger.Info().
		Str("environment", cfg.Environment).
		Str("embedder", embedder.Name()).
		Str("vector_backend", store.Backend()).
		Bool("dev_mock", cfg.DevMockLLM).
		Msg("Retrieval pipeline initialized")

	return &app{
		cfg:      cfg,
		logger:   logger,
		embedder: embedder,
		store:    store,
		pipeline: pipeline,
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("Failed to close vector store")
	}
	if c, ok := a.embedder.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close embeddings client")
		}
	}
}

// setupLogger configures and returns a zerolog logger
func setupLogger(level, environment string) zerolog.Logger {
	logLevel, err := zerolog.ParseLevel(level)
	if err != nil {
		logLevel = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(logLevel)

	// Logs go to stderr so CLI output on stdout stays machine-readable
	if environment == models.EnvDevelopment {
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Caller().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
