package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rag-pipeline/internal/models"
	"github.com/rag-pipeline/internal/rag"
	"github.com/rag-pipeline/internal/storage"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 10 << 20

// Generator answers prompt-augmented queries
type Generator interface {
	Generate(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error)
}

// Server exposes the pipeline, the LLM call and the recent chats log over HTTP
type Server struct {
	pipeline *rag.Pipeline
	llm      Generator
	recents  storage.RecentStore
	config   *models.AppConfig
	router   *mux.Router
	logger   zerolog.Logger
}

// New creates a server and registers its routes
func New(config *models.AppConfig, pipeline *rag.Pipeline, llm Generator, recents storage.RecentStore, logger zerolog.Logger) *Server {
	s := &Server{
		pipeline: pipeline,
		llm:      llm,
		recents:  recents,
		config:   config,
		router:   mux.NewRouter(),
		logger:   logger.With().Str("component", "server").Logger(),
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.router.PathPrefix("/api").Subrouter()

	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	kb := api.PathPrefix("/kb").Subrouter()
	kb.HandleFunc("/ingest", s.handleIngest).Methods(http.MethodPost)
	kb.HandleFunc("/retrieve", s.handleRetrieve).Methods(http.MethodPost)
	kb.HandleFunc("/debug/ping", s.handlePing).Methods(http.MethodGet)
	kb.HandleFunc("/debug/embed", s.handleDebugEmbed).Methods(http.MethodPost)
	kb.HandleFunc("/debug/vector", s.handleDebugVector).Methods(http.MethodPost)

	api.HandleFunc("/llm/generate", s.handleGenerate).Methods(http.MethodPost)

	api.HandleFunc("/recents", s.handleListRecents).Methods(http.MethodGet)
	api.HandleFunc("/recents", s.handleAddRecent).Methods(http.MethodPost)

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not Found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method Not Allowed")
	})
}

// Handler returns the router wrapped in recovery, logging and CORS middleware.
// CORS sits outside the router so preflight requests never reach route matching.
func (s *Server) Handler() http.Handler {
	return chain(s.router,
		s.recoverMiddleware,
		s.loggingMiddleware,
		corsMiddleware(s.config.AllowedOrigins),
	)
}

// Run serves HTTP on the configured address until ctx is cancelled
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.HTTPAddr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", srv.Addr).Msg("HTTP server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s.logger.Info().Msg("Shutting down HTTP server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown failed: %w", err)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":         "ok",
		"vector_backend": s.pipeline.Backend(),
		"records":        s.pipeline.Records(),
	})
}

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeDetail writes an error response in the {"detail": "..."} shape the frontend expects
func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
