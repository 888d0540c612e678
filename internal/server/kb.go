package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rag-pipeline/internal/embeddings"
	"github.com/rag-pipeline/internal/models"
)

type ingestRequest struct {
	Text     string `json:"text"`
	Filename string `json:"filename"`
}

func (s *Server) handleIngest(w http.ResponseWriter, r *http.Request) {
	var req ingestRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, "Invalid request body: "+err.Error())
		return
	}

	result := s.pipeline.Ingest(r.Context(), req.Text, req.Filename)
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req models.RetrieveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.RetrieveResult{
			Matches: []models.Match{},
			Error:   "Invalid request body: " + err.Error(),
		})
		return
	}

	result := s.pipeline.Retrieve(r.Context(), req)
	if result.Matches == nil {
		result.Matches = []models.Match{}
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (s *Server) handleDebugEmbed(w http.ResponseWriter, r *http.Request) {
	dim, err := s.pipeline.EmbedProbe(r.Context())
	if err != nil {
		s.logger.Error().Err(err).Msg("Embedding probe failed")

		status := http.StatusBadGateway
		if errors.Is(err, embeddings.ErrConfiguration) {
			status = http.StatusBadRequest
		}
		writeDetail(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"dim": dim})
}

func (s *Server) handleDebugVector(w http.ResponseWriter, r *http.Request) {
	ids, matches := s.pipeline.VectorProbe(r.Context())
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ids":     ids,
		"results": matches,
	})
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v interface{}) error {
	err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(v)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
