package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rag-pipeline/internal/models"
	"github.com/rag-pipeline/internal/storage"
)

func (s *Server) handleListRecents(w http.ResponseWriter, r *http.Request) {
	if s.config.DevForceOK {
		writeJSON(w, http.StatusOK, []models.RecentChat{})
		return
	}

	chats, err := s.recents.ListRecentChats(r.Context(), s.config.RecentsLimit)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to list recent chats")
		chats = nil
	}
	if chats == nil {
		chats = []models.RecentChat{}
	}
	writeJSON(w, http.StatusOK, chats)
}

func (s *Server) handleAddRecent(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Title string `json:"title"`
	}
	// Malformed bodies fall through to the query parameter
	_ = decodeJSON(r, &body)

	title := strings.TrimSpace(body.Title)
	if title == "" {
		title = strings.TrimSpace(r.URL.Query().Get("title"))
	}
	if title == "" {
		writeDetail(w, http.StatusBadRequest, "Missing 'title'")
		return
	}

	chat, err := s.recents.SaveRecentChat(r.Context(), title)
	if err != nil {
		if errors.Is(err, storage.ErrEmptyTitle) {
			writeDetail(w, http.StatusBadRequest, "Missing 'title'")
			return
		}
		writeDetail(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, chat)
}
