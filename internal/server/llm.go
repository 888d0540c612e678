package server

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/rag-pipeline/internal/llm"
	"github.com/rag-pipeline/internal/models"
)

// generateBody is the loosely typed request accepted by /api/llm/generate
type generateBody struct {
	Query   string
	Text    string
	Prompt  string
	Model   string
	Context []interface{}
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "Failed to read request body")
		return
	}

	body := parseGenerateBody(payload, r.Header.Get("Content-Type"))

	query := strings.TrimSpace(body.Query)
	if query == "" {
		query = strings.TrimSpace(body.Text)
	}
	if query == "" {
		writeDetail(w, http.StatusBadRequest, "Missing 'query' in request body")
		return
	}

	req := &models.LLMRequest{
		Query:   query,
		Context: contextStrings(body.Context),
		Prompt:  body.Prompt,
		Model:   body.Model,
	}

	resp, err := s.llm.Generate(r.Context(), req)
	if err == nil {
		writeJSON(w, http.StatusOK, map[string]string{"text": resp.Text})
		return
	}

	kind, status, message := llm.Classify(err)
	s.logger.Error().
		Err(err).
		Int("status", status).
		Bool("mock", s.config.DevMockLLM).
		Msg("LLM generation failed")

	switch kind {
	case llm.KindConfiguration:
		if s.config.DevMockLLM {
			s.writeMock(w, req, "")
			return
		}
		writeDetail(w, http.StatusBadRequest, "GEMINI_API_KEY is missing. Set it on the backend and retry.")
	case llm.KindHTTP:
		if s.config.DevMockLLM {
			s.writeMock(w, req, llm.MockNoteHTTP)
			return
		}
		if status < 400 || status > 599 {
			status = http.StatusBadGateway
		}
		writeDetail(w, status, llm.StatusDetail(status, message))
	case llm.KindNetwork:
		if s.config.DevMockLLM {
			s.writeMock(w, req, llm.MockNoteNetwork)
			return
		}
		writeDetail(w, http.StatusBadGateway, fmt.Sprintf("LLM network error: %v", err))
	default:
		if s.config.DevMockLLM {
			s.writeMock(w, req, llm.MockNoteUnexpected)
			return
		}
		writeDetail(w, http.StatusInternalServerError, fmt.Sprintf("LLM error: %v", err))
	}
}

func (s *Server) writeMock(w http.ResponseWriter, req *models.LLMRequest, note string) {
	writeJSON(w, http.StatusOK, map[string]string{"text": llm.MockResponse(req, note)})
}

// parseGenerateBody tries JSON, then a urlencoded form, then treats the
// whole payload as the query text
func parseGenerateBody(payload []byte, contentType string) generateBody {
	var raw map[string]interface{}
	if err := json.Unmarshal(payload, &raw); err == nil {
		return generateBody{
			Query:   stringField(raw, "query"),
			Text:    stringField(raw, "text"),
			Prompt:  stringField(raw, "prompt"),
			Model:   stringField(raw, "model"),
			Context: listField(raw, "context"),
		}
	}

	mediaType, _, _ := mime.ParseMediaType(contentType)
	if mediaType == "application/x-www-form-urlencoded" {
		if form, err := url.ParseQuery(string(payload)); err == nil {
			var ctxItems []interface{}
			for _, c := range form["context"] {
				ctxItems = append(ctxItems, c)
			}
			return generateBody{
				Query:   form.Get("query"),
				Text:    form.Get("text"),
				Prompt:  form.Get("prompt"),
				Model:   form.Get("model"),
				Context: ctxItems,
			}
		}
	}

	text := strings.TrimSpace(string(payload))
	if len(text) >= 2 && text[0] == '"' && text[len(text)-1] == '"' {
		text = text[1 : len(text)-1]
	}
	return generateBody{Query: text}
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}

func listField(m map[string]interface{}, key string) []interface{} {
	if v, ok := m[key].([]interface{}); ok {
		return v
	}
	return nil
}

// contextStrings accepts plain strings or match objects carrying chunk or text
func contextStrings(items []interface{}) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		switch v := item.(type) {
		case string:
			if v != "" {
				out = append(out, v)
			}
		case map[string]interface{}:
			if c := stringField(v, "chunk"); c != "" {
				out = append(out, c)
			} else if t := stringField(v, "text"); t != "" {
				out = append(out, t)
			}
		}
	}
	return out
}
