package models

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Match is one scored retrieval result, produced fresh per query
type Match struct {
	ID    string            `json:"id"`
	Score float64           `json:"score"`
	Chunk string            `json:"chunk"`
	Meta  map[string]string `json:"meta"`
}

// IngestResult reports the outcome of an ingestion call
type IngestResult struct {
	OK       bool     `json:"ok"`
	Ingested int      `json:"ingested"`
	IDs      []string `json:"ids,omitempty"`
	Detail   string   `json:"detail,omitempty"`
}

// RetrieveRequest carries a retrieval query; Text is accepted as an alias for Query.
// A nil TopK means the configured default.
type RetrieveRequest struct {
	Query string `json:"query"`
	Text  string `json:"text"`
	TopK  *int   `json:"topK"`
}

// UnmarshalJSON accepts topK as an integer-valued number or a numeric string.
// Any other topK value is dropped rather than failing the request.
func (r *RetrieveRequest) UnmarshalJSON(data []byte) error {
	var raw struct {
		Query string          `json:"query"`
		Text  string          `json:"text"`
		TopK  json.RawMessage `json:"topK"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	r.Query = raw.Query
	r.Text = raw.Text
	r.TopK = parseTopK(raw.TopK)
	return nil
}

func parseTopK(raw json.RawMessage) *int {
	if len(raw) == 0 {
		return nil
	}

	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}

	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return nil
	}
	k := int(f)
	return &k
}

// RetrieveResult holds matches ordered best-first, or an error string on failure
type RetrieveResult struct {
	Matches []Match `json:"matches"`
	Error   string  `json:"error,omitempty"`
}
