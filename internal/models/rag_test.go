package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetrieveRequest_TopK(t *testing.T) {
	tests := []struct {
		name string
		body string
		want *int
	}{
		{"number", `{"query":"x","topK":3}`, intPtr(3)},
		{"integral float", `{"query":"x","topK":4.0}`, intPtr(4)},
		{"numeric string", `{"query":"x","topK":"3"}`, intPtr(3)},
		{"padded string", `{"query":"x","topK":" 7 "}`, intPtr(7)},
		{"absent", `{"query":"x"}`, nil},
		{"null", `{"query":"x","topK":null}`, nil},
		{"fraction", `{"query":"x","topK":2.5}`, nil},
		{"word", `{"query":"x","topK":"abc"}`, nil},
		{"bool", `{"query":"x","topK":true}`, nil},
		{"object", `{"query":"x","topK":{"n":1}}`, nil},
		{"huge", `{"query":"x","topK":1e300}`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req RetrieveRequest
			require.NoError(t, json.Unmarshal([]byte(tt.body), &req))
			assert.Equal(t, "x", req.Query)
			assert.Equal(t, tt.want, req.TopK)
		})
	}
}

func TestRetrieveRequest_TextAlias(t *testing.T) {
	var req RetrieveRequest
	require.NoError(t, json.Unmarshal([]byte(`{"text":"hello"}`), &req))
	assert.Equal(t, "hello", req.Text)
	assert.Empty(t, req.Query)
	assert.Nil(t, req.TopK)
}

func TestRetrieveRequest_InvalidBody(t *testing.T) {
	var req RetrieveRequest
	assert.Error(t, json.Unmarshal([]byte(`{"query":`), &req))
}

func intPtr(v int) *int { return &v }
