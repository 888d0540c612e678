package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(serverURL string) *Client {
	return NewClient("test-key", ModelTextEmbedding004, serverURL, 5*time.Second, zerolog.Nop())
}

func TestClient_Embed_PrimaryShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/models/text-embedding-004:batchEmbedContents", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var req batchEmbedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Requests, 2)
		assert.Equal(t, "models/text-embedding-004", req.Requests[0].Model)
		assert.Equal(t, "first", req.Requests[0].Content.Parts[0].Text)
		assert.Equal(t, "second", req.Requests[1].Content.Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.1,0.2]},{"values":[0.3,0.4]}]}`))
	}))
	defer server.Close()

	vectors, err := newTestClient(server.URL).Embed(context.Background(), []string{"first", "second"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{0.1, 0.2}, vectors[0])
	assert.Equal(t, []float32{0.3, 0.4}, vectors[1])
}

func TestClient_Embed_AlternateShape(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"responses":[{"embedding":{"values":[1,0]}},{"embedding":{"values":[0,1]}}]}`))
	}))
	defer server.Close()

	vectors, err := newTestClient(server.URL).Embed(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float32{{1, 0}, {0, 1}}, vectors)
}

func TestClient_Embed_MalformedPrimaryUsesAlternate(t *testing.T) {
	bodies := []string{
		`{"embeddings":"oops","responses":[{"embedding":{"values":[0.1,0.2]}}]}`,
		`{"embeddings":[{"values":"bad"}],"responses":[{"embedding":{"values":[0.1,0.2]}}]}`,
		`{"embeddings":[],"responses":[{"embedding":{"values":[0.1,0.2]}}]}`,
	}

	for _, body := range bodies {
		t.Run(body, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer server.Close()

			vectors, err := newTestClient(server.URL).Embed(context.Background(), []string{"only"})
			require.NoError(t, err)
			assert.Equal(t, [][]float32{{0.1, 0.2}}, vectors)
		})
	}
}

func TestClient_Embed_BothShapesMalformed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":"oops","responses":{"embedding":1}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Embed(context.Background(), []string{"only"})
	var formatErr *FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestClient_Embed_CountMismatch(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"embeddings":[{"values":[0.1]}]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Embed(context.Background(), []string{"a", "b"})
	require.Error(t, err)

	var formatErr *FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestClient_Embed_InvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Embed(context.Background(), []string{"a"})
	var formatErr *FormatError
	assert.True(t, errors.As(err, &formatErr))
}

func TestClient_Embed_HTTPError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Embed(context.Background(), []string{"a"})
	require.Error(t, err)

	var httpErr *HTTPError
	require.True(t, errors.As(err, &httpErr))
	assert.Equal(t, http.StatusTooManyRequests, httpErr.Status)
	assert.Contains(t, httpErr.Body, "quota")
	assert.Equal(t, int32(1), calls.Load(), "no retries")
}

func TestClient_Embed_NetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := newTestClient(url).Embed(context.Background(), []string{"a"})
	require.Error(t, err)

	var netErr *NetworkError
	assert.True(t, errors.As(err, &netErr))
	assert.False(t, IsConfigurationError(err))
}

func TestClient_Embed_MissingKey(t *testing.T) {
	c := NewClient("", "", "", 0, zerolog.Nop())

	_, err := c.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, IsConfigurationError(err))
}

func TestClient_Embed_EmptyInput(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer server.Close()

	vectors, err := newTestClient(server.URL).Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vectors)
	assert.Equal(t, int32(0), calls.Load())
}

func TestNew_SelectsProvider(t *testing.T) {
	e, err := New(testRAGConfig(ProviderGemini), "g", "o", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "gemini:text-embedding-004", e.Name())

	e, err = New(testRAGConfig(ProviderOpenAI), "g", "o", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "openai:text-embedding-3-small", e.Name())

	_, err = New(testRAGConfig("cohere"), "g", "o", zerolog.Nop())
	assert.Error(t, err)
}
