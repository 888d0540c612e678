package embeddings

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Compile-time interface check.
var _ Embedder = (*Client)(nil)

// Client represents a Gemini Embeddings client speaking the batchEmbedContents REST API
type Client struct {
	apiKey  string
	model   string
	baseURL string
	timeout time.Duration
	client  *http.Client
	logger  zerolog.Logger
}

// NewClient creates a new Gemini Embeddings client.
// An empty apiKey is accepted; Embed then fails with ErrConfiguration.
func NewClient(apiKey, model, baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	if model == "" {
		model = DefaultModel
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		apiKey:  apiKey,
		model:   strings.TrimPrefix(model, "models/"),
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "embeddings").Str("provider", ProviderGemini).Logger(),
	}
}

// Name returns the provider and model identifier
func (c *Client) Name() string { return ProviderGemini + ":" + c.model }

// Close releases idle connections
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Embed sends all chunks in one batched request and returns one vector per
// chunk, in input order. It performs no retries.
func (c *Client) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: GEMINI_API_KEY missing", ErrConfiguration)
	}
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()

	body, err := json.Marshal(c.buildRequest(chunks))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embeddings request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Error().
			Err(err).
			Int("batch_size", len(chunks)).
			Msg("Embeddings request failed")
		return nil, &NetworkError{Err: err}
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error().
			Int("status", resp.StatusCode).
			Int("batch_size", len(chunks)).
			Msg("Embeddings service returned an error status")
		return nil, &HTTPError{Status: resp.StatusCode, Body: truncateBody(payload, 500)}
	}

	embeddings, err := parseBatchResponse(payload, len(chunks))
	if err != nil {
		return nil, err
	}

	c.logger.Debug().
		Int("count", len(embeddings)).
		Int("dimension", len(embeddings[0])).
		Dur("duration", time.Since(startTime)).
		Msg("Embeddings generated successfully")

	return embeddings, nil
}

func (c *Client) endpoint() string {
	return fmt.Sprintf("%s/models/%s:batchEmbedContents?key=%s", c.baseURL, c.model, url.QueryEscape(c.apiKey))
}

func (c *Client) buildRequest(chunks []string) batchEmbedRequest {
	requests := make([]embedContentRequest, len(chunks))
	for i, text := range chunks {
		requests[i] = embedContentRequest{
			Model:   "models/" + c.model,
			Content: content{Parts: []part{{Text: text}}},
		}
	}
	return batchEmbedRequest{Requests: requests}
}

// parseBatchResponse reads the current {"embeddings":[{"values":[...]}]} shape
// and falls back to the older {"responses":[{"embedding":{"values":[...]}}]} shape
// when the first is absent, malformed or short.
func parseBatchResponse(payload []byte, want int) ([][]float32, error) {
	var out batchEmbedResponse
	if err := json.Unmarshal(payload, &out); err != nil {
		return nil, &FormatError{Reason: fmt.Sprintf("invalid JSON: %v", err)}
	}

	var primary []embeddingValues
	if decodeShape(out.Embeddings, &primary) {
		if vectors, ok := collect(len(primary), want, func(i int) []float32 { return primary[i].Values }); ok {
			return vectors, nil
		}
	}

	var alternate []alternateEmbedding
	if decodeShape(out.Responses, &alternate) {
		if vectors, ok := collect(len(alternate), want, func(i int) []float32 { return alternate[i].Embedding.Values }); ok {
			return vectors, nil
		}
	}

	return nil, &FormatError{Reason: fmt.Sprintf(
		"expected %d embeddings, got %d under \"embeddings\" and %d under \"responses\"",
		want, len(primary), len(alternate),
	)}
}

// decodeShape reports whether raw is present and decodes into v
func decodeShape(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 {
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

func collect(n, want int, values func(int) []float32) ([][]float32, bool) {
	if n != want {
		return nil, false
	}
	vectors := make([][]float32, n)
	for i := 0; i < n; i++ {
		v := values(i)
		if len(v) == 0 {
			return nil, false
		}
		vectors[i] = v
	}
	return vectors, true
}

func truncateBody(b []byte, max int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > max {
		return s[:max]
	}
	return s
}

// Gemini API types

type batchEmbedRequest struct {
	Requests []embedContentRequest `json:"requests"`
}

type embedContentRequest struct {
	Model   string  `json:"model"`
	Content content `json:"content"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

// batchEmbedResponse keeps both known shapes raw so each is decoded on its own
type batchEmbedResponse struct {
	Embeddings json.RawMessage `json:"embeddings"`
	Responses  json.RawMessage `json:"responses"`
}

type alternateEmbedding struct {
	Embedding embeddingValues `json:"embedding"`
}

type embeddingValues struct {
	Values []float32 `json:"values"`
}
