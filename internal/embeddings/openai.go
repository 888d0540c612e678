package embeddings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"
)

var _ Embedder = (*OpenAIClient)(nil)

// OpenAIClient embeds chunks through the OpenAI embeddings endpoint
type OpenAIClient struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	apiKey  string
	logger  zerolog.Logger
}

// NewOpenAIClient creates an OpenAI-compatible embeddings client.
// baseURL overrides the API root when set (Azure proxies, local gateways, tests).
func NewOpenAIClient(apiKey, model, baseURL string, timeout time.Duration, logger zerolog.Logger) *OpenAIClient {
	if model == "" || model == DefaultModel {
		model = ModelOpenAISmall
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" && baseURL != DefaultBaseURL {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}

	return &OpenAIClient{
		client:  openai.NewClientWithConfig(cfg),
		model:   model,
		timeout: timeout,
		apiKey:  apiKey,
		logger:  logger.With().Str("component", "embeddings").Str("provider", ProviderOpenAI).Logger(),
	}
}

// Name returns the provider and model identifier
func (c *OpenAIClient) Name() string { return ProviderOpenAI + ":" + c.model }

// Embed sends all chunks in one CreateEmbeddings call. The SDK decodes only the
// {"data":[{"index":i,"embedding":[...]}]} list; any other body yields no data
// and fails with FormatError.
func (c *OpenAIClient) Embed(ctx context.Context, chunks []string) ([][]float32, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: OPENAI_API_KEY missing", ErrConfiguration)
	}
	if len(chunks) == 0 {
		return [][]float32{}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	startTime := time.Now()

	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: chunks,
		Model: openai.EmbeddingModel(c.model),
	})
	if err != nil {
		c.logger.Error().
			Err(err).
			Int("batch_size", len(chunks)).
			Msg("Embeddings request failed")
		return nil, mapOpenAIError(err)
	}

	if len(resp.Data) != len(chunks) {
		return nil, &FormatError{Reason: fmt.Sprintf("expected %d embeddings, got %d", len(chunks), len(resp.Data))}
	}

	embeddings := make([][]float32, len(chunks))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(chunks) || len(d.Embedding) == 0 {
			return nil, &FormatError{Reason: fmt.Sprintf("invalid embedding at index %d", d.Index)}
		}
		embeddings[d.Index] = d.Embedding
	}
	for i, e := range embeddings {
		if e == nil {
			return nil, &FormatError{Reason: fmt.Sprintf("missing embedding for chunk %d", i)}
		}
	}

	c.logger.Debug().
		Int("count", len(embeddings)).
		Int("dimension", len(embeddings[0])).
		Dur("duration", time.Since(startTime)).
		Msg("Embeddings generated successfully")

	return embeddings, nil
}

func mapOpenAIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &HTTPError{Status: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		return &HTTPError{Status: reqErr.HTTPStatusCode, Body: body}
	}
	return &NetworkError{Err: err}
}
