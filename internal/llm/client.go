package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

// Client represents a Gemini LLM client
type Client struct {
	apiKey       string
	defaultModel string
	timeout      time.Duration
	options      []option.ClientOption
	logger       zerolog.Logger
	genaiClient  *genai.Client
	mu           sync.Mutex
}

// NewClient creates a new Gemini LLM client. The genai client is created on
// first use, so a missing key only surfaces from Generate.
func NewClient(apiKey, defaultModel string, timeout int, logger zerolog.Logger, opts ...option.ClientOption) *Client {
	if defaultModel == "" {
		defaultModel = DefaultModel
	}
	if timeout <= 0 {
		timeout = 60
	}
	return &Client{
		apiKey:       apiKey,
		defaultModel: defaultModel,
		timeout:      time.Duration(timeout) * time.Second,
		options:      opts,
		logger:       logger.With().Str("component", "llm").Logger(),
	}
}

// getClient returns or creates a genai client (thread-safe)
func (c *Client) getClient(ctx context.Context) (*genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		return c.genaiClient, nil
	}

	opts := append([]option.ClientOption{option.WithAPIKey(c.apiKey)}, c.options...)
	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c.genaiClient = client
	c.logger.Info().Msg("Gemini client created and cached")
	return c.genaiClient, nil
}

// Close closes the LLM client and releases resources
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.genaiClient != nil {
		err := c.genaiClient.Close()
		c.genaiClient = nil
		if err != nil {
			c.logger.Error().Err(err).Msg("Failed to close Gemini client")
			return err
		}
		c.logger.Info().Msg("Gemini client closed")
	}
	return nil
}

// NormalizeModel returns model unless it is empty or not a Gemini model,
// in which case fallback is returned
func NormalizeModel(model, fallback string) string {
	model = strings.TrimSpace(model)
	if model == "" || !strings.HasPrefix(strings.ToLower(model), "gemini") {
		return fallback
	}
	return model
}

// BuildPrompt returns the system and user parts of the prompt for req
func BuildPrompt(req *models.LLMRequest) (system, user string) {
	system = strings.TrimSpace(req.Prompt)
	if system == "" {
		system = DefaultSystemPrompt
	}

	contexts := req.Context
	if len(contexts) > MaxContextItems {
		contexts = contexts[:MaxContextItems]
	}
	user = strings.TrimSpace(fmt.Sprintf(UserPromptTemplate, req.Query, strings.Join(contexts, "\n\n")))
	return system, user
}

// MockResponse builds the placeholder text returned in dev mock mode.
// note names the failure being masked and may be empty.
func MockResponse(req *models.LLMRequest, note string) string {
	system, user := BuildPrompt(req)
	if runes := []rune(user); len(runes) > mockPreviewLength {
		user = string(runes[:mockPreviewLength])
	}

	text := fmt.Sprintf("%s\n\nPrompt: %s\n\n%s", MockHeader, system, user)
	if note != "" {
		text += fmt.Sprintf("\n\n(Note: %s)", note)
	}
	return text
}

// Generate answers req with the Gemini model it names
func (c *Client) Generate(ctx context.Context, req *models.LLMRequest) (*models.LLMResponse, error) {
	if c.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	startTime := time.Now()

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	modelName := NormalizeModel(req.Model, c.defaultModel)
	system, user := BuildPrompt(req)

	text, err := c.generateWithRetry(ctx, modelName, system+"\n\n"+user)
	if err != nil {
		return nil, err
	}

	c.logger.Info().
		Str("model", modelName).
		Int("context_items", len(req.Context)).
		Int("response_length", len([]rune(text))).
		Dur("duration", time.Since(startTime)).
		Msg("LLM response generated successfully")

	return &models.LLMResponse{
		Text:            text,
		ModelUsed:       modelName,
		ExecutionTimeMs: int(time.Since(startTime).Milliseconds()),
	}, nil
}

// generateWithRetry retries rate limits, 5xx responses and connection failures
func (c *Client) generateWithRetry(ctx context.Context, modelName, prompt string) (string, error) {
	var lastError error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff: 1s, 2s
			backoff := time.Duration(1<<uint(attempt-1)) * time.Second
			c.logger.Warn().
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Str("model", modelName).
				Msg("Retrying LLM request")

			select {
			case <-ctx.Done():
				return "", fmt.Errorf("llm request cancelled: %w", lastError)
			case <-time.After(backoff):
			}
		}

		text, err := c.generate(ctx, modelName, prompt)
		if err == nil {
			return text, nil
		}

		lastError = err
		c.logger.Error().
			Err(err).
			Int("attempt", attempt+1).
			Str("model", modelName).
			Msg("LLM request failed")

		if !retryable(err) {
			break
		}
	}

	return "", lastError
}

// generate makes actual API call to Gemini
func (c *Client) generate(ctx context.Context, modelName, prompt string) (string, error) {
	client, err := c.getClient(ctx)
	if err != nil {
		return "", err
	}

	model := client.GenerativeModel(modelName)

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}

	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no response candidates from LLM")
	}

	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content parts in response")
	}

	var responseText strings.Builder
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			responseText.WriteString(string(text))
		}
	}

	return responseText.String(), nil
}
