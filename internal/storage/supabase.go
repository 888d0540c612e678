package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
	supa "github.com/supabase-community/supabase-go"
)

const (
	// recentChatsTable is the Supabase table holding the recent chats log
	recentChatsTable = "recent_chats"

	// recentChatsColumns are the columns decoded into models.RecentChat
	recentChatsColumns = "id,title,created_at"

	supabaseMaxRetries   = 2
	supabaseRetryBackoff = 500 * time.Millisecond
)

var _ RecentStore = (*Client)(nil)

// Client keeps the recent chats log in a Supabase (PostgREST) table
type Client struct {
	client  *supa.Client
	timeout time.Duration
	backoff time.Duration
	logger  zerolog.Logger
}

// NewClient creates a Supabase-backed recent chats store.
// timeout is in seconds and bounds each operation including retries.
func NewClient(supabaseURL, supabaseKey string, timeout int, logger zerolog.Logger) (*Client, error) {
	client, err := supa.NewClient(supabaseURL, supabaseKey, &supa.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}
	if timeout <= 0 {
		timeout = 10
	}

	return &Client{
		client:  client,
		timeout: time.Duration(timeout) * time.Second,
		backoff: supabaseRetryBackoff,
		logger:  logger.With().Str("component", "storage").Str("backend", "supabase").Logger(),
	}, nil
}

// Ping reads one row of the recent chats table, checking both the
// connection and that the expected columns exist
func (c *Client) Ping(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, _, err := c.client.From(recentChatsTable).
		Select(recentChatsColumns, "", false).
		Limit(1, "").
		Execute()
	if err != nil {
		return fmt.Errorf("supabase ping failed: %w", err)
	}

	var rows []models.RecentChat
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("supabase ping returned unexpected rows: %w", err)
	}

	c.logger.Debug().Msg("Supabase connection successful")
	return nil
}

// Close is a no-op; the PostgREST client holds no open connections
func (c *Client) Close() error { return nil }

// withRetry runs fn up to supabaseMaxRetries+1 times with linear backoff.
// The PostgREST client is not context-aware, so ctx is checked between attempts.
func (c *Client) withRetry(ctx context.Context, operation string, fn func() error) error {
	var lastErr error

	for attempt := 0; attempt <= supabaseMaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * c.backoff
			c.logger.Warn().
				Str("operation", operation).
				Int("attempt", attempt+1).
				Dur("backoff", backoff).
				Msg("Retrying operation")

			select {
			case <-ctx.Done():
				return fmt.Errorf("operation %s cancelled: %w", operation, lastErr)
			case <-time.After(backoff):
			}
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}

		c.logger.Error().
			Err(lastErr).
			Str("operation", operation).
			Int("attempt", attempt+1).
			Msg("Operation failed")
	}

	return fmt.Errorf("operation %s failed after %d attempts: %w", operation, supabaseMaxRetries+1, lastErr)
}
