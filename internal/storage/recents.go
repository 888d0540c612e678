package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/rag-pipeline/internal/models"
	"github.com/supabase/postgrest-go"
)

// SaveRecentChat inserts a recent chat entry and returns the stored row
func (c *Client) SaveRecentChat(ctx context.Context, title string) (*models.RecentChat, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	var rows []models.RecentChat
	operation := "save_recent_chat"

	err := c.withRetry(ctx, operation, func() error {
		data := map[string]interface{}{
			"title":      title,
			"created_at": time.Now().UTC(),
		}

		body, _, err := c.client.From(recentChatsTable).
			Insert(data, false, "", "representation", "").
			Execute()
		if err != nil {
			return fmt.Errorf("failed to insert recent chat: %w", err)
		}

		if err := json.Unmarshal(body, &rows); err != nil {
			return fmt.Errorf("failed to unmarshal recent chat: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Str("title", title).
			Msg("Failed to save recent chat")
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert returned no rows")
	}

	c.logger.Debug().
		Int64("id", rows[0].ID).
		Msg("Recent chat saved successfully")

	return &rows[0], nil
}

// ListRecentChats returns at most limit entries, newest first
func (c *Client) ListRecentChats(ctx context.Context, limit int) ([]models.RecentChat, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	rows := []models.RecentChat{}
	operation := "list_recent_chats"

	err := c.withRetry(ctx, operation, func() error {
		query := c.client.From(recentChatsTable).
			Select(recentChatsColumns, "", false).
			Order("created_at", &postgrest.OrderOpts{Ascending: false}).
			Order("id", &postgrest.OrderOpts{Ascending: false})
		if limit > 0 {
			query = query.Limit(limit, "")
		}

		data, _, err := query.Execute()
		if err != nil {
			return fmt.Errorf("failed to fetch recent chats: %w", err)
		}

		if err := json.Unmarshal(data, &rows); err != nil {
			return fmt.Errorf("failed to unmarshal recent chats: %w", err)
		}
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Msg("Failed to list recent chats")
		return nil, err
	}
	if rows == nil {
		rows = []models.RecentChat{}
	}

	return rows, nil
}

// PruneRecentChats deletes entries created before the cutoff
func (c *Client) PruneRecentChats(ctx context.Context, before time.Time) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var deleted int64
	operation := "prune_recent_chats"

	err := c.withRetry(ctx, operation, func() error {
		_, count, err := c.client.From(recentChatsTable).
			Delete("minimal", "exact").
			Lt("created_at", before.UTC().Format(time.RFC3339)).
			Execute()
		if err != nil {
			return fmt.Errorf("failed to delete recent chats: %w", err)
		}
		deleted = count
		return nil
	})

	if err != nil {
		c.logger.Error().
			Err(err).
			Time("before", before).
			Msg("Failed to prune recent chats")
		return 0, err
	}

	return int(deleted), nil
}
