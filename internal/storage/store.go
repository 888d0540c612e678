package storage

import (
	"context"
	"time"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
)

// RecentStore keeps the log of recently opened chats
type RecentStore interface {
	SaveRecentChat(ctx context.Context, title string) (*models.RecentChat, error)

	// ListRecentChats returns at most limit entries, newest first
	ListRecentChats(ctx context.Context, limit int) ([]models.RecentChat, error)

	// PruneRecentChats deletes entries created before the cutoff and returns how many were removed
	PruneRecentChats(ctx context.Context, before time.Time) (int, error)

	Ping(ctx context.Context) error
	Close() error
}

// NewRecentStore returns the Supabase store when it is configured and the
// local SQLite store otherwise
func NewRecentStore(cfg *models.AppConfig, logger zerolog.Logger) (RecentStore, error) {
	if cfg.UseSupabase() {
		return NewClient(cfg.SupabaseURL, cfg.SupabaseKey, cfg.SupabaseTimeout, logger)
	}
	return NewSQLiteRecents(cfg.RecentsDBPath, logger)
}
