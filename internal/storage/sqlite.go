package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// SQLiteRecents stores recent chats in a local SQLite database
type SQLiteRecents struct {
	db     *sql.DB
	path   string
	logger zerolog.Logger
}

var _ RecentStore = (*SQLiteRecents)(nil)

// NewSQLiteRecents opens (creating if needed) the database at path
func NewSQLiteRecents(path string, logger zerolog.Logger) (*SQLiteRecents, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	s := &SQLiteRecents{
		db:     db,
		path:   path,
		logger: logger.With().Str("component", "storage").Str("backend", "sqlite").Logger(),
	}
	if err := s.init(); err != nil {
		db.Close()
		return nil, err
	}

	return s, nil
}

func (s *SQLiteRecents) init() error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	}
	for _, p := range pragmas {
		if _, err := s.db.Exec(p); err != nil {
			return fmt.Errorf("pragma failed: %w", err)
		}
	}

	schema := `
		CREATE TABLE IF NOT EXISTS recent_chats (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			title TEXT NOT NULL,
			created_at INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_recent_chats_created_at ON recent_chats (created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("schema creation failed: %w", err)
	}

	return nil
}

// SaveRecentChat inserts a recent chat entry
func (s *SQLiteRecents) SaveRecentChat(ctx context.Context, title string) (*models.RecentChat, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	createdAt := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO recent_chats (title, created_at) VALUES (?, ?)", title, createdAt.UnixNano())
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to save recent chat")
		return nil, fmt.Errorf("failed to insert recent chat: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read recent chat id: %w", err)
	}

	return &models.RecentChat{ID: id, Title: title, CreatedAt: createdAt}, nil
}

// ListRecentChats returns at most limit entries, newest first
func (s *SQLiteRecents) ListRecentChats(ctx context.Context, limit int) ([]models.RecentChat, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, title, created_at FROM recent_chats ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch recent chats: %w", err)
	}
	defer rows.Close()

	chats := []models.RecentChat{}
	for rows.Next() {
		var chat models.RecentChat
		var createdAt int64
		if err := rows.Scan(&chat.ID, &chat.Title, &createdAt); err != nil {
			return nil, err
		}
		chat.CreatedAt = time.Unix(0, createdAt).UTC()
		chats = append(chats, chat)
	}

	return chats, rows.Err()
}

// PruneRecentChats deletes entries created before the cutoff
func (s *SQLiteRecents) PruneRecentChats(ctx context.Context, before time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM recent_chats WHERE created_at < ?", before.UTC().UnixNano())
	if err != nil {
		return 0, fmt.Errorf("failed to delete recent chats: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

// Ping checks that the database is reachable
func (s *SQLiteRecents) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLiteRecents) Close() error {
	return s.db.Close()
}
