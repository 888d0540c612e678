package storage

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/rag-pipeline/internal/models"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRecents(t *testing.T) *SQLiteRecents {
	t.Helper()
	s, err := NewSQLiteRecents(filepath.Join(t.TempDir(), "nested", "app.db"), zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteRecents_SaveAndList(t *testing.T) {
	s := newTestRecents(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := s.SaveRecentChat(ctx, fmt.Sprintf("chat %d", i))
		require.NoError(t, err)
	}

	chats, err := s.ListRecentChats(ctx, 20)
	require.NoError(t, err)
	require.Len(t, chats, 20)
	assert.Equal(t, "chat 24", chats[0].Title)
	assert.Equal(t, "chat 5", chats[19].Title)
	assert.False(t, chats[0].CreatedAt.IsZero())
}

func TestSQLiteRecents_SaveTrimsAndRejectsEmpty(t *testing.T) {
	s := newTestRecents(t)
	ctx := context.Background()

	chat, err := s.SaveRecentChat(ctx, "  My chat  ")
	require.NoError(t, err)
	assert.Equal(t, "My chat", chat.Title)
	assert.Positive(t, chat.ID)

	_, err = s.SaveRecentChat(ctx, "   ")
	assert.ErrorIs(t, err, ErrEmptyTitle)
}

func TestSQLiteRecents_ListEmpty(t *testing.T) {
	s := newTestRecents(t)

	chats, err := s.ListRecentChats(context.Background(), 20)
	require.NoError(t, err)
	assert.NotNil(t, chats)
	assert.Empty(t, chats)
}

func TestSQLiteRecents_Prune(t *testing.T) {
	s := newTestRecents(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour).UTC()
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO recent_chats (title, created_at) VALUES (?, ?), (?, ?)",
		"old 1", old.UnixNano(), "old 2", old.UnixNano())
	require.NoError(t, err)
	_, err = s.SaveRecentChat(ctx, "fresh")
	require.NoError(t, err)

	n, err := s.PruneRecentChats(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chats, err := s.ListRecentChats(ctx, 20)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, "fresh", chats[0].Title)
}

func TestSQLiteRecents_Ping(t *testing.T) {
	assert.NoError(t, newTestRecents(t).Ping(context.Background()))
}

func TestNewRecentStore_DefaultsToSQLite(t *testing.T) {
	cfg := &models.AppConfig{RecentsDBPath: filepath.Join(t.TempDir(), "app.db")}

	store, err := NewRecentStore(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &SQLiteRecents{}, store)
}
