package db

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wesm/github-issue-chat/internal/models"
)

func setupTestDB(t *testing.T, path string) *DB {
	t.Helper()
	database, err := New(path)
	require.NoError(t, err)
	require.NoError(t, database.Initialize())
	t.Cleanup(func() { database.Close() })
	return database
}

func notification(id, caller string, number int, notifiedAt time.Time) *models.Notification {
	return &models.Notification{
		ID:          id,
		CallerID:    caller,
		Repository:  "acme/widgets",
		IssueNumber: number,
		Title:       "issue",
		URL:         "https://github.com/acme/widgets/issues/1",
		CreatedAt:   notifiedAt.Add(-time.Minute),
		NotifiedAt:  notifiedAt,
	}
}

func TestSaveNotification_Dedupes(t *testing.T) {
	database := setupTestDB(t, MemoryPath)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	inserted, err := database.SaveNotification(ctx, notification("a", "alice", 1, now))
	require.NoError(t, err)
	assert.True(t, inserted)

	inserted, err = database.SaveNotification(ctx, notification("b", "alice", 1, now))
	require.NoError(t, err)
	assert.False(t, inserted, "same caller and issue is only recorded once")

	inserted, err = database.SaveNotification(ctx, notification("c", "bob", 1, now))
	require.NoError(t, err)
	assert.True(t, inserted)
}

func TestListNotifications(t *testing.T) {
	database := setupTestDB(t, filepath.Join(t.TempDir(), "journal.db"))
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i, n := range []*models.Notification{
		notification("a", "alice", 1, now),
		notification("b", "alice", 2, now.Add(time.Minute)),
		notification("c", "bob", 3, now),
	} {
		_, err := database.SaveNotification(ctx, n)
		require.NoError(t, err, "notification %d", i)
	}

	alice, err := database.ListNotifications(ctx, "alice", 0)
	require.NoError(t, err)
	require.Len(t, alice, 2)
	assert.Equal(t, 2, alice[0].IssueNumber)
	assert.Equal(t, 1, alice[1].IssueNumber)
	assert.True(t, alice[0].NotifiedAt.Equal(now.Add(time.Minute)))

	all, err := database.ListNotifications(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	limited, err := database.ListNotifications(ctx, "", 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)
}
