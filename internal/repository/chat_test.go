package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"solcast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatRepository_Messages(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "pepe", 0)
	stream := &models.Stream{UserID: u.ID, Title: "Stream de pepe"}
	require.NoError(t, db.Create(stream).Error)

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 5; i++ {
		msg := &models.ChatMessage{
			StreamID:  stream.ID,
			UserID:    u.ID,
			Username:  u.Username,
			Text:      fmt.Sprintf("mensaje %d", i),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repo.CreateMessage(ctx, msg))
	}

	t.Run("chronological order", func(t *testing.T) {
		msgs, err := repo.GetMessages(ctx, stream.ID, 50)
		require.NoError(t, err)
		require.Len(t, msgs, 5)
		assert.Equal(t, "mensaje 0", msgs[0].Text)
		assert.Equal(t, "mensaje 4", msgs[4].Text)
	})

	t.Run("limit keeps newest", func(t *testing.T) {
		msgs, err := repo.GetMessages(ctx, stream.ID, 2)
		require.NoError(t, err)
		require.Len(t, msgs, 2)
		assert.Equal(t, "mensaje 3", msgs[0].Text)
		assert.Equal(t, "mensaje 4", msgs[1].Text)
	})

	t.Run("other stream is empty", func(t *testing.T) {
		msgs, err := repo.GetMessages(ctx, stream.ID+1, 50)
		require.NoError(t, err)
		assert.Empty(t, msgs)
	})
}

func TestChatRepository_LastMessageTime(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "pepe", 0)
	stream := &models.Stream{UserID: u.ID, Title: "Stream de pepe"}
	require.NoError(t, db.Create(stream).Error)

	last, err := repo.LastMessageTime(ctx, stream.ID, u.ID)
	require.NoError(t, err)
	assert.True(t, last.IsZero())

	when := time.Now().Add(-30 * time.Second).Truncate(time.Second)
	require.NoError(t, repo.CreateMessage(ctx, &models.ChatMessage{
		StreamID: stream.ID, UserID: u.ID, Username: u.Username, Text: "hola", CreatedAt: when,
	}))

	last, err = repo.LastMessageTime(ctx, stream.ID, u.ID)
	require.NoError(t, err)
	assert.WithinDuration(t, when, last, time.Second)
}

func TestChatRepository_Settings(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewChatRepository(db)
	ctx := context.Background()

	u := seedUser(t, db, "pepe", 0)
	stream := &models.Stream{UserID: u.ID, Title: "Stream de pepe"}
	require.NoError(t, db.Create(stream).Error)

	t.Run("defaults when no row", func(t *testing.T) {
		settings, err := repo.GetSettings(ctx, stream.ID)
		require.NoError(t, err)
		assert.True(t, settings.Enabled)
		assert.False(t, settings.FollowersOnly)
		assert.Zero(t, settings.SlowModeSeconds)
	})

	t.Run("save then read back", func(t *testing.T) {
		err := repo.SaveSettings(ctx, &models.ChatSettings{
			StreamID:        stream.ID,
			Enabled:         false,
			FollowersOnly:   true,
			SlowModeSeconds: 10,
		})
		require.NoError(t, err)

		settings, err := repo.GetSettings(ctx, stream.ID)
		require.NoError(t, err)
		assert.False(t, settings.Enabled)
		assert.True(t, settings.FollowersOnly)
		assert.Equal(t, 10, settings.SlowModeSeconds)
	})

	t.Run("disable persists on the very first write", func(t *testing.T) {
		// A fresh stream has no settings row; the first INSERT must keep
		// Enabled=false instead of letting a column default win.
		other := &models.Stream{UserID: u.ID + 1000, Title: "otro stream"}
		require.NoError(t, db.Create(other).Error)

		require.NoError(t, repo.SaveSettings(ctx, &models.ChatSettings{
			StreamID: other.ID,
			Enabled:  false,
		}))

		settings, err := repo.GetSettings(ctx, other.ID)
		require.NoError(t, err)
		assert.False(t, settings.Enabled)
	})

	t.Run("save is an upsert", func(t *testing.T) {
		err := repo.SaveSettings(ctx, &models.ChatSettings{
			StreamID: stream.ID,
			Enabled:  true,
		})
		require.NoError(t, err)

		var count int64
		require.NoError(t, db.Model(&models.ChatSettings{}).Where("stream_id = ?", stream.ID).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})
}
