package service

import (
	"context"
	"testing"
	"time"

	"solcast/internal/models"
	"solcast/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type chatFixture struct {
	db      *gorm.DB
	svc     *ChatService
	chats   repository.ChatRepository
	follows repository.FollowRepository
	blocks  repository.BlockRepository
}

func newChatFixture(t *testing.T) *chatFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{}, &models.Stream{}, &models.Follow{}, &models.Block{},
		&models.ChatMessage{}, &models.ChatSettings{}, &models.SolcitoTransaction{},
	))

	chats := repository.NewChatRepository(db)
	follows := repository.NewFollowRepository(db)
	blocks := repository.NewBlockRepository(db)
	svc := NewChatService(
		chats,
		repository.NewStreamRepository(db),
		repository.NewUserRepository(db),
		follows,
		blocks,
		repository.NewSolcitoRepository(db),
	)
	return &chatFixture{db: db, svc: svc, chats: chats, follows: follows, blocks: blocks}
}

func (f *chatFixture) addUser(t *testing.T, username string, balance int64) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x", SolcitoBalance: balance}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func (f *chatFixture) addStream(t *testing.T, owner *models.User) *models.Stream {
	t.Helper()
	st := &models.Stream{UserID: owner.ID, Title: "Stream de " + owner.Username}
	require.NoError(t, f.db.Create(st).Error)
	return st
}

func TestChatService_SendAndReadFeed(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	owner.IsPrime = true
	require.NoError(t, f.db.Save(owner).Error)
	viewer := f.addUser(t, "pepe", 0)
	stream := f.addStream(t, owner)

	_, err := f.svc.SendMessage(ctx, stream.ID, owner.ID, "bienvenidos!", 0)
	require.NoError(t, err)
	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "hola ana", 0)
	require.NoError(t, err)

	feed, err := f.svc.GetFeed(ctx, stream.ID, viewer.ID, 50)
	require.NoError(t, err)
	require.Len(t, feed.Messages, 2)
	assert.True(t, feed.CanChat)

	// Owner's message carries the streamer and prime flags
	assert.Equal(t, "bienvenidos!", feed.Messages[0].Text)
	assert.True(t, feed.Messages[0].IsStreamer)
	assert.True(t, feed.Messages[0].IsPrime)

	assert.False(t, feed.Messages[1].IsStreamer)
	assert.False(t, feed.Messages[1].IsPrime)
}

func TestChatService_AnonymousCannotChat(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	stream := f.addStream(t, owner)

	feed, err := f.svc.GetFeed(ctx, stream.ID, 0, 50)
	require.NoError(t, err)
	assert.False(t, feed.CanChat)
}

func TestChatService_DisabledChat(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 0)
	stream := f.addStream(t, owner)

	_, err := f.svc.UpdateSettings(ctx, stream.ID, owner.ID, &models.ChatSettings{Enabled: false})
	require.NoError(t, err)

	// Viewer is rejected
	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "hola", 0)
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)

	// Owner can still chat in their own stream
	_, err = f.svc.SendMessage(ctx, stream.ID, owner.ID, "probando", 0)
	assert.NoError(t, err)

	feed, err := f.svc.GetFeed(ctx, stream.ID, viewer.ID, 50)
	require.NoError(t, err)
	assert.False(t, feed.CanChat)

	ownerFeed, err := f.svc.GetFeed(ctx, stream.ID, owner.ID, 50)
	require.NoError(t, err)
	assert.True(t, ownerFeed.CanChat)
}

func TestChatService_BlockedSenderRejected(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 0)
	stream := f.addStream(t, owner)

	require.NoError(t, f.blocks.Block(ctx, owner.ID, viewer.ID))

	_, err := f.svc.SendMessage(ctx, stream.ID, viewer.ID, "hola", 0)
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "FORBIDDEN", appErr.Code)
}

func TestChatService_FollowersOnly(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 0)
	stream := f.addStream(t, owner)

	_, err := f.svc.UpdateSettings(ctx, stream.ID, owner.ID, &models.ChatSettings{Enabled: true, FollowersOnly: true})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "hola", 0)
	assert.Error(t, err)

	require.NoError(t, f.follows.Follow(ctx, viewer.ID, owner.ID))
	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "hola de nuevo", 0)
	assert.NoError(t, err)
}

func TestChatService_SlowMode(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 0)
	stream := f.addStream(t, owner)

	_, err := f.svc.UpdateSettings(ctx, stream.ID, owner.ID, &models.ChatSettings{Enabled: true, SlowModeSeconds: 30})
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "primero", 0)
	require.NoError(t, err)

	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "segundo", 0)
	assert.Error(t, err, "second message inside the slow-mode window")

	// Backdate the first message past the window
	require.NoError(t, f.db.Model(&models.ChatMessage{}).
		Where("stream_id = ? AND user_id = ?", stream.ID, viewer.ID).
		UpdateColumn("created_at", time.Now().Add(-time.Minute)).Error)

	_, err = f.svc.SendMessage(ctx, stream.ID, viewer.ID, "segundo", 0)
	assert.NoError(t, err)
}

func TestChatService_GiftMessage(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 500)
	stream := f.addStream(t, owner)

	msg, err := f.svc.SendMessage(ctx, stream.ID, viewer.ID, "toma!", 200)
	require.NoError(t, err)
	assert.Equal(t, int64(200), msg.Solcitos)

	var ownerRow, viewerRow models.User
	require.NoError(t, f.db.First(&ownerRow, owner.ID).Error)
	require.NoError(t, f.db.First(&viewerRow, viewer.ID).Error)
	assert.Equal(t, int64(200), ownerRow.SolcitoBalance)
	assert.Equal(t, int64(300), viewerRow.SolcitoBalance)
}

func TestChatService_GiftMessageInsufficientBalance(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 50)
	stream := f.addStream(t, owner)

	_, err := f.svc.SendMessage(ctx, stream.ID, viewer.ID, "toma!", 200)
	require.Error(t, err)

	// No message stored when the gift fails
	var count int64
	require.NoError(t, f.db.Model(&models.ChatMessage{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestChatService_SettingsOwnerOnly(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	viewer := f.addUser(t, "pepe", 0)
	stream := f.addStream(t, owner)

	_, err := f.svc.UpdateSettings(ctx, stream.ID, viewer.ID, &models.ChatSettings{Enabled: false})
	require.Error(t, err)

	err = f.svc.DeleteMessage(ctx, stream.ID, viewer.ID, 1)
	require.Error(t, err)
}

func TestChatService_MessageValidation(t *testing.T) {
	f := newChatFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "ana", 0)
	stream := f.addStream(t, owner)

	_, err := f.svc.SendMessage(ctx, stream.ID, owner.ID, "   ", 0)
	assert.Error(t, err)
}
