package service

import (
	"context"
	"errors"
	"testing"

	"solcast/internal/livekit"
	"solcast/internal/models"
	"solcast/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fakeMedia struct {
	ingressCalls int
	ingress      *livekit.Ingress
	ingressErr   error

	tokenRoom     string
	tokenIdentity string
}

func (f *fakeMedia) CreateIngress(_ context.Context, _, _, _ string) (*livekit.Ingress, error) {
	f.ingressCalls++
	if f.ingressErr != nil {
		return nil, f.ingressErr
	}
	return f.ingress, nil
}

func (f *fakeMedia) BuildViewerToken(room, identity, _ string) (string, error) {
	f.tokenRoom = room
	f.tokenIdentity = identity
	return "viewer-token", nil
}

type streamFixture struct {
	db    *gorm.DB
	svc   *StreamService
	media *fakeMedia
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.Stream{}))

	media := &fakeMedia{
		ingress: &livekit.Ingress{
			IngressID: "IN_x",
			URL:       "rtmp://ingest.example.com/live",
			StreamKey: "sk_123",
		},
	}
	svc := NewStreamService(
		repository.NewStreamRepository(db),
		repository.NewUserRepository(db),
		media,
	)
	return &streamFixture{db: db, svc: svc, media: media}
}

func (f *streamFixture) addUser(t *testing.T, username string) *models.User {
	t.Helper()
	u := &models.User{Username: username, Email: username + "@example.com", Password: "x"}
	require.NoError(t, f.db.Create(u).Error)
	return u
}

func TestStreamService_BecomeStreamer(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()

	u := f.addUser(t, "maria")

	onboarding, err := f.svc.BecomeStreamer(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, "Stream de maria", onboarding.Stream.Title)
	assert.Equal(t, "rtmp://ingest.example.com/live", onboarding.ServerURL)
	assert.Equal(t, "sk_123", onboarding.StreamKey)

	var saved models.User
	require.NoError(t, f.db.First(&saved, u.ID).Error)
	assert.True(t, saved.IsStreamer)
	assert.Equal(t, "sk_123", saved.StreamKey)
}

func TestStreamService_BecomeStreamer_Idempotent(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()

	u := f.addUser(t, "maria")

	first, err := f.svc.BecomeStreamer(ctx, u.ID)
	require.NoError(t, err)

	second, err := f.svc.BecomeStreamer(ctx, u.ID)
	require.NoError(t, err)

	assert.Equal(t, first.Stream.ID, second.Stream.ID)
	assert.Equal(t, 1, f.media.ingressCalls, "no second ingress for an existing streamer")
}

func TestStreamService_BecomeStreamer_IngressFailureLeavesUserUntouched(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()

	u := f.addUser(t, "maria")
	f.media.ingressErr = errors.New("media server unavailable")

	_, err := f.svc.BecomeStreamer(ctx, u.ID)
	require.Error(t, err)

	var saved models.User
	require.NoError(t, f.db.First(&saved, u.ID).Error)
	assert.False(t, saved.IsStreamer)

	var count int64
	require.NoError(t, f.db.Model(&models.Stream{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestStreamService_UpdateTitle(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()

	owner := f.addUser(t, "maria")
	other := f.addUser(t, "pepe")
	onboarding, err := f.svc.BecomeStreamer(ctx, owner.ID)
	require.NoError(t, err)
	streamID := onboarding.Stream.ID

	require.NoError(t, f.svc.UpdateTitle(ctx, streamID, owner.ID, "valorant ranked"))

	var saved models.Stream
	require.NoError(t, f.db.First(&saved, streamID).Error)
	assert.Equal(t, "valorant ranked", saved.Title)

	assert.Error(t, f.svc.UpdateTitle(ctx, streamID, other.ID, "hackeado"))
	assert.Error(t, f.svc.UpdateTitle(ctx, streamID, owner.ID, "  "))
}

func TestStreamService_ViewerToken(t *testing.T) {
	f := newStreamFixture(t)
	ctx := context.Background()

	host := f.addUser(t, "maria")
	viewer := f.addUser(t, "pepe")

	// Host is not a streamer yet
	_, err := f.svc.ViewerToken(ctx, viewer.ID, host.ID)
	require.Error(t, err)

	_, err = f.svc.BecomeStreamer(ctx, host.ID)
	require.NoError(t, err)

	token, err := f.svc.ViewerToken(ctx, viewer.ID, host.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewer-token", token)

	// Room is the host's ID, identity is the viewer's
	assert.NotEqual(t, f.media.tokenRoom, f.media.tokenIdentity)
}
