package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserKeyPrefix         = "user:%d"
	StreamKeyPrefix       = "stream:%d"
	ChatSettingsKeyPrefix = "stream:%d:chat_settings"
	ActiveRoomsKey        = "catalog:active_rooms"
	CategoriesKey         = "catalog:categories"
)

const (
	UserTTL = 5 * time.Minute
	// Short TTLs: the catalog must reflect liveness changes quickly.
	ActiveRoomsTTL  = 10 * time.Second
	CategoriesTTL   = 30 * time.Second
	ChatSettingsTTL = 2 * time.Minute
)

func UserKey(userID uint) string {
	return fmt.Sprintf(UserKeyPrefix, userID)
}

func StreamKey(streamID uint) string {
	return fmt.Sprintf(StreamKeyPrefix, streamID)
}

func ChatSettingsKey(streamID uint) string {
	return fmt.Sprintf(ChatSettingsKeyPrefix, streamID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserKey(userID))
}

func InvalidateStream(ctx context.Context, streamID uint) {
	Invalidate(ctx, StreamKey(streamID))
	Invalidate(ctx, ChatSettingsKey(streamID))
}

func InvalidateCatalog(ctx context.Context) {
	Invalidate(ctx, ActiveRoomsKey)
	Invalidate(ctx, CategoriesKey)
}
