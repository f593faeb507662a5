// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// ChatMessage is a single message in a stream's chat.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	StreamID  uint      `gorm:"not null;index" json:"stream_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	User      User      `gorm:"foreignKey:UserID" json:"-"`
	Username  string    `gorm:"size:20;not null" json:"username"`
	AvatarURL string    `gorm:"size:500" json:"avatar_url"`
	Text      string    `gorm:"size:500;not null" json:"message"`
	Solcitos  int64     `gorm:"default:0" json:"solcitos,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ChatMessageView is a ChatMessage with role flags resolved at read time.
// The flags are never persisted; they reflect the sender's current standing.
type ChatMessageView struct {
	ChatMessage
	IsStreamer bool `json:"is_streamer"`
	IsPrime    bool `json:"is_prime"`
}

// ChatSettings holds the per-stream chat configuration. One row per stream,
// mutated only by the stream owner.
//
// Enabled carries no gorm default on purpose: with one, GORM omits the
// zero value on INSERT and the column default would silently re-enable a
// chat saved as disabled. Defaults live in DefaultChatSettings instead.
type ChatSettings struct {
	ID              uint      `gorm:"primaryKey" json:"-"`
	StreamID        uint      `gorm:"not null;uniqueIndex" json:"-"`
	Enabled         bool      `gorm:"not null" json:"is_chat_enabled"`
	FollowersOnly   bool      `gorm:"default:false" json:"is_chat_followers_only"`
	SubscribersOnly bool      `gorm:"default:false" json:"is_chat_subscribers_only"`
	SlowModeSeconds int       `gorm:"default:0" json:"slow_mode_seconds"`
	UpdatedAt       time.Time `json:"-"`
}

// DefaultChatSettings returns the settings applied to a stream with no row yet.
func DefaultChatSettings(streamID uint) *ChatSettings {
	return &ChatSettings{StreamID: streamID, Enabled: true}
}
