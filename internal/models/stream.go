// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// Stream represents a creator's channel. Every streamer has exactly one.
//
// IsLive is a stored hint only; authoritative liveness is membership in the
// media service's active-room directory, which the catalog layer checks on
// every request.
type Stream struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	UserID       uint      `gorm:"not null;uniqueIndex" json:"user_id"`
	User         User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title        string    `gorm:"size:255;not null" json:"title"`
	ThumbnailURL string    `gorm:"size:500" json:"thumbnail_url"`
	IsLive       bool      `gorm:"default:false;index" json:"is_live"`
	AvgViewers   float64   `gorm:"default:0" json:"avg_viewers"`
	PeakViewers  int       `gorm:"default:0" json:"peak_viewers"`
	TotalHours   float64   `gorm:"default:0" json:"total_hours"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `gorm:"index" json:"updated_at"`
}

// LiveStream is the denormalized feed entry returned by the catalog.
type LiveStream struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	ThumbnailURL string     `json:"thumbnail_url"`
	IsLive       bool       `json:"is_live"`
	ViewerCount  int        `json:"viewer_count"`
	User         StreamUser `json:"user"`
	UpdatedAt    time.Time  `json:"-"`
}

// StreamUser is the owner snapshot embedded in feed entries.
type StreamUser struct {
	ID        uint   `json:"id"`
	Username  string `json:"username"`
	AvatarURL string `json:"avatar_url"`
}

// Category is a derived category tally entry.
type Category struct {
	Name         string `json:"name"`
	ThumbnailURL string `json:"thumbnail_url"`
	ViewerCount  int    `json:"viewer_count"`
	StreamCount  int    `json:"stream_count"`
}
