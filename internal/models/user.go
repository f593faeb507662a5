// Package models contains data structures for the application's domain models.
package models

import (
	"time"
)

// User represents a viewer or creator identity in Solcast.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"size:20;unique;not null" json:"username"`
	Email          string    `gorm:"unique;not null" json:"email"`
	Password       string    `gorm:"not null" json:"-"`
	AvatarURL      string    `gorm:"size:500" json:"avatar_url"`
	Bio            string    `gorm:"size:300" json:"bio"`
	IsStreamer     bool      `gorm:"default:false;index" json:"is_streamer"`
	IsVerified     bool      `gorm:"default:false" json:"is_verified"`
	IsPrime        bool      `gorm:"default:false" json:"is_prime"`
	ShowSponsors   bool      `gorm:"default:true" json:"show_sponsors"`
	SolcitoBalance int64     `gorm:"default:0;check:solcito_balance >= 0" json:"solcito_balance"`
	StreamKey      string    `gorm:"size:255" json:"-"`
	ServerURL      string    `gorm:"size:500" json:"-"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
