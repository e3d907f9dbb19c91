package models

import "time"

// Session is a server-side login session referenced by an opaque cookie token.
type Session struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Token     string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null"`
}

// TableName sets the explicit table name.
func (Session) TableName() string {
	return "sessions"
}
