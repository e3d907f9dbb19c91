package models

import "time"

// User is a registered account. Articles reference it by AuthorID; the
// denormalized AuthorName copy on Article is kept in sync on rename.
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username     string `json:"username" gorm:"uniqueIndex;size:80;not null"`
	PasswordHash string `json:"-" gorm:"size:120;not null"`
	IsAdmin      bool   `json:"is_admin" gorm:"default:false"`
}

// TableName sets the explicit table name.
func (User) TableName() string {
	return "users"
}
