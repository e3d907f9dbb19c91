package models

import "time"

// Comment is a user comment attached to an article.
type Comment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	Text      string `json:"text" gorm:"type:text;not null"`
	UserID    uint   `json:"user_id" gorm:"index;not null"`
	ArticleID uint   `json:"article_id" gorm:"index;not null"`

	// Denormalized for display, avoids a join on every listing.
	Username string `json:"username" gorm:"size:80"`
}

// TableName sets the explicit table name.
func (Comment) TableName() string {
	return "comments"
}
