package models

import "time"

// ArticleLike is one user's like on one article. Presence toggles: a second
// like request deletes the row again. At most one row per (user, article).
type ArticleLike struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`

	UserID    uint `json:"user_id" gorm:"uniqueIndex:uix_like_user_article;not null"`
	ArticleID uint `json:"article_id" gorm:"uniqueIndex:uix_like_user_article;index;not null"`
}

// TableName sets the explicit table name.
func (ArticleLike) TableName() string {
	return "article_likes"
}
