package models

import "time"

// ArticleView records that an authenticated user has seen an article. The
// unique (user, article) index is what makes view counting idempotent per
// user; anonymous viewers are deduplicated with a client-side token instead
// and never get a row here.
type ArticleView struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"viewed_at"`

	UserID    uint `json:"user_id" gorm:"uniqueIndex:uix_user_article;not null"`
	ArticleID uint `json:"article_id" gorm:"uniqueIndex:uix_user_article;index;not null"`
}

// TableName sets the explicit table name.
func (ArticleView) TableName() string {
	return "article_views"
}
