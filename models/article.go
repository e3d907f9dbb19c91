package models

import "time"

// Article is the metadata record of a published text. The body itself lives
// in object storage under ContentKey; the database only holds the reference.
// Views and LikesCount are denormalized counters backed by the ArticleView
// and ArticleLike record sets.
type Article struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	AuthorID uint `json:"author_id" gorm:"index"`
	// Display copy of the author handle. Rows imported from the legacy
	// schema carry only this; ReconcileLegacyAuthors backfills AuthorID.
	AuthorName string `json:"author" gorm:"size:80;not null"`

	Name           string `json:"title" gorm:"size:120;not null"`
	Tag            string `json:"tag" gorm:"size:50;index;not null"`
	RegisteredOnly bool   `json:"registered_only" gorm:"not null;default:false"`
	ContentKey     string `json:"-" gorm:"size:200;not null"`

	Views      int `json:"views" gorm:"not null;default:0"`
	LikesCount int `json:"likes" gorm:"not null;default:0"`
}

// TableName sets the explicit table name.
func (Article) TableName() string {
	return "articles"
}
