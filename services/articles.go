package services

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acturus1/Web-project-yandex/models"
)

// AllowedTags is the fixed set of article tags.
var AllowedTags = []string{"Python", "Flask", "SQLite", "Web Development", "Tutorial"}

func validTag(tag string) bool {
	for _, t := range AllowedTags {
		if t == tag {
			return true
		}
	}
	return false
}

// Sort keys accepted by List.
const (
	SortNewest = "newest"
	SortOldest = "oldest"
	SortViews  = "views"
	SortLikes  = "likes"
	SortTitle  = "title"
)

// ArticleService provides CRUD and listing over article metadata.
type ArticleService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewArticleService creates a new ArticleService.
func NewArticleService(db *gorm.DB, logger *zap.Logger) *ArticleService {
	return &ArticleService{DB: db, Logger: logger}
}

// ArticleUpdate is a partial update. Nil fields are left unchanged. The
// author is immutable and therefore not represented here.
type ArticleUpdate struct {
	Name           *string
	Tag            *string
	RegisteredOnly *bool
	ContentKey     *string
}

// ArticleFilter narrows a listing. Zero values mean no filtering on that
// dimension; IncludeRestricted must be false for anonymous callers.
type ArticleFilter struct {
	Tag               string
	AuthorID          uint
	IncludeRestricted bool
}

// TagCount reports how many articles carry a tag.
type TagCount struct {
	Name          string `json:"name"`
	ArticlesCount int64  `json:"articles_count"`
}

// Create validates the tag and inserts a new article with zeroed counters.
func (s *ArticleService) Create(ctx context.Context, authorID uint, authorName, name, tag string, registeredOnly bool, contentKey string) (*models.Article, error) {
	if !validTag(tag) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}
	article := models.Article{
		AuthorID:       authorID,
		AuthorName:     authorName,
		Name:           name,
		Tag:            tag,
		RegisteredOnly: registeredOnly,
		ContentKey:     contentKey,
	}
	if err := s.DB.WithContext(ctx).Create(&article).Error; err != nil {
		return nil, fmt.Errorf("create article: %w", err)
	}
	s.Logger.Info("Article created", zap.Uint("id", article.ID), zap.String("title", article.Name))
	return &article, nil
}

// Get returns one article by id.
func (s *ArticleService) Get(ctx context.Context, id uint) (*models.Article, error) {
	var article models.Article
	if err := s.DB.WithContext(ctx).First(&article, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get article: %w", err)
	}
	return &article, nil
}

// Update applies a partial update, re-validating the tag if it changes.
func (s *ArticleService) Update(ctx context.Context, id uint, upd ArticleUpdate) (*models.Article, error) {
	article, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Tag != nil {
		if !validTag(*upd.Tag) {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTag, *upd.Tag)
		}
		updates["tag"] = *upd.Tag
	}
	if upd.RegisteredOnly != nil {
		updates["registered_only"] = *upd.RegisteredOnly
	}
	if upd.ContentKey != nil {
		updates["content_key"] = *upd.ContentKey
	}
	if len(updates) == 0 {
		return article, nil
	}

	if err := s.DB.WithContext(ctx).Model(article).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("update article: %w", err)
	}
	return article, nil
}

// Delete removes the article together with its comments, view records and
// like records in one transaction. The externally stored body is the
// caller's responsibility.
func (s *ArticleService) Delete(ctx context.Context, id uint) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.First(&article, id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.ArticleView{}).Error; err != nil {
			return err
		}
		if err := tx.Where("article_id = ?", id).Delete(&models.ArticleLike{}).Error; err != nil {
			return err
		}
		return tx.Delete(&article).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete article: %w", err)
	}
	s.Logger.Info("Article deleted", zap.Uint("id", id))
	return nil
}

// List returns articles matching the filter in the given order. Every sort
// key gets an ascending id tiebreak so the order is deterministic.
func (s *ArticleService) List(ctx context.Context, filter ArticleFilter, sortBy string) ([]models.Article, error) {
	query := s.DB.WithContext(ctx).Model(&models.Article{})

	if !filter.IncludeRestricted {
		query = query.Where("registered_only = ?", false)
	}
	if filter.Tag != "" {
		query = query.Where("tag = ?", filter.Tag)
	}
	if filter.AuthorID != 0 {
		query = query.Where("author_id = ?", filter.AuthorID)
	}

	switch sortBy {
	case SortViews:
		query = query.Order("views DESC, id ASC")
	case SortLikes:
		query = query.Order("likes_count DESC, id ASC")
	case SortTitle:
		query = query.Order("name ASC, id ASC")
	case SortOldest:
		query = query.Order("created_at ASC, id ASC")
	default: // newest first
		query = query.Order("created_at DESC, id ASC")
	}

	var articles []models.Article
	if err := query.Find(&articles).Error; err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	return articles, nil
}

// CountComments returns the number of comments on an article.
func (s *ArticleService) CountComments(ctx context.Context, id uint) (int64, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Comment{}).Where("article_id = ?", id).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return count, nil
}

// TagCounts returns every allowed tag with its article count, most popular
// first. Tags without articles still appear with a zero count.
func (s *ArticleService) TagCounts(ctx context.Context) ([]TagCount, error) {
	var rows []TagCount
	err := s.DB.WithContext(ctx).Model(&models.Article{}).
		Select("tag AS name, COUNT(*) AS articles_count").
		Group("tag").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("tag counts: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.Name] = r.ArticlesCount
	}
	result := make([]TagCount, 0, len(AllowedTags))
	for _, tag := range AllowedTags {
		result = append(result, TagCount{Name: tag, ArticlesCount: counts[tag]})
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].ArticlesCount > result[j].ArticlesCount
	})
	return result, nil
}
