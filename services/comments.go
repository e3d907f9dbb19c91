package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acturus1/Web-project-yandex/models"
)

// CommentService appends and removes comments on articles.
type CommentService struct {
	DB     *gorm.DB
	Logger *zap.Logger
}

// NewCommentService creates a new CommentService.
func NewCommentService(db *gorm.DB, logger *zap.Logger) *CommentService {
	return &CommentService{DB: db, Logger: logger}
}

// Add attaches a comment to the article. Blank text is rejected.
func (s *CommentService) Add(ctx context.Context, articleID uint, user Viewer, text string) (*models.Comment, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyComment
	}
	var article models.Article
	if err := s.DB.WithContext(ctx).First(&article, articleID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("add comment: %w", err)
	}

	comment := models.Comment{
		Text:      text,
		UserID:    user.UserID,
		ArticleID: articleID,
		Username:  user.Username,
	}
	if err := s.DB.WithContext(ctx).Create(&comment).Error; err != nil {
		return nil, fmt.Errorf("add comment: %w", err)
	}
	return &comment, nil
}

// Remove deletes a comment. Only its author or an administrator may.
func (s *CommentService) Remove(ctx context.Context, commentID uint, requester Viewer) error {
	var comment models.Comment
	if err := s.DB.WithContext(ctx).First(&comment, commentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("remove comment: %w", err)
	}
	if requester.UserID != comment.UserID && !requester.IsAdmin {
		return ErrForbidden
	}
	if err := s.DB.WithContext(ctx).Delete(&comment).Error; err != nil {
		return fmt.Errorf("remove comment: %w", err)
	}
	s.Logger.Info("Comment removed", zap.Uint("id", commentID), zap.Uint("by", requester.UserID))
	return nil
}

// ListForArticle returns the article's comments newest first, with a
// descending id tiebreak for equal timestamps.
func (s *CommentService) ListForArticle(ctx context.Context, articleID uint) ([]models.Comment, error) {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	if count == 0 {
		return nil, ErrNotFound
	}

	var comments []models.Comment
	err := s.DB.WithContext(ctx).
		Where("article_id = ?", articleID).
		Order("created_at DESC, id DESC").
		Find(&comments).Error
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return comments, nil
}
