package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/acturus1/Web-project-yandex/models"
)

// Like toggle results.
const (
	StatusLiked   = "liked"
	StatusUnliked = "unliked"
)

// ViewToken is handed to anonymous viewers after a counted view. The caller
// persists it client-side (cookie scoped to one article); presenting it again
// within the validity window suppresses further counting from that client.
type ViewToken struct {
	Value string
	TTL   time.Duration
}

// EngagementService keeps the denormalized view and like counters on
// articles consistent with the underlying record sets. Every mutation that
// touches both a record set and a counter runs in a single transaction, so
// the counter never drifts from the records it summarizes.
type EngagementService struct {
	DB           *gorm.DB
	Logger       *zap.Logger
	ViewTokenTTL time.Duration
}

// NewEngagementService creates a new EngagementService.
func NewEngagementService(db *gorm.DB, logger *zap.Logger, viewTokenTTL time.Duration) *EngagementService {
	return &EngagementService{DB: db, Logger: logger, ViewTokenTTL: viewTokenTTL}
}

// RegisterView counts a view of the article once per viewer identity.
//
// Authenticated viewers are deduplicated with an ArticleView row guarded by
// the unique (user, article) index: the insert uses ON CONFLICT DO NOTHING
// and the counter increments only when the row was actually inserted, inside
// the same transaction, so concurrent duplicate requests from the same user
// never double count.
//
// Anonymous viewers presenting a previously issued token for this article are
// not counted. Otherwise the counter increments and a fresh token is returned
// with a validity hint for the caller to persist. Anonymous counts are only
// deduplicated within that window and from the same client; total views are a
// documented approximation, not a unique-visitor count.
func (s *EngagementService) RegisterView(ctx context.Context, articleID uint, viewer Viewer, token string) (bool, *ViewToken, error) {
	if err := s.articleExists(ctx, articleID); err != nil {
		return false, nil, err
	}

	if viewer.Authenticated {
		counted := false
		err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.ArticleView{UserID: viewer.UserID, ArticleID: articleID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return nil // already seen, no counter mutation
			}
			counted = true
			return tx.Model(&models.Article{}).Where("id = ?", articleID).
				UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
		})
		if err != nil {
			return false, nil, fmt.Errorf("register view: %w", err)
		}
		return counted, nil, nil
	}

	if token != "" {
		return false, nil, nil
	}
	err := s.DB.WithContext(ctx).Model(&models.Article{}).Where("id = ?", articleID).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
	if err != nil {
		return false, nil, fmt.Errorf("register view: %w", err)
	}
	return true, &ViewToken{Value: uuid.NewString(), TTL: s.ViewTokenTTL}, nil
}

// ToggleLike flips the like state of (user, article) and adjusts the counter
// in the same transaction. Two successive calls return opposite states. The
// returned count is the value after the toggle.
func (s *EngagementService) ToggleLike(ctx context.Context, articleID uint, userID uint) (string, int, error) {
	var (
		status string
		likes  int
	)
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var article models.Article
		if err := tx.First(&article, articleID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		var like models.ArticleLike
		err := tx.Where("user_id = ? AND article_id = ?", userID, articleID).First(&like).Error
		switch {
		case err == nil:
			if err := tx.Delete(&like).Error; err != nil {
				return err
			}
			// The legacy app decremented unconditionally; rows drifted
			// negative under races. Clamp so drifted rows converge to zero.
			if err := tx.Model(&models.Article{}).Where("id = ?", articleID).
				UpdateColumn("likes_count", gorm.Expr("CASE WHEN likes_count > 0 THEN likes_count - 1 ELSE 0 END")).Error; err != nil {
				return err
			}
			status = StatusUnliked
		case errors.Is(err, gorm.ErrRecordNotFound):
			res := tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&models.ArticleLike{UserID: userID, ArticleID: articleID})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				// Lost a race against a concurrent like from the same user.
				return ErrConflict
			}
			if err := tx.Model(&models.Article{}).Where("id = ?", articleID).
				UpdateColumn("likes_count", gorm.Expr("likes_count + ?", 1)).Error; err != nil {
				return err
			}
			status = StatusLiked
		default:
			return err
		}

		return tx.Model(&models.Article{}).Select("likes_count").Where("id = ?", articleID).Scan(&likes).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return "", 0, err
		}
		return "", 0, fmt.Errorf("toggle like: %w", err)
	}
	s.Logger.Debug("Like toggled",
		zap.Uint("article_id", articleID),
		zap.Uint("user_id", userID),
		zap.String("status", status))
	return status, likes, nil
}

func (s *EngagementService) articleExists(ctx context.Context, articleID uint) error {
	var count int64
	if err := s.DB.WithContext(ctx).Model(&models.Article{}).Where("id = ?", articleID).Count(&count).Error; err != nil {
		return fmt.Errorf("check article: %w", err)
	}
	if count == 0 {
		return ErrNotFound
	}
	return nil
}
