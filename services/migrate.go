package services

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/acturus1/Web-project-yandex/models"
)

// ReconcileLegacyAuthors backfills Article.AuthorID for rows imported from
// the old schema, which associated articles to users only by a denormalized
// handle string. Handles are unique, so a match is unambiguous; articles
// whose handle matches no account are logged and left untouched rather than
// guessed at. Safe to run on every startup.
func ReconcileLegacyAuthors(db *gorm.DB, logger *zap.Logger) error {
	var orphans []models.Article
	if err := db.Where("author_id = 0 AND author_name <> ''").Find(&orphans).Error; err != nil {
		return fmt.Errorf("reconcile authors: %w", err)
	}
	if len(orphans) == 0 {
		return nil
	}

	reconciled := 0
	for _, article := range orphans {
		var user models.User
		err := db.Where("username = ?", article.AuthorName).First(&user).Error
		if err != nil {
			logger.Warn("Legacy article has no matching account",
				zap.Uint("article_id", article.ID),
				zap.String("author", article.AuthorName))
			continue
		}
		if err := db.Model(&models.Article{}).Where("id = ?", article.ID).
			Update("author_id", user.ID).Error; err != nil {
			return fmt.Errorf("reconcile authors: %w", err)
		}
		reconciled++
	}
	logger.Info("Legacy author reconciliation finished",
		zap.Int("candidates", len(orphans)),
		zap.Int("reconciled", reconciled))
	return nil
}
