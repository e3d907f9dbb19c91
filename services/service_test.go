package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/acturus1/Web-project-yandex/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "blog-test.db")), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	if err := db.AutoMigrate(
		&models.User{},
		&models.Article{},
		&models.Comment{},
		&models.ArticleView{},
		&models.ArticleLike{},
		&models.Session{},
	); err != nil {
		t.Fatalf("migrate test db: %v", err)
	}
	return db
}

func seedUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()
	user := models.User{Username: username, PasswordHash: "x", IsAdmin: admin}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return &user
}

func seedArticle(t *testing.T, db *gorm.DB, author *models.User, name, tag string, restricted bool) *models.Article {
	t.Helper()
	article := models.Article{
		AuthorID:       author.ID,
		AuthorName:     author.Username,
		Name:           name,
		Tag:            tag,
		RegisteredOnly: restricted,
		ContentKey:     "articles/test/" + name + "/main.md",
	}
	if err := db.Create(&article).Error; err != nil {
		t.Fatalf("seed article %s: %v", name, err)
	}
	return &article
}

func viewerFor(user *models.User) Viewer {
	return Viewer{
		Authenticated: true,
		UserID:        user.ID,
		Username:      user.Username,
		IsAdmin:       user.IsAdmin,
	}
}

func reloadArticle(t *testing.T, db *gorm.DB, id uint) *models.Article {
	t.Helper()
	var article models.Article
	if err := db.First(&article, id).Error; err != nil {
		t.Fatalf("reload article %d: %v", id, err)
	}
	return &article
}

// setCreatedAt pins a row's timestamp so ordering tests are deterministic.
func setCreatedAt(t *testing.T, db *gorm.DB, model interface{}, id uint, at time.Time) {
	t.Helper()
	if err := db.Model(model).Where("id = ?", id).UpdateColumn("created_at", at).Error; err != nil {
		t.Fatalf("set created_at: %v", err)
	}
}

var testCtx = context.Background()

func testLogger() *zap.Logger { return zap.NewNop() }
