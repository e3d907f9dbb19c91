package services

import (
	"errors"
	"testing"
	"time"

	"github.com/acturus1/Web-project-yandex/models"
)

func TestCreateValidatesTag(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())
	author := seedUser(t, db, "alice", false)

	if _, err := svc.Create(testCtx, author.ID, author.Username, "My Post", "Haskell", false, "k"); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("Create with unknown tag: err = %v, want ErrInvalidTag", err)
	}

	article, err := svc.Create(testCtx, author.ID, author.Username, "My Post", "Tutorial", false, "k")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if article.Views != 0 || article.LikesCount != 0 {
		t.Errorf("new article counters = %d/%d, want 0/0", article.Views, article.LikesCount)
	}
	if article.CreatedAt.IsZero() {
		t.Error("new article has zero creation timestamp")
	}
}

func TestGetNotFound(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())

	if _, err := svc.Get(testCtx, 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(42): err = %v, want ErrNotFound", err)
	}
}

func TestUpdatePartial(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())
	author := seedUser(t, db, "alice", false)
	article := seedArticle(t, db, author, "Old Name", "Tutorial", false)

	newName := "New Name"
	if _, err := svc.Update(testCtx, article.ID, ArticleUpdate{Name: &newName}); err != nil {
		t.Fatalf("Update name: %v", err)
	}
	got := reloadArticle(t, db, article.ID)
	if got.Name != newName {
		t.Errorf("Name = %q, want %q", got.Name, newName)
	}
	if got.Tag != "Tutorial" {
		t.Errorf("Tag changed by unrelated update: %q", got.Tag)
	}
	if got.AuthorID != author.ID || got.AuthorName != "alice" {
		t.Errorf("author changed by update: %d/%q", got.AuthorID, got.AuthorName)
	}

	badTag := "NotATag"
	if _, err := svc.Update(testCtx, article.ID, ArticleUpdate{Tag: &badTag}); !errors.Is(err, ErrInvalidTag) {
		t.Fatalf("Update with bad tag: err = %v, want ErrInvalidTag", err)
	}

	restricted := true
	if _, err := svc.Update(testCtx, article.ID, ArticleUpdate{RegisteredOnly: &restricted}); err != nil {
		t.Fatalf("Update visibility: %v", err)
	}
	if !reloadArticle(t, db, article.ID).RegisteredOnly {
		t.Error("RegisteredOnly not updated")
	}

	if _, err := svc.Update(testCtx, 42, ArticleUpdate{Name: &newName}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Update missing article: err = %v, want ErrNotFound", err)
	}
}

func TestDeleteCascades(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())
	author := seedUser(t, db, "alice", false)
	reader := seedUser(t, db, "bob", false)
	article := seedArticle(t, db, author, "Doomed", "Python", false)
	other := seedArticle(t, db, author, "Survivor", "Python", false)

	for _, row := range []interface{}{
		&models.Comment{Text: "hi", UserID: reader.ID, ArticleID: article.ID},
		&models.ArticleView{UserID: reader.ID, ArticleID: article.ID},
		&models.ArticleLike{UserID: reader.ID, ArticleID: article.ID},
		&models.Comment{Text: "keep", UserID: reader.ID, ArticleID: other.ID},
	} {
		if err := db.Create(row).Error; err != nil {
			t.Fatalf("seed engagement rows: %v", err)
		}
	}

	if err := svc.Delete(testCtx, article.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(testCtx, article.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get after delete: err = %v, want ErrNotFound", err)
	}

	for name, model := range map[string]interface{}{
		"comments": &models.Comment{},
		"views":    &models.ArticleView{},
		"likes":    &models.ArticleLike{},
	} {
		var count int64
		if err := db.Model(model).Where("article_id = ?", article.ID).Count(&count).Error; err != nil {
			t.Fatalf("count %s: %v", name, err)
		}
		if count != 0 {
			t.Errorf("%d %s left behind after delete", count, name)
		}
	}

	var kept int64
	db.Model(&models.Comment{}).Where("article_id = ?", other.ID).Count(&kept)
	if kept != 1 {
		t.Errorf("cascade touched another article's comments")
	}

	if err := svc.Delete(testCtx, article.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: err = %v, want ErrNotFound", err)
	}
}

func TestListSorting(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())
	author := seedUser(t, db, "alice", false)

	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	specs := []struct {
		name  string
		views int
		likes int
		age   time.Duration
	}{
		{"banana", 5, 1, 0},
		{"apple", 5, 3, time.Hour},
		{"cherry", 2, 3, 2 * time.Hour},
	}
	ids := make([]uint, len(specs))
	for i, sp := range specs {
		a := seedArticle(t, db, author, sp.name, "Tutorial", false)
		db.Model(a).UpdateColumns(map[string]interface{}{"views": sp.views, "likes_count": sp.likes})
		setCreatedAt(t, db, &models.Article{}, a.ID, base.Add(-sp.age))
		ids[i] = a.ID
	}

	byViews, err := svc.List(testCtx, ArticleFilter{IncludeRestricted: true}, SortViews)
	if err != nil {
		t.Fatalf("List views: %v", err)
	}
	for i := 1; i < len(byViews); i++ {
		if byViews[i].Views > byViews[i-1].Views {
			t.Errorf("views sort not non-increasing at %d", i)
		}
	}
	// banana and apple tie on views; ascending id breaks the tie
	if byViews[0].ID != ids[0] || byViews[1].ID != ids[1] {
		t.Errorf("views tiebreak = [%d %d], want [%d %d]", byViews[0].ID, byViews[1].ID, ids[0], ids[1])
	}

	byTitle, err := svc.List(testCtx, ArticleFilter{IncludeRestricted: true}, SortTitle)
	if err != nil {
		t.Fatalf("List title: %v", err)
	}
	for i := 1; i < len(byTitle); i++ {
		if byTitle[i].Name < byTitle[i-1].Name {
			t.Errorf("title sort not non-decreasing at %d", i)
		}
	}

	newest, err := svc.List(testCtx, ArticleFilter{IncludeRestricted: true}, SortNewest)
	if err != nil {
		t.Fatalf("List newest: %v", err)
	}
	if newest[0].Name != "banana" || newest[len(newest)-1].Name != "cherry" {
		t.Errorf("newest order wrong: got %q first, %q last", newest[0].Name, newest[len(newest)-1].Name)
	}

	oldest, err := svc.List(testCtx, ArticleFilter{IncludeRestricted: true}, SortOldest)
	if err != nil {
		t.Fatalf("List oldest: %v", err)
	}
	if oldest[0].Name != "cherry" {
		t.Errorf("oldest order wrong: got %q first", oldest[0].Name)
	}
}

func TestListFilters(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())
	alice := seedUser(t, db, "alice", false)
	bob := seedUser(t, db, "bob", false)
	seedArticle(t, db, alice, "public python", "Python", false)
	seedArticle(t, db, alice, "members only", "Python", true)
	seedArticle(t, db, bob, "flask tips", "Flask", false)

	public, err := svc.List(testCtx, ArticleFilter{}, SortNewest)
	if err != nil {
		t.Fatalf("List public: %v", err)
	}
	for _, a := range public {
		if a.RegisteredOnly {
			t.Errorf("restricted article %q leaked to anonymous listing", a.Name)
		}
	}
	if len(public) != 2 {
		t.Errorf("public listing = %d articles, want 2", len(public))
	}

	all, err := svc.List(testCtx, ArticleFilter{IncludeRestricted: true}, SortNewest)
	if err != nil {
		t.Fatalf("List all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("full listing = %d articles, want 3", len(all))
	}

	tagged, err := svc.List(testCtx, ArticleFilter{Tag: "Flask", IncludeRestricted: true}, SortNewest)
	if err != nil {
		t.Fatalf("List tagged: %v", err)
	}
	if len(tagged) != 1 || tagged[0].Tag != "Flask" {
		t.Errorf("tag filter returned %v", tagged)
	}

	byAuthor, err := svc.List(testCtx, ArticleFilter{AuthorID: alice.ID, IncludeRestricted: true}, SortNewest)
	if err != nil {
		t.Fatalf("List by author: %v", err)
	}
	if len(byAuthor) != 2 {
		t.Errorf("author filter = %d articles, want 2", len(byAuthor))
	}
}

func TestTagCounts(t *testing.T) {
	db := testDB(t)
	svc := NewArticleService(db, testLogger())
	author := seedUser(t, db, "alice", false)
	seedArticle(t, db, author, "a", "Tutorial", false)
	seedArticle(t, db, author, "b", "Tutorial", false)
	seedArticle(t, db, author, "c", "Python", false)

	counts, err := svc.TagCounts(testCtx)
	if err != nil {
		t.Fatalf("TagCounts: %v", err)
	}
	if len(counts) != len(AllowedTags) {
		t.Fatalf("TagCounts returned %d tags, want %d", len(counts), len(AllowedTags))
	}
	if counts[0].Name != "Tutorial" || counts[0].ArticlesCount != 2 {
		t.Errorf("most popular tag = %+v, want Tutorial with 2", counts[0])
	}
	for i := 1; i < len(counts); i++ {
		if counts[i].ArticlesCount > counts[i-1].ArticlesCount {
			t.Errorf("tag counts not non-increasing at %d", i)
		}
	}
}
