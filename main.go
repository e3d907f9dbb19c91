package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/acturus1/Web-project-yandex/config"
	"github.com/acturus1/Web-project-yandex/convert"
	"github.com/acturus1/Web-project-yandex/models"
	"github.com/acturus1/Web-project-yandex/services"
	"github.com/acturus1/Web-project-yandex/storage"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	viewsCountedCounter   prometheus.Counter
	likesToggledCounter   prometheus.Counter
	commentsPostedCounter prometheus.Counter
	articlesTotalGauge    prometheus.Gauge
	usersTotalGauge       prometheus.Gauge
)

func init() {
	viewsCountedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "article_views_counted_total",
		Help: "Total number of deduplicated article views counted.",
	})
	likesToggledCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "article_likes_toggled_total",
		Help: "Total number of like toggles processed.",
	})
	commentsPostedCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "comments_posted_total",
		Help: "Total number of comments posted.",
	})
	articlesTotalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "articles_total",
		Help: "Current number of articles.",
	})
	usersTotalGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "users_total",
		Help: "Current number of registered users.",
	})
	prometheus.MustRegister(viewsCountedCounter, likesToggledCounter, commentsPostedCounter, articlesTotalGauge, usersTotalGauge)
}

const (
	sessionCookie  = "session"
	viewerCtxKey   = "viewer"
	viewCookieFmt  = "article_view_%d"
	contentMaxSize = 1 << 20
)

func main() {
	logging, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logging.Sync()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatal("Config load error", zap.Error(err))
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		logging.Fatal("Failed to connect to database", zap.Error(err))
	}
	logging.Info("Successfully connected to database.")

	logging.Info("Running database auto-migration...")
	if err := db.AutoMigrate(
		&models.User{},
		&models.Article{},
		&models.Comment{},
		&models.ArticleView{},
		&models.ArticleLike{},
		&models.Session{},
	); err != nil {
		logging.Fatal("Auto-migration failed", zap.Error(err))
	}
	if err := services.ReconcileLegacyAuthors(db, logging); err != nil {
		logging.Fatal("Legacy author reconciliation failed", zap.Error(err))
	}

	s3Client, err := storage.NewS3Client(cfg)
	if err != nil {
		logging.Fatal("S3 client creation failed", zap.Error(err))
	}

	renderer := convert.NewRenderer()
	users := services.NewUserService(db, logging, cfg.SessionTTL())
	articles := services.NewArticleService(db, logging)
	engagement := services.NewEngagementService(db, logging, cfg.ViewTokenTTL())
	comments := services.NewCommentService(db, logging)
	access := services.AccessPolicy{}

	router := gin.Default()
	router.Use(gin.Recovery())
	router.Use(sessionMiddleware(users, logging))
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	setupAuthRoutes(router, users, cfg, logging)
	setupArticleRoutes(router, cfg, articles, engagement, comments, access, renderer, s3Client, logging)
	setupCommentRoutes(router, comments, logging)
	setupAdminRoutes(router, cfg, articles, renderer, s3Client, logging)
	setupAPIRoutes(router, articles, users, logging)

	// Keep the totals gauges fresh without touching the request path.
	statsCron := cron.New()
	statsCron.AddFunc(cfg.StatsCronSchedule, func() {
		refreshTotals(db, logging)
	})
	statsCron.Start()
	refreshTotals(db, logging)

	logging.Info("Starting server", zap.String("port", cfg.HTTPPort))
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadTimeout:       30 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil {
		logging.Fatal("Failed to run server", zap.Error(err))
	}
}

func refreshTotals(db *gorm.DB, log *zap.Logger) {
	var articleCount, userCount int64
	if err := db.Model(&models.Article{}).Count(&articleCount).Error; err != nil {
		log.Warn("Failed to count articles for metrics", zap.Error(err))
		return
	}
	if err := db.Model(&models.User{}).Count(&userCount).Error; err != nil {
		log.Warn("Failed to count users for metrics", zap.Error(err))
		return
	}
	articlesTotalGauge.Set(float64(articleCount))
	usersTotalGauge.Set(float64(userCount))
}

// sessionMiddleware resolves the session cookie into a Viewer for every
// request. Requests without a valid session proceed as anonymous.
func sessionMiddleware(users *services.UserService, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookie)
		viewer, err := users.ResolveSession(c.Request.Context(), token)
		if err != nil {
			log.Warn("Session resolution failed", zap.Error(err))
			viewer = services.Anonymous
		}
		c.Set(viewerCtxKey, viewer)
		c.Next()
	}
}

func currentViewer(c *gin.Context) services.Viewer {
	if v, ok := c.Get(viewerCtxKey); ok {
		return v.(services.Viewer)
	}
	return services.Anonymous
}

func loginRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !currentViewer(c).Authenticated {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
			return
		}
		c.Next()
	}
}

func adminRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		v := currentViewer(c)
		if !v.Authenticated || !v.IsAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin access required"})
			return
		}
		c.Next()
	}
}

// errorStatus maps the service error taxonomy onto HTTP statuses.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrInvalidTag), errors.Is(err, services.ErrEmptyComment):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(errorStatus(err), gin.H{"error": err.Error()})
}

func setupAuthRoutes(router *gin.Engine, users *services.UserService, cfg *config.Config, log *zap.Logger) {
	rg := router.Group("/auth")

	rg.POST("/register", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		user, err := users.Register(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrConflict) {
				c.JSON(http.StatusConflict, gin.H{"error": "user already exists"})
				return
			}
			log.Error("Registration failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "registration failed"})
			return
		}
		c.JSON(http.StatusCreated, user)
	})

	rg.POST("/login", func(c *gin.Context) {
		var req struct {
			Username string `json:"username" binding:"required"`
			Password string `json:"password" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
			return
		}
		user, err := users.Authenticate(c.Request.Context(), req.Username, req.Password)
		if err != nil {
			if errors.Is(err, services.ErrForbidden) {
				c.JSON(http.StatusUnauthorized, gin.H{"error": "wrong username or password"})
				return
			}
			log.Error("Login failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		session, err := users.CreateSession(c.Request.Context(), user.ID)
		if err != nil {
			log.Error("Session creation failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "login failed"})
			return
		}
		c.SetCookie(sessionCookie, session.Token, cfg.SessionTTLHours*3600, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged in", "user": user})
	})

	rg.POST("/logout", loginRequired(), func(c *gin.Context) {
		token, _ := c.Cookie(sessionCookie)
		if err := users.DeleteSession(c.Request.Context(), token); err != nil {
			log.Warn("Session deletion failed", zap.Error(err))
		}
		c.SetCookie(sessionCookie, "", -1, "/", "", false, true)
		c.JSON(http.StatusOK, gin.H{"message": "logged out"})
	})
}

var keyUnsafe = regexp.MustCompile(`[^\w\-]`)

// contentKeyFor builds the storage key for a new article body, mirroring the
// legacy articles/<timestamp>_<name>-<author>/main.md layout.
func contentKeyFor(name, author string) string {
	sanitized := keyUnsafe.ReplaceAllString(name, "_")
	return fmt.Sprintf("articles/%s_%s-%s/main.md", time.Now().UTC().Format("2006-01-02_15-04-05"), sanitized, author)
}

func htmlKey(contentKey string) string {
	return strings.TrimSuffix(contentKey, ".md") + ".html"
}

// storeBody uploads the markdown source and its rendered HTML next to each
// other under the article's content key.
func storeBody(ctx context.Context, s3Client *awss3.Client, bucket string, renderer *convert.Renderer, contentKey, text string) error {
	html, err := renderer.ToHTML([]byte(text))
	if err != nil {
		return err
	}
	if err := storage.PutObject(ctx, s3Client, bucket, contentKey, []byte(text)); err != nil {
		return err
	}
	return storage.PutObject(ctx, s3Client, bucket, htmlKey(contentKey), html)
}

func setupArticleRoutes(router *gin.Engine, cfg *config.Config, articles *services.ArticleService, engagement *services.EngagementService, comments *services.CommentService, access services.AccessPolicy, renderer *convert.Renderer, s3Client *awss3.Client, log *zap.Logger) {
	rg := router.Group("/articles")

	rg.GET("/", func(c *gin.Context) {
		viewer := currentViewer(c)
		filter := services.ArticleFilter{
			Tag:               c.Query("tag"),
			IncludeRestricted: viewer.Authenticated,
		}
		if author := c.Query("author_id"); author != "" {
			id, err := strconv.ParseUint(author, 10, 64)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid author_id"})
				return
			}
			filter.AuthorID = uint(id)
		}
		result, err := articles.List(c.Request.Context(), filter, c.DefaultQuery("sort", services.SortNewest))
		if err != nil {
			log.Error("Article listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"articles": result, "total": len(result)})
	})

	rg.POST("/", loginRequired(), func(c *gin.Context) {
		var req struct {
			Name           string `json:"name" binding:"required"`
			Tag            string `json:"tag" binding:"required"`
			Text           string `json:"text" binding:"required"`
			RegisteredOnly bool   `json:"registered_only"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name, tag and text are required"})
			return
		}
		if len(req.Text) > contentMaxSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "article text too large"})
			return
		}
		viewer := currentViewer(c)

		contentKey := contentKeyFor(req.Name, viewer.Username)
		if err := storeBody(c.Request.Context(), s3Client, cfg.ContentS3Bucket, renderer, contentKey, req.Text); err != nil {
			log.Error("Failed to store article body", zap.String("key", contentKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store article body"})
			return
		}

		article, err := articles.Create(c.Request.Context(), viewer.UserID, viewer.Username, req.Name, req.Tag, req.RegisteredOnly, contentKey)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, article)
	})

	rg.GET("/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		viewer := currentViewer(c)

		article, err := articles.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !access.CanView(article, viewer) {
			c.JSON(http.StatusForbidden, gin.H{"error": "login required to view this article"})
			return
		}

		cookieName := fmt.Sprintf(viewCookieFmt, article.ID)
		token, _ := c.Cookie(cookieName)
		counted, newToken, err := engagement.RegisterView(c.Request.Context(), article.ID, viewer, token)
		if err != nil {
			log.Error("View registration failed", zap.Uint("article_id", article.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		if counted {
			viewsCountedCounter.Inc()
			article.Views++
		}
		if newToken != nil {
			c.SetCookie(cookieName, newToken.Value, int(newToken.TTL.Seconds()), "/", "", false, true)
		}

		// Body load failures degrade to a placeholder, the metadata and
		// comments still render.
		content := "<p>failed to load article content</p>"
		if data, err := storage.GetObject(c.Request.Context(), s3Client, cfg.ContentS3Bucket, htmlKey(article.ContentKey)); err != nil {
			log.Error("Failed to read article body", zap.String("key", article.ContentKey), zap.Error(err))
		} else {
			content = string(data)
		}

		articleComments, err := comments.ListForArticle(c.Request.Context(), article.ID)
		if err != nil {
			log.Error("Comment listing failed", zap.Uint("article_id", article.ID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"article":  article,
			"content":  content,
			"comments": articleComments,
		})
	})

	rg.PUT("/:id", loginRequired(), func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		article, err := articles.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !access.CanEdit(article, currentViewer(c)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "you are not the author of this article"})
			return
		}
		updateArticle(c, cfg, articles, renderer, s3Client, article, log)
	})

	rg.POST("/:id/like", loginRequired(), func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		status, likes, err := engagement.ToggleLike(c.Request.Context(), id, currentViewer(c).UserID)
		if err != nil {
			abortWithError(c, err)
			return
		}
		likesToggledCounter.Inc()
		c.JSON(http.StatusOK, gin.H{"status": status, "likes": likes})
	})

	rg.DELETE("/:id", loginRequired(), func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		article, err := articles.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		if !access.CanDelete(article, currentViewer(c)) {
			c.JSON(http.StatusForbidden, gin.H{"error": "you must be the author to delete this article"})
			return
		}
		deleteArticle(c, cfg, articles, s3Client, article, log)
	})
}

// updateArticle applies a partial update and re-renders the body if new text
// was sent. Shared between the author and admin edit endpoints.
func updateArticle(c *gin.Context, cfg *config.Config, articles *services.ArticleService, renderer *convert.Renderer, s3Client *awss3.Client, article *models.Article, log *zap.Logger) {
	var req struct {
		Name           *string `json:"name"`
		Tag            *string `json:"tag"`
		RegisteredOnly *bool   `json:"registered_only"`
		Text           *string `json:"text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if req.Text != nil {
		if len(*req.Text) > contentMaxSize {
			c.JSON(http.StatusBadRequest, gin.H{"error": "article text too large"})
			return
		}
		if err := storeBody(c.Request.Context(), s3Client, cfg.ContentS3Bucket, renderer, article.ContentKey, *req.Text); err != nil {
			log.Error("Failed to store article body", zap.String("key", article.ContentKey), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store article body"})
			return
		}
	}

	updated, err := articles.Update(c.Request.Context(), article.ID, services.ArticleUpdate{
		Name:           req.Name,
		Tag:            req.Tag,
		RegisteredOnly: req.RegisteredOnly,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// deleteArticle removes the database records and then the stored body.
// Object cleanup is best effort, matching the legacy app.
func deleteArticle(c *gin.Context, cfg *config.Config, articles *services.ArticleService, s3Client *awss3.Client, article *models.Article, log *zap.Logger) {
	if err := articles.Delete(c.Request.Context(), article.ID); err != nil {
		abortWithError(c, err)
		return
	}
	for _, key := range []string{article.ContentKey, htmlKey(article.ContentKey)} {
		if err := storage.DeleteObject(c.Request.Context(), s3Client, cfg.ContentS3Bucket, key); err != nil {
			log.Error("Failed to delete article body", zap.String("key", key), zap.Error(err))
		}
	}
	c.JSON(http.StatusOK, gin.H{"message": "article deleted"})
}

func setupCommentRoutes(router *gin.Engine, comments *services.CommentService, log *zap.Logger) {
	router.POST("/articles/:id/comments", loginRequired(), func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		var req struct {
			Text string `json:"text"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
		comment, err := comments.Add(c.Request.Context(), id, currentViewer(c), req.Text)
		if err != nil {
			abortWithError(c, err)
			return
		}
		commentsPostedCounter.Inc()
		c.JSON(http.StatusCreated, comment)
	})

	router.DELETE("/comments/:id", loginRequired(), func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		if err := comments.Remove(c.Request.Context(), id, currentViewer(c)); err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": "comment deleted"})
	})
}

func setupAdminRoutes(router *gin.Engine, cfg *config.Config, articles *services.ArticleService, renderer *convert.Renderer, s3Client *awss3.Client, log *zap.Logger) {
	rg := router.Group("/admin", adminRequired())

	rg.GET("/articles", func(c *gin.Context) {
		result, err := articles.List(c.Request.Context(), services.ArticleFilter{IncludeRestricted: true}, c.DefaultQuery("sort", services.SortNewest))
		if err != nil {
			log.Error("Admin article listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"articles": result, "total": len(result)})
	})

	// Admins may edit content and metadata of any article, but not its
	// attribution, and may delete any article.
	rg.PUT("/articles/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		article, err := articles.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		updateArticle(c, cfg, articles, renderer, s3Client, article, log)
	})

	rg.DELETE("/articles/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		article, err := articles.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		deleteArticle(c, cfg, articles, s3Client, article, log)
	})
}

// setupAPIRoutes exposes the read-only query API consumed by the bot. The
// response shapes match the legacy /api blueprint.
func setupAPIRoutes(router *gin.Engine, articles *services.ArticleService, users *services.UserService, log *zap.Logger) {
	rg := router.Group("/api")

	rg.GET("/articles", func(c *gin.Context) {
		sortBy := c.DefaultQuery("sort_by", "date")
		key := services.SortNewest
		switch sortBy {
		case "views":
			key = services.SortViews
		case "likes":
			key = services.SortLikes
		case "title":
			key = services.SortTitle
		}
		result, err := articles.List(c.Request.Context(), services.ArticleFilter{IncludeRestricted: true}, key)
		if err != nil {
			log.Error("API article listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"articles": result,
			"sort_by":  sortBy,
			"total":    len(result),
		})
	})

	rg.GET("/articles/:id", func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		article, err := articles.Get(c.Request.Context(), id)
		if err != nil {
			abortWithError(c, err)
			return
		}
		commentCount, err := articles.CountComments(c.Request.Context(), id)
		if err != nil {
			log.Error("API comment count failed", zap.Uint("article_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"id":              article.ID,
			"title":           article.Name,
			"author":          article.AuthorName,
			"tag":             article.Tag,
			"views":           article.Views,
			"likes":           article.LikesCount,
			"created_at":      article.CreatedAt,
			"registered_only": article.RegisteredOnly,
			"comments_count":  commentCount,
		})
	})

	rg.GET("/users", func(c *gin.Context) {
		sortBy := c.DefaultQuery("sort_by", "username")
		result, err := users.ListWithCounts(c.Request.Context(), sortBy)
		if err != nil {
			log.Error("API user listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"users":   result,
			"sort_by": sortBy,
			"total":   len(result),
		})
	})

	rg.GET("/tags", func(c *gin.Context) {
		result, err := articles.TagCounts(c.Request.Context())
		if err != nil {
			log.Error("API tag listing failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
			return
		}
		c.JSON(http.StatusOK, result)
	})
}

func parseID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}
