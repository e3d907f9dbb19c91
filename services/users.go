package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/acturus1/Web-project-yandex/models"
)

// UserService handles accounts and login sessions.
type UserService struct {
	DB         *gorm.DB
	Logger     *zap.Logger
	SessionTTL time.Duration
}

// NewUserService creates a new UserService.
func NewUserService(db *gorm.DB, logger *zap.Logger, sessionTTL time.Duration) *UserService {
	return &UserService{DB: db, Logger: logger, SessionTTL: sessionTTL}
}

// UserWithCount is a user plus their article count, for the read-only API.
type UserWithCount struct {
	models.User
	ArticlesCount int64 `json:"articles_count"`
}

// Register creates an account with a bcrypt credential hash.
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	var existing models.User
	err := s.DB.WithContext(ctx).Where("username = ?", username).First(&existing).Error
	if err == nil {
		return nil, ErrConflict
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	user := models.User{Username: username, PasswordHash: string(hash)}
	if err := s.DB.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}
	s.Logger.Info("User registered", zap.String("username", username))
	return &user, nil
}

// Authenticate checks credentials and returns the account. Wrong handle and
// wrong password are indistinguishable to the caller.
func (s *UserService) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrForbidden
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrForbidden
	}
	return &user, nil
}

// CreateSession issues a new opaque session token for the user.
func (s *UserService) CreateSession(ctx context.Context, userID uint) (*models.Session, error) {
	session := models.Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		ExpiresAt: time.Now().Add(s.SessionTTL),
	}
	if err := s.DB.WithContext(ctx).Create(&session).Error; err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}
	return &session, nil
}

// ResolveSession turns a session token into a Viewer. Unknown or expired
// tokens resolve to the anonymous viewer without error.
func (s *UserService) ResolveSession(ctx context.Context, token string) (Viewer, error) {
	if token == "" {
		return Anonymous, nil
	}
	var session models.Session
	if err := s.DB.WithContext(ctx).Where("token = ?", token).First(&session).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Anonymous, nil
		}
		return Anonymous, fmt.Errorf("resolve session: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		return Anonymous, nil
	}
	var user models.User
	if err := s.DB.WithContext(ctx).First(&user, session.UserID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Anonymous, nil
		}
		return Anonymous, fmt.Errorf("resolve session: %w", err)
	}
	return Viewer{
		Authenticated: true,
		UserID:        user.ID,
		Username:      user.Username,
		IsAdmin:       user.IsAdmin,
	}, nil
}

// DeleteSession invalidates a session token. Unknown tokens are a no-op.
func (s *UserService) DeleteSession(ctx context.Context, token string) error {
	if err := s.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// GetByUsername returns one account by handle.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := s.DB.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &user, nil
}

// Rename changes a user's handle and updates the denormalized author name on
// their articles in the same transaction, so a rename never silently orphans
// the display attribution.
func (s *UserService) Rename(ctx context.Context, userID uint, newUsername string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var taken models.User
		err := tx.Where("username = ? AND id <> ?", newUsername, userID).First(&taken).Error
		if err == nil {
			return ErrConflict
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		res := tx.Model(&models.User{}).Where("id = ?", userID).Update("username", newUsername)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Model(&models.Article{}).Where("author_id = ?", userID).
			Update("author_name", newUsername).Error; err != nil {
			return err
		}
		return tx.Model(&models.Comment{}).Where("user_id = ?", userID).
			Update("username", newUsername).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
			return err
		}
		return fmt.Errorf("rename user: %w", err)
	}
	return nil
}

// ListWithCounts returns every user with their article count. sort_by
// "articles" orders by count descending; anything else by handle.
func (s *UserService) ListWithCounts(ctx context.Context, sortBy string) ([]UserWithCount, error) {
	query := s.DB.WithContext(ctx).Model(&models.User{}).
		Select("users.*, COUNT(articles.id) AS articles_count").
		Joins("LEFT JOIN articles ON articles.author_id = users.id").
		Group("users.id")
	if sortBy == "articles" {
		query = query.Order("articles_count DESC, users.username ASC")
	} else {
		query = query.Order("users.username ASC")
	}

	var users []UserWithCount
	if err := query.Find(&users).Error; err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// SetAdmin grants or revokes admin rights by handle.
func (s *UserService) SetAdmin(ctx context.Context, username string, admin bool) error {
	res := s.DB.WithContext(ctx).Model(&models.User{}).Where("username = ?", username).Update("is_admin", admin)
	if res.Error != nil {
		return fmt.Errorf("set admin: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes an account and its sessions. Articles and comments stay
// behind under the denormalized author name, matching the legacy behavior.
func (s *UserService) Delete(ctx context.Context, username string) error {
	err := s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Where("username = ?", username).First(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Session{}).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return err
		}
		return fmt.Errorf("delete user: %w", err)
	}
	s.Logger.Info("User deleted", zap.String("username", username))
	return nil
}
