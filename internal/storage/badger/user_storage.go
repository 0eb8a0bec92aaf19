package badger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// UserStorage implements the UserStorage interface for Badger
type UserStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewUserStorage creates a new UserStorage instance
func NewUserStorage(db *BadgerDB, logger arbor.ILogger) interfaces.UserStorage {
	return &UserStorage{
		db:     db,
		logger: logger,
	}
}

// normalizeEmail lowercases the email so lookups are case-insensitive
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SaveUser inserts or updates a user record keyed by email
func (s *UserStorage) SaveUser(ctx context.Context, user *models.User) error {
	user.Email = normalizeEmail(user.Email)
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(user.Email, user); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Debug().Str("email", user.Email).Msg("User saved")
	return nil
}

// GetUser retrieves a user by email
func (s *UserStorage) GetUser(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.Store().Get(normalizeEmail(email), &user)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}
