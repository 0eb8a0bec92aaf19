// -----------------------------------------------------------------------
// Auth Service - account registration and opaque bearer sessions
// -----------------------------------------------------------------------

package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// DefaultSessionTTL is how long an issued token stays valid.
const DefaultSessionTTL = 24 * time.Hour

var (
	// ErrEmailTaken is returned when registering an existing email.
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on a failed login. The same error
	// covers unknown email and wrong password so callers cannot probe
	// which accounts exist.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrInvalidToken is returned for missing, unknown or expired tokens.
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Service manages accounts and bearer sessions. Tokens are opaque and
// resolved by storage lookup.
type Service struct {
	users      interfaces.UserStorage
	sessions   interfaces.SessionStorage
	sessionTTL time.Duration
	validate   *validator.Validate
	logger     arbor.ILogger
}

func NewService(users interfaces.UserStorage, sessions interfaces.SessionStorage, logger arbor.ILogger) *Service {
	return &Service{
		users:      users,
		sessions:   sessions,
		sessionTTL: DefaultSessionTTL,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Register creates an account with a bcrypt password hash.
func (s *Service) Register(ctx context.Context, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	if err := s.validate.Var(email, "required,email"); err != nil {
		return nil, fmt.Errorf("a valid email is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	if _, err := s.users.GetUser(ctx, email); err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to save user: %w", err)
	}

	s.logger.Info().Str("email", email).Msg("User registered")
	return user, nil
}

// Login checks the password and issues a bearer session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.Session, error) {
	email = normalizeEmail(email)

	user, err := s.users.GetUser(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now()
	session := &models.Session{
		Token:     common.NewToken(),
		Email:     user.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(s.sessionTTL),
	}
	if err := s.sessions.SaveSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to save session: %w", err)
	}

	s.logger.Info().Str("email", email).Msg("User logged in")
	return session, nil
}

// Validate resolves a bearer token to the account email. Expired
// sessions are removed on sight.
func (s *Service) Validate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrInvalidToken
	}

	session, err := s.sessions.GetSession(ctx, token)
	if err != nil {
		return "", ErrInvalidToken
	}

	if session.Expired(time.Now()) {
		if err := s.sessions.DeleteSession(ctx, token); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to delete expired session")
		}
		return "", ErrInvalidToken
	}

	return session.Email, nil
}

// Logout revokes a session token. Revoking an unknown token is a no-op.
func (s *Service) Logout(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if err := s.sessions.DeleteSession(ctx, token); err != nil && !errors.Is(err, interfaces.ErrNotFound) {
		s.logger.Warn().Err(err).Msg("Failed to delete session")
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
