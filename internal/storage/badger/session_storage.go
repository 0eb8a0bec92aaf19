package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// SessionStorage implements the SessionStorage interface for Badger
type SessionStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewSessionStorage creates a new SessionStorage instance
func NewSessionStorage(db *BadgerDB, logger arbor.ILogger) interfaces.SessionStorage {
	return &SessionStorage{
		db:     db,
		logger: logger,
	}
}

// SaveSession persists a session keyed by its token
func (s *SessionStorage) SaveSession(ctx context.Context, session *models.Session) error {
	if session.CreatedAt.IsZero() {
		session.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(session.Token, session); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// GetSession retrieves a session by token
func (s *SessionStorage) GetSession(ctx context.Context, token string) (*models.Session, error) {
	var session models.Session
	err := s.db.Store().Get(token, &session)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// DeleteSession removes a session by token
func (s *SessionStorage) DeleteSession(ctx context.Context, token string) error {
	err := s.db.Store().Delete(token, &models.Session{})
	if err == badgerhold.ErrNotFound {
		return interfaces.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpiredSessions removes all sessions past their expiry.
// Returns the number removed.
func (s *SessionStorage) DeleteExpiredSessions(ctx context.Context) (int, error) {
	var expired []models.Session
	err := s.db.Store().Find(&expired, badgerhold.Where("ExpiresAt").Lt(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to find expired sessions: %w", err)
	}

	deleted := 0
	for i := range expired {
		if err := s.db.Store().Delete(expired[i].Token, &models.Session{}); err != nil {
			s.logger.Warn().Str("token", expired[i].Token).Err(err).Msg("Failed to delete expired session")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.logger.Debug().Int("count", deleted).Msg("Expired sessions removed")
	}
	return deleted, nil
}
