package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// PortfolioStorage implements the PortfolioStorage interface for Badger
type PortfolioStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewPortfolioStorage creates a new PortfolioStorage instance
func NewPortfolioStorage(db *BadgerDB, logger arbor.ILogger) interfaces.PortfolioStorage {
	return &PortfolioStorage{
		db:     db,
		logger: logger,
	}
}

// SavePortfolio stores a portfolio snapshot, replacing any previous
// snapshot for the same user. One working copy per user.
func (s *PortfolioStorage) SavePortfolio(ctx context.Context, portfolio *models.Portfolio) error {
	portfolio.UserEmail = normalizeEmail(portfolio.UserEmail)
	now := time.Now()

	// Replace the existing snapshot in place to keep its ID and CreatedAt
	var existing []models.Portfolio
	err := s.db.Store().Find(&existing, badgerhold.Where("UserEmail").Eq(portfolio.UserEmail).Index("UserEmail"))
	if err != nil {
		return fmt.Errorf("failed to check existing portfolio: %w", err)
	}

	if len(existing) > 0 {
		portfolio.ID = existing[0].ID
		portfolio.CreatedAt = existing[0].CreatedAt
		// Clean up any stray extra snapshots from older versions
		for i := 1; i < len(existing); i++ {
			if err := s.db.Store().Delete(existing[i].ID, &models.Portfolio{}); err != nil {
				s.logger.Warn().Str("id", existing[i].ID).Err(err).Msg("Failed to delete stale portfolio snapshot")
			}
		}
	} else {
		portfolio.ID = uuid.New().String()
		portfolio.CreatedAt = now
	}
	portfolio.UpdatedAt = now

	if err := s.db.Store().Upsert(portfolio.ID, portfolio); err != nil {
		return fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.Debug().
		Str("user", portfolio.UserEmail).
		Int("holdings", len(portfolio.Holdings)).
		Msg("Portfolio snapshot saved")
	return nil
}

// GetLatestPortfolio retrieves the current snapshot for a user
func (s *PortfolioStorage) GetLatestPortfolio(ctx context.Context, userEmail string) (*models.Portfolio, error) {
	var portfolios []models.Portfolio
	err := s.db.Store().Find(&portfolios,
		badgerhold.Where("UserEmail").Eq(normalizeEmail(userEmail)).Index("UserEmail").
			SortBy("UpdatedAt").Reverse().Limit(1))
	if err != nil {
		return nil, fmt.Errorf("failed to get portfolio: %w", err)
	}
	if len(portfolios) == 0 {
		return nil, interfaces.ErrNotFound
	}
	return &portfolios[0], nil
}
