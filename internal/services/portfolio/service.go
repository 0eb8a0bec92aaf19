// -----------------------------------------------------------------------
// Portfolio Service - snapshot persistence and live price refresh
// -----------------------------------------------------------------------

package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// DemoUserEmail is the account a saved portfolio is linked to when no
// user has registered yet. Single-user MVP behavior.
const (
	DemoUserEmail    = "demo@folio.local"
	demoUserPassword = "demo1234"
)

// PriceEntry is one symbol's polling result.
type PriceEntry struct {
	CurrentPrice decimal.Decimal `json:"current_price"`
	ChangePct    float64         `json:"change_percent"`
}

// Service owns portfolio snapshots: saving, loading with a live price
// refresh, and lightweight price polling.
type Service struct {
	portfolios interfaces.PortfolioStorage
	users      interfaces.UserStorage
	gateway    interfaces.MarketGateway
	validate   *validator.Validate
	logger     arbor.ILogger
}

func NewService(portfolios interfaces.PortfolioStorage, users interfaces.UserStorage, gateway interfaces.MarketGateway, logger arbor.ILogger) *Service {
	return &Service{
		portfolios: portfolios,
		users:      users,
		gateway:    gateway,
		validate:   validator.New(),
		logger:     logger,
	}
}

// Save stores a portfolio snapshot for the user, replacing any previous
// snapshot. An empty userEmail links the snapshot to the demo account,
// creating it first if needed.
func (s *Service) Save(ctx context.Context, userEmail string, holdings []models.Holding) (*models.Portfolio, error) {
	if len(holdings) == 0 {
		return nil, fmt.Errorf("portfolio has no holdings")
	}

	for i := range holdings {
		if err := s.validate.Struct(&holdings[i]); err != nil {
			return nil, fmt.Errorf("invalid holding %q: %w", holdings[i].Symbol, err)
		}
	}

	if userEmail == "" {
		email, err := s.ensureDemoUser(ctx)
		if err != nil {
			return nil, err
		}
		userEmail = email
	}

	portfolio := &models.Portfolio{
		UserEmail: userEmail,
		Holdings:  holdings,
	}

	if err := s.portfolios.SavePortfolio(ctx, portfolio); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.Info().
		Str("user", userEmail).
		Int("holdings", len(holdings)).
		Str("total_value", portfolio.TotalValue().StringFixed(2)).
		Msg("Portfolio saved")

	return portfolio, nil
}

// GetLatest loads the user's current snapshot and refreshes cached prices
// from the market gateway. Fetched prices are written back to storage so
// the snapshot stays current; symbols the gateway could not price keep
// their stored price.
func (s *Service) GetLatest(ctx context.Context, userEmail string) (*models.Portfolio, error) {
	portfolio, err := s.portfolios.GetLatestPortfolio(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	quotes := s.gateway.Quotes(ctx, portfolio.Symbols())

	updated := 0
	for i := range portfolio.Holdings {
		quote := quotes[portfolio.Holdings[i].Symbol]
		if quote == nil || quote.Price <= 0 {
			continue
		}
		portfolio.Holdings[i].CurrentPrice = decimal.NewFromFloat(quote.Price)
		updated++
	}

	if updated > 0 {
		if err := s.portfolios.SavePortfolio(ctx, portfolio); err != nil {
			// Stale cached prices are tolerable; the response still
			// carries the fresh ones.
			s.logger.Warn().Err(err).Str("user", userEmail).Msg("Failed to persist refreshed prices")
		}
	}

	return portfolio, nil
}

// RealtimePrices returns current prices with change percent for every
// holding in the latest snapshot, without touching storage. Symbols the
// gateway cannot price fall back to the stored price with zero change.
// Intended for frontend polling.
func (s *Service) RealtimePrices(ctx context.Context, userEmail string) (map[string]PriceEntry, error) {
	portfolio, err := s.portfolios.GetLatestPortfolio(ctx, userEmail)
	if err != nil {
		return nil, err
	}

	quotes := s.gateway.Quotes(ctx, portfolio.Symbols())

	prices := make(map[string]PriceEntry, len(portfolio.Holdings))
	for i := range portfolio.Holdings {
		holding := &portfolio.Holdings[i]

		if quote := quotes[holding.Symbol]; quote != nil && quote.Price > 0 {
			prices[holding.Symbol] = PriceEntry{
				CurrentPrice: decimal.NewFromFloat(quote.Price),
				ChangePct:    quote.ChangePct,
			}
			continue
		}

		prices[holding.Symbol] = PriceEntry{
			CurrentPrice: holding.CurrentPrice,
			ChangePct:    0,
		}
	}

	return prices, nil
}

// ensureDemoUser returns the email of an account to link portfolios to,
// creating the demo account when it does not exist yet.
func (s *Service) ensureDemoUser(ctx context.Context) (string, error) {
	if _, err := s.users.GetUser(ctx, DemoUserEmail); err == nil {
		return DemoUserEmail, nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(demoUserPassword), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash demo password: %w", err)
	}

	user := &models.User{
		Email:        DemoUserEmail,
		PasswordHash: string(hash),
		CreatedAt:    time.Now(),
	}
	if err := s.users.SaveUser(ctx, user); err != nil {
		return "", fmt.Errorf("failed to create demo user: %w", err)
	}

	s.logger.Info().Str("email", DemoUserEmail).Msg("Created demo user")
	return DemoUserEmail, nil
}
