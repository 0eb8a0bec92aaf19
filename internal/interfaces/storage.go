package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/folio/internal/models"
)

// ErrNotFound is returned by storage lookups when no record exists.
var ErrNotFound = errors.New("not found")

// UserStorage - interface for account persistence
type UserStorage interface {
	SaveUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, email string) (*models.User, error)
}

// SessionStorage - interface for bearer session persistence
type SessionStorage interface {
	SaveSession(ctx context.Context, session *models.Session) error
	GetSession(ctx context.Context, token string) (*models.Session, error)
	DeleteSession(ctx context.Context, token string) error
	DeleteExpiredSessions(ctx context.Context) (int, error)
}

// PortfolioStorage - interface for portfolio snapshot persistence.
// Saving replaces the previous snapshot for that user.
type PortfolioStorage interface {
	SavePortfolio(ctx context.Context, portfolio *models.Portfolio) error
	GetLatestPortfolio(ctx context.Context, userEmail string) (*models.Portfolio, error)
}

// ReportStorage - interface for generated report persistence and history
type ReportStorage interface {
	SaveReport(ctx context.Context, report *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, userEmail string, limit int) ([]*models.Report, error)
}

// KnowledgeStorage - interface for embedded knowledge passage persistence
type KnowledgeStorage interface {
	SaveDoc(ctx context.Context, doc *models.KnowledgeDoc) error
	GetDoc(ctx context.Context, id string) (*models.KnowledgeDoc, error)
	ListDocs(ctx context.Context) ([]*models.KnowledgeDoc, error)
	CountDocs(ctx context.Context) (int, error)
}

// StorageManager - composite interface for all storage operations
type StorageManager interface {
	UserStorage() UserStorage
	SessionStorage() SessionStorage
	PortfolioStorage() PortfolioStorage
	ReportStorage() ReportStorage
	KnowledgeStorage() KnowledgeStorage
	KeyValueStorage() KeyValueStorage
	Close() error
}
