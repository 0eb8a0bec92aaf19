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

// KnowledgeStorage implements the KnowledgeStorage interface for Badger
type KnowledgeStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewKnowledgeStorage creates a new KnowledgeStorage instance
func NewKnowledgeStorage(db *BadgerDB, logger arbor.ILogger) interfaces.KnowledgeStorage {
	return &KnowledgeStorage{
		db:     db,
		logger: logger,
	}
}

// SaveDoc persists an embedded knowledge passage
func (s *KnowledgeStorage) SaveDoc(ctx context.Context, doc *models.KnowledgeDoc) error {
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to save knowledge doc: %w", err)
	}
	return nil
}

// GetDoc retrieves a knowledge passage by ID
func (s *KnowledgeStorage) GetDoc(ctx context.Context, id string) (*models.KnowledgeDoc, error) {
	var doc models.KnowledgeDoc
	err := s.db.Store().Get(id, &doc)
	if err == badgerhold.ErrNotFound {
		return nil, interfaces.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get knowledge doc: %w", err)
	}
	return &doc, nil
}

// ListDocs returns all knowledge passages
func (s *KnowledgeStorage) ListDocs(ctx context.Context) ([]*models.KnowledgeDoc, error) {
	var docs []models.KnowledgeDoc
	if err := s.db.Store().Find(&docs, nil); err != nil {
		return nil, fmt.Errorf("failed to list knowledge docs: %w", err)
	}

	result := make([]*models.KnowledgeDoc, len(docs))
	for i := range docs {
		result[i] = &docs[i]
	}
	return result, nil
}

// CountDocs returns the number of stored knowledge passages
func (s *KnowledgeStorage) CountDocs(ctx context.Context) (int, error) {
	count, err := s.db.Store().Count(&models.KnowledgeDoc{}, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count knowledge docs: %w", err)
	}
	return int(count), nil
}
