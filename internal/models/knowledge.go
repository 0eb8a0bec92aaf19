package models

import (
	"time"
)

// KnowledgeDoc is one embedded passage in the knowledge store.
// Passages are seeded from YAML files on startup and queried by
// cosine similarity against a question embedding.
type KnowledgeDoc struct {
	ID        string    `json:"id" badgerhold:"key"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Source    string    `json:"source"` // Seed file the passage came from
	Embedding []float32 `json:"embedding"`
	CreatedAt time.Time `json:"created_at"`
}
