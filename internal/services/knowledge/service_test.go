package knowledge

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

// stubLLM embeds by keyword lookup and answers with a fixed response.
type stubLLM struct {
	vectors    map[string][]float32
	response   string
	embedCalls int
	gotPrompt  string
}

func (s *stubLLM) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	for _, m := range messages {
		if m.Role == "user" {
			s.gotPrompt = m.Content
		}
	}
	return s.response, nil
}

func (s *stubLLM) Embed(ctx context.Context, text string) ([]float32, error) {
	s.embedCalls++
	for key, vec := range s.vectors {
		if strings.Contains(text, key) {
			return vec, nil
		}
	}
	return []float32{0, 0, 1}, nil
}

func (s *stubLLM) ExtractHoldings(ctx context.Context, image []byte, mimeType string) ([]models.Holding, error) {
	return nil, errors.New("not implemented")
}

func (s *stubLLM) HealthCheck(ctx context.Context) error { return nil }
func (s *stubLLM) Close() error                          { return nil }

type memKnowledgeStorage struct {
	docs map[string]*models.KnowledgeDoc
}

func newMemKnowledgeStorage() *memKnowledgeStorage {
	return &memKnowledgeStorage{docs: make(map[string]*models.KnowledgeDoc)}
}

func (m *memKnowledgeStorage) SaveDoc(ctx context.Context, doc *models.KnowledgeDoc) error {
	m.docs[doc.ID] = doc
	return nil
}

func (m *memKnowledgeStorage) GetDoc(ctx context.Context, id string) (*models.KnowledgeDoc, error) {
	doc, ok := m.docs[id]
	if !ok {
		return nil, interfaces.ErrNotFound
	}
	return doc, nil
}

func (m *memKnowledgeStorage) ListDocs(ctx context.Context) ([]*models.KnowledgeDoc, error) {
	out := make([]*models.KnowledgeDoc, 0, len(m.docs))
	for _, doc := range m.docs {
		out = append(out, doc)
	}
	return out, nil
}

func (m *memKnowledgeStorage) CountDocs(ctx context.Context) (int, error) {
	return len(m.docs), nil
}

func newTestService(storage interfaces.KnowledgeStorage, llm interfaces.LLMService) *Service {
	return NewService(storage, llm, common.KnowledgeConfig{TopK: 2, MaxContextChars: 4000}, arbor.NewLogger())
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    []float32
		b    []float32
		want float64
	}{
		{name: "identical", a: []float32{1, 0}, b: []float32{1, 0}, want: 1},
		{name: "orthogonal", a: []float32{1, 0}, b: []float32{0, 1}, want: 0},
		{name: "opposite", a: []float32{1, 0}, b: []float32{-1, 0}, want: -1},
		{name: "length mismatch", a: []float32{1, 0}, b: []float32{1}, want: 0},
		{name: "zero vector", a: []float32{0, 0}, b: []float32{1, 0}, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestService_Query_RanksBySimilarity(t *testing.T) {
	storage := newMemKnowledgeStorage()
	storage.docs["a"] = &models.KnowledgeDoc{ID: "a", Content: "Dividend stocks basics", Source: "https://example.com/dividends", Embedding: []float32{1, 0, 0}}
	storage.docs["b"] = &models.KnowledgeDoc{ID: "b", Content: "Options trading greeks", Source: "https://example.com/options", Embedding: []float32{0, 1, 0}}
	storage.docs["c"] = &models.KnowledgeDoc{ID: "c", Content: "Dividend tax treatment", Source: "https://example.com/dividends", Embedding: []float32{0.9, 0.1, 0}}

	llm := &stubLLM{
		vectors:  map[string][]float32{"dividend": {1, 0, 0}},
		response: "Dividends are cash distributions.",
	}
	service := newTestService(storage, llm)

	answer, err := service.Query(context.Background(), "what is a dividend?")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}

	if answer.Text != "Dividends are cash distributions." {
		t.Errorf("unexpected answer: %q", answer.Text)
	}

	// topK=2 should pick the two dividend passages, deduplicating the source
	if len(answer.Sources) != 1 || answer.Sources[0] != "https://example.com/dividends" {
		t.Errorf("unexpected sources: %v", answer.Sources)
	}
	if strings.Contains(llm.gotPrompt, "Options trading") {
		t.Error("low-similarity passage leaked into context")
	}
	if !strings.Contains(llm.gotPrompt, "Dividend stocks basics") {
		t.Error("expected top passage in context")
	}
	if !strings.Contains(llm.gotPrompt, "Question: what is a dividend?") {
		t.Errorf("question missing from prompt: %q", llm.gotPrompt)
	}
}

func TestService_Query_EmptyQuestion(t *testing.T) {
	service := newTestService(newMemKnowledgeStorage(), &stubLLM{})

	if _, err := service.Query(context.Background(), "   "); err == nil {
		t.Error("expected error for empty question")
	}
}

func TestService_Query_EmptyCorpus(t *testing.T) {
	service := newTestService(newMemKnowledgeStorage(), &stubLLM{})

	answer, err := service.Query(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if !strings.Contains(answer.Text, "No reference material") {
		t.Errorf("unexpected empty-corpus answer: %q", answer.Text)
	}
}

func TestService_BuildContext_Truncation(t *testing.T) {
	service := NewService(newMemKnowledgeStorage(), &stubLLM{}, common.KnowledgeConfig{TopK: 3, MaxContextChars: 50}, arbor.NewLogger())

	docs := []*models.KnowledgeDoc{
		{Content: strings.Repeat("x", 100), Source: "a"},
		{Content: strings.Repeat("y", 100), Source: "b"},
	}

	context_, _ := service.buildContext(docs)
	if len(context_) > 50 {
		t.Errorf("context exceeds budget: %d chars", len(context_))
	}
}

func TestService_Seed(t *testing.T) {
	dir := t.TempDir()
	seedYAML := `documents:
  - title: Dividends
    source: https://example.com/dividends
    content: |
      A dividend is a distribution of profits to shareholders.
  - title: Empty
    content: ""
`
	if err := os.WriteFile(filepath.Join(dir, "basics.yaml"), []byte(seedYAML), 0644); err != nil {
		t.Fatal(err)
	}

	storage := newMemKnowledgeStorage()
	llm := &stubLLM{}
	service := newTestService(storage, llm)

	seeded, err := service.Seed(context.Background(), dir)
	if err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if seeded != 1 {
		t.Errorf("expected 1 passage seeded, got %d", seeded)
	}

	// Reseeding the same file must not embed or store again
	embedCallsBefore := llm.embedCalls
	seeded, err = service.Seed(context.Background(), dir)
	if err != nil {
		t.Fatalf("reseed failed: %v", err)
	}
	if seeded != 0 {
		t.Errorf("expected idempotent reseed, got %d new passages", seeded)
	}
	if llm.embedCalls != embedCallsBefore {
		t.Errorf("reseed must not re-embed, calls %d -> %d", embedCallsBefore, llm.embedCalls)
	}
}

func TestService_Seed_MissingDir(t *testing.T) {
	service := newTestService(newMemKnowledgeStorage(), &stubLLM{})

	seeded, err := service.Seed(context.Background(), filepath.Join(t.TempDir(), "absent"))
	if err != nil {
		t.Fatalf("missing dir must not error: %v", err)
	}
	if seeded != 0 {
		t.Errorf("expected 0 passages, got %d", seeded)
	}
}
