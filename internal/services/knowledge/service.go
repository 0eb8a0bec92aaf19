// -----------------------------------------------------------------------
// Knowledge Service - embedded market knowledge with similarity retrieval
// -----------------------------------------------------------------------

package knowledge

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"github.com/ternarybob/folio/internal/models"
)

const answerSystemPrompt = `You are a senior Wall Street analyst.
Provide the most objective and incisive assessment based on the financial
data, news and reference material supplied by the user.
Every piece of advice must be grounded in the provided context. Lead with
a clear conclusion before the supporting detail.`

// Answer is a grounded response with the passages it drew from.
type Answer struct {
	Text    string   `json:"text"`
	Sources []string `json:"sources"`
}

// scoredDoc pairs a passage with its similarity to the question.
type scoredDoc struct {
	doc   *models.KnowledgeDoc
	score float64
}

// Service answers questions over the seeded knowledge base: embed the
// question, rank stored passages by cosine similarity and ground one LLM
// answer on the best matches.
type Service struct {
	storage         interfaces.KnowledgeStorage
	llm             interfaces.LLMService
	topK            int
	maxContextChars int
	logger          arbor.ILogger
}

func NewService(storage interfaces.KnowledgeStorage, llm interfaces.LLMService, cfg common.KnowledgeConfig, logger arbor.ILogger) *Service {
	topK := cfg.TopK
	if topK <= 0 {
		topK = 3
	}
	maxContextChars := cfg.MaxContextChars
	if maxContextChars <= 0 {
		maxContextChars = 4000
	}

	return &Service{
		storage:         storage,
		llm:             llm,
		topK:            topK,
		maxContextChars: maxContextChars,
		logger:          logger,
	}
}

// Query answers a question grounded on the most similar stored passages.
func (s *Service) Query(ctx context.Context, question string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("question is empty")
	}

	docs, err := s.retrieve(ctx, question)
	if err != nil {
		return nil, err
	}

	if len(docs) == 0 {
		return &Answer{Text: "No reference material is available to answer this question."}, nil
	}

	context_, sources := s.buildContext(docs)

	response, err := s.llm.Chat(ctx, []interfaces.Message{
		{Role: "system", Content: answerSystemPrompt},
		{Role: "user", Content: fmt.Sprintf("Context:\n%s\n\nQuestion: %s", context_, question)},
	})
	if err != nil {
		return nil, fmt.Errorf("answer generation failed: %w", err)
	}

	return &Answer{Text: strings.TrimSpace(response), Sources: sources}, nil
}

// retrieve embeds the question and returns the topK most similar
// passages. The corpus is small enough for a full scan.
func (s *Service) retrieve(ctx context.Context, question string) ([]*models.KnowledgeDoc, error) {
	queryVec, err := s.llm.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("question embedding failed: %w", err)
	}

	docs, err := s.storage.ListDocs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge docs: %w", err)
	}

	scored := make([]scoredDoc, 0, len(docs))
	for _, doc := range docs {
		if len(doc.Embedding) == 0 {
			continue
		}
		scored = append(scored, scoredDoc{doc: doc, score: cosineSimilarity(queryVec, doc.Embedding)})
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	limit := s.topK
	if limit > len(scored) {
		limit = len(scored)
	}

	out := make([]*models.KnowledgeDoc, 0, limit)
	for _, sd := range scored[:limit] {
		out = append(out, sd.doc)
	}
	return out, nil
}

// buildContext concatenates passages up to the context budget and
// collects their unique sources.
func (s *Service) buildContext(docs []*models.KnowledgeDoc) (string, []string) {
	var b strings.Builder
	var sources []string
	seen := make(map[string]bool)

	for _, doc := range docs {
		source := doc.Source
		if source == "" {
			source = "Unknown"
		}

		passage := fmt.Sprintf("Source: %s\nContent: %s\n\n", source, doc.Content)
		if b.Len()+len(passage) > s.maxContextChars {
			remaining := s.maxContextChars - b.Len()
			if remaining <= 0 {
				break
			}
			passage = passage[:remaining]
		}
		b.WriteString(passage)

		if doc.Source != "" && !seen[doc.Source] {
			seen[doc.Source] = true
			sources = append(sources, doc.Source)
		}
	}

	return b.String(), sources
}

// cosineSimilarity returns the cosine of the angle between two vectors.
// Mismatched or zero-length vectors score 0.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
