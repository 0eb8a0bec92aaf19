package knowledge

import (
	"context"
	"crypto/sha256"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ternarybob/folio/internal/models"
	"gopkg.in/yaml.v3"
)

// seedFile is the on-disk shape of one YAML knowledge file.
type seedFile struct {
	Documents []seedDocument `yaml:"documents"`
}

type seedDocument struct {
	Title   string `yaml:"title"`
	Source  string `yaml:"source"`
	Content string `yaml:"content"`
}

// Seed loads YAML documents from dir, embeds new passages and stores
// them. Passage IDs are content hashes, so reseeding the same files is
// idempotent and already-embedded passages are skipped without another
// embedding call. A missing seed directory is not an error.
func (s *Service) Seed(ctx context.Context, dir string) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			s.logger.Debug().Str("dir", dir).Msg("No knowledge seed directory")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read seed directory: %w", err)
	}

	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" {
			continue
		}

		count, err := s.seedFile(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("Failed to seed knowledge file")
			continue
		}
		seeded += count
	}

	if seeded > 0 {
		s.logger.Info().Int("passages", seeded).Str("dir", dir).Msg("Knowledge base seeded")
	}
	return seeded, nil
}

func (s *Service) seedFile(ctx context.Context, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read %s: %w", path, err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	seeded := 0
	for _, doc := range file.Documents {
		content := strings.TrimSpace(doc.Content)
		if content == "" {
			continue
		}

		id := passageID(doc.Title, content)
		if existing, err := s.storage.GetDoc(ctx, id); err == nil && existing != nil {
			continue
		}

		embedding, err := s.llm.Embed(ctx, content)
		if err != nil {
			return seeded, fmt.Errorf("embedding failed for %q: %w", doc.Title, err)
		}

		record := &models.KnowledgeDoc{
			ID:        id,
			Title:     doc.Title,
			Content:   content,
			Source:    doc.Source,
			Embedding: embedding,
		}
		if err := s.storage.SaveDoc(ctx, record); err != nil {
			return seeded, fmt.Errorf("failed to store %q: %w", doc.Title, err)
		}
		seeded++
	}

	return seeded, nil
}

func passageID(title, content string) string {
	sum := sha256.Sum256([]byte(title + "\n" + content))
	return fmt.Sprintf("kb_%x", sum[:12])
}
