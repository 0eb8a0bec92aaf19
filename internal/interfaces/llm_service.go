package interfaces

import (
	"context"

	"github.com/ternarybob/folio/internal/models"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// LLMService defines the interface for language model operations.
// Implementations wrap cloud providers (Gemini, Claude); the narrative,
// knowledge and vision services all run through this interface so the
// provider can be swapped per request.
type LLMService interface {
	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context including
	// system prompts, user messages, and previous assistant responses.
	Chat(ctx context.Context, messages []Message) (string, error)

	// Embed generates an embedding vector for the given text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// ExtractHoldings reads a brokerage screenshot and returns the holdings
	// visible in it. The image is passed raw with its MIME type.
	ExtractHoldings(ctx context.Context, image []byte, mimeType string) ([]models.Holding, error)

	// HealthCheck verifies the LLM service is operational.
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations.
	Close() error
}
