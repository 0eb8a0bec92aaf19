package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
	"google.golang.org/genai"
)

// Service implements the LLMService interface across cloud providers.
// Chat completions route to the configured default provider; embeddings and
// screenshot extraction always run on Gemini, which is the only configured
// provider with embedding and structured vision output support.
type Service struct {
	geminiConfig *common.GeminiConfig
	claudeConfig *common.ClaudeConfig
	llmConfig    *common.LLMConfig
	kvStorage    interfaces.KeyValueStorage
	logger       arbor.ILogger

	embedDim      int
	geminiTimeout time.Duration
	claudeTimeout time.Duration

	mu           sync.Mutex
	geminiClient *genai.Client
	claudeClient anthropic.Client
	claudeReady  bool
}

// NewService creates an LLM service from the application configuration.
// Clients are created lazily on first use so a missing API key for an
// unused provider does not block startup.
func NewService(cfg *common.Config, kvStorage interfaces.KeyValueStorage, logger arbor.ILogger) (*Service, error) {
	geminiTimeout, err := time.ParseDuration(cfg.Gemini.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid gemini timeout '%s': %w", cfg.Gemini.Timeout, err)
	}
	claudeTimeout, err := time.ParseDuration(cfg.Claude.Timeout)
	if err != nil {
		return nil, fmt.Errorf("invalid claude timeout '%s': %w", cfg.Claude.Timeout, err)
	}

	switch cfg.LLM.DefaultProvider {
	case common.LLMProviderGemini, common.LLMProviderClaude:
	default:
		return nil, fmt.Errorf("invalid default provider '%s': must be 'gemini' or 'claude'", cfg.LLM.DefaultProvider)
	}

	service := &Service{
		geminiConfig:  &cfg.Gemini,
		claudeConfig:  &cfg.Claude,
		llmConfig:     &cfg.LLM,
		kvStorage:     kvStorage,
		logger:        logger,
		embedDim:      cfg.Knowledge.Dimensions,
		geminiTimeout: geminiTimeout,
		claudeTimeout: claudeTimeout,
	}

	logger.Info().
		Str("default_provider", string(cfg.LLM.DefaultProvider)).
		Str("gemini_model", cfg.Gemini.Model).
		Str("claude_model", cfg.Claude.Model).
		Int("embed_dimension", cfg.Knowledge.Dimensions).
		Msg("LLM service initialized")

	return service, nil
}

// DetectProvider determines the provider type from a model string.
// Model strings can carry an explicit prefix ("claude/...", "gemini/...")
// or be matched by name pattern. Empty strings use the default provider.
func (s *Service) DetectProvider(model string) common.LLMProvider {
	if model == "" {
		return s.llmConfig.DefaultProvider
	}

	model = strings.ToLower(model)

	if strings.HasPrefix(model, "claude/") || strings.HasPrefix(model, "anthropic/") {
		return common.LLMProviderClaude
	}
	if strings.HasPrefix(model, "gemini/") || strings.HasPrefix(model, "google/") {
		return common.LLMProviderGemini
	}

	if strings.HasPrefix(model, "claude-") {
		return common.LLMProviderClaude
	}
	if strings.HasPrefix(model, "gemini-") {
		return common.LLMProviderGemini
	}

	return s.llmConfig.DefaultProvider
}

// Chat generates a completion response based on the conversation history.
func (s *Service) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	provider := s.llmConfig.DefaultProvider

	s.logger.Debug().
		Str("provider", string(provider)).
		Int("message_count", len(messages)).
		Msg("Starting chat completion")

	startTime := time.Now()

	var response string
	var err error
	switch provider {
	case common.LLMProviderClaude:
		response, err = s.chatWithClaude(ctx, messages)
	default:
		response, err = s.chatWithGemini(ctx, messages)
	}

	if err != nil {
		s.logger.Error().
			Err(err).
			Str("provider", string(provider)).
			Msg("Chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	s.logger.Debug().
		Str("provider", string(provider)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Chat completion completed")

	return response, nil
}

// Embed generates an embedding vector for the given text.
func (s *Service) Embed(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, fmt.Errorf("text cannot be empty for embedding generation")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.geminiTimeout)
	defer cancel()

	embedding, err := s.generateEmbedding(timeoutCtx, text)
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("text_length", len(text)).
			Msg("Embedding generation failed")
		return nil, fmt.Errorf("embedding generation failed: %w", err)
	}

	return embedding, nil
}

// HealthCheck verifies the default chat provider is operational with a
// lightweight probe.
func (s *Service) HealthCheck(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	testMessages := []interfaces.Message{
		{Role: "user", Content: "ping"},
	}

	var response string
	var err error
	switch s.llmConfig.DefaultProvider {
	case common.LLMProviderClaude:
		response, err = s.chatWithClaude(probeCtx, testMessages)
	default:
		response, err = s.chatWithGemini(probeCtx, testMessages)
	}
	if err != nil {
		return fmt.Errorf("chat probe failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("chat probe returned empty response")
	}

	s.logger.Debug().
		Str("provider", string(s.llmConfig.DefaultProvider)).
		Msg("LLM health check passed")

	return nil
}

// Close releases provider clients.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.geminiClient = nil
	s.claudeClient = anthropic.Client{}
	s.claudeReady = false
	return nil
}

// getGeminiClient returns a Gemini client, creating one if necessary.
func (s *Service) getGeminiClient(ctx context.Context) (*genai.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.geminiClient != nil {
		return s.geminiClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, "gemini_api_key", s.geminiConfig.APIKey)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve Gemini API key: %w", err)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	s.geminiClient = client
	return client, nil
}

// getClaudeClient returns a Claude client, creating one if necessary.
func (s *Service) getClaudeClient(ctx context.Context) (anthropic.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claudeReady {
		return s.claudeClient, nil
	}

	apiKey, err := common.ResolveAPIKey(ctx, s.kvStorage, "anthropic_api_key", s.claudeConfig.APIKey)
	if err != nil {
		return anthropic.Client{}, fmt.Errorf("failed to resolve Anthropic API key: %w", err)
	}

	client := anthropic.NewClient(
		option.WithAPIKey(apiKey),
	)

	s.claudeClient = client
	s.claudeReady = true
	return client, nil
}
