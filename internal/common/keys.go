package common

import (
	"context"
	"fmt"
	"os"

	"github.com/ternarybob/folio/internal/interfaces"
)

// ResolveAPIKey resolves an API key by name with environment variable priority.
// Resolution order: environment variables, KV store, config fallback.
func ResolveAPIKey(ctx context.Context, kvStorage interfaces.KeyValueStorage, name string, configFallback string) (string, error) {
	keyToEnvMapping := map[string][]string{
		"gemini_api_key":    {"FOLIO_GEMINI_API_KEY", "GEMINI_API_KEY"},
		"anthropic_api_key": {"FOLIO_CLAUDE_API_KEY", "ANTHROPIC_API_KEY"},
		"market_api_key":    {"FOLIO_MARKET_API_KEY"},
	}

	if envVarNames, hasMappedEnv := keyToEnvMapping[name]; hasMappedEnv {
		for _, envVarName := range envVarNames {
			if envValue := os.Getenv(envVarName); envValue != "" {
				return envValue, nil
			}
		}
	}

	if kvStorage != nil {
		apiKey, err := kvStorage.Get(ctx, name)
		if err == nil && apiKey != "" {
			return apiKey, nil
		}
	}

	if configFallback != "" {
		return configFallback, nil
	}

	return "", fmt.Errorf("API key '%s' not found in environment, KV store, or config", name)
}
