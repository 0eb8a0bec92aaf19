package badger

import (
	"context"
	"strconv"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/folio/internal/common"
	"github.com/ternarybob/folio/internal/interfaces"
)

// SeedMailSettings copies SMTP settings from the TOML config into KV storage.
// KV values already set (via the mail config endpoint) win over config file
// values, so this only fills in keys that are missing.
func SeedMailSettings(ctx context.Context, kvStorage interfaces.KeyValueStorage, cfg common.MailConfig, logger arbor.ILogger) error {
	items := map[string]struct {
		value       string
		description string
	}{
		"smtp_host":     {value: cfg.Host, description: "SMTP server hostname"},
		"smtp_port":     {value: strconv.Itoa(cfg.Port), description: "SMTP server port"},
		"smtp_username": {value: cfg.Username, description: "SMTP username (email address)"},
		"smtp_password": {value: cfg.Password, description: "SMTP password or app password"},
		"smtp_from":     {value: cfg.From, description: "From email address"},
		"smtp_use_tls":  {value: strconv.FormatBool(cfg.UseTLS), description: "Use TLS encryption"},
	}

	seeded := 0
	for key, item := range items {
		if item.value == "" {
			continue
		}
		if key == "smtp_port" && item.value == "0" {
			continue
		}

		// Existing KV values take precedence
		if _, err := kvStorage.Get(ctx, key); err == nil {
			continue
		}

		if err := kvStorage.Set(ctx, key, item.value, item.description); err != nil {
			logger.Warn().Err(err).Str("key", key).Msg("Failed to seed mail setting")
			continue
		}
		seeded++
	}

	if seeded > 0 {
		logger.Info().Int("seeded", seeded).Str("host", cfg.Host).Msg("Seeded mail settings from config")
	}
	return nil
}
