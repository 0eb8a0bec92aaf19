package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/robfig/cron/v3"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Logging     LoggingConfig   `toml:"logging"`
	Market      MarketConfig    `toml:"market"`
	Gemini      GeminiConfig    `toml:"gemini"`
	Claude      ClaudeConfig    `toml:"claude"`
	LLM         LLMConfig       `toml:"llm"`
	Mail        MailConfig      `toml:"mail"`
	Scheduler   SchedulerConfig `toml:"scheduler"`
	Report      ReportConfig    `toml:"report"`
	Knowledge   KnowledgeConfig `toml:"knowledge"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig represents BadgerDB-specific configuration
type BadgerConfig struct {
	Path           string `toml:"path"`             // Database directory path
	ResetOnStartup bool   `toml:"reset_on_startup"` // Delete database on startup for clean test runs
}

type LoggingConfig struct {
	Level      string   `toml:"level"`       // "debug", "info", "warn", "error"
	Format     string   `toml:"format"`      // "json" or "text"
	Output     []string `toml:"output"`      // "stdout", "file"
	TimeFormat string   `toml:"time_format"` // Time format for logs (default: "15:04:05.000")
}

// MarketConfig contains configuration for the market data provider
type MarketConfig struct {
	APIKey         string        `toml:"api_key"`         // EODHD API key (demo key works for a few symbols)
	BaseURL        string        `toml:"base_url"`        // Provider base URL
	RateLimit      time.Duration `toml:"rate_limit"`      // Minimum time between API requests
	RequestTimeout time.Duration `toml:"request_timeout"` // Per-request timeout for quote and fundamentals calls
	NewsTimeout    time.Duration `toml:"news_timeout"`    // Per-request timeout for headline lookups
	NewsLimit      int           `toml:"news_limit"`      // Maximum headlines fetched per symbol
}

// GeminiConfig contains Google Gemini API configuration for AI services
type GeminiConfig struct {
	APIKey         string  `toml:"api_key"`         // Google Gemini API key
	Model          string  `toml:"model"`           // Model for narrative generation (default: "gemini-3-flash-preview")
	EmbeddingModel string  `toml:"embedding_model"` // Model for embeddings (default: "gemini-embedding-001")
	VisionModel    string  `toml:"vision_model"`    // Model for screenshot extraction (default: same as Model)
	MaxTokens      int     `toml:"max_tokens"`      // Maximum tokens in response (default: 4096)
	Timeout        string  `toml:"timeout"`         // Operation timeout as duration string (default: "2m")
	RateLimit      string  `toml:"rate_limit"`      // Rate limit duration string (default: "4s" for 15 RPM)
	Temperature    float32 `toml:"temperature"`     // Completion temperature (default: 0.7)
}

// ClaudeConfig contains Anthropic Claude API configuration for AI services
type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`     // Anthropic API key for Claude operations
	Model       string  `toml:"model"`       // Model for narrative generation (default: "claude-haiku-3-5-20241022")
	MaxTokens   int     `toml:"max_tokens"`  // Maximum tokens in response (default: 4096)
	Timeout     string  `toml:"timeout"`     // Operation timeout as duration string (default: "2m")
	RateLimit   string  `toml:"rate_limit"`  // Rate limit duration string (default: "1s")
	Temperature float32 `toml:"temperature"` // Completion temperature (default: 0.7)
}

// LLMProvider represents the AI provider type
type LLMProvider string

const (
	// LLMProviderGemini uses Google Gemini API
	LLMProviderGemini LLMProvider = "gemini"
	// LLMProviderClaude uses Anthropic Claude API
	LLMProviderClaude LLMProvider = "claude"
)

// LLMConfig contains unified configuration for all AI providers
type LLMConfig struct {
	DefaultProvider LLMProvider `toml:"default_provider"` // Default provider: "gemini" or "claude" (default: "gemini")
}

// MailConfig contains SMTP delivery configuration.
// Values here seed the stored mail settings and can be updated at runtime
// through the mail config endpoint.
type MailConfig struct {
	Host     string `toml:"host"`     // SMTP server host
	Port     int    `toml:"port"`     // SMTP server port (default: 587)
	Username string `toml:"username"` // SMTP auth username
	Password string `toml:"password"` // SMTP auth password
	From     string `toml:"from"`     // Sender address
	UseTLS   bool   `toml:"use_tls"`  // Use implicit TLS instead of STARTTLS
}

// SchedulerConfig contains configuration for the background price refresh job
type SchedulerConfig struct {
	Enabled  bool   `toml:"enabled"`  // Enable scheduled price refresh
	Schedule string `toml:"schedule"` // Cron schedule format (default: "0 */30 9-17 * * 1-5")
}

// ReportConfig contains configuration for report generation
type ReportConfig struct {
	Title    string `toml:"title"`     // Report title printed on the first page
	FontDir  string `toml:"font_dir"`  // Directory with UTF-8 TTF fonts (optional)
	FontFile string `toml:"font_file"` // TTF file name inside FontDir (optional)
	Locale   string `toml:"locale"`    // Report locale hint passed to the narrative prompt
}

// KnowledgeConfig contains configuration for the knowledge retrieval service
type KnowledgeConfig struct {
	SeedDir         string `toml:"seed_dir"`          // Directory containing YAML seed documents
	Dimensions      int    `toml:"dimensions"`        // Embedding dimensionality (default: 768)
	TopK            int    `toml:"top_k"`             // Passages retrieved per query (default: 3)
	MaxContextChars int    `toml:"max_context_chars"` // Truncation cap for retrieved context
}

// NewDefaultConfig creates a configuration with default values
// Technical parameters are hardcoded here for production stability.
// Only user-facing settings should be exposed in folio.toml.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8080,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: []string{"stdout", "file"},
		},
		Market: MarketConfig{
			APIKey:         "demo",
			BaseURL:        "https://eodhd.com/api",
			RateLimit:      100 * time.Millisecond,
			RequestTimeout: 5 * time.Second,
			NewsTimeout:    5 * time.Second,
			NewsLimit:      5,
		},
		Gemini: GeminiConfig{
			APIKey:         "", // User must provide API key (no fallback)
			Model:          "gemini-3-flash-preview",
			EmbeddingModel: "gemini-embedding-001",
			VisionModel:    "gemini-3-flash-preview",
			MaxTokens:      4096,
			Timeout:        "2m",
			RateLimit:      "4s", // 15 RPM free tier
			Temperature:    0.7,
		},
		Claude: ClaudeConfig{
			APIKey:      "", // User must provide API key (ANTHROPIC_API_KEY or config)
			Model:       "claude-haiku-3-5-20241022",
			MaxTokens:   4096,
			Timeout:     "2m",
			RateLimit:   "1s",
			Temperature: 0.7,
		},
		LLM: LLMConfig{
			DefaultProvider: LLMProviderGemini,
		},
		Mail: MailConfig{
			Port:   587,
			UseTLS: false,
		},
		Scheduler: SchedulerConfig{
			Enabled:  false,                 // Disabled by default - user must explicitly opt-in
			Schedule: "0 */30 9-17 * * 1-5", // Every 30 minutes during trading hours
		},
		Report: ReportConfig{
			Title:  "Investment Analysis Report",
			Locale: "en",
		},
		Knowledge: KnowledgeConfig{
			SeedDir:         "./knowledge",
			Dimensions:      768,
			TopK:            3,
			MaxContextChars: 4000,
		},
	}
}

// LoadFromFile loads configuration with priority: default -> file -> env -> CLI
// Priority system: CLI flags > Environment variables > Config file > Defaults
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority: default -> file1 -> file2 -> ... -> env -> CLI
// Later files override earlier files.
// Example: LoadFromFiles("base.toml", "override.toml") - override.toml settings take precedence over base.toml
func LoadFromFiles(paths ...string) (*Config, error) {
	// Start with defaults
	config := NewDefaultConfig()

	// Load and merge each config file in order (later files override earlier files)
	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		// Unmarshal into config (merges with existing values, later values override)
		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	// Apply environment variables (overrides all file configs)
	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	// Environment configuration (highest priority: FOLIO_ENV, fallback: GO_ENV)
	if env := os.Getenv("FOLIO_ENV"); env != "" {
		config.Environment = env
	} else if env := os.Getenv("GO_ENV"); env != "" {
		config.Environment = env
	}

	// Server configuration
	if port := os.Getenv("FOLIO_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("FOLIO_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}

	// Storage configuration
	if badgerPath := os.Getenv("FOLIO_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}

	// Logging configuration
	if level := os.Getenv("FOLIO_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("FOLIO_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if output := os.Getenv("FOLIO_LOG_OUTPUT"); output != "" {
		outputs := []string{}
		for _, o := range strings.Split(output, ",") {
			trimmed := strings.TrimSpace(o)
			if trimmed != "" {
				outputs = append(outputs, trimmed)
			}
		}
		if len(outputs) > 0 {
			config.Logging.Output = outputs
		}
	}

	// Market configuration
	if apiKey := os.Getenv("FOLIO_MARKET_API_KEY"); apiKey != "" {
		config.Market.APIKey = apiKey
	}
	if baseURL := os.Getenv("FOLIO_MARKET_BASE_URL"); baseURL != "" {
		config.Market.BaseURL = baseURL
	}
	if rateLimit := os.Getenv("FOLIO_MARKET_RATE_LIMIT"); rateLimit != "" {
		if rl, err := time.ParseDuration(rateLimit); err == nil {
			config.Market.RateLimit = rl
		}
	}
	if requestTimeout := os.Getenv("FOLIO_MARKET_REQUEST_TIMEOUT"); requestTimeout != "" {
		if rt, err := time.ParseDuration(requestTimeout); err == nil {
			config.Market.RequestTimeout = rt
		}
	}
	if newsLimit := os.Getenv("FOLIO_MARKET_NEWS_LIMIT"); newsLimit != "" {
		if nl, err := strconv.Atoi(newsLimit); err == nil {
			config.Market.NewsLimit = nl
		}
	}

	// Gemini configuration
	if apiKey := os.Getenv("FOLIO_GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	} else if apiKey := os.Getenv("GEMINI_API_KEY"); apiKey != "" {
		config.Gemini.APIKey = apiKey
	}
	if model := os.Getenv("FOLIO_GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
	if embeddingModel := os.Getenv("FOLIO_GEMINI_EMBEDDING_MODEL"); embeddingModel != "" {
		config.Gemini.EmbeddingModel = embeddingModel
	}
	if visionModel := os.Getenv("FOLIO_GEMINI_VISION_MODEL"); visionModel != "" {
		config.Gemini.VisionModel = visionModel
	}
	if maxTokens := os.Getenv("FOLIO_GEMINI_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Gemini.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("FOLIO_GEMINI_TIMEOUT"); timeout != "" {
		config.Gemini.Timeout = timeout
	}
	if rateLimit := os.Getenv("FOLIO_GEMINI_RATE_LIMIT"); rateLimit != "" {
		config.Gemini.RateLimit = rateLimit
	}
	if temperature := os.Getenv("FOLIO_GEMINI_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Gemini.Temperature = float32(t)
		}
	}

	// Claude configuration
	if apiKey := os.Getenv("ANTHROPIC_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey
	}
	if apiKey := os.Getenv("FOLIO_CLAUDE_API_KEY"); apiKey != "" {
		config.Claude.APIKey = apiKey // FOLIO_ prefix takes priority
	}
	if model := os.Getenv("FOLIO_CLAUDE_MODEL"); model != "" {
		config.Claude.Model = model
	}
	if maxTokens := os.Getenv("FOLIO_CLAUDE_MAX_TOKENS"); maxTokens != "" {
		if mt, err := strconv.Atoi(maxTokens); err == nil {
			config.Claude.MaxTokens = mt
		}
	}
	if timeout := os.Getenv("FOLIO_CLAUDE_TIMEOUT"); timeout != "" {
		config.Claude.Timeout = timeout
	}
	if rateLimit := os.Getenv("FOLIO_CLAUDE_RATE_LIMIT"); rateLimit != "" {
		config.Claude.RateLimit = rateLimit
	}
	if temperature := os.Getenv("FOLIO_CLAUDE_TEMPERATURE"); temperature != "" {
		if t, err := strconv.ParseFloat(temperature, 32); err == nil {
			config.Claude.Temperature = float32(t)
		}
	}

	// LLM provider configuration
	if provider := os.Getenv("FOLIO_LLM_DEFAULT_PROVIDER"); provider != "" {
		config.LLM.DefaultProvider = LLMProvider(provider)
	}

	// Mail configuration
	if host := os.Getenv("FOLIO_MAIL_HOST"); host != "" {
		config.Mail.Host = host
	}
	if port := os.Getenv("FOLIO_MAIL_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Mail.Port = p
		}
	}
	if username := os.Getenv("FOLIO_MAIL_USERNAME"); username != "" {
		config.Mail.Username = username
	}
	if password := os.Getenv("FOLIO_MAIL_PASSWORD"); password != "" {
		config.Mail.Password = password
	}
	if from := os.Getenv("FOLIO_MAIL_FROM"); from != "" {
		config.Mail.From = from
	}
	if useTLS := os.Getenv("FOLIO_MAIL_USE_TLS"); useTLS != "" {
		if t, err := strconv.ParseBool(useTLS); err == nil {
			config.Mail.UseTLS = t
		}
	}

	// Scheduler configuration
	if enabled := os.Getenv("FOLIO_SCHEDULER_ENABLED"); enabled != "" {
		if e, err := strconv.ParseBool(enabled); err == nil {
			config.Scheduler.Enabled = e
		}
	}
	if schedule := os.Getenv("FOLIO_SCHEDULER_SCHEDULE"); schedule != "" {
		config.Scheduler.Schedule = schedule
	}

	// Report configuration
	if title := os.Getenv("FOLIO_REPORT_TITLE"); title != "" {
		config.Report.Title = title
	}
	if fontDir := os.Getenv("FOLIO_REPORT_FONT_DIR"); fontDir != "" {
		config.Report.FontDir = fontDir
	}
	if fontFile := os.Getenv("FOLIO_REPORT_FONT_FILE"); fontFile != "" {
		config.Report.FontFile = fontFile
	}

	// Knowledge configuration
	if seedDir := os.Getenv("FOLIO_KNOWLEDGE_SEED_DIR"); seedDir != "" {
		config.Knowledge.SeedDir = seedDir
	}
	if dims := os.Getenv("FOLIO_KNOWLEDGE_DIMENSIONS"); dims != "" {
		if d, err := strconv.Atoi(dims); err == nil {
			config.Knowledge.Dimensions = d
		}
	}
	if topK := os.Getenv("FOLIO_KNOWLEDGE_TOP_K"); topK != "" {
		if k, err := strconv.Atoi(topK); err == nil {
			config.Knowledge.TopK = k
		}
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config
func ApplyFlagOverrides(config *Config, port int, host string) {
	// Command-line flags have highest priority
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}

// ValidateSchedule validates a cron schedule expression with optional seconds field
func ValidateSchedule(schedule string) error {
	parts := strings.Fields(schedule)
	var parser cron.Parser
	if len(parts) == 6 {
		parser = cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	} else {
		parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	}
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}

// IsProduction returns true if the environment is set to production
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
