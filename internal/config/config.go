// Package config loads the protext configuration from defaults, an optional
// JSON file and PROTEXT_* environment variables.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/localrivet/configurator"

	"github.com/localrivet/protext/internal/summarizer"
	"github.com/localrivet/protext/internal/summarizer/providers"
)

// Global configuration instance
var (
	// Global is the global configuration instance
	Global *Config
	// initOnce ensures initialization happens only once
	initOnce sync.Once
)

// InitGlobal initializes the global configuration
func InitGlobal(configPath string) (*Config, error) {
	var err error
	initOnce.Do(func() {
		Global, err = LoadConfigWithPath(configPath)
	})
	return Global, err
}

// Config represents the protext configuration
type Config struct {
	// Summarizer selects and tunes the summarization capability.
	Summarizer struct {
		// Provider is the primary backend: huggingface, anthropic, openai,
		// google, xai, ollama or extractive.
		Provider string `json:"provider" env:"SUMMARIZER_PROVIDER" validate:"required"`

		// Model overrides the provider's default model.
		Model string `json:"model" env:"SUMMARIZER_MODEL"`

		// APIKey is the key for the primary provider. When empty the vendor
		// variable (HF_API_TOKEN, OPENAI_API_KEY, ...) is used.
		APIKey string `json:"api_key" env:"SUMMARIZER_API_KEY"`

		// BaseURL overrides the provider endpoint.
		BaseURL string `json:"base_url" env:"SUMMARIZER_BASE_URL"`

		// Fallbacks is a comma separated list of providers tried in order.
		Fallbacks string `json:"fallbacks" env:"SUMMARIZER_FALLBACKS"`

		TimeoutSeconds     int  `json:"timeout_seconds" env:"SUMMARIZER_TIMEOUT_SECONDS" validate:"min:1"`
		MaxRetries         int  `json:"max_retries" env:"SUMMARIZER_MAX_RETRIES"`
		RetryDelayMillis   int  `json:"retry_delay_ms" env:"SUMMARIZER_RETRY_DELAY_MS"`
		CacheCapacity      int  `json:"cache_capacity" env:"SUMMARIZER_CACHE_CAPACITY"`
		CacheTTLMinutes    int  `json:"cache_ttl_minutes" env:"SUMMARIZER_CACHE_TTL_MINUTES"`
		ExtractiveFallback bool `json:"extractive_fallback" env:"SUMMARIZER_EXTRACTIVE_FALLBACK"`
		VerifyOnStart      bool `json:"verify_on_start" env:"SUMMARIZER_VERIFY_ON_START"`
	} `json:"summarizer"`

	// Chunking controls how input is split.
	Chunking struct {
		MaxChunkChars int `json:"max_chunk_chars" env:"CHUNK_MAX_CHARS" validate:"min:1"`
	} `json:"chunking"`

	// Defaults are the length settings used when a request leaves them out.
	Defaults struct {
		MaxLength int `json:"max_length" env:"DEFAULT_MAX_LENGTH"`
		MinLength int `json:"min_length" env:"DEFAULT_MIN_LENGTH"`
	} `json:"defaults"`

	// Artifacts configures download storage.
	Artifacts struct {
		// SQLitePath is the database file; ":memory:" keeps artifacts in memory.
		SQLitePath string `json:"sqlite_path" env:"ARTIFACTS_SQLITE_PATH" validate:"required"`
		TTLMinutes int    `json:"ttl_minutes" env:"ARTIFACTS_TTL_MINUTES"`
	} `json:"artifacts"`

	// HTTP configures the HTTP surface.
	HTTP struct {
		Addr              string  `json:"addr" env:"HTTP_ADDR"`
		RequestsPerSecond float64 `json:"requests_per_second" env:"HTTP_REQUESTS_PER_SECOND"`
		Burst             int     `json:"burst" env:"HTTP_BURST"`
		MaxUploadMB       int     `json:"max_upload_mb" env:"HTTP_MAX_UPLOAD_MB"`
	} `json:"http"`

	// Logging contains logging-related configuration.
	Logging struct {
		// Level is the minimum log level to display ("debug", "info", "warn", "error").
		Level string `json:"level" env:"LOG_LEVEL" validate:"required"`

		// Format is the log format to use ("text", "json").
		Format string `json:"format" env:"LOG_FORMAT"`
	} `json:"logging"`

	// Internal state (not saved to config file)
	configPath     string       `json:"-"`
	mutex          sync.RWMutex `json:"-"`
	lastModifiedAt time.Time    `json:"-"`
}

// Default configuration values
const (
	DefaultConfigFilename = ".protextconfig"
	DefaultSQLitePath     = ":memory:"
	DefaultProvider       = providers.ProviderHuggingFace
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
	EnvPrefix             = "PROTEXT"
)

// APIKeyEnvVars names the vendor variable read for each provider when no key
// is configured.
var APIKeyEnvVars = map[string]string{
	providers.ProviderHuggingFace: "HF_API_TOKEN",
	providers.ProviderAnthropic:   "ANTHROPIC_API_KEY",
	providers.ProviderOpenAI:      "OPENAI_API_KEY",
	providers.ProviderGoogle:      "GOOGLE_API_KEY",
	providers.ProviderXAI:         "XAI_API_KEY",
}

// NewConfig creates a new Config instance with default values
func NewConfig() *Config {
	config := &Config{}
	config.Summarizer.Provider = DefaultProvider
	config.Summarizer.TimeoutSeconds = int(summarizer.DefaultTimeout / time.Second)
	config.Summarizer.MaxRetries = summarizer.DefaultMaxRetries
	config.Summarizer.RetryDelayMillis = int(summarizer.DefaultRetryDelay / time.Millisecond)
	config.Summarizer.CacheCapacity = summarizer.DefaultCacheCapacity
	config.Summarizer.CacheTTLMinutes = int(summarizer.DefaultCacheTTL / time.Minute)
	config.Chunking.MaxChunkChars = 500
	config.Defaults.MaxLength = summarizer.DefaultMaxLength
	config.Defaults.MinLength = summarizer.DefaultMinLength
	config.Artifacts.SQLitePath = DefaultSQLitePath
	config.Artifacts.TTLMinutes = 60
	config.HTTP.Addr = ":8080"
	config.HTTP.RequestsPerSecond = 5
	config.HTTP.Burst = 10
	config.HTTP.MaxUploadMB = 20
	config.Logging.Level = DefaultLogLevel
	config.Logging.Format = DefaultLogFormat
	return config
}

// LoadConfig loads the configuration from the default path
func LoadConfig() (*Config, error) {
	return LoadConfigWithPath(DefaultConfigFilename)
}

// LoadConfigWithPath loads the configuration from a specific path. A missing
// file is not an error; defaults and environment variables still apply.
func LoadConfigWithPath(configPath string) (*Config, error) {
	// stdout belongs to the MCP transport.
	stdLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelWarn,
	}))

	cfg := NewConfig()

	if configPath == "" {
		configPath = DefaultConfigFilename
	}
	if configPath == DefaultConfigFilename {
		foundPath, err := configurator.FindConfigFile(configPath)
		if err == nil {
			configPath = foundPath
			stdLogger.Debug("Found config file at " + foundPath)
		}
	}

	config := configurator.New(stdLogger).
		WithProvider(configurator.NewDefaultProvider())
	if _, err := os.Stat(configPath); err == nil {
		config = config.WithProvider(configurator.NewFileProvider(configPath))
	} else {
		stdLogger.Debug("Config file not found, using defaults and environment", "path", configPath)
	}
	config = config.
		WithProvider(configurator.NewEnvProvider(EnvPrefix)).
		WithValidator(configurator.NewDefaultValidator())

	if err := config.Load(context.Background(), cfg); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cfg.configPath = configPath
	cfg.lastModifiedAt = time.Now()

	return cfg, nil
}

// Validate checks constraints the struct tags cannot express.
func (c *Config) Validate() error {
	switch {
	case c.Defaults.MaxLength < 30 || c.Defaults.MaxLength > 300:
		return fmt.Errorf("invalid configuration: defaults.max_length must be between 30 and 300")
	case c.Defaults.MinLength < 10 || c.Defaults.MinLength > 100:
		return fmt.Errorf("invalid configuration: defaults.min_length must be between 10 and 100")
	case c.Defaults.MinLength > c.Defaults.MaxLength:
		return fmt.Errorf("invalid configuration: defaults.min_length cannot exceed defaults.max_length")
	case c.Chunking.MaxChunkChars < 1:
		return fmt.Errorf("invalid configuration: chunking.max_chunk_chars must be positive")
	}
	return nil
}

// SaveToFile saves the configuration to the specified file
func (c *Config) SaveToFile(path string) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	if err := configurator.SaveToFile(c, path, configurator.FormatJSON); err != nil {
		return fmt.Errorf("failed to save configuration: %w", err)
	}

	c.configPath = path
	c.lastModifiedAt = time.Now()

	return nil
}

// Save saves the configuration to the last used file path
func (c *Config) Save() error {
	if c.configPath == "" {
		c.configPath = DefaultConfigFilename
	}
	return c.SaveToFile(c.configPath)
}

// GetConfigPath returns the path of the currently loaded configuration file
func (c *Config) GetConfigPath() string {
	return c.configPath
}

// FallbackProviders returns the configured fallback provider names.
func (c *Config) FallbackProviders() []string {
	var names []string
	for _, name := range strings.Split(c.Summarizer.Fallbacks, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}
	return names
}

// ResolveAPIKey returns the configured key when provider is the primary
// provider and set, otherwise the provider's vendor environment variable.
func (c *Config) ResolveAPIKey(provider string) string {
	if provider == c.Summarizer.Provider && c.Summarizer.APIKey != "" {
		return c.Summarizer.APIKey
	}
	if env, ok := APIKeyEnvVars[provider]; ok {
		return os.Getenv(env)
	}
	return ""
}

// SummarizerConfig converts the summarizer section for summarizer.NewHandle.
func (c *Config) SummarizerConfig() *summarizer.AISummarizerConfig {
	s := c.Summarizer
	out := &summarizer.AISummarizerConfig{
		ProviderName:       s.Provider,
		ModelID:            s.Model,
		APIKey:             c.ResolveAPIKey(s.Provider),
		BaseURL:            s.BaseURL,
		Timeout:            time.Duration(s.TimeoutSeconds) * time.Second,
		MaxRetries:         s.MaxRetries,
		RetryDelay:         time.Duration(s.RetryDelayMillis) * time.Millisecond,
		CacheCapacity:      s.CacheCapacity,
		CacheTTL:           time.Duration(s.CacheTTLMinutes) * time.Minute,
		ExtractiveFallback: s.ExtractiveFallback,
	}
	for _, name := range c.FallbackProviders() {
		out.FallbackProviders = append(out.FallbackProviders, summarizer.FallbackConfig{
			Name:   name,
			APIKey: c.ResolveAPIKey(name),
		})
	}
	return out
}

// ArtifactTTL returns how long downloads are kept.
func (c *Config) ArtifactTTL() time.Duration {
	return time.Duration(c.Artifacts.TTLMinutes) * time.Minute
}
