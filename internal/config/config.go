package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Validation errors.
var (
	ErrMissingAPIKey     = errors.New("RFPAGENT_API_KEY is required")
	ErrInvalidLogLevel   = errors.New("log_level must be one of: debug, info, warn, error")
	ErrInvalidDriver     = errors.New("database_driver must be sqlite or pgx")
	ErrInvalidProvider   = errors.New("llm_provider must be gemini or anthropic")
	ErrMissingModelKey   = errors.New("an API key is required for the configured model")
	ErrInvalidChunking   = errors.New("chunk_overlap must be smaller than chunk_size")
	ErrInvalidPromptSize = errors.New("max_prompt_chars must be positive")
)

type Config struct {
	Port     string `yaml:"port"`
	LogLevel string `yaml:"log_level"`

	// Auth
	APIKey string `yaml:"api_key"`

	// Storage
	DatabaseDriver string `yaml:"database_driver"`
	DatabaseURL    string `yaml:"database_url"`

	// Model. Extraction runs without a model when the selected
	// provider's model name is empty.
	LLMProvider     string        `yaml:"llm_provider"`
	GeminiAPIKey    string        `yaml:"gemini_api_key"`
	GeminiModel     string        `yaml:"gemini_model"`
	AnthropicAPIKey string        `yaml:"anthropic_api_key"`
	AnthropicModel  string        `yaml:"anthropic_model"`
	LLMTimeout      time.Duration `yaml:"llm_timeout"`
	MaxPromptChars  int           `yaml:"max_prompt_chars"`
	StatsWindow     time.Duration `yaml:"stats_window"`

	// Chunking
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	// Downloads
	MaxDownloadBytes int64         `yaml:"max_download_bytes"`
	DownloadTimeout  time.Duration `yaml:"download_timeout"`
	DownloadRetries  int           `yaml:"download_retries"`

	// PDF
	PDFFallbackPdftotext bool `yaml:"pdf_fallback_pdftotext"`
}

func defaults() Config {
	return Config{
		Port:                 "8000",
		LogLevel:             "info",
		DatabaseDriver:       "sqlite",
		DatabaseURL:          "rfpagent.db",
		LLMProvider:          "gemini",
		LLMTimeout:           60 * time.Second,
		MaxPromptChars:       200000,
		StatsWindow:          time.Hour,
		ChunkSize:            1000,
		ChunkOverlap:         200,
		MaxDownloadBytes:     52428800, // 50MB
		DownloadTimeout:      30 * time.Second,
		DownloadRetries:      3,
		PDFFallbackPdftotext: true,
	}
}

// Load builds the configuration from defaults, the YAML file named by
// RFPAGENT_CONFIG (if any), and finally environment variables.
func Load() (Config, error) {
	cfg := defaults()

	if path := os.Getenv("RFPAGENT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return Config{}, err
		}
	}
	cfg.applyEnv()

	if cfg.LLMTimeout <= 0 {
		cfg.LLMTimeout = 60 * time.Second
	}
	if cfg.StatsWindow <= 0 {
		cfg.StatsWindow = time.Hour
	}
	if cfg.MaxDownloadBytes <= 0 {
		cfg.MaxDownloadBytes = 52428800
	}
	if cfg.DownloadTimeout <= 0 {
		cfg.DownloadTimeout = 30 * time.Second
	}
	if cfg.DownloadRetries < 0 {
		cfg.DownloadRetries = 0
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 1000
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 200
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOr("PORT", c.Port)
	c.LogLevel = envOr("LOG_LEVEL", c.LogLevel)
	c.APIKey = envOr("RFPAGENT_API_KEY", c.APIKey)

	c.DatabaseDriver = envOr("DATABASE_DRIVER", c.DatabaseDriver)
	c.DatabaseURL = envOr("DATABASE_URL", c.DatabaseURL)

	c.LLMProvider = strings.ToLower(envOr("LLM_PROVIDER", c.LLMProvider))
	c.GeminiAPIKey = envOr("GEMINI_API_KEY", c.GeminiAPIKey)
	c.GeminiModel = envOr("GEMINI_MODEL", c.GeminiModel)
	c.AnthropicAPIKey = envOr("ANTHROPIC_API_KEY", c.AnthropicAPIKey)
	c.AnthropicModel = envOr("ANTHROPIC_MODEL", c.AnthropicModel)
	c.LLMTimeout = envDuration("LLM_TIMEOUT", c.LLMTimeout)
	c.MaxPromptChars = envInt("MAX_PROMPT_CHARS", c.MaxPromptChars)
	c.StatsWindow = envDuration("LLM_STATS_WINDOW", c.StatsWindow)

	c.ChunkSize = envInt("CHUNK_SIZE", c.ChunkSize)
	c.ChunkOverlap = envInt("CHUNK_OVERLAP", c.ChunkOverlap)

	c.MaxDownloadBytes = envInt64("MAX_DOWNLOAD_BYTES", c.MaxDownloadBytes)
	c.DownloadTimeout = envDuration("DOWNLOAD_TIMEOUT", c.DownloadTimeout)
	c.DownloadRetries = envInt("DOWNLOAD_RETRIES", c.DownloadRetries)

	c.PDFFallbackPdftotext = envBool("PDF_FALLBACK_PDFTOTEXT", c.PDFFallbackPdftotext)
}

func (c Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	if _, ok := parseLevel(c.LogLevel); !ok {
		return ErrInvalidLogLevel
	}
	switch c.DatabaseDriver {
	case "sqlite", "pgx":
	default:
		return fmt.Errorf("%w: %q", ErrInvalidDriver, c.DatabaseDriver)
	}
	switch c.LLMProvider {
	case "gemini":
		if c.GeminiModel != "" && c.GeminiAPIKey == "" {
			return fmt.Errorf("%w: GEMINI_API_KEY", ErrMissingModelKey)
		}
	case "anthropic":
		if c.AnthropicModel != "" && c.AnthropicAPIKey == "" {
			return fmt.Errorf("%w: ANTHROPIC_API_KEY", ErrMissingModelKey)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidProvider, c.LLMProvider)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return ErrInvalidChunking
	}
	if c.MaxPromptChars <= 0 {
		return ErrInvalidPromptSize
	}
	return nil
}

// Model returns the model name for the selected provider, or "" when
// extraction should run without a model.
func (c Config) Model() string {
	if c.LLMProvider == "anthropic" {
		return c.AnthropicModel
	}
	return c.GeminiModel
}

// SlogLevel returns the configured log level, defaulting to info.
func (c Config) SlogLevel() slog.Level {
	lvl, _ := parseLevel(c.LogLevel)
	return lvl
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info", "":
		return slog.LevelInfo, true
	case "warn":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
