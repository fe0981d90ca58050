package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

var configEnv = []string{
	"RFPAGENT_CONFIG", "PORT", "LOG_LEVEL", "RFPAGENT_API_KEY",
	"DATABASE_DRIVER", "DATABASE_URL", "LLM_PROVIDER",
	"GEMINI_API_KEY", "GEMINI_MODEL", "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL",
	"LLM_TIMEOUT", "MAX_PROMPT_CHARS", "LLM_STATS_WINDOW", "CHUNK_SIZE", "CHUNK_OVERLAP",
	"MAX_DOWNLOAD_BYTES", "DOWNLOAD_TIMEOUT", "DOWNLOAD_RETRIES", "PDF_FALLBACK_PDFTOTEXT",
}

// clearEnv blanks every variable Load reads; an empty value means unset.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8000" || cfg.DatabaseDriver != "sqlite" || cfg.LLMProvider != "gemini" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if cfg.ChunkSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("unexpected chunking %d/%d", cfg.ChunkSize, cfg.ChunkOverlap)
	}
	if cfg.LLMTimeout != 60*time.Second || cfg.MaxPromptChars != 200000 {
		t.Errorf("unexpected llm limits %v/%d", cfg.LLMTimeout, cfg.MaxPromptChars)
	}
	if !cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback on by default")
	}
	if cfg.Model() != "" {
		t.Errorf("expected no model by default, got %q", cfg.Model())
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9001")
	t.Setenv("GEMINI_MODEL", "gemini-1.5-flash")
	t.Setenv("LLM_TIMEOUT", "5s")
	t.Setenv("CHUNK_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "not-a-number")
	t.Setenv("PDF_FALLBACK_PDFTOTEXT", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Port != "9001" || cfg.Model() != "gemini-1.5-flash" {
		t.Errorf("env not applied: %+v", cfg)
	}
	if cfg.LLMTimeout != 5*time.Second || cfg.ChunkSize != 500 {
		t.Errorf("unexpected timeout/size %v/%d", cfg.LLMTimeout, cfg.ChunkSize)
	}
	if cfg.ChunkOverlap != 200 {
		t.Errorf("invalid int should keep default, got %d", cfg.ChunkOverlap)
	}
	if cfg.PDFFallbackPdftotext {
		t.Error("expected pdftotext fallback disabled")
	}
}

func TestLoad_YAMLFileThenEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "rfpagent.yaml")
	yamlDoc := `port: "7000"
log_level: debug
llm_provider: anthropic
anthropic_model: claude-sonnet-4-5
llm_timeout: 90s
database_driver: pgx
database_url: postgres://rfp@localhost/rfp
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("RFPAGENT_CONFIG", path)
	t.Setenv("PORT", "7100")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "7100" {
		t.Errorf("env should win over file, got port %q", cfg.Port)
	}
	if cfg.LogLevel != "debug" || cfg.SlogLevel() != slog.LevelDebug {
		t.Errorf("unexpected log level %q", cfg.LogLevel)
	}
	if cfg.Model() != "claude-sonnet-4-5" || cfg.LLMTimeout != 90*time.Second {
		t.Errorf("unexpected model settings %q %v", cfg.Model(), cfg.LLMTimeout)
	}
	if cfg.DatabaseDriver != "pgx" {
		t.Errorf("unexpected driver %q", cfg.DatabaseDriver)
	}
	if cfg.ChunkSize != 1000 {
		t.Errorf("unset file keys should keep defaults, got %d", cfg.ChunkSize)
	}
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Setenv("RFPAGENT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))
	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		c := defaults()
		c.APIKey = "k"
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"valid", func(*Config) {}, nil},
		{"missing api key", func(c *Config) { c.APIKey = "" }, ErrMissingAPIKey},
		{"bad log level", func(c *Config) { c.LogLevel = "verbose" }, ErrInvalidLogLevel},
		{"bad driver", func(c *Config) { c.DatabaseDriver = "mysql" }, ErrInvalidDriver},
		{"bad provider", func(c *Config) { c.LLMProvider = "openai" }, ErrInvalidProvider},
		{"model without key", func(c *Config) { c.GeminiModel = "gemini-pro" }, ErrMissingModelKey},
		{"overlap too large", func(c *Config) { c.ChunkOverlap = 1000 }, ErrInvalidChunking},
		{"prompt size", func(c *Config) { c.MaxPromptChars = 0 }, ErrInvalidPromptSize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := c.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}
