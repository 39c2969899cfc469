package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the WasteWise server and worker.
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Extraction ExtractionConfig
	Report     ReportConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Port int
	Env  string
}

type DatabaseConfig struct {
	URL             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type RedisConfig struct {
	URL string
}

type ExtractionConfig struct {
	Provider  string
	Timeout   time.Duration
	Anthropic AnthropicConfig
	OpenAI    OpenAIConfig
}

type AnthropicConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type OpenAIConfig struct {
	BaseURL string
	APIKey  string
	Model   string
}

type ReportConfig struct {
	BaseURL string
	Timeout time.Duration
}

type WorkerConfig struct {
	PollInterval  time.Duration
	MaxConcurrent int
	MaxAttempts   int
	StaleAfter    time.Duration
}

var validProviders = map[string]bool{
	"anthropic": true,
	"openai":    true,
	"mock":      true,
}

// Load reads configuration from environment variables and returns a validated
// Config. Returns an error with a descriptive message if any required value
// is missing or invalid — the process never starts half-configured.
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: envInt("WASTEWISE_PORT", 8080),
			Env:  envString("WASTEWISE_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			MaxOpenConns:    envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    envInt("DATABASE_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: envDuration("DATABASE_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			URL: os.Getenv("REDIS_URL"),
		},
		Extraction: ExtractionConfig{
			Provider: os.Getenv("EXTRACTION_PROVIDER"),
			Timeout:  envDurationSecs("EXTRACTION_TIMEOUT_SECS", 120*time.Second),
			Anthropic: AnthropicConfig{
				BaseURL: envString("ANTHROPIC_BASE_URL", "https://api.anthropic.com"),
				APIKey:  os.Getenv("ANTHROPIC_API_KEY"),
				Model:   envString("ANTHROPIC_MODEL", "claude-sonnet-4-5-20250929"),
			},
			OpenAI: OpenAIConfig{
				BaseURL: envString("OPENAI_BASE_URL", "https://api.openai.com"),
				APIKey:  os.Getenv("OPENAI_API_KEY"),
				Model:   envString("OPENAI_MODEL", "gpt-4o"),
			},
		},
		Report: ReportConfig{
			BaseURL: os.Getenv("REPORT_BASE_URL"),
			Timeout: envDurationSecs("REPORT_TIMEOUT_SECS", 60*time.Second),
		},
		Worker: WorkerConfig{
			PollInterval:  envDuration("WORKER_POLL_INTERVAL", 5*time.Second),
			MaxConcurrent: envInt("WORKER_MAX_CONCURRENT", 1),
			MaxAttempts:   envInt("WORKER_MAX_ATTEMPTS", 3),
			StaleAfter:    envDuration("WORKER_STALE_AFTER", 10*time.Minute),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Redis.URL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.Extraction.Provider == "" {
		return fmt.Errorf("EXTRACTION_PROVIDER is required")
	}
	if !validProviders[c.Extraction.Provider] {
		return fmt.Errorf("EXTRACTION_PROVIDER must be one of anthropic, openai, mock; got %q", c.Extraction.Provider)
	}

	if c.Extraction.Provider == "anthropic" && c.Extraction.Anthropic.APIKey == "" {
		return fmt.Errorf("ANTHROPIC_API_KEY is required when EXTRACTION_PROVIDER is anthropic")
	}
	if c.Extraction.Provider == "openai" && c.Extraction.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required when EXTRACTION_PROVIDER is openai")
	}

	if c.Report.BaseURL != "" &&
		!strings.HasPrefix(c.Report.BaseURL, "http://") && !strings.HasPrefix(c.Report.BaseURL, "https://") {
		return fmt.Errorf("REPORT_BASE_URL must start with http:// or https://, got %q", c.Report.BaseURL)
	}

	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("WORKER_POLL_INTERVAL must be positive, got %s", c.Worker.PollInterval)
	}
	if c.Worker.MaxConcurrent < 1 {
		return fmt.Errorf("WORKER_MAX_CONCURRENT must be at least 1, got %d", c.Worker.MaxConcurrent)
	}
	if c.Worker.MaxAttempts < 1 {
		return fmt.Errorf("WORKER_MAX_ATTEMPTS must be at least 1, got %d", c.Worker.MaxAttempts)
	}
	if c.Worker.StaleAfter <= 0 {
		return fmt.Errorf("WORKER_STALE_AFTER must be positive, got %s", c.Worker.StaleAfter)
	}

	return nil
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func envDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}

func envDurationSecs(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	secs, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return time.Duration(secs) * time.Second
}
