package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config is the process-level configuration loaded from TOML with env
// overrides. Runtime policy (prefilter, match weights, AI routing) lives in
// the KV store and is loaded separately by the policy loader.
type Config struct {
	Environment string        `toml:"environment"`
	Server      ServerConfig  `toml:"server"`
	Storage     StorageConfig `toml:"storage"`
	Queue       QueueConfig   `toml:"queue"`
	Logging     LoggingConfig `toml:"logging"`
	Fetcher     FetcherConfig `toml:"fetcher"`
	Search      SearchConfig  `toml:"search"`
	Policies    PolicyConfig  `toml:"policies"`
	AI          AIConfig      `toml:"ai"`
}

type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig holds BadgerDB-specific settings.
type BadgerConfig struct {
	Path           string `toml:"path"`
	ResetOnStartup bool   `toml:"reset_on_startup"`
}

type QueueConfig struct {
	Name string `toml:"name"`
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // debug, info, warn, error
	Output []string `toml:"output"` // stdout, file
}

// FetcherConfig bounds the HTML fetcher.
type FetcherConfig struct {
	UserAgent           string        `toml:"user_agent"`
	RequestTimeout      time.Duration `toml:"request_timeout"`
	MaxRedirects        int           `toml:"max_redirects"`
	MaxHTMLSampleLength int           `toml:"max_html_sample_length"`
	RateLimitPerSecond  int           `toml:"rate_limit_per_second"`
}

// SearchConfig selects the web search provider pair.
type SearchConfig struct {
	Provider         string `toml:"provider"` // primary provider name
	FallbackProvider string `toml:"fallback_provider"`
	APIKey           string `toml:"api_key"`
	EngineID         string `toml:"engine_id"` // google custom search cx
}

// PolicyConfig points at the seed directory for policy blobs.
type PolicyConfig struct {
	SeedDir string `toml:"seed_dir"` // TOML files seeding missing KV blobs
}

// AIConfig carries provider credentials; routing lives in ai-settings.
type AIConfig struct {
	AnthropicAPIKey string `toml:"anthropic_api_key"`
	GeminiAPIKey    string `toml:"gemini_api_key"`
}

// LoadConfig reads the TOML config file, applies env overrides and
// defaults, and validates the result.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host: "localhost",
			Port: 8085,
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{Path: "./data/venari"},
		},
		Queue: QueueConfig{Name: "tasks"},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
		Fetcher: FetcherConfig{
			UserAgent:           "venari/1.0 (+https://github.com/ternarybob/venari)",
			RequestTimeout:      30 * time.Second,
			MaxRedirects:        5,
			MaxHTMLSampleLength: 20000,
			RateLimitPerSecond:  4,
		},
		Search: SearchConfig{
			Provider:         "google",
			FallbackProvider: "duckduckgo",
		},
		Policies: PolicyConfig{SeedDir: "./policies"},
	}
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("VENARI_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("VENARI_BADGER_PATH"); v != "" {
		cfg.Storage.Badger.Path = v
	}
	if v := os.Getenv("VENARI_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		cfg.AI.AnthropicAPIKey = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.AI.GeminiAPIKey = v
	}
	if v := os.Getenv("VENARI_SEARCH_API_KEY"); v != "" {
		cfg.Search.APIKey = v
	}
	if v := os.Getenv("VENARI_SEARCH_ENGINE_ID"); v != "" {
		cfg.Search.EngineID = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.Badger.Path == "" {
		return fmt.Errorf("storage.badger.path is required")
	}
	if c.Fetcher.RequestTimeout <= 0 {
		return fmt.Errorf("fetcher.request_timeout must be positive")
	}
	if c.Fetcher.MaxRedirects < 0 {
		return fmt.Errorf("fetcher.max_redirects must be non-negative")
	}
	return nil
}
