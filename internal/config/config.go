package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Config holds all configuration for Observa
type Config struct {
	Database  DatabaseConfig  `json:"database"`
	Server    ServerConfig    `json:"server"`
	LLM       LLMConfig       `json:"llm"`
	Embedding EmbeddingConfig `json:"embedding"`
	Prompts   PromptsConfig   `json:"prompts"`
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	PostgresURL string `json:"postgres_url"`
}

// ServerConfig holds API server configuration
type ServerConfig struct {
	Host        string   `json:"host"`
	Port        int      `json:"port"`
	CORSOrigins []string `json:"cors_origins"` // Allowed CORS origins
}

// LLMConfig holds the OpenAI-compatible API used to execute dataset runs
// and to grade LLM-judge evaluations
type LLMConfig struct {
	URL         string  `json:"url"`
	APIKey      string  `json:"api_key"`
	Model       string  `json:"model"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
	// Per-token prices used to compute trace cost
	InputTokenCost  float64 `json:"input_token_cost"`
	OutputTokenCost float64 `json:"output_token_cost"`
}

// EmbeddingConfig holds embedding API configuration for similarity search
type EmbeddingConfig struct {
	URL        string `json:"url"`
	APIKey     string `json:"api_key"`
	Model      string `json:"model"`      // e.g., "text-embedding-3-small"
	Dimensions int    `json:"dimensions"` // e.g., 1536 for text-embedding-3-small
}

// PromptsConfig holds prompt resolution defaults
type PromptsConfig struct {
	// CacheTTLSeconds controls how long fetched versions are served from
	// the in-process cache. Zero keeps the built-in default.
	CacheTTLSeconds int `json:"cache_ttl_seconds"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			PostgresURL: "",
		},
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			CORSOrigins: []string{"http://localhost:3000"},
		},
		LLM: LLMConfig{
			URL:         "http://localhost:8000/v1",
			APIKey:      "",
			Model:       "Qwen/Qwen3-8B-AWQ",
			MaxTokens:   4096,
			Temperature: 0.7,
		},
		Embedding: EmbeddingConfig{
			URL:        "http://localhost:11434/v1",
			APIKey:     "",
			Model:      "text-embedding-3-small",
			Dimensions: 1536,
		},
		Prompts: PromptsConfig{},
	}
}

// envString loads a string environment variable into the target pointer if set
func envString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

// envInt loads an integer environment variable into the target pointer if set and valid
func envInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			*target = i
		}
	}
}

// envFloat loads a float64 environment variable into the target pointer if set and valid
func envFloat(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		}
	}
}

// envStringSlice loads a comma-separated environment variable into a string slice
func envStringSlice(key string, target *[]string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, part := range parts {
			if trimmed := strings.TrimSpace(part); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		if len(result) > 0 {
			*target = result
		}
	}
}

// Load loads configuration from the config file and environment variables.
// Environment variables win over the file.
func Load() (*Config, error) {
	cfg := DefaultConfig()

	configPath := getConfigPath()
	if data, err := os.ReadFile(configPath); err == nil {
		if err := json.Unmarshal(data, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse config file %s: %v\n", configPath, err)
		}
	}

	envString("OBSERVA_POSTGRES_URL", &cfg.Database.PostgresURL)

	envString("OBSERVA_SERVER_HOST", &cfg.Server.Host)
	envInt("OBSERVA_SERVER_PORT", &cfg.Server.Port)
	envStringSlice("OBSERVA_CORS_ORIGINS", &cfg.Server.CORSOrigins)

	envString("OBSERVA_LLM_URL", &cfg.LLM.URL)
	envString("OBSERVA_LLM_API_KEY", &cfg.LLM.APIKey)
	envString("OBSERVA_LLM_MODEL", &cfg.LLM.Model)
	envInt("OBSERVA_LLM_MAX_TOKENS", &cfg.LLM.MaxTokens)
	envFloat("OBSERVA_LLM_TEMPERATURE", &cfg.LLM.Temperature)
	envFloat("OBSERVA_LLM_INPUT_TOKEN_COST", &cfg.LLM.InputTokenCost)
	envFloat("OBSERVA_LLM_OUTPUT_TOKEN_COST", &cfg.LLM.OutputTokenCost)

	envString("OBSERVA_EMBEDDING_URL", &cfg.Embedding.URL)
	envString("OBSERVA_EMBEDDING_API_KEY", &cfg.Embedding.APIKey)
	envString("OBSERVA_EMBEDDING_MODEL", &cfg.Embedding.Model)
	envInt("OBSERVA_EMBEDDING_DIMENSIONS", &cfg.Embedding.Dimensions)

	envInt("OBSERVA_PROMPT_CACHE_TTL", &cfg.Prompts.CacheTTLSeconds)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// getConfigPath returns the config file location, overridable via env
func getConfigPath() string {
	if p := os.Getenv("OBSERVA_CONFIG"); p != "" {
		return p
	}
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".observa", "config.json")
}

// IsEmbeddingConfigured returns true if embedding service is configured
func (c *Config) IsEmbeddingConfigured() bool {
	return c.Embedding.URL != ""
}

// isValidURL validates that a URL has proper format
func isValidURL(urlStr string) bool {
	u, err := url.Parse(urlStr)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// Validate checks that the configuration has valid values
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, "server port must be between 1 and 65535")
	}

	if c.LLM.URL != "" && !isValidURL(c.LLM.URL) {
		errs = append(errs, "llm url is not a valid URL")
	}
	if c.LLM.MaxTokens < 0 {
		errs = append(errs, "llm max_tokens must not be negative")
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errs = append(errs, "llm temperature must be between 0 and 2")
	}

	if c.Embedding.URL != "" && !isValidURL(c.Embedding.URL) {
		errs = append(errs, "embedding url is not a valid URL")
	}
	if c.Embedding.Dimensions < 0 {
		errs = append(errs, "embedding dimensions must not be negative")
	}

	if c.Prompts.CacheTTLSeconds < 0 {
		errs = append(errs, "prompt cache ttl must not be negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}
