// Package config loads waypoint configuration from YAML with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all waypoint configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Decision DecisionConfig `yaml:"decision"`
	Search   SearchConfig   `yaml:"search"`
	Events   EventsConfig   `yaml:"events"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Bind string `yaml:"bind"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"` // empty resolves to ~/.waypoint/waypoint.db
}

type LLMConfig struct {
	Provider          string  `yaml:"provider"` // "anthropic", "ollama", "openai", "claude-cli", "none"
	Model             string  `yaml:"model"`
	AnthropicKey      string  `yaml:"anthropic_key"`
	OllamaURL         string  `yaml:"ollama_url"`
	OpenAIURL         string  `yaml:"openai_url"` // any OpenAI-compatible /v1 endpoint
	OpenAIKey         string  `yaml:"openai_key"`
	EmbeddingProvider string  `yaml:"embedding_provider"` // "ollama", "openai", "tfidf"
	EmbeddingModel    string  `yaml:"embedding_model"`
	Temperature       float64 `yaml:"temperature"`
	MaxTokens         int     `yaml:"max_tokens"`
	MaxRetries        int     `yaml:"max_retries"`
}

type DecisionConfig struct {
	Timeout            time.Duration `yaml:"timeout"`
	RerankTimeout      time.Duration `yaml:"rerank_timeout"`
	MemoryContextLimit int           `yaml:"memory_context_limit"`
}

type SearchConfig struct {
	DefaultLimit  int     `yaml:"default_limit"`
	KeyTypeBoost  float64 `yaml:"key_type_boost"`
	LexicalWeight float64 `yaml:"lexical_weight"`
	VectorWeight  float64       `yaml:"vector_weight"`
	Rerank        bool          `yaml:"rerank"`
	Timeout       time.Duration `yaml:"timeout"` // bounds query embedding and the vector query
}

type EventsConfig struct {
	NATSURL       string `yaml:"nats_url"` // empty disables publication
	SubjectPrefix string `yaml:"subject_prefix"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bind: "127.0.0.1",
			Port: 37780,
		},
		LLM: LLMConfig{
			Provider:          "ollama",
			Model:             "llama3.2",
			OllamaURL:         "http://localhost:11434",
			OpenAIURL:         "https://api.openai.com/v1",
			EmbeddingProvider: "ollama",
			EmbeddingModel:    "nomic-embed-text",
			Temperature:       0.3,
			MaxTokens:         2048,
			MaxRetries:        2,
		},
		Decision: DecisionConfig{
			Timeout:            20 * time.Second,
			RerankTimeout:      5 * time.Second,
			MemoryContextLimit: 5,
		},
		Search: SearchConfig{
			DefaultLimit:  10,
			KeyTypeBoost:  3.0,
			LexicalWeight: 0.5,
			VectorWeight:  1.0,
			Rerank:        true,
			Timeout:       5 * time.Second,
		},
		Events: EventsConfig{
			SubjectPrefix: "waypoint",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultDir returns ~/.waypoint.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("get home dir: %w", err)
	}
	return filepath.Join(home, ".waypoint"), nil
}

// DefaultPath returns ~/.waypoint/config.yaml.
func DefaultPath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the YAML file at path over the defaults. A missing file yields defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ApplyEnv overlays environment variables onto cfg.
func (c *Config) ApplyEnv() {
	if v := os.Getenv("WAYPOINT_DB"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		c.LLM.AnthropicKey = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		c.LLM.OpenAIKey = v
	}
	if v := os.Getenv("OLLAMA_HOST"); v != "" {
		c.LLM.OllamaURL = v
	}
	if v := os.Getenv("WAYPOINT_NATS_URL"); v != "" {
		c.Events.NATSURL = v
	}
}

var validProviders = map[string]bool{
	"anthropic": true, "ollama": true, "openai": true, "claude-cli": true, "none": true,
}

var validEmbedders = map[string]bool{
	"ollama": true, "openai": true, "tfidf": true,
}

// Validate rejects out-of-range values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535, got %d", c.Server.Port)
	}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("llm.provider %q is not one of anthropic, ollama, openai, claude-cli, none", c.LLM.Provider)
	}
	if !validEmbedders[c.LLM.EmbeddingProvider] {
		return fmt.Errorf("llm.embedding_provider %q is not one of ollama, openai, tfidf", c.LLM.EmbeddingProvider)
	}
	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		return fmt.Errorf("llm.temperature must be between 0 and 2")
	}
	if c.LLM.MaxRetries < 0 {
		return fmt.Errorf("llm.max_retries must be >= 0")
	}
	if c.Decision.Timeout <= 0 {
		return fmt.Errorf("decision.timeout must be positive")
	}
	if c.Decision.RerankTimeout <= 0 {
		return fmt.Errorf("decision.rerank_timeout must be positive")
	}
	if c.Decision.MemoryContextLimit < 0 {
		return fmt.Errorf("decision.memory_context_limit must be >= 0")
	}
	if c.Search.DefaultLimit <= 0 {
		return fmt.Errorf("search.default_limit must be positive")
	}
	if c.Search.KeyTypeBoost <= 0 {
		return fmt.Errorf("search.key_type_boost must be positive")
	}
	if c.Search.LexicalWeight < 0 || c.Search.VectorWeight < 0 {
		return fmt.Errorf("search weights must be >= 0")
	}
	if c.Search.Timeout <= 0 {
		return fmt.Errorf("search.timeout must be positive")
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is not one of debug, info, warn, error", c.Log.Level)
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// DatabasePath returns the configured database path or ~/.waypoint/waypoint.db.
func (c *Config) DatabasePath() (string, error) {
	if c.Database.Path != "" {
		return c.Database.Path, nil
	}
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "waypoint.db"), nil
}

// ListenAddr returns the bind:port address string.
func (c *Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Server.Bind, c.Server.Port)
}
