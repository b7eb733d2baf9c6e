package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"confluencekb/internal/domain/kb"
)

// AppConfig is the whole application's configuration. Loaded once at startup,
// then sliced up per module.
type AppConfig struct {
	LogLevel   string           `json:"log_level"`
	LogFormat  string           `json:"log_format"`
	Server     ServerConfig     `json:"server"`
	Database   DatabaseConfig   `json:"database"`
	Redis      RedisConfig      `json:"redis"`
	Confluence ConfluenceConfig `json:"confluence"`
	Anthropic  AnthropicConfig  `json:"anthropic"`
	OpenAI     OpenAIConfig     `json:"openai"`
	Auth       AuthConfig       `json:"auth"`
	KB         kb.Config        `json:"kb"`
}

type ServerConfig struct {
	Host                string `json:"host"`
	Port                int    `json:"port"`
	ReadTimeoutSeconds  int    `json:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `json:"write_timeout_seconds"`
}

type DatabaseConfig struct {
	URL                    string `json:"url"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
}

type RedisConfig struct {
	URL string `json:"url"`
}

type ConfluenceConfig struct {
	URL      string `json:"url"`
	Username string `json:"username"`
	APIToken string `json:"api_token"`
	SpaceKey string `json:"space_key"`
}

type AnthropicConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type OpenAIConfig struct {
	APIKey  string `json:"api_key"`
	BaseURL string `json:"base_url"`
}

type AuthConfig struct {
	JWTSecret string `json:"jwt_secret"`
	JWTIssuer string `json:"jwt_issuer"`
}

// Default returns the built-in defaults.
func Default() *AppConfig {
	return &AppConfig{
		LogLevel:  "info",
		LogFormat: "text",
		Server: ServerConfig{
			Host:                "0.0.0.0",
			Port:                8080,
			ReadTimeoutSeconds:  30,
			WriteTimeoutSeconds: 120,
		},
		Database: DatabaseConfig{
			MaxOpenConns:           25,
			MaxIdleConns:           5,
			ConnMaxLifetimeSeconds: 300,
		},
		Anthropic: AnthropicConfig{
			BaseURL: "https://api.anthropic.com",
		},
		OpenAI: OpenAIConfig{
			BaseURL: "https://api.openai.com/v1",
		},
		KB: *kb.DefaultConfig(),
	}
}

// Load layers defaults, an optional JSON file (APP_CONFIG_FILE) and
// environment variables, in that order. A .env file is honored when present.
func Load() (*AppConfig, error) {
	_ = godotenv.Load() // .env is optional

	cfg := Default()

	if path := strings.TrimSpace(os.Getenv("APP_CONFIG_FILE")); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	cfg.normalize()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read APP_CONFIG_FILE %q failed: %w", path, err)
	}
	if err := json.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse APP_CONFIG_FILE %q failed: %w", path, err)
	}
	return nil
}

func (c *AppConfig) applyEnv() {
	applyString("LOG_LEVEL", &c.LogLevel)
	applyString("LOG_FORMAT", &c.LogFormat)

	applyString("HOST", &c.Server.Host)
	applyInt("PORT", &c.Server.Port)
	applyInt("SERVER_READ_TIMEOUT", &c.Server.ReadTimeoutSeconds)
	applyInt("SERVER_WRITE_TIMEOUT", &c.Server.WriteTimeoutSeconds)

	applyString("DATABASE_URL", &c.Database.URL)
	applyInt("DATABASE_MAX_OPEN_CONNS", &c.Database.MaxOpenConns)
	applyInt("DATABASE_MAX_IDLE_CONNS", &c.Database.MaxIdleConns)
	applyInt("DATABASE_CONN_MAX_LIFETIME", &c.Database.ConnMaxLifetimeSeconds)

	applyString("REDIS_URL", &c.Redis.URL)

	applyString("CONFLUENCE_URL", &c.Confluence.URL)
	applyString("CONFLUENCE_USERNAME", &c.Confluence.Username)
	applyString("CONFLUENCE_API_TOKEN", &c.Confluence.APIToken)
	applyString("CONFLUENCE_SPACE_KEY", &c.Confluence.SpaceKey)

	applyString("ANTHROPIC_API_KEY", &c.Anthropic.APIKey)
	applyString("ANTHROPIC_BASE_URL", &c.Anthropic.BaseURL)
	applyString("OPENAI_API_KEY", &c.OpenAI.APIKey)
	applyString("OPENAI_BASE_URL", &c.OpenAI.BaseURL)

	applyString("JWT_SECRET", &c.Auth.JWTSecret)
	applyString("JWT_ISSUER", &c.Auth.JWTIssuer)

	applyInt("KB_DEFAULT_TOP_K", &c.KB.DefaultTopK)
	applyInt("KB_SEARCH_SCAN_LIMIT", &c.KB.SearchScanLimit)
	applyFloat64("KB_SIMILARITY_THRESHOLD", &c.KB.SimilarityThreshold)
	applyFloat64("KB_LEXICAL_THRESHOLD", &c.KB.LexicalThreshold)
	applyString("KB_EMBEDDING_BASE_URL", &c.KB.EmbeddingBaseURL)
	applyString("KB_EMBEDDING_API_KEY", &c.KB.EmbeddingAPIKey)
	applyString("KB_EMBEDDING_MODEL", &c.KB.EmbeddingModel)
	applyInt("KB_EMBEDDING_DIMS", &c.KB.EmbeddingDims)
	applyInt("KB_CHUNK_SIZE", &c.KB.ChunkSize)
	applyInt("KB_CHUNK_OVERLAP", &c.KB.ChunkOverlap)
	applyString("KB_LLM_PROVIDER", &c.KB.LLMProvider)
	applyString("KB_LLM_MODEL", &c.KB.LLMModel)
	applyInt("KB_LLM_MAX_TOKENS", &c.KB.LLMMaxTokens)
	applyDurationSeconds("KB_SEARCH_TTL", &c.KB.SearchTTL)
	applyDurationSeconds("KB_RESPONSE_TTL", &c.KB.ResponseTTL)
	applyDurationSeconds("KB_EMBEDDING_TTL", &c.KB.EmbeddingTTL)
}

func (c *AppConfig) normalize() {
	if c.Anthropic.BaseURL == "" {
		c.Anthropic.BaseURL = "https://api.anthropic.com"
	}
	if c.OpenAI.BaseURL == "" {
		c.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	// Pick a provider automatically when keys are present but none is named.
	if c.KB.LLMProvider == "" {
		switch {
		case c.Anthropic.APIKey != "":
			c.KB.LLMProvider = "anthropic"
		case c.OpenAI.APIKey != "":
			c.KB.LLMProvider = "openai"
		}
	}
}

func (c *AppConfig) validate() error {
	if strings.TrimSpace(c.Database.URL) == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	return nil
}

func applyString(key string, target *string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func applyInt(key string, target *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		}
	}
}

func applyFloat64(key string, target *float64) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			*target = n
		}
	}
}

func applyDurationSeconds(key string, target *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			*target = time.Duration(n) * time.Second
		}
	}
}
