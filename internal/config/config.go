package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
)

// Auth strategies.
const (
	AuthDelegated   = "delegated"
	AuthCredentials = "credentials"
)

// LLM providers.
const (
	ProviderCortex = "cortex"
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Port        string   `env:"PORT" envDefault:"8001"`
	LogLevel    string   `env:"LOG_LEVEL" envDefault:"info"`
	LogFile     string   `env:"LOG_FILE"`
	CORSOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000,http://127.0.0.1:3000"`

	// Warehouse
	AuthStrategy   string        `env:"AUTH_STRATEGY" envDefault:"delegated"`
	DatabaseDriver string        `env:"DATABASE_DRIVER" envDefault:"snowflake"`
	DatabaseURL    string        `env:"DATABASE_URL"`
	SecretsFile    string        `env:"SECRETS_FILE" envDefault:".secrets.yaml"`
	SecretsSection string        `env:"SECRETS_SECTION" envDefault:"snowflake"`
	QueryTimeout   time.Duration `env:"QUERY_TIMEOUT" envDefault:"60s"`

	// LLM settings
	LLMProvider       string        `env:"LLM_PROVIDER" envDefault:"cortex"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"claude-3-5-sonnet"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"OPENAI_BASE_URL"`
	OllamaBaseURL     string        `env:"OLLAMA_BASE_URL" envDefault:"http://localhost:11434"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`

	// Dashboard
	ContextRows   int           `env:"CONTEXT_ROWS" envDefault:"50"`
	HistogramBins int           `env:"HISTOGRAM_BINS" envDefault:"20"`
	SessionTTL    time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	MaxSessions   int           `env:"MAX_SESSIONS" envDefault:"100"`
}

// New parses the environment and validates the result.
func New() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	c.AuthStrategy = strings.ToLower(strings.TrimSpace(c.AuthStrategy))
	c.LLMProvider = strings.ToLower(strings.TrimSpace(c.LLMProvider))

	switch c.AuthStrategy {
	case AuthDelegated:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s strategy", AuthDelegated)
		}
	case AuthCredentials:
		if c.SecretsFile == "" {
			return fmt.Errorf("SECRETS_FILE is required for the %s strategy", AuthCredentials)
		}
	default:
		return fmt.Errorf("unknown AUTH_STRATEGY %q", c.AuthStrategy)
	}

	switch c.LLMProvider {
	case ProviderCortex, ProviderOllama:
	case ProviderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the %s provider", ProviderOpenAI)
		}
	default:
		return fmt.Errorf("unknown LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.ContextRows < 1 || c.ContextRows > 50 {
		return fmt.Errorf("CONTEXT_ROWS must be between 1 and 50, got %d", c.ContextRows)
	}
	if c.MaxSessions < 1 {
		return fmt.Errorf("MAX_SESSIONS must be positive, got %d", c.MaxSessions)
	}
	if c.HistogramBins < 1 {
		return fmt.Errorf("HISTOGRAM_BINS must be positive, got %d", c.HistogramBins)
	}
	return nil
}
