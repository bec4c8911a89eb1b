package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "user:pass@account/db/schema")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "8001", cfg.Port)
	assert.Equal(t, AuthDelegated, cfg.AuthStrategy)
	assert.Equal(t, "snowflake", cfg.DatabaseDriver)
	assert.Equal(t, ProviderCortex, cfg.LLMProvider)
	assert.Equal(t, "claude-3-5-sonnet", cfg.LLMModel)
	assert.Equal(t, 50, cfg.ContextRows)
	assert.Equal(t, 20, cfg.HistogramBins)
	assert.Equal(t, 100, cfg.MaxSessions)
	assert.Equal(t, 60*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, []string{"http://localhost:3000", "http://127.0.0.1:3000"}, cfg.CORSOrigins)
}

func TestNewOverrides(t *testing.T) {
	t.Setenv("AUTH_STRATEGY", "Credentials")
	t.Setenv("SECRETS_FILE", "/run/secrets/wh.yaml")
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("COMPLETION_TIMEOUT", "5s")
	t.Setenv("CONTEXT_ROWS", "10")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")

	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, AuthCredentials, cfg.AuthStrategy)
	assert.Equal(t, "/run/secrets/wh.yaml", cfg.SecretsFile)
	assert.Equal(t, ProviderOllama, cfg.LLMProvider)
	assert.Equal(t, 5*time.Second, cfg.CompletionTimeout)
	assert.Equal(t, 10, cfg.ContextRows)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			AuthStrategy:  AuthDelegated,
			DatabaseURL:   "dsn",
			LLMProvider:   ProviderCortex,
			ContextRows:   50,
			HistogramBins: 20,
			MaxSessions:   100,
		}
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"unknown strategy", func(c *Config) { c.AuthStrategy = "magic" }, "AUTH_STRATEGY"},
		{"delegated without dsn", func(c *Config) { c.DatabaseURL = "" }, "DATABASE_URL"},
		{"credentials without secrets", func(c *Config) { c.AuthStrategy = AuthCredentials }, "SECRETS_FILE"},
		{"unknown provider", func(c *Config) { c.LLMProvider = "parrot" }, "LLM_PROVIDER"},
		{"openai without key", func(c *Config) { c.LLMProvider = ProviderOpenAI }, "OPENAI_API_KEY"},
		{"context rows too large", func(c *Config) { c.ContextRows = 51 }, "CONTEXT_ROWS"},
		{"context rows zero", func(c *Config) { c.ContextRows = 0 }, "CONTEXT_ROWS"},
		{"no bins", func(c *Config) { c.HistogramBins = 0 }, "HISTOGRAM_BINS"},
		{"no sessions", func(c *Config) { c.MaxSessions = 0 }, "MAX_SESSIONS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.want)
		})
	}

	cfg := valid()
	assert.NoError(t, cfg.Validate())
}
