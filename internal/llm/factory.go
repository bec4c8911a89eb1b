package llm

import (
	"fmt"
	"strings"
	"time"

	"sentiment-dashboard/internal/config"
	"sentiment-dashboard/internal/warehouse"
)

// Factory creates completion clients from configuration.
type Factory struct {
	OpenAIAPIKey  string
	OpenAIBaseURL string
	OllamaBaseURL string
	Timeout       time.Duration
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
		OllamaBaseURL: cfg.OllamaBaseURL,
		Timeout:       cfg.CompletionTimeout,
	}
}

// CreateClient builds the client for provider. The warehouse provider reuses
// conn, the same channel the reviews are read through.
func (f *Factory) CreateClient(provider, model string, conn warehouse.Connector) (Client, error) {
	switch strings.ToLower(provider) {
	case config.ProviderCortex:
		if conn == nil {
			return nil, fmt.Errorf("%s provider needs a warehouse connection", config.ProviderCortex)
		}
		return NewCortex(conn, model), nil
	case config.ProviderOpenAI:
		return NewOpenAI(f.OpenAIAPIKey, f.OpenAIBaseURL, model), nil
	case config.ProviderOllama:
		return NewOllama(f.OllamaBaseURL, model, f.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
