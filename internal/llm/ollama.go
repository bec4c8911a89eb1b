package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	defaultOllamaBaseURL = "http://localhost:11434"
	defaultOllamaModel   = "llama3.2"
)

type OllamaClient struct {
	client *resty.Client
	model  string
}

func NewOllama(baseURL, model string, timeout time.Duration) *OllamaClient {
	if baseURL == "" {
		baseURL = defaultOllamaBaseURL
	}
	if model == "" {
		model = defaultOllamaModel
	}

	client := resty.New()
	client.SetBaseURL(baseURL)
	if timeout > 0 {
		client.SetTimeout(timeout)
	}

	return &OllamaClient{client: client, model: model}
}

type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type GenerateResponse struct {
	Response string `json:"response"`
}

// Complete calls the Ollama generate API without streaming.
func (c *OllamaClient) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := c.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(GenerateRequest{
			Model:  c.model,
			Prompt: prompt,
			Stream: false,
		}).
		Post("/api/generate")
	if err != nil {
		return "", err
	}

	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("ollama API returned status: %d", resp.StatusCode())
	}

	var genResp GenerateResponse
	if err := json.Unmarshal(resp.Body(), &genResp); err != nil {
		return "", err
	}

	return genResp.Response, nil
}
