// Package openai adapts OpenAI-compatible APIs to the embedding and generation contracts.
package openai

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/courserec/internal/domain"
)

// Config holds provider settings shared by the embedder and the generator.
type Config struct {
	APIKey     string
	BaseURL    string
	Model      string
	Dimensions int // embeddings only; 0 keeps the model default
	User       string
	Provider   string
	HTTPClient *http.Client
	Logger     *zap.Logger
}

func newClient(cfg *Config) *openai.Client {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	if cfg.HTTPClient != nil {
		clientCfg.HTTPClient = cfg.HTTPClient
	}
	return openai.NewClientWithConfig(clientCfg)
}

// parseAPIError converts a go-openai error into a *domain.ProviderError.
// Throttling maps to domain.ErrRateLimited, everything else to sentinel.
func parseAPIError(provider string, err error, sentinel error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		msg := extractDetail(reqErr.Body)
		if msg == "" {
			msg = string(reqErr.Body)
		}
		return &domain.ProviderError{
			Provider: provider,
			Status:   reqErr.HTTPStatusCode,
			Message:  msg,
			Err:      pick(reqErr.HTTPStatusCode, sentinel),
		}
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &domain.ProviderError{
			Provider: provider,
			Status:   apiErr.HTTPStatusCode,
			Message:  apiErr.Message,
			Err:      pick(apiErr.HTTPStatusCode, sentinel),
		}
	}

	return &domain.ProviderError{Provider: provider, Message: err.Error(), Err: sentinel}
}

func pick(status int, sentinel error) error {
	if status == http.StatusTooManyRequests {
		return domain.ErrRateLimited
	}
	return sentinel
}

// extractDetail extracts the "detail" field from a JSON error body (Nebius error format).
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
