package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gitbrand/internal/config"
)

// ErrMissingKey is returned when a backend is requested without an API key.
var ErrMissingKey = errors.New("llm: api key missing")

// Factory creates LLM clients for any configured provider.
type Factory struct {
	OpenAIBaseURL  string
	OpenAIModel    string
	GroqBaseURL    string
	GroqModel      string
	GeminiModel    string
	YandexFolderID string
	Temperature    float32
}

func NewFactory(cfg *config.Config) *Factory {
	return &Factory{
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		OpenAIModel:    cfg.OpenAIModel,
		GroqBaseURL:    cfg.GroqBaseURL,
		GroqModel:      cfg.GroqModel,
		GeminiModel:    cfg.GeminiModel,
		YandexFolderID: cfg.YandexFolderID,
		Temperature:    cfg.Temperature,
	}
}

// CreateClient returns a client for provider authenticated with apiKey. For
// yandex the key is the OAuth token used to mint IAM tokens.
func (f *Factory) CreateClient(ctx context.Context, provider, apiKey string) (Client, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}
	switch config.LLMProvider(strings.ToLower(provider)) {
	case config.ProviderGroq:
		return NewOpenAI(apiKey, f.GroqBaseURL, f.GroqModel, f.Temperature), nil
	case config.ProviderOpenAI:
		return NewOpenAI(apiKey, f.OpenAIBaseURL, f.OpenAIModel, f.Temperature), nil
	case config.ProviderGemini:
		return NewGemini(ctx, apiKey, f.GeminiModel, f.Temperature)
	case config.ProviderYandex:
		return NewYandex(apiKey, f.YandexFolderID)
	default:
		return nil, fmt.Errorf("unknown llm provider: %s", provider)
	}
}
