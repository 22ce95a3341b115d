package llm

import (
	"fmt"
	"net/http"
	"time"

	"github.com/newspulse-ai/newspulse/internal/config"
)

// NewProviderFromConfig builds the configured completion provider.
// Exactly one provider is constructed; there is no runtime fallback chain.
func NewProviderFromConfig(cfg *config.Config) (Provider, error) {
	timeout := time.Duration(cfg.LLM.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	client := &http.Client{Timeout: timeout}

	switch cfg.LLM.Provider {
	case ProviderOpenAI, "":
		opts := []OpenAIOption{WithOpenAIHTTPClient(client)}
		if cfg.LLM.Model != "" {
			opts = append(opts, WithOpenAIModel(cfg.LLM.Model))
		}
		if cfg.LLM.OpenAIBaseURL != "" {
			opts = append(opts, WithOpenAIBaseURL(cfg.LLM.OpenAIBaseURL))
		}
		return NewOpenAIProvider(cfg.LLM.OpenAIKey, opts...)
	case ProviderOllama:
		opts := []OllamaOption{WithOllamaHTTPClient(client)}
		if cfg.LLM.Model != "" {
			opts = append(opts, WithOllamaModel(cfg.LLM.Model))
		}
		return NewOllamaProvider(cfg.LLM.OllamaURL, opts...)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownName, cfg.LLM.Provider)
	}
}

// OptionsFromConfig returns the chat options derived from configuration.
func OptionsFromConfig(cfg *config.Config) *ChatOptions {
	return &ChatOptions{
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}
}
