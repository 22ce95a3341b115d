package sentiment

import (
	"context"
	"fmt"
	"log"

	"github.com/newspulse-ai/newspulse/internal/llm"
	"github.com/newspulse-ai/newspulse/pkg/models"
)

// DefaultTemperature is the sampling temperature for analysis requests.
const DefaultTemperature = 0.7

// Analyzer performs one stateless analysis per call: one outbound
// completion request, no caching, no deduplication of identical requests.
type Analyzer struct {
	provider llm.Provider
	opts     *llm.ChatOptions
}

// NewAnalyzer creates an analyzer bound to a completion provider.
// A nil opts selects the provider's default model at DefaultTemperature.
func NewAnalyzer(provider llm.Provider, opts *llm.ChatOptions) *Analyzer {
	if opts == nil {
		opts = &llm.ChatOptions{}
	}
	if opts.Temperature == 0 {
		opts.Temperature = DefaultTemperature
	}
	return &Analyzer{provider: provider, opts: opts}
}

// Analyze sends the headline to the provider and returns the validated
// analysis. Transport errors are reported as ErrTransportFailure; parse
// and validation failures keep their own error kinds.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*models.SentimentAnalysis, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	resp, err := a.provider.Chat(ctx, []llm.Message{llm.UserMessage(BuildPrompt(req))}, a.opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTransportFailure, err)
	}

	analysis, err := ParseAnalysis(resp.Content)
	if err != nil {
		log.Printf("sentiment: %s (%s): %v", req.Ticker, a.provider.Name(), err)
		return nil, err
	}
	return analysis, nil
}
