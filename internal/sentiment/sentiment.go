// Package sentiment implements the headline analysis contract: it builds
// the prompt sent to the completion provider, extracts the JSON object
// embedded in the model's free-text reply, and validates the result.
//
// The error taxonomy is fixed: ErrMalformedResponse when no parseable JSON
// span exists, ErrIncompleteAnalysis when the payload parses but omits the
// sentiment classification, and ErrTransportFailure when the provider call
// itself fails. API callers see all three as a single generic failure; the
// distinction exists for logging.
package sentiment

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/newspulse-ai/newspulse/pkg/models"
)

var (
	// ErrMalformedResponse indicates the model reply contained no parseable
	// JSON object.
	ErrMalformedResponse = errors.New("sentiment: malformed model response")

	// ErrIncompleteAnalysis indicates the payload parsed but omitted the
	// required sentiment classification.
	ErrIncompleteAnalysis = errors.New("sentiment: analysis missing sentiment field")

	// ErrTransportFailure indicates the provider call failed before any
	// reply was received (timeout, non-2xx, connection error).
	ErrTransportFailure = errors.New("sentiment: provider request failed")

	// ErrInvalidRequest indicates a request field was empty.
	ErrInvalidRequest = errors.New("sentiment: headline, company and ticker are required")
)

// Request identifies the headline to analyze. All three fields are required
// and must be non-empty.
type Request struct {
	Headline string `json:"headline"`
	Company  string `json:"company"`
	Ticker   string `json:"ticker"`
}

// Validate checks that all request fields are present.
func (r Request) Validate() error {
	if strings.TrimSpace(r.Headline) == "" ||
		strings.TrimSpace(r.Company) == "" ||
		strings.TrimSpace(r.Ticker) == "" {
		return ErrInvalidRequest
	}
	return nil
}

// BuildPrompt constructs the analyst instruction for a headline. The model
// is asked for strictly-JSON output matching models.SentimentAnalysis.
func BuildPrompt(r Request) string {
	return fmt.Sprintf(`You are a financial analyst AI. Analyze this news headline and provide investment insights.

Company: %s (%s)
Headline: %s

Provide your analysis in the following JSON format:
{
  "sentiment": "bullish" | "bearish" | "neutral",
  "confidence": 0.0-1.0,
  "summary": "2-3 sentence summary of the impact",
  "buyRange": "suggested price range like $150-$160 or wait for dip",
  "keyPoints": ["point 1", "point 2", "point 3"]
}

Be concise and actionable. Focus on investment implications.`, r.Company, r.Ticker, r.Headline)
}

// ExtractJSON locates the outermost {...} span in the model's reply.
// The match is greedy: first opening brace to last closing brace, so
// explanatory prose around the object is tolerated.
func ExtractJSON(text string) (string, error) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", fmt.Errorf("%w: no JSON object in reply", ErrMalformedResponse)
	}
	return text[start : end+1], nil
}

// ParseAnalysis extracts and validates the analysis embedded in the reply.
// Only the presence of the sentiment field is enforced; confidence bounds
// and key-point contents are passed through as the model produced them.
func ParseAnalysis(text string) (*models.SentimentAnalysis, error) {
	span, err := ExtractJSON(text)
	if err != nil {
		return nil, err
	}

	var analysis models.SentimentAnalysis
	if err := json.Unmarshal([]byte(span), &analysis); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	if analysis.Sentiment == "" {
		return nil, ErrIncompleteAnalysis
	}
	return &analysis, nil
}
