package models

// Sentiment is the model's directional call on a headline's market impact.
type Sentiment string

const (
	SentimentBullish Sentiment = "bullish"
	SentimentBearish Sentiment = "bearish"
	SentimentNeutral Sentiment = "neutral"
)

// SentimentAnalysis is the structured result extracted from the LLM reply.
//
// Only the presence of Sentiment is enforced by the contract; Confidence
// is documented as [0.0, 1.0] and BuyRange is free-form text (it may read
// as a price range or as a deferral such as "wait for dip").
type SentimentAnalysis struct {
	Sentiment  Sentiment `json:"sentiment"`
	Confidence float64   `json:"confidence"`
	Summary    string    `json:"summary"`
	BuyRange   string    `json:"buyRange"`
	KeyPoints  []string  `json:"keyPoints"`
}
