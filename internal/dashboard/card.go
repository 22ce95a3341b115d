package dashboard

import (
	"context"
	"log"
	"sync"

	"github.com/newspulse-ai/newspulse/internal/sentiment"
	"github.com/newspulse-ai/newspulse/pkg/models"
)

// State is the analysis lifecycle state of a single news card.
type State string

const (
	StateIdle      State = "idle"      // never requested
	StatePending   State = "pending"   // request in flight
	StateSucceeded State = "succeeded" // holds an analysis
	StateFailed    State = "failed"    // holds an error message
)

// FailureMessage is the uniform message shown for any analysis failure.
// The underlying error kind is logged, never surfaced.
const FailureMessage = "Unable to analyze sentiment at this time. Please try again later."

// AnalyzeFunc issues the sentiment request for an item.
type AnalyzeFunc func(ctx context.Context, req sentiment.Request) (*models.SentimentAnalysis, error)

// Card tracks the analysis lifecycle of one rendered news item.
// The analysis is fetched at most once automatically; only an explicit
// Retry after a failure issues another request.
type Card struct {
	mu       sync.Mutex
	item     models.NewsItem
	analyze  AnalyzeFunc
	state    State
	analysis *models.SentimentAnalysis
	errMsg   string
	expanded bool
}

// Snapshot is a point-in-time view of a card.
type Snapshot struct {
	ItemID   string                    `json:"itemId"`
	State    State                     `json:"state"`
	Expanded bool                      `json:"expanded"`
	Analysis *models.SentimentAnalysis `json:"analysis,omitempty"`
	Error    string                    `json:"error,omitempty"`
}

// NewCard creates a card in the idle state.
func NewCard(item models.NewsItem, analyze AnalyzeFunc) *Card {
	return &Card{item: item, analyze: analyze, state: StateIdle}
}

// Item returns the news item this card belongs to.
func (c *Card) Item() models.NewsItem { return c.item }

// Expand marks the card expanded and, on first expansion, issues exactly
// one analysis request, blocking until it completes. Expanding a card that
// is already pending, succeeded, or failed issues nothing and returns the
// current state immediately. The issued return reports whether this call
// sent a request.
func (c *Card) Expand(ctx context.Context) (snap Snapshot, issued bool) {
	c.mu.Lock()
	c.expanded = true
	if c.state != StateIdle {
		snap = c.snapshotLocked()
		c.mu.Unlock()
		return snap, false
	}
	c.state = StatePending
	c.mu.Unlock()

	return c.run(ctx), true
}

// Retry re-issues the request. It is only meaningful from the failed
// state: the prior error is cleared and the request repeats from scratch.
func (c *Card) Retry(ctx context.Context) (snap Snapshot, issued bool) {
	c.mu.Lock()
	if c.state != StateFailed {
		snap = c.snapshotLocked()
		c.mu.Unlock()
		return snap, false
	}
	c.state = StatePending
	c.errMsg = ""
	c.analysis = nil
	c.mu.Unlock()

	return c.run(ctx), true
}

// Collapse is purely a display toggle; fetched state is retained so
// re-expanding does not re-request.
func (c *Card) Collapse() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.expanded = false
	return c.snapshotLocked()
}

// Snapshot returns the current card state.
func (c *Card) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Card) run(ctx context.Context) Snapshot {
	analysis, err := c.analyze(ctx, sentiment.Request{
		Headline: c.item.Headline,
		Company:  c.item.Company,
		Ticker:   c.item.Ticker,
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		log.Printf("dashboard: analysis for %s failed: %v", c.item.Ticker, err)
		c.state = StateFailed
		c.errMsg = FailureMessage
		c.analysis = nil
	} else {
		c.state = StateSucceeded
		c.analysis = analysis
		c.errMsg = ""
	}
	return c.snapshotLocked()
}

func (c *Card) snapshotLocked() Snapshot {
	return Snapshot{
		ItemID:   c.item.ID,
		State:    c.state,
		Expanded: c.expanded,
		Analysis: c.analysis,
		Error:    c.errMsg,
	}
}
