// Package models defines the shared data structures for NewsPulse:
// news items supplied by the feed layer and the sentiment analysis
// produced by the LLM contract.
package models

import "time"

// Category classifies a news item into one of the dashboard tabs.
type Category string

const (
	CategoryEarnings  Category = "earnings"
	CategoryMarket    Category = "market"
	CategoryDividends Category = "dividends"
)

// Categories returns the fixed set of item categories, in tab order.
func Categories() []Category {
	return []Category{CategoryEarnings, CategoryMarket, CategoryDividends}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryEarnings, CategoryMarket, CategoryDividends:
		return true
	}
	return false
}

// NewsItem is a single company-tagged headline as shown on the dashboard.
// ID and Ticker are stable keys: favorites are keyed by Ticker and per-item
// analysis state is keyed by ID across refreshes.
type NewsItem struct {
	ID          string    `json:"id"`
	Company     string    `json:"company"`
	Ticker      string    `json:"ticker"`
	Headline    string    `json:"headline"`
	Source      string    `json:"source"`
	SourceIcon  string    `json:"sourceIcon,omitempty"`
	URL         string    `json:"url"`
	PublishedAt time.Time `json:"publishedAt"`
	Category    Category  `json:"category"`
	IsHalal     bool      `json:"isHalal"`
	Price       float64   `json:"price"`
	PriceChange float64   `json:"priceChange"` // percentage, may be negative
	Summary     []string  `json:"summary,omitempty"`
}
