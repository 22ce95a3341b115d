package newsfeed

import (
	"context"
	"time"

	"github.com/newspulse-ai/newspulse/pkg/models"
)

// Static serves the built-in demo catalog. A refresh is a simulated
// round-trip: the catalog itself never changes, so IDs are trivially
// stable.
type Static struct {
	// Latency delays each Fetch to imitate a network round-trip.
	Latency time.Duration
}

// NewStatic creates the static catalog source with a one-second
// simulated refresh delay.
func NewStatic() *Static {
	return &Static{Latency: time.Second}
}

// Name returns the data source name.
func (s *Static) Name() string { return "Demo Catalog" }

// Fetch returns a copy of the catalog after the simulated delay.
func (s *Static) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	if s.Latency > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.Latency):
		}
	}
	items := make([]models.NewsItem, len(catalog))
	copy(items, catalog)
	return items, nil
}

var catalog = []models.NewsItem{
	{
		ID:          "1",
		Company:     "Apple Inc.",
		Ticker:      "AAPL",
		Headline:    "Apple announces record-breaking Q4 earnings, iPhone sales exceed expectations",
		Source:      "Financial Times",
		SourceIcon:  "📰",
		URL:         "https://www.ft.com/apple-q4-earnings",
		PublishedAt: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		Category:    models.CategoryEarnings,
		IsHalal:     true,
		Price:       185.92,
		PriceChange: 2.35,
		Summary: []string{
			"Q4 revenue reaches $119.6 billion, up 2% year-over-year",
			"iPhone revenue grew 6% driven by strong iPhone 15 Pro demand",
			"Services business hits all-time high with $22.3 billion revenue",
			"Company maintains strong gross margin of 45.2%",
		},
	},
	{
		ID:          "2",
		Company:     "Microsoft Corporation",
		Ticker:      "MSFT",
		Headline:    "Microsoft Cloud revenue surges 25% as AI adoption accelerates across enterprise",
		Source:      "Bloomberg",
		SourceIcon:  "📊",
		URL:         "https://www.bloomberg.com/microsoft-cloud-ai",
		PublishedAt: time.Date(2024, 1, 15, 9, 15, 0, 0, time.UTC),
		Category:    models.CategoryEarnings,
		IsHalal:     true,
		Price:       412.78,
		PriceChange: 3.87,
		Summary: []string{
			"Azure and cloud services revenue increased 30% year-over-year",
			"AI services now contribute $3.2 billion in quarterly revenue",
			"Enterprise adoption of Copilot exceeds 40,000 organizations",
			"Operating margin expands to 47% as efficiency improvements continue",
		},
	},
	{
		ID:          "3",
		Company:     "JPMorgan Chase",
		Ticker:      "JPM",
		Headline:    "JPMorgan reports strong Q4 results driven by investment banking recovery",
		Source:      "Reuters",
		SourceIcon:  "📡",
		URL:         "https://www.reuters.com/jpmorgan-q4-results",
		PublishedAt: time.Date(2024, 1, 15, 8, 45, 0, 0, time.UTC),
		Category:    models.CategoryEarnings,
		IsHalal:     false,
		Price:       168.45,
		PriceChange: 1.92,
		Summary: []string{
			"Investment banking fees surge 35% as M&A activity rebounds",
			"Net income rises to $12.6 billion, beating analyst estimates",
			"Trading revenue remains strong with fixed income up 8%",
			"Management raises full-year 2024 guidance on improved outlook",
		},
	},
	{
		ID:          "4",
		Company:     "Tesla Inc.",
		Ticker:      "TSLA",
		Headline:    "Tesla faces delivery challenges in China amid increased competition from local manufacturers",
		Source:      "Wall Street Journal",
		SourceIcon:  "📈",
		URL:         "https://www.wsj.com/tesla-china-challenges",
		PublishedAt: time.Date(2024, 1, 14, 16, 20, 0, 0, time.UTC),
		Category:    models.CategoryMarket,
		IsHalal:     true,
		Price:       238.52,
		PriceChange: -2.18,
		Summary: []string{
			"China deliveries down 12% quarter-over-quarter amid price pressure",
			"BYD and local competitors gain market share with aggressive pricing",
			"Tesla reduces prices by 5-8% across Model 3 and Model Y in China",
			"Company accelerates production of updated Model Y to boost demand",
		},
	},
	{
		ID:          "5",
		Company:     "Saudi Aramco",
		Ticker:      "ARAMCO",
		Headline:    "Saudi Aramco maintains dividend despite oil price volatility, focuses on sustainability",
		Source:      "Arab News",
		SourceIcon:  "🌍",
		URL:         "https://www.arabnews.com/aramco-dividend-sustainability",
		PublishedAt: time.Date(2024, 1, 14, 12, 0, 0, 0, time.UTC),
		Category:    models.CategoryDividends,
		IsHalal:     true,
		Price:       28.45,
		PriceChange: 0.75,
		Summary: []string{
			"Quarterly dividend maintained at $0.27 per share despite price volatility",
			"Company invests $15 billion in carbon capture and renewable projects",
			"Oil production capacity expansion on track for 13 million bpd by 2027",
			"Free cash flow remains robust at $28.4 billion for the quarter",
		},
	},
	{
		ID:          "6",
		Company:     "Nvidia Corporation",
		Ticker:      "NVDA",
		Headline:    "Nvidia GPU demand remains strong as AI infrastructure buildout continues globally",
		Source:      "CNBC",
		SourceIcon:  "📺",
		URL:         "https://www.cnbc.com/nvidia-gpu-demand-ai",
		PublishedAt: time.Date(2024, 1, 14, 11, 30, 0, 0, time.UTC),
		Category:    models.CategoryMarket,
		IsHalal:     true,
		Price:       521.67,
		PriceChange: 5.24,
		Summary: []string{
			"Data center revenue expected to exceed $18 billion this quarter",
			"H100 and H200 GPUs remain sold out through first half of 2024",
			"New AI chip customers include major cloud providers and enterprises",
			"Company guides for continued strong growth in AI infrastructure spend",
		},
	},
}
