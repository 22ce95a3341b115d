package newsfeed

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
	"golang.org/x/sync/errgroup"

	"github.com/newspulse-ai/newspulse/pkg/models"
)

// Feed describes one configured RSS feed.
type Feed struct {
	Name string
	URL  string
	Icon string
}

// RSS assembles the news collection from configured RSS feeds. The
// dashboard is per-company, not a general firehose, so entries that
// cannot be attributed to a known company are dropped.
type RSS struct {
	feeds        []Feed
	parser       *gofeed.Parser
	cache        *Cache
	limiter      *RateLimiter
	defaultHalal bool
}

const rssCacheKey = "rss:all"

// NewRSS creates an RSS-backed news source.
func NewRSS(feeds []Feed, cacheTTL time.Duration, defaultHalal bool) *RSS {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &RSS{
		feeds:        feeds,
		parser:       gofeed.NewParser(),
		cache:        NewCache(cacheTTL),
		limiter:      NewRateLimiter(2, time.Second), // conservative: 2 req/s
		defaultHalal: defaultHalal,
	}
}

// Name returns the data source name.
func (r *RSS) Name() string { return "RSS Feeds" }

// Fetch pulls all feeds concurrently and maps their entries to news
// items. A failed feed is skipped, not fatal. Results are cached.
func (r *RSS) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	if cached, ok := r.cache.Get(rssCacheKey); ok {
		return cached.([]models.NewsItem), nil
	}

	var (
		mu    sync.Mutex
		items []models.NewsItem
	)

	g, gctx := errgroup.WithContext(ctx)
	for _, feed := range r.feeds {
		feed := feed
		g.Go(func() error {
			if err := r.limiter.Wait(gctx); err != nil {
				return err
			}
			parsed, err := r.parser.ParseURLWithContext(feed.URL, gctx)
			if err != nil {
				// Non-critical: skip failed sources.
				log.Printf("newsfeed: fetch %s: %v", feed.Name, err)
				return nil
			}
			mapped := r.mapEntries(feed, parsed.Items)
			mu.Lock()
			items = append(items, mapped...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("newsfeed: fetch feeds: %w", err)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].PublishedAt.After(items[j].PublishedAt)
	})

	r.cache.Set(rssCacheKey, items)
	return items, nil
}

// Invalidate drops the cached collection so the next Fetch hits the feeds.
func (r *RSS) Invalidate() {
	r.cache.Invalidate(rssCacheKey)
}

func (r *RSS) mapEntries(feed Feed, entries []*gofeed.Item) []models.NewsItem {
	items := make([]models.NewsItem, 0, len(entries))
	for _, entry := range entries {
		company, ticker, ok := matchCompany(entry.Title)
		if !ok {
			continue
		}

		published := time.Now()
		if entry.PublishedParsed != nil {
			published = *entry.PublishedParsed
		}

		items = append(items, models.NewsItem{
			ID:          entryID(feed, entry),
			Company:     company,
			Ticker:      ticker,
			Headline:    strings.TrimSpace(entry.Title),
			Source:      feed.Name,
			SourceIcon:  feed.Icon,
			URL:         entry.Link,
			PublishedAt: published,
			Category:    categorize(entry.Title),
			IsHalal:     r.defaultHalal,
			Summary:     summaryPoints(entry.Description),
		})
	}
	return items
}

// entryID derives a stable item ID from the entry GUID or link, so that
// analysis state and favorites survive a refresh.
func entryID(feed Feed, entry *gofeed.Item) string {
	key := entry.GUID
	if key == "" {
		key = entry.Link
	}
	h := fnv.New64a()
	h.Write([]byte(feed.Name))
	h.Write([]byte(key))
	return fmt.Sprintf("rss-%x", h.Sum64())
}

// knownCompanies maps company names appearing in headlines to tickers.
// Ordered so matching is deterministic.
var knownCompanies = []struct {
	Match   string
	Company string
	Ticker  string
}{
	{"apple", "Apple Inc.", "AAPL"},
	{"microsoft", "Microsoft Corporation", "MSFT"},
	{"nvidia", "Nvidia Corporation", "NVDA"},
	{"tesla", "Tesla Inc.", "TSLA"},
	{"jpmorgan", "JPMorgan Chase", "JPM"},
	{"aramco", "Saudi Aramco", "ARAMCO"},
	{"amazon", "Amazon.com Inc.", "AMZN"},
	{"alphabet", "Alphabet Inc.", "GOOGL"},
	{"google", "Alphabet Inc.", "GOOGL"},
	{"meta", "Meta Platforms", "META"},
	{"netflix", "Netflix Inc.", "NFLX"},
	{"intel", "Intel Corporation", "INTC"},
	{"amd", "Advanced Micro Devices", "AMD"},
	{"boeing", "Boeing Company", "BA"},
	{"exxon", "Exxon Mobil", "XOM"},
	{"walmart", "Walmart Inc.", "WMT"},
}

// matchCompany scans a headline for a known company name.
func matchCompany(headline string) (company, ticker string, ok bool) {
	lower := strings.ToLower(headline)
	for _, c := range knownCompanies {
		if strings.Contains(lower, c.Match) {
			return c.Company, c.Ticker, true
		}
	}
	return "", "", false
}

// categorize buckets a headline into a dashboard tab by keyword.
func categorize(headline string) models.Category {
	lower := strings.ToLower(headline)
	switch {
	case strings.Contains(lower, "dividend"):
		return models.CategoryDividends
	case strings.Contains(lower, "earnings"),
		strings.Contains(lower, "results"),
		strings.Contains(lower, "revenue"),
		strings.Contains(lower, "profit"):
		return models.CategoryEarnings
	default:
		return models.CategoryMarket
	}
}

// summaryPoints turns a feed entry's HTML description into short bullet
// strings: list items when the description has them, sentences otherwise.
func summaryPoints(description string) []string {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(description))
	if err != nil {
		return nil
	}

	var points []string
	doc.Find("li").Each(func(_ int, sel *goquery.Selection) {
		if text := strings.TrimSpace(sel.Text()); text != "" {
			points = append(points, text)
		}
	})
	if len(points) == 0 {
		text := strings.TrimSpace(doc.Text())
		for _, sentence := range strings.SplitAfter(text, ". ") {
			if sentence = strings.TrimSpace(sentence); sentence != "" {
				points = append(points, sentence)
			}
		}
	}

	const maxPoints = 4
	if len(points) > maxPoints {
		points = points[:maxPoints]
	}
	return points
}
