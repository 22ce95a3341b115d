package newsfeed

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/newspulse-ai/newspulse/pkg/models"
)

// ════════════════════════════════════════════════════════════════════
// Static catalog
// ════════════════════════════════════════════════════════════════════

func TestStaticFetch(t *testing.T) {
	s := &Static{} // no latency in tests

	items, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 6 {
		t.Fatalf("catalog has %d items, want 6", len(items))
	}

	// IDs are stable across fetches.
	again, err := s.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	for i := range items {
		if items[i].ID != again[i].ID {
			t.Fatalf("ID changed between fetches: %q vs %q", items[i].ID, again[i].ID)
		}
	}

	// Mutating the returned slice does not touch the catalog.
	items[0].Ticker = "MUTATED"
	fresh, _ := s.Fetch(context.Background())
	if fresh[0].Ticker == "MUTATED" {
		t.Fatal("Fetch returned the catalog backing array")
	}
}

func TestStaticFetchHonorsContext(t *testing.T) {
	s := &Static{Latency: time.Minute}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if _, err := s.Fetch(ctx); err == nil {
		t.Fatal("expected context error")
	}
}

func TestCatalogContents(t *testing.T) {
	s := &Static{}
	items, _ := s.Fetch(context.Background())

	byTicker := make(map[string]models.NewsItem, len(items))
	for _, item := range items {
		byTicker[item.Ticker] = item
	}

	aapl := byTicker["AAPL"]
	if aapl.Category != models.CategoryEarnings || !aapl.IsHalal || aapl.Price != 185.92 {
		t.Errorf("AAPL = %+v", aapl)
	}
	if jpm := byTicker["JPM"]; jpm.IsHalal {
		t.Error("JPM should not carry the halal flag")
	}
	if tsla := byTicker["TSLA"]; tsla.PriceChange >= 0 {
		t.Errorf("TSLA price change = %v, want negative", tsla.PriceChange)
	}
	if aramco := byTicker["ARAMCO"]; aramco.Category != models.CategoryDividends {
		t.Errorf("ARAMCO category = %q", aramco.Category)
	}
	for _, item := range items {
		if len(item.Summary) != 4 {
			t.Errorf("%s has %d summary points, want 4", item.Ticker, len(item.Summary))
		}
	}
}

// ════════════════════════════════════════════════════════════════════
// Cache & rate limiter
// ════════════════════════════════════════════════════════════════════

func TestCache(t *testing.T) {
	c := NewCache(50 * time.Millisecond)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("empty cache returned a value")
	}

	c.Set("k", "v")
	if v, ok := c.Get("k"); !ok || v != "v" {
		t.Fatalf("Get = %v, %v", v, ok)
	}

	time.Sleep(60 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Fatal("expired entry still returned")
	}

	c.Set("k", "v2")
	c.Invalidate("k")
	if _, ok := c.Get("k"); ok {
		t.Fatal("invalidated entry still returned")
	}
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 2; i++ {
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}
	if elapsed := time.Since(start); elapsed > 20*time.Millisecond {
		t.Fatalf("first tokens should be immediate, took %v", elapsed)
	}

	// Third request needs a refill.
	if err := rl.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Fatalf("third token granted too early: %v", elapsed)
	}
}

func TestRateLimiterContextCancel(t *testing.T) {
	rl := NewRateLimiter(1, time.Hour)
	if err := rl.Wait(context.Background()); err != nil {
		t.Fatalf("wait: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := rl.Wait(ctx); err == nil {
		t.Fatal("expected context error while exhausted")
	}
}

// ════════════════════════════════════════════════════════════════════
// RSS mapping helpers
// ════════════════════════════════════════════════════════════════════

func TestMatchCompany(t *testing.T) {
	tests := []struct {
		headline string
		ticker   string
		ok       bool
	}{
		{"Apple unveils new iPhone lineup", "AAPL", true},
		{"NVIDIA surges on AI demand", "NVDA", true},
		{"Alphabet reports ad revenue growth", "GOOGL", true},
		{"Google Cloud signs major deal", "GOOGL", true},
		{"Obscure startup raises seed round", "", false},
	}
	for _, tt := range tests {
		_, ticker, ok := matchCompany(tt.headline)
		if ok != tt.ok || ticker != tt.ticker {
			t.Errorf("matchCompany(%q) = %q, %v; want %q, %v", tt.headline, ticker, ok, tt.ticker, tt.ok)
		}
	}
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		headline string
		want     models.Category
	}{
		{"Apple declares quarterly dividend", models.CategoryDividends},
		{"Microsoft earnings beat expectations", models.CategoryEarnings},
		{"Tesla Q3 results disappoint", models.CategoryEarnings},
		{"Nvidia revenue doubles", models.CategoryEarnings},
		{"JPMorgan profit rises", models.CategoryEarnings},
		{"Markets rally on rate cut hopes", models.CategoryMarket},
	}
	for _, tt := range tests {
		if got := categorize(tt.headline); got != tt.want {
			t.Errorf("categorize(%q) = %q, want %q", tt.headline, got, tt.want)
		}
	}
}

func TestSummaryPoints(t *testing.T) {
	tests := []struct {
		name        string
		description string
		want        []string
	}{
		{
			"list items",
			"<ul><li>Revenue up 10%</li><li>Margins stable</li></ul>",
			[]string{"Revenue up 10%", "Margins stable"},
		},
		{
			"sentences",
			"Revenue grew strongly. Margins held steady.",
			[]string{"Revenue grew strongly.", "Margins held steady."},
		},
		{
			"empty",
			"   ",
			nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summaryPoints(tt.description); !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("summaryPoints() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSummaryPointsCapped(t *testing.T) {
	var html string
	for i := 0; i < 8; i++ {
		html += fmt.Sprintf("<li>point %d</li>", i)
	}
	if got := summaryPoints(html); len(got) != 4 {
		t.Fatalf("got %d points, want cap of 4", len(got))
	}
}

// ════════════════════════════════════════════════════════════════════
// RSS source end-to-end (httptest feed)
// ════════════════════════════════════════════════════════════════════

const testFeedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Wire</title>
    <item>
      <title>Apple earnings beat Wall Street expectations</title>
      <link>https://example.com/apple-earnings</link>
      <guid>apple-earnings-1</guid>
      <pubDate>Mon, 15 Jan 2024 10:30:00 GMT</pubDate>
      <description><![CDATA[<ul><li>Revenue up 2%</li><li>Services at record high</li></ul>]]></description>
    </item>
    <item>
      <title>Tesla shares slide on delivery miss</title>
      <link>https://example.com/tesla-deliveries</link>
      <guid>tesla-deliveries-1</guid>
      <pubDate>Mon, 15 Jan 2024 09:00:00 GMT</pubDate>
      <description>Deliveries fell short of guidance. Competition intensifies in China.</description>
    </item>
    <item>
      <title>Unknown biotech startup announces trial results</title>
      <link>https://example.com/biotech</link>
      <guid>biotech-1</guid>
      <pubDate>Mon, 15 Jan 2024 08:00:00 GMT</pubDate>
      <description>Not attributable to a tracked company.</description>
    </item>
  </channel>
</rss>`

func testRSS(t *testing.T) (*RSS, *int) {
	t.Helper()
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "application/rss+xml")
		fmt.Fprint(w, testFeedXML)
	}))
	t.Cleanup(server.Close)

	feeds := []Feed{{Name: "Test Wire", URL: server.URL, Icon: "📰"}}
	return NewRSS(feeds, time.Minute, true), &hits
}

func TestRSSFetch(t *testing.T) {
	rss, _ := testRSS(t)

	items, err := rss.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	// The untracked company is dropped.
	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}

	// Sorted newest first.
	if items[0].Ticker != "AAPL" || items[1].Ticker != "TSLA" {
		t.Fatalf("order = %s, %s", items[0].Ticker, items[1].Ticker)
	}

	aapl := items[0]
	if aapl.Company != "Apple Inc." || aapl.Category != models.CategoryEarnings {
		t.Errorf("AAPL = %+v", aapl)
	}
	if !aapl.IsHalal {
		t.Error("default halal flag not applied")
	}
	if aapl.Source != "Test Wire" || aapl.SourceIcon != "📰" {
		t.Errorf("source fields = %q %q", aapl.Source, aapl.SourceIcon)
	}
	want := []string{"Revenue up 2%", "Services at record high"}
	if !reflect.DeepEqual(aapl.Summary, want) {
		t.Errorf("summary = %v, want %v", aapl.Summary, want)
	}
}

func TestRSSFetchCachesAndIDsStable(t *testing.T) {
	rss, hits := testRSS(t)

	first, err := rss.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	second, err := rss.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if *hits != 1 {
		t.Fatalf("feed hit %d times, want 1 (cached)", *hits)
	}

	rss.Invalidate()
	third, err := rss.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if *hits != 2 {
		t.Fatalf("feed hit %d times after invalidate, want 2", *hits)
	}

	for i := range first {
		if first[i].ID != second[i].ID || first[i].ID != third[i].ID {
			t.Fatalf("item IDs not stable across fetches")
		}
	}
}

func TestRSSFetchSkipsFailedFeed(t *testing.T) {
	good := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, testFeedXML)
	}))
	t.Cleanup(good.Close)
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	t.Cleanup(bad.Close)

	rss := NewRSS([]Feed{
		{Name: "Good", URL: good.URL, Icon: "📰"},
		{Name: "Bad", URL: bad.URL, Icon: "💥"},
	}, time.Minute, false)

	items, err := rss.Fetch(context.Background())
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("got %d items from surviving feed, want 2", len(items))
	}
	for _, item := range items {
		if item.IsHalal {
			t.Error("default_halal=false should leave the flag unset")
		}
	}
}
