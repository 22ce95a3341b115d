package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/newspulse-ai/newspulse/internal/config"
	"github.com/newspulse-ai/newspulse/internal/dashboard"
	"github.com/newspulse-ai/newspulse/internal/llm"
	"github.com/newspulse-ai/newspulse/internal/newsfeed"
	"github.com/newspulse-ai/newspulse/internal/sentiment"
	"github.com/newspulse-ai/newspulse/pkg/models"
)

// stubSource serves a fixed collection without latency.
type stubSource struct {
	items []models.NewsItem
}

func (s *stubSource) Name() string { return "stub" }

func (s *stubSource) Fetch(ctx context.Context) ([]models.NewsItem, error) {
	return append([]models.NewsItem(nil), s.items...), nil
}

var _ newsfeed.Source = (*stubSource)(nil)

func stubItems() []models.NewsItem {
	return []models.NewsItem{
		{ID: "1", Company: "Apple Inc.", Ticker: "AAPL", Headline: "Apple beats estimates", Category: models.CategoryEarnings, IsHalal: true},
		{ID: "2", Company: "JPMorgan Chase", Ticker: "JPM", Headline: "JPMorgan results strong", Category: models.CategoryEarnings, IsHalal: false},
		{ID: "3", Company: "Tesla Inc.", Ticker: "TSLA", Headline: "Tesla deliveries slip", Category: models.CategoryMarket, IsHalal: true},
	}
}

// openAIReply wraps content in a chat completions response body.
func openAIReply(content string) string {
	body, _ := json.Marshal(map[string]any{
		"model": "gpt-4o-mini",
		"choices": []map[string]any{
			{"index": 0, "message": map[string]string{"role": "assistant", "content": content}},
		},
		"usage": map[string]int{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
	})
	return string(body)
}

// newTestServer wires a server against an OpenAI stub and the fixed
// collection, already refreshed.
func newTestServer(t *testing.T, llmHandler http.HandlerFunc) *Server {
	t.Helper()

	llmServer := httptest.NewServer(llmHandler)
	t.Cleanup(llmServer.Close)

	cfg := &config.Config{}
	cfg.LLM.Provider = "openai"
	cfg.LLM.OpenAIKey = "sk-test"
	cfg.LLM.OpenAIBaseURL = llmServer.URL
	cfg.LLM.Temperature = 0.7

	provider, err := llm.NewProviderFromConfig(cfg)
	if err != nil {
		t.Fatalf("provider: %v", err)
	}
	analyzer := sentiment.NewAnalyzer(provider, llm.OptionsFromConfig(cfg))

	srv := &Server{
		cfg:      cfg,
		dash:     dashboard.NewController(&stubSource{items: stubItems()}, analyzer.Analyze),
		analyzer: analyzer,
		hub:      NewEventHub(),
	}
	srv.router = srv.buildRouter()

	if err := srv.dash.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	return srv
}

func bullishLLM(w http.ResponseWriter, r *http.Request) {
	fmt.Fprint(w, openAIReply(`Here you go: {"sentiment":"bullish","confidence":0.8,"summary":"Strong momentum.","buyRange":"$180-$190","keyPoints":["growth"]}`))
}

func doJSON(t *testing.T, srv *Server, method, path, body string) (*httptest.ResponseRecorder, map[string]json.RawMessage) {
	t.Helper()
	var reqBody *strings.Reader
	if body == "" {
		reqBody = strings.NewReader("")
	} else {
		reqBody = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.router.ServeHTTP(rec, req)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &fields); err != nil {
		t.Fatalf("%s %s: invalid JSON body %q: %v", method, path, rec.Body.String(), err)
	}
	return rec, fields
}

// envelope decodes an APIResponse and fails on success=false.
func envelope(t *testing.T, rec *httptest.ResponseRecorder) json.RawMessage {
	t.Helper()
	var resp struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid envelope %q: %v", rec.Body.String(), err)
	}
	if !resp.Success {
		t.Fatalf("success=false, error=%q", resp.Error)
	}
	return resp.Data
}

// ════════════════════════════════════════════════════════════════════
// /api/analyze-sentiment — wire contract
// ════════════════════════════════════════════════════════════════════

func TestAnalyzeSentimentSuccess(t *testing.T) {
	srv := newTestServer(t, bullishLLM)

	rec, fields := doJSON(t, srv, http.MethodPost, "/api/analyze-sentiment",
		`{"headline":"Apple beats estimates","company":"Apple Inc.","ticker":"AAPL"}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	// The analysis object is returned raw, without the envelope.
	if _, ok := fields["success"]; ok {
		t.Fatal("analysis response must not be enveloped")
	}

	var analysis models.SentimentAnalysis
	if err := json.Unmarshal(rec.Body.Bytes(), &analysis); err != nil {
		t.Fatalf("decode analysis: %v", err)
	}
	if analysis.Sentiment != models.SentimentBullish || analysis.Confidence != 0.8 {
		t.Fatalf("analysis = %+v", analysis)
	}
	if analysis.BuyRange != "$180-$190" {
		t.Fatalf("buyRange = %q", analysis.BuyRange)
	}
}

func TestAnalyzeSentimentFailuresAreUniform(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		body    string
	}{
		{
			"provider down",
			func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusInternalServerError)
			},
			`{"headline":"h","company":"c","ticker":"T"}`,
		},
		{
			"malformed reply",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, openAIReply("I cannot answer that."))
			},
			`{"headline":"h","company":"c","ticker":"T"}`,
		},
		{
			"incomplete analysis",
			func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, openAIReply(`{"confidence":0.5}`))
			},
			`{"headline":"h","company":"c","ticker":"T"}`,
		},
		{
			"bad request body",
			bullishLLM,
			`{not json`,
		},
		{
			"missing fields",
			bullishLLM,
			`{"headline":"h"}`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, tt.handler)
			rec, fields := doJSON(t, srv, http.MethodPost, "/api/analyze-sentiment", tt.body)

			if rec.Code != http.StatusInternalServerError {
				t.Fatalf("status = %d, want 500", rec.Code)
			}
			var msg string
			if err := json.Unmarshal(fields["error"], &msg); err != nil || msg != analysisFailureMessage {
				t.Fatalf("error field = %s, want the generic message", fields["error"])
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// /api/v1/news — listing and filters
// ════════════════════════════════════════════════════════════════════

func TestListNews(t *testing.T) {
	srv := newTestServer(t, bullishLLM)

	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/news", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var data NewsListData
	if err := json.Unmarshal(envelope(t, rec), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Items) != 3 {
		t.Fatalf("items = %d, want 3", len(data.Items))
	}
	if data.Stats.Total != 3 || data.Stats.Bullish != 2 || data.Stats.Bearish != 1 {
		t.Fatalf("stats = %+v", data.Stats)
	}
	for _, item := range data.Items {
		if item.AnalysisState != dashboard.StateIdle {
			t.Errorf("%s state = %q, want idle", item.Ticker, item.AnalysisState)
		}
	}
}

func TestListNewsFilters(t *testing.T) {
	tests := []struct {
		name        string
		query       string
		wantTickers []string
	}{
		{"category", "category=market", []string{"TSLA"}},
		{"halal only", "halal_only=true", []string{"AAPL", "TSLA"}},
		{"search company", "q=apple", []string{"AAPL"}},
		{"search ticker lowercase", "q=jpm", []string{"JPM"}},
		{"combined", "category=earnings&halal_only=true", []string{"AAPL"}},
		{"no favorites yet", "favorites_only=true", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newTestServer(t, bullishLLM)
			rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/news?"+tt.query, "")

			var data NewsListData
			if err := json.Unmarshal(envelope(t, rec), &data); err != nil {
				t.Fatalf("decode: %v", err)
			}
			got := make([]string, 0, len(data.Items))
			for _, item := range data.Items {
				got = append(got, item.Ticker)
			}
			if len(got) != len(tt.wantTickers) {
				t.Fatalf("tickers = %v, want %v", got, tt.wantTickers)
			}
			for i := range got {
				if got[i] != tt.wantTickers[i] {
					t.Fatalf("tickers = %v, want %v", got, tt.wantTickers)
				}
			}
		})
	}
}

// ════════════════════════════════════════════════════════════════════
// Favorites
// ════════════════════════════════════════════════════════════════════

func TestFavoritesFlow(t *testing.T) {
	srv := newTestServer(t, bullishLLM)

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/favorites/aapl/toggle", "")
	var fav FavoriteData
	if err := json.Unmarshal(envelope(t, rec), &fav); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fav.Ticker != "AAPL" || !fav.Favorite {
		t.Fatalf("toggle = %+v", fav)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/favorites", "")
	var tickers []string
	if err := json.Unmarshal(envelope(t, rec), &tickers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tickers) != 1 || tickers[0] != "AAPL" {
		t.Fatalf("favorites = %v", tickers)
	}

	// Favorites filter now shows the item and marks it.
	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/news?favorites_only=true", "")
	var data NewsListData
	if err := json.Unmarshal(envelope(t, rec), &data); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(data.Items) != 1 || data.Items[0].Ticker != "AAPL" || !data.Items[0].IsFavorite {
		t.Fatalf("favorites view = %+v", data.Items)
	}

	// Second toggle removes.
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/favorites/AAPL/toggle", "")
	if err := json.Unmarshal(envelope(t, rec), &fav); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if fav.Favorite {
		t.Fatal("second toggle should remove the favorite")
	}
}

// ════════════════════════════════════════════════════════════════════
// Card lifecycle endpoints
// ════════════════════════════════════════════════════════════════════

func TestExpandRetryCollapse(t *testing.T) {
	fail := true
	srv := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		bullishLLM(w, r)
	})

	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/news/1/expand", "")
	var snap dashboard.Snapshot
	if err := json.Unmarshal(envelope(t, rec), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != dashboard.StateFailed {
		t.Fatalf("state = %q, want failed", snap.State)
	}
	if snap.Error != dashboard.FailureMessage {
		t.Fatalf("error = %q, want the generic message", snap.Error)
	}

	fail = false
	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/news/1/retry", "")
	if err := json.Unmarshal(envelope(t, rec), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != dashboard.StateSucceeded || snap.Analysis == nil {
		t.Fatalf("retry snapshot = %+v", snap)
	}

	rec, _ = doJSON(t, srv, http.MethodPost, "/api/v1/news/1/collapse", "")
	if err := json.Unmarshal(envelope(t, rec), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Expanded {
		t.Fatal("collapse left the card expanded")
	}
	if snap.State != dashboard.StateSucceeded {
		t.Fatalf("collapse discarded analysis state: %+v", snap)
	}

	rec, _ = doJSON(t, srv, http.MethodGet, "/api/v1/news/1/analysis", "")
	if err := json.Unmarshal(envelope(t, rec), &snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.State != dashboard.StateSucceeded {
		t.Fatalf("analysis state = %q", snap.State)
	}
}

func TestExpandUnknownItem(t *testing.T) {
	srv := newTestServer(t, bullishLLM)
	rec, fields := doJSON(t, srv, http.MethodPost, "/api/v1/news/999/expand", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	var success bool
	if err := json.Unmarshal(fields["success"], &success); err != nil || success {
		t.Fatalf("success = %s", fields["success"])
	}
}

// ════════════════════════════════════════════════════════════════════
// Misc endpoints
// ════════════════════════════════════════════════════════════════════

func TestHealth(t *testing.T) {
	srv := newTestServer(t, bullishLLM)
	rec, _ := doJSON(t, srv, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	envelope(t, rec)
}

func TestRefreshEndpoint(t *testing.T) {
	srv := newTestServer(t, bullishLLM)
	rec, _ := doJSON(t, srv, http.MethodPost, "/api/v1/news/refresh", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var stats dashboard.Stats
	if err := json.Unmarshal(envelope(t, rec), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.Total != 3 {
		t.Fatalf("stats = %+v", stats)
	}
}

func TestConfigKeysEndpoint(t *testing.T) {
	srv := newTestServer(t, bullishLLM)
	rec, _ := doJSON(t, srv, http.MethodGet, "/api/v1/config/keys", "")
	var keys []config.KeyStatus
	if err := json.Unmarshal(envelope(t, rec), &keys); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(keys) != 1 || !keys[0].IsSet {
		t.Fatalf("keys = %+v", keys)
	}
}
