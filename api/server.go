// Package api provides the HTTP server for NewsPulse.
//
// It exposes the sentiment-analysis endpoint, the dashboard news/filter
// endpoints, a WebSocket event stream, and the embedded web UI.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/newspulse-ai/newspulse/internal/config"
	"github.com/newspulse-ai/newspulse/internal/dashboard"
	"github.com/newspulse-ai/newspulse/internal/llm"
	"github.com/newspulse-ai/newspulse/internal/newsfeed"
	"github.com/newspulse-ai/newspulse/internal/sentiment"
	"github.com/newspulse-ai/newspulse/pkg/models"
	"github.com/newspulse-ai/newspulse/web"
)

// analysisFailureMessage is the generic message returned for any analysis
// failure; the failure kind is logged, not returned.
const analysisFailureMessage = "Failed to analyze sentiment"

// Server is the HTTP API server.
type Server struct {
	router   chi.Router
	cfg      *config.Config
	dash     *dashboard.Controller
	analyzer *sentiment.Analyzer
	hub      *EventHub
	serveUI  bool // when true, serve the embedded web UI at /
}

// NewServer creates a configured API server with all routes and middleware.
func NewServer(cfg *config.Config) (*Server, error) {
	provider, err := llm.NewProviderFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("LLM setup failed: %w", err)
	}
	analyzer := sentiment.NewAnalyzer(provider, llm.OptionsFromConfig(cfg))

	source, err := newsfeed.NewSourceFromConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("news source setup failed: %w", err)
	}

	srv := &Server{
		cfg:      cfg,
		dash:     dashboard.NewController(source, analyzer.Analyze),
		analyzer: analyzer,
		hub:      NewEventHub(),
		serveUI:  true, // serve embedded web UI by default
	}

	srv.dash.SetOnResult(func(item models.NewsItem, snap dashboard.Snapshot) {
		srv.hub.Broadcast(Event{
			Type: "analysis_complete",
			Data: map[string]any{
				"id":     item.ID,
				"ticker": item.Ticker,
				"state":  snap.State,
			},
		})
	})

	srv.router = srv.buildRouter()
	return srv, nil
}

// SetServeUI controls whether the embedded web UI is served.
// Must be called before ListenAndServe.
func (s *Server) SetServeUI(enabled bool) {
	s.serveUI = enabled
	s.router = s.buildRouter()
}

// Router returns the chi router for testing.
func (s *Server) Router() chi.Router {
	return s.router
}

// ListenAndServe loads the initial news collection and starts the HTTP
// server with graceful shutdown.
func (s *Server) ListenAndServe(addr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := s.dash.Refresh(ctx); err != nil {
		cancel()
		return fmt.Errorf("initial news load failed: %w", err)
	}
	cancel()

	httpSrv := &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	<-done
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	return httpSrv.Shutdown(shutdownCtx)
}

// buildRouter configures all routes and middleware.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(120 * time.Second))

	origins := []string{"*"}
	if len(s.cfg.API.CORSOrigins) > 0 {
		origins = s.cfg.API.CORSOrigins
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	// Analysis endpoint with its fixed wire contract: 200 with the raw
	// analysis object, 500 with {"error": ...} on any failure.
	r.Post("/api/analyze-sentiment", s.handleAnalyzeSentiment)

	// Dashboard API (enveloped responses)
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Get("/news", s.handleListNews)
		r.Post("/news/refresh", s.handleRefresh)
		r.Post("/news/{id}/expand", s.handleExpand)
		r.Post("/news/{id}/retry", s.handleRetry)
		r.Post("/news/{id}/collapse", s.handleCollapse)
		r.Get("/news/{id}/analysis", s.handleCardState)

		r.Get("/favorites", s.handleFavorites)
		r.Post("/favorites/{ticker}/toggle", s.handleToggleFavorite)

		r.Get("/config/keys", s.handleConfigKeys)

		r.Get("/ws", s.handleWebSocket)
	})

	// Serve embedded web UI (SPA with fallback to index.html)
	if s.serveUI {
		s.mountSPA(r, web.StaticFS())
	}

	return r
}

// mountSPA serves the embedded dashboard as a single-page app. Unknown
// paths fall back to index.html.
func (s *Server) mountSPA(r chi.Router, staticFS fs.FS) {
	fileServer := http.FileServer(http.FS(staticFS))

	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		rPath := strings.TrimPrefix(req.URL.Path, "/")
		if rPath == "" {
			rPath = "index.html"
		}

		f, err := staticFS.Open(rPath)
		if err != nil {
			serveIndexHTML(w, staticFS)
			return
		}
		f.Close()

		if rPath == "index.html" || strings.HasSuffix(rPath, ".html") {
			w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		}

		fileServer.ServeHTTP(w, req)
	})
}

// serveIndexHTML reads and serves the embedded index.html for SPA fallback.
func serveIndexHTML(w http.ResponseWriter, staticFS fs.FS) {
	data, err := fs.ReadFile(staticFS, "index.html")
	if err != nil {
		http.Error(w, "web UI not available", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.WriteHeader(http.StatusOK)
	w.Write(data) //nolint:errcheck
}

// ============================================================
// Request / Response types
// ============================================================

// APIResponse is the standard JSON envelope for /api/v1 endpoints.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// NewsEntry is a news item decorated with per-session dashboard state.
type NewsEntry struct {
	models.NewsItem
	IsFavorite    bool            `json:"isFavorite"`
	AnalysisState dashboard.State `json:"analysisState"`
}

// NewsListData is the payload for GET /api/v1/news.
type NewsListData struct {
	Items   []NewsEntry              `json:"items"`
	Stats   dashboard.Stats          `json:"stats"`
	Filters dashboard.FilterCriteria `json:"filters"`
}

// FavoriteData is the payload for the favorite toggle endpoint.
type FavoriteData struct {
	Ticker   string `json:"ticker"`
	Favorite bool   `json:"favorite"`
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: map[string]interface{}{
			"status":  "ok",
			"version": "dev",
			"time":    time.Now().UTC().Format(time.RFC3339),
		},
	})
}

// handleAnalyzeSentiment implements the analysis wire contract. Every
// failure (bad body, provider error, malformed reply, missing sentiment)
// surfaces uniformly as HTTP 500 with a generic message.
func (s *Server) handleAnalyzeSentiment(w http.ResponseWriter, r *http.Request) {
	var req sentiment.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Printf("api: analyze-sentiment: bad request body: %v", err)
		writeAnalysisError(w)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	analysis, err := s.analyzer.Analyze(ctx, req)
	if err != nil {
		log.Printf("api: analyze-sentiment: %s: %v", req.Ticker, err)
		writeAnalysisError(w)
		return
	}

	writeJSON(w, http.StatusOK, analysis)
}

func writeAnalysisError(w http.ResponseWriter) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"error": analysisFailureMessage,
	})
}

func (s *Server) handleListNews(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if hasFilterParams(q) {
		s.dash.SetFilters(dashboard.FilterCriteria{
			Category:      valueOr(q.Get("category"), dashboard.CategoryAll),
			HalalOnly:     q.Get("halal_only") == "true",
			FavoritesOnly: q.Get("favorites_only") == "true",
			Query:         q.Get("q"),
		})
	}

	visible := s.dash.Visible()
	entries := make([]NewsEntry, 0, len(visible))
	for _, item := range visible {
		state := dashboard.StateIdle
		if snap, err := s.dash.CardState(item.ID); err == nil {
			state = snap.State
		}
		entries = append(entries, NewsEntry{
			NewsItem:      item,
			IsFavorite:    s.dash.IsFavorite(item.Ticker),
			AnalysisState: state,
		})
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data: NewsListData{
			Items:   entries,
			Stats:   dashboard.ComputeStats(visible),
			Filters: s.dash.Filters(),
		},
	})
}

func hasFilterParams(q map[string][]string) bool {
	for _, key := range []string{"category", "halal_only", "favorites_only", "q"} {
		if _, ok := q[key]; ok {
			return true
		}
	}
	return false
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	if err := s.dash.Refresh(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.hub.Broadcast(Event{Type: "news_refreshed"})

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.dash.Stats(),
	})
}

func (s *Server) handleExpand(w http.ResponseWriter, r *http.Request) {
	s.handleCardOp(w, r, func(ctx context.Context, id string) (dashboard.Snapshot, error) {
		return s.dash.Expand(ctx, id)
	})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	s.handleCardOp(w, r, func(ctx context.Context, id string) (dashboard.Snapshot, error) {
		return s.dash.Retry(ctx, id)
	})
}

func (s *Server) handleCollapse(w http.ResponseWriter, r *http.Request) {
	s.handleCardOp(w, r, func(_ context.Context, id string) (dashboard.Snapshot, error) {
		return s.dash.Collapse(id)
	})
}

func (s *Server) handleCardState(w http.ResponseWriter, r *http.Request) {
	s.handleCardOp(w, r, func(_ context.Context, id string) (dashboard.Snapshot, error) {
		return s.dash.CardState(id)
	})
}

func (s *Server) handleCardOp(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id string) (dashboard.Snapshot, error)) {

	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "item id is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	snap, err := op(ctx, id)
	if err != nil {
		if errors.Is(err, dashboard.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    snap,
	})
}

func (s *Server) handleFavorites(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    s.dash.Favorites(),
	})
}

func (s *Server) handleToggleFavorite(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "ticker is required")
		return
	}

	favorite := s.dash.ToggleFavorite(strings.ToUpper(ticker))

	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    FavoriteData{Ticker: strings.ToUpper(ticker), Favorite: favorite},
	})
}

func (s *Server) handleConfigKeys(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, APIResponse{
		Success: true,
		Data:    config.CheckAPIKeys(s.cfg),
	})
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("failed to write JSON response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, APIResponse{
		Success: false,
		Error:   msg,
	})
}
