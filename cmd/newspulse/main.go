// NewsPulse — AI-assisted financial news dashboard
//
// Main CLI entrypoint using cobra command framework.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/newspulse-ai/newspulse/api"
	"github.com/newspulse-ai/newspulse/internal/config"
	"github.com/newspulse-ai/newspulse/internal/dashboard"
	"github.com/newspulse-ai/newspulse/internal/llm"
	"github.com/newspulse-ai/newspulse/internal/newsfeed"
	"github.com/newspulse-ai/newspulse/internal/sentiment"
	"github.com/newspulse-ai/newspulse/pkg/models"
)

// Build-time variables (set via -ldflags).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// Global config
var cfg *config.Config

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "newspulse",
	Short: "NewsPulse — AI-assisted financial news dashboard",
	Long: `NewsPulse
A financial news dashboard that enriches company headlines with
AI sentiment analysis, halal compliance filtering, favorites, and
category tabs. Serves an embedded web UI and a JSON API.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		configFile, _ := cmd.Flags().GetString("config")
		if configFile != "" {
			cfg, err = config.LoadFromFile(configFile)
		} else {
			cfg, err = config.Load()
		}
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "config file path (default: ./config/config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level override (debug, info, warn, error)")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(newsCmd)
	rootCmd.AddCommand(statusCmd)
}

// --- Version Command ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("NewsPulse %s\n", version)
		fmt.Printf("  commit:  %s\n", commit)
		fmt.Printf("  built:   %s\n", date)
	},
}

// --- Serve Command (API Server + Web UI) ---

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and web dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		srv, err := api.NewServer(cfg)
		if err != nil {
			return err
		}
		if apiOnly, _ := cmd.Flags().GetBool("api-only"); apiOnly {
			srv.SetServeUI(false)
		}
		addr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)
		fmt.Printf("🌐 Starting NewsPulse on http://%s\n", addr)
		return srv.ListenAndServe(addr)
	},
}

func init() {
	serveCmd.Flags().Bool("api-only", false, "serve the JSON API without the web UI")
}

// --- Analyze Command (one-shot sentiment analysis) ---

var analyzeCmd = &cobra.Command{
	Use:   "analyze [headline]",
	Short: "Analyze the sentiment of a headline",
	Long: `Run a one-shot AI sentiment analysis on a headline.

Examples:
  newspulse analyze "Apple announces record Q4 earnings" --company "Apple Inc." --ticker AAPL
  newspulse analyze "Tesla deliveries fall in China" -t TSLA -c "Tesla Inc." --json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		company, _ := cmd.Flags().GetString("company")
		ticker, _ := cmd.Flags().GetString("ticker")
		asJSON, _ := cmd.Flags().GetBool("json")

		provider, err := llm.NewProviderFromConfig(cfg)
		if err != nil {
			return err
		}
		analyzer := sentiment.NewAnalyzer(provider, llm.OptionsFromConfig(cfg))

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		fmt.Printf("🔍 Analyzing %s via %s...\n", ticker, provider.Name())
		analysis, err := analyzer.Analyze(ctx, sentiment.Request{
			Headline: args[0],
			Company:  company,
			Ticker:   strings.ToUpper(ticker),
		})
		if err != nil {
			return err
		}

		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(analysis)
		}

		printAnalysis(os.Stdout, analysis)
		return nil
	},
}

// printAnalysis renders a one-shot analysis for the terminal. Confidence
// is on the wire as a [0,1] fraction and shown as a percentage.
func printAnalysis(w io.Writer, analysis *models.SentimentAnalysis) {
	fmt.Fprintf(w, "\n  Sentiment:  %s (%.0f%% confidence)\n", analysis.Sentiment, analysis.Confidence*100)
	fmt.Fprintf(w, "  Summary:    %s\n", analysis.Summary)
	if analysis.BuyRange != "" {
		fmt.Fprintf(w, "  Buy Range:  %s\n", analysis.BuyRange)
	}
	for i, point := range analysis.KeyPoints {
		if i == 0 {
			fmt.Fprintln(w, "  Key Points:")
		}
		fmt.Fprintf(w, "    • %s\n", point)
	}
}

func init() {
	analyzeCmd.Flags().StringP("company", "c", "", "company name for context")
	analyzeCmd.Flags().StringP("ticker", "t", "", "ticker symbol for context")
	analyzeCmd.Flags().Bool("json", false, "print the raw analysis JSON")
}

// --- News Command (list the collection with filters) ---

var newsCmd = &cobra.Command{
	Use:   "news",
	Short: "List news items from the configured source",
	RunE: func(cmd *cobra.Command, args []string) error {
		category, _ := cmd.Flags().GetString("category")
		halalOnly, _ := cmd.Flags().GetBool("halal")
		query, _ := cmd.Flags().GetString("search")

		source, err := newsfeed.NewSourceFromConfig(cfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		fmt.Printf("📰 Fetching news from %s...\n\n", source.Name())
		items, err := source.Fetch(ctx)
		if err != nil {
			return err
		}

		criteria := dashboard.FilterCriteria{
			Category:  category,
			HalalOnly: halalOnly,
			Query:     query,
		}
		visible := dashboard.Filter(items, criteria, nil)

		for _, item := range visible {
			halal := " "
			if item.IsHalal {
				halal = "☪"
			}
			fmt.Printf("  %-8s %s [%s] %s\n", item.Ticker, halal, item.Category, item.Headline)
		}

		stats := dashboard.ComputeStats(visible)
		fmt.Printf("\n  %d items (%d bullish / %d bearish)\n", stats.Total, stats.Bullish, stats.Bearish)
		return nil
	},
}

func init() {
	newsCmd.Flags().String("category", dashboard.CategoryAll, "category tab (all, earnings, market, dividends)")
	newsCmd.Flags().Bool("halal", false, "show only halal-flagged items")
	newsCmd.Flags().String("search", "", "filter by company name or ticker")
}

// --- Status Command ---

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show system status and configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("═══════════════════════════════════════")
		fmt.Println("  NewsPulse — System Status")
		fmt.Println("═══════════════════════════════════════")
		fmt.Printf("  Version:       %s (%s)\n", version, commit)
		fmt.Println()

		fmt.Println("  Configuration:")
		fmt.Printf("    LLM Provider:  %s (model: %s)\n", cfg.LLM.Provider, cfg.LLM.Model)
		fmt.Printf("    News Source:   %s\n", cfg.News.Source)
		fmt.Printf("    API Server:    %s:%d\n", cfg.API.Host, cfg.API.Port)
		fmt.Println()

		fmt.Println("  API Keys:")
		keys := config.CheckAPIKeys(cfg)
		for _, k := range keys {
			status := "❌ not set"
			if k.IsSet {
				status = fmt.Sprintf("✅ set (%s: %s)", k.Source, k.Masked)
			}
			fmt.Printf("    %-25s %s\n", k.Name+":", status)
		}

		fmt.Println("═══════════════════════════════════════")
		return nil
	},
}
