// Package config handles configuration loading for NewsPulse.
// It supports YAML config files with environment variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete application configuration.
type Config struct {
	LLM     LLMConfig     `mapstructure:"llm"     yaml:"llm"`
	API     APIConfig     `mapstructure:"api"     yaml:"api"`
	News    NewsConfig    `mapstructure:"news"    yaml:"news"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig holds completion provider configuration.
type LLMConfig struct {
	Provider      string  `mapstructure:"provider"        yaml:"provider"` // "openai" or "ollama"
	OpenAIKey     string  `mapstructure:"openai_key"      yaml:"openai_key"`
	OpenAIBaseURL string  `mapstructure:"openai_base_url" yaml:"openai_base_url"`
	OllamaURL     string  `mapstructure:"ollama_url"      yaml:"ollama_url"`
	Model         string  `mapstructure:"model"           yaml:"model"`
	Temperature   float64 `mapstructure:"temperature"     yaml:"temperature"`
	MaxTokens     int     `mapstructure:"max_tokens"      yaml:"max_tokens"`
	TimeoutSec    int     `mapstructure:"timeout_sec"     yaml:"timeout_sec"`
}

// APIConfig holds HTTP server settings.
type APIConfig struct {
	Host        string   `mapstructure:"host"         yaml:"host"`
	Port        int      `mapstructure:"port"         yaml:"port"`
	CORSOrigins []string `mapstructure:"cors_origins" yaml:"cors_origins"`
}

// FeedConfig describes a single RSS news feed.
type FeedConfig struct {
	Name string `mapstructure:"name" yaml:"name"`
	URL  string `mapstructure:"url"  yaml:"url"`
	Icon string `mapstructure:"icon" yaml:"icon"`
}

// NewsConfig holds news catalog settings.
type NewsConfig struct {
	// Source selects the catalog backend: "static" (built-in demo catalog)
	// or "rss" (live feeds listed under Feeds).
	Source      string       `mapstructure:"source"        yaml:"source"`
	Feeds       []FeedConfig `mapstructure:"feeds"         yaml:"feeds"`
	CacheTTLSec int          `mapstructure:"cache_ttl_sec" yaml:"cache_ttl_sec"`
	// DefaultHalal is the compliance flag assigned to RSS items; the flag's
	// domain meaning comes from an upstream tagging source that RSS feeds
	// do not carry.
	DefaultHalal bool `mapstructure:"default_halal" yaml:"default_halal"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `mapstructure:"format" yaml:"format"` // "text" or "json"
}

// Load reads the configuration from file and environment variables.
// Config file search order:
//  1. ./config/config.yaml (project root)
//  2. ~/.newspulse/config.yaml (home directory)
//  3. /etc/newspulse/config.yaml (system)
//
// Environment variables override config file values.
// Format: NEWSPULSE_<SECTION>_<KEY>, e.g., NEWSPULSE_LLM_OPENAI_KEY
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(filepath.Join(homeDir(), ".newspulse"))
	v.AddConfigPath("/etc/newspulse")

	v.SetEnvPrefix("NEWSPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found — that's fine, use defaults + env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.SetEnvPrefix("NEWSPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	overrideFromEnv(&cfg)
	return &cfg, nil
}

// setDefaults sets sensible defaults for all config values.
func setDefaults(v *viper.Viper) {
	// LLM defaults — the model default lives in the provider clients
	// (gpt-4o-mini for OpenAI), so "model" stays empty here.
	v.SetDefault("llm.provider", "openai")
	v.SetDefault("llm.ollama_url", "http://localhost:11434")
	v.SetDefault("llm.temperature", 0.7)
	v.SetDefault("llm.max_tokens", 1024)
	v.SetDefault("llm.timeout_sec", 60)

	// API defaults
	v.SetDefault("api.host", "0.0.0.0")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.cors_origins", []string{"*"})

	// News defaults
	v.SetDefault("news.source", "static")
	v.SetDefault("news.cache_ttl_sec", 600)
	v.SetDefault("news.default_halal", true)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// overrideFromEnv explicitly reads sensitive keys from environment variables.
func overrideFromEnv(cfg *Config) {
	if key := os.Getenv("NEWSPULSE_LLM_OPENAI_KEY"); key != "" {
		cfg.LLM.OpenAIKey = key
	}
	// OPENAI_API_KEY is honored as a fallback for convenience.
	if cfg.LLM.OpenAIKey == "" {
		cfg.LLM.OpenAIKey = os.Getenv("OPENAI_API_KEY")
	}
}

// homeDir returns the user's home directory.
func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
