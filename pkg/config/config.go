package config

import (
	"errors"
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/pario-ai/sage/pkg/local"
	"github.com/pario-ai/sage/pkg/models"
)

// Config holds all Sage configuration.
type Config struct {
	Listen         string           `yaml:"listen"`
	CORS           bool             `yaml:"cors"`
	Log            LogConfig        `yaml:"log"`
	ResolveTimeout time.Duration    `yaml:"resolve_timeout"`
	LLM            LLMConfig        `yaml:"llm"`
	Classifier     ClassifierConfig `yaml:"classifier"`
	Retry          RetryConfig      `yaml:"retry"`
	Cache          CacheConfig      `yaml:"cache"`
	Search         SearchConfig     `yaml:"search"`
	Fetch          FetchConfig      `yaml:"fetch"`
	Local          LocalConfig      `yaml:"local"`
	// Experts replaces the default expert list when set.
	Experts []ExpertConfig `yaml:"experts"`
}

// LogConfig selects the root slog handler.
// Format is "text" (default) or "json".
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LLMConfig defines the OpenAI-compatible upstream.
type LLMConfig struct {
	BaseURL           string        `yaml:"base_url"`
	APIKey            string        `yaml:"api_key"`
	Model             string        `yaml:"model"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
}

// ClassifierConfig overrides generation options for expert selection.
type ClassifierConfig struct {
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// RetryConfig controls the generation retry schedule.
type RetryConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"`
	BaseDelay      time.Duration `yaml:"base_delay"`
	TransientDelay time.Duration `yaml:"transient_delay"`
}

// CacheConfig controls the answer cache.
// Backend is "memory" (default) or "sqlite".
type CacheConfig struct {
	Backend       string        `yaml:"backend"`
	TTL           time.Duration `yaml:"ttl"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
	Shards        int           `yaml:"shards"`
}

// SearchConfig defines the Tavily web search client.
type SearchConfig struct {
	Enabled     bool          `yaml:"enabled"`
	URL         string        `yaml:"url"`
	APIKey      string        `yaml:"api_key"`
	MaxResults  int           `yaml:"max_results"`
	SearchDepth string        `yaml:"search_depth"`
	Timeout     time.Duration `yaml:"timeout"`
}

// FetchConfig controls page retrieval for URL extraction.
type FetchConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxChars     int           `yaml:"max_chars"`
	MaxBodyBytes int64         `yaml:"max_body_bytes"`
	Concurrency  int           `yaml:"concurrency"`
	UserAgent    string        `yaml:"user_agent"`
}

// LocalConfig controls local knowledge.
type LocalConfig struct {
	Timezone string `yaml:"timezone"`
}

// ExpertConfig defines one expert pipeline.
type ExpertConfig struct {
	ID            string           `yaml:"id"`
	Description   string           `yaml:"description"`
	SystemPrompt  string           `yaml:"system_prompt"`
	Model         string           `yaml:"model"`
	Temperature   float32          `yaml:"temperature"`
	MaxTokens     int              `yaml:"max_tokens"`
	CacheTTL      time.Duration    `yaml:"cache_ttl"`
	URLs          []string         `yaml:"urls"`
	MinConfidence float64          `yaml:"min_confidence"`
	Local         ExpertLocal      `yaml:"local"`
	LiveSearch    LiveSearchConfig `yaml:"live_search"`
}

// ExpertLocal enables local knowledge for an expert.
type ExpertLocal struct {
	Enabled bool         `yaml:"enabled"`
	Facts   []local.Fact `yaml:"facts"`
}

// LiveSearchConfig routes current-events questions straight to web search.
type LiveSearchConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Triggers []string      `yaml:"triggers"`
	Suffix   string        `yaml:"suffix"`
	TTL      time.Duration `yaml:"ttl"`
}

// Backend names accepted by CacheConfig.
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:         ":5000",
		CORS:           true,
		Log:            LogConfig{Level: "info", Format: "text"},
		ResolveTimeout: 90 * time.Second,
		LLM: LLMConfig{
			Model:   "gpt-4",
			Timeout: 30 * time.Second,
		},
		Classifier: ClassifierConfig{
			Temperature: 0.3,
			MaxTokens:   100,
		},
		Retry: RetryConfig{
			MaxAttempts:    3,
			BaseDelay:      time.Second,
			TransientDelay: time.Second,
		},
		Cache: CacheConfig{
			Backend:       BackendMemory,
			TTL:           time.Hour,
			SweepInterval: 10 * time.Minute,
			Shards:        16,
		},
		Search: SearchConfig{
			Enabled:     true,
			MaxResults:  5,
			SearchDepth: "advanced",
			Timeout:     15 * time.Second,
		},
		Fetch: FetchConfig{
			Timeout:      10 * time.Second,
			MaxChars:     2000,
			MaxBodyBytes: 2 << 20,
			Concurrency:  1,
			UserAgent:    "sage/1.0",
		},
		Local:   LocalConfig{Timezone: "Europe/Istanbul"},
		Experts: DefaultExperts(),
	}
}

// DefaultExperts returns the built-in expert set.
func DefaultExperts() []ExpertConfig {
	return []ExpertConfig{
		{ID: "sports", Description: "Spor ve fitness konularında uzman AI asistan", Temperature: 0.7, MaxTokens: 300},
		{ID: "food", Description: "Yemek ve beslenme konularında uzman AI asistan", Temperature: 0.7, MaxTokens: 300},
		{ID: "ai", Description: "Yapay zeka ve teknoloji konularında uzman AI asistan", Temperature: 0.7, MaxTokens: 300},
		{ID: "sudostar", Description: "SudoStar uygulaması hakkında uzman AI asistan", Temperature: 0.7, MaxTokens: 300},
		{
			ID:          "general",
			Description: "Uzman bulunamayan konularda yardımcı olan genel amaçlı AI asistan",
			Temperature: 0.8,
			MaxTokens:   500,
			CacheTTL:    30 * time.Minute,
			Local:       ExpertLocal{Enabled: true},
			LiveSearch: LiveSearchConfig{
				Enabled: true,
				Triggers: []string{
					"hava durumu", "hava", "sıcaklık", "derece",
					"döviz", "kur", "dolar", "euro",
					"haber", "haberler", "son dakika", "gündem",
					"trafik", "yol durumu",
					"etkinlik", "etkinlikler", "konser",
				},
				Suffix: " güncel bilgi",
				TTL:    5 * time.Minute,
			},
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyEnv()

	return cfg, nil
}

// LoadOptional behaves like Load but returns the defaults when path does not exist.
func LoadOptional(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, os.ErrNotExist) {
		cfg = Default()
		cfg.applyEnv()
		return cfg, nil
	}
	return cfg, err
}

// LoadDotEnv loads environment variables from the given files, or ".env"
// when none are named. Missing files are ignored; variables already set win.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load %s: %w", p, err)
		}
	}
	return nil
}

// applyEnv fills API keys left empty by the file from the usual variables.
func (c *Config) applyEnv() {
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if c.Search.APIKey == "" {
		c.Search.APIKey = os.Getenv("TAVILY_API_KEY")
	}
}

// Validate reports the first configuration error.
func (c *Config) Validate() error {
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry.max_attempts must be positive, got %d", c.Retry.MaxAttempts)
	}
	switch c.Cache.Backend {
	case "", BackendMemory, BackendSQLite:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q", c.Cache.Backend)
	}
	if _, err := c.Location(); err != nil {
		return err
	}

	seen := make(map[models.ExpertID]bool, len(c.Experts))
	for i, e := range c.Experts {
		id, ok := models.ParseExpertID(e.ID)
		if !ok || id == models.ExpertNone {
			return fmt.Errorf("experts[%d]: unknown expert id %q", i, e.ID)
		}
		if seen[id] {
			return fmt.Errorf("experts[%d]: duplicate expert id %q", i, e.ID)
		}
		seen[id] = true
		if e.MinConfidence < 0 || e.MinConfidence > 1 {
			return fmt.Errorf("experts[%d]: min_confidence must be within [0, 1]", i)
		}
	}
	return nil
}

// Location returns the configured local time zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Local.Timezone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Local.Timezone)
	if err != nil {
		return nil, fmt.Errorf("local.timezone: %w", err)
	}
	return loc, nil
}
