package main

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/pario-ai/sage/pkg/cache"
	"github.com/pario-ai/sage/pkg/cache/memory"
	"github.com/pario-ai/sage/pkg/cache/sqlite"
	"github.com/pario-ai/sage/pkg/config"
	"github.com/pario-ai/sage/pkg/fetch"
	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/metrics"
	"github.com/pario-ai/sage/pkg/registry"
	"github.com/pario-ai/sage/pkg/search"
)

// app holds the wired service shared by every subcommand.
type app struct {
	cfg     *config.Config
	logger  *slog.Logger
	cache   cache.Store
	metrics *metrics.Prometheus
	service *registry.Service
}

// loadConfig reads .env and the optional config file, then validates it.
func loadConfig(path string) (*config.Config, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, err
	}
	cfg, err := config.LoadOptional(path)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp(configPath string, logOut io.Writer) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := newLogger(cfg.Log, logOut)
	slog.SetDefault(logger)

	store, err := openCache(cfg.Cache, logger)
	if err != nil {
		return nil, err
	}

	rec := metrics.NewPrometheus(prometheus.NewRegistry())

	if cfg.LLM.APIKey == "" {
		logger.Warn("llm api key is not set; generation will fail")
	}
	client := llm.New(llm.Config{
		BaseURL:           cfg.LLM.BaseURL,
		APIKey:            cfg.LLM.APIKey,
		Timeout:           cfg.LLM.Timeout,
		RequestsPerSecond: cfg.LLM.RequestsPerSecond,
		Burst:             cfg.LLM.Burst,
		Options:           llm.Options{Model: cfg.LLM.Model},
	}, logger)

	var searcher search.Searcher
	if cfg.Search.Enabled && cfg.Search.APIKey != "" {
		searcher = search.NewTavily(search.Config{
			URL:         cfg.Search.URL,
			APIKey:      cfg.Search.APIKey,
			MaxResults:  cfg.Search.MaxResults,
			SearchDepth: cfg.Search.SearchDepth,
			Timeout:     cfg.Search.Timeout,
		})
	} else if cfg.Search.Enabled {
		logger.Warn("web search enabled without an api key; skipping web search")
	}

	svc, err := registry.BuildService(cfg, registry.Deps{
		LLM:      client,
		Searcher: searcher,
		Fetcher: fetch.New(fetch.Config{
			Timeout:      cfg.Fetch.Timeout,
			MaxBodyBytes: cfg.Fetch.MaxBodyBytes,
			UserAgent:    cfg.Fetch.UserAgent,
		}),
		Cache:   store,
		Retry:   registry.NewRetryPolicy(cfg.Retry, rec),
		Metrics: rec,
		Logger:  logger,
	})
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	return &app{cfg: cfg, logger: logger, cache: store, metrics: rec, service: svc}, nil
}

func (a *app) Close() error { return a.cache.Close() }

func openCache(cfg config.CacheConfig, logger *slog.Logger) (cache.Store, error) {
	switch cfg.Backend {
	case config.BackendSQLite:
		c, err := sqlite.New(cfg.TTL, sqlite.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("init cache: %w", err)
		}
		return c, nil
	default:
		c := memory.New(cfg.TTL, memory.WithShards(cfg.Shards))
		c.StartSweeper(cfg.SweepInterval)
		return c, nil
	}
}

func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
