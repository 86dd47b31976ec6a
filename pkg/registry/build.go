package registry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/pario-ai/sage/pkg/cache"
	"github.com/pario-ai/sage/pkg/classifier"
	"github.com/pario-ai/sage/pkg/config"
	"github.com/pario-ai/sage/pkg/fetch"
	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/local"
	"github.com/pario-ai/sage/pkg/metrics"
	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/pipeline"
	"github.com/pario-ai/sage/pkg/retry"
	"github.com/pario-ai/sage/pkg/search"
)

// Deps are the shared collaborators injected into every pipeline.
type Deps struct {
	LLM      *llm.Client
	Searcher search.Searcher
	Fetcher  fetch.Fetcher
	Cache    cache.Store
	Retry    *retry.Policy
	Metrics  metrics.Recorder
	Logger   *slog.Logger
	Now      func() time.Time
}

// NewRetryPolicy builds the generation retry policy and reports every failed
// attempt to rec.
func NewRetryPolicy(cfg config.RetryConfig, rec metrics.Recorder) *retry.Policy {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return retry.New(retry.Config{
		MaxAttempts:    cfg.MaxAttempts,
		BaseDelay:      cfg.BaseDelay,
		TransientDelay: cfg.TransientDelay,
	}, llm.Classify, retry.WithObserver(func(c retry.Class) {
		rec.RecordRetry(c.String())
	}))
}

// Build creates one pipeline per configured expert.
func Build(cfg *config.Config, deps Deps) (*Registry, error) {
	if deps.LLM == nil {
		return nil, fmt.Errorf("build registry: llm client is required")
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}

	entries := make([]Entry, 0, len(cfg.Experts))
	for _, e := range cfg.Experts {
		id, ok := models.ParseExpertID(e.ID)
		if !ok || id == models.ExpertNone {
			return nil, fmt.Errorf("build registry: unknown expert id %q", e.ID)
		}

		pc := pipeline.Config{
			Expert:           id,
			SystemPrompt:     e.SystemPrompt,
			URLs:             e.URLs,
			CacheTTL:         e.CacheTTL,
			MinConfidence:    e.MinConfidence,
			FetchConcurrency: cfg.Fetch.Concurrency,
			MaxPageChars:     cfg.Fetch.MaxChars,
			ResolveTimeout:   cfg.ResolveTimeout,
		}
		if pc.CacheTTL <= 0 {
			pc.CacheTTL = cfg.Cache.TTL
		}
		if e.Local.Enabled {
			pc.Local = local.New(loc, e.Local.Facts...)
		}
		if e.LiveSearch.Enabled && len(e.LiveSearch.Triggers) > 0 {
			pc.LiveSearch = &pipeline.LiveSearch{
				Triggers: normalizeTerms(e.LiveSearch.Triggers),
				Suffix:   e.LiveSearch.Suffix,
				TTL:      e.LiveSearch.TTL,
			}
		}

		gen := deps.LLM.With(llm.Options{Model: e.Model, Temperature: e.Temperature, MaxTokens: e.MaxTokens})
		p := pipeline.New(pc, pipeline.Deps{
			Generator: gen,
			Searcher:  deps.Searcher,
			Fetcher:   deps.Fetcher,
			Cache:     deps.Cache,
			Retry:     deps.Retry,
			Metrics:   deps.Metrics,
			Logger:    deps.Logger,
			Now:       deps.Now,
		})
		entries = append(entries, Entry{ID: id, Description: e.Description, Pipeline: p})
	}
	return New(entries...), nil
}

// BuildService wires the classifier, the expert pipelines and the generic path.
func BuildService(cfg *config.Config, deps Deps) (*Service, error) {
	reg, err := Build(cfg, deps)
	if err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	cls := classifier.New(deps.LLM.With(llm.Options{
		Model:       cfg.Classifier.Model,
		Temperature: cfg.Classifier.Temperature,
		MaxTokens:   cfg.Classifier.MaxTokens,
	}), deps.Retry, logger)

	var genOpts llm.Options
	for _, e := range cfg.Experts {
		if e.ID == string(models.ExpertGeneral) {
			genOpts = llm.Options{Model: e.Model, Temperature: e.Temperature, MaxTokens: e.MaxTokens}
		}
	}
	generic := NewGeneric(deps.LLM.With(genOpts), deps.Retry, deps.Metrics, logger)

	return NewService(cls, reg, generic, logger), nil
}

func normalizeTerms(terms []string) []string {
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if n := models.NormalizeQuery(t); n != "" {
			out = append(out, n)
		}
	}
	return out
}
