// Package pipeline resolves a query for one expert by walking a fixed chain of sources.
package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"runtime/debug"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/pario-ai/sage/pkg/cache"
	"github.com/pario-ai/sage/pkg/fetch"
	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/local"
	"github.com/pario-ai/sage/pkg/metrics"
	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/retry"
	"github.com/pario-ai/sage/pkg/search"
)

const (
	// DefaultCacheTTL is used when Config.CacheTTL is zero.
	DefaultCacheTTL = time.Hour
	// DefaultResolveTimeout bounds a resolution when Config.ResolveTimeout is zero.
	DefaultResolveTimeout = 90 * time.Second
)

// LiveSearch configures the current-events short-circuit.
type LiveSearch struct {
	// Triggers are normalized terms; single words match whole tokens.
	Triggers []string
	// Suffix is appended to the query sent to the live searcher.
	Suffix string
	TTL    time.Duration
}

// Config is the per-expert behaviour of a pipeline.
type Config struct {
	Expert       models.ExpertID
	SystemPrompt string
	// Local is optional; nil skips the local knowledge step.
	Local local.Resolver
	// URLs are the pages consulted by the extraction step, in priority order.
	URLs     []string
	CacheTTL time.Duration
	// LiveSearch is optional; nil disables the short-circuit.
	LiveSearch    *LiveSearch
	MinConfidence float64
	// FetchConcurrency above 1 fetches URLs in parallel.
	FetchConcurrency int
	MaxPageChars     int
	ResolveTimeout   time.Duration
}

// Deps are the shared collaborators. Nil sources are skipped.
type Deps struct {
	Generator llm.Generator
	// Extractor answers from page text; defaults to Generator.
	Extractor llm.Generator
	Searcher  search.Searcher
	// LiveSearcher defaults to Searcher.
	LiveSearcher search.Searcher
	Fetcher      fetch.Fetcher
	Cache        cache.Store
	Retry        *retry.Policy
	Metrics      metrics.Recorder
	Logger       *slog.Logger
	Now          func() time.Time
}

// Pipeline is safe for concurrent use.
type Pipeline struct {
	cfg    Config
	deps   Deps
	chain  []step
	group  singleflight.Group
	logger *slog.Logger
}

// New creates a Pipeline.
func New(cfg Config, deps Deps) *Pipeline {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.ResolveTimeout <= 0 {
		cfg.ResolveTimeout = DefaultResolveTimeout
	}
	if cfg.MaxPageChars <= 0 {
		cfg.MaxPageChars = 2000
	}
	if cfg.SystemPrompt == "" {
		cfg.SystemPrompt = DefaultSystemPrompt(string(cfg.Expert))
	}
	if deps.Extractor == nil {
		deps.Extractor = deps.Generator
	}
	if deps.LiveSearcher == nil {
		deps.LiveSearcher = deps.Searcher
	}
	if deps.Retry == nil {
		deps.Retry = retry.New(retry.DefaultConfig(), llm.Classify)
	}
	if deps.Metrics == nil {
		deps.Metrics = metrics.Nop{}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	p := &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: deps.Logger.With(slog.String("expert", string(cfg.Expert))),
	}
	p.chain = []step{
		{"live_search", p.fromLiveSearch},
		{"generation", p.fromGeneration},
		{"cache", p.fromCache},
		{"local", p.fromLocal},
		{"fetched_page", p.fromPages},
		{"web_search", p.fromSearch},
	}
	return p
}

// Expert returns the expert this pipeline serves.
func (p *Pipeline) Expert() models.ExpertID { return p.cfg.Expert }

// Resolve answers query. It always returns an Answer: Outcome is
// OutcomeUnresolved when every source missed and OutcomeError after an
// unexpected failure. Concurrent calls for the same normalized query share
// one resolution, which is not cancelled by any single caller; a caller whose
// ctx ends first stops waiting and gets an unresolved answer.
func (p *Pipeline) Resolve(ctx context.Context, query string) models.Answer {
	key := models.NormalizeQuery(query)
	if key == "" {
		return models.Unresolved(p.cfg.Expert, "")
	}
	shared := context.WithoutCancel(ctx)
	ch := p.group.DoChan(key, func() (any, error) {
		return p.resolve(shared, query, key), nil
	})
	select {
	case r := <-ch:
		return r.Val.(models.Answer)
	case <-ctx.Done():
		p.logger.Debug("caller stopped waiting", slog.String("error", ctx.Err().Error()))
		return models.Unresolved(p.cfg.Expert, "")
	}
}

func (p *Pipeline) resolve(ctx context.Context, query, key string) (answer models.Answer) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("resolution panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())),
			)
			answer = models.InternalError(p.cfg.Expert)
		}
		p.deps.Metrics.RecordResolution(string(p.cfg.Expert), string(answer.Source), string(answer.Outcome), time.Since(start))
	}()

	ctx, cancel := context.WithTimeout(ctx, p.cfg.ResolveTimeout)
	defer cancel()

	var failures []error
	for _, s := range p.chain {
		res := s.run(ctx, query, key)
		switch res.kind {
		case hit:
			if res.source != models.SourceCache {
				ttl := res.ttl
				if ttl <= 0 {
					ttl = p.cfg.CacheTTL
				}
				p.store(key, res.text, ttl)
			}
			p.logger.Info("query resolved", slog.String("source", string(res.source)), slog.Duration("elapsed", time.Since(start)))
			return p.answer(res.text, res.source)
		case failed:
			p.logger.Debug("source failed", slog.String("step", s.name), slog.String("error", res.err.Error()))
			failures = append(failures, res.err)
		}
	}

	p.logger.Info("query unresolved", slog.Duration("elapsed", time.Since(start)))
	return models.Unresolved(p.cfg.Expert, unresolvedMessage(failures))
}

// unresolvedMessage surfaces a quota or configuration failure instead of the apology.
func unresolvedMessage(failures []error) string {
	for _, err := range failures {
		var term *retry.TerminalError
		if errors.As(err, &term) && term.UserMessage() != "" {
			return term.UserMessage()
		}
	}
	return ""
}

func (p *Pipeline) store(key, text string, ttl time.Duration) {
	if p.deps.Cache == nil {
		return
	}
	p.deps.Cache.Set(key, text, ttl)
}

var confidence = map[models.Source]float64{
	models.SourceGeneration:  0.7,
	models.SourceCache:       0.8,
	models.SourceLocal:       1.0,
	models.SourceFetchedPage: 0.95,
	models.SourceWebSearch:   0.9,
}

func (p *Pipeline) answer(text string, src models.Source) models.Answer {
	c := confidence[src]
	return models.Answer{
		Text:       text,
		Expert:     p.cfg.Expert,
		Source:     src,
		Confidence: c,
		Supported:  c >= p.cfg.MinConfidence,
		Outcome:    models.OutcomeAnswered,
	}
}
