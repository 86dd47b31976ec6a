package pipeline

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pario-ai/sage/pkg/fetch"
	"github.com/pario-ai/sage/pkg/models"
)

type stepKind int

const (
	miss stepKind = iota
	hit
	failed
)

// stepResult is the outcome of one source. Steps never signal each other through errors.
type stepResult struct {
	kind   stepKind
	text   string
	source models.Source
	ttl    time.Duration
	err    error
}

type step struct {
	name string
	run  func(ctx context.Context, query, key string) stepResult
}

func hitResult(text string, src models.Source) stepResult {
	return stepResult{kind: hit, text: text, source: src}
}

func failedResult(err error) stepResult {
	return stepResult{kind: failed, err: err}
}

func (p *Pipeline) fromLiveSearch(ctx context.Context, query, key string) stepResult {
	ls := p.cfg.LiveSearch
	if ls == nil || p.deps.LiveSearcher == nil || !needsLiveInfo(key, ls.Triggers) {
		return stepResult{}
	}
	snippets, err := p.deps.LiveSearcher.Search(ctx, query+ls.Suffix)
	if err != nil {
		return failedResult(err)
	}
	text, ok := firstSnippet(snippets)
	if !ok {
		return stepResult{}
	}
	res := hitResult(text, models.SourceWebSearch)
	res.ttl = ls.TTL
	return res
}

func needsLiveInfo(key string, triggers []string) bool {
	tokens := models.QueryTokens(key)
	for _, t := range triggers {
		if models.ContainsTerm(key, tokens, t) {
			return true
		}
	}
	return false
}

func (p *Pipeline) fromGeneration(ctx context.Context, query, _ string) stepResult {
	if p.deps.Generator == nil {
		return stepResult{}
	}
	var text string
	_, err := p.deps.Retry.Execute(ctx, func(ctx context.Context) error {
		var err error
		text, err = p.deps.Generator.Complete(ctx, p.cfg.SystemPrompt, query)
		return err
	})
	if err != nil {
		return failedResult(err)
	}
	if strings.TrimSpace(text) == "" {
		return stepResult{}
	}
	return hitResult(text, models.SourceGeneration)
}

func (p *Pipeline) fromCache(_ context.Context, _, key string) stepResult {
	if p.deps.Cache == nil {
		return stepResult{}
	}
	e, ok := p.deps.Cache.Get(key)
	p.deps.Metrics.RecordCacheLookup(ok)
	if !ok {
		return stepResult{}
	}
	return hitResult(e.Answer, models.SourceCache)
}

func (p *Pipeline) fromLocal(_ context.Context, query, _ string) stepResult {
	if p.cfg.Local == nil {
		return stepResult{}
	}
	text, ok := p.cfg.Local.Resolve(query, p.deps.Now())
	if !ok || text == "" {
		return stepResult{}
	}
	return hitResult(text, models.SourceLocal)
}

// fromPages returns the first hit in URL order, even when pages are fetched in parallel.
func (p *Pipeline) fromPages(ctx context.Context, query, _ string) stepResult {
	urls := p.cfg.URLs
	if len(urls) == 0 || p.deps.Fetcher == nil || p.deps.Extractor == nil {
		return stepResult{}
	}

	results := make([]stepResult, len(urls))
	if p.cfg.FetchConcurrency > 1 && len(urls) > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.cfg.FetchConcurrency)
		var panicOnce sync.Once
		var panicked any
		for i, u := range urls {
			g.Go(func() error {
				// re-raised below so resolve can recover it
				defer func() {
					if r := recover(); r != nil {
						panicOnce.Do(func() { panicked = r })
					}
				}()
				results[i] = p.extractFrom(gctx, query, u)
				return nil
			})
		}
		_ = g.Wait()
		if panicked != nil {
			panic(panicked)
		}
	} else {
		for i, u := range urls {
			results[i] = p.extractFrom(ctx, query, u)
			if results[i].kind == hit {
				break
			}
		}
	}

	var errs []error
	for _, r := range results {
		switch r.kind {
		case hit:
			return r
		case failed:
			errs = append(errs, r.err)
		}
	}
	if len(errs) > 0 {
		return failedResult(errors.Join(errs...))
	}
	return stepResult{}
}

func (p *Pipeline) extractFrom(ctx context.Context, query, url string) stepResult {
	page, err := p.deps.Fetcher.Fetch(ctx, url)
	if err != nil {
		return failedResult(err)
	}
	text := fetch.ExtractText(page, p.cfg.MaxPageChars)
	if text == "" {
		return stepResult{}
	}
	reply, err := p.deps.Extractor.Complete(ctx, ExtractionPrompt, extractionInput(query, text))
	if err != nil {
		return failedResult(err)
	}
	reply = strings.TrimSpace(reply)
	if reply == "" || isMissToken(reply) {
		return stepResult{}
	}
	return hitResult(reply, models.SourceFetchedPage)
}

func (p *Pipeline) fromSearch(ctx context.Context, query, _ string) stepResult {
	if p.deps.Searcher == nil {
		return stepResult{}
	}
	snippets, err := p.deps.Searcher.Search(ctx, query)
	if err != nil {
		return failedResult(err)
	}
	text, ok := firstSnippet(snippets)
	if !ok {
		return stepResult{}
	}
	return hitResult(text, models.SourceWebSearch)
}

func firstSnippet(snippets []string) (string, bool) {
	for _, s := range snippets {
		if s = strings.TrimSpace(s); s != "" {
			return s, true
		}
	}
	return "", false
}
