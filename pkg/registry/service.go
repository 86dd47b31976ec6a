package registry

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"strings"
	"time"

	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/metrics"
	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/retry"
)

// GenericPrompt is the system prompt for questions no expert handles.
const GenericPrompt = "Sen genel bilgi asistanısın. Soruya mevcut bilgilerinle en iyi şekilde cevap ver. Emin olmadığın konularda bunu belirt."

// genericConfidence marks model-only answers that no source backs.
const genericConfidence = 0.5

// Selector picks an expert for a query.
type Selector interface {
	Classify(ctx context.Context, query string) models.ExpertID
}

// Resolver answers a query. Both pipelines and the generic path satisfy it.
type Resolver interface {
	Resolve(ctx context.Context, query string) models.Answer
}

// Generic answers with a single generation call and no other sources.
type Generic struct {
	gen     llm.Generator
	retry   *retry.Policy
	metrics metrics.Recorder
	logger  *slog.Logger
}

// NewGeneric creates the fallback resolver. A nil policy makes a single attempt.
func NewGeneric(gen llm.Generator, policy *retry.Policy, rec metrics.Recorder, logger *slog.Logger) *Generic {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generic{gen: gen, retry: policy, metrics: rec, logger: logger}
}

// Resolve implements Resolver.
func (g *Generic) Resolve(ctx context.Context, query string) (answer models.Answer) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("generic resolution panicked", slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
			answer = models.InternalError(models.ExpertNone)
		}
		g.metrics.RecordResolution(string(models.ExpertNone), string(answer.Source), string(answer.Outcome), time.Since(start))
	}()

	if strings.TrimSpace(query) == "" || g.gen == nil {
		return models.Unresolved(models.ExpertNone, "")
	}

	var text string
	call := func(ctx context.Context) error {
		var err error
		text, err = g.gen.Complete(ctx, GenericPrompt, fmt.Sprintf("Soru: %s", query))
		return err
	}
	var err error
	if g.retry != nil {
		_, err = g.retry.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil || strings.TrimSpace(text) == "" {
		if err != nil {
			g.logger.Warn("generic generation failed", slog.String("error", err.Error()))
		}
		return models.Unresolved(models.ExpertNone, "")
	}

	return models.Answer{
		Text:       text,
		Expert:     models.ExpertNone,
		Source:     models.SourceGeneration,
		Confidence: genericConfidence,
		Outcome:    models.OutcomeAnswered,
	}
}

// Service classifies queries and dispatches them to the matching pipeline.
type Service struct {
	selector Selector
	registry *Registry
	generic  Resolver
	logger   *slog.Logger
}

// NewService creates a Service. generic handles ExpertNone and ids with no
// registered pipeline; a nil generic returns the apology for those.
func NewService(selector Selector, reg *Registry, generic Resolver, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = New()
	}
	return &Service{selector: selector, registry: reg, generic: generic, logger: logger}
}

// Registry returns the experts served by s.
func (s *Service) Registry() *Registry { return s.registry }

// Ask classifies query and resolves it with the selected expert.
func (s *Service) Ask(ctx context.Context, query string) models.Answer {
	id := models.ExpertNone
	if s.selector != nil && strings.TrimSpace(query) != "" {
		id = s.selector.Classify(ctx, query)
	}
	return s.AskExpert(ctx, id, query)
}

// AskExpert resolves query with the given expert, skipping classification.
func (s *Service) AskExpert(ctx context.Context, id models.ExpertID, query string) models.Answer {
	if p, ok := s.registry.Lookup(id); ok {
		s.logger.Debug("dispatching query", slog.String("expert", string(id)))
		return p.Resolve(ctx, query)
	}
	if id != models.ExpertNone {
		s.logger.Info("no pipeline registered, using generic path", slog.String("expert", string(id)))
	}
	if s.generic == nil {
		return models.Unresolved(models.ExpertNone, "")
	}
	return s.generic.Resolve(ctx, query)
}
