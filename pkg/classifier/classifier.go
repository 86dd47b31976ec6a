// Package classifier picks the expert that should handle a query.
package classifier

import (
	"context"
	"log/slog"
	"strings"

	"github.com/pario-ai/sage/pkg/llm"
	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/retry"
)

// Prompt is the instruction sent with every classification request.
const Prompt = `You are an expert classifier. Your task is to determine which expert should handle a given query.
Available experts are:
- sports: For sports and fitness related queries
- food: For food, cooking, and nutrition related queries
- ai: For artificial intelligence and technology related queries
- sudostar: For questions about the SudoStar mobile application
- general: For general queries like weather, news, facts etc.

Respond with ONLY the expert type (sports/food/ai/sudostar/general).`

// Classifier maps queries to experts using the generation service.
type Classifier struct {
	gen    llm.Generator
	retry  *retry.Policy
	logger *slog.Logger
}

// New creates a Classifier. gen should be configured with low temperature and
// a short output budget. A nil policy makes a single attempt.
func New(gen llm.Generator, policy *retry.Policy, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{gen: gen, retry: policy, logger: logger}
}

// Classify returns the expert for query. Unparseable replies give
// ExpertGeneral; service failures give ExpertNone. It never fails.
func (c *Classifier) Classify(ctx context.Context, query string) models.ExpertID {
	var reply string
	call := func(ctx context.Context) error {
		var err error
		reply, err = c.gen.Complete(ctx, Prompt, query)
		return err
	}

	var err error
	if c.retry != nil {
		_, err = c.retry.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		c.logger.Warn("expert classification failed", slog.String("error", err.Error()))
		return models.ExpertNone
	}

	label := strings.ToLower(strings.TrimSpace(reply))
	if label == "" {
		return models.ExpertNone
	}
	for _, id := range models.Experts {
		if label == string(id) {
			c.logger.Debug("expert selected", slog.String("expert", label))
			return id
		}
	}
	c.logger.Debug("unparseable classification, using general", slog.String("reply", reply))
	return models.ExpertGeneral
}
