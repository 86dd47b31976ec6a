// Package local answers queries that need no outside source: dates, times and fixed facts.
package local

import (
	"fmt"
	"time"

	"github.com/pario-ai/sage/pkg/models"
)

// Resolver answers a query from static or derived knowledge. Implementations
// must be pure: no I/O and bounded time.
type Resolver interface {
	Resolve(query string, now time.Time) (string, bool)
}

// Fact is a fixed answer returned when any keyword appears in the query.
type Fact struct {
	Keywords []string `yaml:"keywords"`
	Answer   string   `yaml:"answer"`
}

var (
	dateKeywords      = []string{"bugün", "tarih", "günlerden", "ayın kaçı"}
	tomorrowKeywords  = []string{"yarın"}
	yesterdayKeywords = []string{"dün"}
	timeKeywords      = []string{"saat kaç", "saat"}
)

// Knowledge is the built-in Resolver. The zero value answers date and time
// questions in UTC and knows no facts.
type Knowledge struct {
	Location *time.Location
	Facts    []Fact
	// NoClock disables date and time answers.
	NoClock bool
}

// New returns a Knowledge with the built-in city and currency facts plus extra.
func New(loc *time.Location, extra ...Fact) *Knowledge {
	facts := make([]Fact, 0, len(builtinFacts)+len(extra))
	for _, f := range extra {
		facts = append(facts, normalizeFact(f))
	}
	facts = append(facts, builtinFacts...)
	return &Knowledge{Location: loc, Facts: facts}
}

func normalizeFact(f Fact) Fact {
	kws := make([]string, len(f.Keywords))
	for i, k := range f.Keywords {
		kws[i] = models.NormalizeQuery(k)
	}
	return Fact{Keywords: kws, Answer: f.Answer}
}

// Resolve implements Resolver. Time questions win over date questions, and
// clock answers win over facts.
func (k *Knowledge) Resolve(query string, now time.Time) (string, bool) {
	q := models.NormalizeQuery(query)
	if q == "" {
		return "", false
	}
	tokens := models.QueryTokens(q)

	if !k.NoClock {
		if k.Location != nil {
			now = now.In(k.Location)
		}
		switch {
		case containsAny(q, tokens, timeKeywords):
			return fmt.Sprintf("Şu an saat %s", now.Format("15:04")), true
		case containsAny(q, tokens, tomorrowKeywords):
			return "Yarın " + FormatDate(now.AddDate(0, 0, 1)), true
		case containsAny(q, tokens, yesterdayKeywords):
			return "Dün " + FormatDate(now.AddDate(0, 0, -1)), true
		case containsAny(q, tokens, dateKeywords):
			return "Bugün " + FormatDate(now), true
		}
	}

	for _, f := range k.Facts {
		if containsAny(q, tokens, f.Keywords) {
			return f.Answer, true
		}
	}
	return "", false
}

func containsAny(q string, tokens, terms []string) bool {
	for _, t := range terms {
		if models.ContainsTerm(q, tokens, t) {
			return true
		}
	}
	return false
}
