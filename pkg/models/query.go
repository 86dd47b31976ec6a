package models

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var turkishLower = cases.Lower(language.Turkish)

// NormalizeQuery trims q, collapses runs of whitespace and lower-cases it
// with Turkish casing rules. The result is used as the cache key.
func NormalizeQuery(q string) string {
	return turkishLower.String(strings.Join(strings.Fields(q), " "))
}

// QueryTokens splits a normalized query into words, dropping surrounding punctuation.
func QueryTokens(normalized string) []string {
	fields := strings.Fields(normalized)
	out := fields[:0]
	for _, f := range fields {
		f = strings.Trim(f, ".,;:!?\"'()[]")
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

// ContainsTerm reports whether a normalized query contains term. Single-word
// terms must match a whole token; terms with spaces match as substrings.
func ContainsTerm(normalized string, tokens []string, term string) bool {
	if strings.Contains(term, " ") {
		return strings.Contains(normalized, term)
	}
	for _, t := range tokens {
		if t == term {
			return true
		}
	}
	return false
}
