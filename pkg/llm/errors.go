package llm

import (
	"errors"

	"github.com/pario-ai/sage/pkg/retry"
)

// Generation failure taxonomy. Client errors wrap one of these around the provider error.
var (
	ErrRateLimited   = errors.New("llm: rate limited")
	ErrTransient     = errors.New("llm: transient service error")
	ErrQuotaExceeded = errors.New("llm: quota exceeded")
	ErrAuth          = errors.New("llm: authentication failed")
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Classify maps a generation error to its retry class.
func Classify(err error) retry.Class {
	switch {
	case errors.Is(err, ErrRateLimited):
		return retry.RateLimited
	case errors.Is(err, ErrTransient):
		return retry.Transient
	case errors.Is(err, ErrQuotaExceeded):
		return retry.QuotaExceeded
	case errors.Is(err, ErrAuth):
		return retry.AuthError
	default:
		return retry.Fatal
	}
}
