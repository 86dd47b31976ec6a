// Package retry implements the backoff policy applied to outbound generation calls.
package retry

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Class is the retry classification of a failed attempt.
type Class int

const (
	// Fatal errors are terminal and carry no special message.
	Fatal Class = iota
	// RateLimited errors retry after 2^attempt base delays.
	RateLimited
	// Transient errors retry after a fixed delay.
	Transient
	// QuotaExceeded errors are terminal.
	QuotaExceeded
	// AuthError errors are terminal.
	AuthError
)

func (c Class) String() string {
	switch c {
	case RateLimited:
		return "rate_limited"
	case Transient:
		return "transient"
	case QuotaExceeded:
		return "quota_exceeded"
	case AuthError:
		return "auth_error"
	default:
		return "fatal"
	}
}

// Retryable reports whether the class consumes another attempt.
func (c Class) Retryable() bool {
	return c == RateLimited || c == Transient
}

// Classifier maps an attempt error to its Class.
type Classifier func(error) Class

// ErrExhausted is returned after every attempt failed with a retryable error.
var ErrExhausted = errors.New("retry: attempts exhausted")

// User-facing messages for terminal failures.
const (
	QuotaMessage = "API kotası doldu. Lütfen sistem yöneticisiyle iletişime geçin."
	AuthMessage  = "API yapılandırma hatası. Lütfen sistem yöneticisiyle iletişime geçin."
)

// TerminalError is a failure that must not be retried.
type TerminalError struct {
	Class Class
	Err   error
}

func (e *TerminalError) Error() string {
	return fmt.Sprintf("retry: terminal %s: %v", e.Class, e.Err)
}

func (e *TerminalError) Unwrap() error { return e.Err }

// UserMessage returns the distinct message for quota and auth failures, or "".
func (e *TerminalError) UserMessage() string {
	switch e.Class {
	case QuotaExceeded:
		return QuotaMessage
	case AuthError:
		return AuthMessage
	default:
		return ""
	}
}

// Config controls the retry schedule.
type Config struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	TransientDelay time.Duration
}

// DefaultConfig returns three attempts with one-second delays.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:    3,
		BaseDelay:      time.Second,
		TransientDelay: time.Second,
	}
}

// State describes one Execute call. Attempt is the number of calls made.
type State struct {
	Attempt     int
	MaxAttempts int
	BaseDelay   time.Duration
}

// Policy applies a retry schedule to a single outbound call.
type Policy struct {
	cfg      Config
	classify Classifier
	sleep    func(ctx context.Context, d time.Duration) error
	observe  func(Class)
}

// Option customizes a Policy.
type Option func(*Policy)

// WithSleep replaces the wait between attempts.
func WithSleep(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Policy) { p.sleep = fn }
}

// WithObserver is called with the class of every failed attempt.
func WithObserver(fn func(Class)) Option {
	return func(p *Policy) { p.observe = fn }
}

// New creates a Policy. Zero config fields take their defaults; a nil
// classifier treats every error as fatal.
func New(cfg Config, classify Classifier, opts ...Option) *Policy {
	def := DefaultConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.BaseDelay <= 0 {
		cfg.BaseDelay = def.BaseDelay
	}
	if cfg.TransientDelay <= 0 {
		cfg.TransientDelay = def.TransientDelay
	}
	if classify == nil {
		classify = func(error) Class { return Fatal }
	}
	p := &Policy{cfg: cfg, classify: classify, sleep: sleepContext}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Execute runs call until it succeeds, fails terminally, or runs out of attempts.
// A nil error means success; otherwise the error is a *TerminalError or wraps ErrExhausted.
func (p *Policy) Execute(ctx context.Context, call func(ctx context.Context) error) (State, error) {
	st := State{MaxAttempts: p.cfg.MaxAttempts, BaseDelay: p.cfg.BaseDelay}

	var last error
	for st.Attempt = 0; st.Attempt < st.MaxAttempts; st.Attempt++ {
		err := call(ctx)
		if err == nil {
			st.Attempt++
			return st, nil
		}
		last = err

		class := p.classify(err)
		if p.observe != nil {
			p.observe(class)
		}
		if !class.Retryable() {
			st.Attempt++
			return st, &TerminalError{Class: class, Err: err}
		}
		if st.Attempt == st.MaxAttempts-1 {
			break
		}

		if err := p.sleep(ctx, p.delay(class, st.Attempt)); err != nil {
			st.Attempt++
			return st, &TerminalError{Class: Fatal, Err: err}
		}
	}
	st.Attempt = st.MaxAttempts
	return st, fmt.Errorf("%w after %d attempts: %w", ErrExhausted, st.MaxAttempts, last)
}

func (p *Policy) delay(class Class, attempt int) time.Duration {
	if class == RateLimited {
		return p.cfg.BaseDelay * time.Duration(1<<attempt)
	}
	return p.cfg.TransientDelay
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
