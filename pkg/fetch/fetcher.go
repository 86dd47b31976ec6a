// Package fetch downloads pages for the extraction step and reduces them to plain text.
package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
)

// ErrFetch is wrapped by every fetch failure: network errors and non-2xx statuses.
var ErrFetch = errors.New("fetch failed")

// Fetcher returns the raw HTML at url.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Config configures Client.
type Config struct {
	Timeout      time.Duration
	MaxBodyBytes int64
	UserAgent    string
}

// Client fetches pages over HTTP.
type Client struct {
	http      *http.Client
	maxBody   int64
	userAgent string
}

// New creates a Client.
func New(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 2 << 20
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "sage/1.0"
	}
	return &Client{
		http:      &http.Client{Timeout: cfg.Timeout},
		maxBody:   cfg.MaxBodyBytes,
		userAgent: cfg.UserAgent,
	}
}

// Fetch performs a GET and returns at most MaxBodyBytes of the body.
func (c *Client) Fetch(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.Wrapf(ErrFetch, "new request %s: %v", url, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.5")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", errors.Wrapf(ErrFetch, "get %s: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return "", errors.Wrap(ErrFetch, fmt.Sprintf("get %s: status %d", url, resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return "", errors.Wrapf(ErrFetch, "read %s: %v", url, err)
	}
	return string(body), nil
}
