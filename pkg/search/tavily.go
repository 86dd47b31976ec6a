// Package search queries a web search service for answer snippets.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrService is wrapped by every search failure.
var ErrService = errors.New("search service error")

// Searcher returns ordered text snippets for a query. No results is an empty slice.
type Searcher interface {
	Search(ctx context.Context, query string) ([]string, error)
}

// Result holds a single search hit.
type Result struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Config configures the Tavily client.
type Config struct {
	URL         string
	APIKey      string
	MaxResults  int
	SearchDepth string
	Timeout     time.Duration
}

// DefaultURL is the Tavily search endpoint.
const DefaultURL = "https://api.tavily.com/search"

// Tavily is a Searcher backed by the Tavily search API.
type Tavily struct {
	cfg  Config
	http *http.Client
}

// NewTavily creates a Tavily client.
func NewTavily(cfg Config) *Tavily {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = 5
	}
	if cfg.SearchDepth == "" {
		cfg.SearchDepth = "advanced"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &Tavily{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

type tavilyRequest struct {
	APIKey        string `json:"api_key"`
	Query         string `json:"query"`
	MaxResults    int    `json:"max_results"`
	SearchDepth   string `json:"search_depth"`
	IncludeAnswer bool   `json:"include_answer"`
}

type tavilyResponse struct {
	Answer  string   `json:"answer"`
	Results []Result `json:"results"`
}

// Search returns the synthesized answer, when present, followed by each result's content.
func (t *Tavily) Search(ctx context.Context, query string) ([]string, error) {
	results, answer, err := t.search(ctx, query)
	if err != nil {
		return nil, err
	}
	snippets := make([]string, 0, len(results)+1)
	if answer != "" {
		snippets = append(snippets, answer)
	}
	for _, r := range results {
		if s := strings.TrimSpace(r.Content); s != "" {
			snippets = append(snippets, s)
		}
	}
	return snippets, nil
}

func (t *Tavily) search(ctx context.Context, query string) ([]Result, string, error) {
	if t.cfg.APIKey == "" {
		return nil, "", errors.Wrap(ErrService, "tavily: api key not configured")
	}
	body, err := json.Marshal(tavilyRequest{
		APIKey:        t.cfg.APIKey,
		Query:         query,
		MaxResults:    t.cfg.MaxResults,
		SearchDepth:   t.cfg.SearchDepth,
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, "", errors.Wrapf(ErrService, "tavily: encode request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.cfg.URL, bytes.NewReader(body))
	if err != nil {
		return nil, "", errors.Wrapf(ErrService, "tavily: new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(ErrService, "tavily: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, "", errors.Wrapf(ErrService, "tavily: read response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, "", errors.Wrap(ErrService, fmt.Sprintf("tavily: status %d: %s", resp.StatusCode, truncate(string(data), 200)))
	}

	var out tavilyResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, "", errors.Wrapf(ErrService, "tavily: decode response: %v", err)
	}
	return out.Results, strings.TrimSpace(out.Answer), nil
}

// truncate cuts s to n runes.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
