package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pario-ai/sage/pkg/models"
)

type askArgs struct {
	Question string `json:"question"`
	Expert   string `json:"expert"`
}

// toolHandler is a function that handles a tool call.
type toolHandler func(ctx context.Context, s *Server, args json.RawMessage) toolResult

// toolHandlers maps tool names to their handlers.
var toolHandlers = map[string]toolHandler{
	"sage_ask":         handleAsk,
	"sage_experts":     handleExperts,
	"sage_cache_stats": handleCacheStats,
}

// allTools is the list of tool definitions exposed via tools/list.
var allTools = []tool{
	{
		Name:        "sage_ask",
		Description: "Answer a question with the best matching expert, falling back through cached, local, page and web search sources.",
		InputSchema: map[string]any{
			"type":     "object",
			"required": []string{"question"},
			"properties": map[string]any{
				"question": map[string]any{
					"type":        "string",
					"description": "The question to answer",
				},
				"expert": map[string]any{
					"type":        "string",
					"description": "Skip classification and use this expert (sports, food, ai, sudostar, general)",
				},
			},
		},
	},
	{
		Name:        "sage_experts",
		Description: "List the configured experts.",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
	{
		Name:        "sage_cache_stats",
		Description: "Show answer cache statistics (entries, hits, misses, hit rate).",
		InputSchema: map[string]any{
			"type":       "object",
			"properties": map[string]any{},
		},
	},
}

func handleAsk(ctx context.Context, s *Server, raw json.RawMessage) toolResult {
	var args askArgs
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return errorResult("invalid arguments: " + err.Error())
		}
	}
	if strings.TrimSpace(args.Question) == "" {
		return errorResult("question is required")
	}
	if s.asker == nil {
		return errorResult("answer service not available")
	}

	var answer models.Answer
	if args.Expert != "" {
		id, ok := models.ParseExpertID(strings.ToLower(args.Expert))
		if !ok {
			return errorResult(fmt.Sprintf("unknown expert: %s", args.Expert))
		}
		answer = s.asker.AskExpert(ctx, id, args.Question)
	} else {
		answer = s.asker.Ask(ctx, args.Question)
	}

	res := textResult(formatAnswer(answer))
	res.IsError = answer.Outcome == models.OutcomeError
	return res
}

func handleExperts(_ context.Context, s *Server, _ json.RawMessage) toolResult {
	return textResult(formatExperts(s.experts))
}

func handleCacheStats(_ context.Context, s *Server, _ json.RawMessage) toolResult {
	if s.cache == nil {
		return errorResult("cache not enabled")
	}
	stats, err := s.cache.Stats()
	if err != nil {
		return errorResult("error: " + err.Error())
	}
	return textResult(formatCacheStats(stats))
}
