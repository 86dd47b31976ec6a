package mcp

import (
	"fmt"
	"strings"

	"github.com/pario-ai/sage/pkg/models"
	"github.com/pario-ai/sage/pkg/registry"
)

// formatAnswer renders the answer text followed by its provenance.
func formatAnswer(a models.Answer) string {
	var b strings.Builder
	b.WriteString(a.Text)
	b.WriteString("\n\n")
	source := string(a.Source)
	if source == "" {
		source = "none"
	}
	fmt.Fprintf(&b, "Expert: %s | Source: %s | Confidence: %.2f | Outcome: %s\n",
		a.Expert, source, a.Confidence, a.Outcome)
	return b.String()
}

// formatExperts formats experts as a text table.
func formatExperts(experts []registry.Info) string {
	if len(experts) == 0 {
		return "No experts configured."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-10s %s\n", "Expert", "Description")
	b.WriteString(strings.Repeat("-", 60) + "\n")
	for _, e := range experts {
		fmt.Fprintf(&b, "%-10s %s\n", e.ID, e.Description)
	}
	return b.String()
}

// formatCacheStats formats cache stats as text.
func formatCacheStats(stats models.CacheStats) string {
	total := stats.Hits + stats.Misses
	hitRate := float64(0)
	if total > 0 {
		hitRate = float64(stats.Hits) / float64(total) * 100
	}
	return fmt.Sprintf("Cache Statistics\n"+
		"  Entries:  %d\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Entries, stats.Hits, stats.Misses, hitRate)
}
