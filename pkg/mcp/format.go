package mcp

import (
	"fmt"
	"strings"

	"github.com/medsynth/medsynth/pkg/models"
)

// formatSummary formats usage summaries as a text table.
func formatSummary(rows []models.UsageSummary) string {
	if len(rows) == 0 {
		return "No usage data found."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-20s %8s %8s %10s %10s %10s\n",
		"Kind", "Deployment", "Requests", "Attempts", "Prompt", "Completion", "Total")
	b.WriteString(strings.Repeat("-", 90) + "\n")
	for _, r := range rows {
		fmt.Fprintf(&b, "%-18s %-20s %8d %8d %10d %10d %10d\n",
			r.EntityKind, r.Deployment, r.RequestCount, r.TotalAttempts, r.TotalPrompt, r.TotalCompletion, r.TotalTokens)
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
		"  Backend:  %s\n"+
		"  Entries:  %d (%d valid, %d expired, %d corrupt)\n"+
		"  Size:     %d bytes\n"+
		"  Hits:     %d\n"+
		"  Misses:   %d\n"+
		"  Hit Rate: %.1f%%\n",
		stats.Backend, stats.Entries, stats.Valid, stats.Expired, stats.Corrupt,
		stats.SizeBytes, stats.Hits, stats.Misses, hitRate)
}

// formatBudgetStatus formats budget statuses as a text table.
func formatBudgetStatus(deployment string, statuses []models.BudgetStatus) string {
	if len(statuses) == 0 {
		return "No budget policies found for " + deployment + "."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-20s %-18s %-8s %12s %12s %12s %6s\n",
		"Deployment", "Kind", "Period", "Max Tokens", "Used", "Remaining", "Usage%")
	b.WriteString(strings.Repeat("-", 94) + "\n")
	for _, s := range statuses {
		kind := string(s.Policy.EntityKind)
		if kind == "" {
			kind = "*"
		}
		pct := float64(0)
		if s.Policy.MaxTokens > 0 {
			pct = float64(s.Used) / float64(s.Policy.MaxTokens) * 100
		}
		fmt.Fprintf(&b, "%-20s %-18s %-8s %12d %12d %12d %5.1f%%\n",
			deployment, kind, s.Policy.Period, s.Policy.MaxTokens, s.Used, s.Remaining, pct)
	}
	return b.String()
}

func joinTypes(types []models.LabTestType) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}
