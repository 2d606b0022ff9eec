package main

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/audit"
	"github.com/medsynth/medsynth/pkg/models"
)

func newAuditCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Query and manage the generation audit log",
	}

	cmd.AddCommand(
		newAuditSearchCmd(ro),
		newAuditShowCmd(ro),
		newAuditStatsCmd(ro),
		newAuditCleanupCmd(ro),
	)
	return cmd
}

func newAuditSearchCmd(ro *rootOptions) *cobra.Command {
	var (
		kind       string
		deployment string
		outcome    string
		since      string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search audit log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(ro)
			if err != nil {
				return err
			}
			defer cleanup()

			opts := models.AuditQueryOpts{
				EntityKind: models.EntityKind(kind),
				Deployment: deployment,
				Outcome:    outcome,
				Limit:      limit,
			}
			if since != "" {
				t, err := time.Parse("2006-01-02", since)
				if err != nil {
					return fmt.Errorf("invalid --since date (use YYYY-MM-DD): %w", err)
				}
				opts.Since = t
			}

			entries, err := l.Query(cmd.Context(), opts)
			if err != nil {
				return err
			}
			fmt.Print(formatAuditEntries(entries))
			return nil
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "", "filter by entity kind, e.g. patient")
	cmd.Flags().StringVar(&deployment, "deployment", "", "filter by deployment")
	cmd.Flags().StringVar(&outcome, "outcome", "", "filter by outcome (ok, invalid, failed)")
	cmd.Flags().StringVar(&since, "since", "", "start date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&limit, "limit", 50, "max entries to return")

	return cmd
}

func newAuditShowCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a single audit entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(ro)
			if err != nil {
				return err
			}
			defer cleanup()

			entries, err := l.Query(cmd.Context(), models.AuditQueryOpts{ID: args[0], Limit: 1})
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Println("No entry found for that ID.")
				return nil
			}

			e := entries[0]
			fmt.Printf("ID:          %s\n", e.ID)
			fmt.Printf("Kind:        %s\n", e.EntityKind)
			fmt.Printf("Deployment:  %s\n", e.Deployment)
			fmt.Printf("Key:         %s\n", e.KeyHash)
			fmt.Printf("Cache key:   %s\n", e.CacheKey)
			fmt.Printf("Outcome:     %s\n", e.Outcome)
			fmt.Printf("Attempts:    %d\n", e.Attempts)
			fmt.Printf("Tokens:      %d\n", e.TotalTokens)
			fmt.Printf("Latency:     %dms\n", e.LatencyMs)
			fmt.Printf("Time:        %s\n", e.CreatedAt.Format(time.RFC3339))
			if e.Error != "" {
				fmt.Printf("Error:       %s\n", e.Error)
			}
			if e.Prompt != "" {
				fmt.Printf("\n--- Prompt ---\n%s\n", e.Prompt)
			}
			if e.Response != "" {
				fmt.Printf("\n--- Response ---\n%s\n", e.Response)
			}
			return nil
		},
	}
}

func newAuditStatsCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show audit counts by kind, outcome and day",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(ro)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := l.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(formatAuditStats(stats))
			return nil
		},
	}
}

func newAuditCleanupCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup",
		Short: "Delete audit entries older than the retention period",
		RunE: func(cmd *cobra.Command, args []string) error {
			l, cleanup, err := openAuditLogger(ro)
			if err != nil {
				return err
			}
			defer cleanup()

			deleted, err := l.Cleanup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("Deleted %d audit entries.\n", deleted)
			return nil
		},
	}
}

func openAuditLogger(ro *rootOptions) (*audit.Logger, func(), error) {
	cfg, err := loadConfig(ro)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Audit.DBPath == "" {
		return nil, nil, errors.New("audit.db_path is not set")
	}
	if err := ensureParent(cfg.Audit.DBPath); err != nil {
		return nil, nil, err
	}

	l, err := audit.New(cfg.Audit)
	if err != nil {
		return nil, nil, fmt.Errorf("open audit db: %w", err)
	}
	return l, func() { _ = l.Close() }, nil
}

func formatAuditEntries(entries []models.AuditEntry) string {
	if len(entries) == 0 {
		return "No audit entries found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-36s %-16s %-16s %-8s %8s %8s %8s %-19s\n",
		"ID", "KIND", "DEPLOYMENT", "OUTCOME", "ATTEMPTS", "LATENCY", "TOKENS", "TIME")
	b.WriteString(strings.Repeat("-", 128) + "\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%-36s %-16s %-16s %-8s %8d %6dms %8d %-19s\n",
			e.ID, e.EntityKind, e.Deployment, e.Outcome, e.Attempts,
			e.LatencyMs, e.TotalTokens,
			e.CreatedAt.Format("2006-01-02 15:04:05"))
	}
	return b.String()
}

func formatAuditStats(stats []models.AuditStat) string {
	if len(stats) == 0 {
		return "No audit stats found.\n"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%-18s %-8s %-12s %8s\n", "KIND", "OUTCOME", "DAY", "COUNT")
	b.WriteString(strings.Repeat("-", 49) + "\n")
	for _, s := range stats {
		fmt.Fprintf(&b, "%-18s %-8s %-12s %8d\n", s.EntityKind, s.Outcome, s.Day, s.Count)
	}
	return b.String()
}
