package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/tracker"
)

func newStatsCmd(ro *rootOptions) *cobra.Command {
	var (
		deployment string
		since      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show token usage by entity kind",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ro)
			if err != nil {
				return err
			}
			if cfg.Tracker.DBPath == "" {
				fmt.Println("Usage tracking is disabled.")
				return nil
			}
			if err := ensureParent(cfg.Tracker.DBPath); err != nil {
				return err
			}

			tr, err := tracker.New(cfg.Tracker.DBPath)
			if err != nil {
				return err
			}
			defer tr.Close()

			ctx := cmd.Context()

			if since > 0 {
				total, err := tr.TotalSince(ctx, time.Now().UTC().Add(-since))
				if err != nil {
					return err
				}
				fmt.Printf("Tokens in the last %s: %d\n", since, total)
				return nil
			}

			summaries, err := tr.Summary(ctx, deployment)
			if err != nil {
				return err
			}

			if len(summaries) == 0 {
				fmt.Println("No usage data found.")
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "KIND\tDEPLOYMENT\tREQUESTS\tATTEMPTS\tPROMPT\tCOMPLETION\tTOTAL")
			for _, s := range summaries {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
					s.EntityKind, s.Deployment, s.RequestCount, s.TotalAttempts, s.TotalPrompt, s.TotalCompletion, s.TotalTokens)
			}
			return w.Flush()
		},
	}

	cmd.Flags().StringVar(&deployment, "deployment", "", "filter by deployment name")
	cmd.Flags().DurationVar(&since, "since", 0, "show only the token total for this trailing window, e.g. 24h")
	return cmd
}
