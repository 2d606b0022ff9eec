package main

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/budget"
	"github.com/medsynth/medsynth/pkg/tracker"
)

func newBudgetCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budget",
		Short: "Inspect token budgets",
	}

	var deployment string
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show budget usage vs limits",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ro)
			if err != nil {
				return err
			}
			if len(cfg.Budgets) == 0 {
				fmt.Println("No budgets configured.")
				return nil
			}
			if cfg.Tracker.DBPath == "" {
				return errors.New("budgets need usage tracking; set tracker.db_path")
			}
			if err := ensureParent(cfg.Tracker.DBPath); err != nil {
				return err
			}

			tr, err := tracker.New(cfg.Tracker.DBPath)
			if err != nil {
				return err
			}
			defer func() { _ = tr.Close() }()

			name := deployment
			if name == "" {
				name = cfg.Model.DeploymentName
			}
			if name == "" {
				return errors.New("no deployment configured; pass --deployment")
			}

			statuses, err := budget.New(cfg.Budgets, tr).Status(cmd.Context(), name)
			if err != nil {
				return err
			}
			if len(statuses) == 0 {
				fmt.Printf("No budget policies apply to %s.\n", name)
				return nil
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DEPLOYMENT\tKIND\tPERIOD\tMAX TOKENS\tUSED\tREMAINING")
			for _, s := range statuses {
				kind := string(s.Policy.EntityKind)
				if kind == "" {
					kind = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%d\n",
					name, kind, s.Policy.Period, s.Policy.MaxTokens, s.Used, s.Remaining)
			}
			return w.Flush()
		},
	}
	statusCmd.Flags().StringVar(&deployment, "deployment", "", "deployment to report (default: the configured one)")

	policiesCmd := &cobra.Command{
		Use:   "policies",
		Short: "List configured budget policies",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(ro)
			if err != nil {
				return err
			}
			policies := budget.New(cfg.Budgets, nil).Policies()
			if len(policies) == 0 {
				fmt.Println("No budgets configured.")
				return nil
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "DEPLOYMENT\tKIND\tPERIOD\tMAX TOKENS")
			for _, p := range policies {
				kind := string(p.EntityKind)
				if kind == "" {
					kind = "*"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", p.Deployment, kind, p.Period, p.MaxTokens)
			}
			return w.Flush()
		},
	}

	cmd.AddCommand(statusCmd, policiesCmd)
	return cmd
}
