package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/mcp"
)

func newMCPCmd(ro *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve generation and cache tools over MCP (JSON-RPC on stdio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, ro)
			if err != nil {
				return err
			}
			defer a.Close()

			mc, err := a.modelConfig(ctx)
			if err != nil {
				return err
			}

			var usage mcp.UsageSummarizer
			if a.tracker != nil {
				usage = a.tracker
			}
			var budgets mcp.BudgetStatuser
			if a.budget != nil {
				budgets = a.budget
			}
			srv := mcp.New(a.gen, mc, a.cache, usage, budgets, a.logger, version)
			a.logger.Info().Str("backend", a.cache.Backend()).Msg("mcp server listening on stdio")
			return srv.Run(ctx, os.Stdin, os.Stdout)
		},
	}
}
