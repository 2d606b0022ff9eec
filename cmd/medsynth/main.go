package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var version = "dev"

// rootOptions are the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath string
	envFile    string
	logLevel   string
	logFormat  string
}

func main() {
	ro := &rootOptions{}
	root := &cobra.Command{
		Use:           "medsynth",
		Short:         "Medsynth: AI-generated synthetic medical records",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&ro.configPath, "config", "c", "medsynth.yaml", "path to config file")
	root.PersistentFlags().StringVar(&ro.envFile, "env-file", ".env", "dotenv file loaded before the config")
	root.PersistentFlags().StringVar(&ro.logLevel, "log-level", "", "log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&ro.logFormat, "log-format", "", "log format (console, json)")

	root.AddCommand(
		newGenerateCmd(ro),
		newCacheCmd(ro),
		newModelConfigCmd(ro),
		newStatsCmd(ro),
		newBudgetCmd(ro),
		newAuditCmd(ro),
		newSchemaCmd(),
		newMCPCmd(ro),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
