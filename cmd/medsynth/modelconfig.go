package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/medsynth/medsynth/pkg/completion"
	"github.com/medsynth/medsynth/pkg/models"
)

func newModelConfigCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "model-config",
		Short: "Persist the deployment configuration in the cache backend",
	}

	var mc models.ModelConfig
	saveCmd := &cobra.Command{
		Use:   "save",
		Short: "Save a model configuration (flags override config and environment)",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, c, _, err := openCache(cmd.Context(), ro)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			merged := cfg.Model
			if mc.Endpoint != "" {
				merged.Endpoint = mc.Endpoint
			}
			if mc.APIKey != "" {
				merged.APIKey = mc.APIKey
			}
			if mc.DeploymentName != "" {
				merged.DeploymentName = mc.DeploymentName
			}
			if mc.APIVersion != "" {
				merged.APIVersion = mc.APIVersion
			}
			if err := completion.ValidateConfig(merged); err != nil {
				return err
			}
			if err := c.ModelConfigs().Save(cmd.Context(), merged); err != nil {
				return err
			}
			fmt.Printf("Model config saved to %s backend.\n", c.Backend())
			return nil
		},
	}
	saveCmd.Flags().StringVar(&mc.Endpoint, "endpoint", "", "deployment endpoint URL")
	saveCmd.Flags().StringVar(&mc.APIKey, "api-key", "", "API key")
	saveCmd.Flags().StringVar(&mc.DeploymentName, "deployment", "", "deployment name")
	saveCmd.Flags().StringVar(&mc.APIVersion, "api-version", "", "API version")

	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show the saved model configuration with the key masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := openCache(cmd.Context(), ro)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			saved, err := c.ModelConfigs().Load(cmd.Context())
			if err != nil {
				return err
			}
			if saved == nil {
				fmt.Println("No model config saved.")
				return nil
			}
			r := saved.Redacted()
			fmt.Printf("Endpoint:    %s\nDeployment:  %s\nAPI version: %s\nAPI key:     %s\n",
				r.Endpoint, r.DeploymentName, r.APIVersion, r.APIKey)
			return nil
		},
	}

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove the saved model configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := openCache(cmd.Context(), ro)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if err := c.ModelConfigs().Clear(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Model config cleared.")
			return nil
		},
	}

	cmd.AddCommand(saveCmd, showCmd, clearCmd)
	return cmd
}
