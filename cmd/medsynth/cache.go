package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCacheCmd(ro *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the generation cache",
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show cache statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := openCache(cmd.Context(), ro)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			s := c.Stats(cmd.Context())
			fmt.Printf("Backend: %s\nEntries: %d\nValid:   %d\nExpired: %d\nCorrupt: %d\nSize:    %d bytes\n",
				s.Backend, s.Entries, s.Valid, s.Expired, s.Corrupt, s.SizeBytes)
			return nil
		},
	}

	var expiredOnly bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Clear cache entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, c, _, err := openCache(cmd.Context(), ro)
			if err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			if expiredOnly {
				n := c.ClearExpired(cmd.Context())
				fmt.Printf("%d expired cache entries cleared.\n", n)
				return nil
			}
			n := c.Clear(cmd.Context())
			fmt.Printf("%d cache entries cleared.\n", n)
			return nil
		},
	}
	clearCmd.Flags().BoolVar(&expiredOnly, "expired", false, "only clear expired entries")

	cmd.AddCommand(statsCmd, clearCmd)
	return cmd
}
