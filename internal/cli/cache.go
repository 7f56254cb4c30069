package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"tsp-router/internal/server"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the distance cache",
	}

	cmd.AddCommand(c.cacheClearCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached distance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := c.loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			cache, err := server.OpenCache(ctx, cfg.Cache, c.Logger)
			if err != nil {
				return err
			}
			defer cache.Close()

			count, err := cache.Count(ctx)
			if err != nil {
				return fmt.Errorf("count cache entries: %w", err)
			}
			if err := cache.Clear(ctx); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			out := cmd.OutOrStdout()
			printSuccess(out, "Cleared %d cached entries", count)
			printDetail(out, "Backend: %s", cfg.Cache.Backend)
			return nil
		},
	}
}
