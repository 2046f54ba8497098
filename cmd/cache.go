package main

import (
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/rating-finder/internal/cache"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Maintain the ratings cache",
}

var cacheCleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete expired cache entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "cache cleanup: open")
		}
		defer func() { _ = c.Close() }()

		n, err := c.Cleanup(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d expired entries\n", n)
		return nil
	},
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Print the metric counters",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, err := cache.Open(ctx, cfg.Cache)
		if err != nil {
			return eris.Wrap(err, "cache stats: open")
		}
		defer func() { _ = c.Close() }()

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(c.Metrics(ctx))
	},
}

func init() {
	cacheCmd.AddCommand(cacheCleanupCmd, cacheStatsCmd)
	rootCmd.AddCommand(cacheCmd)
}
