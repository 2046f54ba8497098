package main

import (
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/cache"
	"github.com/sells-group/rating-finder/internal/model"
	"github.com/sells-group/rating-finder/internal/ratings"
)

var (
	lookupTicker  string
	lookupCountry string
	lookupNoCache bool
	lookupFind    bool
)

var lookupCmd = &cobra.Command{
	Use:   "lookup <company name>",
	Short: "Look up ratings for one company and print the JSON response",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		svc, err := ratings.Build(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "lookup: build service")
		}

		if !lookupNoCache {
			c, err := cache.Open(ctx, cfg.Cache)
			if err != nil {
				zap.L().Warn("lookup: cache unavailable, continuing without it", zap.Error(err))
			} else {
				defer func() { _ = c.Close() }()
				ctx = cache.WithContext(ctx, c)
			}
		}

		q := model.Query{
			Name:    strings.Join(args, " "),
			Ticker:  lookupTicker,
			Country: lookupCountry,
		}

		var out any
		if lookupFind {
			out = svc.Find(ctx, q)
		} else {
			out = svc.Ratings(ctx, q)
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	},
}

func init() {
	lookupCmd.Flags().StringVar(&lookupTicker, "ticker", "", "ticker symbol")
	lookupCmd.Flags().StringVar(&lookupCountry, "country", "", "country of incorporation")
	lookupCmd.Flags().BoolVar(&lookupNoCache, "no-cache", false, "skip the result cache")
	lookupCmd.Flags().BoolVar(&lookupFind, "find", false, "print entity and candidate pages instead of ratings")
	rootCmd.AddCommand(lookupCmd)
}
