package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "rating-finder",
	Short: "Credit rating lookup service",
	Long:  "Finds S&P, Fitch and Moody's issuer ratings for a company from vendor APIs and public agency and investor-relations pages, normalizes and validates them.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
