package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/rating-finder/internal/cache"
	"github.com/sells-group/rating-finder/internal/ratings"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the ratings HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		svc, err := ratings.Build(ctx, cfg)
		if err != nil {
			return eris.Wrap(err, "serve: build service")
		}

		caches := cache.NewLazy(func(ctx context.Context) (cache.Cache, error) {
			return cache.Open(ctx, cfg.Cache)
		})
		defer func() {
			if err := caches.Close(); err != nil {
				zap.L().Warn("serve: close cache", zap.Error(err))
			}
		}()

		janitor := cache.NewJanitor(caches)
		if err := janitor.Start(cfg.Cache.CleanupSchedule); err != nil {
			return err
		}
		defer janitor.Stop()

		router := buildRouter(svc, caches, cfg.Server.AllowedOrigins)
		grace := time.Duration(cfg.Server.ShutdownSecs) * time.Second
		return startServer(ctx, router, resolvePort(servePort, cfg.Server.Port), grace)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}
