// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/jobstream/internal/history"
	"github.com/pdiddy/jobstream/internal/metrics"
	"github.com/pdiddy/jobstream/internal/search"
	"github.com/pdiddy/jobstream/internal/server"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the streaming search API",
	Long: `Serve exposes GET /api/search/stream (Server-Sent Events), GET /api/search,
GET /api/history, /healthz and /metrics. Search history is written to the
configured store and expired on the history.cleanup_schedule cron spec.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector()
	a, err := newApp(ctx, cfg, search.WithObserver(collector))
	if err != nil {
		return err
	}
	defer a.Close()

	store, err := history.Open(ctx, cfg.History)
	if err != nil {
		return err
	}
	defer store.Close()

	janitor := history.NewJanitor(store, cfg.History.CleanupSchedule, logger)
	if err := janitor.Start(ctx); err != nil {
		return err
	}
	defer janitor.Stop()

	if cfg.Server.JWTSecret == "" {
		logger.Warn("server.jwt_secret not set; all requests are anonymous")
	}
	srv := server.New(server.Options{
		Aggregator: a.agg,
		History:    store,
		Metrics:    collector,
		JWTSecret:  []byte(cfg.Server.JWTSecret),
		Logger:     logger,
	})

	errc := make(chan error, 1)
	go func() { errc <- srv.Start(cfg.Server.Addr) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (default :8080)")
	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}
