package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/hbq0405/emby-actor-processor/internal/config"
	"github.com/hbq0405/emby-actor-processor/internal/metrics"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook listener, task scheduler, and background task worker",
		Long: `serve starts the long-running embyactor process: the webhook
router (C13) for item-added/image-updated events, the cron scheduler
(C12) submitting the configured task keys, the single-slot task worker
that runs them, and (unless disabled) a prometheus /metrics listener.

Examples:
  embyactor serve                  # listen on :8081
  embyactor serve --addr :9000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":8081", "address the webhook/status HTTP server listens on")
	return cmd
}

func runServe(addr string) error {
	cfg, err := config.LoadFrom(cfgFile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	a, err := buildApp(cfg)
	if err != nil {
		return fmt.Errorf("building app: %w", err)
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := a.manager.Start(ctx); err != nil {
		return fmt.Errorf("starting task worker: %w", err)
	}
	a.scheduler.Start()
	defer a.scheduler.Stop()

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				a.log.Error("serve", "metrics listener failed", err)
			}
		}()
		log.Printf("metrics listening on %s", cfg.Metrics.Addr)
	}

	server := &http.Server{Addr: addr, Handler: a.router.Handler()}
	errChan := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	log.Printf("embyactor listening on %s", addr)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("received signal %v, shutting down", sig)
	case err := <-errChan:
		log.Printf("webhook server error: %v", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = server.Shutdown(shutdownCtx)
	if metricsServer != nil {
		_ = metricsServer.Shutdown(shutdownCtx)
	}
	cancel()
	return nil
}
