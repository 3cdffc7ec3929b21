package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kurslab/reviewd/internal/ai"
	"github.com/kurslab/reviewd/internal/api"
	"github.com/kurslab/reviewd/internal/filter"
	"github.com/kurslab/reviewd/internal/review"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP review service",
	Long: `Start the HTTP API. Requires ANTHROPIC_API_KEY in the environment.

The service exposes:
  POST /api/submissions/{id}/review   trigger a review
  GET  /api/submissions/{id}/review   poll review status
  GET  /healthz                       health check`,
	RunE: func(cmd *cobra.Command, args []string) error {
		generator, err := ai.NewAnthropicGenerator(&ai.Config{Model: cfg.Model})
		if err != nil {
			return err
		}

		filterCfg := filter.DefaultConfig()
		cfg.Filter.Apply(&filterCfg)

		orchestrator, err := review.New(&review.Config{
			Store:        store,
			Generator:    generator,
			FilterConfig: &filterCfg,
			RunTimeout:   time.Duration(cfg.RunTimeoutSeconds) * time.Second,
		})
		if err != nil {
			return err
		}

		apiCfg := api.DefaultConfig()
		apiCfg.ListenAddr = cfg.ListenAddr
		apiCfg.TriggerPerMinute = cfg.TriggerPerMinute
		if cfg.AuthToken != "" {
			apiCfg.Authorizer = api.TokenAuthorizer{Token: cfg.AuthToken}
		}

		server, err := api.NewServer(orchestrator, apiCfg)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		if cfg.EventRetentionDays > 0 {
			go pruneLoop(ctx, time.Duration(cfg.EventRetentionDays)*24*time.Hour)
		}

		errCh := make(chan error, 1)
		go func() { errCh <- server.Start() }()
		fmt.Printf("reviewd listening on %s (db: %s)\n", cfg.ListenAddr, cfg.DatabasePath)

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case err := <-errCh:
			return err
		case sig := <-sigCh:
			fmt.Printf("\nReceived %v, shutting down...\n", sig)
		}

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: HTTP shutdown: %v\n", err)
		}
		// In-flight reviews get the same grace period; abandoned runs are
		// recoverable via a forced re-trigger
		if err := orchestrator.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		return nil
	},
}

// pruneLoop removes expired audit events once a day
func pruneLoop(ctx context.Context, retention time.Duration) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pruned, err := store.PruneEvents(ctx, retention)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: event pruning failed: %v\n", err)
				continue
			}
			if pruned > 0 {
				fmt.Printf("Pruned %d expired review events\n", pruned)
			}
		}
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
