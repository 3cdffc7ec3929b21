// reviewd is the AI submission review service for the learning platform:
// it analyzes student submissions and generates follow-up questions.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kurslab/reviewd/internal/config"
	"github.com/kurslab/reviewd/internal/storage"
)

var (
	// Shared across subcommands, populated by the root PersistentPreRunE
	store storage.Storage
	cfg   *config.ServiceConfig

	configPath string
	dbPath     string
)

var rootCmd = &cobra.Command{
	Use:   "reviewd",
	Short: "AI submission review service",
	Long: `reviewd analyzes student submissions with an AI reviewer and generates
follow-up questions, filtered for triviality and duplicates.

Run 'reviewd serve' to start the HTTP service, or use 'trigger' and
'status' to drive reviews from the command line.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}

		store, err = storage.NewStorage(cmd.Context(), &storage.Config{Path: cfg.DatabasePath})
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if store != nil {
			_ = store.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "reviewd.yaml", "Path to the service config file")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
