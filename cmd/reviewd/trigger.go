package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kurslab/reviewd/internal/ai"
	"github.com/kurslab/reviewd/internal/filter"
	"github.com/kurslab/reviewd/internal/poll"
	"github.com/kurslab/reviewd/internal/review"
	"github.com/kurslab/reviewd/internal/types"
)

var (
	triggerForce bool
	triggerWatch bool
)

var triggerCmd = &cobra.Command{
	Use:   "trigger <submission-id>",
	Short: "Trigger an AI review for a submission",
	Long: `Run the AI review for a submission in-process. Requires
ANTHROPIC_API_KEY in the environment.

A completed review is not re-run unless --force is given; a failed review
restarts on any trigger. Use --watch to follow the run until it finishes.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		submissionID := args[0]
		ctx := cmd.Context()

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

		rec, started, err := orchestrator.Trigger(ctx, submissionID, triggerForce)
		if err != nil {
			return err
		}

		green := color.New(color.FgGreen).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()

		if started {
			fmt.Printf("%s review run %s for submission %s\n", green("Started"), rec.ID, submissionID)
		} else {
			fmt.Printf("%s review is %s (run %s)\n", yellow("Unchanged:"), rec.Status, rec.ID)
			if rec.Status == types.StatusCompleted && !triggerForce {
				fmt.Println("Use --force to re-run a completed review")
			}
		}

		if !started && !rec.Status.IsTerminal() && !triggerWatch {
			// A run is already in flight in another process; nothing to wait for here
			return nil
		}

		if started || triggerWatch {
			// Keep the process alive until the background run lands
			final, err := watchReview(ctx, orchestrator, submissionID)
			if err != nil {
				return err
			}
			printReview(final, false)
		}
		return nil
	},
}

// watchReview polls the review until it reaches a terminal status
func watchReview(ctx context.Context, orchestrator *review.Orchestrator, submissionID string) (*types.Review, error) {
	gray := color.New(color.FgHiBlack).SprintFunc()

	poller, err := poll.New(&poll.Config{
		Interval: time.Duration(cfg.PollIntervalSeconds) * time.Second,
		Fetch: func(ctx context.Context) (*types.Review, error) {
			return orchestrator.Status(ctx, submissionID)
		},
		OnUpdate: func(r *types.Review) {
			if !r.Status.IsTerminal() {
				fmt.Printf("%s\n", gray(fmt.Sprintf("  %s...", r.Status)))
			}
		},
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "Warning: status fetch failed: %v\n", err)
		},
	})
	if err != nil {
		return nil, err
	}

	final, err := poller.Wait(ctx)
	if err != nil {
		return nil, fmt.Errorf("stopped waiting: %w", err)
	}
	return final, nil
}

func init() {
	triggerCmd.Flags().BoolVarP(&triggerForce, "force", "f", false, "Re-run even if a review already completed")
	triggerCmd.Flags().BoolVarP(&triggerWatch, "watch", "w", false, "Follow the run until it finishes")
	rootCmd.AddCommand(triggerCmd)
}
