package main

import (
	"fmt"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kurslab/reviewd/internal/types"
)

var statusEvents int

var statusCmd = &cobra.Command{
	Use:   "status <submission-id>",
	Short: "Show the review status for a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		submissionID := args[0]
		ctx := cmd.Context()

		rec, err := store.GetReviewBySubmission(ctx, submissionID)
		if err != nil {
			return err
		}
		if rec == nil {
			gray := color.New(color.FgHiBlack).SprintFunc()
			fmt.Printf("%s\n", gray("No review yet for "+submissionID))
			return nil
		}

		printReview(rec, true)

		if statusEvents > 0 {
			events, err := store.GetReviewEvents(ctx, submissionID, statusEvents)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to load events: %v\n", err)
				return nil
			}

			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s\n", yellow("Recent events:"))
			for _, ev := range events {
				fmt.Printf("  %s  %-10s %s\n",
					ev.CreatedAt.Format("2006-01-02 15:04:05"), ev.EventType, ev.Actor)
			}
		}
		return nil
	},
}

// printReview renders a review record for terminal output
func printReview(rec *types.Review, withHeader bool) {
	cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
	green := color.New(color.FgGreen).SprintFunc()
	red := color.New(color.FgRed).SprintFunc()
	yellow := color.New(color.FgYellow).SprintFunc()
	gray := color.New(color.FgHiBlack).SprintFunc()

	if withHeader {
		fmt.Printf("\n%s\n\n", cyan("=== Review for "+rec.SubmissionID+" ==="))
	}

	statusColor := gray
	switch rec.Status {
	case types.StatusCompleted:
		statusColor = green
	case types.StatusFailed:
		statusColor = red
	case types.StatusProcessing:
		statusColor = yellow
	}

	fmt.Printf("Status:  %s\n", statusColor(string(rec.Status)))
	fmt.Printf("Run:     %s\n", rec.ID)
	fmt.Printf("Started: %s\n", rec.StartedAt.Format("2006-01-02 15:04:05"))
	if rec.FinishedAt != nil {
		fmt.Printf("Finished: %s (%v)\n",
			rec.FinishedAt.Format("2006-01-02 15:04:05"),
			rec.FinishedAt.Sub(rec.StartedAt).Round(time.Second))
	}

	if rec.Status == types.StatusFailed && rec.ErrorMessage != "" {
		fmt.Printf("\n%s %s\n", red("Error:"), rec.ErrorMessage)
		return
	}

	if rec.Analysis != nil {
		fmt.Printf("\n%s %s\n", yellow("Verdict:"), rec.Analysis.ShortVerdict)
		printList(green("Strengths:"), rec.Analysis.Strengths)
		printList(red("Weaknesses:"), rec.Analysis.Weaknesses)
		printList(yellow("Gaps:"), rec.Analysis.Gaps)
		printList(red("Risk flags:"), rec.Analysis.RiskFlags)
		if rec.Analysis.Confidence != nil {
			fmt.Printf("Confidence: %.2f\n", *rec.Analysis.Confidence)
		}
	}

	if len(rec.Questions) > 0 {
		fmt.Printf("\n%s\n", yellow("Follow-up questions:"))
		for i, q := range rec.Questions {
			fmt.Printf("  %d. %s\n", i+1, q.Question)
			fmt.Printf("     %s\n", gray(fmt.Sprintf("%s / %s / from %s", q.Type, q.Difficulty, q.Source)))
		}
	}
}

func printList(label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Printf("%s\n", label)
	for _, item := range items {
		fmt.Printf("  - %s\n", item)
	}
}

func init() {
	statusCmd.Flags().IntVar(&statusEvents, "events", 0, "Show the N most recent audit events")
	rootCmd.AddCommand(statusCmd)
}
