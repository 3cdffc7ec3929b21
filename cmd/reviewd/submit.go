package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kurslab/reviewd/internal/types"
)

var (
	submitTrailID    string
	submitStudentID  string
	submitText       string
	submitFilePath   string
	submitModulePath string
	submitTrailPath  string
)

var submitCmd = &cobra.Command{
	Use:   "submit",
	Short: "Register a submission for review",
	Long: `Create a submission record from text and optional context files.
Normally the platform backend does this; the command exists for local
testing and backfills.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if submitTrailID == "" {
			return fmt.Errorf("--trail is required")
		}
		if strings.TrimSpace(submitText) == "" && submitFilePath == "" {
			return fmt.Errorf("either --text or --file is required")
		}

		sub := &types.Submission{
			ID:        uuid.New().String(),
			TrailID:   submitTrailID,
			StudentID: submitStudentID,
			Text:      submitText,
		}

		var err error
		if sub.FileText, err = readOptionalFile(submitFilePath); err != nil {
			return err
		}
		if sub.ModuleText, err = readOptionalFile(submitModulePath); err != nil {
			return err
		}
		if sub.TrailText, err = readOptionalFile(submitTrailPath); err != nil {
			return err
		}

		if err := store.CreateSubmission(cmd.Context(), sub); err != nil {
			return err
		}

		fmt.Printf("Created submission %s (trail %s)\n", sub.ID, sub.TrailID)
		fmt.Printf("Run 'reviewd trigger %s --watch' to review it\n", sub.ID)
		return nil
	},
}

func readOptionalFile(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func init() {
	submitCmd.Flags().StringVar(&submitTrailID, "trail", "", "Trail (course track) ID the submission belongs to")
	submitCmd.Flags().StringVar(&submitStudentID, "student", "", "Student ID")
	submitCmd.Flags().StringVar(&submitText, "text", "", "Submission text")
	submitCmd.Flags().StringVar(&submitFilePath, "file", "", "Path to the submitted file content")
	submitCmd.Flags().StringVar(&submitModulePath, "module", "", "Path to the module material text")
	submitCmd.Flags().StringVar(&submitTrailPath, "trail-text", "", "Path to the trail description text")
	rootCmd.AddCommand(submitCmd)
}
