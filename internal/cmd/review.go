package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/workflow"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run the auditor over the working tree diff",
	Long: `Run the auditor over the working tree diff.

The auditor reviews the git diff (falling back to the saved
implementation output) against the saved plan and issues a verdict.
The project moves to approved or rejected accordingly; nothing is
committed.`,
	RunE: runReview,
}

var reviewTaskID string

func init() {
	rootCmd.AddCommand(reviewCmd)

	reviewCmd.Flags().StringVarP(&reviewTaskID, "task-id", "t", "", "task under review (default: current task)")
}

func runReview(cmd *cobra.Command, args []string) error {
	cwd, err := workDir()
	if err != nil {
		return err
	}

	cfg := config.Get()
	if err := ensureAgentsConfigured(cfg); err != nil {
		return err
	}

	logger := buildLogger(cfg, cwd)
	defer logger.Close()

	store := openStore(cfg, cwd, logger)
	if _, err := requireContext(store); err != nil {
		return err
	}

	if reviewTaskID != "" {
		if _, err := store.SetCurrentTask(reviewTaskID, workflow.RoleAuditor); err != nil {
			return err
		}
	}

	orch := newOrchestrator(cfg, store, cwd, logger)
	_, _, err = orch.Review(cmd.Context())
	return err
}
