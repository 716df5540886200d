package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/orchestrator"
)

var runCmd = &cobra.Command{
	Use:   "run <description>",
	Short: "Run the full plan, implement, review pipeline",
	Long: `Run the full plan, implement, review pipeline for one task.

The architect plans, the implementer builds, and the auditor reviews.
A rejection feeds the review back into a replan, up to three attempts.
On approval the working tree is committed and pushed unless disabled
by --no-commit or git.auto_commit.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRun,
}

var runNoCommit bool

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runNoCommit, "no-commit", false, "skip the automatic commit and push after approval")
}

func runRun(cmd *cobra.Command, args []string) error {
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

	orch := newOrchestrator(cfg, store, cwd, logger, orchestrator.WithNoCommit(runNoCommit))
	return orch.Execute(cmd.Context(), strings.Join(args, " "))
}
