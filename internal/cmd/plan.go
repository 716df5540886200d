package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
)

var planCmd = &cobra.Command{
	Use:   "plan <request>",
	Short: "Run the architect to plan a request",
	Long: `Run the architect to plan a request.

The architect reads the shared context, produces a plan with task
packets, and moves the project into the implementation phase. The plan
transcript is saved under the state dir for 'triad implement' to pick
up.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
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

	orch := newOrchestrator(cfg, store, cwd, logger)
	_, err = orch.Plan(cmd.Context(), strings.Join(args, " "))
	return err
}
