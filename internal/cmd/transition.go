package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/workflow"
)

var transitionCmd = &cobra.Command{
	Use:   "transition <phase>",
	Short: "Move the project to a new phase",
	Long: `Move the project to a new phase.

The transition is validated against the workflow state machine, both
the edge itself and the agent performing it.`,
	Args: cobra.ExactArgs(1),
	RunE: runTransition,
}

var transitionAgent string

func init() {
	rootCmd.AddCommand(transitionCmd)

	transitionCmd.Flags().StringVarP(&transitionAgent, "agent", "a", "architect", "agent performing the transition")
}

func runTransition(cmd *cobra.Command, args []string) error {
	target, err := workflow.ParsePhase(args[0])
	if err != nil {
		return err
	}
	role, err := workflow.ParseAgentRole(transitionAgent)
	if err != nil {
		return err
	}

	cwd, err := workDir()
	if err != nil {
		return err
	}

	cfg := config.Get()
	store := openStore(cfg, cwd, nil)
	doc, err := requireContext(store)
	if err != nil {
		return err
	}
	from := doc.GlobalPhase

	updated, err := store.UpdatePhase(target, role)
	if err != nil {
		return fmt.Errorf("transition failed: %w", err)
	}

	fmt.Printf("Phase transitioned: %s -> %s\n", from, updated.GlobalPhase)
	return nil
}
