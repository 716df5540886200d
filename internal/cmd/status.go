package cmd

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/tui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project phase, task queue, and recent activity",
	RunE:  runStatus,
}

var statusWatch bool

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVarP(&statusWatch, "watch", "w", false, "stay open and refresh when the context file changes")
}

func runStatus(cmd *cobra.Command, args []string) error {
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

	if statusWatch {
		model, err := tui.NewWatchModel(store)
		if err != nil {
			return err
		}
		defer model.Close()

		if _, err := tea.NewProgram(model, tea.WithAltScreen()).Run(); err != nil {
			return fmt.Errorf("watch UI error: %w", err)
		}
		return nil
	}

	fmt.Print(tui.RenderStatus(doc, 0))
	return nil
}
