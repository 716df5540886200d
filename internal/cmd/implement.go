package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/workflow"
)

var implementCmd = &cobra.Command{
	Use:   "implement",
	Short: "Run the implementer on the current or named task",
	Long: `Run the implementer on the current or named task.

The chosen task is promoted to current_task, then the implementer is
invoked with the saved plan and the task packet. With no --task-id the
first queued task whose dependencies are all completed is used.`,
	RunE: runImplement,
}

var implementTaskID string

func init() {
	rootCmd.AddCommand(implementCmd)

	implementCmd.Flags().StringVarP(&implementTaskID, "task-id", "t", "", "task to work (default: first workable)")
}

func runImplement(cmd *cobra.Command, args []string) error {
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
	doc, err := requireContext(store)
	if err != nil {
		return err
	}

	task, err := pickTask(doc, implementTaskID)
	if err != nil {
		return err
	}
	if _, err := store.SetCurrentTask(task.TaskID, workflow.RoleImplementer); err != nil {
		return err
	}
	fmt.Printf("Working task %s: %s\n", task.TaskID, task.Title)

	orch := newOrchestrator(cfg, store, cwd, logger)
	_, err = orch.Implement(cmd.Context())
	return err
}

// pickTask selects the packet to work: the named one, or the first queued
// task whose depends_on list is fully completed.
func pickTask(doc *project.ProjectContext, taskID string) (*project.TaskPacket, error) {
	if taskID != "" {
		if task, ok := doc.QueuedTask(taskID); ok {
			return task, nil
		}
		return nil, fmt.Errorf("task %q not found in queue", taskID)
	}
	if len(doc.TaskQueue) == 0 {
		return nil, fmt.Errorf("no tasks in queue")
	}
	task, ok := doc.NextWorkableTask()
	if !ok {
		return nil, fmt.Errorf("all %d queued tasks are blocked on incomplete dependencies", len(doc.TaskQueue))
	}
	return task, nil
}
