package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/workflow"
)

var addTaskCmd = &cobra.Command{
	Use:   "add-task <json>",
	Short: "Queue a task packet",
	Long: `Queue a task packet, given as a JSON object.

Example:
  triad add-task '{"task_id": "TASK-001", "title": "Add login endpoint",
    "description": "POST /login with session cookie",
    "acceptance_criteria": ["returns 200 on valid credentials"],
    "priority": "high"}'`,
	Args: cobra.ExactArgs(1),
	RunE: runAddTask,
}

func init() {
	rootCmd.AddCommand(addTaskCmd)
}

func runAddTask(cmd *cobra.Command, args []string) error {
	cwd, err := workDir()
	if err != nil {
		return err
	}

	cfg := config.Get()
	store := openStore(cfg, cwd, nil)
	if _, err := requireContext(store); err != nil {
		return err
	}

	var task project.TaskPacket
	if err := json.Unmarshal([]byte(args[0]), &task); err != nil {
		return fmt.Errorf("invalid task JSON: %w", err)
	}
	task.Normalize()
	if err := task.Validate(); err != nil {
		return fmt.Errorf("invalid task JSON: %w", err)
	}

	if _, err := store.AddTask(task, workflow.RoleArchitect); err != nil {
		return err
	}

	fmt.Printf("Added task %s: %s\n", task.TaskID, task.Title)
	return nil
}
