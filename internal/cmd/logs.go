package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/logging"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/workflow"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Query the reasoning trail",
	Long: `Query the reasoning trail the agents keep in the context document.

By default, shows the last 50 entries. Use flags to filter, include
rotated archives, or export. With --debug the structured debug log in
the state dir is queried instead of the reasoning trail.

Examples:
  # Show recent activity
  triad logs

  # Everything the auditor did
  triad logs --agent auditor -n 0

  # Rejections in the last day, archives included
  triad logs --action review_completed --grep rejected --since 24h --archived

  # Export one task's trail as CSV
  triad logs --task-id TASK-001 --export trail.csv --format csv

  # Warnings and errors from the orchestrator's debug log
  triad logs --debug --level warn`,
	RunE: runLogs,
}

var (
	logsAgent    string
	logsAction   string
	logsTaskID   string
	logsSince    string
	logsGrep     string
	logsArchived bool
	logsTail     int
	logsExport   string
	logsFormat   string
	logsDebug    bool
	logsLevel    string
)

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().StringVar(&logsAgent, "agent", "", "Filter by agent role")
	logsCmd.Flags().StringVar(&logsAction, "action", "", "Filter by action label")
	logsCmd.Flags().StringVar(&logsTaskID, "task-id", "", "Filter by task id")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Show entries since duration ago (e.g., 1h, 30m)")
	logsCmd.Flags().StringVar(&logsGrep, "grep", "", "Filter entries whose summary contains text")
	logsCmd.Flags().BoolVar(&logsArchived, "archived", false, "Include rotated archive files")
	logsCmd.Flags().IntVarP(&logsTail, "tail", "n", 50, "Number of entries to show (0 for all)")
	logsCmd.Flags().StringVar(&logsExport, "export", "", "Write matching entries to a file instead of printing")
	logsCmd.Flags().StringVar(&logsFormat, "format", "json", "Export format: json, text, or csv")
	logsCmd.Flags().BoolVar(&logsDebug, "debug", false, "Query the structured debug log instead of the reasoning trail")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "Minimum level for --debug (debug/info/warn/error)")
}

func runLogs(cmd *cobra.Command, args []string) error {
	cwd, err := workDir()
	if err != nil {
		return err
	}

	cfg := config.Get()
	if logsDebug {
		return runDebugLogs(cfg, cwd)
	}
	if logsLevel != "" {
		return fmt.Errorf("--level applies only to --debug queries")
	}

	store := openStore(cfg, cwd, nil)
	if _, err := requireContext(store); err != nil {
		return err
	}

	filter := project.LogFilter{
		Action:   logsAction,
		TaskID:   logsTaskID,
		Contains: logsGrep,
	}
	if logsAgent != "" {
		role, err := workflow.ParseAgentRole(logsAgent)
		if err != nil {
			return err
		}
		filter.Agent = role
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.Since = time.Now().Add(-duration)
	}

	entries, err := store.CollectLogs(logsArchived)
	if err != nil {
		return err
	}
	entries = project.FilterLogs(entries, filter)

	if logsExport != "" {
		if err := project.ExportLogs(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Printf("Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	for _, entry := range entries {
		fmt.Println(formatReasoningEntry(entry))
	}
	if len(entries) == 0 {
		fmt.Println("No matching log entries found.")
	}

	return nil
}

// runDebugLogs serves the --debug variant: the slog JSON lines under the
// state dir, with the shared filter flags mapped onto debug entry fields.
// The --action and --archived flags have no debug-log equivalent.
func runDebugLogs(cfg *config.Config, cwd string) error {
	if logsAction != "" {
		return fmt.Errorf("--action applies only to reasoning trail queries")
	}
	if logsArchived {
		return fmt.Errorf("--archived applies only to reasoning trail queries")
	}
	if logsLevel != "" {
		valid := false
		for _, level := range logging.ValidLevels() {
			if strings.EqualFold(logsLevel, level) {
				valid = true
			}
		}
		if !valid {
			return fmt.Errorf("invalid level %q\nValid options: %s",
				logsLevel, strings.ToLower(strings.Join(logging.ValidLevels(), ", ")))
		}
	}

	filter := logging.LogFilter{
		MinLevel:        logsLevel,
		Agent:           logsAgent,
		TaskID:          logsTaskID,
		MessageContains: logsGrep,
	}
	if logsAgent != "" {
		if _, err := workflow.ParseAgentRole(logsAgent); err != nil {
			return err
		}
	}
	if logsSince != "" {
		duration, err := time.ParseDuration(logsSince)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		filter.Since = time.Now().Add(-duration)
	}

	entries, err := logging.AggregateLogs(cfg.Paths.ResolveStateDir(cwd))
	if err != nil {
		return err
	}
	entries = logging.FilterLogs(entries, filter)

	if logsExport != "" {
		if err := logging.ExportLogEntries(entries, logsExport, logsFormat); err != nil {
			return err
		}
		fmt.Printf("Exported %d entries to %s\n", len(entries), logsExport)
		return nil
	}

	if logsTail > 0 && len(entries) > logsTail {
		entries = entries[len(entries)-logsTail:]
	}
	for _, entry := range entries {
		fmt.Println(logging.FormatEntry(entry))
	}
	if len(entries) == 0 {
		fmt.Println("No matching log entries found.")
	}

	return nil
}

// formatReasoningEntry renders one trail entry as a log line.
func formatReasoningEntry(entry project.ReasoningLog) string {
	line := fmt.Sprintf("[%s] [%s] %s: %s",
		entry.Timestamp.Format("2006-01-02 15:04:05"), entry.Agent, entry.Action, entry.Summary)
	if entry.TaskID != nil {
		line += fmt.Sprintf(" (%s)", *entry.TaskID)
	}
	return line
}
