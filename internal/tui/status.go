// Package tui renders the context document for humans: the status panel
// and task queue for one-shot output, a watch view that re-renders on
// context file changes, and the agent preset setup wizard.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/tui/styles"
	"github.com/Iron-Ham/triad/internal/util"
	"github.com/Iron-Ham/triad/internal/workflow"
)

const (
	defaultWidth    = 80
	recentLogCount  = 5
	timestampLayout = "2006-01-02 15:04:05"
)

// RenderStatus renders the full status view for a context document:
// phase panel, task queue, completed tasks, recent activity, and the
// known-issue count. A width of 0 uses the default terminal width.
func RenderStatus(doc *project.ProjectContext, width int) string {
	if width <= 0 {
		width = defaultWidth
	}

	sections := []string{
		renderPhasePanel(doc, width),
		renderTaskQueue(doc, width),
	}
	if s := renderCompleted(doc); s != "" {
		sections = append(sections, s)
	}
	if s := renderActivity(doc); s != "" {
		sections = append(sections, s)
	}
	if s := renderIssues(doc); s != "" {
		sections = append(sections, s)
	}

	return strings.Join(sections, "\n\n") + "\n"
}

// -----------------------------------------------------------------------------
// Phase panel
// -----------------------------------------------------------------------------

func renderPhasePanel(doc *project.ProjectContext, width int) string {
	agent := "—"
	if role, ok := workflow.ActiveAgent(doc.GlobalPhase); ok {
		agent = string(role)
	}

	targets := workflow.ValidTargets(doc.GlobalPhase)
	names := make([]string, 0, len(targets))
	for _, t := range targets {
		names = append(names, string(t))
	}
	targetsLine := strings.Join(names, ", ")
	if targetsLine == "" {
		targetsLine = "—"
	}

	current := "—"
	if doc.CurrentTask != nil && *doc.CurrentTask != "" {
		current = *doc.CurrentTask
	}

	badge := styles.PhaseBadge.
		Foreground(styles.PhaseColor(doc.GlobalPhase)).
		Render(styles.PhaseIcon(doc.GlobalPhase) + " " + string(doc.GlobalPhase))

	var b strings.Builder
	b.WriteString(styles.Title.Render(doc.ProjectName))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s %s\n", styles.PanelLabel.Render("Phase:"), badge)
	fmt.Fprintf(&b, "%s %s\n", styles.PanelLabel.Render("Active Agent:"), agent)
	fmt.Fprintf(&b, "%s %s\n", styles.PanelLabel.Render("Valid Transitions:"), targetsLine)
	fmt.Fprintf(&b, "%s %s\n", styles.PanelLabel.Render("Current Task:"), current)
	fmt.Fprintf(&b, "%s %s @ %s", styles.PanelLabel.Render("Last Updated:"),
		doc.LastUpdatedBy, doc.LastUpdatedAt.Format(timestampLayout))

	return styles.Panel.Width(width - 2).Render(b.String())
}

// -----------------------------------------------------------------------------
// Task queue
// -----------------------------------------------------------------------------

func renderTaskQueue(doc *project.ProjectContext, width int) string {
	if len(doc.TaskQueue) == 0 {
		return styles.Muted.Render("No tasks in queue.")
	}

	idW, prioW, depW := len("ID"), len("Priority"), len("Depends On")
	for _, task := range doc.TaskQueue {
		if len(task.TaskID) > idW {
			idW = len(task.TaskID)
		}
		if len(string(task.Priority)) > prioW {
			prioW = len(string(task.Priority))
		}
		if len(dependsCell(task)) > depW {
			depW = len(dependsCell(task))
		}
	}
	titleW := width - idW - prioW - depW - 6
	if titleW < 12 {
		titleW = 12
	}

	var b strings.Builder
	b.WriteString(styles.TableTitle.Render("Task Queue"))
	b.WriteString("\n")

	header := fmt.Sprintf("%-*s  %-*s  %-*s  %s", idW, "ID", titleW, "Title", prioW, "Priority", "Depends On")
	b.WriteString(styles.TableHeader.Render(header))
	b.WriteString("\n")

	for i, task := range doc.TaskQueue {
		row := fmt.Sprintf("%-*s  %-*s  %-*s  %s",
			idW, task.TaskID,
			titleW, util.TruncateANSI(task.Title, titleW),
			prioW, task.Priority,
			dependsCell(task))
		b.WriteString(styles.TableCell.Render(row))
		if i < len(doc.TaskQueue)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func dependsCell(task project.TaskPacket) string {
	if len(task.DependsOn) == 0 {
		return "—"
	}
	return strings.Join(task.DependsOn, ", ")
}

// -----------------------------------------------------------------------------
// Trailing sections
// -----------------------------------------------------------------------------

func renderCompleted(doc *project.ProjectContext) string {
	if len(doc.CompletedTasks) == 0 {
		return ""
	}
	return styles.SuccessMsg.Render("Completed: ") + strings.Join(doc.CompletedTasks, ", ")
}

func renderActivity(doc *project.ProjectContext) string {
	if len(doc.ReasoningLogs) == 0 {
		return ""
	}
	logs := doc.ReasoningLogs
	if len(logs) > recentLogCount {
		logs = logs[len(logs)-recentLogCount:]
	}

	var b strings.Builder
	b.WriteString(styles.PanelLabel.Render("Recent Activity:"))
	for _, entry := range logs {
		agent := lipgloss.NewStyle().Foreground(styles.RoleColor(entry.Agent)).
			Render("[" + string(entry.Agent) + "]")
		fmt.Fprintf(&b, "\n  %s %s: %s", agent, entry.Action, entry.Summary)
	}
	return b.String()
}

func renderIssues(doc *project.ProjectContext) string {
	if len(doc.KnownIssues) == 0 {
		return ""
	}
	return styles.WarningMsg.Render("Known Issues: ") + fmt.Sprintf("%d", len(doc.KnownIssues))
}
