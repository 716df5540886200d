// Package prompt assembles the self-contained prompt each agent receives.
//
// A prompt stacks up to five layers joined by a horizontal rule:
//
//  1. Identity: the agent persona section of AGENTS.md
//  2. Rules: the CLAUDE.md sections that bind the role
//  3. Context: a summary of the current context document
//  4. Task: the concrete work payload
//  5. Format: the role's expected output schema
//
// Missing persona or rule files yield empty layers, never errors, so the
// pipeline still runs in repositories that carry neither document.
package prompt

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Iron-Ham/triad/internal/logging"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/workflow"
)

const (
	// AgentsFile holds the persona sections, one ## heading per role.
	AgentsFile = "AGENTS.md"

	// RulesFile holds the shared rule sections referenced by rulesSections.
	RulesFile = "CLAUDE.md"

	// layerSeparator joins prompt layers and rule sections alike.
	layerSeparator = "\n\n---\n\n"

	// recentLogCount caps the reasoning-log tail shown in the context summary.
	recentLogCount = 5
)

// personaHeadings maps each role to the AGENTS.md heading that introduces its
// persona. Matching is a case-insensitive substring test on ## lines.
var personaHeadings = map[workflow.AgentRole]string{
	workflow.RoleArchitect:   "1. ARCHITECT",
	workflow.RoleImplementer: "2. IMPLEMENTER",
	workflow.RoleAuditor:     "3. AUDITOR",
}

// rulesSections lists the CLAUDE.md sections each role must obey, in the
// order they appear in the assembled prompt. Sections missing from the file
// are skipped.
var rulesSections = map[workflow.AgentRole][]string{
	workflow.RoleArchitect: {
		"Workflow State Machine",
		"Context Maintenance Protocol",
		"Handoff Protocol",
		"File Ownership",
		"Prohibited Actions",
	},
	workflow.RoleImplementer: {
		"Coding Standards",
		"Context Maintenance Protocol",
		"Handoff Protocol",
		"File Ownership",
		"Error Handling & Escalation",
		"Prohibited Actions",
	},
	workflow.RoleAuditor: {
		"Workflow State Machine",
		"Context Maintenance Protocol",
		"Handoff Protocol",
		"File Ownership",
		"Coding Standards",
		"Prohibited Actions",
	},
}

// -----------------------------------------------------------------------------
// Builder
// -----------------------------------------------------------------------------

// Builder assembles prompts for one working tree. dir is the repository root
// that holds AGENTS.md and CLAUDE.md.
type Builder struct {
	dir    string
	logger *logging.Logger
}

// New creates a Builder rooted at dir. A nil logger disables logging.
func New(dir string, logger *logging.Logger) *Builder {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Builder{dir: dir, logger: logger}
}

// Options carries the per-invocation payload layers. Zero-value fields are
// omitted from the prompt.
type Options struct {
	// UserRequest is the raw task description, quoted into the architect's
	// task section. On retries the orchestrator appends review feedback to
	// this text before rebuilding the prompt.
	UserRequest string

	// Task is the packet the implementer or auditor is working.
	Task *project.TaskPacket

	// PlanText embeds the approved plan.
	PlanText string

	// DiffText embeds the change under review as a fenced diff.
	DiffText string

	// Extra appends an Additional Context section, one bullet per entry,
	// rendered in sorted key order.
	Extra map[string]string
}

// Plan builds the architect prompt for a task description.
func (b *Builder) Plan(ctx *project.ProjectContext, description string) string {
	return b.Build(workflow.RoleArchitect, ctx, Options{UserRequest: description})
}

// Implement builds the implementer prompt carrying the approved plan. When
// the context names a current task, its packet rides along as the task
// payload.
func (b *Builder) Implement(ctx *project.ProjectContext, planText string) string {
	return b.Build(workflow.RoleImplementer, ctx, Options{
		PlanText: planText,
		Task:     currentPacket(ctx),
	})
}

// Review builds the auditor prompt carrying the approved plan and the diff
// under review.
func (b *Builder) Review(ctx *project.ProjectContext, planText, diffText string) string {
	return b.Build(workflow.RoleAuditor, ctx, Options{
		PlanText: planText,
		DiffText: diffText,
		Task:     currentPacket(ctx),
	})
}

func currentPacket(ctx *project.ProjectContext) *project.TaskPacket {
	if ctx == nil {
		return nil
	}
	if task, ok := ctx.CurrentTaskPacket(); ok {
		return task
	}
	return nil
}

// Build assembles the full prompt for a role. The context summary is always
// present; every other layer appears only when it has content.
func (b *Builder) Build(role workflow.AgentRole, ctx *project.ProjectContext, opts Options) string {
	if ctx == nil {
		ctx = &project.ProjectContext{}
	}

	var parts []string
	if persona := b.persona(role); persona != "" {
		parts = append(parts, "# Agent Identity\n\n"+persona)
	}
	if rules := b.rules(role); rules != "" {
		parts = append(parts, "# Rules & Constraints\n\n"+rules)
	}
	parts = append(parts, summarizeContext(ctx))
	if task := taskSection(role, opts.Task, opts.UserRequest); task != "" {
		parts = append(parts, task)
	}
	if opts.PlanText != "" {
		parts = append(parts, "## Approved Plan\n\n"+strings.TrimSpace(opts.PlanText))
	}
	if opts.DiffText != "" {
		parts = append(parts, diffSection(opts.DiffText))
	}
	if schema := outputSchema(role); schema != "" {
		parts = append(parts, schema)
	}
	if extra := extraSection(opts.Extra); extra != "" {
		parts = append(parts, extra)
	}

	built := strings.Join(parts, layerSeparator)
	b.logger.WithAgent(string(role)).Debug("assembled prompt",
		"layers", len(parts),
		"bytes", len(built),
	)
	return built
}

// -----------------------------------------------------------------------------
// Personas and rules
// -----------------------------------------------------------------------------

func (b *Builder) persona(role workflow.AgentRole) string {
	return readSection(filepath.Join(b.dir, AgentsFile), personaHeadings[role])
}

func (b *Builder) rules(role workflow.AgentRole) string {
	path := filepath.Join(b.dir, RulesFile)
	var parts []string
	for _, heading := range rulesSections[role] {
		if section := readSection(path, heading); section != "" {
			parts = append(parts, section)
		}
	}
	return strings.Join(parts, layerSeparator)
}

// readFile returns the file's contents, or "" when it cannot be read.
func readFile(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return string(data)
}

// readSection extracts one markdown section: the first ## heading whose text
// contains heading (case-insensitive) through the line before the next ##
// heading, trimmed. Consecutive matching headings merge into one section.
func readSection(path, heading string) string {
	content := readFile(path)
	if content == "" {
		return ""
	}

	needle := strings.ToLower(heading)
	var (
		capture bool
		lines   []string
	)
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "## ") && strings.Contains(strings.ToLower(line), needle) {
			capture = true
			lines = append(lines, line)
			continue
		}
		if capture && strings.HasPrefix(line, "## ") {
			break
		}
		if capture {
			lines = append(lines, line)
		}
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// -----------------------------------------------------------------------------
// Context summary
// -----------------------------------------------------------------------------

// summarizeContext renders the Current Context layer: one bullet per document
// field, then the tail of the reasoning log.
func summarizeContext(ctx *project.ProjectContext) string {
	taskIDs := make([]string, 0, len(ctx.TaskQueue))
	for i := range ctx.TaskQueue {
		taskIDs = append(taskIDs, ctx.TaskQueue[i].TaskID)
	}
	completed := ctx.CompletedTasks
	if completed == nil {
		completed = []string{}
	}
	current := "None"
	if ctx.CurrentTask != nil {
		current = *ctx.CurrentTask
	}

	var sb strings.Builder
	sb.WriteString("## Current Context\n")
	fmt.Fprintf(&sb, "- **Project:** %s\n", ctx.ProjectName)
	fmt.Fprintf(&sb, "- **Phase:** %s\n", ctx.GlobalPhase)
	fmt.Fprintf(&sb, "- **Current Task:** %s\n", current)
	fmt.Fprintf(&sb, "- **Task Queue:** %s\n", compactJSON(taskIDs))
	fmt.Fprintf(&sb, "- **Completed Tasks:** %s\n", compactJSON(completed))
	fmt.Fprintf(&sb, "- **Known Issues:** %d item(s)\n", len(ctx.KnownIssues))
	fmt.Fprintf(&sb, "- **Constraints:** %s\n", compactJSON(ctx.ActiveConstraints))

	sb.WriteString("\n### Recent Activity")
	logs := ctx.ReasoningLogs
	if len(logs) > recentLogCount {
		logs = logs[len(logs)-recentLogCount:]
	}
	if len(logs) == 0 {
		sb.WriteString("\n  (no recent logs)")
	}
	for i := range logs {
		fmt.Fprintf(&sb, "\n  - [%s] %s: %s", logs[i].Agent, logs[i].Action, logs[i].Summary)
	}
	return sb.String()
}

// -----------------------------------------------------------------------------
// Work payload
// -----------------------------------------------------------------------------

// taskSection renders the Your Task layer: the quoted user request for the
// architect, the task packet for the implementer and auditor.
func taskSection(role workflow.AgentRole, task *project.TaskPacket, userRequest string) string {
	if role == workflow.RoleArchitect {
		if userRequest == "" {
			return ""
		}
		var sb strings.Builder
		sb.WriteString("## Your Task\n")
		sb.WriteString("Analyze the following user request and produce a Task Packet:\n\n")
		fmt.Fprintf(&sb, "> %s\n\n", userRequest)
		sb.WriteString("Break this down into actionable, atomic tasks for the Implementer.\n")
		sb.WriteString("Record your architectural decisions.")
		return sb.String()
	}

	if task == nil {
		return ""
	}
	label := "Review"
	if role == workflow.RoleImplementer {
		label = "Implement"
	}
	var sb strings.Builder
	sb.WriteString("## Your Task\n")
	fmt.Fprintf(&sb, "%s the following Task Packet:\n\n", label)
	sb.WriteString("```json\n")
	sb.WriteString(indentedJSON(task))
	sb.WriteString("\n```")
	return sb.String()
}

func diffSection(diff string) string {
	var sb strings.Builder
	sb.WriteString("## Diff Under Review\n\n")
	sb.WriteString("```diff\n")
	sb.WriteString(strings.TrimRight(diff, "\n"))
	sb.WriteString("\n```")
	return sb.String()
}

// extraSection renders Additional Context bullets in sorted key order so
// prompts are reproducible.
func extraSection(extra map[string]string) string {
	if len(extra) == 0 {
		return ""
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	sb.WriteString("## Additional Context")
	for _, k := range keys {
		fmt.Fprintf(&sb, "\n- **%s:** %s", k, extra[k])
	}
	return sb.String()
}

// -----------------------------------------------------------------------------
// JSON helpers
// -----------------------------------------------------------------------------

func compactJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(data)
}

func indentedJSON(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(data)
}
