//go:build integration

package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// executeCommand runs a cobra command with args and returns captured output
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	err = root.Execute()
	return buf.String(), err
}

// captureOutput captures stdout during function execution
func captureOutput(f func()) string {
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	f()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	io.Copy(&buf, r)
	return buf.String()
}

// setupTestEnvironment creates an empty project dir, changes into it, and
// points HOME and XDG_CONFIG_HOME away from the real user config.
func setupTestEnvironment(t *testing.T) (dir string, cleanup func()) {
	t.Helper()

	dir = t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "xdg"))

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("failed to change to test directory: %v", err)
	}

	return dir, func() {
		os.Chdir(originalDir)
	}
}

func testStore(dir string) *project.Store {
	return project.NewStore(filepath.Join(dir, "docs", "CONTEXT.json"), nil)
}

func TestRootCommand(t *testing.T) {
	if rootCmd == nil {
		t.Fatal("rootCmd is nil")
	}

	if rootCmd.Use != "triad" {
		t.Errorf("rootCmd.Use = %q, want %q", rootCmd.Use, "triad")
	}

	// Check for expected subcommands (compare by Name(), not Use which includes args)
	expectedCmds := []string{"init", "status", "plan", "implement", "review", "run", "add-task", "transition", "config", "setup", "logs"}
	cmdMap := make(map[string]bool)
	for _, cmd := range rootCmd.Commands() {
		cmdMap[cmd.Name()] = true
	}

	for _, expected := range expectedCmds {
		if !cmdMap[expected] {
			t.Errorf("expected subcommand %q not found", expected)
		}
	}
}

func TestVersionFlag(t *testing.T) {
	output, err := executeCommand(rootCmd, "--version")
	if err != nil {
		t.Fatalf("--version failed: %v", err)
	}
	if !strings.Contains(output, "triad v") {
		t.Errorf("version output = %q, want it to contain %q", output, "triad v")
	}
}

func TestInitCommand(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	var output string
	stdout := captureOutput(func() {
		output, _ = executeCommand(rootCmd, "init", "--name", "demo")
	})
	if output != "" && strings.Contains(output, "Error") {
		t.Fatalf("init command failed: %s", output)
	}

	for _, want := range []string{
		"Created docs/CONTEXT.json",
		"Created docs/PRD.md",
		"Created docs/ARCHITECTURE.md",
		"Created docs/DECISIONS.md",
		"Created docs/CHANGELOG.md",
		"Copied AGENTS.md",
		"Copied CLAUDE.md",
		"Project 'demo' initialized!",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("init output missing %q\nGot:\n%s", want, stdout)
		}
	}

	for _, rel := range []string{
		"docs/CONTEXT.json", "docs/PRD.md", "docs/ARCHITECTURE.md",
		"docs/DECISIONS.md", "docs/CHANGELOG.md", "AGENTS.md", "CLAUDE.md",
		"docs/logs", "src", "tests",
	} {
		if _, err := os.Stat(filepath.Join(dir, rel)); err != nil {
			t.Errorf("init did not create %s: %v", rel, err)
		}
	}

	doc, err := testStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.ProjectName != "demo" {
		t.Errorf("ProjectName = %q, want %q", doc.ProjectName, "demo")
	}

	// The seeded protocol files carry the sections the prompt builder reads.
	agents, _ := os.ReadFile(filepath.Join(dir, "AGENTS.md"))
	for _, heading := range []string{"## 1. ARCHITECT", "## 2. IMPLEMENTER", "## 3. AUDITOR"} {
		if !strings.Contains(string(agents), heading) {
			t.Errorf("AGENTS.md missing %q", heading)
		}
	}
	rules, _ := os.ReadFile(filepath.Join(dir, "CLAUDE.md"))
	for _, heading := range []string{
		"## Workflow State Machine", "## Context Maintenance Protocol",
		"## Handoff Protocol", "## File Ownership", "## Coding Standards",
		"## Error Handling & Escalation", "## Prohibited Actions",
	} {
		if !strings.Contains(string(rules), heading) {
			t.Errorf("CLAUDE.md missing %q", heading)
		}
	}
}

func TestInitCommand_Idempotent(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	// Local edits must survive a re-run.
	marker := filepath.Join(dir, "docs", "PRD.md")
	if err := os.WriteFile(marker, []byte("customized"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout := captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	for _, want := range []string{
		"docs/CONTEXT.json already exists, skipping.",
		"docs/PRD.md already exists, skipping.",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("rerun output missing %q\nGot:\n%s", want, stdout)
		}
	}

	got, _ := os.ReadFile(marker)
	if string(got) != "customized" {
		t.Errorf("PRD.md after rerun = %q, want %q", got, "customized")
	}
}

func TestStatusCommand_NoContext(t *testing.T) {
	_, cleanup := setupTestEnvironment(t)
	defer cleanup()

	_, err := executeCommand(rootCmd, "status")
	if err == nil {
		t.Fatal("status in an empty directory should fail")
	}
	if !strings.Contains(err.Error(), "triad init") {
		t.Errorf("status error = %q, want a 'triad init' hint", err)
	}
}

func TestStatusCommand(t *testing.T) {
	_, cleanup := setupTestEnvironment(t)
	defer cleanup()

	captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "status"); err != nil {
			t.Errorf("status failed: %v", err)
		}
	})

	for _, want := range []string{"demo", "Phase:", "planning", "No tasks in queue."} {
		if !strings.Contains(stdout, want) {
			t.Errorf("status output missing %q\nGot:\n%s", want, stdout)
		}
	}
}

func TestAddTaskCommand(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	taskJSON := `{"task_id": "TASK-001", "title": "Add login endpoint", "description": "POST /login", "priority": "high"}`
	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "add-task", taskJSON); err != nil {
			t.Errorf("add-task failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "Added task TASK-001: Add login endpoint") {
		t.Errorf("add-task output = %q", stdout)
	}

	doc, err := testStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(doc.TaskQueue) != 1 || doc.TaskQueue[0].TaskID != "TASK-001" {
		t.Errorf("TaskQueue = %+v, want one TASK-001 entry", doc.TaskQueue)
	}

	if _, err := executeCommand(rootCmd, "add-task", "{not json"); err == nil {
		t.Error("add-task with malformed JSON should fail")
	} else if !strings.Contains(err.Error(), "invalid task JSON") {
		t.Errorf("add-task error = %q, want an 'invalid task JSON' message", err)
	}

	if _, err := executeCommand(rootCmd, "add-task", `{"task_id": "nope", "title": "x", "description": "y"}`); err == nil {
		t.Error("add-task with a bad task id should fail")
	}
}

func TestTransitionCommand(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	original := transitionAgent
	defer func() { transitionAgent = original }()

	captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "transition", "implementation", "-a", "architect"); err != nil {
			t.Errorf("transition failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "Phase transitioned: planning -> implementation") {
		t.Errorf("transition output = %q", stdout)
	}

	if _, err := executeCommand(rootCmd, "transition", "shipping", "-a", "architect"); err == nil {
		t.Error("transition to an unknown phase should fail")
	}

	// Wrong agent for the edge.
	if _, err := executeCommand(rootCmd, "transition", "review", "-a", "auditor"); err == nil {
		t.Error("transition by an unauthorized agent should fail")
	} else if !strings.Contains(err.Error(), "transition failed") {
		t.Errorf("transition error = %q, want a 'transition failed' message", err)
	}

	captureOutput(func() {
		if _, err := executeCommand(rootCmd, "transition", "review", "-a", "implementer"); err != nil {
			t.Errorf("transition failed: %v", err)
		}
	})

	doc, err := testStore(dir).Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if doc.GlobalPhase != workflow.PhaseReview {
		t.Errorf("GlobalPhase = %q, want %q", doc.GlobalPhase, workflow.PhaseReview)
	}
	if doc.LastUpdatedBy != workflow.RoleImplementer {
		t.Errorf("LastUpdatedBy = %q, want %q", doc.LastUpdatedBy, workflow.RoleImplementer)
	}
}

func TestLogsCommand(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	originalAction, originalExport := logsAction, logsExport
	defer func() {
		logsAction = originalAction
		logsExport = originalExport
	}()

	captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	store := testStore(dir)
	if _, err := store.AddReasoningLog(workflow.RoleArchitect, "plan_generated", "Planned the login endpoint", nil, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := store.AddReasoningLog(workflow.RoleAuditor, "review_completed", "Review verdict: approved", nil, nil); err != nil {
		t.Fatal(err)
	}

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "logs", "--action", ""); err != nil {
			t.Errorf("logs failed: %v", err)
		}
	})
	for _, want := range []string{
		"[architect] plan_generated: Planned the login endpoint",
		"[auditor] review_completed: Review verdict: approved",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("logs output missing %q\nGot:\n%s", want, stdout)
		}
	}

	stdout = captureOutput(func() {
		if _, err := executeCommand(rootCmd, "logs", "--action", "review_completed"); err != nil {
			t.Errorf("logs failed: %v", err)
		}
	})
	if strings.Contains(stdout, "plan_generated") {
		t.Errorf("logs --action did not filter:\n%s", stdout)
	}

	exportPath := filepath.Join(dir, "trail.json")
	stdout = captureOutput(func() {
		if _, err := executeCommand(rootCmd, "logs", "--action", "", "--export", exportPath, "--format", "json"); err != nil {
			t.Errorf("logs --export failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "Exported 2 entries to") {
		t.Errorf("export output = %q", stdout)
	}
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export file not written: %v", err)
	}
	if !strings.Contains(string(data), "plan_generated") {
		t.Errorf("export file missing entries:\n%s", data)
	}
}

func TestLogsCommand_Debug(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	originalDebug, originalLevel := logsDebug, logsLevel
	defer func() {
		logsDebug = originalDebug
		logsLevel = originalLevel
	}()

	captureOutput(func() {
		executeCommand(rootCmd, "init", "--name", "demo")
	})

	lines := `{"time":"2026-01-02T10:00:00Z","level":"INFO","msg":"plan generated","agent":"architect","phase":"planning"}
{"time":"2026-01-02T10:01:00Z","level":"WARN","msg":"auto commit/push failed","agent":"auditor"}
`
	stateDir := filepath.Join(dir, ".triad")
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(stateDir, "debug.log"), []byte(lines), 0644); err != nil {
		t.Fatal(err)
	}

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "logs", "--debug"); err != nil {
			t.Errorf("logs --debug failed: %v", err)
		}
	})
	for _, want := range []string{
		"INFO - plan generated (agent=architect, phase=planning)",
		"WARN - auto commit/push failed (agent=auditor)",
	} {
		if !strings.Contains(stdout, want) {
			t.Errorf("logs --debug output missing %q\nGot:\n%s", want, stdout)
		}
	}

	stdout = captureOutput(func() {
		if _, err := executeCommand(rootCmd, "logs", "--debug", "--level", "warn"); err != nil {
			t.Errorf("logs --debug --level failed: %v", err)
		}
	})
	if strings.Contains(stdout, "plan generated") {
		t.Errorf("--level warn did not drop INFO entries:\n%s", stdout)
	}
	if !strings.Contains(stdout, "auto commit/push failed") {
		t.Errorf("--level warn lost the WARN entry:\n%s", stdout)
	}

	// Reasoning-only flags do not apply to the debug log.
	if _, err := executeCommand(rootCmd, "logs", "--debug", "--action", "plan_generated"); err == nil {
		t.Error("logs --debug --action should fail")
	}
	logsAction = ""

	if _, err := executeCommand(rootCmd, "logs", "--debug", "--level", "bogus"); err == nil {
		t.Error("logs --debug --level bogus should fail")
	}

	// Package-level flags persist across executions, so reset --debug
	// before exercising the converse rejection.
	logsDebug = false
	logsLevel = "warn"
	if _, err := executeCommand(rootCmd, "logs"); err == nil {
		t.Error("logs --level without --debug should fail")
	}
	logsLevel = ""
}

func TestConfigShowCommand(t *testing.T) {
	_, cleanup := setupTestEnvironment(t)
	defer cleanup()

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "config", "show"); err != nil {
			t.Errorf("config show failed: %v", err)
		}
	})

	for _, want := range []string{"agents:", "architect:", "auto_commit: true", "state_dir: .triad"} {
		if !strings.Contains(stdout, want) {
			t.Errorf("config show output missing %q\nGot:\n%s", want, stdout)
		}
	}
}

func TestConfigSetCommand(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "config", "set", "logging.level", "debug"); err != nil {
			t.Errorf("config set failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "Set logging.level = debug") {
		t.Errorf("config set output = %q", stdout)
	}

	configFile := filepath.Join(dir, "xdg", "triad", "config.yaml")
	data, err := os.ReadFile(configFile)
	if err != nil {
		t.Fatalf("config file not written: %v", err)
	}
	if !strings.Contains(string(data), "level: debug") {
		t.Errorf("config file missing setting:\n%s", data)
	}

	if _, err := executeCommand(rootCmd, "config", "set", "agents.architect.shell", "zsh"); err == nil {
		t.Error("config set with an unknown key should fail")
	}
	if _, err := executeCommand(rootCmd, "config", "set", "git.auto_push", "maybe"); err == nil {
		t.Error("config set with a non-bool value should fail")
	}
	if _, err := executeCommand(rootCmd, "config", "set", "logging.level", "loud"); err == nil {
		t.Error("config set with an unknown level should fail")
	}
}

func TestConfigInitCommand(t *testing.T) {
	dir, cleanup := setupTestEnvironment(t)
	defer cleanup()

	stdout := captureOutput(func() {
		if _, err := executeCommand(rootCmd, "config", "init"); err != nil {
			t.Errorf("config init failed: %v", err)
		}
	})
	if !strings.Contains(stdout, "Created config file at") {
		t.Errorf("config init output = %q", stdout)
	}

	configFile := filepath.Join(dir, "xdg", "triad", "config.yaml")
	if _, err := os.Stat(configFile); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	// Refuses to overwrite.
	if _, err := executeCommand(rootCmd, "config", "init"); err == nil {
		t.Error("config init over an existing file should fail")
	}
}

func TestPickTask(t *testing.T) {
	queue := []project.TaskPacket{
		{TaskID: "TASK-001", Title: "First"},
		{TaskID: "TASK-002", Title: "Second"},
	}
	chained := []project.TaskPacket{
		{TaskID: "TASK-002", Title: "Second", DependsOn: []string{"TASK-001"}},
		{TaskID: "TASK-003", Title: "Third"},
	}
	blocked := []project.TaskPacket{
		{TaskID: "TASK-002", Title: "Second", DependsOn: []string{"TASK-001"}},
	}

	tests := []struct {
		name      string
		queue     []project.TaskPacket
		completed []string
		taskID    string
		want      string
		wantErr   string
	}{
		{"head of queue", queue, nil, "", "TASK-001", ""},
		{"named task", queue, nil, "TASK-002", "TASK-002", ""},
		{"named task missing", queue, nil, "TASK-009", "", "not found in queue"},
		{"empty queue", nil, nil, "", "", "no tasks in queue"},
		{"skips blocked head", chained, nil, "", "TASK-003", ""},
		{"completed dep unblocks head", chained, []string{"TASK-001"}, "", "TASK-002", ""},
		{"all blocked", blocked, nil, "", "", "blocked on incomplete dependencies"},
		// --task-id overrides gating: the operator asked for that packet.
		{"named task ignores deps", blocked, nil, "TASK-002", "TASK-002", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := &project.ProjectContext{TaskQueue: tt.queue, CompletedTasks: tt.completed}
			task, err := pickTask(doc, tt.taskID)
			if tt.wantErr != "" {
				if err == nil {
					t.Fatalf("pickTask() = %v, want error containing %q", task, tt.wantErr)
				}
				if !strings.Contains(err.Error(), tt.wantErr) {
					t.Errorf("pickTask() error = %q, want it to contain %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("pickTask() error = %v", err)
			}
			if task.TaskID != tt.want {
				t.Errorf("pickTask() = %q, want %q", task.TaskID, tt.want)
			}
		})
	}
}

func TestEnsureAgentsConfigured(t *testing.T) {
	cfg := config.Default()
	if err := ensureAgentsConfigured(cfg); err != nil {
		t.Errorf("ensureAgentsConfigured(default) error = %v", err)
	}

	cfg.Agents.Implementer.Command = ""
	err := ensureAgentsConfigured(cfg)
	if err == nil {
		t.Fatal("ensureAgentsConfigured with a blank command should fail")
	}
	if !strings.Contains(err.Error(), "triad setup") {
		t.Errorf("error = %q, want a 'triad setup' hint", err)
	}
}
