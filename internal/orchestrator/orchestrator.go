// Package orchestrator drives the plan, implement, review pipeline. It
// invokes each agent CLI in sequence, persists phase artifacts under the
// state dir, routes the auditor's verdict, and retries rejected work with
// the review feedback folded into the next planning pass.
package orchestrator

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"

	"github.com/Iron-Ham/triad/internal/agent"
	"github.com/Iron-Ham/triad/internal/config"
	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/gitops"
	"github.com/Iron-Ham/triad/internal/logging"
	"github.com/Iron-Ham/triad/internal/project"
	"github.com/Iron-Ham/triad/internal/prompt"
	"github.com/Iron-Ham/triad/internal/review"
	"github.com/Iron-Ham/triad/internal/util"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// MaxAttempts bounds how many plan/implement/review cycles one task gets
// before the run is reported as failed.
const MaxAttempts = 3

// Artifact names under the state dir.
const (
	PlanFileName   = "plan.md"
	ImplFileName   = "implementation.txt"
	ReviewFileName = "review.txt"
)

const (
	commitSubjectLimit = 72
	planSummaryLimit   = 80
	reviewPreviewLimit = 500
)

// phaseAgents names the agent authorized to move the document into each
// phase, matching the transition table.
var phaseAgents = map[workflow.Phase]workflow.AgentRole{
	workflow.PhasePlanning:       workflow.RoleArchitect,
	workflow.PhaseImplementation: workflow.RoleArchitect,
	workflow.PhaseReview:         workflow.RoleImplementer,
	workflow.PhaseApproved:       workflow.RoleAuditor,
	workflow.PhaseRejected:       workflow.RoleAuditor,
}

// Orchestrator executes the full pipeline for one task against a working
// tree and its context document.
type Orchestrator struct {
	cfg      *config.Config
	store    *project.Store
	invoker  agent.Runner
	git      *gitops.Git
	prompts  *prompt.Builder
	out      io.Writer
	logger   *logging.Logger
	workDir  string
	noCommit bool
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithInvoker replaces the agent runner.
func WithInvoker(r agent.Runner) Option {
	return func(o *Orchestrator) { o.invoker = r }
}

// WithGit replaces the git client.
func WithGit(g *gitops.Git) Option {
	return func(o *Orchestrator) { o.git = g }
}

// WithOutput directs console output. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) { o.out = w }
}

// WithLogger sets the structured logger.
func WithLogger(logger *logging.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

// WithNoCommit skips the auto-commit step even when configuration enables
// it.
func WithNoCommit(skip bool) Option {
	return func(o *Orchestrator) { o.noCommit = skip }
}

// New creates an Orchestrator for the working tree at workDir. Unset
// collaborators default to real implementations rooted there.
func New(cfg *config.Config, store *project.Store, workDir string, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		cfg:     cfg,
		store:   store,
		workDir: workDir,
		out:     os.Stdout,
		logger:  logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.invoker == nil {
		o.invoker = agent.NewInvoker(
			agent.WithDir(workDir),
			agent.WithOutput(o.out),
			agent.WithInteractive(true),
			agent.WithLogger(o.logger),
		)
	}
	if o.git == nil {
		o.git = gitops.New(workDir, o.logger)
	}
	if o.prompts == nil {
		o.prompts = prompt.New(workDir, o.logger)
	}
	return o
}

// Execute runs the pipeline for one task description until the auditor
// approves or MaxAttempts rejections exhaust the run. Rejected attempts
// fold the review feedback into the description before replanning. A
// plan or implement failure aborts; a review invocation failure counts as
// a rejection.
func (o *Orchestrator) Execute(ctx context.Context, description string) error {
	if err := os.MkdirAll(o.stateDir(), 0755); err != nil {
		return errors.Wrap(err, "failed to create state dir")
	}

	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		if attempt > 1 {
			fmt.Fprintf(o.out, "\nRetry %d/%d — incorporating review feedback...\n\n", attempt, MaxAttempts)
		}

		planText, err := o.phasePlan(ctx, description)
		if err != nil {
			return err
		}

		implOutput, err := o.phaseImplement(ctx, planText)
		if err != nil {
			return err
		}

		verdict, reviewText, err := o.phaseReview(ctx, planText, implOutput)
		if err != nil {
			return err
		}

		if verdict == project.VerdictApproved {
			o.onApproved(ctx, description)
			return nil
		}

		fmt.Fprintf(o.out, "\nReview: REJECTED\n%s\n", util.TruncateString(reviewText, reviewPreviewLimit))
		description = fmt.Sprintf("%s\n\n## Previous Review Feedback (attempt %d)\n%s",
			description, attempt, reviewText)
		o.updatePhase(workflow.PhaseRejected)
		o.updatePhase(workflow.PhasePlanning)
	}

	fmt.Fprintf(o.out, "Task failed after %d attempts.\n", MaxAttempts)
	return errors.Wrapf(errors.ErrAttemptsExhausted, "task rejected %d times", MaxAttempts)
}

// -----------------------------------------------------------------------------
// Single-phase entry points
// -----------------------------------------------------------------------------

// Plan runs only the planning phase for a task description and leaves the
// document in implementation.
func (o *Orchestrator) Plan(ctx context.Context, description string) (string, error) {
	if err := os.MkdirAll(o.stateDir(), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create state dir")
	}
	return o.phasePlan(ctx, description)
}

// Implement runs only the implementation phase, reusing the plan artifact
// left by an earlier Plan run when one exists.
func (o *Orchestrator) Implement(ctx context.Context) (string, error) {
	if err := os.MkdirAll(o.stateDir(), 0755); err != nil {
		return "", errors.Wrap(err, "failed to create state dir")
	}
	return o.phaseImplement(ctx, o.readArtifact(PlanFileName))
}

// Review runs only the review phase over the saved plan and implementation
// artifacts and moves the document to approved or rejected per the verdict.
// Unlike Execute it never retries and never commits.
func (o *Orchestrator) Review(ctx context.Context) (project.Verdict, string, error) {
	if err := os.MkdirAll(o.stateDir(), 0755); err != nil {
		return "", "", errors.Wrap(err, "failed to create state dir")
	}

	verdict, reviewText, err := o.phaseReview(ctx, o.readArtifact(PlanFileName), o.readArtifact(ImplFileName))
	if err != nil {
		return verdict, reviewText, err
	}

	if verdict == project.VerdictApproved {
		o.updatePhase(workflow.PhaseApproved)
		fmt.Fprintln(o.out, "\nReview Result: APPROVED")
	} else {
		fmt.Fprintf(o.out, "\nReview: REJECTED\n%s\n", util.TruncateString(reviewText, reviewPreviewLimit))
		o.updatePhase(workflow.PhaseRejected)
	}
	return verdict, reviewText, nil
}

// -----------------------------------------------------------------------------
// Pipeline phases
// -----------------------------------------------------------------------------

func (o *Orchestrator) phasePlan(ctx context.Context, description string) (string, error) {
	fmt.Fprintln(o.out, "\nPhase 1: Planning")
	o.updatePhase(workflow.PhasePlanning)

	doc, err := o.store.Load()
	if err != nil {
		return "", err
	}
	spec, err := o.agentSpec(workflow.RoleArchitect)
	if err != nil {
		return "", err
	}

	transcript, err := o.invoker.Invoke(ctx, workflow.RoleArchitect, spec, o.prompts.Plan(doc, description), agent.InvokeOptions{
		Timeout: agent.TimeoutFor(workflow.RoleArchitect),
	})
	if err != nil {
		fmt.Fprintf(o.out, "Architect failed: %v\n", err)
		return "", err
	}

	if path, ok := o.saveArtifact(PlanFileName, transcript); ok {
		fmt.Fprintf(o.out, "  Plan saved to %s\n", path)
	}

	var taskID *string
	if packet, err := review.ExtractTaskPacket(transcript); err == nil {
		if o.enqueuePlannedTask(packet) {
			taskID = &packet.TaskID
		}
	}
	o.addLog(workflow.RoleArchitect, "plan_generated",
		"Generated plan for: "+clip(description, planSummaryLimit), taskID, nil)

	o.updatePhase(workflow.PhaseImplementation)
	return transcript, nil
}

// enqueuePlannedTask records the architect's packet in the task queue and
// promotes it to the current task. Replanning after a rejection reuses the
// same id, so packets already queued or completed are not re-added. All
// failures are soft: a plan without queue bookkeeping still drives the
// pipeline.
func (o *Orchestrator) enqueuePlannedTask(packet *project.TaskPacket) bool {
	doc, err := o.store.Load()
	if err != nil {
		o.logger.Debug("planned task not recorded", "error", err)
		return false
	}
	if slices.Contains(doc.CompletedTasks, packet.TaskID) {
		return false
	}
	if _, queued := doc.QueuedTask(packet.TaskID); !queued {
		if _, err := o.store.AddTask(*packet, workflow.RoleArchitect); err != nil {
			o.logger.Debug("planned task not recorded", "task_id", packet.TaskID, "error", err)
			return false
		}
		fmt.Fprintf(o.out, "  Task %s queued: %s\n", packet.TaskID, packet.Title)
	}
	if _, err := o.store.SetCurrentTask(packet.TaskID, workflow.RoleArchitect); err != nil {
		o.logger.Debug("current task not set", "task_id", packet.TaskID, "error", err)
	}
	return true
}

func (o *Orchestrator) phaseImplement(ctx context.Context, planText string) (string, error) {
	fmt.Fprintln(o.out, "\nPhase 2: Implementation")

	o.installHooks()

	doc, err := o.store.Load()
	if err != nil {
		return "", err
	}
	spec, err := o.agentSpec(workflow.RoleImplementer)
	if err != nil {
		return "", err
	}

	transcript, err := o.invoker.Invoke(ctx, workflow.RoleImplementer, spec, o.prompts.Implement(doc, planText), agent.InvokeOptions{
		Timeout: agent.TimeoutFor(workflow.RoleImplementer),
	})
	if err != nil {
		fmt.Fprintf(o.out, "Implementer failed: %v\n", err)
		return "", err
	}

	if path, ok := o.saveArtifact(ImplFileName, transcript); ok {
		fmt.Fprintf(o.out, "  Implementation output saved to %s\n", path)
	}
	o.addLog(workflow.RoleImplementer, "implementation_completed",
		"Implementation phase completed", doc.CurrentTask, implementationDetails(transcript))

	o.updatePhase(workflow.PhaseReview)
	return transcript, nil
}

// phaseReview gathers evidence and asks the auditor for a verdict. An
// auditor invocation failure is absorbed as a rejection carrying the error
// text; the returned error is reserved for broken plumbing such as an
// unreadable context document.
func (o *Orchestrator) phaseReview(ctx context.Context, planText, implOutput string) (project.Verdict, string, error) {
	fmt.Fprintln(o.out, "\nPhase 3: Review")

	diffText := o.git.Diff(ctx)
	if diffText == "" {
		fmt.Fprintln(o.out, "  No git diff detected, using implementation output.")
		diffText = implOutput
		if diffText == "" {
			diffText = "(no changes)"
		}
	}

	doc, err := o.store.Load()
	if err != nil {
		return "", "", err
	}
	spec, err := o.agentSpec(workflow.RoleAuditor)
	if err != nil {
		return "", "", err
	}

	transcript, err := o.invoker.Invoke(ctx, workflow.RoleAuditor, spec, o.prompts.Review(doc, planText, diffText), agent.InvokeOptions{
		Timeout: agent.TimeoutFor(workflow.RoleAuditor),
	})
	if err != nil {
		fmt.Fprintf(o.out, "Auditor failed: %v\n", err)
		return project.VerdictRejected, err.Error(), nil
	}

	o.saveArtifact(ReviewFileName, transcript)

	verdict, source := review.ParseVerdict(transcript)
	if source == review.SourceDefault {
		fmt.Fprintln(o.out, "Warning: review stated no verdict; defaulting to approved.")
		o.logger.WithPhase(string(workflow.PhaseReview)).Warn("review transcript stated no verdict, defaulting to approved")
	}

	o.addLog(workflow.RoleAuditor, "review_completed",
		"Review verdict: "+verdict.String(), doc.CurrentTask, reportDetails(transcript))

	return verdict, transcript, nil
}

// -----------------------------------------------------------------------------
// Helpers
// -----------------------------------------------------------------------------

// onApproved moves the document to approved and, unless suppressed, commits
// and pushes the working tree. Git failures are warnings: the work itself
// already passed review.
func (o *Orchestrator) onApproved(ctx context.Context, description string) {
	o.updatePhase(workflow.PhaseApproved)
	fmt.Fprintln(o.out, "\nReview Result: APPROVED")

	if o.noCommit || !o.cfg.Git.AutoCommit {
		return
	}

	message := fmt.Sprintf("feat: %s\n\nAutomated by triad orchestrator.",
		clip(description, commitSubjectLimit))
	if err := o.commitAndPush(ctx, message); err != nil {
		fmt.Fprintf(o.out, "Git commit/push failed: %v\n", err)
		o.logger.Warn("auto commit/push failed", "error", err)
		return
	}
	fmt.Fprintln(o.out, "Changes committed and pushed.")
}

func (o *Orchestrator) commitAndPush(ctx context.Context, message string) error {
	if err := o.git.CommitAll(ctx, message); err != nil {
		return err
	}
	if o.cfg.Git.AutoPush {
		return o.git.Push(ctx)
	}
	return nil
}

// updatePhase nudges the document to the target phase through the agent
// authorized for that edge. Invalid transitions are expected mid-pipeline
// (the document may already sit in the target phase) and never abort a run.
func (o *Orchestrator) updatePhase(target workflow.Phase) {
	role, ok := phaseAgents[target]
	if !ok {
		role = workflow.RoleArchitect
	}
	if _, err := o.store.UpdatePhase(target, role); err != nil {
		o.logger.Debug("phase nudge skipped", "target", string(target), "error", err)
	}
}

// installHooks copies hook scripts from the configured hooks dir into the
// working tree. Existing files are left alone so local edits survive
// re-runs.
func (o *Orchestrator) installHooks() {
	src := o.cfg.Paths.ResolveHooksDir(o.workDir)
	if src == "" {
		return
	}
	info, err := os.Stat(src)
	if err != nil || !info.IsDir() {
		return
	}

	dst := filepath.Join(o.workDir, ".claude", "hooks")
	if err := os.MkdirAll(dst, 0755); err != nil {
		o.logger.Warn("failed to create hooks dir", "path", dst, "error", err)
		return
	}

	scripts, err := filepath.Glob(filepath.Join(src, "*.sh"))
	if err != nil {
		return
	}
	for _, script := range scripts {
		target := filepath.Join(dst, filepath.Base(script))
		if _, err := os.Stat(target); err == nil {
			continue
		}
		if err := copyFile(script, target); err != nil {
			o.logger.Warn("failed to install hook", "script", filepath.Base(script), "error", err)
		}
	}
}

func copyFile(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0755)
}

// readArtifact returns a previously saved artifact, or "" when absent.
func (o *Orchestrator) readArtifact(name string) string {
	data, err := os.ReadFile(filepath.Join(o.stateDir(), name))
	if err != nil {
		return ""
	}
	return string(data)
}

// saveArtifact persists a transcript under the state dir. Artifacts are
// evidence, not state: failure is a warning.
func (o *Orchestrator) saveArtifact(name, content string) (string, bool) {
	path := filepath.Join(o.stateDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		fmt.Fprintf(o.out, "Warning: failed to save %s: %v\n", name, err)
		o.logger.Warn("failed to save artifact", "artifact", name, "error", err)
		return path, false
	}
	return path, true
}

func (o *Orchestrator) addLog(role workflow.AgentRole, action, summary string, taskID *string, details map[string]any) {
	if _, err := o.store.AddReasoningLog(role, action, summary, taskID, details); err != nil {
		o.logger.Warn("failed to record reasoning log", "action", action, "error", err)
	}
}

func (o *Orchestrator) agentSpec(role workflow.AgentRole) (agent.Spec, error) {
	ac, ok := o.cfg.Agents.ForRole(role)
	if !ok {
		return agent.Spec{}, errors.Wrapf(errors.ErrUnknownAgent, "no agent configured for role %q", role)
	}
	return agent.Spec{
		Name:        ac.Name,
		Command:     ac.Command,
		DefaultArgs: ac.DefaultArgs,
		Env:         ac.Env,
	}, nil
}

func (o *Orchestrator) stateDir() string {
	return o.cfg.Paths.ResolveStateDir(o.workDir)
}

// reportDetails extracts the auditor's structured report for the reasoning
// log. No report is fine; the verdict never depends on it.
func reportDetails(transcript string) map[string]any {
	report, err := review.ExtractReport(transcript)
	if err != nil {
		return nil
	}
	details := map[string]any{
		"review_items":      len(report.ReviewItems),
		"security_findings": len(report.SecurityFindings),
	}
	if report.ChangelogEntry != "" {
		details["changelog_entry"] = report.ChangelogEntry
	}
	return details
}

// implementationDetails summarizes the implementer's structured report for
// the reasoning log, when the transcript carried one.
func implementationDetails(transcript string) map[string]any {
	report, err := review.ExtractImplementationReport(transcript)
	if err != nil {
		return nil
	}
	details := map[string]any{
		"files_changed": len(report.FilesChanged),
	}
	if report.Status != "" {
		details["status"] = report.Status
	}
	if report.Tests != nil {
		details["tests_passed"] = report.Tests.Passed
		details["tests_failed"] = report.Tests.Failed
	}
	return details
}

// clip returns at most max runes of s with no ellipsis. Commit subjects
// and log summaries carry clipped text verbatim rather than display
// truncation.
func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
