// Package project defines the shared context document that the three
// agents read and write, and the store that persists it. The document is
// a single JSON file (docs/CONTEXT.json by default) holding the project
// phase, the task queue, reasoning logs, and project-wide constraints.
// Every mutation rewrites the whole document atomically.
package project

import (
	"regexp"
	"slices"
	"time"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// -----------------------------------------------------------------------------
// Enums
// -----------------------------------------------------------------------------

// Priority is a task priority level.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// String returns the priority name.
func (p Priority) String() string {
	return string(p)
}

// Priorities returns all priority levels in ascending order.
func Priorities() []Priority {
	return []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical}
}

// Severity classifies a review finding or known issue.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityMinor    Severity = "minor"
	SeverityMajor    Severity = "major"
	SeverityCritical Severity = "critical"
)

// String returns the severity name.
func (s Severity) String() string {
	return string(s)
}

// Severities returns all severities in ascending order.
func Severities() []Severity {
	return []Severity{SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical}
}

// Verdict is the auditor's decision on an implementation.
type Verdict string

const (
	VerdictApproved Verdict = "approved"
	VerdictRejected Verdict = "rejected"
)

// String returns the verdict name.
func (v Verdict) String() string {
	return string(v)
}

// FileAction describes what happened to a file during implementation.
type FileAction string

const (
	FileCreated  FileAction = "created"
	FileModified FileAction = "modified"
	FileDeleted  FileAction = "deleted"
)

// -----------------------------------------------------------------------------
// Task Packet
// -----------------------------------------------------------------------------

// taskIDPattern matches ids like TASK-001 and TASK-1042.
var taskIDPattern = regexp.MustCompile(`^TASK-\d{3,}$`)

// TaskPacket is the unit of work the architect hands to the implementer.
type TaskPacket struct {
	TaskID             string   `json:"task_id"`
	Title              string   `json:"title"`
	Description        string   `json:"description"`
	AcceptanceCriteria []string `json:"acceptance_criteria"`
	Constraints        []string `json:"constraints"`
	AffectedFiles      []string `json:"affected_files"`
	Priority           Priority `json:"priority"`
	DependsOn          []string `json:"depends_on"`
}

// Normalize fills schema defaults for fields the source JSON omitted:
// priority becomes medium and nil collections become empty ones so the
// document round-trips with [] instead of null.
func (t *TaskPacket) Normalize() {
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if t.AcceptanceCriteria == nil {
		t.AcceptanceCriteria = []string{}
	}
	if t.Constraints == nil {
		t.Constraints = []string{}
	}
	if t.AffectedFiles == nil {
		t.AffectedFiles = []string{}
	}
	if t.DependsOn == nil {
		t.DependsOn = []string{}
	}
}

// Validate checks the packet against the schema. Normalize first when the
// packet came from external JSON.
func (t *TaskPacket) Validate() error {
	if !taskIDPattern.MatchString(t.TaskID) {
		return errors.NewValidationError("task id must match TASK-NNN (three or more digits)").
			WithField("task_id").
			WithValue(t.TaskID)
	}
	if t.Title == "" {
		return errors.NewValidationError("title is required").WithField("title")
	}
	if t.Description == "" {
		return errors.NewValidationError("description is required").WithField("description")
	}
	if len(t.AcceptanceCriteria) == 0 {
		return errors.NewValidationError("at least one acceptance criterion is required").
			WithField("acceptance_criteria")
	}
	if !validPriority(t.Priority) {
		return errors.NewValidationError("unknown priority").
			WithField("priority").
			WithValue(string(t.Priority))
	}
	return nil
}

func validPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func validSeverity(s Severity) bool {
	switch s {
	case SeverityInfo, SeverityMinor, SeverityMajor, SeverityCritical:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Reasoning Log
// -----------------------------------------------------------------------------

// ReasoningLog is one entry in the document's append-only activity trail.
type ReasoningLog struct {
	Timestamp time.Time          `json:"timestamp"`
	Agent     workflow.AgentRole `json:"agent"`
	TaskID    *string            `json:"task_id"`
	Action    string             `json:"action"`
	Summary   string             `json:"summary"`
	Details   map[string]any     `json:"details"`
}

// -----------------------------------------------------------------------------
// Known Issues
// -----------------------------------------------------------------------------

// KnownIssue tracks a problem the auditor flagged but did not block on.
type KnownIssue struct {
	ID          string             `json:"id"`
	Description string             `json:"description"`
	Severity    Severity           `json:"severity"`
	ReportedBy  workflow.AgentRole `json:"reported_by"`
}

// -----------------------------------------------------------------------------
// Constraints
// -----------------------------------------------------------------------------

// StyleConfig names the formatter for each project language.
type StyleConfig struct {
	Python     string `json:"python"`
	TypeScript string `json:"typescript"`
}

// TestingConfig describes the project's test expectations.
type TestingConfig struct {
	Framework   []string `json:"framework"`
	MinCoverage int      `json:"min_coverage"`
}

// ActiveConstraints is project-wide policy passed into every prompt. The
// pipeline reads it and never mutates it.
type ActiveConstraints struct {
	Language []string      `json:"language"`
	Style    StyleConfig   `json:"style"`
	Testing  TestingConfig `json:"testing"`
	Typing   string        `json:"typing"`
}

// DefaultConstraints returns the constraint set a fresh project starts with.
func DefaultConstraints() ActiveConstraints {
	return ActiveConstraints{
		Language: []string{"Python 3.12+", "TypeScript 5.5+"},
		Style: StyleConfig{
			Python:     "black",
			TypeScript: "prettier",
		},
		Testing: TestingConfig{
			Framework:   []string{"pytest", "jest"},
			MinCoverage: 80,
		},
		Typing: "strict",
	}
}

// -----------------------------------------------------------------------------
// Project Context
// -----------------------------------------------------------------------------

// ProjectContext is the root document: the single source of truth every
// agent reads before acting and writes through after.
type ProjectContext struct {
	ProjectName       string             `json:"project_name"`
	GlobalPhase       workflow.Phase     `json:"global_phase"`
	CurrentTask       *string            `json:"current_task"`
	TaskQueue         []TaskPacket       `json:"task_queue"`
	CompletedTasks    []string           `json:"completed_tasks"`
	ActiveConstraints ActiveConstraints  `json:"active_constraints"`
	ReasoningLogs     []ReasoningLog     `json:"reasoning_logs"`
	KnownIssues       []KnownIssue       `json:"known_issues"`
	LastUpdatedBy     workflow.AgentRole `json:"last_updated_by"`
	LastUpdatedAt     time.Time          `json:"last_updated_at"`
}

// NewProjectContext creates a document with default values for a project.
func NewProjectContext(name string) *ProjectContext {
	return &ProjectContext{
		ProjectName:       name,
		GlobalPhase:       workflow.PhasePlanning,
		TaskQueue:         []TaskPacket{},
		CompletedTasks:    []string{},
		ActiveConstraints: DefaultConstraints(),
		ReasoningLogs:     []ReasoningLog{},
		KnownIssues:       []KnownIssue{},
		LastUpdatedBy:     workflow.RoleArchitect,
		LastUpdatedAt:     time.Now().UTC(),
	}
}

// Normalize fills schema defaults the way the document's default factories
// would, so a hand-edited or minimal document loads the same as a generated
// one. Explicitly invalid values are left alone for Validate to reject.
func (c *ProjectContext) Normalize() {
	if c.GlobalPhase == "" {
		c.GlobalPhase = workflow.PhasePlanning
	}
	if c.LastUpdatedBy == "" {
		c.LastUpdatedBy = workflow.RoleArchitect
	}
	if c.TaskQueue == nil {
		c.TaskQueue = []TaskPacket{}
	}
	for i := range c.TaskQueue {
		c.TaskQueue[i].Normalize()
	}
	if c.CompletedTasks == nil {
		c.CompletedTasks = []string{}
	}
	if c.ReasoningLogs == nil {
		c.ReasoningLogs = []ReasoningLog{}
	}
	for i := range c.ReasoningLogs {
		if c.ReasoningLogs[i].Details == nil {
			c.ReasoningLogs[i].Details = map[string]any{}
		}
	}
	if c.KnownIssues == nil {
		c.KnownIssues = []KnownIssue{}
	}
	for i := range c.KnownIssues {
		if c.KnownIssues[i].Severity == "" {
			c.KnownIssues[i].Severity = SeverityMinor
		}
		if c.KnownIssues[i].ReportedBy == "" {
			c.KnownIssues[i].ReportedBy = workflow.RoleAuditor
		}
	}
	if c.ActiveConstraints.Language == nil {
		c.ActiveConstraints.Language = DefaultConstraints().Language
	}
	if c.ActiveConstraints.Style.Python == "" {
		c.ActiveConstraints.Style.Python = "black"
	}
	if c.ActiveConstraints.Style.TypeScript == "" {
		c.ActiveConstraints.Style.TypeScript = "prettier"
	}
	if c.ActiveConstraints.Testing.Framework == nil {
		c.ActiveConstraints.Testing.Framework = DefaultConstraints().Testing.Framework
	}
	if c.ActiveConstraints.Testing.MinCoverage == 0 {
		c.ActiveConstraints.Testing.MinCoverage = DefaultConstraints().Testing.MinCoverage
	}
	if c.ActiveConstraints.Typing == "" {
		c.ActiveConstraints.Typing = "strict"
	}
}

// Validate is the load-time schema check. It enforces required fields and
// enum membership but not queue id uniqueness, which callers preserve.
func (c *ProjectContext) Validate() error {
	if c.ProjectName == "" {
		return errors.NewValidationError("project name is required").
			WithField("project_name")
	}
	if _, err := workflow.ParsePhase(string(c.GlobalPhase)); err != nil {
		return errors.NewValidationError("unknown phase").
			WithField("global_phase").
			WithValue(string(c.GlobalPhase)).
			WithCause(err)
	}
	if _, err := workflow.ParseAgentRole(string(c.LastUpdatedBy)); err != nil {
		return errors.NewValidationError("unknown agent role").
			WithField("last_updated_by").
			WithValue(string(c.LastUpdatedBy)).
			WithCause(err)
	}
	for i := range c.TaskQueue {
		if err := c.TaskQueue[i].Validate(); err != nil {
			return errors.Wrapf(err, "task_queue[%d]", i)
		}
	}
	for i := range c.ReasoningLogs {
		if _, err := workflow.ParseAgentRole(string(c.ReasoningLogs[i].Agent)); err != nil {
			return errors.NewValidationError("unknown agent role").
				WithField("reasoning_logs").
				WithValue(string(c.ReasoningLogs[i].Agent)).
				WithCause(err)
		}
	}
	for i := range c.KnownIssues {
		if !validSeverity(c.KnownIssues[i].Severity) {
			return errors.NewValidationError("unknown severity").
				WithField("known_issues").
				WithValue(string(c.KnownIssues[i].Severity))
		}
	}
	return nil
}

// QueuedTask returns the queued packet with the given id.
func (c *ProjectContext) QueuedTask(taskID string) (*TaskPacket, bool) {
	for i := range c.TaskQueue {
		if c.TaskQueue[i].TaskID == taskID {
			return &c.TaskQueue[i], true
		}
	}
	return nil, false
}

// CurrentTaskPacket resolves current_task to its queued packet, when both
// exist.
func (c *ProjectContext) CurrentTaskPacket() (*TaskPacket, bool) {
	if c.CurrentTask == nil {
		return nil, false
	}
	return c.QueuedTask(*c.CurrentTask)
}

// DepsSatisfied reports whether every dependency of the task has been
// completed. Dependencies referencing unknown ids count as unmet.
func (c *ProjectContext) DepsSatisfied(task *TaskPacket) bool {
	for _, depID := range task.DependsOn {
		if !slices.Contains(c.CompletedTasks, depID) {
			return false
		}
	}
	return true
}

// NextWorkableTask returns the first queued task whose dependencies are all
// completed.
func (c *ProjectContext) NextWorkableTask() (*TaskPacket, bool) {
	for i := range c.TaskQueue {
		if c.DepsSatisfied(&c.TaskQueue[i]) {
			return &c.TaskQueue[i], true
		}
	}
	return nil, false
}
