package project

// Report and handoff payloads exchanged between roles. The prompt builder
// embeds these shapes in each role's output contract, and the review
// parser extracts them from agent transcripts on a best-effort basis.

// -----------------------------------------------------------------------------
// Implementation Report (implementer -> auditor)
// -----------------------------------------------------------------------------

// FileChange records one file the implementer touched.
type FileChange struct {
	Path    string     `json:"path"`
	Action  FileAction `json:"action"`
	Summary string     `json:"summary"`
}

// TestResult aggregates a test run.
type TestResult struct {
	Total    int     `json:"total"`
	Passed   int     `json:"passed"`
	Failed   int     `json:"failed"`
	Coverage float64 `json:"coverage"`
}

// ImplementationReport is what the implementer submits when a task is done.
type ImplementationReport struct {
	TaskID       string       `json:"task_id"`
	Status       string       `json:"status"`
	FilesChanged []FileChange `json:"files_changed"`
	Tests        *TestResult  `json:"tests"`
	Deviations   []string     `json:"deviations"`
	Notes        string       `json:"notes"`
}

// -----------------------------------------------------------------------------
// Review Report (auditor)
// -----------------------------------------------------------------------------

// ReviewItem is a single review finding.
type ReviewItem struct {
	File     string   `json:"file"`
	Line     *int     `json:"line"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// PrdCompliance tracks which stated requirements the implementation met.
type PrdCompliance struct {
	RequirementsMet     []string `json:"requirements_met"`
	RequirementsMissing []string `json:"requirements_missing"`
}

// ReviewReport is the auditor's structured assessment of an implementation.
type ReviewReport struct {
	TaskID           string        `json:"task_id"`
	Verdict          Verdict       `json:"verdict"`
	ReviewItems      []ReviewItem  `json:"review_items"`
	PrdCompliance    PrdCompliance `json:"prd_compliance"`
	SecurityFindings []string      `json:"security_findings"`
	ChangelogEntry   string        `json:"changelog_entry"`
}

// -----------------------------------------------------------------------------
// Handoff Envelopes
// -----------------------------------------------------------------------------

// Handoff discriminator values carried in each envelope's handoff field.
const (
	HandoffArchitectToImplementer = "architect_to_implementer"
	HandoffImplementerToAuditor   = "implementer_to_auditor"
	HandoffAuditorToArchitect     = "auditor_to_architect"
)

// ArchitectToImplementer hands a planned task to the implementer.
type ArchitectToImplementer struct {
	Handoff        string     `json:"handoff"`
	TaskPacket     TaskPacket `json:"task_packet"`
	ContextSummary string     `json:"context_summary"`
	ReferenceFiles []string   `json:"reference_files"`
}

// ImplementerToAuditor hands a finished implementation to the auditor.
type ImplementerToAuditor struct {
	Handoff              string               `json:"handoff"`
	ImplementationReport ImplementationReport `json:"implementation_report"`
	ReviewScope          []string             `json:"review_scope"`
	TestCommand          string               `json:"test_command"`
}

// AuditorToArchitect returns a rejection to the architect for replanning.
type AuditorToArchitect struct {
	Handoff           string       `json:"handoff"`
	ReviewReport      ReviewReport `json:"review_report"`
	ActionRequired    string       `json:"action_required"`
	SuggestedApproach string       `json:"suggested_approach"`
}
