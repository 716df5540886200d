package review

import (
	"testing"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/project"
)

func TestParseVerdict(t *testing.T) {
	tests := []struct {
		name        string
		text        string
		wantVerdict project.Verdict
		wantSource  Source
	}{
		{
			name:        "explicit approved line",
			text:        "The implementation matches the plan.\n\nVERDICT: APPROVED\n\nNice work overall.",
			wantVerdict: project.VerdictApproved,
			wantSource:  SourceVerdictLine,
		},
		{
			name:        "explicit rejected line",
			text:        "VERDICT: REJECTED\nThe error path is untested.",
			wantVerdict: project.VerdictRejected,
			wantSource:  SourceVerdictLine,
		},
		{
			name:        "lowercase verdict line",
			text:        "verdict: approved",
			wantVerdict: project.VerdictApproved,
			wantSource:  SourceVerdictLine,
		},
		{
			name:        "indented verdict line",
			text:        "   VERDICT: REJECTED",
			wantVerdict: project.VerdictRejected,
			wantSource:  SourceVerdictLine,
		},
		{
			name:        "verdict line beats contrary prose",
			text:        "VERDICT: APPROVED\nThe previous attempt was REJECTED for missing tests; this one fixes that.",
			wantVerdict: project.VerdictApproved,
			wantSource:  SourceVerdictLine,
		},
		{
			name:        "undecided verdict line skipped",
			text:        "VERDICT: PENDING\nstill thinking\nVERDICT: REJECTED",
			wantVerdict: project.VerdictRejected,
			wantSource:  SourceVerdictLine,
		},
		{
			name:        "approved keyword only",
			text:        "Everything checks out. Approved.",
			wantVerdict: project.VerdictApproved,
			wantSource:  SourceKeyword,
		},
		{
			name:        "rejected keyword only",
			text:        "This change must be rejected until the migration is fixed.",
			wantVerdict: project.VerdictRejected,
			wantSource:  SourceKeyword,
		},
		{
			name:        "both keywords without verdict line rejects",
			text:        "Parts can be approved but the whole is rejected.",
			wantVerdict: project.VerdictRejected,
			wantSource:  SourceKeyword,
		},
		{
			name:        "no keywords falls open to approved",
			text:        "Looks reasonable to me.",
			wantVerdict: project.VerdictApproved,
			wantSource:  SourceDefault,
		},
		{
			name:        "empty transcript falls open to approved",
			text:        "",
			wantVerdict: project.VerdictApproved,
			wantSource:  SourceDefault,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, source := ParseVerdict(tt.text)
			if verdict != tt.wantVerdict {
				t.Errorf("ParseVerdict() verdict = %s, want %s", verdict, tt.wantVerdict)
			}
			if source != tt.wantSource {
				t.Errorf("ParseVerdict() source = %s, want %s", source, tt.wantSource)
			}
		})
	}
}

func TestExtractReport(t *testing.T) {
	transcript := "VERDICT: REJECTED\n\nFindings below.\n\n```json\n" +
		`{
  "task_id": "TASK-003",
  "verdict": "rejected",
  "review_items": [
    {"file": "internal/api/handler.go", "line": 42, "severity": "major", "message": "missing error check"}
  ],
  "prd_compliance": {
    "requirements_met": ["REQ-001"],
    "requirements_missing": ["REQ-002"]
  },
  "security_findings": ["token logged in plaintext"],
  "changelog_entry": "Rejected: error handling gaps"
}` + "\n```\n"

	report, err := ExtractReport(transcript)
	if err != nil {
		t.Fatalf("ExtractReport() unexpected error: %v", err)
	}

	if report.TaskID != "TASK-003" {
		t.Errorf("TaskID = %q, want %q", report.TaskID, "TASK-003")
	}
	if report.Verdict != project.VerdictRejected {
		t.Errorf("Verdict = %s, want %s", report.Verdict, project.VerdictRejected)
	}
	if len(report.ReviewItems) != 1 {
		t.Fatalf("ReviewItems length = %d, want 1", len(report.ReviewItems))
	}
	item := report.ReviewItems[0]
	if item.File != "internal/api/handler.go" {
		t.Errorf("item file = %q, want %q", item.File, "internal/api/handler.go")
	}
	if item.Line == nil || *item.Line != 42 {
		t.Errorf("item line = %v, want 42", item.Line)
	}
	if item.Severity != project.SeverityMajor {
		t.Errorf("item severity = %s, want %s", item.Severity, project.SeverityMajor)
	}
	if len(report.PrdCompliance.RequirementsMissing) != 1 {
		t.Errorf("RequirementsMissing length = %d, want 1", len(report.PrdCompliance.RequirementsMissing))
	}
	if len(report.SecurityFindings) != 1 {
		t.Errorf("SecurityFindings length = %d, want 1", len(report.SecurityFindings))
	}
}

func TestExtractReport_SkipsContentlessObjects(t *testing.T) {
	transcript := `First a shape the schema echoed: {"path": "x", "action": "created"}` + "\n" +
		`Then the real one: {"task_id": "TASK-010", "verdict": "approved"}`

	report, err := ExtractReport(transcript)
	if err != nil {
		t.Fatalf("ExtractReport() unexpected error: %v", err)
	}
	if report.TaskID != "TASK-010" {
		t.Errorf("TaskID = %q, want %q", report.TaskID, "TASK-010")
	}
	if report.Verdict != project.VerdictApproved {
		t.Errorf("Verdict = %s, want %s", report.Verdict, project.VerdictApproved)
	}
}

func TestExtractReport_NoReport(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose only", text: "No structured output here, just prose."},
		{name: "empty transcript", text: ""},
		{name: "empty object", text: "{}"},
		{name: "malformed json", text: `{"task_id": "TASK-001", "verdict": `},
		{name: "stray closers", text: "}} nothing {{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ExtractReport(tt.text)
			if !errors.Is(err, ErrNoReport) {
				t.Errorf("ExtractReport() error = %v, want ErrNoReport", err)
			}
			if report != nil {
				t.Errorf("ExtractReport() report = %+v, want nil", report)
			}
		})
	}
}

func TestExtractReport_AuditorEnvelope(t *testing.T) {
	transcript := "Returning this to the architect.\n\n" +
		`{
  "handoff": "auditor_to_architect",
  "review_report": {
    "task_id": "TASK-007",
    "verdict": "rejected",
    "review_items": [
      {"file": "store.go", "severity": "major", "message": "lock not released on early return"}
    ]
  },
  "action_required": "replan",
  "suggested_approach": "Wrap the critical section in a deferred unlock."
}`

	report, err := ExtractReport(transcript)
	if err != nil {
		t.Fatalf("ExtractReport() unexpected error: %v", err)
	}
	if report.TaskID != "TASK-007" {
		t.Errorf("TaskID = %q, want %q", report.TaskID, "TASK-007")
	}
	if report.Verdict != project.VerdictRejected {
		t.Errorf("Verdict = %s, want %s", report.Verdict, project.VerdictRejected)
	}
	if len(report.ReviewItems) != 1 {
		t.Errorf("ReviewItems length = %d, want 1", len(report.ReviewItems))
	}
}

func TestExtractTaskPacket(t *testing.T) {
	transcript := "## Plan\n\nOne task covers this.\n\n```json\n" +
		`{
  "task_id": "TASK-012",
  "title": "Add health endpoint",
  "description": "Expose GET /health returning 200.",
  "acceptance_criteria": ["curl /health returns 200"],
  "affected_files": ["internal/api/routes.go"]
}` + "\n```\n\nHand off to the implementer.\n"

	packet, err := ExtractTaskPacket(transcript)
	if err != nil {
		t.Fatalf("ExtractTaskPacket() unexpected error: %v", err)
	}
	if packet.TaskID != "TASK-012" {
		t.Errorf("TaskID = %q, want %q", packet.TaskID, "TASK-012")
	}
	if packet.Title != "Add health endpoint" {
		t.Errorf("Title = %q, want %q", packet.Title, "Add health endpoint")
	}
	if packet.Priority != project.PriorityMedium {
		t.Errorf("Priority = %s, want medium default", packet.Priority)
	}
	if packet.DependsOn == nil {
		t.Error("DependsOn = nil, want normalized empty slice")
	}
}

func TestExtractTaskPacket_ArchitectEnvelope(t *testing.T) {
	transcript := `{
  "handoff": "architect_to_implementer",
  "task_packet": {
    "task_id": "TASK-020",
    "title": "Rate limit the API",
    "description": "Add a token bucket in front of the mux.",
    "acceptance_criteria": ["burst of 100 returns 429 past the limit"],
    "priority": "high"
  },
  "context_summary": "Second attempt; first missed the burst case.",
  "reference_files": ["internal/api/middleware.go"]
}`

	packet, err := ExtractTaskPacket(transcript)
	if err != nil {
		t.Fatalf("ExtractTaskPacket() unexpected error: %v", err)
	}
	if packet.TaskID != "TASK-020" {
		t.Errorf("TaskID = %q, want %q", packet.TaskID, "TASK-020")
	}
	if packet.Priority != project.PriorityHigh {
		t.Errorf("Priority = %s, want %s", packet.Priority, project.PriorityHigh)
	}
}

func TestExtractTaskPacket_SkipsInvalidCandidates(t *testing.T) {
	// The first object has a malformed id and no criteria; only the
	// second survives validation.
	transcript := `{"task_id": "TASK-1", "title": "bad id", "description": "x"}` + "\n" +
		`{"task_id": "TASK-002", "title": "ok", "description": "x", "acceptance_criteria": ["done"]}`

	packet, err := ExtractTaskPacket(transcript)
	if err != nil {
		t.Fatalf("ExtractTaskPacket() unexpected error: %v", err)
	}
	if packet.TaskID != "TASK-002" {
		t.Errorf("TaskID = %q, want %q", packet.TaskID, "TASK-002")
	}
}

func TestExtractTaskPacket_NoPacket(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose only", text: "1. Write the handler\n2. Write the test"},
		{name: "empty transcript", text: ""},
		{name: "schema skeleton", text: `{"task_id": "", "title": "", "description": ""}`},
		{name: "envelope with invalid packet", text: `{"handoff": "architect_to_implementer", "task_packet": {"task_id": "TASK-003"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packet, err := ExtractTaskPacket(tt.text)
			if !errors.Is(err, ErrNoTaskPacket) {
				t.Errorf("ExtractTaskPacket() error = %v, want ErrNoTaskPacket", err)
			}
			if packet != nil {
				t.Errorf("ExtractTaskPacket() packet = %+v, want nil", packet)
			}
		})
	}
}

func TestExtractImplementationReport(t *testing.T) {
	transcript := "Done. Report:\n\n" +
		`{
  "task_id": "TASK-012",
  "status": "complete",
  "files_changed": [
    {"path": "internal/api/routes.go", "action": "modified", "summary": "registered /health"}
  ],
  "tests": {"total": 4, "passed": 4, "failed": 0, "coverage": 81.5},
  "deviations": [],
  "notes": "No schema changes."
}`

	report, err := ExtractImplementationReport(transcript)
	if err != nil {
		t.Fatalf("ExtractImplementationReport() unexpected error: %v", err)
	}
	if report.TaskID != "TASK-012" {
		t.Errorf("TaskID = %q, want %q", report.TaskID, "TASK-012")
	}
	if report.Status != "complete" {
		t.Errorf("Status = %q, want %q", report.Status, "complete")
	}
	if len(report.FilesChanged) != 1 {
		t.Fatalf("FilesChanged length = %d, want 1", len(report.FilesChanged))
	}
	if report.FilesChanged[0].Path != "internal/api/routes.go" {
		t.Errorf("changed path = %q, want %q", report.FilesChanged[0].Path, "internal/api/routes.go")
	}
	if report.Tests == nil || report.Tests.Passed != 4 {
		t.Errorf("Tests = %+v, want 4 passed", report.Tests)
	}
}

func TestExtractImplementationReport_ImplementerEnvelope(t *testing.T) {
	transcript := `{
  "handoff": "implementer_to_auditor",
  "implementation_report": {
    "task_id": "TASK-021",
    "status": "partial",
    "deviations": ["skipped the retry path"]
  },
  "review_scope": ["internal/agent"],
  "test_command": "go test ./..."
}`

	report, err := ExtractImplementationReport(transcript)
	if err != nil {
		t.Fatalf("ExtractImplementationReport() unexpected error: %v", err)
	}
	if report.TaskID != "TASK-021" {
		t.Errorf("TaskID = %q, want %q", report.TaskID, "TASK-021")
	}
	if report.Status != "partial" {
		t.Errorf("Status = %q, want %q", report.Status, "partial")
	}
	if len(report.Deviations) != 1 {
		t.Errorf("Deviations length = %d, want 1", len(report.Deviations))
	}
}

func TestExtractImplementationReport_NoReport(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "prose only", text: "Implemented the handler and its test."},
		{name: "empty transcript", text: ""},
		{name: "contentless object", text: `{"notes": "nothing structural"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report, err := ExtractImplementationReport(tt.text)
			if !errors.Is(err, ErrNoImplementationReport) {
				t.Errorf("ExtractImplementationReport() error = %v, want ErrNoImplementationReport", err)
			}
			if report != nil {
				t.Errorf("ExtractImplementationReport() report = %+v, want nil", report)
			}
		})
	}
}
