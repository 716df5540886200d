// Package review interprets agent transcripts: the auditor verdict that
// routes the pipeline, and the structured contract objects (task packets,
// implementation reports, review reports) that agents emit per their output
// schemas. Extraction is best effort throughout; a transcript without a
// parseable object is normal, not an error worth failing a phase over.
package review

import (
	"encoding/json"
	"strings"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/project"
)

// ErrNoReport means the transcript carried no parseable review report.
var ErrNoReport = errors.New("no review report found in transcript")

// ErrNoTaskPacket means the transcript carried no valid task packet.
var ErrNoTaskPacket = errors.New("no task packet found in transcript")

// ErrNoImplementationReport means the transcript carried no parseable
// implementation report.
var ErrNoImplementationReport = errors.New("no implementation report found in transcript")

// Source reports where ParseVerdict found its answer. Callers should warn
// when they see SourceDefault: the transcript never stated a verdict and
// the fail-open default was applied.
type Source string

const (
	// SourceVerdictLine means an explicit VERDICT: line decided.
	SourceVerdictLine Source = "verdict_line"

	// SourceKeyword means keyword presence decided.
	SourceKeyword Source = "keyword"

	// SourceDefault means neither keyword appeared anywhere and the
	// fail-open default of approved was applied.
	SourceDefault Source = "default"
)

// String returns the source name.
func (s Source) String() string {
	return string(s)
}

// ParseVerdict extracts the auditor's verdict from a review transcript.
// Matching is case-insensitive throughout.
//
// An explicit verdict line wins: the first line whose trimmed form starts
// with VERDICT: and names APPROVED or REJECTED decides, even when the rest
// of the transcript argues otherwise. Without one, keyword presence
// decides: APPROVED without REJECTED approves, any REJECTED rejects. A
// transcript naming neither defaults to approved.
func ParseVerdict(text string) (project.Verdict, Source) {
	upper := strings.ToUpper(text)

	for _, line := range strings.Split(upper, "\n") {
		line = strings.TrimSpace(line)
		if !strings.HasPrefix(line, "VERDICT:") {
			continue
		}
		if strings.Contains(line, "APPROVED") {
			return project.VerdictApproved, SourceVerdictLine
		}
		if strings.Contains(line, "REJECTED") {
			return project.VerdictRejected, SourceVerdictLine
		}
	}

	if strings.Contains(upper, "APPROVED") && !strings.Contains(upper, "REJECTED") {
		return project.VerdictApproved, SourceKeyword
	}
	if strings.Contains(upper, "REJECTED") {
		return project.VerdictRejected, SourceKeyword
	}

	return project.VerdictApproved, SourceDefault
}

// ExtractReport pulls the auditor's structured report out of a transcript.
// Both shapes the review contract allows are accepted: a bare report and an
// auditor handoff envelope wrapping one. The verdict never depends on this;
// failure only means no structured report was produced.
func ExtractReport(text string) (*project.ReviewReport, error) {
	var report *project.ReviewReport
	scanObjects(text, func(candidate string) bool {
		r, ok := parseReport(candidate)
		if ok {
			report = r
		}
		return ok
	})
	if report == nil {
		return nil, ErrNoReport
	}
	return report, nil
}

// ExtractTaskPacket pulls the architect's planned task out of a transcript,
// accepting a bare packet or an architect handoff envelope wrapping one.
// Candidates that fail packet validation are skipped, so schema skeletons
// and unrelated JSON never yield a half-formed task.
func ExtractTaskPacket(text string) (*project.TaskPacket, error) {
	var packet *project.TaskPacket
	scanObjects(text, func(candidate string) bool {
		p, ok := parseTaskPacket(candidate)
		if ok {
			packet = p
		}
		return ok
	})
	if packet == nil {
		return nil, ErrNoTaskPacket
	}
	return packet, nil
}

// ExtractImplementationReport pulls the implementer's report out of a
// transcript, accepting a bare report or an implementer handoff envelope
// wrapping one.
func ExtractImplementationReport(text string) (*project.ImplementationReport, error) {
	var report *project.ImplementationReport
	scanObjects(text, func(candidate string) bool {
		r, ok := parseImplementationReport(candidate)
		if ok {
			report = r
		}
		return ok
	})
	if report == nil {
		return nil, ErrNoImplementationReport
	}
	return report, nil
}

// scanObjects locates candidate JSON objects in mixed prose by brace
// matching and feeds each top-level candidate to accept, stopping at the
// first one accepted. Braces inside fenced code blocks match too; the
// accept callbacks are responsible for rejecting non-contract objects.
func scanObjects(text string, accept func(candidate string) bool) {
	depth := 0
	start := -1
	for i, ch := range text {
		switch ch {
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth == 0 {
				continue
			}
			depth--
			if depth == 0 && start >= 0 {
				if accept(text[start : i+1]) {
					return
				}
				start = -1
			}
		}
	}
}

// parseReport unmarshals one candidate object, accepting it only when it
// carries report content. Schema skeletons echoed back by the agent fail
// to unmarshal and fall through to the next candidate.
func parseReport(candidate string) (*project.ReviewReport, bool) {
	var envelope project.AuditorToArchitect
	if err := json.Unmarshal([]byte(candidate), &envelope); err == nil &&
		envelope.Handoff == project.HandoffAuditorToArchitect {
		if reportHasContent(&envelope.ReviewReport) {
			return &envelope.ReviewReport, true
		}
		return nil, false
	}

	var report project.ReviewReport
	if err := json.Unmarshal([]byte(candidate), &report); err != nil {
		return nil, false
	}
	if !reportHasContent(&report) {
		return nil, false
	}
	return &report, true
}

func reportHasContent(report *project.ReviewReport) bool {
	return report.TaskID != "" || report.Verdict != "" || len(report.ReviewItems) > 0
}

// parseTaskPacket tries the envelope shape first because a wrapped packet
// also unmarshals as a bare one with every field empty.
func parseTaskPacket(candidate string) (*project.TaskPacket, bool) {
	var envelope project.ArchitectToImplementer
	if err := json.Unmarshal([]byte(candidate), &envelope); err == nil &&
		envelope.Handoff == project.HandoffArchitectToImplementer {
		return validPacket(envelope.TaskPacket)
	}

	var packet project.TaskPacket
	if err := json.Unmarshal([]byte(candidate), &packet); err != nil {
		return nil, false
	}
	return validPacket(packet)
}

func validPacket(packet project.TaskPacket) (*project.TaskPacket, bool) {
	packet.Normalize()
	if packet.Validate() != nil {
		return nil, false
	}
	return &packet, true
}

func parseImplementationReport(candidate string) (*project.ImplementationReport, bool) {
	var envelope project.ImplementerToAuditor
	if err := json.Unmarshal([]byte(candidate), &envelope); err == nil &&
		envelope.Handoff == project.HandoffImplementerToAuditor {
		if implReportHasContent(&envelope.ImplementationReport) {
			return &envelope.ImplementationReport, true
		}
		return nil, false
	}

	var report project.ImplementationReport
	if err := json.Unmarshal([]byte(candidate), &report); err != nil {
		return nil, false
	}
	if !implReportHasContent(&report) {
		return nil, false
	}
	return &report, true
}

func implReportHasContent(report *project.ImplementationReport) bool {
	return report.TaskID != "" || report.Status != "" || len(report.FilesChanged) > 0
}
