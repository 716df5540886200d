package project

// Query and export for the reasoning trail. Rotation moves old entries
// out of the live document into archive files, so post-hoc analysis has
// to merge both sources back together.

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Iron-Ham/triad/internal/workflow"
)

// LogFilter defines criteria for filtering reasoning log entries.
// Multiple criteria combine with AND logic.
type LogFilter struct {
	// Agent filters to entries written by this role.
	// Empty string means no agent filtering.
	Agent workflow.AgentRole

	// Action filters to entries with this exact action label.
	Action string

	// TaskID filters to entries referencing this task.
	TaskID string

	// Since filters to entries at or after this time.
	// Zero value means no lower bound.
	Since time.Time

	// Until filters to entries at or before this time.
	// Zero value means no upper bound.
	Until time.Time

	// Contains filters to entries whose summary contains this substring.
	Contains string
}

// CollectLogs returns the reasoning trail sorted by timestamp in
// ascending order. With includeArchived it also reads every rotation
// archive beside the document; an unparseable archive file is skipped so
// one corrupted rotation does not hide the rest of the trail.
func (s *Store) CollectLogs(includeArchived bool) ([]ReasoningLog, error) {
	var entries []ReasoningLog

	if includeArchived {
		archives, err := s.archiveFiles()
		if err != nil {
			return nil, err
		}
		for _, path := range archives {
			data, err := os.ReadFile(path)
			if err != nil {
				s.logger.Warn("skipping unreadable log archive", "path", path, "error", err)
				continue
			}
			var batch []ReasoningLog
			if err := json.Unmarshal(data, &batch); err != nil {
				s.logger.Warn("skipping corrupted log archive", "path", path, "error", err)
				continue
			}
			entries = append(entries, batch...)
		}
	}

	ctx, err := s.Load()
	if err != nil {
		return nil, err
	}
	entries = append(entries, ctx.ReasoningLogs...)

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// archiveFiles lists rotation archives in name order, which is also
// chronological because names embed the rotation timestamp.
func (s *Store) archiveFiles() ([]string, error) {
	pattern := filepath.Join(filepath.Dir(s.path), "logs", "reasoning_*.json")
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// FilterLogs filters entries based on the provided criteria.
func FilterLogs(entries []ReasoningLog, filter LogFilter) []ReasoningLog {
	if isEmptyFilter(filter) {
		return entries
	}

	var filtered []ReasoningLog
	for _, entry := range entries {
		if matchesFilter(entry, filter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func isEmptyFilter(f LogFilter) bool {
	return f.Agent == "" &&
		f.Action == "" &&
		f.TaskID == "" &&
		f.Since.IsZero() &&
		f.Until.IsZero() &&
		f.Contains == ""
}

func matchesFilter(entry ReasoningLog, filter LogFilter) bool {
	if filter.Agent != "" && entry.Agent != filter.Agent {
		return false
	}
	if filter.Action != "" && entry.Action != filter.Action {
		return false
	}
	if filter.TaskID != "" {
		if entry.TaskID == nil || *entry.TaskID != filter.TaskID {
			return false
		}
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && entry.Timestamp.After(filter.Until) {
		return false
	}
	if filter.Contains != "" && !strings.Contains(entry.Summary, filter.Contains) {
		return false
	}
	return true
}

// ExportLogs writes entries to a file in the specified format.
// Supported formats: "json", "text", "csv".
func ExportLogs(entries []ReasoningLog, outputPath, format string) error {
	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer func() { _ = file.Close() }()

	switch strings.ToLower(format) {
	case "json":
		return exportJSON(file, entries)
	case "text":
		return exportText(file, entries)
	case "csv":
		return exportCSV(file, entries)
	default:
		return fmt.Errorf("unsupported export format: %s (supported: json, text, csv)", format)
	}
}

func exportJSON(file *os.File, entries []ReasoningLog) error {
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

func exportText(file *os.File, entries []ReasoningLog) error {
	for _, entry := range entries {
		// Format: [TIMESTAMP] AGENT action - SUMMARY (task=ID) {details}
		var parts []string

		ts := entry.Timestamp.Format("2006-01-02 15:04:05")
		parts = append(parts, fmt.Sprintf("[%s]", ts))
		parts = append(parts, string(entry.Agent), entry.Action, "-", entry.Summary)

		if entry.TaskID != nil {
			parts = append(parts, fmt.Sprintf("(task=%s)", *entry.TaskID))
		}
		if len(entry.Details) > 0 {
			detailsJSON, _ := json.Marshal(entry.Details)
			parts = append(parts, string(detailsJSON))
		}

		line := strings.Join(parts, " ") + "\n"
		if _, err := file.WriteString(line); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

func exportCSV(file *os.File, entries []ReasoningLog) error {
	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{"timestamp", "agent", "action", "summary", "task_id", "details"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		taskID := ""
		if entry.TaskID != nil {
			taskID = *entry.TaskID
		}
		detailsJSON := ""
		if len(entry.Details) > 0 {
			if b, err := json.Marshal(entry.Details); err == nil {
				detailsJSON = string(b)
			}
		}

		record := []string{
			entry.Timestamp.Format(time.RFC3339Nano),
			string(entry.Agent),
			entry.Action,
			entry.Summary,
			taskID,
			detailsJSON,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return nil
}
