// Package logging provides structured logging for Triad runs.
// This file reads the debug log back: parsing, filtering, and exporting
// entries for post-hoc analysis of a pipeline run.
package logging

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// LogEntry is one parsed debug log line with its structured fields.
type LogEntry struct {
	Timestamp time.Time      `json:"time"`
	Level     string         `json:"level"`
	Message   string         `json:"msg"`
	Agent     string         `json:"agent,omitempty"`
	Phase     string         `json:"phase,omitempty"`
	TaskID    string         `json:"task_id,omitempty"`
	Attrs     map[string]any `json:"attrs,omitempty"`
}

// LogFilter selects debug log entries. Criteria combine with AND; zero
// values do not filter.
type LogFilter struct {
	// MinLevel keeps entries at or above this level
	// (DEBUG < INFO < WARN < ERROR).
	MinLevel string

	// Since keeps entries at or after this time.
	Since time.Time

	// Until keeps entries at or before this time.
	Until time.Time

	// Agent keeps entries carrying this agent role.
	Agent string

	// Phase keeps entries carrying this pipeline phase.
	Phase string

	// TaskID keeps entries carrying this task id.
	TaskID string

	// MessageContains keeps entries whose message contains this substring.
	MessageContains string
}

var levelOrder = map[string]int{
	LevelDebug: 0,
	LevelInfo:  1,
	LevelWarn:  2,
	LevelError: 3,
}

// AggregateLogs parses every entry of the debug log under stateDir,
// sorted by timestamp. Rotated backups are not read. Unparseable lines
// are skipped so a partially corrupted log still yields its good entries.
func AggregateLogs(stateDir string) ([]LogEntry, error) {
	logPath := filepath.Join(stateDir, "debug.log")

	file, err := os.Open(logPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("no debug log found in %s: %w", stateDir, err)
		}
		return nil, fmt.Errorf("failed to open debug log: %w", err)
	}
	defer func() { _ = file.Close() }()

	var entries []LogEntry
	scanner := bufio.NewScanner(file)

	// Transcript snippets can make for long lines.
	const maxScanTokenSize = 1024 * 1024
	scanner.Buffer(make([]byte, maxScanTokenSize), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		entry, err := parseLogEntry(line)
		if err != nil {
			continue
		}
		entries = append(entries, entry)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading debug log: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
	return entries, nil
}

// parseLogEntry parses a single JSON log line. The slog standard fields and
// the context attributes the Logger With* helpers attach become struct
// fields; everything else lands in Attrs.
func parseLogEntry(line string) (LogEntry, error) {
	var raw map[string]any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return LogEntry{}, fmt.Errorf("invalid JSON: %w", err)
	}

	entry := LogEntry{Attrs: make(map[string]any)}
	if timeStr, ok := raw["time"].(string); ok {
		if t, err := time.Parse(time.RFC3339Nano, timeStr); err == nil {
			entry.Timestamp = t
		}
	}
	if level, ok := raw["level"].(string); ok {
		entry.Level = level
	}
	if msg, ok := raw["msg"].(string); ok {
		entry.Message = msg
	}
	if agent, ok := raw["agent"].(string); ok {
		entry.Agent = agent
	}
	if phase, ok := raw["phase"].(string); ok {
		entry.Phase = phase
	}
	if taskID, ok := raw["task_id"].(string); ok {
		entry.TaskID = taskID
	}

	standardFields := map[string]bool{
		"time":    true,
		"level":   true,
		"msg":     true,
		"agent":   true,
		"phase":   true,
		"task_id": true,
	}
	for k, v := range raw {
		if !standardFields[k] {
			entry.Attrs[k] = v
		}
	}
	return entry, nil
}

// FilterLogs returns the entries matching every set criterion.
func FilterLogs(entries []LogEntry, filter LogFilter) []LogEntry {
	if filter == (LogFilter{}) {
		return entries
	}
	var filtered []LogEntry
	for _, entry := range entries {
		if matchesFilter(entry, filter) {
			filtered = append(filtered, entry)
		}
	}
	return filtered
}

func matchesFilter(entry LogEntry, filter LogFilter) bool {
	if filter.MinLevel != "" {
		minOrder, minOk := levelOrder[strings.ToUpper(filter.MinLevel)]
		entryOrder, entryOk := levelOrder[entry.Level]
		if minOk && entryOk && entryOrder < minOrder {
			return false
		}
	}
	if !filter.Since.IsZero() && entry.Timestamp.Before(filter.Since) {
		return false
	}
	if !filter.Until.IsZero() && entry.Timestamp.After(filter.Until) {
		return false
	}
	if filter.Agent != "" && entry.Agent != filter.Agent {
		return false
	}
	if filter.Phase != "" && entry.Phase != filter.Phase {
		return false
	}
	if filter.TaskID != "" && entry.TaskID != filter.TaskID {
		return false
	}
	if filter.MessageContains != "" && !strings.Contains(entry.Message, filter.MessageContains) {
		return false
	}
	return true
}

// ExportLogEntries writes entries to a file. Supported formats: "json",
// "text", "csv".
func ExportLogEntries(entries []LogEntry, outputPath string, format string) error {
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

func exportJSON(file *os.File, entries []LogEntry) error {
	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	return encoder.Encode(entries)
}

// exportText writes one entry per line:
// [TIMESTAMP] LEVEL - MESSAGE (context) {attrs}
func exportText(file *os.File, entries []LogEntry) error {
	for _, entry := range entries {
		if _, err := file.WriteString(FormatEntry(entry) + "\n"); err != nil {
			return fmt.Errorf("failed to write text entry: %w", err)
		}
	}
	return nil
}

// FormatEntry renders an entry the way exportText writes it. The logs
// command uses the same rendering for terminal output.
func FormatEntry(entry LogEntry) string {
	parts := []string{
		fmt.Sprintf("[%s]", entry.Timestamp.Format("2006-01-02 15:04:05.000")),
		entry.Level,
		"-",
		entry.Message,
	}

	var context []string
	if entry.Agent != "" {
		context = append(context, fmt.Sprintf("agent=%s", entry.Agent))
	}
	if entry.Phase != "" {
		context = append(context, fmt.Sprintf("phase=%s", entry.Phase))
	}
	if entry.TaskID != "" {
		context = append(context, fmt.Sprintf("task=%s", entry.TaskID))
	}
	if len(context) > 0 {
		parts = append(parts, fmt.Sprintf("(%s)", strings.Join(context, ", ")))
	}

	if len(entry.Attrs) > 0 {
		if attrsJSON, err := json.Marshal(entry.Attrs); err == nil {
			parts = append(parts, string(attrsJSON))
		}
	}
	return strings.Join(parts, " ")
}

func exportCSV(file *os.File, entries []LogEntry) error {
	writer := csv.NewWriter(file)
	defer writer.Flush()

	headers := []string{"timestamp", "level", "message", "agent", "phase", "task_id", "attrs"}
	if err := writer.Write(headers); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, entry := range entries {
		attrsJSON := ""
		if len(entry.Attrs) > 0 {
			if b, err := json.Marshal(entry.Attrs); err == nil {
				attrsJSON = string(b)
			}
		}
		record := []string{
			entry.Timestamp.Format(time.RFC3339Nano),
			entry.Level,
			entry.Message,
			entry.Agent,
			entry.Phase,
			entry.TaskID,
			attrsJSON,
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}
	return nil
}
