package project

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/logging"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// DefaultContextPath is where the context document lives unless the
// configuration says otherwise.
const DefaultContextPath = "docs/CONTEXT.json"

// logRotateThreshold and logRotateBatch bound the reasoning log: once the
// live document holds more than logRotateThreshold entries, the oldest
// logRotateBatch are moved to an archive file in the same update.
const (
	logRotateThreshold = 50
	logRotateBatch     = 25
)

// Store persists the context document. All mutators follow load, mutate,
// stamp, save: the whole document is rewritten atomically on every change
// and attribution fields always reflect the last writer.
//
// A process-local mutex serializes mutators within one process. There is
// no cross-process locking: two concurrent CLI invocations race and the
// last atomic rename wins. The design assumes one active orchestrator per
// project directory.
type Store struct {
	path   string
	logger *logging.Logger
	mu     sync.Mutex
}

// NewStore creates a store for the document at path. An empty path means
// DefaultContextPath. A nil logger is replaced with a no-op logger.
func NewStore(path string, logger *logging.Logger) *Store {
	if path == "" {
		path = DefaultContextPath
	}
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Store{path: path, logger: logger}
}

// Path returns the document location.
func (s *Store) Path() string {
	return s.path
}

// Exists reports whether the document is present on disk.
func (s *Store) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}

// -----------------------------------------------------------------------------
// Initialization
// -----------------------------------------------------------------------------

// Init creates a fresh document with defaults. It is idempotent: when the
// document already exists it is left untouched and Init reports
// created=false. An empty projectName falls back to the working
// directory's base name.
func (s *Store) Init(projectName string) (created bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.Exists() {
		s.logger.Debug("context already initialized", "path", s.path)
		return false, nil
	}

	if projectName == "" {
		wd, err := os.Getwd()
		if err != nil {
			return false, errors.NewContextError("resolving project name", err).WithPath(s.path)
		}
		projectName = filepath.Base(wd)
	}

	ctx := NewProjectContext(projectName)
	if err := s.save(ctx); err != nil {
		return false, err
	}
	s.logger.Info("context initialized", "path", s.path, "project", projectName)
	return true, nil
}

// -----------------------------------------------------------------------------
// Read
// -----------------------------------------------------------------------------

// Load reads and validates the document. A missing file yields an error
// matching errors.ErrContextNotFound; unparseable or schema-invalid
// content yields errors.ErrContextCorrupted. No partial or lenient
// parsing is attempted.
func (s *Store) Load() (*ProjectContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

func (s *Store) load() (*ProjectContext, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewContextError("context document not found", errors.ErrContextNotFound).
				WithPath(s.path)
		}
		return nil, errors.NewContextError("reading context document", errors.Join(errors.ErrContextCorrupted, err)).
			WithPath(s.path)
	}

	var ctx ProjectContext
	if err := json.Unmarshal(data, &ctx); err != nil {
		return nil, errors.NewContextError("parsing context document", errors.Join(errors.ErrContextCorrupted, err)).
			WithPath(s.path)
	}

	ctx.Normalize()
	if err := ctx.Validate(); err != nil {
		return nil, errors.NewContextError("schema validation failed", errors.Join(errors.ErrContextCorrupted, err)).
			WithPath(s.path)
	}
	return &ctx, nil
}

// -----------------------------------------------------------------------------
// Write (atomic)
// -----------------------------------------------------------------------------

// Save atomically replaces the document on disk. The previous document is
// never observable in a partially written state: the new bytes go to a
// temp file in the target directory, are synced, and are renamed over the
// destination. Parent directories are created on demand.
func (s *Store) Save(ctx *ProjectContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(ctx)
}

func (s *Store) save(ctx *ProjectContext) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.NewContextError("creating context directory", err).WithPath(s.path)
	}

	data, err := json.MarshalIndent(ctx, "", "  ")
	if err != nil {
		return errors.NewContextError("encoding context document", err).WithPath(s.path)
	}
	data = append(data, '\n')

	if err := atomicWriteFile(s.path, data, 0644); err != nil {
		return errors.NewContextError("writing context document", err).WithPath(s.path)
	}
	s.logger.Debug("context saved", "path", s.path, "phase", string(ctx.GlobalPhase))
	return nil
}

// atomicWriteFile writes data via a temp file in the destination
// directory followed by a rename, so a crash leaves either the old or the
// new content, never a mix. The temp file is removed on any failure.
func atomicWriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)

	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return errors.Wrap(err, "syncing temp file")
	}
	if err := tmpFile.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	if err := os.Chmod(tmpPath, perm); err != nil {
		return errors.Wrap(err, "setting permissions")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return errors.Wrap(err, "renaming temp file")
	}

	success = true
	return nil
}

// -----------------------------------------------------------------------------
// Incremental updates
// -----------------------------------------------------------------------------

// UpdatePhase transitions the document to target after the workflow table
// approves the move for agent. On a rejected transition the document is
// left untouched.
func (s *Store) UpdatePhase(target workflow.Phase, agent workflow.AgentRole) (*ProjectContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.load()
	if err != nil {
		return nil, err
	}
	if err := workflow.ValidateTransition(ctx.GlobalPhase, target, agent); err != nil {
		return nil, err
	}

	ctx.GlobalPhase = target
	s.stamp(ctx, agent)
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("phase updated", "phase", string(target), "agent", string(agent))
	return ctx, nil
}

// AddTask validates the packet and appends it to the task queue.
func (s *Store) AddTask(task TaskPacket, agent workflow.AgentRole) (*ProjectContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task.Normalize()
	if err := task.Validate(); err != nil {
		return nil, err
	}

	ctx, err := s.load()
	if err != nil {
		return nil, err
	}

	ctx.TaskQueue = append(ctx.TaskQueue, task)
	s.stamp(ctx, agent)
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("task queued", "task_id", task.TaskID, "title", task.Title)
	return ctx, nil
}

// CompleteTask removes the task from the queue, records its id in
// completed_tasks, and clears current_task. Completion is idempotent: an
// id that is not queued is still recorded as completed, and an id already
// recorded is not duplicated.
func (s *Store) CompleteTask(taskID string, agent workflow.AgentRole) (*ProjectContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.load()
	if err != nil {
		return nil, err
	}

	queue := ctx.TaskQueue[:0]
	for _, t := range ctx.TaskQueue {
		if t.TaskID != taskID {
			queue = append(queue, t)
		}
	}
	ctx.TaskQueue = queue

	done := false
	for _, id := range ctx.CompletedTasks {
		if id == taskID {
			done = true
			break
		}
	}
	if !done {
		ctx.CompletedTasks = append(ctx.CompletedTasks, taskID)
	}

	ctx.CurrentTask = nil
	s.stamp(ctx, agent)
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	s.logger.Info("task completed", "task_id", taskID)
	return ctx, nil
}

// SetCurrentTask promotes a queued task to current_task. The id must be
// present in the queue.
func (s *Store) SetCurrentTask(taskID string, agent workflow.AgentRole) (*ProjectContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.load()
	if err != nil {
		return nil, err
	}
	if _, ok := ctx.QueuedTask(taskID); !ok {
		return nil, errors.Wrapf(errors.ErrTaskNotFound, "%q is not in the task queue", taskID)
	}

	ctx.CurrentTask = &taskID
	s.stamp(ctx, agent)
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// AddReasoningLog appends a timestamped entry to the reasoning trail,
// rotating the oldest entries to an archive file when the trail exceeds
// its bound. An archive write failure aborts the whole mutation so logs
// are never dropped silently.
func (s *Store) AddReasoningLog(agent workflow.AgentRole, action, summary string, taskID *string, details map[string]any) (*ProjectContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ctx, err := s.load()
	if err != nil {
		return nil, err
	}

	if details == nil {
		details = map[string]any{}
	}
	ctx.ReasoningLogs = append(ctx.ReasoningLogs, ReasoningLog{
		Timestamp: time.Now().UTC(),
		Agent:     agent,
		TaskID:    taskID,
		Action:    action,
		Summary:   summary,
		Details:   details,
	})

	if len(ctx.ReasoningLogs) > logRotateThreshold {
		if err := s.archiveLogs(ctx.ReasoningLogs[:logRotateBatch]); err != nil {
			return nil, err
		}
		ctx.ReasoningLogs = ctx.ReasoningLogs[logRotateBatch:]
		s.logger.Info("reasoning logs rotated", "archived", logRotateBatch, "retained", len(ctx.ReasoningLogs))
	}

	s.stamp(ctx, agent)
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return ctx, nil
}

// archiveLogs writes the given entries to a new timestamped file under a
// logs/ directory beside the document. One file per rotation event;
// existing archives are never rewritten.
func (s *Store) archiveLogs(logs []ReasoningLog) error {
	archiveDir := filepath.Join(filepath.Dir(s.path), "logs")
	if err := os.MkdirAll(archiveDir, 0755); err != nil {
		return errors.NewContextError("creating log archive directory", err).WithPath(archiveDir)
	}

	name := "reasoning_" + time.Now().Format("20060102_150405") + ".json"
	archivePath := filepath.Join(archiveDir, name)

	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return errors.NewContextError("encoding log archive", err).WithPath(archivePath)
	}
	data = append(data, '\n')

	if err := os.WriteFile(archivePath, data, 0644); err != nil {
		return errors.NewContextError("writing log archive", err).WithPath(archivePath)
	}
	s.logger.Debug("log archive written", "path", archivePath, "entries", len(logs))
	return nil
}

func (s *Store) stamp(ctx *ProjectContext, agent workflow.AgentRole) {
	ctx.LastUpdatedBy = agent
	ctx.LastUpdatedAt = time.Now().UTC()
}
