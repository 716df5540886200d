// Package gitops runs git subcommands for the orchestrator: capturing the
// working-tree diff as review evidence and committing approved work.
//
// Operations shell out to the git CLI under per-command timeouts. Diff is
// deliberately tolerant: the review phase must proceed even when no diff
// can be captured, so it reports "" instead of an error.
package gitops

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/logging"
)

// Per-command timeouts. Diff and commit are local; push crosses the
// network and gets longer.
const (
	DiffTimeout   = 30 * time.Second
	CommitTimeout = 30 * time.Second
	PushTimeout   = 60 * time.Second
)

// -----------------------------------------------------------------------------
// Command Executor
// -----------------------------------------------------------------------------

// Executor abstracts command execution for testability.
// This allows tests to fake git commands without executing them.
type Executor interface {
	// Run executes a command in dir and returns combined output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// CLIExecutor executes commands using os/exec.
type CLIExecutor struct{}

// NewCLIExecutor creates a new CLI command executor.
func NewCLIExecutor() *CLIExecutor {
	return &CLIExecutor{}
}

// Run executes a command and returns combined output.
func (e *CLIExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	return cmd.CombinedOutput()
}

// -----------------------------------------------------------------------------
// Git
// -----------------------------------------------------------------------------

// Git performs git operations in a single repository directory.
type Git struct {
	dir      string
	executor Executor
	logger   *logging.Logger
}

// New creates a Git bound to the repository at dir.
func New(dir string, logger *logging.Logger) *Git {
	return NewWithExecutor(dir, NewCLIExecutor(), logger)
}

// NewWithExecutor creates a Git with a custom executor.
// This is primarily useful for testing.
func NewWithExecutor(dir string, executor Executor, logger *logging.Logger) *Git {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &Git{
		dir:      dir,
		executor: executor,
		logger:   logger,
	}
}

// Dir returns the repository directory.
func (g *Git) Dir() string {
	return g.dir
}

// Diff returns the working-tree diff against HEAD (staged + unstaged).
// Any failure, timeout, or missing git binary yields "" so the caller can
// fall back to other review evidence.
func (g *Git) Diff(ctx context.Context) string {
	output, err := g.run(ctx, DiffTimeout, "diff", "HEAD")
	if err != nil {
		g.logger.Debug("git diff failed", "error", err)
		return ""
	}
	return string(output)
}

// CommitAll stages and commits all changes with the given message.
// Returns nil if there is nothing to commit.
func (g *Git) CommitAll(ctx context.Context, message string) error {
	output, err := g.run(ctx, CommitTimeout, "add", "-A")
	if err != nil {
		return errors.NewGitError("failed to stage changes", err).
			WithRepository(g.dir).
			WithGitOutput(string(output))
	}

	output, err = g.run(ctx, CommitTimeout, "commit", "-m", message)
	if err != nil {
		// A clean tree is not a failure
		if strings.Contains(string(output), "nothing to commit") {
			g.logger.Debug("nothing to commit", "dir", g.dir)
			return nil
		}
		return errors.NewGitError("failed to commit changes", err).
			WithRepository(g.dir).
			WithGitOutput(string(output))
	}

	g.logger.Debug("committed changes", "dir", g.dir)
	return nil
}

// Push pushes the current branch to its upstream.
func (g *Git) Push(ctx context.Context) error {
	output, err := g.run(ctx, PushTimeout, "push")
	if err != nil {
		return errors.NewGitError("failed to push", err).
			WithRepository(g.dir).
			WithGitOutput(string(output))
	}

	g.logger.Debug("pushed changes", "dir", g.dir)
	return nil
}

// run executes a git subcommand under a per-command timeout.
func (g *Git) run(ctx context.Context, timeout time.Duration, args ...string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return g.executor.Run(ctx, g.dir, "git", args...)
}
