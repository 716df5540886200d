// Package agent invokes the external CLI agents (claude, gemini, ...) that
// fill the pipeline roles and captures their transcripts.
//
// Output handling is streaming: stdout and stderr are merged into a single
// stream, echoed line by line as the agent produces it, and accumulated into
// the transcript the caller receives. Each invocation runs under a fixed
// per-role timeout; on expiry the whole process group is killed.
package agent

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/creack/pty"

	"github.com/Iron-Ham/triad/internal/errors"
	"github.com/Iron-Ham/triad/internal/logging"
	"github.com/Iron-Ham/triad/internal/util"
	"github.com/Iron-Ham/triad/internal/workflow"
)

// Fixed per-role invocation budgets. Implementation gets the longest window
// because the implementer edits files and runs tests.
const (
	PlanTimeout      = 5 * time.Minute
	ImplementTimeout = 15 * time.Minute
	ReviewTimeout    = 5 * time.Minute
)

// readerGrace bounds how long an exited agent's output reader may keep
// draining. A grandchild process holding the pipe open must not hang the
// pipeline.
const readerGrace = 2 * time.Second

// errorOutputLimit caps how much agent output is embedded in error messages.
const errorOutputLimit = 200

// nestedSessionKey is stripped from the implementer environment so a
// claude-backed implementer does not detect the orchestrating session and
// refuse to run.
const nestedSessionKey = "CLAUDECODE"

// TimeoutFor returns the fixed invocation budget for a role.
func TimeoutFor(role workflow.AgentRole) time.Duration {
	switch role {
	case workflow.RoleImplementer:
		return ImplementTimeout
	case workflow.RoleAuditor:
		return ReviewTimeout
	default:
		return PlanTimeout
	}
}

// Spec describes one external agent CLI at runtime.
type Spec struct {
	// Name is the short agent id used in errors and logs.
	Name string
	// Command is the executable to run.
	Command string
	// DefaultArgs are passed before the prompt on every invocation.
	DefaultArgs []string
	// Env contains environment overrides applied on top of the parent
	// environment.
	Env map[string]string
}

// InvokeOptions tune a single invocation.
type InvokeOptions struct {
	// Timeout bounds the invocation. Zero means no timeout beyond the
	// caller's context.
	Timeout time.Duration
	// ExtraArgs are appended after the spec's default args.
	ExtraArgs []string
	// RemoveEnv lists environment keys to strip from the child.
	RemoveEnv []string
}

// Runner is the invocation seam the orchestrator depends on. Tests
// substitute scripted runners so pipelines can be driven without real
// agent binaries.
type Runner interface {
	Invoke(ctx context.Context, role workflow.AgentRole, spec Spec, prompt string, opts InvokeOptions) (string, error)
}

// -----------------------------------------------------------------------------
// Invoker
// -----------------------------------------------------------------------------

// Invoker runs agent CLIs as subprocesses.
type Invoker struct {
	dir         string
	out         io.Writer
	logger      *logging.Logger
	interactive bool
}

var _ Runner = (*Invoker)(nil)

// Option configures an Invoker.
type Option func(*Invoker)

// WithDir sets the working directory for agent processes.
func WithDir(dir string) Option {
	return func(inv *Invoker) { inv.dir = dir }
}

// WithOutput sets the writer that receives the live agent output.
func WithOutput(w io.Writer) Option {
	return func(inv *Invoker) { inv.out = w }
}

// WithInteractive runs agents under a pty when the output writer is a
// terminal, so agents that degrade without a tty render properly.
func WithInteractive(enabled bool) Option {
	return func(inv *Invoker) { inv.interactive = enabled }
}

// WithLogger sets the debug logger.
func WithLogger(logger *logging.Logger) Option {
	return func(inv *Invoker) { inv.logger = logger }
}

// NewInvoker creates an Invoker. By default output is discarded and the
// working directory is inherited.
func NewInvoker(opts ...Option) *Invoker {
	inv := &Invoker{
		out:    io.Discard,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(inv)
	}
	if inv.out == nil {
		inv.out = io.Discard
	}
	if inv.logger == nil {
		inv.logger = logging.NopLogger()
	}
	return inv
}

// Invoke runs one agent with the given prompt and returns its transcript.
//
// The argv is command + default args + extra args + prompt, with the prompt
// always last. The implementer role always has CLAUDECODE stripped from its
// environment. A timeout or context cancellation kills the process group.
func (inv *Invoker) Invoke(ctx context.Context, role workflow.AgentRole, spec Spec, prompt string, opts InvokeOptions) (string, error) {
	args := make([]string, 0, len(spec.DefaultArgs)+len(opts.ExtraArgs)+1)
	args = append(args, spec.DefaultArgs...)
	args = append(args, opts.ExtraArgs...)
	args = append(args, prompt)

	removeEnv := opts.RemoveEnv
	if role == workflow.RoleImplementer && !slices.Contains(removeEnv, nestedSessionKey) {
		removeEnv = append(slices.Clone(removeEnv), nestedSessionKey)
	}

	runCtx := ctx
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, spec.Command, args...)
	cmd.Dir = inv.dir
	cmd.Env = buildEnv(spec.Env, removeEnv)
	cmd.WaitDelay = readerGrace

	logger := inv.logger.WithAgent(spec.Name)
	logger.Debug("invoking agent",
		"role", string(role),
		"command", spec.Command,
		"args", len(args),
		"timeout", opts.Timeout.String(),
		"prompt_bytes", len(prompt))

	start := time.Now()
	transcript, err := inv.runStreaming(cmd, spec)
	elapsed := time.Since(start)

	if err == nil && runCtx.Err() == nil {
		logger.Debug("agent finished", "elapsed", elapsed.String(), "transcript_bytes", len(transcript))
		return transcript, nil
	}

	if runCtx.Err() == context.DeadlineExceeded {
		logger.Warn("agent timed out", "elapsed", elapsed.String())
		return transcript, errors.NewTimeoutError(fmt.Sprintf("agent %q invocation", spec.Name), opts.Timeout)
	}
	if ctx.Err() != nil {
		logger.Warn("agent invocation canceled", "elapsed", elapsed.String())
		return transcript, errors.Wrap(errors.ErrCanceled, fmt.Sprintf("agent %q invocation", spec.Name))
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code := exitErr.ExitCode()
			logger.Warn("agent failed", "exit_code", code, "elapsed", elapsed.String())
			snippet := util.TruncateString(strings.TrimSpace(transcript), errorOutputLimit)
			return transcript, errors.NewAgentError(
				fmt.Sprintf("exited with code %d: %s", code, snippet), errors.ErrAgentFailed).
				WithAgent(spec.Name).
				WithExitCode(code).
				WithOutput(transcript)
		}
		return transcript, err
	}

	return transcript, nil
}

// runStreaming starts the agent process and captures its merged output.
func (inv *Invoker) runStreaming(cmd *exec.Cmd, spec Spec) (string, error) {
	if inv.interactive && isTerminal(inv.out) {
		return inv.runPty(cmd, spec)
	}
	return inv.runPiped(cmd, spec)
}

// runPiped merges stdout and stderr into one pipe and echoes line by line.
func (inv *Invoker) runPiped(cmd *exec.Cmd, spec Spec) (string, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", errors.Wrap(err, "creating output pipe")
	}
	cmd.Stdout = pw
	cmd.Stderr = pw

	// Kill the whole group on timeout so agent-spawned helpers die too.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		killErr := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		if killErr == syscall.ESRCH {
			return os.ErrProcessDone
		}
		return killErr
	}

	if err := cmd.Start(); err != nil {
		_ = pw.Close()
		_ = pr.Close()
		return "", launchError(spec, err)
	}
	// The child holds its own copy of the write end.
	_ = pw.Close()

	buf := &transcriptBuffer{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		scanner := bufio.NewScanner(pr)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			buf.WriteLine(line)
			fmt.Fprintln(inv.out, line)
		}
	}()

	waitErr := cmd.Wait()
	inv.joinReader(done)
	_ = pr.Close()

	return buf.String(), waitErr
}

// runPty runs the agent under a pseudo-terminal and copies the master side.
func (inv *Invoker) runPty(cmd *exec.Cmd, spec Spec) (string, error) {
	ptmx, err := pty.Start(cmd)
	if err != nil {
		return "", launchError(spec, err)
	}

	buf := &transcriptBuffer{}
	done := make(chan struct{})
	go func() {
		defer close(done)
		// Reading the master returns an error once the child hangs up;
		// that is the EOF signal on Linux ptys.
		_, _ = io.Copy(io.MultiWriter(inv.out, buf), ptmx)
	}()

	waitErr := cmd.Wait()
	inv.joinReader(done)
	_ = ptmx.Close()

	return buf.String(), waitErr
}

// joinReader waits for the output reader, bounded by readerGrace.
func (inv *Invoker) joinReader(done <-chan struct{}) {
	select {
	case <-done:
	case <-time.After(readerGrace):
		inv.logger.Warn("agent output reader did not drain before grace period")
	}
}

// launchError maps a process start failure to an AgentError.
func launchError(spec Spec, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return errors.NewAgentError(
			fmt.Sprintf("Command not found: %s", spec.Command), errors.ErrCommandNotFound).
			WithAgent(spec.Name).
			WithExitCode(-1)
	}
	return errors.NewAgentError("failed to start agent process", err).
		WithAgent(spec.Name).
		WithExitCode(-1)
}

// buildEnv returns the parent environment with overrides applied and the
// given keys removed. Later duplicate entries win, per os/exec.
func buildEnv(overrides map[string]string, removeKeys []string) []string {
	env := os.Environ()
	for key, value := range overrides {
		env = append(env, key+"="+value)
	}

	if len(removeKeys) == 0 {
		return env
	}

	removed := make(map[string]bool, len(removeKeys))
	for _, key := range removeKeys {
		removed[key] = true
	}

	filtered := env[:0]
	for _, kv := range env {
		key, _, _ := strings.Cut(kv, "=")
		if removed[key] {
			continue
		}
		filtered = append(filtered, kv)
	}
	return filtered
}

// isTerminal reports whether w is a character device.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// transcriptBuffer accumulates agent output. The reader goroutine may
// outlive its grace period, so access is locked.
type transcriptBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *transcriptBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *transcriptBuffer) WriteLine(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.buf.WriteString(line)
	b.buf.WriteByte('\n')
}

func (b *transcriptBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
