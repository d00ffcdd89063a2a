// Package execrunner provides a command runner adapter using exec.CommandContext.
package execrunner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// DefaultWaitDelay bounds how long Wait keeps reading output pipes after the
// process is gone. Grandchildren that inherited the pipes cannot hold Run open
// past this.
const DefaultWaitDelay = 2 * time.Second

// ExecRunner implements ports.CommandRunner using exec.CommandContext.
type ExecRunner struct {
	logger    *slog.Logger
	lookPath  func(file string) (string, error)
	waitDelay time.Duration
}

// Option is a functional option for configuring ExecRunner.
type Option func(*ExecRunner)

// WithLogger sets the logger used for per-command debug lines.
// Defaults to slog.Default() at call time.
func WithLogger(logger *slog.Logger) Option {
	return func(r *ExecRunner) {
		r.logger = logger
	}
}

// WithWaitDelay overrides DefaultWaitDelay.
func WithWaitDelay(d time.Duration) Option {
	return func(r *ExecRunner) {
		r.waitDelay = d
	}
}

// New creates a new ExecRunner adapter.
func New(opts ...Option) *ExecRunner {
	r := &ExecRunner{
		lookPath:  exec.LookPath,
		waitDelay: DefaultWaitDelay,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes argv with a bounded timeout and classifies the outcome.
func (r *ExecRunner) Run(ctx context.Context, argv []string, opts ports.RunOptions) ports.CommandResult {
	if len(argv) == 0 {
		panic("execrunner: empty command")
	}
	if opts.Timeout <= 0 {
		panic(fmt.Sprintf("execrunner: timeout must be positive, got %s", opts.Timeout))
	}

	result := ports.CommandResult{Argv: append([]string(nil), argv...)}

	path, err := r.lookPath(argv[0])
	if err != nil {
		result.Kind = ports.ToolNotFound
		result.ExitCode = -1
		result.Err = err
		r.log(result, opts)
		return result
	}

	runCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, path, argv[1:]...)
	cmd.Dir = opts.Dir
	if len(opts.Env) > 0 {
		cmd.Env = append(os.Environ(), opts.Env...)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	// Kill the whole tree on timeout: npx/npm spawn node as a child.
	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessTree(cmd) }
	cmd.WaitDelay = r.waitDelay

	start := time.Now()
	err = cmd.Run()
	result.Duration = time.Since(start)
	result.Stdout = stdout.String()
	result.Stderr = stderr.String()

	switch {
	case ctx.Err() != nil:
		result.Kind = ports.Failed
		result.ExitCode = -1
		result.Err = fmt.Errorf("command cancelled: %w", ctx.Err())
	case err != nil && errors.Is(runCtx.Err(), context.DeadlineExceeded):
		// Output of a killed process is not trusted.
		result.Kind = ports.TimedOut
		result.ExitCode = -1
		result.Stdout, result.Stderr = "", ""
		result.Err = fmt.Errorf("command exceeded %s timeout", opts.Timeout)
	case err == nil:
		result.Kind = ports.Completed
		result.ExitCode = 0
	default:
		r.classify(&result, cmd, err)
	}

	r.log(result, opts)
	return result
}

// classify fills result for a Run error that was neither a timeout nor a cancellation.
func (r *ExecRunner) classify(result *ports.CommandResult, cmd *exec.Cmd, err error) {
	var exitErr *exec.ExitError
	switch {
	case errors.As(err, &exitErr):
		result.Kind = ports.Completed
		result.ExitCode = exitErr.ExitCode()
	case errors.Is(err, exec.ErrWaitDelay) && cmd.ProcessState != nil:
		result.Kind = ports.Completed
		result.ExitCode = cmd.ProcessState.ExitCode()
	case errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist):
		result.Kind = ports.ToolNotFound
		result.ExitCode = -1
		result.Err = err
	default:
		result.Kind = ports.Failed
		result.ExitCode = -1
		result.Err = err
	}
}

func (r *ExecRunner) log(result ports.CommandResult, opts ports.RunOptions) {
	logger := r.logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Debug("external command finished",
		slog.Any("argv", result.Argv),
		slog.String("dir", opts.Dir),
		slog.String("kind", string(result.Kind)),
		slog.Int("exit_code", result.ExitCode),
		slog.Duration("duration", result.Duration),
	)
}

// Compile-time check that ExecRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*ExecRunner)(nil)
