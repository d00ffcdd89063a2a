package ports

import (
	"context"
	"time"
)

// CompletionKind classifies how an external command ended.
type CompletionKind string

const (
	// Completed means the process exited on its own within the timeout.
	// A non-zero exit code is still Completed.
	Completed CompletionKind = "completed"
	// TimedOut means the timeout elapsed and the process tree was killed.
	TimedOut CompletionKind = "timed out"
	// ToolNotFound means the executable could not be located; nothing was spawned.
	ToolNotFound CompletionKind = "tool not found"
	// Failed means the process could not be started or waited on, or the
	// caller's context was cancelled.
	Failed CompletionKind = "failed"
)

// CommandResult is the outcome of running one external command.
type CommandResult struct {
	Argv     []string
	ExitCode int
	Stdout   string
	Stderr   string
	Kind     CompletionKind
	Err      error
	Duration time.Duration
}

// OK reports whether the command completed with exit code 0.
func (r CommandResult) OK() bool {
	return r.Kind == Completed && r.ExitCode == 0
}

// Diagnostic returns the most useful text describing a failed command:
// captured stderr when present, then stdout, then the error.
func (r CommandResult) Diagnostic() string {
	switch {
	case r.Kind == ToolNotFound:
		if len(r.Argv) > 0 {
			return "tool not found: " + r.Argv[0]
		}
		return "tool not found"
	case r.Kind == TimedOut:
		return "timed out after " + r.Duration.Round(time.Second).String()
	case r.Stderr != "":
		return r.Stderr
	case r.Stdout != "" && r.Kind == Completed:
		return r.Stdout
	case r.Err != nil:
		return r.Err.Error()
	}
	return ""
}

// RunOptions configures a single command invocation.
type RunOptions struct {
	// Dir is the working directory. Empty means the current directory.
	Dir string
	// Timeout bounds the run. It must be positive.
	Timeout time.Duration
	// Env holds extra KEY=VALUE entries appended to the inherited environment.
	Env []string
}

// CommandRunner runs external commands with a bounded timeout.
// Production code uses the execrunner adapter; tests use MockRunner.
type CommandRunner interface {
	// Run executes argv and blocks until it exits, times out, or ctx is done.
	// Failures of the external command are reported in the result, never as a panic.
	// An empty argv or a non-positive timeout is a programmer error and panics.
	Run(ctx context.Context, argv []string, opts RunOptions) CommandResult
}
