// Package execasar provides an archiver adapter that shells out to the asar CLI.
package execasar

import (
	"context"
	"time"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// Default timeouts for unpack and pack invocations.
const (
	DefaultExtractTimeout = 2 * time.Minute
	DefaultPackTimeout    = 3 * time.Minute
)

// DefaultCommand runs the published asar package through npx so no global
// install is required.
var DefaultCommand = []string{"npx", "--yes", "@electron/asar"}

// AsarArchiver implements ports.Archiver by invoking `<command> extract|pack`.
type AsarArchiver struct {
	runner         ports.CommandRunner
	command        []string
	extractTimeout time.Duration
	packTimeout    time.Duration
}

// Option is a functional option for configuring AsarArchiver.
type Option func(*AsarArchiver)

// WithCommand sets the argv prefix used to invoke asar, e.g. ["asar"] or
// ["npm", "exec", "--yes", "--", "asar"]. An empty command is ignored.
func WithCommand(command []string) Option {
	return func(a *AsarArchiver) {
		if len(command) > 0 {
			a.command = append([]string(nil), command...)
		}
	}
}

// WithExtractTimeout sets the unpack timeout. Non-positive values are ignored.
func WithExtractTimeout(d time.Duration) Option {
	return func(a *AsarArchiver) {
		if d > 0 {
			a.extractTimeout = d
		}
	}
}

// WithPackTimeout sets the pack timeout. Non-positive values are ignored.
func WithPackTimeout(d time.Duration) Option {
	return func(a *AsarArchiver) {
		if d > 0 {
			a.packTimeout = d
		}
	}
}

// New creates a new AsarArchiver adapter running commands through runner.
func New(runner ports.CommandRunner, opts ...Option) *AsarArchiver {
	a := &AsarArchiver{
		runner:         runner,
		command:        append([]string(nil), DefaultCommand...),
		extractTimeout: DefaultExtractTimeout,
		packTimeout:    DefaultPackTimeout,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Extract unpacks archivePath into destDir.
func (a *AsarArchiver) Extract(ctx context.Context, archivePath, destDir string) ports.CommandResult {
	return a.runner.Run(ctx, a.argv("extract", archivePath, destDir), ports.RunOptions{Timeout: a.extractTimeout})
}

// Pack builds archivePath from sourceDir.
func (a *AsarArchiver) Pack(ctx context.Context, sourceDir, archivePath string) ports.CommandResult {
	return a.runner.Run(ctx, a.argv("pack", sourceDir, archivePath), ports.RunOptions{Timeout: a.packTimeout})
}

func (a *AsarArchiver) argv(args ...string) []string {
	argv := make([]string, 0, len(a.command)+len(args))
	argv = append(argv, a.command...)
	return append(argv, args...)
}

// Compile-time check that AsarArchiver implements ports.Archiver.
var _ ports.Archiver = (*AsarArchiver)(nil)
