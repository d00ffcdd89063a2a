// Package opener opens a directory in the platform's file browser.
package opener

import (
	"context"
	"runtime"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// DefaultTimeout bounds the launcher command, not the file browser it starts.
const DefaultTimeout = 10 * time.Second

// Command returns the argv that opens dir on goos. A non-empty override is
// used as the argv prefix instead of the platform default.
func Command(goos string, override []string, dir string) []string {
	var prefix []string
	switch {
	case len(override) > 0:
		prefix = override
	case goos == "windows":
		prefix = []string{"explorer"}
	case goos == "darwin":
		prefix = []string{"open"}
	default:
		prefix = []string{"xdg-open"}
	}
	argv := make([]string, 0, len(prefix)+1)
	argv = append(argv, prefix...)
	return append(argv, dir)
}

// Opener launches the file browser through a CommandRunner.
type Opener struct {
	runner   ports.CommandRunner
	override []string
	goos     string
	timeout  time.Duration
}

// Option is a functional option for configuring Opener.
type Option func(*Opener)

// WithCommand sets the argv prefix used instead of the platform default.
func WithCommand(command []string) Option {
	return func(o *Opener) {
		o.override = append([]string(nil), command...)
	}
}

// WithGOOS overrides runtime.GOOS.
func WithGOOS(goos string) Option {
	return func(o *Opener) {
		o.goos = goos
	}
}

// New creates an Opener.
func New(runner ports.CommandRunner, opts ...Option) *Opener {
	o := &Opener{
		runner:  runner,
		goos:    runtime.GOOS,
		timeout: DefaultTimeout,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Program returns the executable the opener runs.
func (o *Opener) Program() string {
	return Command(o.goos, o.override, "")[0]
}

// Open opens dir.
func (o *Opener) Open(ctx context.Context, dir string) error {
	res := o.runner.Run(ctx, Command(o.goos, o.override, dir), ports.RunOptions{Timeout: o.timeout})
	if res.OK() {
		return nil
	}
	// explorer exits 1 even when the window opened
	if o.goos == "windows" && len(o.override) == 0 && res.Kind == ports.Completed {
		return nil
	}
	return goerr.New("failed to open directory",
		goerr.V("dir", dir), goerr.V("kind", string(res.Kind)), goerr.V("detail", res.Diagnostic()))
}
