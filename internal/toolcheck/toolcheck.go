// Package toolcheck diagnoses the external toolchain the archive workflow
// depends on. It never installs anything.
package toolcheck

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// DefaultTimeout bounds each version probe.
const DefaultTimeout = 5 * time.Second

type Status string

const (
	StatusOK   Status = "ok"
	StatusWarn Status = "warn"
	StatusFail Status = "fail"
)

// Check is the result of one probe.
type Check struct {
	Name    string
	Status  Status
	Version string
	Detail  string
}

// Checker runs the doctor probes.
type Checker struct {
	runner   ports.CommandRunner
	archiver []string
	opener   string
	timeout  time.Duration
	lookPath func(string) (string, error)
}

// Option is a functional option for configuring Checker.
type Option func(*Checker)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Checker) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLookPath replaces exec.LookPath for the opener presence check.
func WithLookPath(fn func(string) (string, error)) Option {
	return func(c *Checker) {
		c.lookPath = fn
	}
}

// New creates a Checker. archiver is the argv prefix of the asar command and
// opener the program used to open directories.
func New(runner ports.CommandRunner, archiver []string, opener string, opts ...Option) *Checker {
	c := &Checker{
		runner:   runner,
		archiver: append([]string(nil), archiver...),
		opener:   opener,
		timeout:  DefaultTimeout,
		lookPath: exec.LookPath,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes every probe in order.
func (c *Checker) Run(ctx context.Context) []Check {
	return []Check{
		c.probe(ctx, "node", []string{"node", "--version"},
			"install Node.js (LTS recommended) from https://nodejs.org/"),
		c.probe(ctx, "npm", []string{"npm", "--version"},
			"npm ships with Node.js; reinstall Node.js or fix PATH"),
		c.archiverCheck(ctx),
		c.openerCheck(),
	}
}

func (c *Checker) probe(ctx context.Context, name string, argv []string, hint string) Check {
	check := Check{Name: name}
	res := c.runner.Run(ctx, argv, ports.RunOptions{Timeout: c.timeout})
	switch {
	case res.OK():
		check.Status = StatusOK
		check.Version = firstLine(res.Stdout)
	case res.Kind == ports.ToolNotFound:
		check.Status = StatusFail
		check.Detail = argv[0] + " not found on PATH: " + hint
	case res.Kind == ports.TimedOut:
		check.Status = StatusFail
		check.Detail = strings.Join(argv, " ") + " did not answer within " + c.timeout.String()
	default:
		check.Status = StatusFail
		check.Detail = firstLine(res.Diagnostic())
	}
	return check
}

func (c *Checker) archiverCheck(ctx context.Context) Check {
	name := "archiver (" + strings.Join(c.archiver, " ") + ")"
	if len(c.archiver) == 0 {
		return Check{Name: "archiver", Status: StatusFail, Detail: "no archiver command configured"}
	}

	argv := append(append([]string(nil), c.archiver...), "--version")
	check := c.probe(ctx, name, argv, "set archiver in the config file to an installed asar command")
	// npx downloads the package on first use, which can outlast the probe
	if check.Status == StatusFail && c.archiver[0] == "npx" {
		res := c.runner.Run(ctx, []string{"npx", "--version"}, ports.RunOptions{Timeout: c.timeout})
		if res.OK() {
			check.Status = StatusWarn
			check.Detail = "npx is available but the asar package did not answer; the first run downloads it"
		}
	}
	return check
}

func (c *Checker) openerCheck() Check {
	check := Check{Name: "opener (" + c.opener + ")"}
	if _, err := c.lookPath(c.opener); err != nil {
		check.Status = StatusWarn
		check.Detail = c.opener + " not found; open the extraction directory manually"
		return check
	}
	check.Status = StatusOK
	return check
}

// Healthy reports whether no check failed.
func Healthy(checks []Check) bool {
	for _, c := range checks {
		if c.Status == StatusFail {
			return false
		}
	}
	return true
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
