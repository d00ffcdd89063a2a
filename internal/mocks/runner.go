package mocks

import (
	"context"
	"strings"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// MockRunner implements ports.CommandRunner for testing.
type MockRunner struct {
	// Calls records every Run invocation
	Calls []RunCall
	// Results maps a full command line ("node --version") or a program name
	// ("node") to the result returned. The full command line wins.
	Results map[string]ports.CommandResult
	// Default is returned when no entry in Results matches. The zero value
	// reports a successful completion.
	Default *ports.CommandResult
}

// RunCall records parameters of a Run call.
type RunCall struct {
	Argv []string
	Opts ports.RunOptions
}

// NewMockRunner creates a new mock runner.
func NewMockRunner() *MockRunner {
	return &MockRunner{
		Results: make(map[string]ports.CommandResult),
	}
}

// Run records the call and returns the configured result.
func (m *MockRunner) Run(ctx context.Context, argv []string, opts ports.RunOptions) ports.CommandResult {
	m.Calls = append(m.Calls, RunCall{Argv: append([]string(nil), argv...), Opts: opts})

	res, ok := m.Results[strings.Join(argv, " ")]
	if !ok && len(argv) > 0 {
		res, ok = m.Results[argv[0]]
	}
	if !ok {
		if m.Default != nil {
			res = *m.Default
		} else {
			res = ports.CommandResult{Kind: ports.Completed}
		}
	}
	res.Argv = append([]string(nil), argv...)
	return res
}

// LastCall returns the most recent call, or false if Run was never called.
func (m *MockRunner) LastCall() (RunCall, bool) {
	if len(m.Calls) == 0 {
		return RunCall{}, false
	}
	return m.Calls[len(m.Calls)-1], true
}

// Compile-time check that MockRunner implements ports.CommandRunner.
var _ ports.CommandRunner = (*MockRunner)(nil)
