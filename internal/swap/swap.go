// Package swap moves a file over another using an ordered list of strategies,
// falling through to the next one when a strategy fails.
package swap

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// Strategy names, in default order.
const (
	DirectMove     = "direct move"
	DeleteThenMove = "delete-then-move"
	NativeReplace  = "native replace"
)

// Strategy places src at dst. On success src no longer exists.
type Strategy struct {
	Name  string
	Apply func(fsys ports.FileSystem, src, dst string) error
}

// Attempt records one strategy that was tried. Err is nil for the winner.
type Attempt struct {
	Strategy string
	Err      error
}

// DefaultStrategies returns direct move, delete-then-move and native replace.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: DirectMove, Apply: directMove},
		{Name: DeleteThenMove, Apply: deleteThenMove},
		{Name: NativeReplace, Apply: nativeReplace},
	}
}

func directMove(fsys ports.FileSystem, src, dst string) error {
	return fsys.Rename(src, dst)
}

func deleteThenMove(fsys ports.FileSystem, src, dst string) error {
	if err := fsys.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return fsys.Rename(src, dst)
}

func nativeReplace(fsys ports.FileSystem, src, dst string) error {
	return fsys.ReplaceFile(src, dst)
}

// Swapper applies strategies in order until one succeeds.
type Swapper struct {
	fs         ports.FileSystem
	strategies []Strategy
	logger     *slog.Logger
}

// Option is a functional option for configuring Swapper.
type Option func(*Swapper)

// WithStrategies replaces the default strategy list.
func WithStrategies(strategies []Strategy) Option {
	return func(s *Swapper) {
		s.strategies = strategies
	}
}

// WithLogger sets the logger for per-attempt lines.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Swapper) {
		s.logger = logger
	}
}

// New creates a Swapper using DefaultStrategies.
func New(fsys ports.FileSystem, opts ...Option) *Swapper {
	s := &Swapper{
		fs:         fsys,
		strategies: DefaultStrategies(),
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Swap moves src over dst. It returns the winning strategy name and every
// attempt made. When all strategies fail the error wraps the last failure
// and names its strategy; src and dst are left as the last attempt left them.
func (s *Swapper) Swap(src, dst string) (string, []Attempt, error) {
	if len(s.strategies) == 0 {
		return "", nil, goerr.New("no swap strategies configured")
	}

	attempts := make([]Attempt, 0, len(s.strategies))
	var last error
	for _, st := range s.strategies {
		err := st.Apply(s.fs, src, dst)
		attempts = append(attempts, Attempt{Strategy: st.Name, Err: err})
		if err == nil {
			s.logger.Info("swap succeeded", slog.String("strategy", st.Name), slog.String("dst", dst))
			return st.Name, attempts, nil
		}
		s.logger.Warn("swap strategy failed",
			slog.String("strategy", st.Name),
			slog.String("src", src),
			slog.String("dst", dst),
			slog.Any("error", err),
		)
		last = err
	}

	name := attempts[len(attempts)-1].Strategy
	return "", attempts, goerr.Wrap(last, fmt.Sprintf("all swap strategies failed, last was %s", name),
		goerr.V("src", src), goerr.V("dst", dst))
}
