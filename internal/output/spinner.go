// Package output renders progress for long-running external commands.
package output

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// writerIsTTY reports whether w is a terminal. Writers without an Fd method,
// such as *bytes.Buffer, are never terminals.
func writerIsTTY(w io.Writer) bool {
	type fder interface {
		Fd() uintptr
	}
	if f, ok := w.(fder); ok {
		return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	return false
}

// Spinner animates a message while an archive command runs.
// Example: |  Packing Foo (2m58s left)
type Spinner struct {
	message string
	timeout time.Duration
	chars   []string
	writer  io.Writer
	tty     bool

	mu      sync.Mutex
	running bool
	start   time.Time
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewSpinner creates a spinner writing to w. A positive timeout adds the
// remaining time to each frame.
func NewSpinner(w io.Writer, message string, timeout time.Duration) *Spinner {
	return &Spinner{
		message: message,
		timeout: timeout,
		chars:   []string{"|", "/", "-", "\\"},
		writer:  w,
		tty:     writerIsTTY(w),
	}
}

// Start begins the animation. On a non-terminal writer the message is
// printed once instead.
func (s *Spinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.start = time.Now()

	if !s.tty {
		fmt.Fprintf(s.writer, "%s...\n", s.message)
		return
	}

	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.loop()
}

func (s *Spinner) loop() {
	defer s.wg.Done()
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	idx := 0
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			fmt.Fprintf(s.writer, "\r%s  %s", s.chars[idx], s.frame(time.Since(s.start)))
			s.mu.Unlock()
			idx = (idx + 1) % len(s.chars)
		}
	}
}

func (s *Spinner) frame(elapsed time.Duration) string {
	if s.timeout <= 0 {
		return s.message
	}
	left := s.timeout - elapsed
	if left < 0 {
		left = 0
	}
	return fmt.Sprintf("%s (%s left)", s.message, left.Truncate(time.Second))
}

// Stop ends the animation and clears the line.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	done := s.done
	s.mu.Unlock()

	if done == nil {
		return
	}
	close(done)
	s.wg.Wait()

	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.writer, "\r%s\r", strings.Repeat(" ", len(s.frame(s.timeout))+4))
}

// Run starts the spinner, calls fn and stops the spinner when fn returns.
func Run[T any](s *Spinner, fn func() T) T {
	s.Start()
	defer s.Stop()
	return fn()
}
