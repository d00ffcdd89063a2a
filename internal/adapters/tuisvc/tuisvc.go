// Package tuisvc binds the browser's Service interface to one application.
package tuisvc

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/changes"
	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/recovery"
	"github.com/mcdonaldj/asarkit/internal/target"
)

// ErrNotExtracted is returned when the journal has no extraction snapshot.
var ErrNotExtracted = errors.New("no extraction recorded, run asarkit extract first")

// Service implements tui.Service for a single resolved target.
type Service struct {
	fs       ports.FileSystem
	target   target.Target
	journal  *manifest.Journal
	differ   *changes.Differ
	recovery *recovery.Service
}

// New creates a service for t.
func New(fsys ports.FileSystem, archiver ports.Archiver, journal *manifest.Journal, rec *recovery.Service, t target.Target) *Service {
	return &Service{
		fs:       fsys,
		target:   t,
		journal:  journal,
		differ:   changes.NewDiffer(fsys, archiver),
		recovery: rec,
	}
}

// App returns the application name.
func (s *Service) App() string {
	return s.target.Name
}

// Changes compares the extraction directory with its recorded snapshot.
func (s *Service) Changes() (*changes.Result, error) {
	m, err := s.journal.Load(s.target)
	if err != nil {
		return nil, err
	}
	if m.Extraction == nil {
		return nil, goerr.Wrap(ErrNotExtracted, "cannot list changes", goerr.V("app", s.target.Name))
	}
	return changes.Compare(s.fs, m.Extraction.Files, s.target.ExtractionDir)
}

// FileDiff diffs relPath against the pristine archive.
func (s *Service) FileDiff(ctx context.Context, relPath string) (*changes.FileDiffResult, error) {
	return s.differ.FileDiff(ctx, s.target, relPath)
}

// History returns the journal entries, oldest first.
func (s *Service) History() ([]manifest.Entry, error) {
	return s.recovery.History(s.target)
}

// Verify checks the backup slot.
func (s *Service) Verify() (recovery.VerifyResult, error) {
	return s.recovery.Verify(s.target)
}
