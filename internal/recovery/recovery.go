// Package recovery checks and restores the backup slot of an application.
package recovery

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/backup"
	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/swap"
	"github.com/mcdonaldj/asarkit/internal/target"
)

// RestoreSuffix is appended to the archive path for the staged restore copy.
const RestoreSuffix = ".restore"

// ErrNoBackup is returned when the backup slot does not exist.
var ErrNoBackup = errors.New("no backup found")

// Journal is the subset of manifest.Journal recovery needs.
type Journal interface {
	Load(t target.Target) (*manifest.Manifest, error)
	Record(t target.Target, entry manifest.Entry) error
}

// VerifyResult reports the state of the backup slot.
type VerifyResult struct {
	BackupPath string
	SizeBytes  int64
	// Expected is the hash recorded when the slot was last written; empty
	// when the journal has no record.
	Expected string
	Actual   string
	Match    bool
}

// RestoreResult reports how the original archive was put back.
type RestoreResult struct {
	BackupPath string
	Strategy   string
	Attempts   []swap.Attempt
}

// Service provides recovery operations with injected dependencies.
type Service struct {
	fs      ports.FileSystem
	journal Journal
	logger  *slog.Logger

	strategies []swap.Strategy
}

// Option is a functional option for configuring Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithStrategies overrides the swap strategy list.
func WithStrategies(strategies []swap.Strategy) Option {
	return func(s *Service) {
		s.strategies = strategies
	}
}

// NewService creates a new recovery service with the given dependencies.
func NewService(fsys ports.FileSystem, journal Journal, opts ...Option) *Service {
	s := &Service{
		fs:      fsys,
		journal: journal,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) swapper() *swap.Swapper {
	opts := []swap.Option{swap.WithLogger(s.logger)}
	if s.strategies != nil {
		opts = append(opts, swap.WithStrategies(s.strategies))
	}
	return swap.New(s.fs, opts...)
}

// Verify hashes the backup slot and compares it with the hash the journal
// recorded when the slot was written. A missing journal record is not an
// error; Match is false and Expected is empty.
func (s *Service) Verify(t target.Target) (VerifyResult, error) {
	result := VerifyResult{BackupPath: t.BackupPath}

	info, err := s.fs.Stat(t.BackupPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return result, goerr.Wrap(ErrNoBackup, "backup slot is empty", goerr.V("path", t.BackupPath))
		}
		return result, goerr.Wrap(err, "failed to stat backup", goerr.V("path", t.BackupPath))
	}
	result.SizeBytes = info.Size()

	m, err := s.journal.Load(t)
	if err != nil {
		return result, err
	}
	if latest := m.LatestBackup(); latest != nil {
		result.Expected = latest.BackupSHA256
	}

	match, actual, err := backup.Verify(s.fs, t.BackupPath, result.Expected)
	if err != nil {
		return result, err
	}
	result.Actual = actual
	result.Match = match && result.Expected != ""
	return result, nil
}

// Restore puts the backup slot back at the archive path. The slot is copied
// to a staging file first and kept after the restore.
func (s *Service) Restore(ctx context.Context, t target.Target) (RestoreResult, error) {
	result := RestoreResult{BackupPath: t.BackupPath}

	if !ports.Exists(s.fs, t.BackupPath) {
		return result, goerr.Wrap(ErrNoBackup, "nothing to restore", goerr.V("path", t.BackupPath))
	}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	want, err := manifest.ComputeSHA256(s.fs, t.BackupPath)
	if err != nil {
		return result, goerr.Wrap(err, "failed to hash backup", goerr.V("path", t.BackupPath))
	}

	staging := t.ArchivePath + RestoreSuffix
	if err := s.fs.CopyFile(t.BackupPath, staging); err != nil {
		return result, goerr.Wrap(err, "failed to stage backup", goerr.V("src", t.BackupPath), goerr.V("dst", staging))
	}
	if got, err := manifest.ComputeSHA256(s.fs, staging); err != nil || got != want {
		s.removeStaging(staging)
		if err == nil {
			err = goerr.New("staged copy does not match backup", goerr.V("expected", want), goerr.V("actual", got))
		}
		return result, goerr.Wrap(err, "failed to verify staged backup", goerr.V("path", staging))
	}

	if err := ctx.Err(); err != nil {
		s.removeStaging(staging)
		return result, err
	}

	winner, attempts, err := s.swapper().Swap(staging, t.ArchivePath)
	result.Attempts = attempts
	if err != nil {
		s.removeStaging(staging)
		return result, err
	}
	result.Strategy = winner

	got, err := manifest.ComputeSHA256(s.fs, t.ArchivePath)
	if err != nil {
		return result, goerr.Wrap(err, "failed to hash restored archive", goerr.V("path", t.ArchivePath))
	}
	if got != want {
		return result, goerr.New("restored archive does not match backup",
			goerr.V("path", t.ArchivePath), goerr.V("expected", want), goerr.V("actual", got))
	}

	s.logger.Info("archive restored", slog.String("archive", t.ArchivePath), slog.String("strategy", winner))

	var size int64
	if info, err := s.fs.Stat(t.ArchivePath); err == nil {
		size = info.Size()
	}
	if err := s.journal.Record(t, manifest.Entry{
		Action:        manifest.ActionRestore,
		ArchiveSHA256: got,
		SizeBytes:     size,
		Strategy:      winner,
	}); err != nil {
		s.logger.Warn("failed to record restore", slog.Any("error", err))
	}

	return result, nil
}

// History returns the recorded operations for t, oldest first.
func (s *Service) History(t target.Target) ([]manifest.Entry, error) {
	m, err := s.journal.Load(t)
	if err != nil {
		return nil, err
	}
	return m.History, nil
}

func (s *Service) removeStaging(path string) {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		s.logger.Warn("failed to remove staged restore copy", slog.String("path", path), slog.Any("error", err))
	}
}
