// Package workflow sequences the archive round trip: extract to a working
// directory, then repack, back up the original and swap the new archive in.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/backup"
	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/swap"
	"github.com/mcdonaldj/asarkit/internal/target"
)

// FailureKind classifies why an operation did not succeed.
type FailureKind string

const (
	ToolNotFound      FailureKind = "tool not found"
	TimedOut          FailureKind = "timed out"
	ToolFailed        FailureKind = "tool failed"
	FilesystemFailure FailureKind = "filesystem failure"
	ArchiveNotFound   FailureKind = "archive not found"
)

// ExtractOptions configures Extract.
type ExtractOptions struct {
	// Clean removes an existing extraction directory before unpacking.
	// By default the directory is reused and unpacked over.
	Clean bool
}

// ExtractionResult is the outcome of Extract.
type ExtractionResult struct {
	Success       bool
	ExtractionDir string
	Kind          FailureKind
	Detail        string
	Err           error
	// Command is the unpacker invocation, when one ran.
	Command *ports.CommandResult
	// Reused is true when the extraction directory already existed.
	Reused bool
}

// RepackOutcome is the outcome of RepackAndApply.
type RepackOutcome struct {
	Success bool
	// BackupPath is set once a verified backup of the original exists.
	BackupPath      string
	Strategy        string
	Attempts        []swap.Attempt
	TempArchivePath string
	Kind            FailureKind
	Detail          string
	Err             error
	Command         *ports.CommandResult
}

// Journal receives a record of each successful operation.
type Journal interface {
	RecordExtraction(t target.Target) error
	Record(t target.Target, entry manifest.Entry) error
}

// Service runs archive workflows with injected dependencies.
type Service struct {
	fs       ports.FileSystem
	archiver ports.Archiver
	swapper  *swap.Swapper
	journal  Journal
	logger   *slog.Logger

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

// WithJournal records successful operations in j.
func WithJournal(j Journal) Option {
	return func(s *Service) {
		s.journal = j
	}
}

// WithStrategies overrides the swap strategy list.
func WithStrategies(strategies []swap.Strategy) Option {
	return func(s *Service) {
		s.strategies = strategies
	}
}

// NewService creates a new workflow service with the given dependencies.
func NewService(fsys ports.FileSystem, archiver ports.Archiver, opts ...Option) *Service {
	s := &Service{
		fs:       fsys,
		archiver: archiver,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	swapOpts := []swap.Option{swap.WithLogger(s.logger)}
	if s.strategies != nil {
		swapOpts = append(swapOpts, swap.WithStrategies(s.strategies))
	}
	s.swapper = swap.New(fsys, swapOpts...)
	return s
}

// Extract unpacks t's archive into its extraction directory.
func (s *Service) Extract(ctx context.Context, t target.Target, opts ExtractOptions) ExtractionResult {
	result := ExtractionResult{ExtractionDir: t.ExtractionDir}

	if target.Contains(t.ExtractionDir, t.Root) || target.Contains(t.ExtractionDir, t.ArchivePath) {
		result.Kind = FilesystemFailure
		result.Detail = fmt.Sprintf("extraction directory %s contains the application at %s; choose another workspace", t.ExtractionDir, t.Root)
		return result
	}

	if !s.isFile(t.ArchivePath) {
		result.Kind = ArchiveNotFound
		result.Detail = "no archive at " + t.ArchivePath
		return result
	}

	result.Reused = ports.Exists(s.fs, t.ExtractionDir)
	if result.Reused && opts.Clean {
		s.logger.Info("removing previous extraction", slog.String("dir", t.ExtractionDir))
		if err := s.fs.RemoveAll(t.ExtractionDir); err != nil {
			result.Kind = FilesystemFailure
			result.Err = goerr.Wrap(err, "failed to clean extraction directory", goerr.V("path", t.ExtractionDir))
			result.Detail = result.Err.Error()
			return result
		}
		result.Reused = false
	}

	if err := s.fs.MkdirAll(t.ExtractionDir, 0755); err != nil {
		result.Kind = FilesystemFailure
		result.Err = goerr.Wrap(err, "failed to create extraction directory", goerr.V("path", t.ExtractionDir))
		result.Detail = result.Err.Error()
		return result
	}

	s.logger.Info("extracting archive",
		slog.String("archive", t.ArchivePath),
		slog.String("dir", t.ExtractionDir),
		slog.Bool("reused", result.Reused),
	)
	res := s.archiver.Extract(ctx, t.ArchivePath, t.ExtractionDir)
	result.Command = &res

	if !res.OK() {
		result.Kind, result.Detail = classify(res)
		if result.Kind == TimedOut {
			result.Detail += "; partial output may remain in " + t.ExtractionDir
		}
		result.Err = res.Err
		s.logger.Warn("extract failed", slog.String("kind", string(result.Kind)), slog.String("detail", result.Detail))
		return result
	}

	result.Success = true
	if s.journal != nil {
		if err := s.journal.RecordExtraction(t); err != nil {
			s.logger.Warn("failed to record extraction", slog.Any("error", err))
		}
	}
	return result
}

// RepackAndApply packs extractionDir into t's temp archive, backs up the
// original into the backup slot and swaps the new archive into place. An
// empty extractionDir means t.ExtractionDir.
//
// The original is only touched after the backup is verified. When every swap
// strategy fails the backup and the temp archive are left on disk.
func (s *Service) RepackAndApply(ctx context.Context, t target.Target, extractionDir string) RepackOutcome {
	if extractionDir == "" {
		extractionDir = t.ExtractionDir
	}
	outcome := RepackOutcome{TempArchivePath: t.TempArchivePath}

	if !s.isFile(t.ArchivePath) {
		outcome.Kind = ArchiveNotFound
		outcome.Detail = "no archive at " + t.ArchivePath
		return outcome
	}

	if err := s.fs.Remove(t.TempArchivePath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return s.fsFailure(outcome, goerr.Wrap(err, "failed to remove stale temp archive", goerr.V("path", t.TempArchivePath)))
	}
	if err := s.fs.MkdirAll(filepath.Dir(t.TempArchivePath), 0755); err != nil {
		return s.fsFailure(outcome, goerr.Wrap(err, "failed to create workspace", goerr.V("path", filepath.Dir(t.TempArchivePath))))
	}

	// 1. Pack
	s.logger.Info("packing archive", slog.String("dir", extractionDir), slog.String("temp", t.TempArchivePath))
	res := s.archiver.Pack(ctx, extractionDir, t.TempArchivePath)
	outcome.Command = &res
	if !res.OK() {
		outcome.Kind, outcome.Detail = classify(res)
		outcome.Err = res.Err
		s.logger.Warn("pack failed", slog.String("kind", string(outcome.Kind)), slog.String("detail", outcome.Detail))
		return outcome
	}
	if !s.isFile(t.TempArchivePath) {
		outcome.Kind = ToolFailed
		outcome.Detail = "packer exited successfully but produced no archive at " + t.TempArchivePath
		return outcome
	}

	packedSum, err := manifest.ComputeSHA256(s.fs, t.TempArchivePath)
	if err != nil {
		return s.fsFailure(outcome, goerr.Wrap(err, "failed to hash packed archive", goerr.V("path", t.TempArchivePath)))
	}
	var packedSize int64
	if info, err := s.fs.Stat(t.TempArchivePath); err == nil {
		packedSize = info.Size()
	}

	// 2. Backup
	bak, err := backup.Create(s.fs, t.ArchivePath, t.BackupPath)
	if err != nil {
		return s.fsFailure(outcome, err)
	}
	outcome.BackupPath = bak.Path
	s.logger.Info("backup verified", slog.String("path", bak.Path), slog.String("sha256", bak.SHA256))

	// 3. Swap
	winner, attempts, err := s.swapper.Swap(t.TempArchivePath, t.ArchivePath)
	outcome.Attempts = attempts
	if err != nil {
		outcome.Kind = FilesystemFailure
		outcome.Err = err
		outcome.Detail = fmt.Sprintf("%v; original preserved at %s, new archive left at %s", err, bak.Path, t.TempArchivePath)
		return outcome
	}
	outcome.Strategy = winner

	// 4. Verify
	swappedSum, err := manifest.ComputeSHA256(s.fs, t.ArchivePath)
	if err != nil {
		outcome = s.fsFailure(outcome, goerr.Wrap(err, "failed to hash swapped archive", goerr.V("path", t.ArchivePath)))
		outcome.Detail += "; original preserved at " + bak.Path
		return outcome
	}
	if swappedSum != packedSum {
		outcome = s.fsFailure(outcome, goerr.New("swapped archive does not match packed output",
			goerr.V("path", t.ArchivePath), goerr.V("expected", packedSum), goerr.V("actual", swappedSum)))
		outcome.Detail += "; original preserved at " + bak.Path
		return outcome
	}

	outcome.Success = true
	if s.journal != nil {
		entry := manifest.Entry{
			Action:        manifest.ActionRepack,
			ArchiveSHA256: packedSum,
			BackupSHA256:  bak.SHA256,
			SizeBytes:     packedSize,
			Strategy:      winner,
		}
		if err := s.journal.Record(t, entry); err != nil {
			s.logger.Warn("failed to record repack", slog.Any("error", err))
		}
	}
	return outcome
}

func (s *Service) fsFailure(outcome RepackOutcome, err error) RepackOutcome {
	outcome.Kind = FilesystemFailure
	outcome.Err = err
	outcome.Detail = err.Error()
	s.logger.Warn("repack aborted", slog.Any("error", err))
	return outcome
}

func (s *Service) isFile(name string) bool {
	info, err := s.fs.Stat(name)
	return err == nil && !info.IsDir()
}

// classify maps a failed command to a FailureKind and a user-facing detail.
// Stderr of a completed command is passed through verbatim.
func classify(res ports.CommandResult) (FailureKind, string) {
	switch res.Kind {
	case ports.ToolNotFound:
		return ToolNotFound, res.Diagnostic()
	case ports.TimedOut:
		return TimedOut, res.Diagnostic()
	case ports.Completed:
		detail := res.Diagnostic()
		if detail == "" {
			detail = fmt.Sprintf("exit code %d", res.ExitCode)
		}
		return ToolFailed, detail
	default:
		return ToolFailed, res.Diagnostic()
	}
}
