package manifest

import (
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/target"
)

// Journal records archive operations for applications sharing one workspace.
type Journal struct {
	fs        ports.FileSystem
	workspace string
	keepLast  int
	now       func() time.Time
}

// NewJournal creates a journal stored under workspace. keepLast bounds the
// history length; zero keeps everything.
func NewJournal(fsys ports.FileSystem, workspace string, keepLast int) *Journal {
	return &Journal{
		fs:        fsys,
		workspace: workspace,
		keepLast:  keepLast,
		now:       time.Now,
	}
}

// Load returns the journal for t.
func (j *Journal) Load(t target.Target) (*Manifest, error) {
	m, err := Load(j.fs, j.workspace, t.Name)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to load journal", goerr.V("path", ManifestPath(j.workspace, t.Name)))
	}
	m.App = t.Name
	m.Root = t.Root
	m.ArchivePath = t.ArchivePath
	return m, nil
}

// RecordExtraction snapshots t's extraction directory and appends an extract
// entry.
func (j *Journal) RecordExtraction(t target.Target) error {
	m, err := j.Load(t)
	if err != nil {
		return err
	}

	files, err := TakeSnapshot(j.fs, t.ExtractionDir)
	if err != nil {
		return goerr.Wrap(err, "failed to snapshot extraction directory", goerr.V("path", t.ExtractionDir))
	}
	archiveSum, err := ComputeSHA256(j.fs, t.ArchivePath)
	if err != nil {
		return goerr.Wrap(err, "failed to hash archive", goerr.V("path", t.ArchivePath))
	}
	var size int64
	if info, err := j.fs.Stat(t.ArchivePath); err == nil {
		size = info.Size()
	}

	now := j.now()
	m.Extraction = &Snapshot{
		CreatedAt:     now,
		ArchiveSHA256: archiveSum,
		Files:         files,
	}
	m.AddEntry(Entry{
		Action:        ActionExtract,
		CreatedAt:     now,
		ArchiveSHA256: archiveSum,
		SizeBytes:     size,
	})
	return j.save(m)
}

// Record appends entry to t's history.
func (j *Journal) Record(t target.Target, entry Entry) error {
	m, err := j.Load(t)
	if err != nil {
		return err
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = j.now()
	}
	m.AddEntry(entry)
	return j.save(m)
}

func (j *Journal) save(m *Manifest) error {
	m.Prune(j.keepLast)
	if err := m.Save(j.fs, j.workspace); err != nil {
		return goerr.Wrap(err, "failed to save journal", goerr.V("path", ManifestPath(j.workspace, m.App)))
	}
	return nil
}
