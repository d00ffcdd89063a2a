package tuisvc

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/mocks"
	"github.com/mcdonaldj/asarkit/internal/recovery"
	"github.com/mcdonaldj/asarkit/internal/target"
)

var fooTarget = target.Target{
	Name:            "Foo",
	Root:            "/apps/Foo",
	ArchivePath:     "/apps/Foo/resources/app.asar",
	ExtractionDir:   "/work/Foo",
	TempArchivePath: "/work/Foo.asar.new",
	BackupPath:      "/apps/Foo/resources/app.asar.backup",
}

func newService(t *testing.T) (*Service, *mocks.MockFileSystem, *manifest.Journal) {
	t.Helper()
	fsys := mocks.NewMockFileSystem()
	fsys.Files[fooTarget.ArchivePath] = []byte("original")

	archiver := mocks.NewMockArchiver()
	archiver.OnExtract = func(_, dest string) {
		fsys.Files[filepath.Join(dest, "main.js")] = []byte("line1\nline2\n")
	}

	journal := manifest.NewJournal(fsys, "/work", 0)
	rec := recovery.NewService(fsys, journal)
	return New(fsys, archiver, journal, rec, fooTarget), fsys, journal
}

func TestApp(t *testing.T) {
	svc, _, _ := newService(t)
	if svc.App() != "Foo" {
		t.Errorf("App() = %q, expected Foo", svc.App())
	}
}

func TestChangesWithoutExtraction(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Changes()
	if !errors.Is(err, ErrNotExtracted) {
		t.Errorf("err = %v, expected ErrNotExtracted", err)
	}
}

func TestChangesAndFileDiff(t *testing.T) {
	svc, fsys, journal := newService(t)
	fsys.Files["/work/Foo/main.js"] = []byte("line1\nline2\n")
	if err := journal.RecordExtraction(fooTarget); err != nil {
		t.Fatalf("RecordExtraction failed: %v", err)
	}

	fsys.Files["/work/Foo/main.js"] = []byte("line1\nchanged\n")

	res, err := svc.Changes()
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if res.Modified != 1 || len(res.Changes) != 1 || res.Changes[0].Path != "main.js" {
		t.Fatalf("changes = %+v", res)
	}

	diff, err := svc.FileDiff(context.Background(), "main.js")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if diff.Status != 'M' || diff.Pristine != fooTarget.ArchivePath {
		t.Errorf("diff = %+v", diff)
	}

	var added, removed int
	for _, l := range diff.Lines {
		switch l.Type {
		case '+':
			added++
		case '-':
			removed++
		}
	}
	if added != 1 || removed != 1 {
		t.Errorf("diff lines = +%d -%d, expected +1 -1", added, removed)
	}
}

func TestHistory(t *testing.T) {
	svc, fsys, journal := newService(t)
	fsys.Files["/work/Foo/main.js"] = []byte("x")
	if err := journal.RecordExtraction(fooTarget); err != nil {
		t.Fatalf("RecordExtraction failed: %v", err)
	}

	entries, err := svc.History()
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Action != manifest.ActionExtract {
		t.Errorf("entries = %+v", entries)
	}
}

func TestVerifyWithoutBackup(t *testing.T) {
	svc, _, _ := newService(t)

	_, err := svc.Verify()
	if !errors.Is(err, recovery.ErrNoBackup) {
		t.Errorf("err = %v, expected ErrNoBackup", err)
	}
}
