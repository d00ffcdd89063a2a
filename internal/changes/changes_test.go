package changes

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/mocks"
	"github.com/mcdonaldj/asarkit/internal/ports"
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

func TestCompare(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.Files["/work/Foo/keep.js"] = []byte("same")
	fsys.Files["/work/Foo/edit.js"] = []byte("v1")
	fsys.Files["/work/Foo/gone.js"] = []byte("bye")

	snapshot, err := manifest.TakeSnapshot(fsys, "/work/Foo")
	if err != nil {
		t.Fatal(err)
	}

	fsys.Files["/work/Foo/edit.js"] = []byte("v2 longer")
	delete(fsys.Files, "/work/Foo/gone.js")
	fsys.Files["/work/Foo/lib/new.js"] = []byte("hello")

	result, err := Compare(fsys, snapshot, "/work/Foo")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}

	if result.Added != 1 || result.Modified != 1 || result.Deleted != 1 {
		t.Errorf("counts = A%d M%d D%d, expected 1 each", result.Added, result.Modified, result.Deleted)
	}

	expected := []struct {
		path   string
		status rune
	}{
		{"edit.js", 'M'},
		{"lib/new.js", 'A'},
		{"gone.js", 'D'},
	}
	if len(result.Changes) != len(expected) {
		t.Fatalf("changes = %+v", result.Changes)
	}
	for i, e := range expected {
		if result.Changes[i].Path != e.path || result.Changes[i].Status != e.status {
			t.Errorf("change %d = %s %c, expected %s %c", i, result.Changes[i].Path, result.Changes[i].Status, e.path, e.status)
		}
	}
	if result.Changes[0].Size1 != 2 || result.Changes[0].Size2 != 9 {
		t.Errorf("modified sizes = %d -> %d, expected 2 -> 9", result.Changes[0].Size1, result.Changes[0].Size2)
	}
}

func TestCompareUnchanged(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.Files["/work/Foo/a.js"] = []byte("a")
	snapshot, _ := manifest.TakeSnapshot(fsys, "/work/Foo")

	result, err := Compare(fsys, snapshot, "/work/Foo")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !result.Empty() {
		t.Errorf("expected no changes, got %+v", result.Changes)
	}
}

func TestCompareMissingRoot(t *testing.T) {
	if _, err := Compare(mocks.NewMockFileSystem(), nil, "/work/Nope"); err == nil {
		t.Error("expected error for a missing extraction directory")
	}
}

func TestIsBinaryContent(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected bool
	}{
		{name: "empty content", content: "", expected: false},
		{name: "plain text", content: "Hello, world!\nThis is a test file.\n", expected: false},
		{name: "text with unicode", content: "Hello 世界! Émojis: 🎉", expected: false},
		{name: "binary with null bytes", content: "some\x00binary\x00content", expected: true},
		{name: "invalid UTF-8", content: string([]byte{0xff, 0xfe, 0x00, 0x01}), expected: true},
		{name: "javascript", content: "module.exports = () => {\n\tconsole.log('hi')\n}\n", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := IsBinaryContent(tt.content); result != tt.expected {
				t.Errorf("IsBinaryContent() = %v, expected %v", result, tt.expected)
			}
		})
	}
}

func TestIsBinaryContentLongContent(t *testing.T) {
	longText := strings.Repeat("a", 10000)
	if IsBinaryContent(longText) {
		t.Error("Long text content should not be detected as binary")
	}

	withNull := []byte(longText)
	withNull[9000] = 0
	if IsBinaryContent(string(withNull)) {
		t.Error("Null byte after 8000 chars should not be detected as binary")
	}

	// a 3-byte rune straddling the 8000 byte cut
	straddle := strings.Repeat("a", 7999) + "世" + strings.Repeat("b", 100)
	if IsBinaryContent(straddle) {
		t.Error("a rune split by the sample cut should not look binary")
	}
}

func TestLineDiff(t *testing.T) {
	lines := LineDiff("a\nb\nc\n", "a\nx\nc\n")

	expected := []DiffLine{
		{LineNum1: 1, LineNum2: 1, Type: ' ', Content: "a"},
		{LineNum1: 2, Type: '-', Content: "b"},
		{LineNum2: 2, Type: '+', Content: "x"},
		{LineNum1: 3, LineNum2: 3, Type: ' ', Content: "c"},
	}
	if len(lines) != len(expected) {
		t.Fatalf("lines = %+v, expected %d lines", lines, len(expected))
	}
	for i := range expected {
		if lines[i] != expected[i] {
			t.Errorf("line %d = %+v, expected %+v", i, lines[i], expected[i])
		}
	}
}

func TestLineDiffEdgeCases(t *testing.T) {
	tests := []struct {
		name      string
		before    string
		after     string
		wantPlus  int
		wantMinus int
	}{
		{name: "identical", before: "a\nb", after: "a\nb", wantPlus: 0, wantMinus: 0},
		{name: "added file", before: "", after: "a\nb\n", wantPlus: 2, wantMinus: 0},
		{name: "deleted file", before: "a\nb\n", after: "", wantPlus: 0, wantMinus: 2},
		{name: "no trailing newline", before: "a\nb", after: "a\nc", wantPlus: 1, wantMinus: 1},
		{name: "lines reordered", before: "line1\nline2\nline3", after: "line3\nline2\nline1", wantPlus: 2, wantMinus: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plus, minus := 0, 0
			for _, l := range LineDiff(tt.before, tt.after) {
				switch l.Type {
				case '+':
					plus++
				case '-':
					minus++
				}
			}
			if plus != tt.wantPlus || minus != tt.wantMinus {
				t.Errorf("+%d -%d, expected +%d -%d", plus, minus, tt.wantPlus, tt.wantMinus)
			}
		})
	}
}

func newDiffer(fsys *mocks.MockFileSystem, pristine map[string]string) (*Differ, *mocks.MockArchiver) {
	archiver := mocks.NewMockArchiver()
	archiver.OnExtract = func(_, dest string) {
		for rel, content := range pristine {
			fsys.Files[filepath.Join(dest, rel)] = []byte(content)
		}
	}
	return NewDiffer(fsys, archiver), archiver
}

func TestFileDiffModified(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.Files[fooTarget.ArchivePath] = []byte("edited archive")
	fsys.Files[fooTarget.BackupPath] = []byte("original archive")
	fsys.Files["/work/Foo/main.js"] = []byte("line1\nchanged\n")
	d, archiver := newDiffer(fsys, map[string]string{"main.js": "line1\nline2\n"})

	result, err := d.FileDiff(context.Background(), fooTarget, "main.js")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if result.Status != 'M' {
		t.Errorf("Status = %c, expected M", result.Status)
	}
	if result.Pristine != fooTarget.BackupPath {
		t.Errorf("Pristine = %q, expected the backup slot", result.Pristine)
	}
	if archiver.ExtractCalls[0].ArchivePath != fooTarget.BackupPath {
		t.Errorf("unpacked %q, expected the backup slot", archiver.ExtractCalls[0].ArchivePath)
	}
	if len(result.Lines) != 3 {
		t.Errorf("Lines = %+v, expected 3", result.Lines)
	}

	scratch := archiver.ExtractCalls[0].DestDir
	if ports.Exists(fsys, scratch) {
		t.Error("scratch directory should be removed")
	}
	if strings.HasPrefix(scratch, fooTarget.ExtractionDir+string(filepath.Separator)) {
		t.Error("scratch directory must not live inside the extraction directory")
	}
}

func TestFileDiffUsesArchiveWithoutBackup(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.Files[fooTarget.ArchivePath] = []byte("archive")
	fsys.Files["/work/Foo/new.js"] = []byte("hello\n")
	d, _ := newDiffer(fsys, map[string]string{"main.js": "x"})

	result, err := d.FileDiff(context.Background(), fooTarget, "new.js")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if result.Pristine != fooTarget.ArchivePath {
		t.Errorf("Pristine = %q, expected the archive", result.Pristine)
	}
	if result.Status != 'A' {
		t.Errorf("Status = %c, expected A", result.Status)
	}
}

func TestFileDiffDeleted(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.Files[fooTarget.ArchivePath] = []byte("archive")
	fsys.Files["/work/Foo/other.js"] = []byte("x")
	d, _ := newDiffer(fsys, map[string]string{"gone.js": "a\nb\n"})

	result, err := d.FileDiff(context.Background(), fooTarget, "gone.js")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if result.Status != 'D' {
		t.Errorf("Status = %c, expected D", result.Status)
	}
}

func TestFileDiffBinary(t *testing.T) {
	fsys := mocks.NewMockFileSystem()
	fsys.Files[fooTarget.ArchivePath] = []byte("archive")
	fsys.Files["/work/Foo/icon.png"] = []byte("\x89PNG\x00\x01")
	d, _ := newDiffer(fsys, map[string]string{"icon.png": "\x89PNG\x00\x02"})

	result, err := d.FileDiff(context.Background(), fooTarget, "icon.png")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if !result.IsBinary {
		t.Error("IsBinary should be true")
	}
	if len(result.Lines) != 0 {
		t.Error("binary files should not be diffed")
	}
}

func TestFileDiffErrors(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		failCmd bool
	}{
		{name: "missing everywhere", path: "nope.js"},
		{name: "escapes extraction dir", path: "../secret"},
		{name: "absolute path", path: "/etc/passwd"},
		{name: "unpack fails", path: "main.js", failCmd: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fsys := mocks.NewMockFileSystem()
			fsys.Files[fooTarget.ArchivePath] = []byte("archive")
			fsys.Files["/work/Foo/main.js"] = []byte("x")
			d, archiver := newDiffer(fsys, map[string]string{"main.js": "y"})
			if tt.failCmd {
				archiver.Results["Extract"] = ports.CommandResult{Kind: ports.Completed, ExitCode: 1, Stderr: "bad archive"}
			}

			if _, err := d.FileDiff(context.Background(), fooTarget, tt.path); err == nil {
				t.Error("expected error")
			}
		})
	}
}
