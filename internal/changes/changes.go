// Package changes reports what was edited in an extraction directory since
// it was unpacked, and diffs single files against the pristine archive.
package changes

import (
	"context"
	"errors"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/m-mizutani/goerr/v2"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/target"
)

// FileChange represents a change since extraction
type FileChange struct {
	Path   string
	Status rune // 'M' modified, 'A' added, 'D' deleted
	Size1  int64
	Size2  int64
}

// Result lists the changes in an extraction directory
type Result struct {
	Changes  []FileChange
	Added    int
	Modified int
	Deleted  int
}

// Empty reports whether nothing changed.
func (r *Result) Empty() bool {
	return len(r.Changes) == 0
}

// Compare walks root and compares it with snapshot.
func Compare(fsys ports.FileSystem, snapshot map[string]manifest.FileRecord, root string) (*Result, error) {
	current, err := manifest.TakeSnapshot(fsys, root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to scan extraction directory", goerr.V("path", root))
	}

	result := &Result{}

	allPaths := make(map[string]bool)
	for path := range snapshot {
		allPaths[path] = true
	}
	for path := range current {
		allPaths[path] = true
	}

	for path := range allPaths {
		before, inBefore := snapshot[path]
		after, inAfter := current[path]

		change := FileChange{Path: path}
		switch {
		case inBefore && !inAfter:
			change.Status = 'D'
			change.Size1 = before.SizeBytes
			result.Deleted++
		case !inBefore && inAfter:
			change.Status = 'A'
			change.Size2 = after.SizeBytes
			result.Added++
		case before.SHA256 != after.SHA256:
			change.Status = 'M'
			change.Size1 = before.SizeBytes
			change.Size2 = after.SizeBytes
			result.Modified++
		default:
			continue
		}
		result.Changes = append(result.Changes, change)
	}

	// M, A, D then by path
	order := map[rune]int{'M': 0, 'A': 1, 'D': 2}
	sort.Slice(result.Changes, func(i, j int) bool {
		if result.Changes[i].Status != result.Changes[j].Status {
			return order[result.Changes[i].Status] < order[result.Changes[j].Status]
		}
		return result.Changes[i].Path < result.Changes[j].Path
	})

	return result, nil
}

// DiffLine represents a single line in the diff output
type DiffLine struct {
	LineNum1 int    // Line number in the pristine file (0 if added)
	LineNum2 int    // Line number in the edited file (0 if deleted)
	Type     rune   // '+' added, '-' deleted, ' ' unchanged
	Content  string // Line content
}

// FileDiffResult contains the line-by-line diff of a single file
type FileDiffResult struct {
	Path     string
	Status   rune
	Pristine string // archive the original content came from
	Lines    []DiffLine
	IsBinary bool
}

// Differ diffs edited files against the archive they were unpacked from.
type Differ struct {
	fs       ports.FileSystem
	archiver ports.Archiver
}

// NewDiffer creates a Differ.
func NewDiffer(fsys ports.FileSystem, archiver ports.Archiver) *Differ {
	return &Differ{fs: fsys, archiver: archiver}
}

// PristineArchive returns the archive holding unedited content: the backup
// slot when one exists, otherwise the current archive.
func PristineArchive(fsys ports.FileSystem, t target.Target) string {
	if ports.Exists(fsys, t.BackupPath) {
		return t.BackupPath
	}
	return t.ArchivePath
}

// FileDiff unpacks the pristine archive into a scratch directory and diffs
// relPath against the copy in t's extraction directory.
func (d *Differ) FileDiff(ctx context.Context, t target.Target, relPath string) (*FileDiffResult, error) {
	rel := filepath.FromSlash(relPath)
	if filepath.IsAbs(rel) || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, goerr.New("path must be relative to the extraction directory", goerr.V("path", relPath))
	}

	pristine := PristineArchive(d.fs, t)
	scratch := filepath.Join(filepath.Dir(t.ExtractionDir), manifest.DirName, "pristine-"+t.Name)
	if err := d.fs.RemoveAll(scratch); err != nil {
		return nil, goerr.Wrap(err, "failed to clear scratch directory", goerr.V("path", scratch))
	}
	if err := d.fs.MkdirAll(scratch, 0755); err != nil {
		return nil, goerr.Wrap(err, "failed to create scratch directory", goerr.V("path", scratch))
	}
	defer d.fs.RemoveAll(scratch)

	res := d.archiver.Extract(ctx, pristine, scratch)
	if !res.OK() {
		return nil, goerr.New("failed to unpack pristine archive",
			goerr.V("archive", pristine), goerr.V("kind", string(res.Kind)), goerr.V("detail", res.Diagnostic()))
	}

	before, inBefore, err := d.read(filepath.Join(scratch, rel))
	if err != nil {
		return nil, err
	}
	after, inAfter, err := d.read(filepath.Join(t.ExtractionDir, rel))
	if err != nil {
		return nil, err
	}

	result := &FileDiffResult{Path: filepath.ToSlash(rel), Pristine: pristine}
	switch {
	case !inBefore && !inAfter:
		return nil, goerr.New("file not found in archive or extraction directory", goerr.V("path", relPath))
	case !inBefore:
		result.Status = 'A'
	case !inAfter:
		result.Status = 'D'
	case before == after:
		result.Status = ' '
	default:
		result.Status = 'M'
	}

	if IsBinaryContent(before) || IsBinaryContent(after) {
		result.IsBinary = true
		return result, nil
	}

	result.Lines = LineDiff(before, after)
	return result, nil
}

func (d *Differ) read(path string) (string, bool, error) {
	data, err := d.fs.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", false, nil
		}
		return "", false, goerr.Wrap(err, "failed to read file", goerr.V("path", path))
	}
	return string(data), true, nil
}

// IsBinaryContent checks if content appears to be binary
func IsBinaryContent(content string) bool {
	if len(content) == 0 {
		return false
	}
	// Check first 8000 bytes for null bytes or invalid UTF-8
	checkLen := len(content)
	if checkLen > 8000 {
		checkLen = 8000
	}
	if checkLen < len(content) {
		// Do not split a multi-byte rune at the cut
		for i := 0; i < utf8.UTFMax-1 && checkLen > 0 && !utf8.RuneStart(content[checkLen]); i++ {
			checkLen--
		}
	}
	sample := content[:checkLen]

	// Check for null bytes (common in binary files)
	if strings.Contains(sample, "\x00") {
		return true
	}

	// Check if it's valid UTF-8
	return !utf8.ValidString(sample)
}

// LineDiff computes a line-oriented diff of a and b.
func LineDiff(a, b string) []DiffLine {
	dmp := diffmatchpatch.New()
	chars1, chars2, lineArray := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffMain(chars1, chars2, false)
	diffs = dmp.DiffCharsToLines(diffs, lineArray)

	var lines []DiffLine
	n1, n2 := 0, 0
	for _, d := range diffs {
		for _, text := range splitLines(d.Text) {
			switch d.Type {
			case diffmatchpatch.DiffEqual:
				n1++
				n2++
				lines = append(lines, DiffLine{LineNum1: n1, LineNum2: n2, Type: ' ', Content: text})
			case diffmatchpatch.DiffDelete:
				n1++
				lines = append(lines, DiffLine{LineNum1: n1, Type: '-', Content: text})
			case diffmatchpatch.DiffInsert:
				n2++
				lines = append(lines, DiffLine{LineNum2: n2, Type: '+', Content: text})
			}
		}
	}
	return lines
}

// splitLines splits text produced by DiffCharsToLines, where every line but
// possibly the last keeps its trailing newline.
func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	for i := range lines {
		lines[i] = strings.TrimSuffix(lines[i], "\n")
	}
	return lines
}
