// Package mocks provides mock implementations for testing.
package mocks

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// MockFileSystem implements ports.FileSystem in memory for testing.
type MockFileSystem struct {
	// Files maps paths to file contents
	Files map[string][]byte
	// Dirs maps paths to directory entries for ReadDir. When a path has no
	// entry here, ReadDir lists the children found in Files and Stats.
	Dirs map[string][]os.DirEntry
	// Stats maps paths to FileInfo for Stat
	Stats map[string]os.FileInfo
	// Errors maps paths to errors (for simulating failures)
	Errors map[string]error
	// MethodErrors maps method names ("Rename", "CopyFile", ...) to errors
	MethodErrors map[string]error
	// WalkEntries, when non-nil, replaces the synthesized tree during Walk
	WalkEntries []WalkEntry
	// Ops records mutating calls in order, e.g. "Rename a -> b"
	Ops []string
}

// WalkEntry represents a file or directory entry for Walk testing.
type WalkEntry struct {
	Path string
	Info os.FileInfo
	Err  error
}

// NewMockFileSystem creates a new mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		Files:        make(map[string][]byte),
		Dirs:         make(map[string][]os.DirEntry),
		Stats:        make(map[string]os.FileInfo),
		Errors:       make(map[string]error),
		MethodErrors: make(map[string]error),
	}
}

func (m *MockFileSystem) fail(method string, paths ...string) error {
	if err, ok := m.MethodErrors[method]; ok {
		return err
	}
	for _, p := range paths {
		if err, ok := m.Errors[p]; ok {
			return err
		}
	}
	return nil
}

func notExist(op, name string) error {
	return &fs.PathError{Op: op, Path: name, Err: fs.ErrNotExist}
}

func (m *MockFileSystem) isDir(name string) bool {
	if info, ok := m.Stats[name]; ok && info.IsDir() {
		return true
	}
	prefix := name + string(filepath.Separator)
	for k := range m.Files {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	for k := range m.Stats {
		if strings.HasPrefix(k, prefix) {
			return true
		}
	}
	return false
}

// ReadDir reads the named directory and returns directory entries.
func (m *MockFileSystem) ReadDir(name string) ([]os.DirEntry, error) {
	if err := m.fail("ReadDir", name); err != nil {
		return nil, err
	}
	if entries, ok := m.Dirs[name]; ok {
		return entries, nil
	}
	if !m.isDir(name) {
		return nil, notExist("readdir", name)
	}

	children := make(map[string]bool)
	prefix := name + string(filepath.Separator)
	collect := func(p string) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		rest := strings.TrimPrefix(p, prefix)
		child, _, nested := strings.Cut(rest, string(filepath.Separator))
		if child == "" {
			return
		}
		children[child] = children[child] || nested
	}
	for k := range m.Files {
		collect(k)
	}
	for k, info := range m.Stats {
		collect(k)
		if info.IsDir() && strings.HasPrefix(k, prefix) && !strings.Contains(strings.TrimPrefix(k, prefix), string(filepath.Separator)) {
			children[filepath.Base(k)] = true
		}
	}

	names := make([]string, 0, len(children))
	for n := range children {
		names = append(names, n)
	}
	sort.Strings(names)

	entries := make([]os.DirEntry, 0, len(names))
	for _, n := range names {
		entries = append(entries, &MockDirEntry{EntryName: n, Dir: children[n]})
	}
	return entries, nil
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err := m.fail("Stat", name); err != nil {
		return nil, err
	}
	if info, ok := m.Stats[name]; ok {
		return info, nil
	}
	if content, ok := m.Files[name]; ok {
		return &mockFileInfo{name: filepath.Base(name), size: int64(len(content)), mode: 0644}, nil
	}
	if m.isDir(name) {
		return &mockFileInfo{name: filepath.Base(name), isDir: true, mode: fs.ModeDir | 0755}, nil
	}
	return nil, notExist("stat", name)
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := m.fail("MkdirAll", path); err != nil {
		return err
	}
	m.Stats[path] = &mockFileInfo{name: filepath.Base(path), isDir: true, mode: fs.ModeDir | perm}
	return nil
}

// WriteFile writes data to the named file, creating it if necessary.
func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := m.fail("WriteFile", name); err != nil {
		return err
	}
	m.Files[name] = append([]byte(nil), data...)
	delete(m.Stats, name)
	m.Ops = append(m.Ops, "WriteFile "+name)
	return nil
}

// ReadFile reads the named file and returns the contents.
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if err := m.fail("ReadFile", name); err != nil {
		return nil, err
	}
	if content, ok := m.Files[name]; ok {
		return append([]byte(nil), content...), nil
	}
	return nil, notExist("open", name)
}

// Remove removes the named file or empty directory.
func (m *MockFileSystem) Remove(name string) error {
	if err := m.fail("Remove", name); err != nil {
		return err
	}
	_, isFile := m.Files[name]
	_, isStat := m.Stats[name]
	if !isFile && !isStat {
		return notExist("remove", name)
	}
	delete(m.Files, name)
	delete(m.Stats, name)
	m.Ops = append(m.Ops, "Remove "+name)
	return nil
}

// RemoveAll removes path and any children it contains.
func (m *MockFileSystem) RemoveAll(path string) error {
	if err := m.fail("RemoveAll", path); err != nil {
		return err
	}
	prefix := path + string(filepath.Separator)
	for k := range m.Files {
		if k == path || strings.HasPrefix(k, prefix) {
			delete(m.Files, k)
		}
	}
	for k := range m.Stats {
		if k == path || strings.HasPrefix(k, prefix) {
			delete(m.Stats, k)
		}
	}
	m.Ops = append(m.Ops, "RemoveAll "+path)
	return nil
}

// Rename renames (moves) oldpath to newpath.
func (m *MockFileSystem) Rename(oldpath, newpath string) error {
	if err := m.fail("Rename", oldpath, newpath); err != nil {
		return err
	}
	content, isFile := m.Files[oldpath]
	info, isStat := m.Stats[oldpath]
	if !isFile && !isStat {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: fs.ErrNotExist}
	}
	if isFile {
		m.Files[newpath] = content
		delete(m.Files, oldpath)
	}
	if isStat {
		m.Stats[newpath] = info
		delete(m.Stats, oldpath)
	}
	m.Ops = append(m.Ops, "Rename "+oldpath+" -> "+newpath)
	return nil
}

// CopyFile copies src to dst.
func (m *MockFileSystem) CopyFile(src, dst string) error {
	if err := m.fail("CopyFile", src, dst); err != nil {
		return err
	}
	content, ok := m.Files[src]
	if !ok {
		return notExist("open", src)
	}
	m.Files[dst] = append([]byte(nil), content...)
	m.Ops = append(m.Ops, "CopyFile "+src+" -> "+dst)
	return nil
}

// ReplaceFile replaces dst with src and removes src.
func (m *MockFileSystem) ReplaceFile(src, dst string) error {
	if err := m.fail("ReplaceFile", src, dst); err != nil {
		return err
	}
	content, ok := m.Files[src]
	if !ok {
		return notExist("open", src)
	}
	m.Files[dst] = content
	delete(m.Files, src)
	m.Ops = append(m.Ops, "ReplaceFile "+src+" -> "+dst)
	return nil
}

// Open opens the named file for reading.
func (m *MockFileSystem) Open(name string) (fs.File, error) {
	if err := m.fail("Open", name); err != nil {
		return nil, err
	}
	content, ok := m.Files[name]
	if !ok {
		return nil, notExist("open", name)
	}
	return &mockFile{name: filepath.Base(name), content: content}, nil
}

// Walk walks the file tree rooted at root in lexical order, calling fn for
// each file or directory.
func (m *MockFileSystem) Walk(root string, fn ports.WalkFunc) error {
	entries := m.WalkEntries
	if entries == nil {
		entries = m.tree(root)
	}
	if entries == nil {
		return fn(root, nil, notExist("lstat", root))
	}

	var skipped []string
	for _, entry := range entries {
		if entry.Path != root && !strings.HasPrefix(entry.Path, root+string(filepath.Separator)) {
			continue
		}
		if under(entry.Path, skipped) {
			continue
		}
		if err := fn(entry.Path, entry.Info, entry.Err); err != nil {
			if err == filepath.SkipAll {
				return nil
			}
			if err == filepath.SkipDir {
				if entry.Info != nil && entry.Info.IsDir() {
					skipped = append(skipped, entry.Path)
				} else {
					skipped = append(skipped, filepath.Dir(entry.Path))
				}
				continue
			}
			return err
		}
	}
	return nil
}

func under(path string, dirs []string) bool {
	for _, d := range dirs {
		if strings.HasPrefix(path, d+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// tree synthesizes walk entries for root from Files and Stats.
func (m *MockFileSystem) tree(root string) []WalkEntry {
	if _, ok := m.Files[root]; !ok && !m.isDir(root) {
		return nil
	}

	paths := map[string]bool{root: true}
	prefix := root + string(filepath.Separator)
	add := func(p string) {
		if !strings.HasPrefix(p, prefix) {
			return
		}
		for dir := p; dir != root && strings.HasPrefix(dir, prefix); dir = filepath.Dir(dir) {
			paths[dir] = true
		}
	}
	for k := range m.Files {
		add(k)
	}
	for k := range m.Stats {
		add(k)
	}

	sorted := make([]string, 0, len(paths))
	for p := range paths {
		sorted = append(sorted, p)
	}
	sort.Strings(sorted)

	entries := make([]WalkEntry, 0, len(sorted))
	for _, p := range sorted {
		info, err := m.Stat(p)
		entries = append(entries, WalkEntry{Path: p, Info: info, Err: err})
	}
	return entries
}

// MockDirEntry implements os.DirEntry for testing.
type MockDirEntry struct {
	EntryName string
	Dir       bool
}

func (d *MockDirEntry) Name() string { return d.EntryName }
func (d *MockDirEntry) IsDir() bool  { return d.Dir }
func (d *MockDirEntry) Type() fs.FileMode {
	if d.Dir {
		return fs.ModeDir
	}
	return 0
}
func (d *MockDirEntry) Info() (fs.FileInfo, error) {
	return &mockFileInfo{name: d.EntryName, isDir: d.Dir}, nil
}

// mockFileInfo implements os.FileInfo for testing.
type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

// NewFileInfo returns an os.FileInfo suitable for seeding Stats or WalkEntries.
func NewFileInfo(name string, size int64, isDir bool) os.FileInfo {
	return &mockFileInfo{name: name, size: size, isDir: isDir}
}

func (fi *mockFileInfo) Name() string       { return fi.name }
func (fi *mockFileInfo) Size() int64        { return fi.size }
func (fi *mockFileInfo) Mode() os.FileMode  { return fi.mode }
func (fi *mockFileInfo) ModTime() time.Time { return fi.modTime }
func (fi *mockFileInfo) IsDir() bool        { return fi.isDir }
func (fi *mockFileInfo) Sys() interface{}   { return nil }

// mockFile implements fs.File for testing.
type mockFile struct {
	name    string
	content []byte
	offset  int
}

func (f *mockFile) Stat() (fs.FileInfo, error) {
	return &mockFileInfo{name: f.name, size: int64(len(f.content))}, nil
}

func (f *mockFile) Read(p []byte) (int, error) {
	if f.offset >= len(f.content) {
		return 0, io.EOF
	}
	n := copy(p, f.content[f.offset:])
	f.offset += n
	return n, nil
}

func (f *mockFile) Close() error { return nil }

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
