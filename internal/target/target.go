// Package target resolves a user-supplied application path into the set of
// paths an archive cycle works with.
package target

import (
	"path/filepath"
	"sort"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// DefaultBackupSuffix is appended to the archive path to form the backup slot.
const DefaultBackupSuffix = ".backup"

// TempSuffix is appended to the extraction directory to form the temp archive.
const TempSuffix = ".asar.new"

// Target is an application whose archive is being edited. It is immutable;
// resolve a new Target when the user picks a different application.
type Target struct {
	Name            string
	Root            string
	ArchivePath     string
	ExtractionDir   string
	TempArchivePath string
	BackupPath      string
}

// Resolve computes a Target for appPath. appPath may be the application
// directory, a macOS .app bundle, or the executable inside the directory.
// The archive does not need to exist; Extract reports that case.
func Resolve(fsys ports.FileSystem, appPath, workspace, backupSuffix string) (Target, error) {
	if appPath == "" {
		return Target{}, goerr.New("application path is empty")
	}
	if workspace == "" {
		return Target{}, goerr.New("workspace directory is empty")
	}
	if backupSuffix == "" {
		backupSuffix = DefaultBackupSuffix
	}

	absApp, err := filepath.Abs(appPath)
	if err != nil {
		return Target{}, goerr.Wrap(err, "failed to resolve application path", goerr.V("path", appPath))
	}
	absWorkspace, err := filepath.Abs(workspace)
	if err != nil {
		return Target{}, goerr.Wrap(err, "failed to resolve workspace", goerr.V("path", workspace))
	}

	info, err := fsys.Stat(absApp)
	if err != nil {
		return Target{}, goerr.Wrap(err, "application path not found", goerr.V("path", absApp))
	}

	var root, name string
	if info.IsDir() {
		root = absApp
		name = strings.TrimSuffix(filepath.Base(absApp), ".app")
	} else {
		root = filepath.Dir(absApp)
		base := filepath.Base(absApp)
		name = strings.TrimSuffix(base, filepath.Ext(base))
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		return Target{}, goerr.New("cannot derive application name", goerr.V("path", absApp))
	}

	archive := findArchive(fsys, root)
	extraction := filepath.Join(absWorkspace, name)

	if Contains(root, extraction) {
		return Target{}, goerr.New("workspace must not be inside the application directory",
			goerr.V("root", root), goerr.V("extraction_dir", extraction))
	}
	if Contains(extraction, root) || Contains(extraction, archive) {
		return Target{}, goerr.New("application must not be inside the extraction directory",
			goerr.V("root", root), goerr.V("extraction_dir", extraction))
	}

	return Target{
		Name:            name,
		Root:            root,
		ArchivePath:     archive,
		ExtractionDir:   extraction,
		TempArchivePath: extraction + TempSuffix,
		BackupPath:      archive + backupSuffix,
	}, nil
}

// findArchive returns the first existing candidate archive under root, or the
// conventional location when none exists.
func findArchive(fsys ports.FileSystem, root string) string {
	expected := filepath.Join(root, "resources", "app.asar")
	candidates := []string{
		expected,
		filepath.Join(root, "Contents", "Resources", "app.asar"),
	}
	for _, c := range candidates {
		if isFile(fsys, c) {
			return c
		}
	}

	resources := filepath.Join(root, "resources")
	entries, err := fsys.ReadDir(resources)
	if err != nil {
		return expected
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".asar") {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return expected
	}
	sort.Strings(names)
	return filepath.Join(resources, names[0])
}

func isFile(fsys ports.FileSystem, name string) bool {
	info, err := fsys.Stat(name)
	return err == nil && !info.IsDir()
}

// Contains reports whether path is dir itself or lies beneath it.
func Contains(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
