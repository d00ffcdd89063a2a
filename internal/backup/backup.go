// Package backup manages the single backup slot that sits next to an
// application's archive.
package backup

import (
	"fmt"

	"github.com/m-mizutani/goerr/v2"

	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/ports"
)

// Result describes a backup slot that was written and verified.
type Result struct {
	Path      string
	SHA256    string
	SizeBytes int64
}

// Create copies archivePath into backupPath, replacing any previous backup,
// and verifies the copy by hash. The copy is staged by the filesystem so a
// failed copy leaves the previous slot intact. The original is never modified.
func Create(fsys ports.FileSystem, archivePath, backupPath string) (Result, error) {
	want, err := manifest.ComputeSHA256(fsys, archivePath)
	if err != nil {
		return Result{}, goerr.Wrap(err, "failed to hash original archive", goerr.V("path", archivePath))
	}

	if err := fsys.CopyFile(archivePath, backupPath); err != nil {
		return Result{}, goerr.Wrap(err, "failed to copy archive to backup slot",
			goerr.V("src", archivePath), goerr.V("dst", backupPath))
	}

	got, err := manifest.ComputeSHA256(fsys, backupPath)
	if err != nil {
		return Result{}, goerr.Wrap(err, "failed to hash backup", goerr.V("path", backupPath))
	}
	if got != want {
		return Result{}, goerr.New("backup does not match original",
			goerr.V("path", backupPath), goerr.V("expected", want), goerr.V("actual", got))
	}

	var size int64
	if info, err := fsys.Stat(backupPath); err == nil {
		size = info.Size()
	}

	return Result{Path: backupPath, SHA256: got, SizeBytes: size}, nil
}

// Verify reports whether the slot at backupPath hashes to expected.
func Verify(fsys ports.FileSystem, backupPath, expected string) (bool, string, error) {
	got, err := manifest.ComputeSHA256(fsys, backupPath)
	if err != nil {
		return false, "", goerr.Wrap(err, "failed to hash backup", goerr.V("path", backupPath))
	}
	return got == expected, got, nil
}

// FormatSize formats bytes as human-readable
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
