//go:build windows

package osfs

import (
	"golang.org/x/sys/windows"
)

// replaceFile moves src over dst with MoveFileEx, which succeeds in cases
// where a plain rename is refused and falls back to copy+delete across volumes.
func replaceFile(src, dst string) error {
	from, err := windows.UTF16PtrFromString(src)
	if err != nil {
		return err
	}
	to, err := windows.UTF16PtrFromString(dst)
	if err != nil {
		return err
	}
	return windows.MoveFileEx(from, to,
		windows.MOVEFILE_REPLACE_EXISTING|windows.MOVEFILE_COPY_ALLOWED|windows.MOVEFILE_WRITE_THROUGH)
}
