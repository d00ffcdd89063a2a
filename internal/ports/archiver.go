package ports

import "context"

// Archiver abstracts the external asar packer/unpacker.
// Production code uses the execasar adapter; tests use MockArchiver.
type Archiver interface {
	// Extract unpacks archivePath into destDir.
	Extract(ctx context.Context, archivePath, destDir string) CommandResult

	// Pack builds a new archive at archivePath from the contents of sourceDir.
	Pack(ctx context.Context, sourceDir, archivePath string) CommandResult
}
