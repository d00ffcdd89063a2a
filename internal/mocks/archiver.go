package mocks

import (
	"context"

	"github.com/mcdonaldj/asarkit/internal/ports"
)

// MockArchiver implements ports.Archiver for testing.
type MockArchiver struct {
	// ExtractCalls records calls to Extract
	ExtractCalls []ExtractCall
	// PackCalls records calls to Pack
	PackCalls []PackCall
	// Results maps method names ("Extract", "Pack") to the result returned.
	// Missing entries return a successful completion.
	Results map[string]ports.CommandResult
	// OnExtract runs after a successful Extract, typically to populate destDir
	OnExtract func(archivePath, destDir string)
	// OnPack runs after a successful Pack, typically to write archivePath
	OnPack func(sourceDir, archivePath string)
}

// ExtractCall records parameters of an Extract call.
type ExtractCall struct {
	ArchivePath string
	DestDir     string
}

// PackCall records parameters of a Pack call.
type PackCall struct {
	SourceDir   string
	ArchivePath string
}

// NewMockArchiver creates a new mock archiver.
func NewMockArchiver() *MockArchiver {
	return &MockArchiver{
		Results: make(map[string]ports.CommandResult),
	}
}

// Extract records the call and returns the configured result.
func (m *MockArchiver) Extract(ctx context.Context, archivePath, destDir string) ports.CommandResult {
	m.ExtractCalls = append(m.ExtractCalls, ExtractCall{ArchivePath: archivePath, DestDir: destDir})
	res := m.result("Extract", "extract", archivePath, destDir)
	if res.OK() && m.OnExtract != nil {
		m.OnExtract(archivePath, destDir)
	}
	return res
}

// Pack records the call and returns the configured result.
func (m *MockArchiver) Pack(ctx context.Context, sourceDir, archivePath string) ports.CommandResult {
	m.PackCalls = append(m.PackCalls, PackCall{SourceDir: sourceDir, ArchivePath: archivePath})
	res := m.result("Pack", "pack", sourceDir, archivePath)
	if res.OK() && m.OnPack != nil {
		m.OnPack(sourceDir, archivePath)
	}
	return res
}

func (m *MockArchiver) result(method string, args ...string) ports.CommandResult {
	res, ok := m.Results[method]
	if !ok {
		res = ports.CommandResult{Kind: ports.Completed}
	}
	if res.Argv == nil {
		res.Argv = append([]string{"asar"}, args...)
	}
	return res
}

// Compile-time check that MockArchiver implements ports.Archiver.
var _ ports.Archiver = (*MockArchiver)(nil)
