package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mcdonaldj/asarkit/internal/config"
	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/mocks"
	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/tui"
)

const (
	appDir      = "/apps/Foo"
	archivePath = "/apps/Foo/resources/app.asar"
	backupPath  = "/apps/Foo/resources/app.asar.backup"
	extractDir  = "/work/Foo"
)

// mockConfigService implements ConfigService for testing.
type mockConfigService struct {
	config     *config.Config
	loadErr    error
	saveErr    error
	saved      *config.Config
	configPath string
}

func newMockConfigService() *mockConfigService {
	cfg := config.DefaultConfig()
	cfg.WorkspaceDir = "/work"
	cfg.Log.Level = "error"
	return &mockConfigService{
		config:     cfg,
		configPath: "/test/.asarkit/config.yaml",
	}
}

func (m *mockConfigService) Load() (*config.Config, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return m.config, nil
}

func (m *mockConfigService) Save(cfg *config.Config) error {
	m.saved = cfg
	return m.saveErr
}

func (m *mockConfigService) ConfigPath() (string, error) {
	return m.configPath, nil
}

type harness struct {
	out      *bytes.Buffer
	err      *bytes.Buffer
	exitCode int
	cfg      *mockConfigService
	fs       *mocks.MockFileSystem
	archiver *mocks.MockArchiver
	runner   *mocks.MockRunner

	browsed   tui.Service
	browseErr error
}

func newHarness() *harness {
	h := &harness{
		out:      &bytes.Buffer{},
		err:      &bytes.Buffer{},
		cfg:      newMockConfigService(),
		fs:       mocks.NewMockFileSystem(),
		archiver: mocks.NewMockArchiver(),
		runner:   mocks.NewMockRunner(),
	}
	h.fs.Files[archivePath] = []byte("original")
	h.archiver.OnExtract = func(_, dest string) {
		h.fs.Files[filepath.Join(dest, "package.json")] = []byte(`{"main":"dist/main.js"}`)
		h.fs.Files[filepath.Join(dest, "dist", "main.js")] = []byte("line1\nline2\n")
	}
	h.archiver.OnPack = func(_, archive string) {
		h.fs.Files[archive] = []byte("rebuilt")
	}
	return h
}

func (h *harness) run(args ...string) {
	h.out.Reset()
	h.err.Reset()
	h.exitCode = 0

	c := NewForTesting(h.out, h.err, append([]string{"asarkit"}, args...))
	c.Exit = func(code int) { h.exitCode = code }
	c.ConfigSvc = h.cfg
	c.FS = h.fs
	c.Archiver = h.archiver
	c.Runner = h.runner
	c.LookPath = func(string) (string, error) { return "/usr/bin/xdg-open", nil }
	c.Browse = func(_ context.Context, svc tui.Service) error {
		h.browsed = svc
		return h.browseErr
	}
	c.Run()
}

func (h *harness) expectOut(t *testing.T, substrings ...string) {
	t.Helper()
	for _, s := range substrings {
		if !strings.Contains(h.out.String(), s) {
			t.Errorf("output missing %q:\n%s", s, h.out.String())
		}
	}
}

func (h *harness) expectExit(t *testing.T, code int) {
	t.Helper()
	if h.exitCode != code {
		t.Errorf("exit code = %d, expected %d\nstdout:\n%s\nstderr:\n%s", h.exitCode, code, h.out.String(), h.err.String())
	}
}

func TestRunNoCommand(t *testing.T) {
	h := newHarness()
	h.run()
	h.expectOut(t, "Usage:", "asarkit extract")
	h.expectExit(t, 0)
}

func TestUnknownCommand(t *testing.T) {
	h := newHarness()
	h.run("bogus")
	h.expectExit(t, 1)
	if !strings.Contains(h.err.String(), "Unknown command: bogus") {
		t.Errorf("stderr = %q", h.err.String())
	}
}

func TestVersion(t *testing.T) {
	for _, arg := range []string{"version", "-v", "--version"} {
		h := newHarness()
		h.run(arg)
		h.expectOut(t, "asarkit vtest")
	}
}

func TestConfigLoadError(t *testing.T) {
	h := newHarness()
	h.cfg.loadErr = errors.New("broken yaml")
	h.run("status", appDir)
	h.expectExit(t, 1)
	if !strings.Contains(h.err.String(), "broken yaml") {
		t.Errorf("stderr = %q", h.err.String())
	}
}

func TestMissingAppArgument(t *testing.T) {
	commands := []string{"extract", "repack", "restore", "verify", "status", "changes", "watch", "history", "sourcemaps", "devtools", "open", "ui"}
	for _, cmd := range commands {
		t.Run(cmd, func(t *testing.T) {
			h := newHarness()
			h.run(cmd)
			h.expectExit(t, 1)
			h.expectOut(t, "Usage: asarkit "+cmd)
		})
	}
}

func TestUnknownApplication(t *testing.T) {
	h := newHarness()
	h.run("status", "/apps/Nope")
	h.expectExit(t, 1)
	if !strings.Contains(h.err.String(), "application path not found") {
		t.Errorf("stderr = %q", h.err.String())
	}
}

func TestExtract(t *testing.T) {
	h := newHarness()
	h.run("extract", appDir)

	h.expectExit(t, 0)
	h.expectOut(t, "Extracting Foo...", "Extracted to "+extractDir, "asarkit repack "+appDir)
	if _, ok := h.fs.Files[filepath.Join(extractDir, "package.json")]; !ok {
		t.Error("extraction directory should be populated")
	}
	if _, ok := h.fs.Files[manifest.ManifestPath("/work", "Foo")]; !ok {
		t.Error("extraction should be journaled")
	}
}

func TestExtractReuseAndClean(t *testing.T) {
	h := newHarness()
	h.fs.Files[filepath.Join(extractDir, "notes.txt")] = []byte("mine")

	h.run("extract", appDir)
	h.expectOut(t, "existing directory reused")
	if _, ok := h.fs.Files[filepath.Join(extractDir, "notes.txt")]; !ok {
		t.Error("re-extract should keep files from earlier runs")
	}

	h.run("extract", "--clean", appDir)
	h.expectExit(t, 0)
	if _, ok := h.fs.Files[filepath.Join(extractDir, "notes.txt")]; ok {
		t.Error("--clean should remove the previous extraction")
	}
}

func TestExtractArchiveNotFound(t *testing.T) {
	h := newHarness()
	delete(h.fs.Files, archivePath)
	h.fs.Stats[appDir] = mocks.NewFileInfo("Foo", 0, true)

	h.run("extract", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "archive not found", archivePath)
	if len(h.archiver.ExtractCalls) != 0 {
		t.Error("unpacker should not run without an archive")
	}
}

func TestExtractToolNotFound(t *testing.T) {
	h := newHarness()
	h.archiver.Results["Extract"] = ports.CommandResult{Kind: ports.ToolNotFound, ExitCode: -1, Argv: []string{"npx"}}

	h.run("extract", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "tool not found", "npx")
}

func TestRepack(t *testing.T) {
	h := newHarness()
	h.run("extract", appDir)
	h.run("repack", appDir)

	h.expectExit(t, 0)
	h.expectOut(t, "Packing Foo...", "Backup: "+backupPath, "Replaced "+archivePath, "direct move")
	if string(h.fs.Files[archivePath]) != "rebuilt" {
		t.Errorf("archive = %q, expected the packed archive", h.fs.Files[archivePath])
	}
	if string(h.fs.Files[backupPath]) != "original" {
		t.Errorf("backup = %q, expected the original", h.fs.Files[backupPath])
	}
}

func TestRepackPackFailure(t *testing.T) {
	h := newHarness()
	h.archiver.Results["Pack"] = ports.CommandResult{Kind: ports.Completed, ExitCode: 1, Stderr: "invalid directory"}

	h.run("repack", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "tool failed", "invalid directory")
	if string(h.fs.Files[archivePath]) != "original" {
		t.Error("original archive must be untouched")
	}
	if _, ok := h.fs.Files[backupPath]; ok {
		t.Error("no backup should be written when packing fails")
	}
}

func TestRepackSwapFailure(t *testing.T) {
	h := newHarness()
	h.fs.MethodErrors["Rename"] = errors.New("file in use")
	h.fs.MethodErrors["ReplaceFile"] = errors.New("file in use")

	h.run("repack", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "filesystem failure", "direct move: file in use", "native replace: file in use", "asarkit restore")
	if string(h.fs.Files[backupPath]) != "original" {
		t.Error("backup must hold the original after a failed swap")
	}
}

func TestRestore(t *testing.T) {
	h := newHarness()
	h.run("repack", appDir)
	h.run("restore", appDir)

	h.expectExit(t, 0)
	h.expectOut(t, "Restored original archive")
	if string(h.fs.Files[archivePath]) != "original" {
		t.Errorf("archive = %q, expected the original", h.fs.Files[archivePath])
	}
}

func TestRestoreNoBackup(t *testing.T) {
	h := newHarness()
	h.run("restore", appDir)
	h.expectExit(t, 1)
	if !strings.Contains(h.err.String(), "no backup found") {
		t.Errorf("stderr = %q", h.err.String())
	}
}

func TestVerify(t *testing.T) {
	h := newHarness()
	h.run("repack", appDir)

	h.run("verify", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "Checksum verified for "+backupPath)

	h.fs.Files[backupPath] = []byte("tampered")
	h.run("verify", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "Checksum mismatch", "expected:", "actual:")
}

func TestVerifyUnrecorded(t *testing.T) {
	h := newHarness()
	h.fs.Files[backupPath] = []byte("original")

	h.run("verify", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "No recorded checksum")
}

func TestStatus(t *testing.T) {
	h := newHarness()
	h.run("status", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "Foo:", archivePath, "(8 B)", "(missing)", "not extracted", "Last run:   none")

	h.run("extract", appDir)
	h.fs.Files["/work/Foo.asar.new"] = []byte("stale")
	h.run("status", appDir)
	h.expectOut(t, "extracted", "leftover /work/Foo.asar.new", "Last run:   extract")
}

func TestChanges(t *testing.T) {
	h := newHarness()
	h.run("extract", appDir)

	h.run("changes", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "No changes")

	h.fs.Files[filepath.Join(extractDir, "dist", "main.js")] = []byte("line1\nedited\n")
	h.fs.Files[filepath.Join(extractDir, "extra.js")] = []byte("new")
	delete(h.fs.Files, filepath.Join(extractDir, "package.json"))

	h.run("changes", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "M dist/main.js", "A extra.js", "D package.json", "1 modified, 1 added, 1 deleted")
}

func TestChangesWithoutExtraction(t *testing.T) {
	h := newHarness()
	h.run("changes", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "No extraction recorded")
}

func TestDiff(t *testing.T) {
	h := newHarness()
	h.run("extract", appDir)
	h.fs.Files[filepath.Join(extractDir, "dist", "main.js")] = []byte("line1\nedited\n")

	h.run("diff", appDir, "dist/main.js")
	h.expectExit(t, 0)
	h.expectOut(t, "M dist/main.js", " line1", "-line2", "+edited")
}

func TestDiffUsage(t *testing.T) {
	h := newHarness()
	h.run("diff", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "Usage: asarkit diff <app> <file>")
}

func TestHistory(t *testing.T) {
	h := newHarness()
	h.run("history", appDir)
	h.expectOut(t, "No history for Foo")

	h.run("extract", appDir)
	h.run("repack", appDir)
	h.run("history", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "History for Foo", "extract", "repack", "direct move")
}

func TestSourceMaps(t *testing.T) {
	h := newHarness()
	h.run("extract", appDir)
	h.fs.Files[filepath.Join(extractDir, "dist", "main.js.map")] = []byte(`{"version":3,"sources":["a.ts"]}`)

	h.run("sourcemaps", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "dist/main.js.map", "1 sources", "1 source maps")
}

func TestDevTools(t *testing.T) {
	h := newHarness()
	h.run("devtools", appDir)
	h.expectExit(t, 1)

	h.run("extract", appDir)
	h.run("devtools", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "Main script: dist/main.js", "openDevTools()")
}

func TestOpen(t *testing.T) {
	h := newHarness()
	h.cfg.config.OpenCommand = []string{"code"}

	h.run("open", appDir)
	h.expectExit(t, 1)
	h.expectOut(t, "not extracted yet")

	h.run("extract", appDir)
	h.run("open", appDir)
	h.expectExit(t, 0)
	call, ok := h.runner.LastCall()
	if !ok || strings.Join(call.Argv, " ") != "code "+extractDir {
		t.Errorf("opener argv = %v", call.Argv)
	}
}

func TestUI(t *testing.T) {
	h := newHarness()
	h.run("extract", appDir)
	h.expectExit(t, 0)

	h.fs.Files[filepath.Join(extractDir, "dist", "main.js")] = []byte("line1\nedited\n")
	h.run("ui", appDir)
	h.expectExit(t, 0)

	if h.browsed == nil {
		t.Fatal("browser was not started")
	}
	if h.browsed.App() != "Foo" {
		t.Errorf("App() = %q, expected Foo", h.browsed.App())
	}
	res, err := h.browsed.Changes()
	if err != nil {
		t.Fatalf("Changes failed: %v", err)
	}
	if res.Modified != 1 {
		t.Errorf("modified = %d, expected 1", res.Modified)
	}
}

func TestUIError(t *testing.T) {
	h := newHarness()
	h.browseErr = errors.New("no tty")
	h.run("ui", appDir)
	h.expectExit(t, 1)
	if !strings.Contains(h.err.String(), "no tty") {
		t.Errorf("stderr = %q", h.err.String())
	}
}

func TestDoctor(t *testing.T) {
	h := newHarness()
	h.runner.Default = &ports.CommandResult{Kind: ports.Completed, Stdout: "v1.0.0\n"}

	h.run("doctor")
	h.expectExit(t, 0)
	h.expectOut(t, "* node v1.0.0", "* npm", "* archiver (npx --yes @electron/asar)")

	h.runner.Results["node"] = ports.CommandResult{Kind: ports.ToolNotFound, ExitCode: -1}
	h.run("doctor")
	h.expectExit(t, 1)
	h.expectOut(t, "x node", "nodejs.org")
}

func TestWatch(t *testing.T) {
	workspace := t.TempDir()
	if err := os.Mkdir(filepath.Join(workspace, "Foo"), 0755); err != nil {
		t.Fatal(err)
	}

	h := newHarness()
	h.cfg.config.WorkspaceDir = workspace
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewForTesting(h.out, h.err, []string{"asarkit", "watch", appDir})
	c.Exit = func(code int) { h.exitCode = code }
	c.ConfigSvc = h.cfg
	c.FS = h.fs
	c.Context = ctx
	c.Run()

	h.expectExit(t, 0)
	h.expectOut(t, "Watching "+filepath.Join(workspace, "Foo"), "Stopped after 0 events")
}

func TestWatchNotExtracted(t *testing.T) {
	h := newHarness()
	h.cfg.config.WorkspaceDir = t.TempDir()
	h.run("watch", appDir)
	h.expectExit(t, 1)
}

func TestInitConfig(t *testing.T) {
	h := newHarness()
	h.cfg.configPath = filepath.Join(t.TempDir(), "config.yaml")

	h.run("init")
	h.expectExit(t, 0)
	h.expectOut(t, "Created config at "+h.cfg.configPath)
	if h.cfg.saved == nil || h.cfg.saved.PackTimeout != config.DefaultConfig().PackTimeout {
		t.Error("init should save the default config")
	}
}

func TestInitConfigExisting(t *testing.T) {
	h := newHarness()
	h.cfg.configPath = filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(h.cfg.configPath, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	h.run("init")
	h.expectOut(t, "Config already exists")
	if h.cfg.saved != nil {
		t.Error("init must not overwrite an existing config")
	}
}

func TestInitConfigSaveError(t *testing.T) {
	h := newHarness()
	h.cfg.configPath = filepath.Join(t.TempDir(), "config.yaml")
	h.cfg.saveErr = errors.New("read-only")

	h.run("init")
	h.expectExit(t, 1)
}

func TestDebugFlagIsNotAnArgument(t *testing.T) {
	h := newHarness()
	h.run("--debug", "status", appDir)
	h.expectExit(t, 0)
	h.expectOut(t, "Foo:")
	if !strings.Contains(h.err.String(), "level=DEBUG") {
		t.Errorf("--debug should enable debug logging, stderr = %q", h.err.String())
	}
}
