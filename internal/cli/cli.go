// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/mcdonaldj/asarkit/internal/adapters/execasar"
	"github.com/mcdonaldj/asarkit/internal/adapters/execrunner"
	"github.com/mcdonaldj/asarkit/internal/adapters/osfs"
	"github.com/mcdonaldj/asarkit/internal/adapters/tuisvc"
	"github.com/mcdonaldj/asarkit/internal/backup"
	"github.com/mcdonaldj/asarkit/internal/changes"
	"github.com/mcdonaldj/asarkit/internal/config"
	"github.com/mcdonaldj/asarkit/internal/inspect"
	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/opener"
	"github.com/mcdonaldj/asarkit/internal/output"
	"github.com/mcdonaldj/asarkit/internal/ports"
	"github.com/mcdonaldj/asarkit/internal/recovery"
	"github.com/mcdonaldj/asarkit/internal/target"
	"github.com/mcdonaldj/asarkit/internal/toolcheck"
	"github.com/mcdonaldj/asarkit/internal/tui"
	"github.com/mcdonaldj/asarkit/internal/watch"
	"github.com/mcdonaldj/asarkit/internal/workflow"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	ConfigPath() (string, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Context is cancelled on interrupt. Defaults to context.Background().
	Context context.Context

	// Injectable dependencies (nil means use defaults)
	ConfigSvc ConfigService
	FS        ports.FileSystem
	Runner    ports.CommandRunner
	Archiver  ports.Archiver
	LookPath  func(string) (string, error)

	// Browse runs the interactive browser (defaults to tui.Run)
	Browse func(ctx context.Context, svc tui.Service) error

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string

	debug bool
	clean bool
	args  []string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		Version: version,
		Args:    os.Args,
		Exit:    os.Exit,
		green:   color.New(color.FgGreen, color.Bold).SprintFunc(),
		yellow:  color.New(color.FgYellow).SprintFunc(),
		cyan:    color.New(color.FgCyan).SprintFunc(),
		gray:    color.New(color.FgHiBlack).SprintFunc(),
		red:     color.New(color.FgRed).SprintFunc(),
	}
}

// NewForTesting creates a CLI configured for testing (no colors, captured output).
func NewForTesting(out, errOut io.Writer, args []string) *CLI {
	noColor := func(a ...interface{}) string { return fmt.Sprint(a...) }
	return &CLI{
		Out:     out,
		Err:     errOut,
		Version: "test",
		Args:    args,
		Exit:    func(int) {},
		green:   noColor,
		yellow:  noColor,
		cyan:    noColor,
		gray:    noColor,
		red:     noColor,
	}
}

// defaultConfigService wraps the config package functions.
type defaultConfigService struct{}

func (d *defaultConfigService) Load() (*config.Config, error) { return config.Load() }
func (d *defaultConfigService) Save(cfg *config.Config) error { return cfg.Save() }
func (d *defaultConfigService) ConfigPath() (string, error)   { return config.ConfigPath() }

func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) ctx() context.Context {
	if c.Context != nil {
		return c.Context
	}
	return context.Background()
}

// env is everything a command needs, built from the loaded config.
type env struct {
	cfg       *config.Config
	workspace string
	logger    *slog.Logger
	fs        ports.FileSystem
	runner    ports.CommandRunner
	archiver  ports.Archiver
	journal   *manifest.Journal
}

func (c *CLI) setup() (*env, bool) {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return nil, false
	}
	workspace, err := cfg.Workspace()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return nil, false
	}

	logCfg := cfg.Log
	logCfg.Debug = c.debug
	logger := logCfg.Configure(c.Err)
	logger.Debug("config loaded", slog.String("workspace", workspace), slog.Any("archiver", cfg.Archiver))

	e := &env{cfg: cfg, workspace: workspace, logger: logger, fs: c.FS, runner: c.Runner, archiver: c.Archiver}
	if e.fs == nil {
		e.fs = osfs.New()
	}
	if e.runner == nil {
		e.runner = execrunner.New(execrunner.WithLogger(logger))
	}
	if e.archiver == nil {
		e.archiver = execasar.New(e.runner,
			execasar.WithCommand(cfg.Archiver),
			execasar.WithExtractTimeout(cfg.ExtractTimeout),
			execasar.WithPackTimeout(cfg.PackTimeout))
	}
	e.journal = manifest.NewJournal(e.fs, workspace, cfg.History.KeepLast)
	return e, true
}

func (c *CLI) resolve(e *env, usage string) (target.Target, bool) {
	if len(c.args) < 2 {
		fmt.Fprintf(c.Out, "Usage: asarkit %s\n", usage)
		c.Exit(1)
		return target.Target{}, false
	}
	t, err := target.Resolve(e.fs, c.args[1], e.workspace, e.cfg.BackupSuffix)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return target.Target{}, false
	}
	return t, true
}

func (c *CLI) workflowSvc(e *env) *workflow.Service {
	return workflow.NewService(e.fs, e.archiver, workflow.WithLogger(e.logger), workflow.WithJournal(e.journal))
}

func (c *CLI) recoverySvc(e *env) *recovery.Service {
	return recovery.NewService(e.fs, e.journal, recovery.WithLogger(e.logger))
}

func (c *CLI) parseFlags() {
	c.args = nil
	c.debug, c.clean = false, false
	for _, arg := range c.Args[1:] {
		switch arg {
		case "--debug":
			c.debug = true
		case "--clean":
			c.clean = true
		default:
			c.args = append(c.args, arg)
		}
	}
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	if len(c.Args) < 2 {
		c.PrintUsage()
		return
	}
	c.parseFlags()
	if len(c.args) == 0 {
		c.PrintUsage()
		return
	}

	switch c.args[0] {
	case "extract":
		c.RunExtract()
	case "repack":
		c.RunRepack()
	case "restore":
		c.RunRestore()
	case "verify":
		c.RunVerify()
	case "status":
		c.ShowStatus()
	case "changes":
		c.ShowChanges()
	case "diff":
		c.ShowDiff()
	case "watch":
		c.RunWatch()
	case "history":
		c.ShowHistory()
	case "sourcemaps":
		c.ShowSourceMaps()
	case "devtools":
		c.ShowDevTools()
	case "open":
		c.RunOpen()
	case "ui", "tui":
		c.RunUI()
	case "doctor":
		c.RunDoctor()
	case "init":
		c.InitConfig()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "asarkit v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", c.args[0])
		c.PrintUsage()
		c.Exit(1)
	}
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `asarkit - Electron app.asar extract and repack tool

Usage:
  asarkit extract <app> [--clean]          Unpack the app archive into the workspace
  asarkit repack <app>                     Pack the workspace copy, back up and swap it in
  asarkit restore <app>                    Put the backed up original archive back
  asarkit verify <app>                     Check the backup against its recorded checksum
  asarkit status <app>                     Show archive, backup and workspace paths
  asarkit changes <app>                    List files edited since the last extract
  asarkit diff <app> <file>                Show a line diff against the original archive
  asarkit watch <app>                      Report edits in the workspace copy until Ctrl-C
  asarkit history <app>                    List recorded extract, repack and restore runs
  asarkit sourcemaps <app>                 List source maps in the workspace copy
  asarkit devtools <app>                   Show how to open DevTools from the main script
  asarkit open <app>                       Open the workspace copy in the file manager
  asarkit ui <app>                         Browse changes, diffs and history interactively
  asarkit doctor                           Check node, npm, asar and the opener
  asarkit init                             Create default config file
  asarkit version, -v                      Show version
  asarkit help, -h                         Show this help

<app> is the application directory, a .app bundle or its executable.
--debug enables debug logging for any command.

Config: ~/.asarkit/config.yaml (override with ASARKIT_CONFIG)`)
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	path, err := svc.ConfigPath()
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if _, err := os.Stat(path); err == nil {
		fmt.Fprintf(c.Out, "Config already exists at %s\n", path)
		return
	}
	if err := svc.Save(config.DefaultConfig()); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", path)
}

// RunExtract unpacks an application archive.
func (c *CLI) RunExtract() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "extract <app> [--clean]")
	if !ok {
		return
	}

	fmt.Fprintf(c.Out, "%s Archive: %s\n", c.cyan("=>"), t.ArchivePath)
	spinner := output.NewSpinner(c.Out, "Extracting "+t.Name, e.cfg.ExtractTimeout)
	res := output.Run(spinner, func() workflow.ExtractionResult {
		return c.workflowSvc(e).Extract(c.ctx(), t, workflow.ExtractOptions{Clean: c.clean})
	})

	if !res.Success {
		c.failure(string(res.Kind), res.Detail, res.Err)
		return
	}

	fmt.Fprintf(c.Out, "%s Extracted to %s\n", c.green("*"), res.ExtractionDir)
	if res.Reused && !c.clean {
		fmt.Fprintf(c.Out, "  %s\n", c.gray("existing directory reused; pass --clean to start fresh"))
	}
	fmt.Fprintf(c.Out, "  Edit the files, then run: asarkit repack %s\n", c.args[1])
}

// RunRepack packs the extraction directory and swaps it into place.
func (c *CLI) RunRepack() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "repack <app>")
	if !ok {
		return
	}

	fmt.Fprintf(c.Out, "%s Source: %s\n", c.cyan("=>"), t.ExtractionDir)
	spinner := output.NewSpinner(c.Out, "Packing "+t.Name, e.cfg.PackTimeout)
	res := output.Run(spinner, func() workflow.RepackOutcome {
		return c.workflowSvc(e).RepackAndApply(c.ctx(), t, t.ExtractionDir)
	})

	for _, a := range res.Attempts {
		if a.Err != nil {
			fmt.Fprintf(c.Out, "  %s %s: %v\n", c.yellow("!"), a.Strategy, a.Err)
		}
	}
	if res.BackupPath != "" {
		fmt.Fprintf(c.Out, "  Backup: %s\n", res.BackupPath)
	}

	if !res.Success {
		if res.Kind == workflow.FilesystemFailure && res.BackupPath != "" {
			fmt.Fprintf(c.Out, "  %s\n", c.gray("the original is safe in the backup; run asarkit restore to put it back"))
		}
		c.failure(string(res.Kind), res.Detail, res.Err)
		return
	}

	fmt.Fprintf(c.Out, "%s Replaced %s (%s)\n", c.green("*"), t.ArchivePath, res.Strategy)
}

// RunRestore swaps the backup back onto the archive path.
func (c *CLI) RunRestore() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "restore <app>")
	if !ok {
		return
	}

	fmt.Fprintf(c.Out, "%s Restoring %s from %s...\n", c.yellow("!"), t.ArchivePath, t.BackupPath)
	res, err := c.recoverySvc(e).Restore(c.ctx(), t)
	for _, a := range res.Attempts {
		if a.Err != nil {
			fmt.Fprintf(c.Out, "  %s %s: %v\n", c.yellow("!"), a.Strategy, a.Err)
		}
	}
	if err != nil {
		fmt.Fprintf(c.Err, "Restore failed: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s Restored original archive (%s)\n", c.green("*"), res.Strategy)
}

// RunVerify checks the backup slot against the journal.
func (c *CLI) RunVerify() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "verify <app>")
	if !ok {
		return
	}

	res, err := c.recoverySvc(e).Verify(t)
	if err != nil {
		fmt.Fprintf(c.Err, "Verification failed: %v\n", err)
		c.Exit(1)
		return
	}

	switch {
	case res.Match:
		fmt.Fprintf(c.Out, "%s Checksum verified for %s (%s)\n", c.green("*"), res.BackupPath, backup.FormatSize(res.SizeBytes))
	case res.Expected == "":
		fmt.Fprintf(c.Out, "%s No recorded checksum for %s\n", c.yellow("!"), res.BackupPath)
		fmt.Fprintf(c.Out, "  sha256: %s\n", res.Actual)
	default:
		fmt.Fprintf(c.Out, "%s Checksum mismatch for %s\n", c.red("x"), res.BackupPath)
		fmt.Fprintf(c.Out, "  expected: %s\n  actual:   %s\n", res.Expected, res.Actual)
		c.Exit(1)
	}
}

// ShowStatus shows where everything for an application lives.
func (c *CLI) ShowStatus() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "status <app>")
	if !ok {
		return
	}

	fmt.Fprintf(c.Out, "%s:\n", c.cyan(t.Name))
	fmt.Fprintf(c.Out, "  Archive:    %s %s\n", t.ArchivePath, c.fileState(e.fs, t.ArchivePath))
	fmt.Fprintf(c.Out, "  Backup:     %s %s\n", t.BackupPath, c.fileState(e.fs, t.BackupPath))
	if ports.Exists(e.fs, t.ExtractionDir) {
		fmt.Fprintf(c.Out, "  Workspace:  %s %s\n", t.ExtractionDir, c.green("extracted"))
	} else {
		fmt.Fprintf(c.Out, "  Workspace:  %s %s\n", t.ExtractionDir, c.gray("not extracted"))
	}
	if ports.Exists(e.fs, t.TempArchivePath) {
		fmt.Fprintf(c.Out, "  %s leftover %s from an earlier repack\n", c.yellow("!"), t.TempArchivePath)
	}

	m, err := e.journal.Load(t)
	if err != nil {
		fmt.Fprintf(c.Out, "  Last run:   %s\n", c.red(err.Error()))
		return
	}
	if last := m.LatestEntry(); last != nil {
		fmt.Fprintf(c.Out, "  Last run:   %s %s\n", last.Action, c.gray(last.CreatedAt.Local().Format(time.DateTime)))
	} else {
		fmt.Fprintf(c.Out, "  Last run:   %s\n", c.gray("none"))
	}
}

func (c *CLI) fileState(fsys ports.FileSystem, path string) string {
	info, err := fsys.Stat(path)
	if err != nil {
		return c.gray("(missing)")
	}
	return c.yellow("(" + backup.FormatSize(info.Size()) + ")")
}

// ShowChanges lists files changed since the last extraction.
func (c *CLI) ShowChanges() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "changes <app>")
	if !ok {
		return
	}

	m, err := e.journal.Load(t)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if m.Extraction == nil {
		fmt.Fprintf(c.Out, "No extraction recorded for %s. Run: asarkit extract %s\n", t.Name, c.args[1])
		c.Exit(1)
		return
	}

	res, err := changes.Compare(e.fs, m.Extraction.Files, t.ExtractionDir)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if res.Empty() {
		fmt.Fprintf(c.Out, "No changes in %s\n", t.ExtractionDir)
		return
	}

	for _, ch := range res.Changes {
		switch ch.Status {
		case 'M':
			fmt.Fprintf(c.Out, "  %s %s %s\n", c.yellow("M"), ch.Path,
				c.gray(backup.FormatSize(ch.Size1)+" -> "+backup.FormatSize(ch.Size2)))
		case 'A':
			fmt.Fprintf(c.Out, "  %s %s\n", c.green("A"), ch.Path)
		case 'D':
			fmt.Fprintf(c.Out, "  %s %s\n", c.red("D"), ch.Path)
		}
	}
	fmt.Fprintf(c.Out, "\n%d modified, %d added, %d deleted\n", res.Modified, res.Added, res.Deleted)
}

// ShowDiff prints a line diff of one file against the pristine archive.
func (c *CLI) ShowDiff() {
	e, ok := c.setup()
	if !ok {
		return
	}
	if len(c.args) < 3 {
		fmt.Fprintln(c.Out, "Usage: asarkit diff <app> <file>")
		c.Exit(1)
		return
	}
	t, ok := c.resolve(e, "diff <app> <file>")
	if !ok {
		return
	}

	res, err := changes.NewDiffer(e.fs, e.archiver).FileDiff(c.ctx(), t, c.args[2])
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s %s %s\n", c.cyan(string(res.Status)), res.Path, c.gray("(against "+res.Pristine+")"))
	if res.IsBinary {
		fmt.Fprintln(c.Out, "  binary file differs")
		return
	}
	for _, l := range res.Lines {
		switch l.Type {
		case '+':
			fmt.Fprintf(c.Out, "%s\n", c.green("+"+l.Content))
		case '-':
			fmt.Fprintf(c.Out, "%s\n", c.red("-"+l.Content))
		default:
			fmt.Fprintf(c.Out, " %s\n", l.Content)
		}
	}
}

// RunUI opens the interactive browser for an application.
func (c *CLI) RunUI() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "ui <app>")
	if !ok {
		return
	}

	browse := c.Browse
	if browse == nil {
		browse = tui.Run
	}
	svc := tuisvc.New(e.fs, e.archiver, e.journal, c.recoverySvc(e), t)
	if err := browse(c.ctx(), svc); err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
	}
}

// RunWatch reports edits in the extraction directory until interrupted.
func (c *CLI) RunWatch() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "watch <app>")
	if !ok {
		return
	}

	w, err := watch.New(t.ExtractionDir, watch.WithLogger(e.logger))
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s Watching %s (Ctrl-C to stop)\n", c.cyan("=>"), t.ExtractionDir)
	count := 0
	err = w.Run(c.ctx(), func(ev watch.Event) {
		count++
		fmt.Fprintf(c.Out, "  %s %-7s %s\n", c.gray(ev.Time.Format(time.TimeOnly)), ev.Op, ev.Path)
	})
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Stopped after %d events\n", count)
}

// ShowHistory lists journal entries for an application.
func (c *CLI) ShowHistory() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "history <app>")
	if !ok {
		return
	}

	entries, err := c.recoverySvc(e).History(t)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintf(c.Out, "No history for %s\n", t.Name)
		return
	}

	fmt.Fprintf(c.Out, "History for %s:\n\n", c.cyan(t.Name))
	fmt.Fprintf(c.Out, "  %-20s %-8s %10s %-18s %s\n", "TIME", "ACTION", "SIZE", "STRATEGY", "SHA256")
	fmt.Fprintf(c.Out, "  %-20s %-8s %10s %-18s %s\n", "----", "------", "----", "--------", "------")
	for _, en := range entries {
		sum := en.ArchiveSHA256
		if len(sum) > 12 {
			sum = sum[:12]
		}
		strategy := en.Strategy
		if strategy == "" {
			strategy = "-"
		}
		fmt.Fprintf(c.Out, "  %-20s %-8s %10s %-18s %s\n",
			en.CreatedAt.Local().Format(time.DateTime),
			en.Action,
			backup.FormatSize(en.SizeBytes),
			strategy,
			sum)
	}
}

// ShowSourceMaps lists source maps in the extraction directory.
func (c *CLI) ShowSourceMaps() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "sourcemaps <app>")
	if !ok {
		return
	}

	maps, err := inspect.SourceMaps(e.fs, t.ExtractionDir)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if len(maps) == 0 {
		fmt.Fprintf(c.Out, "No source maps in %s\n", t.ExtractionDir)
		return
	}

	for _, m := range maps {
		sources := c.gray("unreadable")
		if m.Sources >= 0 {
			sources = fmt.Sprintf("%d sources", m.Sources)
		}
		fmt.Fprintf(c.Out, "  %s %s %s\n", m.Path, c.yellow(backup.FormatSize(m.SizeBytes)), sources)
	}
	fmt.Fprintf(c.Out, "\n%d source maps\n", len(maps))
}

// ShowDevTools prints the steps to enable DevTools in the main script.
func (c *CLI) ShowDevTools() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "devtools <app>")
	if !ok {
		return
	}

	main, err := inspect.MainEntry(e.fs, t.ExtractionDir)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "Main script: %s\n\n", c.cyan(main))
	for i, step := range inspect.DevToolsSteps(main) {
		fmt.Fprintf(c.Out, "  %d. %s\n", i+1, step)
	}
}

// RunOpen opens the extraction directory in the platform file manager.
func (c *CLI) RunOpen() {
	e, ok := c.setup()
	if !ok {
		return
	}
	t, ok := c.resolve(e, "open <app>")
	if !ok {
		return
	}
	if !ports.Exists(e.fs, t.ExtractionDir) {
		fmt.Fprintf(c.Out, "%s not extracted yet. Run: asarkit extract %s\n", t.ExtractionDir, c.args[1])
		c.Exit(1)
		return
	}

	o := opener.New(e.runner, opener.WithCommand(e.cfg.OpenCommand))
	if err := o.Open(c.ctx(), t.ExtractionDir); err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "%s Opened %s\n", c.green("*"), t.ExtractionDir)
}

// RunDoctor checks the external toolchain.
func (c *CLI) RunDoctor() {
	e, ok := c.setup()
	if !ok {
		return
	}

	lookPath := c.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}
	o := opener.New(e.runner, opener.WithCommand(e.cfg.OpenCommand))
	checks := toolcheck.New(e.runner, e.cfg.Archiver, o.Program(), toolcheck.WithLookPath(lookPath)).Run(c.ctx())

	for _, ch := range checks {
		var mark string
		switch ch.Status {
		case toolcheck.StatusOK:
			mark = c.green("*")
		case toolcheck.StatusWarn:
			mark = c.yellow("!")
		default:
			mark = c.red("x")
		}
		line := fmt.Sprintf("  %s %s", mark, ch.Name)
		if ch.Version != "" {
			line += " " + c.gray(ch.Version)
		}
		fmt.Fprintln(c.Out, line)
		if ch.Detail != "" {
			fmt.Fprintf(c.Out, "      %s\n", ch.Detail)
		}
	}

	if !toolcheck.Healthy(checks) {
		c.Exit(1)
	}
}

// failure prints a workflow failure with its kind and exits 1.
func (c *CLI) failure(kind, detail string, err error) {
	fmt.Fprintf(c.Out, "%s %s\n", c.red("x"), kind)
	if detail != "" {
		for _, line := range strings.Split(strings.TrimRight(detail, "\n"), "\n") {
			fmt.Fprintf(c.Out, "  %s\n", line)
		}
	}
	if err != nil && !errors.Is(err, context.Canceled) {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
	}
	c.Exit(1)
}
