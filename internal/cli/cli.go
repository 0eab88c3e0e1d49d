// Package cli provides the command-line interface with injectable io.Writer for testing.
package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fatih/color"

	"github.com/wpmigrate/wpmigrate/internal/adapters/execwp"
	"github.com/wpmigrate/wpmigrate/internal/adapters/osfs"
	"github.com/wpmigrate/wpmigrate/internal/adapters/rsynctransport"
	"github.com/wpmigrate/wpmigrate/internal/config"
	"github.com/wpmigrate/wpmigrate/internal/export"
	"github.com/wpmigrate/wpmigrate/internal/format"
	"github.com/wpmigrate/wpmigrate/internal/importer"
	"github.com/wpmigrate/wpmigrate/internal/logging"
	"github.com/wpmigrate/wpmigrate/internal/rollback"
	"github.com/wpmigrate/wpmigrate/internal/snapshot"
	"github.com/wpmigrate/wpmigrate/internal/tui"
)

// ConfigService provides configuration operations for the CLI.
type ConfigService interface {
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
	Path() string
}

// ImportService runs the import pipeline.
type ImportService interface {
	Run(cfg *config.Config, opts importer.Options) (*importer.Result, error)
}

// SnapshotService lists stored snapshots.
type SnapshotService interface {
	List(cfg *config.Config) ([]snapshot.Snapshot, error)
}

// RollbackService restores snapshots.
type RollbackService interface {
	Plan(cfg *config.Config, opts rollback.Options) (*snapshot.Snapshot, []string, error)
	Rollback(cfg *config.Config, opts rollback.Options) (*snapshot.Snapshot, error)
}

// ExportService produces native backup archives.
type ExportService interface {
	Export(cfg *config.Config, opts export.Options) (*export.Result, error)
}

// CLI represents the command-line interface with injectable dependencies.
type CLI struct {
	Out     io.Writer // Standard output
	Err     io.Writer // Standard error
	In      io.Reader // Confirmation prompts read from here
	Version string    // Application version
	Args    []string  // Command arguments (like os.Args)
	Verbose bool

	// Exit function for testability (defaults to os.Exit)
	Exit func(code int)

	// Injectable dependencies (nil means use defaults)
	ConfigSvc   ConfigService
	ImportSvc   ImportService
	SnapshotSvc SnapshotService
	RollbackSvc RollbackService
	ExportSvc   ExportService

	// Color functions (can be disabled for testing)
	green  func(a ...interface{}) string
	yellow func(a ...interface{}) string
	cyan   func(a ...interface{}) string
	gray   func(a ...interface{}) string
	red    func(a ...interface{}) string
}

// New creates a new CLI with default settings.
func New(version string) *CLI {
	return &CLI{
		Out:     os.Stdout,
		Err:     os.Stderr,
		In:      os.Stdin,
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
	exitCode := 0
	return &CLI{
		Out:     out,
		Err:     errOut,
		In:      strings.NewReader(""),
		Version: "test",
		Args:    args,
		Exit:    func(code int) { exitCode = code; _ = exitCode },
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
func (d *defaultConfigService) Path() string                  { return config.ConfigPath() }

// defaultImportService runs the orchestrator with production wiring and
// the interactive progress display.
type defaultImportService struct {
	verbose bool
}

func (d *defaultImportService) Run(cfg *config.Config, opts importer.Options) (*importer.Result, error) {
	log := logging.New(d.verbose, cfg.TraceLog)
	orch := importer.NewDefault(cfg, log)

	// An interrupted run must not leave the site in maintenance mode.
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		if _, ok := <-sig; ok {
			orch.ReleaseMaintenance()
			os.Exit(1)
		}
	}()

	var res *importer.Result
	var runErr error
	err := tui.RunWithProgress("Importing "+opts.ArchivePath, func(progress format.ProgressFunc) error {
		orch.SetProgress(progress)
		res, runErr = orch.Run(opts)
		return nil
	})
	if err != nil {
		return res, err
	}
	return res, runErr
}

// productionStack builds the shared adapter set from the configuration.
func productionStack(cfg *config.Config) (*snapshot.Manager, *rollback.Controller) {
	wp := execwp.New(execwp.WithWPPath(cfg.WPBinary))
	transport := rsynctransport.New(rsynctransport.WithRsyncPath(cfg.RsyncBinary))
	snaps := snapshot.NewManager(wp, transport, osfs.New(), config.ExpandPath(cfg.SnapshotDir))
	return snaps, rollback.NewController(wp, transport, snaps)
}

type defaultSnapshotService struct{}

func (d *defaultSnapshotService) List(cfg *config.Config) ([]snapshot.Snapshot, error) {
	snaps, _ := productionStack(cfg)
	return snaps.List()
}

type defaultRollbackService struct{}

func (d *defaultRollbackService) Plan(cfg *config.Config, opts rollback.Options) (*snapshot.Snapshot, []string, error) {
	_, ctrl := productionStack(cfg)
	return ctrl.Plan(opts)
}

func (d *defaultRollbackService) Rollback(cfg *config.Config, opts rollback.Options) (*snapshot.Snapshot, error) {
	_, ctrl := productionStack(cfg)
	return ctrl.Rollback(opts)
}

type defaultExportService struct{}

func (d *defaultExportService) Export(cfg *config.Config, opts export.Options) (*export.Result, error) {
	wp := execwp.New(execwp.WithWPPath(cfg.WPBinary))
	return export.NewExporter(wp).Export(opts)
}

// Helper methods to get the service or default
func (c *CLI) configSvc() ConfigService {
	if c.ConfigSvc != nil {
		return c.ConfigSvc
	}
	return &defaultConfigService{}
}

func (c *CLI) importSvc() ImportService {
	if c.ImportSvc != nil {
		return c.ImportSvc
	}
	return &defaultImportService{verbose: c.Verbose}
}

func (c *CLI) snapshotSvc() SnapshotService {
	if c.SnapshotSvc != nil {
		return c.SnapshotSvc
	}
	return &defaultSnapshotService{}
}

func (c *CLI) rollbackSvc() RollbackService {
	if c.RollbackSvc != nil {
		return c.RollbackSvc
	}
	return &defaultRollbackService{}
}

func (c *CLI) exportSvc() ExportService {
	if c.ExportSvc != nil {
		return c.ExportSvc
	}
	return &defaultExportService{}
}

// Run executes the CLI with the configured arguments.
func (c *CLI) Run() {
	args := c.stripGlobalFlags()
	if len(args) < 2 {
		c.PrintUsage()
		return
	}

	switch args[1] {
	case "import":
		c.RunImport(args[2:])
	case "rollback":
		c.RunRollback(args[2:])
	case "snapshots":
		c.ListSnapshots()
	case "export":
		c.RunExport(args[2:])
	case "formats":
		c.ListFormats()
	case "init":
		c.InitConfig()
	case "version", "-v", "--version":
		fmt.Fprintf(c.Out, "wpmigrate v%s\n", c.Version)
	case "help", "-h", "--help":
		c.PrintUsage()
	default:
		fmt.Fprintf(c.Err, "Unknown command: %s\n", args[1])
		c.PrintUsage()
		c.Exit(1)
	}
}

// stripGlobalFlags consumes flags valid before or after the command.
func (c *CLI) stripGlobalFlags() []string {
	out := make([]string, 0, len(c.Args))
	for _, arg := range c.Args {
		if arg == "--verbose" {
			c.Verbose = true
			continue
		}
		out = append(out, arg)
	}
	return out
}

// PrintUsage prints the help message.
func (c *CLI) PrintUsage() {
	fmt.Fprintln(c.Out, `wpmigrate - WordPress Backup Import Tool

Usage:
  wpmigrate import <archive> [--format=NAME] [--dry-run] [--yes] [--path=DIR]
                                           Import a backup archive into the configured site
  wpmigrate rollback [--snapshot=ID] [--dry-run] [--yes]
                                           Restore the site from a snapshot (latest by default)
  wpmigrate snapshots                      List stored snapshots
  wpmigrate export <dest.zip> [--path=DIR] Export the site as a native backup archive
  wpmigrate formats                        List supported backup formats
  wpmigrate init                           Create default config file
  wpmigrate version, -v                    Show version
  wpmigrate help, -h                       Show this help

Global flags:
  --verbose                                Enable debug logging

Config: ~/.wpmigrate/config.yaml`)
}

// InitConfig creates the default config file.
func (c *CLI) InitConfig() {
	svc := c.configSvc()
	cfg := config.DefaultConfig()
	if err := svc.Save(cfg); err != nil {
		fmt.Fprintf(c.Err, "Error saving config: %v\n", err)
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "Created config at %s\n", svc.Path())
}

// confirm prompts the operator on Out and reads a y/N answer from In.
func (c *CLI) confirm(prompt string) bool {
	fmt.Fprintf(c.Out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(c.In)
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}

// RunImport runs the import command.
func (c *CLI) RunImport(args []string) {
	if len(args) < 1 || strings.HasPrefix(args[0], "--") {
		fmt.Fprintln(c.Out, "Usage: wpmigrate import <archive> [--format=NAME] [--dry-run] [--yes]")
		c.Exit(1)
		return
	}

	opts := importer.Options{ArchivePath: args[0]}
	autoConfirm := false
	pathOverride := ""
	for _, arg := range args[1:] {
		switch {
		case arg == "--dry-run":
			opts.DryRun = true
		case arg == "--yes":
			autoConfirm = true
		case strings.HasPrefix(arg, "--format="):
			opts.FormatOverride = strings.TrimPrefix(arg, "--format=")
		case strings.HasPrefix(arg, "--path="):
			pathOverride = strings.TrimPrefix(arg, "--path=")
		default:
			fmt.Fprintf(c.Err, "Unknown flag: %s\n", arg)
			c.Exit(1)
			return
		}
	}

	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}
	if pathOverride != "" {
		cfg.WordPressPath = pathOverride
	}

	if !opts.DryRun && !autoConfirm {
		prompt := fmt.Sprintf("Importing %s replaces the database and content of %s. Continue?",
			opts.ArchivePath, cfg.WordPressPath)
		if !c.confirm(prompt) {
			fmt.Fprintln(c.Out, "Aborted.")
			c.Exit(1)
			return
		}
	}

	res, err := c.importSvc().Run(cfg, opts)
	if err != nil {
		c.printImportFailure(res, err)
		c.Exit(1)
		return
	}

	if res.DryRun {
		fmt.Fprintf(c.Out, "%s Dry run: detected %s format, import admitted\n", c.cyan("=>"), res.Format)
		fmt.Fprintln(c.Out, "\nPlanned steps:")
		for i, step := range res.Plan {
			fmt.Fprintf(c.Out, "  %d. %s\n", i+1, step)
		}
		return
	}

	fmt.Fprintf(c.Out, "%s Imported %s (%s format)\n", c.green("*"), opts.ArchivePath, res.Format)
	fmt.Fprintf(c.Out, "  snapshot  %s\n", res.SnapshotID)
	fmt.Fprintf(c.Out, "  prefix    %s\n", res.Prefix)
	if res.Replacements > 0 {
		fmt.Fprintf(c.Out, "  rewrote   %d URL references\n", res.Replacements)
	}
	if len(res.SkippedEntries) > 0 {
		fmt.Fprintf(c.Out, "  %s %d archive entries skipped during extraction\n",
			c.yellow("!"), len(res.SkippedEntries))
	}
	if len(res.SkippedTables) > 0 {
		fmt.Fprintf(c.Out, "  %s %d unrecognized tables left in place: %s\n",
			c.yellow("!"), len(res.SkippedTables), strings.Join(res.SkippedTables, ", "))
	}
}

func (c *CLI) printImportFailure(res *importer.Result, err error) {
	fmt.Fprintf(c.Err, "%s Import failed: %v\n", c.red("x"), err)
	if res == nil {
		return
	}
	if res.RolledBack {
		fmt.Fprintf(c.Err, "  %s rolled back to snapshot %s\n", c.green("*"), res.SnapshotID)
	}
	if res.TempDir != "" {
		fmt.Fprintf(c.Err, "  extracted files kept at %s for inspection\n", res.TempDir)
	}
}

// RunRollback runs the rollback command.
func (c *CLI) RunRollback(args []string) {
	opts := rollback.Options{Confirm: c.confirm}
	dryRun := false
	for _, arg := range args {
		switch {
		case arg == "--yes":
			opts.AutoConfirm = true
		case arg == "--dry-run":
			dryRun = true
		case strings.HasPrefix(arg, "--snapshot="):
			opts.SnapshotID = strings.TrimPrefix(arg, "--snapshot=")
		case strings.HasPrefix(arg, "--snapshot"):
			fmt.Fprintln(c.Out, "Usage: wpmigrate rollback [--snapshot=ID] [--dry-run] [--yes]")
			c.Exit(1)
			return
		default:
			fmt.Fprintf(c.Err, "Unknown flag: %s\n", arg)
			c.Exit(1)
			return
		}
	}

	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	if dryRun {
		snap, steps, err := c.rollbackSvc().Plan(cfg, opts)
		if err != nil {
			fmt.Fprintf(c.Err, "Error: %v\n", err)
			c.Exit(1)
			return
		}
		fmt.Fprintf(c.Out, "%s Dry run: would restore snapshot %s (created %s)\n",
			c.cyan("=>"), snap.ID, snap.CreatedAt.Format("2006-01-02 15:04:05"))
		for i, step := range steps {
			fmt.Fprintf(c.Out, "  %d. %s\n", i+1, step)
		}
		return
	}

	snap, err := c.rollbackSvc().Rollback(cfg, opts)
	if err != nil {
		if err == rollback.ErrAborted {
			fmt.Fprintln(c.Out, "Aborted.")
		} else {
			fmt.Fprintf(c.Err, "Rollback failed: %v\n", err)
		}
		c.Exit(1)
		return
	}
	fmt.Fprintf(c.Out, "%s Restored snapshot %s over %s\n", c.green("*"), snap.ID, snap.InstallPath)
}

// ListSnapshots lists stored snapshots, newest last.
func (c *CLI) ListSnapshots() {
	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}

	snaps, err := c.snapshotSvc().List(cfg)
	if err != nil {
		fmt.Fprintf(c.Err, "Error: %v\n", err)
		c.Exit(1)
		return
	}
	if len(snaps) == 0 {
		fmt.Fprintln(c.Out, "No snapshots found")
		return
	}

	fmt.Fprintf(c.Out, "  %-20s %-20s %s\n", "ID", "CREATED", "INSTALL")
	fmt.Fprintf(c.Out, "  %-20s %-20s %s\n", "--", "-------", "-------")
	for _, s := range snaps {
		fmt.Fprintf(c.Out, "  %-20s %-20s %s\n",
			c.cyan(s.ID), s.CreatedAt.Format("2006-01-02 15:04:05"), c.gray(s.InstallPath))
	}
}

// RunExport runs the export command.
func (c *CLI) RunExport(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(c.Out, "Usage: wpmigrate export <dest.zip>")
		c.Exit(1)
		return
	}

	cfg, err := c.configSvc().Load()
	if err != nil {
		fmt.Fprintf(c.Err, "Error loading config: %v\n", err)
		c.Exit(1)
		return
	}
	for _, arg := range args[1:] {
		if strings.HasPrefix(arg, "--path=") {
			cfg.WordPressPath = strings.TrimPrefix(arg, "--path=")
		}
	}

	res, err := c.exportSvc().Export(cfg, export.Options{
		InstallPath: config.ExpandPath(cfg.WordPressPath),
		ContentDir:  cfg.ContentPath(),
		DestPath:    args[0],
	})
	if err != nil {
		fmt.Fprintf(c.Err, "%s Export failed: %v\n", c.red("x"), err)
		c.Exit(1)
		return
	}

	fmt.Fprintf(c.Out, "%s Exported %s\n", c.green("*"), res.DestPath)
	fmt.Fprintf(c.Out, "  %d files, %d tables, site %s\n", res.Files, res.TableCount, res.SiteURL)
	if len(res.Skipped) > 0 {
		fmt.Fprintf(c.Out, "  %s %d unreadable files skipped\n", c.yellow("!"), len(res.Skipped))
	}
}

// ListFormats lists the supported backup formats in detection order.
func (c *CLI) ListFormats() {
	fmt.Fprintln(c.Out, "Supported backup formats (tried in this order):")
	for _, adapter := range format.DefaultRegistry().Adapters() {
		tools := "none"
		if t := adapter.RequiredTools(); len(t) > 0 {
			tools = strings.Join(t, ", ")
		}
		fmt.Fprintf(c.Out, "  %-18s %s %s\n",
			c.cyan(adapter.Name()), adapter.DisplayName(), c.gray("(external tools: "+tools+")"))
	}
}
