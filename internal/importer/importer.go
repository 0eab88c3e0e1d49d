// Package importer sequences a backup import: admission, detection,
// extraction, snapshot, destructive replacement, verification, cleanup. A
// failure after the snapshot exists triggers automatic rollback; dry-run
// walks the same early states and prints the plan instead of mutating.
package importer

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/wpmigrate/wpmigrate/internal/adapters/execwp"
	"github.com/wpmigrate/wpmigrate/internal/adapters/osfs"
	"github.com/wpmigrate/wpmigrate/internal/adapters/rsynctransport"
	"github.com/wpmigrate/wpmigrate/internal/admission"
	"github.com/wpmigrate/wpmigrate/internal/config"
	"github.com/wpmigrate/wpmigrate/internal/format"
	"github.com/wpmigrate/wpmigrate/internal/logging"
	"github.com/wpmigrate/wpmigrate/internal/ports"
	"github.com/wpmigrate/wpmigrate/internal/prefix"
	"github.com/wpmigrate/wpmigrate/internal/rollback"
	"github.com/wpmigrate/wpmigrate/internal/safety"
	"github.com/wpmigrate/wpmigrate/internal/snapshot"
)

// State is a position in the import state machine.
type State int

const (
	StateIdle State = iota
	StateDetecting
	StateAdmitting
	StateExtracting
	StateSnapshotting
	StateImporting
	StateVerifying
	StateCleaning
	StateDone
	StateFailed
)

var stateNames = [...]string{
	"idle", "detecting", "admitting", "extracting", "snapshotting",
	"importing", "verifying", "cleaning", "done", "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// Options configures one import run.
type Options struct {
	// ArchivePath is the backup archive to import.
	ArchivePath string
	// FormatOverride skips detection and binds the named adapter. The
	// adapter still validates the archive.
	FormatOverride string
	// DryRun walks detection and admission, then prints the plan instead
	// of touching anything.
	DryRun bool
}

// Result reports what a run did (or, under dry-run, would have done).
type Result struct {
	State        State
	Format       string
	Plan         []string
	DryRun       bool
	TempDir      string
	SnapshotID   string
	Prefix       string
	Replacements int
	// SkippedEntries are archive members filtered during extraction.
	SkippedEntries []string
	// SkippedTables are pre-existing tables excluded from the drop list
	// because they are outside the recognized schema vocabulary.
	SkippedTables []string
	RolledBack    bool
}

// Deps are the injected collaborators of an Orchestrator.
type Deps struct {
	Registry  *format.Registry
	WP        ports.WPClient
	Transport ports.Transport
	FS        ports.FileSystem
	Admission *admission.Controller
	Snapshots *snapshot.Manager
	Rollback  *rollback.Controller
	Log       *slog.Logger
	// Progress receives extraction progress; nil extracts silently.
	Progress format.ProgressFunc
	// RunID names the temporary extraction directory; defaults to a UUID.
	RunID func() string
}

// Orchestrator runs the import pipeline against one configured target.
type Orchestrator struct {
	cfg  *config.Config
	deps Deps
}

// New creates an orchestrator with explicit dependencies.
func New(cfg *config.Config, deps Deps) *Orchestrator {
	if deps.Log == nil {
		deps.Log = logging.Discard()
	}
	if deps.RunID == nil {
		deps.RunID = uuid.NewString
	}
	return &Orchestrator{cfg: cfg, deps: deps}
}

// NewDefault creates an orchestrator with production dependencies wired
// from the configuration.
func NewDefault(cfg *config.Config, log *slog.Logger) *Orchestrator {
	wp := execwp.New(execwp.WithWPPath(cfg.WPBinary))
	transport := rsynctransport.New(rsynctransport.WithRsyncPath(cfg.RsyncBinary))
	fs := osfs.New()
	snaps := snapshot.NewManager(wp, transport, fs, config.ExpandPath(cfg.SnapshotDir))
	return New(cfg, Deps{
		Registry:  format.DefaultRegistry(),
		WP:        wp,
		Transport: transport,
		FS:        fs,
		Admission: admission.New(),
		Snapshots: snaps,
		Rollback:  rollback.NewController(wp, transport, snaps),
		Log:       log,
	})
}

// SetProgress installs the extraction progress callback.
func (o *Orchestrator) SetProgress(fn format.ProgressFunc) {
	o.deps.Progress = fn
}

// ReleaseMaintenance lifts the advisory maintenance lock, best effort.
// Wired to the signal handler so an interrupted run does not leave the
// site dark.
func (o *Orchestrator) ReleaseMaintenance() {
	install := config.ExpandPath(o.cfg.WordPressPath)
	if err := o.deps.WP.SetMaintenance(install, false); err != nil {
		o.deps.Log.Warn("could not release maintenance mode", "path", install, "error", err)
	}
}

// Run executes the import state machine. The returned Result is valid
// even on error and reports the state reached.
func (o *Orchestrator) Run(opts Options) (*Result, error) {
	res := &Result{State: StateIdle, DryRun: opts.DryRun}
	log := o.deps.Log

	install := config.ExpandPath(o.cfg.WordPressPath)
	contentDir := o.cfg.ContentPath()
	tempBase := config.ExpandPath(o.cfg.TempDir)

	// Detecting.
	res.State = StateDetecting
	info, err := o.deps.FS.Stat(opts.ArchivePath)
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("archive not readable: %w", err)
	}

	adapter, err := o.bindAdapter(opts)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	res.Format = adapter.Name()
	log.Debug("format bound", "format", adapter.Name(), "archive", opts.ArchivePath)

	// Admitting.
	res.State = StateAdmitting
	if err := o.deps.Admission.Check(tempBase, info.Size()); err != nil {
		res.State = StateFailed
		return res, err
	}

	res.Plan = o.buildPlan(adapter, opts.ArchivePath, install, contentDir)

	if opts.DryRun {
		log.Debug("dry run complete, no mutation performed")
		res.State = StateDone
		return res, nil
	}

	// Extracting. A failure from here on leaves the temporary directory
	// on disk for inspection.
	res.State = StateExtracting
	tmpDir := filepath.Join(tempBase, "wpmigrate-"+o.deps.RunID())
	res.TempDir = tmpDir
	if err := o.deps.FS.MkdirAll(tmpDir, 0755); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("creating extraction directory: %w", err)
	}

	extracted, err := adapter.Extract(opts.ArchivePath, tmpDir, format.ExtractOptions{Progress: o.deps.Progress})
	if err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("extracting %s: %w", opts.ArchivePath, err)
	}
	res.SkippedEntries = extracted.Skipped
	if len(extracted.Skipped) > 0 {
		log.Warn("entries filtered during extraction", "count", len(extracted.Skipped))
	}

	dumpPath, err := adapter.FindDatabase(tmpDir)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	contentSrc, err := adapter.FindContent(tmpDir)
	if err != nil {
		res.State = StateFailed
		return res, err
	}
	// Discovered paths are re-checked against the extraction root even
	// though every entry was validated during extraction.
	for _, p := range []string{dumpPath, contentSrc} {
		if !format.IsWithinDir(tmpDir, p) {
			res.State = StateFailed
			return res, &safety.PathSafetyError{Path: p}
		}
	}
	log.Debug("archive contents resolved", "database", dumpPath, "content", contentSrc)

	// The live siteurl is captured now: after the import it will hold the
	// archive's origin URL instead.
	targetURL, err := o.deps.WP.GetOption(install, "siteurl")
	if err != nil {
		log.Warn("could not read live siteurl, skipping the URL rewrite", "error", err)
	}

	// Advisory lock for the destructive phase.
	if err := o.deps.WP.SetMaintenance(install, true); err != nil {
		res.State = StateFailed
		return res, fmt.Errorf("enabling maintenance mode: %w", err)
	}
	defer o.ReleaseMaintenance()

	// Snapshotting. Failure here aborts before anything destructive; no
	// rollback is needed or attempted.
	res.State = StateSnapshotting
	snap, err := o.deps.Snapshots.Create(install, contentDir)
	if err != nil {
		res.State = StateFailed
		return res, &SnapshotError{Err: err}
	}
	res.SnapshotID = snap.ID
	log.Debug("snapshot created", "id", snap.ID)

	// Importing. Any failure from here until verification completes rolls
	// back to the snapshot just taken.
	res.State = StateImporting
	if err := o.destructiveReplace(res, adapter, install, contentDir, tmpDir, dumpPath, contentSrc, targetURL); err != nil {
		return res, o.failWithRollback(res, snap, "import", err)
	}

	// Verifying.
	res.State = StateVerifying
	if err := o.verify(install); err != nil {
		return res, o.failWithRollback(res, snap, "verification", err)
	}

	// Cleaning. Only a fully successful run removes its temporary state.
	res.State = StateCleaning
	if err := o.deps.FS.RemoveAll(tmpDir); err != nil {
		log.Warn("could not remove extraction directory", "dir", tmpDir, "error", err)
	} else {
		res.TempDir = ""
	}
	if removed, err := o.deps.Snapshots.Prune(o.cfg.Retention.KeepLast); err != nil {
		log.Warn("snapshot pruning failed", "error", err)
	} else if len(removed) > 0 {
		log.Debug("pruned old snapshots", "ids", removed)
	}

	res.State = StateDone
	return res, nil
}

// bindAdapter chooses the active adapter: detection in registry order, or
// the explicit override (which must still validate).
func (o *Orchestrator) bindAdapter(opts Options) (format.Adapter, error) {
	if opts.FormatOverride == "" {
		return o.deps.Registry.Detect(opts.ArchivePath)
	}
	adapter, err := o.deps.Registry.Get(opts.FormatOverride)
	if err != nil {
		return nil, err
	}
	if !adapter.Validate(opts.ArchivePath) {
		return nil, fmt.Errorf("archive %s does not validate as the requested %s format",
			opts.ArchivePath, adapter.DisplayName())
	}
	return adapter, nil
}

// buildPlan lists the destructive steps the run intends to execute, in
// order. Dry-run prints exactly this.
func (o *Orchestrator) buildPlan(adapter format.Adapter, archive, install, contentDir string) []string {
	return []string{
		fmt.Sprintf("extract %s (%s) into a temporary directory under %s",
			archive, adapter.DisplayName(), config.ExpandPath(o.cfg.TempDir)),
		"enable maintenance mode on " + install,
		fmt.Sprintf("snapshot the database and %s into %s", contentDir, o.deps.Snapshots.Dir()),
		"drop recognized core tables from the live database",
		"import the archive's database dump",
		"resolve the imported table prefix and sync the configuration",
		fmt.Sprintf("mirror the archive's content tree into %s", contentDir),
		"rewrite the origin site URL to the live one (native archives)",
		"verify the installation and clean up",
	}
}

// destructiveReplace performs the destructive phase. Every table name that
// enters a statement has passed the identifier whitelist; unrecognized
// tables are left alone and reported.
func (o *Orchestrator) destructiveReplace(res *Result, adapter format.Adapter, install, contentDir, tmpDir, dumpPath, contentSrc, targetURL string) error {
	existing, err := o.deps.WP.ListTables(install)
	if err != nil {
		return fmt.Errorf("listing existing tables: %w", err)
	}
	var toDrop []string
	for _, table := range existing {
		if safety.ValidTableName(table) {
			toDrop = append(toDrop, table)
		} else {
			res.SkippedTables = append(res.SkippedTables, table)
		}
	}
	if len(res.SkippedTables) > 0 {
		o.deps.Log.Warn("tables outside the core vocabulary left in place", "tables", res.SkippedTables)
	}
	if err := o.deps.WP.DropTables(install, toDrop); err != nil {
		return fmt.Errorf("dropping %d existing tables: %w", len(toDrop), err)
	}

	if err := o.deps.WP.ImportDatabase(install, dumpPath); err != nil {
		return fmt.Errorf("importing dump %s: %w", dumpPath, err)
	}

	resolved, changed, err := prefix.NewResolver(o.deps.WP).Sync(install, o.livePrefix(install), o.cfg.PrefixCandidates)
	if err != nil {
		return fmt.Errorf("resolving table prefix: %w", err)
	}
	res.Prefix = resolved
	if changed {
		o.deps.Log.Debug("table prefix updated", "prefix", resolved)
	}

	if err := o.deps.Transport.SyncDir(contentSrc, contentDir, true); err != nil {
		return fmt.Errorf("replacing content directory %s: %w", contentDir, err)
	}

	// Native archives know their origin URL; rewrite it to the live one.
	if native, ok := adapter.(*format.NativeAdapter); ok && targetURL != "" {
		meta, err := native.ReadMetadata(tmpDir)
		if err == nil && meta.SiteURL != "" && meta.SiteURL != targetURL {
			count, err := o.deps.WP.SearchReplace(install, meta.SiteURL, targetURL)
			if err != nil {
				return fmt.Errorf("rewriting site URL %s -> %s: %w", meta.SiteURL, targetURL, err)
			}
			res.Replacements = count
		}
	}

	return nil
}

// livePrefix returns the prefix declared in the install's configuration,
// falling back to the first configured candidate when it cannot be read.
func (o *Orchestrator) livePrefix(install string) string {
	p, err := o.deps.WP.GetTablePrefix(install)
	if err == nil && p != "" {
		return p
	}
	if err != nil {
		o.deps.Log.Warn("could not read the configured table prefix", "error", err)
	}
	if len(o.cfg.PrefixCandidates) > 0 {
		return o.cfg.PrefixCandidates[0]
	}
	return "wp_"
}

// verify checks that the replaced installation is minimally functional.
func (o *Orchestrator) verify(install string) error {
	if !o.deps.WP.IsInstalled(install) {
		return fmt.Errorf("installation at %s does not respond after import", install)
	}
	if _, err := o.deps.WP.GetOption(install, "siteurl"); err != nil {
		return fmt.Errorf("siteurl not readable after import: %w", err)
	}
	return nil
}

// failWithRollback attempts the automatic rollback and classifies the
// outcome. Called only when a valid snapshot exists.
func (o *Orchestrator) failWithRollback(res *Result, snap *snapshot.Snapshot, stage string, cause error) error {
	o.deps.Log.Warn("destructive phase failed, rolling back", "stage", stage, "snapshot", snap.ID, "error", cause)
	res.State = StateFailed

	if rbErr := o.deps.Rollback.Restore(snap); rbErr != nil {
		return &RollbackError{ImportErr: cause, RollbackErr: rbErr, Snapshot: snap}
	}
	res.RolledBack = true
	return &ImportError{Stage: stage, Err: cause, SnapshotID: snap.ID, RolledBack: true}
}
