// Package rollback restores the target installation from a snapshot. It is
// invoked automatically by the import orchestrator when a destructive step
// fails, and manually through the CLI.
package rollback

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/wpmigrate/wpmigrate/internal/ports"
	"github.com/wpmigrate/wpmigrate/internal/snapshot"
)

// ErrAborted is returned when the operator declines the confirmation prompt.
var ErrAborted = errors.New("rollback aborted by operator")

// Options configures a rollback operation.
type Options struct {
	// SnapshotID selects a snapshot by ID; empty selects the most recent.
	SnapshotID string
	// AutoConfirm skips the confirmation prompt (unattended mode, and the
	// orchestrator's automatic failure path).
	AutoConfirm bool
	// Confirm prompts the operator. Required unless AutoConfirm is set.
	Confirm func(prompt string) bool
}

// Controller restores snapshots with injected dependencies.
type Controller struct {
	wp        ports.WPClient
	transport ports.Transport
	snaps     *snapshot.Manager
}

// NewController creates a rollback controller.
func NewController(wp ports.WPClient, transport ports.Transport, snaps *snapshot.Manager) *Controller {
	return &Controller{wp: wp, transport: transport, snaps: snaps}
}

// Resolve returns the snapshot selected by opts: named, or the latest.
func (c *Controller) Resolve(opts Options) (*snapshot.Snapshot, error) {
	if opts.SnapshotID != "" {
		return c.snaps.Get(opts.SnapshotID)
	}
	return c.snaps.Latest()
}

// Plan returns the restore steps for the selected snapshot without
// executing them. Dry-run mode prints exactly this.
func (c *Controller) Plan(opts Options) (*snapshot.Snapshot, []string, error) {
	snap, err := c.Resolve(opts)
	if err != nil {
		return nil, nil, err
	}
	steps := []string{
		fmt.Sprintf("restore database of %s from %s", snap.InstallPath, snap.DatabaseDump),
	}
	if snap.TablePrefix != "" {
		steps = append(steps, fmt.Sprintf("restore configured table prefix %s", snap.TablePrefix))
	}
	steps = append(steps,
		fmt.Sprintf("mirror %s from %s (removing files not in the snapshot)", snap.ContentDir, snap.ContentBackup))
	return snap, steps, nil
}

// Rollback restores the selected snapshot. Restoring the same snapshot
// repeatedly yields the same end state: the dump import and the mirroring
// sync are both absolute, not incremental.
func (c *Controller) Rollback(opts Options) (*snapshot.Snapshot, error) {
	snap, err := c.Resolve(opts)
	if err != nil {
		return nil, err
	}

	if !opts.AutoConfirm {
		if opts.Confirm == nil {
			return nil, fmt.Errorf("rollback of snapshot %s requires confirmation", snap.ID)
		}
		prompt := fmt.Sprintf("Restore snapshot %s over %s? This replaces the live database and content directory.",
			snap.ID, snap.InstallPath)
		if !opts.Confirm(prompt) {
			return nil, ErrAborted
		}
	}

	return snap, c.Restore(snap)
}

// Restore performs the actual restoration of snap, without confirmation.
func (c *Controller) Restore(snap *snapshot.Snapshot) error {
	dumpPath := filepath.Join(filepath.Dir(snap.DatabaseDump), "restore.sql")
	if err := c.snaps.ExtractDump(snap, dumpPath); err != nil {
		return fmt.Errorf("preparing dump from snapshot %s: %w", snap.ID, err)
	}

	if err := c.wp.ImportDatabase(snap.InstallPath, dumpPath); err != nil {
		return fmt.Errorf("restoring database from %s: %w", dumpPath, err)
	}

	// An import may have rewritten the configured prefix before failing;
	// point the configuration back at the tables just restored. Manifests
	// from before the prefix was recorded carry an empty value.
	if snap.TablePrefix != "" {
		if err := c.wp.SetTablePrefix(snap.InstallPath, snap.TablePrefix); err != nil {
			return fmt.Errorf("restoring table prefix %q: %w", snap.TablePrefix, err)
		}
	}

	if err := c.transport.SyncDir(snap.ContentBackup, snap.ContentDir, true); err != nil {
		return fmt.Errorf("restoring content directory %s: %w", snap.ContentDir, err)
	}
	return nil
}
