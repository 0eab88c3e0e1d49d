package importer

import (
	"fmt"

	"github.com/wpmigrate/wpmigrate/internal/snapshot"
)

// SnapshotError reports a failure to capture the pre-import snapshot.
// Nothing destructive has happened yet; the run fails closed.
type SnapshotError struct {
	Err error
}

func (e *SnapshotError) Error() string {
	return fmt.Sprintf("snapshot failed, aborting before any destructive step: %v", e.Err)
}

func (e *SnapshotError) Unwrap() error { return e.Err }

// ImportError reports a destructive-phase failure. RolledBack tells the
// operator whether the automatic restore succeeded.
type ImportError struct {
	Stage      string
	Err        error
	SnapshotID string
	RolledBack bool
}

func (e *ImportError) Error() string {
	if e.RolledBack {
		return fmt.Sprintf("%s failed: %v (rolled back to snapshot %s)", e.Stage, e.Err, e.SnapshotID)
	}
	return fmt.Sprintf("%s failed: %v", e.Stage, e.Err)
}

func (e *ImportError) Unwrap() error { return e.Err }

// RollbackError is the most severe failure: the destructive phase failed
// AND the automatic rollback failed, so the installation may be
// inconsistent. Its message carries the exact recovery material.
type RollbackError struct {
	ImportErr   error
	RollbackErr error
	Snapshot    *snapshot.Snapshot
}

func (e *RollbackError) Error() string {
	return fmt.Sprintf(
		"import failed (%v) and automatic rollback also failed (%v); "+
			"the installation may be inconsistent. Recover manually from snapshot %s: "+
			"database dump at %s, content backup at %s, or run: wpmigrate rollback --snapshot %s --yes",
		e.ImportErr, e.RollbackErr, e.Snapshot.ID,
		e.Snapshot.DatabaseDump, e.Snapshot.ContentBackup, e.Snapshot.ID)
}

func (e *RollbackError) Unwrap() error { return e.ImportErr }
