// Package snapshot captures restorable copies of the target installation's
// database and content tree. A snapshot is taken before the first
// destructive write of an import run and is the thing rollback restores.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/wpmigrate/wpmigrate/internal/ports"
)

// manifestFile describes one snapshot inside its directory.
const manifestFile = "snapshot.json"

// dumpFile is the compressed database dump inside a snapshot directory.
const dumpFile = "database.sql.gz"

// contentBackupDir is the content tree copy inside a snapshot directory.
const contentBackupDir = "wp-content"

// Snapshot is a restorable copy of the target, addressable by ID.
type Snapshot struct {
	ID            string    `json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	DatabaseDump  string    `json:"database_dump"`
	ContentBackup string    `json:"content_backup"`
	InstallPath   string    `json:"install_path"`
	ContentDir    string    `json:"content_dir"`
	// TablePrefix is the prefix the install's configuration declared when
	// the snapshot was taken. Restoring the dump alone is not enough once
	// an import has rewritten the configured prefix.
	TablePrefix string `json:"table_prefix"`
}

// Manager creates, lists, and prunes snapshots under one base directory.
type Manager struct {
	wp        ports.WPClient
	transport ports.Transport
	fs        ports.FileSystem
	dir       string
}

// NewManager creates a snapshot manager storing snapshots under dir.
func NewManager(wp ports.WPClient, transport ports.Transport, fs ports.FileSystem, dir string) *Manager {
	return &Manager{wp: wp, transport: transport, fs: fs, dir: dir}
}

// Dir returns the snapshot base directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Create captures the current database and content tree. It only reads the
// target; all writes land under the snapshot directory. Must be called
// before any destructive step, and a failure here aborts the run.
func (m *Manager) Create(installPath, contentDir string) (*Snapshot, error) {
	tablePrefix, err := m.wp.GetTablePrefix(installPath)
	if err != nil {
		return nil, fmt.Errorf("reading table prefix: %w", err)
	}

	now := time.Now()
	id := now.Format("20060102-150405")
	snapDir := filepath.Join(m.dir, id)
	for n := 2; ; n++ {
		if _, err := m.fs.Stat(snapDir); err != nil {
			break
		}
		snapDir = filepath.Join(m.dir, fmt.Sprintf("%s-%d", id, n))
	}
	id = filepath.Base(snapDir)

	if err := m.fs.MkdirAll(snapDir, 0755); err != nil {
		return nil, fmt.Errorf("creating snapshot directory %s: %w", snapDir, err)
	}

	rawDump := filepath.Join(snapDir, "database.sql")
	if err := m.wp.ExportDatabase(installPath, rawDump); err != nil {
		return nil, fmt.Errorf("exporting database: %w", err)
	}
	gzDump := filepath.Join(snapDir, dumpFile)
	if err := m.compress(rawDump, gzDump); err != nil {
		return nil, fmt.Errorf("compressing dump: %w", err)
	}
	if err := m.fs.Remove(rawDump); err != nil {
		return nil, fmt.Errorf("removing raw dump: %w", err)
	}

	backup := filepath.Join(snapDir, contentBackupDir)
	if err := m.transport.SyncDir(contentDir, backup, false); err != nil {
		return nil, fmt.Errorf("copying content directory: %w", err)
	}

	snap := &Snapshot{
		ID:            id,
		CreatedAt:     now,
		DatabaseDump:  gzDump,
		ContentBackup: backup,
		InstallPath:   installPath,
		ContentDir:    contentDir,
		TablePrefix:   tablePrefix,
	}
	if err := m.save(snap, snapDir); err != nil {
		return nil, err
	}
	return snap, nil
}

// List returns all snapshots, oldest first.
func (m *Manager) List() ([]Snapshot, error) {
	entries, err := m.fs.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading snapshot directory %s: %w", m.dir, err)
	}

	var snaps []Snapshot
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		data, err := m.fs.ReadFile(filepath.Join(m.dir, entry.Name(), manifestFile))
		if err != nil {
			// Directories without a manifest are not snapshots.
			continue
		}
		var s Snapshot
		if err := json.Unmarshal(data, &s); err != nil {
			continue
		}
		snaps = append(snaps, s)
	}

	sort.Slice(snaps, func(i, j int) bool {
		return snaps[i].CreatedAt.Before(snaps[j].CreatedAt)
	})
	return snaps, nil
}

// Latest returns the most recent snapshot.
func (m *Manager) Latest() (*Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, fmt.Errorf("no snapshots found under %s", m.dir)
	}
	return &snaps[len(snaps)-1], nil
}

// Get returns the snapshot with the given ID.
func (m *Manager) Get(id string) (*Snapshot, error) {
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	for i := range snaps {
		if snaps[i].ID == id {
			return &snaps[i], nil
		}
	}
	return nil, fmt.Errorf("snapshot not found: %s", id)
}

// Prune removes the oldest snapshots beyond keepLast. Returns removed IDs.
func (m *Manager) Prune(keepLast int) ([]string, error) {
	if keepLast <= 0 {
		return nil, nil
	}
	snaps, err := m.List()
	if err != nil {
		return nil, err
	}
	if len(snaps) <= keepLast {
		return nil, nil
	}

	var removed []string
	for _, s := range snaps[:len(snaps)-keepLast] {
		if err := m.fs.RemoveAll(filepath.Join(m.dir, s.ID)); err != nil {
			return removed, fmt.Errorf("removing snapshot %s: %w", s.ID, err)
		}
		removed = append(removed, s.ID)
	}
	return removed, nil
}

// ExtractDump decompresses a snapshot's database dump to destPath.
func (m *Manager) ExtractDump(s *Snapshot, destPath string) error {
	in, err := m.fs.Open(s.DatabaseDump)
	if err != nil {
		return fmt.Errorf("opening dump %s: %w", s.DatabaseDump, err)
	}
	defer func() { _ = in.Close() }()

	gz, err := gzip.NewReader(in)
	if err != nil {
		return fmt.Errorf("reading dump %s: %w", s.DatabaseDump, err)
	}
	defer func() { _ = gz.Close() }()

	out, err := m.fs.Create(destPath)
	if err != nil {
		return fmt.Errorf("creating %s: %w", destPath, err)
	}
	if _, err := io.Copy(out, gz); err != nil {
		_ = out.Close()
		return fmt.Errorf("decompressing dump: %w", err)
	}
	return out.Close()
}

// save writes the snapshot manifest into its directory.
func (m *Manager) save(s *Snapshot, snapDir string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(snapDir, manifestFile)
	if err := m.fs.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing snapshot manifest %s: %w", path, err)
	}
	return nil
}

// compress gzips src into dest.
func (m *Manager) compress(src, dest string) error {
	in, err := m.fs.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := m.fs.Create(dest)
	if err != nil {
		return err
	}

	gz := gzip.NewWriter(out)
	if _, err := io.Copy(gz, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := gz.Close(); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}
