// Package admission decides whether an import may proceed, before any file
// is written: it estimates peak disk usage and compares it to free space at
// the extraction destination.
package admission

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// SpaceMultiplier estimates peak usage as a multiple of the compressed
// archive size: the extracted copy plus the working copies made during the
// destructive phase.
const SpaceMultiplier = 3

// InsufficientSpaceError reports an import rejected for lack of disk space.
type InsufficientSpaceError struct {
	Path      string
	Required  uint64
	Available uint64
}

func (e *InsufficientSpaceError) Error() string {
	return fmt.Sprintf("insufficient disk space at %s: need %s, have %s",
		e.Path, FormatSize(e.Required), FormatSize(e.Available))
}

// StatfsFunc returns the number of free bytes available to unprivileged
// processes on the filesystem holding path.
type StatfsFunc func(path string) (uint64, error)

// Controller performs the admission check. The zero value is not usable;
// call New.
type Controller struct {
	statfs StatfsFunc
}

// New creates a controller backed by the real statfs syscall.
func New() *Controller {
	return &Controller{statfs: freeBytes}
}

// NewWithStatfs creates a controller with an injected free-space probe.
func NewWithStatfs(statfs StatfsFunc) *Controller {
	return &Controller{statfs: statfs}
}

// Check admits or rejects an import of archiveSize compressed bytes with
// destDir as the extraction destination. Rejection carries both figures.
func (c *Controller) Check(destDir string, archiveSize int64) error {
	if archiveSize < 0 {
		return fmt.Errorf("invalid archive size: %d", archiveSize)
	}

	available, err := c.statfs(destDir)
	if err != nil {
		return fmt.Errorf("checking free space at %s: %w", destDir, err)
	}

	required := uint64(archiveSize) * SpaceMultiplier
	if required > available {
		return &InsufficientSpaceError{
			Path:      destDir,
			Required:  required,
			Available: available,
		}
	}
	return nil
}

// freeBytes reports free space via statfs.
func freeBytes(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}

// FormatSize formats bytes as human-readable.
func FormatSize(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := uint64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
