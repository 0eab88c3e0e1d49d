// Package rsynctransport provides a file transport adapter using rsync.
package rsynctransport

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/wpmigrate/wpmigrate/internal/ports"
)

// RsyncTransport implements ports.Transport using the rsync binary for
// directory sync and plain file I/O for single-file copies.
type RsyncTransport struct {
	// rsyncPath is the path to the rsync binary. Defaults to "rsync".
	rsyncPath string
}

// Option is a functional option for configuring RsyncTransport.
type Option func(*RsyncTransport)

// WithRsyncPath sets a custom path to the rsync binary.
func WithRsyncPath(path string) Option {
	return func(t *RsyncTransport) {
		t.rsyncPath = path
	}
}

// New creates a new RsyncTransport adapter.
func New(opts ...Option) *RsyncTransport {
	t := &RsyncTransport{
		rsyncPath: "rsync",
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// CopyFile copies a single file, creating parent directories as needed.
func (t *RsyncTransport) CopyFile(src, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("creating parent directory for %s: %w", dest, err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dest, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return fmt.Errorf("copying %s to %s: %w", src, dest, err)
	}
	return out.Close()
}

// SyncDir recursively mirrors srcDir into destDir via rsync -a. When
// deleteExtra is true, --delete makes destDir an exact mirror.
func (t *RsyncTransport) SyncDir(srcDir, destDir string, deleteExtra bool) error {
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating destination %s: %w", destDir, err)
	}

	args := []string{"-a"}
	if deleteExtra {
		args = append(args, "--delete")
	}
	// Trailing slash on the source: sync contents, not the directory itself.
	args = append(args, withTrailingSlash(srcDir), destDir)

	out, err := exec.Command(t.rsyncPath, args...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("rsync %s -> %s failed: %w: %s", srcDir, destDir, err, strings.TrimSpace(string(out)))
	}
	return nil
}

func withTrailingSlash(dir string) string {
	if strings.HasSuffix(dir, string(os.PathSeparator)) {
		return dir
	}
	return dir + string(os.PathSeparator)
}

// Compile-time check that RsyncTransport implements ports.Transport.
var _ ports.Transport = (*RsyncTransport)(nil)
