package mocks

import (
	"io"
	"os"
	"path/filepath"

	"github.com/wpmigrate/wpmigrate/internal/ports"
)

// SyncCall records one SyncDir invocation.
type SyncCall struct {
	Src         string
	Dest        string
	DeleteExtra bool
}

// CopyCall records one CopyFile invocation.
type CopyCall struct {
	Src  string
	Dest string
}

// MockTransport implements ports.Transport for testing.
// By default calls are only recorded; with Passthrough set, they are also
// performed with plain file I/O so tests can assert on resulting trees.
type MockTransport struct {
	Copies []CopyCall
	Syncs  []SyncCall

	// Passthrough performs real copies in addition to recording.
	Passthrough bool

	// Errors allows simulating errors for specific operations.
	Errors struct {
		Copy error
		Sync error
	}
}

// NewMockTransport creates a recording-only mock transport.
func NewMockTransport() *MockTransport {
	return &MockTransport{}
}

// CopyFile records (and optionally performs) a single-file copy.
func (m *MockTransport) CopyFile(src, dest string) error {
	if m.Errors.Copy != nil {
		return m.Errors.Copy
	}
	m.Copies = append(m.Copies, CopyCall{Src: src, Dest: dest})
	if !m.Passthrough {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return err
	}
	return copyFile(src, dest)
}

// SyncDir records (and optionally performs) a recursive directory sync.
func (m *MockTransport) SyncDir(srcDir, destDir string, deleteExtra bool) error {
	if m.Errors.Sync != nil {
		return m.Errors.Sync
	}
	m.Syncs = append(m.Syncs, SyncCall{Src: srcDir, Dest: destDir, DeleteExtra: deleteExtra})
	if !m.Passthrough {
		return nil
	}
	if deleteExtra {
		if err := os.RemoveAll(destDir); err != nil {
			return err
		}
	}
	return filepath.Walk(srcDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		target := filepath.Join(destDir, rel)
		if info.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(path, target)
	})
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// Compile-time check that MockTransport implements ports.Transport.
var _ ports.Transport = (*MockTransport)(nil)
