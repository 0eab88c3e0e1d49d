package format

import (
	"archive/tar"
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/wpmigrate/wpmigrate/internal/safety"
)

// MaxDecompressSize is the maximum allowed uncompressed size for a single
// extracted file (10GB). Prevents decompression bomb attacks.
const MaxDecompressSize = 10 * 1024 * 1024 * 1024

// maxSignatureSize bounds how much of a signature file Validate will read.
const maxSignatureSize = 256 * 1024

var (
	zipMagic  = []byte{'P', 'K', 0x03, 0x04}
	gzipMagic = []byte{0x1f, 0x8b}
)

// hasMagic reports whether the file at path starts with the given bytes.
func hasMagic(path string, magic []byte) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, len(magic))
	if _, err := io.ReadFull(f, buf); err != nil {
		return false
	}
	return bytes.Equal(buf, magic)
}

// isZip reports whether path looks like a zip archive.
func isZip(path string) bool { return hasMagic(path, zipMagic) }

// isGzip reports whether path looks like a gzip stream.
func isGzip(path string) bool { return hasMagic(path, gzipMagic) }

// zipHasEntry reports whether the zip contains an entry with exactly the
// given name (forward slashes, as stored).
func zipHasEntry(zipPath, name string) bool {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return false
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name == name {
			return true
		}
	}
	return false
}

// readZipEntry reads one entry from the zip, bounded by maxSignatureSize.
func readZipEntry(zipPath, name string) ([]byte, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = r.Close() }()

	for _, f := range r.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, err
		}
		defer func() { _ = rc.Close() }()
		return io.ReadAll(io.LimitReader(rc, maxSignatureSize))
	}
	return nil, fmt.Errorf("entry not found in archive: %s", name)
}

// tarGzHasEntry reports whether the tar.gz stream contains an entry with
// exactly the given name. Only headers are read.
func tarGzHasEntry(path, name string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return false
	}
	defer func() { _ = gz.Close() }()

	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err != nil {
			return false
		}
		if strings.TrimPrefix(hdr.Name, "./") == name {
			return true
		}
	}
}

// extractZip extracts a zip archive into destDir. Every entry path is
// checked before anything is written; the first unsafe path aborts the
// whole operation. Symlinks and other irregular entries are skipped and
// reported in the result rather than written.
func extractZip(zipPath, destDir string, progress ProgressFunc) (*ExtractResult, error) {
	r, err := zip.OpenReader(zipPath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", zipPath, err)
	}
	defer func() { _ = r.Close() }()

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("resolving destination path: %w", err)
	}
	absDest = filepath.Clean(absDest)

	// Reject unsafe paths before the first write so a poisoned archive
	// leaves nothing behind.
	for _, f := range r.File {
		if err := safety.CheckArchivePath(f.Name); err != nil {
			return nil, err
		}
	}

	result := &ExtractResult{}
	total := len(r.File)
	for i, f := range r.File {
		if progress != nil {
			progress(i+1, total, f.Name)
		}

		if f.Mode()&os.ModeSymlink != 0 || !f.Mode().IsRegular() && !f.FileInfo().IsDir() {
			result.Skipped = append(result.Skipped, f.Name)
			continue
		}

		fpath := filepath.Join(destDir, f.Name)
		if !isWithinDir(absDest, fpath) {
			return nil, &safety.PathSafetyError{Path: f.Name}
		}

		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", fpath, err)
			}
			continue
		}

		if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
			return nil, fmt.Errorf("creating parent directory for %s: %w", fpath, err)
		}
		if err := writeZipEntry(f, fpath); err != nil {
			return nil, fmt.Errorf("extracting %s: %w", f.Name, err)
		}
		result.Files++
	}

	return result, nil
}

// writeZipEntry extracts a single regular file from the zip.
func writeZipEntry(f *zip.File, destPath string) error {
	declared := f.UncompressedSize64
	if declared > MaxDecompressSize {
		return fmt.Errorf("file too large: %d bytes exceeds limit of %d bytes", declared, uint64(MaxDecompressSize))
	}

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	rc, err := f.Open()
	if err != nil {
		return err
	}
	defer func() { _ = rc.Close() }()

	// One extra byte detects a stream longer than the declared size.
	written, err := io.Copy(out, io.LimitReader(rc, int64(declared)+1))
	if err != nil {
		return err
	}
	if written > int64(declared) {
		return fmt.Errorf("decompressed size exceeds declared size")
	}
	return nil
}

// extractTarGz extracts a gzip-compressed tarball into destDir with the
// same path-safety rules as extractZip. The entry count is unknown up
// front, so progress is reported with a zero total.
func extractTarGz(archivePath, destDir string, progress ProgressFunc) (*ExtractResult, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", archivePath, err)
	}
	defer func() { _ = f.Close() }()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("reading gzip stream: %w", err)
	}
	defer func() { _ = gz.Close() }()

	absDest, err := filepath.Abs(destDir)
	if err != nil {
		return nil, fmt.Errorf("resolving destination path: %w", err)
	}
	absDest = filepath.Clean(absDest)

	result := &ExtractResult{}
	done := 0
	tr := tar.NewReader(gz)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading tar stream: %w", err)
		}

		name := strings.TrimPrefix(hdr.Name, "./")
		if name == "" || name == "." {
			continue
		}
		if err := safety.CheckArchivePath(name); err != nil {
			return nil, err
		}

		done++
		if progress != nil {
			progress(done, 0, name)
		}

		fpath := filepath.Join(destDir, name)
		if !isWithinDir(absDest, fpath) {
			return nil, &safety.PathSafetyError{Path: hdr.Name}
		}

		switch hdr.Typeflag {
		case tar.TypeDir:
			if err := os.MkdirAll(fpath, 0755); err != nil {
				return nil, fmt.Errorf("creating directory %s: %w", fpath, err)
			}
		case tar.TypeReg:
			if hdr.Size > MaxDecompressSize {
				return nil, fmt.Errorf("extracting %s: file too large: %d bytes", name, hdr.Size)
			}
			if err := os.MkdirAll(filepath.Dir(fpath), 0755); err != nil {
				return nil, fmt.Errorf("creating parent directory for %s: %w", fpath, err)
			}
			if err := writeTarEntry(tr, hdr, fpath); err != nil {
				return nil, fmt.Errorf("extracting %s: %w", name, err)
			}
			result.Files++
		default:
			// Symlinks, hard links, devices: filtered, not fatal.
			result.Skipped = append(result.Skipped, name)
		}
	}

	return result, nil
}

// writeTarEntry extracts a single regular file from the tar stream.
func writeTarEntry(tr *tar.Reader, hdr *tar.Header, destPath string) error {
	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, os.FileMode(hdr.Mode).Perm())
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	written, err := io.Copy(out, io.LimitReader(tr, hdr.Size+1))
	if err != nil {
		return err
	}
	if written > hdr.Size {
		return fmt.Errorf("entry larger than declared size")
	}
	return nil
}

// isWithinDir checks if the target path is within the base directory.
func isWithinDir(absBaseDir, targetPath string) bool {
	absTarget, err := filepath.Abs(targetPath)
	if err != nil {
		return false
	}
	absTarget = filepath.Clean(absTarget)

	return strings.HasPrefix(absTarget, absBaseDir+string(filepath.Separator)) ||
		absTarget == absBaseDir
}

// IsWithinDir reports whether target resolves to a descendant of baseDir
// (or baseDir itself). Discovered database and content paths are re-checked
// with this before being read, even though extraction already validated
// every entry.
func IsWithinDir(baseDir, target string) bool {
	absBase, err := filepath.Abs(baseDir)
	if err != nil {
		return false
	}
	return isWithinDir(filepath.Clean(absBase), target)
}

// findLargestByExt walks root for files with the given extension and
// returns the largest one. Dumps dwarf everything else in an archive, so
// size disambiguates when several .sql files are present.
func findLargestByExt(root, ext string) (string, bool) {
	var best string
	var bestSize int64 = -1
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if !strings.EqualFold(filepath.Ext(path), ext) {
			return nil
		}
		if info.Size() > bestSize {
			best = path
			bestSize = info.Size()
		}
		return nil
	})
	return best, bestSize >= 0
}

// readFileLimited reads a file bounded by maxSignatureSize.
func readFileLimited(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return io.ReadAll(io.LimitReader(f, maxSignatureSize))
}

// statFile reports whether path exists and is a regular file.
func statFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// statDir reports whether path exists and is a directory.
func statDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
