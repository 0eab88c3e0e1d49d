// Package export produces archives in the tool's own backup layout: a zip
// carrying the metadata file, the database dump, and the content tree. The
// import side detects and restores these without heuristics.
package export

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/wpmigrate/wpmigrate/internal/format"
	"github.com/wpmigrate/wpmigrate/internal/ports"
)

// Options configures one export run.
type Options struct {
	// InstallPath is the WordPress installation to export.
	InstallPath string
	// ContentDir is the content tree to include.
	ContentDir string
	// DestPath is the zip file to write.
	DestPath string
	// Progress reports packed files; nil exports silently.
	Progress format.ProgressFunc
}

// Result reports what an export packed.
type Result struct {
	DestPath   string
	Files      int
	TableCount int
	SiteURL    string
	// Skipped holds files that could not be read and were left out.
	Skipped []string
}

// Exporter writes native backup archives.
type Exporter struct {
	wp ports.WPClient
}

// NewExporter creates an exporter over the given command surface.
func NewExporter(wp ports.WPClient) *Exporter {
	return &Exporter{wp: wp}
}

// Export dumps the database, collects the metadata, and packs everything
// into a zip at opts.DestPath. A partially written archive is removed on
// failure.
func (e *Exporter) Export(opts Options) (*Result, error) {
	if !e.wp.IsInstalled(opts.InstallPath) {
		return nil, fmt.Errorf("no working installation at %s", opts.InstallPath)
	}

	siteURL, err := e.wp.GetOption(opts.InstallPath, "siteurl")
	if err != nil {
		return nil, fmt.Errorf("reading siteurl: %w", err)
	}
	tables, err := e.wp.ListTables(opts.InstallPath)
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}

	stageDir, err := os.MkdirTemp("", "wpmigrate-export-")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(stageDir)

	dumpPath := filepath.Join(stageDir, format.NativeDatabaseFile)
	if err := e.wp.ExportDatabase(opts.InstallPath, dumpPath); err != nil {
		return nil, fmt.Errorf("exporting database: %w", err)
	}

	meta := format.NativeMetadata{
		FormatVersion: format.NativeFormatVersion,
		CreatedAt:     time.Now().UTC(),
		SiteURL:       siteURL,
		TableCount:    len(tables),
	}

	res := &Result{
		DestPath:   opts.DestPath,
		TableCount: len(tables),
		SiteURL:    siteURL,
	}
	if err := e.pack(opts, meta, dumpPath, res); err != nil {
		os.Remove(opts.DestPath)
		return nil, err
	}
	return res, nil
}

func (e *Exporter) pack(opts Options, meta format.NativeMetadata, dumpPath string, res *Result) error {
	zipFile, err := os.Create(opts.DestPath)
	if err != nil {
		return err
	}
	w := zip.NewWriter(zipFile)

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return err
	}
	if err := writeEntry(w, format.NativeMetadataFile, metaJSON); err != nil {
		return err
	}
	res.Files++

	if err := copyEntry(w, format.NativeDatabaseFile, dumpPath); err != nil {
		return err
	}
	res.Files++

	walkErr := filepath.Walk(opts.ContentDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			res.Skipped = append(res.Skipped, path)
			return nil
		}
		if info.IsDir() || !info.Mode().IsRegular() {
			return nil
		}
		relPath, err := filepath.Rel(opts.ContentDir, path)
		if err != nil {
			res.Skipped = append(res.Skipped, path)
			return nil
		}
		name := filepath.ToSlash(filepath.Join(format.NativeContentDir, relPath))
		if err := copyEntry(w, name, path); err != nil {
			res.Skipped = append(res.Skipped, path)
			return nil
		}
		res.Files++
		if opts.Progress != nil {
			opts.Progress(res.Files, 0, name)
		}
		return nil
	})
	if walkErr != nil {
		zipFile.Close()
		return walkErr
	}

	if err := w.Close(); err != nil {
		zipFile.Close()
		return err
	}
	return zipFile.Close()
}

func writeEntry(w *zip.Writer, name string, content []byte) error {
	entry, err := w.Create(name)
	if err != nil {
		return err
	}
	_, err = entry.Write(content)
	return err
}

func copyEntry(w *zip.Writer, name, srcPath string) error {
	f, err := os.Open(srcPath)
	if err != nil {
		return err
	}
	defer f.Close()

	entry, err := w.Create(name)
	if err != nil {
		return err
	}
	_, err = io.Copy(entry, f)
	return err
}
