package format

import (
	"encoding/json"
	"path/filepath"
	"time"
)

// Layout of the native archive, shared by the exporter and the importer.
const (
	// NativeMetadataFile is the top-level signature and metadata file.
	NativeMetadataFile = "wpmigrate-backup.json"
	// NativeDatabaseFile is the SQL dump at the archive root.
	NativeDatabaseFile = "database.sql"
	// NativeContentDir is the content tree at the archive root.
	NativeContentDir = "wp-content"
	// NativeFormatVersion is the version the exporter writes.
	NativeFormatVersion = "1.0"
)

// NativeMetadata is the schema of wpmigrate-backup.json.
type NativeMetadata struct {
	FormatVersion string    `json:"format_version"`
	CreatedAt     time.Time `json:"created_at"`
	SiteURL       string    `json:"site_url"`
	TableCount    int       `json:"table_count"`
}

// NativeAdapter handles archives produced by the wpmigrate export command:
// a zip with metadata, dump, and content tree at fixed paths.
type NativeAdapter struct{}

func (a *NativeAdapter) Name() string            { return "native" }
func (a *NativeAdapter) DisplayName() string     { return "wpmigrate native" }
func (a *NativeAdapter) RequiredTools() []string { return nil }

// Validate accepts a zip carrying a parseable top-level metadata file with
// a non-empty version field.
func (a *NativeAdapter) Validate(archivePath string) bool {
	if !isZip(archivePath) {
		return false
	}
	raw, err := readZipEntry(archivePath, NativeMetadataFile)
	if err != nil {
		return false
	}
	var meta NativeMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return false
	}
	return meta.FormatVersion != ""
}

func (a *NativeAdapter) Extract(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	return extractZip(archivePath, destDir, opts.Progress)
}

func (a *NativeAdapter) FindDatabase(extractedRoot string) (string, error) {
	path := filepath.Join(extractedRoot, NativeDatabaseFile)
	if !statFile(path) {
		return "", &DiscoveryError{What: "database dump", Root: extractedRoot}
	}
	return path, nil
}

func (a *NativeAdapter) FindContent(extractedRoot string) (string, error) {
	path := filepath.Join(extractedRoot, NativeContentDir)
	if !statDir(path) {
		return "", &DiscoveryError{What: "content directory", Root: extractedRoot}
	}
	return path, nil
}

// ReadMetadata parses the metadata file from an extracted native archive.
func (a *NativeAdapter) ReadMetadata(extractedRoot string) (*NativeMetadata, error) {
	raw, err := readFileLimited(filepath.Join(extractedRoot, NativeMetadataFile))
	if err != nil {
		return nil, err
	}
	var meta NativeMetadata
	if err := json.Unmarshal(raw, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Compile-time check that NativeAdapter implements Adapter.
var _ Adapter = (*NativeAdapter)(nil)
