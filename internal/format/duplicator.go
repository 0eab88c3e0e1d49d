package format

import (
	"path/filepath"

	"github.com/wpmigrate/wpmigrate/internal/content"
)

// Duplicator has shipped two archive layouts. Current packages carry a
// dup-installer directory with the installer entry point; legacy packages
// carry a single installer-backup.php at the root. Both are zips.
const (
	duplicatorMarker       = "dup-installer/main.installer.php"
	duplicatorDatabase     = "dup-installer/dup-database.sql"
	duplicatorLegacyMarker = "installer-backup.php"
	duplicatorLegacyDB     = "installer-data.sql"
)

// DuplicatorAdapter handles current Duplicator packages.
type DuplicatorAdapter struct{}

func (a *DuplicatorAdapter) Name() string            { return "duplicator" }
func (a *DuplicatorAdapter) DisplayName() string     { return "Duplicator" }
func (a *DuplicatorAdapter) RequiredTools() []string { return nil }

func (a *DuplicatorAdapter) Validate(archivePath string) bool {
	return isZip(archivePath) && zipHasEntry(archivePath, duplicatorMarker)
}

func (a *DuplicatorAdapter) Extract(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	return extractZip(archivePath, destDir, opts.Progress)
}

func (a *DuplicatorAdapter) FindDatabase(extractedRoot string) (string, error) {
	path := filepath.Join(extractedRoot, filepath.FromSlash(duplicatorDatabase))
	if !statFile(path) {
		return "", &DiscoveryError{What: "database dump", Root: extractedRoot}
	}
	return path, nil
}

func (a *DuplicatorAdapter) FindContent(extractedRoot string) (string, error) {
	dir, ok := content.Locate(extractedRoot)
	if !ok {
		return "", &DiscoveryError{What: "content directory", Root: extractedRoot}
	}
	return dir, nil
}

// DuplicatorLegacyAdapter handles pre-4.x Duplicator packages.
type DuplicatorLegacyAdapter struct{}

func (a *DuplicatorLegacyAdapter) Name() string            { return "duplicator-legacy" }
func (a *DuplicatorLegacyAdapter) DisplayName() string     { return "Duplicator (legacy)" }
func (a *DuplicatorLegacyAdapter) RequiredTools() []string { return nil }

func (a *DuplicatorLegacyAdapter) Validate(archivePath string) bool {
	return isZip(archivePath) && zipHasEntry(archivePath, duplicatorLegacyMarker)
}

func (a *DuplicatorLegacyAdapter) Extract(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	return extractZip(archivePath, destDir, opts.Progress)
}

func (a *DuplicatorLegacyAdapter) FindDatabase(extractedRoot string) (string, error) {
	path := filepath.Join(extractedRoot, duplicatorLegacyDB)
	if !statFile(path) {
		return "", &DiscoveryError{What: "database dump", Root: extractedRoot}
	}
	return path, nil
}

func (a *DuplicatorLegacyAdapter) FindContent(extractedRoot string) (string, error) {
	dir, ok := content.Locate(extractedRoot)
	if !ok {
		return "", &DiscoveryError{What: "content directory", Root: extractedRoot}
	}
	return dir, nil
}

// Compile-time checks.
var (
	_ Adapter = (*DuplicatorAdapter)(nil)
	_ Adapter = (*DuplicatorLegacyAdapter)(nil)
)
