package format

import (
	"path/filepath"

	"github.com/wpmigrate/wpmigrate/internal/content"
)

// backwpupManifest is BackWPup's fixed top-level job manifest.
const backwpupManifest = "manifest.json"

// backwpupDatabase is the dump filename BackWPup writes at the root.
const backwpupDatabase = "database.sql"

// BackWPupAdapter handles BackWPup job archives: a gzip-compressed tarball
// with a manifest at the top level. The only non-zip container among the
// supported layouts.
type BackWPupAdapter struct{}

func (a *BackWPupAdapter) Name() string            { return "backwpup" }
func (a *BackWPupAdapter) DisplayName() string     { return "BackWPup" }
func (a *BackWPupAdapter) RequiredTools() []string { return nil }

func (a *BackWPupAdapter) Validate(archivePath string) bool {
	return isGzip(archivePath) && tarGzHasEntry(archivePath, backwpupManifest)
}

func (a *BackWPupAdapter) Extract(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	return extractTarGz(archivePath, destDir, opts.Progress)
}

func (a *BackWPupAdapter) FindDatabase(extractedRoot string) (string, error) {
	path := filepath.Join(extractedRoot, backwpupDatabase)
	if !statFile(path) {
		return "", &DiscoveryError{What: "database dump", Root: extractedRoot}
	}
	return path, nil
}

func (a *BackWPupAdapter) FindContent(extractedRoot string) (string, error) {
	dir, ok := content.Locate(extractedRoot)
	if !ok {
		return "", &DiscoveryError{What: "content directory", Root: extractedRoot}
	}
	return dir, nil
}

// Compile-time check that BackWPupAdapter implements Adapter.
var _ Adapter = (*BackWPupAdapter)(nil)
