package format

import (
	"encoding/json"

	"github.com/wpmigrate/wpmigrate/internal/content"
)

// wpvividInfoFile is WPvivid's top-level package descriptor.
const wpvividInfoFile = "wpvivid_package_info.json"

// WPVividAdapter handles WPvivid backup archives: a zip with a top-level
// package-info JSON. The dump carries a site-specific name, so discovery
// scans for the .sql extension instead of a fixed filename, and the
// content tree is wrapped in plugin-chosen directories, so discovery uses
// the scored locator.
type WPVividAdapter struct{}

func (a *WPVividAdapter) Name() string            { return "wpvivid" }
func (a *WPVividAdapter) DisplayName() string     { return "WPvivid Backup" }
func (a *WPVividAdapter) RequiredTools() []string { return nil }

func (a *WPVividAdapter) Validate(archivePath string) bool {
	if !isZip(archivePath) {
		return false
	}
	raw, err := readZipEntry(archivePath, wpvividInfoFile)
	if err != nil {
		return false
	}
	// Schema varies across plugin versions; a JSON object is enough to
	// distinguish it from a file that merely shares the name.
	var info map[string]any
	return json.Unmarshal(raw, &info) == nil
}

func (a *WPVividAdapter) Extract(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error) {
	return extractZip(archivePath, destDir, opts.Progress)
}

func (a *WPVividAdapter) FindDatabase(extractedRoot string) (string, error) {
	path, ok := findLargestByExt(extractedRoot, ".sql")
	if !ok {
		return "", &DiscoveryError{What: "database dump", Root: extractedRoot}
	}
	return path, nil
}

func (a *WPVividAdapter) FindContent(extractedRoot string) (string, error) {
	dir, ok := content.Locate(extractedRoot)
	if !ok {
		return "", &DiscoveryError{What: "content directory", Root: extractedRoot}
	}
	return dir, nil
}

// Compile-time check that WPVividAdapter implements Adapter.
var _ Adapter = (*WPVividAdapter)(nil)
