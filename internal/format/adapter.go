// Package format implements detection, extraction, and discovery for the
// supported backup archive layouts. Each layout is a closed variant behind
// one Adapter interface; the Registry tries them in a fixed order.
package format

import (
	"fmt"
	"strings"
)

// ProgressFunc reports extraction progress. total is zero when the entry
// count is unknown up front (tar streams). A nil ProgressFunc means silent
// extraction.
type ProgressFunc func(done, total int, name string)

// ExtractOptions configures an extraction run.
type ExtractOptions struct {
	Progress ProgressFunc
}

// ExtractResult reports what an extraction actually did. Skipped holds
// entries that were filtered rather than written (symlinks, device nodes);
// callers log them instead of the extractor mutating shared state.
type ExtractResult struct {
	Files   int
	Skipped []string
}

// Adapter is the capability set one archive layout must implement.
//
// Validate is cheap and read-only: it inspects listings and at most one
// small signature file, and swallows its own errors to false so detection
// can move on to the next candidate. The remaining operations are only
// called once an adapter is bound to the run, and their failures are fatal.
type Adapter interface {
	// Name returns the stable identifier used for explicit format overrides.
	Name() string

	// DisplayName returns the human-readable format name.
	DisplayName() string

	// RequiredTools returns external binaries this format needs beyond the
	// core pipeline's own. Empty for the built-in pure-Go extractors.
	RequiredTools() []string

	// Validate reports whether the archive matches this layout.
	Validate(archivePath string) bool

	// Extract decompresses the archive into destDir, rejecting the whole
	// operation on the first unsafe entry path.
	Extract(archivePath, destDir string, opts ExtractOptions) (*ExtractResult, error)

	// FindDatabase locates the SQL dump inside the extracted tree.
	FindDatabase(extractedRoot string) (string, error)

	// FindContent locates the content directory inside the extracted tree.
	FindContent(extractedRoot string) (string, error)
}

// DiscoveryError reports a database dump or content root that could not be
// located inside an otherwise valid archive.
type DiscoveryError struct {
	What string // "database dump" or "content directory"
	Root string
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("%s not found under %s", e.What, e.Root)
}

// UnrecognizedFormatError reports that no adapter validated the archive.
type UnrecognizedFormatError struct {
	Path  string
	Tried []string
}

func (e *UnrecognizedFormatError) Error() string {
	return fmt.Sprintf("unrecognized archive format: %s (tried: %s)", e.Path, strings.Join(e.Tried, ", "))
}

// Registry holds the ordered adapter list. The native format comes first
// for fastest common-case detection.
type Registry struct {
	adapters []Adapter
}

// NewRegistry creates a registry with an explicit adapter order.
func NewRegistry(adapters ...Adapter) *Registry {
	return &Registry{adapters: adapters}
}

// DefaultRegistry returns the registry of all supported formats.
func DefaultRegistry() *Registry {
	return NewRegistry(
		&NativeAdapter{},
		&WPVividAdapter{},
		&DuplicatorAdapter{},
		&DuplicatorLegacyAdapter{},
		&BackWPupAdapter{},
	)
}

// Adapters returns the adapters in detection order.
func (r *Registry) Adapters() []Adapter {
	out := make([]Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}

// Detect binds the first adapter whose Validate accepts the archive.
func (r *Registry) Detect(archivePath string) (Adapter, error) {
	var tried []string
	for _, a := range r.adapters {
		if a.Validate(archivePath) {
			return a, nil
		}
		tried = append(tried, a.Name())
	}
	return nil, &UnrecognizedFormatError{Path: archivePath, Tried: tried}
}

// Get returns the adapter with the given name, for explicit overrides.
func (r *Registry) Get(name string) (Adapter, error) {
	for _, a := range r.adapters {
		if a.Name() == name {
			return a, nil
		}
	}
	names := make([]string, 0, len(r.adapters))
	for _, a := range r.adapters {
		names = append(names, a.Name())
	}
	return nil, fmt.Errorf("unknown format %q (supported: %s)", name, strings.Join(names, ", "))
}
