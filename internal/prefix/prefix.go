// Package prefix reconciles the table prefix declared in the live
// configuration with the prefix actually present in a just-imported
// database. Once a dump has landed, it is the higher authority: the live
// configuration is rewritten to match it.
package prefix

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wpmigrate/wpmigrate/internal/ports"
	"github.com/wpmigrate/wpmigrate/internal/safety"
)

// coreSuffixes is the probe triple: a prefix is only accepted when all
// three core tables resolve under it consistently.
var coreSuffixes = [...]string{"options", "posts", "users"}

// NotFoundError reports that no candidate prefix had a complete core table
// triple - the mark of a corrupt or incompatible dump.
type NotFoundError struct {
	Tried  []string
	Tables int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("no table prefix with a complete options/posts/users triple among %d tables (tried: %s)",
		e.Tables, strings.Join(e.Tried, ", "))
}

// Resolve determines the prefix used by tables. The configured prefix wins
// if its triple is present; otherwise explicit candidates are probed in
// order; otherwise candidates are derived from table names ending in
// "options". Every accepted prefix must pass the identifier grammar.
func Resolve(tables []string, configured string, candidates []string) (string, error) {
	set := make(map[string]bool, len(tables))
	for _, t := range tables {
		set[t] = true
	}

	tried := make([]string, 0, len(candidates)+1)
	probe := func(p string) bool {
		if p == "" || !safety.ValidTablePrefix(p) {
			return false
		}
		tried = append(tried, p)
		for _, suffix := range coreSuffixes {
			if !set[p+suffix] {
				return false
			}
		}
		return true
	}

	if probe(configured) {
		return configured, nil
	}
	for _, c := range candidates {
		if c == configured {
			continue
		}
		if probe(c) {
			return c, nil
		}
	}

	// Derive candidates from the dump itself.
	var derived []string
	for name := range set {
		p := strings.TrimSuffix(name, "options")
		if p == name {
			continue
		}
		derived = append(derived, p)
	}
	sort.Strings(derived)
	for _, p := range derived {
		if probe(p) {
			return p, nil
		}
	}

	return "", &NotFoundError{Tried: tried, Tables: len(tables)}
}

// Resolver reconciles the live configuration with an imported database.
type Resolver struct {
	wp ports.WPClient
}

// NewResolver creates a resolver over the given WordPress client.
func NewResolver(wp ports.WPClient) *Resolver {
	return &Resolver{wp: wp}
}

// Sync resolves the imported prefix and, when it differs from the
// configured one, rewrites the configuration to match. Returns the
// resolved prefix and whether the configuration was changed.
func (r *Resolver) Sync(installPath, configured string, candidates []string) (string, bool, error) {
	tables, err := r.wp.ListTables(installPath)
	if err != nil {
		return "", false, fmt.Errorf("listing tables: %w", err)
	}

	resolved, err := Resolve(tables, configured, candidates)
	if err != nil {
		return "", false, err
	}

	if resolved == configured {
		return resolved, false, nil
	}
	if err := r.wp.SetTablePrefix(installPath, resolved); err != nil {
		return "", false, fmt.Errorf("updating configured prefix %q -> %q: %w", configured, resolved, err)
	}
	return resolved, true, nil
}
