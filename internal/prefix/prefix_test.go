package prefix

import (
	"errors"
	"testing"

	"github.com/wpmigrate/wpmigrate/internal/mocks"
)

func wpTables(prefix string) []string {
	return []string{
		prefix + "options",
		prefix + "posts",
		prefix + "postmeta",
		prefix + "users",
		prefix + "usermeta",
	}
}

func TestResolveConfiguredPrefixWins(t *testing.T) {
	got, err := Resolve(wpTables("wp_"), "wp_", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "wp_" {
		t.Errorf("Resolve = %q, expected wp_", got)
	}
}

func TestResolveDerivesDumpPrefix(t *testing.T) {
	// Live config says wp_ but the dump used custom_.
	got, err := Resolve(wpTables("custom_"), "wp_", nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "custom_" {
		t.Errorf("Resolve = %q, expected custom_", got)
	}
}

func TestResolveExplicitCandidates(t *testing.T) {
	got, err := Resolve(wpTables("site2_"), "wp_", []string{"site1_", "site2_"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got != "site2_" {
		t.Errorf("Resolve = %q, expected site2_", got)
	}
}

func TestResolveRequiresFullTriple(t *testing.T) {
	// options and posts but no users: incomplete triple must not resolve.
	tables := []string{"wp_options", "wp_posts"}
	_, err := Resolve(tables, "wp_", nil)
	var nf *NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected *NotFoundError, got %v", err)
	}
	if nf.Tables != 2 {
		t.Errorf("Tables = %d, expected 2", nf.Tables)
	}
}

func TestResolveRejectsInvalidDerivedPrefix(t *testing.T) {
	// A table name that would derive a prefix violating the identifier
	// grammar must not be accepted even with a complete triple.
	tables := []string{"bad-prefix-options", "bad-prefix-posts", "bad-prefix-users"}
	if got, err := Resolve(tables, "wp_", nil); err == nil {
		t.Errorf("expected failure, resolved %q", got)
	}
}

func TestSyncUpdatesConfiguration(t *testing.T) {
	wp := mocks.NewMockWPClient()
	wp.Tables = wpTables("custom_")

	r := NewResolver(wp)
	resolved, changed, err := r.Sync("/var/www/html", "wp_", nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if resolved != "custom_" || !changed {
		t.Errorf("Sync = (%q, %v), expected (custom_, true)", resolved, changed)
	}
	if len(wp.Prefixes) != 1 || wp.Prefixes[0] != "custom_" {
		t.Errorf("SetTablePrefix calls = %v", wp.Prefixes)
	}
}

func TestSyncNoChangeWhenPrefixMatches(t *testing.T) {
	wp := mocks.NewMockWPClient()
	wp.Tables = wpTables("wp_")

	r := NewResolver(wp)
	resolved, changed, err := r.Sync("/var/www/html", "wp_", nil)
	if err != nil {
		t.Fatalf("Sync: %v", err)
	}
	if resolved != "wp_" || changed {
		t.Errorf("Sync = (%q, %v), expected (wp_, false)", resolved, changed)
	}
	if len(wp.Prefixes) != 0 {
		t.Errorf("unexpected SetTablePrefix calls: %v", wp.Prefixes)
	}
}

func TestSyncFatalWhenNoPrefix(t *testing.T) {
	wp := mocks.NewMockWPClient()
	wp.Tables = []string{"unrelated_table"}

	r := NewResolver(wp)
	if _, _, err := r.Sync("/var/www/html", "wp_", nil); err == nil {
		t.Error("expected resolution failure for a dump with no core tables")
	}
}
