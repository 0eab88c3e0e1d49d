// Package mocks provides mock implementations for testing.
package mocks

import (
	"fmt"
	"os"

	"github.com/wpmigrate/wpmigrate/internal/ports"
)

// MockWPClient implements ports.WPClient for testing.
type MockWPClient struct {
	// Installed is returned by IsInstalled.
	Installed bool
	// Options holds option values for GetOption/SetOption.
	Options map[string]string
	// Tables is returned by ListTables.
	Tables []string
	// TablesAfterImport, when non-nil, replaces Tables after a successful
	// ImportDatabase call, simulating a dump with a different prefix.
	TablesAfterImport []string
	// ExportSQL is the dump content written by ExportDatabase.
	ExportSQL string
	// TablePrefix is the prefix declared in the mock's configuration.
	// SetTablePrefix updates it.
	TablePrefix string

	// Recorded calls.
	Exports      []string
	Imports      []string
	Dropped      []string
	Prefixes     []string
	Replacements []ReplaceCall
	Maintenance  []bool

	// ReplaceCount is returned by SearchReplace.
	ReplaceCount int

	// Errors allows simulating errors for specific operations.
	Errors struct {
		Export      error
		Import      error
		GetOption   error
		SetOption   error
		ListTables  error
		DropTables  error
		GetPrefix   error
		SetPrefix   error
		Replace     error
		Maintenance error
	}
}

// ReplaceCall records one SearchReplace invocation.
type ReplaceCall struct {
	From string
	To   string
}

// NewMockWPClient creates a mock client for a healthy install with a
// standard wp_ table set.
func NewMockWPClient() *MockWPClient {
	return &MockWPClient{
		Installed: true,
		Options: map[string]string{
			"siteurl": "https://example.com",
		},
		Tables:      []string{"wp_options", "wp_posts", "wp_users"},
		ExportSQL:   "-- mock dump\n",
		TablePrefix: "wp_",
	}
}

// IsInstalled reports whether installPath holds a working install.
func (m *MockWPClient) IsInstalled(installPath string) bool {
	return m.Installed
}

// ExportDatabase writes ExportSQL to destPath.
func (m *MockWPClient) ExportDatabase(installPath, destPath string) error {
	if m.Errors.Export != nil {
		return m.Errors.Export
	}
	if err := os.WriteFile(destPath, []byte(m.ExportSQL), 0644); err != nil {
		return err
	}
	m.Exports = append(m.Exports, destPath)
	return nil
}

// ImportDatabase records the dump and applies TablesAfterImport.
func (m *MockWPClient) ImportDatabase(installPath, dumpPath string) error {
	if m.Errors.Import != nil {
		return m.Errors.Import
	}
	if _, err := os.Stat(dumpPath); err != nil {
		return fmt.Errorf("dump not readable: %w", err)
	}
	m.Imports = append(m.Imports, dumpPath)
	if m.TablesAfterImport != nil {
		m.Tables = m.TablesAfterImport
	}
	return nil
}

// GetOption returns the value of a WordPress option.
func (m *MockWPClient) GetOption(installPath, name string) (string, error) {
	if m.Errors.GetOption != nil {
		return "", m.Errors.GetOption
	}
	value, ok := m.Options[name]
	if !ok {
		return "", fmt.Errorf("option not found: %s", name)
	}
	return value, nil
}

// SetOption sets a WordPress option to value.
func (m *MockWPClient) SetOption(installPath, name, value string) error {
	if m.Errors.SetOption != nil {
		return m.Errors.SetOption
	}
	if m.Options == nil {
		m.Options = make(map[string]string)
	}
	m.Options[name] = value
	return nil
}

// ListTables returns the current table set.
func (m *MockWPClient) ListTables(installPath string) ([]string, error) {
	if m.Errors.ListTables != nil {
		return nil, m.Errors.ListTables
	}
	out := make([]string, len(m.Tables))
	copy(out, m.Tables)
	return out, nil
}

// DropTables records the dropped table names.
func (m *MockWPClient) DropTables(installPath string, tables []string) error {
	if m.Errors.DropTables != nil {
		return m.Errors.DropTables
	}
	m.Dropped = append(m.Dropped, tables...)
	return nil
}

// GetTablePrefix returns the configured prefix.
func (m *MockWPClient) GetTablePrefix(installPath string) (string, error) {
	if m.Errors.GetPrefix != nil {
		return "", m.Errors.GetPrefix
	}
	return m.TablePrefix, nil
}

// SetTablePrefix records the new prefix and makes it the configured one.
func (m *MockWPClient) SetTablePrefix(installPath, prefix string) error {
	if m.Errors.SetPrefix != nil {
		return m.Errors.SetPrefix
	}
	m.Prefixes = append(m.Prefixes, prefix)
	m.TablePrefix = prefix
	return nil
}

// SearchReplace records the call and returns ReplaceCount.
func (m *MockWPClient) SearchReplace(installPath, from, to string) (int, error) {
	if m.Errors.Replace != nil {
		return 0, m.Errors.Replace
	}
	m.Replacements = append(m.Replacements, ReplaceCall{From: from, To: to})
	return m.ReplaceCount, nil
}

// SetMaintenance records maintenance mode transitions.
func (m *MockWPClient) SetMaintenance(installPath string, on bool) error {
	if m.Errors.Maintenance != nil {
		return m.Errors.Maintenance
	}
	m.Maintenance = append(m.Maintenance, on)
	return nil
}

// Compile-time check that MockWPClient implements ports.WPClient.
var _ ports.WPClient = (*MockWPClient)(nil)
