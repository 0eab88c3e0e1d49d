// Package execwp provides a WordPress client adapter shelling out to wp-cli.
package execwp

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/wpmigrate/wpmigrate/internal/ports"
)

// ExecWPClient implements ports.WPClient using the wp binary.
//
// Every invocation passes --skip-plugins and --skip-themes so commands keep
// working against an install whose extensions are broken or half-imported.
type ExecWPClient struct {
	// wpPath is the path to the wp binary. Defaults to "wp".
	wpPath string

	// allowRoot adds --allow-root, needed when running inside containers.
	allowRoot bool
}

// Option is a functional option for configuring ExecWPClient.
type Option func(*ExecWPClient)

// WithWPPath sets a custom path to the wp binary.
func WithWPPath(path string) Option {
	return func(c *ExecWPClient) {
		c.wpPath = path
	}
}

// WithAllowRoot allows wp-cli to run as root.
func WithAllowRoot() Option {
	return func(c *ExecWPClient) {
		c.allowRoot = true
	}
}

// New creates a new ExecWPClient adapter.
func New(opts ...Option) *ExecWPClient {
	c := &ExecWPClient{
		wpPath: "wp",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// command builds a wp invocation with the standard safety flags applied.
func (c *ExecWPClient) command(installPath string, args ...string) *exec.Cmd {
	full := append([]string{}, args...)
	full = append(full,
		"--path="+installPath,
		"--skip-plugins",
		"--skip-themes",
	)
	if c.allowRoot {
		full = append(full, "--allow-root")
	}
	return exec.Command(c.wpPath, full...)
}

// IsInstalled reports whether installPath holds a working WordPress install.
func (c *ExecWPClient) IsInstalled(installPath string) bool {
	return c.command(installPath, "core", "is-installed").Run() == nil
}

// ExportDatabase dumps the full database to destPath as plain SQL.
func (c *ExecWPClient) ExportDatabase(installPath, destPath string) error {
	out, err := c.command(installPath, "db", "export", destPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp db export to %s failed: %w: %s", destPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ImportDatabase replaces the current database contents with dumpPath.
func (c *ExecWPClient) ImportDatabase(installPath, dumpPath string) error {
	out, err := c.command(installPath, "db", "import", dumpPath).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp db import %s failed: %w: %s", dumpPath, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// GetOption returns the value of a WordPress option.
func (c *ExecWPClient) GetOption(installPath, name string) (string, error) {
	out, err := c.command(installPath, "option", "get", name).Output()
	if err != nil {
		return "", fmt.Errorf("wp option get %s failed: %w", name, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// SetOption sets a WordPress option to value.
func (c *ExecWPClient) SetOption(installPath, name, value string) error {
	out, err := c.command(installPath, "option", "update", name, value).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp option update %s failed: %w: %s", name, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ListTables returns the names of all tables in the install's database.
func (c *ExecWPClient) ListTables(installPath string) ([]string, error) {
	out, err := c.command(installPath, "db", "tables", "--all-tables", "--format=csv").Output()
	if err != nil {
		return nil, fmt.Errorf("wp db tables failed: %w", err)
	}
	return ParseTableList(string(out)), nil
}

// DropTables drops the named tables. Callers are responsible for validating
// every name before passing it here.
func (c *ExecWPClient) DropTables(installPath string, tables []string) error {
	if len(tables) == 0 {
		return nil
	}
	stmt := "DROP TABLE IF EXISTS " + strings.Join(tables, ", ")
	out, err := c.command(installPath, "db", "query", stmt).CombinedOutput()
	if err != nil {
		return fmt.Errorf("dropping %d tables failed: %w: %s", len(tables), err, strings.TrimSpace(string(out)))
	}
	return nil
}

// GetTablePrefix reads the table prefix declared in wp-config.php.
func (c *ExecWPClient) GetTablePrefix(installPath string) (string, error) {
	out, err := c.command(installPath, "config", "get", "table_prefix").Output()
	if err != nil {
		return "", fmt.Errorf("reading table prefix failed: %w", err)
	}
	return strings.TrimSpace(string(out)), nil
}

// SetTablePrefix rewrites the table prefix in wp-config.php.
func (c *ExecWPClient) SetTablePrefix(installPath, prefix string) error {
	out, err := c.command(installPath, "config", "set", "table_prefix", prefix, "--type=variable").CombinedOutput()
	if err != nil {
		return fmt.Errorf("setting table prefix to %q failed: %w: %s", prefix, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// SearchReplace replaces from with to across the database and returns the
// number of replacements made.
func (c *ExecWPClient) SearchReplace(installPath, from, to string) (int, error) {
	out, err := c.command(installPath, "search-replace", from, to, "--all-tables", "--format=count").Output()
	if err != nil {
		return 0, fmt.Errorf("wp search-replace %q -> %q failed: %w", from, to, err)
	}
	count, err := strconv.Atoi(strings.TrimSpace(string(out)))
	if err != nil {
		return 0, fmt.Errorf("parsing search-replace count from %q: %w", strings.TrimSpace(string(out)), err)
	}
	return count, nil
}

// SetMaintenance toggles the install's maintenance mode.
func (c *ExecWPClient) SetMaintenance(installPath string, on bool) error {
	mode := "activate"
	if !on {
		mode = "deactivate"
	}
	out, err := c.command(installPath, "maintenance-mode", mode).CombinedOutput()
	if err != nil {
		return fmt.Errorf("wp maintenance-mode %s failed: %w: %s", mode, err, strings.TrimSpace(string(out)))
	}
	return nil
}

// ParseTableList parses wp db tables CSV output into table names. wp-cli
// emits one comma-separated line, but some versions emit one name per line;
// both are handled.
func ParseTableList(out string) []string {
	var tables []string
	for _, line := range strings.Split(out, "\n") {
		for _, field := range strings.Split(line, ",") {
			name := strings.TrimSpace(field)
			if name != "" {
				tables = append(tables, name)
			}
		}
	}
	return tables
}

// Compile-time check that ExecWPClient implements ports.WPClient.
var _ ports.WPClient = (*ExecWPClient)(nil)
