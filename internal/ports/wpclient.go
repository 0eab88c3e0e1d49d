package ports

// WPClient abstracts the WordPress command surface (wp-cli in production).
// Every call takes the installation path explicitly so one client can serve
// multiple installs. Implementations must not depend on plugin or theme
// code executing: the imported site may carry broken extensions.
// Production code uses ExecWPClient adapter; tests use MockWPClient.
type WPClient interface {
	// IsInstalled reports whether installPath holds a working WordPress
	// install with a reachable database.
	IsInstalled(installPath string) bool

	// ExportDatabase dumps the full database to destPath as plain SQL.
	ExportDatabase(installPath, destPath string) error

	// ImportDatabase replaces the current database contents with dumpPath.
	ImportDatabase(installPath, dumpPath string) error

	// GetOption returns the value of a WordPress option.
	GetOption(installPath, name string) (string, error)

	// SetOption sets a WordPress option to value.
	SetOption(installPath, name, value string) error

	// ListTables returns the names of all tables in the install's database.
	ListTables(installPath string) ([]string, error)

	// DropTables drops the named tables. Callers are responsible for
	// validating every name before passing it here.
	DropTables(installPath string, tables []string) error

	// GetTablePrefix returns the table prefix declared in the install's
	// configuration file.
	GetTablePrefix(installPath string) (string, error)

	// SetTablePrefix rewrites the table prefix in the install's
	// configuration file.
	SetTablePrefix(installPath, prefix string) error

	// SearchReplace replaces from with to across the database and returns
	// the number of replacements made.
	SearchReplace(installPath, from, to string) (int, error)

	// SetMaintenance toggles the install's maintenance mode. This is the
	// advisory lock held across the destructive phase; it is cooperative,
	// not an OS-level lock.
	SetMaintenance(installPath string, on bool) error
}
