package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	WordPressPath    string   `yaml:"wordpress_path"`
	ContentDir       string   `yaml:"content_dir"`
	SnapshotDir      string   `yaml:"snapshot_dir"`
	TempDir          string   `yaml:"temp_dir"`
	WPBinary         string   `yaml:"wp_binary"`
	RsyncBinary      string   `yaml:"rsync_binary"`
	PrefixCandidates []string `yaml:"prefix_candidates"`
	TraceLog         string   `yaml:"trace_log"`
	Retention        struct {
		KeepLast int `yaml:"keep_last"`
	} `yaml:"retention"`
}

func DefaultConfig() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "." // Fallback to current directory
	}
	cfg := &Config{
		WordPressPath:    "/var/www/html",
		SnapshotDir:      filepath.Join(home, ".wpmigrate", "snapshots"),
		TempDir:          os.TempDir(),
		WPBinary:         "wp",
		RsyncBinary:      "rsync",
		PrefixCandidates: []string{"wp_"},
	}
	cfg.Retention.KeepLast = 5
	return cfg
}

func ConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, ".wpmigrate", "config.yaml")
}

func Load() (*Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom reads a config file, merging it over the defaults. A missing
// file yields the defaults.
func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	return cfg, nil
}

func (c *Config) Save() error {
	return c.SaveTo(ConfigPath())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// ContentPath returns the configured content directory, defaulting to
// wp-content under the installation path.
func (c *Config) ContentPath() string {
	if c.ContentDir != "" {
		return ExpandPath(c.ContentDir)
	}
	return filepath.Join(ExpandPath(c.WordPressPath), "wp-content")
}

// ExpandPath expands a leading ~ to the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}
