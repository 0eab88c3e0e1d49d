package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.WordPressPath == "" {
		t.Error("default wordpress_path empty")
	}
	if cfg.WPBinary != "wp" || cfg.RsyncBinary != "rsync" {
		t.Errorf("default binaries = %s, %s", cfg.WPBinary, cfg.RsyncBinary)
	}
	if len(cfg.PrefixCandidates) == 0 || cfg.PrefixCandidates[0] != "wp_" {
		t.Errorf("default prefix candidates = %v", cfg.PrefixCandidates)
	}
	if cfg.Retention.KeepLast <= 0 {
		t.Error("default retention must keep at least one snapshot")
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFrom(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.WordPressPath != DefaultConfig().WordPressPath {
		t.Errorf("expected default config, got %+v", cfg)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")

	cfg := DefaultConfig()
	cfg.WordPressPath = "/srv/wordpress"
	cfg.PrefixCandidates = []string{"wp_", "site_"}
	cfg.Retention.KeepLast = 9
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("SaveTo: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if loaded.WordPressPath != "/srv/wordpress" {
		t.Errorf("wordpress_path = %s", loaded.WordPressPath)
	}
	if len(loaded.PrefixCandidates) != 2 {
		t.Errorf("prefix_candidates = %v", loaded.PrefixCandidates)
	}
	if loaded.Retention.KeepLast != 9 {
		t.Errorf("keep_last = %d", loaded.Retention.KeepLast)
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("wordpress_path: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestContentPathDefault(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WordPressPath = "/srv/wp"
	if got := cfg.ContentPath(); got != "/srv/wp/wp-content" {
		t.Errorf("ContentPath = %s", got)
	}

	cfg.ContentDir = "/mnt/content"
	if got := cfg.ContentPath(); got != "/mnt/content" {
		t.Errorf("ContentPath with override = %s", got)
	}
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := ExpandPath("~/backups"); got != filepath.Join(home, "backups") {
		t.Errorf("ExpandPath(~/backups) = %s", got)
	}
	if got := ExpandPath("/abs/path"); got != "/abs/path" {
		t.Errorf("ExpandPath(/abs/path) = %s", got)
	}
}
