package format

import (
	"archive/tar"
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"github.com/wpmigrate/wpmigrate/internal/safety"
)

// writeZip creates a zip at path with the given name->content entries.
// Entry names ending in "/" become directories.
func writeZip(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating zip: %v", err)
	}
	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("adding %s: %v", name, err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing zip file: %v", err)
	}
}

// writeTarGz creates a tar.gz at path with the given name->content entries.
func writeTarGz(t *testing.T, path string, entries map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating tar.gz: %v", err)
	}
	gz := gzip.NewWriter(f)
	tw := tar.NewWriter(gz)
	for name, content := range entries {
		hdr := &tar.Header{
			Name: name,
			Mode: 0644,
			Size: int64(len(content)),
		}
		if err := tw.WriteHeader(hdr); err != nil {
			t.Fatalf("writing header %s: %v", name, err)
		}
		if _, err := tw.Write([]byte(content)); err != nil {
			t.Fatalf("writing %s: %v", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		t.Fatalf("closing tar writer: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip writer: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
}

func nativeArchive(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "site.zip")
	writeZip(t, path, map[string]string{
		NativeMetadataFile:             `{"format_version":"1.0","created_at":"2024-05-01T10:00:00Z","site_url":"https://old.example.com","table_count":12}`,
		NativeDatabaseFile:             "CREATE TABLE wp_options (id INT);",
		"wp-content/plugins/index.php": "<?php",
		"wp-content/themes/index.php":  "<?php",
		"wp-content/uploads/photo.jpg": "jpegdata",
	})
	return path
}

func TestDetectNative(t *testing.T) {
	dir := t.TempDir()
	archive := nativeArchive(t, dir)

	adapter, err := DefaultRegistry().Detect(archive)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if adapter.Name() != "native" {
		t.Errorf("detected %s, expected native", adapter.Name())
	}
}

func TestDetectWPVivid(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "wpvivid.zip")
	writeZip(t, archive, map[string]string{
		"wpvivid_package_info.json":  `{"version":"2.2.0","prefix":"site"}`,
		"example_2024_backup_db.sql": "CREATE TABLE custom_options (id INT);",
	})

	adapter, err := DefaultRegistry().Detect(archive)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if adapter.Name() != "wpvivid" {
		t.Errorf("detected %s, expected wpvivid", adapter.Name())
	}
}

func TestDetectDuplicatorVariants(t *testing.T) {
	dir := t.TempDir()

	current := filepath.Join(dir, "current.zip")
	writeZip(t, current, map[string]string{
		"dup-installer/main.installer.php": "<?php",
		"dup-installer/dup-database.sql":   "CREATE TABLE wp_posts (id INT);",
	})

	legacy := filepath.Join(dir, "legacy.zip")
	writeZip(t, legacy, map[string]string{
		"installer-backup.php": "<?php",
		"installer-data.sql":   "CREATE TABLE wp_posts (id INT);",
	})

	reg := DefaultRegistry()
	a, err := reg.Detect(current)
	if err != nil || a.Name() != "duplicator" {
		t.Errorf("current package: got (%v, %v), expected duplicator", a, err)
	}
	a, err = reg.Detect(legacy)
	if err != nil || a.Name() != "duplicator-legacy" {
		t.Errorf("legacy package: got (%v, %v), expected duplicator-legacy", a, err)
	}
}

func TestDetectBackWPup(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "job.tar.gz")
	writeTarGz(t, archive, map[string]string{
		"manifest.json": `{"name":"daily"}`,
		"database.sql":  "CREATE TABLE wp_users (id INT);",
	})

	adapter, err := DefaultRegistry().Detect(archive)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}
	if adapter.Name() != "backwpup" {
		t.Errorf("detected %s, expected backwpup", adapter.Name())
	}
}

func TestDetectUnrecognized(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "random.zip")
	writeZip(t, archive, map[string]string{"readme.txt": "hello"})

	_, err := DefaultRegistry().Detect(archive)
	if err == nil {
		t.Fatal("expected unrecognized-format error")
	}
	var unrec *UnrecognizedFormatError
	if !errors.As(err, &unrec) {
		t.Fatalf("expected *UnrecognizedFormatError, got %T", err)
	}
	if len(unrec.Tried) != 5 {
		t.Errorf("Tried = %v, expected all 5 formats", unrec.Tried)
	}
}

func TestValidateIsRepeatable(t *testing.T) {
	dir := t.TempDir()
	archive := nativeArchive(t, dir)

	a := &NativeAdapter{}
	first := a.Validate(archive)
	second := a.Validate(archive)
	if first != second || !first {
		t.Errorf("Validate not stable: first=%v second=%v", first, second)
	}
}

func TestValidateSwallowsErrors(t *testing.T) {
	a := &NativeAdapter{}
	if a.Validate(filepath.Join(t.TempDir(), "does-not-exist.zip")) {
		t.Error("Validate of missing file should be false, not panic or error")
	}

	// Garbage that is not a zip at all.
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.zip")
	if err := os.WriteFile(garbage, []byte("not an archive"), 0644); err != nil {
		t.Fatal(err)
	}
	for _, adapter := range DefaultRegistry().Adapters() {
		if adapter.Validate(garbage) {
			t.Errorf("%s validated garbage", adapter.Name())
		}
	}
}

func TestRegistryGet(t *testing.T) {
	reg := DefaultRegistry()
	a, err := reg.Get("backwpup")
	if err != nil || a.Name() != "backwpup" {
		t.Errorf("Get(backwpup) = (%v, %v)", a, err)
	}
	if _, err := reg.Get("nope"); err == nil {
		t.Error("expected error for unknown format name")
	}
}

func TestExtractZipRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.zip")
	writeZip(t, archive, map[string]string{
		"../../etc/passwd": "root:x:0:0",
		"innocent.txt":     "hello",
	})

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := extractZip(archive, dest, nil)
	if err == nil {
		t.Fatal("expected extraction to abort")
	}
	var pathErr *safety.PathSafetyError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *PathSafetyError, got %T: %v", err, err)
	}

	// Nothing may have been written: the poisoned entry aborts the run
	// before the first write.
	entries, err := os.ReadDir(dest)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("destination not empty after aborted extraction: %v", entries)
	}
}

func TestExtractTarGzRejectsTraversal(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "evil.tar.gz")
	writeTarGz(t, archive, map[string]string{
		"../escape.txt": "boo",
	})

	dest := filepath.Join(dir, "out")
	if err := os.MkdirAll(dest, 0755); err != nil {
		t.Fatal(err)
	}

	_, err := extractTarGz(archive, dest, nil)
	var pathErr *safety.PathSafetyError
	if !errors.As(err, &pathErr) {
		t.Fatalf("expected *PathSafetyError, got %T: %v", err, err)
	}
}

func TestExtractZipRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archive := nativeArchive(t, dir)
	dest := filepath.Join(dir, "out")

	var progressCalls int
	result, err := extractZip(archive, dest, func(done, total int, name string) {
		progressCalls++
	})
	if err != nil {
		t.Fatalf("extractZip failed: %v", err)
	}
	if result.Files != 5 {
		t.Errorf("Files = %d, expected 5", result.Files)
	}
	if progressCalls == 0 {
		t.Error("progress callback never invoked")
	}

	data, err := os.ReadFile(filepath.Join(dest, "wp-content", "uploads", "photo.jpg"))
	if err != nil {
		t.Fatalf("extracted file missing: %v", err)
	}
	if string(data) != "jpegdata" {
		t.Errorf("extracted content = %q", data)
	}
}

func TestExtractTarGzRoundTrip(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "job.tar.gz")
	writeTarGz(t, archive, map[string]string{
		"manifest.json":            `{"name":"daily"}`,
		"database.sql":             "CREATE TABLE wp_options (id INT);",
		"wp-content/plugins/a.php": "<?php",
		"wp-content/themes/b.php":  "<?php",
		"wp-content/uploads/c.jpg": "img",
	})

	dest := filepath.Join(dir, "out")
	result, err := extractTarGz(archive, dest, nil)
	if err != nil {
		t.Fatalf("extractTarGz failed: %v", err)
	}
	if result.Files != 5 {
		t.Errorf("Files = %d, expected 5", result.Files)
	}
	if _, err := os.Stat(filepath.Join(dest, "wp-content", "uploads", "c.jpg")); err != nil {
		t.Errorf("extracted file missing: %v", err)
	}
}

func TestExtractZipSkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	archive := filepath.Join(dir, "links.zip")

	f, err := os.Create(archive)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)

	w, err := zw.Create("normal.txt")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte("ok")); err != nil {
		t.Fatal(err)
	}

	hdr := &zip.FileHeader{Name: "evil-link"}
	hdr.SetMode(os.ModeSymlink | 0777)
	lw, err := zw.CreateHeader(hdr)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := lw.Write([]byte("/etc/passwd")); err != nil {
		t.Fatal(err)
	}

	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}

	dest := filepath.Join(dir, "out")
	result, err := extractZip(archive, dest, nil)
	if err != nil {
		t.Fatalf("extractZip failed: %v", err)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "evil-link" {
		t.Errorf("Skipped = %v, expected [evil-link]", result.Skipped)
	}
	if _, err := os.Lstat(filepath.Join(dest, "evil-link")); !os.IsNotExist(err) {
		t.Error("symlink entry was written to disk")
	}
}

func TestFindDatabaseAndContent(t *testing.T) {
	dir := t.TempDir()
	archive := nativeArchive(t, dir)
	dest := filepath.Join(dir, "out")
	if _, err := extractZip(archive, dest, nil); err != nil {
		t.Fatal(err)
	}

	native := &NativeAdapter{}
	db, err := native.FindDatabase(dest)
	if err != nil {
		t.Fatalf("FindDatabase: %v", err)
	}
	if db != filepath.Join(dest, "database.sql") {
		t.Errorf("database path = %s", db)
	}

	contentDir, err := native.FindContent(dest)
	if err != nil {
		t.Fatalf("FindContent: %v", err)
	}
	if contentDir != filepath.Join(dest, "wp-content") {
		t.Errorf("content path = %s", contentDir)
	}

	meta, err := native.ReadMetadata(dest)
	if err != nil {
		t.Fatalf("ReadMetadata: %v", err)
	}
	if meta.SiteURL != "https://old.example.com" || meta.TableCount != 12 {
		t.Errorf("metadata = %+v", meta)
	}
}

func TestFindDatabaseMissing(t *testing.T) {
	root := t.TempDir()
	native := &NativeAdapter{}
	_, err := native.FindDatabase(root)
	var disc *DiscoveryError
	if !errors.As(err, &disc) {
		t.Fatalf("expected *DiscoveryError, got %T", err)
	}
}

func TestWPVividScansForLargestDump(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "small.sql"), []byte("--"), 0644); err != nil {
		t.Fatal(err)
	}
	big := filepath.Join(root, "site_backup_db.sql")
	if err := os.WriteFile(big, []byte("CREATE TABLE custom_options (id INT); -- plus data"), 0644); err != nil {
		t.Fatal(err)
	}

	a := &WPVividAdapter{}
	got, err := a.FindDatabase(root)
	if err != nil {
		t.Fatalf("FindDatabase: %v", err)
	}
	if got != big {
		t.Errorf("FindDatabase = %s, expected the largest dump %s", got, big)
	}
}

func TestIsWithinDir(t *testing.T) {
	base := t.TempDir()
	if !IsWithinDir(base, filepath.Join(base, "sub", "file.txt")) {
		t.Error("descendant rejected")
	}
	if IsWithinDir(base, filepath.Join(base, "..", "elsewhere")) {
		t.Error("sibling accepted")
	}
}
