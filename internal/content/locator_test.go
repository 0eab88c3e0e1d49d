package content

import (
	"os"
	"path/filepath"
	"testing"
)

func mkdirs(t *testing.T, root string, dirs ...string) {
	t.Helper()
	for _, d := range dirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0755); err != nil {
			t.Fatalf("MkdirAll(%s): %v", d, err)
		}
	}
}

func TestLocateFixedLayout(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "wp-content/plugins", "wp-content/themes", "wp-content/uploads")

	got, ok := Locate(root)
	if !ok {
		t.Fatal("expected content root to be found")
	}
	want := filepath.Join(root, "wp-content")
	if got != want {
		t.Errorf("Locate = %s, expected %s", got, want)
	}
}

func TestLocateDeeplyNested(t *testing.T) {
	root := t.TempDir()
	// Content root three levels down, full score. A decoy elsewhere with a
	// partial score must lose.
	mkdirs(t, root,
		"backup/site/wp-content/plugins",
		"backup/site/wp-content/themes",
		"backup/site/wp-content/uploads",
		"other/plugins",
	)

	got, ok := Locate(root)
	if !ok {
		t.Fatal("expected content root to be found")
	}
	want := filepath.Join(root, "backup", "site", "wp-content")
	if got != want {
		t.Errorf("Locate = %s, expected %s", got, want)
	}
}

func TestLocatePartialScore(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "content/plugins", "content/themes")

	got, ok := Locate(root)
	if !ok {
		t.Fatal("expected partial-score candidate to be found")
	}
	want := filepath.Join(root, "content")
	if got != want {
		t.Errorf("Locate = %s, expected %s", got, want)
	}
}

func TestLocateTiePrefersShallower(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root,
		"a/plugins",
		"a/themes",
		"wrapped/deeper/b/plugins",
		"wrapped/deeper/b/themes",
	)

	got, ok := Locate(root)
	if !ok {
		t.Fatal("expected a candidate")
	}
	want := filepath.Join(root, "a")
	if got != want {
		t.Errorf("Locate = %s, expected shallower candidate %s", got, want)
	}
}

func TestLocateNotFound(t *testing.T) {
	root := t.TempDir()
	mkdirs(t, root, "random/stuff", "more/stuff")

	if got, ok := Locate(root); ok {
		t.Errorf("expected not-found, got %s", got)
	}
}

func TestLocateBeyondMaxDepth(t *testing.T) {
	root := t.TempDir()
	deep := "a/b/c/d/e/wp-content"
	mkdirs(t, root, deep+"/plugins", deep+"/themes", deep+"/uploads")

	if got, ok := Locate(root); ok {
		t.Errorf("expected content beyond max depth to be ignored, got %s", got)
	}
}
