package admission

import (
	"errors"
	"testing"
)

func fixedStatfs(free uint64) StatfsFunc {
	return func(path string) (uint64, error) {
		return free, nil
	}
}

func TestCheckAdmits(t *testing.T) {
	c := NewWithStatfs(fixedStatfs(10 * 1024 * 1024))
	if err := c.Check("/tmp", 1024*1024); err != nil {
		t.Errorf("expected admission with 10MB free for a 1MB archive: %v", err)
	}
}

func TestCheckRejectsWithFigures(t *testing.T) {
	c := NewWithStatfs(fixedStatfs(2 * 1024 * 1024))
	err := c.Check("/tmp", 1024*1024)
	if err == nil {
		t.Fatal("expected rejection: 1MB archive needs 3MB, only 2MB free")
	}

	var ise *InsufficientSpaceError
	if !errors.As(err, &ise) {
		t.Fatalf("expected *InsufficientSpaceError, got %T", err)
	}
	if ise.Required != 3*1024*1024 {
		t.Errorf("Required = %d, expected 3MB", ise.Required)
	}
	if ise.Available != 2*1024*1024 {
		t.Errorf("Available = %d, expected 2MB", ise.Available)
	}
	if ise.Path != "/tmp" {
		t.Errorf("Path = %s", ise.Path)
	}
}

func TestCheckExactBoundary(t *testing.T) {
	c := NewWithStatfs(fixedStatfs(3 * 1024))
	if err := c.Check("/tmp", 1024); err != nil {
		t.Errorf("required == available should admit: %v", err)
	}
}

func TestCheckStatfsFailure(t *testing.T) {
	c := NewWithStatfs(func(path string) (uint64, error) {
		return 0, errors.New("mount gone")
	})
	if err := c.Check("/tmp", 1024); err == nil {
		t.Error("expected statfs failure to propagate")
	}
}

func TestRealStatfs(t *testing.T) {
	free, err := freeBytes(t.TempDir())
	if err != nil {
		t.Fatalf("freeBytes: %v", err)
	}
	if free == 0 {
		t.Error("expected nonzero free space in temp dir")
	}
}

func TestFormatSize(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{512, "512 B"},
		{2048, "2.0 KB"},
		{3 * 1024 * 1024, "3.0 MB"},
	}
	for _, tt := range tests {
		if got := FormatSize(tt.in); got != tt.want {
			t.Errorf("FormatSize(%d) = %s, expected %s", tt.in, got, tt.want)
		}
	}
}
