package tui

import (
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func TestProgressModelUpdate(t *testing.T) {
	m := newProgressModel("Extracting site.zip")

	model, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 24})
	m = model.(progressModel)
	if m.bar.Width != 60 {
		t.Errorf("bar width = %d, expected clamp to 60", m.bar.Width)
	}

	model, _ = m.Update(progressMsg{done: 3, total: 10, name: "wp-content/plugins/index.php"})
	m = model.(progressModel)
	if m.done != 3 || m.total != 10 {
		t.Errorf("progress = %d/%d", m.done, m.total)
	}

	wantErr := errors.New("boom")
	model, cmd := m.Update(finishedMsg{err: wantErr})
	m = model.(progressModel)
	if cmd == nil {
		t.Error("finished message should quit the program")
	}
	if !errors.Is(m.err, wantErr) {
		t.Errorf("err = %v", m.err)
	}
}

func TestViewWithKnownTotal(t *testing.T) {
	m := newProgressModel("Extracting")
	model, _ := m.Update(progressMsg{done: 5, total: 10, name: "database.sql"})
	view := model.(progressModel).View()
	if !strings.Contains(view, "5/10") {
		t.Errorf("view missing counter:\n%s", view)
	}
	if !strings.Contains(view, "database.sql") {
		t.Errorf("view missing current entry:\n%s", view)
	}
}

func TestViewWithUnknownTotal(t *testing.T) {
	m := newProgressModel("Extracting")
	model, _ := m.Update(progressMsg{done: 7, total: 0, name: "wp-content/uploads/a.jpg"})
	view := model.(progressModel).View()
	if !strings.Contains(view, "extracted 7 entries") {
		t.Errorf("view missing stream counter:\n%s", view)
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in       string
		max      int
		expected string
	}{
		{"short", 20, "short"},
		{"wp-content/uploads/2024/05/photo.jpg", 20, "...2024/05/photo.jpg"},
		{"abc", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.max); got != tt.expected {
			t.Errorf("truncate(%q, %d) = %q, expected %q", tt.in, tt.max, got, tt.expected)
		}
	}
}
