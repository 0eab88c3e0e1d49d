// Package tui renders the interactive extraction progress display. A
// non-terminal stdout falls back to running silently, so piped and
// scripted invocations never see escape sequences.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/wpmigrate/wpmigrate/internal/format"
)

var (
	primaryColor = lipgloss.Color("#7C3AED")
	mutedColor   = lipgloss.Color("#6B7280")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(primaryColor).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().
			Foreground(mutedColor)
)

type progressMsg struct {
	done  int
	total int
	name  string
}

type finishedMsg struct {
	err error
}

type progressModel struct {
	title   string
	bar     progress.Model
	done    int
	total   int
	current string
	width   int
	err     error
}

func newProgressModel(title string) progressModel {
	return progressModel{
		title: title,
		bar:   progress.New(progress.WithDefaultGradient()),
		width: 80,
	}
}

func (m progressModel) Init() tea.Cmd {
	return nil
}

func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = msg.Width - 6
		if m.bar.Width > 60 {
			m.bar.Width = 60
		}
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.err = fmt.Errorf("interrupted")
			return m, tea.Quit
		}
		return m, nil

	case progressMsg:
		m.done = msg.done
		m.total = msg.total
		m.current = msg.name
		return m, nil

	case finishedMsg:
		m.err = msg.err
		return m, tea.Quit
	}
	return m, nil
}

func (m progressModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	if m.total > 0 {
		b.WriteString(m.bar.ViewAs(float64(m.done) / float64(m.total)))
		b.WriteString(fmt.Sprintf("  %d/%d", m.done, m.total))
	} else {
		// Streamed archives do not know their entry count up front.
		b.WriteString(fmt.Sprintf("extracted %d entries", m.done))
	}
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(truncate(m.current, m.width-2)))
	b.WriteString("\n")
	return b.String()
}

func truncate(s string, max int) string {
	if max <= 3 || len(s) <= max {
		return s
	}
	return "..." + s[len(s)-max+3:]
}

// RunWithProgress runs fn while rendering a progress bar fed by fn's
// progress callback. When stdout is not a terminal, fn runs with a nil
// callback and nothing is rendered.
func RunWithProgress(title string, fn func(format.ProgressFunc) error) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fn(nil)
	}

	p := tea.NewProgram(newProgressModel(title))
	go func() {
		err := fn(func(done, total int, name string) {
			p.Send(progressMsg{done: done, total: total, name: name})
		})
		p.Send(finishedMsg{err: err})
	}()

	final, err := p.Run()
	if err != nil {
		return err
	}
	if m, ok := final.(progressModel); ok {
		return m.err
	}
	return nil
}
