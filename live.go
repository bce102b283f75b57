package main

import (
	"context"
	"os"
	"strings"
	"sync"
	"time"

	osc52 "github.com/aymanbagabas/go-osc52/v2"
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mq/internal/engine"
)

// liveChrome is the header, a two-line footer and the help line.
const liveChrome = frameChrome + 2

// LiveKeyMap defines keybindings for the live tail view
type LiveKeyMap struct {
	Quit       key.Binding
	Copy       key.Binding
	ToggleHelp key.Binding
}

func (k LiveKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit, k.Copy, k.ToggleHelp}
}

func (k LiveKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit, k.Copy, k.ToggleHelp}}
}

var liveKeys = LiveKeyMap{
	Quit:       key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q/esc", "quit")),
	Copy:       key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy panes")),
	ToggleHelp: key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
}

type frameMsg engine.Frame

type engineDoneMsg struct{ err error }

type copiedMsg struct{}

// viewSize is shared between the UI goroutine, which learns the window
// size, and the engine goroutine, which lays panes out against it.
type viewSize struct {
	mu            sync.Mutex
	width, height int
}

func (s *viewSize) set(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.width, s.height = width, height
}

func (s *viewSize) get() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.width, s.height
}

// liveSink hands frames to the running bubbletea program.
type liveSink struct {
	program *tea.Program
	size    *viewSize
}

func (s *liveSink) Size() (int, int) {
	width, height := s.size.get()
	return width, max(height-liveChrome, 1)
}

func (s *liveSink) Render(f engine.Frame) error {
	s.program.Send(frameMsg(f))
	return nil
}

// LiveModel is the full-screen view of the tail engine's frames
type LiveModel struct {
	frame    engine.Frame
	hasFrame bool
	err      error

	width  int
	height int
	size   *viewSize

	help     help.Model
	warnings *lastLine
	cancel   context.CancelFunc

	copyFeedback       string
	copyFeedbackExpiry time.Time
}

func NewLiveModel(size *viewSize, warnings *lastLine, cancel context.CancelFunc) LiveModel {
	width, height := size.get()
	return LiveModel{
		width:    width,
		height:   height,
		size:     size,
		help:     help.New(),
		warnings: warnings,
		cancel:   cancel,
	}
}

func (m LiveModel) Init() tea.Cmd {
	return nil
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.copyFeedback != "" && time.Now().After(m.copyFeedbackExpiry) {
		m.copyFeedback = ""
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.size.set(msg.Width, msg.Height)
		m.help.Width = msg.Width

	case frameMsg:
		m.frame = engine.Frame(msg)
		m.hasFrame = true

	case engineDoneMsg:
		m.err = msg.err
		return m, tea.Quit

	case copiedMsg:
		m.copyFeedback = "copied panes to clipboard"
		m.copyFeedbackExpiry = time.Now().Add(2 * time.Second)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, liveKeys.Quit):
			m.cancel()
			return m, tea.Quit
		case key.Matches(msg, liveKeys.Copy):
			if m.hasFrame {
				return m, osc52CopyCmd(framePlainText(m.frame))
			}
		case key.Matches(msg, liveKeys.ToggleHelp):
			m.help.ShowAll = !m.help.ShowAll
		}
	}
	return m, nil
}

func (m LiveModel) View() string {
	if !m.hasFrame {
		return placeholderStyle.Render("Polling scheduler...")
	}

	view := renderFrame(m.frame, renderOptions{width: m.width, pad: true, warning: m.warnings.String()})

	status := m.help.View(liveKeys)
	if m.copyFeedback != "" {
		status = copyStatusStyle.Render(m.copyFeedback)
	}
	return lipgloss.JoinVertical(lipgloss.Left, view, status)
}

// framePlainText is the copyable text of all panes, titles included.
func framePlainText(f engine.Frame) string {
	var b strings.Builder
	for _, p := range f.Panes {
		b.WriteString("==> " + p.Title + " <==\n")
		for _, line := range p.Lines {
			b.WriteString(line)
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func osc52CopyCmd(text string) tea.Cmd {
	return func() tea.Msg {
		seq := osc52.New(text).Limit(100 * 1024)

		term := strings.ToLower(os.Getenv("TERM"))
		if tmux := os.Getenv("TMUX"); tmux != "" || strings.HasPrefix(term, "tmux") {
			seq = seq.Tmux()
		} else if strings.HasPrefix(term, "screen") {
			seq = seq.Screen()
		}

		_, _ = seq.WriteTo(os.Stdout)
		return copiedMsg{}
	}
}
