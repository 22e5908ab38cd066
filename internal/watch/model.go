package watch

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"termweave/internal/trace"
)

// pollInterval is how often the model re-reads the trace file. It is
// deliberately short: the file is the only channel this tool has into a
// running process, and termweave-watch has no way to push a faster signal.
const pollInterval = 200 * time.Millisecond

type pollMsg struct {
	records []trace.Record
	err     error
}

type tickMsg struct{}

// Model is a read-only bubbletea program tailing one trace file. It never
// writes to the trace path and has no channel back to the run it watches.
type Model struct {
	tailer   *Tailer
	viewport viewport.Model
	styles   Styles

	events   []trace.Record
	maxLines int
	err      error
	width    int
	height   int
}

// New builds a Model that will tail path once started.
func New(path string) Model {
	return Model{
		tailer:   NewTailer(path),
		viewport: viewport.New(80, 20),
		styles:   DefaultStyles(),
		maxLines: 1000,
	}
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = msg.Height - 3
		m.refresh()
		return m, nil

	case tickMsg:
		return m, func() tea.Msg {
			records, err := m.tailer.Poll()
			return pollMsg{records: records, err: err}
		}

	case pollMsg:
		if msg.err != nil {
			m.err = msg.err
		} else if len(msg.records) > 0 {
			m.events = append(m.events, msg.records...)
			if over := len(m.events) - m.maxLines; over > 0 {
				m.events = m.events[over:]
			}
			m.refresh()
			m.viewport.GotoBottom()
		}
		return m, tick()
	}
	return m, nil
}

func (m *Model) refresh() {
	var b strings.Builder
	for _, ev := range m.events {
		b.WriteString(formatEvent(m.styles, ev))
		b.WriteString("\n")
	}
	m.viewport.SetContent(b.String())
}

func formatEvent(s Styles, ev trace.Record) string {
	return fmt.Sprintf("[%4d] %s  %s @%d -> %d terms",
		ev.Step,
		s.Rule.Render(ev.Rule),
		s.Muted.Render(fmt.Sprintf("%s(%s)", ev.BeforeSym, ev.Before)),
		ev.BeforeScale,
		len(ev.After),
	)
}

func (m Model) View() string {
	header := m.styles.Header.Render(fmt.Sprintf("termweave-watch — %d events", len(m.events)))
	footer := m.styles.Footer.Render("q to quit")
	if m.err != nil {
		footer = m.styles.Error.Render(m.err.Error())
	}
	return fmt.Sprintf("%s\n%s\n%s", header, m.viewport.View(), footer)
}
