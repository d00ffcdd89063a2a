package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mcdonaldj/asarkit/internal/backup"
	"github.com/mcdonaldj/asarkit/internal/changes"
	"github.com/mcdonaldj/asarkit/internal/manifest"
	"github.com/mcdonaldj/asarkit/internal/recovery"
)

// Service is what the browser needs for one application.
type Service interface {
	App() string
	Changes() (*changes.Result, error)
	FileDiff(ctx context.Context, relPath string) (*changes.FileDiffResult, error)
	History() ([]manifest.Entry, error)
	Verify() (recovery.VerifyResult, error)
}

// View represents the current view state
type View int

const (
	ChangesView  View = iota
	FileDiffView      // line diff of the selected file
	HistoryView
)

// Model is the main TUI model
type Model struct {
	svc      Service
	ctx      context.Context
	view     View
	width    int
	height   int
	quitting bool

	// Changes view
	result *changes.Result
	cursor int

	// File diff view
	fileDiff   *changes.FileDiffResult
	diffScroll int

	// History view
	history       []manifest.Entry
	historyScroll int

	// Status message
	statusMsg string
	statusErr bool
}

// Key bindings
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Enter   key.Binding
	Back    key.Binding
	Refresh key.Binding
	History key.Binding
	Verify  key.Binding
	Quit    key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Enter: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "diff"),
	),
	Back: key.NewBinding(
		key.WithKeys("esc", "backspace"),
		key.WithHelp("esc", "back"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh"),
	),
	History: key.NewBinding(
		key.WithKeys("h"),
		key.WithHelp("h", "history"),
	),
	Verify: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "verify backup"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// NewModel creates a model for svc. The change list loads on Init.
func NewModel(ctx context.Context, svc Service) *Model {
	return &Model{
		svc:  svc,
		ctx:  ctx,
		view: ChangesView,
	}
}

type changesMsg struct {
	result *changes.Result
	err    error
}

type fileDiffMsg struct {
	result *changes.FileDiffResult
	err    error
}

type historyMsg struct {
	entries []manifest.Entry
	err     error
}

type statusMsg struct {
	msg string
	err bool
}

// Init loads the change list
func (m *Model) Init() tea.Cmd {
	return m.loadChanges()
}

func (m *Model) loadChanges() tea.Cmd {
	return func() tea.Msg {
		result, err := m.svc.Changes()
		return changesMsg{result: result, err: err}
	}
}

func (m *Model) loadFileDiff(path string) tea.Cmd {
	return func() tea.Msg {
		result, err := m.svc.FileDiff(m.ctx, path)
		return fileDiffMsg{result: result, err: err}
	}
}

func (m *Model) loadHistory() tea.Cmd {
	return func() tea.Msg {
		entries, err := m.svc.History()
		return historyMsg{entries: entries, err: err}
	}
}

func (m *Model) runVerify() tea.Cmd {
	return func() tea.Msg {
		res, err := m.svc.Verify()
		switch {
		case err != nil:
			return statusMsg{err: true, msg: fmt.Sprintf("Verify failed: %v", err)}
		case res.Match:
			return statusMsg{msg: fmt.Sprintf("✓ backup verified (%s)", backup.FormatSize(res.SizeBytes))}
		case res.Expected == "":
			return statusMsg{err: true, msg: "No recorded checksum for the backup"}
		default:
			return statusMsg{err: true, msg: "✗ Checksum mismatch!"}
		}
	}
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case changesMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
			m.statusErr = true
			return m, nil
		}
		m.result = msg.result
		if m.cursor >= len(m.result.Changes) {
			m.cursor = max(len(m.result.Changes)-1, 0)
		}
		return m, nil

	case fileDiffMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("File diff failed: %v", msg.err)
			m.statusErr = true
			return m, nil
		}
		m.fileDiff = msg.result
		m.diffScroll = 0
		m.view = FileDiffView
		m.statusMsg = ""
		return m, nil

	case historyMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("History failed: %v", msg.err)
			m.statusErr = true
			return m, nil
		}
		m.history = msg.entries
		m.historyScroll = 0
		m.view = HistoryView
		return m, nil

	case statusMsg:
		m.statusMsg = msg.msg
		m.statusErr = msg.err
		return m, nil

	case tea.KeyMsg:
		// Clear status on any key
		m.statusMsg = ""
		m.statusErr = false

		switch {
		case key.Matches(msg, keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, keys.Up):
			m.moveCursor(-1)

		case key.Matches(msg, keys.Down):
			m.moveCursor(1)

		case key.Matches(msg, keys.Enter):
			if m.view == ChangesView && m.result != nil && len(m.result.Changes) > 0 {
				m.statusMsg = "Unpacking original..."
				return m, m.loadFileDiff(m.result.Changes[m.cursor].Path)
			}

		case key.Matches(msg, keys.Back):
			switch m.view {
			case FileDiffView:
				m.view = ChangesView
				m.fileDiff = nil
				m.diffScroll = 0
			case HistoryView:
				m.view = ChangesView
				m.history = nil
			}

		case key.Matches(msg, keys.Refresh):
			if m.view == ChangesView {
				return m, m.loadChanges()
			}

		case key.Matches(msg, keys.History):
			if m.view == ChangesView {
				return m, m.loadHistory()
			}

		case key.Matches(msg, keys.Verify):
			return m, m.runVerify()
		}
	}

	return m, nil
}

func (m *Model) visibleHeight(reserved int) int {
	h := m.height - reserved
	if h < 5 {
		h = 5
	}
	return h
}

func (m *Model) moveCursor(delta int) {
	switch m.view {
	case ChangesView:
		if m.result == nil {
			return
		}
		m.cursor = clamp(m.cursor+delta, 0, len(m.result.Changes)-1)
	case FileDiffView:
		if m.fileDiff == nil {
			return
		}
		m.diffScroll = clamp(m.diffScroll+delta, 0, len(m.fileDiff.Lines)-m.visibleHeight(12))
	case HistoryView:
		m.historyScroll = clamp(m.historyScroll+delta, 0, len(m.history)-m.visibleHeight(10))
	}
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		hi = lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.view {
	case ChangesView:
		content = m.renderChangesView()
	case FileDiffView:
		content = m.renderFileDiffView()
	case HistoryView:
		content = m.renderHistoryView()
	}

	return appStyle.Render(content)
}

func (m *Model) renderStatus(b *strings.Builder) {
	b.WriteString("\n")
	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorBadge.Render(m.statusMsg))
		} else {
			b.WriteString(successBadge.Render(m.statusMsg))
		}
	}
	b.WriteString("\n")
}

func (m *Model) renderChangesView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" 📦 %s ", m.svc.App())))
	b.WriteString("\n\n")

	visibleHeight := m.visibleHeight(10)
	rows := 0

	switch {
	case m.result == nil:
		b.WriteString(dimStyle.Render("  Loading..."))
		b.WriteString("\n")
		rows = 1
	case m.result.Empty():
		b.WriteString(dimStyle.Render("  No changes since extraction"))
		b.WriteString("\n")
		rows = 1
	default:
		summary := fmt.Sprintf("  Modified: %d   Added: %d   Deleted: %d",
			m.result.Modified, m.result.Added, m.result.Deleted)
		b.WriteString(dimStyle.Render(summary))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 70)))
		b.WriteString("\n")

		start := 0
		if m.cursor >= visibleHeight {
			start = m.cursor - visibleHeight + 1
		}

		for i := start; i < len(m.result.Changes) && i < start+visibleHeight; i++ {
			c := m.result.Changes[i]
			cursor := "  "
			style := normalStyle
			if i == m.cursor {
				cursor = "▸ "
				style = selectedStyle
			}

			size := backup.FormatSize(c.Size2)
			switch c.Status {
			case 'M':
				size = backup.FormatSize(c.Size1) + " → " + backup.FormatSize(c.Size2)
			case 'D':
				size = backup.FormatSize(c.Size1)
			}

			line := fmt.Sprintf("%s%s %-48s %s", cursor, statusStyle(c.Status).Render(string(c.Status)), truncate(c.Path, 48), size)
			b.WriteString(style.Render(line))
			b.WriteString("\n")
			rows++
		}
	}

	// Pad to fixed height
	for i := rows; i < visibleHeight; i++ {
		b.WriteString("\n")
	}

	m.renderStatus(&b)

	help := "[↑/↓] navigate  [enter] diff  [r] refresh  [h] history  [v] verify  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderFileDiffView() string {
	var b strings.Builder

	if m.fileDiff == nil {
		return "Loading..."
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf(" 📄 %s ", m.fileDiff.Path)))
	b.WriteString("\n")

	header := fmt.Sprintf("  %-35s │ %-35s", "original", "workspace")
	b.WriteString(dimStyle.Render(header))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(strings.Repeat("─", 75)))
	b.WriteString("\n")

	switch {
	case m.fileDiff.IsBinary:
		b.WriteString(dimStyle.Render("  Binary file - content diff not available"))
		b.WriteString("\n")
	case len(m.fileDiff.Lines) == 0:
		b.WriteString(dimStyle.Render("  No differences"))
		b.WriteString("\n")
	default:
		visibleHeight := m.visibleHeight(12)
		endIdx := min(m.diffScroll+visibleHeight, len(m.fileDiff.Lines))

		for i := m.diffScroll; i < endIdx; i++ {
			line := m.fileDiff.Lines[i]

			ln1, ln2 := "   ", "   "
			if line.LineNum1 > 0 {
				ln1 = fmt.Sprintf("%3d", line.LineNum1)
			}
			if line.LineNum2 > 0 {
				ln2 = fmt.Sprintf("%3d", line.LineNum2)
			}

			content := truncate(line.Content, 60)
			switch line.Type {
			case '+':
				b.WriteString(addedStyle.Render(fmt.Sprintf("%s  + │ %s  + %s", ln1, ln2, content)))
			case '-':
				b.WriteString(deletedStyle.Render(fmt.Sprintf("%s  - │ %s  - %s", ln1, ln2, content)))
			default:
				b.WriteString(dimStyle.Render(fmt.Sprintf("%s    │ %s    %s", ln1, ln2, content)))
			}
			b.WriteString("\n")
		}

		if len(m.fileDiff.Lines) > visibleHeight {
			scrollInfo := fmt.Sprintf("  Lines %d-%d of %d",
				m.diffScroll+1, endIdx, len(m.fileDiff.Lines))
			b.WriteString(dimStyle.Render(scrollInfo))
			b.WriteString("\n")
		}
	}

	m.renderStatus(&b)

	help := "[↑/↓] scroll  [esc] back  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

func (m *Model) renderHistoryView() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf(" 🕘 %s history ", m.svc.App())))
	b.WriteString("\n\n")

	visibleHeight := m.visibleHeight(10)
	if len(m.history) == 0 {
		b.WriteString(dimStyle.Render("  No history recorded"))
		b.WriteString("\n")
	} else {
		header := fmt.Sprintf("  %-10s %-8s %10s %-18s %s", "WHEN", "ACTION", "SIZE", "STRATEGY", "SHA256")
		b.WriteString(dimStyle.Render(header))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(strings.Repeat("─", 70)))
		b.WriteString("\n")

		// Newest first
		end := min(m.historyScroll+visibleHeight, len(m.history))
		for i := m.historyScroll; i < end; i++ {
			e := m.history[len(m.history)-1-i]
			strategy := e.Strategy
			if strategy == "" {
				strategy = "-"
			}
			line := fmt.Sprintf("  %-10s %-8s %10s %-18s %s",
				relativeTime(e.CreatedAt), e.Action, backup.FormatSize(e.SizeBytes), strategy, truncate(e.ArchiveSHA256, 12))
			b.WriteString(normalStyle.Render(line))
			b.WriteString("\n")
		}
	}

	m.renderStatus(&b)

	help := "[↑/↓] scroll  [v] verify  [esc] back  [q] quit"
	b.WriteString(helpStyle.Render(help))

	return b.String()
}

// Run starts the browser for svc and blocks until the user quits or ctx is
// cancelled.
func Run(ctx context.Context, svc Service) error {
	p := tea.NewProgram(NewModel(ctx, svc), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// Helper functions
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

func relativeTime(t time.Time) string {
	diff := time.Since(t)
	switch {
	case diff < time.Hour:
		return fmt.Sprintf("%dm ago", int(diff.Minutes()))
	case diff < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(diff.Hours()))
	case diff < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(diff.Hours()/24))
	default:
		return t.Format("Jan 2")
	}
}
