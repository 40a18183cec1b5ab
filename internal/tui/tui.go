// Package tui provides a Bubble Tea terminal user interface for the
// PyPI downloader.
package tui

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Hektorwang/pypi-downloader/internal/config"
	"github.com/Hektorwang/pypi-downloader/internal/download"
	"github.com/Hektorwang/pypi-downloader/internal/model"
)

// Styles for the TUI
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF6B6B")).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#4ECDC4"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#95E1A3"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFE66D"))

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#A8DADC"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#6C757D"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#4ECDC4")).
			Padding(1, 2)

	packageStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F8B500"))
)

// State represents the current UI state.
type State int

const (
	StateInput State = iota
	StateSyncing
	StateComplete
	StateError
)

// LogEntry represents a log message in the UI.
type LogEntry struct {
	Message string
	Level   download.ProgressLevel
}

// eventBuffer collects manager events between ticks. The manager's
// callback fires on download goroutines, so the Update loop drains the
// buffer on a timer instead of receiving messages directly.
type eventBuffer struct {
	mu      sync.Mutex
	entries []LogEntry
}

func (b *eventBuffer) add(e download.ProgressEvent) {
	b.mu.Lock()
	b.entries = append(b.entries, LogEntry{Message: e.Message, Level: e.Level})
	b.mu.Unlock()
}

func (b *eventBuffer) drain() []LogEntry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.entries
	b.entries = nil
	return out
}

// Model is the Bubble Tea model for the TUI.
type Model struct {
	state     State
	textInput textinput.Model
	spinner   spinner.Model
	progress  progress.Model
	settings  *config.Settings
	logs      []LogEntry
	statuses  []model.PackageStatus
	err       error

	ctx    context.Context
	cancel context.CancelFunc

	manager *download.Manager
	events  *eventBuffer

	completedFiles int
	totalFiles     int

	// Options
	dryRun      bool
	allVersions bool
	latestPatch bool
	verbose     bool

	width  int
	height int
}

// NewModel creates a new TUI model.
func NewModel() Model {
	ti := textinput.New()
	ti.Placeholder = "requirements.txt"
	ti.Focus()
	ti.CharLimit = 500
	ti.Width = 60

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B"))

	prog := progress.New(progress.WithDefaultGradient())
	prog.Width = 50

	ctx, cancel := context.WithCancel(context.Background())

	return Model{
		state:     StateInput,
		textInput: ti,
		spinner:   sp,
		progress:  prog,
		settings:  config.DefaultSettings(),
		logs:      make([]LogEntry, 0),
		events:    &eventBuffer{},
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

// Message types
type (
	// SyncDoneMsg is sent when the run finishes.
	SyncDoneMsg struct {
		Statuses []model.PackageStatus
		Err      error
	}

	// TickMsg is for periodic progress updates.
	TickMsg struct{}
)

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 20
		if m.progress.Width > 80 {
			m.progress.Width = 80
		}
		if m.progress.Width < 20 {
			m.progress.Width = 20
		}
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "esc":
			if m.state == StateInput {
				return m, tea.Quit
			}
			if m.state == StateSyncing {
				m.cancel()
				m.state = StateError
				m.err = fmt.Errorf("cancelled by user")
			}

		case "enter":
			if m.state == StateInput && m.textInput.Value() != "" {
				cmd, err := m.beginSync()
				if err != nil {
					m.state = StateError
					m.err = err
					return m, nil
				}
				m.state = StateSyncing
				return m, tea.Batch(cmd, m.tickProgress(), m.spinner.Tick)
			}

		case "n":
			if m.state == StateInput {
				m.dryRun = !m.dryRun
			}

		case "a":
			if m.state == StateInput {
				m.allVersions = !m.allVersions
				if m.allVersions {
					m.latestPatch = false
				}
			}

		case "l":
			if m.state == StateInput {
				m.latestPatch = !m.latestPatch
				if m.latestPatch {
					m.allVersions = false
				}
			}

		case "v":
			if m.state == StateInput {
				m.verbose = !m.verbose
			}

		case "q":
			if m.state == StateComplete || m.state == StateError {
				return m, tea.Quit
			}

		case "r":
			if m.state == StateComplete || m.state == StateError {
				// Reset for a new run
				m.state = StateInput
				m.logs = nil
				m.statuses = nil
				m.err = nil
				m.completedFiles = 0
				m.totalFiles = 0
				m.manager = nil
				m.events = &eventBuffer{}
				m.ctx, m.cancel = context.WithCancel(context.Background())
				m.textInput.SetValue("")
				m.textInput.Focus()
			}
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case SyncDoneMsg:
		m.appendLogs(m.events.drain())
		m.statuses = msg.Statuses
		if m.manager != nil {
			m.completedFiles, m.totalFiles = m.manager.Progress()
			m.manager.Close()
		}
		if m.ctx.Err() != nil {
			m.state = StateError
			m.err = fmt.Errorf("cancelled by user")
		} else if msg.Err != nil {
			m.state = StateError
			m.err = msg.Err
		} else {
			m.state = StateComplete
		}

	case TickMsg:
		if m.manager != nil && m.state == StateSyncing {
			m.appendLogs(m.events.drain())
			m.completedFiles, m.totalFiles = m.manager.Progress()

			var percent float64
			if m.totalFiles > 0 {
				percent = float64(m.completedFiles) / float64(m.totalFiles)
			}
			cmds = append(cmds, m.progress.SetPercent(percent), m.tickProgress())
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	// Update text input
	if m.state == StateInput {
		var cmd tea.Cmd
		m.textInput, cmd = m.textInput.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) appendLogs(entries []LogEntry) {
	for _, e := range entries {
		if e.Level == download.LevelVerbose && !m.verbose {
			continue
		}
		m.logs = append(m.logs, e)
	}
	// Keep only the tail
	if len(m.logs) > 10 {
		m.logs = m.logs[len(m.logs)-10:]
	}
}

// beginSync reads the requirements file and builds the manager
// synchronously so the model can poll it, then returns the command
// that runs the synchronization in the background.
func (m *Model) beginSync() (tea.Cmd, error) {
	content, err := os.ReadFile(m.textInput.Value())
	if err != nil {
		return nil, fmt.Errorf("reading requirements file: %w", err)
	}

	settings := *m.settings
	settings.DryRun = m.dryRun
	settings.AllVersions = m.allVersions
	settings.LatestPatch = m.latestPatch
	settings.Verbose = m.verbose

	manager, err := download.NewManager(&settings, m.events.add)
	if err != nil {
		return nil, err
	}
	m.manager = manager

	ctx := m.ctx
	return func() tea.Msg {
		statuses, err := manager.Run(ctx, string(content))
		return SyncDoneMsg{Statuses: statuses, Err: err}
	}, nil
}

// tickProgress returns a command to tick progress updates.
func (m Model) tickProgress() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View renders the UI.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("PyPI Downloader"))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render("Mirror packages from PyPI for offline use"))
	b.WriteString("\n\n")

	switch m.state {
	case StateInput:
		b.WriteString(m.viewInput())
	case StateSyncing:
		b.WriteString(m.viewSyncing())
	case StateComplete:
		b.WriteString(m.viewComplete())
	case StateError:
		b.WriteString(m.viewError())
	}

	b.WriteString("\n")
	b.WriteString(dimStyle.Render(m.getHelpText()))

	return b.String()
}

func (m Model) viewInput() string {
	var b strings.Builder

	b.WriteString(subtitleStyle.Render("Path to requirements file:"))
	b.WriteString("\n\n")
	b.WriteString(m.textInput.View())
	b.WriteString("\n\n")

	check := func(on bool) string {
		if on {
			return "[x]"
		}
		return "[ ]"
	}

	b.WriteString(infoStyle.Render("Options:"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("  %s Dry run (n)\n", check(m.dryRun)))
	b.WriteString(fmt.Sprintf("  %s All Python 3 versions (a)\n", check(m.allVersions)))
	b.WriteString(fmt.Sprintf("  %s Latest patch per minor (l)\n", check(m.latestPatch)))
	b.WriteString(fmt.Sprintf("  %s Verbose output (v)\n", check(m.verbose)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("Download path: %s", m.settings.DownloadDir)))
	b.WriteString("\n")

	return b.String()
}

func (m Model) viewSyncing() string {
	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")
	b.WriteString(subtitleStyle.Render("Synchronizing packages..."))
	b.WriteString("\n\n")

	var percent float64
	if m.totalFiles > 0 {
		percent = float64(m.completedFiles) / float64(m.totalFiles)
	}
	b.WriteString(m.progress.ViewAs(percent))
	b.WriteString("\n")

	b.WriteString(infoStyle.Render(fmt.Sprintf("Files: %d/%d", m.completedFiles, m.totalFiles)))
	b.WriteString("\n\n")

	b.WriteString(m.renderLogs())

	return b.String()
}

func (m Model) viewComplete() string {
	var b strings.Builder

	counts := map[model.Status]int{}
	for _, s := range m.statuses {
		counts[s.Status]++
	}

	box := boxStyle.Render(fmt.Sprintf(
		"Synchronization Complete\n\n"+
			"Packages: %d\n"+
			"Synchronized: %d\n"+
			"Partial: %d\n"+
			"Failed: %d\n"+
			"Files: %d/%d",
		len(m.statuses),
		counts[model.StatusSynchronized],
		counts[model.StatusPartialSync],
		counts[model.StatusFailed]+counts[model.StatusNoFiles]+counts[model.StatusErrorPrefilter],
		m.completedFiles,
		m.totalFiles,
	))
	b.WriteString(box)
	b.WriteString("\n\n")

	for _, s := range m.statuses {
		style := statusStyle(s.Status)
		b.WriteString(packageStyle.Render(fmt.Sprintf("  %s (%s)", s.Package, s.VersionLabel)))
		b.WriteString(" ")
		b.WriteString(style.Render(string(s.Status)))
		b.WriteString("\n")
	}

	return b.String()
}

func statusStyle(s model.Status) lipgloss.Style {
	switch s {
	case model.StatusSynchronized:
		return successStyle
	case model.StatusPartialSync:
		return warningStyle
	default:
		return errorStyle
	}
}

func (m Model) viewError() string {
	var b strings.Builder

	b.WriteString(errorStyle.Render("Error occurred:"))
	b.WriteString("\n\n")
	if m.err != nil {
		b.WriteString(fmt.Sprintf("  %s", m.err.Error()))
	}

	return b.String()
}

func (m Model) renderLogs() string {
	var b strings.Builder

	for _, log := range m.logs {
		var style lipgloss.Style
		prefix := "*"
		switch log.Level {
		case download.LevelError:
			style = errorStyle
			prefix = "x"
		case download.LevelWarning:
			style = warningStyle
			prefix = "!"
		case download.LevelSuccess:
			style = successStyle
			prefix = "+"
		case download.LevelInfo:
			style = infoStyle
			prefix = ">"
		default:
			style = dimStyle
		}
		b.WriteString(style.Render(prefix + " " + log.Message))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) getHelpText() string {
	switch m.state {
	case StateInput:
		return "enter: start | n: dry run | a: all versions | l: latest patch | v: verbose | esc: quit"
	case StateSyncing:
		return "esc: cancel"
	case StateComplete, StateError:
		return "r: new run | q: quit"
	}
	return ""
}

// Run starts the TUI application.
func Run() error {
	p := tea.NewProgram(NewModel(), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
