package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"video-compressor/batch"
)

// State represents the current application state
type State int

const (
	StateRunning State = iota
	StateStopping
	StateDone
)

// BatchDoneMsg is sent when the sequencer has returned
type BatchDoneMsg struct {
	Results []batch.Result
}

// TickMsg is sent periodically to update the UI
type TickMsg time.Time

// RunFunc runs the batch until it finishes or ctx is cancelled
type RunFunc func(ctx context.Context) []batch.Result

// Model is the Bubble Tea model for the batch view
type Model struct {
	Tracker     *batch.Tracker
	Logs        func() []string
	State       State
	Progress    progress.Model
	LogViewport viewport.Model
	ShowLogs    bool
	Width       int
	Height      int
	DryRun      bool
	Snapshot    batch.TrackerState // local copy, refreshed every tick
	Results     []batch.Result

	cancel context.CancelFunc
}

// NewModel creates a model polling tracker. cancel stops the batch.
func NewModel(tracker *batch.Tracker, logs func() []string, cancel context.CancelFunc) Model {
	prog := progress.New(
		progress.WithGradient("#7C3AED", "#10B981"),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	vp := viewport.New(80, 12)
	vp.SetContent("")

	return Model{
		Tracker:     tracker,
		Logs:        logs,
		State:       StateRunning,
		Progress:    prog,
		LogViewport: vp,
		Snapshot:    tracker.State(),
		cancel:      cancel,
	}
}

// Init initializes the Bubble Tea program
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

func (m *Model) stop() {
	if m.cancel != nil {
		m.cancel()
	}
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.State == StateRunning {
				// let the current file clean up before quitting
				m.stop()
				m.State = StateStopping
				return m, nil
			}
			m.stop()
			return m, tea.Quit
		case "l":
			m.ShowLogs = !m.ShowLogs
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 20
		m.LogViewport.Width = msg.Width - 4

		logHeight := msg.Height - 24
		if logHeight < 0 {
			logHeight = 0
		}
		m.LogViewport.Height = logHeight

	case TickMsg:
		if m.State == StateDone {
			return m, nil
		}
		m.Snapshot = m.Tracker.State()
		m.refreshLogs()
		cmds = append(cmds, tickCmd())

	case BatchDoneMsg:
		m.Results = msg.Results
		m.Snapshot = m.Tracker.State()
		m.refreshLogs()
		stopping := m.State == StateStopping
		m.State = StateDone
		if stopping {
			return m, tea.Quit
		}
		return m, nil
	}

	if m.ShowLogs {
		var cmd tea.Cmd
		m.LogViewport, cmd = m.LogViewport.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m *Model) refreshLogs() {
	if m.Logs == nil {
		return
	}
	if logs := m.Logs(); len(logs) > 0 {
		m.LogViewport.SetContent(strings.Join(logs, "\n"))
		m.LogViewport.GotoBottom()
	}
}

// Run shows the batch in a full-screen view while run executes. It returns
// once both the program and the batch have finished; quitting the view
// cancels the batch.
func Run(ctx context.Context, tracker *batch.Tracker, dryRun bool, logs func() []string, run RunFunc) ([]batch.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(tracker, logs, cancel)
	m.DryRun = dryRun
	p := tea.NewProgram(m, tea.WithAltScreen())

	done := make(chan []batch.Result, 1)
	go func() {
		results := run(ctx)
		tracker.Finish()
		done <- results
		p.Send(BatchDoneMsg{Results: results})
	}()

	_, err := p.Run()
	cancel()
	return <-done, err
}
