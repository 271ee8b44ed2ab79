package tui

import (
	"graphrun/internal/harness"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// AppModel holds the TUI state.
type AppModel struct {
	// Data
	Report harness.Report

	// UI State
	SelectedIdx int
	WindowSize  tea.WindowSizeMsg

	// View Modes
	FailedOnly bool

	// Filter State
	InputMode       bool
	InputBuffer     textinput.Model
	FilteredIndices []int // Indices of Report.Results to show
	FilterActive    bool

	// Components
	DiffViewport viewport.Model
}

// InitialModel returns the browser state for a finished test run.
func InitialModel(report harness.Report) AppModel {
	ti := textinput.New()
	ti.Placeholder = "Sample index..."
	ti.CharLimit = 20
	ti.Width = 20

	m := AppModel{
		Report:       report,
		InputBuffer:  ti,
		DiffViewport: viewport.New(80, 20),
	}
	m.applyFilter()
	return m
}

func (m AppModel) Init() tea.Cmd { return nil }

// Selected returns the highlighted result, if any.
func (m AppModel) Selected() (harness.Result, bool) {
	if m.SelectedIdx < 0 || m.SelectedIdx >= len(m.FilteredIndices) {
		return harness.Result{}, false
	}
	return m.Report.Results[m.FilteredIndices[m.SelectedIdx]], true
}

// Run shows the browser until the user quits.
func Run(report harness.Report) error {
	m := InitialModel(report)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
