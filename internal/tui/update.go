package tui

import (
	"path/filepath"
	"strings"

	"graphrun/internal/model"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// Update handles events.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.WindowSize = msg
		m.DiffViewport.Width = msg.Width / 2
		m.DiffViewport.Height = msg.Height - 8 // title, footer, borders
		if m.DiffViewport.Height < 2 {
			m.DiffViewport.Height = 2
		}
		m.refreshDetails()
		return m, nil

	case tea.KeyMsg:
		if m.InputMode {
			switch msg.Type {
			case tea.KeyEnter:
				m.InputMode = false
				m.InputBuffer.Blur()
				m.applyFilter()
				return m, nil
			case tea.KeyEsc:
				m.clearFilter()
				return m, nil
			}
			m.InputBuffer, cmd = m.InputBuffer.Update(msg)
			m.applyFilter()
			return m, cmd
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "esc":
			if m.FilterActive {
				m.clearFilter()
			}
		case "up", "k":
			if m.SelectedIdx > 0 {
				m.SelectedIdx--
				m.refreshDetails()
			}
		case "down", "j":
			if m.SelectedIdx < len(m.FilteredIndices)-1 {
				m.SelectedIdx++
				m.refreshDetails()
			}
		case "f":
			m.FailedOnly = !m.FailedOnly
			m.applyFilter()
		case "/":
			m.InputMode = true
			m.InputBuffer.Focus()
			m.InputBuffer.SetValue("")
			return m, textinput.Blink
		default:
			// pgup/pgdown and friends scroll the diff
			m.DiffViewport, cmd = m.DiffViewport.Update(msg)
		}
	}

	return m, cmd
}

func (m *AppModel) clearFilter() {
	m.InputMode = false
	m.InputBuffer.Blur()
	m.InputBuffer.SetValue("")
	m.applyFilter()
}

// applyFilter recomputes the visible results. The term matches a sample
// index prefix or any part of the sample file name.
func (m *AppModel) applyFilter() {
	term := strings.ToLower(strings.TrimSpace(m.InputBuffer.Value()))
	m.FilterActive = term != ""

	var filtered []int
	for i, res := range m.Report.Results {
		if m.FailedOnly && res.Outcome != model.Failed {
			continue
		}
		if term != "" &&
			!strings.HasPrefix(res.Sample.Index, term) &&
			!strings.Contains(strings.ToLower(filepath.Base(res.Sample.Path)), term) {
			continue
		}
		filtered = append(filtered, i)
	}
	m.FilteredIndices = filtered

	if m.SelectedIdx >= len(m.FilteredIndices) {
		m.SelectedIdx = max(len(m.FilteredIndices)-1, 0)
	}
	m.refreshDetails()
}

func (m *AppModel) refreshDetails() {
	res, ok := m.Selected()
	if !ok {
		m.DiffViewport.SetContent("No samples match.")
		return
	}
	m.DiffViewport.SetContent(renderDetails(res))
	m.DiffViewport.GotoTop()
}
