package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"graphrun/internal/harness"
	"graphrun/internal/model"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selectedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("57"))
	normalStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	dimStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	updateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	addedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	removedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	hunkStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("81")) // Sky Blue/Cyan

	borderColor = lipgloss.Color("63")
	activeColor = lipgloss.Color("205")
)

func outcomeStyle(o model.Outcome) lipgloss.Style {
	switch o {
	case model.Failed:
		return failStyle
	case model.Updated:
		return updateStyle
	case model.Passed:
		return passStyle
	default:
		return dimStyle
	}
}

func (m AppModel) View() string {
	width := m.WindowSize.Width
	height := m.WindowSize.Height

	netWidth := max(width-6, 20)
	leftWidth := netWidth / 2
	rightWidth := netWidth - leftWidth
	interiorHeight := max(height-8, 2)

	// LEFT PANEL: samples
	var leftView strings.Builder
	title := "Samples"
	if m.FailedOnly {
		title += " (failed only)"
	}
	leftView.WriteString(titleStyle.Render(title))
	leftView.WriteString("\n\n")

	// Header is 2 lines
	visibleItems := max(interiorHeight-2, 1)
	startIdx := 0
	endIdx := len(m.FilteredIndices)
	if len(m.FilteredIndices) > visibleItems {
		startIdx = max(m.SelectedIdx-visibleItems/2, 0)
		if startIdx+visibleItems > len(m.FilteredIndices) {
			startIdx = len(m.FilteredIndices) - visibleItems
		}
		endIdx = startIdx + visibleItems
	}

	for i := startIdx; i < endIdx; i++ {
		res := m.Report.Results[m.FilteredIndices[i]]
		line := fmt.Sprintf("%4s. %s %s", res.Sample.Index, res.Outcome.Icon(), res.Outcome)
		if res.Reason != "" {
			line += " (" + res.Reason + ")"
		}
		line = truncate(line, leftWidth-2)

		if i == m.SelectedIdx {
			leftView.WriteString(selectedStyle.Render(line))
		} else {
			leftView.WriteString(outcomeStyle(res.Outcome).Render(line))
		}
		leftView.WriteString("\n")
	}
	if len(m.FilteredIndices) == 0 {
		leftView.WriteString(dimStyle.Render("(none)"))
	}

	left := lipgloss.NewStyle().
		Width(leftWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(activeColor).
		Render(strings.TrimSuffix(leftView.String(), "\n"))

	// RIGHT PANEL: details and diff
	right := lipgloss.NewStyle().
		Width(rightWidth).
		Height(interiorHeight).
		Border(lipgloss.NormalBorder()).
		BorderForeground(borderColor).
		Render(titleStyle.Render("Details") + "\n\n" + m.DiffViewport.View())

	footer := "\n" + verdictLine(m.Report) + "\n"
	if m.InputMode {
		footer += fmt.Sprintf("Filter: %s", m.InputBuffer.View())
	} else {
		footer += dimStyle.Render("↑/↓: Navigate • PgUp/PgDn: Scroll diff • f: Failed only • /: Filter • esc: Clear filter • q: Quit")
	}

	return lipgloss.JoinHorizontal(lipgloss.Top, left, right) + footer
}

// truncate cuts line to width cells, keeping whole runes.
func truncate(line string, width int) string {
	return ansi.Truncate(line, max(width, 4), "...")
}

func verdictLine(r harness.Report) string {
	v := r.Verdict()
	return outcomeStyle(v).Bold(true).Render(fmt.Sprintf("%s %s", v.Icon(), v)) +
		dimStyle.Render(fmt.Sprintf("  %d samples, %d failed", len(r.Results), len(r.Failed())))
}

// renderDetails describes one result with its diff colored by line kind.
func renderDetails(res harness.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Sample:  %s\n", res.Sample.Index)
	fmt.Fprintf(&b, "Input:   %s\n", res.Sample.Path)
	fmt.Fprintf(&b, "Outcome: %s\n", outcomeStyle(res.Outcome).Render(res.Outcome.Icon()+" "+res.Outcome.String()))
	fmt.Fprintf(&b, "Golden:  %s\n", res.GoldenPath)
	if res.Outcome == model.Failed {
		fmt.Fprintf(&b, "Output:  %s\n", res.OutputPath)
	}
	if res.Reason != "" {
		fmt.Fprintf(&b, "Reason:  %s\n", res.Reason)
	}
	if res.Diff == "" {
		return b.String()
	}

	fmt.Fprintf(&b, "\n%d hunks, +%d -%d\n\n", res.Stats.Hunks, res.Stats.Added, res.Stats.Removed)
	for _, line := range strings.Split(strings.TrimSuffix(res.Diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			b.WriteString(dimStyle.Render(line))
		case strings.HasPrefix(line, "@@"):
			b.WriteString(hunkStyle.Render(line))
		case strings.HasPrefix(line, "+"):
			b.WriteString(addedStyle.Render(line))
		case strings.HasPrefix(line, "-"):
			b.WriteString(removedStyle.Render(line))
		default:
			b.WriteString(normalStyle.Render(line))
		}
		b.WriteString("\n")
	}
	return b.String()
}
