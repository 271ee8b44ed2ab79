package pipeline

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"graphrun/internal/harness"
	"graphrun/internal/model"
)

var (
	passStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	updateStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).Bold(true)
)

func verdictStyle(o model.Outcome) lipgloss.Style {
	switch o {
	case model.Failed:
		return failStyle
	case model.Updated:
		return updateStyle
	default:
		return passStyle
	}
}

// writeVerdict prints the one-line summary, naming failed samples so they
// can be inspected without --verbose.
func writeVerdict(w io.Writer, r harness.Report) {
	counts := make(map[model.Outcome]int)
	for _, res := range r.Results {
		counts[res.Outcome]++
	}

	v := r.Verdict()
	label := "Tests"
	if r.UpdateGoldens {
		label = "Goldens"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", label, verdictStyle(v).Render(v.Icon()+" "+v.String()))
	if r.UpdateGoldens {
		fmt.Fprintf(&b, " (%d updated, %d untouched", counts[model.Updated], counts[model.Untouched])
	} else {
		fmt.Fprintf(&b, " (%d passed", counts[model.Passed])
	}
	fmt.Fprintf(&b, ", %d failed)", counts[model.Failed])

	if failed := r.Failed(); len(failed) > 0 {
		idx := make([]string, len(failed))
		for i, res := range failed {
			idx[i] = res.Sample.Index
		}
		fmt.Fprintf(&b, " failed samples: %s", strings.Join(idx, ", "))
	}
	fmt.Fprintln(w, b.String())
}

func writeDiffs(w io.Writer, r harness.Report) {
	for _, res := range r.Failed() {
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("== sample %s: %s (+%d -%d)",
			res.Sample.Index, res.Reason, res.Stats.Added, res.Stats.Removed)))
		if res.Diff != "" {
			fmt.Fprint(w, res.Diff)
		}
	}
}
