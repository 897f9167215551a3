package cliapp

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/getAsterisk/stackwalk/internal/core/app"
)

const maxSummaryDiagnostics = 10

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(lipgloss.Color("#64748B"))

	cycleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

func summaryRow(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label))
	b.WriteString(value)
	b.WriteString("\n")
}

// printSummary renders one run for the terminal.
func printSummary(w io.Writer, res *app.Result, written []string) {
	var b strings.Builder
	s := res.Stats

	b.WriteString(titleStyle("stackwalk " + res.Root))
	b.WriteString("\n")
	summaryRow(&b, "files", fmt.Sprintf("%d (%d indexed, %d cached, %d failed, %d skipped)",
		s.Files, s.Indexed, s.Cached, s.Failed, s.Skipped))
	summaryRow(&b, "blocks", fmt.Sprintf("%d", s.Blocks))
	summaryRow(&b, "calls", fmt.Sprintf("%d", s.Calls))
	summaryRow(&b, "edges", fmt.Sprintf("%d (%d external callees)", s.Edges, s.Externals))

	cycles := res.Graph.DetectCycles()
	if len(cycles) == 0 {
		summaryRow(&b, "cycles", successStyle.Render("none"))
	} else {
		summaryRow(&b, "cycles", cycleStyle.Render(fmt.Sprintf("%d", len(cycles))))
	}

	if len(res.Diagnostics) == 0 {
		summaryRow(&b, "problems", successStyle.Render("none"))
	} else {
		summaryRow(&b, "problems", warningStyle.Render(fmt.Sprintf("%d", len(res.Diagnostics))))
		for i, d := range res.Diagnostics {
			if i == maxSummaryDiagnostics {
				b.WriteString(statusStyle.Render(fmt.Sprintf("  ... %d more", len(res.Diagnostics)-i)))
				b.WriteString("\n")
				break
			}
			b.WriteString(fmt.Sprintf("  %s %s: %s\n", warningStyle.Render(string(d.Severity)), d.Path, d.Message))
		}
	}

	for _, path := range written {
		summaryRow(&b, "wrote", path)
	}
	b.WriteString(statusStyle.Render(fmt.Sprintf("run %s in %s, heap %d MB",
		res.RunID, s.Duration.Round(time.Millisecond), s.HeapMB)))
	b.WriteString("\n")

	fmt.Fprint(w, b.String())
}
