package cliapp

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/getAsterisk/stackwalk/internal/core/app"
)

var docStyle = lipgloss.NewStyle().Margin(1, 2)

type item struct {
	title, desc string
}

func (i item) Title() string       { return i.title }
func (i item) Description() string { return i.desc }
func (i item) FilterValue() string { return i.title + i.desc }

// runMsg carries one finished watch run into the dashboard.
type runMsg struct {
	result  *app.Result
	written []string
	err     error
}

type dashboard struct {
	root       string
	issues     list.Model
	runs       int
	stats      app.Stats
	runID      string
	cycles     [][]string
	problems   int
	written    []string
	lastErr    string
	lastUpdate time.Time
}

func newDashboard(root string) dashboard {
	issues := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	issues.Title = "Cycles and diagnostics"
	issues.SetShowStatusBar(false)
	issues.SetFilteringEnabled(true)
	return dashboard{root: root, issues: issues}
}

func (m dashboard) Init() tea.Cmd {
	return nil
}

func (m dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.issues.FilterState() != list.Filtering {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			}
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		height := msg.Height - v - 6
		if height < 5 {
			height = 5
		}
		m.issues.SetSize(msg.Width-h, height)
	case runMsg:
		m.runs++
		m.lastUpdate = time.Now()
		if msg.err != nil {
			m.lastErr = msg.err.Error()
			return m, nil
		}
		m.lastErr = ""
		m.written = msg.written
		return m, m.applyResult(msg.result)
	}

	var cmd tea.Cmd
	m.issues, cmd = m.issues.Update(msg)
	return m, cmd
}

func (m *dashboard) applyResult(res *app.Result) tea.Cmd {
	m.stats = res.Stats
	m.runID = res.RunID
	m.problems = len(res.Diagnostics)
	m.cycles = m.cycles[:0]

	var items []list.Item
	for _, cycle := range res.Graph.DetectCycles() {
		keys := make([]string, 0, len(cycle))
		for _, id := range cycle {
			keys = append(keys, res.Graph.Key(id))
		}
		m.cycles = append(m.cycles, keys)
		items = append(items, item{title: "Recursion cycle", desc: strings.Join(keys, " -> ")})
	}
	for _, d := range res.Diagnostics {
		title := string(d.Severity)
		if d.Code != "" {
			title += " " + string(d.Code)
		}
		desc := d.Message
		if d.Path != "" {
			desc = d.Path + ": " + desc
		}
		items = append(items, item{title: title, desc: desc})
	}
	return m.issues.SetItems(items)
}

func (m dashboard) View() string {
	var b strings.Builder
	b.WriteString(titleStyle("stackwalk watch " + m.root))
	b.WriteString("\n")

	if m.runs == 0 {
		b.WriteString(statusStyle.Render("indexing..."))
		return docStyle.Render(b.String())
	}

	s := m.stats
	b.WriteString(statusStyle.Render(fmt.Sprintf("run %d at %s | %d files (%d cached, %d failed) | %d blocks | %d edges | %d external",
		m.runs, m.lastUpdate.Format("15:04:05"), s.Files, s.Cached, s.Failed, s.Blocks, s.Edges, s.Externals)))
	b.WriteString("\n")

	switch {
	case m.lastErr != "":
		b.WriteString(cycleStyle.Render("last run failed: " + m.lastErr))
	case len(m.cycles) == 0 && m.problems == 0:
		b.WriteString(successStyle.Render("no cycles, no diagnostics"))
	default:
		b.WriteString(fmt.Sprintf("%s | %s",
			cycleStyle.Render(fmt.Sprintf("%d cycles", len(m.cycles))),
			warningStyle.Render(fmt.Sprintf("%d diagnostics", m.problems))))
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("Keys: / filter | q quit"))
	b.WriteString("\n\n")
	b.WriteString(m.issues.View())
	return docStyle.Render(b.String())
}
