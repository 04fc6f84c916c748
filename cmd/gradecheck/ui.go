package main

import (
	"fmt"
	"time"

	"gradecheck/internal/grading"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true).
			Render

	docStyle = lipgloss.NewStyle().Margin(1, 2)

	pointsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FBBF24")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)
)

// failedCheck is one list row: the check name and its deduction, with the
// feedback text underneath.
type failedCheck grading.Result

func (f failedCheck) Title() string {
	return fmt.Sprintf("%s (-%d)", f.Check.Name, f.Feedback.PointsDeducted)
}
func (f failedCheck) Description() string { return f.Feedback.Feedback }
func (f failedCheck) FilterValue() string { return f.Check.Name + " " + f.Feedback.Feedback }

func failedItems(report *grading.Report) []list.Item {
	failed := report.Failed()
	items := make([]list.Item, 0, len(failed))
	for _, res := range failed {
		items = append(items, failedCheck(res))
	}
	return items
}

type model struct {
	list       list.Model
	submission string
	report     *grading.Report
	lastUpdate time.Time
}

type updateMsg struct {
	report *grading.Report
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		h, v := docStyle.GetFrameSize()
		m.list.SetSize(msg.Width-h, msg.Height-v-4)
	case updateMsg:
		m.report = msg.report
		m.lastUpdate = time.Now()
		m.list.SetItems(failedItems(msg.report))
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m model) View() string {
	var summary string
	switch {
	case m.report == nil:
		summary = statusStyle.Render("grading...")
	case len(m.report.Failed()) == 0:
		summary = passStyle.Render(fmt.Sprintf("✅ All %d checks passed", len(m.report.Results)))
	default:
		summary = fmt.Sprintf("⚠️  %s | %s",
			failStyle.Render(fmt.Sprintf("%d/%d Failed", len(m.report.Failed()), len(m.report.Results))),
			pointsStyle.Render(fmt.Sprintf("%d Points Deducted", m.report.PointsDeducted)))
	}

	status := statusStyle.Render(fmt.Sprintf("Last update: %v | %s",
		m.lastUpdate.Format("15:04:05"), m.submission))

	header := fmt.Sprintf("%s\n%s | %s\n", titleStyle("Grading Monitor"), status, summary)
	return docStyle.Render(header + "\n" + m.list.View())
}

func initialModel(submission string) model {
	l := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	l.Title = "Failed Checks"
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)

	return model{
		list:       l,
		submission: submission,
		lastUpdate: time.Now(),
	}
}
