package monitor

import (
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mdouchement/stimd"
)

type model struct {
	table table.Model
}

func newTUI() *model {
	columns := []table.Column{
		{Title: "Parameter", Width: 12},
		{Title: "Value", Width: 14},
		{Title: "Ramp", Width: 24},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(false),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		Foreground(lipgloss.Color("#00afff")).
		BorderForeground(lipgloss.Color("#00afff")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#ffffff")).
		Bold(false)
	t.SetStyles(s)

	return &model{
		table: t,
	}
}

func (m *model) Init() tea.Cmd {
	return nil
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.table.SetWidth(msg.Width)
		m.table.SetHeight(msg.Height)
	case []stimd.Sample:
		m.update(msg)
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	}
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) View() string {
	return m.table.View()
}

func (m *model) update(samples []stimd.Sample) {
	rows := make([]table.Row, 0, len(samples))
	for _, s := range samples {
		rows = append(rows, table.Row{
			string(s.Parameter),
			formatValue(s),
			formatRamp(s),
		})
	}

	m.table.SetRows(rows)
}

func formatValue(s stimd.Sample) string {
	switch s.Parameter {
	case stimd.Channel:
		if s.Value == 0 {
			return "none"
		}
		return fmt.Sprintf("%.0f", s.Value)
	case stimd.Amplitude:
		return fmt.Sprintf("%.1f mA", s.Value)
	case stimd.Frequency:
		return fmt.Sprintf("%.1f Hz", s.Value)
	}
	return fmt.Sprintf("%g", s.Value)
}

func formatRamp(s stimd.Sample) string {
	if s.Status == stimd.RampIdle {
		return "-"
	}
	return fmt.Sprintf("%s to %s (%3.0f%%)", s.Status, s.Target, s.Progress*100)
}
