package views

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/leadsweep/internal/tui/styles"
)

type menuItem struct {
	key   string
	label string
	desc  string
}

type HomeModel struct {
	items      []menuItem
	cursor     int
	configPath string
	summary    string
	history    []RunRecord
}

// NewHomeModel builds the menu. summary is a one-line description of the
// loaded configuration.
func NewHomeModel(configPath, summary string, history []RunRecord) HomeModel {
	return HomeModel{
		items: []menuItem{
			{key: "r", label: "Run Sweep", desc: "Search, qualify and store new leads"},
			{key: "d", label: "Dry Run", desc: "Qualify without writing anything"},
			{key: "l", label: "Browse Leads", desc: "Open the lead store"},
			{key: "q", label: "Quit", desc: "Exit leadsweep"},
		},
		configPath: configPath,
		summary:    summary,
		history:    history,
	}
}

func (m HomeModel) Init() tea.Cmd {
	return nil
}

func (m HomeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.items)-1 {
				m.cursor++
			}
		case "enter":
			return m, m.handleSelect()
		case "r":
			m.cursor = 0
			return m, m.handleSelect()
		case "d":
			m.cursor = 1
			return m, m.handleSelect()
		case "l":
			m.cursor = 2
			return m, m.handleSelect()
		case "q":
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m HomeModel) handleSelect() tea.Cmd {
	switch m.cursor {
	case 0:
		return func() tea.Msg { return StartRunMsg{} }
	case 1:
		return func() tea.Msg { return StartRunMsg{DryRun: true} }
	case 2:
		return func() tea.Msg { return NavigateToLeads{} }
	case 3:
		return tea.Quit
	}
	return nil
}

func (m HomeModel) View() string {
	var b strings.Builder

	b.WriteString(styles.ActiveItem.Render("  leadsweep"))
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Muted).Render(" " + Version))
	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(styles.Secondary).Italic(true).Render("  Lead discovery and qualification"))
	b.WriteString("\n\n")

	b.WriteString(styles.Label.Render("Config:"))
	b.WriteString(styles.Value.Render(m.configPath))
	b.WriteString("\n")
	if m.summary != "" {
		b.WriteString(styles.Label.Render("Sweep:"))
		b.WriteString(styles.Value.Render(m.summary))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	for i, item := range m.items {
		cursor := "  "
		style := styles.InactiveItem
		if i == m.cursor {
			cursor = "> "
			style = styles.ActiveItem
		}
		desc := lipgloss.NewStyle().Foreground(styles.Muted).Render(" - " + item.desc)
		b.WriteString(fmt.Sprintf("%s%s %s%s\n", cursor, styles.Key.Render("["+item.key+"]"), style.Render(item.label), desc))
	}

	if len(m.history) > 0 {
		b.WriteString("\n")
		b.WriteString(styles.Label.Render("Last runs"))
		b.WriteString("\n")
		for i, r := range m.history {
			if i == 3 {
				break
			}
			b.WriteString(renderRunRecord(r))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(styles.StatusBar.Render("↑↓ navigate • enter select • q quit"))

	return styles.Border.Render(b.String())
}

func renderRunRecord(r RunRecord) string {
	kind := "run"
	if r.DryRun {
		kind = "dry"
	}
	line := fmt.Sprintf("  %-4s %s  %d admitted, %d rejected, %d seen",
		kind, timeAgo(r.FinishedAt), r.Admitted, r.Rejected, r.Seen)
	if r.Err != "" {
		return styles.ErrorText.Render(line + "  (" + r.Err + ")")
	}
	return lipgloss.NewStyle().Foreground(styles.Muted).Render(line)
}

func timeAgo(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	}
}
