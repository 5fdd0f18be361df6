package views

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/rendis/leadsweep/internal/model"
	"github.com/rendis/leadsweep/internal/tui/styles"
)

// LeadsModel lists the lead store with a filter box and a detail card.
type LeadsModel struct {
	load      LeadsFunc
	leads     []model.Lead
	filtered  []model.Lead
	table     table.Model
	filter    textinput.Model
	filtering bool
	width     int
	height    int
	err       error
}

type leadsLoadedMsg struct {
	Leads []model.Lead
	Err   error
}

func NewLeadsModel(load LeadsFunc) LeadsModel {
	filter := textinput.New()
	filter.Placeholder = "Type to filter..."
	filter.CharLimit = 50

	m := LeadsModel{load: load, filter: filter}
	m.buildTable(nil)
	return m
}

func (m LeadsModel) Init() tea.Cmd {
	load := m.load
	return func() tea.Msg {
		leads, err := load(context.Background())
		return leadsLoadedMsg{Leads: leads, Err: err}
	}
}

func (m LeadsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.buildTable(m.filtered)
	case leadsLoadedMsg:
		m.err = msg.Err
		m.leads = msg.Leads
		m.filtered = msg.Leads
		m.buildTable(m.filtered)
		return m, nil
	case tea.KeyMsg:
		key := msg.String()
		if key == "ctrl+c" {
			return m, tea.Quit
		}
		if m.filtering {
			switch key {
			case "esc", "enter", "tab":
				m.filtering = false
				m.filter.Blur()
				return m, nil
			}
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			m.applyFilter()
			return m, cmd
		}
		switch key {
		case "esc", "q":
			return m, func() tea.Msg { return NavigateToHome{} }
		case "/", "tab":
			m.filtering = true
			m.filter.Focus()
			return m, textinput.Blink
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m LeadsModel) View() string {
	var b strings.Builder
	b.WriteString(styles.Title.Render(fmt.Sprintf("Leads (%d/%d)", len(m.filtered), len(m.leads))))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc back"))
		return b.String()
	}

	b.WriteString(m.filter.View())
	b.WriteString("\n\n")
	b.WriteString(m.table.View())
	b.WriteString("\n")

	if card := m.renderCard(); card != "" {
		b.WriteString(styles.Box.Render(card))
		b.WriteString("\n")
	}

	help := "↑↓ navigate • / filter • esc back"
	if m.filtering {
		help = "enter/esc done filtering"
	}
	b.WriteString(styles.StatusBar.Render(help))
	return b.String()
}

// Selected returns the lead under the cursor.
func (m LeadsModel) Selected() (model.Lead, bool) {
	i := m.table.Cursor()
	if i < 0 || i >= len(m.filtered) {
		return model.Lead{}, false
	}
	return m.filtered[i], true
}

func (m LeadsModel) renderCard() string {
	l, ok := m.Selected()
	if !ok {
		return ""
	}
	var lines []string
	lines = append(lines, styles.ActiveItem.Render(l.BusinessName), "")
	addRow := func(label, value string) {
		if value != "" {
			lines = append(lines, styles.Label.Render(label)+value)
		}
	}
	addRow("City:", l.CityState)
	addRow("Phone:", l.BusinessNumber)
	addRow("Website:", l.BusinessURL)
	addRow("Quality:", l.WebsiteQuality)
	addRow("Maps:", l.ContactProfileURL)
	return strings.Join(lines, "\n")
}

func (m *LeadsModel) buildTable(leads []model.Lead) {
	nameW, cityW, phoneW, qualityW := 30, 18, 16, 16
	if m.width > 100 {
		extra := m.width - 100
		nameW += extra / 2
		cityW += extra / 4
	}

	columns := []table.Column{
		{Title: "Business", Width: nameW},
		{Title: "City", Width: cityW},
		{Title: "Phone", Width: phoneW},
		{Title: "Website", Width: qualityW},
	}
	rows := make([]table.Row, len(leads))
	for i, l := range leads {
		rows[i] = table.Row{
			truncate(l.BusinessName, nameW),
			truncate(l.CityState, cityW),
			truncate(l.BusinessNumber, phoneW),
			truncate(l.WebsiteQuality, qualityW),
		}
	}

	height := 10
	if m.height > 0 {
		height = max(m.height/2-4, 5)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows(rows),
		table.WithFocused(true),
		table.WithHeight(height),
	)
	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(styles.Muted).
		BorderBottom(true).
		Bold(true).
		Foreground(styles.Secondary)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#FFFFFF")).
		Background(styles.Primary).
		Bold(true)
	t.SetStyles(s)
	m.table = t
}

// normalize removes diacritics and lowercases text for matching.
func normalize(s string) string {
	t := transform.Chain(norm.NFD, transform.RemoveFunc(func(r rune) bool {
		return unicode.Is(unicode.Mn, r)
	}), norm.NFC)
	result, _, _ := transform.String(t, strings.ToLower(s))
	return result
}

// matchLead reports whether every word occurs in the lead's searchable text.
func matchLead(l model.Lead, words []string) bool {
	haystack := normalize(strings.Join([]string{
		l.BusinessName, l.CityState, l.BusinessURL, l.WebsiteQuality, l.BusinessNumber,
	}, " "))
	for _, w := range words {
		if !strings.Contains(haystack, w) {
			return false
		}
	}
	return true
}

func (m *LeadsModel) applyFilter() {
	raw := strings.TrimSpace(m.filter.Value())
	if raw == "" {
		m.filtered = m.leads
		m.buildTable(m.filtered)
		return
	}
	words := strings.Fields(normalize(raw))
	m.filtered = nil
	for _, l := range m.leads {
		if matchLead(l, words) {
			m.filtered = append(m.filtered, l)
		}
	}
	m.buildTable(m.filtered)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
