package tui

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/leadsweep/internal/model"
	"github.com/rendis/leadsweep/internal/tui/views"
)

type viewID int

const (
	viewHome viewID = iota
	viewProgress
	viewLeads
)

// Options wires the TUI to a loaded configuration.
type Options struct {
	ConfigPath string
	Summary    string
	Cities     []model.City
	Delta      float64
	Keywords   int
	Run        views.RunFunc
	Leads      views.LeadsFunc
}

// App is the root bubbletea model.
type App struct {
	opts        Options
	currentView viewID
	width       int
	height      int
	home        views.HomeModel
	progress    views.ProgressModel
	leads       views.LeadsModel
}

func NewApp(opts Options) App {
	return App{
		opts:        opts,
		currentView: viewHome,
		home:        views.NewHomeModel(opts.ConfigPath, opts.Summary, LoadHistory()),
	}
}

func (a App) Init() tea.Cmd {
	return a.home.Init()
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" && a.currentView != viewProgress {
			return a, tea.Quit
		}
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
	case views.NavigateToHome:
		a.currentView = viewHome
		a.home = views.NewHomeModel(a.opts.ConfigPath, a.opts.Summary, LoadHistory())
		return a, nil
	case views.StartRunMsg:
		a.currentView = viewProgress
		a.progress = views.NewProgressModel(a.opts.Run, msg.DryRun, a.opts.ConfigPath, a.opts.Cities, a.opts.Delta, a.opts.Keywords)
		return a, tea.Batch(a.progress.Init(), a.sizeCmd())
	case views.NavigateToLeads:
		a.currentView = viewLeads
		a.leads = views.NewLeadsModel(a.opts.Leads)
		return a, tea.Batch(a.leads.Init(), a.sizeCmd())
	case views.RunFinishedMsg:
		// history is best effort; the run already reported its own errors
		_ = SaveRun(msg.Record)
		return a, nil
	}

	var cmd tea.Cmd
	switch a.currentView {
	case viewHome:
		var m tea.Model
		m, cmd = a.home.Update(msg)
		a.home = m.(views.HomeModel)
	case viewProgress:
		var m tea.Model
		m, cmd = a.progress.Update(msg)
		a.progress = m.(views.ProgressModel)
	case viewLeads:
		var m tea.Model
		m, cmd = a.leads.Update(msg)
		a.leads = m.(views.LeadsModel)
	}

	return a, cmd
}

func (a App) View() string {
	var content string
	switch a.currentView {
	case viewHome:
		content = a.home.View()
	case viewProgress:
		content = a.progress.View()
	case viewLeads:
		content = a.leads.View()
	}

	return lipgloss.Place(
		a.width, a.height,
		lipgloss.Center, lipgloss.Top,
		content,
	)
}

// sizeCmd sends a WindowSizeMsg so newly created views get the current terminal size.
func (a App) sizeCmd() tea.Cmd {
	w, h := a.width, a.height
	return func() tea.Msg {
		return tea.WindowSizeMsg{Width: w, Height: h}
	}
}

// Run starts the TUI.
func Run(opts Options) error {
	p := tea.NewProgram(NewApp(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
