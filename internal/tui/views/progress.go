package views

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/rendis/leadsweep/internal/engine/geo"
	"github.com/rendis/leadsweep/internal/engine/pipeline"
	"github.com/rendis/leadsweep/internal/model"
	"github.com/rendis/leadsweep/internal/tui/components"
	"github.com/rendis/leadsweep/internal/tui/styles"
)

const maxRecentDecisions = 8

// sharedState holds data shared between the pipeline goroutine and the TUI.
// Lives behind a pointer so it survives bubbletea's value copies.
type sharedState struct {
	mu        sync.Mutex
	stats     *pipeline.Stats
	cancel    context.CancelFunc
	decisions []pipeline.DecisionEvent // newest last
	doneAt    map[model.Coordinate]int // finished buckets per sweep point
}

func (s *sharedState) pushDecision(ev pipeline.DecisionEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.decisions = append(s.decisions, ev)
	if len(s.decisions) > maxRecentDecisions {
		s.decisions = s.decisions[len(s.decisions)-maxRecentDecisions:]
	}
}

func (s *sharedState) bucketDone(b pipeline.BucketResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.doneAt[b.At]++
}

func (s *sharedState) snapshot() ([]pipeline.DecisionEvent, map[model.Coordinate]int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	done := make(map[model.Coordinate]int, len(s.doneAt))
	for k, v := range s.doneAt {
		done[k] = v
	}
	return append([]pipeline.DecisionEvent(nil), s.decisions...), done
}

func (s *sharedState) getCancel() context.CancelFunc {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancel
}

// ProgressModel runs the pipeline and renders its live state.
type ProgressModel struct {
	run         RunFunc
	dryRun      bool
	configPath  string
	keywords    int
	progress    progress.Model
	sweepMap    components.SweepMap
	startTime   time.Time
	done        bool
	confirmQuit bool
	err         error
	width       int
	height      int
	shared      *sharedState
}

type progressTickMsg time.Time

type runCompleteMsg struct {
	Err error
}

// NewProgressModel prepares a run over cities. keywords is the number of
// keywords per sweep point.
func NewProgressModel(run RunFunc, dryRun bool, configPath string, cities []model.City, delta float64, keywords int) ProgressModel {
	var points []model.Coordinate
	for _, c := range cities {
		points = append(points, geo.Sweep(c.Center, delta)...)
	}
	sm := components.NewSweepMap(40, 10)
	sm.SetPoints(points)

	return ProgressModel{
		run:        run,
		dryRun:     dryRun,
		configPath: configPath,
		keywords:   keywords,
		progress:   progress.New(progress.WithDefaultGradient(), progress.WithWidth(50)),
		sweepMap:   sm,
		startTime:  time.Now(),
		shared: &sharedState{
			stats:  &pipeline.Stats{},
			doneAt: map[model.Coordinate]int{},
		},
	}
}

func (m ProgressModel) Init() tea.Cmd {
	return tea.Batch(m.startRun(), tickCmd())
}

func tickCmd() tea.Cmd {
	return tea.Tick(300*time.Millisecond, func(t time.Time) tea.Msg {
		return progressTickMsg(t)
	})
}

func (m ProgressModel) startRun() tea.Cmd {
	shared := m.shared
	run := m.run
	dryRun := m.dryRun

	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		shared.mu.Lock()
		shared.cancel = cancel
		stats := shared.stats
		shared.mu.Unlock()

		err := run(ctx, dryRun, &pipeline.RunOptions{
			SuppressStderr: true,
			Stats:          stats,
			OnDecision:     shared.pushDecision,
			OnBucket:       shared.bucketDone,
		})
		return runCompleteMsg{Err: err}
	}
}

func (m ProgressModel) record() RunRecord {
	s := m.shared.stats
	rec := RunRecord{
		ConfigPath: m.configPath,
		FinishedAt: time.Now(),
		DryRun:     m.dryRun,
		Admitted:   s.Admitted.Load(),
		Rejected:   s.Rejected.Load(),
		Seen:       s.Seen.Load(),
	}
	if m.err != nil && !errors.Is(m.err, context.Canceled) {
		rec.Err = m.err.Error()
	}
	return rec
}

func (m ProgressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if w := msg.Width - 40; w > 20 {
			m.sweepMap.SetSize(min(w, 60), 12)
		}
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			if cancel := m.shared.getCancel(); cancel != nil {
				cancel()
			}
			return m, tea.Quit
		case "esc":
			if m.done {
				return m, func() tea.Msg { return NavigateToHome{} }
			}
			if m.confirmQuit {
				if cancel := m.shared.getCancel(); cancel != nil {
					cancel()
				}
				m.confirmQuit = false
				return m, nil
			}
			m.confirmQuit = true
			return m, nil
		case "enter":
			if m.done {
				return m, func() tea.Msg { return NavigateToLeads{} }
			}
		}
		if m.confirmQuit {
			m.confirmQuit = false
		}
	case progressTickMsg:
		if m.done {
			return m, nil
		}
		_, doneAt := m.shared.snapshot()
		for pt, n := range doneAt {
			if n >= m.keywords {
				m.sweepMap.MarkDone(pt)
			}
		}
		return m, tickCmd()
	case runCompleteMsg:
		m.done = true
		m.err = msg.Err
		rec := m.record()
		return m, func() tea.Msg { return RunFinishedMsg{Record: rec} }
	}

	pModel, cmd := m.progress.Update(msg)
	m.progress = pModel.(progress.Model)
	return m, cmd
}

func (m ProgressModel) View() string {
	var b strings.Builder

	title := "Sweeping"
	if m.dryRun {
		title = "Dry run"
	}
	b.WriteString(styles.Title.Render(fmt.Sprintf("%s: %s", title, m.configPath)))
	b.WriteString("\n")

	statsBox := styles.Box.Width(30).Render(m.renderStats())
	mapBox := styles.Box.Render(m.sweepMap.View())
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, statsBox, " ", mapBox))
	b.WriteString("\n\n")

	stats := m.shared.stats
	var pct float64
	if total := stats.BucketsTotal.Load(); total > 0 {
		pct = float64(stats.BucketsDone.Load()) / float64(total)
	}
	b.WriteString(m.progress.ViewAs(pct))
	b.WriteString("\n\n")

	b.WriteString(m.renderDecisions())
	b.WriteString("\n")

	switch {
	case m.done:
		if m.err != nil && !errors.Is(m.err, context.Canceled) {
			b.WriteString(styles.ErrorText.Render(fmt.Sprintf("Error: %v", m.err)))
		} else {
			b.WriteString(styles.Admitted.Render(fmt.Sprintf("Complete! %d leads admitted", stats.Admitted.Load())))
		}
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("enter browse leads • esc back"))
	case m.confirmQuit:
		b.WriteString(styles.ErrorText.Render("Press ESC again to stop the run"))
		b.WriteString("\n")
		b.WriteString(styles.StatusBar.Render("esc confirm stop • any key continue"))
	default:
		b.WriteString(styles.StatusBar.Render("esc stop • ctrl+c quit"))
	}

	return b.String()
}

func (m ProgressModel) renderStats() string {
	var sb strings.Builder
	s := m.shared.stats
	elapsed := time.Since(m.startTime).Truncate(time.Second)

	row := func(label, value string, style lipgloss.Style) {
		sb.WriteString(styles.Label.Render(label))
		sb.WriteString(style.Render(value))
		sb.WriteString("\n")
	}

	done, total := s.BucketsDone.Load(), s.BucketsTotal.Load()
	row("Buckets:", fmt.Sprintf("%d/%d", done, total), styles.Value)
	row("Hits:", fmt.Sprint(s.Hits.Load()), styles.Value)
	row("Seen:", fmt.Sprint(s.Seen.Load()), styles.Value)
	row("Admitted:", fmt.Sprint(s.Admitted.Load()), styles.Admitted)
	row("Rejected:", fmt.Sprint(s.Rejected.Load()), styles.Value)
	if n := s.Duplicates.Load(); n > 0 {
		row("Dup name:", fmt.Sprint(n), styles.Skipped)
	}
	errStyle := styles.Value
	errs := s.SearchErrors.Load() + s.StoreErrors.Load()
	if errs > 0 {
		errStyle = styles.ErrorText
	}
	row("Errors:", fmt.Sprint(errs), errStyle)
	row("Elapsed:", elapsed.String(), styles.Value)

	if done > 0 && total > 0 && !m.done {
		rate := float64(done) / elapsed.Seconds()
		eta := time.Duration(float64(total-done) / rate * float64(time.Second)).Truncate(time.Second)
		row("ETA:", "~"+eta.String(), styles.Value)
	}
	return sb.String()
}

func (m ProgressModel) renderDecisions() string {
	decisions, _ := m.shared.snapshot()
	if len(decisions) == 0 {
		return styles.InactiveItem.Render("waiting for the first decision...")
	}
	var sb strings.Builder
	for i := len(decisions) - 1; i >= 0; i-- {
		sb.WriteString(renderDecision(decisions[i]))
		sb.WriteString("\n")
	}
	return sb.String()
}

func renderDecision(ev pipeline.DecisionEvent) string {
	name := ev.Record.Name
	if r := []rune(name); len(r) > 32 {
		name = string(r[:31]) + "…"
	}
	switch {
	case ev.Forwarded:
		return styles.Admitted.Render("+ ") + fmt.Sprintf("%-32s %s", name, ev.Decision.Quality)
	case ev.Duplicate:
		return styles.Skipped.Render("= ") + fmt.Sprintf("%-32s already stored", name)
	case ev.Decision.Admit:
		return styles.ErrorText.Render("! ") + fmt.Sprintf("%-32s not stored, retried next run", name)
	default:
		return styles.Rejected.Render(fmt.Sprintf("- %-32s %s", name, ev.Decision.Reason))
	}
}
