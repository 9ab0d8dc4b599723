// Package dashboard is the live display consumer of a batch run. It only
// ever polls immutable snapshots; a slow terminal can never stall a worker.
package dashboard

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"n8n-snap/internal/model"
)

// Source is the read side of a run: the orchestrator satisfies it.
type Source interface {
	Snapshot() model.RunStats
	WorkerStates() []model.WorkerSlotState
}

// Options wires a dashboard to a running batch.
type Options struct {
	Source Source
	// Done is closed by the caller once the run has finalized.
	Done <-chan struct{}
	// Cancel is invoked when the operator interrupts the run. The display
	// keeps polling until Done closes so the partial summary stays visible.
	Cancel func()
	Title  string
}

const pollInterval = 500 * time.Millisecond

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true)
	workerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("230"))
	panelStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type tickMsg time.Time

type runModel struct {
	opts      Options
	stats     model.RunStats
	slots     []model.WorkerSlotState
	bar       progress.Model
	spin      spinner.Model
	cancelled bool
	finished  bool
}

func newRunModel(opts Options) runModel {
	bar := progress.New(progress.WithDefaultGradient())
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return runModel{
		opts:  opts,
		stats: opts.Source.Snapshot(),
		slots: opts.Source.WorkerStates(),
		bar:   bar,
		spin:  sp,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if !m.cancelled && m.opts.Cancel != nil {
				m.cancelled = true
				m.opts.Cancel()
			}
			return m, nil
		}
	case tickMsg:
		m.stats = m.opts.Source.Snapshot()
		m.slots = m.opts.Source.WorkerStates()
		select {
		case <-m.opts.Done:
			m.finished = true
			return m, tea.Quit
		default:
		}
		return m, tick()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case progress.FrameMsg:
		bar, cmd := m.bar.Update(msg)
		m.bar = bar.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m runModel) View() string {
	title := m.opts.Title
	if title == "" {
		title = "n8n-snap"
	}
	header := titleStyle.Render(title) + " " + mutedStyle.Render(statusLine(m.stats))
	if !m.finished && !m.stats.Complete {
		header = m.spin.View() + header
	}

	percent := 0.0
	if m.stats.Total > 0 {
		percent = float64(m.stats.Total-m.stats.Remaining) / float64(m.stats.Total)
	}
	bar := m.bar.ViewAs(percent)

	lines := make([]string, 0, len(m.slots)+1)
	for _, slot := range m.slots {
		lines = append(lines, workerStyle.Render(slotLine(slot)))
	}
	if m.cancelled && !m.finished {
		lines = append(lines, failStyle.Render("cancelling, waiting for in-flight renders to stop"))
	}
	if m.finished || m.stats.Complete {
		summary := fmt.Sprintf("done: %d ok, %d failed", m.stats.Succeeded, m.stats.Failed)
		if m.stats.Failed > 0 {
			lines = append(lines, failStyle.Render(summary))
		} else {
			lines = append(lines, okStyle.Render(summary))
		}
	}

	body := lipgloss.JoinVertical(lipgloss.Left, header, bar, strings.Join(lines, "\n"))
	return panelStyle.Render(body) + "\n"
}

// Run blocks until the batch finishes, driving the interactive display.
func Run(opts Options) error {
	p := tea.NewProgram(newRunModel(opts))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run dashboard: %w", err)
	}
	return nil
}

// PlainTicker is the non-TTY fallback: one status line per poll on stdout,
// no cursor control.
type PlainTicker struct {
	source Source
	stop   chan struct{}
	done   chan struct{}
}

func NewPlainTicker(source Source) *PlainTicker {
	return &PlainTicker{
		source: source,
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (p *PlainTicker) Start() {
	go func() {
		defer close(p.done)
		t := time.NewTicker(2 * time.Second)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				fmt.Println(statusLine(p.source.Snapshot()))
			}
		}
	}()
}

func (p *PlainTicker) Stop() {
	close(p.stop)
	<-p.done
	fmt.Println(statusLine(p.source.Snapshot()))
}

// statusLine renders one aggregate line: progress, failures, throughput and
// the ETA while jobs remain.
func statusLine(stats model.RunStats) string {
	completed := stats.Total - stats.Remaining
	line := fmt.Sprintf("rendered %d/%d | ok %d | failed %d", completed, stats.Total, stats.Succeeded, stats.Failed)
	if stats.Replaced > 0 {
		line += fmt.Sprintf(" | replaced %d", stats.Replaced)
	}
	if stats.JobsPerMinute > 0 {
		line += fmt.Sprintf(" | %.1f/min", stats.JobsPerMinute)
	}
	if stats.Remaining > 0 {
		if eta := formatETASeconds(stats.ETASeconds); eta != "" {
			line += fmt.Sprintf(" | eta ~ %s", eta)
		} else {
			line += " | eta ~ calculating"
		}
	}
	return line
}

func slotLine(slot model.WorkerSlotState) string {
	switch slot.Phase {
	case model.SlotRendering:
		return fmt.Sprintf("w%d rendering %s (%ds)", slot.Worker, slot.JobName, int(time.Since(slot.StartedAt).Seconds()))
	case model.SlotCompleted:
		return fmt.Sprintf("w%d %s %s", slot.Worker, slot.Status, slot.JobID)
	default:
		return fmt.Sprintf("w%d idle", slot.Worker)
	}
}

func formatETASeconds(seconds float64) string {
	if seconds <= 0 {
		return ""
	}
	secs := int64(math.Round(seconds))
	if secs < 60 {
		return "<1m"
	}
	minutes := secs / 60
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	hours := minutes / 60
	remMinutes := minutes % 60
	if remMinutes == 0 {
		return fmt.Sprintf("%dh", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, remMinutes)
}
