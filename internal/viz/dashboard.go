package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/motorctl/internal/dynamo"
	"github.com/san-kum/motorctl/internal/node"
)

const (
	refreshRate = time.Second / 30
	historyLen  = 120
)

type TickMsg time.Time

// Model is the live dashboard. It only reads the graph through its
// snapshot and counters; Start and Stop are the only commands it sends.
type Model struct {
	graph    *node.Graph
	motors   dynamo.MotorSet
	theme    int
	norms    []float64
	showHelp bool

	snap dynamo.Snapshot
	last dynamo.Record
}

func NewModel(g *node.Graph, motors dynamo.MotorSet, theme string) Model {
	return Model{
		graph:  g,
		motors: motors,
		theme:  themeIndex(theme),
		norms:  make([]float64, 0, historyLen),
		snap:   g.Integrator.Snapshot(),
	}
}

func tick() tea.Cmd {
	return tea.Tick(refreshRate, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m Model) Init() tea.Cmd {
	return tick()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ", "s":
			if m.graph.Integrator.Running() {
				m.graph.Integrator.Stop()
			} else {
				m.graph.Integrator.Start()
			}
		case "t":
			m.theme = (m.theme + 1) % len(Themes)
		case "?":
			m.showHelp = !m.showHelp
		}
	case TickMsg:
		m.refresh()
		return m, tick()
	}
	return m, nil
}

func (m *Model) refresh() {
	m.snap = m.graph.Integrator.Snapshot()
	rec, ok := m.graph.Recorder.Last()
	if !ok || rec.Command.Tick == m.last.Command.Tick && len(m.norms) > 0 {
		return
	}
	m.last = rec
	m.norms = append(m.norms, rec.Command.Safety.RawNorm)
	if len(m.norms) > historyLen {
		m.norms = m.norms[len(m.norms)-historyLen:]
	}
}

func (m Model) View() string {
	theme := Themes[m.theme]
	title := lipgloss.NewStyle().Bold(true).Foreground(theme.Title)
	value := lipgloss.NewStyle().Foreground(theme.Value)
	panel := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.Border).
		Padding(0, 1)

	var s strings.Builder
	s.WriteString(title.Render("MOTORCTL") + "  ")
	if m.graph.Integrator.Running() {
		s.WriteString(StatusRunning.Render("RUNNING"))
	} else {
		s.WriteString(StatusPaused.Render("STOPPED"))
	}
	s.WriteString("  ")
	if m.last.Command.Safety.Status == dynamo.Exceeded {
		s.WriteString(StatusExceeded.Render(dynamo.Exceeded.String()))
	} else {
		s.WriteString(lipgloss.NewStyle().Bold(true).Foreground(theme.Normal).Render(dynamo.Normal.String()))
	}
	s.WriteString("\n\n")

	s.WriteString(MetricLabel.Render("tick") + value.Render(fmt.Sprintf("%d", m.snap.Tick)) + "\n")
	s.WriteString(MetricLabel.Render("time") + value.Render(fmt.Sprintf("%.3fs", m.snap.Time)) + "\n\n")

	s.WriteString(fmt.Sprintf("%-8s %12s %12s %12s\n", "motor", "position", "velocity", "force"))
	for _, id := range m.motors {
		st := m.snap.States[id]
		force := "-"
		if f, ok := m.last.Command.Forces.Get(id); ok {
			force = fmt.Sprintf("%.4f", f)
		}
		s.WriteString(fmt.Sprintf("%-8d %12.6f %12.6f %12s\n", id, st.Position, st.Velocity, force))
	}
	s.WriteString("\n")

	report := m.last.Command.Safety
	s.WriteString(MetricLabel.Render("norm") + value.Render(fmt.Sprintf("%.4f", report.RawNorm)))
	if limit, ok := m.graph.Limit(); ok {
		s.WriteString(fmt.Sprintf(" / %.2f  ", limit) + ProgressBar(report.RawNorm/limit, 20))
	} else {
		s.WriteString(Subtle.Render("  (no limit)"))
	}
	s.WriteString("\n")
	s.WriteString(MetricLabel.Render("history") + SparklineChart(m.norms, 40) + "\n")
	if len(m.norms) > 1 {
		s.WriteString("\n" + asciigraph.Plot(m.norms, asciigraph.Height(5), asciigraph.Width(50), asciigraph.Caption("force norm")) + "\n")
	}

	stats := m.graph.Integrator.Stats()
	s.WriteString("\n" + Separator(50) + "\n")
	s.WriteString(MetricLabel.Render("applied") + value.Render(fmt.Sprintf("%d", stats.Applied)) + "\n")
	s.WriteString(MetricLabel.Render("starved") + value.Render(fmt.Sprintf("%d", stats.Starved)) + "\n")
	s.WriteString(MetricLabel.Render("dropped") + value.Render(fmt.Sprintf("%d", m.graph.Bus.Stats().Dropped)) + "\n")
	s.WriteString(MetricLabel.Render("faults") + value.Render(fmt.Sprintf("%d", m.graph.Faults.Total())) + "\n")

	s.WriteString("\n" + KeyHint.Render("space:start/stop  t:theme ("+theme.Name+")  ?:help  q:quit"))

	view := panel.Render(s.String())
	if m.showHelp {
		return panel.Render(helpText) + "\n" + view
	}
	return view
}

const helpText = `Space/S  start or stop integration
T        cycle color themes
?        toggle this help
Q        quit and save the run`

// Run blocks until the user quits the dashboard.
func Run(g *node.Graph, motors dynamo.MotorSet, theme string) error {
	p := tea.NewProgram(NewModel(g, motors, theme), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
