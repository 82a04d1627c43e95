package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/gwillem/motorbench/pkg/record"
	"github.com/gwillem/motorbench/pkg/steptest"
)

const (
	headerHeight = 2 // title + blank line
	legendHeight = 2 // legend row + blank
	footerHeight = 7 // log box height
	maxLogs      = 5 // number of log messages to show
	borderSize   = 2 // chart border
)

// Chart series colors
var seriesColors = map[string]string{
	"desired":  "208", // orange
	"position": "46",  // green
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	chartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

type runModel struct {
	runner   *steptest.Runner
	errCh    <-chan error
	chart    *streamlinechart.Model
	width    int      // terminal width
	height   int      // terminal height
	logs     []string // last N log messages
	last     record.Sample
	quitting bool
	done     bool
	err      error
}

// Messages from the runner
type sampleMsg record.Sample
type logMsg string
type doneMsg struct{ err error }

func waitForSample(runner *steptest.Runner) tea.Cmd {
	return func() tea.Msg {
		return sampleMsg(<-runner.States())
	}
}

func waitForLog(runner *steptest.Runner) tea.Cmd {
	return func() tea.Msg {
		return logMsg(<-runner.Logs())
	}
}

func waitForDone(errCh <-chan error) tea.Cmd {
	return func() tea.Msg {
		return doneMsg{err: <-errCh}
	}
}

func (m *runModel) addLog(msg string) {
	m.logs = append(m.logs, msg)
	if len(m.logs) > maxLogs {
		m.logs = m.logs[len(m.logs)-maxLogs:]
	}
}

// chartSize calculates the size of the chart based on terminal dimensions
func (m *runModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20 // default size before we know terminal size
	}
	width = m.width - borderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - headerHeight - legendHeight - footerHeight - borderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *runModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
}

func initialRunModel(runner *steptest.Runner, errCh <-chan error) runModel {
	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(-0.5, 1.25),
	)

	for name, color := range seriesColors {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
		chart.SetDataSetStyles(name, runes.ThinLineStyle, style)
	}

	return runModel{
		runner: runner,
		errCh:  errCh,
		chart:  &chart,
	}
}

func (m runModel) Init() tea.Cmd {
	return tea.Batch(
		waitForSample(m.runner),
		waitForLog(m.runner),
		waitForDone(m.errCh),
	)
}

func (m runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}

	case sampleMsg:
		s := record.Sample(msg)
		m.last = s
		m.chart.PushDataSet("desired", s.Desired)
		m.chart.PushDataSet("position", s.Position)
		m.chart.DrawAll()
		return m, waitForSample(m.runner)

	case logMsg:
		m.addLog(string(msg))
		return m, waitForLog(m.runner)

	case doneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	}

	return m, nil
}

func (m runModel) View() string {
	if m.quitting || m.done {
		return "Step test stopped.\n"
	}

	var sb strings.Builder

	// Header
	sb.WriteString(titleStyle.Render("Motorbench Run"))
	sb.WriteString(fmt.Sprintf(" - %d Hz", m.runner.Hz()))
	sb.WriteString(statusStyle.Render(fmt.Sprintf(
		"  t=%.2fs/%.0fs  vel=%.2f torque=%.2f",
		m.last.Time, m.runner.Duration().Seconds(), m.last.Velocity, m.last.Torque)))
	sb.WriteString("\n\n")

	// Chart
	sb.WriteString(chartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	// Legend
	sb.WriteString(renderLegend())
	sb.WriteString("\n")

	// Log box
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4).
		Foreground(lipgloss.Color("9"))

	var logLines string
	if len(m.logs) == 0 {
		logLines = statusStyle.Render("Press 'q' to quit")
	} else {
		logLines = strings.Join(m.logs, "\n")
	}
	sb.WriteString(logStyle.Render(logLines))
	sb.WriteString("\n")

	return sb.String()
}

func renderLegend() string {
	items := make([]string, 0, len(seriesColors))
	for _, name := range []string{"desired", "position"} {
		colorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(seriesColors[name])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+name)
	}
	return strings.Join(items, "  ")
}

func runTUI(ctx context.Context, runner *steptest.Runner) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- runner.Start(ctx)
	}()

	final, err := tea.NewProgram(initialRunModel(runner, errCh), tea.WithAltScreen()).Run()
	if err != nil {
		return fmt.Errorf("run ui: %w", err)
	}

	m := final.(runModel)
	if !m.done {
		// User quit early; stop the runner and wait for it to shut the
		// motor down.
		cancel()
		if err := <-errCh; err != nil && err != context.Canceled {
			return err
		}
		return nil
	}
	return m.err
}
