package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/opspulse/opspulse/pkg/models"
)

// Dashboard panel indices.
const (
	panelPipelines = iota
	panelViolations
	panelHealth
	panelCount
)

type dashboardModel struct {
	activePanel int
	width       int
	height      int

	// Data.
	pipelines  []pipelineSnapshot
	violations []violationSnapshot
	health     *healthSnapshot

	// State.
	loading bool
	err     error
}

type pipelineSnapshot struct {
	name        string
	runs        int
	successRate float64
	avgDuration float64
	latestOK    bool
	hasLatest   bool
}

type violationSnapshot struct {
	pipeline  string
	metric    string
	threshold float64
	observed  float64
}

type healthSnapshot struct {
	score              int
	totalRuns          int
	commandFailures    int
	alertCount         int
	continuousSeverity string
	streaks            []string
}

// dataLoadedMsg carries loaded data back to the model.
type dataLoadedMsg struct {
	pipelines  []pipelineSnapshot
	violations []violationSnapshot
	health     *healthSnapshot
	err        error
}

// Style definitions.
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	panelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(1, 2)

	activePanelStyle = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(1, 2)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("62")).
			MarginBottom(1)

	rateGood = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	rateWarn = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	rateBad  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))

	severityCritical = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	severityWarning  = lipgloss.NewStyle().Foreground(lipgloss.Color("226"))
	severityNone     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))

	helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

func newDashboardModel() dashboardModel {
	return dashboardModel{
		activePanel: panelPipelines,
		loading:     true,
	}
}

func (m dashboardModel) Init() tea.Cmd {
	return loadDashboardData
}

func (m dashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case "tab":
			m.activePanel = (m.activePanel + 1) % panelCount
			return m, nil
		case "shift+tab":
			m.activePanel = (m.activePanel - 1 + panelCount) % panelCount
			return m, nil
		case "r":
			m.loading = true
			return m, loadDashboardData
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case dataLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.pipelines = msg.pipelines
		m.violations = msg.violations
		m.health = msg.health
		m.err = nil
		return m, nil
	}

	return m, nil
}

func (m dashboardModel) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	title := titleStyle.Render(" opspulse Dashboard ")
	help := helpStyle.Render("tab: switch panel | r: refresh | q: quit")

	if m.loading {
		return fmt.Sprintf("%s\n\n  Loading data...\n\n%s", title, help)
	}

	if m.err != nil {
		return fmt.Sprintf("%s\n\n  Error: %s\n\n%s", title, m.err, help)
	}

	pipelinesPanel := m.renderPipelinesPanel()
	violationsPanel := m.renderViolationsPanel()
	healthPanel := m.renderHealthPanel()

	// Available width for panels after accounting for margins.
	availableWidth := m.width - 2

	var body string
	if availableWidth > 120 {
		// Horizontal layout: three columns.
		colWidth := availableWidth / 3
		pipelinesPanel = m.applyPanelStyle(panelPipelines, pipelinesPanel, colWidth-4)
		violationsPanel = m.applyPanelStyle(panelViolations, violationsPanel, colWidth-4)
		healthPanel = m.applyPanelStyle(panelHealth, healthPanel, colWidth-4)
		body = lipgloss.JoinHorizontal(lipgloss.Top, pipelinesPanel, violationsPanel, healthPanel)
	} else {
		// Vertical layout: stacked.
		panelWidth := availableWidth - 4
		if panelWidth < 20 {
			panelWidth = 20
		}
		pipelinesPanel = m.applyPanelStyle(panelPipelines, pipelinesPanel, panelWidth)
		violationsPanel = m.applyPanelStyle(panelViolations, violationsPanel, panelWidth)
		healthPanel = m.applyPanelStyle(panelHealth, healthPanel, panelWidth)
		body = lipgloss.JoinVertical(lipgloss.Left, pipelinesPanel, violationsPanel, healthPanel)
	}

	return fmt.Sprintf("%s\n\n%s\n\n%s", title, body, help)
}

func (m dashboardModel) applyPanelStyle(panel int, content string, width int) string {
	style := panelStyle
	if m.activePanel == panel {
		style = activePanelStyle
	}
	return style.Width(width).Render(content)
}

func (m dashboardModel) renderPipelinesPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Pipelines"))
	b.WriteString("\n")

	active := 0
	for _, p := range m.pipelines {
		if p.runs > 0 {
			active++
		}
	}
	if active == 0 {
		b.WriteString("  No runs in window.")
		return b.String()
	}

	for _, p := range m.pipelines {
		if p.runs == 0 {
			continue
		}
		rate := fmt.Sprintf("%.0f%%", p.successRate*100)
		label := fmt.Sprintf("  %-10s runs=%-4d %s", p.name, p.runs, styleForRate(p.successRate).Render(rate))
		b.WriteString(label)
		b.WriteString("\n")
		status := "ok"
		if p.hasLatest && !p.latestOK {
			status = "failed"
		}
		b.WriteString(fmt.Sprintf("    avg %.1fs, latest %s\n", p.avgDuration, status))
	}

	return b.String()
}

func (m dashboardModel) renderViolationsPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Violations"))
	b.WriteString("\n")

	if len(m.violations) == 0 {
		b.WriteString("  No threshold violations.")
		return b.String()
	}

	for _, v := range m.violations {
		b.WriteString(severityWarning.Render(fmt.Sprintf("  %s %s", v.pipeline, v.metric)))
		b.WriteString("\n")
		b.WriteString(fmt.Sprintf("    threshold %.4g, observed %.4g\n", v.threshold, v.observed))
	}

	b.WriteString(fmt.Sprintf("\n  Total: %d violation(s)", len(m.violations)))

	return b.String()
}

func (m dashboardModel) renderHealthPanel() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Health"))
	b.WriteString("\n")

	if m.health == nil {
		b.WriteString("  No data available.")
		return b.String()
	}

	h := m.health
	b.WriteString(fmt.Sprintf("  Score: %s\n", styleForScore(h.score).Render(fmt.Sprintf("%d/100", h.score))))
	b.WriteString(fmt.Sprintf("  %-18s %d\n", "Total runs:", h.totalRuns))
	b.WriteString(fmt.Sprintf("  %-18s %d\n", "Command failures:", h.commandFailures))
	b.WriteString(fmt.Sprintf("  %-18s %d\n", "Alerts:", h.alertCount))

	sev := styleForContinuity(h.continuousSeverity).Render(h.continuousSeverity)
	b.WriteString(fmt.Sprintf("\n  Continuous alert: %s\n", sev))
	for _, s := range h.streaks {
		b.WriteString(fmt.Sprintf("    %s\n", s))
	}

	return b.String()
}

func styleForRate(rate float64) lipgloss.Style {
	switch {
	case rate >= 0.9:
		return rateGood
	case rate >= 0.5:
		return rateWarn
	default:
		return rateBad
	}
}

func styleForScore(score int) lipgloss.Style {
	switch {
	case score >= 80:
		return rateGood
	case score >= 50:
		return rateWarn
	default:
		return rateBad
	}
}

func styleForContinuity(severity string) lipgloss.Style {
	switch severity {
	case "critical":
		return severityCritical
	case "warning":
		return severityWarning
	default:
		return severityNone
	}
}

func loadDashboardData() tea.Msg {
	result := dataLoadedMsg{}

	if Builder == nil {
		result.err = fmt.Errorf("report builder not initialized")
		return result
	}

	check, err := Builder.Check(30, time.Now().UTC())
	if err != nil {
		result.err = fmt.Errorf("loading check result: %w", err)
		return result
	}

	names := make([]string, 0, len(check.Summary.Pipelines))
	for pipeline := range check.Summary.Pipelines {
		names = append(names, string(pipeline))
	}
	sort.Strings(names)
	for _, name := range names {
		agg := check.Summary.Pipelines[models.Pipeline(name)]
		snap := pipelineSnapshot{
			name:        name,
			runs:        agg.RunCount,
			successRate: agg.SuccessRate,
			avgDuration: agg.AvgDurationSec,
		}
		if agg.Latest != nil {
			snap.hasLatest = true
			snap.latestOK = agg.Latest.Success
		}
		result.pipelines = append(result.pipelines, snap)
	}

	for _, v := range check.Violations {
		result.violations = append(result.violations, violationSnapshot{
			pipeline:  string(v.Pipeline),
			metric:    v.Metric,
			threshold: v.Threshold,
			observed:  v.Observed,
		})
	}

	health := &healthSnapshot{
		score:              check.Health.Score,
		totalRuns:          check.Summary.TotalRuns,
		commandFailures:    check.Summary.Totals.CommandFailures,
		alertCount:         check.Summary.Totals.AlertCount,
		continuousSeverity: string(check.ContinuousAlert.Severity),
	}
	for _, streak := range check.ContinuousAlert.ViolatedPipelines {
		health.streaks = append(health.streaks,
			fmt.Sprintf("%s: %d consecutive failures", streak.Pipeline, streak.ConsecutiveFailures))
	}
	result.health = health

	return result
}

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Interactive TUI dashboard for pipeline health",
	Long: `Launch an interactive terminal dashboard showing pipeline run summaries,
threshold violations, and the health score in a live view.

Navigate between panels with Tab, refresh with r, quit with q.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if Builder == nil {
			return fmt.Errorf("report builder not initialized")
		}
		p := tea.NewProgram(newDashboardModel(), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

func init() {
	rootCmd.AddCommand(dashboardCmd)
}
