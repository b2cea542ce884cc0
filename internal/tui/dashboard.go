package tui

import (
	"fmt"

	"runform/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
)

// DashboardModel is the dashboard screen model
type DashboardModel struct {
	queryService *service.QueryService
	units        Units
	data         *service.DashboardData
	loading      bool
	err          error
}

// NewDashboardModel creates a new dashboard model
func NewDashboardModel(qs *service.QueryService, units Units) DashboardModel {
	return DashboardModel{
		queryService: qs,
		units:        units,
		loading:      true,
	}
}

// Init initializes the dashboard
func (m DashboardModel) Init() tea.Cmd {
	return m.loadData
}

func (m DashboardModel) loadData() tea.Msg {
	data, err := m.queryService.GetDashboardData()
	if err != nil {
		return dashboardDataMsg{err: err}
	}
	return dashboardDataMsg{data: data}
}

type dashboardDataMsg struct {
	data *service.DashboardData
	err  error
}

// Update handles messages
func (m DashboardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case dashboardDataMsg:
		m.loading = false
		m.err = msg.err
		m.data = msg.data
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the dashboard
func (m DashboardModel) View() string {
	if m.loading {
		return "\n  Loading dashboard..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if m.data == nil || m.data.TotalActivities == 0 {
		return "\n  No data yet. Press 's' to sync activities."
	}

	var sections []string

	// Top row: latest verdict and totals side by side
	topRow := lipgloss.JoinHorizontal(lipgloss.Top, m.renderLatestCard(), "  ", m.renderTotalsCard())
	sections = append(sections, topRow)

	// Overall score chart
	if len(m.data.ScoreHistory) > 2 {
		sections = append(sections, m.renderChart())
	}

	// Recent evaluations
	sections = append(sections, m.renderRecentEvaluations())

	// Help
	help := statusStyle.Render("Press 'r' to refresh, 's' to sync, '2' for evaluations")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m DashboardModel) renderLatestCard() string {
	title := cardTitleStyle.Render("Latest Run")

	if m.data.Latest == nil {
		return cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, title, "No evaluations yet"))
	}

	d := m.data.Latest
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor)

	lines := []string{
		metricValueStyle.Render(truncateName(d.Activity.Name, 36)),
		mutedStyle.Render(d.Activity.StartDateLocal.Format("Mon Jan 02") + "  " +
			m.units.FormatDistance(d.Activity.Distance) + "  " +
			m.units.FormatPace(d.Activity.MovingTime, d.Activity.Distance)),
		"",
		RenderStars(d.Evaluation.OverallTier) + "  " + metricValueStyle.Render(fmt.Sprintf("%.0f/100", d.Evaluation.OverallScore)),
		"",
		mutedStyle.Render(truncateName(d.Evaluation.Summary, 80)),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(44).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderTotalsCard() string {
	title := cardTitleStyle.Render("Library")

	lines := []string{
		RenderMetric("Activities", fmt.Sprintf("%d", m.data.TotalActivities), ""),
		RenderMetric("Evaluated", fmt.Sprintf("%d", m.data.TotalEvaluations), ""),
		RenderMetric("Baselines", fmt.Sprintf("%d", len(m.data.Baselines)), ""),
	}

	content := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return cardStyle.Width(34).Render(lipgloss.JoinVertical(lipgloss.Left, title, content))
}

func (m DashboardModel) renderChart() string {
	title := cardTitleStyle.Render("Overall Form Score - Recent Runs")

	graph := asciigraph.Plot(m.data.ScoreHistory,
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Precision(0),
	)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, graph))
}

func (m DashboardModel) renderRecentEvaluations() string {
	title := cardTitleStyle.Render("Recent Evaluations")

	if len(m.data.RecentEvaluations) == 0 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, "No evaluations yet"))
	}

	header := tableHeaderStyle.Render(fmt.Sprintf("%-10s  %-24s  %-9s  %6s  %s",
		"Date", "Name", "Terrain", "Score", "Stars"))

	var rows []string
	rows = append(rows, header)

	for i, d := range m.data.RecentEvaluations {
		if i >= 5 {
			break
		}

		row := tableRowStyle.Render(fmt.Sprintf("%-10s  %-24s  %-9s  %6.0f  ",
			d.Activity.StartDateLocal.Format("Jan 02"),
			truncateName(d.Activity.Name, 24),
			d.Evaluation.ConditionGroup,
			d.Evaluation.OverallScore,
		)) + RenderStars(d.Evaluation.OverallTier)
		rows = append(rows, row)
	}

	table := lipgloss.JoinVertical(lipgloss.Left, rows...)
	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, table))
}
