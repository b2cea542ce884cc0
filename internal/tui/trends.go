package tui

import (
	"fmt"
	"time"

	"runform/internal/baseline"
	"runform/internal/service"
	"runform/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// TrendsModel is the baseline trends screen model
type TrendsModel struct {
	db           *store.DB
	queryService *service.QueryService

	groups   []string
	selected int
	trends   []baseline.TrendResult
	models   []store.BaselineModel
	loading  bool
	err      error
}

// NewTrendsModel creates a new trends model
func NewTrendsModel(db *store.DB, qs *service.QueryService) TrendsModel {
	return TrendsModel{
		db:           db,
		queryService: qs,
		loading:      true,
	}
}

// Init initializes the trends screen
func (m TrendsModel) Init() tea.Cmd {
	return m.loadData
}

type trendsLoadedMsg struct {
	groups []string
	trends []baseline.TrendResult
	models []store.BaselineModel
	err    error
}

func (m TrendsModel) loadData() tea.Msg {
	groups, err := m.db.ListConditionGroups()
	if err != nil {
		return trendsLoadedMsg{err: err}
	}
	groups = withAllFirst(groups)

	group := "all"
	if m.selected < len(groups) {
		group = groups[m.selected]
	}

	trends, err := m.queryService.GetTrends(group, time.Now().UTC())
	if err != nil {
		return trendsLoadedMsg{err: err}
	}

	models, err := m.queryService.ListBaselines()
	if err != nil {
		return trendsLoadedMsg{err: err}
	}

	return trendsLoadedMsg{groups: groups, trends: trends, models: models}
}

// Update handles messages
func (m TrendsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case trendsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.groups = msg.groups
		m.trends = msg.trends
		m.models = msg.models

	case tea.KeyMsg:
		switch msg.String() {
		case "tab", "right", "l":
			if len(m.groups) > 0 {
				m.selected = (m.selected + 1) % len(m.groups)
				m.loading = true
				return m, m.loadData
			}
		case "left", "h":
			if len(m.groups) > 0 {
				m.selected = (m.selected + len(m.groups) - 1) % len(m.groups)
				m.loading = true
				return m, m.loadData
			}
		case "r":
			m.loading = true
			return m, m.loadData
		}
	}
	return m, nil
}

// View renders the trends screen
func (m TrendsModel) View() string {
	if m.loading {
		return "\n  Loading trends..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	var sections []string

	sections = append(sections, m.renderGroupTabs())
	sections = append(sections, m.renderTrends())
	sections = append(sections, m.renderBaselines())

	help := statusStyle.Render("\n  tab/h/l: switch terrain  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m TrendsModel) renderGroupTabs() string {
	var tabs string
	for i, g := range m.groups {
		if i > 0 {
			tabs += "  "
		}
		if i == m.selected {
			tabs += navActiveStyle.Render(g)
		} else {
			tabs += navInactiveStyle.Render(g)
		}
	}
	return navStyle.Render(tabs)
}

func (m TrendsModel) renderTrends() string {
	title := cardTitleStyle.Render("Baseline Drift")

	if len(m.trends) == 0 {
		msg := "Not enough history yet. Trends need at least two\nnon-overlapping training windows."
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, msg))
	}

	var rows []string
	for _, t := range m.trends {
		label := string(t.Metric)
		if spec, ok := baseline.Spec(t.Metric); ok {
			label = spec.Label
		}

		var arrow string
		var style lipgloss.Style
		switch t.Direction {
		case baseline.TrendImproving:
			arrow, style = "↑ improving", trendUpStyle
		case baseline.TrendWorsening:
			arrow, style = "↓ worsening", trendDownStyle
		default:
			arrow, style = "→ stable", trendFlatStyle
		}

		row := lipgloss.JoinHorizontal(lipgloss.Left,
			metricLabelStyle.Render(label),
			style.Render(arrow),
			statusStyle.Render(fmt.Sprintf("  Δ %+.4f  (%s → %s)",
				t.Delta,
				t.From.PeriodEnd.Format("Jan 02"),
				t.To.PeriodEnd.Format("Jan 02"),
			)),
		)
		rows = append(rows, row)
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

func (m TrendsModel) renderBaselines() string {
	title := cardTitleStyle.Render("Current Baselines")

	group := "all"
	if m.selected < len(m.groups) {
		group = m.groups[m.selected]
	}

	var rows []string
	header := tableHeaderStyle.Render(fmt.Sprintf("%-22s  %-7s  %8s  %8s  %5s  %s",
		"Metric", "Family", "Shape", "RMSE", "N", "Trained"))
	rows = append(rows, header)

	for _, b := range m.models {
		if b.ConditionGroup != group {
			continue
		}

		label := b.Metric
		if spec, ok := baseline.Spec(baseline.Metric(b.Metric)); ok {
			label = spec.Label
		}

		row := fmt.Sprintf("%-22s  %-7s  %8.4f  %8.2f  %5d  %s",
			label, b.Family, b.CoefB, b.RMSE, b.NSamples,
			b.TrainedAt.Format("Jan 02"))
		if b.Degraded {
			row += "  " + warningStyle.Render("degraded")
		}
		rows = append(rows, tableRowStyle.Render(row))
	}

	if len(rows) == 1 {
		return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title,
			"No baselines for this terrain yet. Run a sync and retrain."))
	}

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, title, lipgloss.JoinVertical(lipgloss.Left, rows...)))
}

// withAllFirst ensures the pooled group leads the tab order
func withAllFirst(groups []string) []string {
	out := []string{"all"}
	for _, g := range groups {
		if g != "all" {
			out = append(out, g)
		}
	}
	return out
}
