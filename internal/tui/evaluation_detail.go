package tui

import (
	"fmt"
	"strings"

	"runform/internal/baseline"
	"runform/internal/service"
	"runform/internal/store"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// EvaluationDetailModel is the evaluation detail screen model
type EvaluationDetailModel struct {
	queryService *service.QueryService
	units        Units
	activityID   int64
	detail       *service.EvaluationDetail
	viewport     viewport.Model
	loading      bool
	err          error
	width        int
	height       int
	ready        bool
}

// NewEvaluationDetailModel creates a new evaluation detail model
func NewEvaluationDetailModel(qs *service.QueryService, units Units, activityID int64, width, height int) EvaluationDetailModel {
	m := EvaluationDetailModel{
		queryService: qs,
		units:        units,
		activityID:   activityID,
		loading:      true,
		width:        width,
		height:       height,
	}

	if width > 0 && height > 0 {
		m.viewport = viewport.New(width, height-6) // Reserve space for header/nav
		m.ready = true
	}

	return m
}

// Init initializes the evaluation detail screen
func (m EvaluationDetailModel) Init() tea.Cmd {
	return m.loadDetail
}

type evaluationDetailLoadedMsg struct {
	detail *service.EvaluationDetail
	err    error
}

func (m EvaluationDetailModel) loadDetail() tea.Msg {
	detail, err := m.queryService.GetEvaluation(m.activityID)
	if err != nil {
		return evaluationDetailLoadedMsg{err: err}
	}
	return evaluationDetailLoadedMsg{detail: detail}
}

// Update handles messages
func (m EvaluationDetailModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case evaluationDetailLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.detail = msg.detail
		if m.ready && m.detail != nil {
			m.viewport.SetContent(m.renderContent())
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-6)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - 6
		}
		if m.detail != nil {
			m.viewport.SetContent(m.renderContent())
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the evaluation detail screen
func (m EvaluationDetailModel) View() string {
	if m.loading {
		return "\n  Loading evaluation..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)) +
			statusStyle.Render("\n  esc: back to list")
	}

	if !m.ready {
		return m.renderContent()
	}

	footer := statusStyle.Render("  j/k: scroll  esc: back")
	return lipgloss.JoinVertical(lipgloss.Left, m.viewport.View(), footer)
}

func (m EvaluationDetailModel) renderContent() string {
	if m.detail == nil {
		return ""
	}

	a := m.detail.Activity
	e := m.detail.Evaluation
	mutedStyle := lipgloss.NewStyle().Foreground(mutedColor)

	var sections []string

	// Activity header
	title := cardTitleStyle.Render(a.Name)
	meta := mutedStyle.Render(fmt.Sprintf("%s  %s  %s  %s",
		a.StartDateLocal.Format("Mon Jan 02 2006"),
		m.units.FormatDistance(a.Distance),
		m.units.FormatPace(a.MovingTime, a.Distance),
		e.ConditionGroup,
	))
	sections = append(sections, lipgloss.JoinVertical(lipgloss.Left, title, meta))

	// Overall verdict
	overall := lipgloss.JoinVertical(lipgloss.Left,
		RenderStars(e.OverallTier)+"  "+metricValueStyle.Render(fmt.Sprintf("%.0f/100", e.OverallScore)),
		"",
		e.Summary,
	)
	sections = append(sections, cardStyle.Render(overall))

	// Per-metric cards
	for _, met := range e.Metrics {
		sections = append(sections, m.renderMetricCard(met))
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m EvaluationDetailModel) renderMetricCard(met store.MetricEvaluation) string {
	label := met.Metric
	if spec, ok := baseline.Spec(baseline.Metric(met.Metric)); ok {
		label = spec.Label
	}

	var lines []string
	lines = append(lines, cardTitleStyle.Render(label)+"  "+RenderStars(met.Tier))
	lines = append(lines, RenderMetric("Score", fmt.Sprintf("%.0f/100", met.Score), ""))

	var flags []string
	if met.NeedsImprovement {
		flags = append(flags, warningStyle.Render("needs improvement"))
	}
	if met.Extrapolated {
		flags = append(flags, statusStyle.Render("outside baseline pace range"))
	}
	if len(flags) > 0 {
		lines = append(lines, strings.Join(flags, "  "))
	}

	lines = append(lines, "")
	lines = append(lines, met.Text)

	return cardStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}
