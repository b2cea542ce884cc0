package tui

import (
	"fmt"

	"runform/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// EvaluationsModel is the evaluations list screen model
type EvaluationsModel struct {
	queryService *service.QueryService
	units        Units
	evaluations  []service.EvaluationDetail
	cursor       int
	offset       int
	pageSize     int
	loading      bool
	err          error
}

// NewEvaluationsModel creates a new evaluations model
func NewEvaluationsModel(qs *service.QueryService, units Units) EvaluationsModel {
	return EvaluationsModel{
		queryService: qs,
		units:        units,
		pageSize:     15,
		loading:      true,
	}
}

// Init initializes the evaluations screen
func (m EvaluationsModel) Init() tea.Cmd {
	return m.loadPage
}

type evaluationsLoadedMsg struct {
	evaluations []service.EvaluationDetail
	err         error
}

func (m EvaluationsModel) loadPage() tea.Msg {
	evaluations, err := m.queryService.GetRecentEvaluations(m.offset + m.pageSize)
	if err != nil {
		return evaluationsLoadedMsg{err: err}
	}
	if m.offset < len(evaluations) {
		evaluations = evaluations[m.offset:]
	} else {
		evaluations = nil
	}
	return evaluationsLoadedMsg{evaluations: evaluations}
}

// Update handles messages
func (m EvaluationsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case evaluationsLoadedMsg:
		m.loading = false
		m.err = msg.err
		m.evaluations = msg.evaluations
		if m.cursor >= len(m.evaluations) {
			m.cursor = 0
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(m.evaluations)-1 {
				m.cursor++
			}
		case "pgup":
			if m.offset > 0 {
				m.offset -= m.pageSize
				if m.offset < 0 {
					m.offset = 0
				}
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "pgdown":
			if len(m.evaluations) == m.pageSize {
				m.offset += m.pageSize
				m.cursor = 0
				m.loading = true
				return m, m.loadPage
			}
		case "r":
			m.loading = true
			return m, m.loadPage
		case "enter":
			if len(m.evaluations) > 0 && m.cursor < len(m.evaluations) {
				activityID := m.evaluations[m.cursor].Activity.ID
				return m, func() tea.Msg {
					return OpenEvaluationMsg{ActivityID: activityID}
				}
			}
		}
	}
	return m, nil
}

// View renders the evaluations list
func (m EvaluationsModel) View() string {
	if m.loading {
		return "\n  Loading evaluations..."
	}

	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err))
	}

	if len(m.evaluations) == 0 {
		return "\n  No evaluations yet. Press 's' to sync activities."
	}

	var sections []string

	title := cardTitleStyle.Render(fmt.Sprintf("Evaluations (%d-%d)", m.offset+1, m.offset+len(m.evaluations)))
	sections = append(sections, title)

	header := tableHeaderStyle.Render(fmt.Sprintf("   %-14s  %-24s  %-9s  %8s  %6s  %6s  %s",
		"When", "Name", "Terrain", "Distance", "Pace", "Score", "Stars"))
	sections = append(sections, header)

	for i, d := range m.evaluations {
		a := d.Activity
		e := d.Evaluation

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		row := fmt.Sprintf("%s%-14s  %-24s  %-9s  %8s  %6s  %6.0f  ",
			cursor,
			humanize.Time(a.StartDate),
			truncateName(a.Name, 24),
			e.ConditionGroup,
			m.units.FormatDistance(a.Distance),
			m.units.FormatPace(a.MovingTime, a.Distance),
			e.OverallScore,
		)

		if i == m.cursor {
			sections = append(sections, tableSelectedStyle.Render(row)+RenderStars(e.OverallTier))
		} else {
			sections = append(sections, tableRowStyle.Render(row)+RenderStars(e.OverallTier))
		}
	}

	help := statusStyle.Render("\n  enter: view details  j/k: navigate  pgup/pgdn: page  r: refresh")
	sections = append(sections, help)

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
