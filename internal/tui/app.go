package tui

import (
	"runform/internal/config"
	"runform/internal/service"
	"runform/internal/store"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Screen identifiers
type Screen int

const (
	ScreenDashboard Screen = iota
	ScreenEvaluations
	ScreenEvaluationDetail
	ScreenTrends
	ScreenSync
	ScreenHelp
)

// App is the root Bubble Tea model
type App struct {
	screen     Screen
	prevScreen Screen

	// Screen models
	dashboard   DashboardModel
	evaluations EvaluationsModel
	detail      EvaluationDetailModel
	trends      TrendsModel
	syncScreen  SyncModel
	help        HelpModel

	// Services
	db           *store.DB
	queryService *service.QueryService
	syncService  *service.SyncService
	units        Units

	// Window dimensions
	width  int
	height int
}

// NewApp creates a new App with all dependencies
func NewApp(db *store.DB, syncService *service.SyncService, trainService *service.TrainService, evalService *service.EvalService, queryService *service.QueryService, display config.DisplayConfig) *App {
	units := NewUnits(display)
	return &App{
		screen:       ScreenDashboard,
		db:           db,
		queryService: queryService,
		syncService:  syncService,
		units:        units,
		dashboard:    NewDashboardModel(queryService, units),
		evaluations:  NewEvaluationsModel(queryService, units),
		trends:       NewTrendsModel(db, queryService),
		syncScreen:   NewSyncModel(syncService, trainService, evalService),
		help:         NewHelpModel(),
	}
}

// Init initializes the app
func (a *App) Init() tea.Cmd {
	return a.dashboard.Init()
}

// Update handles messages
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Global keybindings (unless a sync is running)
		if a.screen != ScreenSync || !a.syncScreen.busy {
			switch msg.String() {
			case "q", "ctrl+c":
				return a, tea.Quit
			case "1":
				a.screen = ScreenDashboard
				a.dashboard = NewDashboardModel(a.queryService, a.units)
				return a, a.dashboard.Init()
			case "2":
				a.screen = ScreenEvaluations
				return a, a.evaluations.Init()
			case "3":
				a.screen = ScreenTrends
				return a, a.trends.Init()
			case "4", "s":
				if a.screen != ScreenSync {
					a.screen = ScreenSync
					return a, a.syncScreen.Init()
				}
				// Let 's' fall through to the sync screen when already there
			case "?":
				a.prevScreen = a.screen
				a.screen = ScreenHelp
				return a, nil
			case "esc":
				switch a.screen {
				case ScreenHelp:
					a.screen = a.prevScreen
					return a, nil
				case ScreenEvaluationDetail:
					a.screen = ScreenEvaluations
					return a, nil
				}
			}
		}

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height

	case OpenEvaluationMsg:
		a.screen = ScreenEvaluationDetail
		a.detail = NewEvaluationDetailModel(a.queryService, a.units, msg.ActivityID, a.width, a.height)
		return a, a.detail.Init()

	case SyncCompleteMsg:
		// Refresh dashboard after sync
		a.screen = ScreenDashboard
		a.dashboard = NewDashboardModel(a.queryService, a.units)
		return a, a.dashboard.Init()
	}

	// Delegate to current screen
	var cmd tea.Cmd
	switch a.screen {
	case ScreenDashboard:
		var m tea.Model
		m, cmd = a.dashboard.Update(msg)
		a.dashboard = m.(DashboardModel)
	case ScreenEvaluations:
		var m tea.Model
		m, cmd = a.evaluations.Update(msg)
		a.evaluations = m.(EvaluationsModel)
	case ScreenEvaluationDetail:
		var m tea.Model
		m, cmd = a.detail.Update(msg)
		a.detail = m.(EvaluationDetailModel)
	case ScreenTrends:
		var m tea.Model
		m, cmd = a.trends.Update(msg)
		a.trends = m.(TrendsModel)
	case ScreenSync:
		var m tea.Model
		m, cmd = a.syncScreen.Update(msg)
		a.syncScreen = m.(SyncModel)
	case ScreenHelp:
		var m tea.Model
		m, cmd = a.help.Update(msg)
		a.help = m.(HelpModel)
	}

	return a, cmd
}

// View renders the app
func (a *App) View() string {
	header := a.renderHeader()
	nav := a.renderNav()

	var content string
	switch a.screen {
	case ScreenDashboard:
		content = a.dashboard.View()
	case ScreenEvaluations:
		content = a.evaluations.View()
	case ScreenEvaluationDetail:
		content = a.detail.View()
	case ScreenTrends:
		content = a.trends.View()
	case ScreenSync:
		content = a.syncScreen.View()
	case ScreenHelp:
		content = a.help.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, nav, content)
}

func (a *App) renderHeader() string {
	return headerStyle.Render("Running Form Baselines")
}

func (a *App) renderNav() string {
	items := []struct {
		key    string
		label  string
		screen Screen
	}{
		{"1", "Dashboard", ScreenDashboard},
		{"2", "Evaluations", ScreenEvaluations},
		{"3", "Trends", ScreenTrends},
		{"4", "Sync", ScreenSync},
		{"?", "Help", ScreenHelp},
	}

	var nav string
	for i, item := range items {
		if i > 0 {
			nav += "  "
		}

		label := "[" + item.key + "] " + item.label
		if a.screen == item.screen {
			nav += navActiveStyle.Render(label)
		} else {
			nav += navInactiveStyle.Render(label)
		}
	}

	nav += "  " + navInactiveStyle.Render("[q] Quit")

	return navStyle.Render(nav)
}

// SyncCompleteMsg is sent when a sync or retrain pass finishes
type SyncCompleteMsg struct{}

// OpenEvaluationMsg opens the evaluation detail screen for an activity
type OpenEvaluationMsg struct {
	ActivityID int64
}
