package tui

import (
	"context"
	"fmt"
	"strings"

	"runform/internal/service"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SyncModel is the sync screen model. It also hosts baseline retraining,
// since a retrain naturally follows a sync.
type SyncModel struct {
	syncService  *service.SyncService
	trainService *service.TrainService
	evalService  *service.EvalService

	busy        bool
	result      *service.SyncResult
	trainReport *service.TrainReport
	batchResult *service.BatchResult
	err         error
	done        bool
}

// NewSyncModel creates a new sync model
func NewSyncModel(ss *service.SyncService, ts *service.TrainService, es *service.EvalService) SyncModel {
	return SyncModel{
		syncService:  ss,
		trainService: ts,
		evalService:  es,
	}
}

// Init initializes the sync screen
func (m SyncModel) Init() tea.Cmd {
	return nil
}

// SyncDoneMsg is sent when sync finishes
type SyncDoneMsg struct {
	Result *service.SyncResult
	Err    error
}

// RetrainDoneMsg is sent when a retrain and full re-evaluation finishes
type RetrainDoneMsg struct {
	Report *service.TrainReport
	Batch  *service.BatchResult
	Err    error
}

// Update handles messages
func (m SyncModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SyncDoneMsg:
		m.busy = false
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
		return m, func() tea.Msg { return SyncCompleteMsg{} }

	case RetrainDoneMsg:
		m.busy = false
		m.done = true
		m.trainReport = msg.Report
		m.batchResult = msg.Batch
		m.err = msg.Err
		return m, func() tea.Msg { return SyncCompleteMsg{} }

	case tea.KeyMsg:
		if !m.busy {
			switch msg.String() {
			case "enter", "s":
				m.busy = true
				m.done = false
				m.err = nil
				m.result = nil
				m.trainReport = nil
				m.batchResult = nil
				return m, m.runSync
			case "t":
				m.busy = true
				m.done = false
				m.err = nil
				m.result = nil
				m.trainReport = nil
				m.batchResult = nil
				return m, m.runRetrain
			}
		}
	}
	return m, nil
}

func (m SyncModel) runSync() tea.Msg {
	ctx := context.Background()

	// Pass nil for progress channel - we're not showing real-time updates
	// (the channel would block if buffer fills up)
	result, syncErr := m.syncService.SyncAll(ctx, nil)

	return SyncDoneMsg{Result: result, Err: syncErr}
}

func (m SyncModel) runRetrain() tea.Msg {
	ctx := context.Background()

	report, err := m.trainService.TrainAll(ctx)
	if err != nil {
		return RetrainDoneMsg{Report: report, Err: err}
	}

	// New baselines invalidate every stored verdict
	batch, err := m.evalService.ReevaluateAll(ctx)
	return RetrainDoneMsg{Report: report, Batch: batch, Err: err}
}

// View renders the sync screen
func (m SyncModel) View() string {
	var sections []string

	title := cardTitleStyle.Render("Sync & Train")
	sections = append(sections, title)

	if m.err != nil {
		sections = append(sections, errorStyle.Render(fmt.Sprintf("\n  Error: %v", m.err)))
		sections = append(sections, "\n"+statusStyle.Render("  Press 's' or Enter to retry"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.done && !m.busy {
		sections = append(sections, successStyle.Render("\n  Done!"))
		sections = append(sections, m.renderSummary())
		sections = append(sections, "\n"+statusStyle.Render("  Press '1' to go to dashboard"))
		return lipgloss.JoinVertical(lipgloss.Left, sections...)
	}

	if m.busy {
		sections = append(sections, m.renderProgress())
	} else {
		sections = append(sections, m.renderStartPrompt())
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m SyncModel) renderStartPrompt() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, "  Sync ('s' or Enter) will:")
	lines = append(lines, "")
	lines = append(lines, "  1. Fetch new activities from Garmin Connect")
	lines = append(lines, "  2. Download per-split running dynamics")
	lines = append(lines, "  3. Refit baselines when new data arrived")
	lines = append(lines, "  4. Evaluate runs against the current baselines")
	lines = append(lines, "")
	lines = append(lines, "  Retrain ('t') forces a refit from stored data and")
	lines = append(lines, "  re-evaluates all runs, without touching the network.")
	lines = append(lines, "")

	// Show rate limit status
	short, daily := m.syncService.RateLimitStatus()
	lines = append(lines, statusStyle.Render(fmt.Sprintf("  API limits: %d (1min), %d (daily) remaining", short, daily)))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderProgress() string {
	var lines []string

	lines = append(lines, "")
	lines = append(lines, "  Working...")
	lines = append(lines, "")
	lines = append(lines, statusStyle.Render("  This may take a moment..."))

	return strings.Join(lines, "\n")
}

func (m SyncModel) renderSummary() string {
	var lines []string
	lines = append(lines, "")

	if r := m.result; r != nil {
		if r.ActivitiesStored > 0 {
			lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities synced", r.ActivitiesStored)))
		} else {
			lines = append(lines, statusStyle.Render("  No new activities"))
		}
		if r.SplitsFetched > 0 {
			lines = append(lines, successStyle.Render(fmt.Sprintf("  %d activities' splits downloaded", r.SplitsFetched)))
		}
		if r.Trained > 0 {
			lines = append(lines, successStyle.Render(fmt.Sprintf("  %d baselines trained", r.Trained)))
		}
		if r.Evaluated > 0 {
			lines = append(lines, successStyle.Render(fmt.Sprintf("  %d runs evaluated", r.Evaluated)))
		}
		if len(r.Errors) > 0 {
			lines = append(lines, "")
			lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d errors occurred", len(r.Errors))))
		}
	}

	if tr := m.trainReport; tr != nil {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d baselines trained", tr.Trained)))
		if tr.Degraded > 0 {
			lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d degraded fits", tr.Degraded)))
		}
		if tr.Insufficient > 0 {
			lines = append(lines, statusStyle.Render(fmt.Sprintf("  %d keys lacked data", tr.Insufficient)))
		}
		if tr.Rejected > 0 {
			lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d fits rejected", tr.Rejected)))
		}
	}

	if b := m.batchResult; b != nil {
		lines = append(lines, successStyle.Render(fmt.Sprintf("  %d runs re-evaluated", b.Succeeded)))
		if len(b.Failed) > 0 {
			lines = append(lines, warningStyle.Render(fmt.Sprintf("  %d runs failed evaluation", len(b.Failed))))
		}
	}

	return strings.Join(lines, "\n")
}
