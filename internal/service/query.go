package service

import (
	"errors"
	"fmt"
	"time"

	"runform/internal/baseline"
	"runform/internal/store"
)

// QueryService provides read access to evaluations, baselines and trends
type QueryService struct {
	store *store.DB
}

// NewQueryService creates a new query service
func NewQueryService(db *store.DB) *QueryService {
	return &QueryService{store: db}
}

// EvaluationDetail combines an activity with its stored evaluation
type EvaluationDetail struct {
	Activity   store.Activity
	Evaluation store.ActivityEvaluation
}

// GetEvaluation fetches the stored evaluation for an activity together with
// the activity itself
func (q *QueryService) GetEvaluation(activityID int64) (*EvaluationDetail, error) {
	activity, err := q.store.GetActivity(activityID)
	if err != nil {
		return nil, fmt.Errorf("loading activity %d: %w", activityID, err)
	}

	eval, err := q.store.GetEvaluation(activityID)
	if err != nil {
		return nil, fmt.Errorf("loading evaluation for %d: %w", activityID, err)
	}

	return &EvaluationDetail{
		Activity:   *activity,
		Evaluation: *eval,
	}, nil
}

// GetRecentEvaluations returns the most recent evaluations with their activities
func (q *QueryService) GetRecentEvaluations(limit int) ([]EvaluationDetail, error) {
	evals, err := q.store.ListEvaluations(limit, 0)
	if err != nil {
		return nil, err
	}

	details := make([]EvaluationDetail, 0, len(evals))
	for _, e := range evals {
		activity, err := q.store.GetActivity(e.ActivityID)
		if err != nil {
			if errors.Is(err, store.ErrActivityNotFound) {
				continue
			}
			return nil, err
		}
		details = append(details, EvaluationDetail{
			Activity:   *activity,
			Evaluation: e,
		})
	}
	return details, nil
}

// GetTrend computes baseline drift for one (condition group, metric) key from
// snapshots recorded no later than asOf
func (q *QueryService) GetTrend(conditionGroup string, metric baseline.Metric, asOf time.Time) (*baseline.TrendResult, error) {
	snaps, err := q.store.GetSnapshots(conditionGroup, string(metric), asOf)
	if err != nil {
		return nil, fmt.Errorf("loading snapshots for %s/%s: %w", conditionGroup, metric, err)
	}
	return baseline.Trend(snaps, metric, TrendWindowCount)
}

// GetTrends computes drift for every tracked metric of a condition group.
// Metrics without enough history are skipped rather than failing the set.
func (q *QueryService) GetTrends(conditionGroup string, asOf time.Time) ([]baseline.TrendResult, error) {
	var trends []baseline.TrendResult
	for _, m := range baseline.Tracked() {
		t, err := q.GetTrend(conditionGroup, m, asOf)
		if errors.Is(err, baseline.ErrInsufficientHistory) {
			continue
		}
		if err != nil {
			return nil, err
		}
		trends = append(trends, *t)
	}
	return trends, nil
}

// ListBaselines returns every current baseline model
func (q *QueryService) ListBaselines() ([]store.BaselineModel, error) {
	return q.store.ListBaselineModels()
}

// DashboardData contains everything the dashboard screen renders
type DashboardData struct {
	TotalActivities  int
	TotalEvaluations int

	// Most recent activity's evaluation, if any
	Latest *EvaluationDetail

	RecentEvaluations []EvaluationDetail

	// Overall scores most-recent-last, for the chart
	ScoreHistory []float64
	ScoreDates   []time.Time

	Baselines []store.BaselineModel
	Trends    []baseline.TrendResult
}

// GetDashboardData fetches all data needed for the dashboard
func (q *QueryService) GetDashboardData() (*DashboardData, error) {
	data := &DashboardData{}

	var err error
	data.TotalActivities, err = q.store.CountActivities()
	if err != nil {
		return nil, err
	}
	data.TotalEvaluations, err = q.store.CountEvaluations()
	if err != nil {
		return nil, err
	}

	recent, err := q.GetRecentEvaluations(RecentEvaluationsLimit)
	if err != nil {
		return nil, err
	}
	data.RecentEvaluations = recent
	if len(recent) > 0 {
		data.Latest = &recent[0]
	}

	data.ScoreHistory, data.ScoreDates, err = q.buildScoreHistory()
	if err != nil {
		return nil, err
	}

	data.Baselines, err = q.store.ListBaselineModels()
	if err != nil {
		return nil, err
	}

	// Trends can be missing early on; the dashboard shows what exists
	data.Trends, err = q.GetTrends("all", time.Now().UTC())
	if err != nil {
		data.Trends = nil
	}

	return data, nil
}

// buildScoreHistory returns overall scores ordered oldest to newest
func (q *QueryService) buildScoreHistory() ([]float64, []time.Time, error) {
	evals, err := q.store.ListEvaluations(ScoreHistoryLimit, 0)
	if err != nil {
		return nil, nil, err
	}

	// ListEvaluations is newest first; charts read left to right
	scores := make([]float64, len(evals))
	dates := make([]time.Time, len(evals))
	for i, e := range evals {
		j := len(evals) - 1 - i
		scores[j] = e.OverallScore
		dates[j] = e.EvaluatedAt
	}
	return scores, dates, nil
}
