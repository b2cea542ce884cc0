package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"runform/internal/baseline"
	"runform/internal/store"
)

// ErrNoFormData is returned when an activity carries no form aggregates at all
var ErrNoFormData = errors.New("activity has no running dynamics data")

// EvalService scores activities against the stored baselines
type EvalService struct {
	store   *store.DB
	workers int
}

// NewEvalService creates an evaluation service
func NewEvalService(db *store.DB, workers int) *EvalService {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &EvalService{store: db, workers: workers}
}

// Evaluate scores one activity against the latest stored baselines and
// persists the result, replacing any previous evaluation for the activity.
// Metrics the device didn't record are skipped; a metric whose baseline is
// missing in both the activity's condition group and the pooled group fails
// the whole activity.
func (s *EvalService) Evaluate(ctx context.Context, activityID int64) (*store.ActivityEvaluation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	activity, err := s.store.GetActivity(activityID)
	if err != nil {
		return nil, fmt.Errorf("loading activity %d: %w", activityID, err)
	}

	var (
		metrics    []store.MetricEvaluation
		tiers      []int
		scoreSum   float64
		strengths  []string
		weaknesses []string
		trainedAt  time.Time
	)

	for _, m := range baseline.Tracked() {
		actual := baseline.ActivityValue(*activity, m)
		if actual == nil {
			continue
		}

		model, err := s.resolveModel(activity.ConditionGroup, m)
		if err != nil {
			return nil, fmt.Errorf("activity %d metric %s: %w", activityID, m, err)
		}
		if model.TrainedAt.After(trainedAt) {
			trainedAt = model.TrainedAt
		}

		pred, err := baseline.Predict(model, activity.AverageSpeed)
		if err != nil {
			return nil, fmt.Errorf("activity %d metric %s: %w", activityID, m, err)
		}

		result, err := baseline.Score(pred.Expected, *actual, m)
		if err != nil {
			return nil, fmt.Errorf("activity %d metric %s: %w", activityID, m, err)
		}

		text, err := baseline.RenderMetricText(m, pred.Expected, *actual, result, pred.Extrapolated)
		if err != nil {
			return nil, fmt.Errorf("activity %d metric %s: %w", activityID, m, err)
		}

		metrics = append(metrics, store.MetricEvaluation{
			ActivityID:       activityID,
			Metric:           string(m),
			Expected:         pred.Expected,
			Actual:           *actual,
			Deviation:        result.Deviation,
			Score:            result.Score,
			Tier:             result.Tier,
			NeedsImprovement: result.NeedsImprovement,
			Extrapolated:     pred.Extrapolated,
			Text:             text,
		})

		tiers = append(tiers, result.Tier)
		scoreSum += result.Score

		spec, _ := baseline.Spec(m)
		if result.NeedsImprovement {
			weaknesses = append(weaknesses, spec.Label)
		} else if result.Tier >= 4 {
			strengths = append(strengths, spec.Label)
		}
	}

	if len(metrics) == 0 {
		return nil, fmt.Errorf("activity %d: %w", activityID, ErrNoFormData)
	}

	overallTier := baseline.OverallTier(tiers)
	summary, err := baseline.RenderSummary(overallTier, strengths, weaknesses)
	if err != nil {
		return nil, fmt.Errorf("activity %d: %w", activityID, err)
	}

	eval := &store.ActivityEvaluation{
		ActivityID:         activityID,
		ConditionGroup:     activity.ConditionGroup,
		OverallScore:       scoreSum / float64(len(metrics)),
		OverallTier:        overallTier,
		Summary:            summary,
		BaselinesTrainedAt: trainedAt,
		EvaluatedAt:        time.Now().UTC(),
		Metrics:            metrics,
	}

	if err := s.store.SaveEvaluation(eval); err != nil {
		return nil, fmt.Errorf("saving evaluation for %d: %w", activityID, err)
	}

	return eval, nil
}

// resolveModel finds the baseline for a metric, falling back from the
// activity's condition group to the pooled "all" group
func (s *EvalService) resolveModel(conditionGroup string, m baseline.Metric) (*store.BaselineModel, error) {
	model, err := s.store.GetBaselineModel(conditionGroup, string(m))
	if err == nil {
		return model, nil
	}
	if !errors.Is(err, store.ErrModelNotFound) {
		return nil, err
	}
	if conditionGroup == "all" {
		return nil, err
	}

	model, err = s.store.GetBaselineModel("all", string(m))
	if err != nil {
		return nil, err
	}
	return model, nil
}

// ItemFailure records one activity that failed during a batch pass
type ItemFailure struct {
	ActivityID int64
	Err        error
}

// BatchResult summarizes a batch evaluation pass
type BatchResult struct {
	Succeeded int
	Failed    []ItemFailure
}

// ReevaluateAll re-scores every synced activity against the current
// baselines. Failures are collected per activity and never abort the pass;
// cancellation stops issuing new work but lets in-flight items finish.
func (s *EvalService) ReevaluateAll(ctx context.Context) (*BatchResult, error) {
	ids, err := s.store.ListActivityIDs()
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	return s.evaluateBatch(ctx, ids)
}

// EvaluatePending scores only activities that have no stored evaluation yet
func (s *EvalService) EvaluatePending(ctx context.Context) (*BatchResult, error) {
	activities, err := s.store.GetActivitiesNeedingEvaluation()
	if err != nil {
		return nil, fmt.Errorf("listing unevaluated activities: %w", err)
	}
	ids := make([]int64, len(activities))
	for i, a := range activities {
		ids[i] = a.ID
	}
	return s.evaluateBatch(ctx, ids)
}

func (s *EvalService) evaluateBatch(ctx context.Context, ids []int64) (*BatchResult, error) {
	result := &BatchResult{}

	work := make(chan int64)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range work {
				_, err := s.Evaluate(ctx, id)
				mu.Lock()
				if err != nil {
					result.Failed = append(result.Failed, ItemFailure{ActivityID: id, Err: err})
				} else {
					result.Succeeded++
				}
				mu.Unlock()
			}
		}()
	}

	for _, id := range ids {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return result, ctx.Err()
		case work <- id:
		}
	}
	close(work)
	wg.Wait()

	return result, nil
}
