package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"runform/internal/baseline"
	"runform/internal/store"
)

func floatPtr(v float64) *float64 { return &v }

// seedActivity inserts a synced activity with form aggregates chosen so that
// ground contact time lands inside the dead band and vertical oscillation just
// outside it against the flat models from seedFlatModels.
func seedActivity(t *testing.T, db *store.DB, id int64, group string) *store.Activity {
	t.Helper()

	a := &store.Activity{
		ID:                     id,
		AthleteID:              42,
		Name:                   "Morning Run",
		StartDate:              time.Date(2024, 3, 10, 7, 0, 0, 0, time.UTC),
		StartDateLocal:         time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC),
		ConditionGroup:         group,
		Distance:               10000,
		MovingTime:             3000,
		ElapsedTime:            3050,
		AverageSpeed:           3.33,
		AvgGroundContactTime:   floatPtr(248.25),
		AvgVerticalOscillation: floatPtr(8.9496),
		SplitsSynced:           true,
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity: %v", err)
	}
	return a
}

// seedBareActivity inserts an activity with no form aggregates at all
func seedBareActivity(t *testing.T, db *store.DB, id int64, group string) {
	t.Helper()

	a := &store.Activity{
		ID:             id,
		AthleteID:      42,
		Name:           "Watch Left At Home",
		StartDate:      time.Date(2024, 3, 11, 7, 0, 0, 0, time.UTC),
		StartDateLocal: time.Date(2024, 3, 11, 8, 0, 0, 0, time.UTC),
		ConditionGroup: group,
		Distance:       5000,
		MovingTime:     1500,
		ElapsedTime:    1520,
		AverageSpeed:   3.33,
		SplitsSynced:   true,
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity: %v", err)
	}
}

// seedFlatModel stores a linear model with a zero slope so the expected value
// is constant across pace, which keeps test arithmetic obvious.
func seedFlatModel(t *testing.T, db *store.DB, group string, m baseline.Metric, expected float64) {
	t.Helper()

	model := &store.BaselineModel{
		ConditionGroup: group,
		Metric:         string(m),
		Family:         string(baseline.FamilyLinear),
		CoefA:          expected,
		CoefB:          0,
		RMSE:           0.5,
		NSamples:       40,
		SpeedMin:       2.5,
		SpeedMax:       5.0,
		TrainedAt:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := db.SaveBaselineModel(model, start, end); err != nil {
		t.Fatalf("SaveBaselineModel: %v", err)
	}
}

func seedFlatModels(t *testing.T, db *store.DB, group string) {
	t.Helper()
	seedFlatModel(t, db, group, baseline.MetricGroundContactTime, 250.0)
	seedFlatModel(t, db, group, baseline.MetricVerticalOscillation, 9.0)
}

func TestEvaluate(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "road")
	seedFlatModels(t, db, "road")

	svc := NewEvalService(db, 1)
	eval, err := svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	if len(eval.Metrics) != 2 {
		t.Fatalf("got %d metric evaluations, want 2", len(eval.Metrics))
	}

	byMetric := map[string]store.MetricEvaluation{}
	for _, m := range eval.Metrics {
		byMetric[m.Metric] = m
	}

	// 248.25 against 250 is -0.7%, inside the 1% dead band
	gct := byMetric[string(baseline.MetricGroundContactTime)]
	if gct.Score != 100 || gct.Tier != 5 {
		t.Errorf("ground contact time score/tier = %v/%v, want 100/5", gct.Score, gct.Tier)
	}
	if gct.NeedsImprovement {
		t.Error("ground contact time should not need improvement")
	}
	if math.Abs(gct.Deviation-(-0.7)) > 0.001 {
		t.Errorf("ground contact time deviation = %v, want -0.7", gct.Deviation)
	}

	// 8.9496 against 9.0 is -0.56%, just past the 0.25% dead band
	vo := byMetric[string(baseline.MetricVerticalOscillation)]
	if vo.Tier != 4 {
		t.Errorf("vertical oscillation tier = %v, want 4", vo.Tier)
	}
	if vo.Score <= 85 || vo.Score >= 95 {
		t.Errorf("vertical oscillation score = %v, want in (85, 95)", vo.Score)
	}

	wantOverall := (100 + vo.Score) / 2
	if math.Abs(eval.OverallScore-wantOverall) > 1e-9 {
		t.Errorf("OverallScore = %v, want %v", eval.OverallScore, wantOverall)
	}
	// mean tier 4.5 rounds up
	if eval.OverallTier != 5 {
		t.Errorf("OverallTier = %v, want 5", eval.OverallTier)
	}
	if eval.Summary == "" {
		t.Error("Summary should not be empty")
	}
	if !eval.BaselinesTrainedAt.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("BaselinesTrainedAt = %v, want the models' trained_at", eval.BaselinesTrainedAt)
	}

	// The evaluation must be persisted
	stored, err := db.GetEvaluation(1)
	if err != nil {
		t.Fatalf("GetEvaluation: %v", err)
	}
	if stored.OverallTier != eval.OverallTier || len(stored.Metrics) != 2 {
		t.Errorf("stored evaluation tier/metrics = %v/%v, want %v/2",
			stored.OverallTier, len(stored.Metrics), eval.OverallTier)
	}
}

func TestEvaluateFallsBackToPooledGroup(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "trail")
	seedFlatModels(t, db, "all")

	svc := NewEvalService(db, 1)
	eval, err := svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if eval.ConditionGroup != "trail" {
		t.Errorf("ConditionGroup = %q, want %q", eval.ConditionGroup, "trail")
	}
	if len(eval.Metrics) != 2 {
		t.Errorf("got %d metric evaluations, want 2", len(eval.Metrics))
	}
}

func TestEvaluateGroupModelWinsOverPooled(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "road")

	// Pooled expectation would put 248.25 way off; the road model agrees with it
	seedFlatModel(t, db, "all", baseline.MetricGroundContactTime, 300.0)
	seedFlatModel(t, db, "all", baseline.MetricVerticalOscillation, 9.0)
	seedFlatModel(t, db, "road", baseline.MetricGroundContactTime, 250.0)
	seedFlatModel(t, db, "road", baseline.MetricVerticalOscillation, 9.0)

	svc := NewEvalService(db, 1)
	eval, err := svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	for _, m := range eval.Metrics {
		if m.Metric == string(baseline.MetricGroundContactTime) {
			if m.Expected != 250.0 {
				t.Errorf("Expected = %v, want 250 from the road model", m.Expected)
			}
		}
	}
}

func TestEvaluateMissingBaseline(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "road")
	// Only one of the two recorded metrics has a model anywhere
	seedFlatModel(t, db, "road", baseline.MetricGroundContactTime, 250.0)

	svc := NewEvalService(db, 1)
	_, err := svc.Evaluate(context.Background(), 1)
	if !errors.Is(err, store.ErrModelNotFound) {
		t.Errorf("Evaluate error = %v, want ErrModelNotFound", err)
	}

	// A failed evaluation must not leave partial rows behind
	if _, err := db.GetEvaluation(1); !errors.Is(err, store.ErrEvaluationNotFound) {
		t.Errorf("GetEvaluation error = %v, want ErrEvaluationNotFound", err)
	}
}

func TestEvaluateNoFormData(t *testing.T) {
	db := store.NewTestDB(t)
	seedBareActivity(t, db, 1, "road")

	svc := NewEvalService(db, 1)
	_, err := svc.Evaluate(context.Background(), 1)
	if !errors.Is(err, ErrNoFormData) {
		t.Errorf("Evaluate error = %v, want ErrNoFormData", err)
	}
}

func TestEvaluateReplacesPrevious(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "road")
	seedFlatModels(t, db, "road")

	svc := NewEvalService(db, 1)
	first, err := svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("first Evaluate: %v", err)
	}

	// Retraining moves the expectation; re-evaluating must replace the verdict
	seedFlatModel(t, db, "road", baseline.MetricGroundContactTime, 230.0)
	second, err := svc.Evaluate(context.Background(), 1)
	if err != nil {
		t.Fatalf("second Evaluate: %v", err)
	}

	if second.OverallScore >= first.OverallScore {
		t.Errorf("second OverallScore = %v, want below first %v", second.OverallScore, first.OverallScore)
	}

	count, err := db.CountEvaluations()
	if err != nil {
		t.Fatalf("CountEvaluations: %v", err)
	}
	if count != 1 {
		t.Errorf("CountEvaluations = %d, want 1", count)
	}
}

func TestReevaluateAllCollectsFailures(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "road")
	seedBareActivity(t, db, 2, "road")
	seedFlatModels(t, db, "road")

	svc := NewEvalService(db, 2)
	result, err := svc.ReevaluateAll(context.Background())
	if err != nil {
		t.Fatalf("ReevaluateAll: %v", err)
	}

	if result.Succeeded != 1 {
		t.Errorf("Succeeded = %d, want 1", result.Succeeded)
	}
	if len(result.Failed) != 1 {
		t.Fatalf("got %d failures, want 1", len(result.Failed))
	}
	if result.Failed[0].ActivityID != 2 {
		t.Errorf("failed activity = %d, want 2", result.Failed[0].ActivityID)
	}
	if !errors.Is(result.Failed[0].Err, ErrNoFormData) {
		t.Errorf("failure error = %v, want ErrNoFormData", result.Failed[0].Err)
	}
}

func TestEvaluatePending(t *testing.T) {
	db := store.NewTestDB(t)
	seedActivity(t, db, 1, "road")
	seedActivity(t, db, 2, "road")
	seedFlatModels(t, db, "road")

	svc := NewEvalService(db, 1)
	if _, err := svc.Evaluate(context.Background(), 1); err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	result, err := svc.EvaluatePending(context.Background())
	if err != nil {
		t.Fatalf("EvaluatePending: %v", err)
	}
	if result.Succeeded != 1 || len(result.Failed) != 0 {
		t.Errorf("Succeeded/Failed = %d/%d, want 1/0", result.Succeeded, len(result.Failed))
	}

	pending, err := db.GetActivitiesNeedingEvaluation()
	if err != nil {
		t.Fatalf("GetActivitiesNeedingEvaluation: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("got %d pending activities after EvaluatePending, want 0", len(pending))
	}
}
