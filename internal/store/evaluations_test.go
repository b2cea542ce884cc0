package store

import (
	"errors"
	"testing"
	"time"
)

func floatPtr(f float64) *float64 {
	return &f
}

// seedActivity inserts an activity for evaluation rows to reference
func seedActivity(t *testing.T, db *DB, id int64, start time.Time) {
	t.Helper()

	a := &Activity{
		ID:                     id,
		AthleteID:              7,
		Name:                   "Morning Run",
		StartDate:              start,
		StartDateLocal:         start,
		ConditionGroup:         "road",
		Distance:               10000,
		MovingTime:             3000,
		ElapsedTime:            3100,
		AverageSpeed:           3.33,
		AvgGroundContactTime:   floatPtr(250),
		AvgVerticalOscillation: floatPtr(9.1),
		SplitsSynced:           true,
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity(%d) error = %v", id, err)
	}
}

func testEvaluation(activityID int64, evaluatedAt time.Time) *ActivityEvaluation {
	return &ActivityEvaluation{
		ActivityID:         activityID,
		ConditionGroup:     "road",
		OverallScore:       92.5,
		OverallTier:        4,
		Summary:            "Good form: small deviations from your baselines.",
		BaselinesTrainedAt: evaluatedAt.AddDate(0, 0, -3),
		EvaluatedAt:        evaluatedAt,
		Metrics: []MetricEvaluation{
			{
				ActivityID: activityID,
				Metric:     "ground_contact_time",
				Expected:   250.0,
				Actual:     248.25,
				Deviation:  -0.7,
				Score:      100,
				Tier:       5,
				Text:       "right on baseline",
			},
			{
				ActivityID:       activityID,
				Metric:           "vertical_oscillation",
				Expected:         9.0,
				Actual:           9.5,
				Deviation:        5.6,
				Score:            20,
				Tier:             1,
				NeedsImprovement: true,
				Extrapolated:     true,
				Text:             "far outside usual range",
			},
		},
	}
}

func TestSaveAndGetEvaluation(t *testing.T) {
	db := NewTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	seedActivity(t, db, 1, now)

	if err := db.SaveEvaluation(testEvaluation(1, now)); err != nil {
		t.Fatalf("SaveEvaluation() error = %v", err)
	}

	got, err := db.GetEvaluation(1)
	if err != nil {
		t.Fatalf("GetEvaluation() error = %v", err)
	}

	if got.OverallScore != 92.5 {
		t.Errorf("OverallScore = %v, want 92.5", got.OverallScore)
	}
	if got.OverallTier != 4 {
		t.Errorf("OverallTier = %v, want 4", got.OverallTier)
	}
	if !got.BaselinesTrainedAt.Equal(now.AddDate(0, 0, -3)) {
		t.Errorf("BaselinesTrainedAt = %v, want %v", got.BaselinesTrainedAt, now.AddDate(0, 0, -3))
	}
	if len(got.Metrics) != 2 {
		t.Fatalf("metric rows = %d, want 2", len(got.Metrics))
	}

	var vo *MetricEvaluation
	for i := range got.Metrics {
		if got.Metrics[i].Metric == "vertical_oscillation" {
			vo = &got.Metrics[i]
		}
	}
	if vo == nil {
		t.Fatal("vertical_oscillation row missing")
	}
	if !vo.NeedsImprovement {
		t.Error("NeedsImprovement not round-tripped")
	}
	if !vo.Extrapolated {
		t.Error("Extrapolated not round-tripped")
	}
}

func TestSaveEvaluationReplacesMetrics(t *testing.T) {
	db := NewTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	seedActivity(t, db, 1, now)

	if err := db.SaveEvaluation(testEvaluation(1, now)); err != nil {
		t.Fatalf("SaveEvaluation() error = %v", err)
	}

	// Re-evaluate with a single metric; the old rows must be gone
	e := testEvaluation(1, now.Add(time.Hour))
	e.OverallScore = 100
	e.OverallTier = 5
	e.Metrics = e.Metrics[:1]
	if err := db.SaveEvaluation(e); err != nil {
		t.Fatalf("SaveEvaluation() second error = %v", err)
	}

	got, err := db.GetEvaluation(1)
	if err != nil {
		t.Fatalf("GetEvaluation() error = %v", err)
	}
	if got.OverallScore != 100 {
		t.Errorf("OverallScore = %v, want the replacement 100", got.OverallScore)
	}
	if len(got.Metrics) != 1 {
		t.Errorf("metric rows = %d, want 1 after re-evaluation", len(got.Metrics))
	}

	count, err := db.CountEvaluations()
	if err != nil {
		t.Fatalf("CountEvaluations() error = %v", err)
	}
	if count != 1 {
		t.Errorf("evaluations = %d, want 1 (keyed by activity)", count)
	}
}

func TestGetEvaluationNotFound(t *testing.T) {
	db := NewTestDB(t)

	_, err := db.GetEvaluation(404)
	if !errors.Is(err, ErrEvaluationNotFound) {
		t.Errorf("GetEvaluation() error = %v, want ErrEvaluationNotFound", err)
	}
}

func TestListEvaluationsOrder(t *testing.T) {
	db := NewTestDB(t)

	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	for i := int64(1); i <= 3; i++ {
		seedActivity(t, db, i, base.AddDate(0, 0, int(i)))
		if err := db.SaveEvaluation(testEvaluation(i, base.AddDate(0, 0, int(i)))); err != nil {
			t.Fatalf("SaveEvaluation(%d) error = %v", i, err)
		}
	}

	evals, err := db.ListEvaluations(10, 0)
	if err != nil {
		t.Fatalf("ListEvaluations() error = %v", err)
	}
	if len(evals) != 3 {
		t.Fatalf("evaluations = %d, want 3", len(evals))
	}
	if evals[0].ActivityID != 3 {
		t.Errorf("first evaluation = activity %d, want the newest (3)", evals[0].ActivityID)
	}
}
