package service

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"runform/internal/baseline"
	"runform/internal/config"
	"runform/internal/store"
)

// seedTrainingRun inserts an activity plus n splits whose dynamics follow
// exact pace laws: ground contact time is a power law with exponent -0.3 and
// the remaining metrics are linear in speed.
func seedTrainingRun(t *testing.T, db *store.DB, id int64, group string, start time.Time, n int) {
	t.Helper()

	a := &store.Activity{
		ID:             id,
		AthleteID:      42,
		Name:           "Training Run",
		StartDate:      start,
		StartDateLocal: start,
		ConditionGroup: group,
		Distance:       12000,
		MovingTime:     3600,
		ElapsedTime:    3600,
		AverageSpeed:   3.4,
		SplitsSynced:   true,
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity: %v", err)
	}

	alpha := 250.0 * math.Pow(3.5, 0.3)
	splits := make([]store.Split, n)
	for i := range splits {
		speed := 2.5 + 0.05*float64(i)
		splits[i] = store.Split{
			ActivityID:          id,
			SplitIndex:          i,
			Speed:               speed,
			GroundContactTime:   floatPtr(alpha * math.Pow(speed, -0.3)),
			VerticalOscillation: floatPtr(12.0 - 0.8*speed),
			VerticalRatio:       floatPtr(10.0 - 0.5*speed),
			Cadence:             floatPtr(150.0 + 8.0*speed),
		}
	}
	if err := db.SaveSplits(id, splits); err != nil {
		t.Fatalf("SaveSplits: %v", err)
	}
}

func trainConfig() config.BaselineConfig {
	return config.BaselineConfig{MinSamples: 30, WindowDays: 60, Workers: 2}
}

func TestTrainAllFitsEveryKey(t *testing.T) {
	db := store.NewTestDB(t)
	recent := time.Now().UTC().AddDate(0, 0, -10)
	seedTrainingRun(t, db, 1, "road", recent, 40)

	svc := NewTrainService(db, trainConfig())
	report, err := svc.TrainAll(context.Background())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}

	// One tagged group plus the pooled group, four metrics each
	if report.Trained != 8 {
		t.Errorf("Trained = %d, want 8", report.Trained)
	}
	if report.Degraded != 0 || report.Insufficient != 0 || report.Rejected != 0 || report.Failed != 0 {
		t.Errorf("Degraded/Insufficient/Rejected/Failed = %d/%d/%d/%d, want all 0",
			report.Degraded, report.Insufficient, report.Rejected, report.Failed)
	}

	model, err := db.GetBaselineModel("road", string(baseline.MetricGroundContactTime))
	if err != nil {
		t.Fatalf("GetBaselineModel: %v", err)
	}
	if model.Family != string(baseline.FamilyPowerLaw) {
		t.Errorf("Family = %q, want %q", model.Family, baseline.FamilyPowerLaw)
	}
	if math.Abs(model.CoefB-(-0.3)) > 0.01 {
		t.Errorf("CoefB = %v, want about -0.3", model.CoefB)
	}
	if model.NSamples != 40 {
		t.Errorf("NSamples = %d, want 40", model.NSamples)
	}
	if math.Abs(model.SpeedMin-2.5) > 1e-9 {
		t.Errorf("SpeedMin = %v, want 2.5", model.SpeedMin)
	}

	// The pooled group is trained from the same splits
	pooled, err := db.GetBaselineModel("all", string(baseline.MetricCadence))
	if err != nil {
		t.Fatalf("GetBaselineModel pooled: %v", err)
	}
	if math.Abs(pooled.CoefB-8.0) > 0.01 {
		t.Errorf("pooled cadence slope = %v, want about 8", pooled.CoefB)
	}

	// Each successful fit appends exactly one history snapshot
	count, err := db.CountSnapshots("road", string(baseline.MetricCadence))
	if err != nil {
		t.Fatalf("CountSnapshots: %v", err)
	}
	if count != 1 {
		t.Errorf("CountSnapshots = %d, want 1", count)
	}
}

func TestTrainAllInsufficientLeavesStoredModel(t *testing.T) {
	db := store.NewTestDB(t)
	recent := time.Now().UTC().AddDate(0, 0, -10)
	seedTrainingRun(t, db, 1, "road", recent, 10)

	prior := &store.BaselineModel{
		ConditionGroup: "road",
		Metric:         string(baseline.MetricGroundContactTime),
		Family:         string(baseline.FamilyPowerLaw),
		CoefA:          360.0,
		CoefB:          -0.25,
		RMSE:           2.0,
		NSamples:       35,
		SpeedMin:       2.5,
		SpeedMax:       4.5,
		TrainedAt:      recent.AddDate(0, 0, -30),
	}
	if err := db.SaveBaselineModel(prior, recent.AddDate(0, 0, -90), recent.AddDate(0, 0, -30)); err != nil {
		t.Fatalf("SaveBaselineModel: %v", err)
	}

	svc := NewTrainService(db, trainConfig())
	report, err := svc.TrainAll(context.Background())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}

	if report.Insufficient != 8 {
		t.Errorf("Insufficient = %d, want 8", report.Insufficient)
	}
	if report.Trained != 0 {
		t.Errorf("Trained = %d, want 0", report.Trained)
	}

	model, err := db.GetBaselineModel("road", string(baseline.MetricGroundContactTime))
	if err != nil {
		t.Fatalf("GetBaselineModel: %v", err)
	}
	if model.CoefB != -0.25 {
		t.Errorf("CoefB = %v, want the prior -0.25 left untouched", model.CoefB)
	}
}

func TestTrainAllRejectsNonMonotonicGroundContact(t *testing.T) {
	db := store.NewTestDB(t)
	recent := time.Now().UTC().AddDate(0, 0, -10)
	seedTrainingRun(t, db, 1, "road", recent, 40)

	// Overwrite ground contact time so it rises with speed, which a
	// strictly decreasing power law cannot describe
	splits, err := db.GetSplits(1)
	if err != nil {
		t.Fatalf("GetSplits: %v", err)
	}
	for i := range splits {
		splits[i].GroundContactTime = floatPtr(200.0 + 30.0*splits[i].Speed)
	}
	if err := db.SaveSplits(1, splits); err != nil {
		t.Fatalf("SaveSplits: %v", err)
	}

	svc := NewTrainService(db, trainConfig())
	report, err := svc.TrainAll(context.Background())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}

	if report.Rejected != 2 {
		t.Errorf("Rejected = %d, want 2 (ground contact time in both groups)", report.Rejected)
	}
	if report.Trained != 6 {
		t.Errorf("Trained = %d, want 6", report.Trained)
	}
	for _, o := range report.Outcomes {
		if o.Status == TrainRejected {
			if o.Metric != baseline.MetricGroundContactTime {
				t.Errorf("rejected metric = %s, want ground_contact_time", o.Metric)
			}
			if !errors.Is(o.Err, baseline.ErrNonMonotonicModel) {
				t.Errorf("rejected outcome error = %v, want ErrNonMonotonicModel", o.Err)
			}
		}
	}

	if _, err := db.GetBaselineModel("road", string(baseline.MetricGroundContactTime)); !errors.Is(err, store.ErrModelNotFound) {
		t.Errorf("GetBaselineModel error = %v, want ErrModelNotFound", err)
	}
}

func TestTrainAllSkipsUnrecordedMetric(t *testing.T) {
	db := store.NewTestDB(t)
	recent := time.Now().UTC().AddDate(0, 0, -10)
	seedTrainingRun(t, db, 1, "road", recent, 40)

	// Strip cadence, as an older watch would
	splits, err := db.GetSplits(1)
	if err != nil {
		t.Fatalf("GetSplits: %v", err)
	}
	for i := range splits {
		splits[i].Cadence = nil
	}
	if err := db.SaveSplits(1, splits); err != nil {
		t.Fatalf("SaveSplits: %v", err)
	}

	svc := NewTrainService(db, trainConfig())
	report, err := svc.TrainAll(context.Background())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}

	if report.Trained != 6 {
		t.Errorf("Trained = %d, want 6", report.Trained)
	}
	if report.Insufficient != 2 {
		t.Errorf("Insufficient = %d, want 2 (cadence in both groups)", report.Insufficient)
	}
}

func TestTrainAllWindowExcludesOldSplits(t *testing.T) {
	db := store.NewTestDB(t)
	old := time.Now().UTC().AddDate(0, 0, -90)
	seedTrainingRun(t, db, 1, "road", old, 40)

	svc := NewTrainService(db, trainConfig())
	report, err := svc.TrainAll(context.Background())
	if err != nil {
		t.Fatalf("TrainAll: %v", err)
	}

	if report.Trained != 0 {
		t.Errorf("Trained = %d, want 0 for splits outside the window", report.Trained)
	}
	if report.Insufficient != 8 {
		t.Errorf("Insufficient = %d, want 8", report.Insufficient)
	}
}
