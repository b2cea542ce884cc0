package store

import (
	"testing"
	"time"
)

func seedSplits(t *testing.T, db *DB, activityID int64, speeds []float64) {
	t.Helper()

	splits := make([]Split, len(speeds))
	for i, sp := range speeds {
		splits[i] = Split{
			ActivityID:        activityID,
			SplitIndex:        i,
			Speed:             sp,
			GroundContactTime: floatPtr(250 - 5*sp),
			Cadence:           floatPtr(160 + 4*sp),
		}
	}
	if err := db.SaveSplits(activityID, splits); err != nil {
		t.Fatalf("SaveSplits(%d) error = %v", activityID, err)
	}
}

func TestSaveSplitsReplacesExisting(t *testing.T) {
	db := NewTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	seedActivity(t, db, 1, now)

	seedSplits(t, db, 1, []float64{3.0, 3.2, 3.4})
	seedSplits(t, db, 1, []float64{3.1, 3.3})

	splits, err := db.GetSplits(1)
	if err != nil {
		t.Fatalf("GetSplits() error = %v", err)
	}
	if len(splits) != 2 {
		t.Fatalf("splits = %d, want 2 after replacement", len(splits))
	}
	if splits[0].Speed != 3.1 {
		t.Errorf("first split speed = %v, want 3.1", splits[0].Speed)
	}
	if splits[0].VerticalRatio != nil {
		t.Errorf("VerticalRatio = %v, want nil for an unrecorded metric", splits[0].VerticalRatio)
	}
}

func TestGetSplitsSinceFiltersByGroupAndTime(t *testing.T) {
	db := NewTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)

	// Old road run, recent road run, recent trail run
	old := now.AddDate(0, 0, -90)
	seedActivityInGroup(t, db, 1, old, "road")
	seedActivityInGroup(t, db, 2, now.AddDate(0, 0, -5), "road")
	seedActivityInGroup(t, db, 3, now.AddDate(0, 0, -3), "trail")

	seedSplits(t, db, 1, []float64{3.0, 3.1})
	seedSplits(t, db, 2, []float64{3.2, 3.3})
	seedSplits(t, db, 3, []float64{2.4, 2.5})

	cutoff := now.AddDate(0, 0, -60)

	road, err := db.GetSplitsSince("road", cutoff)
	if err != nil {
		t.Fatalf("GetSplitsSince(road) error = %v", err)
	}
	if len(road) != 2 {
		t.Errorf("road splits = %d, want 2 (old activity excluded)", len(road))
	}

	// The pooled group sees every terrain
	all, err := db.GetSplitsSince("all", cutoff)
	if err != nil {
		t.Fatalf("GetSplitsSince(all) error = %v", err)
	}
	if len(all) != 4 {
		t.Errorf("pooled splits = %d, want 4", len(all))
	}
}

func TestListConditionGroups(t *testing.T) {
	db := NewTestDB(t)

	now := time.Now().UTC().Truncate(time.Second)
	seedActivityInGroup(t, db, 1, now, "road")
	seedActivityInGroup(t, db, 2, now, "trail")
	seedActivityInGroup(t, db, 3, now, "road")

	groups, err := db.ListConditionGroups()
	if err != nil {
		t.Fatalf("ListConditionGroups() error = %v", err)
	}
	if len(groups) != 2 {
		t.Errorf("groups = %v, want [road trail]", groups)
	}
}

func seedActivityInGroup(t *testing.T, db *DB, id int64, start time.Time, group string) {
	t.Helper()

	a := &Activity{
		ID:             id,
		AthleteID:      7,
		Name:           "Run",
		StartDate:      start,
		StartDateLocal: start,
		ConditionGroup: group,
		Distance:       8000,
		MovingTime:     2400,
		ElapsedTime:    2450,
		AverageSpeed:   3.33,
		SplitsSynced:   true,
	}
	if err := db.UpsertActivity(a); err != nil {
		t.Fatalf("UpsertActivity(%d) error = %v", id, err)
	}
}
