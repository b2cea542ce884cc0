package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrActivityNotFound is returned when an activity doesn't exist
var ErrActivityNotFound = errors.New("activity not found")

const activityColumns = `id, athlete_id, name, start_date, start_date_local, condition_group,
		distance, moving_time, elapsed_time, average_speed,
		avg_ground_contact_time, avg_vertical_oscillation, avg_vertical_ratio, avg_cadence,
		splits_synced`

// UpsertActivity inserts or updates an activity
func (db *DB) UpsertActivity(a *Activity) error {
	_, err := db.Exec(`
		INSERT INTO activities (
			id, athlete_id, name, start_date, start_date_local, condition_group,
			distance, moving_time, elapsed_time, average_speed,
			avg_ground_contact_time, avg_vertical_oscillation, avg_vertical_ratio, avg_cadence,
			splits_synced, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(id) DO UPDATE SET
			athlete_id = excluded.athlete_id,
			name = excluded.name,
			start_date = excluded.start_date,
			start_date_local = excluded.start_date_local,
			condition_group = excluded.condition_group,
			distance = excluded.distance,
			moving_time = excluded.moving_time,
			elapsed_time = excluded.elapsed_time,
			average_speed = excluded.average_speed,
			avg_ground_contact_time = excluded.avg_ground_contact_time,
			avg_vertical_oscillation = excluded.avg_vertical_oscillation,
			avg_vertical_ratio = excluded.avg_vertical_ratio,
			avg_cadence = excluded.avg_cadence,
			updated_at = CURRENT_TIMESTAMP
	`,
		a.ID, a.AthleteID, a.Name,
		a.StartDate.Format(time.RFC3339), a.StartDateLocal.Format(time.RFC3339), a.ConditionGroup,
		a.Distance, a.MovingTime, a.ElapsedTime, a.AverageSpeed,
		a.AvgGroundContactTime, a.AvgVerticalOscillation, a.AvgVerticalRatio, a.AvgCadence,
		boolToInt(a.SplitsSynced),
	)
	return err
}

// GetActivity retrieves an activity by ID
func (db *DB) GetActivity(id int64) (*Activity, error) {
	row := db.QueryRow(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE id = ?
	`, id)

	return scanActivity(row)
}

// ListActivities returns activities ordered by start date descending
func (db *DB) ListActivities(limit, offset int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		ORDER BY start_date DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// ListActivityIDs returns all activity IDs ordered by start date descending
func (db *DB) ListActivityIDs() ([]int64, error) {
	rows, err := db.Query(`SELECT id FROM activities ORDER BY start_date DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// GetActivitiesNeedingSplits returns activities that haven't had their splits synced
func (db *DB) GetActivitiesNeedingSplits(limit int) ([]Activity, error) {
	rows, err := db.Query(`
		SELECT `+activityColumns+`
		FROM activities
		WHERE splits_synced = 0
		ORDER BY start_date DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// GetActivitiesNeedingEvaluation returns activities with splits but no stored evaluation
func (db *DB) GetActivitiesNeedingEvaluation() ([]Activity, error) {
	rows, err := db.Query(`
		SELECT ` + activityColumns + `
		FROM activities a
		WHERE a.splits_synced = 1
		  AND NOT EXISTS (SELECT 1 FROM activity_evaluations e WHERE e.activity_id = a.id)
		ORDER BY a.start_date DESC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanActivities(rows)
}

// MarkSplitsSynced marks an activity's splits as synced
func (db *DB) MarkSplitsSynced(id int64) error {
	result, err := db.Exec(`
		UPDATE activities SET splits_synced = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// CountActivities returns the total number of activities
func (db *DB) CountActivities() (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM activities`).Scan(&count)
	return count, err
}

// scanActivity scans a single activity from a row
func scanActivity(row *sql.Row) (*Activity, error) {
	var a Activity
	var startDate, startDateLocal string
	var gct, vo, vr, cad sql.NullFloat64
	var splitsSynced int

	err := row.Scan(
		&a.ID, &a.AthleteID, &a.Name, &startDate, &startDateLocal, &a.ConditionGroup,
		&a.Distance, &a.MovingTime, &a.ElapsedTime, &a.AverageSpeed,
		&gct, &vo, &vr, &cad, &splitsSynced,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrActivityNotFound
	}
	if err != nil {
		return nil, err
	}

	if err := fillActivityTimes(&a, startDate, startDateLocal); err != nil {
		return nil, err
	}
	a.AvgGroundContactTime = nullToPtr(gct)
	a.AvgVerticalOscillation = nullToPtr(vo)
	a.AvgVerticalRatio = nullToPtr(vr)
	a.AvgCadence = nullToPtr(cad)
	a.SplitsSynced = splitsSynced == 1

	return &a, nil
}

// scanActivities scans multiple activities from rows
func scanActivities(rows *sql.Rows) ([]Activity, error) {
	var activities []Activity

	for rows.Next() {
		var a Activity
		var startDate, startDateLocal string
		var gct, vo, vr, cad sql.NullFloat64
		var splitsSynced int

		err := rows.Scan(
			&a.ID, &a.AthleteID, &a.Name, &startDate, &startDateLocal, &a.ConditionGroup,
			&a.Distance, &a.MovingTime, &a.ElapsedTime, &a.AverageSpeed,
			&gct, &vo, &vr, &cad, &splitsSynced,
		)
		if err != nil {
			return nil, err
		}

		if err := fillActivityTimes(&a, startDate, startDateLocal); err != nil {
			return nil, err
		}
		a.AvgGroundContactTime = nullToPtr(gct)
		a.AvgVerticalOscillation = nullToPtr(vo)
		a.AvgVerticalRatio = nullToPtr(vr)
		a.AvgCadence = nullToPtr(cad)
		a.SplitsSynced = splitsSynced == 1

		activities = append(activities, a)
	}

	return activities, rows.Err()
}

func fillActivityTimes(a *Activity, startDate, startDateLocal string) error {
	var err error
	a.StartDate, err = time.Parse(time.RFC3339, startDate)
	if err != nil {
		return fmt.Errorf("parsing start_date %q: %w", startDate, err)
	}
	a.StartDateLocal, err = time.Parse(time.RFC3339, startDateLocal)
	if err != nil {
		return fmt.Errorf("parsing start_date_local %q: %w", startDateLocal, err)
	}
	return nil
}

func nullToPtr(n sql.NullFloat64) *float64 {
	if !n.Valid {
		return nil
	}
	return &n.Float64
}
