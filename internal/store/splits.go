package store

import (
	"database/sql"
	"fmt"
	"time"
)

// SaveSplits replaces all splits for an activity in a single transaction
func (db *DB) SaveSplits(activityID int64, splits []Split) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM splits WHERE activity_id = ?`, activityID); err != nil {
		return fmt.Errorf("clearing splits: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO splits (
			activity_id, split_index, speed,
			ground_contact_time, vertical_oscillation, vertical_ratio, cadence
		) VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, s := range splits {
		_, err := stmt.Exec(
			activityID, s.SplitIndex, s.Speed,
			s.GroundContactTime, s.VerticalOscillation, s.VerticalRatio, s.Cadence,
		)
		if err != nil {
			return fmt.Errorf("inserting split %d: %w", s.SplitIndex, err)
		}
	}

	return tx.Commit()
}

// GetSplits retrieves all splits for an activity ordered by index
func (db *DB) GetSplits(activityID int64) ([]Split, error) {
	rows, err := db.Query(`
		SELECT activity_id, split_index, speed,
			ground_contact_time, vertical_oscillation, vertical_ratio, cadence
		FROM splits
		WHERE activity_id = ?
		ORDER BY split_index
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSplits(rows)
}

// GetSplitsSince retrieves splits for a condition group whose activity started
// at or after the cutoff. The group "all" matches every activity.
func (db *DB) GetSplitsSince(conditionGroup string, since time.Time) ([]Split, error) {
	query := `
		SELECT s.activity_id, s.split_index, s.speed,
			s.ground_contact_time, s.vertical_oscillation, s.vertical_ratio, s.cadence
		FROM splits s
		JOIN activities a ON a.id = s.activity_id
		WHERE a.start_date >= ?`
	args := []any{since.Format(time.RFC3339)}

	if conditionGroup != "all" {
		query += ` AND a.condition_group = ?`
		args = append(args, conditionGroup)
	}
	query += ` ORDER BY a.start_date, s.split_index`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanSplits(rows)
}

// ListConditionGroups returns the distinct condition groups present in activities
func (db *DB) ListConditionGroups() ([]string, error) {
	rows, err := db.Query(`SELECT DISTINCT condition_group FROM activities ORDER BY condition_group`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []string
	for rows.Next() {
		var g string
		if err := rows.Scan(&g); err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, rows.Err()
}

// scanSplits scans multiple splits from rows
func scanSplits(rows *sql.Rows) ([]Split, error) {
	var splits []Split

	for rows.Next() {
		var s Split
		var gct, vo, vr, cad sql.NullFloat64

		err := rows.Scan(&s.ActivityID, &s.SplitIndex, &s.Speed, &gct, &vo, &vr, &cad)
		if err != nil {
			return nil, err
		}

		s.GroundContactTime = nullToPtr(gct)
		s.VerticalOscillation = nullToPtr(vo)
		s.VerticalRatio = nullToPtr(vr)
		s.Cadence = nullToPtr(cad)

		splits = append(splits, s)
	}

	return splits, rows.Err()
}
