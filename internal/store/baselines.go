package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrModelNotFound is returned when no baseline model is stored for a key
var ErrModelNotFound = errors.New("baseline model not found")

// SaveBaselineModel atomically replaces the current model for its
// (condition group, metric) key and appends a history snapshot for the given
// training window. Readers observe either the old model or the new one.
func (db *DB) SaveBaselineModel(m *BaselineModel, periodStart, periodEnd time.Time) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO baseline_models (
			condition_group, metric, family, coef_a, coef_b,
			rmse, n_samples, speed_min, speed_max, degraded, trained_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(condition_group, metric) DO UPDATE SET
			family = excluded.family,
			coef_a = excluded.coef_a,
			coef_b = excluded.coef_b,
			rmse = excluded.rmse,
			n_samples = excluded.n_samples,
			speed_min = excluded.speed_min,
			speed_max = excluded.speed_max,
			degraded = excluded.degraded,
			trained_at = excluded.trained_at
	`,
		m.ConditionGroup, m.Metric, m.Family, m.CoefA, m.CoefB,
		m.RMSE, m.NSamples, m.SpeedMin, m.SpeedMax, boolToInt(m.Degraded),
		m.TrainedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting model: %w", err)
	}

	// History is append-only: an existing window is never rewritten
	_, err = tx.Exec(`
		INSERT OR IGNORE INTO baseline_history (
			condition_group, metric, family, coef_a, coef_b,
			n_samples, period_start, period_end, trained_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		m.ConditionGroup, m.Metric, m.Family, m.CoefA, m.CoefB,
		m.NSamples, periodStart.Format(time.RFC3339), periodEnd.Format(time.RFC3339),
		m.TrainedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("appending snapshot: %w", err)
	}

	return tx.Commit()
}

// GetBaselineModel retrieves the current model for a (condition group, metric) key
func (db *DB) GetBaselineModel(conditionGroup, metric string) (*BaselineModel, error) {
	row := db.QueryRow(`
		SELECT condition_group, metric, family, coef_a, coef_b,
			rmse, n_samples, speed_min, speed_max, degraded, trained_at
		FROM baseline_models
		WHERE condition_group = ? AND metric = ?
	`, conditionGroup, metric)

	var m BaselineModel
	var degraded int
	var trainedAt string
	err := row.Scan(
		&m.ConditionGroup, &m.Metric, &m.Family, &m.CoefA, &m.CoefB,
		&m.RMSE, &m.NSamples, &m.SpeedMin, &m.SpeedMax, &degraded, &trainedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrModelNotFound
	}
	if err != nil {
		return nil, err
	}

	m.Degraded = degraded == 1
	m.TrainedAt, err = time.Parse(time.RFC3339, trainedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing trained_at %q: %w", trainedAt, err)
	}

	return &m, nil
}

// ListBaselineModels retrieves all current models ordered by key
func (db *DB) ListBaselineModels() ([]BaselineModel, error) {
	rows, err := db.Query(`
		SELECT condition_group, metric, family, coef_a, coef_b,
			rmse, n_samples, speed_min, speed_max, degraded, trained_at
		FROM baseline_models
		ORDER BY condition_group, metric
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var models []BaselineModel
	for rows.Next() {
		var m BaselineModel
		var degraded int
		var trainedAt string
		err := rows.Scan(
			&m.ConditionGroup, &m.Metric, &m.Family, &m.CoefA, &m.CoefB,
			&m.RMSE, &m.NSamples, &m.SpeedMin, &m.SpeedMax, &degraded, &trainedAt,
		)
		if err != nil {
			return nil, err
		}
		m.Degraded = degraded == 1
		m.TrainedAt, err = time.Parse(time.RFC3339, trainedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing trained_at %q: %w", trainedAt, err)
		}
		models = append(models, m)
	}

	return models, rows.Err()
}

// GetSnapshots retrieves history snapshots for a key whose window closed at or
// before asOf, most recent first. Windows may overlap; callers pick the
// non-overlapping subset they need.
func (db *DB) GetSnapshots(conditionGroup, metric string, asOf time.Time) ([]BaselineSnapshot, error) {
	rows, err := db.Query(`
		SELECT condition_group, metric, family, coef_a, coef_b,
			n_samples, period_start, period_end, trained_at
		FROM baseline_history
		WHERE condition_group = ? AND metric = ? AND period_end <= ?
		ORDER BY period_start DESC
	`, conditionGroup, metric, asOf.Format(time.RFC3339))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var snaps []BaselineSnapshot
	for rows.Next() {
		var s BaselineSnapshot
		var periodStart, periodEnd, trainedAt string
		err := rows.Scan(
			&s.ConditionGroup, &s.Metric, &s.Family, &s.CoefA, &s.CoefB,
			&s.NSamples, &periodStart, &periodEnd, &trainedAt,
		)
		if err != nil {
			return nil, err
		}
		if s.PeriodStart, err = time.Parse(time.RFC3339, periodStart); err != nil {
			return nil, fmt.Errorf("parsing period_start %q: %w", periodStart, err)
		}
		if s.PeriodEnd, err = time.Parse(time.RFC3339, periodEnd); err != nil {
			return nil, fmt.Errorf("parsing period_end %q: %w", periodEnd, err)
		}
		if s.TrainedAt, err = time.Parse(time.RFC3339, trainedAt); err != nil {
			return nil, fmt.Errorf("parsing trained_at %q: %w", trainedAt, err)
		}
		snaps = append(snaps, s)
	}

	return snaps, rows.Err()
}

// CountSnapshots returns the number of history rows for a key
func (db *DB) CountSnapshots(conditionGroup, metric string) (int, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM baseline_history WHERE condition_group = ? AND metric = ?
	`, conditionGroup, metric).Scan(&count)
	return count, err
}
