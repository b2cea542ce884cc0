package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrEvaluationNotFound is returned when no evaluation is stored for an activity
var ErrEvaluationNotFound = errors.New("evaluation not found")

// SaveEvaluation upserts an activity's evaluation keyed by activity ID.
// The per-metric rows are replaced wholesale in the same transaction so a
// re-evaluation never leaves stale metrics behind.
func (db *DB) SaveEvaluation(e *ActivityEvaluation) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO activity_evaluations (
			activity_id, condition_group, overall_score, overall_tier, summary,
			baselines_trained_at, evaluated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(activity_id) DO UPDATE SET
			condition_group = excluded.condition_group,
			overall_score = excluded.overall_score,
			overall_tier = excluded.overall_tier,
			summary = excluded.summary,
			baselines_trained_at = excluded.baselines_trained_at,
			evaluated_at = excluded.evaluated_at
	`,
		e.ActivityID, e.ConditionGroup, e.OverallScore, e.OverallTier, e.Summary,
		e.BaselinesTrainedAt.Format(time.RFC3339), e.EvaluatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upserting evaluation: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM evaluation_metrics WHERE activity_id = ?`, e.ActivityID); err != nil {
		return fmt.Errorf("clearing metric rows: %w", err)
	}

	for _, m := range e.Metrics {
		_, err := tx.Exec(`
			INSERT INTO evaluation_metrics (
				activity_id, metric, expected, actual, deviation,
				score, tier, needs_improvement, extrapolated, text
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			e.ActivityID, m.Metric, m.Expected, m.Actual, m.Deviation,
			m.Score, m.Tier, boolToInt(m.NeedsImprovement), boolToInt(m.Extrapolated), m.Text,
		)
		if err != nil {
			return fmt.Errorf("inserting metric row %s: %w", m.Metric, err)
		}
	}

	return tx.Commit()
}

// GetEvaluation retrieves an activity's evaluation with its per-metric rows
func (db *DB) GetEvaluation(activityID int64) (*ActivityEvaluation, error) {
	row := db.QueryRow(`
		SELECT activity_id, condition_group, overall_score, overall_tier, summary,
			baselines_trained_at, evaluated_at
		FROM activity_evaluations
		WHERE activity_id = ?
	`, activityID)

	var e ActivityEvaluation
	var trainedAt, evaluatedAt string
	err := row.Scan(&e.ActivityID, &e.ConditionGroup, &e.OverallScore, &e.OverallTier, &e.Summary,
		&trainedAt, &evaluatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEvaluationNotFound
	}
	if err != nil {
		return nil, err
	}

	e.BaselinesTrainedAt, err = time.Parse(time.RFC3339, trainedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing baselines_trained_at %q: %w", trainedAt, err)
	}
	e.EvaluatedAt, err = time.Parse(time.RFC3339, evaluatedAt)
	if err != nil {
		return nil, fmt.Errorf("parsing evaluated_at %q: %w", evaluatedAt, err)
	}

	e.Metrics, err = db.getEvaluationMetrics(activityID)
	if err != nil {
		return nil, err
	}

	return &e, nil
}

// getEvaluationMetrics retrieves the per-metric rows for one evaluation
func (db *DB) getEvaluationMetrics(activityID int64) ([]MetricEvaluation, error) {
	rows, err := db.Query(`
		SELECT activity_id, metric, expected, actual, deviation,
			score, tier, needs_improvement, extrapolated, text
		FROM evaluation_metrics
		WHERE activity_id = ?
		ORDER BY metric
	`, activityID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var metrics []MetricEvaluation
	for rows.Next() {
		var m MetricEvaluation
		var needsImprovement, extrapolated int
		err := rows.Scan(
			&m.ActivityID, &m.Metric, &m.Expected, &m.Actual, &m.Deviation,
			&m.Score, &m.Tier, &needsImprovement, &extrapolated, &m.Text,
		)
		if err != nil {
			return nil, err
		}
		m.NeedsImprovement = needsImprovement == 1
		m.Extrapolated = extrapolated == 1
		metrics = append(metrics, m)
	}

	return metrics, rows.Err()
}

// ListEvaluations retrieves recent evaluations ordered by activity start date descending
func (db *DB) ListEvaluations(limit, offset int) ([]ActivityEvaluation, error) {
	rows, err := db.Query(`
		SELECT e.activity_id, e.condition_group, e.overall_score, e.overall_tier, e.summary,
			e.baselines_trained_at, e.evaluated_at
		FROM activity_evaluations e
		JOIN activities a ON a.id = e.activity_id
		ORDER BY a.start_date DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var evals []ActivityEvaluation
	for rows.Next() {
		var e ActivityEvaluation
		var trainedAt, evaluatedAt string
		err := rows.Scan(&e.ActivityID, &e.ConditionGroup, &e.OverallScore, &e.OverallTier, &e.Summary,
			&trainedAt, &evaluatedAt)
		if err != nil {
			return nil, err
		}
		e.BaselinesTrainedAt, err = time.Parse(time.RFC3339, trainedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing baselines_trained_at %q: %w", trainedAt, err)
		}
		e.EvaluatedAt, err = time.Parse(time.RFC3339, evaluatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing evaluated_at %q: %w", evaluatedAt, err)
		}
		evals = append(evals, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range evals {
		evals[i].Metrics, err = db.getEvaluationMetrics(evals[i].ActivityID)
		if err != nil {
			return nil, err
		}
	}

	return evals, nil
}

// CountEvaluations returns the number of stored evaluations
func (db *DB) CountEvaluations() (int, error) {
	var count int
	err := db.QueryRow(`SELECT COUNT(*) FROM activity_evaluations`).Scan(&count)
	return count, err
}
