package store

import "database/sql"

// migrate runs all database migrations
func migrate(db *sql.DB) error {
	migrations := []string{
		// Authentication (singleton row)
		`CREATE TABLE IF NOT EXISTS auth (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			athlete_id INTEGER NOT NULL,
			access_token TEXT NOT NULL,
			refresh_token TEXT NOT NULL,
			expires_at INTEGER NOT NULL,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		// Activities (summary data plus per-activity form aggregates)
		`CREATE TABLE IF NOT EXISTS activities (
			id INTEGER PRIMARY KEY,
			athlete_id INTEGER NOT NULL,
			name TEXT NOT NULL,
			start_date TEXT NOT NULL,
			start_date_local TEXT NOT NULL,
			condition_group TEXT NOT NULL DEFAULT 'all',
			distance REAL NOT NULL,
			moving_time INTEGER NOT NULL,
			elapsed_time INTEGER NOT NULL,
			average_speed REAL NOT NULL,
			avg_ground_contact_time REAL,
			avg_vertical_oscillation REAL,
			avg_vertical_ratio REAL,
			avg_cadence REAL,
			splits_synced INTEGER DEFAULT 0,
			created_at TEXT DEFAULT CURRENT_TIMESTAMP,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,

		`CREATE INDEX IF NOT EXISTS idx_activities_start_date ON activities(start_date)`,
		`CREATE INDEX IF NOT EXISTS idx_activities_condition ON activities(condition_group)`,

		// Splits (per-split running dynamics observations)
		`CREATE TABLE IF NOT EXISTS splits (
			activity_id INTEGER NOT NULL,
			split_index INTEGER NOT NULL,
			speed REAL NOT NULL,
			ground_contact_time REAL,
			vertical_oscillation REAL,
			vertical_ratio REAL,
			cadence REAL,
			PRIMARY KEY (activity_id, split_index),
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		`CREATE INDEX IF NOT EXISTS idx_splits_activity ON splits(activity_id)`,

		// Current baseline model per (condition group, metric)
		`CREATE TABLE IF NOT EXISTS baseline_models (
			id INTEGER PRIMARY KEY,
			condition_group TEXT NOT NULL,
			metric TEXT NOT NULL,
			family TEXT NOT NULL,
			coef_a REAL NOT NULL,
			coef_b REAL NOT NULL,
			rmse REAL NOT NULL,
			n_samples INTEGER NOT NULL,
			speed_min REAL NOT NULL,
			speed_max REAL NOT NULL,
			degraded INTEGER NOT NULL DEFAULT 0,
			trained_at TEXT NOT NULL,
			UNIQUE (condition_group, metric)
		)`,

		// Append-only baseline snapshots (rolling windows for trend analysis)
		`CREATE TABLE IF NOT EXISTS baseline_history (
			id INTEGER PRIMARY KEY,
			condition_group TEXT NOT NULL,
			metric TEXT NOT NULL,
			family TEXT NOT NULL,
			coef_a REAL NOT NULL,
			coef_b REAL NOT NULL,
			n_samples INTEGER NOT NULL,
			period_start TEXT NOT NULL,
			period_end TEXT NOT NULL,
			trained_at TEXT NOT NULL,
			UNIQUE (condition_group, metric, period_start, period_end)
		)`,

		`CREATE INDEX IF NOT EXISTS idx_history_key ON baseline_history(condition_group, metric, period_start)`,

		// Activity-level evaluation result
		`CREATE TABLE IF NOT EXISTS activity_evaluations (
			activity_id INTEGER PRIMARY KEY,
			condition_group TEXT NOT NULL,
			overall_score REAL NOT NULL,
			overall_tier INTEGER NOT NULL,
			summary TEXT NOT NULL,
			baselines_trained_at TEXT NOT NULL,
			evaluated_at TEXT NOT NULL,
			FOREIGN KEY (activity_id) REFERENCES activities(id) ON DELETE CASCADE
		)`,

		// Per-metric evaluation rows
		`CREATE TABLE IF NOT EXISTS evaluation_metrics (
			activity_id INTEGER NOT NULL,
			metric TEXT NOT NULL,
			expected REAL NOT NULL,
			actual REAL NOT NULL,
			deviation REAL NOT NULL,
			score REAL NOT NULL,
			tier INTEGER NOT NULL,
			needs_improvement INTEGER NOT NULL,
			extrapolated INTEGER NOT NULL,
			text TEXT NOT NULL,
			PRIMARY KEY (activity_id, metric),
			FOREIGN KEY (activity_id) REFERENCES activity_evaluations(activity_id) ON DELETE CASCADE
		)`,

		// Sync State (key-value store for sync tracking)
		`CREATE TABLE IF NOT EXISTS sync_state (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return err
		}
	}

	return nil
}
