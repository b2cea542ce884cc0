package store

import "time"

// Auth represents OAuth tokens for the device service API
type Auth struct {
	AthleteID    int64     `db:"athlete_id"`
	AccessToken  string    `db:"access_token"`
	RefreshToken string    `db:"refresh_token"`
	ExpiresAt    time.Time `db:"expires_at"`
}

// Activity represents a synced running activity with its form aggregates
type Activity struct {
	ID                     int64     `db:"id"`
	AthleteID              int64     `db:"athlete_id"`
	Name                   string    `db:"name"`
	StartDate              time.Time `db:"start_date"`
	StartDateLocal         time.Time `db:"start_date_local"`
	ConditionGroup         string    `db:"condition_group"` // terrain bucket, "all" when untagged
	Distance               float64   `db:"distance"`        // meters
	MovingTime             int       `db:"moving_time"`     // seconds
	ElapsedTime            int       `db:"elapsed_time"`    // seconds
	AverageSpeed           float64   `db:"average_speed"`   // m/s
	AvgGroundContactTime   *float64  `db:"avg_ground_contact_time"`  // ms, nullable
	AvgVerticalOscillation *float64  `db:"avg_vertical_oscillation"` // cm, nullable
	AvgVerticalRatio       *float64  `db:"avg_vertical_ratio"`       // percent, nullable
	AvgCadence             *float64  `db:"avg_cadence"`              // spm, nullable
	SplitsSynced           bool      `db:"splits_synced"`
}

// Split represents one split's running dynamics observation
type Split struct {
	ActivityID          int64    `db:"activity_id"`
	SplitIndex          int      `db:"split_index"`
	Speed               float64  `db:"speed"` // m/s
	GroundContactTime   *float64 `db:"ground_contact_time"`
	VerticalOscillation *float64 `db:"vertical_oscillation"`
	VerticalRatio       *float64 `db:"vertical_ratio"`
	Cadence             *float64 `db:"cadence"`
}

// BaselineModel is the current fitted expectation for one (condition group, metric) key.
// For the power-law family CoefA is alpha and CoefB is the exponent; for the
// linear family CoefA is the intercept and CoefB is the slope.
type BaselineModel struct {
	ConditionGroup string    `db:"condition_group"`
	Metric         string    `db:"metric"`
	Family         string    `db:"family"` // "power" or "linear"
	CoefA          float64   `db:"coef_a"`
	CoefB          float64   `db:"coef_b"`
	RMSE           float64   `db:"rmse"`
	NSamples       int       `db:"n_samples"`
	SpeedMin       float64   `db:"speed_min"` // m/s, observed training range
	SpeedMax       float64   `db:"speed_max"`
	Degraded       bool      `db:"degraded"` // robust fit fell back to plain least squares
	TrainedAt      time.Time `db:"trained_at"`
}

// BaselineSnapshot is an immutable history record of a baseline's coefficients
// over one rolling window. Rows are append-only, ordered by period start.
type BaselineSnapshot struct {
	ConditionGroup string    `db:"condition_group"`
	Metric         string    `db:"metric"`
	Family         string    `db:"family"`
	CoefA          float64   `db:"coef_a"`
	CoefB          float64   `db:"coef_b"`
	NSamples       int       `db:"n_samples"`
	PeriodStart    time.Time `db:"period_start"`
	PeriodEnd      time.Time `db:"period_end"`
	TrainedAt      time.Time `db:"trained_at"`
}

// MetricEvaluation is the per-metric result of evaluating one activity
type MetricEvaluation struct {
	ActivityID       int64   `db:"activity_id"`
	Metric           string  `db:"metric"`
	Expected         float64 `db:"expected"`
	Actual           float64 `db:"actual"`
	Deviation        float64 `db:"deviation"` // signed, unit fixed per metric
	Score            float64 `db:"score"`     // 0..100
	Tier             int     `db:"tier"`      // 1..5 stars
	NeedsImprovement bool    `db:"needs_improvement"`
	Extrapolated     bool    `db:"extrapolated"`
	Text             string  `db:"text"`
}

// ActivityEvaluation is the stored evaluation for one activity, unique per activity ID.
// BaselinesTrainedAt records the newest trained_at among the models the verdict
// was scored against, so a stale verdict is detectable after retraining.
type ActivityEvaluation struct {
	ActivityID         int64     `db:"activity_id"`
	ConditionGroup     string    `db:"condition_group"`
	OverallScore       float64   `db:"overall_score"`
	OverallTier        int       `db:"overall_tier"`
	Summary            string    `db:"summary"`
	BaselinesTrainedAt time.Time `db:"baselines_trained_at"`
	EvaluatedAt        time.Time `db:"evaluated_at"`
	Metrics            []MetricEvaluation
}
