package garmin

import "time"

// Activity represents an activity summary from the API
type Activity struct {
	ID             int64     `json:"activityId"`
	OwnerID        int64     `json:"ownerId"`
	Name           string    `json:"activityName"`
	TypeKey        string    `json:"activityTypeKey"` // "running", "trail_running", ...
	StartTime      time.Time `json:"startTimeGMT"`
	StartTimeLocal time.Time `json:"startTimeLocal"`
	Distance       float64   `json:"distance"`     // meters
	MovingTime     int       `json:"movingTime"`   // seconds
	ElapsedTime    int       `json:"elapsedTime"`  // seconds
	AverageSpeed   float64   `json:"averageSpeed"` // m/s

	// Running dynamics aggregates; zero when the device didn't record them
	AvgGroundContactTime   float64 `json:"avgGroundContactTime"`   // ms
	AvgVerticalOscillation float64 `json:"avgVerticalOscillation"` // cm
	AvgVerticalRatio       float64 `json:"avgVerticalRatio"`       // percent
	AvgCadence             float64 `json:"avgDoubleCadence"`       // steps per minute
}

// Split represents one split's running dynamics from the activity detail endpoint
type Split struct {
	Index               int     `json:"lapIndex"`
	AverageSpeed        float64 `json:"averageSpeed"` // m/s
	GroundContactTime   float64 `json:"avgGroundContactTime"`
	VerticalOscillation float64 `json:"avgVerticalOscillation"`
	VerticalRatio       float64 `json:"avgVerticalRatio"`
	Cadence             float64 `json:"avgDoubleCadence"`
}

// ConditionGroup maps the service's activity type key to the terrain bucket
// baselines are trained under
func ConditionGroup(typeKey string) string {
	switch typeKey {
	case "trail_running":
		return "trail"
	case "track_running":
		return "track"
	case "treadmill_running":
		return "treadmill"
	case "running", "street_running":
		return "road"
	default:
		return "all"
	}
}

// IsRun reports whether an activity type carries running dynamics worth syncing
func IsRun(typeKey string) bool {
	switch typeKey {
	case "running", "street_running", "trail_running", "track_running", "treadmill_running":
		return true
	default:
		return false
	}
}
