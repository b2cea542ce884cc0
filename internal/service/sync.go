package service

import (
	"context"
	"fmt"
	"time"

	"runform/internal/garmin"
	"runform/internal/store"
)

// SyncService orchestrates syncing data from Garmin Connect
type SyncService struct {
	client *garmin.Client
	store  *store.DB
	train  *TrainService
	eval   *EvalService
}

// NewSyncService creates a new sync service
func NewSyncService(client *garmin.Client, db *store.DB, train *TrainService, eval *EvalService) *SyncService {
	return &SyncService{
		client: client,
		store:  db,
		train:  train,
		eval:   eval,
	}
}

// SyncProgress reports progress during sync
type SyncProgress struct {
	Phase           string // "activities", "splits", "train", "evaluate"
	Total           int
	Completed       int
	CurrentActivity string
	Error           error
}

// SyncResult contains the results of a sync operation
type SyncResult struct {
	ActivitiesFetched int
	ActivitiesStored  int
	SplitsFetched     int
	Trained           int
	Evaluated         int
	Errors            []error
}

// SyncAll performs a full sync: activities -> splits -> train -> evaluate
func (s *SyncService) SyncAll(ctx context.Context, progress chan<- SyncProgress) (*SyncResult, error) {
	if progress != nil {
		defer close(progress)
	}

	result := &SyncResult{}

	// Phase 1: Sync activity summaries
	if err := s.syncActivities(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing activities: %w", err)
	}

	// Phase 2: Fetch splits for activities that need them
	if err := s.syncSplits(ctx, progress, result); err != nil {
		return result, fmt.Errorf("syncing splits: %w", err)
	}

	// Phase 3: Refit baselines when new observations arrived
	retrained, err := s.trainBaselines(ctx, progress, result)
	if err != nil {
		return result, fmt.Errorf("training baselines: %w", err)
	}

	// Phase 4: Score activities. Fresh baselines invalidate stored verdicts,
	// so a retrain forces a full pass instead of only the pending ones.
	if err := s.evaluate(ctx, progress, result, retrained); err != nil {
		return result, fmt.Errorf("evaluating activities: %w", err)
	}

	return result, nil
}

// trainBaselines refits every baseline key after a sync that brought new
// observations. Reports whether any model was replaced.
func (s *SyncService) trainBaselines(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) (bool, error) {
	if result.ActivitiesStored == 0 && result.SplitsFetched == 0 {
		return false, nil
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "train"}
	}

	report, err := s.train.TrainAll(ctx)
	if report != nil {
		result.Trained = report.Trained
		for _, o := range report.Outcomes {
			if o.Status == TrainFailed {
				result.Errors = append(result.Errors, o.Err)
			}
		}
	}
	if err != nil {
		return false, err
	}
	return report.Trained > 0, nil
}

// syncActivities fetches all new activities and stores the runs
func (s *SyncService) syncActivities(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	// Get last sync time
	lastSyncStr, _ := s.store.GetSyncState("last_activity_sync")
	var after time.Time
	if lastSyncStr != "" {
		after, _ = time.Parse(time.RFC3339, lastSyncStr)
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "activities", Total: 0, Completed: 0}
	}

	page := 1
	perPage := 100

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		activities, err := s.client.GetActivities(ctx, after, page, perPage)
		if err != nil {
			return fmt.Errorf("fetching page %d: %w", page, err)
		}

		if len(activities) == 0 {
			break
		}

		result.ActivitiesFetched += len(activities)

		for _, a := range activities {
			// Only runs carry running dynamics
			if !garmin.IsRun(a.TypeKey) {
				continue
			}
			if err := s.store.UpsertActivity(convertActivity(a)); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("storing activity %d: %w", a.ID, err))
				continue
			}
			result.ActivitiesStored++
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:     "activities",
				Total:     result.ActivitiesFetched,
				Completed: result.ActivitiesStored,
			}
		}

		if len(activities) < perPage {
			break // Last page
		}

		page++
	}

	// Update last sync time
	s.store.SetSyncState("last_activity_sync", time.Now().Format(time.RFC3339))

	return nil
}

// syncSplits fetches per-lap dynamics for activities that need them
func (s *SyncService) syncSplits(ctx context.Context, progress chan<- SyncProgress, result *SyncResult) error {
	// Limit to batch size to respect rate limits
	activities, err := s.store.GetActivitiesNeedingSplits(SplitSyncBatchSize)
	if err != nil {
		return fmt.Errorf("getting activities needing splits: %w", err)
	}

	if len(activities) == 0 {
		return nil
	}

	if progress != nil {
		progress <- SyncProgress{Phase: "splits", Total: len(activities), Completed: 0}
	}

	for i, activity := range activities {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if progress != nil {
			progress <- SyncProgress{
				Phase:           "splits",
				Total:           len(activities),
				Completed:       i,
				CurrentActivity: activity.Name,
			}
		}

		splits, err := s.client.GetActivitySplits(ctx, activity.ID)
		if err != nil {
			// Log error but continue - some activities may not have splits
			result.Errors = append(result.Errors, fmt.Errorf("activity %d (%s): %w", activity.ID, activity.Name, err))
			continue
		}

		points := convertSplits(activity.ID, splits)
		if len(points) > 0 {
			if err := s.store.SaveSplits(activity.ID, points); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("saving splits for %d: %w", activity.ID, err))
				continue
			}
		}

		// Mark activity as having splits synced
		if err := s.store.MarkSplitsSynced(activity.ID); err != nil {
			result.Errors = append(result.Errors, fmt.Errorf("marking synced for %d: %w", activity.ID, err))
			continue
		}

		result.SplitsFetched++
	}

	if progress != nil {
		progress <- SyncProgress{
			Phase:     "splits",
			Total:     len(activities),
			Completed: len(activities),
		}
	}

	return nil
}

// evaluate scores activities, either every one (after a retrain) or only
// those without a stored verdict
func (s *SyncService) evaluate(ctx context.Context, progress chan<- SyncProgress, result *SyncResult, all bool) error {
	if progress != nil {
		progress <- SyncProgress{Phase: "evaluate"}
	}

	var batch *BatchResult
	var err error
	if all {
		batch, err = s.eval.ReevaluateAll(ctx)
	} else {
		batch, err = s.eval.EvaluatePending(ctx)
	}
	if batch != nil {
		result.Evaluated = batch.Succeeded
		for _, f := range batch.Failed {
			result.Errors = append(result.Errors, fmt.Errorf("evaluating %d: %w", f.ActivityID, f.Err))
		}
	}
	if err != nil {
		return err
	}

	if progress != nil {
		progress <- SyncProgress{
			Phase:     "evaluate",
			Total:     result.Evaluated,
			Completed: result.Evaluated,
		}
	}

	return nil
}

// RateLimitStatus returns the current rate limit status from the client
func (s *SyncService) RateLimitStatus() (shortRemaining, dailyRemaining int) {
	return s.client.RateLimitStatus()
}

// convertActivity converts an API activity to a store activity
func convertActivity(a garmin.Activity) *store.Activity {
	activity := &store.Activity{
		ID:             a.ID,
		AthleteID:      a.OwnerID,
		Name:           a.Name,
		StartDate:      a.StartTime,
		StartDateLocal: a.StartTimeLocal,
		ConditionGroup: garmin.ConditionGroup(a.TypeKey),
		Distance:       a.Distance,
		MovingTime:     a.MovingTime,
		ElapsedTime:    a.ElapsedTime,
		AverageSpeed:   a.AverageSpeed,
		SplitsSynced:   false,
	}

	if a.AvgGroundContactTime > 0 {
		activity.AvgGroundContactTime = &a.AvgGroundContactTime
	}
	if a.AvgVerticalOscillation > 0 {
		activity.AvgVerticalOscillation = &a.AvgVerticalOscillation
	}
	if a.AvgVerticalRatio > 0 {
		activity.AvgVerticalRatio = &a.AvgVerticalRatio
	}
	if a.AvgCadence > 0 {
		activity.AvgCadence = &a.AvgCadence
	}

	return activity
}

// convertSplits converts API splits to store splits, keeping only splits
// with a usable speed
func convertSplits(activityID int64, splits []garmin.Split) []store.Split {
	var out []store.Split
	for _, sp := range splits {
		if sp.AverageSpeed <= 0 {
			continue
		}
		s := store.Split{
			ActivityID: activityID,
			SplitIndex: sp.Index,
			Speed:      sp.AverageSpeed,
		}
		if sp.GroundContactTime > 0 {
			v := sp.GroundContactTime
			s.GroundContactTime = &v
		}
		if sp.VerticalOscillation > 0 {
			v := sp.VerticalOscillation
			s.VerticalOscillation = &v
		}
		if sp.VerticalRatio > 0 {
			v := sp.VerticalRatio
			s.VerticalRatio = &v
		}
		if sp.Cadence > 0 {
			v := sp.Cadence
			s.Cadence = &v
		}
		out = append(out, s)
	}
	return out
}
