package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"runform/internal/baseline"
	"runform/internal/config"
	"runform/internal/store"
)

// TrainService fits baseline models over the rolling observation window
type TrainService struct {
	store      *store.DB
	windowDays int
	workers    int
	opts       baseline.TrainOptions
}

// NewTrainService creates a train service from baseline config
func NewTrainService(db *store.DB, cfg config.BaselineConfig) *TrainService {
	opts := baseline.DefaultTrainOptions()
	if cfg.MinSamples > 0 {
		opts.MinSamples = cfg.MinSamples
	}

	windowDays := cfg.WindowDays
	if windowDays <= 0 {
		windowDays = DefaultWindowDays
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = DefaultWorkers
	}

	return &TrainService{
		store:      db,
		windowDays: windowDays,
		workers:    workers,
		opts:       opts,
	}
}

// TrainStatus classifies the outcome of training one baseline key
type TrainStatus string

const (
	// TrainTrained means a new model replaced the current one
	TrainTrained TrainStatus = "trained"
	// TrainDegraded means a model was stored but the robust fit fell back
	// to plain least squares
	TrainDegraded TrainStatus = "degraded"
	// TrainInsufficient means too few observations; the current model is untouched
	TrainInsufficient TrainStatus = "insufficient"
	// TrainRejected means the fit violated a model invariant; the current
	// model is untouched
	TrainRejected TrainStatus = "rejected"
	// TrainFailed means an unexpected error
	TrainFailed TrainStatus = "failed"
)

// TrainOutcome is the per-key result of a training pass
type TrainOutcome struct {
	ConditionGroup string
	Metric         baseline.Metric
	Status         TrainStatus
	Model          *store.BaselineModel
	Err            error
}

// TrainReport summarizes one full training pass
type TrainReport struct {
	Trained      int
	Degraded     int
	Insufficient int
	Rejected     int
	Failed       int
	Outcomes     []TrainOutcome
	PeriodStart  time.Time
	PeriodEnd    time.Time
}

// TrainAll refits every (condition group, metric) baseline from splits inside
// the rolling window. Keys are trained concurrently; a key that cannot produce
// a valid model leaves the previously stored model in place.
func (s *TrainService) TrainAll(ctx context.Context) (*TrainReport, error) {
	now := time.Now().UTC()
	periodStart := now.AddDate(0, 0, -s.windowDays)

	groups, err := s.store.ListConditionGroups()
	if err != nil {
		return nil, fmt.Errorf("listing condition groups: %w", err)
	}
	groups = ensureAllGroup(groups)

	type key struct {
		group  string
		metric baseline.Metric
	}

	var keys []key
	for _, g := range groups {
		for _, m := range baseline.Tracked() {
			keys = append(keys, key{group: g, metric: m})
		}
	}

	report := &TrainReport{
		PeriodStart: periodStart,
		PeriodEnd:   now,
	}

	work := make(chan key)
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for k := range work {
				outcome := s.trainOne(k.group, k.metric, periodStart, now)
				mu.Lock()
				report.Outcomes = append(report.Outcomes, outcome)
				switch outcome.Status {
				case TrainTrained:
					report.Trained++
				case TrainDegraded:
					report.Trained++
					report.Degraded++
				case TrainInsufficient:
					report.Insufficient++
				case TrainRejected:
					report.Rejected++
				case TrainFailed:
					report.Failed++
				}
				mu.Unlock()
			}
		}()
	}

	for _, k := range keys {
		select {
		case <-ctx.Done():
			close(work)
			wg.Wait()
			return report, ctx.Err()
		case work <- k:
		}
	}
	close(work)
	wg.Wait()

	return report, nil
}

// trainOne fits and persists the baseline for a single key
func (s *TrainService) trainOne(group string, metric baseline.Metric, periodStart, periodEnd time.Time) TrainOutcome {
	outcome := TrainOutcome{ConditionGroup: group, Metric: metric}

	splits, err := s.store.GetSplitsSince(group, periodStart)
	if err != nil {
		outcome.Status = TrainFailed
		outcome.Err = fmt.Errorf("loading splits for %s/%s: %w", group, metric, err)
		return outcome
	}

	var obs []baseline.Observation
	for _, sp := range splits {
		v := baseline.SplitValue(sp, metric)
		if v == nil {
			continue
		}
		obs = append(obs, baseline.Observation{Speed: sp.Speed, Value: *v})
	}

	model, err := baseline.Train(obs, group, metric, s.opts)
	switch {
	case errors.Is(err, baseline.ErrInsufficientData):
		outcome.Status = TrainInsufficient
		outcome.Err = err
		return outcome
	case errors.Is(err, baseline.ErrNonMonotonicModel):
		outcome.Status = TrainRejected
		outcome.Err = err
		return outcome
	case err != nil:
		outcome.Status = TrainFailed
		outcome.Err = fmt.Errorf("training %s/%s: %w", group, metric, err)
		return outcome
	}

	if err := s.store.SaveBaselineModel(model, periodStart, periodEnd); err != nil {
		outcome.Status = TrainFailed
		outcome.Err = fmt.Errorf("saving model for %s/%s: %w", group, metric, err)
		return outcome
	}

	outcome.Model = model
	if model.Degraded {
		outcome.Status = TrainDegraded
	} else {
		outcome.Status = TrainTrained
	}
	return outcome
}

// ensureAllGroup guarantees the pooled "all" group is always trained,
// even before any tagged activities exist
func ensureAllGroup(groups []string) []string {
	for _, g := range groups {
		if g == "all" {
			return groups
		}
	}
	return append(groups, "all")
}
