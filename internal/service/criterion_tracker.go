package service

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/intervals"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// AttemptOptions adjust a single attempt.
type AttemptOptions struct {
	BypassGap         bool     // apply the attempt even inside the minimum gap
	MinGapDays        *int     // overrides the user's gap for this call
	ThresholdOverride *float64 // replaces the criterion's mastery threshold
}

// AttemptResult reports the outcome of RecordAttempt.
type AttemptResult struct {
	UserID           int64
	CriterionID      int64
	SectionID        int64
	Stage            entities.UueStage
	Applied          bool // false when the minimum gap blocked the attempt
	PreviousScore    float64
	MasteryScore     float64
	IsMastered       bool
	Attempts         int
	StageProgression bool          // the attempt flipped IsMastered from false to true
	WaitRemaining    time.Duration // non-zero only when Applied is false
	NextAttemptAt    *time.Time
	NextReviewAt     *time.Time
}

// CriterionTracker owns per-(user, criterion) mastery state.
type CriterionTracker struct {
	clock
	store    repository.Store
	settings SettingsProvider
	strategy intervals.Strategy
	logger   *zap.Logger
}

// NewCriterionTracker creates a tracker. strategy schedules the next
// review of the criterion after every applied attempt.
func NewCriterionTracker(store repository.Store, settings SettingsProvider, strategy intervals.Strategy, logger *zap.Logger) *CriterionTracker {
	return &CriterionTracker{
		clock:    systemClock(),
		store:    store,
		settings: settings,
		strategy: strategy,
		logger:   logger,
	}
}

// RecordAttempt applies one performance in [0, 1] to the user's mastery of
// the criterion. Attempts inside the minimum gap are not errors: they return
// the unchanged state with Applied false and the remaining wait.
func (t *CriterionTracker) RecordAttempt(ctx context.Context, userID, criterionID int64, performance float64, opts AttemptOptions) (*AttemptResult, error) {
	ctx, span := tracer.Start(ctx, "CriterionTracker.RecordAttempt")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("criterion_id", criterionID))

	if math.IsNaN(performance) || performance < 0 || performance > 1 {
		return nil, validationErr("performance %v outside [0, 1]", performance)
	}
	if o := opts.ThresholdOverride; o != nil && (math.IsNaN(*o) || *o < 0 || *o > 1) {
		return nil, validationErr("threshold override %v outside [0, 1]", *o)
	}
	if opts.MinGapDays != nil && *opts.MinGapDays < 0 {
		return nil, validationErr("negative min gap days")
	}

	settings, err := t.settings.Get(ctx, userID)
	if err != nil {
		return nil, classify("record attempt", err)
	}
	minGap := t.minGap(settings, opts)

	now := t.now()
	var res *AttemptResult
	err = t.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		criterion, err := r.Criteria().GetByID(ctx, criterionID)
		if err != nil {
			return err
		}

		if _, err := r.Masteries().CreateIfAbsent(ctx, entities.NewUserCriterionMastery(userID, criterion, now)); err != nil {
			return err
		}
		m, err := r.Masteries().GetForUpdate(ctx, userID, criterionID)
		if err != nil {
			return err
		}

		res = &AttemptResult{
			UserID:        userID,
			CriterionID:   criterionID,
			SectionID:     criterion.SectionID,
			Stage:         criterion.Stage,
			PreviousScore: m.MasteryScore,
		}

		if wait := m.GapRemaining(now, minGap); wait > 0 {
			next := now.Add(wait)
			res.WaitRemaining = wait
			res.NextAttemptAt = &next
			res.fill(m)
			return nil
		}

		threshold := criterion.MasteryThreshold
		if opts.ThresholdOverride != nil {
			threshold = *opts.ThresholdOverride
		}
		res.StageProgression = m.ApplyScore(performance, threshold, now)

		schedule, err := t.strategy.Next(intervals.Input{
			Score:   m.MasteryScore * 100,
			Quality: intervals.QualityFromPerformance(performance),
			State:   m.Review,
			Now:     now,
		})
		if err != nil {
			return err
		}
		m.Review = schedule.State

		if err := r.Masteries().Update(ctx, m); err != nil {
			return err
		}

		res.Applied = true
		res.fill(m)
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify("record attempt", err)
	}

	if !res.Applied {
		t.logger.Debug("attempt inside minimum gap",
			zap.Int64("user_id", userID),
			zap.Int64("criterion_id", criterionID),
			zap.Duration("wait", res.WaitRemaining),
		)
		return res, nil
	}

	t.logger.Info("criterion attempt recorded",
		zap.Int64("user_id", userID),
		zap.Int64("criterion_id", criterionID),
		zap.Float64("score", res.MasteryScore),
		zap.Bool("mastered", res.IsMastered),
		zap.Bool("stage_progression", res.StageProgression),
	)
	return res, nil
}

func (t *CriterionTracker) minGap(settings *entities.UserSettings, opts AttemptOptions) time.Duration {
	if opts.BypassGap || settings.AllowRetrySameDay {
		return 0
	}
	if opts.MinGapDays != nil {
		return time.Duration(*opts.MinGapDays) * 24 * time.Hour
	}
	return settings.MinGap()
}

func (r *AttemptResult) fill(m *entities.UserCriterionMastery) {
	r.MasteryScore = m.MasteryScore
	r.IsMastered = m.IsMastered
	r.Attempts = m.Attempts
	r.NextReviewAt = m.Review.NextReviewAt
}
