package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/intervals"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// RecallResult is the recall state of a set after a rated review.
type RecallResult struct {
	SetID        int64
	Previous     entities.ReviewState
	State        entities.ReviewState
	IntervalDays int
	NextReviewAt *time.Time
}

// SetRecallScheduler advances the ease-factor sub-state of question sets.
// It never changes the UUE scores or the threshold schedule of a set.
type SetRecallScheduler struct {
	clock
	store    repository.Store
	strategy intervals.Strategy
	logger   *zap.Logger
}

// NewSetRecallScheduler creates the scheduler.
func NewSetRecallScheduler(store repository.Store, strategy intervals.Strategy, logger *zap.Logger) *SetRecallScheduler {
	return &SetRecallScheduler{
		clock:    systemClock(),
		store:    store,
		strategy: strategy,
		logger:   logger,
	}
}

// RecordRecall applies a 0..5 quality rating to the recall state of a set
// owned by userID.
func (s *SetRecallScheduler) RecordRecall(ctx context.Context, userID, setID int64, quality int) (*RecallResult, error) {
	ctx, span := tracer.Start(ctx, "SetRecallScheduler.RecordRecall")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("set_id", setID))

	if quality < 0 || quality > intervals.MaxQuality {
		return nil, validationErr("quality %d outside 0..%d", quality, intervals.MaxQuality)
	}

	now := s.now()
	res := &RecallResult{SetID: setID}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		set, err := r.QuestionSets().GetForUpdate(ctx, setID)
		if err != nil {
			return err
		}
		if set.UserID != userID {
			return fmt.Errorf("set %d of another user: %w", setID, repository.ErrQuestionSetNotFound)
		}

		state := set.Recall
		if !state.Stage.Valid() {
			state = entities.NewReviewState()
		}
		res.Previous = state

		schedule, err := s.strategy.Next(intervals.Input{Quality: quality, State: state, Now: now})
		if err != nil {
			return err
		}
		set.Recall = schedule.State
		set.UpdatedAt = now

		res.State = schedule.State
		res.IntervalDays = schedule.IntervalDays
		res.NextReviewAt = schedule.State.NextReviewAt
		return r.QuestionSets().Update(ctx, set)
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify("record set recall", err)
	}

	s.logger.Info("set recall recorded",
		zap.Int64("user_id", userID),
		zap.Int64("set_id", setID),
		zap.Int("quality", quality),
		zap.String("sr_stage", string(res.State.Stage)),
		zap.Float64("ease", res.State.EaseFactor),
	)
	return res, nil
}
