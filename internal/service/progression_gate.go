package service

import (
	"context"
	"fmt"
	"math"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// MinutesPerCriterion is the time estimate for an unmastered criterion on
// the learning path.
const MinutesPerCriterion = 5

// AdvanceCheck is the result of CanAdvance.
type AdvanceCheck struct {
	CanAdvance      bool
	CurrentStage    entities.UueStage
	NextStage       entities.UueStage // empty for EXPLORE
	Mastery         StageMastery
	MissingCriteria []CriterionBreakdown
	ProgressPercent float64 // mastered criteria / total criteria * 100
	Recommendations []string
}

// UnlockResult reports the criteria materialized for the unlocked stage.
type UnlockResult struct {
	UserID            int64
	SectionID         int64
	UnlockedStage     entities.UueStage
	TotalCriteria     int
	MasteredCriteria  int
	RemainingCriteria int
	CreatedRows       int // rows that did not exist before the unlock
}

// StageStatus is the status of a stage on the learning path.
type StageStatus string

const (
	StageLocked     StageStatus = "LOCKED"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageMastered   StageStatus = "MASTERED"
)

// CriterionStatus is the status of a criterion on the learning path.
type CriterionStatus string

const (
	CriterionNotStarted CriterionStatus = "NOT_STARTED"
	CriterionInProgress CriterionStatus = "IN_PROGRESS"
	CriterionMastered   CriterionStatus = "MASTERED"
)

// PathCriterion is one criterion on the learning path.
type PathCriterion struct {
	CriterionBreakdown
	Status CriterionStatus
}

// PathStage is one stage on the learning path.
type PathStage struct {
	Stage    entities.UueStage
	Status   StageStatus
	Score    float64
	Criteria []PathCriterion
}

// LearningPath is the per-stage view of a user's progress in a section.
type LearningPath struct {
	UserID                    int64
	SectionID                 int64
	CurrentStage              entities.UueStage
	Stages                    []PathStage
	EstimatedMinutesRemaining int
}

// ProgressionGate is the UNDERSTAND → USE → EXPLORE state machine of a
// (user, section) pair. Stages only move forward.
type ProgressionGate struct {
	clock
	store      repository.Store
	settings   SettingsProvider
	aggregator *StageAggregator
	logger     *zap.Logger
}

// NewProgressionGate creates a progression gate on top of the aggregator.
func NewProgressionGate(store repository.Store, settings SettingsProvider, aggregator *StageAggregator, logger *zap.Logger) *ProgressionGate {
	return &ProgressionGate{
		clock:      systemClock(),
		store:      store,
		settings:   settings,
		aggregator: aggregator,
		logger:     logger,
	}
}

// CanAdvance reports whether currentStage is mastered, together with the
// criteria that still block it.
func (g *ProgressionGate) CanAdvance(ctx context.Context, userID, sectionID int64, currentStage entities.UueStage) (*AdvanceCheck, error) {
	ctx, span := tracer.Start(ctx, "ProgressionGate.CanAdvance")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("section_id", sectionID))

	sm, err := g.aggregator.StageMastery(ctx, sectionID, currentStage, userID)
	if err != nil {
		return nil, err
	}

	check := &AdvanceCheck{
		CanAdvance:   sm.IsMastered,
		CurrentStage: currentStage,
		Mastery:      *sm,
	}
	if next, ok := currentStage.Next(); ok {
		check.NextStage = next
	}
	for _, c := range sm.Criteria {
		if !c.IsMastered {
			check.MissingCriteria = append(check.MissingCriteria, c)
		}
	}
	if sm.TotalCriteria > 0 {
		check.ProgressPercent = float64(sm.MasteredCriteria) / float64(sm.TotalCriteria) * 100
	}
	check.Recommendations = advanceRecommendations(check)
	return check, nil
}

// Unlock materializes zero-initialized mastery rows for every criterion of
// the stage after currentStage. It fails with ErrStageNotMastered when
// currentStage is not mastered, with ErrFinalStage for EXPLORE and with
// ErrEmptyStage when the next stage has no criteria to unlock. Rows that
// already exist are left untouched.
func (g *ProgressionGate) Unlock(ctx context.Context, userID, sectionID int64, currentStage entities.UueStage) (*UnlockResult, error) {
	ctx, span := tracer.Start(ctx, "ProgressionGate.Unlock")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID), attribute.Int64("section_id", sectionID))

	if !currentStage.Valid() {
		return nil, validationErr("unknown uue stage %q", currentStage)
	}
	next, ok := currentStage.Next()
	if !ok {
		return nil, fmt.Errorf("unlock next stage: %w", ErrFinalStage)
	}

	settings, err := g.settings.Get(ctx, userID)
	if err != nil {
		return nil, classify("unlock next stage", err)
	}

	now := g.now()
	res := &UnlockResult{UserID: userID, SectionID: sectionID, UnlockedStage: next}
	err = g.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Sections().GetByID(ctx, sectionID); err != nil {
			return err
		}

		sm, err := computeStageMastery(ctx, r, sectionID, currentStage, userID, tierOf(settings))
		if err != nil {
			return err
		}
		if !sm.IsMastered {
			return fmt.Errorf("%w: %s at %.2f, threshold %.2f", ErrStageNotMastered, currentStage, sm.Score, sm.Threshold)
		}

		criteria, err := r.Criteria().ListBySectionStage(ctx, sectionID, next)
		if err != nil {
			return err
		}
		if len(criteria) == 0 {
			return fmt.Errorf("%w: %s in section %d", ErrEmptyStage, next, sectionID)
		}
		for _, c := range criteria {
			created, err := r.Masteries().CreateIfAbsent(ctx, entities.NewUserCriterionMastery(userID, c, now))
			if err != nil {
				return err
			}
			if created {
				res.CreatedRows++
				continue
			}
			m, err := r.Masteries().Get(ctx, userID, c.ID)
			if err != nil {
				return err
			}
			if m.IsMastered {
				res.MasteredCriteria++
			}
		}
		res.TotalCriteria = len(criteria)
		res.RemainingCriteria = res.TotalCriteria - res.MasteredCriteria
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify("unlock next stage", err)
	}

	g.logger.Info("stage unlocked",
		zap.Int64("user_id", userID),
		zap.Int64("section_id", sectionID),
		zap.String("stage", string(next)),
		zap.Int("criteria", res.TotalCriteria),
		zap.Int("created", res.CreatedRows),
	)
	return res, nil
}

// CurrentStage is the highest stage for which the user has any mastery
// rows in the section, UNDERSTAND when there are none.
func (g *ProgressionGate) CurrentStage(ctx context.Context, userID, sectionID int64) (entities.UueStage, error) {
	var stage entities.UueStage
	err := g.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		stage, err = currentStage(ctx, r, userID, sectionID)
		return err
	})
	if err != nil {
		return "", classify("current stage", err)
	}
	return stage, nil
}

// LearningPath returns the status of every stage and criterion of the
// section with a time estimate for the unmastered remainder.
func (g *ProgressionGate) LearningPath(ctx context.Context, userID, sectionID int64) (*LearningPath, error) {
	ctx, span := tracer.Start(ctx, "ProgressionGate.LearningPath")
	defer span.End()

	settings, err := g.settings.Get(ctx, userID)
	if err != nil {
		return nil, classify("learning path", err)
	}

	path := &LearningPath{UserID: userID, SectionID: sectionID}
	err = g.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Sections().GetByID(ctx, sectionID); err != nil {
			return err
		}
		current, err := currentStage(ctx, r, userID, sectionID)
		if err != nil {
			return err
		}
		path.CurrentStage = current

		for _, stage := range entities.Stages {
			sm, err := computeStageMastery(ctx, r, sectionID, stage, userID, tierOf(settings))
			if err != nil {
				return err
			}
			path.Stages = append(path.Stages, buildPathStage(sm, current))
		}
		return nil
	})
	if err != nil {
		return nil, classify("learning path", err)
	}

	for _, ps := range path.Stages {
		if ps.Status == StageMastered {
			continue
		}
		for _, c := range ps.Criteria {
			if c.Status != CriterionMastered {
				path.EstimatedMinutesRemaining += MinutesPerCriterion
			}
		}
	}
	return path, nil
}

func currentStage(ctx context.Context, r repository.Repos, userID, sectionID int64) (entities.UueStage, error) {
	rows, err := r.Masteries().ListBySection(ctx, userID, sectionID)
	if err != nil {
		return "", err
	}
	current := entities.StageUnderstand
	for _, m := range rows {
		if m.Stage.Index() > current.Index() {
			current = m.Stage
		}
	}
	return current, nil
}

func buildPathStage(sm *StageMastery, current entities.UueStage) PathStage {
	ps := PathStage{Stage: sm.Stage, Score: sm.Score}
	switch {
	case sm.IsMastered:
		ps.Status = StageMastered
	case sm.Stage.Index() <= current.Index():
		ps.Status = StageInProgress
	default:
		ps.Status = StageLocked
	}

	for _, c := range sm.Criteria {
		status := CriterionNotStarted
		switch {
		case c.IsMastered:
			status = CriterionMastered
		case c.Attempts > 0:
			status = CriterionInProgress
		}
		ps.Criteria = append(ps.Criteria, PathCriterion{CriterionBreakdown: c, Status: status})
	}
	return ps
}

func advanceRecommendations(check *AdvanceCheck) []string {
	sm := check.Mastery
	if sm.TotalCriteria == 0 {
		return []string{fmt.Sprintf("No criteria are defined for the %s stage yet.", sm.Stage)}
	}
	if check.CanAdvance {
		if check.NextStage == "" {
			return []string{"All stages are mastered. Keep reviewing to retain what you learned."}
		}
		return []string{fmt.Sprintf("Ready to advance to the %s stage.", check.NextStage)}
	}

	recs := []string{fmt.Sprintf(
		"Master %d more criteria to reach the %s threshold of %.0f%%.",
		len(check.MissingCriteria), sm.Tier, sm.Threshold*100,
	)}
	gap := sm.Threshold - sm.Score
	if gap > 0 {
		recs = append(recs, fmt.Sprintf("Stage mastery is %.0f%%, %.0f points below the threshold.",
			math.Round(sm.Score*100), math.Ceil(gap*100)))
	}
	return recs
}
