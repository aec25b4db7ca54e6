package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// CriterionBreakdown is one criterion's contribution to a stage.
type CriterionBreakdown struct {
	CriterionID int64
	Title       string
	Weight      float64
	Score       float64 // 0 when the user has no mastery row
	Threshold   float64
	IsMastered  bool
	Attempts    int
}

// StageMastery is the weighted mastery of one UUE stage of a section.
type StageMastery struct {
	SectionID        int64
	UserID           int64
	Stage            entities.UueStage
	Score            float64 // weighted mean in [0, 1]
	Tier             entities.ThresholdTier
	Threshold        float64
	IsMastered       bool
	TotalCriteria    int
	MasteredCriteria int
	Criteria         []CriterionBreakdown
}

// UnitMastery summarises all three stages of a section.
type UnitMastery struct {
	SectionID      int64
	UserID         int64
	Stages         []StageMastery // in progression order
	IsMastered     bool           // every stage mastered
	MasteredStages int
	Progress       float64 // MasteredStages / 3
	OverallScore   float64 // mean of the stage scores
}

// StageAggregator computes stage and unit mastery on demand.
type StageAggregator struct {
	store    repository.Store
	settings SettingsProvider
	logger   *zap.Logger
}

// NewStageAggregator creates a stage aggregator.
func NewStageAggregator(store repository.Store, settings SettingsProvider, logger *zap.Logger) *StageAggregator {
	return &StageAggregator{store: store, settings: settings, logger: logger}
}

// StageMastery computes the weighted mastery of a stage against the
// user's threshold tier.
func (a *StageAggregator) StageMastery(ctx context.Context, sectionID int64, stage entities.UueStage, userID int64) (*StageMastery, error) {
	ctx, span := tracer.Start(ctx, "StageAggregator.StageMastery")
	defer span.End()
	span.SetAttributes(attribute.Int64("section_id", sectionID), attribute.String("stage", string(stage)))

	if !stage.Valid() {
		return nil, validationErr("unknown uue stage %q", stage)
	}

	tier, err := a.tier(ctx, userID)
	if err != nil {
		return nil, err
	}

	var sm *StageMastery
	err = a.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Sections().GetByID(ctx, sectionID); err != nil {
			return err
		}
		var err error
		sm, err = computeStageMastery(ctx, r, sectionID, stage, userID, tier)
		return err
	})
	if err != nil {
		return nil, classify("stage mastery", err)
	}
	return sm, nil
}

// UnitMastery computes every stage of the section from one snapshot.
func (a *StageAggregator) UnitMastery(ctx context.Context, sectionID, userID int64) (*UnitMastery, error) {
	ctx, span := tracer.Start(ctx, "StageAggregator.UnitMastery")
	defer span.End()

	tier, err := a.tier(ctx, userID)
	if err != nil {
		return nil, err
	}

	unit := &UnitMastery{SectionID: sectionID, UserID: userID}
	err = a.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Sections().GetByID(ctx, sectionID); err != nil {
			return err
		}
		for _, stage := range entities.Stages {
			sm, err := computeStageMastery(ctx, r, sectionID, stage, userID, tier)
			if err != nil {
				return err
			}
			unit.Stages = append(unit.Stages, *sm)
		}
		return nil
	})
	if err != nil {
		return nil, classify("unit mastery", err)
	}

	var total float64
	for _, sm := range unit.Stages {
		total += sm.Score
		if sm.IsMastered {
			unit.MasteredStages++
		}
	}
	n := float64(len(entities.Stages))
	unit.IsMastered = unit.MasteredStages == len(entities.Stages)
	unit.Progress = float64(unit.MasteredStages) / n
	unit.OverallScore = total / n
	return unit, nil
}

func (a *StageAggregator) tier(ctx context.Context, userID int64) (entities.ThresholdTier, error) {
	settings, err := a.settings.Get(ctx, userID)
	if err != nil {
		return "", classify("load settings", err)
	}
	return tierOf(settings), nil
}

func tierOf(settings *entities.UserSettings) entities.ThresholdTier {
	if !settings.MasteryTier.Valid() {
		return entities.TierProficient
	}
	return settings.MasteryTier
}

// computeStageMastery reads criteria and mastery rows through r, so it can
// run inside a transaction or a read-only snapshot.
func computeStageMastery(ctx context.Context, r repository.Repos, sectionID int64, stage entities.UueStage, userID int64, tier entities.ThresholdTier) (*StageMastery, error) {
	criteria, err := r.Criteria().ListBySectionStage(ctx, sectionID, stage)
	if err != nil {
		return nil, err
	}

	sm := &StageMastery{
		SectionID:     sectionID,
		UserID:        userID,
		Stage:         stage,
		Tier:          tier,
		Threshold:     tier.Value(),
		TotalCriteria: len(criteria),
		Criteria:      make([]CriterionBreakdown, 0, len(criteria)),
	}

	var weighted, totalWeight float64
	for _, c := range criteria {
		b := CriterionBreakdown{
			CriterionID: c.ID,
			Title:       c.Title,
			Weight:      c.Weight,
			Threshold:   c.MasteryThreshold,
		}

		m, err := r.Masteries().Get(ctx, userID, c.ID)
		switch {
		case errors.Is(err, repository.ErrMasteryNotFound):
		case err != nil:
			return nil, err
		default:
			b.Score = m.MasteryScore
			b.IsMastered = m.IsMastered
			b.Attempts = m.Attempts
		}

		if b.IsMastered {
			sm.MasteredCriteria++
		}
		weighted += b.Score * c.Weight
		totalWeight += c.Weight
		sm.Criteria = append(sm.Criteria, b)
	}

	if totalWeight > 0 {
		sm.Score = weighted / totalWeight
	}
	sm.IsMastered = len(criteria) > 0 && totalWeight > 0 && sm.Score >= sm.Threshold
	return sm, nil
}
