package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

func TestStageMastery_WeightedMean(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)

	weights := []float64{1, 2, 1}
	scores := []float64{0.9, 0.5, 0.2}
	for i := range weights {
		c := f.criterion(t, section, entities.StageUnderstand, weights[i])
		f.putMastery(t, c, mastered(scores[i]))
	}

	sm, err := f.engine.GetStageMastery(f.ctx, section, entities.StageUnderstand, testUser)
	require.NoError(t, err)
	assert.InDelta(t, 0.525, sm.Score, 1e-9)
	assert.Equal(t, entities.TierProficient, sm.Tier)
	assert.InDelta(t, 0.8, sm.Threshold, 1e-9)
	assert.False(t, sm.IsMastered)
	assert.Equal(t, 3, sm.TotalCriteria)
	assert.Equal(t, 1, sm.MasteredCriteria)
	require.Len(t, sm.Criteria, 3)
	assert.InDelta(t, 2.0, sm.Criteria[1].Weight, 1e-9)
}

func TestStageMastery_MissingRowsCountAsZero(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)

	a := f.criterion(t, section, entities.StageUse, 1)
	f.criterion(t, section, entities.StageUse, 1)
	f.putMastery(t, a, mastered(1.0))

	sm, err := f.engine.GetStageMastery(f.ctx, section, entities.StageUse, testUser)
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sm.Score, 1e-9)
	assert.Equal(t, 0, sm.Criteria[1].Attempts)
}

func TestStageMastery_EmptyStage(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)

	sm, err := f.engine.GetStageMastery(f.ctx, section, entities.StageExplore, testUser)
	require.NoError(t, err)
	assert.Zero(t, sm.Score)
	assert.False(t, sm.IsMastered)
	assert.Zero(t, sm.TotalCriteria)
}

func TestStageMastery_TierFromSettings(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)
	c := f.criterion(t, section, entities.StageUnderstand, 1)
	f.putMastery(t, c, mastered(0.65))

	sm, err := f.engine.GetStageMastery(f.ctx, section, entities.StageUnderstand, testUser)
	require.NoError(t, err)
	assert.False(t, sm.IsMastered)

	f.updateSettings(t, func(s *entities.UserSettings) { s.MasteryTier = entities.TierSurvey })

	sm, err = f.engine.GetStageMastery(f.ctx, section, entities.StageUnderstand, testUser)
	require.NoError(t, err)
	assert.True(t, sm.IsMastered)
	assert.Equal(t, entities.TierSurvey, sm.Tier)
}

func TestStageMastery_Errors(t *testing.T) {
	f := newFixture(t)

	_, err := f.engine.GetStageMastery(f.ctx, f.section(t), "APPLY", testUser)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.engine.GetStageMastery(f.ctx, 999, entities.StageUnderstand, testUser)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnitMastery(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)

	u := f.criterion(t, section, entities.StageUnderstand, 1)
	use := f.criterion(t, section, entities.StageUse, 1)
	f.criterion(t, section, entities.StageExplore, 1)
	f.putMastery(t, u, mastered(0.9))
	f.putMastery(t, use, mastered(0.3))

	unit, err := f.engine.GetUnitMastery(f.ctx, section, testUser)
	require.NoError(t, err)
	require.Len(t, unit.Stages, 3)
	assert.Equal(t, entities.StageUnderstand, unit.Stages[0].Stage)
	assert.Equal(t, 1, unit.MasteredStages)
	assert.False(t, unit.IsMastered)
	assert.InDelta(t, 1.0/3, unit.Progress, 1e-9)
	assert.InDelta(t, (0.9+0.3+0)/3, unit.OverallScore, 1e-9)
}
