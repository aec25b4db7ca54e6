package intervals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

func TestThresholdIntervalDays(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{0, 1},
		{19, 1},
		{20, 2},
		{40, 2},
		{41, 4},
		{60, 4},
		{61, 7},
		{80, 7},
		{81, 14},
		{90, 14},
		{91, 30},
		{100, 30},
		{-5, 1},
		{101, 1},
		{19.5, 1},
		{math.NaN(), 1},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ThresholdIntervalDays(tt.score), "score %v", tt.score)
	}
}

func TestThresholdIntervalDays_Monotonic(t *testing.T) {
	prev := ThresholdIntervalDays(0)
	for s := 1; s <= 100; s++ {
		got := ThresholdIntervalDays(float64(s))
		assert.GreaterOrEqual(t, got, prev, "score %d", s)
		prev = got
	}
}

func TestNextEase(t *testing.T) {
	assert.InDelta(t, 2.6, NextEase(2.5, 5), 1e-9)
	assert.InDelta(t, 2.5, NextEase(2.5, 4), 1e-9)
	assert.InDelta(t, 2.36, NextEase(2.5, 3), 1e-9)
	assert.InDelta(t, 1.7, NextEase(2.5, 0), 1e-9)
	assert.Equal(t, entities.MinEaseFactor, NextEase(1.3, 0))
}

func TestEaseFactor_FloorHoldsForAnySequence(t *testing.T) {
	ef := NewEaseFactor(EaseFactorConfig{})
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	st := entities.NewReviewState()

	ratings := []int{0, 1, 0, 2, 0, 0, 3, 1, 0, 5, 0, 0, 0, 1, 2}
	for _, q := range ratings {
		res, err := ef.Next(Input{Quality: q, State: st, Now: now})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, res.State.EaseFactor, entities.MinEaseFactor)
		st = res.State
		now = res.NextReviewAt
	}
}

func TestEaseFactor_StageTransitions(t *testing.T) {
	ef := NewEaseFactor(EaseFactorConfig{})
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	st := entities.NewReviewState()

	// Failing while learning walks the ladder.
	res, err := ef.Next(Input{Quality: 2, State: st, Now: now})
	require.NoError(t, err)
	assert.Equal(t, entities.SRLearning, res.State.Stage)
	assert.Equal(t, time.Minute, res.Delay)
	assert.Equal(t, 0, res.State.Lapses)

	res, err = ef.Next(Input{Quality: 2, State: res.State, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, res.Delay)

	// Graduation.
	res, err = ef.Next(Input{Quality: 4, State: res.State, Now: now})
	require.NoError(t, err)
	assert.Equal(t, entities.SRReview, res.State.Stage)
	assert.Equal(t, GraduationIntervalDays, res.IntervalDays)
	assert.Equal(t, now.Add(24*time.Hour), res.NextReviewAt)

	// Review to mastered multiplies by the new ease.
	res, err = ef.Next(Input{Quality: 5, State: res.State, Now: now})
	require.NoError(t, err)
	assert.Equal(t, entities.SRMastered, res.State.Stage)
	assert.Equal(t, int(math.Round(1*res.State.EaseFactor)), res.IntervalDays)

	// A lapse sends it back to learning.
	res, err = ef.Next(Input{Quality: 1, State: res.State, Now: now})
	require.NoError(t, err)
	assert.Equal(t, entities.SRLearning, res.State.Stage)
	assert.Equal(t, 1, res.State.Lapses)
	assert.Equal(t, 0, res.IntervalDays)
	assert.Equal(t, time.Minute, res.Delay)
}

func TestEaseFactor_IntervalCap(t *testing.T) {
	ef := NewEaseFactor(EaseFactorConfig{})
	st := entities.ReviewState{Stage: entities.SRMastered, EaseFactor: 2.5, IntervalDays: 300}

	res, err := ef.Next(Input{Quality: 5, State: st, Now: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, MaxIntervalDays, res.IntervalDays)
}

func TestEaseFactor_RejectsQualityOutOfRange(t *testing.T) {
	ef := NewEaseFactor(EaseFactorConfig{})
	for _, q := range []int{-1, 6} {
		_, err := ef.Next(Input{Quality: q, State: entities.NewReviewState(), Now: time.Now()})
		assert.ErrorIs(t, err, ErrInvalidQuality)
	}
}

func TestEaseFactor_DoesNotMutateInput(t *testing.T) {
	ef := NewEaseFactor(EaseFactorConfig{})
	st := entities.NewReviewState()

	_, err := ef.Next(Input{Quality: 5, State: st, Now: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, entities.SRLearning, st.Stage)
	assert.Nil(t, st.NextReviewAt)
}

func TestQualityFromPerformance(t *testing.T) {
	assert.Equal(t, 0, QualityFromPerformance(0))
	assert.Equal(t, 4, QualityFromPerformance(0.8))
	assert.Equal(t, 5, QualityFromPerformance(1))
	assert.Equal(t, 5, QualityFromPerformance(1.4))
	assert.Equal(t, 0, QualityFromPerformance(-0.2))
}

func TestForgottenPercentage(t *testing.T) {
	assert.Zero(t, ForgottenPercentage(0, 3, true))
	assert.Zero(t, ForgottenPercentage(5, 3, false))
	assert.Zero(t, ForgottenPercentage(-1, 3, true))

	// s = min(10, 2 + ln 2) for one review.
	s := 2 + math.Log(2)
	assert.InDelta(t, (1-math.Exp(-3/s))*100, ForgottenPercentage(3, 1, true), 1e-9)

	prev := 0.0
	for d := 1; d <= 60; d++ {
		got := ForgottenPercentage(float64(d), 4, true)
		assert.Greater(t, got, prev, "day %d", d)
		prev = got
	}
}

func TestStrength_Capped(t *testing.T) {
	assert.InDelta(t, 2.0, Strength(0), 1e-9)
	assert.Equal(t, 10.0, Strength(1_000_000))
}

func TestThresholdTable_Next(t *testing.T) {
	now := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	var s Strategy = ThresholdTable{}

	res, err := s.Next(Input{Score: 85, Now: now})
	require.NoError(t, err)
	assert.Equal(t, 14, res.IntervalDays)
	assert.Equal(t, now.AddDate(0, 0, 14), res.NextReviewAt)
	require.NotNil(t, res.State.NextReviewAt)
	assert.Equal(t, res.NextReviewAt, *res.State.NextReviewAt)
}
