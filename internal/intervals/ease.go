package intervals

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

var ErrInvalidQuality = errors.New("quality rating must be within 0..5")

const (
	MaxQuality = 5
	// PassingQuality is the lowest rating that moves an item forward.
	PassingQuality = 4
	// MaxIntervalDays caps the ease-factor interval.
	MaxIntervalDays = 365
	// GraduationIntervalDays is the first interval after leaving LEARNING.
	GraduationIntervalDays = 1
)

// DefaultLearningSteps is the short ladder used while an item is LEARNING.
var DefaultLearningSteps = []time.Duration{time.Minute, 10 * time.Minute}

// NextEase applies the SM-2 ease update and the 1.3 floor.
func NextEase(ease float64, quality int) float64 {
	d := float64(MaxQuality - quality)
	next := ease + (0.1 - d*(0.08+d*0.02))
	return math.Max(entities.MinEaseFactor, next)
}

// QualityFromPerformance converts a [0, 1] performance into a 0..5 rating.
func QualityFromPerformance(performance float64) int {
	q := int(math.Round(performance * MaxQuality))
	return max(0, min(MaxQuality, q))
}

// EaseFactorConfig configures an EaseFactor strategy.
// Zero values produce the defaults noted on each field.
type EaseFactorConfig struct {
	LearningSteps   []time.Duration // nil → DefaultLearningSteps
	MaximumInterval int             // zero → MaxIntervalDays
}

// EaseFactor is the adaptive SM-2 style strategy used for criteria and for
// the recall sub-state of question sets.
type EaseFactor struct {
	learningSteps []time.Duration
	maxInterval   int
}

// NewEaseFactor creates the strategy, filling zero config fields with defaults.
func NewEaseFactor(cfg EaseFactorConfig) *EaseFactor {
	steps := cfg.LearningSteps
	if len(steps) == 0 {
		steps = DefaultLearningSteps
	}
	maxIvl := cfg.MaximumInterval
	if maxIvl <= 0 {
		maxIvl = MaxIntervalDays
	}
	return &EaseFactor{learningSteps: steps, maxInterval: maxIvl}
}

// Next advances the review state with a quality rating. A passing rating
// moves the item one stage forward, a failing one sends it back to LEARNING.
// The input state is not mutated.
func (e *EaseFactor) Next(in Input) (Result, error) {
	if in.Quality < 0 || in.Quality > MaxQuality {
		return Result{}, fmt.Errorf("%w: got %d", ErrInvalidQuality, in.Quality)
	}

	st := in.State
	if !st.Stage.Valid() {
		st.Stage = entities.SRLearning
	}
	if st.EaseFactor < entities.MinEaseFactor {
		st.EaseFactor = entities.DefaultEaseFactor
	}
	st.EaseFactor = NextEase(st.EaseFactor, in.Quality)

	var delay time.Duration
	if in.Quality >= PassingQuality {
		switch st.Stage {
		case entities.SRLearning:
			st.Stage = entities.SRReview
			st.IntervalDays = GraduationIntervalDays
		default:
			st.Stage = entities.SRMastered
			st.IntervalDays = e.grow(st.IntervalDays, st.EaseFactor)
		}
		st.LearningStep = 0
		delay = days(st.IntervalDays)
	} else {
		if st.Stage != entities.SRLearning {
			st.Lapses++
			st.LearningStep = 0
		}
		st.Stage = entities.SRLearning
		st.IntervalDays = 0
		step := min(max(0, st.LearningStep), len(e.learningSteps)-1)
		delay = e.learningSteps[step]
		st.LearningStep = min(step+1, len(e.learningSteps)-1)
	}

	now := in.Now
	next := now.Add(delay)
	st.LastReviewedAt = &now
	st.NextReviewAt = &next

	return Result{
		IntervalDays: st.IntervalDays,
		Delay:        delay,
		NextReviewAt: next,
		State:        st,
	}, nil
}

func (e *EaseFactor) grow(current int, ease float64) int {
	ivl := int(math.Round(float64(max(1, current)) * ease))
	return max(1, min(e.maxInterval, ivl))
}

func days(n int) time.Duration {
	return time.Duration(n) * 24 * time.Hour
}
