package intervals

import (
	"time"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

// Input is the data a Strategy needs to schedule the next review.
type Input struct {
	Score   float64              // overall mastery score 0-100, read by ThresholdTable
	Quality int                  // 0..5 rating, read by EaseFactor
	State   entities.ReviewState // current state, read by EaseFactor
	Now     time.Time            // base time of the next review
}

// Result is the outcome of a scheduling decision.
type Result struct {
	IntervalDays int
	Delay        time.Duration // exact wait, shorter than a day while learning
	NextReviewAt time.Time
	State        entities.ReviewState
}

// Strategy computes the next review for one kind of entity. Question sets
// use ThresholdTable for their UUE schedule; criteria and the recall
// sub-state of sets use EaseFactor.
type Strategy interface {
	Next(in Input) (Result, error)
}

var (
	_ Strategy = ThresholdTable{}
	_ Strategy = (*EaseFactor)(nil)
)

// ThresholdTable schedules by the discrete mastery buckets.
type ThresholdTable struct{}

// Next looks up the interval for in.Score. The review state is returned
// with the interval and next review time replaced.
func (ThresholdTable) Next(in Input) (Result, error) {
	n := ThresholdIntervalDays(in.Score)
	delay := days(n)
	next := in.Now.Add(delay)

	st := in.State
	st.IntervalDays = n
	st.NextReviewAt = &next

	return Result{
		IntervalDays: n,
		Delay:        delay,
		NextReviewAt: next,
		State:        st,
	}, nil
}
