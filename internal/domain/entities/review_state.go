package entities

import "time"

// SRStage is the phase of an item in the adaptive ease-factor model.
type SRStage string

const (
	SRLearning SRStage = "LEARNING" // short learning ladder, minutes apart
	SRReview   SRStage = "REVIEW"   // graduated, intervals in days
	SRMastered SRStage = "MASTERED" // reviewed successfully after graduation
)

// Valid reports whether s is a known SR stage.
func (s SRStage) Valid() bool {
	switch s {
	case SRLearning, SRReview, SRMastered:
		return true
	}
	return false
}

const (
	DefaultEaseFactor = 2.5
	MinEaseFactor     = 1.3
)

// ReviewState is the ease-factor scheduling state carried by criterion
// mastery rows and, independently, by question sets.
type ReviewState struct {
	Stage          SRStage
	EaseFactor     float64 // never below MinEaseFactor
	IntervalDays   int     // current interval in days, 0 while learning
	LearningStep   int     // position in the learning ladder
	Lapses         int     // times the item fell back from REVIEW/MASTERED
	LastReviewedAt *time.Time
	NextReviewAt   *time.Time // nil until the first review
}

// NewReviewState returns the state of an item that has never been reviewed.
func NewReviewState() ReviewState {
	return ReviewState{
		Stage:      SRLearning,
		EaseFactor: DefaultEaseFactor,
	}
}

// IsDue reports whether the item should be reviewed at now.
// Items that were never scheduled are always due.
func (s ReviewState) IsDue(now time.Time) bool {
	return s.NextReviewAt == nil || !now.Before(*s.NextReviewAt)
}

// DaysOverdue returns the number of whole days elapsed since the item
// became due, or 0 if it is not due or was never scheduled.
func (s ReviewState) DaysOverdue(now time.Time) int {
	if s.NextReviewAt == nil || now.Before(*s.NextReviewAt) {
		return 0
	}
	return int(now.Sub(*s.NextReviewAt) / (24 * time.Hour))
}
