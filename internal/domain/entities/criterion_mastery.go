package entities

import "time"

const (
	// NewEvidenceWeight is the share of a fresh performance in the blended score.
	NewEvidenceWeight = 0.7
	// FailingPerformance is the performance below which an attempt counts as failed.
	FailingPerformance = 0.6
)

// UserCriterionMastery is the per-(user, criterion) mastery state.
type UserCriterionMastery struct {
	UserID      int64
	CriterionID int64

	// Denormalized from the criterion so stage lookups do not need a join.
	SectionID int64
	Stage     UueStage

	MasteryScore        float64    // in [0, 1]
	IsMastered          bool       // MasteryScore >= threshold at the last attempt
	Attempts            int        // attempts that were actually applied
	ConsecutiveFailures int        // applied attempts in a row below FailingPerformance
	LastAttempt         *time.Time // nullable
	MasteredAt          *time.Time // first time IsMastered became true

	Review ReviewState // ease-factor schedule, drives due detection

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewUserCriterionMastery creates a zero-initialized mastery row for the criterion.
func NewUserCriterionMastery(userID int64, c *MasteryCriterion, now time.Time) *UserCriterionMastery {
	return &UserCriterionMastery{
		UserID:      userID,
		CriterionID: c.ID,
		SectionID:   c.SectionID,
		Stage:       c.Stage,
		Review:      NewReviewState(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// GapRemaining returns how long the user still has to wait before another
// attempt is applied. Zero means the attempt may proceed.
func (m *UserCriterionMastery) GapRemaining(now time.Time, minGap time.Duration) time.Duration {
	if m.LastAttempt == nil || minGap <= 0 {
		return 0
	}
	elapsed := now.Sub(*m.LastAttempt)
	if elapsed >= minGap {
		return 0
	}
	return minGap - elapsed
}

// ApplyScore blends a new performance into the running score and updates
// the attempt counters. It returns true when the call flipped IsMastered
// from false to true.
func (m *UserCriterionMastery) ApplyScore(performance, threshold float64, now time.Time) bool {
	wasMastered := m.IsMastered

	score := m.MasteryScore*(1-NewEvidenceWeight) + performance*NewEvidenceWeight
	m.MasteryScore = clamp01(score)
	m.IsMastered = m.MasteryScore >= threshold
	m.Attempts++
	if performance < FailingPerformance {
		m.ConsecutiveFailures++
	} else {
		m.ConsecutiveFailures = 0
	}

	t := now
	m.LastAttempt = &t
	m.UpdatedAt = now

	progressed := !wasMastered && m.IsMastered
	if progressed && m.MasteredAt == nil {
		m.MasteredAt = &t
	}
	return progressed
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
