package entities

import (
	"time"

	"github.com/google/uuid"
)

// UserStudySession represents one submitted review session.
// It is immutable once stored.
type UserStudySession struct {
	ID                     uuid.UUID // unique session ID
	UserID                 int64     // user who submitted the review
	StartedAt              time.Time // when the user started the session
	EndedAt                time.Time // when the review was processed
	TimeSpentSeconds       int       // total time reported by the caller
	AnsweredQuestionsCount int       // number of outcomes in the submission
}

// NewUserStudySession creates a session that ends at endedAt.
func NewUserStudySession(userID int64, startedAt, endedAt time.Time, spentSeconds, answered int) *UserStudySession {
	return &UserStudySession{
		ID:                     uuid.New(),
		UserID:                 userID,
		StartedAt:              startedAt,
		EndedAt:                endedAt,
		TimeSpentSeconds:       spentSeconds,
		AnsweredQuestionsCount: answered,
	}
}

// UserQuestionAnswer is a single scored answer within a study session.
type UserQuestionAnswer struct {
	ID             uuid.UUID // unique answer ID
	UserID         int64     // user who answered
	SessionID      uuid.UUID // owning study session
	QuestionID     int64     // answered question
	QuestionSetID  int64     // set the question belongs to
	ScoreAchieved  float64   // in [0, 1]
	IsCorrect      bool      // ScoreAchieved > CorrectScoreCutoff
	UueFocusTested UueStage  // focus of the question at answer time
	UserAnswerText string    // optional free-text answer
	TimeSpent      int       // seconds spent on the question, 0 if unknown
	AnsweredAt     time.Time
}

// NewUserQuestionAnswer creates an answer row for the question.
func NewUserQuestionAnswer(session *UserStudySession, q *Question, score float64, correct bool) *UserQuestionAnswer {
	return &UserQuestionAnswer{
		ID:             uuid.New(),
		UserID:         session.UserID,
		SessionID:      session.ID,
		QuestionID:     q.ID,
		QuestionSetID:  q.QuestionSetID,
		ScoreAchieved:  score,
		IsCorrect:      correct,
		UueFocusTested: q.Focus(),
		AnsweredAt:     session.EndedAt,
	}
}
