package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/infra/postgres"
)

// SessionRepository stores study sessions and their answers.
type SessionRepository struct {
	base
}

// NewSessionRepository creates a SessionRepository on db.
func NewSessionRepository(db postgres.DBTX, writable bool) *SessionRepository {
	return &SessionRepository{base{db: db, writable: writable}}
}

func (r *SessionRepository) CreateSession(ctx context.Context, s *entities.UserStudySession) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO user_study_sessions (
			id, user_id, started_at, ended_at, time_spent_seconds, answered_questions_count
		) VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query,
		s.ID,
		s.UserID,
		s.StartedAt,
		s.EndedAt,
		s.TimeSpentSeconds,
		s.AnsweredQuestionsCount,
	)
	if err != nil {
		return fmt.Errorf("create study session: %w", err)
	}
	return nil
}

func (r *SessionRepository) CreateAnswer(ctx context.Context, a *entities.UserQuestionAnswer) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO user_question_answers (
			id, user_id, session_id, question_id, question_set_id, score_achieved,
			is_correct, uue_focus_tested, user_answer_text, time_spent, answered_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Exec(ctx, query,
		a.ID,
		a.UserID,
		a.SessionID,
		a.QuestionID,
		a.QuestionSetID,
		a.ScoreAchieved,
		a.IsCorrect,
		string(a.UueFocusTested),
		a.UserAnswerText,
		a.TimeSpent,
		a.AnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("create answer: %w", err)
	}
	return nil
}

func (r *SessionRepository) ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]*entities.UserQuestionAnswer, error) {
	query := `
		SELECT id, user_id, session_id, question_id, question_set_id, score_achieved,
		       is_correct, uue_focus_tested, user_answer_text, time_spent, answered_at
		FROM user_question_answers
		WHERE session_id = $1
		ORDER BY answered_at, id
	`

	rows, err := r.db.Query(ctx, query, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	defer rows.Close()

	var out []*entities.UserQuestionAnswer
	for rows.Next() {
		var a entities.UserQuestionAnswer
		var focus string
		err := rows.Scan(
			&a.ID,
			&a.UserID,
			&a.SessionID,
			&a.QuestionID,
			&a.QuestionSetID,
			&a.ScoreAchieved,
			&a.IsCorrect,
			&focus,
			&a.UserAnswerText,
			&a.TimeSpent,
			&a.AnsweredAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		a.UueFocusTested = entities.UueStage(focus)
		out = append(out, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return out, nil
}
