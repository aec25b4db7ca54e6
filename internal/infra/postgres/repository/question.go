package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/infra/postgres"
	port "github.com/aliskhannn/mastery-engine/internal/repository"
)

// QuestionRepository provides access to questions and their counters.
type QuestionRepository struct {
	base
}

// NewQuestionRepository creates a QuestionRepository on db.
func NewQuestionRepository(db postgres.DBTX, writable bool) *QuestionRepository {
	return &QuestionRepository{base{db: db, writable: writable}}
}

const questionColumns = `id, question_set_id, text, answer_text, question_type, uue_focus,
	total_marks_available, difficulty_score, times_answered_correctly, times_answered_incorrectly,
	last_answer_correct, current_mastery_score, last_answered_at`

func (r *QuestionRepository) Create(ctx context.Context, q *entities.Question) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	query := `
		INSERT INTO questions (
			question_set_id, text, answer_text, question_type, uue_focus,
			total_marks_available, difficulty_score
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query,
		q.QuestionSetID,
		q.Text,
		q.AnswerText,
		q.QuestionType,
		string(q.Focus()),
		q.TotalMarksAvailable,
		q.DifficultyScore,
	).Scan(&q.ID)
	if err != nil {
		return fmt.Errorf("create question: %w", err)
	}
	return nil
}

// GetForUpdate reads the question and locks it until the transaction ends.
func (r *QuestionRepository) GetForUpdate(ctx context.Context, id int64) (*entities.Question, error) {
	query, err := r.forUpdate(`SELECT ` + questionColumns + ` FROM questions WHERE id = $1`)
	if err != nil {
		return nil, err
	}

	q, err := scanQuestion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrQuestionNotFound
		}
		return nil, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// Update stores the running counters of q.
func (r *QuestionRepository) Update(ctx context.Context, q *entities.Question) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	query := `
		UPDATE questions SET
			difficulty_score = $2,
			times_answered_correctly = $3,
			times_answered_incorrectly = $4,
			last_answer_correct = $5,
			current_mastery_score = $6,
			last_answered_at = $7
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		q.ID,
		q.DifficultyScore,
		q.TimesAnsweredCorrectly,
		q.TimesAnsweredIncorrectly,
		q.LastAnswerCorrect,
		q.CurrentMasteryScore,
		q.LastAnsweredAt,
	)
	if err != nil {
		return fmt.Errorf("update question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrQuestionNotFound
	}
	return nil
}

func (r *QuestionRepository) ListBySet(ctx context.Context, setID int64) ([]*entities.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE question_set_id = $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, setID)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	var out []*entities.Question
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return out, nil
}

func scanQuestion(row pgx.Row) (*entities.Question, error) {
	var q entities.Question
	var focus string
	err := row.Scan(
		&q.ID,
		&q.QuestionSetID,
		&q.Text,
		&q.AnswerText,
		&q.QuestionType,
		&focus,
		&q.TotalMarksAvailable,
		&q.DifficultyScore,
		&q.TimesAnsweredCorrectly,
		&q.TimesAnsweredIncorrectly,
		&q.LastAnswerCorrect,
		&q.CurrentMasteryScore,
		&q.LastAnsweredAt,
	)
	if err != nil {
		return nil, err
	}
	q.UueFocus = entities.UueStage(focus)
	return &q, nil
}
