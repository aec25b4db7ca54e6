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

// QuestionSetRepository provides access to question sets, their UUE scores
// and both review schedules.
type QuestionSetRepository struct {
	base
}

// NewQuestionSetRepository creates a QuestionSetRepository on db.
func NewQuestionSetRepository(db postgres.DBTX, writable bool) *QuestionSetRepository {
	return &QuestionSetRepository{base{db: db, writable: writable}}
}

const setColumns = `id, folder_id, user_id, name,
	understand_score, use_score, explore_score, current_total_mastery_score,
	current_interval_days, next_review_at, last_reviewed_at, review_count,
	current_forgotten_percentage, mastery_history,
	sr_stage, ease_factor, sr_interval_days, learning_step, lapses, sr_last_reviewed_at, sr_next_review_at,
	created_at, updated_at`

func (r *QuestionSetRepository) Create(ctx context.Context, s *entities.QuestionSet) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	history, err := marshalHistory(s.MasteryHistory)
	if err != nil {
		return err
	}
	recall := s.Recall
	if !recall.Stage.Valid() {
		recall = entities.NewReviewState()
	}

	query := `
		INSERT INTO question_sets (
			folder_id, user_id, name, mastery_history, sr_stage, ease_factor, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	err = r.db.QueryRow(ctx, query,
		s.FolderID,
		s.UserID,
		s.Name,
		history,
		string(recall.Stage),
		recall.EaseFactor,
		s.CreatedAt,
		s.UpdatedAt,
	).Scan(&s.ID)
	if err != nil {
		return fmt.Errorf("create question set: %w", err)
	}
	s.Recall = recall
	return nil
}

func (r *QuestionSetRepository) GetByID(ctx context.Context, id int64) (*entities.QuestionSet, error) {
	return r.get(ctx, `SELECT `+setColumns+` FROM question_sets WHERE id = $1`, id)
}

// GetForUpdate reads the set and locks it until the transaction ends.
func (r *QuestionSetRepository) GetForUpdate(ctx context.Context, id int64) (*entities.QuestionSet, error) {
	query, err := r.forUpdate(`SELECT ` + setColumns + ` FROM question_sets WHERE id = $1`)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, query, id)
}

func (r *QuestionSetRepository) get(ctx context.Context, query string, id int64) (*entities.QuestionSet, error) {
	s, err := scanSet(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrQuestionSetNotFound
		}
		return nil, fmt.Errorf("get question set: %w", err)
	}
	return s, nil
}

func (r *QuestionSetRepository) Update(ctx context.Context, s *entities.QuestionSet) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	history, err := marshalHistory(s.MasteryHistory)
	if err != nil {
		return err
	}

	query := `
		UPDATE question_sets SET
			folder_id = $2,
			name = $3,
			understand_score = $4,
			use_score = $5,
			explore_score = $6,
			current_total_mastery_score = $7,
			current_interval_days = $8,
			next_review_at = $9,
			last_reviewed_at = $10,
			review_count = $11,
			current_forgotten_percentage = $12,
			mastery_history = $13,
			sr_stage = $14,
			ease_factor = $15,
			sr_interval_days = $16,
			learning_step = $17,
			lapses = $18,
			sr_last_reviewed_at = $19,
			sr_next_review_at = $20,
			updated_at = $21
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query,
		s.ID,
		s.FolderID,
		s.Name,
		s.UnderstandScore,
		s.UseScore,
		s.ExploreScore,
		s.CurrentTotalMasteryScore,
		s.CurrentIntervalDays,
		s.NextReviewAt,
		s.LastReviewedAt,
		s.ReviewCount,
		s.CurrentForgottenPercentage,
		history,
		string(s.Recall.Stage),
		s.Recall.EaseFactor,
		s.Recall.IntervalDays,
		s.Recall.LearningStep,
		s.Recall.Lapses,
		s.Recall.LastReviewedAt,
		s.Recall.NextReviewAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update question set: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrQuestionSetNotFound
	}
	return nil
}

func (r *QuestionSetRepository) ListByFolder(ctx context.Context, folderID int64) ([]*entities.QuestionSet, error) {
	return r.list(ctx, `SELECT `+setColumns+` FROM question_sets WHERE folder_id = $1 ORDER BY id`, folderID)
}

func (r *QuestionSetRepository) ListByUser(ctx context.Context, userID int64) ([]*entities.QuestionSet, error) {
	return r.list(ctx, `SELECT `+setColumns+` FROM question_sets WHERE user_id = $1 ORDER BY id`, userID)
}

func (r *QuestionSetRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM question_sets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list question set owners: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list question set owners: %w", err)
	}
	return ids, nil
}

func (r *QuestionSetRepository) list(ctx context.Context, query string, arg int64) ([]*entities.QuestionSet, error) {
	rows, err := r.db.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	defer rows.Close()

	var out []*entities.QuestionSet
	for rows.Next() {
		s, err := scanSet(rows)
		if err != nil {
			return nil, fmt.Errorf("scan question set: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list question sets: %w", err)
	}
	return out, nil
}

func scanSet(row pgx.Row) (*entities.QuestionSet, error) {
	var s entities.QuestionSet
	var history []byte
	var srStage string
	err := row.Scan(
		&s.ID,
		&s.FolderID,
		&s.UserID,
		&s.Name,
		&s.UnderstandScore,
		&s.UseScore,
		&s.ExploreScore,
		&s.CurrentTotalMasteryScore,
		&s.CurrentIntervalDays,
		&s.NextReviewAt,
		&s.LastReviewedAt,
		&s.ReviewCount,
		&s.CurrentForgottenPercentage,
		&history,
		&srStage,
		&s.Recall.EaseFactor,
		&s.Recall.IntervalDays,
		&s.Recall.LearningStep,
		&s.Recall.Lapses,
		&s.Recall.LastReviewedAt,
		&s.Recall.NextReviewAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Recall.Stage = entities.SRStage(srStage)
	if s.MasteryHistory, err = unmarshalHistory[entities.MasterySnapshot](history); err != nil {
		return nil, err
	}
	return &s, nil
}
