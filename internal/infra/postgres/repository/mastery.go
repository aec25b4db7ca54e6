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

// MasteryRepository provides access to per-(user, criterion) mastery rows.
type MasteryRepository struct {
	base
}

// NewMasteryRepository creates a MasteryRepository on db.
func NewMasteryRepository(db postgres.DBTX, writable bool) *MasteryRepository {
	return &MasteryRepository{base{db: db, writable: writable}}
}

const masteryColumns = `user_id, criterion_id, section_id, stage, mastery_score, is_mastered,
	attempts, consecutive_failures, last_attempt, mastered_at,
	sr_stage, ease_factor, interval_days, learning_step, lapses, last_reviewed_at, next_review_at,
	created_at, updated_at`

// CreateIfAbsent inserts m unless a row for (user, criterion) already
// exists. It reports whether a row was inserted.
func (r *MasteryRepository) CreateIfAbsent(ctx context.Context, m *entities.UserCriterionMastery) (bool, error) {
	if err := r.checkWrite(); err != nil {
		return false, err
	}

	query := `
		INSERT INTO user_criterion_mastery (` + masteryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
		ON CONFLICT (user_id, criterion_id) DO NOTHING
	`

	tag, err := r.db.Exec(ctx, query, masteryArgs(m)...)
	if err != nil {
		return false, fmt.Errorf("create mastery: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *MasteryRepository) Get(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	query := `SELECT ` + masteryColumns + ` FROM user_criterion_mastery WHERE user_id = $1 AND criterion_id = $2`
	return r.get(ctx, query, userID, criterionID)
}

// GetForUpdate reads the row and locks it until the transaction ends.
func (r *MasteryRepository) GetForUpdate(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	query, err := r.forUpdate(`SELECT ` + masteryColumns + ` FROM user_criterion_mastery WHERE user_id = $1 AND criterion_id = $2`)
	if err != nil {
		return nil, err
	}
	return r.get(ctx, query, userID, criterionID)
}

func (r *MasteryRepository) get(ctx context.Context, query string, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	m, err := scanMastery(r.db.QueryRow(ctx, query, userID, criterionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrMasteryNotFound
		}
		return nil, fmt.Errorf("get mastery: %w", err)
	}
	return m, nil
}

func (r *MasteryRepository) Update(ctx context.Context, m *entities.UserCriterionMastery) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	query := `
		UPDATE user_criterion_mastery SET
			mastery_score = $3,
			is_mastered = $4,
			attempts = $5,
			consecutive_failures = $6,
			last_attempt = $7,
			mastered_at = $8,
			sr_stage = $9,
			ease_factor = $10,
			interval_days = $11,
			learning_step = $12,
			lapses = $13,
			last_reviewed_at = $14,
			next_review_at = $15,
			updated_at = $16
		WHERE user_id = $1 AND criterion_id = $2
	`

	tag, err := r.db.Exec(ctx, query,
		m.UserID,
		m.CriterionID,
		m.MasteryScore,
		m.IsMastered,
		m.Attempts,
		m.ConsecutiveFailures,
		m.LastAttempt,
		m.MasteredAt,
		string(m.Review.Stage),
		m.Review.EaseFactor,
		m.Review.IntervalDays,
		m.Review.LearningStep,
		m.Review.Lapses,
		m.Review.LastReviewedAt,
		m.Review.NextReviewAt,
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update mastery: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return port.ErrMasteryNotFound
	}
	return nil
}

func (r *MasteryRepository) ListBySection(ctx context.Context, userID, sectionID int64) ([]*entities.UserCriterionMastery, error) {
	query := `SELECT ` + masteryColumns + ` FROM user_criterion_mastery
		WHERE user_id = $1 AND section_id = $2 ORDER BY criterion_id`
	return r.list(ctx, query, userID, sectionID)
}

func (r *MasteryRepository) ListByUser(ctx context.Context, userID int64) ([]*entities.UserCriterionMastery, error) {
	query := `SELECT ` + masteryColumns + ` FROM user_criterion_mastery WHERE user_id = $1 ORDER BY criterion_id`
	return r.list(ctx, query, userID)
}

func (r *MasteryRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT user_id FROM user_criterion_mastery ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list mastery users: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list mastery users: %w", err)
	}
	return ids, nil
}

func (r *MasteryRepository) list(ctx context.Context, query string, args ...any) ([]*entities.UserCriterionMastery, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	defer rows.Close()

	var out []*entities.UserCriterionMastery
	for rows.Next() {
		m, err := scanMastery(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mastery: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list mastery: %w", err)
	}
	return out, nil
}

func masteryArgs(m *entities.UserCriterionMastery) []any {
	return []any{
		m.UserID,
		m.CriterionID,
		m.SectionID,
		string(m.Stage),
		m.MasteryScore,
		m.IsMastered,
		m.Attempts,
		m.ConsecutiveFailures,
		m.LastAttempt,
		m.MasteredAt,
		string(m.Review.Stage),
		m.Review.EaseFactor,
		m.Review.IntervalDays,
		m.Review.LearningStep,
		m.Review.Lapses,
		m.Review.LastReviewedAt,
		m.Review.NextReviewAt,
		m.CreatedAt,
		m.UpdatedAt,
	}
}

func scanMastery(row pgx.Row) (*entities.UserCriterionMastery, error) {
	var m entities.UserCriterionMastery
	var stage, srStage string
	err := row.Scan(
		&m.UserID,
		&m.CriterionID,
		&m.SectionID,
		&stage,
		&m.MasteryScore,
		&m.IsMastered,
		&m.Attempts,
		&m.ConsecutiveFailures,
		&m.LastAttempt,
		&m.MasteredAt,
		&srStage,
		&m.Review.EaseFactor,
		&m.Review.IntervalDays,
		&m.Review.LearningStep,
		&m.Review.Lapses,
		&m.Review.LastReviewedAt,
		&m.Review.NextReviewAt,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	m.Stage = entities.UueStage(stage)
	m.Review.Stage = entities.SRStage(srStage)
	return &m, nil
}
