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

// SettingsRepository provides access to user settings data in the database.
type SettingsRepository struct {
	base
}

// NewSettingsRepository creates a new SettingsRepository on db.
func NewSettingsRepository(db postgres.DBTX, writable bool) *SettingsRepository {
	return &SettingsRepository{base{db: db, writable: writable}}
}

// GetByUserID retrieves settings for a user.
func (r *SettingsRepository) GetByUserID(ctx context.Context, userID int64) (*entities.UserSettings, error) {
	query := `
		SELECT user_id, daily_study_minutes, mastery_tier, learning_style, min_gap_days,
		       allow_retry_same_day, timezone, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1
	`

	var settings entities.UserSettings
	var tier, style string
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.DailyStudyMinutes,
		&tier,
		&style,
		&settings.MinGapDays,
		&settings.AllowRetrySameDay,
		&settings.Timezone,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get settings: %w", err)
	}

	settings.MasteryTier = entities.ThresholdTier(tier)
	settings.LearningStyle = entities.LearningStyle(style)
	return &settings, nil
}

// Upsert creates or replaces the settings of a user.
func (r *SettingsRepository) Upsert(ctx context.Context, s *entities.UserSettings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	query := `
		INSERT INTO user_settings (
			user_id, daily_study_minutes, mastery_tier, learning_style, min_gap_days,
			allow_retry_same_day, timezone, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (user_id) DO UPDATE
		SET daily_study_minutes = EXCLUDED.daily_study_minutes,
		    mastery_tier = EXCLUDED.mastery_tier,
		    learning_style = EXCLUDED.learning_style,
		    min_gap_days = EXCLUDED.min_gap_days,
		    allow_retry_same_day = EXCLUDED.allow_retry_same_day,
		    timezone = EXCLUDED.timezone,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		s.UserID,
		s.DailyStudyMinutes,
		string(s.MasteryTier),
		string(s.LearningStyle),
		s.MinGapDays,
		s.AllowRetrySameDay,
		s.Timezone,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

// ListUserIDs returns every user that stored settings.
func (r *SettingsRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Query(ctx, `SELECT user_id FROM user_settings ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}
