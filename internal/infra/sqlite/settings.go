package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type settingsRepo struct{ *repos }

func (r settingsRepo) GetByUserID(ctx context.Context, userID int64) (*entities.UserSettings, error) {
	var row settings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, notFound(err, repository.ErrSettingsNotFound)
	}
	s := entities.UserSettings(row)
	return &s, nil
}

func (r settingsRepo) Upsert(ctx context.Context, s *entities.UserSettings) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := settings(*s)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"daily_study_minutes",
				"mastery_tier",
				"learning_style",
				"min_gap_days",
				"allow_retry_same_day",
				"timezone",
				"updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert settings: %w", err)
	}
	return nil
}

func (r settingsRepo) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&settings{}).
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	return ids, nil
}
