package sqlite

import (
	"context"
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type masteryRepo struct{ *repos }

func (r masteryRepo) CreateIfAbsent(ctx context.Context, m *entities.UserCriterionMastery) (bool, error) {
	if err := r.checkWrite(); err != nil {
		return false, err
	}
	row := mastery(*m)
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("create mastery: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (r masteryRepo) Get(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	var row mastery
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND criterion_id = ?", userID, criterionID).
		First(&row).Error
	if err != nil {
		return nil, notFound(err, repository.ErrMasteryNotFound)
	}
	m := entities.UserCriterionMastery(row)
	return &m, nil
}

// GetForUpdate is a plain read: the single connection already serializes
// write transactions.
func (r masteryRepo) GetForUpdate(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error) {
	if err := r.checkWrite(); err != nil {
		return nil, err
	}
	return r.Get(ctx, userID, criterionID)
}

func (r masteryRepo) Update(ctx context.Context, m *entities.UserCriterionMastery) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := mastery(*m)
	res := r.db.WithContext(ctx).Model(&row).Select("*").Updates(&row)
	if res.Error != nil {
		return fmt.Errorf("update mastery: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrMasteryNotFound
	}
	return nil
}

func (r masteryRepo) ListBySection(ctx context.Context, userID, sectionID int64) ([]*entities.UserCriterionMastery, error) {
	var rows []mastery
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND section_id = ?", userID, sectionID).
		Order("criterion_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list mastery by section: %w", err)
	}
	return toMasteries(rows), nil
}

func (r masteryRepo) ListByUser(ctx context.Context, userID int64) ([]*entities.UserCriterionMastery, error) {
	var rows []mastery
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("criterion_id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list mastery by user: %w", err)
	}
	return toMasteries(rows), nil
}

func (r masteryRepo) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&mastery{}).
		Distinct("user_id").
		Order("user_id").
		Pluck("user_id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("list mastery users: %w", err)
	}
	return ids, nil
}

func toMasteries(rows []mastery) []*entities.UserCriterionMastery {
	out := make([]*entities.UserCriterionMastery, len(rows))
	for i := range rows {
		m := entities.UserCriterionMastery(rows[i])
		out[i] = &m
	}
	return out
}
