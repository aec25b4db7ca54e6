package sqlite

import (
	"context"
	"fmt"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type sectionRepo struct{ *repos }

func (r sectionRepo) Create(ctx context.Context, s *entities.Section) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := section(*s)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	s.ID = row.ID
	return nil
}

func (r sectionRepo) GetByID(ctx context.Context, id int64) (*entities.Section, error) {
	var row section
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, repository.ErrSectionNotFound)
	}
	s := entities.Section(row)
	return &s, nil
}

type criteriaRepo struct{ *repos }

func (r criteriaRepo) Create(ctx context.Context, c *entities.MasteryCriterion) error {
	if err := r.checkWrite(); err != nil {
		return err
	}
	row := criterion(*c)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("create criterion: %w", err)
	}
	c.ID = row.ID
	return nil
}

func (r criteriaRepo) GetByID(ctx context.Context, id int64) (*entities.MasteryCriterion, error) {
	var row criterion
	if err := r.db.WithContext(ctx).First(&row, id).Error; err != nil {
		return nil, notFound(err, repository.ErrCriterionNotFound)
	}
	c := entities.MasteryCriterion(row)
	return &c, nil
}

func (r criteriaRepo) ListBySection(ctx context.Context, sectionID int64) ([]*entities.MasteryCriterion, error) {
	var rows []criterion
	err := r.db.WithContext(ctx).
		Where("section_id = ?", sectionID).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return toCriteria(rows), nil
}

func (r criteriaRepo) ListBySectionStage(ctx context.Context, sectionID int64, stage entities.UueStage) ([]*entities.MasteryCriterion, error) {
	var rows []criterion
	err := r.db.WithContext(ctx).
		Where("section_id = ? AND stage = ?", sectionID, stage).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list criteria by stage: %w", err)
	}
	return toCriteria(rows), nil
}

func toCriteria(rows []criterion) []*entities.MasteryCriterion {
	out := make([]*entities.MasteryCriterion, len(rows))
	for i := range rows {
		c := entities.MasteryCriterion(rows[i])
		out[i] = &c
	}
	return out
}
