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

// SectionRepository provides access to learning sections.
type SectionRepository struct {
	base
}

// NewSectionRepository creates a SectionRepository on db.
func NewSectionRepository(db postgres.DBTX, writable bool) *SectionRepository {
	return &SectionRepository{base{db: db, writable: writable}}
}

func (r *SectionRepository) Create(ctx context.Context, s *entities.Section) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	query := `INSERT INTO sections (name, created_at) VALUES ($1, $2) RETURNING id`
	if err := r.db.QueryRow(ctx, query, s.Name, s.CreatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("create section: %w", err)
	}
	return nil
}

func (r *SectionRepository) GetByID(ctx context.Context, id int64) (*entities.Section, error) {
	query := `SELECT id, name, created_at FROM sections WHERE id = $1`

	var s entities.Section
	err := r.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrSectionNotFound
		}
		return nil, fmt.Errorf("get section: %w", err)
	}
	return &s, nil
}

// CriterionRepository provides access to mastery criteria.
type CriterionRepository struct {
	base
}

// NewCriterionRepository creates a CriterionRepository on db.
func NewCriterionRepository(db postgres.DBTX, writable bool) *CriterionRepository {
	return &CriterionRepository{base{db: db, writable: writable}}
}

const criterionColumns = `id, section_id, stage, weight, mastery_threshold, title, description,
	question_types, created_at, updated_at`

func (r *CriterionRepository) Create(ctx context.Context, c *entities.MasteryCriterion) error {
	if err := r.checkWrite(); err != nil {
		return err
	}

	query := `
		INSERT INTO mastery_criteria (
			section_id, stage, weight, mastery_threshold, title, description,
			question_types, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`

	types := c.QuestionTypes
	if types == nil {
		types = []string{}
	}
	err := r.db.QueryRow(ctx, query,
		c.SectionID,
		string(c.Stage),
		c.Weight,
		c.MasteryThreshold,
		c.Title,
		c.Description,
		types,
		c.CreatedAt,
		c.UpdatedAt,
	).Scan(&c.ID)
	if err != nil {
		return fmt.Errorf("create criterion: %w", err)
	}
	return nil
}

func (r *CriterionRepository) GetByID(ctx context.Context, id int64) (*entities.MasteryCriterion, error) {
	query := `SELECT ` + criterionColumns + ` FROM mastery_criteria WHERE id = $1`

	c, err := scanCriterion(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, port.ErrCriterionNotFound
		}
		return nil, fmt.Errorf("get criterion: %w", err)
	}
	return c, nil
}

func (r *CriterionRepository) ListBySection(ctx context.Context, sectionID int64) ([]*entities.MasteryCriterion, error) {
	query := `SELECT ` + criterionColumns + ` FROM mastery_criteria WHERE section_id = $1 ORDER BY id`
	return r.list(ctx, query, sectionID)
}

func (r *CriterionRepository) ListBySectionStage(ctx context.Context, sectionID int64, stage entities.UueStage) ([]*entities.MasteryCriterion, error) {
	query := `SELECT ` + criterionColumns + ` FROM mastery_criteria WHERE section_id = $1 AND stage = $2 ORDER BY id`
	return r.list(ctx, query, sectionID, string(stage))
}

func (r *CriterionRepository) list(ctx context.Context, query string, args ...any) ([]*entities.MasteryCriterion, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	defer rows.Close()

	var out []*entities.MasteryCriterion
	for rows.Next() {
		c, err := scanCriterion(rows)
		if err != nil {
			return nil, fmt.Errorf("scan criterion: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list criteria: %w", err)
	}
	return out, nil
}

func scanCriterion(row pgx.Row) (*entities.MasteryCriterion, error) {
	var c entities.MasteryCriterion
	var stage string
	err := row.Scan(
		&c.ID,
		&c.SectionID,
		&stage,
		&c.Weight,
		&c.MasteryThreshold,
		&c.Title,
		&c.Description,
		&c.QuestionTypes,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	c.Stage = entities.UueStage(stage)
	return &c, nil
}
