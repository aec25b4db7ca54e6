package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// CatalogService creates the content the engine schedules: sections with
// their criteria, and folders with question sets and questions.
type CatalogService struct {
	clock
	store  repository.Store
	logger *zap.Logger
}

// NewCatalogService creates a catalog service.
func NewCatalogService(store repository.Store, logger *zap.Logger) *CatalogService {
	return &CatalogService{clock: systemClock(), store: store, logger: logger}
}

// CreateSection stores a new learning section.
func (s *CatalogService) CreateSection(ctx context.Context, name string) (*entities.Section, error) {
	section := &entities.Section{Name: name, CreatedAt: s.now()}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Sections().Create(ctx, section)
	})
	if err != nil {
		return nil, classify("create section", err)
	}
	return section, nil
}

// CreateCriterion validates and stores a criterion of an existing section.
func (s *CatalogService) CreateCriterion(ctx context.Context, c *entities.MasteryCriterion) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("create criterion: %w", validationErr("%v", err))
	}

	now := s.now()
	c.CreatedAt, c.UpdatedAt = now, now

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Sections().GetByID(ctx, c.SectionID); err != nil {
			return err
		}
		return r.Criteria().Create(ctx, c)
	})
	if err != nil {
		return classify("create criterion", err)
	}

	s.logger.Debug("criterion created",
		zap.Int64("criterion_id", c.ID),
		zap.Int64("section_id", c.SectionID),
		zap.String("stage", string(c.Stage)),
	)
	return nil
}

// CreateFolder stores a folder owned by userID.
func (s *CatalogService) CreateFolder(ctx context.Context, userID int64, name string) (*entities.Folder, error) {
	now := s.now()
	folder := &entities.Folder{UserID: userID, Name: name, CreatedAt: now, UpdatedAt: now}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Folders().Create(ctx, folder)
	})
	if err != nil {
		return nil, classify("create folder", err)
	}
	return folder, nil
}

// CreateQuestionSet stores a set, optionally inside a folder.
func (s *CatalogService) CreateQuestionSet(ctx context.Context, userID int64, folderID *int64, name string) (*entities.QuestionSet, error) {
	now := s.now()
	set := &entities.QuestionSet{
		UserID:    userID,
		FolderID:  folderID,
		Name:      name,
		Recall:    entities.NewReviewState(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if folderID != nil {
			if _, err := r.Folders().GetByID(ctx, *folderID); err != nil {
				return err
			}
		}
		return r.QuestionSets().Create(ctx, set)
	})
	if err != nil {
		return nil, classify("create question set", err)
	}
	return set, nil
}

// CreateQuestion stores a question in an existing set.
func (s *CatalogService) CreateQuestion(ctx context.Context, q *entities.Question) error {
	if q.UueFocus != "" && !q.UueFocus.Valid() {
		return fmt.Errorf("create question: %w", validationErr("unknown uue focus %q", q.UueFocus))
	}
	if q.TotalMarksAvailable < 0 {
		return fmt.Errorf("create question: %w", validationErr("negative marks"))
	}
	if q.DifficultyScore == 0 {
		q.DifficultyScore = entities.DefaultDifficulty
	}

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.QuestionSets().GetByID(ctx, q.QuestionSetID); err != nil {
			return err
		}
		return r.Questions().Create(ctx, q)
	})
	if err != nil {
		return classify("create question", err)
	}
	return nil
}
