// Package repository defines the persistence port consumed by the services.
// Adapters live in internal/storage (memory), internal/infra/postgres and
// internal/infra/sqlite.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

type CriterionRepository interface {
	Create(ctx context.Context, c *entities.MasteryCriterion) error
	GetByID(ctx context.Context, id int64) (*entities.MasteryCriterion, error)
	ListBySection(ctx context.Context, sectionID int64) ([]*entities.MasteryCriterion, error)
	ListBySectionStage(ctx context.Context, sectionID int64, stage entities.UueStage) ([]*entities.MasteryCriterion, error)
}

// MasteryRepository stores per-(user, criterion) mastery rows.
type MasteryRepository interface {
	// CreateIfAbsent inserts the row unless one already exists for the
	// (user, criterion) pair. It reports whether a row was inserted.
	CreateIfAbsent(ctx context.Context, m *entities.UserCriterionMastery) (bool, error)
	Get(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error)
	// GetForUpdate loads the row and locks it until the transaction ends.
	GetForUpdate(ctx context.Context, userID, criterionID int64) (*entities.UserCriterionMastery, error)
	Update(ctx context.Context, m *entities.UserCriterionMastery) error
	ListBySection(ctx context.Context, userID, sectionID int64) ([]*entities.UserCriterionMastery, error)
	ListByUser(ctx context.Context, userID int64) ([]*entities.UserCriterionMastery, error)
	// ListUserIDs returns the distinct users owning at least one row.
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type QuestionRepository interface {
	Create(ctx context.Context, q *entities.Question) error
	GetForUpdate(ctx context.Context, id int64) (*entities.Question, error)
	Update(ctx context.Context, q *entities.Question) error
	ListBySet(ctx context.Context, setID int64) ([]*entities.Question, error)
}

type QuestionSetRepository interface {
	Create(ctx context.Context, s *entities.QuestionSet) error
	GetByID(ctx context.Context, id int64) (*entities.QuestionSet, error)
	GetForUpdate(ctx context.Context, id int64) (*entities.QuestionSet, error)
	Update(ctx context.Context, s *entities.QuestionSet) error
	ListByFolder(ctx context.Context, folderID int64) ([]*entities.QuestionSet, error)
	ListByUser(ctx context.Context, userID int64) ([]*entities.QuestionSet, error)
	ListUserIDs(ctx context.Context) ([]int64, error)
}

type SessionRepository interface {
	CreateSession(ctx context.Context, s *entities.UserStudySession) error
	CreateAnswer(ctx context.Context, a *entities.UserQuestionAnswer) error
	ListAnswers(ctx context.Context, sessionID uuid.UUID) ([]*entities.UserQuestionAnswer, error)
}

type FolderRepository interface {
	Create(ctx context.Context, f *entities.Folder) error
	GetByID(ctx context.Context, id int64) (*entities.Folder, error)
	GetForUpdate(ctx context.Context, id int64) (*entities.Folder, error)
	Update(ctx context.Context, f *entities.Folder) error
}

type SectionRepository interface {
	Create(ctx context.Context, s *entities.Section) error
	GetByID(ctx context.Context, id int64) (*entities.Section, error)
}

type SettingsRepository interface {
	GetByUserID(ctx context.Context, userID int64) (*entities.UserSettings, error)
	Upsert(ctx context.Context, s *entities.UserSettings) error
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// Repos gives access to every repository bound to one unit of work.
type Repos interface {
	Criteria() CriterionRepository
	Masteries() MasteryRepository
	Questions() QuestionRepository
	QuestionSets() QuestionSetRepository
	Sessions() SessionRepository
	Folders() FolderRepository
	Sections() SectionRepository
	Settings() SettingsRepository
}

// Store runs units of work against the persistence layer.
type Store interface {
	// WithinTx runs fn in one atomic transaction. Any error returned by fn
	// rolls back every write made through the given Repos.
	WithinTx(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
	// ReadOnly runs fn against a single consistent snapshot. Writes fail
	// with ErrReadOnly.
	ReadOnly(ctx context.Context, fn func(ctx context.Context, r Repos) error) error
}
