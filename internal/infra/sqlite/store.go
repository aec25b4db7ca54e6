package sqlite

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// Store runs units of work as gorm transactions.
type Store struct {
	db *gorm.DB
}

// NewStore creates a Store on an opened database.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

var _ repository.Store = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newRepos(tx, true))
	})
	return mapError(err)
}

// ReadOnly runs fn in a deferred transaction. SQLite keeps the snapshot of
// the first read until the transaction ends.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, newRepos(tx, false))
	})
	return mapError(err)
}

type repos struct {
	db       *gorm.DB
	writable bool
}

func newRepos(db *gorm.DB, writable bool) *repos {
	return &repos{db: db, writable: writable}
}

func (r *repos) Criteria() repository.CriterionRepository      { return criteriaRepo{r} }
func (r *repos) Masteries() repository.MasteryRepository       { return masteryRepo{r} }
func (r *repos) Questions() repository.QuestionRepository      { return questionRepo{r} }
func (r *repos) QuestionSets() repository.QuestionSetRepository { return setRepo{r} }
func (r *repos) Sessions() repository.SessionRepository        { return sessionRepo{r} }
func (r *repos) Folders() repository.FolderRepository          { return folderRepo{r} }
func (r *repos) Sections() repository.SectionRepository        { return sectionRepo{r} }
func (r *repos) Settings() repository.SettingsRepository       { return settingsRepo{r} }

func (r *repos) checkWrite() error {
	if !r.writable {
		return repository.ErrReadOnly
	}
	return nil
}

// notFound maps gorm.ErrRecordNotFound to the given sentinel.
func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}
