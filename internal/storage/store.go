// Package storage provides a process-local implementation of repository.Store.
package storage

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

type masteryKey struct {
	userID      int64
	criterionID int64
}

// state is one version of the whole data set. Transactions work on a
// clone and replace the live state on commit.
type state struct {
	nextID    int64
	criteria  map[int64]entities.MasteryCriterion
	masteries map[masteryKey]entities.UserCriterionMastery
	questions map[int64]entities.Question
	sets      map[int64]entities.QuestionSet
	sessions  map[uuid.UUID]entities.UserStudySession
	answers   map[uuid.UUID]entities.UserQuestionAnswer
	folders   map[int64]entities.Folder
	sections  map[int64]entities.Section
	settings  map[int64]entities.UserSettings
}

func newState() *state {
	return &state{
		criteria:  make(map[int64]entities.MasteryCriterion),
		masteries: make(map[masteryKey]entities.UserCriterionMastery),
		questions: make(map[int64]entities.Question),
		sets:      make(map[int64]entities.QuestionSet),
		sessions:  make(map[uuid.UUID]entities.UserStudySession),
		answers:   make(map[uuid.UUID]entities.UserQuestionAnswer),
		folders:   make(map[int64]entities.Folder),
		sections:  make(map[int64]entities.Section),
		settings:  make(map[int64]entities.UserSettings),
	}
}

// clone copies every table. Entities are stored by value and their
// methods never write through shared slices or pointers.
func (s *state) clone() *state {
	return &state{
		nextID:    s.nextID,
		criteria:  maps.Clone(s.criteria),
		masteries: maps.Clone(s.masteries),
		questions: maps.Clone(s.questions),
		sets:      maps.Clone(s.sets),
		sessions:  maps.Clone(s.sessions),
		answers:   maps.Clone(s.answers),
		folders:   maps.Clone(s.folders),
		sections:  maps.Clone(s.sections),
		settings:  maps.Clone(s.settings),
	}
}

func (s *state) newID() int64 {
	s.nextID++
	return s.nextID
}

// Store keeps all data in memory. Write transactions are serialized by a
// single mutex, which also serializes read-modify-write cycles on the
// same mastery row or question set.
type Store struct {
	mu    sync.RWMutex
	state *state
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{state: newState()}
}

var _ repository.Store = (*Store)(nil)

// WithinTx runs fn against a private copy of the data and publishes the
// copy only when fn succeeds.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	work := s.state.clone()
	if err := fn(ctx, &repos{st: work, writable: true}); err != nil {
		return err
	}

	s.state = work
	return nil
}

// ReadOnly runs fn against the current state while holding the read lock,
// so no transaction can commit in between.
func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, r repository.Repos) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	return fn(ctx, &repos{st: s.state})
}

type repos struct {
	st       *state
	writable bool
}

func (r *repos) Criteria() repository.CriterionRepository { return criteriaRepo{r} }
func (r *repos) Masteries() repository.MasteryRepository { return masteryRepo{r} }
func (r *repos) Questions() repository.QuestionRepository { return questionRepo{r} }
func (r *repos) QuestionSets() repository.QuestionSetRepository { return setRepo{r} }
func (r *repos) Sessions() repository.SessionRepository { return sessionRepo{r} }
func (r *repos) Folders() repository.FolderRepository { return folderRepo{r} }
func (r *repos) Sections() repository.SectionRepository { return sectionRepo{r} }
func (r *repos) Settings() repository.SettingsRepository { return settingsRepo{r} }

func (r *repos) checkWrite() error {
	if !r.writable {
		return repository.ErrReadOnly
	}
	return nil
}
