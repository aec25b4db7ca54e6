package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliskhannn/mastery-engine/internal/infra/postgres"
	port "github.com/aliskhannn/mastery-engine/internal/repository"
)

// Store runs units of work against PostgreSQL. Write transactions lock the
// rows they modify; read-only ones run on a repeatable read snapshot.
type Store struct {
	tx *postgres.Transactor
}

// NewStore creates a Store on pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{tx: postgres.NewTransactor(pool)}
}

var _ port.Store = (*Store)(nil)

func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, r port.Repos) error) error {
	return s.tx.WithinTx(ctx, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newRepos(tx, true))
	})
}

func (s *Store) ReadOnly(ctx context.Context, fn func(ctx context.Context, r port.Repos) error) error {
	return s.tx.WithinTxOptions(ctx, postgres.Snapshot, func(ctx context.Context, tx pgx.Tx) error {
		return fn(ctx, newRepos(tx, false))
	})
}

type repos struct {
	criteria  *CriterionRepository
	masteries *MasteryRepository
	questions *QuestionRepository
	sets      *QuestionSetRepository
	sessions  *SessionRepository
	folders   *FolderRepository
	sections  *SectionRepository
	settings  *SettingsRepository
}

func newRepos(db postgres.DBTX, writable bool) *repos {
	return &repos{
		criteria:  NewCriterionRepository(db, writable),
		masteries: NewMasteryRepository(db, writable),
		questions: NewQuestionRepository(db, writable),
		sets:      NewQuestionSetRepository(db, writable),
		sessions:  NewSessionRepository(db, writable),
		folders:   NewFolderRepository(db, writable),
		sections:  NewSectionRepository(db, writable),
		settings:  NewSettingsRepository(db, writable),
	}
}

func (r *repos) Criteria() port.CriterionRepository      { return r.criteria }
func (r *repos) Masteries() port.MasteryRepository       { return r.masteries }
func (r *repos) Questions() port.QuestionRepository      { return r.questions }
func (r *repos) QuestionSets() port.QuestionSetRepository { return r.sets }
func (r *repos) Sessions() port.SessionRepository        { return r.sessions }
func (r *repos) Folders() port.FolderRepository          { return r.folders }
func (r *repos) Sections() port.SectionRepository        { return r.sections }
func (r *repos) Settings() port.SettingsRepository       { return r.settings }
