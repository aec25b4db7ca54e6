package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
	"github.com/aliskhannn/mastery-engine/internal/storage"
)

const testUser int64 = 42

var testStart = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	ctx    context.Context
	mem    *storage.Store
	engine *Engine
	clock  *fakeClock
}

// newFixture builds an engine on an in-memory store. wrap, when given,
// decorates the store the engine writes through.
func newFixture(t *testing.T, wrap ...func(repository.Store) repository.Store) *fixture {
	t.Helper()

	mem := storage.NewStore()
	var store repository.Store = mem
	for _, w := range wrap {
		store = w(store)
	}

	f := &fixture{
		ctx:    context.Background(),
		mem:    mem,
		engine: NewEngine(store, nil, Config{}, zap.NewNop()),
		clock:  &fakeClock{t: testStart},
	}
	f.engine.useClock(f.clock.Now)
	return f
}

func (e *Engine) useClock(now func() time.Time) {
	for _, c := range []*clock{
		&e.settings.clock,
		&e.catalog.clock,
		&e.tracker.clock,
		&e.gate.clock,
		&e.sets.clock,
		&e.recall.clock,
		&e.scheduler.clock,
	} {
		c.now = now
	}
}

func (f *fixture) section(t *testing.T) int64 {
	t.Helper()
	s, err := f.engine.Catalog().CreateSection(f.ctx, "Linear equations")
	require.NoError(t, err)
	return s.ID
}

func (f *fixture) criterion(t *testing.T, sectionID int64, stage entities.UueStage, weight float64) *entities.MasteryCriterion {
	t.Helper()
	c := &entities.MasteryCriterion{
		SectionID:        sectionID,
		Stage:            stage,
		Weight:           weight,
		MasteryThreshold: 0.8,
		Title:            fmt.Sprintf("%s criterion", stage),
		QuestionTypes:    []string{"MULTIPLE_CHOICE"},
	}
	require.NoError(t, f.engine.Catalog().CreateCriterion(f.ctx, c))
	return c
}

// putMastery stores a mastery row for c as if the user had practised it.
func (f *fixture) putMastery(t *testing.T, c *entities.MasteryCriterion, edit func(m *entities.UserCriterionMastery)) {
	t.Helper()
	m := entities.NewUserCriterionMastery(testUser, c, f.clock.Now())
	edit(m)
	require.NoError(t, f.mem.WithinTx(f.ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Masteries().CreateIfAbsent(ctx, m); err != nil {
			return err
		}
		return r.Masteries().Update(ctx, m)
	}))
}

func (f *fixture) mastery(t *testing.T, criterionID int64) *entities.UserCriterionMastery {
	t.Helper()
	var m *entities.UserCriterionMastery
	require.NoError(t, f.mem.ReadOnly(f.ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		m, err = r.Masteries().Get(ctx, testUser, criterionID)
		return err
	}))
	return m
}

func (f *fixture) updateSettings(t *testing.T, edit func(s *entities.UserSettings)) {
	t.Helper()
	s := entities.NewUserSettings(testUser, f.clock.Now())
	edit(s)
	require.NoError(t, f.engine.Settings().Update(f.ctx, s))
}

func mastered(score float64) func(m *entities.UserCriterionMastery) {
	return func(m *entities.UserCriterionMastery) {
		m.MasteryScore = score
		m.IsMastered = score >= 0.8
		m.Attempts = 1
	}
}

func TestEngine_SettingsDefaults(t *testing.T) {
	f := newFixture(t)

	s, err := f.engine.Settings().Get(f.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultDailyStudyMinutes, s.DailyStudyMinutes)
	assert.Equal(t, entities.TierProficient, s.MasteryTier)
	assert.Equal(t, entities.StyleBalanced, s.LearningStyle)

	ids, err := f.engine.Settings().ListUserIDs(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, ids, "defaults are not persisted")
}

func TestEngine_SettingsUpdateValidates(t *testing.T) {
	f := newFixture(t)

	s := entities.NewUserSettings(testUser, f.clock.Now())
	s.DailyStudyMinutes = 0
	err := f.engine.Settings().Update(f.ctx, s)
	assert.ErrorIs(t, err, ErrValidation)

	f.updateSettings(t, func(s *entities.UserSettings) {
		s.DailyStudyMinutes = 45
		s.MasteryTier = entities.TierExpert
	})
	got, err := f.engine.Settings().Get(f.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 45, got.DailyStudyMinutes)
	assert.Equal(t, entities.TierExpert, got.MasteryTier)

	ids, err := f.engine.Settings().ListUserIDs(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{testUser}, ids)
}

func TestEngine_CatalogRejectsOrphans(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Catalog().CreateCriterion(f.ctx, &entities.MasteryCriterion{
		SectionID:        999,
		Stage:            entities.StageUnderstand,
		Weight:           1,
		MasteryThreshold: 0.8,
	})
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.engine.Catalog().CreateCriterion(f.ctx, &entities.MasteryCriterion{
		SectionID:        f.section(t),
		Stage:            "REMEMBER",
		Weight:           1,
		MasteryThreshold: 0.8,
	})
	assert.ErrorIs(t, err, ErrValidation)

	err = f.engine.Catalog().CreateQuestion(f.ctx, &entities.Question{QuestionSetID: 999})
	assert.ErrorIs(t, err, ErrNotFound)
}
