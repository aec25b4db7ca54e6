package sqlite

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
	"github.com/aliskhannn/mastery-engine/internal/service"
)

// setupTestStore creates a Store on an in-memory SQLite database.
func setupTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(MemoryPath, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = Close(db) })
	return NewStore(db)
}

func seedCriterion(t *testing.T, s *Store) *entities.MasteryCriterion {
	t.Helper()
	c := &entities.MasteryCriterion{
		Stage:            entities.StageUnderstand,
		Weight:           1,
		MasteryThreshold: 0.8,
		Title:            "Defines a derivative",
		QuestionTypes:    []string{"MULTIPLE_CHOICE", "SHORT_ANSWER"},
	}
	require.NoError(t, s.WithinTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		sec := &entities.Section{Name: "Calculus", CreatedAt: time.Now().UTC()}
		if err := r.Sections().Create(ctx, sec); err != nil {
			return err
		}
		c.SectionID = sec.ID
		return r.Criteria().Create(ctx, c)
	}))
	return c
}

func TestStore_CriteriaRoundTrip(t *testing.T) {
	s := setupTestStore(t)
	c := seedCriterion(t, s)

	err := s.ReadOnly(context.Background(), func(ctx context.Context, r repository.Repos) error {
		got, err := r.Criteria().GetByID(ctx, c.ID)
		require.NoError(t, err)
		assert.Equal(t, c.QuestionTypes, got.QuestionTypes)
		assert.Equal(t, entities.StageUnderstand, got.Stage)

		byStage, err := r.Criteria().ListBySectionStage(ctx, c.SectionID, entities.StageUnderstand)
		require.NoError(t, err)
		assert.Len(t, byStage, 1)

		byStage, err = r.Criteria().ListBySectionStage(ctx, c.SectionID, entities.StageUse)
		require.NoError(t, err)
		assert.Empty(t, byStage)

		_, err = r.Criteria().GetByID(ctx, c.ID+100)
		assert.ErrorIs(t, err, repository.ErrCriterionNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_MasteryCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	c := seedCriterion(t, s)
	now := time.Now().UTC()

	err := s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		created, err := r.Masteries().CreateIfAbsent(ctx, entities.NewUserCriterionMastery(7, c, now))
		require.NoError(t, err)
		assert.True(t, created)

		created, err = r.Masteries().CreateIfAbsent(ctx, entities.NewUserCriterionMastery(7, c, now))
		require.NoError(t, err)
		assert.False(t, created)

		m, err := r.Masteries().GetForUpdate(ctx, 7, c.ID)
		require.NoError(t, err)
		m.MasteryScore = 0.9
		m.IsMastered = true
		next := now.Add(24 * time.Hour)
		m.Review.NextReviewAt = &next
		m.Review.IntervalDays = 1
		return r.Masteries().Update(ctx, m)
	})
	require.NoError(t, err)

	err = s.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		rows, err := r.Masteries().ListBySection(ctx, 7, c.SectionID)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.InDelta(t, 0.9, rows[0].MasteryScore, 1e-9)
		assert.True(t, rows[0].IsMastered)
		assert.Equal(t, 1, rows[0].Review.IntervalDays)
		require.NotNil(t, rows[0].Review.NextReviewAt)
		assert.WithinDuration(t, now.Add(24*time.Hour), *rows[0].Review.NextReviewAt, time.Millisecond)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	c := seedCriterion(t, s)

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		if _, err := r.Masteries().CreateIfAbsent(ctx, entities.NewUserCriterionMastery(9, c, time.Now())); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	err = s.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		_, err := r.Masteries().Get(ctx, 9, c.ID)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrMasteryNotFound)
}

func TestStore_ReadOnlyRejectsWrites(t *testing.T) {
	s := setupTestStore(t)

	err := s.ReadOnly(context.Background(), func(ctx context.Context, r repository.Repos) error {
		return r.Settings().Upsert(ctx, entities.NewUserSettings(1, time.Now()))
	})
	assert.ErrorIs(t, err, repository.ErrReadOnly)

	err = s.ReadOnly(context.Background(), func(ctx context.Context, r repository.Repos) error {
		_, err := r.QuestionSets().GetForUpdate(ctx, 1)
		return err
	})
	assert.ErrorIs(t, err, repository.ErrReadOnly)
}

func TestStore_SettingsUpsert(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	gap := 2

	for _, minutes := range []int{30, 45} {
		settings := entities.NewUserSettings(5, time.Now().UTC())
		settings.DailyStudyMinutes = minutes
		settings.MinGapDays = &gap
		require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
			return r.Settings().Upsert(ctx, settings)
		}))
	}
	require.NoError(t, s.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Settings().Upsert(ctx, entities.NewUserSettings(3, time.Now().UTC()))
	}))

	err := s.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		got, err := r.Settings().GetByUserID(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, 45, got.DailyStudyMinutes)
		require.NotNil(t, got.MinGapDays)
		assert.Equal(t, 2, *got.MinGapDays)

		ids, err := r.Settings().ListUserIDs(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{3, 5}, ids)

		_, err = r.Settings().GetByUserID(ctx, 99)
		assert.ErrorIs(t, err, repository.ErrSettingsNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_AnswerRequiresSession(t *testing.T) {
	s := setupTestStore(t)

	err := s.WithinTx(context.Background(), func(ctx context.Context, r repository.Repos) error {
		return r.Sessions().CreateAnswer(ctx, &entities.UserQuestionAnswer{UserID: 1, QuestionID: 1})
	})
	assert.ErrorIs(t, err, repository.ErrSessionNotFound)
}

func TestEngine_OnSQLite(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	engine := service.NewEngine(s, nil, service.Config{}, zap.NewNop())

	sec, err := engine.Catalog().CreateSection(ctx, "Algebra")
	require.NoError(t, err)
	c := &entities.MasteryCriterion{SectionID: sec.ID, Stage: entities.StageUnderstand, Weight: 1, MasteryThreshold: 0.8}
	require.NoError(t, engine.Catalog().CreateCriterion(ctx, c))

	attempt, err := engine.RecordCriterionAttempt(ctx, 1, c.ID, 0.75, service.AttemptOptions{})
	require.NoError(t, err)
	assert.InDelta(t, 0.525, attempt.MasteryScore, 1e-9)

	f, err := engine.Catalog().CreateFolder(ctx, 1, "Maths")
	require.NoError(t, err)
	set, err := engine.Catalog().CreateQuestionSet(ctx, 1, &f.ID, "Linear equations")
	require.NoError(t, err)

	var outcomes []service.QuestionOutcome
	for stage, score := range map[entities.UueStage]float64{
		entities.StageUnderstand: 0.8,
		entities.StageUse:        0.5,
		entities.StageExplore:    1.0,
	} {
		q := &entities.Question{QuestionSetID: set.ID, Text: "?", UueFocus: stage, TotalMarksAvailable: 1}
		require.NoError(t, engine.Catalog().CreateQuestion(ctx, q))
		outcomes = append(outcomes, service.QuestionOutcome{QuestionID: q.ID, ScoreAchieved: score})
	}

	res, err := engine.ProcessSetReview(ctx, 1, outcomes, time.Now().Add(-time.Minute), 60)
	require.NoError(t, err)
	require.Len(t, res.Sets, 1)
	assert.Equal(t, 72, res.Sets[0].CurrentTotalMasteryScore)
	require.Len(t, res.Folders, 1)
	assert.InDelta(t, 72, res.Folders[0].CurrentMasteryScore, 1e-9)

	err = s.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		stored, err := r.QuestionSets().GetByID(ctx, set.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, stored.ReviewCount)
		require.Len(t, stored.MasteryHistory, 1)
		assert.Equal(t, 72, stored.MasteryHistory[0].TotalMasteryScore)

		answers, err := r.Sessions().ListAnswers(ctx, res.Session.ID)
		require.NoError(t, err)
		assert.Len(t, answers, 3)
		return nil
	})
	require.NoError(t, err)
}

func TestEngine_OnSQLite_ConcurrentAttempts(t *testing.T) {
	ctx := context.Background()
	s := setupTestStore(t)
	c := seedCriterion(t, s)
	engine := service.NewEngine(s, nil, service.Config{}, zap.NewNop())

	const attempts = 10
	var applied atomic.Int64
	var g errgroup.Group
	for range attempts {
		g.Go(func() error {
			res, err := engine.RecordCriterionAttempt(ctx, 7, c.ID, 1.0, service.AttemptOptions{BypassGap: true})
			if err != nil {
				return err
			}
			if res.Applied {
				applied.Add(1)
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
	assert.EqualValues(t, attempts, applied.Load())

	require.NoError(t, s.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		m, err := r.Masteries().Get(ctx, 7, c.ID)
		require.NoError(t, err)
		assert.Equal(t, attempts, m.Attempts)
		assert.InDelta(t, 1-math.Pow(0.3, attempts), m.MasteryScore, 1e-9)
		return nil
	}))
}
