package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

func dueAt(t time.Time) func(m *entities.UserCriterionMastery) {
	return func(m *entities.UserCriterionMastery) {
		m.Review.NextReviewAt = &t
	}
}

func TestGenerateTodaysTasks_CriticalNeverDropped(t *testing.T) {
	f := newFixture(t)
	f.updateSettings(t, func(s *entities.UserSettings) { s.DailyStudyMinutes = 20 })

	section := f.section(t)
	overdue := f.clock.Now().Add(-4 * 24 * time.Hour)
	for range 3 {
		c := f.criterion(t, section, entities.StageUnderstand, 1)
		f.putMastery(t, c, func(m *entities.UserCriterionMastery) {
			m.MasteryScore = 0.4
			m.Attempts = 2
			m.Review.NextReviewAt = &overdue
		})
	}

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)

	assert.Equal(t, 3, plan.Critical.Count())
	assert.Equal(t, 24, plan.Critical.EstimatedTime)
	assert.Empty(t, plan.Overflow)
	assert.Equal(t, 24, plan.EstimatedTime)
	assert.Equal(t, 4, plan.Critical.Tasks[0].DaysOverdue)

	c := plan.Capacity
	assert.Equal(t, 20, c.UserCapacity)
	assert.Equal(t, 24, c.UsedCapacity)
	assert.Equal(t, 0, c.RemainingCapacity)
	assert.Equal(t, 1, c.CriticalOverflow)
	assert.Equal(t, 4, c.CapacityGap)
	assert.InDelta(t, 120, c.CapacityUtilization, 1e-9)
	assert.NotEmpty(t, c.Recommendations)

	require.NotEmpty(t, plan.Recommendations)
	assert.Contains(t, plan.Recommendations[0], "1 critical tasks")
}

func TestGenerateTodaysTasks_Buckets(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)
	now := f.clock.Now()

	fresh := f.criterion(t, section, entities.StageUnderstand, 1)
	f.putMastery(t, fresh, func(*entities.UserCriterionMastery) {})

	later := f.criterion(t, section, entities.StageUnderstand, 1)
	f.putMastery(t, later, func(m *entities.UserCriterionMastery) {
		m.MasteryScore = 0.5
		dueAt(now.Add(48 * time.Hour))(m)
	})

	reinforce := f.criterion(t, section, entities.StageUnderstand, 1)
	f.putMastery(t, reinforce, func(m *entities.UserCriterionMastery) {
		mastered(0.9)(m)
		dueAt(now.Add(-time.Hour))(m)
	})

	struggling := f.criterion(t, section, entities.StageUnderstand, 1)
	f.putMastery(t, struggling, func(m *entities.UserCriterionMastery) {
		m.MasteryScore = 0.35
		m.ConsecutiveFailures = 2
		dueAt(now)(m)
	})

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)

	require.Equal(t, 1, plan.Critical.Count())
	assert.Equal(t, struggling.ID, plan.Critical.Tasks[0].CriterionID)
	assert.Equal(t, 5, plan.Critical.Tasks[0].QuestionCount)

	require.Equal(t, 1, plan.Core.Count())
	core := plan.Core.Tasks[0]
	assert.Equal(t, fresh.ID, core.CriterionID)
	assert.Equal(t, 5, core.EstimatedTime)
	assert.Equal(t, 5, core.QuestionCount)
	assert.Equal(t, entities.DifficultyEasy, core.Difficulty)
	assert.Equal(t, []string{"MULTIPLE_CHOICE"}, core.QuestionTypes)

	require.Equal(t, 1, plan.Plus.Count())
	assert.Equal(t, reinforce.ID, plan.Plus.Tasks[0].CriterionID)
	assert.Equal(t, 1, plan.Plus.Tasks[0].QuestionCount)

	assert.Equal(t, 3, plan.TotalTasks)
	assert.Equal(t, 16, plan.EstimatedTime)
	assert.Equal(t, 14, plan.Capacity.RemainingCapacity)
	require.Len(t, plan.Recommendations, 1)
	assert.Contains(t, plan.Recommendations[0], "14 minutes remaining")
}

func TestGenerateTodaysTasks_NeverAttemptedCriteria(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)

	attempted := f.criterion(t, section, entities.StageUnderstand, 1)
	fresh := []*entities.MasteryCriterion{
		f.criterion(t, section, entities.StageUnderstand, 1),
		f.criterion(t, section, entities.StageUnderstand, 1),
	}
	f.criterion(t, section, entities.StageUse, 1)
	f.criterion(t, f.section(t), entities.StageUnderstand, 1)

	_, err := f.engine.RecordCriterionAttempt(f.ctx, testUser, attempted.ID, 0.5, AttemptOptions{})
	require.NoError(t, err)
	f.clock.Advance(2 * 24 * time.Hour)

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)

	assert.Equal(t, 3, plan.TotalTasks, "later stages and untouched sections stay out of the plan")
	require.Equal(t, 3, plan.Core.Count())
	assert.Equal(t, 15, plan.EstimatedTime)
	assert.Equal(t, 15, plan.Capacity.RemainingCapacity)

	byID := make(map[int64]entities.DailyTask)
	for _, task := range plan.Core.Tasks {
		byID[task.CriterionID] = task
	}
	assert.Contains(t, byID, attempted.ID)
	for _, c := range fresh {
		task, ok := byID[c.ID]
		require.True(t, ok)
		assert.Zero(t, task.MasteryScore)
		assert.Zero(t, task.DaysOverdue)
		assert.Equal(t, 5, task.QuestionCount)
		assert.False(t, task.IsPreview)
	}
}

func TestGenerateTodaysTasks_CoreOverflow(t *testing.T) {
	f := newFixture(t)
	f.updateSettings(t, func(s *entities.UserSettings) { s.DailyStudyMinutes = 10 })

	section := f.section(t)
	for range 3 {
		c := f.criterion(t, section, entities.StageUse, 1)
		f.putMastery(t, c, func(*entities.UserCriterionMastery) {})
	}

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)

	assert.Equal(t, 2, plan.Core.Count())
	require.Len(t, plan.Overflow, 1)
	assert.Equal(t, entities.PriorityCore, plan.Overflow[0].Priority)
	assert.Equal(t, 1, plan.Capacity.CoreOverflow)
	assert.Equal(t, 15, plan.Capacity.RequiredCapacity)
	assert.Equal(t, 10, plan.EstimatedTime)
	assert.Contains(t, plan.Recommendations, "All tasks are high priority. Consider adding some preview content for variety.")
}

func TestGenerateTodaysTasks_NextStagePreview(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)
	later := f.clock.Now().Add(72 * time.Hour)

	for range 2 {
		c := f.criterion(t, section, entities.StageUnderstand, 1)
		f.putMastery(t, c, func(m *entities.UserCriterionMastery) {
			mastered(0.9)(m)
			dueAt(later)(m)
		})
	}
	for range 7 {
		f.criterion(t, section, entities.StageUse, 1)
	}

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)

	require.Equal(t, DefaultSchedulerConfig().PreviewLimit, plan.Plus.Count())
	for _, task := range plan.Plus.Tasks {
		assert.True(t, task.IsPreview)
		assert.Equal(t, entities.StageUse, task.Stage)
		assert.Equal(t, entities.DifficultyMedium, task.Difficulty)
		assert.Equal(t, 3, task.EstimatedTime)
		assert.Equal(t, 4, task.QuestionCount)
	}
	assert.Zero(t, plan.Core.Count())
}

func TestGenerateTodaysTasks_CaughtUp(t *testing.T) {
	f := newFixture(t)

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)
	assert.Zero(t, plan.TotalTasks)
	assert.Zero(t, plan.EstimatedTime)
	assert.Empty(t, plan.Overflow)
	assert.Equal(t, []string{"You're all caught up. Nothing is due today."}, plan.Recommendations)
	assert.Equal(t, entities.DefaultDailyStudyMinutes, plan.Capacity.RemainingCapacity)
}

func TestGenerateTodaysTasks_RejectsNonPositiveCapacity(t *testing.T) {
	f := newFixture(t)

	s := entities.NewUserSettings(testUser, f.clock.Now())
	s.DailyStudyMinutes = 0
	require.NoError(t, f.mem.WithinTx(f.ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Settings().Upsert(ctx, s)
	}))

	_, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.engine.GetCapacityAnalysis(f.ctx, testUser)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGenerateTodaysTasks_LocalDate(t *testing.T) {
	f := newFixture(t)
	f.updateSettings(t, func(s *entities.UserSettings) { s.Timezone = "+09:00" })

	plan, err := f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-10", plan.Date)

	f.clock.Advance(11 * time.Hour)
	plan, err = f.engine.GenerateTodaysTasks(f.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, "2025-03-11", plan.Date)
}

func TestGetCapacityAnalysis(t *testing.T) {
	f := newFixture(t)
	section := f.section(t)
	c := f.criterion(t, section, entities.StageUnderstand, 1)
	f.putMastery(t, c, func(*entities.UserCriterionMastery) {})

	analysis, err := f.engine.GetCapacityAnalysis(f.ctx, testUser)
	require.NoError(t, err)
	assert.Equal(t, 30, analysis.UserCapacity)
	assert.Equal(t, 5, analysis.UsedCapacity)
	assert.Equal(t, 25, analysis.RemainingCapacity)
	assert.Equal(t, -25, analysis.CapacityGap)
	assert.Len(t, analysis.Recommendations, 2)
}
