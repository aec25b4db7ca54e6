package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// SchedulerConfig tunes the daily task scheduler. Zero fields take the
// defaults of DefaultSchedulerConfig.
type SchedulerConfig struct {
	CriticalMinutes     int // estimated minutes per CRITICAL task
	CoreMinutes         int // estimated minutes per CORE task
	PlusMinutes         int // estimated minutes per PLUS task
	CriticalOverdueDays int // days overdue that make a task CRITICAL
	CriticalFailures    int // consecutive failed attempts that make a task CRITICAL
	PreviewLimit        int // next-stage preview tasks per plan
}

// DefaultSchedulerConfig returns the stock time table and thresholds.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		CriticalMinutes:     8,
		CoreMinutes:         5,
		PlusMinutes:         3,
		CriticalOverdueDays: 3,
		CriticalFailures:    2,
		PreviewLimit:        5,
	}
}

func (c SchedulerConfig) withDefaults() SchedulerConfig {
	def := DefaultSchedulerConfig()
	c.CriticalMinutes = cmp.Or(c.CriticalMinutes, def.CriticalMinutes)
	c.CoreMinutes = cmp.Or(c.CoreMinutes, def.CoreMinutes)
	c.PlusMinutes = cmp.Or(c.PlusMinutes, def.PlusMinutes)
	c.CriticalOverdueDays = cmp.Or(c.CriticalOverdueDays, def.CriticalOverdueDays)
	c.CriticalFailures = cmp.Or(c.CriticalFailures, def.CriticalFailures)
	if c.PreviewLimit < 0 {
		c.PreviewLimit = 0
	} else if c.PreviewLimit == 0 {
		c.PreviewLimit = def.PreviewLimit
	}
	return c
}

func (c SchedulerConfig) minutes(p entities.Priority) int {
	switch p {
	case entities.PriorityCritical:
		return c.CriticalMinutes
	case entities.PriorityPlus:
		return c.PlusMinutes
	default:
		return c.CoreMinutes
	}
}

// DailyTaskScheduler turns due criteria into a capacity-bounded daily plan.
type DailyTaskScheduler struct {
	clock
	store    repository.Store
	settings SettingsProvider
	cfg      SchedulerConfig
	logger   *zap.Logger
}

// NewDailyTaskScheduler creates the scheduler.
func NewDailyTaskScheduler(store repository.Store, settings SettingsProvider, cfg SchedulerConfig, logger *zap.Logger) *DailyTaskScheduler {
	return &DailyTaskScheduler{
		clock:    systemClock(),
		store:    store,
		settings: settings,
		cfg:      cfg.withDefaults(),
		logger:   logger,
	}
}

// GenerateTodaysTasks builds the user's plan for today from one consistent
// snapshot of their mastery rows.
func (s *DailyTaskScheduler) GenerateTodaysTasks(ctx context.Context, userID int64) (*entities.TodaysTasks, error) {
	ctx, span := tracer.Start(ctx, "DailyTaskScheduler.GenerateTodaysTasks")
	defer span.End()
	span.SetAttributes(attribute.Int64("user_id", userID))

	settings, err := s.settings.Get(ctx, userID)
	if err != nil {
		return nil, classify("generate todays tasks", err)
	}
	capacity := settings.DailyStudyMinutes
	if capacity <= 0 {
		return nil, validationErr("daily capacity must be positive, got %d", capacity)
	}

	now := s.now()
	var tasks []entities.DailyTask
	err = s.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		tasks, err = s.collect(ctx, r, userID, tierOf(settings), now)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, classify("generate todays tasks", err)
	}

	plan := s.balance(tasks, capacity)
	plan.UserID = userID
	plan.GeneratedAt = now
	plan.Date = entities.LocalDate(now, settings.Location())

	s.logger.Info("daily plan generated",
		zap.Int64("user_id", userID),
		zap.String("date", plan.Date),
		zap.Int("critical", plan.Critical.Count()),
		zap.Int("core", plan.Core.Count()),
		zap.Int("plus", plan.Plus.Count()),
		zap.Int("overflow", len(plan.Overflow)),
		zap.Int("minutes", plan.EstimatedTime),
	)
	return plan, nil
}

// CapacityAnalysis reports how today's due work fits the user's capacity.
func (s *DailyTaskScheduler) CapacityAnalysis(ctx context.Context, userID int64) (*entities.CapacityAnalysis, error) {
	plan, err := s.GenerateTodaysTasks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("capacity analysis: %w", err)
	}
	return &plan.Capacity, nil
}

// collect projects every due criterion of the user into a task and adds
// next-stage previews for sections whose current stage is mastered. A
// section is active once the user has a mastery row in it.
func (s *DailyTaskScheduler) collect(ctx context.Context, r repository.Repos, userID int64, tier entities.ThresholdTier, now time.Time) ([]entities.DailyTask, error) {
	rows, err := r.Masteries().ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	var tasks []entities.DailyTask
	sections := make(map[int64]entities.UueStage)
	tracked := make(map[int64]bool, len(rows))
	for _, m := range rows {
		tracked[m.CriterionID] = true
		if cur, ok := sections[m.SectionID]; !ok || m.Stage.Index() > cur.Index() {
			sections[m.SectionID] = m.Stage
		}

		priority, due := s.priority(m, now)
		if !due {
			continue
		}
		c, err := r.Criteria().GetByID(ctx, m.CriterionID)
		if errors.Is(err, repository.ErrCriterionNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, s.newTask(c, priority, m.MasteryScore, m.Review.DaysOverdue(now), false))
	}

	// Criteria of a section's current stage that were never attempted
	// have no row yet and are always due.
	active := slices.Sorted(maps.Keys(sections))
	for _, sectionID := range active {
		criteria, err := r.Criteria().ListBySectionStage(ctx, sectionID, sections[sectionID])
		if err != nil {
			return nil, err
		}
		for _, c := range criteria {
			if !tracked[c.ID] {
				tasks = append(tasks, s.newTask(c, entities.PriorityCore, 0, 0, false))
			}
		}
	}

	previews := 0
	for _, sectionID := range active {
		if previews >= s.cfg.PreviewLimit {
			break
		}
		current := sections[sectionID]
		next, ok := current.Next()
		if !ok {
			continue
		}
		sm, err := computeStageMastery(ctx, r, sectionID, current, userID, tier)
		if err != nil {
			return nil, err
		}
		if !sm.IsMastered {
			continue
		}

		criteria, err := r.Criteria().ListBySectionStage(ctx, sectionID, next)
		if err != nil {
			return nil, err
		}
		for _, c := range criteria {
			if previews >= s.cfg.PreviewLimit {
				break
			}
			tasks = append(tasks, s.newTask(c, entities.PriorityPlus, 0, 0, true))
			previews++
		}
	}
	return tasks, nil
}

// priority buckets a mastery row. Rows that are not due yet are skipped.
func (s *DailyTaskScheduler) priority(m *entities.UserCriterionMastery, now time.Time) (entities.Priority, bool) {
	if !m.Review.IsDue(now) {
		return "", false
	}
	switch {
	case m.Review.DaysOverdue(now) >= s.cfg.CriticalOverdueDays,
		m.ConsecutiveFailures >= s.cfg.CriticalFailures:
		return entities.PriorityCritical, true
	case m.IsMastered:
		return entities.PriorityPlus, true
	default:
		return entities.PriorityCore, true
	}
}

func (s *DailyTaskScheduler) newTask(c *entities.MasteryCriterion, p entities.Priority, score float64, overdue int, preview bool) entities.DailyTask {
	t := entities.DailyTask{
		ID:            uuid.New(),
		CriterionID:   c.ID,
		SectionID:     c.SectionID,
		Stage:         c.Stage,
		Title:         c.Title,
		Priority:      p,
		EstimatedTime: s.cfg.minutes(p),
		MasteryScore:  score,
		DaysOverdue:   overdue,
		QuestionTypes: slices.Clone(c.QuestionTypes),
		Difficulty:    entities.DifficultyForStage(c.Stage),
		IsPreview:     preview,
	}
	t.QuestionCount = questionCount(t)
	return t
}

func questionCount(t entities.DailyTask) int {
	n := 3
	switch t.Priority {
	case entities.PriorityCritical:
		n = 5
	case entities.PriorityPlus:
		n = 2
	}
	switch {
	case t.MasteryScore < 0.3:
		n += 2
	case t.MasteryScore > 0.8:
		n = max(1, n-1)
	}
	return n
}

// balance fits the tasks into capacity minutes. CRITICAL tasks are always
// scheduled; CORE and then PLUS tasks are added while they fit and the rest
// go to overflow.
func (s *DailyTaskScheduler) balance(tasks []entities.DailyTask, capacity int) *entities.TodaysTasks {
	plan := &entities.TodaysTasks{
		Critical: entities.TaskBucket{Priority: entities.PriorityCritical},
		Core:     entities.TaskBucket{Priority: entities.PriorityCore},
		Plus:     entities.TaskBucket{Priority: entities.PriorityPlus},
	}

	var critical, core, plus []entities.DailyTask
	required := 0
	for _, t := range tasks {
		required += t.EstimatedTime
		switch t.Priority {
		case entities.PriorityCritical:
			critical = append(critical, t)
		case entities.PriorityCore:
			core = append(core, t)
		default:
			plus = append(plus, t)
		}
	}
	sortTasks(critical)
	sortTasks(core)
	sortTasks(plus)

	used := 0
	analysis := entities.CapacityAnalysis{UserCapacity: capacity, RequiredCapacity: required}

	for _, t := range critical {
		used += t.EstimatedTime
		if used > capacity {
			analysis.CriticalOverflow++
		}
		plan.Critical.Tasks = append(plan.Critical.Tasks, t)
		plan.Critical.EstimatedTime += t.EstimatedTime
	}
	fill := func(bucket *entities.TaskBucket, candidates []entities.DailyTask) int {
		overflow := 0
		for _, t := range candidates {
			if used+t.EstimatedTime > capacity {
				plan.Overflow = append(plan.Overflow, t)
				overflow++
				continue
			}
			used += t.EstimatedTime
			bucket.Tasks = append(bucket.Tasks, t)
			bucket.EstimatedTime += t.EstimatedTime
		}
		return overflow
	}
	analysis.CoreOverflow = fill(&plan.Core, core)
	analysis.PlusOverflow = fill(&plan.Plus, plus)

	analysis.UsedCapacity = used
	analysis.RemainingCapacity = max(0, capacity-used)
	analysis.CapacityUtilization = float64(used) / float64(capacity) * 100
	analysis.CapacityGap = required - capacity
	analysis.Recommendations = gapRecommendations(analysis)

	plan.TotalTasks = plan.Critical.Count() + plan.Core.Count() + plan.Plus.Count()
	plan.EstimatedTime = used
	plan.Capacity = analysis
	plan.Recommendations = planRecommendations(plan)
	return plan
}

// sortTasks orders tasks by days overdue, then by ascending mastery.
func sortTasks(tasks []entities.DailyTask) {
	slices.SortStableFunc(tasks, func(a, b entities.DailyTask) int {
		return cmp.Or(
			cmp.Compare(b.DaysOverdue, a.DaysOverdue),
			cmp.Compare(a.MasteryScore, b.MasteryScore),
			cmp.Compare(a.CriterionID, b.CriterionID),
		)
	})
}

func planRecommendations(plan *entities.TodaysTasks) []string {
	if plan.TotalTasks == 0 && len(plan.Overflow) == 0 {
		return []string{"You're all caught up. Nothing is due today."}
	}

	c := plan.Capacity
	var recs []string
	if c.CriticalOverflow > 0 {
		recs = append(recs, fmt.Sprintf(
			"%d critical tasks don't fit into your daily time. Consider increasing study time or reducing tracking intensity.",
			c.CriticalOverflow))
	}
	if c.CapacityUtilization < 80 {
		recs = append(recs, fmt.Sprintf(
			"You have %d minutes remaining. Consider adding more core tasks or previewing next stage content.",
			c.RemainingCapacity))
	}
	if c.CapacityUtilization > 120 {
		recs = append(recs, fmt.Sprintf(
			"You're over capacity by %d minutes. Consider prioritizing critical tasks only.",
			c.UsedCapacity-c.UserCapacity))
	}
	if plan.Plus.Count() == 0 && plan.Core.Count() > 0 {
		recs = append(recs, "All tasks are high priority. Consider adding some preview content for variety.")
	}
	return recs
}

func gapRecommendations(c entities.CapacityAnalysis) []string {
	switch {
	case c.CapacityGap > 0:
		return []string{
			fmt.Sprintf("Increase daily study time by %d minutes to cover all due tasks.", c.CapacityGap),
			"Focus on critical tasks first and defer core tasks to tomorrow.",
		}
	case c.CapacityGap < -20:
		return []string{
			fmt.Sprintf("You have %d minutes of extra capacity.", -c.CapacityGap),
			"Consider previewing next stage content.",
		}
	}
	return nil
}
