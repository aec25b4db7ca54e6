package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/intervals"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// Config wires the engine services.
type Config struct {
	Settings        SettingsDefaults
	Scheduler       SchedulerConfig
	LearningSteps   []time.Duration // nil → intervals.DefaultLearningSteps
	MaxIntervalDays int             // zero → intervals.MaxIntervalDays
}

// Engine is the caller-facing surface of the mastery and review scheduler.
// Every operation is a short unit of work against the store.
type Engine struct {
	settings  *SettingsService
	catalog   *CatalogService
	tracker   *CriterionTracker
	stages    *StageAggregator
	gate      *ProgressionGate
	sets      *SetReviewEngine
	recall    *SetRecallScheduler
	scheduler *DailyTaskScheduler
}

// NewEngine builds every service on top of store. cache may be nil.
func NewEngine(store repository.Store, cache SettingsCache, cfg Config, logger *zap.Logger) *Engine {
	ease := intervals.NewEaseFactor(intervals.EaseFactorConfig{
		LearningSteps:   cfg.LearningSteps,
		MaximumInterval: cfg.MaxIntervalDays,
	})

	settings := NewSettingsService(store, cache, cfg.Settings, logger.Named("settings"))
	stages := NewStageAggregator(store, settings, logger.Named("stages"))

	return &Engine{
		settings:  settings,
		catalog:   NewCatalogService(store, logger.Named("catalog")),
		tracker:   NewCriterionTracker(store, settings, ease, logger.Named("criteria")),
		stages:    stages,
		gate:      NewProgressionGate(store, settings, stages, logger.Named("progression")),
		sets:      NewSetReviewEngine(store, intervals.ThresholdTable{}, logger.Named("sets")),
		recall:    NewSetRecallScheduler(store, ease, logger.Named("recall")),
		scheduler: NewDailyTaskScheduler(store, settings, cfg.Scheduler, logger.Named("scheduler")),
	}
}

// Settings returns the settings service.
func (e *Engine) Settings() *SettingsService { return e.settings }

// Catalog returns the content catalog service.
func (e *Engine) Catalog() *CatalogService { return e.catalog }

func (e *Engine) RecordCriterionAttempt(ctx context.Context, userID, criterionID int64, performance float64, opts AttemptOptions) (*AttemptResult, error) {
	return e.tracker.RecordAttempt(ctx, userID, criterionID, performance, opts)
}

func (e *Engine) GetStageMastery(ctx context.Context, sectionID int64, stage entities.UueStage, userID int64) (*StageMastery, error) {
	return e.stages.StageMastery(ctx, sectionID, stage, userID)
}

func (e *Engine) GetUnitMastery(ctx context.Context, sectionID, userID int64) (*UnitMastery, error) {
	return e.stages.UnitMastery(ctx, sectionID, userID)
}

func (e *Engine) CanProgressStage(ctx context.Context, userID, sectionID int64, current entities.UueStage) (*AdvanceCheck, error) {
	return e.gate.CanAdvance(ctx, userID, sectionID, current)
}

func (e *Engine) UnlockNextStage(ctx context.Context, userID, sectionID int64, current entities.UueStage) (*UnlockResult, error) {
	return e.gate.Unlock(ctx, userID, sectionID, current)
}

func (e *Engine) GetCurrentStage(ctx context.Context, userID, sectionID int64) (entities.UueStage, error) {
	return e.gate.CurrentStage(ctx, userID, sectionID)
}

func (e *Engine) GetLearningPath(ctx context.Context, userID, sectionID int64) (*LearningPath, error) {
	return e.gate.LearningPath(ctx, userID, sectionID)
}

func (e *Engine) ProcessSetReview(ctx context.Context, userID int64, outcomes []QuestionOutcome, sessionStart time.Time, durationSeconds int) (*SetReviewResult, error) {
	return e.sets.ProcessReview(ctx, userID, outcomes, sessionStart, durationSeconds)
}

func (e *Engine) DueQuestionSets(ctx context.Context, userID int64) ([]*entities.QuestionSet, error) {
	return e.sets.DueSets(ctx, userID)
}

func (e *Engine) RecordSetRecall(ctx context.Context, userID, setID int64, quality int) (*RecallResult, error) {
	return e.recall.RecordRecall(ctx, userID, setID, quality)
}

func (e *Engine) GenerateTodaysTasks(ctx context.Context, userID int64) (*entities.TodaysTasks, error) {
	return e.scheduler.GenerateTodaysTasks(ctx, userID)
}

func (e *Engine) GetCapacityAnalysis(ctx context.Context, userID int64) (*entities.CapacityAnalysis, error) {
	return e.scheduler.CapacityAnalysis(ctx, userID)
}
