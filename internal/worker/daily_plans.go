// Package worker runs the background jobs of the engine.
package worker

import (
	"cmp"
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

var tracer = otel.Tracer("github.com/aliskhannn/mastery-engine/internal/worker")

// UserLister lists users that should receive a daily plan.
type UserLister interface {
	ListUserIDs(ctx context.Context) ([]int64, error)
}

// PlanGenerator builds the daily plan of a user.
type PlanGenerator interface {
	GenerateTodaysTasks(ctx context.Context, userID int64) (*entities.TodaysTasks, error)
}

// PlanPublisher delivers a generated plan.
type PlanPublisher interface {
	Publish(ctx context.Context, plan *entities.TodaysTasks) error
}

// DailyPlansConfig controls the daily plan job.
type DailyPlansConfig struct {
	Spec        string // cron spec in UTC
	Concurrency int    // users processed in parallel
	BatchSize   int    // users per batch
}

const (
	DefaultSpec        = "0 5 * * *"
	DefaultConcurrency = 10
	DefaultBatchSize   = 100
)

// DailyPlans generates and publishes the plan of every user once a day.
type DailyPlans struct {
	users     UserLister
	plans     PlanGenerator
	publisher PlanPublisher
	cfg       DailyPlansConfig
	logger    *zap.Logger
}

// NewDailyPlans creates the daily plan job.
func NewDailyPlans(users UserLister, plans PlanGenerator, publisher PlanPublisher, cfg DailyPlansConfig, logger *zap.Logger) *DailyPlans {
	cfg.Spec = cmp.Or(cfg.Spec, DefaultSpec)
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	return &DailyPlans{
		users:     users,
		plans:     plans,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Start runs the job on its schedule until ctx is cancelled.
func (w *DailyPlans) Start(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))

	_, err := c.AddFunc(w.cfg.Spec, func() {
		w.logger.Info("cron triggered: generating daily plans")
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error("failed to generate daily plans", zap.Error(err))
		}
	})
	if err != nil {
		return fmt.Errorf("add cron job: %w", err)
	}

	c.Start()
	w.logger.Info("daily plan worker started", zap.String("spec", w.cfg.Spec))

	<-ctx.Done()

	<-c.Stop().Done()
	w.logger.Info("daily plan worker stopped")
	return nil
}

// RunOnce generates and publishes plans for all users and returns how many
// were published. Failures of single users are logged and skipped.
func (w *DailyPlans) RunOnce(ctx context.Context) (int, error) {
	// Every run is its own trace.
	ctx, span := tracer.Start(ctx, "DailyPlans.RunOnce", trace.WithNewRoot())
	defer span.End()

	ids, err := w.users.ListUserIDs(ctx)
	if err != nil {
		span.RecordError(err)
		return 0, fmt.Errorf("list users: %w", err)
	}
	span.SetAttributes(attribute.Int("users", len(ids)))

	total := 0
	for start := 0; start < len(ids); start += w.cfg.BatchSize {
		end := min(start+w.cfg.BatchSize, len(ids))
		total += w.processBatch(ctx, ids[start:end])

		if err := ctx.Err(); err != nil {
			return total, err
		}
	}

	w.logger.Info("daily plans processed",
		zap.Int("users", len(ids)),
		zap.Int("published", total),
	)
	return total, nil
}

func (w *DailyPlans) processBatch(ctx context.Context, ids []int64) int {
	var g errgroup.Group
	g.SetLimit(w.cfg.Concurrency)

	var published atomic.Int64
	for _, id := range ids {
		g.Go(func() error {
			if err := w.processUser(ctx, id); err != nil {
				w.logger.Error("failed to process daily plan",
					zap.Int64("user_id", id),
					zap.Error(err))
				return nil
			}
			published.Add(1)
			return nil
		})
	}

	_ = g.Wait()
	return int(published.Load())
}

func (w *DailyPlans) processUser(ctx context.Context, userID int64) error {
	plan, err := w.plans.GenerateTodaysTasks(ctx, userID)
	if err != nil {
		return fmt.Errorf("generate plan: %w", err)
	}
	if err := w.publisher.Publish(ctx, plan); err != nil {
		return fmt.Errorf("publish plan: %w", err)
	}
	return nil
}

// LogPublisher writes plan summaries to the log. It is used when no
// message broker is configured.
type LogPublisher struct {
	logger *zap.Logger
}

func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

func (p *LogPublisher) Publish(_ context.Context, plan *entities.TodaysTasks) error {
	p.logger.Info("daily plan generated",
		zap.Int64("user_id", plan.UserID),
		zap.String("date", plan.Date),
		zap.Int("critical", plan.Critical.Count()),
		zap.Int("core", plan.Core.Count()),
		zap.Int("plus", plan.Plus.Count()),
		zap.Int("overflow", len(plan.Overflow)),
		zap.Int("estimated_minutes", plan.EstimatedTime),
	)
	return nil
}
