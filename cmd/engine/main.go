package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/config"
	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/infra/postgres"
	pgrepo "github.com/aliskhannn/mastery-engine/internal/infra/postgres/repository"
	"github.com/aliskhannn/mastery-engine/internal/infra/redis"
	"github.com/aliskhannn/mastery-engine/internal/infra/sqlite"
	"github.com/aliskhannn/mastery-engine/internal/logger"
	"github.com/aliskhannn/mastery-engine/internal/observability"
	"github.com/aliskhannn/mastery-engine/internal/repository"
	"github.com/aliskhannn/mastery-engine/internal/service"
	"github.com/aliskhannn/mastery-engine/internal/storage"
	"github.com/aliskhannn/mastery-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	lg, err := logger.New(cfg)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = lg.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, lg); err != nil {
		lg.Fatal("engine stopped with error", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, lg *zap.Logger) error {
	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfig{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	}, lg)
	if err != nil {
		return err
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			lg.Warn("tracing shutdown failed", zap.Error(err))
		}
	}()

	store, closeStore, err := openStore(ctx, cfg.DB, lg)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		cache     service.SettingsCache
		publisher worker.PlanPublisher = worker.NewLogPublisher(lg.Named("plans"))
	)
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		cache = redis.NewSettingsCache(client, cfg.Redis.SettingsTTL)
		publisher = redis.NewPlanPublisher(client, cfg.Redis.PlanChannel)
		lg.Info("redis adapters enabled", zap.String("plan_channel", cfg.Redis.PlanChannel))
	}

	engineCfg, err := engineConfig(cfg.Mastery)
	if err != nil {
		return err
	}
	engine := service.NewEngine(store, cache, engineCfg, lg)
	lg.Info("mastery engine ready", zap.String("driver", cfg.DB.Driver))

	if !cfg.Worker.Enabled {
		<-ctx.Done()
		lg.Info("shutdown signal received")
		return nil
	}

	plans := worker.NewDailyPlans(engine.Settings(), engine, publisher, worker.DailyPlansConfig{
		Spec:        cfg.Worker.Spec,
		Concurrency: cfg.Worker.Concurrency,
		BatchSize:   cfg.Worker.BatchSize,
	}, lg.Named("worker"))
	return plans.Start(ctx)
}

// openStore opens the configured persistence backend.
func openStore(ctx context.Context, cfg config.DB, lg *zap.Logger) (repository.Store, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		dsn, err := cfg.DSN()
		if err != nil {
			return nil, nil, err
		}
		pool, err := postgres.NewPool(ctx, dsn, postgres.PoolConfig{
			MaxConns:        cfg.MaxConnections,
			MinConns:        cfg.MinConnections,
			MaxConnLifetime: cfg.MaxConnLifetime,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Migrate {
			if err := postgres.Migrate(ctx, pool, lg.Named("migrate")); err != nil {
				pool.Close()
				return nil, nil, err
			}
		}
		return pgrepo.NewStore(pool), pool.Close, nil

	case config.DriverSQLite:
		db, err := sqlite.Open(cfg.SQLitePath, lg.Named("sqlite"))
		if err != nil {
			return nil, nil, err
		}
		return sqlite.NewStore(db), func() { _ = sqlite.Close(db) }, nil

	case config.DriverMemory:
		lg.Warn("using in-memory store, data is lost on exit")
		return storage.NewStore(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("%w %q", config.ErrUnknownDriver, cfg.Driver)
}

func engineConfig(m config.Mastery) (service.Config, error) {
	tier, err := entities.ParseThresholdTier(m.Tier)
	if err != nil {
		return service.Config{}, err
	}
	style, err := entities.ParseLearningStyle(m.LearningStyle)
	if err != nil {
		return service.Config{}, err
	}
	if _, err := entities.ParseTimezoneLocation(m.Timezone); err != nil {
		return service.Config{}, err
	}

	return service.Config{
		Settings: service.SettingsDefaults{
			DailyStudyMinutes: m.DailyMinutes,
			MasteryTier:       tier,
			LearningStyle:     style,
			Timezone:          m.Timezone,
		},
		Scheduler: service.SchedulerConfig{
			CriticalMinutes:     m.CriticalMinutes,
			CoreMinutes:         m.CoreMinutes,
			PlusMinutes:         m.PlusMinutes,
			CriticalOverdueDays: m.CriticalOverdueDays,
			CriticalFailures:    m.CriticalFailures,
			PreviewLimit:        m.PreviewLimit,
		},
		MaxIntervalDays: m.MaxIntervalDays,
	}, nil
}
