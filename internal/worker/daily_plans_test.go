package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/service"
	"github.com/aliskhannn/mastery-engine/internal/storage"
)

type staticUsers []int64

func (u staticUsers) ListUserIDs(context.Context) ([]int64, error) { return u, nil }

type failingUsers struct{}

func (failingUsers) ListUserIDs(context.Context) ([]int64, error) {
	return nil, errors.New("connection refused")
}

type planFunc func(ctx context.Context, userID int64) (*entities.TodaysTasks, error)

func (f planFunc) GenerateTodaysTasks(ctx context.Context, userID int64) (*entities.TodaysTasks, error) {
	return f(ctx, userID)
}

type recordingPublisher struct {
	mu    sync.Mutex
	plans map[int64]*entities.TodaysTasks
}

func (p *recordingPublisher) Publish(_ context.Context, plan *entities.TodaysTasks) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.plans == nil {
		p.plans = make(map[int64]*entities.TodaysTasks)
	}
	p.plans[plan.UserID] = plan
	return nil
}

func TestDailyPlans_RunOnce(t *testing.T) {
	var users staticUsers
	for id := int64(1); id <= 25; id++ {
		users = append(users, id)
	}
	gen := planFunc(func(_ context.Context, userID int64) (*entities.TodaysTasks, error) {
		if userID == 13 {
			return nil, errors.New("settings unavailable")
		}
		return &entities.TodaysTasks{UserID: userID}, nil
	})
	pub := &recordingPublisher{}

	w := NewDailyPlans(users, gen, pub, DailyPlansConfig{Concurrency: 3, BatchSize: 10}, zap.NewNop())
	n, err := w.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Len(t, pub.plans, 24)
	assert.NotContains(t, pub.plans, int64(13))
}

func TestDailyPlans_ListFailure(t *testing.T) {
	w := NewDailyPlans(failingUsers{}, nil, &recordingPublisher{}, DailyPlansConfig{}, zap.NewNop())
	_, err := w.RunOnce(context.Background())
	assert.Error(t, err)
}

func TestDailyPlans_WithEngine(t *testing.T) {
	ctx := context.Background()
	engine := service.NewEngine(storage.NewStore(), nil, service.Config{}, zap.NewNop())

	require.NoError(t, engine.Settings().Update(ctx, entities.NewUserSettings(4, time.Now().UTC())))

	// User 9 practises with default settings and never stores any.
	section, err := engine.Catalog().CreateSection(ctx, "Kinematics")
	require.NoError(t, err)
	c := &entities.MasteryCriterion{
		SectionID:        section.ID,
		Stage:            entities.StageUnderstand,
		Weight:           1,
		MasteryThreshold: 0.8,
	}
	require.NoError(t, engine.Catalog().CreateCriterion(ctx, c))
	_, err = engine.RecordCriterionAttempt(ctx, 9, c.ID, 0.5, service.AttemptOptions{})
	require.NoError(t, err)

	core, logs := observer.New(zap.InfoLevel)
	w := NewDailyPlans(engine.Settings(), engine, NewLogPublisher(zap.New(core)), DailyPlansConfig{}, zap.NewNop())

	n, err := w.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	var users []int64
	for _, e := range logs.FilterMessage("daily plan generated").All() {
		users = append(users, e.ContextMap()["user_id"].(int64))
	}
	assert.ElementsMatch(t, []int64{4, 9}, users)
}

func TestDailyPlans_StartRejectsBadSpec(t *testing.T) {
	w := NewDailyPlans(staticUsers{}, nil, nil, DailyPlansConfig{Spec: "every day"}, zap.NewNop())
	assert.Error(t, w.Start(context.Background()))
}

func TestDailyPlans_StartStopsOnCancel(t *testing.T) {
	w := NewDailyPlans(staticUsers{}, nil, nil, DailyPlansConfig{}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("worker did not stop")
	}
}
