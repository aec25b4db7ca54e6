package redis

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/service"
	"github.com/aliskhannn/mastery-engine/internal/storage"
)

// fakeRedis implements the commands used by the adapters on top of a map.
type fakeRedis struct {
	goredis.Cmdable
	data      map[string][]byte
	ttl       map[string]time.Duration
	published map[string][][]byte
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{
		data:      make(map[string][]byte),
		ttl:       make(map[string]time.Duration),
		published: make(map[string][][]byte),
	}
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(string(v), nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	f.data[key] = value.([]byte)
	f.ttl[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) Del(_ context.Context, keys ...string) *goredis.IntCmd {
	var n int64
	for _, k := range keys {
		if _, ok := f.data[k]; ok {
			delete(f.data, k)
			n++
		}
	}
	return goredis.NewIntResult(n, nil)
}

func (f *fakeRedis) Publish(_ context.Context, channel string, message any) *goredis.IntCmd {
	f.published[channel] = append(f.published[channel], message.([]byte))
	return goredis.NewIntResult(1, nil)
}

func TestSettingsCache_RoundTrip(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cache := NewSettingsCache(rdb, 0)

	_, ok, err := cache.Get(ctx, 11)
	require.NoError(t, err)
	assert.False(t, ok, "missing key is a miss")

	gap := 3
	settings := entities.NewUserSettings(11, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	settings.MasteryTier = entities.TierExpert
	settings.MinGapDays = &gap
	require.NoError(t, cache.Set(ctx, settings))
	assert.Equal(t, DefaultSettingsTTL, rdb.ttl["mastery:settings:11"])

	got, ok, err := cache.Get(ctx, 11)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, entities.TierExpert, got.MasteryTier)
	require.NotNil(t, got.MinGapDays)
	assert.Equal(t, 3, *got.MinGapDays)

	require.NoError(t, cache.Invalidate(ctx, 11))
	_, ok, err = cache.Get(ctx, 11)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettingsCache_CorruptValue(t *testing.T) {
	rdb := newFakeRedis()
	rdb.data[settingsKey(4)] = []byte("{not json")

	_, ok, err := NewSettingsCache(rdb, time.Minute).Get(context.Background(), 4)
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSettingsCache_WithSettingsService(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	cache := NewSettingsCache(rdb, time.Minute)
	svc := service.NewSettingsService(storage.NewStore(), cache, service.SettingsDefaults{}, zap.NewNop())

	first, err := svc.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, entities.DefaultDailyStudyMinutes, first.DailyStudyMinutes)
	assert.Contains(t, rdb.data, settingsKey(8), "defaults are cached")

	first.DailyStudyMinutes = 50
	require.NoError(t, svc.Update(ctx, first))
	cached, ok, err := cache.Get(ctx, 8)
	require.NoError(t, err)
	require.True(t, ok, "update writes the committed settings through")
	assert.Equal(t, 50, cached.DailyStudyMinutes)

	second, err := svc.Get(ctx, 8)
	require.NoError(t, err)
	assert.Equal(t, 50, second.DailyStudyMinutes)
}

func TestPlanPublisher_Publish(t *testing.T) {
	rdb := newFakeRedis()
	pub := NewPlanPublisher(rdb, "")

	plan := &entities.TodaysTasks{
		UserID:          3,
		Date:            "2025-03-10",
		Critical:        entities.TaskBucket{Tasks: make([]entities.DailyTask, 2)},
		Plus:            entities.TaskBucket{Tasks: make([]entities.DailyTask, 1)},
		Overflow:        make([]entities.DailyTask, 4),
		EstimatedTime:   19,
		Recommendations: []string{"Focus on critical tasks first."},
	}
	require.NoError(t, pub.Publish(context.Background(), plan))

	msgs := rdb.published[DefaultPlanChannel]
	require.Len(t, msgs, 1)

	var msg PlanMessage
	require.NoError(t, json.Unmarshal(msgs[0], &msg))
	assert.Equal(t, int64(3), msg.UserID)
	assert.Equal(t, "2025-03-10", msg.Date)
	assert.Equal(t, 2, msg.Critical)
	assert.Zero(t, msg.Core)
	assert.Equal(t, 1, msg.Plus)
	assert.Equal(t, 4, msg.Overflow)
	assert.Equal(t, 19, msg.EstimatedMinutes)
}
