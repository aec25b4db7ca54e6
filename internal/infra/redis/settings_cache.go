package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/service"
)

const (
	settingsKeyPrefix  = "mastery:settings:"
	DefaultSettingsTTL = 10 * time.Minute
)

// SettingsCache keeps serialized user settings in Redis with a TTL.
type SettingsCache struct {
	client goredis.Cmdable
	ttl    time.Duration
}

// NewSettingsCache creates a settings cache. A non-positive ttl uses DefaultSettingsTTL.
func NewSettingsCache(client goredis.Cmdable, ttl time.Duration) *SettingsCache {
	if ttl <= 0 {
		ttl = DefaultSettingsTTL
	}
	return &SettingsCache{client: client, ttl: ttl}
}

var _ service.SettingsCache = (*SettingsCache)(nil)

func settingsKey(userID int64) string {
	return settingsKeyPrefix + strconv.FormatInt(userID, 10)
}

// Get returns the cached settings. A missing key is a miss, not an error.
func (c *SettingsCache) Get(ctx context.Context, userID int64) (*entities.UserSettings, bool, error) {
	data, err := c.client.Get(ctx, settingsKey(userID)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get cached settings: %w", err)
	}

	var settings entities.UserSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, false, fmt.Errorf("decode cached settings: %w", err)
	}
	return &settings, true, nil
}

func (c *SettingsCache) Set(ctx context.Context, settings *entities.UserSettings) error {
	data, err := json.Marshal(settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := c.client.Set(ctx, settingsKey(settings.UserID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache settings: %w", err)
	}
	return nil
}

func (c *SettingsCache) Invalidate(ctx context.Context, userID int64) error {
	if err := c.client.Del(ctx, settingsKey(userID)).Err(); err != nil {
		return fmt.Errorf("invalidate settings: %w", err)
	}
	return nil
}
