package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// SettingsDefaults are applied to users that never stored settings.
type SettingsDefaults struct {
	DailyStudyMinutes int
	MasteryTier       entities.ThresholdTier
	LearningStyle     entities.LearningStyle
	Timezone          string
}

// SettingsService reads and writes user settings, optionally through a cache.
type SettingsService struct {
	clock
	store    repository.Store
	cache    SettingsCache
	defaults SettingsDefaults
	logger   *zap.Logger

	mu       sync.Mutex
	versions map[int64]uint64 // bumped by every committed update
}

// NewSettingsService creates a settings service. cache may be nil.
func NewSettingsService(store repository.Store, cache SettingsCache, defaults SettingsDefaults, logger *zap.Logger) *SettingsService {
	return &SettingsService{
		clock:    systemClock(),
		store:    store,
		cache:    cache,
		defaults: defaults,
		logger:   logger,
		versions: make(map[int64]uint64),
	}
}

var _ SettingsProvider = (*SettingsService)(nil)

// Get returns the user's settings, or the configured defaults when the
// user has none. Defaults are not persisted.
func (s *SettingsService) Get(ctx context.Context, userID int64) (*entities.UserSettings, error) {
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, userID)
		if err != nil {
			s.logger.Warn("settings cache get failed", zap.Int64("user_id", userID), zap.Error(err))
		} else if ok {
			return cached, nil
		}
	}

	version := s.version(userID)

	var settings *entities.UserSettings
	err := s.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		var err error
		settings, err = r.Settings().GetByUserID(ctx, userID)
		return err
	})
	switch {
	case errors.Is(err, repository.ErrSettingsNotFound):
		settings = s.defaultsFor(userID)
	case err != nil:
		return nil, fmt.Errorf("get settings: %w", err)
	}

	s.fill(ctx, settings, version)
	return settings, nil
}

// Update validates and stores the settings. The cached copy is dropped
// before the write and replaced with the committed value after it.
func (s *SettingsService) Update(ctx context.Context, settings *entities.UserSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("update settings: %w", validationErr("%v", err))
	}

	settings.UpdatedAt = s.now()
	if settings.CreatedAt.IsZero() {
		settings.CreatedAt = settings.UpdatedAt
	}

	s.invalidate(ctx, settings.UserID)

	err := s.store.WithinTx(ctx, func(ctx context.Context, r repository.Repos) error {
		return r.Settings().Upsert(ctx, settings)
	})
	if err != nil {
		return classify("update settings", err)
	}

	s.mu.Lock()
	s.versions[settings.UserID]++
	version := s.versions[settings.UserID]
	s.mu.Unlock()
	s.fill(ctx, settings, version)

	s.logger.Info("settings updated",
		zap.Int64("user_id", settings.UserID),
		zap.Int("daily_minutes", settings.DailyStudyMinutes),
		zap.String("tier", string(settings.MasteryTier)),
	)
	return nil
}

// ListUserIDs returns every known user in ascending order: users that
// stored settings, practised a criterion or own a question set.
func (s *SettingsService) ListUserIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := s.store.ReadOnly(ctx, func(ctx context.Context, r repository.Repos) error {
		for _, list := range []func(context.Context) ([]int64, error){
			r.Settings().ListUserIDs,
			r.Masteries().ListUserIDs,
			r.QuestionSets().ListUserIDs,
		} {
			found, err := list(ctx)
			if err != nil {
				return err
			}
			ids = append(ids, found...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}

func (s *SettingsService) version(userID int64) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.versions[userID]
}

// fill caches settings read at version. A read that an update overtook is
// not cached.
func (s *SettingsService) fill(ctx context.Context, settings *entities.UserSettings, version uint64) {
	if s.cache == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.versions[settings.UserID] != version {
		return
	}
	if err := s.cache.Set(ctx, settings); err != nil {
		s.logger.Warn("settings cache set failed", zap.Int64("user_id", settings.UserID), zap.Error(err))
	}
}

func (s *SettingsService) invalidate(ctx context.Context, userID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, userID); err != nil {
		s.logger.Warn("settings cache invalidate failed", zap.Int64("user_id", userID), zap.Error(err))
	}
}

func (s *SettingsService) defaultsFor(userID int64) *entities.UserSettings {
	settings := entities.NewUserSettings(userID, s.now())
	if s.defaults.DailyStudyMinutes > 0 {
		settings.DailyStudyMinutes = s.defaults.DailyStudyMinutes
	}
	if s.defaults.MasteryTier.Valid() {
		settings.MasteryTier = s.defaults.MasteryTier
	}
	if s.defaults.LearningStyle != "" {
		settings.LearningStyle = s.defaults.LearningStyle
	}
	if s.defaults.Timezone != "" {
		settings.Timezone = s.defaults.Timezone
	}
	return settings
}
