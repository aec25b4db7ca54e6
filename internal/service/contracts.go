package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"

	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

var tracer = otel.Tracer("github.com/aliskhannn/mastery-engine/internal/service")

// SettingsProvider resolves the read-only per-user configuration.
type SettingsProvider interface {
	Get(ctx context.Context, userID int64) (*entities.UserSettings, error)
}

// SettingsCache is an optional look-aside cache for user settings.
type SettingsCache interface {
	Get(ctx context.Context, userID int64) (*entities.UserSettings, bool, error)
	Set(ctx context.Context, settings *entities.UserSettings) error
	Invalidate(ctx context.Context, userID int64) error
}

// clock is embedded by services that need the current time. Tests in this
// package replace now with a fixed clock.
type clock struct {
	now func() time.Time
}

func systemClock() clock {
	return clock{now: func() time.Time { return time.Now().UTC() }}
}
