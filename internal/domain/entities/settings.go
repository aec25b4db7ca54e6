package entities

import (
	"fmt"
	"strings"
	"time"
)

// LearningStyle is a preset that controls how strictly attempts are spaced.
type LearningStyle string

const (
	StyleConservative LearningStyle = "CONSERVATIVE" // two days between attempts
	StyleBalanced     LearningStyle = "BALANCED"     // one day between attempts
	StyleAggressive   LearningStyle = "AGGRESSIVE"   // no minimum gap
)

var styleGapDays = map[LearningStyle]int{
	StyleConservative: 2,
	StyleBalanced:     1,
	StyleAggressive:   0,
}

// ParseLearningStyle parses a learning style case-insensitively.
func ParseLearningStyle(s string) (LearningStyle, error) {
	style := LearningStyle(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := styleGapDays[style]; !ok {
		return "", fmt.Errorf("unknown learning style %q", s)
	}
	return style, nil
}

// Default values for new settings rows.
const (
	DefaultDailyStudyMinutes = 30
	DefaultMinGapDays        = 1
)

// UserSettings stores the per-user configuration consumed by the engine.
type UserSettings struct {
	UserID            int64
	DailyStudyMinutes int           // daily time capacity in minutes
	MasteryTier       ThresholdTier // stage mastery bar
	LearningStyle     LearningStyle // preset for the attempt gap
	MinGapDays        *int          // nullable, overrides the learning style preset
	AllowRetrySameDay bool          // disables the attempt gap entirely
	Timezone          string        // IANA name or UTC offset, used for plan dates
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// NewUserSettings creates settings with default values.
func NewUserSettings(userID int64, now time.Time) *UserSettings {
	return &UserSettings{
		UserID:            userID,
		DailyStudyMinutes: DefaultDailyStudyMinutes,
		MasteryTier:       TierProficient,
		LearningStyle:     StyleBalanced,
		Timezone:          "UTC",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// EffectiveMinGapDays resolves the attempt gap: an explicit value wins over
// the learning style preset, and unknown styles fall back to one day.
func (us *UserSettings) EffectiveMinGapDays() int {
	if us.MinGapDays != nil {
		return max(0, *us.MinGapDays)
	}
	if days, ok := styleGapDays[us.LearningStyle]; ok {
		return days
	}
	return DefaultMinGapDays
}

// MinGap returns the enforced gap between attempts, or 0 when no gap applies.
func (us *UserSettings) MinGap() time.Duration {
	if us.AllowRetrySameDay {
		return 0
	}
	return time.Duration(us.EffectiveMinGapDays()) * 24 * time.Hour
}

// Location returns the user's time zone, UTC when it cannot be parsed.
func (us *UserSettings) Location() *time.Location {
	loc, err := ParseTimezoneLocation(us.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// Validate checks the settings before they are stored.
func (us *UserSettings) Validate() error {
	if us.DailyStudyMinutes <= 0 {
		return fmt.Errorf("daily study minutes must be positive, got %d", us.DailyStudyMinutes)
	}
	if !us.MasteryTier.Valid() {
		return fmt.Errorf("unknown mastery threshold tier %q", us.MasteryTier)
	}
	if _, ok := styleGapDays[us.LearningStyle]; !ok {
		return fmt.Errorf("unknown learning style %q", us.LearningStyle)
	}
	if us.MinGapDays != nil && *us.MinGapDays < 0 {
		return fmt.Errorf("min gap days must not be negative, got %d", *us.MinGapDays)
	}
	if _, err := ParseTimezoneLocation(us.Timezone); err != nil {
		return err
	}
	return nil
}
