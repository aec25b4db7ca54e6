package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aliskhannn/mastery-engine/internal/config"
	"github.com/aliskhannn/mastery-engine/internal/domain/entities"
)

func TestEngineConfig(t *testing.T) {
	cfg, err := engineConfig(config.Mastery{
		DailyMinutes:    40,
		Tier:            "expert",
		LearningStyle:   "conservative",
		Timezone:        "Europe/Berlin",
		CriticalMinutes: 10,
		PreviewLimit:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, entities.TierExpert, cfg.Settings.MasteryTier)
	assert.Equal(t, entities.StyleConservative, cfg.Settings.LearningStyle)
	assert.Equal(t, 40, cfg.Settings.DailyStudyMinutes)
	assert.Equal(t, 10, cfg.Scheduler.CriticalMinutes)
	assert.Equal(t, 2, cfg.Scheduler.PreviewLimit)

	_, err = engineConfig(config.Mastery{Tier: "MASTER", LearningStyle: "BALANCED", Timezone: "UTC"})
	assert.Error(t, err)

	_, err = engineConfig(config.Mastery{Tier: "SURVEY", LearningStyle: "BALANCED", Timezone: "Mars/Olympus"})
	assert.Error(t, err)
}
