package search

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 2, cfg.EditTolerance)
	assert.Equal(t, 50, cfg.MaxEntityLength)
	assert.Equal(t, 3, cfg.MaxMatchesPerEntity)
	assert.Equal(t, 5, cfg.TrailingWindow)
	assert.Equal(t, DefaultFallbackText, cfg.FallbackText)
	assert.Equal(t, 10*time.Second, cfg.Timeout)
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig(
		WithEditTolerance(1, 1, 1, 1),
		WithThresholds(1.2, 0.6),
		WithAnswerBudget(8, 4),
		WithWindow(2, 3),
		WithMinHeadingGroups(1),
		WithTimeout(time.Second),
	)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 1, cfg.EditTolerance)
	assert.Equal(t, 1, cfg.SubstituteCost)
	assert.Equal(t, 1.2, cfg.AcceptHigh)
	assert.Equal(t, 0.6, cfg.AcceptLow)
	assert.Equal(t, 8, cfg.AnswerBudget)
	assert.Equal(t, 4, cfg.EnoughMatches)
	assert.Equal(t, 2, cfg.LeadingProximity)
	assert.Equal(t, 3, cfg.TrailingWindow)
	assert.Equal(t, 1, cfg.MinHeadingGroups)
	assert.Equal(t, time.Second, cfg.Timeout)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"max entity length", func(c *Config) { c.MaxEntityLength = 0 }},
		{"negative tolerance", func(c *Config) { c.EditTolerance = -1 }},
		{"zero cost", func(c *Config) { c.SubstituteCost = 0 }},
		{"no matches", func(c *Config) { c.MaxMatchesPerEntity = 0 }},
		{"no heading groups", func(c *Config) { c.MinHeadingGroups = 0 }},
		{"hit threshold above one", func(c *Config) { c.EntityHitThreshold = 1.5 }},
		{"inverted thresholds", func(c *Config) { c.AcceptHigh, c.AcceptLow = 0.3, 0.5 }},
		{"zero budget", func(c *Config) { c.AnswerBudget = 0 }},
		{"enough above budget", func(c *Config) { c.EnoughMatches = c.AnswerBudget + 1 }},
		{"negative window", func(c *Config) { c.TrailingWindow = -1 }},
		{"blank fallback", func(c *Config) { c.FallbackText = "  " }},
		{"reference without id", func(c *Config) { c.ReferenceFormat = "kb://headings" }},
		{"negative timeout", func(c *Config) { c.Timeout = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
		})
	}
}
