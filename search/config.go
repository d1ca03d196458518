// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package search

import (
	"fmt"
	"strings"
	"time"

	"github.com/poiesic/kbqa/storage"
)

// DefaultFallbackText is returned when no section answers a question.
const DefaultFallbackText = "Sorry. I do not know the answer for that."

// Config holds every tunable of the answer engine. A Config is read-only
// once handed to a constructor, so one value may back many engines.
type Config struct {
	// MaxEntityLength caps the length of stored entities accepted as
	// prefix or suffix extensions of a question entity.
	// Default: 50
	MaxEntityLength int `mapstructure:"max_entity_length" yaml:"max_entity_length"`

	// EditTolerance is the largest weighted edit distance accepted between
	// a question entity and a stored entity.
	// Default: 2
	EditTolerance int `mapstructure:"edit_tolerance" yaml:"edit_tolerance"`

	// InsertCost, DeleteCost and SubstituteCost weight the edit operations.
	// Defaults: 1, 1, 2
	InsertCost     int `mapstructure:"insert_cost" yaml:"insert_cost"`
	DeleteCost     int `mapstructure:"delete_cost" yaml:"delete_cost"`
	SubstituteCost int `mapstructure:"substitute_cost" yaml:"substitute_cost"`

	// MaxMatchesPerEntity bounds the store entities kept per looked-up phrase.
	// Default: 3
	MaxMatchesPerEntity int `mapstructure:"max_matches_per_entity" yaml:"max_matches_per_entity"`

	// MinHeadingGroups is the number of admitted headings that stops the
	// descent to shorter sub-phrases.
	// Default: 2
	MinHeadingGroups int `mapstructure:"min_heading_groups" yaml:"min_heading_groups"`

	// EntityHitThreshold is the token-set similarity a heading entity must
	// reach to count as a hit for a question entity.
	// Default: 0.75
	EntityHitThreshold float64 `mapstructure:"entity_hit_threshold" yaml:"entity_hit_threshold"`

	// AcceptHigh and AcceptLow split scores into the BEST, GOOD and
	// INDIRECT tiers.
	// Defaults: 0.8, 0.4
	AcceptHigh float64 `mapstructure:"accept_high" yaml:"accept_high"`
	AcceptLow  float64 `mapstructure:"accept_low" yaml:"accept_low"`

	// AnswerBudget is the largest number of answers returned.
	// Default: 5
	AnswerBudget int `mapstructure:"answer_budget" yaml:"answer_budget"`

	// EnoughMatches stops scoring once this many headings reached BEST.
	// Default: 3
	EnoughMatches int `mapstructure:"enough_matches" yaml:"enough_matches"`

	// LeadingProximity is how close the first hit must be to the start of
	// its section for the sentences before it to be included.
	// Default: 1
	LeadingProximity int `mapstructure:"leading_proximity" yaml:"leading_proximity"`

	// TrailingWindow is the number of sentences kept after each hit.
	// Default: 5
	TrailingWindow int `mapstructure:"trailing_window" yaml:"trailing_window"`

	// Separator joins the sentences of one answer.
	// Default: " "
	Separator string `mapstructure:"separator" yaml:"separator"`

	// FallbackText is the answer given when nothing matches.
	FallbackText string `mapstructure:"fallback_text" yaml:"fallback_text"`

	// ReferenceFormat renders the stable reference of a heading from its id.
	// Default: "kb://headings/%d"
	ReferenceFormat string `mapstructure:"reference_format" yaml:"reference_format"`

	// Timeout bounds one question end to end. Zero disables it.
	// Default: 10s
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEditTolerance sets the edit distance tolerance and operation costs.
func WithEditTolerance(tolerance, insertCost, deleteCost, substituteCost int) ConfigOption {
	return func(c *Config) {
		c.EditTolerance = tolerance
		c.InsertCost = insertCost
		c.DeleteCost = deleteCost
		c.SubstituteCost = substituteCost
	}
}

// WithThresholds sets the tier acceptance thresholds.
func WithThresholds(high, low float64) ConfigOption {
	return func(c *Config) {
		c.AcceptHigh = high
		c.AcceptLow = low
	}
}

// WithAnswerBudget sets the answer budget and the BEST count that stops scoring.
func WithAnswerBudget(budget, enough int) ConfigOption {
	return func(c *Config) {
		c.AnswerBudget = budget
		c.EnoughMatches = enough
	}
}

// WithWindow sets the leading proximity and trailing window of excerpts.
func WithWindow(leading, trailing int) ConfigOption {
	return func(c *Config) {
		c.LeadingProximity = leading
		c.TrailingWindow = trailing
	}
}

// WithMinHeadingGroups sets how many headings end the sub-phrase descent.
func WithMinHeadingGroups(n int) ConfigOption {
	return func(c *Config) {
		c.MinHeadingGroups = n
	}
}

// WithTimeout sets the per-question timeout.
func WithTimeout(timeout time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = timeout
	}
}

// DefaultConfig returns the engine defaults.
func DefaultConfig() *Config {
	return &Config{
		MaxEntityLength:     50,
		EditTolerance:       2,
		InsertCost:          1,
		DeleteCost:          1,
		SubstituteCost:      2,
		MaxMatchesPerEntity: 3,
		MinHeadingGroups:    2,
		EntityHitThreshold:  0.75,
		AcceptHigh:          0.8,
		AcceptLow:           0.4,
		AnswerBudget:        5,
		EnoughMatches:       3,
		LeadingProximity:    1,
		TrailingWindow:      5,
		Separator:           " ",
		FallbackText:        DefaultFallbackText,
		ReferenceFormat:     "kb://headings/%d",
		Timeout:             10 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.MaxEntityLength < 1:
		return fmt.Errorf("%w: MaxEntityLength must be positive", ErrInvalidConfig)
	case c.EditTolerance < 0:
		return fmt.Errorf("%w: EditTolerance must not be negative", ErrInvalidConfig)
	case c.InsertCost < 1 || c.DeleteCost < 1 || c.SubstituteCost < 1:
		return fmt.Errorf("%w: edit costs must be positive", ErrInvalidConfig)
	case c.MaxMatchesPerEntity < 1:
		return fmt.Errorf("%w: MaxMatchesPerEntity must be positive", ErrInvalidConfig)
	case c.MinHeadingGroups < 1:
		return fmt.Errorf("%w: MinHeadingGroups must be positive", ErrInvalidConfig)
	case c.EntityHitThreshold < 0 || c.EntityHitThreshold > 1:
		return fmt.Errorf("%w: EntityHitThreshold must lie in [0, 1]", ErrInvalidConfig)
	case c.AcceptLow < 0 || c.AcceptHigh < c.AcceptLow:
		return fmt.Errorf("%w: thresholds must satisfy 0 <= AcceptLow <= AcceptHigh", ErrInvalidConfig)
	case c.AnswerBudget < 1:
		return fmt.Errorf("%w: AnswerBudget must be positive", ErrInvalidConfig)
	case c.EnoughMatches < 1 || c.EnoughMatches > c.AnswerBudget:
		return fmt.Errorf("%w: EnoughMatches must lie in [1, AnswerBudget]", ErrInvalidConfig)
	case c.LeadingProximity < 0 || c.TrailingWindow < 0:
		return fmt.Errorf("%w: window sizes must not be negative", ErrInvalidConfig)
	case strings.TrimSpace(c.FallbackText) == "":
		return fmt.Errorf("%w: FallbackText is required", ErrInvalidConfig)
	case !strings.Contains(c.ReferenceFormat, "%d"):
		return fmt.Errorf("%w: ReferenceFormat must contain %%d", ErrInvalidConfig)
	case c.Timeout < 0:
		return fmt.Errorf("%w: Timeout must not be negative", ErrInvalidConfig)
	}
	return nil
}

// entityQuery builds the store lookup for one phrase.
func (c *Config) entityQuery(text string) storage.EntityQuery {
	return storage.EntityQuery{
		Text:           text,
		MaxLength:      c.MaxEntityLength,
		EditTolerance:  c.EditTolerance,
		InsertCost:     c.InsertCost,
		DeleteCost:     c.DeleteCost,
		SubstituteCost: c.SubstituteCost,
		Limit:          c.MaxMatchesPerEntity,
	}
}
