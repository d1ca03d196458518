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

package main

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/reframe"
	"github.com/poiesic/kbqa/search"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// envPrefix prefixes environment overrides, e.g. KBQA_AI_PROVIDER.
const envPrefix = "KBQA"

var errDatabaseRequired = errors.New("database path is required (--db, KBQA_DATABASE or the config file)")

// Config is everything the CLI can be told, in one document.
type Config struct {
	Database string          `mapstructure:"database" yaml:"database"`
	LogLevel string          `mapstructure:"log_level" yaml:"log_level"`
	AI       *ai.Config      `mapstructure:"ai" yaml:"ai"`
	Search   *search.Config  `mapstructure:"search" yaml:"search"`
	Ingest   *IngestConfig   `mapstructure:"ingest" yaml:"ingest"`
	Reframe  *reframe.Config `mapstructure:"reframe" yaml:"reframe"`
}

// IngestConfig tunes the ingestion pipeline.
type IngestConfig struct {
	// PoolSize is the number of frame classification workers. Zero keeps
	// the pipeline default.
	PoolSize int `mapstructure:"pool_size" yaml:"pool_size"`

	FrameBatchSize int `mapstructure:"frame_batch_size" yaml:"frame_batch_size"`

	// Frames classifies frames while ingesting. When off, run `kbqa reframe`
	// afterwards.
	Frames bool `mapstructure:"frames" yaml:"frames"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		LogLevel: "info",
		AI:       ai.DefaultConfig(),
		Search:   search.DefaultConfig(),
		Ingest: &IngestConfig{
			FrameBatchSize: 32,
			Frames:         true,
		},
		Reframe: reframe.DefaultConfig(),
	}
}

// loadConfig layers the configuration: defaults, then the --config file,
// then KBQA_* environment variables, then flags set on the command line.
func loadConfig(c *cli.Context) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("marshal default config: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return nil, fmt.Errorf("load default config: %w", err)
	}

	if path := c.String("config"); path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	applyFlags(c, cfg)
	return cfg, nil
}

// applyFlags copies explicitly set flags over cfg. Flags a command does not
// define are never set and leave cfg alone.
func applyFlags(c *cli.Context, cfg *Config) {
	stringFlags := map[string]*string{
		"db":            &cfg.Database,
		"log-level":     &cfg.LogLevel,
		"provider":      &cfg.AI.Provider,
		"host":          &cfg.AI.Host,
		"model":         &cfg.AI.Model,
		"frame-lexicon": &cfg.AI.FrameLexicon,
	}
	for name, target := range stringFlags {
		if c.IsSet(name) {
			*target = c.String(name)
		}
	}

	intFlags := map[string]*int{
		"answers":          &cfg.Search.AnswerBudget,
		"pool-size":        &cfg.Ingest.PoolSize,
		"frame-batch-size": &cfg.Ingest.FrameBatchSize,
		"batch-size":       &cfg.Reframe.BatchSize,
		"report-interval":  &cfg.Reframe.ReportInterval,
		"max-retries":      &cfg.Reframe.MaxRetries,
	}
	for name, target := range intFlags {
		if c.IsSet(name) {
			*target = c.Int(name)
		}
	}

	if c.IsSet("retry-delay") {
		cfg.Reframe.RetryDelay = c.Duration("retry-delay")
	}
	if c.IsSet("timeout") {
		cfg.Search.Timeout = c.Duration("timeout")
	}
	if c.IsSet("no-frames") {
		cfg.Ingest.Frames = !c.Bool("no-frames")
	}
	if cfg.Search.EnoughMatches > cfg.Search.AnswerBudget {
		cfg.Search.EnoughMatches = cfg.Search.AnswerBudget
	}
}

func (c *Config) validate() error {
	if c.Database == "" {
		return errDatabaseRequired
	}
	if err := c.AI.Validate(); err != nil {
		return err
	}
	if err := c.Search.Validate(); err != nil {
		return err
	}
	if c.Reframe.BatchSize <= 0 {
		return fmt.Errorf("reframe batch size must be greater than 0")
	}
	if c.Reframe.ReportInterval <= 0 {
		return fmt.Errorf("report interval must be greater than 0")
	}
	if c.Reframe.MaxRetries <= 0 {
		return fmt.Errorf("max retries must be greater than 0")
	}
	return nil
}
