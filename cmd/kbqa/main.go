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
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/poiesic/kbqa"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "kbqa",
		Usage: "Answer questions from a knowledge base of markdown documents",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to a YAML configuration file",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "ask",
				Usage:     "Answer a question, or start an interactive session when none is given",
				ArgsUsage: "[question]",
				Action:    askCommand,
				Flags: append(databaseFlags(),
					&cli.IntFlag{
						Name:    "answers",
						Aliases: []string{"n"},
						Usage:   "Maximum number of answers",
						Value:   5,
					},
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "Time limit per question, 0 for none",
						Value: 10 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "trace",
						Usage: "Log every search stage",
					},
					&cli.StringFlag{
						Name:  "metrics-addr",
						Usage: "Serve Prometheus metrics on this address, e.g. :9090",
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest markdown documents into the knowledge base",
				ArgsUsage: "<file.md>...",
				Action:    ingestCommand,
				Flags: append(databaseFlags(),
					&cli.StringFlag{
						Name:  "title",
						Usage: "Top heading for documents (defaults to the file name)",
					},
					&cli.IntFlag{
						Name:  "pool-size",
						Usage: "Number of frame classification workers",
					},
					&cli.IntFlag{
						Name:  "frame-batch-size",
						Usage: "Number of sentences classified per task",
						Value: 32,
					},
					&cli.BoolFlag{
						Name:  "no-frames",
						Usage: "Skip frame classification, run reframe later",
					},
				),
			},
			{
				Name:   "reframe",
				Usage:  "Classify the frames of all stored sentences",
				Action: reframeCommand,
				Flags: append(databaseFlags(),
					&cli.IntFlag{
						Name:  "batch-size",
						Usage: "Number of sentences to process in each batch",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "report-interval",
						Usage: "Report progress every N sentences",
						Value: 100,
					},
					&cli.IntFlag{
						Name:  "max-retries",
						Usage: "Maximum retry attempts for failed operations",
						Value: 3,
					},
					&cli.DurationFlag{
						Name:  "retry-delay",
						Usage: "Base delay for exponential backoff",
						Value: 1 * time.Second,
					},
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Discard the checkpoint and classify from the first sentence",
					},
				),
			},
			{
				Name:   "verify",
				Usage:  "Check the heading tree and report knowledge base statistics",
				Action: verifyCommand,
				Flags: append(databaseFlags(),
					&cli.Float64Flag{
						Name:  "similar",
						Usage: "Also report entity pairs more similar than this ratio, e.g. 0.925",
					},
				),
			},
			{
				Name:  "config",
				Usage: "Inspect the effective configuration",
				Subcommands: []*cli.Command{
					{
						Name:   "show",
						Usage:  "Print the configuration after defaults, file, environment and flags",
						Action: configShowCommand,
						Flags:  databaseFlags(),
					},
				},
			},
		},
	}
}

// databaseFlags are shared by every command that opens the knowledge base.
func databaseFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
		},
		&cli.StringFlag{
			Name:  "provider",
			Usage: "Annotation provider (lexical, openai)",
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
		},
		&cli.StringFlag{
			Name:  "model",
			Usage: "Chat model used for annotation",
		},
		&cli.StringFlag{
			Name:  "frame-lexicon",
			Usage: "YAML frame lexicon for the lexical provider",
		},
	}
}

// openDatabase loads the layered configuration and opens the knowledge base
// it points at.
func openDatabase(c *cli.Context) (*kbqa.Database, *Config, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, nil, err
	}

	db, err := kbqa.NewDatabase(cfg.Database,
		kbqa.WithAIConfig(cfg.AI),
		kbqa.WithSearchConfig(cfg.Search),
		kbqa.WithLogger(slog.Default()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, cfg, nil
}

func setupLogger(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	levelStr := strings.ToLower(cfg.LogLevel)

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
