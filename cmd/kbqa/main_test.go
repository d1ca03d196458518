package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/kbqa/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func findCommand(t *testing.T, app *cli.App, name string) *cli.Command {
	t.Helper()
	for _, cmd := range app.Commands {
		if cmd.Name == name {
			return cmd
		}
	}
	t.Fatalf("command %q not found", name)
	return nil
}

func TestReframeCommandFlags(t *testing.T) {
	cmd := findCommand(t, newApp(), "reframe")

	intDefault := func(name string) int {
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.IntFlag); ok && f.Name == name {
				return f.Value
			}
		}
		t.Fatalf("flag %q not found", name)
		return 0
	}

	t.Run("batch-size has default value of 100", func(t *testing.T) {
		assert.Equal(t, 100, intDefault("batch-size"))
	})

	t.Run("report-interval has default value of 100", func(t *testing.T) {
		assert.Equal(t, 100, intDefault("report-interval"))
	})

	t.Run("max-retries has default value of 3", func(t *testing.T) {
		assert.Equal(t, 3, intDefault("max-retries"))
	})

	t.Run("db is not required", func(t *testing.T) {
		var dbFlag *cli.StringFlag
		for _, flag := range cmd.Flags {
			if f, ok := flag.(*cli.StringFlag); ok && f.Name == "db" {
				dbFlag = f
				break
			}
		}
		require.NotNil(t, dbFlag)
		assert.False(t, dbFlag.Required)
		assert.Empty(t, dbFlag.EnvVars)
	})
}

func TestCommandValidation(t *testing.T) {
	t.Setenv("KBQA_DATABASE", "")

	t.Run("database path is required", func(t *testing.T) {
		err := newApp().Run([]string{"kbqa", "verify"})
		assert.ErrorIs(t, err, errDatabaseRequired)
	})

	t.Run("invalid log level", func(t *testing.T) {
		err := newApp().Run([]string{"kbqa", "-l", "loud", "config", "show"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid log level")
	})

	t.Run("ingest needs files", func(t *testing.T) {
		err := newApp().Run([]string{"kbqa", "ingest", "--db", t.TempDir()})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "markdown file")
	})

	t.Run("unknown provider", func(t *testing.T) {
		err := newApp().Run([]string{"kbqa", "verify", "--db", t.TempDir(), "--provider", "telepathy"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telepathy")
	})
}

// configApp runs loadConfig behind the same global flags as the real app.
func configApp(captured **Config) *cli.App {
	app := newApp()
	app.Before = nil
	app.Commands = []*cli.Command{{
		Name:  "inspect",
		Flags: append(databaseFlags(), &cli.IntFlag{Name: "answers"}),
		Action: func(c *cli.Context) error {
			cfg, err := loadConfig(c)
			*captured = cfg
			return err
		},
	}}
	return app
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var cfg *Config
		require.NoError(t, configApp(&cfg).Run([]string{"kbqa", "inspect"}))

		expected := DefaultConfig()
		assert.Equal(t, expected.AI, cfg.AI)
		assert.Equal(t, expected.Search, cfg.Search)
		assert.Equal(t, expected.Reframe, cfg.Reframe)
		assert.True(t, cfg.Ingest.Frames)
	})

	t.Run("file then environment then flags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "kbqa.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
database: /var/lib/kbqa
ai:
  model: llama3
  cache_ttl: 1h
search:
  answer_budget: 4
  accept_high: 0.9
reframe:
  retry_delay: 2s
`), 0644))
		t.Setenv("KBQA_AI_MODEL", "mistral")
		t.Setenv("KBQA_SEARCH_ACCEPT_LOW", "0.3")

		var cfg *Config
		err := configApp(&cfg).Run([]string{"kbqa", "--config", path, "inspect", "--answers", "2", "--db", "/tmp/kb"})
		require.NoError(t, err)

		assert.Equal(t, "/tmp/kb", cfg.Database)
		assert.Equal(t, "mistral", cfg.AI.Model)
		assert.Equal(t, time.Hour, cfg.AI.CacheTTL)
		assert.Equal(t, 2, cfg.Search.AnswerBudget)
		assert.Equal(t, 2, cfg.Search.EnoughMatches)
		assert.InDelta(t, 0.9, cfg.Search.AcceptHigh, 1e-9)
		assert.InDelta(t, 0.3, cfg.Search.AcceptLow, 1e-9)
		assert.Equal(t, 2*time.Second, cfg.Reframe.RetryDelay)
		assert.Equal(t, 100, cfg.Reframe.BatchSize)
	})

	t.Run("missing file", func(t *testing.T) {
		var cfg *Config
		err := configApp(&cfg).Run([]string{"kbqa", "--config", filepath.Join(t.TempDir(), "nope.yaml"), "inspect"})
		assert.Error(t, err)
	})
}

func TestConfigShow(t *testing.T) {
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out

	err := app.Run([]string{"kbqa", "config", "show", "--db", "/tmp/kb", "--provider", "openai"})
	require.NoError(t, err)

	assert.Contains(t, out.String(), "database: /tmp/kb")
	assert.Contains(t, out.String(), "provider: openai")
	assert.Contains(t, out.String(), "answer_budget: 5")
}

func TestIngestAndVerify(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "kb")
	doc := filepath.Join(dir, "api-gateway.md")
	require.NoError(t, os.WriteFile(doc, []byte("# Limits\n\nThe gateway timeout is 30 seconds.\n"), 0644))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"kbqa", "ingest", "--db", dbPath, doc}))
	assert.Contains(t, out.String(), "api-gateway.md: 1 sections, 1 sentences")

	out.Reset()
	app = newApp()
	app.Writer = &out
	require.NoError(t, app.Run([]string{"kbqa", "verify", "--db", dbPath, "--similar", "0.925"}))

	report := out.String()
	assert.Contains(t, report, "Heading tree: ok")
	assert.Contains(t, report, "Headings:  2")
	assert.Contains(t, report, "Sentences: 1")
	assert.Contains(t, report, "Similar entities (")
}

func TestDocumentTitle(t *testing.T) {
	assert.Equal(t, "rate limits", documentTitle("docs/rate-limits.md"))
	assert.Equal(t, "api gateway guide", documentTitle("api_gateway guide.markdown"))
	assert.Equal(t, "README", documentTitle("README"))
}

func TestInteractive(t *testing.T) {
	answer := func(_ context.Context, question string) ([]*core.Answer, error) {
		switch question {
		case "boom":
			return nil, errors.New("upstream down")
		case "timeout":
			return []*core.Answer{{
				HeadingId: 4,
				Heading:   "Gateway > Limits",
				Reference: "kb://headings/4",
				Score:     0.9,
				Tier:      core.TierBest,
				Text:      "The gateway timeout is 30 seconds.",
			}}, nil
		}
		return []*core.Answer{{Fallback: true, Text: "no answer"}}, nil
	}

	t.Run("answers until exit", func(t *testing.T) {
		var out bytes.Buffer
		in := strings.NewReader("timeout\n\nboom\nzebra\nexit\nnever asked\n")
		require.NoError(t, interactive(context.Background(), in, &out, answer))

		session := out.String()
		assert.Equal(t, 5, strings.Count(session, prompt))
		assert.Contains(t, session, "1. Gateway > Limits [best 0.90]\n   The gateway timeout is 30 seconds.\n   kb://headings/4\n")
		assert.Contains(t, session, "error: upstream down\n")
		assert.Contains(t, session, "no answer\n")
		assert.NotContains(t, session, "never asked")
	})

	t.Run("stops at end of input", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, interactive(context.Background(), strings.NewReader("zebra"), &out, answer))
		assert.Equal(t, 2, strings.Count(out.String(), prompt))
	})
}
