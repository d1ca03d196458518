package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/kbqa/ai"
	"github.com/poiesic/kbqa/core"
	"github.com/poiesic/kbqa/ingestion"
	"github.com/poiesic/kbqa/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const (
	prompt      = "Q > "
	exitCommand = "exit"
)

func askCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	engine, err := db.Engine()
	if err != nil {
		return fmt.Errorf("failed to create engine: %w", err)
	}

	var monitors []search.Monitor
	if c.Bool("trace") {
		monitors = append(monitors, search.NewLogMonitor(slog.Default()))
	}
	if addr := c.String("metrics-addr"); addr != "" {
		registry := prometheus.NewRegistry()
		monitors = append(monitors, search.NewPrometheusMonitor(registry))
		stop := serveMetrics(addr, registry)
		defer stop()
	}
	monitor := search.Monitors(monitors...)

	if c.Args().Present() {
		question := strings.Join(c.Args().Slice(), " ")
		answers, err := engine.AnswerWithMonitor(c.Context, question, monitor)
		if err != nil {
			return err
		}
		printAnswers(c.App.Writer, answers)
		return nil
	}
	return interactive(c.Context, c.App.Reader, c.App.Writer, func(ctx context.Context, question string) ([]*core.Answer, error) {
		return engine.AnswerWithMonitor(ctx, question, monitor)
	})
}

// interactive answers one question per line until exit or end of input.
// A failed question is reported and the session goes on.
func interactive(ctx context.Context, in io.Reader, out io.Writer, answer func(context.Context, string) ([]*core.Answer, error)) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		question := strings.TrimSpace(scanner.Text())
		switch {
		case question == "":
			continue
		case strings.EqualFold(question, exitCommand):
			return nil
		}

		answers, err := answer(ctx, question)
		if err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
			continue
		}
		printAnswers(out, answers)
		if err := ctx.Err(); err != nil {
			return err
		}
	}
}

func printAnswers(out io.Writer, answers []*core.Answer) {
	for i, answer := range answers {
		if answer.Fallback {
			fmt.Fprintln(out, answer.Text)
			continue
		}
		fmt.Fprintf(out, "%d. %s [%s %.2f]\n", i+1, answer.Heading, answer.Tier, answer.Score)
		fmt.Fprintf(out, "   %s\n", answer.Text)
		fmt.Fprintf(out, "   %s\n", answer.Reference)
	}
}

// serveMetrics exposes registry over HTTP until the returned func is called.
func serveMetrics(addr string, registry *prometheus.Registry) func() {
	server := &http.Server{
		Addr:              addr,
		Handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("metrics server stopped", "addr", addr, "err", err)
		}
	}()
	return func() {
		server.Close()
	}
}

func ingestCommand(c *cli.Context) error {
	if !c.Args().Present() {
		return fmt.Errorf("at least one markdown file is required")
	}

	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	opts := []ingestion.Option{ingestion.WithFrameBatchSize(cfg.Ingest.FrameBatchSize)}
	if cfg.Ingest.PoolSize > 0 {
		opts = append(opts, ingestion.WithPoolSize(cfg.Ingest.PoolSize))
	}
	if !cfg.Ingest.Frames {
		opts = append(opts, ingestion.WithFrameClassifier(nil))
	}
	pipeline, err := db.NewIngestionPipeline(opts...)
	if err != nil {
		return fmt.Errorf("failed to create ingestion pipeline: %w", err)
	}
	defer pipeline.Release()

	out := c.App.Writer
	for _, path := range c.Args().Slice() {
		source, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", path, err)
		}

		title := c.String("title")
		if title == "" {
			title = documentTitle(path)
		}

		result, err := pipeline.Ingest(c.Context, title, source)
		if err != nil {
			return fmt.Errorf("ingestion of %s failed: %w", path, err)
		}
		fmt.Fprintf(out, "%s: %d sections, %d sentences, %d entities",
			path, result.Sections, result.Sentences, result.Entities)
		if result.Existing > 0 {
			fmt.Fprintf(out, " (%d already stored)", result.Existing)
		}
		if result.Malformed > 0 {
			fmt.Fprintf(out, " (%d without entities)", result.Malformed)
		}
		fmt.Fprintln(out)
	}

	// Frames are classified in the background; wait before closing the store.
	pipeline.Wait()
	return nil
}

// documentTitle turns a file name into a heading, e.g. "rate-limits.md"
// becomes "rate limits".
func documentTitle(path string) string {
	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return strings.Join(strings.FieldsFunc(name, func(r rune) bool {
		return r == '-' || r == '_' || r == ' '
	}), " ")
}

func reframeCommand(c *cli.Context) error {
	db, cfg, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	reframer, err := db.NewReframer(cfg.Reframe, c.App.ErrWriter)
	if err != nil {
		return fmt.Errorf("failed to create reframer: %w", err)
	}

	if c.Bool("reset") {
		if err := reframer.Reset(c.Context); err != nil {
			return fmt.Errorf("failed to reset checkpoint: %w", err)
		}
	}

	fmt.Fprintf(c.App.ErrWriter, "Database: %s\n", cfg.Database)
	fmt.Fprintf(c.App.ErrWriter, "Provider: %s\n", cfg.AI.Provider)
	if cfg.AI.Provider != ai.ProviderLexical {
		fmt.Fprintf(c.App.ErrWriter, "Model: %s\n", cfg.AI.Model)
	}
	fmt.Fprintln(c.App.ErrWriter)

	if _, err := reframer.Run(c.Context); err != nil {
		return fmt.Errorf("frame classification failed: %w", err)
	}
	return nil
}

func verifyCommand(c *cli.Context) error {
	db, _, err := openDatabase(c)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Verify(c.Context); err != nil {
		return fmt.Errorf("heading tree is broken: %w", err)
	}

	stats, err := db.Stats(c.Context)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintln(out, "Heading tree: ok")
	fmt.Fprintf(out, "Entities:  %d\n", stats.Entities)
	fmt.Fprintf(out, "Headings:  %d\n", stats.Headings)
	fmt.Fprintf(out, "Sentences: %d\n", stats.Sentences)
	fmt.Fprintf(out, "Frames:    %d\n", stats.Frames)
	fmt.Fprintf(out, "Frames classified through sentence %d at ingestion, %d by reframe\n",
		stats.FramesThrough, stats.ReframedThrough)

	if !c.IsSet("similar") {
		return nil
	}
	pairs, err := db.SimilarEntities(c.Context, c.Float64("similar"))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "\nSimilar entities (%d):\n", len(pairs))
	for _, pair := range pairs {
		fmt.Fprintf(out, "  %.3f  %q ~ %q\n", pair.Similarity, pair.A, pair.B)
	}
	return nil
}

func configShowCommand(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}
	if path := c.String("config"); path != "" {
		fmt.Fprintf(c.App.ErrWriter, "Configuration file: %s\n", path)
	}
	_, err = c.App.Writer.Write(data)
	return err
}
