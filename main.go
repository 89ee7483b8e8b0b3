// Command channelweaver runs the channel-weaving pipeline end to end. It
// owns flag parsing, signal-based cancellation, and sink wiring only;
// everything else lives in internal/pipeline.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/cblack34/channelweaver/internal/configio"
	"github.com/cblack34/channelweaver/internal/pipeline"
	"github.com/cblack34/channelweaver/internal/report"
	"github.com/cblack34/channelweaver/internal/store"
)

func main() {
	// ── Flags ───────────────────────────────────────────
	inputDir := flag.String("input", "", "input directory of sequentially numbered WAV files")
	outputDir := flag.String("output", "", "output directory for built tracks")
	configPath := flag.String("config", "", "path to the channel/bus/section-splitting plan JSON")
	keepTemp := flag.Bool("keep-temp", false, "keep the temp directory after a successful run")
	dbPath := flag.String("db", "", "optional run-history sqlite database path")
	sessionJSON := flag.String("session-json", "", "optional path to write the final section list as JSON")
	jsonLog := flag.String("json-log", "", "optional path to write newline-delimited JSON events")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	// ── Logger ──────────────────────────────────────────
	logLevel := slog.LevelInfo
	if *debug {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	if *inputDir == "" || *outputDir == "" || *configPath == "" {
		fmt.Fprintln(os.Stderr, "usage: channelweaver -input DIR -output DIR -config plan.json")
		flag.PrintDefaults()
		os.Exit(2)
	}

	// ── Config ──────────────────────────────────────────
	plan, err := configio.LoadPlan(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// ── Reporting sinks ───────────────────────────────────
	sinks := []report.Sink{report.NewConsoleSink(os.Stderr)}
	if *jsonLog != "" {
		js, err := report.NewJSONSink(*jsonLog)
		if err != nil {
			slog.Error("failed to open json log", "error", err)
			os.Exit(1)
		}
		defer js.Close()
		sinks = append(sinks, js)
	}
	sink := report.MultiSink{Sinks: sinks}

	// ── Run store ───────────────────────────────────────
	var runStore store.RunStore
	if *dbPath != "" {
		s, err := store.Open(*dbPath)
		if err != nil {
			slog.Error("failed to open run store", "error", err)
			os.Exit(1)
		}
		defer s.Close()
		runStore = s
	}

	// ── Cooperative cancellation ──────────────────────────
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		slog.Warn("received shutdown signal, cancelling")
		cancel()
	}()
	defer cancel()

	started := time.Now().UTC()
	result, runErr := pipeline.Run(ctx, pipeline.Options{
		InputDir:  *inputDir,
		OutputDir: *outputDir,
		Plan:      plan,
		KeepTemp:  *keepTemp,
		Sink:      sink,
		Store:     runStore,
	})
	finished := time.Now().UTC()

	if *sessionJSON != "" {
		meta := configio.SessionMeta{
			InputDir:   *inputDir,
			OutputDir:  result.OutputDir,
			SampleRate: result.SampleRate,
			StartedAt:  started,
			FinishedAt: finished,
		}
		if err := configio.WriteSessionJSON(*sessionJSON, result.Sections, meta); err != nil {
			slog.Warn("failed to write session json", "error", err)
		}
	}

	if runErr != nil {
		slog.Error("pipeline failed", "error", runErr)
		os.Exit(1)
	}

	slog.Info("pipeline finished", "output", filepath.Clean(result.OutputDir), "sections", len(result.Sections))
}
