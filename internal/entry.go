// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/Carmen-Shannon/oxy-synth/engine"
	"github.com/Carmen-Shannon/oxy-synth/engine/renderer"
)

// Run assembles the configured scene, renders it and writes the artifacts. SIGINT and SIGTERM
// cancel the render; the frames produced so far are discarded.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{stdout: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("scene", cfg.Scene.Name),
		slog.String("output", cfg.Paths.Output),
		slog.String("manifest", cfg.Paths.Manifest),
		slog.Int("frame_start", cfg.Render.FrameStart),
		slog.Int("frame_end", cfg.Render.FrameEnd),
		slog.String("resolution", cfg.Render.Resolution.String()),
		slog.String("log_level", cfg.App.LogLevel.String()))

	channels := make([]renderer.Channel, 0, len(cfg.Render.Channels))
	for _, name := range cfg.Render.Channels {
		c, err := renderer.ParseChannel(name)
		if err != nil {
			return err
		}
		channels = append(channels, c)
	}

	asm, err := engine.Assemble(cfg, logger)
	if err != nil {
		return fmt.Errorf("assemble scene: %w", err)
	}

	backendOpts := []renderer.RasterBackendOption{
		renderer.WithLabelSeed(cfg.Render.Seed),
		renderer.WithRasterLogger(logger),
	}
	if cfg.Render.Workers > 0 {
		backendOpts = append(backendOpts, renderer.WithRasterWorkers(cfg.Render.Workers))
	}

	eng := engine.NewEngine(asm.Scene,
		engine.WithStore(asm.Store),
		engine.WithBackend(renderer.NewRasterBackend(backendOpts...)),
		engine.WithChannels(channels...),
		engine.WithInstances(asm.Instances...),
		engine.WithSeed(cfg.Render.Seed),
		engine.WithBackgroundTransparency(cfg.Render.BackgroundTransparency),
		engine.WithOutputDir(cfg.Paths.Output),
		engine.WithStatePath(cfg.Paths.State),
		engine.WithProfiling(cfg.App.Profiling),
		engine.WithLogger(logger),
	)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, err := eng.Run(ctx)
	err = errors.Join(err, eng.Close())
	if err != nil {
		logger.Error("Render error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Render completed",
		slog.Int("frames", res.Stack.Len()),
		slog.Int("instances", len(res.Record.Instances)),
		slog.Float64("fps", res.Stats.FPS),
		slog.String("run_id", res.Record.Metadata.RunID))
	return nil
}
