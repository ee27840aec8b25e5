package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/Carmen-Shannon/oxy-synth/config"
	"github.com/Carmen-Shannon/oxy-synth/internal"
	pkgconfig "github.com/Carmen-Shannon/oxy-synth/pkg/config"
	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"
)

func run(ctx context.Context, cmd *cli.Command) error {
	configPath := cmd.String("config")

	cfg := config.NewDefaultConfig()
	if err := pkgconfig.Load(configPath, cfg); err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}

	if cmd.IsSet("frame-start") {
		cfg.Render.FrameStart = int(cmd.Int("frame-start"))
	}
	if cmd.IsSet("frame-end") {
		cfg.Render.FrameEnd = int(cmd.Int("frame-end"))
	}
	if cmd.IsSet("width") {
		cfg.Render.Resolution.Width = int(cmd.Int("width"))
	}
	if cmd.IsSet("height") {
		cfg.Render.Resolution.Height = int(cmd.Int("height"))
	}
	if cmd.IsSet("seed") {
		cfg.Render.Seed = cmd.Uint("seed")
	}
	if cmd.IsSet("output") {
		cfg.Paths.Output = cmd.String("output")
	}
	if cmd.IsSet("state") {
		cfg.Paths.State = cmd.String("state")
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	opts := []internal.Option{
		internal.WithConfig(cfg),
	}

	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}

	return nil
}

func main() {
	cmd := &cli.Command{
		Name:   "oxysynth",
		Usage:  "Render annotated synthetic image sequences from a declarative scene",
		Action: run,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("OXYSYNTH_CONFIG"),
			},
			&cli.IntFlag{
				Name:  "frame-start",
				Usage: "First frame of the render range",
			},
			&cli.IntFlag{
				Name:  "frame-end",
				Usage: "Last frame of the render range (inclusive)",
			},
			&cli.IntFlag{
				Name:  "width",
				Usage: "Output width in pixels",
			},
			&cli.IntFlag{
				Name:  "height",
				Usage: "Output height in pixels",
			},
			&cli.UintFlag{
				Name:  "seed",
				Usage: "Seed of every random choice in the run",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Directory the artifacts are written to",
			},
			&cli.StringFlag{
				Name:  "state",
				Usage: "File the renderer state is saved to",
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
